package models

// Technician is a field technician scoped to one import batch. The same
// technician number in two batches is two distinct entities.
type Technician struct {
	ID           string `db:"id" json:"id"`
	TechnicianID int64  `db:"technician_id" json:"technician_id"`
	BatchID      string `db:"batch_id" json:"batch_id"`
}
