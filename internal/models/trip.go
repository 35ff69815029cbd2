package models

import "time"

// TripType categorises a trip record event.
type TripType string

const (
	TripTypePunchIn   TripType = "punch_in"
	TripTypePunchOut  TripType = "punch_out"
	TripTypeStartTrip TripType = "start_trip"
	TripTypeEndTrip   TripType = "end_trip"
	TripTypePickup    TripType = "pickup"
	TripTypeDelivery  TripType = "delivery"
	TripTypeOther     TripType = "other"
)

// KnownTripTypes lists the recognised event categories. Unrecognised values
// pass through ingestion and simply behave as their own category downstream.
var KnownTripTypes = []TripType{
	TripTypePunchIn,
	TripTypePunchOut,
	TripTypeStartTrip,
	TripTypeEndTrip,
	TripTypePickup,
	TripTypeDelivery,
	TripTypeOther,
}

// TripRecord is one event for a technician. Coordinates are independently
// nullable; latitude must fall in [-90, 90] and longitude in [-180, 180]
// when present. Only the duplicate flag mutates after creation.
type TripRecord struct {
	ID           int64      `db:"id" json:"id"`
	TechnicianID string     `db:"technician_id" json:"technician_id"`
	TripType     string     `db:"trip_type" json:"trip_type"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    *time.Time `db:"updated_at" json:"updated_at,omitempty"`
	Location     *string    `db:"location" json:"location,omitempty"`
	Latitude     *float64   `db:"latitude" json:"latitude,omitempty"`
	Longitude    *float64   `db:"longitude" json:"longitude,omitempty"`
	Duplicate    bool       `db:"duplicate" json:"duplicate"`
}

// HasCoordinates reports whether both latitude and longitude are present.
func (r *TripRecord) HasCoordinates() bool {
	return r.Latitude != nil && r.Longitude != nil
}
