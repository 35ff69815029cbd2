package service

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"html/template"
	"os"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tripwatch/tripwatch-api/internal/dto"
	"github.com/tripwatch/tripwatch-api/internal/models"
	appErrors "github.com/tripwatch/tripwatch-api/pkg/errors"
	"github.com/tripwatch/tripwatch-api/pkg/render"
)

// degradedNote is appended to the HTML body when every PDF backend failed
// and the report is delivered as HTML instead.
const degradedNote = "PDF generation was unavailable; this report was delivered as HTML."

// ReportTripRepository lists a technician's records for report assembly.
type ReportTripRepository interface {
	ListByTechnician(ctx context.Context, technicianID string) ([]models.TripRecord, error)
}

// ReportTechnicianRepository resolves technicians for reports.
type ReportTechnicianRepository interface {
	FindByID(ctx context.Context, id string) (*models.Technician, error)
}

// ReportDistanceRepository reads stored distance summaries.
type ReportDistanceRepository interface {
	FindByTechnician(ctx context.Context, technicianID string) (*models.DistanceSummary, error)
}

// ReportRepository persists report rows.
type ReportRepository interface {
	Create(ctx context.Context, report *models.Report) error
	FindByID(ctx context.Context, id string) (*models.Report, error)
	ListByBatch(ctx context.Context, batchID string) ([]models.Report, error)
	ListByTechnician(ctx context.Context, technicianID string) ([]models.Report, error)
	Delete(ctx context.Context, id string) error
}

// ReportStore persists rendered report files.
type ReportStore interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
}

// DocumentRenderer turns a document into PDF bytes, reporting which backend
// produced them.
type DocumentRenderer interface {
	Render(ctx context.Context, doc render.Document) ([]byte, string, error)
}

// reportContext is everything the report template needs.
type reportContext struct {
	TechnicianNumber int64
	GeneratedAt      string
	TotalRecords     int
	DuplicateCount   int
	PunchInCount     int
	PunchOutCount    int
	DateRange        *dto.DateRange
	Distribution     []dto.TripTypeShare
	Punch            *dto.PunchAnalysis
	Distance         *dto.TechnicianDistanceSummary
	Records          []dto.TripRow
	Note             string
}

// ReportService assembles per-technician activity reports and renders them
// to PDF, degrading to HTML when no PDF backend is available.
type ReportService struct {
	trips       ReportTripRepository
	technicians ReportTechnicianRepository
	distances   ReportDistanceRepository
	reports     ReportRepository
	store       ReportStore
	renderer    DocumentRenderer
	metrics     *MetricsService
	logger      *zap.Logger
	tmpl        *template.Template
}

// NewReportService constructs a ReportService.
func NewReportService(trips ReportTripRepository, technicians ReportTechnicianRepository, distances ReportDistanceRepository, reports ReportRepository, store ReportStore, renderer DocumentRenderer, metrics *MetricsService, logger *zap.Logger) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportService{
		trips:       trips,
		technicians: technicians,
		distances:   distances,
		reports:     reports,
		store:       store,
		renderer:    renderer,
		metrics:     metrics,
		logger:      logger,
		tmpl:        template.Must(template.New("report").Parse(reportTemplate)),
	}
}

// Generate builds and stores a report for one technician. A technician with
// no records is a soft failure so callers can tell "nothing to report" apart
// from a rendering problem.
func (s *ReportService) Generate(ctx context.Context, technicianID string, format models.ReportFormat) (*dto.ReportResponse, error) {
	technician, err := s.technicians.FindByID(ctx, technicianID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, fmt.Errorf("find technician: %w", err)
	}

	rc, err := s.buildContext(ctx, technician)
	if err != nil {
		return nil, err
	}

	report := &models.Report{
		ID:           uuid.NewString(),
		TechnicianID: technicianID,
		Format:       format,
	}

	var payload []byte
	var message string
	switch format {
	case models.ReportFormatPDF:
		payload, report.Format, message, err = s.renderPDF(ctx, rc)
		if err != nil {
			return nil, err
		}
	case models.ReportFormatHTML:
		html, err := s.renderHTML(rc)
		if err != nil {
			return nil, err
		}
		payload = html
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported report format %q", format))
	}

	report.Filename = fmt.Sprintf("technician_%d_report_%s.%s", technician.TechnicianID, report.ID[:8], report.Format)
	if _, err := s.store.Save(report.Filename, payload); err != nil {
		return nil, fmt.Errorf("store report: %w", err)
	}
	if err := s.reports.Create(ctx, report); err != nil {
		_ = s.store.Delete(report.Filename)
		return nil, fmt.Errorf("create report: %w", err)
	}

	s.logger.Info("report generated",
		zap.String("report_id", report.ID),
		zap.Int64("technician", technician.TechnicianID),
		zap.String("format", string(report.Format)))

	return &dto.ReportResponse{
		ID:           report.ID,
		TechnicianID: technician.TechnicianID,
		Format:       string(report.Format),
		Filename:     report.Filename,
		CreatedAt:    report.CreatedAt.Format(dto.DisplayTimeLayout),
		Message:      message,
	}, nil
}

// renderPDF walks the backend chain. When every backend fails the report is
// delivered as HTML with an explanatory note, not an error.
func (s *ReportService) renderPDF(ctx context.Context, rc *reportContext) ([]byte, models.ReportFormat, string, error) {
	html, err := s.renderHTML(rc)
	if err != nil {
		return nil, "", "", err
	}

	doc := render.Document{
		Title: fmt.Sprintf("Technician %d Activity Report", rc.TechnicianNumber),
		HTML:  string(html),
		Lines: s.digestLines(rc),
	}
	payload, backend, err := s.renderer.Render(ctx, doc)
	if err != nil {
		s.logger.Warn("pdf rendering degraded to html", zap.Error(err))
		rc.Note = degradedNote
		html, err := s.renderHTML(rc)
		if err != nil {
			return nil, "", "", err
		}
		return html, models.ReportFormatHTML, degradedNote, nil
	}

	if s.metrics != nil {
		s.metrics.RecordReportRendered(backend)
	}
	return payload, models.ReportFormatPDF, "", nil
}

func (s *ReportService) renderHTML(rc *reportContext) ([]byte, error) {
	var buf bytes.Buffer
	if err := s.tmpl.Execute(&buf, rc); err != nil {
		return nil, fmt.Errorf("execute report template: %w", err)
	}
	return buf.Bytes(), nil
}

// buildContext gathers every section of the report in one pass over the
// technician's records.
func (s *ReportService) buildContext(ctx context.Context, technician *models.Technician) (*reportContext, error) {
	records, err := s.trips.ListByTechnician(ctx, technician.ID)
	if err != nil {
		return nil, err
	}

	// The report covers non-duplicate records only. Flagged duplicates
	// contribute a count, nothing else.
	active := make([]models.TripRecord, 0, len(records))
	for _, record := range records {
		if !record.Duplicate {
			active = append(active, record)
		}
	}
	if len(active) == 0 {
		return nil, appErrors.Clone(appErrors.ErrNoData, fmt.Sprintf("technician %d has no trip records", technician.TechnicianID))
	}

	rc := &reportContext{
		TechnicianNumber: technician.TechnicianID,
		GeneratedAt:      time.Now().UTC().Format(dto.DisplayTimeLayout),
		TotalRecords:     len(active),
		DuplicateCount:   len(records) - len(active),
	}

	counts := map[string]int{}
	var punchIns, punchOuts []models.TripRecord
	for _, record := range active {
		rc.Records = append(rc.Records, dto.NewTripRow(models.TripRecordDetail{TripRecord: record, TechnicianNumber: technician.TechnicianID}))
		counts[record.TripType]++
		switch record.TripType {
		case string(models.TripTypePunchIn):
			punchIns = append(punchIns, record)
		case string(models.TripTypePunchOut):
			punchOuts = append(punchOuts, record)
		}
	}
	rc.PunchInCount = len(punchIns)
	rc.PunchOutCount = len(punchOuts)

	if len(active) > 0 {
		rc.DateRange = &dto.DateRange{
			Start: active[0].CreatedAt.Format(dto.DisplayTimeLayout),
			End:   active[len(active)-1].CreatedAt.Format(dto.DisplayTimeLayout),
		}
	}

	activeTotal := len(active)
	for tripType, count := range counts {
		share := dto.TripTypeShare{TripType: tripType, Count: count}
		if activeTotal > 0 {
			share.Percentage = roundPercent(float64(count) * 100 / float64(activeTotal))
		}
		rc.Distribution = append(rc.Distribution, share)
	}
	sortShares(rc.Distribution)

	rc.Punch = pairPunches(punchIns, punchOuts)

	rc.Distance = &dto.TechnicianDistanceSummary{TechnicianID: technician.TechnicianID}
	summary, err := s.distances.FindByTechnician(ctx, technician.ID)
	if err == nil {
		rc.Distance.TotalDistance = summary.TotalDistance
		rc.Distance.PointCount = summary.PointCount
		if summary.PointCount > 1 {
			rc.Distance.AvgDistance = roundKm(summary.TotalDistance / float64(summary.PointCount-1))
		}
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	return rc, nil
}

// digestLines is the plain-text rendition used by the table-based fallback
// backend.
func (s *ReportService) digestLines(rc *reportContext) []string {
	lines := []string{
		fmt.Sprintf("Technician: %d", rc.TechnicianNumber),
		fmt.Sprintf("Generated: %s", rc.GeneratedAt),
		"",
		fmt.Sprintf("Total records: %d (duplicates excluded: %d)", rc.TotalRecords, rc.DuplicateCount),
		fmt.Sprintf("Punch-ins: %d, punch-outs: %d", rc.PunchInCount, rc.PunchOutCount),
	}
	if rc.DateRange != nil {
		lines = append(lines, fmt.Sprintf("Period: %s to %s", rc.DateRange.Start, rc.DateRange.End))
	}
	lines = append(lines, "", "Event distribution:")
	for _, share := range rc.Distribution {
		lines = append(lines, fmt.Sprintf("  %s: %d (%.2f%%)", share.TripType, share.Count, share.Percentage))
	}
	if rc.Punch != nil && rc.Punch.Stats.TotalPairs > 0 {
		lines = append(lines, "",
			fmt.Sprintf("Matched shifts: %d, total %.2f h, average %.2f h", rc.Punch.Stats.TotalPairs, rc.Punch.Stats.TotalHours, rc.Punch.Stats.AvgDuration))
	}
	if rc.Distance != nil {
		lines = append(lines, "",
			fmt.Sprintf("Distance travelled: %.2f km over %d points", rc.Distance.TotalDistance, rc.Distance.PointCount))
	}
	return lines
}

// Download resolves a stored report and opens its file.
func (s *ReportService) Download(ctx context.Context, reportID string) (*models.Report, *os.File, error) {
	report, err := s.reports.FindByID(ctx, reportID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.ErrNotFound
		}
		return nil, nil, fmt.Errorf("find report: %w", err)
	}
	file, err := s.store.Open(report.Filename)
	if err != nil {
		return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "report file missing")
	}
	return report, file, nil
}

// ListByBatch returns all reports generated for a batch's technicians.
func (s *ReportService) ListByBatch(ctx context.Context, batchID string) ([]models.Report, error) {
	return s.reports.ListByBatch(ctx, batchID)
}

// ListByTechnician returns one technician's reports.
func (s *ReportService) ListByTechnician(ctx context.Context, technicianID string) ([]models.Report, error) {
	return s.reports.ListByTechnician(ctx, technicianID)
}

// Delete removes a report row together with its stored file.
func (s *ReportService) Delete(ctx context.Context, reportID string) error {
	report, err := s.reports.FindByID(ctx, reportID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.ErrNotFound
		}
		return fmt.Errorf("find report: %w", err)
	}
	if err := s.reports.Delete(ctx, reportID); err != nil {
		return err
	}
	if err := s.store.Delete(report.Filename); err != nil {
		s.logger.Warn("delete report file", zap.String("filename", report.Filename), zap.Error(err))
	}
	return nil
}

func sortShares(shares []dto.TripTypeShare) {
	sort.Slice(shares, func(i, j int) bool {
		if shares[i].Count != shares[j].Count {
			return shares[i].Count > shares[j].Count
		}
		return shares[i].TripType < shares[j].TripType
	})
}

const reportTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Technician {{.TechnicianNumber}} Activity Report</title>
<style>
body { font-family: Helvetica, Arial, sans-serif; margin: 2em; color: #222; }
h1 { font-size: 1.4em; border-bottom: 2px solid #444; padding-bottom: 0.3em; }
h2 { font-size: 1.1em; margin-top: 1.5em; }
table { border-collapse: collapse; width: 100%; margin-top: 0.5em; }
th, td { border: 1px solid #ccc; padding: 4px 8px; font-size: 0.85em; text-align: left; }
th { background: #f0f0f0; }
.meta { color: #666; font-size: 0.85em; }
.note { background: #fff3cd; border: 1px solid #ffe69c; padding: 8px; margin-top: 1em; }
</style>
</head>
<body>
<h1>Technician {{.TechnicianNumber}} Activity Report</h1>
<p class="meta">Generated {{.GeneratedAt}}</p>
{{if .Note}}<p class="note">{{.Note}}</p>{{end}}

<h2>Summary</h2>
<table>
<tr><th>Total records</th><td>{{.TotalRecords}}</td></tr>
<tr><th>Duplicates flagged</th><td>{{.DuplicateCount}}</td></tr>
<tr><th>Punch-ins</th><td>{{.PunchInCount}}</td></tr>
<tr><th>Punch-outs</th><td>{{.PunchOutCount}}</td></tr>
{{if .DateRange}}<tr><th>Period</th><td>{{.DateRange.Start}} to {{.DateRange.End}}</td></tr>{{end}}
</table>

<h2>Event distribution</h2>
<table>
<tr><th>Event</th><th>Count</th><th>Share</th></tr>
{{range .Distribution}}<tr><td>{{.TripType}}</td><td>{{.Count}}</td><td>{{printf "%.2f" .Percentage}}%</td></tr>
{{end}}</table>

{{if .Punch.Pairs}}
<h2>Matched shifts</h2>
<table>
<tr><th>Date</th><th>Punch in</th><th>Punch out</th><th>Hours</th></tr>
{{range .Punch.Pairs}}<tr><td>{{.Date}}</td><td>{{.PunchIn}}</td><td>{{.PunchOut}}</td><td>{{printf "%.2f" .DurationHours}}</td></tr>
{{end}}</table>
<p class="meta">Total {{printf "%.2f" .Punch.Stats.TotalHours}} h across {{.Punch.Stats.TotalPairs}} shifts, average {{printf "%.2f" .Punch.Stats.AvgDuration}} h.</p>
{{end}}

{{if .Distance}}
<h2>Travel distance</h2>
<table>
<tr><th>Total distance</th><td>{{printf "%.2f" .Distance.TotalDistance}} km</td></tr>
<tr><th>Geotagged points</th><td>{{.Distance.PointCount}}</td></tr>
<tr><th>Average leg</th><td>{{printf "%.2f" .Distance.AvgDistance}} km</td></tr>
</table>
{{end}}

<h2>Records</h2>
<table>
<tr><th>Time</th><th>Event</th><th>Location</th><th>Latitude</th><th>Longitude</th></tr>
{{range .Records}}<tr><td>{{.CreatedAt}}</td><td>{{.TripType}}</td><td>{{.Location}}</td><td>{{.Latitude}}</td><td>{{.Longitude}}</td></tr>
{{end}}</table>
</body>
</html>`
