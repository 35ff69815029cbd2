package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/tripwatch/tripwatch-api/internal/dto"
	"github.com/tripwatch/tripwatch-api/internal/models"
	appErrors "github.com/tripwatch/tripwatch-api/pkg/errors"
)

// AnalyticsTripRepository describes trip persistence required by AnalyticsService.
type AnalyticsTripRepository interface {
	CountActiveByType(ctx context.Context, batchID, technicianID string) ([]models.TripTypeTally, error)
	CountDuplicatesByType(ctx context.Context, batchID, technicianID string) ([]models.TripTypeTally, error)
	CountByBatch(ctx context.Context, batchID, technicianID string, duplicatesOnly bool) (int, error)
	ListActivePunches(ctx context.Context, batchID, technicianID string, tripType models.TripType) ([]models.TripRecord, error)
	ListActiveByTechnician(ctx context.Context, technicianID string) ([]models.TripRecord, error)
	ListDuplicatesPage(ctx context.Context, batchID, technicianID string, page, pageSize int) ([]models.TripRecordDetail, int, error)
}

// AnalyticsTechnicianRepository resolves technicians for analytics queries.
type AnalyticsTechnicianRepository interface {
	FindByID(ctx context.Context, id string) (*models.Technician, error)
	FindByNumber(ctx context.Context, batchID string, technicianID int64) (*models.Technician, error)
}

// AnalyticsService answers aggregate questions about a batch: event
// distribution, punch behaviour and duplicate makeup. Read results are cache
// backed when a cache service is wired.
type AnalyticsService struct {
	trips       AnalyticsTripRepository
	technicians AnalyticsTechnicianRepository
	cache       *CacheService
	logger      *zap.Logger
}

// NewAnalyticsService constructs an analytics service.
func NewAnalyticsService(trips AnalyticsTripRepository, technicians AnalyticsTechnicianRepository, cache *CacheService, logger *zap.Logger) *AnalyticsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnalyticsService{trips: trips, technicians: technicians, cache: cache, logger: logger}
}

// TripTypeDistribution returns per-category counts with their percentage of
// the total. An empty batch yields zero percentages, never a division error.
func (s *AnalyticsService) TripTypeDistribution(ctx context.Context, batchID, technicianID string) ([]dto.TripTypeShare, error) {
	cacheKey := analyticsCacheKey(batchID, "distribution", technicianID)
	var cached []dto.TripTypeShare
	if hit, err := s.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
		return cached, nil
	}

	tallies, err := s.trips.CountActiveByType(ctx, batchID, technicianID)
	if err != nil {
		return nil, err
	}

	total := 0
	for _, tally := range tallies {
		total += tally.Count
	}

	shares := make([]dto.TripTypeShare, 0, len(tallies))
	for _, tally := range tallies {
		share := dto.TripTypeShare{TripType: tally.TripType, Count: tally.Count}
		if total > 0 {
			share.Percentage = roundPercent(float64(tally.Count) * 100 / float64(total))
		}
		shares = append(shares, share)
	}

	s.cacheSet(ctx, cacheKey, shares)
	return shares, nil
}

// PunchHourHistogram buckets punch-ins by hour of day. All 24 buckets are
// always present so charts have a stable x axis.
func (s *AnalyticsService) PunchHourHistogram(ctx context.Context, batchID, technicianID string) ([]dto.PunchHourBucket, error) {
	cacheKey := analyticsCacheKey(batchID, "punch-hours", technicianID)
	var cached []dto.PunchHourBucket
	if hit, err := s.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
		return cached, nil
	}

	punches, err := s.trips.ListActivePunches(ctx, batchID, technicianID, models.TripTypePunchIn)
	if err != nil {
		return nil, err
	}

	buckets := make([]dto.PunchHourBucket, 24)
	for hour := range buckets {
		buckets[hour] = dto.PunchHourBucket{Hour: hour, Label: fmt.Sprintf("%d:00", hour)}
	}
	for _, punch := range punches {
		buckets[punch.CreatedAt.Hour()].Count++
	}

	s.cacheSet(ctx, cacheKey, buckets)
	return buckets, nil
}

// PunchPairing matches punch-ins to punch-outs per calendar date. Each
// punch-in consumes the first later punch-out of the same date that no
// earlier punch-in claimed; unmatched punches are simply left out.
func (s *AnalyticsService) PunchPairing(ctx context.Context, batchID, technicianID string) (*dto.PunchAnalysis, error) {
	cacheKey := analyticsCacheKey(batchID, "punch-pairs", technicianID)
	var cached dto.PunchAnalysis
	if hit, err := s.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
		return &cached, nil
	}

	punchIns, err := s.trips.ListActivePunches(ctx, batchID, technicianID, models.TripTypePunchIn)
	if err != nil {
		return nil, err
	}
	punchOuts, err := s.trips.ListActivePunches(ctx, batchID, technicianID, models.TripTypePunchOut)
	if err != nil {
		return nil, err
	}

	analysis := pairPunches(punchIns, punchOuts)
	s.cacheSet(ctx, cacheKey, analysis)
	return analysis, nil
}

// pairPunches implements the greedy same-date matching. Both inputs arrive
// time-ordered. Pairing is scoped per technician so punches of different
// people never match.
func pairPunches(punchIns, punchOuts []models.TripRecord) *dto.PunchAnalysis {
	type punchKey struct {
		technician string
		date       string
	}
	outsByKey := make(map[punchKey][]models.TripRecord)
	for _, out := range punchOuts {
		key := punchKey{out.TechnicianID, out.CreatedAt.Format("2006-01-02")}
		outsByKey[key] = append(outsByKey[key], out)
	}

	analysis := &dto.PunchAnalysis{Pairs: []dto.PunchPair{}}
	consumed := make(map[punchKey]int)
	for _, in := range punchIns {
		key := punchKey{in.TechnicianID, in.CreatedAt.Format("2006-01-02")}
		outs := outsByKey[key]
		idx := consumed[key]
		for idx < len(outs) && !outs[idx].CreatedAt.After(in.CreatedAt) {
			idx++
		}
		if idx >= len(outs) {
			consumed[key] = idx
			continue
		}
		out := outs[idx]
		consumed[key] = idx + 1

		duration := out.CreatedAt.Sub(in.CreatedAt).Hours()
		analysis.Pairs = append(analysis.Pairs, dto.PunchPair{
			Date:          key.date,
			PunchIn:       in.CreatedAt.Format(dto.DisplayTimeLayout),
			PunchOut:      out.CreatedAt.Format(dto.DisplayTimeLayout),
			DurationHours: roundHours(duration),
		})
	}

	stats := &analysis.Stats
	stats.TotalPairs = len(analysis.Pairs)
	if stats.TotalPairs == 0 {
		return analysis
	}
	stats.MinDuration = analysis.Pairs[0].DurationHours
	for _, pair := range analysis.Pairs {
		stats.TotalHours += pair.DurationHours
		if pair.DurationHours > stats.MaxDuration {
			stats.MaxDuration = pair.DurationHours
		}
		if pair.DurationHours < stats.MinDuration {
			stats.MinDuration = pair.DurationHours
		}
	}
	stats.TotalHours = roundHours(stats.TotalHours)
	stats.AvgDuration = roundHours(stats.TotalHours / float64(stats.TotalPairs))
	return analysis
}

// TechnicianSummary returns the headline view of one technician.
func (s *AnalyticsService) TechnicianSummary(ctx context.Context, technicianID string) (*dto.TechnicianSummary, error) {
	technician, err := s.findTechnician(ctx, technicianID)
	if err != nil {
		return nil, err
	}

	records, err := s.trips.ListActiveByTechnician(ctx, technicianID)
	if err != nil {
		return nil, err
	}

	summary := &dto.TechnicianSummary{
		TechnicianID: technician.TechnicianID,
		TotalRecords: len(records),
	}

	counts := map[string]int{}
	for _, record := range records {
		counts[record.TripType]++
	}
	summary.PunchInCount = counts[string(models.TripTypePunchIn)]
	summary.PunchOutCount = counts[string(models.TripTypePunchOut)]

	types := make([]string, 0, len(counts))
	for tripType := range counts {
		types = append(types, tripType)
	}
	sort.Slice(types, func(i, j int) bool {
		if counts[types[i]] != counts[types[j]] {
			return counts[types[i]] > counts[types[j]]
		}
		return types[i] < types[j]
	})
	summary.TripTypes = make([]dto.TripTypeTally, 0, len(types))
	for _, tripType := range types {
		summary.TripTypes = append(summary.TripTypes, dto.TripTypeTally{TripType: tripType, Count: counts[tripType]})
	}

	if len(records) > 0 {
		summary.DateRange = &dto.DateRange{
			Start: records[0].CreatedAt.Format(dto.DisplayTimeLayout),
			End:   records[len(records)-1].CreatedAt.Format(dto.DisplayTimeLayout),
		}
	}
	return summary, nil
}

// DailyPunchLog groups a technician's raw punch times by calendar date.
func (s *AnalyticsService) DailyPunchLog(ctx context.Context, technicianID string) ([]dto.DailyPunchLog, error) {
	if _, err := s.findTechnician(ctx, technicianID); err != nil {
		return nil, err
	}

	records, err := s.trips.ListActiveByTechnician(ctx, technicianID)
	if err != nil {
		return nil, err
	}

	byDate := map[string]*dto.DailyPunchLog{}
	var dates []string
	for _, record := range records {
		if record.TripType != string(models.TripTypePunchIn) && record.TripType != string(models.TripTypePunchOut) {
			continue
		}
		date := record.CreatedAt.Format("2006-01-02")
		entry, ok := byDate[date]
		if !ok {
			entry = &dto.DailyPunchLog{Date: date}
			byDate[date] = entry
			dates = append(dates, date)
		}
		clock := record.CreatedAt.Format("15:04:05")
		if record.TripType == string(models.TripTypePunchIn) {
			entry.PunchInTimes = append(entry.PunchInTimes, clock)
		} else {
			entry.PunchOutTimes = append(entry.PunchOutTimes, clock)
		}
	}

	logs := make([]dto.DailyPunchLog, 0, len(dates))
	for _, date := range dates {
		logs = append(logs, *byDate[date])
	}
	return logs, nil
}

// Timeline returns a technician's records formatted for chronological display.
func (s *AnalyticsService) Timeline(ctx context.Context, technicianID string) ([]dto.TimelineEvent, error) {
	if _, err := s.findTechnician(ctx, technicianID); err != nil {
		return nil, err
	}

	records, err := s.trips.ListActiveByTechnician(ctx, technicianID)
	if err != nil {
		return nil, err
	}

	events := make([]dto.TimelineEvent, 0, len(records))
	for _, record := range records {
		event := dto.TimelineEvent{
			ID:        record.ID,
			TripType:  record.TripType,
			CreatedAt: record.CreatedAt.Format(dto.DisplayTimeLayout),
		}
		if record.Location != nil {
			event.Location = *record.Location
		}
		if record.HasCoordinates() {
			event.Coordinates = dto.FormatCoordinate(record.Latitude) + ", " + dto.FormatCoordinate(record.Longitude)
		}
		events = append(events, event)
	}
	return events, nil
}

// DuplicateSummary describes how many records of a batch were flagged and
// what categories they fall into.
func (s *AnalyticsService) DuplicateSummary(ctx context.Context, batchID, technicianID string) (*dto.DuplicateSummary, error) {
	total, err := s.trips.CountByBatch(ctx, batchID, technicianID, false)
	if err != nil {
		return nil, err
	}
	duplicates, err := s.trips.CountByBatch(ctx, batchID, technicianID, true)
	if err != nil {
		return nil, err
	}
	tallies, err := s.trips.CountDuplicatesByType(ctx, batchID, technicianID)
	if err != nil {
		return nil, err
	}

	summary := &dto.DuplicateSummary{
		TotalRecords:   total,
		DuplicateCount: duplicates,
		TripTypes:      []dto.TripTypeTally{},
	}
	if total > 0 {
		summary.DuplicatePercent = roundPercent(float64(duplicates) * 100 / float64(total))
	}
	for _, tally := range tallies {
		summary.TripTypes = append(summary.TripTypes, dto.TripTypeTally{TripType: tally.TripType, Count: tally.Count})
	}
	return summary, nil
}

// DuplicateRecords returns one page of flagged records for review.
func (s *AnalyticsService) DuplicateRecords(ctx context.Context, batchID, technicianID string, page, pageSize int) (*dto.DuplicateRecordsPage, error) {
	records, total, err := s.trips.ListDuplicatesPage(ctx, batchID, technicianID, page, pageSize)
	if err != nil {
		return nil, err
	}
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}

	out := &dto.DuplicateRecordsPage{
		Records:    []dto.TripRow{},
		TotalCount: total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: (total + pageSize - 1) / pageSize,
	}
	for _, record := range records {
		out.Records = append(out.Records, dto.NewTripRow(record))
	}
	return out, nil
}

// ResolveTechnician maps a batch-scoped sheet number to the stored technician.
func (s *AnalyticsService) ResolveTechnician(ctx context.Context, batchID string, number int64) (*models.Technician, error) {
	technician, err := s.technicians.FindByNumber(ctx, batchID, number)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, fmt.Errorf("find technician %d: %w", number, err)
	}
	return technician, nil
}

func (s *AnalyticsService) findTechnician(ctx context.Context, technicianID string) (*models.Technician, error) {
	technician, err := s.technicians.FindByID(ctx, technicianID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, fmt.Errorf("find technician: %w", err)
	}
	return technician, nil
}

func (s *AnalyticsService) cacheSet(ctx context.Context, key string, value interface{}) {
	if err := s.cache.Set(ctx, key, value, 0); err != nil {
		s.logger.Warn("cache analytics", zap.String("key", key), zap.Error(err))
	}
}

func analyticsCacheKey(batchID, view, technicianID string) string {
	if technicianID == "" {
		technicianID = "all"
	}
	return fmt.Sprintf("tripwatch:batch:%s:%s:%s", batchID, view, technicianID)
}

func roundPercent(v float64) float64 {
	return math.Round(v*100) / 100
}

func roundHours(v float64) float64 {
	return math.Round(v*100) / 100
}
