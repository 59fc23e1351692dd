package activity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"petwatch/internal/config"
	"petwatch/internal/dto"
	"petwatch/internal/logger"
	"petwatch/internal/model"
	"petwatch/internal/repository"
	"petwatch/internal/service/storage"
	"petwatch/internal/timeutil"
)

const (
	defaultActiveHour = 18
	recentDays        = 7
	maxHighlights     = 5
	highlightScan     = 10
	defaultMaxSpan    = 31 * 24 * time.Hour
)

// Shedding levels reported as abnormal behavior.
const (
	SheddingNone   = "none"
	SheddingLow    = "low"
	SheddingMedium = "medium"
	SheddingHigh   = "high"
)

// Service runs the aggregator against the detection source and persists buckets.
type Service struct {
	detections repository.DetectionRepository
	activity   repository.ActivityRepository
	blobs      storage.BlobStore
	clock      timeutil.Clock
	logger     *logger.Logger

	width      time.Duration
	maxSpan    time.Duration
	loc        *time.Location
	presignTTL time.Duration
}

// NewService creates an activity Service.
func NewService(cfg *config.Config, detections repository.DetectionRepository, activity repository.ActivityRepository, blobs storage.BlobStore, clock timeutil.Clock, logger *logger.Logger) *Service {
	maxSpan := cfg.ActivityMaxSpan
	if maxSpan <= 0 {
		maxSpan = defaultMaxSpan
	}

	return &Service{
		detections: detections,
		activity:   activity,
		blobs:      blobs,
		clock:      clock,
		logger:     logger,
		width:      cfg.BucketWidth,
		maxSpan:    maxSpan,
		loc:        cfg.Location(),
		presignTTL: cfg.PresignTTL,
	}
}

// Width returns the bucket width this service aggregates with.
func (s *Service) Width() time.Duration {
	return s.width
}

// ProcessInterval aggregates [start, end) for one device and upserts every bucket,
// including zero buckets.
func (s *Service) ProcessInterval(ctx context.Context, deviceID string, start, end time.Time) ([]model.ActivityBucket, error) {
	if end.Before(start) {
		return nil, fmt.Errorf("%s..%s: %w", start, end, ErrInvalidRange)
	}
	if end.Sub(start) > s.maxSpan {
		s.logger.Warning("Activity %s: window %s..%s exceeds %s, keeping the most recent part", deviceID, start, end, s.maxSpan)
		start = end.Add(-s.maxSpan)
	}

	records, err := s.detections.QueryRange(ctx, deviceID, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query detections for %s: %w", deviceID, err)
	}

	buckets := ComputeActivity(deviceID, records, s.width, Range{Start: start, End: end}, s.clock.Now(), s.loc)
	if err := s.activity.UpsertBatch(ctx, buckets); err != nil {
		return nil, err
	}

	s.logger.Info("Activity %s %s: %d records, %d buckets", deviceID, model.FormatTimestamp(start, s.loc), len(records), len(buckets))
	return buckets, nil
}

// ProcessAll aggregates the full detection history of a device.
func (s *Service) ProcessAll(ctx context.Context, deviceID string) ([]model.ActivityBucket, error) {
	records, err := s.detections.QueryAll(ctx, deviceID)
	if err != nil {
		return nil, fmt.Errorf("failed to query detections for %s: %w", deviceID, err)
	}

	if len(records) == 0 {
		s.logger.Warning("No detection records for %s", deviceID)
	}

	var r Range
	if first, last, ok := TimeSpan(records); ok && last.Sub(first) > s.maxSpan {
		r.Start = last.Add(time.Nanosecond - s.maxSpan)
		s.logger.Warning("Activity %s: history %s..%s exceeds %s, starting at %s", deviceID, first, last, s.maxSpan, r.Start)
	}

	buckets := ComputeActivity(deviceID, records, s.width, r, s.clock.Now(), s.loc)
	if err := s.activity.UpsertBatch(ctx, buckets); err != nil {
		return nil, err
	}

	s.logger.Info("Activity %s (all): %d records, %d buckets", deviceID, len(records), len(buckets))
	return buckets, nil
}

// Summary builds the daily activity report for date (YYYYMMDD).
func (s *Service) Summary(ctx context.Context, deviceID, date string) (*dto.ActivitySummary, error) {
	day, err := time.ParseInLocation(model.DateLayout, date, s.loc)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q: %w", date, err)
	}

	buckets, err := s.activity.GetByDate(ctx, deviceID, date)
	if err != nil {
		return nil, err
	}

	hourly := HourlyAverages(buckets)
	hour := MostActiveHour(hourly)

	recent, err := s.recentDays(ctx, deviceID, day)
	if err != nil {
		return nil, err
	}

	highlights, err := s.highlights(ctx, deviceID, date)
	if err != nil {
		return nil, err
	}

	shedding := SheddingNone
	scores, err := s.detections.SheddingScores(ctx, deviceID, date)
	if err != nil {
		s.logger.Error("Shedding scores for %s on %s: %v", deviceID, date, err)
	} else {
		shedding = SheddingLevel(scores)
	}

	return &dto.ActivitySummary{
		DeviceSerial:   deviceID,
		Date:           date,
		Buckets:        buckets,
		TimeOfActivity: hourly,
		MostActive:     dto.HourRange{Start: hour, End: hour + 1},
		RecentDays:     recent,
		Highlights:     highlights,
		Abnormal:       shedding,
	}, nil
}

// SheddingLevel classifies the most frequent score, compared at two
// decimals: <= 0.33 low, <= 0.67 medium, above that high. Ties go to the
// value seen first. No scores yields SheddingNone.
func SheddingLevel(scores []float64) string {
	if len(scores) == 0 {
		return SheddingNone
	}

	counts := make(map[float64]int, len(scores))
	var order []float64
	for _, v := range scores {
		v = round2(v)
		if counts[v] == 0 {
			order = append(order, v)
		}
		counts[v]++
	}

	mode := order[0]
	for _, v := range order[1:] {
		if counts[v] > counts[mode] {
			mode = v
		}
	}

	switch {
	case mode <= 0.33:
		return SheddingLow
	case mode <= 0.67:
		return SheddingMedium
	default:
		return SheddingHigh
	}
}

// HourlyAverages averages bucket values per hour; hours without data are omitted.
func HourlyAverages(buckets []model.ActivityBucket) []dto.HourlyActivity {
	var totals [24]float64
	var counts [24]int
	for _, b := range buckets {
		h := b.Hour()
		if h < 0 {
			continue
		}
		totals[h] += b.Active
		counts[h]++
	}

	result := []dto.HourlyActivity{}
	for h := 0; h < 24; h++ {
		if counts[h] == 0 {
			continue
		}
		result = append(result, dto.HourlyActivity{Hour: h, Value: round2(totals[h] / float64(counts[h]))})
	}
	return result
}

// MostActiveHour returns the hour with the highest average, earliest on ties.
func MostActiveHour(hourly []dto.HourlyActivity) int {
	if len(hourly) == 0 {
		return defaultActiveHour
	}
	best := hourly[0]
	for _, h := range hourly[1:] {
		if h.Value > best.Value {
			best = h
		}
	}
	return best.Hour
}

func (s *Service) recentDays(ctx context.Context, deviceID string, day time.Time) ([]dto.DailyActivity, error) {
	// Newest first.
	dates := make([]string, recentDays)
	for i := range dates {
		dates[i] = day.AddDate(0, 0, -i).Format(model.DateLayout)
	}

	buckets, err := s.activity.GetByDates(ctx, deviceID, dates)
	if err != nil {
		return nil, err
	}

	totals := map[string]float64{}
	counts := map[string]int{}
	for _, b := range buckets {
		totals[b.Date] += b.Active
		counts[b.Date]++
	}

	result := make([]dto.DailyActivity, 0, len(dates))
	for _, d := range dates {
		v := 0.0
		if counts[d] > 0 {
			v = round2(totals[d] / float64(counts[d]))
		}
		result = append(result, dto.DailyActivity{Day: d[4:6] + "." + d[6:8], Value: v})
	}
	return result, nil
}

func (s *Service) highlights(ctx context.Context, deviceID, date string) ([]string, error) {
	top, err := s.activity.TopByDate(ctx, deviceID, date, highlightScan)
	if err != nil {
		return nil, err
	}

	urls := []string{}
	for _, b := range top {
		if len(urls) >= maxHighlights {
			break
		}
		if b.Active <= 0 {
			continue
		}

		url, err := s.blobs.PresignedURL(ctx, model.HighlightKey(b), s.presignTTL)
		if errors.Is(err, storage.ErrObjectNotFound) {
			continue
		}
		if err != nil {
			s.logger.Error("Highlight URL for %s failed: %v", model.HighlightKey(b), err)
			continue
		}
		urls = append(urls, url)
	}
	return urls, nil
}
