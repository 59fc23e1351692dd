package activity

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"petwatch/internal/config"
	"petwatch/internal/logger"
	"petwatch/internal/model"
	"petwatch/internal/service/storage"
	"petwatch/internal/timeutil"
)

type fakeDetections struct {
	records  []model.DetectionRecord
	scores   []float64
	scoreErr error
	err      error
}

func (f *fakeDetections) QueryRange(_ context.Context, _ string, start, end time.Time) ([]model.DetectionRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []model.DetectionRecord
	for _, r := range f.records {
		if !r.Timestamp.Before(start) && r.Timestamp.Before(end) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeDetections) QueryDate(context.Context, string, string) ([]model.DetectionRecord, error) {
	return f.records, f.err
}

func (f *fakeDetections) Latest(context.Context, string, int) ([]model.DetectionRecord, error) {
	return f.records, f.err
}

func (f *fakeDetections) QueryAll(context.Context, string) ([]model.DetectionRecord, error) {
	return f.records, f.err
}

func (f *fakeDetections) SheddingScores(context.Context, string, string) ([]float64, error) {
	return f.scores, f.scoreErr
}

func (f *fakeDetections) Insert(context.Context, string, string, []byte) (int64, error) {
	return 0, errors.New("not supported")
}

type memActivity struct {
	mu   sync.Mutex
	rows map[string]model.ActivityBucket
}

func newMemActivity() *memActivity {
	return &memActivity{rows: map[string]model.ActivityBucket{}}
}

func (m *memActivity) Upsert(_ context.Context, b model.ActivityBucket) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[b.DeviceID+"/"+b.Date+"/"+b.Time] = b
	return nil
}

func (m *memActivity) UpsertBatch(ctx context.Context, buckets []model.ActivityBucket) error {
	for _, b := range buckets {
		m.Upsert(ctx, b)
	}
	return nil
}

func (m *memActivity) filter(keep func(model.ActivityBucket) bool) []model.ActivityBucket {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.ActivityBucket{}
	for _, b := range m.rows {
		if keep(b) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date+out[i].Time < out[j].Date+out[j].Time })
	return out
}

func (m *memActivity) GetByDate(_ context.Context, device, date string) ([]model.ActivityBucket, error) {
	return m.filter(func(b model.ActivityBucket) bool { return b.DeviceID == device && b.Date == date }), nil
}

func (m *memActivity) GetByDates(_ context.Context, device string, dates []string) ([]model.ActivityBucket, error) {
	set := map[string]bool{}
	for _, d := range dates {
		set[d] = true
	}
	return m.filter(func(b model.ActivityBucket) bool { return b.DeviceID == device && set[b.Date] }), nil
}

func (m *memActivity) TopByDate(ctx context.Context, device, date string, limit int) ([]model.ActivityBucket, error) {
	out, _ := m.GetByDate(ctx, device, date)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Active > out[j].Active })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type fakeBlobs struct {
	existing map[string]bool
}

func (f *fakeBlobs) Upload(_ context.Context, _ []byte, key string) error {
	f.existing[key] = true
	return nil
}

func (f *fakeBlobs) PresignedURL(_ context.Context, key string, _ time.Duration) (string, error) {
	if !f.existing[key] {
		return "", storage.ErrObjectNotFound
	}
	return "signed://" + key, nil
}

func newTestService(t *testing.T, det *fakeDetections, act *memActivity, blobs *fakeBlobs) *Service {
	t.Helper()
	cfg := &config.Config{
		LogDirectory: t.TempDir(),
		BucketWidth:  time.Minute,
		Timezone:     "UTC",
		PresignTTL:   time.Hour,
	}
	log := logger.NewLogger(cfg)
	t.Cleanup(func() { log.Close() })

	s := NewService(cfg, det, act, blobs, timeutil.NewMockClock(t0), log)
	s.loc = kst
	return s
}

func TestService_ProcessIntervalUpsertsZeroBuckets(t *testing.T) {
	act := newMemActivity()
	s := newTestService(t, &fakeDetections{}, act, &fakeBlobs{existing: map[string]bool{}})

	buckets, err := s.ProcessInterval(context.Background(), "SN1", t0, t0.Add(time.Minute))
	require.NoError(t, err)
	require.Len(t, buckets, 1)

	stored, _ := act.GetByDate(context.Background(), "SN1", "20250501")
	require.Len(t, stored, 1)
	assert.Zero(t, stored[0].Active)
}

func TestService_ProcessIntervalIsIdempotent(t *testing.T) {
	det := &fakeDetections{records: []model.DetectionRecord{at(t0, 0, 0), at(t0.Add(30*time.Second), 3, 4)}}
	act := newMemActivity()
	s := newTestService(t, det, act, &fakeBlobs{existing: map[string]bool{}})

	for i := 0; i < 2; i++ {
		_, err := s.ProcessInterval(context.Background(), "SN1", t0, t0.Add(time.Minute))
		require.NoError(t, err)
	}

	stored, _ := act.GetByDate(context.Background(), "SN1", "20250501")
	require.Len(t, stored, 1)
	assert.Equal(t, 5.0, stored[0].Active)
}

func TestService_ProcessIntervalPropagatesQueryFailure(t *testing.T) {
	s := newTestService(t, &fakeDetections{err: errors.New("db down")}, newMemActivity(), &fakeBlobs{existing: map[string]bool{}})

	_, err := s.ProcessInterval(context.Background(), "SN1", t0, t0.Add(time.Minute))
	assert.ErrorContains(t, err, "db down")
}

func TestService_ProcessIntervalRejectsInvertedRange(t *testing.T) {
	s := newTestService(t, &fakeDetections{}, newMemActivity(), &fakeBlobs{existing: map[string]bool{}})

	_, err := s.ProcessInterval(context.Background(), "SN1", t0, t0.Add(-time.Minute))
	assert.ErrorIs(t, err, ErrInvalidRange)
}

func TestService_ProcessAll(t *testing.T) {
	det := &fakeDetections{records: []model.DetectionRecord{at(t0, 0, 0), at(t0.Add(4*time.Minute), 3, 4)}}
	act := newMemActivity()
	s := newTestService(t, det, act, &fakeBlobs{existing: map[string]bool{}})

	buckets, err := s.ProcessAll(context.Background(), "SN1")
	require.NoError(t, err)
	assert.Equal(t, []float64{5, 0, 0, 0, 5}, actives(buckets))
}

func TestService_Summary(t *testing.T) {
	ctx := context.Background()
	act := newMemActivity()
	act.UpsertBatch(ctx, []model.ActivityBucket{
		model.NewActivityBucket("SN1", t0, 4),
		model.NewActivityBucket("SN1", t0.Add(time.Minute), 2),
		model.NewActivityBucket("SN1", t0.Add(3*time.Hour), 9),
		model.NewActivityBucket("SN1", t0.AddDate(0, 0, -2), 1),
	})
	blobs := &fakeBlobs{existing: map[string]bool{
		"stream/SN1/20250501/SN1_20250501_130000.mp4": true,
		"stream/SN1/20250501/SN1_20250501_100000.mp4": true,
	}}
	s := newTestService(t, &fakeDetections{scores: []float64{0.5, 0.501, 0.9}}, act, blobs)

	summary, err := s.Summary(ctx, "SN1", "20250501")
	require.NoError(t, err)

	assert.Len(t, summary.Buckets, 3)
	require.Len(t, summary.TimeOfActivity, 2)
	assert.Equal(t, 10, summary.TimeOfActivity[0].Hour)
	assert.Equal(t, 3.0, summary.TimeOfActivity[0].Value)
	assert.Equal(t, 13, summary.MostActive.Start)
	assert.Equal(t, 14, summary.MostActive.End)

	require.Len(t, summary.RecentDays, 7)
	assert.Equal(t, "05.01", summary.RecentDays[0].Day)
	assert.Equal(t, 5.0, summary.RecentDays[0].Value)
	assert.Equal(t, "04.29", summary.RecentDays[2].Day)
	assert.Equal(t, 1.0, summary.RecentDays[2].Value)

	assert.Equal(t, []string{
		"signed://stream/SN1/20250501/SN1_20250501_130000.mp4",
		"signed://stream/SN1/20250501/SN1_20250501_100000.mp4",
	}, summary.Highlights)
	assert.Equal(t, SheddingMedium, summary.Abnormal)

	_, err = s.Summary(ctx, "SN1", "2025-05-01")
	assert.Error(t, err)
}

func TestMostActiveHour_DefaultsWhenEmpty(t *testing.T) {
	assert.Equal(t, 18, MostActiveHour(nil))
}

func TestService_SummarySheddingFallsBackToNone(t *testing.T) {
	s := newTestService(t, &fakeDetections{scoreErr: errors.New("db down")}, newMemActivity(), &fakeBlobs{existing: map[string]bool{}})

	summary, err := s.Summary(context.Background(), "SN1", "20250501")
	require.NoError(t, err)
	assert.Equal(t, SheddingNone, summary.Abnormal)
}

func TestSheddingLevel(t *testing.T) {
	tests := []struct {
		name   string
		scores []float64
		want   string
	}{
		{"no scores", nil, SheddingNone},
		{"low boundary", []float64{0.33}, SheddingLow},
		{"rounds down to low", []float64{0.334}, SheddingLow},
		{"just above low", []float64{0.34}, SheddingMedium},
		{"medium boundary", []float64{0.67}, SheddingMedium},
		{"just above medium", []float64{0.68}, SheddingHigh},
		{"most frequent wins", []float64{0.9, 0.1, 0.1}, SheddingLow},
		{"tie goes to first seen", []float64{0.9, 0.1, 0.1, 0.9}, SheddingHigh},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SheddingLevel(tt.scores))
		})
	}
}

func TestService_ProcessAllClampsLongHistory(t *testing.T) {
	det := &fakeDetections{records: []model.DetectionRecord{
		at(t0.AddDate(-1, 0, 0), 0, 0),
		at(t0, 0, 0),
		at(t0.Add(time.Minute), 3, 4),
	}}
	s := newTestService(t, det, newMemActivity(), &fakeBlobs{existing: map[string]bool{}})
	s.maxSpan = time.Hour

	buckets, err := s.ProcessAll(context.Background(), "SN1")
	require.NoError(t, err)
	require.Len(t, buckets, 61)
	assert.Equal(t, "090100", buckets[0].Time)
	assert.Equal(t, 5.0, buckets[len(buckets)-1].Active)
}

func TestService_ProcessIntervalClampsLongWindow(t *testing.T) {
	s := newTestService(t, &fakeDetections{}, newMemActivity(), &fakeBlobs{existing: map[string]bool{}})
	s.maxSpan = 10 * time.Minute

	buckets, err := s.ProcessInterval(context.Background(), "SN1", t0.AddDate(0, 0, -3), t0)
	require.NoError(t, err)
	require.Len(t, buckets, 10)
	assert.Equal(t, "095000", buckets[0].Time)
}
