package heatmap

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"petwatch/internal/config"
	"petwatch/internal/model"
	"petwatch/internal/service/storage"
	"petwatch/internal/timeutil"
)

type fakeDetections struct {
	byDate map[string][]model.DetectionRecord
	err    error
	asked  []string
}

func (f *fakeDetections) QueryRange(context.Context, string, time.Time, time.Time) ([]model.DetectionRecord, error) {
	return nil, f.err
}

func (f *fakeDetections) QueryDate(_ context.Context, _ string, date string) ([]model.DetectionRecord, error) {
	f.asked = append(f.asked, date)
	return f.byDate[date], f.err
}

func (f *fakeDetections) Latest(context.Context, string, int) ([]model.DetectionRecord, error) {
	return nil, f.err
}

func (f *fakeDetections) QueryAll(context.Context, string) ([]model.DetectionRecord, error) {
	return nil, f.err
}

func (f *fakeDetections) SheddingScores(context.Context, string, string) ([]float64, error) {
	return nil, nil
}

func (f *fakeDetections) Insert(context.Context, string, string, []byte) (int64, error) {
	return 0, nil
}

type memBlobs struct {
	objects   map[string][]byte
	uploadErr error
}

func (m *memBlobs) Upload(_ context.Context, data []byte, key string) error {
	if m.uploadErr != nil {
		return m.uploadErr
	}
	m.objects[key] = data
	return nil
}

func (m *memBlobs) PresignedURL(_ context.Context, key string, _ time.Duration) (string, error) {
	if _, ok := m.objects[key]; !ok {
		return "", storage.ErrObjectNotFound
	}
	return "signed://" + key, nil
}

var now = time.Date(2025, 5, 2, 0, 0, 5, 0, time.UTC)

func newTestService(t *testing.T, det *fakeDetections, blobs *memBlobs) *Service {
	t.Helper()
	cfg := &config.Config{Timezone: "UTC", PresignTTL: time.Hour}
	log := newTestLogger(t)
	gen := NewGenerator(t.TempDir(), nil, log)
	return NewService(cfg, det, blobs, gen, timeutil.NewMockClock(now), log)
}

func TestService_GenerateAndUpload(t *testing.T) {
	det := &fakeDetections{byDate: map[string][]model.DetectionRecord{"20250501": spread(30)}}
	blobs := &memBlobs{objects: map[string][]byte{}}
	s := newTestService(t, det, blobs)

	result, err := s.GenerateAndUpload(context.Background(), "SN1", "20250501", ModeCron)
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, "signed://heatmap/20250501/SN1_heatmap.png", result.URL)
	assert.Equal(t, "SN1", result.DeviceSerial)
	assert.NotEmpty(t, blobs.objects["heatmap/20250501/SN1_heatmap.png"])
}

func TestService_TestModeUsesSeparateKey(t *testing.T) {
	det := &fakeDetections{byDate: map[string][]model.DetectionRecord{"20250501": spread(30)}}
	blobs := &memBlobs{objects: map[string][]byte{}}
	s := newTestService(t, det, blobs)

	result, err := s.GenerateAndUpload(context.Background(), "SN1", "20250501", ModeTest)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Contains(t, blobs.objects, "heatmap/20250501/SN1_heatmap_test.png")
	assert.NotContains(t, blobs.objects, "heatmap/20250501/SN1_heatmap.png")
}

func TestService_ReportsSoftFailures(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name  string
		date  string
		data  []model.DetectionRecord
		upErr error
	}{
		{name: "invalid date", date: "2025-05-01"},
		{name: "impossible date", date: "20251341"},
		{name: "no data", date: "20250501"},
		{name: "insufficient landmarks", date: "20250501", data: spread(3)},
		{name: "upload failure", date: "20250501", data: spread(30), upErr: errors.New("disk full")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			det := &fakeDetections{byDate: map[string][]model.DetectionRecord{tt.date: tt.data}}
			blobs := &memBlobs{objects: map[string][]byte{}, uploadErr: tt.upErr}
			s := newTestService(t, det, blobs)

			result, err := s.GenerateAndUpload(ctx, "SN1", tt.date, ModeCron)
			require.NoError(t, err)
			assert.False(t, result.Success)
			assert.NotEmpty(t, result.Message)
			assert.Empty(t, result.URL)
		})
	}
}

func TestService_QueryFailurePropagates(t *testing.T) {
	s := newTestService(t, &fakeDetections{err: errors.New("connection refused")}, &memBlobs{objects: map[string][]byte{}})

	_, err := s.GenerateAndUpload(context.Background(), "SN1", "20250501", ModeCron)
	assert.ErrorContains(t, err, "connection refused")
}

func TestService_GeneratePreviousDay(t *testing.T) {
	det := &fakeDetections{}
	s := newTestService(t, det, &memBlobs{objects: map[string][]byte{}})

	result, err := s.GeneratePreviousDay(context.Background(), "SN1")
	require.NoError(t, err)
	assert.Equal(t, "20250501", result.Date)
	assert.Equal(t, []string{"20250501"}, det.asked)
}

func TestService_URLFallsBackToOlderLayouts(t *testing.T) {
	blobs := &memBlobs{objects: map[string][]byte{"heatmap/202505/SN1_heatmap.png": {1}}}
	s := newTestService(t, &fakeDetections{}, blobs)

	url, err := s.URL(context.Background(), "SN1", "20250501")
	require.NoError(t, err)
	assert.Equal(t, "signed://heatmap/202505/SN1_heatmap.png", url)

	url, err = s.URL(context.Background(), "SN1", "20250430")
	require.NoError(t, err)
	assert.Empty(t, url)
}
