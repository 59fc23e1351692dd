package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDetection_FullPayload(t *testing.T) {
	payload := []byte(`{
		"timestamp": "20250501_101530",
		"boxes": [{"xyxy": [10, 20, 30, 60]}, {"xyxy": [0, 0, 1, 1]}],
		"keypoints": [
			[{"name": "nose", "xy": [12.5, 22.5], "conf": 0.91}, {"name": "tail", "xy": [0, 0], "conf": 0.1}],
			[{"name": "other", "xy": [1, 1], "conf": 0.9}]
		]
	}`)

	rec, err := ParseDetection("cam-1", "frame.jpg", payload, time.UTC)
	require.NoError(t, err)

	assert.Equal(t, "cam-1", rec.DeviceID)
	assert.Equal(t, time.Date(2025, 5, 1, 10, 15, 30, 0, time.UTC), rec.Timestamp)
	require.Len(t, rec.Boxes, 2)
	assert.Equal(t, Point{X: 20, Y: 40}, rec.Boxes[0].Center())
	require.Len(t, rec.Keypoints, 2, "only the first subject is kept")
	assert.Equal(t, Keypoint{Name: "nose", X: 12.5, Y: 22.5, Confidence: 0.91}, rec.Keypoints[0])
}

func TestParseDetection_MissingKeysAreAbsent(t *testing.T) {
	rec, err := ParseDetection("cam-1", "", []byte(`{}`), time.UTC)
	require.NoError(t, err)

	assert.False(t, rec.HasBox())
	assert.False(t, rec.HasTimestamp())
	assert.NotNil(t, rec.Boxes)
	assert.NotNil(t, rec.Keypoints)
}

func TestParseDetection_MalformedShapesDropped(t *testing.T) {
	payload := []byte(`{"timestamp": "2025-05-01", "boxes": [{"xyxy": [1, 2, 3]}], "keypoints": [[{"name": "nose", "xy": [5], "conf": 0.2}]]}`)

	rec, err := ParseDetection("cam-1", "", payload, time.UTC)
	require.NoError(t, err)

	assert.False(t, rec.HasTimestamp())
	assert.Empty(t, rec.Boxes)
	require.Len(t, rec.Keypoints, 1)
	assert.Zero(t, rec.Keypoints[0].X)
	assert.Equal(t, 0.2, rec.Keypoints[0].Confidence)
}

func TestParseDetection_InvalidJSON(t *testing.T) {
	_, err := ParseDetection("cam-1", "", []byte(`{not json`), time.UTC)
	assert.Error(t, err)
}

func TestParseTimestamp_UsesLocation(t *testing.T) {
	kst := time.FixedZone("KST", 9*3600)
	ts := ParseTimestamp("20250501_000000", kst)

	assert.Equal(t, time.Date(2025, 4, 30, 15, 0, 0, 0, time.UTC), ts.UTC())
	assert.Equal(t, "20250501_000000", FormatTimestamp(ts.UTC(), kst))
}

func TestNewActivityBucket_Keys(t *testing.T) {
	start := time.Date(2025, 5, 1, 9, 5, 0, 0, time.UTC)
	b := NewActivityBucket("SN1", start, 12.5)

	assert.Equal(t, "20250501", b.Date)
	assert.Equal(t, "090500", b.Time)
	assert.Equal(t, 9, b.Hour())
}

func TestHeatmapKeys(t *testing.T) {
	assert.Equal(t, "heatmap/20250501/SN1_heatmap.png", HeatmapKey("20250501", "SN1"))
	assert.Equal(t, []string{
		"heatmap/20250501/SN1_heatmap.png",
		"heatmap/202505/SN1_heatmap.png",
		"heatmap/SN1_20250501_heatmap.png",
	}, HeatmapLookupKeys("20250501", "SN1"))

	b := ActivityBucket{DeviceID: "SN1", Date: "20250501", Time: "101500"}
	assert.Equal(t, "stream/SN1/20250501/SN1_20250501_101500.mp4", HighlightKey(b))
}
