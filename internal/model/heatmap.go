package model

import "fmt"

// DensityArtifact is one rendered heatmap for a device and day.
type DensityArtifact struct {
	DeviceID string
	Date     string
	Key      string
	Image    []byte
}

// HeatmapKey is the canonical object key: heatmap/{YYYYMMDD}/{SN}_heatmap.png.
func HeatmapKey(date, deviceID string) string {
	return fmt.Sprintf("heatmap/%s/%s_heatmap.png", date, deviceID)
}

// HeatmapTestKey is used by one-off test renders so they never replace a nightly artifact.
func HeatmapTestKey(date, deviceID string) string {
	return fmt.Sprintf("heatmap/%s/%s_heatmap_test.png", date, deviceID)
}

// HeatmapLookupKeys lists the canonical key followed by older layouts that
// may still exist in the bucket (month folder, then root).
func HeatmapLookupKeys(date, deviceID string) []string {
	keys := []string{HeatmapKey(date, deviceID)}
	if len(date) == 8 {
		keys = append(keys, fmt.Sprintf("heatmap/%s/%s_heatmap.png", date[:6], deviceID))
	}
	return append(keys, fmt.Sprintf("heatmap/%s_%s_heatmap.png", deviceID, date))
}

// HighlightKey is the stream clip recorded for one activity bucket.
func HighlightKey(b ActivityBucket) string {
	return fmt.Sprintf("stream/%s/%s/%s_%s_%s.mp4", b.DeviceID, b.Date, b.DeviceID, b.Date, b.Time)
}
