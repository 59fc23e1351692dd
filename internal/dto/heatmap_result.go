package dto

// HeatmapResult reports the outcome of one heatmap generation request.
type HeatmapResult struct {
	Success      bool   `json:"success"`
	Message      string `json:"message"`
	URL          string `json:"url,omitempty"`
	Date         string `json:"date"`
	DeviceSerial string `json:"device_serial"`
}
