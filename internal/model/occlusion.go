package model

// OcclusionVerdict is the transient hiding judgment for a device.
type OcclusionVerdict struct {
	DeviceID            string `json:"device_id"`
	IsHiding            bool   `json:"is_hiding"`
	NoBoxCount          int    `json:"no_box_count"`
	LowConfidenceFrames int    `json:"low_confidence_frames"`
	Frames              int    `json:"frames"`
}

// HidingEvent is one frame reported by the offline hiding log.
type HidingEvent struct {
	Timestamp     string     `json:"timestamp"`
	Reason        string     `json:"reason"`
	LowConfidence []Keypoint `json:"low_confidence,omitempty"`
}
