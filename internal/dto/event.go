package dto

import (
	"encoding/json"
	"time"
)

// Event types pushed to websocket subscribers.
const (
	EventActivityUpdated  = "activity.updated"
	EventHeatmapGenerated = "heatmap.generated"
	EventStateChanged     = "state.changed"
)

// Event is a message broadcast on /api/events.
type Event struct {
	Type         string      `json:"type"`
	DeviceSerial string      `json:"device_serial"`
	Time         time.Time   `json:"time"`
	Payload      interface{} `json:"payload,omitempty"`
}

// MarshalJSON renders Time as RFC 3339 with seconds precision.
func (e Event) MarshalJSON() ([]byte, error) {
	type Alias Event
	return json.Marshal(&struct {
		Time string `json:"time"`
		Alias
	}{
		Time:  e.Time.Format(time.RFC3339),
		Alias: (Alias)(e),
	})
}
