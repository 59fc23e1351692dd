package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// TimestampLayout is the upstream frame timestamp format (YYYYMMDD_HHMMSS).
const TimestampLayout = "20060102_150405"

// Box is an axis-aligned bounding box in image pixels.
type Box struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

// Center returns the midpoint of the box.
func (b Box) Center() Point {
	return Point{X: (b.X1 + b.X2) / 2, Y: (b.Y1 + b.Y2) / 2}
}

// Point is a 2-D image coordinate.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Keypoint is one skeletal landmark of the tracked subject.
type Keypoint struct {
	Name       string  `json:"name"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Confidence float64 `json:"confidence"`
}

// DetectionRecord is one captured frame's pose/detection output.
// Boxes and Keypoints may be empty; Timestamp is zero when the frame
// carried no parseable timestamp.
type DetectionRecord struct {
	DeviceID     string     `json:"device_id"`
	Image        string     `json:"image,omitempty"`
	RawTimestamp string     `json:"raw_timestamp"`
	Timestamp    time.Time  `json:"timestamp"`
	Boxes        []Box      `json:"boxes"`
	Keypoints    []Keypoint `json:"keypoints"`
}

// HasBox reports whether the frame has at least one bounding box.
func (r DetectionRecord) HasBox() bool {
	return len(r.Boxes) > 0
}

// HasTimestamp reports whether the frame timestamp parsed.
func (r DetectionRecord) HasTimestamp() bool {
	return !r.Timestamp.IsZero()
}

// yoloResult mirrors the JSON payload stored by the ingestion pipeline.
type yoloResult struct {
	Timestamp string `json:"timestamp"`
	Boxes     []struct {
		XYXY []float64 `json:"xyxy"`
	} `json:"boxes"`
	Keypoints [][]struct {
		Name string    `json:"name"`
		XY   []float64 `json:"xy"`
		Conf float64   `json:"conf"`
	} `json:"keypoints"`
}

// ParseDetection decodes one upstream payload. Missing keys and malformed
// boxes/keypoints are treated as absent; only invalid JSON is an error.
// Timestamps are interpreted as wall-clock time in loc.
func ParseDetection(deviceID, image string, payload []byte, loc *time.Location) (DetectionRecord, error) {
	var raw yoloResult
	if err := json.Unmarshal(payload, &raw); err != nil {
		return DetectionRecord{}, fmt.Errorf("failed to decode detection payload: %w", err)
	}

	rec := DetectionRecord{
		DeviceID:     deviceID,
		Image:        image,
		RawTimestamp: raw.Timestamp,
		Timestamp:    ParseTimestamp(raw.Timestamp, loc),
		Boxes:        []Box{},
		Keypoints:    []Keypoint{},
	}

	for _, b := range raw.Boxes {
		if len(b.XYXY) != 4 {
			continue
		}
		rec.Boxes = append(rec.Boxes, Box{X1: b.XYXY[0], Y1: b.XYXY[1], X2: b.XYXY[2], Y2: b.XYXY[3]})
	}

	// Only the first subject is tracked.
	if len(raw.Keypoints) > 0 {
		for _, kp := range raw.Keypoints[0] {
			k := Keypoint{Name: kp.Name, Confidence: kp.Conf}
			if len(kp.XY) == 2 {
				k.X, k.Y = kp.XY[0], kp.XY[1]
			}
			rec.Keypoints = append(rec.Keypoints, k)
		}
	}

	return rec, nil
}

// ParseTimestamp parses a YYYYMMDD_HHMMSS string, returning the zero time on failure.
func ParseTimestamp(s string, loc *time.Location) time.Time {
	if s == "" {
		return time.Time{}
	}
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation(TimestampLayout, s, loc)
	if err != nil {
		return time.Time{}
	}
	return t
}

// FormatTimestamp renders t in the upstream layout, in loc.
func FormatTimestamp(t time.Time, loc *time.Location) string {
	if loc != nil {
		t = t.In(loc)
	}
	return t.Format(TimestampLayout)
}
