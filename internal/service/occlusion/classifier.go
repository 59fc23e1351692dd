// Package occlusion decides whether the tracked subject is hidden from view.
package occlusion

import "petwatch/internal/model"

const (
	// DefaultWindow is how many recent frames the live verdict looks at.
	DefaultWindow = 5
	// LowConfidence is the landmark confidence at or below which a point is unreliable.
	LowConfidence = 0.3
	// LowConfidencePoints is how many unreliable landmarks make a frame low-confidence.
	LowConfidencePoints = 6
	// FrameThreshold is how many no-box or low-confidence frames flag hiding.
	FrameThreshold = 2
)

// Hiding reasons reported by HidingLog.
const (
	ReasonConsecutiveNoBox = "consecutive frames without a box"
	ReasonLowConfidence    = "low confidence landmarks"
	ReasonFollowedByHiding = "next frame is hiding"
)

// lowConfidence returns the frame's landmarks at or below LowConfidence.
func lowConfidence(rec model.DetectionRecord) []model.Keypoint {
	var low []model.Keypoint
	for _, kp := range rec.Keypoints {
		if kp.Confidence <= LowConfidence {
			low = append(low, kp)
		}
	}
	return low
}

func isLowConfidenceFrame(rec model.DetectionRecord) bool {
	return len(lowConfidence(rec)) >= LowConfidencePoints
}

// Classify evaluates the first window records, which must be newest first.
// A frame without a box is counted as such and its landmarks are not checked.
func Classify(deviceID string, records []model.DetectionRecord, window int) model.OcclusionVerdict {
	if window <= 0 {
		window = DefaultWindow
	}
	if len(records) > window {
		records = records[:window]
	}

	v := model.OcclusionVerdict{DeviceID: deviceID, Frames: len(records)}
	for _, rec := range records {
		if !rec.HasBox() {
			v.NoBoxCount++
			continue
		}
		if isLowConfidenceFrame(rec) {
			v.LowConfidenceFrames++
		}
	}

	v.IsHiding = v.NoBoxCount >= FrameThreshold || v.LowConfidenceFrames >= FrameThreshold
	return v
}

// IsHiding reports the verdict over the DefaultWindow most recent records.
func IsHiding(records []model.DetectionRecord) bool {
	return Classify("", records, DefaultWindow).IsHiding
}

// HidingLog walks records oldest first and lists every hiding frame once.
//
// Two consecutive frames without a box are both reported. A boxed frame with
// too many low-confidence landmarks is reported, and so is the no-box frame
// right before it.
func HidingLog(records []model.DetectionRecord) []model.HidingEvent {
	events := []model.HidingEvent{}
	seen := make(map[string]struct{})

	add := func(e model.HidingEvent) {
		if _, ok := seen[e.Timestamp]; ok {
			return
		}
		seen[e.Timestamp] = struct{}{}
		events = append(events, e)
	}

	var prevTimestamp string
	prevNoBox := false

	for _, rec := range records {
		ts := rec.RawTimestamp

		if !rec.HasBox() {
			if prevNoBox {
				add(model.HidingEvent{Timestamp: prevTimestamp, Reason: ReasonConsecutiveNoBox})
				add(model.HidingEvent{Timestamp: ts, Reason: ReasonConsecutiveNoBox})
			}
			prevTimestamp, prevNoBox = ts, true
			continue
		}

		if low := lowConfidence(rec); len(low) >= LowConfidencePoints {
			if _, ok := seen[ts]; !ok {
				add(model.HidingEvent{Timestamp: ts, Reason: ReasonLowConfidence, LowConfidence: low})
				if prevNoBox {
					add(model.HidingEvent{Timestamp: prevTimestamp, Reason: ReasonFollowedByHiding})
				}
			}
		}

		prevTimestamp, prevNoBox = ts, false
	}

	return events
}
