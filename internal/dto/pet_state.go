package dto

import "petwatch/internal/model"

// PetState is the live state returned for a device.
type PetState struct {
	DeviceSerial string                 `json:"device_serial"`
	IsHiding     bool                   `json:"is_hiding"`
	Verdict      model.OcclusionVerdict `json:"verdict"`
}

// HidingLog lists offline hiding events for a device.
type HidingLog struct {
	DeviceSerial string              `json:"device_serial"`
	Events       []model.HidingEvent `json:"events"`
}
