package occlusion

import (
	"context"
	"fmt"

	"petwatch/internal/config"
	"petwatch/internal/logger"
	"petwatch/internal/model"
	"petwatch/internal/repository"
)

// Service answers hiding queries from the detection source.
type Service struct {
	detections repository.DetectionRepository
	window     int
	logger     *logger.Logger
}

// NewService creates an occlusion Service.
func NewService(cfg *config.Config, detections repository.DetectionRepository, logger *logger.Logger) *Service {
	window := cfg.HidingWindow
	if window <= 0 {
		window = DefaultWindow
	}
	return &Service{detections: detections, window: window, logger: logger}
}

// State classifies the most recent frames of a device.
func (s *Service) State(ctx context.Context, deviceID string) (model.OcclusionVerdict, error) {
	records, err := s.detections.Latest(ctx, deviceID, s.window)
	if err != nil {
		return model.OcclusionVerdict{DeviceID: deviceID}, fmt.Errorf("failed to load recent frames for %s: %w", deviceID, err)
	}
	return Classify(deviceID, records, s.window), nil
}

// Log builds the offline hiding log over a device's full history, or a
// single day when date (YYYYMMDD) is set.
func (s *Service) Log(ctx context.Context, deviceID, date string) ([]model.HidingEvent, error) {
	var records []model.DetectionRecord
	var err error
	if date == "" {
		records, err = s.detections.QueryAll(ctx, deviceID)
	} else {
		records, err = s.detections.QueryDate(ctx, deviceID, date)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load frames for %s: %w", deviceID, err)
	}

	events := HidingLog(records)
	s.logger.Info("Hiding log %s: %d frames, %d hiding", deviceID, len(records), len(events))
	return events, nil
}
