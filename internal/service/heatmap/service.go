package heatmap

import (
	"context"
	"errors"
	"fmt"
	"time"

	"petwatch/internal/config"
	"petwatch/internal/dto"
	"petwatch/internal/logger"
	"petwatch/internal/model"
	"petwatch/internal/repository"
	"petwatch/internal/service/storage"
	"petwatch/internal/timeutil"
)

// Mode selects the object key a render is stored under.
type Mode string

const (
	ModeCron Mode = "cron"
	ModeTest Mode = "test"
)

// Service generates per-day heatmaps and stores them in the blob store.
type Service struct {
	detections repository.DetectionRepository
	blobs      storage.BlobStore
	generator  *Generator
	clock      timeutil.Clock
	logger     *logger.Logger

	loc        *time.Location
	presignTTL time.Duration
}

// NewService creates a heatmap Service.
func NewService(cfg *config.Config, detections repository.DetectionRepository, blobs storage.BlobStore, generator *Generator, clock timeutil.Clock, logger *logger.Logger) *Service {
	return &Service{
		detections: detections,
		blobs:      blobs,
		generator:  generator,
		clock:      clock,
		logger:     logger,
		loc:        cfg.Location(),
		presignTTL: cfg.PresignTTL,
	}
}

// GenerateAndUpload renders the heatmap of one device-day and uploads it.
// Only a detection query failure is returned as an error; every other
// outcome is reported in the result.
func (s *Service) GenerateAndUpload(ctx context.Context, deviceID, date string, mode Mode) (dto.HeatmapResult, error) {
	result := dto.HeatmapResult{Date: date, DeviceSerial: deviceID}

	if !ValidDate(date) {
		result.Message = "date must be in YYYYMMDD format"
		return result, nil
	}

	started := s.clock.Now()
	records, err := s.detections.QueryDate(ctx, deviceID, date)
	if err != nil {
		return result, fmt.Errorf("failed to query detections for %s on %s: %w", deviceID, date, err)
	}
	if len(records) == 0 {
		result.Message = fmt.Sprintf("no detection data for %s", date)
		s.logger.Warning("No detection data for %s on %s", deviceID, date)
		return result, nil
	}

	image, err := s.generator.Generate(records)
	switch {
	case errors.Is(err, ErrInsufficientData):
		result.Message = "not enough landmark data to draw a heatmap"
		return result, nil
	case err != nil:
		result.Message = "heatmap generation failed"
		return result, nil
	}

	key := model.HeatmapKey(date, deviceID)
	if mode == ModeTest {
		key = model.HeatmapTestKey(date, deviceID)
	}

	if err := s.blobs.Upload(ctx, image, key); err != nil {
		s.logger.Error("Heatmap upload %s failed: %v", key, err)
		result.Message = "heatmap upload failed"
		return result, nil
	}

	url, err := s.blobs.PresignedURL(ctx, key, s.presignTTL)
	if err != nil {
		s.logger.Error("Presign %s failed: %v", key, err)
	}

	s.logger.Info("Heatmap %s stored in %v", key, s.clock.Now().Sub(started))
	result.Success = true
	result.Message = "heatmap generated and uploaded"
	result.URL = url
	return result, nil
}

// GeneratePreviousDay renders the local day before now.
func (s *Service) GeneratePreviousDay(ctx context.Context, deviceID string) (dto.HeatmapResult, error) {
	yesterday := s.clock.Now().In(s.loc).AddDate(0, 0, -1).Format(model.DateLayout)
	return s.GenerateAndUpload(ctx, deviceID, yesterday, ModeCron)
}

// URL returns a signed URL for the stored heatmap of a device-day, trying
// older key layouts after the canonical one. Returns "" when none exists.
func (s *Service) URL(ctx context.Context, deviceID, date string) (string, error) {
	if !ValidDate(date) {
		return "", fmt.Errorf("invalid date %q", date)
	}

	for _, key := range model.HeatmapLookupKeys(date, deviceID) {
		url, err := s.blobs.PresignedURL(ctx, key, s.presignTTL)
		if errors.Is(err, storage.ErrObjectNotFound) {
			continue
		}
		if err != nil {
			return "", err
		}
		return url, nil
	}

	s.logger.Warning("No heatmap stored for %s on %s", deviceID, date)
	return "", nil
}

// ValidDate reports whether s is a real YYYYMMDD calendar date.
func ValidDate(s string) bool {
	if len(s) != 8 {
		return false
	}
	_, err := time.Parse(model.DateLayout, s)
	return err == nil
}
