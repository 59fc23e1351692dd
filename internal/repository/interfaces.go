package repository

import (
	"context"
	"time"

	"petwatch/internal/model"
)

// DetectionRepository is the read side of the upstream detection records.
type DetectionRepository interface {
	// Read operations
	QueryRange(ctx context.Context, deviceID string, start, end time.Time) ([]model.DetectionRecord, error)
	QueryDate(ctx context.Context, deviceID, date string) ([]model.DetectionRecord, error)
	Latest(ctx context.Context, deviceID string, n int) ([]model.DetectionRecord, error)
	QueryAll(ctx context.Context, deviceID string) ([]model.DetectionRecord, error)
	SheddingScores(ctx context.Context, deviceID, date string) ([]float64, error)

	// Create operations (ingest tooling only)
	Insert(ctx context.Context, deviceID, image string, payload []byte) (int64, error)
}

// ActivityRepository persists activity buckets keyed by (SN, DATE, TIME).
type ActivityRepository interface {
	// Write operations
	Upsert(ctx context.Context, bucket model.ActivityBucket) error
	UpsertBatch(ctx context.Context, buckets []model.ActivityBucket) error

	// Read operations
	GetByDate(ctx context.Context, deviceID, date string) ([]model.ActivityBucket, error)
	GetByDates(ctx context.Context, deviceID string, dates []string) ([]model.ActivityBucket, error)
	TopByDate(ctx context.Context, deviceID, date string, limit int) ([]model.ActivityBucket, error)
}
