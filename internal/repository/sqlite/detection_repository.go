package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"petwatch/internal/model"
)

// DetectionRepository implements repository.DetectionRepository for SQLite.
type DetectionRepository struct {
	db  *DB
	loc *time.Location
}

// NewDetectionRepository creates a detection repository. Frame timestamps
// are wall-clock strings and are interpreted in loc.
func NewDetectionRepository(db *DB, loc *time.Location) *DetectionRepository {
	if loc == nil {
		loc = time.UTC
	}
	return &DetectionRepository{db: db, loc: loc}
}

// Insert stores one raw upstream payload for a device.
func (r *DetectionRepository) Insert(ctx context.Context, deviceID, image string, payload []byte) (int64, error) {
	return r.InsertScored(ctx, deviceID, image, payload, nil)
}

// InsertScored stores a payload together with its optional shedding score.
func (r *DetectionRepository) InsertScored(ctx context.Context, deviceID, image string, payload []byte, sheddingScore *float64) (int64, error) {
	rec, err := model.ParseDetection(deviceID, image, payload, r.loc)
	if err != nil {
		return 0, err
	}

	date := ""
	if rec.HasTimestamp() {
		date = rec.Timestamp.Format("2006-01-02")
	}

	r.db.Lock()
	defer r.db.Unlock()

	result, err := r.db.Conn().ExecContext(ctx, `
		INSERT INTO yolo_results (image, device, date, ts, yolo_result, shedding_score)
		VALUES (?, ?, ?, ?, ?, ?)
	`, image, deviceID, date, rec.RawTimestamp, string(payload), sheddingScore)
	if err != nil {
		return 0, fmt.Errorf("failed to insert detection: %w", err)
	}

	return result.LastInsertId()
}

// QueryRange returns records with start <= timestamp < end, oldest first.
func (r *DetectionRepository) QueryRange(ctx context.Context, deviceID string, start, end time.Time) ([]model.DetectionRecord, error) {
	return r.query(ctx, `
		SELECT device, image, yolo_result FROM yolo_results
		WHERE device = ? AND ts >= ? AND ts < ?
		ORDER BY ts
	`, deviceID, model.FormatTimestamp(start, r.loc), model.FormatTimestamp(end, r.loc))
}

// QueryDate returns every record captured on date (YYYYMMDD).
func (r *DetectionRepository) QueryDate(ctx context.Context, deviceID, date string) ([]model.DetectionRecord, error) {
	day, err := time.Parse(model.DateLayout, date)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q: %w", date, err)
	}

	return r.query(ctx, `
		SELECT device, image, yolo_result FROM yolo_results
		WHERE device = ? AND date = ?
		ORDER BY ts
	`, deviceID, day.Format("2006-01-02"))
}

// Latest returns the n most recent records, newest first.
func (r *DetectionRepository) Latest(ctx context.Context, deviceID string, n int) ([]model.DetectionRecord, error) {
	return r.query(ctx, `
		SELECT device, image, yolo_result FROM yolo_results
		WHERE device = ?
		ORDER BY ts DESC, id DESC
		LIMIT ?
	`, deviceID, n)
}

// QueryAll returns the full history of a device, oldest first.
func (r *DetectionRepository) QueryAll(ctx context.Context, deviceID string) ([]model.DetectionRecord, error) {
	return r.query(ctx, `
		SELECT device, image, yolo_result FROM yolo_results
		WHERE device = ?
		ORDER BY ts, id
	`, deviceID)
}

// SheddingScores returns the non-null shedding scores captured on date
// (YYYYMMDD) in insertion order.
func (r *DetectionRepository) SheddingScores(ctx context.Context, deviceID, date string) ([]float64, error) {
	day, err := time.Parse(model.DateLayout, date)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q: %w", date, err)
	}

	r.db.RLock()
	defer r.db.RUnlock()

	rows, err := r.db.Conn().QueryContext(ctx, `
		SELECT shedding_score FROM yolo_results
		WHERE device = ? AND date = ? AND shedding_score IS NOT NULL
		ORDER BY id
	`, deviceID, day.Format("2006-01-02"))
	if err != nil {
		return nil, fmt.Errorf("failed to query shedding scores: %w", err)
	}
	defer rows.Close()

	scores := []float64{}
	for rows.Next() {
		var v float64
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("failed to scan shedding score: %w", err)
		}
		scores = append(scores, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate shedding scores: %w", err)
	}
	return scores, nil
}

func (r *DetectionRepository) query(ctx context.Context, query string, args ...interface{}) ([]model.DetectionRecord, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	rows, err := r.db.Conn().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query detections: %w", err)
	}
	defer rows.Close()

	records := []model.DetectionRecord{}
	for rows.Next() {
		var device, image string
		var payload sql.RawBytes
		if err := rows.Scan(&device, &image, &payload); err != nil {
			return nil, fmt.Errorf("failed to scan detection: %w", err)
		}

		rec, err := model.ParseDetection(device, image, payload, r.loc)
		if err != nil {
			// A corrupt row is skipped rather than failing the whole window.
			continue
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate detections: %w", err)
	}
	return records, nil
}
