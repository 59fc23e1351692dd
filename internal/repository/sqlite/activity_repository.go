package sqlite

import (
	"context"
	"fmt"
	"strings"

	"petwatch/internal/model"
)

const upsertActivitySQL = `
	INSERT INTO active_reports ("SN", "DATE", "TIME", active)
	VALUES (?, ?, ?, ?)
	ON CONFLICT ("SN", "DATE", "TIME") DO UPDATE SET active = excluded.active
`

// ActivityRepository implements repository.ActivityRepository for SQLite.
type ActivityRepository struct {
	db *DB
}

// NewActivityRepository creates a new SQLite activity repository.
func NewActivityRepository(db *DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

// Upsert inserts the bucket or overwrites the active value of an existing key.
func (r *ActivityRepository) Upsert(ctx context.Context, b model.ActivityBucket) error {
	r.db.Lock()
	defer r.db.Unlock()

	if _, err := r.db.Conn().ExecContext(ctx, upsertActivitySQL, b.DeviceID, b.Date, b.Time, b.Active); err != nil {
		return fmt.Errorf("failed to upsert activity %s/%s/%s: %w", b.DeviceID, b.Date, b.Time, err)
	}
	return nil
}

// UpsertBatch upserts multiple buckets in a single transaction.
func (r *ActivityRepository) UpsertBatch(ctx context.Context, buckets []model.ActivityBucket) error {
	if len(buckets) == 0 {
		return nil
	}

	r.db.Lock()
	defer r.db.Unlock()

	tx, err := r.db.Conn().BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, upsertActivitySQL)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, b := range buckets {
		if _, err := stmt.ExecContext(ctx, b.DeviceID, b.Date, b.Time, b.Active); err != nil {
			return fmt.Errorf("failed to upsert activity %s/%s/%s: %w", b.DeviceID, b.Date, b.Time, err)
		}
	}

	return tx.Commit()
}

// GetByDate returns all buckets of one day ordered by TIME.
func (r *ActivityRepository) GetByDate(ctx context.Context, deviceID, date string) ([]model.ActivityBucket, error) {
	return r.query(ctx, `
		SELECT "SN", "DATE", "TIME", active FROM active_reports
		WHERE "SN" = ? AND "DATE" = ?
		ORDER BY "TIME"
	`, deviceID, date)
}

// GetByDates returns all buckets of the given days ordered by DATE, TIME.
func (r *ActivityRepository) GetByDates(ctx context.Context, deviceID string, dates []string) ([]model.ActivityBucket, error) {
	if len(dates) == 0 {
		return []model.ActivityBucket{}, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(dates)), ",")
	args := []interface{}{deviceID}
	for _, d := range dates {
		args = append(args, d)
	}

	return r.query(ctx, `
		SELECT "SN", "DATE", "TIME", active FROM active_reports
		WHERE "SN" = ? AND "DATE" IN (`+placeholders+`)
		ORDER BY "DATE", "TIME"
	`, args...)
}

// TopByDate returns the most active buckets of a day.
func (r *ActivityRepository) TopByDate(ctx context.Context, deviceID, date string, limit int) ([]model.ActivityBucket, error) {
	return r.query(ctx, `
		SELECT "SN", "DATE", "TIME", active FROM active_reports
		WHERE "SN" = ? AND "DATE" = ?
		ORDER BY active DESC, "TIME"
		LIMIT ?
	`, deviceID, date, limit)
}

func (r *ActivityRepository) query(ctx context.Context, query string, args ...interface{}) ([]model.ActivityBucket, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	rows, err := r.db.Conn().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query activity: %w", err)
	}
	defer rows.Close()

	buckets := []model.ActivityBucket{}
	for rows.Next() {
		var b model.ActivityBucket
		if err := rows.Scan(&b.DeviceID, &b.Date, &b.Time, &b.Active); err != nil {
			return nil, fmt.Errorf("failed to scan activity: %w", err)
		}
		buckets = append(buckets, b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate activity: %w", err)
	}
	return buckets, nil
}
