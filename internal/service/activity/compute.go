// Package activity turns detection records into per-bucket movement totals.
package activity

import (
	"errors"
	"math"
	"sort"
	"time"

	"petwatch/internal/model"
)

var ErrInvalidRange = errors.New("end must not be before start")

// MaxBuckets bounds a single walk: 31 days of one-minute buckets. Longer
// spans keep their most recent MaxBuckets buckets.
const MaxBuckets = 31 * 24 * 60

// sample is one timestamped subject position.
type sample struct {
	ts time.Time
	p  model.Point
}

// Range is an optional [Start, End) window. Zero fields are unset.
type Range struct {
	Start time.Time
	End   time.Time
}

// ComputeActivity buckets records into width-sized intervals and sums the
// displacement between temporally adjacent subject positions.
//
// Positions are ordered by (timestamp, x, y), so the order of records that
// share a timestamp never affects the result. An edge between two adjacent
// positions counts toward every bucket containing either endpoint.
//
// The range comes from r when set, else from the boxed positions, else from
// every record timestamp, else [now-width, now]. Every walked bucket is
// emitted, with 0 when it saw no movement.
func ComputeActivity(deviceID string, records []model.DetectionRecord, width time.Duration, r Range, now time.Time, loc *time.Location) []model.ActivityBucket {
	if width <= 0 {
		width = time.Minute
	}
	if loc == nil {
		loc = time.UTC
	}

	samples := extractSamples(records)
	start, end := resolveRange(samples, records, width, r, now)

	origin := alignDown(start, width, loc)
	if limit := time.Duration(MaxBuckets) * width; end.Sub(origin) > limit {
		origin = alignDown(end.Add(-limit), width, loc)
	}
	n := int(end.Sub(origin) / width)
	if end.Sub(origin)%width != 0 {
		n++
	}
	if n < 1 {
		n = 1
	}
	if n > MaxBuckets {
		origin = origin.Add(time.Duration(n-MaxBuckets) * width)
		n = MaxBuckets
	}

	totals := make([]float64, n)
	index := func(ts time.Time) int {
		if ts.Before(origin) {
			return -1
		}
		i := int(ts.Sub(origin) / width)
		if i >= n {
			return -1
		}
		return i
	}

	for i := 1; i < len(samples); i++ {
		a, b := samples[i-1], samples[i]
		d := math.Hypot(b.p.X-a.p.X, b.p.Y-a.p.Y)

		ia, ib := index(a.ts), index(b.ts)
		if ia >= 0 {
			totals[ia] += d
		}
		if ib >= 0 && ib != ia {
			totals[ib] += d
		}
	}

	buckets := make([]model.ActivityBucket, 0, n)
	for i := 0; i < n; i++ {
		bucketStart := origin.Add(time.Duration(i) * width).In(loc)
		buckets = append(buckets, model.NewActivityBucket(deviceID, bucketStart, round2(totals[i])))
	}
	return buckets
}

func extractSamples(records []model.DetectionRecord) []sample {
	samples := make([]sample, 0, len(records))
	for _, rec := range records {
		if !rec.HasBox() || !rec.HasTimestamp() {
			continue
		}
		samples = append(samples, sample{ts: rec.Timestamp, p: rec.Boxes[0].Center()})
	}

	sort.SliceStable(samples, func(i, j int) bool {
		a, b := samples[i], samples[j]
		if !a.ts.Equal(b.ts) {
			return a.ts.Before(b.ts)
		}
		if a.p.X != b.p.X {
			return a.p.X < b.p.X
		}
		return a.p.Y < b.p.Y
	})
	return samples
}

// TimeSpan returns the earliest and latest parseable record timestamps.
// ok is false when no record carries one.
func TimeSpan(records []model.DetectionRecord) (first, last time.Time, ok bool) {
	for _, rec := range records {
		if !rec.HasTimestamp() {
			continue
		}
		if !ok || rec.Timestamp.Before(first) {
			first = rec.Timestamp
		}
		if !ok || rec.Timestamp.After(last) {
			last = rec.Timestamp
		}
		ok = true
	}
	return first, last, ok
}

func resolveRange(samples []sample, records []model.DetectionRecord, width time.Duration, r Range, now time.Time) (time.Time, time.Time) {
	start, end := r.Start, r.End

	var first, last time.Time
	var ok bool
	if len(samples) > 0 {
		first, last, ok = samples[0].ts, samples[len(samples)-1].ts, true
	} else {
		first, last, ok = TimeSpan(records)
	}

	if ok {
		if start.IsZero() {
			start = first
		}
		if end.IsZero() {
			// Data-derived end is inclusive of the last record.
			end = last.Add(time.Nanosecond)
		}
	}

	if start.IsZero() && end.IsZero() {
		return now.Add(-width), now
	}
	if start.IsZero() {
		start = end.Add(-width)
	}
	if end.IsZero() {
		end = start.Add(width)
	}
	return start, end
}

// alignDown returns the latest width boundary, counted from local midnight,
// that is not after t.
func alignDown(t time.Time, width time.Duration, loc *time.Location) time.Time {
	local := t.In(loc)
	midnight := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	offset := local.Sub(midnight)
	return midnight.Add(offset - offset%width)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
