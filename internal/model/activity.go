package model

import "time"

// Date and bucket time layouts used as persisted keys.
const (
	DateLayout       = "20060102"
	BucketTimeLayout = "150400" // HHMM00
)

// ActivityBucket is the summed movement magnitude of one device over one
// fixed-width interval. (DeviceID, Date, Time) is the primary key.
type ActivityBucket struct {
	DeviceID string    `json:"SN"`
	Date     string    `json:"DATE"`
	Time     string    `json:"TIME"`
	Active   float64   `json:"active"`
	Start    time.Time `json:"-"`
}

// NewActivityBucket keys a bucket by the local date and HHMM00 of start.
func NewActivityBucket(deviceID string, start time.Time, active float64) ActivityBucket {
	return ActivityBucket{
		DeviceID: deviceID,
		Date:     start.Format(DateLayout),
		Time:     start.Format(BucketTimeLayout),
		Active:   active,
		Start:    start,
	}
}

// Hour returns the bucket's hour of day parsed from Time, or -1.
func (b ActivityBucket) Hour() int {
	if len(b.Time) < 2 {
		return -1
	}
	h := int(b.Time[0]-'0')*10 + int(b.Time[1]-'0')
	if h < 0 || h > 23 {
		return -1
	}
	return h
}
