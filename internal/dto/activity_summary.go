package dto

import "petwatch/internal/model"

// HourlyActivity is the mean bucket value within one hour of the day.
type HourlyActivity struct {
	Hour  int     `json:"hour"`
	Value float64 `json:"value"`
}

// DailyActivity is the mean bucket value of one day; Day is "MM.DD".
type DailyActivity struct {
	Day   string  `json:"day"`
	Value float64 `json:"value"`
}

// HourRange is a [Start, End) hour span.
type HourRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// ActivitySummary is the per-day activity report of one device.
type ActivitySummary struct {
	DeviceSerial   string                 `json:"device_serial"`
	Date           string                 `json:"date"`
	Buckets        []model.ActivityBucket `json:"buckets"`
	TimeOfActivity []HourlyActivity       `json:"timeOfActivity"`
	MostActive     HourRange              `json:"mostActive"`
	RecentDays     []DailyActivity        `json:"recentDayOfActivity"`
	Highlights     []string               `json:"highlightVideoUrl"`
	HeatmapURL     *string                `json:"heatmapImageUrl"`
	Abnormal       string                 `json:"abnormalBehavior"`
}
