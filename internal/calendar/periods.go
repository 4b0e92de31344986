// Package calendar provides calendar arithmetic on tick timestamps and
// daily recurring alarms. Timestamps are float64 seconds since epoch (UTC).
package calendar

import "math"

const (
	SecondsInDay  = 60 * 60 * 24
	SecondsInHour = 60 * 60
	HoursInDay    = 24
)

// DayIndex returns the number of whole days since epoch.
func DayIndex(t float64) int64 {
	return int64(t) / SecondsInDay
}

// NNights returns the number of calendar-day boundaries between two timestamps.
func NNights(t1, t2 float64) int {
	d := DayIndex(t1) - DayIndex(t2)
	if d < 0 {
		d = -d
	}
	return int(d)
}

// NHours returns the hour of day of t, including the fractional part.
func NHours(t float64) float64 {
	h := t / SecondsInHour
	return h - float64(int64(h)/HoursInDay*HoursInDay)
}

// HoursBetween returns the absolute distance between two timestamps in hours.
func HoursBetween(t1, t2 float64) float64 {
	return math.Abs(t1-t2) / SecondsInHour
}
