package calendar

import (
	"errors"
	"fmt"
)

// ErrInvalidHour is returned when an alarm hour is outside [0, 24).
var ErrInvalidHour = errors.New("alarm hour must be in [0, 24)")

// Alarm rings once per calendar day, on the first checked time at or after
// its hour of day. The zero value is an unset alarm that never rings.
type Alarm struct {
	hour      float64
	prevTime  float64
	rungToday bool
	isSet     bool
}

// NewAlarm returns an alarm set to the given hour of day.
func NewAlarm(hour float64) (*Alarm, error) {
	a := &Alarm{}
	if err := a.Set(hour); err != nil {
		return nil, err
	}
	return a, nil
}

// Set arms the alarm for the given hour of day and clears its daily state.
func (a *Alarm) Set(hour float64) error {
	if hour < 0 || hour >= HoursInDay {
		return fmt.Errorf("%w: got %v", ErrInvalidHour, hour)
	}
	a.hour = hour
	a.prevTime = 0
	a.rungToday = false
	a.isSet = true
	return nil
}

// IsSet reports whether the alarm has been armed.
func (a *Alarm) IsSet() bool {
	return a.isSet
}

// Hour returns the configured hour of day.
func (a *Alarm) Hour() float64 {
	return a.hour
}

// IsRinging reports whether the alarm fires at time t.
// Calls must be made with non-decreasing t.
func (a *Alarm) IsRinging(t float64) bool {
	if !a.isSet {
		return false
	}

	due := NHours(t) >= a.hour
	if NNights(t, a.prevTime) > 0 {
		a.rungToday = false
	}
	a.prevTime = t

	if due && !a.rungToday {
		a.rungToday = true
		return true
	}
	return false
}

// Reset clears daily state, keeping the configured hour.
func (a *Alarm) Reset() {
	a.prevTime = 0
	a.rungToday = false
}
