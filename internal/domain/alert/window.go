package alert

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// TimeOfDay is a wall-clock time expressed as minutes since midnight.
type TimeOfDay int

const (
	// timeOfDayLayout is the accepted "HH:MM" 24-hour format.
	timeOfDayLayout = "15:04"

	minutesPerHour = 60
	minutesPerDay  = 24 * minutesPerHour
)

// errEmptyTimeOfDay is returned when an empty string is parsed as a time of day.
var errEmptyTimeOfDay = errors.New("time of day is empty")

// ParseTimeOfDay parses an "HH:MM" string.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errEmptyTimeOfDay
	}

	parsed, err := time.Parse(timeOfDayLayout, s)
	if err != nil {
		return 0, fmt.Errorf("parse time of day %q: %w", s, err)
	}

	return NewTimeOfDay(parsed.Hour(), parsed.Minute()), nil
}

// MustParseTimeOfDay is like ParseTimeOfDay but panics on malformed input.
// It is meant for constants and tests.
func MustParseTimeOfDay(s string) TimeOfDay {
	tod, err := ParseTimeOfDay(s)
	if err != nil {
		panic(err)
	}

	return tod
}

// NewTimeOfDay builds a TimeOfDay from hour and minute.
func NewTimeOfDay(hour, minute int) TimeOfDay {
	return TimeOfDay(hour*minutesPerHour + minute)
}

// TimeOfDayOf extracts the time of day of t, dropping seconds.
func TimeOfDayOf(t time.Time) TimeOfDay {
	return NewTimeOfDay(t.Hour(), t.Minute())
}

// Hour returns the hour component.
func (t TimeOfDay) Hour() int {
	return int(t) / minutesPerHour
}

// Minute returns the minute component.
func (t TimeOfDay) Minute() int {
	return int(t) % minutesPerHour
}

// On returns the instant at this time of day on the calendar date of day,
// in day's location.
func (t TimeOfDay) On(day time.Time) time.Time {
	year, month, date := day.Date()

	return time.Date(year, month, date, t.Hour(), t.Minute(), 0, 0, day.Location())
}

// String renders the time of day as "HH:MM".
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

// Window is the daily period during which scheduled alerts may fire.
// Start greater than End means the window wraps past midnight.
// Start equal to End means the window covers the whole day.
type Window struct {
	// Start is the inclusive beginning of the window.
	Start TimeOfDay
	// End is the exclusive end of the window.
	End TimeOfDay
}

// Wraps reports whether the window crosses midnight.
func (w Window) Wraps() bool {
	return w.Start > w.End
}

// FullDay reports whether the window covers all 24 hours.
func (w Window) FullDay() bool {
	return w.Start == w.End
}

// IsActive reports whether now falls inside the window.
func (w Window) IsActive(now time.Time) bool {
	tod := TimeOfDayOf(now)

	switch {
	case w.FullDay():
		return true
	case w.Wraps():
		return tod >= w.Start || tod < w.End
	default:
		return tod >= w.Start && tod < w.End
	}
}

// ActiveInterval returns the concrete start and end instants of the window
// occurrence relevant to now. For a same-day window both bounds are on now's
// date, so the interval may lie entirely before or after now. For wrapping
// and full-day windows the interval is the occurrence that contains now.
func (w Window) ActiveInterval(now time.Time) (start, end time.Time) {
	tod := TimeOfDayOf(now)

	switch {
	case w.FullDay():
		start = w.Start.On(now)
		if tod < w.Start {
			start = w.Start.On(now.AddDate(0, 0, -1))
		}

		return start, start.AddDate(0, 0, 1)
	case w.Wraps():
		startDay := now
		if tod < w.End {
			startDay = now.AddDate(0, 0, -1)
		}

		return w.Start.On(startDay), w.End.On(startDay.AddDate(0, 0, 1))
	default:
		return w.Start.On(now), w.End.On(now)
	}
}

// String renders the window as "HH:MM-HH:MM".
func (w Window) String() string {
	return w.Start.String() + "-" + w.End.String()
}
