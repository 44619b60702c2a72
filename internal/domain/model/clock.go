package model

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	minutesPerHour = 60
	hoursPerDay    = 24
	dateLayout     = "2006-01-02"
)

// ClockTime is a time of day with minute precision.
type ClockTime struct {
	Hours   int `json:"hours"`
	Minutes int `json:"minutes"`
}

// ParseClockTime parses "HH:MM". Malformed input is an error; callers must
// not substitute a default.
func ParseClockTime(s string) (ClockTime, error) {
	h, m, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return ClockTime{}, fmt.Errorf("%w: %q", ErrInvalidClockTime, s)
	}
	hours, err := strconv.Atoi(h)
	if err != nil {
		return ClockTime{}, fmt.Errorf("%w: %q", ErrInvalidClockTime, s)
	}
	minutes, err := strconv.Atoi(m)
	if err != nil {
		return ClockTime{}, fmt.Errorf("%w: %q", ErrInvalidClockTime, s)
	}
	c := ClockTime{Hours: hours, Minutes: minutes}
	if !c.Valid() {
		return ClockTime{}, fmt.Errorf("%w: %q out of range", ErrInvalidClockTime, s)
	}
	return c, nil
}

// MustClockTime is ParseClockTime for literals; it panics on bad input.
func MustClockTime(s string) ClockTime {
	c, err := ParseClockTime(s)
	if err != nil {
		panic(err)
	}
	return c
}

// Valid reports whether hours and minutes are in range.
func (c ClockTime) Valid() bool {
	return c.Hours >= 0 && c.Hours < hoursPerDay && c.Minutes >= 0 && c.Minutes < minutesPerHour
}

// MinutesSinceMidnight converts c to minutes.
func (c ClockTime) MinutesSinceMidnight() int {
	return c.Hours*minutesPerHour + c.Minutes
}

// String formats c as "HH:MM".
func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hours, c.Minutes)
}

// MarshalJSON encodes c as "HH:MM".
func (c ClockTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

// UnmarshalJSON accepts "HH:MM" or {"hours":H,"minutes":M}.
func (c *ClockTime) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		parsed, err := ParseClockTime(s)
		if err != nil {
			return err
		}
		*c = parsed
		return nil
	}
	var obj struct {
		Hours   int `json:"hours"`
		Minutes int `json:"minutes"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidClockTime, string(b))
	}
	*c = ClockTime{Hours: obj.Hours, Minutes: obj.Minutes}
	return nil
}

// ParseDate accepts "YYYY-MM-DD" or RFC3339 and returns the calendar date
// at UTC midnight. For RFC3339 the date in the value's own offset is kept.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(dateLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return DateOf(t), nil
}

// DateOf drops the time of day from t, keeping its calendar date, and
// returns it at UTC midnight.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// FormatDate renders t as "YYYY-MM-DD".
func FormatDate(t time.Time) string {
	return t.Format(dateLayout)
}
