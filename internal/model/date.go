package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// DateFormat is the canonical calendar date layout used in CSV, JSON and the store.
const DateFormat = "2006-01-02"

// Date is a calendar date at UTC midnight.
type Date struct {
	time.Time
}

// NewDate returns the calendar date y-m-d.
func NewDate(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar date, keeping t's wall clock day.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

// ParseDate parses a YYYY-MM-DD date.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateFormat, s)
	if err != nil {
		return Date{}, err
	}
	return Date{t}, nil
}

// String formats the date as YYYY-MM-DD.
func (d Date) String() string {
	return d.Format(DateFormat)
}

// DaysSince returns the number of calendar days from earlier to d.
func (d Date) DaysSince(earlier Date) float64 {
	return d.Sub(earlier.Time).Hours() / 24
}

// AddFractionalDays adds days (which may be fractional) and drops whatever
// remains below one calendar day.
func (d Date) AddFractionalDays(days float64) Date {
	t := d.Add(time.Duration(days * float64(24*time.Hour)))
	return DateOf(t)
}

// MarshalJSON encodes the date as "YYYY-MM-DD".
func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON decodes a "YYYY-MM-DD" string.
func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("decoding date: %w", err)
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return fmt.Errorf("parsing date %q: %w", s, err)
	}
	*d = parsed
	return nil
}
