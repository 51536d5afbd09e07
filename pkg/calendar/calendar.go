package calendar

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// DateLayout is the layout of dates in calendar files and API payloads.
const DateLayout = "2006-01-02"

// ErrMissingData matches MissingDataError with errors.Is.
var ErrMissingData = errors.New("calendar: missing trading data")

// MissingDataError is returned when a calendar cannot classify a date.
type MissingDataError struct {
	Date time.Time
}

func (e *MissingDataError) Error() string {
	return fmt.Sprintf("calendar: no trading data for %s", e.Date.Format(DateLayout))
}

// Is reports whether target is ErrMissingData.
func (e *MissingDataError) Is(target error) bool {
	return target == ErrMissingData
}

// Calendar classifies calendar days as trading days.
type Calendar interface {
	IsTradingDay(day time.Time) (bool, error)
}

// Func adapts a function to a Calendar.
type Func func(day time.Time) (bool, error)

// IsTradingDay calls f(day).
func (f Func) IsTradingDay(day time.Time) (bool, error) {
	return f(day)
}

// Day returns the calendar day of t as midnight UTC.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Date returns midnight UTC of the given day.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("calendar: invalid date %q: %w", s, err)
	}
	return t, nil
}

// Weekdays treats Monday to Friday as trading days. It knows every date.
type Weekdays struct{}

// IsTradingDay reports whether day falls on a weekday.
func (Weekdays) IsTradingDay(day time.Time) (bool, error) {
	return isWeekday(day), nil
}

func isWeekday(day time.Time) bool {
	switch day.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	default:
		return true
	}
}

// Holidays is a weekday calendar with market holidays, valid over a
// bounded range. Dates outside the range are missing data.
type Holidays struct {
	from   time.Time
	to     time.Time
	closed map[time.Time]struct{}
}

// NewHolidays returns a calendar covering [from, to] inclusive.
func NewHolidays(from, to time.Time, holidays ...time.Time) *Holidays {
	h := &Holidays{
		from:   Day(from),
		to:     Day(to),
		closed: make(map[time.Time]struct{}, len(holidays)),
	}
	for _, d := range holidays {
		h.closed[Day(d)] = struct{}{}
	}
	return h
}

// Range returns the first and last day the calendar knows about.
func (h *Holidays) Range() (from, to time.Time) {
	return h.from, h.to
}

// IsTradingDay reports whether day is a weekday and not a holiday.
func (h *Holidays) IsTradingDay(day time.Time) (bool, error) {
	day = Day(day)
	if day.Before(h.from) || day.After(h.to) {
		return false, &MissingDataError{Date: day}
	}
	if _, ok := h.closed[day]; ok {
		return false, nil
	}
	return isWeekday(day), nil
}

// file is the YAML form of a Holidays calendar:
//
//	from: 2024-01-01
//	to: 2024-12-31
//	holidays:
//	  - 2024-12-25
type file struct {
	From     string   `yaml:"from"`
	To       string   `yaml:"to"`
	Holidays []string `yaml:"holidays"`
}

// Parse reads a Holidays calendar from YAML.
func Parse(data []byte) (*Holidays, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse calendar: %w", err)
	}
	if f.From == "" || f.To == "" {
		return nil, errors.New("calendar: from and to are required")
	}

	from, err := ParseDate(f.From)
	if err != nil {
		return nil, err
	}
	to, err := ParseDate(f.To)
	if err != nil {
		return nil, err
	}
	if to.Before(from) {
		return nil, fmt.Errorf("calendar: to (%s) is before from (%s)", f.To, f.From)
	}

	holidays := make([]time.Time, 0, len(f.Holidays))
	for _, s := range f.Holidays {
		d, err := ParseDate(s)
		if err != nil {
			return nil, err
		}
		holidays = append(holidays, d)
	}
	return NewHolidays(from, to, holidays...), nil
}

// LoadFile reads a Holidays calendar from a YAML file.
func LoadFile(path string) (*Holidays, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read calendar file: %w", err)
	}
	return Parse(data)
}
