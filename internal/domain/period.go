package domain

import (
	"fmt"
	"strconv"
	"time"
)

const dateLayout = "2006-01-02"

// Period is a calendar month key, rendered as YYYY-MM.
type Period struct {
	Year  int
	Month time.Month
}

// ParsePeriod accepts exactly the YYYY-MM shape with a month in 01..12.
func ParsePeriod(raw string) (Period, error) {
	if len(raw) != 7 || raw[4] != '-' {
		return Period{}, fmt.Errorf("%w: invalid periodYm: %q", ErrInvalidInput, raw)
	}
	for i, c := range raw {
		if i == 4 {
			continue
		}
		if c < '0' || c > '9' {
			return Period{}, fmt.Errorf("%w: invalid periodYm: %q", ErrInvalidInput, raw)
		}
	}
	year, _ := strconv.Atoi(raw[:4])
	month, _ := strconv.Atoi(raw[5:])
	if year < 1 || month < 1 || month > 12 {
		return Period{}, fmt.Errorf("%w: invalid periodYm: %q", ErrInvalidInput, raw)
	}
	return Period{Year: year, Month: time.Month(month)}, nil
}

// ParseOptionalPeriod returns nil for an empty string.
func ParseOptionalPeriod(raw string) (*Period, error) {
	if raw == "" {
		return nil, nil
	}
	p, err := ParsePeriod(raw)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// PeriodOf returns the UTC month containing t.
func PeriodOf(t time.Time) Period {
	u := t.UTC()
	return Period{Year: u.Year(), Month: u.Month()}
}

func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, int(p.Month))
}

// Start is the first instant of the month in UTC.
func (p Period) Start() time.Time {
	return time.Date(p.Year, p.Month, 1, 0, 0, 0, 0, time.UTC)
}

// Next returns the following month.
func (p Period) Next() Period {
	return PeriodOf(p.Start().AddDate(0, 1, 0))
}

// Prev returns the preceding month.
func (p Period) Prev() Period {
	return PeriodOf(p.Start().AddDate(0, -1, 0))
}

// Contains reports whether t falls inside the month (UTC).
func (p Period) Contains(t time.Time) bool {
	return PeriodOf(t) == p
}

// Before reports whether p is strictly earlier than other.
func (p Period) Before(other Period) bool {
	return MonthsBetween(p, other) > 0
}

func (p Period) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Period) UnmarshalText(text []byte) error {
	parsed, err := ParsePeriod(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// MonthsBetween counts whole months from start to end; negative when end precedes start.
func MonthsBetween(start, end Period) int {
	return (end.Year-start.Year)*12 + int(end.Month) - int(start.Month)
}

// NormalizeTimestamp parses an RFC3339 timestamp with an explicit offset and
// returns it in UTC at second precision. A nil or blank value yields now.
func NormalizeTimestamp(raw *string, now time.Time) (time.Time, error) {
	if raw == nil || *raw == "" {
		return now.UTC().Truncate(time.Second), nil
	}
	parsed, err := time.Parse(time.RFC3339, *raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: time must be RFC3339 with an explicit offset, e.g. 2026-02-22T12:00:00Z", ErrInvalidInput)
	}
	return parsed.UTC().Truncate(time.Second), nil
}

// ParseDate parses a YYYY-MM-DD calendar date. field names the input in the error.
func ParseDate(raw, field string) (time.Time, error) {
	parsed, err := time.Parse(dateLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s must be YYYY-MM-DD", ErrInvalidInput, field)
	}
	return parsed, nil
}

// Date is a calendar date without a time of day, rendered as YYYY-MM-DD.
type Date struct {
	Time time.Time
}

func NewDate(t time.Time) Date {
	return Date{Time: time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)}
}

func (d Date) String() string {
	return FormatDate(d.Time)
}

func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Date) UnmarshalText(text []byte) error {
	parsed, err := ParseDate(string(text), "date")
	if err != nil {
		return err
	}
	*d = NewDate(parsed)
	return nil
}

// FormatDate renders a calendar date as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(dateLayout)
}
