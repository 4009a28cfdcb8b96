package scan

import (
	"fmt"
	"time"
)

// Granularity of a date aggregation.
type Granularity uint8

const (
	Yearly Granularity = iota
	Monthly
	Daily
)

var granularityNames = [...]string{"yearly", "monthly", "daily"}

func (g Granularity) String() string {
	if int(g) < len(granularityNames) {
		return granularityNames[g]
	}
	return fmt.Sprintf("granularity(%d)", g)
}

// ParseGranularity parses yearly, monthly or daily.
func ParseGranularity(s string) (Granularity, error) {
	for i, name := range granularityNames {
		if name == s {
			return Granularity(i), nil
		}
	}
	return 0, fmt.Errorf("unknown date granularity %q", s)
}

// Layout is the time layout of a bucket with this granularity.
func (g Granularity) Layout() string {
	switch g {
	case Yearly:
		return "2006"
	case Monthly:
		return "2006-01"
	case Daily:
		return time.DateOnly
	}
	panic("BUG: unknown granularity " + g.String())
}

// Truncate returns start of the period containing t.
func (g Granularity) Truncate(t time.Time) time.Time {
	t = t.UTC()
	switch g {
	case Yearly:
		return time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	case Monthly:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	case Daily:
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	}
	panic("BUG: unknown granularity " + g.String())
}

// Bucket formats the period containing t.
func (g Granularity) Bucket(t time.Time) string {
	return g.Truncate(t).Format(g.Layout())
}

// ParseBucket parses a period formatted by Bucket.
func (g Granularity) ParseBucket(s string) (time.Time, error) {
	t, err := time.ParseInLocation(g.Layout(), s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse %s bucket %q: %w", g, s, err)
	}
	return t, nil
}

var dateLayouts = []string{time.RFC3339Nano, time.DateTime, "2006-01-02T15:04:05", time.DateOnly}

// ParseDate parses a date or a timestamp attribute value.
func ParseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", s)
}

// Cut returns the first n characters of value, or value itself if it's shorter.
func Cut(value string, n int) string {
	r := []rune(value)
	if len(r) <= n {
		return value
	}
	return string(r[:n])
}
