package utils

import (
	"fmt"
	"time"
)

// ISOLayout is the wire format used for every timestamp at the storage boundary.
const ISOLayout = "2006-01-02T15:04:05Z"

// ToISO converts epoch seconds into an ISO-8601 UTC string.
func ToISO(epoch int64) string {
	return time.Unix(epoch, 0).UTC().Format(ISOLayout)
}

// FromISO parses a timestamp written by ToISO back into epoch seconds.
// RFC3339 strings with an offset are accepted too.
func FromISO(s string) (int64, error) {
	t, err := time.Parse(ISOLayout, s)
	if err == nil {
		return t.Unix(), nil
	}
	t, err = time.Parse(time.RFC3339, s)
	if err != nil {
		return 0, fmt.Errorf("parse iso time %q: %w", s, err)
	}
	return t.Unix(), nil
}

// RunDate returns the trading date (YYYY-MM-DD) of t in the given location.
func RunDate(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format("2006-01-02")
}
