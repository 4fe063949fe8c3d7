package risk

import (
	"fmt"
	"time"
)

// ----- session labels -----

type Session string

const (
	SessionHoliday    Session = "weekend_holiday"
	SessionPreMarket  Session = "pre_market"
	SessionRegular    Session = "regular"
	SessionPostMarket Session = "post_market"
	SessionClosed     Session = "closed"

	marketOpenHour    = 9
	marketOpenMinute  = 30
	marketCloseHour   = 16
	marketCloseMinute = 0
	preMarketHour     = 4
	postMarketHour    = 20
)

// Clock answers US equity session questions in America/New_York time.
type Clock struct {
	loc           *time.Location
	flattenHour   int
	flattenMinute int
}

// NewClock builds a clock that flattens at flattenET (HH:MM, New York time).
func NewClock(flattenET string) (*Clock, error) {
	h, m, err := ParseHHMM(flattenET)
	if err != nil {
		return nil, err
	}
	return &Clock{loc: easternLocation(), flattenHour: h, flattenMinute: m}, nil
}

// ParseHHMM parses a 24h wall clock time such as "15:55".
func ParseHHMM(s string) (int, int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid HH:MM time %q: %w", s, err)
	}
	return t.Hour(), t.Minute(), nil
}

func easternLocation() *time.Location {
	nyLocation, err := time.LoadLocation("America/New_York")
	if err != nil {
		return time.UTC
	}
	return nyLocation
}

func (c *Clock) Location() *time.Location {
	return c.loc
}

func (c *Clock) at(now time.Time, hour, minute int) time.Time {
	et := now.In(c.loc)
	return time.Date(et.Year(), et.Month(), et.Day(), hour, minute, 0, 0, c.loc)
}

// SessionBounds returns today's regular open and close.
func (c *Clock) SessionBounds(now time.Time) (time.Time, time.Time) {
	return c.at(now, marketOpenHour, marketOpenMinute), c.at(now, marketCloseHour, marketCloseMinute)
}

// FlattenTime returns today's flatten deadline.
func (c *Clock) FlattenTime(now time.Time) time.Time {
	return c.at(now, c.flattenHour, c.flattenMinute)
}

func (c *Clock) IsTradingDay(now time.Time) bool {
	et := now.In(c.loc)
	if et.Weekday() == time.Saturday || et.Weekday() == time.Sunday {
		return false
	}
	return !isHoliday(et)
}

// IsMarketOpen reports whether now falls inside [open, close] of a trading day.
func (c *Clock) IsMarketOpen(now time.Time) bool {
	if !c.IsTradingDay(now) {
		return false
	}
	open, closeAt := c.SessionBounds(now)
	return !now.Before(open) && !now.After(closeAt)
}

// MinutesUntilClose is never negative.
func (c *Clock) MinutesUntilClose(now time.Time) int {
	_, closeAt := c.SessionBounds(now)
	d := closeAt.Sub(now)
	if d <= 0 {
		return 0
	}
	return int(d / time.Minute)
}

// ShouldFlatten reports whether the flatten deadline has passed today.
func (c *Clock) ShouldFlatten(now time.Time) bool {
	return !now.Before(c.FlattenTime(now))
}

func (c *Clock) Session(now time.Time) Session {
	if !c.IsTradingDay(now) {
		return SessionHoliday
	}
	open, closeAt := c.SessionBounds(now)
	switch {
	case now.Before(c.at(now, preMarketHour, 0)):
		return SessionClosed
	case now.Before(open):
		return SessionPreMarket
	case !now.After(closeAt):
		return SessionRegular
	case now.Before(c.at(now, postMarketHour, 0)):
		return SessionPostMarket
	default:
		return SessionClosed
	}
}
