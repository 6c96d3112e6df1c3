// Package calendar provides pure trading-day calculations. It is
// implemented on the standard library's time package rather than a
// third-party calendar library: none of the example repos this module was
// grounded on pull in a market-holiday calendar dependency, and the only
// non-weekend exclusions a historical replay engine needs are a small,
// explicitly-listed holiday set.
package calendar

import "time"

// Calendar resolves trading days against a fixed holiday set in a given
// location (trading calendars are local-time concepts).
type Calendar struct {
	loc      *time.Location
	holidays map[string]bool // yyyyMMdd -> true
}

// New creates a Calendar for loc with the given holiday dates (yyyyMMdd).
func New(loc *time.Location, holidays ...string) *Calendar {
	h := make(map[string]bool, len(holidays))
	for _, d := range holidays {
		h[d] = true
	}
	return &Calendar{loc: loc, holidays: h}
}

const dateLayout = "20060102"

// IsTradingDay reports whether t is a weekday and not in the holiday set.
func (c *Calendar) IsTradingDay(t time.Time) bool {
	t = t.In(c.loc)
	switch t.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	return !c.holidays[t.Format(dateLayout)]
}

// NextTradingDay returns the first trading day on or after t.
func (c *Calendar) NextTradingDay(t time.Time) time.Time {
	t = dateOnly(t.In(c.loc))
	for !c.IsTradingDay(t) {
		t = t.AddDate(0, 0, 1)
	}
	return t
}

// PreviousTradingDay returns the trading day immediately before t,
// regardless of whether t itself is a trading day.
func (c *Calendar) PreviousTradingDay(t time.Time) time.Time {
	t = dateOnly(t.In(c.loc)).AddDate(0, 0, -1)
	for !c.IsTradingDay(t) {
		t = t.AddDate(0, 0, -1)
	}
	return t
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
