package coordinator

import (
	"time"

	"github.com/quantreplay/replay-engine/internal/quotation"
)

// marketOpen and marketClose bound a trading day's emission window. Close
// matches quotation.SessionClose exactly; it is the only boundary the
// loader's minus-one-second rewrite does not touch.
const (
	marketOpenHour, marketOpenMinute   = 9, 30
	marketCloseHour, marketCloseMinute = 15, 30
)

// dayBounds returns the first and last instants of day's trading session.
func dayBounds(loc *time.Location, day time.Time) (open, sessionClose time.Time) {
	y, m, d := day.In(loc).Date()
	open = time.Date(y, m, d, marketOpenHour, marketOpenMinute, 0, 0, loc)
	sessionClose = time.Date(y, m, d, marketCloseHour, marketCloseMinute, 0, 0, loc)
	return open, sessionClose
}

// tileWindows splits [open, sessionClose) into adjacent, non-overlapping
// windows of width preloadMinutes, per spec.md §3's TimeWindow tiling rule.
// The final window ends exactly at sessionClose even if that makes it
// narrower than the configured width.
func tileWindows(open, sessionClose time.Time, preloadMinutes int) []quotation.Window {
	width := time.Duration(preloadMinutes) * time.Minute
	var windows []quotation.Window
	cur := open
	for cur.Before(sessionClose) {
		end := cur.Add(width)
		if end.After(sessionClose) {
			end = sessionClose
		}
		windows = append(windows, quotation.Window{Start: cur, End: end})
		cur = end
	}
	return windows
}
