package quotation

import "time"

// Window is a half-open virtual-time interval [Start, End) used to batch
// source queries. Adjacent windows tile a trading day with no gaps and no
// overlaps.
type Window struct {
	Start time.Time
	End   time.Time
}

// Next returns the window immediately following w, of the same width.
func (w Window) Next() Window {
	width := w.End.Sub(w.Start)
	return Window{Start: w.End, End: w.End.Add(width)}
}
