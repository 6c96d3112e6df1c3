// Package loader pulls bounded time windows of quotations from a
// QuotationSource and returns them in trade-time order; the coordinator
// feeds them into the buffer.
package loader

import (
	"context"
	"fmt"
	"time"

	"github.com/quantreplay/replay-engine/internal/quotation"
	"github.com/quantreplay/replay-engine/internal/source"
)

// LoadError is surfaced to the coordinator when a source query fails; the
// loader never retries internally.
type LoadError struct {
	Window quotation.Window
	Cause  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load window [%s, %s): %v", e.Window.Start, e.Window.End, e.Cause)
}

func (e *LoadError) Unwrap() error { return e.Cause }

// Loader pulls windows of quotations from a QuotationSource.
type Loader struct {
	src     source.QuotationSource
	symbols []string
}

// New creates a Loader over src, restricted to symbols (nil/empty means
// the whole market).
func New(src source.QuotationSource, symbols []string) *Loader {
	return &Loader{src: src, symbols: symbols}
}

// sessionClose is the daily close time-of-day; the only window boundary
// that is not rewritten by the minus-one-second rule.
const sessionClose = "15:30:00"

// effectiveEnd applies the boundary rewrite rule: windows tile half-open
// [s, s+Δ) but the underlying query is closed [a, b]. To avoid the instant
// s+Δ appearing in two adjacent windows, the query's upper bound is end-1s
// unless end lands exactly on the session close, in which case the final
// second of the trading day must still be included.
func effectiveEnd(end time.Time) time.Time {
	if end.Second() == 0 && end.Format("15:04:05") != sessionClose {
		return end.Add(-time.Second)
	}
	return end
}

// LoadWindow fetches the ordered sequence of records for w, applying the
// boundary rewrite and the configured symbol allow-list.
func (l *Loader) LoadWindow(ctx context.Context, w quotation.Window) ([]quotation.Record, error) {
	end := effectiveEnd(w.End)
	records, err := l.src.GetByTimeRange(ctx, w.Start, end, l.symbols)
	if err != nil {
		return nil, &LoadError{Window: w, Cause: err}
	}
	return records, nil
}
