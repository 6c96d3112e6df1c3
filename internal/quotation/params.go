package quotation

import (
	"fmt"
	"strings"
	"time"
)

// SessionClose is the daily trading-session close, the only per-day
// timestamp that survives the loader's boundary-rule subtraction.
const SessionClose = "15:30:00"

// Params holds the immutable inputs to a single replay run. Validate must
// be called (and must succeed) before a run is started.
type Params struct {
	StartDate       string // yyyyMMdd, inclusive
	EndDate         string // yyyyMMdd, inclusive
	SpeedMultiplier int    // 1 = real-time, k>1 = k times faster, 0 = max speed
	PreloadMinutes  int    // window width in minutes, [1, 60]
	BufferMaxSize   int    // back-pressure threshold, >= 1000
	StockCodes      string // comma-separated allow-list; empty = whole market
}

// Symbols splits StockCodes into a trimmed allow-list. Returns nil (meaning
// "whole market") when StockCodes is empty.
func (p Params) Symbols() []string {
	if strings.TrimSpace(p.StockCodes) == "" {
		return nil
	}
	parts := strings.Split(p.StockCodes, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate checks the rules from the replay parameter contract: start <=
// end, non-negative speed, a preload window in [1, 60] minutes, and a
// buffer of at least 1000 records. A window may still return more rows than
// the buffer holds; the coordinator feeds such windows in chunks.
func (p Params) Validate(loc *time.Location) error {
	start, err := ParseDate(p.StartDate, loc)
	if err != nil {
		return fmt.Errorf("invalid startDate %q: %w", p.StartDate, err)
	}
	end, err := ParseDate(p.EndDate, loc)
	if err != nil {
		return fmt.Errorf("invalid endDate %q: %w", p.EndDate, err)
	}
	if start.After(end) {
		return fmt.Errorf("startDate %s is after endDate %s", p.StartDate, p.EndDate)
	}
	if p.SpeedMultiplier < 0 {
		return fmt.Errorf("speedMultiplier must be >= 0, got %d", p.SpeedMultiplier)
	}
	if p.PreloadMinutes < 1 || p.PreloadMinutes > 60 {
		return fmt.Errorf("preloadMinutes must be in [1, 60], got %d", p.PreloadMinutes)
	}
	if p.BufferMaxSize < 1000 {
		return fmt.Errorf("bufferMaxSize must be >= 1000, got %d", p.BufferMaxSize)
	}
	return nil
}
