package preheat

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/quantreplay/replay-engine/internal/calendar"
	"github.com/quantreplay/replay-engine/internal/kv"
	"github.com/quantreplay/replay-engine/internal/quotation"
	"github.com/quantreplay/replay-engine/internal/source"
)

// dayBounds returns the start and end of a full trading day query against the source,
// independent of the replay window tiling used during emission.
func dayBounds(loc *time.Location, day time.Time) (time.Time, time.Time) {
	y, m, d := day.In(loc).Date()
	start := time.Date(y, m, d, 9, 30, 0, 0, loc)
	end := time.Date(y, m, d, 15, 30, 0, 0, loc)
	return start, end
}

func formatDecimal(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// PrecloseTask warms index:preclose:{windCode} from each index's final
// print on the previous trading day.
type PrecloseTask struct {
	Source source.QuotationSource
	KV     kv.Store
	Cal    *calendar.Calendar
}

func (t *PrecloseTask) ID() string { return "index-preclose" }

func (t *PrecloseTask) Run(ctx context.Context, targetDate time.Time, symbols []string) (int, error) {
	prevDay := t.Cal.PreviousTradingDay(targetDate)
	start, end := dayBounds(targetDate.Location(), prevDay)

	indexSymbols := filterIndexSymbols(symbols)
	if len(indexSymbols) == 0 {
		return 0, nil
	}
	records, err := t.Source.GetByTimeRange(ctx, start, end, indexSymbols)
	if err != nil {
		return 0, fmt.Errorf("query previous close: %w", err)
	}

	lastByCode := lastRecordPerSymbol(records)
	written := 0
	for code, rec := range lastByCode {
		if err := t.KV.Set(ctx, kv.PrecloseKey(code), formatDecimal(rec.LatestPrice), kv.PreheatTTL); err != nil {
			return written, fmt.Errorf("write preclose for %s: %w", code, err)
		}
		written++
	}
	return written, nil
}

// NineTurnTask warms strategy:nineturn:{windCode} with the trailing 20
// closing prices, oldest first, used as the seed window for a Demark-style
// sequential count by downstream strategy consumers.
type NineTurnTask struct {
	Source source.QuotationSource
	KV     kv.Store
	Cal    *calendar.Calendar
}

const nineTurnWindow = 20

func (t *NineTurnTask) ID() string { return "strategy-nineturn" }

func (t *NineTurnTask) Run(ctx context.Context, targetDate time.Time, symbols []string) (int, error) {
	return seedTrailingSeries(ctx, t.Source, t.KV, t.Cal, targetDate, symbols, nineTurnWindow, kv.NineTurnKey)
}

// MovingAverageTask warms strategy:ma:{windCode} with the trailing 59
// closing prices feeding a moving-average strategy's warm-start window.
type MovingAverageTask struct {
	Source source.QuotationSource
	KV     kv.Store
	Cal    *calendar.Calendar
}

const movingAverageWindow = 59

func (t *MovingAverageTask) ID() string { return "strategy-ma" }

func (t *MovingAverageTask) Run(ctx context.Context, targetDate time.Time, symbols []string) (int, error) {
	return seedTrailingSeries(ctx, t.Source, t.KV, t.Cal, targetDate, symbols, movingAverageWindow, kv.MovingAverageKey)
}

// seedTrailingSeries is shared by the two sequence-warming tasks: both pull
// the trailing N trading days' closes per symbol and write them as a
// newest-last JSON array under a task-specific key.
// maxLookbackDays bounds the backward scan for trailing-series seeding so a
// symbol with no history doesn't turn a preheat task into an unbounded loop.
const maxLookbackDays = 180

func seedTrailingSeries(ctx context.Context, src source.QuotationSource, store kv.Store, cal *calendar.Calendar, targetDate time.Time, symbols []string, window int, keyFor func(string) string) (int, error) {
	day := cal.PreviousTradingDay(targetDate)
	bySymbol := make(map[string][]string)

	for scanned := 0; scanned < maxLookbackDays && (len(bySymbol) == 0 || anyShortOfWindow(bySymbol, window)); scanned++ {
		start, end := dayBounds(targetDate.Location(), day)
		records, err := src.GetByTimeRange(ctx, start, end, symbols)
		if err != nil {
			return 0, fmt.Errorf("query trailing series on %s: %w", day.Format(quotation.DateLayout), err)
		}
		for code, rec := range lastRecordPerSymbol(records) {
			bySymbol[code] = append([]string{formatDecimal(rec.LatestPrice)}, bySymbol[code]...)
			if len(bySymbol[code]) > window {
				bySymbol[code] = bySymbol[code][len(bySymbol[code])-window:]
			}
		}

		prev := cal.PreviousTradingDay(day)
		if prev.Equal(day) {
			break // calendar cannot go back further; seed with what we have
		}
		day = prev
	}

	written := 0
	for code, series := range bySymbol {
		if err := store.SetList(ctx, keyFor(code), series, kv.PreheatTTL); err != nil {
			return written, fmt.Errorf("write series for %s: %w", code, err)
		}
		written++
	}
	return written, nil
}

func anyShortOfWindow(bySymbol map[string][]string, window int) bool {
	for _, series := range bySymbol {
		if len(series) < window {
			return true
		}
	}
	return false
}

func lastRecordPerSymbol(records []quotation.Record) map[string]quotation.Record {
	last := make(map[string]quotation.Record)
	for _, rec := range records {
		cur, ok := last[rec.WindCode]
		if !ok || rec.TradeTime.After(cur.TradeTime) {
			last[rec.WindCode] = rec
		}
	}
	return last
}

// filterIndexSymbols narrows symbols to the index wind codes among them.
// An empty symbols slice means "whole market" rather than "no filter" to
// GetByTimeRange, so it is replaced with the known index code list instead
// of passed through as nil — otherwise the preclose task would warm every
// equity's closing price under an index key too. A non-empty allow-list with
// no index codes in it yields an empty result, and PrecloseTask then skips.
func filterIndexSymbols(symbols []string) []string {
	if len(symbols) == 0 {
		return quotation.IndexCodes()
	}
	filtered := make([]string, 0, len(symbols))
	for _, s := range symbols {
		if quotation.IsIndex(s) {
			filtered = append(filtered, s)
		}
	}
	return filtered
}
