package preheat

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/quantreplay/replay-engine/internal/calendar"
	"github.com/quantreplay/replay-engine/internal/kv"
	"github.com/quantreplay/replay-engine/internal/quotation"
)

// fakeSource serves canned records for any requested window, keyed by the
// day (yyyyMMdd) the window's start falls on.
type fakeSource struct {
	byDay map[string][]quotation.Record
}

func (f *fakeSource) GetByTimeRange(ctx context.Context, start, end time.Time, symbols []string) ([]quotation.Record, error) {
	day := start.Format(quotation.DateLayout)
	records := f.byDay[day]
	if len(symbols) == 0 {
		return records, nil
	}
	allow := make(map[string]bool, len(symbols))
	for _, s := range symbols {
		allow[s] = true
	}
	var out []quotation.Record
	for _, r := range records {
		if allow[r.WindCode] {
			out = append(out, r)
		}
	}
	return out, nil
}

// fakeKV is an in-memory stand-in for kv.Store, used by this package's
// tests wherever a real Redis round trip isn't under test.
type fakeKV struct {
	values map[string]string
	lists  map[string][]string
}

func newFakeKV() *fakeKV {
	return &fakeKV{values: make(map[string]string), lists: make(map[string][]string)}
}

func (f *fakeKV) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	f.values[key] = value
	return nil
}

func (f *fakeKV) SetList(ctx context.Context, key string, values []string, ttl time.Duration) error {
	f.lists[key] = append([]string(nil), values...)
	return nil
}

func (f *fakeKV) Get(ctx context.Context, key string) (string, bool, error) {
	v, ok := f.values[key]
	return v, ok, nil
}

func (f *fakeKV) GetList(ctx context.Context, key string) ([]string, bool, error) {
	v, ok := f.lists[key]
	return v, ok, nil
}

var _ kv.Store = (*fakeKV)(nil)

func TestPrecloseTaskWarmsFromPreviousDay(t *testing.T) {
	loc := time.UTC
	cal := calendar.New(loc)
	targetDate := time.Date(2026, 1, 20, 0, 0, 0, 0, loc) // Tuesday
	prevDay := time.Date(2026, 1, 19, 0, 0, 0, 0, loc)    // Monday

	src := &fakeSource{byDay: map[string][]quotation.Record{
		prevDay.Format(quotation.DateLayout): {
			{WindCode: "000300.SH", TradeTime: prevDay.Add(14 * time.Hour), LatestPrice: 3800.12},
			{WindCode: "000300.SH", TradeTime: prevDay.Add(15*time.Hour + 29*time.Minute), LatestPrice: 3812.50},
			{WindCode: "600000.SH", TradeTime: prevDay.Add(15 * time.Hour), LatestPrice: 9.87},
		},
	}}
	store := newFakeKV()
	task := &PrecloseTask{Source: src, KV: store, Cal: cal}

	count, err := task.Run(context.Background(), targetDate, []string{"000300.SH"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if count != 1 {
		t.Fatalf("count = %d, want 1", count)
	}
	val, ok, _ := store.Get(context.Background(), kv.PrecloseKey("000300.SH"))
	if !ok || val != "3812.5" {
		t.Fatalf("preclose = %q, ok=%v, want 3812.5", val, ok)
	}
}

func TestNineTurnTaskSeedsTrailingWindow(t *testing.T) {
	loc := time.UTC
	cal := calendar.New(loc)
	targetDate := time.Date(2026, 1, 21, 0, 0, 0, 0, loc)

	byDay := map[string][]quotation.Record{}
	day := cal.PreviousTradingDay(targetDate)
	for i := 0; i < nineTurnWindow; i++ {
		byDay[day.Format(quotation.DateLayout)] = []quotation.Record{
			{WindCode: "000001.SZ", TradeTime: day.Add(15 * time.Hour), LatestPrice: float64(10 + i)},
		}
		day = cal.PreviousTradingDay(day)
	}

	src := &fakeSource{byDay: byDay}
	store := newFakeKV()
	task := &NineTurnTask{Source: src, KV: store, Cal: cal}

	count, err := task.Run(context.Background(), targetDate, []string{"000001.SZ"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if count != 1 {
		t.Fatalf("count = %d, want 1", count)
	}

	raw, ok, _ := store.GetList(context.Background(), kv.NineTurnKey("000001.SZ"))
	if !ok {
		t.Fatal("expected nine-turn series to be written")
	}
	if len(raw) != nineTurnWindow {
		t.Fatalf("series length = %d, want %d", len(raw), nineTurnWindow)
	}
	// newest-last: the series walked backward from targetDate, so the last
	// element corresponds to i=0 (the closest trading day).
	if raw[len(raw)-1] != "10" {
		t.Errorf("newest entry = %q, want 10", raw[len(raw)-1])
	}
}

func TestMovingAverageTaskWritesJSONEncodableList(t *testing.T) {
	loc := time.UTC
	cal := calendar.New(loc)
	targetDate := time.Date(2026, 1, 21, 0, 0, 0, 0, loc)

	byDay := map[string][]quotation.Record{}
	day := cal.PreviousTradingDay(targetDate)
	for i := 0; i < movingAverageWindow; i++ {
		byDay[day.Format(quotation.DateLayout)] = []quotation.Record{
			{WindCode: "600000.SH", TradeTime: day.Add(15 * time.Hour), LatestPrice: 9.5},
		}
		day = cal.PreviousTradingDay(day)
	}

	src := &fakeSource{byDay: byDay}
	store := newFakeKV()
	task := &MovingAverageTask{Source: src, KV: store, Cal: cal}

	if _, err := task.Run(context.Background(), targetDate, []string{"600000.SH"}); err != nil {
		t.Fatalf("Run: %v", err)
	}

	series, ok, _ := store.GetList(context.Background(), kv.MovingAverageKey("600000.SH"))
	if !ok || len(series) != movingAverageWindow {
		t.Fatalf("series = %v (ok=%v), want length %d", series, ok, movingAverageWindow)
	}
	if _, err := json.Marshal(series); err != nil {
		t.Fatalf("series not JSON-encodable: %v", err)
	}
}

func TestPrecloseTaskSkipsWhenNoIndexSymbols(t *testing.T) {
	loc := time.UTC
	cal := calendar.New(loc)
	targetDate := time.Date(2026, 1, 20, 0, 0, 0, 0, loc)

	src := &fakeSource{byDay: map[string][]quotation.Record{}}
	store := newFakeKV()
	task := &PrecloseTask{Source: src, KV: store, Cal: cal}

	count, err := task.Run(context.Background(), targetDate, []string{"600000.SH"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if count != 0 {
		t.Fatalf("count = %d, want 0", count)
	}
}
