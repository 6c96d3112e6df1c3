package pacer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/quantreplay/replay-engine/internal/quotation"
)

// fakeBuffer is a minimal in-memory stand-in for *buffer.Buffer, sorted by
// TradeTime, sufficient to exercise the pacer's drain/peek contract.
type fakeBuffer struct {
	mu      sync.Mutex
	records []quotation.Record
}

func newFakeBuffer(recs ...quotation.Record) *fakeBuffer {
	return &fakeBuffer{records: recs}
}

func (f *fakeBuffer) DrainDue(virtualNow time.Time) []quotation.Record {
	f.mu.Lock()
	defer f.mu.Unlock()
	cut := 0
	for cut < len(f.records) && !f.records[cut].TradeTime.After(virtualNow) {
		cut++
	}
	if cut == 0 {
		return nil
	}
	due := make([]quotation.Record, cut)
	copy(due, f.records[:cut])
	f.records = f.records[cut:]
	return due
}

func (f *fakeBuffer) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.records)
}

func (f *fakeBuffer) PeekEarliest() (time.Time, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.records) == 0 {
		return time.Time{}, false
	}
	return f.records[0].TradeTime, true
}

func rec(windCode string, sec int) quotation.Record {
	return quotation.Record{
		WindCode:  windCode,
		TradeTime: time.Date(2026, 1, 18, 9, 30, sec, 0, time.UTC),
	}
}

func TestRunDayMaxSpeedEmitsAllRecordsInOrder(t *testing.T) {
	buf := newFakeBuffer(rec("000001.SZ", 0), rec("000001.SZ", 1), rec("000001.SZ", 2))
	var mu sync.Mutex
	var published []quotation.Record
	publish := func(ctx context.Context, r quotation.Record) error {
		mu.Lock()
		published = append(published, r)
		mu.Unlock()
		return nil
	}

	p := New(buf, publish, 0, Hooks{})
	loaderDone := make(chan struct{})
	close(loaderDone)

	sessionClose := time.Date(2026, 1, 18, 15, 30, 0, 0, time.UTC)
	dayStart := time.Date(2026, 1, 18, 9, 30, 0, 0, time.UTC)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	completed, err := p.RunDay(ctx, dayStart, sessionClose, loaderDone)
	if err != nil {
		t.Fatalf("RunDay: %v", err)
	}
	if !completed {
		t.Fatal("expected day to complete")
	}
	if len(published) != 3 {
		t.Fatalf("expected 3 published records, got %d", len(published))
	}
	for i := 0; i < len(published)-1; i++ {
		if published[i].TradeTime.After(published[i+1].TradeTime) {
			t.Fatalf("records emitted out of order: %v", published)
		}
	}
	if p.EmittedCount() != 3 {
		t.Errorf("EmittedCount = %d, want 3", p.EmittedCount())
	}
}

func TestRunDayNoEarlyEmission(t *testing.T) {
	buf := newFakeBuffer(rec("000001.SZ", 0), rec("000001.SZ", 5), rec("000001.SZ", 10))
	var mu sync.Mutex
	var emittedAt []time.Time
	publish := func(ctx context.Context, r quotation.Record) error {
		mu.Lock()
		emittedAt = append(emittedAt, r.TradeTime)
		mu.Unlock()
		return nil
	}

	// speed 10: the 15s of virtual time to session close take ~1.5s of wall
	// time, well inside the 5s context deadline below.
	p := New(buf, publish, 10, Hooks{})
	loaderDone := make(chan struct{})
	close(loaderDone)

	dayStart := time.Date(2026, 1, 18, 9, 30, 0, 0, time.UTC)
	sessionClose := dayStart.Add(15 * time.Second)

	var lastVirtual time.Time
	var vmu sync.Mutex
	hooks := Hooks{OnVirtualNow: func(t time.Time) {
		vmu.Lock()
		lastVirtual = t
		vmu.Unlock()
	}}
	p.hooks = hooks

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := p.RunDay(ctx, dayStart, sessionClose, loaderDone)
	if err != nil {
		t.Fatalf("RunDay: %v", err)
	}

	vmu.Lock()
	defer vmu.Unlock()
	for _, et := range emittedAt {
		if lastVirtual.Before(et) {
			// lastVirtual is the final observed virtual time; at the moment
			// each record was emitted virtualNow was >= its trade time by
			// construction of DrainDue, so this is a sanity check that the
			// clock never finished behind the last emission.
			t.Errorf("final virtual time %v is before an emitted record's trade time %v", lastVirtual, et)
		}
	}
}

func TestRunDaySpeedLawAdvancesProportionally(t *testing.T) {
	// With speed=5 over ~300ms of wall time (3 ticks of 100ms), virtual time
	// should advance by roughly 5*300ms = 1.5s, within one tick's slop.
	buf := newFakeBuffer() // no records; we only care about clock advance
	publish := func(ctx context.Context, r quotation.Record) error { return nil }

	p := New(buf, publish, 5, Hooks{})
	loaderDone := make(chan struct{}) // never closes: day won't auto-complete

	dayStart := time.Date(2026, 1, 18, 9, 30, 0, 0, time.UTC)
	sessionClose := dayStart.Add(time.Hour)

	var mu sync.Mutex
	var last time.Time
	p.hooks = Hooks{OnVirtualNow: func(t time.Time) {
		mu.Lock()
		last = t
		mu.Unlock()
	}}

	ctx, cancel := context.WithTimeout(context.Background(), 350*time.Millisecond)
	defer cancel()

	_, err := p.RunDay(ctx, dayStart, sessionClose, loaderDone)
	if err != nil && !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("RunDay: %v", err)
	}

	mu.Lock()
	advanced := last.Sub(dayStart)
	mu.Unlock()

	want := 5 * 300 * time.Millisecond
	slop := 5 * tickInterval
	if advanced < want-slop || advanced > want+slop {
		t.Errorf("virtual time advanced %v, want ~%v (±%v)", advanced, want, slop)
	}
}

func TestRunDayDropsAreCountedNotRetried(t *testing.T) {
	buf := newFakeBuffer(rec("000001.SZ", 0))
	publish := func(ctx context.Context, r quotation.Record) error {
		return errors.New("broker unreachable")
	}

	var dropped []quotation.Record
	p := New(buf, publish, 0, Hooks{OnDrop: func(r quotation.Record, err error) {
		dropped = append(dropped, r)
	}})
	loaderDone := make(chan struct{})
	close(loaderDone)

	dayStart := time.Date(2026, 1, 18, 9, 30, 0, 0, time.UTC)
	sessionClose := dayStart.Add(time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	completed, err := p.RunDay(ctx, dayStart, sessionClose, loaderDone)
	if err != nil {
		t.Fatalf("RunDay: %v", err)
	}
	if !completed {
		t.Fatal("expected day to complete despite drops")
	}
	if p.DroppedCount() != 1 {
		t.Errorf("DroppedCount = %d, want 1", p.DroppedCount())
	}
	if p.EmittedCount() != 0 {
		t.Errorf("EmittedCount = %d, want 0", p.EmittedCount())
	}
	if len(dropped) != 1 {
		t.Errorf("expected 1 drop callback, got %d", len(dropped))
	}
}

func TestRunDayRespectsCancellation(t *testing.T) {
	buf := newFakeBuffer()
	publish := func(ctx context.Context, r quotation.Record) error { return nil }
	p := New(buf, publish, 1, Hooks{})
	loaderDone := make(chan struct{}) // never closes

	dayStart := time.Date(2026, 1, 18, 9, 30, 0, 0, time.UTC)
	sessionClose := dayStart.Add(time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(30 * time.Millisecond)
		cancel()
	}()

	completed, err := p.RunDay(ctx, dayStart, sessionClose, loaderDone)
	if completed {
		t.Fatal("expected RunDay to not complete after cancellation")
	}
	if err == nil {
		t.Fatal("expected error after cancellation")
	}
}
