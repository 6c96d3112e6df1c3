// Package pacer advances a virtual clock in quotation-timestamp order,
// draining due records from the buffer and handing them to the broker at a
// configurable speed multiplier.
package pacer

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/quantreplay/replay-engine/internal/quotation"
)

// tickInterval is the wall-clock cadence the virtual clock advances on, per
// spec.md §4.3.
const tickInterval = 100 * time.Millisecond

// idlePoll is how long RunDay sleeps between checks when running at maximum
// speed (speed=0) and the buffer is temporarily empty but the loader has not
// yet signalled it is done feeding the day. It is small relative to
// tickInterval because speed=0 runs should never be artificially slowed.
const idlePoll = 2 * time.Millisecond

// Buffer is the narrow slice of *buffer.Buffer the pacer consumes.
type Buffer interface {
	DrainDue(virtualNow time.Time) []quotation.Record
	Len() int
	PeekEarliest() (time.Time, bool)
}

// PublishFunc publishes a single record. A non-nil error means the record
// was dropped (retries, if any, already happened inside PublishFunc).
type PublishFunc func(ctx context.Context, rec quotation.Record) error

// Hooks lets callers observe pacer activity (metrics, status broadcast)
// without the pacer depending on those packages directly. Every field is
// optional.
type Hooks struct {
	OnEmit        func(rec quotation.Record)
	OnDrop        func(rec quotation.Record, err error)
	OnBufferDepth func(depth int)
	OnVirtualNow  func(t time.Time)
}

// Pacer drains a Buffer in quotation-timestamp order and publishes each
// record, advancing a virtual clock at speedMultiplier times wall-clock
// speed. One Pacer is reused across the trading days of a single run.
type Pacer struct {
	buf     Buffer
	publish PublishFunc
	speed   int
	hooks   Hooks

	emitted int64
	dropped int64
}

// New creates a Pacer draining buf at the given speed multiplier.
// speedMultiplier=0 means maximum speed (no pacing).
func New(buf Buffer, publish PublishFunc, speedMultiplier int, hooks Hooks) *Pacer {
	return &Pacer{buf: buf, publish: publish, speed: speedMultiplier, hooks: hooks}
}

// EmittedCount returns the number of records successfully published so far
// across the lifetime of this Pacer.
func (p *Pacer) EmittedCount() int64 { return atomic.LoadInt64(&p.emitted) }

// DroppedCount returns the number of records dropped (publish exhausted
// retries) across the lifetime of this Pacer.
func (p *Pacer) DroppedCount() int64 { return atomic.LoadInt64(&p.dropped) }

// RunDay drains and emits records for a single trading day. dayStart is the
// virtual clock's initial value; the coordinator passes the session open, and
// with speedMultiplier > 0 the clock does not jump ahead to the first buffered
// record, so emission waits until the clock reaches it. sessionClose is that
// day's 15:30:00. loaderDone must be closed once the loader has
// finished feeding every window for this day into the buffer — RunDay only
// treats an empty buffer as "day complete" after that signal, so it never
// mistakes transient back-pressure lulls for the end of the day.
//
// RunDay returns when the day is fully drained (completed=true) or ctx is
// cancelled (completed=false, err=ctx.Err()).
func (p *Pacer) RunDay(ctx context.Context, dayStart, sessionClose time.Time, loaderDone <-chan struct{}) (completed bool, err error) {
	virtualNow := dayStart
	loaderFinished := false

	var ticker *time.Ticker
	if p.speed > 0 {
		ticker = time.NewTicker(tickInterval)
		defer ticker.Stop()
	}

	for {
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		default:
		}

		if !loaderFinished {
			select {
			case <-loaderDone:
				loaderFinished = true
			default:
			}
		}

		due := p.buf.DrainDue(virtualNow)
		for _, rec := range due {
			p.emit(ctx, rec)
		}
		if p.hooks.OnBufferDepth != nil {
			p.hooks.OnBufferDepth(p.buf.Len())
		}
		if p.hooks.OnVirtualNow != nil {
			p.hooks.OnVirtualNow(virtualNow)
		}

		if !virtualNow.Before(sessionClose) && loaderFinished && p.buf.Len() == 0 {
			return true, nil
		}

		if p.speed == 0 {
			virtualNow = p.advanceMaxSpeed(virtualNow, due, sessionClose, loaderFinished)
			if len(due) == 0 && p.buf.Len() == 0 && !loaderFinished {
				select {
				case <-ctx.Done():
					return false, ctx.Err()
				case <-time.After(idlePoll):
				}
			}
			continue
		}

		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-ticker.C:
			virtualNow = virtualNow.Add(time.Duration(p.speed) * tickInterval)
		}
	}
}

// advanceMaxSpeed computes the next virtual clock value under speed=0:
// immediately after a drain, virtualNow jumps to the last drained record's
// trade time plus one second. If nothing was due this cycle, it jumps
// straight to the earliest buffered record instead of busy-polling one
// second at a time; if the buffer is empty and the loader is done, it jumps
// to session close so the day-completion check above can fire.
func (p *Pacer) advanceMaxSpeed(virtualNow time.Time, due []quotation.Record, sessionClose time.Time, loaderFinished bool) time.Time {
	if len(due) > 0 {
		last := due[len(due)-1].TradeTime.Add(time.Second)
		if last.After(virtualNow) {
			return last
		}
		return virtualNow
	}
	if t, ok := p.buf.PeekEarliest(); ok {
		return t
	}
	if loaderFinished {
		return sessionClose
	}
	return virtualNow
}

// emit publishes a single record, routing failures to the drop hook and
// never retrying at this layer — at-most-once emission per record.
func (p *Pacer) emit(ctx context.Context, rec quotation.Record) {
	if err := p.publish(ctx, rec); err != nil {
		atomic.AddInt64(&p.dropped, 1)
		if p.hooks.OnDrop != nil {
			p.hooks.OnDrop(rec, err)
		}
		return
	}
	atomic.AddInt64(&p.emitted, 1)
	if p.hooks.OnEmit != nil {
		p.hooks.OnEmit(rec)
	}
}
