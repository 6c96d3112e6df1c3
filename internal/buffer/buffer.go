// Package buffer implements the bounded, time-ordered queue between the
// loader and the pacer. Exactly one producer (loader) and one consumer
// (pacer) use a Buffer at a time.
package buffer

import (
	"sync"
	"time"

	"github.com/quantreplay/replay-engine/internal/quotation"
)

// Buffer is a bounded FIFO ordered by quotation trade time, with
// capacity back-pressure. Internal synchronization is a single mutex plus
// two condition variables (not-full, not-empty), per the concurrency
// model this component is specified against.
type Buffer struct {
	mu       sync.Mutex
	notFull  *sync.Cond
	notEmpty *sync.Cond

	records []quotation.Record
	maxSize int
	closed  bool
}

// New creates a Buffer with the given capacity.
func New(maxSize int) *Buffer {
	b := &Buffer{maxSize: maxSize}
	b.notFull = sync.NewCond(&b.mu)
	b.notEmpty = sync.NewCond(&b.mu)
	return b
}

// Offer appends batch to the buffer, blocking while size+len(batch) would
// exceed maxSize. This is the sole mechanism throttling the loader. Offer
// returns false without enqueuing if the buffer has been closed.
func (b *Buffer) Offer(batch []quotation.Record) bool {
	if len(batch) == 0 {
		return true
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	for len(b.records)+len(batch) > b.maxSize && !b.closed {
		b.notFull.Wait()
	}
	if b.closed {
		return false
	}

	b.records = append(b.records, batch...)
	b.notEmpty.Broadcast()
	return true
}

// DrainDue returns all records whose TradeTime is <= virtualNow, in
// non-decreasing TradeTime order, removing them from the buffer. It
// returns immediately (never blocks) even if nothing is due.
func (b *Buffer) DrainDue(virtualNow time.Time) []quotation.Record {
	b.mu.Lock()
	defer b.mu.Unlock()

	cut := 0
	for cut < len(b.records) && !b.records[cut].TradeTime.After(virtualNow) {
		cut++
	}
	if cut == 0 {
		return nil
	}

	due := make([]quotation.Record, cut)
	copy(due, b.records[:cut])
	b.records = b.records[cut:]

	b.notFull.Broadcast()
	return due
}

// Cap reports the buffer's configured capacity. Producers feeding batches
// larger than this must chunk them themselves: Offer blocks on
// size+len(batch) > maxSize regardless of how much the buffer later drains,
// so a single over-sized batch can never be admitted.
func (b *Buffer) Cap() int {
	return b.maxSize
}

// Len reports the current buffer depth.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.records)
}

// PeekEarliest returns the trade time of the oldest buffered record without
// removing it. ok is false when the buffer is empty. The pacer uses this to
// jump its virtual clock straight to the next available record under
// maximum-speed replay instead of busy-polling.
func (b *Buffer) PeekEarliest() (time.Time, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.records) == 0 {
		return time.Time{}, false
	}
	return b.records[0].TradeTime, true
}

// Close wakes any blocked Offer call so producers can observe cancellation.
// Further Offer calls return false without blocking.
func (b *Buffer) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.notFull.Broadcast()
	b.notEmpty.Broadcast()
}
