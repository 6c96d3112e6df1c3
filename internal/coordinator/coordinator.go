// Package coordinator owns the replay run lifecycle: the state machine in
// spec.md §4.4, wiring the loader, buffer, pacer, preheater registry, and
// broker publisher into one running pipeline, and exposing the minimal
// start/stop/status contract spec.md §6 requires.
package coordinator

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/quantreplay/replay-engine/internal/broker"
	"github.com/quantreplay/replay-engine/internal/buffer"
	"github.com/quantreplay/replay-engine/internal/calendar"
	"github.com/quantreplay/replay-engine/internal/loader"
	"github.com/quantreplay/replay-engine/internal/metrics"
	"github.com/quantreplay/replay-engine/internal/pacer"
	"github.com/quantreplay/replay-engine/internal/preheat"
	"github.com/quantreplay/replay-engine/internal/quotation"
	"github.com/quantreplay/replay-engine/internal/source"
)

// RunRecorder persists the outcome of a completed run. Implementations
// (e.g. a Mongo-backed run store) satisfy this structurally — no import of
// this package is required, which keeps the dependency graph acyclic.
type RunRecorder interface {
	SaveRun(ctx context.Context, runID string, params quotation.Params, emitted, dropped int64, errorCause string, completedAt time.Time) error
}

// Archiver uploads a completed run's manifest to durable storage.
type Archiver interface {
	ArchiveRun(ctx context.Context, runID string, params quotation.Params, emitted, dropped int64, errorCause string, completedAt time.Time) error
}

// Notifier is told about every state change, so a status-stream fan-out can
// push snapshots to subscribers without the coordinator depending on it.
type Notifier interface {
	Notify(State)
}

// Option configures optional Coordinator collaborators.
type Option func(*Coordinator)

// WithRunRecorder attaches a RunRecorder invoked once per completed run.
func WithRunRecorder(r RunRecorder) Option { return func(c *Coordinator) { c.recorder = r } }

// WithArchiver attaches an Archiver invoked once per completed run.
func WithArchiver(a Archiver) Option { return func(c *Coordinator) { c.archiver = a } }

// WithNotifier attaches a Notifier invoked on every phase transition and
// periodically during emission.
func WithNotifier(n Notifier) Option { return func(c *Coordinator) { c.notifier = n } }

// notifyEvery is how often (in emitted records) the coordinator pushes an
// interim status notification during RUNNING, independent of phase changes.
const notifyEvery = 500

// Coordinator is the lifecycle owner described in spec.md §4.4. Only one
// run may be active at a time.
type Coordinator struct {
	loc       *time.Location
	cal       *calendar.Calendar
	src       source.QuotationSource
	publisher broker.Publisher
	registry  *preheat.Registry

	recorder RunRecorder
	archiver Archiver
	notifier Notifier

	mu     sync.Mutex
	state  State
	cancel context.CancelFunc
	buf    *buffer.Buffer
}

// New constructs a Coordinator. loc is the trading calendar's location
// (trading hours are a local-time concept).
func New(loc *time.Location, cal *calendar.Calendar, src source.QuotationSource, publisher broker.Publisher, registry *preheat.Registry, opts ...Option) *Coordinator {
	c := &Coordinator{
		loc:       loc,
		cal:       cal,
		src:       src,
		publisher: publisher,
		registry:  registry,
		state:     State{Phase: Stopped},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Status returns a snapshot of the current replay state.
func (c *Coordinator) Status() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Start validates params and, if no run is active, begins PREPARING
// asynchronously. It returns the new run's ID immediately; callers poll
// Status for progress.
func (c *Coordinator) Start(params quotation.Params) (string, error) {
	c.mu.Lock()
	if c.state.Phase != Stopped && c.state.Phase != Failed && c.state.Phase != "" {
		c.mu.Unlock()
		return "", &ErrAlreadyRunning{}
	}
	if err := params.Validate(c.loc); err != nil {
		c.mu.Unlock()
		return "", &ValidationError{Cause: err}
	}

	runID := uuid.New().String()
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.state = State{RunID: runID, Phase: Preparing}
	c.mu.Unlock()

	c.notify()
	go c.runLoop(ctx, params, runID)
	return runID, nil
}

// Stop requests a cooperative shutdown of the active run. It returns
// immediately; Status transitions to STOPPED once the pipeline has drained.
func (c *Coordinator) Stop() error {
	c.mu.Lock()
	switch c.state.Phase {
	case Preparing, Preheating, Running:
	default:
		c.mu.Unlock()
		return &ErrNotRunning{}
	}
	c.state.Phase = Stopping
	cancel := c.cancel
	buf := c.buf
	c.mu.Unlock()

	c.notify()
	if cancel != nil {
		cancel()
	}
	if buf != nil {
		buf.Close()
	}
	return nil
}

func (c *Coordinator) setPhase(phase Phase) {
	c.mu.Lock()
	c.state.Phase = phase
	c.mu.Unlock()
	c.notify()
}

func (c *Coordinator) notify() {
	if c.notifier == nil {
		return
	}
	c.notifier.Notify(c.Status())
}

// runLoop drives PREHEATING -> RUNNING -> STOPPED/FAILED for one run. It is
// the only goroutine that mutates c.state beyond Stop()'s phase flip to
// STOPPING and the day loader goroutine's LastLoadedWindow updates.
func (c *Coordinator) runLoop(ctx context.Context, params quotation.Params, runID string) {
	startDate, err := quotation.ParseDate(params.StartDate, c.loc)
	if err != nil {
		c.finishFailed(ctx, runID, params, err)
		return
	}
	endDate, err := quotation.ParseDate(params.EndDate, c.loc)
	if err != nil {
		c.finishFailed(ctx, runID, params, err)
		return
	}
	startDate = c.cal.NextTradingDay(startDate)
	endDate = c.cal.NextTradingDay(endDate)

	c.setPhase(Preheating)
	symbols := params.Symbols()
	for _, r := range c.registry.RunAll(ctx, startDate, symbols) {
		if r.Err != nil {
			log.Printf("coordinator: preheat task %s failed (non-fatal): %v", r.TaskID, r.Err)
		}
	}

	select {
	case <-ctx.Done():
		c.finishStopped(ctx, runID, params)
		return
	default:
	}

	c.setPhase(Running)

	buf := buffer.New(params.BufferMaxSize)
	ldr := loader.New(c.src, symbols)
	pc := pacer.New(buf, c.publishFunc, params.SpeedMultiplier, pacer.Hooks{
		OnEmit:        c.onEmit,
		OnDrop:        c.onDrop,
		OnBufferDepth: c.onBufferDepth,
		OnVirtualNow:  c.onVirtualNow,
	})
	c.mu.Lock()
	c.buf = buf
	c.mu.Unlock()

	day := startDate
	for !day.After(endDate) {
		if !c.cal.IsTradingDay(day) {
			day = day.AddDate(0, 0, 1)
			continue
		}

		open, sessionClose := dayBounds(c.loc, day)
		loaderDone := make(chan struct{})
		loadErrCh := make(chan error, 1)
		go func() {
			defer close(loaderDone)
			loadErrCh <- c.runDayLoader(ctx, ldr, buf, open, sessionClose, params.PreloadMinutes)
		}()

		completed, runErr := pc.RunDay(ctx, open, sessionClose, loaderDone)
		loadErr := <-loadErrCh

		if runErr != nil {
			if errors.Is(runErr, context.Canceled) {
				c.finishStopped(ctx, runID, params)
				return
			}
			c.finishFailed(ctx, runID, params, runErr)
			return
		}
		if loadErr != nil && !errors.Is(loadErr, context.Canceled) {
			c.finishFailed(ctx, runID, params, loadErr)
			return
		}
		if !completed {
			c.finishStopped(ctx, runID, params)
			return
		}

		day = day.AddDate(0, 0, 1)
	}

	c.finishStopped(ctx, runID, params)
}

// runDayLoader pulls every window of a trading day into buf in order,
// retrying a failed window exactly once before surfacing a LoadError —
// spec.md §7's "retried once per window, then coordinator transitions to
// FAILED" rule.
func (c *Coordinator) runDayLoader(ctx context.Context, ldr *loader.Loader, buf *buffer.Buffer, open, sessionClose time.Time, preloadMinutes int) error {
	for _, w := range tileWindows(open, sessionClose, preloadMinutes) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		records, err := ldr.LoadWindow(ctx, w)
		if err != nil {
			records, err = ldr.LoadWindow(ctx, w) // one retry, per spec.md §7
			if err != nil {
				return err
			}
		}

		c.mu.Lock()
		c.state.LastLoadedWindow = w
		c.mu.Unlock()

		if !offerChunked(buf, records) {
			return ctx.Err()
		}
	}
	return nil
}

// offerChunked feeds records to buf in slices no larger than buf.Cap(). A
// single window can return more rows than the buffer's configured capacity
// (a whole-market or long window against the spec's minimum 1000-slot
// buffer, for instance); Offer blocks forever on a batch that can never fit
// even against an empty buffer, so the loader must never hand it one in a
// single call. Chunking lets normal back-pressure throttle the loader
// instead.
func offerChunked(buf *buffer.Buffer, records []quotation.Record) bool {
	chunkSize := buf.Cap()
	if chunkSize <= 0 || chunkSize > len(records) {
		chunkSize = len(records)
	}
	for start := 0; start < len(records); start += chunkSize {
		end := start + chunkSize
		if end > len(records) {
			end = len(records)
		}
		if !buf.Offer(records[start:end]) {
			return false
		}
	}
	return true
}

// publishFunc adapts the configured broker.Publisher into the
// pacer.PublishFunc signature, encoding the wire payload and selecting the
// topic by wind-code class.
func (c *Coordinator) publishFunc(ctx context.Context, rec quotation.Record) error {
	return broker.PublishRecord(ctx, c.publisher, rec)
}

func (c *Coordinator) onEmit(rec quotation.Record) {
	c.mu.Lock()
	c.state.EmittedCount++
	count := c.state.EmittedCount
	c.mu.Unlock()
	metrics.EmittedTotal.Inc()
	metrics.RecordPublish(broker.TopicFor(rec.WindCode), false)
	if count%notifyEvery == 0 {
		c.notify()
	}
}

func (c *Coordinator) onDrop(rec quotation.Record, err error) {
	c.mu.Lock()
	c.state.DroppedCount++
	c.mu.Unlock()
	metrics.DroppedTotal.Inc()
	metrics.RecordPublish(broker.TopicFor(rec.WindCode), true)
}

func (c *Coordinator) onBufferDepth(depth int) {
	metrics.BufferDepth.Set(float64(depth))
}

func (c *Coordinator) onVirtualNow(t time.Time) {
	c.mu.Lock()
	c.state.CurrentVirtualTime = t
	c.mu.Unlock()
}

func (c *Coordinator) finishStopped(ctx context.Context, runID string, params quotation.Params) {
	c.mu.Lock()
	c.state.Phase = Stopped
	emitted, dropped := c.state.EmittedCount, c.state.DroppedCount
	c.buf = nil
	c.mu.Unlock()
	c.notify()
	c.recordRun(runID, params, emitted, dropped, "")
}

func (c *Coordinator) finishFailed(ctx context.Context, runID string, params quotation.Params, cause error) {
	c.mu.Lock()
	c.state.Phase = Failed
	c.state.ErrorCause = cause.Error()
	emitted, dropped := c.state.EmittedCount, c.state.DroppedCount
	c.buf = nil
	c.mu.Unlock()
	log.Printf("coordinator: run %s failed: %v", runID, cause)
	c.notify()
	c.recordRun(runID, params, emitted, dropped, cause.Error())
}

// recordRun persists and archives the completed run's manifest, best-effort
// (failures are logged, never promoted to the run's own error state — the
// run has already finished by the time this is called).
func (c *Coordinator) recordRun(runID string, params quotation.Params, emitted, dropped int64, errCause string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	completedAt := time.Now()

	if c.recorder != nil {
		if err := c.recorder.SaveRun(ctx, runID, params, emitted, dropped, errCause, completedAt); err != nil {
			log.Printf("coordinator: save run manifest %s: %v", runID, err)
		}
	}
	if c.archiver != nil {
		if err := c.archiver.ArchiveRun(ctx, runID, params, emitted, dropped, errCause, completedAt); err != nil {
			log.Printf("coordinator: archive run %s: %v", runID, err)
		}
	}
}
