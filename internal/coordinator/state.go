package coordinator

import (
	"time"

	"github.com/quantreplay/replay-engine/internal/quotation"
)

// Phase is one state in the coordinator's lifecycle, per spec.md §4.4.
type Phase string

const (
	Stopped    Phase = "STOPPED"
	Preparing  Phase = "PREPARING"
	Preheating Phase = "PREHEATING"
	Running    Phase = "RUNNING"
	Stopping   Phase = "STOPPING"
	Failed     Phase = "FAILED"
)

// State is the coordinator-owned snapshot of a replay run. Only the
// coordinator mutates it; everyone else reads a copy via Status().
type State struct {
	RunID              string
	Phase              Phase
	CurrentVirtualTime time.Time
	LastLoadedWindow   quotation.Window
	EmittedCount       int64
	DroppedCount       int64
	ErrorCause         string
}
