package source

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/quantreplay/replay-engine/internal/quotation"
)

// RunManifest records the outcome of one completed replay run, written
// once the coordinator reaches STOPPED or FAILED. Grounded on the teacher's
// sim_state upsert pattern in internal/source/store.go's predecessor
// (persist.Snapshotter.Save), generalized from simulator counters to
// replay-run counters.
type RunManifest struct {
	RunID         string    `bson:"run_id"`
	StartDate     string    `bson:"start_date"`
	EndDate       string    `bson:"end_date"`
	EmittedCount  int64     `bson:"emitted_count"`
	DroppedCount  int64     `bson:"dropped_count"`
	ErrorCause    string    `bson:"error_cause,omitempty"`
	CompletedAt   time.Time `bson:"completed_at"`
	ArchiveObject string    `bson:"archive_object,omitempty"`
}

// RunStore persists RunManifest documents.
type RunStore struct {
	store *Store
}

// NewRunStore creates a RunStore backed by store.
func NewRunStore(store *Store) *RunStore {
	return &RunStore{store: store}
}

// Save upserts a run manifest keyed by RunID.
func (s *RunStore) Save(ctx context.Context, m RunManifest) error {
	_, err := s.store.db.Collection(CollectionRuns).UpdateOne(ctx,
		bson.M{"run_id": m.RunID},
		bson.M{"$set": m},
		options.UpdateOne().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("save run manifest %s: %w", m.RunID, err)
	}
	return nil
}

// SaveRun builds a RunManifest from a completed run's counters and upserts
// it. Its signature matches coordinator.RunRecorder structurally, so a
// *RunStore can be passed straight to coordinator.WithRunRecorder without
// either package importing the other.
func (s *RunStore) SaveRun(ctx context.Context, runID string, params quotation.Params, emitted, dropped int64, errorCause string, completedAt time.Time) error {
	return s.Save(ctx, RunManifest{
		RunID:        runID,
		StartDate:    params.StartDate,
		EndDate:      params.EndDate,
		EmittedCount: emitted,
		DroppedCount: dropped,
		ErrorCause:   errorCause,
		CompletedAt:  completedAt,
	})
}
