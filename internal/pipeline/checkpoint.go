package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/vampirenirmal/bookforge/internal/storage"
)

const checkpointPath = "checkpoints/rewrite_batch.json"

// Checkpoint records batch progress for restart, along with the chapter
// window the batch was started for. NoneCompleted marks a batch that has not
// finished any chapter yet.
type Checkpoint struct {
	RunID         string    `json:"run_id"`
	FirstChapter  int       `json:"first_chapter"`
	LastChapter   int       `json:"last_chapter"`
	LastCompleted int       `json:"last_completed_chapter"`
	Timestamp     time.Time `json:"timestamp"`
}

// NoneCompleted is the LastCompleted value before any chapter finishes.
const NoneCompleted = -1

// Matches reports whether the checkpoint belongs to a batch over the given
// chapter window. A resumed batch starts inside the original window, so the
// recorded first chapter may sit past the requested one; the recorded last
// chapter must agree exactly.
func (cp Checkpoint) Matches(from, to int) bool {
	return cp.FirstChapter >= from && cp.LastChapter == to
}

// CheckpointManager persists batch progress in the book's store.
type CheckpointManager struct {
	store *storage.Store
}

func NewCheckpointManager(store *storage.Store) *CheckpointManager {
	return &CheckpointManager{store: store}
}

func (cm *CheckpointManager) Save(ctx context.Context, cp Checkpoint) error {
	cp.Timestamp = time.Now()
	data, err := json.MarshalIndent(cp, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling checkpoint: %w", err)
	}
	return cm.store.Save(ctx, checkpointPath, data)
}

// Load returns the saved checkpoint, or ok=false when none exists.
func (cm *CheckpointManager) Load(ctx context.Context) (Checkpoint, bool, error) {
	if !cm.store.Exists(ctx, checkpointPath) {
		return Checkpoint{LastCompleted: NoneCompleted}, false, nil
	}
	data, err := cm.store.Load(ctx, checkpointPath)
	if err != nil {
		return Checkpoint{}, false, fmt.Errorf("loading checkpoint: %w", err)
	}
	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return Checkpoint{}, false, fmt.Errorf("parsing checkpoint: %w", err)
	}
	return cp, true, nil
}

// Clear removes the checkpoint after a batch completes cleanly.
func (cm *CheckpointManager) Clear(ctx context.Context) error {
	if !cm.store.Exists(ctx, checkpointPath) {
		return nil
	}
	return cm.store.Delete(ctx, checkpointPath)
}
