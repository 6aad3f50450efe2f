package pipeline

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/vampirenirmal/bookforge/internal/core"
)

// BatchResult summarizes a batch run up to its end or first failure.
type BatchResult struct {
	RunID     string
	Completed []Result
	Failed    *int // chapter index of the failure, nil when the batch finished
}

// RewriteBatch runs jobs strictly in ascending chapter order: stage 2+ of
// chapter N reads the persisted output of chapter N-1, so reordering or
// parallelizing would change results. The first failure halts the batch; the
// error names the failed chapter and the result reports how many chapters
// finished before it. Progress is checkpointed after every completed chapter.
func (o *Orchestrator) RewriteBatch(ctx context.Context, jobs []ChapterJob, cm *CheckpointManager) (BatchResult, error) {
	if len(jobs) == 0 {
		return BatchResult{}, fmt.Errorf("empty batch: %w", core.ErrInvalidInput)
	}

	sorted := make([]ChapterJob, len(jobs))
	copy(sorted, jobs)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ChapterIdx < sorted[j].ChapterIdx })
	for i := 1; i < len(sorted); i++ {
		if sorted[i].ChapterIdx == sorted[i-1].ChapterIdx {
			return BatchResult{}, fmt.Errorf("duplicate chapter %d in batch: %w", sorted[i].ChapterIdx, core.ErrInvalidInput)
		}
	}

	batch := BatchResult{RunID: uuid.New().String()}
	for _, job := range sorted {
		res, err := o.RewriteChapter(ctx, job)
		if err != nil {
			idx := job.ChapterIdx
			batch.Failed = &idx
			o.logger.Error("batch halted",
				"run_id", batch.RunID,
				"chapter", idx,
				"completed", len(batch.Completed),
				"error", err)
			return batch, fmt.Errorf("chapter %d failed after %d completed: %w", idx, len(batch.Completed), err)
		}
		batch.Completed = append(batch.Completed, res)

		if cm != nil {
			cp := Checkpoint{
				RunID:         batch.RunID,
				FirstChapter:  sorted[0].ChapterIdx,
				LastChapter:   sorted[len(sorted)-1].ChapterIdx,
				LastCompleted: job.ChapterIdx,
			}
			if err := cm.Save(ctx, cp); err != nil {
				o.logger.Warn("checkpoint not saved", "chapter", job.ChapterIdx, "error", err)
			}
		}
	}

	if cm != nil {
		if err := cm.Clear(ctx); err != nil {
			o.logger.Warn("checkpoint not cleared", "error", err)
		}
	}

	o.logger.Info("batch complete", "run_id", batch.RunID, "chapters", len(batch.Completed))
	return batch, nil
}
