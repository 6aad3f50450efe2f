package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/vampirenirmal/bookforge/internal/core"
	"github.com/vampirenirmal/bookforge/internal/pipeline"
)

var rewriteCmd = &cobra.Command{
	Use:   "rewrite <chapter>",
	Short: "Rewrite one chapter through the stage pipeline",
	Long: `Rewrite one chapter (0-based index) through the configured stage
pipeline and persist the final markdown under rewrites/.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		chapterIdx, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("chapter must be an integer: %w", core.ErrInvalidInput)
		}

		a, err := newApp()
		if err != nil {
			return err
		}
		name, err := a.resolveBook()
		if err != nil {
			return err
		}
		job, err := chapterJob(a, name, chapterIdx)
		if err != nil {
			return err
		}

		o, _, err := a.orchestrator(cmd.Context(), name)
		if err != nil {
			return err
		}
		res, err := o.RewriteChapter(cmd.Context(), job)
		if err != nil {
			return err
		}
		fmt.Printf("Chapter %d rewritten in %s (%d stages)\n",
			chapterIdx, res.Elapsed.Round(time.Millisecond), len(res.StageOutputs))
		return nil
	},
}

var (
	batchFrom int
	batchTo   int
)

var rewriteBatchCmd = &cobra.Command{
	Use:   "rewrite-batch",
	Short: "Rewrite a range of chapters in order",
	Long: `Rewrite chapters strictly in ascending order, halting at the first
failure. Progress is checkpointed after every completed chapter so an
interrupted batch can be resumed from where it stopped.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		name, err := a.resolveBook()
		if err != nil {
			return err
		}
		chapters, err := a.chapters(name)
		if err != nil {
			return err
		}

		from, to := batchFrom, batchTo
		if to < 0 || to >= len(chapters) {
			to = len(chapters) - 1
		}
		if from < 0 || from > to {
			return fmt.Errorf("invalid range %d..%d: %w", from, to, core.ErrChapterRange)
		}

		o, store, err := a.orchestrator(cmd.Context(), name)
		if err != nil {
			return err
		}
		cm := pipeline.NewCheckpointManager(store)

		// Resume past anything a previous run already finished, but only when
		// the checkpoint was recorded for this chapter window.
		if cp, found, err := cm.Load(cmd.Context()); err == nil && found {
			switch {
			case !cp.Matches(from, to):
				fmt.Printf("Ignoring checkpoint for chapters %d..%d (requested %d..%d)\n",
					cp.FirstChapter, cp.LastChapter, from, to)
			case cp.LastCompleted >= from:
				fmt.Printf("Resuming after chapter %d\n", cp.LastCompleted)
				from = cp.LastCompleted + 1
			}
		}
		if from > to {
			fmt.Println("Nothing left to rewrite")
			return nil
		}

		var jobs []pipeline.ChapterJob
		for idx := from; idx <= to; idx++ {
			jobs = append(jobs, pipeline.ChapterJob{
				ChapterIdx: idx,
				Title:      chapters[idx].Title,
				RawText:    chapters[idx].Text(),
			})
		}

		res, err := o.RewriteBatch(cmd.Context(), jobs, cm)
		fmt.Printf("Completed %d chapter(s)\n", len(res.Completed))
		return err
	},
}

var editCmd = &cobra.Command{
	Use:   "edit <chapter> <request...>",
	Short: "Apply a targeted edit to a rewritten chapter",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		chapterIdx, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("chapter must be an integer: %w", core.ErrInvalidInput)
		}
		request := strings.Join(args[1:], " ")

		a, err := newApp()
		if err != nil {
			return err
		}
		name, err := a.resolveBook()
		if err != nil {
			return err
		}
		o, _, err := a.orchestrator(cmd.Context(), name)
		if err != nil {
			return err
		}
		if _, err := o.EditChapter(cmd.Context(), chapterIdx, request); err != nil {
			return err
		}
		fmt.Printf("Chapter %d edited\n", chapterIdx)
		return nil
	},
}

func chapterJob(a *app, name string, chapterIdx int) (pipeline.ChapterJob, error) {
	chapters, err := a.chapters(name)
	if err != nil {
		return pipeline.ChapterJob{}, err
	}
	if chapterIdx < 0 || chapterIdx >= len(chapters) {
		return pipeline.ChapterJob{}, fmt.Errorf("chapter %d of %d: %w",
			chapterIdx, len(chapters), core.ErrChapterRange)
	}
	return pipeline.ChapterJob{
		ChapterIdx: chapterIdx,
		Title:      chapters[chapterIdx].Title,
		RawText:    chapters[chapterIdx].Text(),
	}, nil
}

func init() {
	rewriteBatchCmd.Flags().IntVar(&batchFrom, "from", 0, "first chapter index")
	rewriteBatchCmd.Flags().IntVar(&batchTo, "to", -1, "last chapter index (default: last chapter)")
	rootCmd.AddCommand(rewriteCmd, rewriteBatchCmd, editCmd)
}
