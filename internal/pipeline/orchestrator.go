package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vampirenirmal/bookforge/internal/agent"
	"github.com/vampirenirmal/bookforge/internal/assemble"
	"github.com/vampirenirmal/bookforge/internal/core"
	"github.com/vampirenirmal/bookforge/internal/storage"
)

// ChapterJob is the immutable identity of one chapter run.
type ChapterJob struct {
	ChapterIdx int
	Title      string
	RawText    string
}

// Result is one finished chapter. StageOutputs holds every intermediate text
// in stage order; the last entry is the pre-normalization final stage output.
type Result struct {
	RunID        string
	ChapterIdx   int
	Title        string
	FinalText    string
	StageOutputs []string
	Elapsed      time.Duration
}

// Orchestrator drives chapters through the stage sequence. One instance is
// bound to one book.
type Orchestrator struct {
	stages    []Stage
	backends  map[Backend]agent.Generator
	assembler *assemble.Assembler
	store     *storage.Store
	bookID    string

	keepIntermediates bool
	styleNotes        string
	logger            *slog.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithIntermediates persists every stage output for inspection. The persisted
// files are a side channel; stages always consume the in-memory text.
func WithIntermediates() Option {
	return func(o *Orchestrator) { o.keepIntermediates = true }
}

// WithStyleProfile supplies the book's rendered style profile. Only stages
// marked StyleAware see it.
func WithStyleProfile(notes string) Option {
	return func(o *Orchestrator) { o.styleNotes = notes }
}

// WithLogger replaces the orchestrator's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = logger }
}

func New(bookID string, stages []Stage, backends map[Backend]agent.Generator, asm *assemble.Assembler, store *storage.Store, opts ...Option) (*Orchestrator, error) {
	if len(stages) == 0 {
		return nil, fmt.Errorf("pipeline needs at least one stage: %w", core.ErrInvalidInput)
	}
	for _, st := range stages {
		if backends[st.Backend] == nil {
			return nil, fmt.Errorf("stage %s: no client for backend %q: %w", st.Name, st.Backend, core.ErrInvalidInput)
		}
	}

	o := &Orchestrator{
		stages:    stages,
		backends:  backends,
		assembler: asm,
		store:     store,
		bookID:    bookID,
		logger:    slog.Default().With("component", "orchestrator"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// RewriteChapter runs one chapter through every stage and persists the final
// artifact. Any stage failure aborts the run; nothing final is written.
func (o *Orchestrator) RewriteChapter(ctx context.Context, job ChapterJob) (Result, error) {
	if strings.TrimSpace(job.RawText) == "" {
		return Result{}, fmt.Errorf("chapter %d has no text: %w", job.ChapterIdx, core.ErrInvalidInput)
	}

	start := time.Now()
	res := Result{
		RunID:      uuid.New().String(),
		ChapterIdx: job.ChapterIdx,
		Title:      job.Title,
	}

	current := job.RawText
	for i, st := range o.stages {
		stageNum := i + 1
		o.logger.Info("stage start",
			"run_id", res.RunID,
			"chapter", job.ChapterIdx,
			"stage", stageNum,
			"name", st.Name,
			"backend", st.Backend)

		asmCtx, err := o.assembler.Assemble(ctx, job.ChapterIdx, st.Sources)
		if err != nil {
			return Result{}, core.NewStageError(st.Name, job.ChapterIdx, 1, err)
		}

		out, err := o.backends[st.Backend].Generate(ctx, agent.GenerateRequest{
			SystemPrompt: st.System,
			UserText:     o.buildUserPrompt(st, job, asmCtx, current),
			Temperature:  st.Temperature,
			TopP:         st.TopP,
		})
		if err != nil {
			return Result{}, core.NewStageError(st.Name, job.ChapterIdx, 1, err)
		}
		if strings.TrimSpace(out) == "" {
			return Result{}, core.NewStageError(st.Name, job.ChapterIdx, 1,
				fmt.Errorf("backend returned empty text"))
		}

		current = out
		res.StageOutputs = append(res.StageOutputs, out)

		if o.keepIntermediates {
			if err := o.store.SaveStageArtifact(ctx, job.ChapterIdx, stageNum, st.Name, out); err != nil {
				// The side channel must never fail the run.
				o.logger.Warn("stage artifact not saved", "chapter", job.ChapterIdx, "stage", stageNum, "error", err)
			}
		}
	}

	res.FinalText = Finalize(current, o.bookID, job.Title, job.ChapterIdx)
	if err := o.store.SaveFinalChapter(ctx, job.ChapterIdx, res.FinalText); err != nil {
		return Result{}, fmt.Errorf("persisting chapter %d: %w", job.ChapterIdx, err)
	}

	res.Elapsed = time.Since(start)
	o.logger.Info("chapter complete",
		"run_id", res.RunID,
		"chapter", job.ChapterIdx,
		"stages", len(o.stages),
		"duration_ms", res.Elapsed.Milliseconds())
	return res, nil
}

// buildUserPrompt concatenates the assembled context, the style profile for
// style-aware stages, the stage task, and the working text.
func (o *Orchestrator) buildUserPrompt(st Stage, job ChapterJob, asmCtx assemble.Context, current string) string {
	var b strings.Builder
	if block := asmCtx.Render(); block != "" {
		b.WriteString(block)
		b.WriteString("\n\n")
	}
	if st.StyleAware && o.styleNotes != "" {
		b.WriteString(o.styleNotes)
		b.WriteString("\n\n")
	}
	b.WriteString(st.Task)
	fmt.Fprintf(&b, "\n\nCHAPTER %d: %s\n\nCHAPTER TEXT:\n%s", job.ChapterIdx, job.Title, current)
	return b.String()
}

var leadingHeading = regexp.MustCompile(`^#{1,6}\s+[^\n]*\n+`)

// Finalize normalizes the last stage's output: any model-emitted leading
// heading is dropped and replaced with the canonical header block carrying
// the book identifier, chapter title, and 1-based chapter order.
func Finalize(text, bookID, title string, chapterIdx int) string {
	body := strings.TrimSpace(text)
	for leadingHeading.MatchString(body) {
		body = strings.TrimSpace(leadingHeading.ReplaceAllString(body, ""))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "## %s\n\n", title)
	fmt.Fprintf(&b, "**Book:** %s\n", bookID)
	fmt.Fprintf(&b, "**Chapter:** %d\n\n", chapterIdx+1)
	b.WriteString(body)
	b.WriteString("\n")
	return b.String()
}
