package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/vampirenirmal/bookforge/internal/agent"
	"github.com/vampirenirmal/bookforge/internal/assemble"
	"github.com/vampirenirmal/bookforge/internal/core"
)

const editTemperature = 0.3

// EditChapter applies a targeted edit request to an already-rewritten chapter
// in a single call and persists the result. The chapter must exist; editing
// is not a substitute for the rewrite pipeline.
func (o *Orchestrator) EditChapter(ctx context.Context, chapterIdx int, request string) (string, error) {
	if strings.TrimSpace(request) == "" {
		return "", fmt.Errorf("empty edit request: %w", core.ErrInvalidInput)
	}

	original, ok := o.store.FinalChapter(chapterIdx)
	if !ok {
		return "", fmt.Errorf("chapter %d has no rewrite to edit: %w", chapterIdx, core.ErrChapterRange)
	}

	asmCtx, err := o.assembler.Assemble(ctx, chapterIdx, assemble.Sources{Bible: true})
	if err != nil {
		return "", fmt.Errorf("assembling edit context: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "BOOK BIBLE (global constraints):\n%s\n\n", asmCtx.Bible)
	fmt.Fprintf(&b, "ORIGINAL CHAPTER:\n%s\n\n", original)
	fmt.Fprintf(&b, "EDIT REQUEST:\n%s\n\n", request)
	b.WriteString("TASK:\nApply the edit request to the original chapter and output ONLY the edited chapter text in markdown with a ## heading.")

	edited, err := o.backends[BackendPrimary].Generate(ctx, agent.GenerateRequest{
		SystemPrompt: editSystem,
		UserText:     b.String(),
		Temperature:  editTemperature,
	})
	if err != nil {
		return "", fmt.Errorf("editing chapter %d: %w", chapterIdx, err)
	}

	title := chapterTitle(original)
	final := Finalize(edited, o.bookID, title, chapterIdx)
	if err := o.store.SaveFinalChapter(ctx, chapterIdx, final); err != nil {
		return "", fmt.Errorf("persisting edited chapter %d: %w", chapterIdx, err)
	}

	o.logger.Info("chapter edited", "chapter", chapterIdx, "request_chars", len(request))
	return final, nil
}

// chapterTitle recovers the title from a finalized chapter's heading line.
func chapterTitle(text string) string {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "## ") {
			return strings.TrimSpace(strings.TrimPrefix(line, "## "))
		}
	}
	return "Untitled"
}
