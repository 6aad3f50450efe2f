// Package assemble builds the bounded context block a rewrite stage receives:
// book bible, previously rewritten chapters, upcoming raw chapters, and
// retrieved neighbor chunks, each source independently capped.
package assemble

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/vampirenirmal/bookforge/internal/index"
	"github.com/vampirenirmal/bookforge/internal/manuscript"
)

// Placeholder stands in for any enabled source with nothing to contribute, so
// downstream prompts keep their shape.
const Placeholder = "none available"

// Sources selects which context sources a stage sees.
type Sources struct {
	Bible        bool
	PrevRewrites bool
	FutureRaw    bool
	Retrieval    bool
}

// Config bounds each source independently.
type Config struct {
	PreviousCount int // rewritten chapters looking back
	FutureCount   int // raw chapters looking ahead
	Behind        int // retrieval window before the chapter
	Ahead         int // retrieval window after the chapter
	TopK          int // hits per synthetic retrieval query

	BibleCap  int // chars
	PrevCap   int // chars per rewritten chapter
	FutureCap int // chars per future chapter
	ChunkCap  int // chars per retrieved chunk
}

// DefaultConfig mirrors the stock context window: three chapters back, two
// ahead, one chapter of retrieval on each side.
func DefaultConfig() Config {
	return Config{
		PreviousCount: 3,
		FutureCount:   2,
		Behind:        1,
		Ahead:         1,
		TopK:          10,
		BibleCap:      24000,
		PrevCap:       8000,
		FutureCap:     4000,
		ChunkCap:      1500,
	}
}

// RewriteReader supplies final rewritten chapters already on disk.
type RewriteReader interface {
	FinalChapter(chapterIdx int) (string, bool)
}

// Assembler gathers context for one book. Any collaborator may be absent; the
// matching source then degrades to the placeholder.
type Assembler struct {
	cfg       Config
	bible     string
	rewrites  RewriteReader
	retriever *index.Retriever
	chapters  []manuscript.Chapter // raw manuscript fallback for lookahead
	logger    *slog.Logger
}

func New(cfg Config) *Assembler {
	return &Assembler{
		cfg:    cfg,
		logger: slog.Default().With("component", "assembler"),
	}
}

// WithBible sets the book bible text.
func (a *Assembler) WithBible(bible string) *Assembler {
	a.bible = bible
	return a
}

// WithRewrites sets the source of previously rewritten chapters.
func (a *Assembler) WithRewrites(r RewriteReader) *Assembler {
	a.rewrites = r
	return a
}

// WithRetriever sets the index retriever used for neighbor chunks and
// index-backed lookahead.
func (a *Assembler) WithRetriever(r *index.Retriever) *Assembler {
	a.retriever = r
	return a
}

// WithChapters sets the raw manuscript chapters used for lookahead when the
// index has nothing for a chapter.
func (a *Assembler) WithChapters(chapters []manuscript.Chapter) *Assembler {
	a.chapters = chapters
	return a
}

// WithLogger replaces the assembler's logger.
func (a *Assembler) WithLogger(logger *slog.Logger) *Assembler {
	a.logger = logger
	return a
}

// Context is the assembled block, one field per source. Disabled sources stay
// empty; enabled-but-missing sources hold the placeholder.
type Context struct {
	Bible            string
	PreviousRewrites string
	FutureChapters   string
	RetrievedChunks  string
}

// Render flattens the context into one prompt-ready block, skipping disabled
// sources.
func (c Context) Render() string {
	var parts []string
	if c.Bible != "" {
		parts = append(parts, "## BOOK BIBLE\n"+c.Bible)
	}
	if c.PreviousRewrites != "" {
		parts = append(parts, "## PREVIOUSLY REWRITTEN CHAPTERS\n"+c.PreviousRewrites)
	}
	if c.FutureChapters != "" {
		parts = append(parts, "## UPCOMING CHAPTERS (raw)\n"+c.FutureChapters)
	}
	if c.RetrievedChunks != "" {
		parts = append(parts, "## RETRIEVED EXCERPTS\n"+c.RetrievedChunks)
	}
	return strings.Join(parts, "\n\n")
}

// Assemble builds the context for one chapter and one stage's source policy.
func (a *Assembler) Assemble(ctx context.Context, chapterIdx int, src Sources) (Context, error) {
	var out Context

	if src.Bible {
		out.Bible = orPlaceholder(truncate(strings.TrimSpace(a.bible), a.cfg.BibleCap))
	}
	if src.PrevRewrites {
		out.PreviousRewrites = orPlaceholder(a.previousRewrites(chapterIdx))
	}
	if src.FutureRaw {
		out.FutureChapters = orPlaceholder(a.futureChapters(chapterIdx))
	}
	if src.Retrieval {
		block, err := a.retrievedChunks(ctx, chapterIdx)
		if err != nil {
			return Context{}, err
		}
		out.RetrievedChunks = orPlaceholder(block)
	}

	a.logger.Debug("context assembled",
		"chapter", chapterIdx,
		"bible", src.Bible,
		"prev", src.PrevRewrites,
		"future", src.FutureRaw,
		"retrieval", src.Retrieval)
	return out, nil
}

// previousRewrites walks back from chapterIdx-1 collecting up to PreviousCount
// rewritten chapters, then emits them oldest-first so the most recent chapter
// sits last in the prompt.
func (a *Assembler) previousRewrites(chapterIdx int) string {
	if a.rewrites == nil {
		return ""
	}

	var collected []struct {
		idx  int
		text string
	}
	for idx := chapterIdx - 1; idx >= 0 && len(collected) < a.cfg.PreviousCount; idx-- {
		text, ok := a.rewrites.FinalChapter(idx)
		if !ok {
			continue
		}
		text = truncate(StripHeading(text), a.cfg.PrevCap)
		if text == "" {
			continue
		}
		collected = append(collected, struct {
			idx  int
			text string
		}{idx, text})
	}

	var b strings.Builder
	for i := len(collected) - 1; i >= 0; i-- {
		fmt.Fprintf(&b, "### Chapter %d (rewritten)\n%s\n\n", collected[i].idx, collected[i].text)
	}
	return strings.TrimSpace(b.String())
}

// futureChapters prefers the indexed chunk metadata over re-reading the
// manuscript; the raw chapter list is the fallback for anything the index
// does not cover.
func (a *Assembler) futureChapters(chapterIdx int) string {
	var b strings.Builder
	for idx := chapterIdx + 1; idx <= chapterIdx+a.cfg.FutureCount; idx++ {
		text := ""
		if a.retriever != nil {
			chunks := a.retriever.Index().ChunksForChapter(idx)
			parts := make([]string, len(chunks))
			for i, c := range chunks {
				parts[i] = c.Text
			}
			text = strings.Join(parts, "\n")
		}
		if text == "" && idx < len(a.chapters) {
			text = a.chapters[idx].Text()
		}
		if text = truncate(strings.TrimSpace(text), a.cfg.FutureCap); text == "" {
			continue
		}
		fmt.Fprintf(&b, "### Chapter %d (upcoming)\n%s\n\n", idx, text)
	}
	return strings.TrimSpace(b.String())
}

// retrievedChunks issues one synthetic query per chapter in the window and
// keeps only exact-chapter hits, formatted the way the bible excerpts are.
func (a *Assembler) retrievedChunks(ctx context.Context, chapterIdx int) (string, error) {
	if a.retriever == nil {
		return "", nil
	}

	var b strings.Builder
	for idx := chapterIdx - a.cfg.Behind; idx <= chapterIdx+a.cfg.Ahead; idx++ {
		if idx < 0 {
			continue
		}
		hits, err := a.retriever.RetrieveChapter(ctx, idx, a.cfg.TopK)
		if err != nil {
			return "", fmt.Errorf("retrieving chapter %d context: %w", idx, err)
		}
		for _, h := range hits {
			fmt.Fprintf(&b, "---\nCHAPTER %d: %s\nCHUNK %d\n%s\n",
				h.ChapterIdx, h.ChapterTitle, h.ChunkIdxInChapter, truncate(h.Text, a.cfg.ChunkCap))
		}
	}
	return strings.TrimSpace(b.String()), nil
}

// StripHeading removes leading heading and header-block lines from a
// rewritten chapter, leaving prose only.
func StripHeading(text string) string {
	lines := strings.Split(text, "\n")
	start := 0
	for start < len(lines) {
		line := strings.TrimSpace(lines[start])
		if line == "" || line == "---" ||
			strings.HasPrefix(line, "#") ||
			(strings.HasPrefix(line, "**") && strings.Contains(line, ":**")) {
			start++
			continue
		}
		break
	}
	return strings.TrimSpace(strings.Join(lines[start:], "\n"))
}

func truncate(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return strings.TrimSpace(string(runes[:limit]))
}

func orPlaceholder(s string) string {
	if s == "" {
		return Placeholder
	}
	return s
}
