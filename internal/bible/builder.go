// Package bible creates and enhances the book bible: the single global
// guidance document every rewrite stage reads. The base bible comes from
// multi-query retrieval over the indexed manuscript; enhancement folds the
// character ledger into it.
package bible

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/vampirenirmal/bookforge/internal/agent"
	"github.com/vampirenirmal/bookforge/internal/core"
	"github.com/vampirenirmal/bookforge/internal/index"
	"github.com/vampirenirmal/bookforge/internal/storage"
)

// Path is the bible's location inside a book's store.
const Path = "metadata/book_bible.md"

const (
	queryTopK        = 12
	maxExcerpts      = 32
	bibleTemperature = 0.3
)

// coverageQueries each pull a different slice of the manuscript, so the bible
// sees plot, characters, continuity, style, and problems rather than whatever
// a single query happens to rank highest.
var coverageQueries = []string{
	"Summarize overall plot (beginning middle end) and turning points",
	"List main characters with motivations, secrets, and arcs",
	"Identify timeline, locations, continuity constraints",
	"Identify themes, tone, POV/tense, style patterns",
	"Identify biggest problems: pacing clarity stakes inconsistencies",
}

// Builder creates the base bible for one book.
type Builder struct {
	retriever *index.Retriever
	gen       agent.Generator
	store     *storage.Store
	logger    *slog.Logger
}

func NewBuilder(retriever *index.Retriever, gen agent.Generator, store *storage.Store) *Builder {
	return &Builder{
		retriever: retriever,
		gen:       gen,
		store:     store,
		logger:    slog.Default().With("component", "bible"),
	}
}

// Create runs every coverage query, dedupes hits by chunk, keeps the
// highest-scoring excerpts, and asks the generation backend for the bible.
// The result is persisted and returned.
func (b *Builder) Create(ctx context.Context) (string, error) {
	excerpts, err := b.gather(ctx)
	if err != nil {
		return "", err
	}
	if len(excerpts) == 0 {
		return "", fmt.Errorf("no indexed content to build a bible from: %w", core.ErrNotIndexed)
	}

	text, err := b.gen.Generate(ctx, agent.GenerateRequest{
		SystemPrompt: bibleSystem,
		UserText:     fmt.Sprintf(bibleUserTemplate, formatExcerpts(excerpts)),
		Temperature:  bibleTemperature,
	})
	if err != nil {
		return "", fmt.Errorf("generating bible: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("bible generation returned empty text")
	}

	if err := b.store.Save(ctx, Path, []byte(text)); err != nil {
		return "", fmt.Errorf("persisting bible: %w", err)
	}

	b.logger.Info("bible created", "excerpts", len(excerpts), "chars", len(text))
	return text, nil
}

// gather collects hits across every coverage query, deduplicated by chunk and
// capped to the highest-scoring excerpts.
func (b *Builder) gather(ctx context.Context) ([]index.Hit, error) {
	seen := make(map[int]struct{})
	var gathered []index.Hit
	for _, q := range coverageQueries {
		hits, err := b.retriever.Retrieve(ctx, q, queryTopK)
		if err != nil {
			return nil, fmt.Errorf("coverage query %q: %w", q, err)
		}
		for _, h := range hits {
			if _, ok := seen[h.ChunkID]; ok {
				continue
			}
			seen[h.ChunkID] = struct{}{}
			gathered = append(gathered, h)
		}
	}

	sort.SliceStable(gathered, func(i, j int) bool { return gathered[i].Score > gathered[j].Score })
	if len(gathered) > maxExcerpts {
		gathered = gathered[:maxExcerpts]
	}
	return gathered, nil
}

func formatExcerpts(hits []index.Hit) string {
	var sb strings.Builder
	for _, h := range hits {
		fmt.Fprintf(&sb, "---\nCHAPTER %d: %s\nCHUNK %d\n%s\n",
			h.ChapterIdx, h.ChapterTitle, h.ChunkIdxInChapter, h.Text)
	}
	return sb.String()
}

// Load reads the persisted base bible; ok=false when none has been created.
func Load(ctx context.Context, store *storage.Store) (string, bool, error) {
	return loadAt(ctx, store, Path)
}

// LoadEnhanced reads the ledger-enhanced bible; ok=false when enhancement has
// not run yet.
func LoadEnhanced(ctx context.Context, store *storage.Store) (string, bool, error) {
	return loadAt(ctx, store, EnhancedPath)
}

func loadAt(ctx context.Context, store *storage.Store, path string) (string, bool, error) {
	if !store.Exists(ctx, path) {
		return "", false, nil
	}
	data, err := store.Load(ctx, path)
	if err != nil {
		return "", false, fmt.Errorf("loading bible: %w", err)
	}
	return string(data), true, nil
}
