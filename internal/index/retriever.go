package index

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/vampirenirmal/bookforge/internal/agent"
)

// Retriever answers text queries against a loaded index. The query goes
// through the same embedding model and normalization as the indexed chunks;
// mixing embedding models between indexing and retrieval breaks scoring.
type Retriever struct {
	index    *Index
	embedder agent.Embedder
	logger   *slog.Logger
}

func NewRetriever(idx *Index, embedder agent.Embedder) *Retriever {
	return &Retriever{
		index:    idx,
		embedder: embedder,
		logger:   slog.Default().With("component", "retriever"),
	}
}

// Retrieve embeds the query and returns up to k ranked hits. Asking for more
// hits than the index holds returns every indexed chunk, not an error.
func (r *Retriever) Retrieve(ctx context.Context, query string, k int) ([]Hit, error) {
	vectors, err := r.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("embedder returned %d vectors for one query", len(vectors))
	}

	hits, err := r.index.Search(vectors[0], k)
	if err != nil {
		return nil, err
	}

	r.logger.Debug("retrieval complete", "query_chars", len(query), "k", k, "hits", len(hits))
	return hits, nil
}

// RetrieveChapter pulls topically relevant chunks for one chapter using a
// synthetic query, then keeps only hits from exactly that chapter. Retrieval
// approximates chapter lookup; the post-filter is what makes it trustworthy.
func (r *Retriever) RetrieveChapter(ctx context.Context, chapterIdx, k int) ([]Hit, error) {
	query := fmt.Sprintf("chapter %d plot events characters dialogue", chapterIdx)
	hits, err := r.Retrieve(ctx, query, k)
	if err != nil {
		return nil, err
	}

	filtered := hits[:0]
	for _, h := range hits {
		if h.ChapterIdx == chapterIdx {
			filtered = append(filtered, h)
		}
	}
	return filtered, nil
}

// Index exposes the underlying index for exact-metadata access.
func (r *Retriever) Index() *Index { return r.index }
