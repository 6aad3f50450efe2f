// Package index embeds manuscript chunks, answers top-k similarity queries,
// and persists the index as a book-scoped artifact pair.
package index

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/vampirenirmal/bookforge/internal/agent"
)

// Chunk is one indexed span of chapter text. Chunk IDs are a dense 0-based
// sequence assigned in insertion order at build time.
type Chunk struct {
	ChunkID           int    `json:"chunk_id"`
	ChapterIdx        int    `json:"chapter_idx"`
	ChapterTitle      string `json:"chapter_title"`
	ChunkIdxInChapter int    `json:"chunk_idx_in_chapter"`
	Text              string `json:"text"`
}

// Hit decorates a chunk with its similarity score.
type Hit struct {
	Chunk
	Score float32 `json:"score"`
}

// Index is a flat inner-product index over L2-normalized vectors, plus the
// parallel chunk metadata. Vector i belongs to chunk i.
type Index struct {
	dimension int
	vectors   [][]float32
	chunks    []Chunk
}

// Build embeds every chunk text and constructs the index. The chunk IDs are
// reassigned to match insertion order regardless of what the caller set.
func Build(ctx context.Context, embedder agent.Embedder, chunks []Chunk) (*Index, error) {
	if len(chunks) == 0 {
		return nil, fmt.Errorf("no chunks to index")
	}

	texts := make([]string, len(chunks))
	for i := range chunks {
		texts[i] = chunks[i].Text
	}

	vectors, err := embedder.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embedding %d chunks: %w", len(chunks), err)
	}
	if len(vectors) != len(chunks) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(chunks))
	}

	dim := len(vectors[0])
	idx := &Index{dimension: dim, vectors: make([][]float32, 0, len(chunks))}
	for i, vec := range vectors {
		if len(vec) != dim {
			return nil, fmt.Errorf("vector %d has dimension %d, want %d", i, len(vec), dim)
		}
		c := chunks[i]
		c.ChunkID = i
		idx.vectors = append(idx.vectors, normalize(vec))
		idx.chunks = append(idx.chunks, c)
	}

	return idx, nil
}

// Len returns the number of indexed chunks.
func (idx *Index) Len() int { return len(idx.chunks) }

// Dimension returns the embedding dimension.
func (idx *Index) Dimension() int { return idx.dimension }

// Chunks returns the metadata list in chunk-id order.
func (idx *Index) Chunks() []Chunk { return idx.chunks }

// ChunksForChapter returns a chapter's chunks ordered by position.
func (idx *Index) ChunksForChapter(chapterIdx int) []Chunk {
	var out []Chunk
	for _, c := range idx.chunks {
		if c.ChapterIdx == chapterIdx {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ChunkIdxInChapter < out[j].ChunkIdxInChapter
	})
	return out
}

// ChapterCount returns the number of distinct chapters in the index.
func (idx *Index) ChapterCount() int {
	seen := make(map[int]struct{})
	for _, c := range idx.chunks {
		seen[c.ChapterIdx] = struct{}{}
	}
	return len(seen)
}

// Search returns up to k hits ordered by descending inner product. The query
// vector is normalized before scoring so inner product equals cosine
// similarity, matching how the stored vectors were prepared.
func (idx *Index) Search(query []float32, k int) ([]Hit, error) {
	if len(query) != idx.dimension {
		return nil, fmt.Errorf("query dimension %d does not match index dimension %d",
			len(query), idx.dimension)
	}
	if k <= 0 {
		return nil, fmt.Errorf("k must be positive, got %d", k)
	}
	if k > len(idx.chunks) {
		k = len(idx.chunks)
	}

	q := normalize(query)
	type scored struct {
		id    int
		score float32
	}
	scores := make([]scored, len(idx.vectors))
	for i, vec := range idx.vectors {
		scores[i] = scored{id: i, score: dot(vec, q)}
	}
	sort.Slice(scores, func(i, j int) bool { return scores[i].score > scores[j].score })

	hits := make([]Hit, 0, k)
	for _, s := range scores[:k] {
		hits = append(hits, Hit{Chunk: idx.chunks[s.id], Score: s.score})
	}
	return hits, nil
}

func dot(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

func normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	norm := math.Sqrt(sum)
	if norm == 0 {
		norm = 1
	}
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}
