package index

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vampirenirmal/bookforge/internal/agent"
	"github.com/vampirenirmal/bookforge/internal/core"
)

// fixedEmbedder returns preset vectors in input order.
type fixedEmbedder struct {
	vectors [][]float32
}

func (f *fixedEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = f.vectors[i%len(f.vectors)]
	}
	return out[:len(texts)], nil
}

func testChunks() []Chunk {
	return []Chunk{
		{ChapterIdx: 0, ChapterTitle: "Chapter 1", ChunkIdxInChapter: 0, Text: "snow on the road"},
		{ChapterIdx: 0, ChapterTitle: "Chapter 1", ChunkIdxInChapter: 1, Text: "the cabin door"},
		{ChapterIdx: 1, ChapterTitle: "Chapter 2", ChunkIdxInChapter: 0, Text: "the city morgue"},
	}
}

func TestBuildAssignsDenseChunkIDs(t *testing.T) {
	emb := &fixedEmbedder{vectors: [][]float32{{1, 0}, {0, 1}, {1, 1}}}
	idx, err := Build(context.Background(), emb, testChunks())
	require.NoError(t, err)

	require.Equal(t, 3, idx.Len())
	for i, c := range idx.Chunks() {
		assert.Equal(t, i, c.ChunkID)
	}
}

func TestBuildNormalizesVectors(t *testing.T) {
	emb := &fixedEmbedder{vectors: [][]float32{{3, 4}, {0, 2}, {5, 0}}}
	idx, err := Build(context.Background(), emb, testChunks())
	require.NoError(t, err)

	for _, vec := range idx.vectors {
		var sum float64
		for _, x := range vec {
			sum += float64(x) * float64(x)
		}
		assert.InDelta(t, 1.0, math.Sqrt(sum), 1e-5)
	}
}

func TestSearchRankedAndBounded(t *testing.T) {
	emb := &fixedEmbedder{vectors: [][]float32{{1, 0}, {0.9, 0.1}, {0, 1}}}
	idx, err := Build(context.Background(), emb, testChunks())
	require.NoError(t, err)

	hits, err := idx.Search([]float32{1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)

	assert.GreaterOrEqual(t, hits[0].Score, hits[1].Score)
	assert.NotEqual(t, hits[0].ChunkID, hits[1].ChunkID)
	assert.Equal(t, 0, hits[0].ChunkID)
}

func TestSearchKLargerThanIndex(t *testing.T) {
	emb := &fixedEmbedder{vectors: [][]float32{{1, 0}, {0, 1}, {1, 1}}}
	idx, err := Build(context.Background(), emb, testChunks())
	require.NoError(t, err)

	hits, err := idx.Search([]float32{1, 0}, 50)
	require.NoError(t, err)
	assert.Len(t, hits, 3)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	emb := agent.NewMockEmbedder(16)
	idx, err := Build(context.Background(), emb, testChunks())
	require.NoError(t, err)

	require.NoError(t, Save(idx, dir, ""))

	loaded, info, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, idx.Len(), loaded.Len())
	assert.Equal(t, idx.Dimension(), loaded.Dimension())
	assert.Equal(t, idx.Chunks(), loaded.Chunks())
	assert.Equal(t, 2, info.Chapters)
	assert.False(t, info.Stale)

	// Same query, same ranking after reload.
	query := []float32(nil)
	vecs, err := emb.Embed(context.Background(), []string{"the cabin door"})
	require.NoError(t, err)
	query = vecs[0]

	before, err := idx.Search(query, 3)
	require.NoError(t, err)
	after, err := loaded.Search(query, 3)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestLoadMissingArtifactsIsNotIndexed(t *testing.T) {
	dir := t.TempDir()

	_, _, err := Load(dir)
	require.ErrorIs(t, err, core.ErrNotIndexed)

	// One artifact present, one missing: still not indexed.
	require.NoError(t, os.WriteFile(filepath.Join(dir, metaFile), []byte("[]"), 0o644))
	_, _, err = Load(dir)
	require.ErrorIs(t, err, core.ErrNotIndexed)
}

func TestLoadDetectsStaleIndex(t *testing.T) {
	dir := t.TempDir()
	manuscript := filepath.Join(dir, "book.docx")
	require.NoError(t, os.WriteFile(manuscript, []byte("draft"), 0o644))

	emb := agent.NewMockEmbedder(8)
	idx, err := Build(context.Background(), emb, testChunks())
	require.NoError(t, err)
	require.NoError(t, Save(idx, dir, manuscript))

	// Touch the manuscript after the index build.
	future := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(manuscript, future, future))

	_, info, err := Load(dir)
	require.NoError(t, err)
	assert.True(t, info.Stale)
}

func TestRetrieverChapterFilter(t *testing.T) {
	emb := agent.NewMockEmbedder(12)
	idx, err := Build(context.Background(), emb, testChunks())
	require.NoError(t, err)

	r := NewRetriever(idx, emb)
	hits, err := r.RetrieveChapter(context.Background(), 0, 10)
	require.NoError(t, err)

	for _, h := range hits {
		assert.Equal(t, 0, h.ChapterIdx)
	}
}

func TestRetrieverKLargerThanIndex(t *testing.T) {
	emb := agent.NewMockEmbedder(12)
	idx, err := Build(context.Background(), emb, testChunks())
	require.NoError(t, err)

	r := NewRetriever(idx, emb)
	hits, err := r.Retrieve(context.Background(), "anything", 99)
	require.NoError(t, err)
	assert.Len(t, hits, 3)
}
