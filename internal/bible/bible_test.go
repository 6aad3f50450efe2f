package bible

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vampirenirmal/bookforge/internal/agent"
	"github.com/vampirenirmal/bookforge/internal/core"
	"github.com/vampirenirmal/bookforge/internal/index"
	"github.com/vampirenirmal/bookforge/internal/ledger"
	"github.com/vampirenirmal/bookforge/internal/storage"
)

func buildRetriever(t *testing.T, emb agent.Embedder, chunks []index.Chunk) *index.Retriever {
	t.Helper()
	idx, err := index.Build(context.Background(), emb, chunks)
	require.NoError(t, err)
	return index.NewRetriever(idx, emb)
}

func sampleChunks() []index.Chunk {
	return []index.Chunk{
		{ChunkID: 0, ChapterIdx: 0, ChapterTitle: "Chapter 1", ChunkIdxInChapter: 0, Text: "the ferry came in late"},
		{ChunkID: 1, ChapterIdx: 0, ChapterTitle: "Chapter 1", ChunkIdxInChapter: 1, Text: "Mira waited on the dock"},
		{ChunkID: 2, ChapterIdx: 1, ChapterTitle: "Chapter 2", ChunkIdxInChapter: 0, Text: "rain on the tin roof"},
		{ChunkID: 3, ChapterIdx: 2, ChapterTitle: "Chapter 3", ChunkIdxInChapter: 0, Text: "the morgue was cold"},
	}
}

func TestCreatePersistsBible(t *testing.T) {
	emb := agent.NewMockEmbedder(16)
	retriever := buildRetriever(t, emb, sampleChunks())
	store := storage.NewStore(t.TempDir())

	gen := agent.NewMockGenerator()
	gen.Respond("Book Bible", "# Title\n\n## Working Title\n- **Title**: UNKNOWN\n")

	b := NewBuilder(retriever, gen, store)
	text, err := b.Create(context.Background())
	require.NoError(t, err)
	assert.Contains(t, text, "Working Title")

	loaded, ok, err := Load(context.Background(), store)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, text, loaded)
}

func TestCreateDeduplicatesExcerpts(t *testing.T) {
	// Five coverage queries against a four-chunk index return heavy overlap;
	// the prompt must carry each chunk at most once.
	emb := agent.NewMockEmbedder(16)
	retriever := buildRetriever(t, emb, sampleChunks())
	store := storage.NewStore(t.TempDir())

	gen := agent.NewMockGenerator()
	gen.Respond("Book Bible", "bible text")

	b := NewBuilder(retriever, gen, store)
	_, err := b.Create(context.Background())
	require.NoError(t, err)

	calls := gen.Calls()
	require.Len(t, calls, 1)
	prompt := calls[0].UserText
	assert.Equal(t, 1, strings.Count(prompt, "the morgue was cold"))
	assert.Equal(t, 1, strings.Count(prompt, "rain on the tin roof"))
	assert.Contains(t, prompt, "CHAPTER 2: Chapter 3")
}

func TestCreateRetrievalFailure(t *testing.T) {
	// The index was built with 16-dimensional vectors; querying it through an
	// 8-dimensional embedder fails every coverage query.
	retriever := buildRetriever(t, agent.NewMockEmbedder(16), sampleChunks())
	mismatched := index.NewRetriever(retriever.Index(), agent.NewMockEmbedder(8))
	store := storage.NewStore(t.TempDir())

	b := NewBuilder(mismatched, agent.NewMockGenerator(), store)
	_, err := b.Create(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "coverage query")
}

func TestCreateGeneratorFailure(t *testing.T) {
	emb := agent.NewMockEmbedder(16)
	retriever := buildRetriever(t, emb, sampleChunks())
	store := storage.NewStore(t.TempDir())

	gen := agent.NewMockGenerator()
	gen.Fail(core.ErrRateLimited)

	b := NewBuilder(retriever, gen, store)
	_, err := b.Create(context.Background())
	assert.ErrorIs(t, err, core.ErrRateLimited)
	assert.False(t, store.Exists(context.Background(), Path), "nothing persisted on failure")
}

func TestLoadMissing(t *testing.T) {
	store := storage.NewStore(t.TempDir())
	_, ok, err := Load(context.Background(), store)
	require.NoError(t, err)
	assert.False(t, ok)
}

func sampleLedger() *ledger.Ledger {
	led := ledger.New()

	mira := ledger.NewCharacterState("Mira Castellan")
	mira.AddAlias("Mira")
	mira.AddAlias("the doctor")
	mira.AddPhysicalTrait("hair", "dark, short")
	mira.AddVoicePattern("cadence", "clipped")
	mira.UpdateStatus("recovering in the cabin")
	mira.AddRelationship("Jonas Reed", "brother")
	mira.RecordAppearance(0, nil)
	mira.RecordAppearance(2, nil)
	led.Add(mira)

	jonas := ledger.NewCharacterState("Jonas Reed")
	jonas.RecordAppearance(1, nil)
	led.Add(jonas)

	led.AddLocation("the cabin", map[string]string{"details": "one room, wood stove", "purpose": "hideout"})
	led.TrackObject("the revolver", 0)
	led.TrackObject("the revolver", 2)
	return led
}

func TestEnhanceSections(t *testing.T) {
	out := Enhance("# Base Bible\n\npremise", sampleLedger())

	assert.True(t, strings.HasPrefix(out, "# Base Bible"))
	assert.Contains(t, out, strings.Repeat("=", 60))
	assert.Contains(t, out, "## CHARACTER REGISTRY")
	assert.Contains(t, out, "### Mira Castellan")
	assert.Contains(t, out, "**Aliases:** Mira, the doctor")
	assert.Contains(t, out, "- Hair: dark, short")
	assert.Contains(t, out, "- Cadence: clipped")
	assert.Contains(t, out, "**Current Status:** recovering in the cabin")
	assert.Contains(t, out, "- Jonas Reed: brother")
	assert.Contains(t, out, "**Appears in Chapters:** 0, 2")

	assert.Contains(t, out, "## CANONICAL NAME MAPPINGS")
	assert.Contains(t, out, "- **Mira Castellan** (not: Mira, the doctor)")
	assert.NotContains(t, out, "**Jonas Reed** (not:", "characters without aliases get no mapping line")

	assert.Contains(t, out, "## LOCATION INVENTORY")
	assert.Contains(t, out, "### the cabin")
	assert.Contains(t, out, "one room, wood stove")
	assert.Contains(t, out, "*Purpose: hideout*")

	assert.Contains(t, out, "## OBJECT CONTINUITY")
	assert.Contains(t, out, "- **the revolver**: Chapters 0, 2")

	assert.Contains(t, out, "## CONTINUITY RULES")
	assert.Contains(t, out, "NO em dashes, NO contractions")
}

func TestEnhanceEmptyLedger(t *testing.T) {
	out := Enhance("", ledger.New())

	assert.False(t, strings.Contains(out, strings.Repeat("=", 60)), "no divider without a base bible")
	assert.Contains(t, out, "*No character information available yet.*")
	assert.Contains(t, out, "*No location information available yet.*")
	assert.Contains(t, out, "*No object information available yet.*")
	assert.NotContains(t, out, "## CANONICAL NAME MAPPINGS")
}

func TestEnhanceRegistryIsAlphabetical(t *testing.T) {
	out := Enhance("", sampleLedger())
	jonasAt := strings.Index(out, "### Jonas Reed")
	miraAt := strings.Index(out, "### Mira Castellan")
	require.NotEqual(t, -1, jonasAt)
	require.NotEqual(t, -1, miraAt)
	assert.Less(t, jonasAt, miraAt)
}
