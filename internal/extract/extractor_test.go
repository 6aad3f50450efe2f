package extract

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vampirenirmal/bookforge/internal/agent"
	"github.com/vampirenirmal/bookforge/internal/core"
	"github.com/vampirenirmal/bookforge/internal/ledger"
)

const goodReply = "```json\n" + `{
  "characters": [
    {
      "canonical_name": "Simon",
      "aliases": ["the man"],
      "physical_traits": {"hair": "dark"},
      "current_status": "sheltering at cabin",
      "relationships": [{"name": "Gene", "type": "protecting"}]
    },
    {"canonical_name": "  "}
  ],
  "locations": {"Simon's Cabin": {"details": "remote, snowbound"}},
  "plot_events": ["Gene arrives injured"]
}` + "\n```"

func TestChapterParsesFencedJSON(t *testing.T) {
	mock := agent.NewMockGenerator()
	mock.Respond("Chapter text:", goodReply)

	ex, err := New(mock).Chapter(context.Background(), 4, "Simon bolted the door.")
	require.NoError(t, err)

	require.Len(t, ex.Characters, 1, "nameless records are dropped")
	assert.Equal(t, "Simon", ex.Characters[0].CanonicalName)
	assert.Equal(t, "dark", ex.Characters[0].PhysicalTraits["hair"])
	assert.Contains(t, ex.Locations, "Simon's Cabin")
	assert.Equal(t, []string{"Gene arrives injured"}, ex.PlotEvents)
}

func TestChapterParsesChatterAroundJSON(t *testing.T) {
	mock := agent.NewMockGenerator()
	mock.Respond("Chapter text:", `Here is the analysis: {"characters":[{"canonical_name":"Mira"}],"plot_events":[]} hope that helps`)

	ex, err := New(mock).Chapter(context.Background(), 0, "Mira waited.")
	require.NoError(t, err)
	require.Len(t, ex.Characters, 1)
	assert.Equal(t, "Mira", ex.Characters[0].CanonicalName)
}

func TestChapterMalformedReplyIsExtractionError(t *testing.T) {
	mock := agent.NewMockGenerator()
	mock.Respond("Chapter text:", "I cannot produce JSON today.")

	_, err := New(mock).Chapter(context.Background(), 7, "text")
	var exErr *core.ExtractionError
	require.ErrorAs(t, err, &exErr)
	assert.Equal(t, 7, exErr.Chapter)
	assert.Contains(t, exErr.Raw, "cannot produce")
}

func TestChapterMalformedReplyLeavesLedgerUntouched(t *testing.T) {
	mock := agent.NewMockGenerator()
	mock.Respond("Chapter text:", `{"characters": [{"canonical_name": broken}`)

	l := ledger.New()
	_, err := New(mock).Chapter(context.Background(), 2, "text")
	require.Error(t, err)
	assert.Equal(t, 0, l.Len())
}

func TestChapterPropagatesGeneratorFailure(t *testing.T) {
	mock := agent.NewMockGenerator()
	mock.Fail(core.ErrRateLimited)

	_, err := New(mock).Chapter(context.Background(), 1, "text")
	require.ErrorIs(t, err, core.ErrRateLimited)
	assert.True(t, core.IsRetryable(err))
}

func TestChapterRejectsEmptyText(t *testing.T) {
	_, err := New(agent.NewMockGenerator()).Chapter(context.Background(), 0, "   \n ")
	assert.True(t, errors.Is(err, core.ErrInvalidInput))
}

func TestCleanJSONResponse(t *testing.T) {
	cases := []struct{ in, want string }{
		{"```json\n{\"a\":1}\n```", `{"a":1}`},
		{"noise {\"a\":1} noise", `{"a":1}`},
		{"no object here", ""},
		{"}{", ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, cleanJSONResponse(tc.in), "input %q", tc.in)
	}
}
