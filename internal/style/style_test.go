package style

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleChapter = `I walked the frozen road into town. The snow fell harder with every step I took toward the lights.

"You came back," she said from the doorway.

Then I saw the cold dark water beyond the pier. The wind cut through my coat and I felt nothing at all.

Suddenly the bells began. I counted nine before the sound died.`

func TestSentenceLengths(t *testing.T) {
	mean, std, median := sentenceLengths("One two three. One two three. One two three.")
	assert.InDelta(t, 3.0, mean, 1e-9)
	assert.InDelta(t, 0.0, std, 1e-9)
	assert.InDelta(t, 3.0, median, 1e-9)

	mean, std, _ = sentenceLengths("Two words. One two three four five six.")
	assert.InDelta(t, 4.0, mean, 1e-9)
	assert.InDelta(t, 2.0, std, 1e-9)

	mean, std, median = sentenceLengths("")
	assert.Zero(t, mean)
	assert.Zero(t, std)
	assert.Zero(t, median)
}

func TestDialogueRatio(t *testing.T) {
	text := "# Chapter 1\n\"Hello,\" she said.\nI said nothing.\n\nShe waited."
	// Three real lines, one with quotes.
	assert.InDelta(t, 100.0/3.0, dialogueRatio(text), 1e-6)
	assert.Zero(t, dialogueRatio(""))
}

func TestDescriptionDensity(t *testing.T) {
	// Two sensory words out of four.
	assert.InDelta(t, 500.0, descriptionDensity("cold snow falls today"), 1e-6)
	assert.Zero(t, descriptionDensity(""))
}

func TestCommonPatterns(t *testing.T) {
	text := "I walked the road home. I walked the path back. I walked the line again. She ran the other way."
	patterns := commonPatterns(text, 5)

	require.NotEmpty(t, patterns)
	assert.Equal(t, "I walked the", patterns[0], "most frequent opener first")
}

func TestTransitionPatterns(t *testing.T) {
	text := "Then the door opened.\n\nShe left without a word.\n\nSuddenly, everything went quiet.\n\nThen it was over."
	assert.Equal(t, []string{"suddenly", "then"}, transitionPatterns(text))
}

func TestAnalyzeChapter(t *testing.T) {
	p := AnalyzeChapter(sampleChapter, 3)

	assert.Equal(t, []int{3}, p.SampleChapters)
	assert.Equal(t, 4, p.ParagraphCount)
	assert.Greater(t, p.WordCount, 0)
	assert.Greater(t, p.SentenceLengthMean, 0.0)
	assert.Greater(t, p.DialogueRatio, 0.0)
	assert.Greater(t, p.DescriptionDensity, 0.0)
	assert.Contains(t, p.TransitionPatterns, "then")
	assert.Contains(t, p.TransitionPatterns, "suddenly")
}

func TestBuildAggregates(t *testing.T) {
	p := Build([]Sample{
		{ChapterIdx: 0, Text: sampleChapter},
		{ChapterIdx: 5, Text: "Short. Words only here.\n\nNothing sensory about it."},
	})

	assert.Equal(t, []int{0, 5}, p.SampleChapters)
	single := AnalyzeChapter(sampleChapter, 0)
	assert.Equal(t, single.ParagraphCount+2, p.ParagraphCount)
	assert.Less(t, p.DialogueRatio, single.DialogueRatio, "second sample has no dialogue")
	assert.Equal(t, single.CommonPatterns, p.CommonPatterns, "openers come from the first sample")
}

func TestBuildEmpty(t *testing.T) {
	assert.Equal(t, Profile{}, Build(nil))
}

func TestFormatForPrompt(t *testing.T) {
	assert.Equal(t, "No style profile available yet.", FormatForPrompt(Profile{}))

	out := FormatForPrompt(AnalyzeChapter(sampleChapter, 2))
	assert.Contains(t, out, "## STYLE PROFILE (from chapters 2)")
	assert.Contains(t, out, "### Sentence Structure")
	assert.Contains(t, out, "Dialogue ratio:")
	assert.Contains(t, out, "### Transitions")
}

func TestProfileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiles", "style.json")
	p := AnalyzeChapter(sampleChapter, 1)

	require.NoError(t, Save(p, path))
	loaded, ok, err := Load(path)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, p, loaded)
}

func TestLoadMissingProfile(t *testing.T) {
	_, ok, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	require.NoError(t, err)
	assert.False(t, ok)
}
