package pacing

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTargetForPositions(t *testing.T) {
	const total, minW, maxW = 30, 2000, 3500

	cases := []struct {
		name    string
		chapter int
		want    Target
	}{
		{"first chapter is early", 0, Target{Min: 1600, Max: 3150}},
		{"last early chapter", 9, Target{Min: 1600, Max: 3150}},
		{"first middle chapter", 10, Target{Min: 2000, Max: 3500}},
		{"last middle chapter", 19, Target{Min: 2000, Max: 3500}},
		{"first late chapter", 20, Target{Min: 2000, Max: 3850}},
		{"final chapter", 29, Target{Min: 2000, Max: 3850}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, TargetFor(tc.chapter, total, minW, maxW))
		})
	}
}

func TestTargetForZeroChapters(t *testing.T) {
	// Degenerate book: treated as a single early chapter, never a panic.
	got := TargetFor(0, 0, 2000, 3500)
	assert.Equal(t, Target{Min: 1600, Max: 3150}, got)
}

func TestTargetContains(t *testing.T) {
	target := Target{Min: 10, Max: 20}
	assert.False(t, target.Contains(9))
	assert.True(t, target.Contains(10))
	assert.True(t, target.Contains(20))
	assert.False(t, target.Contains(21))
}

func TestAnalyzeClassifiesParagraphs(t *testing.T) {
	text := "# Chapter 3\n\n" +
		`"Stay down," I whispered. "They are close."` + "\n\n" +
		"I crawled through the snow toward the treeline, counting my own heartbeats the whole way there.\n\n" +
		"   \n\n" +
		"The cold bit harder."

	a := Analyze(text)
	assert.Equal(t, 3, a.ParagraphCount, "heading and blank paragraphs are skipped")
	assert.Equal(t, 1, a.DialogueParagraphs)
	assert.Equal(t, 2, a.ActionParagraphs)
	assert.Greater(t, a.AvgParagraphLength, 0.0)
}

func TestAnalyzeEmptyText(t *testing.T) {
	a := Analyze("")
	assert.Equal(t, 0, a.WordCount)
	assert.Equal(t, 0, a.ParagraphCount)
	assert.Equal(t, 0.0, a.AvgParagraphLength)
}

func TestValidateSuggestions(t *testing.T) {
	target := Target{Min: 10, Max: 20}

	short := Validate(strings.Repeat("word ", 4), target)
	assert.False(t, short.WithinRange)
	assert.Contains(t, short.Suggestion, "Add ~6 words")

	long := Validate(strings.Repeat("word ", 25), target)
	assert.False(t, long.WithinRange)
	assert.Contains(t, long.Suggestion, "Remove ~5 words")

	ok := Validate(strings.Repeat("word ", 15), target)
	assert.True(t, ok.WithinRange)
	assert.Equal(t, 0, ok.Difference)
	assert.Contains(t, ok.Suggestion, "within target range")
}
