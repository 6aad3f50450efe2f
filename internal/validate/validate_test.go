package validate

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vampirenirmal/bookforge/internal/ledger"
	"github.com/vampirenirmal/bookforge/internal/pacing"
)

func words(n int) string {
	return strings.TrimSpace(strings.Repeat("snow ", n))
}

func TestCheckFirstPersonPOV(t *testing.T) {
	text := "I walked to the door.\nShe thought about leaving.\nhe said nothing.\nI heard him being difficult."
	violations := CheckFirstPersonPOV(text)

	require.Len(t, violations, 3)
	assert.Equal(t, 2, violations[0].Line)
	assert.Equal(t, "She thought about leaving.", violations[0].Text)
	assert.Equal(t, 3, violations[1].Line)
	assert.Equal(t, 4, violations[2].Line)
}

func TestCheckFirstPersonPOVCleanText(t *testing.T) {
	assert.Empty(t, CheckFirstPersonPOV("I opened the door. I felt the cold."))
}

func TestCheckEmDashes(t *testing.T) {
	text := "clean line\nthe wind—sharp and sudden—cut through\nanother clean line\nagain—"
	assert.Equal(t, []int{2, 4}, CheckEmDashes(text))
}

func TestCheckContractions(t *testing.T) {
	text := "I do not go.\nI can't stay and it's cold.\nDon't look."
	violations := CheckContractions(text)

	require.Len(t, violations, 3)
	assert.Equal(t, 2, violations[0].Line)
	assert.Equal(t, "can't", violations[0].Contraction)
	assert.Equal(t, "it's", violations[1].Contraction)
	assert.Equal(t, 3, violations[2].Line)
	assert.Equal(t, "don't", violations[2].Contraction)
}

func TestChapterPassesCleanChapter(t *testing.T) {
	v := New(ledger.New(), 10, 50)
	r := v.Chapter(words(20), 0, nil)

	assert.True(t, r.Passed)
	assert.True(t, r.PacingOK)
	assert.Equal(t, 20, r.WordCount)
	assert.Empty(t, r.Errors)
	assert.Equal(t, 0, r.TotalIssues())
}

func TestChapterPacingBoundaries(t *testing.T) {
	v := New(ledger.New(), 10, 20)

	cases := []struct {
		words int
		ok    bool
	}{
		{9, false},
		{10, true},
		{20, true},
		{21, false},
	}
	for _, tc := range cases {
		r := v.Chapter(words(tc.words), 0, nil)
		assert.Equal(t, tc.ok, r.PacingOK, "%d words", tc.words)
		assert.Equal(t, tc.ok, r.Passed, "%d words", tc.words)
	}
}

func TestChapterPositionScaledTargets(t *testing.T) {
	const total = 10
	v := New(ledger.New(), 1000, 2000).WithTargetFunc(func(idx int) (int, int) {
		tr := pacing.TargetFor(idx, total, 1000, 2000)
		return tr.Min, tr.Max
	})

	// 900 words: inside the early range (800..1800), below the base minimum.
	early := v.Chapter(words(900), 0, nil)
	assert.True(t, early.PacingOK)
	assert.Equal(t, 800, early.TargetMin)
	assert.Equal(t, 1800, early.TargetMax)

	middle := v.Chapter(words(900), 5, nil)
	assert.False(t, middle.PacingOK)
	assert.Equal(t, 1000, middle.TargetMin)
	assert.Equal(t, 2000, middle.TargetMax)

	// 2100 words: over the base maximum, inside the late range (1000..2200).
	late := v.Chapter(words(2100), 9, nil)
	assert.True(t, late.PacingOK)
	assert.Equal(t, 2200, late.TargetMax)
}

func TestChapterFailsAboveThresholds(t *testing.T) {
	v := New(ledger.New(), 1, 100000)

	// 6 POV violations on separate lines: above the limit of 5.
	bad := strings.Repeat("she said it again\n", 6) + words(50)
	r := v.Chapter(bad, 1, nil)
	assert.False(t, r.Passed)
	require.NotEmpty(t, r.Errors)
	assert.Contains(t, r.Errors[0], "Too many POV violations")

	// Exactly 5 is reported but tolerated.
	ok := strings.Repeat("she said it again\n", 5) + words(50)
	r = v.Chapter(ok, 1, nil)
	assert.True(t, r.Passed)
	assert.Len(t, r.POVViolations, 5)
}

func TestChapterFlagsSpellingDrift(t *testing.T) {
	l := ledger.New()
	l.Merge(ledger.Extraction{Characters: []ledger.ExtractedCharacter{{
		CanonicalName: "Mira Castellan",
		Aliases:       []string{"the detective", "her"},
	}}}, 0)

	v := New(l, 1, 100000)
	text := "The detective crossed the room. " + words(30)
	r := v.Chapter(text, 1, nil)

	require.NotEmpty(t, r.CharacterIssues)
	assert.Contains(t, r.CharacterIssues[0], "Mira Castellan")
	assert.Contains(t, r.CharacterIssues[0], "the detective")
	// The pronoun alias never shows up in the issue.
	assert.NotContains(t, r.CharacterIssues[0], "her,")
}

func TestChapterFlagsUnknownFrequentName(t *testing.T) {
	v := New(ledger.New(), 1, 100000)
	text := "Dmitri waited. Dmitri smoked. Dmitri left. " + words(30)
	r := v.Chapter(text, 0, nil)

	require.NotEmpty(t, r.CharacterIssues)
	assert.Contains(t, r.CharacterIssues[0], "Dmitri")
	assert.Contains(t, r.CharacterIssues[0], "3 times")
}

func TestChapterKnownNameNotFlagged(t *testing.T) {
	l := ledger.New()
	l.Merge(ledger.Extraction{Characters: []ledger.ExtractedCharacter{{
		CanonicalName: "Dmitri",
	}}}, 0)

	v := New(l, 1, 100000)
	r := v.Chapter("Dmitri waited. Dmitri smoked. Dmitri left. "+words(30), 1, nil)
	assert.Empty(t, r.CharacterIssues)
}

func TestLocationContinuity(t *testing.T) {
	current := "We met at the station. " + words(30)

	// No prior chapters: nothing to be continuous with.
	assert.Empty(t, locationContinuity(current, nil))

	// Indicator absent from the last two chapters: flagged.
	issues := locationContinuity(current, []string{words(10), words(10)})
	require.Len(t, issues, 1)
	assert.Contains(t, issues[0], "at the")

	// Indicator present two chapters back: fine.
	assert.Empty(t, locationContinuity(current, []string{"we stood at the dock", words(10)}))

	// Indicator present three chapters back only: still flagged, the window is two.
	issues = locationContinuity(current, []string{"at the dock", words(10), words(10)})
	assert.Len(t, issues, 1)
}

func TestBatchMatchesSequentialRun(t *testing.T) {
	v := New(ledger.New(), 5, 100)
	chapters := []string{
		"We met at the station. " + words(20),
		words(30),
		"Back at the station. " + words(20),
	}

	reports, err := v.Batch(context.Background(), chapters)
	require.NoError(t, err)
	require.Len(t, reports, 3)

	for i, r := range reports {
		want := v.Chapter(chapters[i], i, chapters[:i])
		assert.Equal(t, want, r, "chapter %d", i)
	}
}

func TestReportRoundTrip(t *testing.T) {
	v := New(ledger.New(), 10, 20)
	r := v.Chapter("she said nothing—it's over\n"+words(15), 3, nil)

	path := filepath.Join(t.TempDir(), "reports", "ch3.json")
	require.NoError(t, SaveReport(r, path))

	loaded, err := LoadReport(path)
	require.NoError(t, err)
	assert.Equal(t, r, loaded)
}

func TestSummaries(t *testing.T) {
	v := New(ledger.New(), 10, 20)
	pass := v.Chapter(words(15), 0, nil)
	fail := v.Chapter(words(3), 1, nil)

	assert.Contains(t, pass.Summary(), "Overall Status: PASSED")
	assert.Contains(t, fail.Summary(), "Overall Status: FAILED")

	batch := BatchSummary([]Report{pass, fail})
	assert.Contains(t, batch, "Total Chapters: 2")
	assert.Contains(t, batch, "Passed: 1")
	assert.Contains(t, batch, "Chapter 1: FAIL (3 words)")
}
