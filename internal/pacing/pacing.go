// Package pacing derives word-count targets from a chapter's position in the
// book and measures how a draft sits against them.
package pacing

import (
	"fmt"
	"regexp"
	"strings"
)

// Position thresholds splitting a book into thirds.
const (
	earlyCutoff  = 0.33
	middleCutoff = 0.66
)

// Target is the acceptable word-count range for one chapter.
type Target struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// Contains reports whether a word count sits inside the range, inclusive.
func (t Target) Contains(words int) bool {
	return words >= t.Min && words <= t.Max
}

// TargetFor scales the base range by the chapter's position: early chapters
// run shorter to build gradually, late chapters run longer to accelerate
// toward the climax.
func TargetFor(chapterIdx, totalChapters, minWords, maxWords int) Target {
	if totalChapters <= 0 {
		totalChapters = 1
	}
	position := float64(chapterIdx) / float64(totalChapters)

	switch {
	case position < earlyCutoff:
		return Target{Min: int(float64(minWords) * 0.8), Max: int(float64(maxWords) * 0.9)}
	case position < middleCutoff:
		return Target{Min: minWords, Max: maxWords}
	default:
		return Target{Min: minWords, Max: int(float64(maxWords) * 1.1)}
	}
}

// Analysis describes the rhythm of one chapter.
type Analysis struct {
	WordCount          int     `json:"word_count"`
	ParagraphCount     int     `json:"paragraph_count"`
	AvgParagraphLength float64 `json:"avg_paragraph_length"`
	DialogueParagraphs int     `json:"dialogue_paragraphs"`
	ActionParagraphs   int     `json:"action_paragraphs"`
}

var (
	paragraphSplit = regexp.MustCompile(`\n\n+`)
	quotedSpan     = regexp.MustCompile(`["'][^"']*["']`)
)

// Analyze splits the chapter into paragraphs and classifies each as dialogue
// or action. A paragraph is dialogue-heavy when more than 30% of its
// characters sit inside quotes.
func Analyze(text string) Analysis {
	var paragraphs []string
	for _, p := range paragraphSplit.Split(text, -1) {
		p = strings.TrimSpace(p)
		if p != "" && !strings.HasPrefix(p, "#") {
			paragraphs = append(paragraphs, p)
		}
	}

	a := Analysis{
		WordCount:      len(strings.Fields(text)),
		ParagraphCount: len(paragraphs),
	}

	totalWords := 0
	for _, p := range paragraphs {
		totalWords += len(strings.Fields(p))

		if strings.Count(p, `"`) >= 2 {
			quoted := 0
			for _, span := range quotedSpan.FindAllString(p, -1) {
				quoted += len(span)
			}
			if float64(quoted)/float64(len(p)) > 0.3 {
				a.DialogueParagraphs++
				continue
			}
		}
		a.ActionParagraphs++
	}
	if len(paragraphs) > 0 {
		a.AvgParagraphLength = float64(totalWords) / float64(len(paragraphs))
	}
	return a
}

// Check compares a draft's length against its target and suggests the fix.
type Check struct {
	WithinRange bool   `json:"within_range"`
	WordCount   int    `json:"word_count"`
	Target      Target `json:"target"`
	Difference  int    `json:"difference"`
	Suggestion  string `json:"suggestion"`
}

// Validate measures the draft against the target. Difference is signed
// distance from the middle of the range.
func Validate(text string, target Target) Check {
	words := len(strings.Fields(text))
	c := Check{
		WithinRange: target.Contains(words),
		WordCount:   words,
		Target:      target,
		Difference:  words - (target.Min+target.Max)/2,
	}

	switch {
	case words < target.Min:
		c.Suggestion = fmt.Sprintf(
			"Add ~%d words: expand descriptions, add sensory details, develop character moments",
			target.Min-words)
	case words > target.Max:
		c.Suggestion = fmt.Sprintf(
			"Remove ~%d words: tighten prose, combine sentences, remove redundancy",
			words-target.Max)
	default:
		c.Suggestion = "Pacing is within target range"
	}
	return c
}
