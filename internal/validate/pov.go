// Package validate checks rewritten chapters for point-of-view slips, banned
// stylistic constructs, character drift, location continuity, and word-count
// pacing.
package validate

import (
	"regexp"
	"strings"
)

// POVViolation marks one line where the first-person narration slipped into
// third person.
type POVViolation struct {
	Line    int    `json:"line"`
	Text    string `json:"text"`
	Pattern string `json:"pattern"`
}

// ContractionViolation marks one banned contraction on one line. The same line
// can appear several times, once per contraction found.
type ContractionViolation struct {
	Line        int    `json:"line"`
	Contraction string `json:"contraction"`
	Text        string `json:"text"`
}

var thirdPersonPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(he|she|they)\s+(said|thought|felt|saw|heard|knew)\b`),
	regexp.MustCompile(`(?i)\b(him|her|them)\s+(being|feeling|thinking)\b`),
}

// bannedContractions is checked case-insensitively; it covers the common
// contractions rather than attempting a full apostrophe grammar.
var bannedContractions = []string{
	"don't", "can't", "won't", "shouldn't", "couldn't", "wouldn't",
	"i'm", "you're", "he's", "she's", "it's", "we're", "they're",
	"i've", "you've", "we've", "they've",
	"i'll", "you'll", "he'll", "she'll", "it'll", "we'll", "they'll",
	"isn't", "aren't", "wasn't", "weren't", "didn't", "doesn't",
}

// CheckFirstPersonPOV finds third-person narration slips. Line numbers are
// one-based.
func CheckFirstPersonPOV(text string) []POVViolation {
	var violations []POVViolation
	for i, line := range strings.Split(text, "\n") {
		for _, pat := range thirdPersonPatterns {
			if pat.MatchString(line) {
				violations = append(violations, POVViolation{
					Line:    i + 1,
					Text:    strings.TrimSpace(line),
					Pattern: pat.String(),
				})
			}
		}
	}
	return violations
}

// CheckEmDashes returns the one-based line numbers containing an em dash.
func CheckEmDashes(text string) []int {
	var lines []int
	for i, line := range strings.Split(text, "\n") {
		if strings.Contains(line, "—") {
			lines = append(lines, i+1)
		}
	}
	return lines
}

// CheckContractions finds banned contractions, case-insensitively.
func CheckContractions(text string) []ContractionViolation {
	var violations []ContractionViolation
	for i, line := range strings.Split(text, "\n") {
		lower := strings.ToLower(line)
		for _, contraction := range bannedContractions {
			if strings.Contains(lower, contraction) {
				violations = append(violations, ContractionViolation{
					Line:        i + 1,
					Contraction: contraction,
					Text:        strings.TrimSpace(line),
				})
			}
		}
	}
	return violations
}
