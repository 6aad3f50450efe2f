// Package chunk splits normalized chapter text into overlapping fixed-size
// spans, the unit of embedding and retrieval.
package chunk

import (
	"fmt"
	"regexp"
	"strings"
)

var spaceRun = regexp.MustCompile(`[ \t]+`)

// Normalize collapses horizontal whitespace runs and strips non-breaking
// spaces, leaving newlines intact so paragraph rhythm survives chunking.
func Normalize(s string) string {
	s = strings.ReplaceAll(s, "\u00a0", " ")
	s = strings.TrimSpace(s)
	return spaceRun.ReplaceAllString(s, " ")
}

// Split cuts text into windows of at most targetChars characters, each window
// overlapping the previous by overlapChars. The text is normalized first; text
// that fits a single window is returned whole. Overlap must stay below the
// target or the cursor could not advance.
func Split(text string, targetChars, overlapChars int) ([]string, error) {
	if targetChars <= 0 {
		return nil, fmt.Errorf("target chars must be positive, got %d", targetChars)
	}
	if overlapChars < 0 || overlapChars >= targetChars {
		return nil, fmt.Errorf("overlap chars must be in [0, %d), got %d", targetChars, overlapChars)
	}

	runes := []rune(Normalize(text))
	n := len(runes)
	if n == 0 {
		return nil, nil
	}
	if n <= targetChars {
		return []string{string(runes)}, nil
	}

	var chunks []string
	start := 0
	for start < n {
		end := start + targetChars
		if end > n {
			end = n
		}
		window := strings.TrimSpace(string(runes[start:end]))
		if window != "" {
			chunks = append(chunks, window)
		}
		if end >= n {
			break
		}
		start = end - overlapChars
	}

	return chunks, nil
}
