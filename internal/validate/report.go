package validate

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Summary renders a short human-readable digest of one report.
func (r Report) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "=== Continuity Report: Chapter %d ===\n", r.ChapterIdx)
	fmt.Fprintf(&b, "Word Count: %d (target: %d-%d)\n", r.WordCount, r.TargetMin, r.TargetMax)
	if r.PacingOK {
		b.WriteString("Pacing: OK\n")
	} else {
		b.WriteString("Pacing: OUT OF RANGE\n")
	}
	fmt.Fprintf(&b, "POV Violations: %d\n", len(r.POVViolations))
	fmt.Fprintf(&b, "Em Dashes: %d\n", len(r.Restrictions.EmDashes))
	fmt.Fprintf(&b, "Contractions: %d\n", len(r.Restrictions.Contractions))
	fmt.Fprintf(&b, "Character Issues: %d\n", len(r.CharacterIssues))
	fmt.Fprintf(&b, "Location Issues: %d\n", len(r.LocationIssues))
	if r.Passed {
		b.WriteString("Overall Status: PASSED")
	} else {
		b.WriteString("Overall Status: FAILED")
	}
	if len(r.Errors) > 0 {
		fmt.Fprintf(&b, "\nErrors: %d", len(r.Errors))
	}
	return b.String()
}

// SaveReport writes one report as JSON, creating parent directories.
func SaveReport(r Report, path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating report directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	return nil
}

// LoadReport reads one report back.
func LoadReport(path string) (Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Report{}, fmt.Errorf("reading report: %w", err)
	}
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return Report{}, fmt.Errorf("parsing report: %w", err)
	}
	return r, nil
}

// BatchSummary aggregates reports for a whole rewrite run.
func BatchSummary(reports []Report) string {
	var b strings.Builder
	rule := strings.Repeat("=", 70)
	b.WriteString(rule + "\n")
	b.WriteString("BATCH CONTINUITY VALIDATION SUMMARY\n")
	b.WriteString(rule + "\n\n")

	passed := 0
	for _, r := range reports {
		if r.Passed {
			passed++
		}
	}
	fmt.Fprintf(&b, "Total Chapters: %d\n", len(reports))
	fmt.Fprintf(&b, "Passed: %d\n", passed)
	fmt.Fprintf(&b, "Failed: %d\n\n", len(reports)-passed)

	if len(reports) > 0 {
		total, minWords, maxWords := 0, reports[0].WordCount, reports[0].WordCount
		for _, r := range reports {
			total += r.WordCount
			minWords = min(minWords, r.WordCount)
			maxWords = max(maxWords, r.WordCount)
		}
		b.WriteString("Word Count Statistics:\n")
		fmt.Fprintf(&b, "  Average: %.0f\n", float64(total)/float64(len(reports)))
		fmt.Fprintf(&b, "  Range: %d - %d\n\n", minWords, maxWords)
	}

	var pov, dashes, contractions, chars, locs int
	for _, r := range reports {
		pov += len(r.POVViolations)
		dashes += len(r.Restrictions.EmDashes)
		contractions += len(r.Restrictions.Contractions)
		chars += len(r.CharacterIssues)
		locs += len(r.LocationIssues)
	}
	b.WriteString("Total Issues Across All Chapters:\n")
	fmt.Fprintf(&b, "  POV Violations: %d\n", pov)
	fmt.Fprintf(&b, "  Em Dashes: %d\n", dashes)
	fmt.Fprintf(&b, "  Contractions: %d\n", contractions)
	fmt.Fprintf(&b, "  Character Issues: %d\n", chars)
	fmt.Fprintf(&b, "  Location Issues: %d\n\n", locs)

	b.WriteString("Per-Chapter Results:\n")
	for _, r := range reports {
		status := "PASS"
		if !r.Passed {
			status = "FAIL"
		}
		fmt.Fprintf(&b, "  Chapter %d: %s (%d words)\n", r.ChapterIdx, status, r.WordCount)
	}

	b.WriteString("\n" + rule)
	return b.String()
}
