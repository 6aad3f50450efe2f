package validate

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/vampirenirmal/bookforge/internal/ledger"
)

// Thresholds above which a chapter fails outright. Counts at or below these
// are reported but do not fail the chapter on their own.
const (
	maxPOVViolations = 5
	maxEmDashLines   = 10
	maxContractions  = 10
)

// pronounWhitelist lists words never treated as character names.
var pronounWhitelist = map[string]bool{
	"i": true, "me": true, "my": true, "mine": true, "myself": true,
	"he": true, "him": true, "his": true, "himself": true,
	"she": true, "her": true, "hers": true, "herself": true,
	"they": true, "them": true, "their": true, "theirs": true, "themself": true,
	"we": true, "us": true, "our": true, "ours": true, "ourselves": true,
	"you": true, "your": true, "yours": true, "yourself": true, "yourselves": true,
}

var locationIndicators = []string{"location:", "scene:", "setting:", "at the", "in the"}

var capitalizedWord = regexp.MustCompile(`\b[A-Z][a-z]+\b`)

// RestrictionViolations groups the stylistic bans.
type RestrictionViolations struct {
	EmDashes     []int                  `json:"em_dashes"`
	Contractions []ContractionViolation `json:"contractions"`
}

// Report holds every finding for one chapter.
type Report struct {
	ChapterIdx      int                   `json:"chapter_idx"`
	POVViolations   []POVViolation        `json:"pov_violations"`
	CharacterIssues []string              `json:"character_issues"`
	LocationIssues  []string              `json:"location_issues"`
	PacingOK        bool                  `json:"pacing_ok"`
	WordCount       int                   `json:"word_count"`
	TargetMin       int                   `json:"target_min"`
	TargetMax       int                   `json:"target_max"`
	Restrictions    RestrictionViolations `json:"restriction_violations"`
	Passed          bool                  `json:"passed"`
	Errors          []string              `json:"errors"`
}

// TotalIssues sums every finding category.
func (r Report) TotalIssues() int {
	return len(r.POVViolations) +
		len(r.Restrictions.EmDashes) +
		len(r.Restrictions.Contractions) +
		len(r.CharacterIssues) +
		len(r.LocationIssues)
}

// TargetFunc resolves the word-count range for one chapter, letting targets
// vary with the chapter's position in the book.
type TargetFunc func(chapterIdx int) (min, max int)

// Validator runs the continuity checks against one ledger and one word-count
// target range.
type Validator struct {
	ledger    *ledger.Ledger
	targetMin int
	targetMax int
	targetFor TargetFunc
	logger    *slog.Logger
}

func New(l *ledger.Ledger, targetMin, targetMax int) *Validator {
	return &Validator{
		ledger:    l,
		targetMin: targetMin,
		targetMax: targetMax,
		logger:    slog.Default().With("component", "validator"),
	}
}

// WithTargetFunc overrides the fixed word-count range with a per-chapter
// resolver.
func (v *Validator) WithTargetFunc(f TargetFunc) *Validator {
	v.targetFor = f
	return v
}

// WithLogger replaces the validator's logger.
func (v *Validator) WithLogger(logger *slog.Logger) *Validator {
	v.logger = logger
	return v
}

// Chapter validates one chapter against its predecessors. Each check runs
// independently; one check's findings never mask another's.
func (v *Validator) Chapter(text string, chapterIdx int, previousChapters []string) Report {
	targetMin, targetMax := v.targetMin, v.targetMax
	if v.targetFor != nil {
		targetMin, targetMax = v.targetFor(chapterIdx)
	}

	r := Report{
		ChapterIdx: chapterIdx,
		TargetMin:  targetMin,
		TargetMax:  targetMax,
		Passed:     true,
		Errors:     []string{},
	}

	r.WordCount = len(strings.Fields(text))
	r.PacingOK = r.WordCount >= targetMin && r.WordCount <= targetMax
	if !r.PacingOK {
		r.Passed = false
		if r.WordCount < targetMin {
			r.Errors = append(r.Errors, fmt.Sprintf("Word count (%d) below minimum (%d)", r.WordCount, targetMin))
		} else {
			r.Errors = append(r.Errors, fmt.Sprintf("Word count (%d) above maximum (%d)", r.WordCount, targetMax))
		}
	}

	r.POVViolations = CheckFirstPersonPOV(text)
	r.Restrictions = RestrictionViolations{
		EmDashes:     CheckEmDashes(text),
		Contractions: CheckContractions(text),
	}
	r.CharacterIssues = v.characterConsistency(text)
	r.LocationIssues = locationContinuity(text, previousChapters)

	if n := len(r.POVViolations); n > maxPOVViolations {
		r.Passed = false
		r.Errors = append(r.Errors, fmt.Sprintf("Too many POV violations: %d", n))
	}
	if n := len(r.Restrictions.EmDashes); n > maxEmDashLines {
		r.Passed = false
		r.Errors = append(r.Errors, fmt.Sprintf("Too many em dashes: %d", n))
	}
	if n := len(r.Restrictions.Contractions); n > maxContractions {
		r.Passed = false
		r.Errors = append(r.Errors, fmt.Sprintf("Too many contractions: %d", n))
	}

	v.logger.Info("chapter validated",
		"chapter", chapterIdx,
		"passed", r.Passed,
		"words", r.WordCount,
		"issues", r.TotalIssues())
	return r
}

// characterConsistency flags likely spelling drift for known characters and
// frequent capitalized words that match no ledger entry. Pronouns never count:
// in a first-person narrative they are narration, not names.
func (v *Validator) characterConsistency(text string) []string {
	issues := []string{}
	lower := strings.ToLower(text)

	for _, c := range v.ledger.Characters() {
		var realAliases []string
		for _, alias := range c.Aliases {
			if !pronounWhitelist[strings.ToLower(alias)] && len(alias) > 2 {
				realAliases = append(realAliases, alias)
			}
		}

		// Canonical spelling absent but an alias present suggests the rewrite
		// drifted to a variant spelling.
		if strings.Contains(text, c.CanonicalName) || len(realAliases) == 0 {
			continue
		}
		for _, alias := range realAliases {
			if strings.Contains(lower, strings.ToLower(alias)) {
				shown := realAliases
				if len(shown) > 3 {
					shown = shown[:3]
				}
				issues = append(issues, fmt.Sprintf(
					"Character '%s' may have spelling variant: %s",
					c.CanonicalName, strings.Join(shown, ", ")))
				break
			}
		}
	}

	// Frequent capitalized words with no ledger entry hint at an invented
	// character. Threshold of three filters one-off sentence starts.
	counts := make(map[string]int)
	var order []string
	for _, word := range capitalizedWord.FindAllString(text, -1) {
		if pronounWhitelist[strings.ToLower(word)] || len(word) <= 2 {
			continue
		}
		if counts[word] == 0 {
			order = append(order, word)
		}
		counts[word]++
	}
	for _, word := range order {
		if counts[word] < 3 {
			continue
		}
		if v.ledger.Resolve(word) == "" && !v.ledger.HasLocation(word) {
			issues = append(issues, fmt.Sprintf(
				"Potential new character detected: '%s' (appears %d times)", word, counts[word]))
		}
	}

	return issues
}

// locationContinuity flags location phrasing that never appeared in the two
// chapters immediately before this one. With no prior chapters there is
// nothing to be continuous with.
func locationContinuity(text string, previousChapters []string) []string {
	issues := []string{}
	if len(previousChapters) == 0 {
		return issues
	}

	recent := previousChapters
	if len(recent) > 2 {
		recent = recent[len(recent)-2:]
	}

	lower := strings.ToLower(text)
	for _, indicator := range locationIndicators {
		if !strings.Contains(lower, indicator) {
			continue
		}
		found := false
		for _, prev := range recent {
			if strings.Contains(strings.ToLower(prev), indicator) {
				found = true
				break
			}
		}
		if !found {
			issues = append(issues, fmt.Sprintf(
				"New location introduced without clear transition: %s", indicator))
		}
	}
	return issues
}

// Batch validates every chapter concurrently. Chapter i still sees chapters
// 0..i-1 as its predecessors, so results match a sequential run; only the
// wall-clock order differs.
func (v *Validator) Batch(ctx context.Context, chapters []string) ([]Report, error) {
	reports := make([]Report, len(chapters))

	g, ctx := errgroup.WithContext(ctx)
	for idx := range chapters {
		idx := idx
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			reports[idx] = v.Chapter(chapters[idx], idx, chapters[:idx])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return reports, nil
}
