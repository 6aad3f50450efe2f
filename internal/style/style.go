// Package style measures the prose characteristics of sample chapters so the
// rewrite can be steered toward the book's own voice.
package style

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"
)

// Profile summarizes the measurable texture of one or more chapters.
type Profile struct {
	SentenceLengthMean   float64  `json:"sentence_length_mean"`
	SentenceLengthStd    float64  `json:"sentence_length_std"`
	SentenceLengthMedian float64  `json:"sentence_length_median"`
	DialogueRatio        float64  `json:"dialogue_ratio"`
	DescriptionDensity   float64  `json:"description_density"`
	ParagraphCount       int      `json:"paragraph_count"`
	WordCount            int      `json:"word_count"`
	CommonPatterns       []string `json:"common_patterns"`
	TransitionPatterns   []string `json:"transition_patterns"`
	SampleChapters       []int    `json:"sample_chapters"`
}

var sentenceSplit = regexp.MustCompile(`[.!?]+`)

// sensoryWords are matched as substrings, so "watched" and "coldly" count.
var sensoryWords = []string{
	"see", "saw", "look", "watch", "stare", "gaze",
	"hear", "heard", "listen", "sound", "noise", "quiet",
	"feel", "felt", "touch", "cold", "warm", "hot", "hard", "soft",
	"smell", "scent", "odor", "fragrance", "stench",
	"taste", "flavor", "bitter", "sweet", "sour", "salty",
	"red", "blue", "green", "yellow", "black", "white",
	"bright", "dark", "light", "shadow",
	"wind", "rain", "snow", "sun", "moon",
}

var transitionWords = map[string]bool{
	"then": true, "next": true, "after": true, "before": true, "later": true,
	"meanwhile": true, "suddenly": true, "finally": true, "eventually": true,
}

func sentences(text string) []string {
	var out []string
	for _, s := range sentenceSplit.Split(text, -1) {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// sentenceLengths returns mean, population std deviation, and median of
// words-per-sentence.
func sentenceLengths(text string) (mean, std, median float64) {
	sents := sentences(text)
	if len(sents) == 0 {
		return 0, 0, 0
	}

	lengths := make([]int, len(sents))
	total := 0
	for i, s := range sents {
		lengths[i] = len(strings.Fields(s))
		total += lengths[i]
	}

	mean = float64(total) / float64(len(lengths))
	var variance float64
	for _, n := range lengths {
		d := float64(n) - mean
		variance += d * d
	}
	std = math.Sqrt(variance / float64(len(lengths)))

	sort.Ints(lengths)
	median = float64(lengths[len(lengths)/2])
	return mean, std, median
}

// dialogueRatio is the percentage of non-heading lines containing a quote.
func dialogueRatio(text string) float64 {
	dialogue, total := 0, 0
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		total++
		if strings.ContainsAny(line, `"'`) {
			dialogue++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(dialogue) / float64(total) * 100
}

// descriptionDensity counts sensory words per thousand words.
func descriptionDensity(text string) float64 {
	words := strings.Fields(strings.ToLower(text))
	if len(words) == 0 {
		return 0
	}

	count := 0
	for _, word := range words {
		for _, s := range sensoryWords {
			if strings.Contains(word, s) {
				count++
				break
			}
		}
	}
	return float64(count) / float64(len(words)) * 1000
}

// commonPatterns samples the first twenty real sentences and returns the most
// frequent three-word openers.
func commonPatterns(text string, limit int) []string {
	var sample []string
	for _, s := range sentences(text) {
		if len(strings.Fields(s)) >= 5 {
			sample = append(sample, s)
		}
		if len(sample) == 20 {
			break
		}
	}

	counts := make(map[string]int)
	var order []string
	for _, s := range sample {
		words := strings.Fields(s)
		if len(words) < 3 {
			continue
		}
		pattern := strings.Join(words[:3], " ")
		if counts[pattern] == 0 {
			order = append(order, pattern)
		}
		counts[pattern]++
	}

	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})
	if len(order) > limit {
		order = order[:limit]
	}
	return order
}

// transitionPatterns collects transition words opening paragraphs, unique and
// sorted.
func transitionPatterns(text string) []string {
	seen := make(map[string]bool)
	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" || strings.HasPrefix(para, "#") {
			continue
		}

		words := strings.Fields(para)
		if len(words) > 3 {
			words = words[:3]
		}
		for _, word := range words {
			word = strings.ToLower(strings.Trim(word, ".,;:"))
			if transitionWords[word] {
				seen[word] = true
				break
			}
		}
	}

	out := make([]string, 0, len(seen))
	for w := range seen {
		out = append(out, w)
	}
	sort.Strings(out)
	return out
}

// AnalyzeChapter profiles a single chapter.
func AnalyzeChapter(text string, chapterIdx int) Profile {
	mean, std, median := sentenceLengths(text)

	paragraphs := 0
	for _, p := range strings.Split(text, "\n\n") {
		if p = strings.TrimSpace(p); p != "" && !strings.HasPrefix(p, "#") {
			paragraphs++
		}
	}

	return Profile{
		SentenceLengthMean:   mean,
		SentenceLengthStd:    std,
		SentenceLengthMedian: median,
		DialogueRatio:        dialogueRatio(text),
		DescriptionDensity:   descriptionDensity(text),
		ParagraphCount:       paragraphs,
		WordCount:            len(strings.Fields(text)),
		CommonPatterns:       commonPatterns(text, 5),
		TransitionPatterns:   transitionPatterns(text),
		SampleChapters:       []int{chapterIdx},
	}
}

// Sample pairs a chapter index with its text.
type Sample struct {
	ChapterIdx int
	Text       string
}

// Build aggregates a profile across sample chapters: metric means, summed
// counts, the first sample's opener patterns, and the union of transitions.
// Samples are analyzed concurrently; aggregation order follows the input.
func Build(samples []Sample) Profile {
	if len(samples) == 0 {
		return Profile{}
	}

	profiles := make([]Profile, len(samples))
	var g errgroup.Group
	for i, s := range samples {
		i, s := i, s
		g.Go(func() error {
			profiles[i] = AnalyzeChapter(s.Text, s.ChapterIdx)
			return nil
		})
	}
	_ = g.Wait() // analysis itself never fails

	agg := Profile{CommonPatterns: profiles[0].CommonPatterns}
	transitions := make(map[string]bool)
	n := float64(len(profiles))
	for _, p := range profiles {
		agg.SentenceLengthMean += p.SentenceLengthMean / n
		agg.SentenceLengthStd += p.SentenceLengthStd / n
		agg.SentenceLengthMedian += p.SentenceLengthMedian / n
		agg.DialogueRatio += p.DialogueRatio / n
		agg.DescriptionDensity += p.DescriptionDensity / n
		agg.ParagraphCount += p.ParagraphCount
		agg.WordCount += p.WordCount
		agg.SampleChapters = append(agg.SampleChapters, p.SampleChapters...)
		for _, t := range p.TransitionPatterns {
			transitions[t] = true
		}
	}
	for t := range transitions {
		agg.TransitionPatterns = append(agg.TransitionPatterns, t)
	}
	sort.Strings(agg.TransitionPatterns)
	return agg
}

// FormatForPrompt renders the profile as the style block rewrite prompts use.
func FormatForPrompt(p Profile) string {
	if p.WordCount == 0 {
		return "No style profile available yet."
	}

	chapters := make([]string, len(p.SampleChapters))
	for i, c := range p.SampleChapters {
		chapters[i] = fmt.Sprintf("%d", c)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "## STYLE PROFILE (from chapters %s)\n\n", strings.Join(chapters, ", "))
	b.WriteString("### Sentence Structure\n")
	fmt.Fprintf(&b, "- Average length: %.1f +/- %.1f words\n", p.SentenceLengthMean, p.SentenceLengthStd)
	fmt.Fprintf(&b, "- Median length: %.1f words\n\n", p.SentenceLengthMedian)
	b.WriteString("### Dialogue & Description\n")
	fmt.Fprintf(&b, "- Dialogue ratio: %.1f%%\n", p.DialogueRatio)
	fmt.Fprintf(&b, "- Sensory detail density: %.1f per 1000 words\n\n", p.DescriptionDensity)
	b.WriteString("### Content\n")
	fmt.Fprintf(&b, "- Paragraphs: %d\n", p.ParagraphCount)
	fmt.Fprintf(&b, "- Total words: %d\n\n", p.WordCount)

	b.WriteString("### Common Patterns\n")
	writeList(&b, p.CommonPatterns)
	b.WriteString("\n### Transitions\n")
	writeList(&b, p.TransitionPatterns)
	return b.String()
}

func writeList(b *strings.Builder, items []string) {
	if len(items) == 0 {
		b.WriteString("- N/A\n")
		return
	}
	if len(items) > 5 {
		items = items[:5]
	}
	for _, item := range items {
		fmt.Fprintf(b, "- %s\n", item)
	}
}
