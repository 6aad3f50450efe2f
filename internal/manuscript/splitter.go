package manuscript

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	chapterHeadingRE = regexp.MustCompile(`(?i)^\s*(chapter|ch)\s+(\d+)\s*(?:[:.\-–—]\s*)?(.*\S)?\s*$`)
	// Dot-leader lines from a table of contents: "Chapter 3 ........ 41".
	tocLineRE = regexp.MustCompile(`(?i)^\s*(chapter|ch)\s+\d+\s*[:.\-–—]?\s*.*?\.{5,}\s*\d+\s*$`)
)

// headingStyles are paragraph styles treated as chapter headings regardless
// of wording. DOCX style IDs drop the space, so both forms appear in the wild.
var headingStyles = map[string]bool{
	"Heading1": true, "Heading 1": true,
	"Heading2": true, "Heading 2": true,
}

// Chapter is one contiguous span of paragraphs under a single heading.
type Chapter struct {
	Title      string   `json:"title"`
	Paragraphs []string `json:"paras"`
}

// Text joins the chapter's paragraphs with blank lines.
func (c Chapter) Text() string {
	return strings.Join(c.Paragraphs, "\n\n")
}

// WordCount counts whitespace-separated words across the chapter.
func (c Chapter) WordCount() int {
	n := 0
	for _, p := range c.Paragraphs {
		n += len(strings.Fields(p))
	}
	return n
}

// IsTOCLine reports whether a line is a table-of-contents entry.
func IsTOCLine(text string) bool {
	return tocLineRE.MatchString(strings.TrimSpace(text))
}

func isChapterHeading(style, text string) bool {
	if headingStyles[style] {
		// Some books style TOC entries as headings; those still do not start
		// a chapter.
		return !IsTOCLine(text)
	}
	if IsTOCLine(text) {
		return false
	}
	return chapterHeadingRE.MatchString(strings.TrimSpace(text))
}

// ParseChapterTitle normalizes a heading into "Chapter N" or
// "Chapter N: Title". Headings that do not match the pattern pass through
// unchanged.
func ParseChapterTitle(text string) string {
	t := strings.TrimSpace(text)
	m := chapterHeadingRE.FindStringSubmatch(t)
	if m == nil {
		return t
	}
	if title := strings.TrimSpace(m[3]); title != "" {
		return fmt.Sprintf("Chapter %s: %s", m[2], title)
	}
	return fmt.Sprintf("Chapter %s", m[2])
}

// SplitChapters groups paragraphs into chapters at heading boundaries.
// Paragraphs before the first heading become "Front Matter"; TOC lines are
// dropped entirely. A book with no headings at all comes back as one "Full
// Book" chapter rather than nothing.
func SplitChapters(paras []Paragraph) []Chapter {
	var chapters []Chapter
	current := Chapter{Title: "Front Matter"}

	push := func() {
		if len(current.Paragraphs) > 0 {
			chapters = append(chapters, current)
		}
		current = Chapter{Title: "Untitled"}
	}

	for _, p := range paras {
		if IsTOCLine(p.Text) {
			continue
		}
		if isChapterHeading(p.Style, p.Text) {
			push()
			current.Title = ParseChapterTitle(p.Text)
			continue
		}
		current.Paragraphs = append(current.Paragraphs, p.Text)
	}
	push()

	if len(chapters) == 0 {
		all := make([]string, len(paras))
		for i, p := range paras {
			all[i] = p.Text
		}
		return []Chapter{{Title: "Full Book", Paragraphs: all}}
	}
	return chapters
}

// LoadChapters reads a DOCX manuscript and splits it into chapters.
func LoadChapters(path string) ([]Chapter, error) {
	paras, err := ReadDocx(path)
	if err != nil {
		return nil, err
	}
	return SplitChapters(paras), nil
}
