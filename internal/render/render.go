// Package render draws CLI output: styled status lines, search hit tables,
// book listings, and validation digests.
package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/vampirenirmal/bookforge/internal/book"
	"github.com/vampirenirmal/bookforge/internal/index"
	"github.com/vampirenirmal/bookforge/internal/validate"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#8BC34A"))
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#6b7280"))
	passStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#8BC34A"))
	failStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#e53935"))
	activeStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#2196F3"))
)

// Table renders rows under a header line with columns sized to content.
type Table struct {
	Title   string
	Headers []string
	Rows    [][]string
}

func NewTable(title string, headers ...string) *Table {
	return &Table{Title: title, Headers: headers}
}

func (t *Table) AddRow(cells ...string) {
	t.Rows = append(t.Rows, cells)
}

func (t *Table) Render() string {
	if len(t.Rows) == 0 {
		return mutedStyle.Render("(no results)") + "\n"
	}

	widths := make([]int, len(t.Headers))
	for i, h := range t.Headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range t.Rows {
		for i, cell := range row {
			if i < len(widths) && lipgloss.Width(cell) > widths[i] {
				widths[i] = lipgloss.Width(cell)
			}
		}
	}
	for i := range widths {
		widths[i] += 2
	}

	var sb strings.Builder
	if t.Title != "" {
		sb.WriteString(titleStyle.Render(t.Title))
		sb.WriteString("\n")
	}
	for i, h := range t.Headers {
		sb.WriteString(headerStyle.Width(widths[i]).Render(h))
	}
	sb.WriteString("\n")

	total := 0
	for _, w := range widths {
		total += w
	}
	sb.WriteString(mutedStyle.Render(strings.Repeat("-", total)))
	sb.WriteString("\n")

	for _, row := range t.Rows {
		for i, cell := range row {
			if i < len(widths) {
				sb.WriteString(cellStyle.Width(widths[i]).Render(cell))
			}
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// SearchHits renders retrieval results with truncated excerpt previews.
func SearchHits(query string, hits []index.Hit) string {
	t := NewTable(fmt.Sprintf("Search: %q", query), "Score", "Chapter", "Chunk", "Excerpt")
	for _, h := range hits {
		t.AddRow(
			fmt.Sprintf("%.3f", h.Score),
			fmt.Sprintf("%d: %s", h.ChapterIdx, h.ChapterTitle),
			fmt.Sprint(h.ChunkIdxInChapter),
			excerpt(h.Text, 60),
		)
	}
	return t.Render()
}

// BookList renders the registry with the active book marked.
func BookList(entries []book.Entry) string {
	t := NewTable("Books", "", "Name", "Title", "Chapters", "Created")
	for _, e := range entries {
		marker := " "
		if e.Active {
			marker = activeStyle.Render("*")
		}
		t.AddRow(marker, e.Name, e.Info.DisplayName,
			fmt.Sprint(e.Info.TotalChapters),
			e.Info.Created.Format("2006-01-02"))
	}
	return t.Render()
}

// ValidationReport renders one chapter's continuity digest with a colored
// verdict line.
func ValidationReport(r validate.Report) string {
	verdict := passStyle.Render("PASSED")
	if !r.Passed {
		verdict = failStyle.Render("FAILED")
	}
	return r.Summary() + "\n" + verdict + "\n"
}

// ValidationBatch renders the aggregate digest plus a per-chapter verdict
// table.
func ValidationBatch(reports []validate.Report) string {
	t := NewTable("", "Chapter", "Words", "Issues", "Status")
	for _, r := range reports {
		status := passStyle.Render("pass")
		if !r.Passed {
			status = failStyle.Render("FAIL")
		}
		t.AddRow(fmt.Sprint(r.ChapterIdx), fmt.Sprint(r.WordCount),
			fmt.Sprint(r.TotalIssues()), status)
	}
	return validate.BatchSummary(reports) + "\n" + t.Render()
}

func excerpt(text string, limit int) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "..."
}
