package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/vampirenirmal/bookforge/internal/extract"
	"github.com/vampirenirmal/bookforge/internal/ledger"
	"github.com/vampirenirmal/bookforge/internal/pacing"
	"github.com/vampirenirmal/bookforge/internal/pipeline"
	"github.com/vampirenirmal/bookforge/internal/render"
	"github.com/vampirenirmal/bookforge/internal/storage"
	"github.com/vampirenirmal/bookforge/internal/style"
	"github.com/vampirenirmal/bookforge/internal/validate"
)

var extractChapter int

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract character facts into the ledger",
	Long: `Run character extraction over the manuscript (or one chapter with
--chapter) and merge the results into the book's character ledger.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		name, err := a.resolveBook()
		if err != nil {
			return err
		}
		chapters, err := a.chapters(name)
		if err != nil {
			return err
		}

		led, err := ledger.Load(ledgerPath(a, name))
		if err != nil {
			return err
		}
		extractor := extract.New(a.generators()[pipeline.BackendPrimary])

		from, to := 0, len(chapters)-1
		if extractChapter >= 0 {
			from, to = extractChapter, extractChapter
		}
		for idx := from; idx <= to; idx++ {
			ex, err := extractor.Chapter(cmd.Context(), idx, chapters[idx].Text())
			if err != nil {
				return err
			}
			merged := led.Merge(ex, idx)
			fmt.Printf("Chapter %d: %d character record(s) merged\n", idx, merged)
		}

		if err := led.Save(ledgerPath(a, name)); err != nil {
			return err
		}
		fmt.Printf("Ledger saved (%d characters)\n", led.Len())
		return nil
	},
}

var validateRaw bool

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Run continuity validation over rewritten chapters",
	Long: `Validate every chapter for POV discipline, style restrictions,
character name consistency, location continuity, and pacing. Rewritten
chapters are validated when present; --raw validates the source manuscript
instead. Reports are written under validation/.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		name, err := a.resolveBook()
		if err != nil {
			return err
		}
		chapters, err := a.chapters(name)
		if err != nil {
			return err
		}
		store := a.mgr.Store(name)

		texts := make([]string, len(chapters))
		for idx, ch := range chapters {
			texts[idx] = ch.Text()
			if !validateRaw {
				if text, ok := store.FinalChapter(idx); ok {
					texts[idx] = text
				}
			}
		}

		led, err := ledger.Load(ledgerPath(a, name))
		if err != nil {
			return err
		}
		v := validate.New(led, a.cfg.Pacing.TargetWordsMin, a.cfg.Pacing.TargetWordsMax).
			WithTargetFunc(func(idx int) (int, int) {
				t := pacing.TargetFor(idx, len(chapters),
					a.cfg.Pacing.TargetWordsMin, a.cfg.Pacing.TargetWordsMax)
				return t.Min, t.Max
			})

		reports, err := v.Batch(cmd.Context(), texts)
		if err != nil {
			return err
		}
		for _, r := range reports {
			path := filepath.Join(a.mgr.Paths(name).Root, storage.ReportPath(r.ChapterIdx))
			if err := validate.SaveReport(r, path); err != nil {
				return err
			}
		}
		fmt.Print(render.ValidationBatch(reports))
		return nil
	},
}

var styleCmd = &cobra.Command{
	Use:   "style",
	Short: "Build the author style profile from early chapters",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		name, err := a.resolveBook()
		if err != nil {
			return err
		}
		chapters, err := a.chapters(name)
		if err != nil {
			return err
		}

		n := a.cfg.Pipeline.StyleSampleSize
		if n > len(chapters) {
			n = len(chapters)
		}
		samples := make([]style.Sample, n)
		for idx := 0; idx < n; idx++ {
			samples[idx] = style.Sample{ChapterIdx: idx, Text: chapters[idx].Text()}
		}

		profile := style.Build(samples)
		path := filepath.Join(a.mgr.Paths(name).Metadata, "style_profile.json")
		if err := style.Save(profile, path); err != nil {
			return err
		}
		fmt.Println(style.FormatForPrompt(profile))
		return nil
	},
}

var pacingRaw bool

var pacingCmd = &cobra.Command{
	Use:   "pacing",
	Short: "Measure chapter lengths against position-based targets",
	Long: `Compare every chapter's word count against its position-scaled word
target and summarize its paragraph rhythm. Rewritten chapters are measured
when present; --raw measures the source manuscript instead.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		name, err := a.resolveBook()
		if err != nil {
			return err
		}
		chapters, err := a.chapters(name)
		if err != nil {
			return err
		}
		store := a.mgr.Store(name)

		t := render.NewTable("Pacing", "Chapter", "Words", "Target", "Dialogue", "Action", "Status")
		for idx, ch := range chapters {
			text := ch.Text()
			if !pacingRaw {
				if final, ok := store.FinalChapter(idx); ok {
					text = final
				}
			}

			target := pacing.TargetFor(idx, len(chapters),
				a.cfg.Pacing.TargetWordsMin, a.cfg.Pacing.TargetWordsMax)
			check := pacing.Validate(text, target)
			analysis := pacing.Analyze(text)

			status := "within range"
			if !check.WithinRange {
				status = check.Suggestion
			}
			t.AddRow(
				fmt.Sprint(idx),
				fmt.Sprint(check.WordCount),
				fmt.Sprintf("%d-%d", target.Min, target.Max),
				fmt.Sprint(analysis.DialogueParagraphs),
				fmt.Sprint(analysis.ActionParagraphs),
				status,
			)
		}
		fmt.Print(t.Render())
		return nil
	},
}

var exportChaptersCmd = &cobra.Command{
	Use:   "export-chapters",
	Short: "Export split chapters as JSON",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		name, err := a.resolveBook()
		if err != nil {
			return err
		}
		chapters, err := a.chapters(name)
		if err != nil {
			return err
		}

		type exported struct {
			Idx   int    `json:"idx"`
			Title string `json:"title"`
			Text  string `json:"text"`
		}
		out := make([]exported, len(chapters))
		for idx, ch := range chapters {
			out[idx] = exported{Idx: idx, Title: ch.Title, Text: ch.Text()}
		}

		data, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return err
		}
		path := filepath.Join(a.mgr.Paths(name).Metadata, "chapters.json")
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return err
		}
		fmt.Printf("Exported %d chapters to %s\n", len(out), path)
		return nil
	},
}

var reportCmd = &cobra.Command{
	Use:   "report <chapter>",
	Short: "Show a chapter's saved continuity report",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		chapterIdx, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("chapter must be an integer")
		}
		a, err := newApp()
		if err != nil {
			return err
		}
		name, err := a.resolveBook()
		if err != nil {
			return err
		}

		path := filepath.Join(a.mgr.Paths(name).Root, storage.ReportPath(chapterIdx))
		r, err := validate.LoadReport(path)
		if err != nil {
			return err
		}
		fmt.Print(render.ValidationReport(r))
		return nil
	},
}

func init() {
	extractCmd.Flags().IntVar(&extractChapter, "chapter", -1, "extract a single chapter (default: all)")
	validateCmd.Flags().BoolVar(&validateRaw, "raw", false, "validate the source manuscript instead of rewrites")
	pacingCmd.Flags().BoolVar(&pacingRaw, "raw", false, "measure the source manuscript instead of rewrites")
	rootCmd.AddCommand(extractCmd, validateCmd, styleCmd, pacingCmd, exportChaptersCmd, reportCmd)
}
