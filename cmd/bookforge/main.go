// bookforge is the command-line frontend for the manuscript rewrite engine:
// book workspaces, indexing and search, bible creation, chapter rewriting,
// and continuity validation.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/vampirenirmal/bookforge/internal/agent"
	"github.com/vampirenirmal/bookforge/internal/assemble"
	"github.com/vampirenirmal/bookforge/internal/bible"
	"github.com/vampirenirmal/bookforge/internal/book"
	"github.com/vampirenirmal/bookforge/internal/config"
	"github.com/vampirenirmal/bookforge/internal/index"
	"github.com/vampirenirmal/bookforge/internal/manuscript"
	"github.com/vampirenirmal/bookforge/internal/pipeline"
	"github.com/vampirenirmal/bookforge/internal/storage"
	"github.com/vampirenirmal/bookforge/internal/style"
)

var (
	flagConfig    string
	flagWorkspace string
	flagBook      string
	flagVerbose   bool
)

var rootCmd = &cobra.Command{
	Use:   "bookforge",
	Short: "Manuscript rewrite engine",
	Long: `bookforge rewrites draft manuscripts chapter by chapter: it indexes the
draft for retrieval, builds a book bible, tracks characters across chapters,
runs each chapter through a multi-stage rewrite pipeline, and validates the
output for POV, style restrictions, and continuity.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := slog.LevelInfo
		if flagVerbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		return nil
	},
}

func main() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "bookforge.yaml", "config file path")
	rootCmd.PersistentFlags().StringVar(&flagWorkspace, "workspace", ".", "workspace root directory")
	rootCmd.PersistentFlags().StringVar(&flagBook, "book", "", "book name (defaults to the active book)")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "debug logging")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// app bundles the loaded settings with the workspace, resolved once per
// command invocation.
type app struct {
	cfg *config.Settings
	mgr *book.Manager
}

func newApp() (*app, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, err
	}
	mgr := book.NewManager(flagWorkspace).WithLayout(cfg.Paths.BooksDir, cfg.Paths.RegistryFile)
	return &app{cfg: cfg, mgr: mgr}, nil
}

// resolveBook returns the target book: the --book flag if given, otherwise
// the active book. The book's own setting overrides are layered onto the
// workspace settings before any command reads them.
func (a *app) resolveBook() (string, error) {
	name := flagBook
	if name == "" {
		active, ok, err := a.mgr.Active()
		if err != nil {
			return "", err
		}
		if !ok {
			return "", fmt.Errorf("no active book; create one with 'bookforge books create' or pass --book")
		}
		name = active
	}

	if bc, ok, err := a.mgr.LoadConfig(name); err == nil && ok && len(bc.Settings) > 0 {
		a.cfg.ApplyOverrides(bc.Settings)
		if err := a.cfg.Validate(); err != nil {
			return "", fmt.Errorf("book %q settings: %w", name, err)
		}
	}
	return name, nil
}

// chapters loads and splits the book's source manuscript.
func (a *app) chapters(name string) ([]manuscript.Chapter, error) {
	info, err := a.bookInfo(name)
	if err != nil {
		return nil, err
	}
	src := filepath.Join(a.mgr.Paths(name).Source, info.SourceFile)
	return manuscript.LoadChapters(src)
}

func (a *app) bookInfo(name string) (book.Info, error) {
	entries, err := a.mgr.List()
	if err != nil {
		return book.Info{}, err
	}
	for _, e := range entries {
		if e.Name == name {
			return e.Info, nil
		}
	}
	return book.Info{}, fmt.Errorf("%q: %w", name, book.ErrBookNotFound)
}

// generators builds the three chat backends. The thinking backend falls back
// to the primary model, and the baseline backend falls back to the primary
// endpoint, when not separately configured.
func (a *app) generators() map[pipeline.Backend]agent.Generator {
	chat := a.cfg.Chat
	timeout := time.Duration(chat.TimeoutSeconds) * time.Second

	primary := agent.NewChatClient(chat.APIKey, chat.BaseURL, chat.Model,
		agent.WithMaxRetries(chat.MaxRetries), agent.WithTimeout(timeout))

	thinkingModel := chat.ThinkingModel
	if thinkingModel == "" {
		thinkingModel = chat.Model
	}
	thinking := agent.NewChatClient(chat.APIKey, chat.BaseURL, thinkingModel,
		agent.WithMaxRetries(chat.MaxRetries), agent.WithTimeout(timeout))

	baseKey, baseURL, baseModel := chat.BaselineAPIKey, chat.BaselineBaseURL, chat.BaselineModel
	if baseKey == "" || baseURL == "" || baseModel == "" {
		baseKey, baseURL, baseModel = chat.APIKey, chat.BaseURL, chat.Model
	}
	baseline := agent.NewChatClient(baseKey, baseURL, baseModel,
		agent.WithMaxRetries(chat.MaxRetries), agent.WithTimeout(timeout))

	return map[pipeline.Backend]agent.Generator{
		pipeline.BackendPrimary:  primary,
		pipeline.BackendThinking: thinking,
		pipeline.BackendBaseline: baseline,
	}
}

func (a *app) embedder() agent.Embedder {
	e := a.cfg.Embedding
	return agent.NewEmbeddingClient(e.APIKey, e.BaseURL, e.Model,
		agent.WithEmbedBatchSize(e.BatchSize))
}

// retriever loads the book's persisted index. ErrNotIndexed surfaces when the
// book has never been indexed.
func (a *app) retriever(name string) (*index.Retriever, error) {
	idx, _, err := index.Load(a.mgr.Paths(name).Index)
	if err != nil {
		return nil, err
	}
	return index.NewRetriever(idx, a.embedder()), nil
}

// assembler wires every available context source for a book. A missing index
// or bible degrades the matching source instead of failing.
func (a *app) assembler(ctx context.Context, name string, store *storage.Store) (*assemble.Assembler, error) {
	cfg := assemble.DefaultConfig()
	cfg.PreviousCount = a.cfg.Context.PreviousChapters
	cfg.FutureCount = a.cfg.Context.FutureChapters
	cfg.ChunkCap = a.cfg.Context.ChunkCharBudget
	cfg.FutureCap = a.cfg.Context.FutureCharBudget
	cfg.TopK = a.cfg.Retrieval.TopK

	asm := assemble.New(cfg).WithRewrites(store)

	if text, ok, err := bible.LoadEnhanced(ctx, store); err == nil && ok {
		asm = asm.WithBible(text)
	} else if text, ok, err := bible.Load(ctx, store); err == nil && ok {
		asm = asm.WithBible(text)
	}

	if retriever, err := a.retriever(name); err == nil {
		asm = asm.WithRetriever(retriever)
	}

	if chapters, err := a.chapters(name); err == nil {
		asm = asm.WithChapters(chapters)
	}

	return asm, nil
}

// orchestrator assembles the full rewrite pipeline for a book.
func (a *app) orchestrator(ctx context.Context, name string) (*pipeline.Orchestrator, *storage.Store, error) {
	store := a.mgr.Store(name)
	asm, err := a.assembler(ctx, name, store)
	if err != nil {
		return nil, nil, err
	}

	var opts []pipeline.Option
	if a.cfg.Pipeline.SaveIntermediates {
		opts = append(opts, pipeline.WithIntermediates())
	}
	profilePath := filepath.Join(a.mgr.Paths(name).Metadata, "style_profile.json")
	if profile, ok, err := style.Load(profilePath); err == nil && ok {
		opts = append(opts, pipeline.WithStyleProfile(style.FormatForPrompt(profile)))
	}

	o, err := pipeline.New(name, pipeline.Stages(pipeline.Mode(a.cfg.Pipeline.Mode)),
		a.generators(), asm, store, opts...)
	if err != nil {
		return nil, nil, err
	}
	return o, store, nil
}
