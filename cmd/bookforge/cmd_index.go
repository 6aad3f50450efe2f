package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vampirenirmal/bookforge/internal/book"
	"github.com/vampirenirmal/bookforge/internal/chunk"
	"github.com/vampirenirmal/bookforge/internal/index"
	"github.com/vampirenirmal/bookforge/internal/render"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Chunk, embed, and index the book's manuscript",
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

		var chunks []index.Chunk
		for chapterIdx, ch := range chapters {
			pieces, err := chunk.Split(ch.Text(), a.cfg.Chunking.TargetChars, a.cfg.Chunking.OverlapChars)
			if err != nil {
				return fmt.Errorf("chunking chapter %d: %w", chapterIdx, err)
			}
			for i, text := range pieces {
				chunks = append(chunks, index.Chunk{
					ChapterIdx:        chapterIdx,
					ChapterTitle:      ch.Title,
					ChunkIdxInChapter: i,
					Text:              text,
				})
			}
		}

		idx, err := index.Build(cmd.Context(), a.embedder(), chunks)
		if err != nil {
			return err
		}

		info, err := a.bookInfo(name)
		if err != nil {
			return err
		}
		if err := index.Save(idx, a.mgr.Paths(name).Index, info.SourceFile); err != nil {
			return err
		}
		if err := a.mgr.UpdateInfo(name, func(i *book.Info) { i.TotalChapters = len(chapters) }); err != nil {
			return err
		}

		fmt.Printf("Indexed %d chapters into %d chunks (dimension %d)\n",
			len(chapters), idx.Len(), idx.Dimension())
		return nil
	},
}

var searchTopK int

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search the book's index",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		name, err := a.resolveBook()
		if err != nil {
			return err
		}
		retriever, err := a.retriever(name)
		if err != nil {
			return err
		}

		k := searchTopK
		if k <= 0 {
			k = a.cfg.Retrieval.TopK
		}
		hits, err := retriever.Retrieve(cmd.Context(), args[0], k)
		if err != nil {
			return err
		}
		fmt.Print(render.SearchHits(args[0], hits))
		return nil
	},
}

func init() {
	searchCmd.Flags().IntVar(&searchTopK, "top", 0, "number of hits (defaults to config top_k)")
	rootCmd.AddCommand(indexCmd, searchCmd)
}
