package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/vampirenirmal/bookforge/internal/bible"
	"github.com/vampirenirmal/bookforge/internal/ledger"
	"github.com/vampirenirmal/bookforge/internal/pipeline"
)

var bibleCmd = &cobra.Command{
	Use:   "bible",
	Short: "Create and enhance the book bible",
}

var bibleCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Generate the book bible from the indexed manuscript",
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
		retriever, err := a.retriever(name)
		if err != nil {
			return err
		}

		builder := bible.NewBuilder(retriever, a.generators()[pipeline.BackendPrimary], a.mgr.Store(name))
		text, err := builder.Create(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("Bible created (%d chars) at %s\n", len(text), bible.Path)
		return nil
	},
}

var bibleEnhanceCmd = &cobra.Command{
	Use:   "enhance",
	Short: "Fold the character ledger into the bible",
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
		store := a.mgr.Store(name)

		base, _, err := bible.Load(cmd.Context(), store)
		if err != nil {
			return err
		}
		led, err := ledger.Load(ledgerPath(a, name))
		if err != nil {
			return err
		}

		enhanced := bible.Enhance(base, led)
		if err := store.Save(cmd.Context(), bible.EnhancedPath, []byte(enhanced)); err != nil {
			return err
		}
		fmt.Printf("Enhanced bible written (%d characters tracked)\n", led.Len())
		return nil
	},
}

var bibleShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the bible rewrite stages consume",
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
		store := a.mgr.Store(name)

		if text, ok, err := bible.LoadEnhanced(cmd.Context(), store); err == nil && ok {
			fmt.Println(text)
			return nil
		}
		text, ok, err := bible.Load(cmd.Context(), store)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("no bible yet; run 'bookforge bible create'")
		}
		fmt.Println(text)
		return nil
	},
}

// ledgerPath is the character ledger's location inside a book's metadata dir.
func ledgerPath(a *app, name string) string {
	return filepath.Join(a.mgr.Paths(name).Metadata, "character_ledger.json")
}

func init() {
	bibleCmd.AddCommand(bibleCreateCmd, bibleEnhanceCmd, bibleShowCmd)
	rootCmd.AddCommand(bibleCmd)
}
