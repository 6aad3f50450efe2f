package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vampirenirmal/bookforge/internal/render"
)

var booksCmd = &cobra.Command{
	Use:   "books",
	Short: "Manage book workspaces",
}

var booksCreateCmd = &cobra.Command{
	Use:   "create <manuscript.docx>",
	Short: "Create a book workspace from a DOCX manuscript",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		info, err := a.mgr.CreateFromDocx(args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Created book %q from %s\n", info.DisplayName, info.SourceFile)
		return nil
	},
}

var booksListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered books",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		entries, err := a.mgr.List()
		if err != nil {
			return err
		}
		fmt.Print(render.BookList(entries))
		return nil
	},
}

var booksUseCmd = &cobra.Command{
	Use:   "use <name>",
	Short: "Set the active book",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		if err := a.mgr.SetActive(args[0]); err != nil {
			return err
		}
		fmt.Printf("Active book: %s\n", args[0])
		return nil
	},
}

var booksDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a book and all its data",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		if err := a.mgr.Delete(args[0]); err != nil {
			return err
		}
		fmt.Printf("Deleted book %s\n", args[0])
		return nil
	},
}

var booksCheckCmd = &cobra.Command{
	Use:   "check [name]",
	Short: "Validate a book's directory structure",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		name := ""
		if len(args) == 1 {
			name = args[0]
		} else if name, err = a.resolveBook(); err != nil {
			return err
		}

		issues := a.mgr.ValidateStructure(name)
		if len(issues) == 0 {
			fmt.Printf("Book %s: structure OK\n", name)
			return nil
		}
		fmt.Printf("Book %s has %d issue(s):\n", name, len(issues))
		for _, issue := range issues {
			fmt.Println(" -", issue)
		}
		return nil
	},
}

func init() {
	booksCmd.AddCommand(booksCreateCmd, booksListCmd, booksUseCmd, booksDeleteCmd, booksCheckCmd)
	rootCmd.AddCommand(booksCmd)
}
