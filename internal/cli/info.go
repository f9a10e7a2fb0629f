// Package cli contains the command-line entry points: local book
// inspection, catalog browsing, downloads, and sync triggers.
package cli

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/dominicmauro/dulcinea/internal/epub"
)

// InfoCommand inspects a local EPUB file
type InfoCommand struct {
	FilePath    string
	ShowTOC     bool
	ShowChapter int
}

// NewInfoCommand creates a new InfoCommand
func NewInfoCommand() *InfoCommand {
	return &InfoCommand{}
}

// ParseFlags parses command line flags
func (cmd *InfoCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("info", flag.ExitOnError)

	fs.StringVar(&cmd.FilePath, "file", "", "Path to the EPUB file (required)")
	fs.BoolVar(&cmd.ShowTOC, "toc", false, "Print the table of contents")
	fs.IntVar(&cmd.ShowChapter, "chapter", -1, "Print the plain text of one chapter (0-based)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s info -file BOOK.epub [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Inspect an EPUB: metadata, chapter list, table of contents.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s info -file moby-dick.epub\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s info -file moby-dick.epub -toc\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s info -file moby-dick.epub -chapter 3\n", os.Args[0])
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if cmd.FilePath == "" {
		fs.Usage()
		return fmt.Errorf("-file is required")
	}
	return nil
}

// Run executes the info command
func (cmd *InfoCommand) Run() error {
	reader, err := epub.Open(cmd.FilePath)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", cmd.FilePath, err)
	}
	defer reader.Close()

	content := reader.Content()
	meta := content.Metadata

	fmt.Printf("📖 %s\n", orUnknown(meta.Title))
	fmt.Printf("   Author:     %s\n", orUnknown(meta.Author))
	fmt.Printf("   Language:   %s\n", orUnknown(meta.Language))
	fmt.Printf("   Publisher:  %s\n", orUnknown(meta.Publisher))
	fmt.Printf("   Identifier: %s\n", orUnknown(meta.Identifier))
	if meta.Description != "" {
		fmt.Printf("   %s\n", meta.Description)
	}
	fmt.Printf("   Chapters:   %d\n", len(content.Chapters))
	if cover := reader.Cover(); cover != nil {
		fmt.Printf("   Cover:      %d bytes\n", len(cover))
	}

	if cmd.ShowTOC {
		fmt.Println("\nTable of contents:")
		printTOC(content.TOC)
	}

	if cmd.ShowChapter >= 0 {
		if cmd.ShowChapter >= len(content.Chapters) {
			return fmt.Errorf("chapter %d out of range (book has %d)", cmd.ShowChapter, len(content.Chapters))
		}
		chapter := content.Chapters[cmd.ShowChapter]
		fmt.Printf("\n--- %s ---\n%s\n", chapter.Title, chapter.Text)
	}

	return nil
}

func printTOC(entries []epub.TOCEntry) {
	for _, entry := range entries {
		indent := strings.Repeat("  ", entry.Level)
		if entry.Chapter >= 0 {
			fmt.Printf("  %s%s (chapter %d)\n", indent, entry.Title, entry.Chapter)
		} else {
			fmt.Printf("  %s%s\n", indent, entry.Title)
		}
		printTOC(entry.Children)
	}
}

func orUnknown(s string) string {
	if s == "" {
		return "(unknown)"
	}
	return s
}
