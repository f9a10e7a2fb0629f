package cli

import (
	"flag"
	"fmt"
	"os"

	"github.com/dominicmauro/dulcinea/internal/config"
	"github.com/dominicmauro/dulcinea/internal/epub"
	"github.com/dominicmauro/dulcinea/internal/paginate"
)

// PaginateCommand splits a chapter into reader pages
type PaginateCommand struct {
	FilePath string
	Chapter  int
	Page     int

	Width       float64
	Height      float64
	FontSize    float64
	FontFamily  string
	LineSpacing float64
}

// NewPaginateCommand creates a new PaginateCommand
func NewPaginateCommand() *PaginateCommand {
	return &PaginateCommand{}
}

// ParseFlags parses command line flags
func (cmd *PaginateCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("paginate", flag.ExitOnError)

	cfg := config.NewConfig()

	fs.StringVar(&cmd.FilePath, "file", "", "Path to the EPUB file (required)")
	fs.IntVar(&cmd.Chapter, "chapter", 0, "Chapter to paginate (0-based)")
	fs.IntVar(&cmd.Page, "page", -1, "Print one page instead of the summary")
	fs.Float64Var(&cmd.Width, "width", cfg.Reader.ViewportWidth, "Viewport width in points")
	fs.Float64Var(&cmd.Height, "height", cfg.Reader.ViewportHeight, "Viewport height in points")
	fs.Float64Var(&cmd.FontSize, "font-size", cfg.Reader.FontSize, "Font size in points")
	fs.StringVar(&cmd.FontFamily, "font-family", cfg.Reader.FontFamily, "Font family (serif, monospace, ...)")
	fs.Float64Var(&cmd.LineSpacing, "line-spacing", cfg.Reader.LineSpacing, "Line spacing multiplier")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s paginate -file BOOK.epub [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Paginate a chapter with the given viewport and font settings.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s paginate -file moby-dick.epub -chapter 2\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s paginate -file moby-dick.epub -chapter 2 -page 0 -font-size 18\n", os.Args[0])
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

// Run executes the paginate command
func (cmd *PaginateCommand) Run() error {
	reader, err := epub.Open(cmd.FilePath)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", cmd.FilePath, err)
	}
	defer reader.Close()

	content := reader.Content()
	if cmd.Chapter < 0 || cmd.Chapter >= len(content.Chapters) {
		return fmt.Errorf("chapter %d out of range (book has %d)", cmd.Chapter, len(content.Chapters))
	}
	chapter := content.Chapters[cmd.Chapter]

	settings := paginate.Settings{
		ViewportWidth:  cmd.Width,
		ViewportHeight: cmd.Height,
		FontSize:       cmd.FontSize,
		FontFamily:     cmd.FontFamily,
		LineSpacing:    cmd.LineSpacing,
	}

	pages := paginate.Paginate(chapter.Text, chapter.Title, settings, cmd.Chapter)

	if cmd.Page >= 0 {
		if cmd.Page >= len(pages) {
			return fmt.Errorf("page %d out of range (chapter has %d)", cmd.Page, len(pages))
		}
		fmt.Println(pages[cmd.Page].Text)
		return nil
	}

	fmt.Printf("📄 %q paginates to %d pages at %gx%g / %gpt %s\n",
		chapter.Title, len(pages), cmd.Width, cmd.Height, cmd.FontSize, cmd.FontFamily)
	for _, page := range pages {
		fmt.Printf("   page %2d: runes [%d, %d)\n", page.PageIndex, page.Start, page.End)
	}
	return nil
}
