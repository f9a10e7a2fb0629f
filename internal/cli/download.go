package cli

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dominicmauro/dulcinea/internal/config"
	"github.com/dominicmauro/dulcinea/internal/download"
	"github.com/dominicmauro/dulcinea/internal/epub"
	"github.com/dominicmauro/dulcinea/internal/library"
	"github.com/dominicmauro/dulcinea/internal/opds"
	"github.com/dominicmauro/dulcinea/internal/storage"
	"github.com/dominicmauro/dulcinea/internal/sync"
)

// DownloadCommand downloads a book from an OPDS catalog onto the shelf
type DownloadCommand struct {
	FeedURL  string
	Entry    string // entry id or title substring
	Username string
	Password string
	DataDir  string
}

// NewDownloadCommand creates a new DownloadCommand
func NewDownloadCommand() *DownloadCommand {
	return &DownloadCommand{}
}

// ParseFlags parses command line flags
func (cmd *DownloadCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("download", flag.ExitOnError)

	cfg := config.NewConfig()

	fs.StringVar(&cmd.FeedURL, "feed", "", "OPDS feed URL containing the entry (required)")
	fs.StringVar(&cmd.Entry, "entry", "", "Entry id or title substring (required)")
	fs.StringVar(&cmd.Username, "username", "", "Catalog username (optional)")
	fs.StringVar(&cmd.Password, "password", "", "Catalog password (optional)")
	fs.StringVar(&cmd.DataDir, "data-dir", cfg.Storage.DataDir, "Directory for downloaded books")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s download -feed URL -entry BOOK [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Download a book from a catalog feed and add it to the shelf.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s download -feed https://standardebooks.org/feeds/opds/all -entry \"Moby Dick\"\n", os.Args[0])
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if cmd.FeedURL == "" || cmd.Entry == "" {
		fs.Usage()
		return fmt.Errorf("-feed and -entry are required")
	}
	return nil
}

// Run executes the download command
func (cmd *DownloadCommand) Run() error {
	cfg := config.NewConfig()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Download.Timeout)
	defer cancel()

	creds := catalogCredentials(cmd.Username, cmd.Password)

	client := opds.NewClient()
	feed, err := client.FetchFeed(ctx, cmd.FeedURL, creds)
	if err != nil {
		return fmt.Errorf("failed to fetch feed: %w", err)
	}

	entry, err := findEntry(feed, cmd.Entry)
	if err != nil {
		return err
	}
	link := entry.DownloadLink()
	if link == nil {
		return fmt.Errorf("entry %q has no downloadable link", entry.Title)
	}

	store, err := storage.NewFileStore(cmd.DataDir)
	if err != nil {
		return fmt.Errorf("failed to prepare data dir: %w", err)
	}

	fmt.Printf("⬇️  %s\n", entry.Title)
	manager := download.NewManager(store)
	localPath, err := manager.Download(ctx, link.Href, *entry, creds, func(fraction float64) {
		fmt.Printf("\r   %3.0f%%", fraction*100)
	})
	fmt.Println()
	if err != nil {
		return fmt.Errorf("download failed: %w", err)
	}

	// The library keys books by bare filename, not by local path.
	filename := filepath.Base(localPath)

	book, err := shelveBook(cfg, store, entry, filename)
	if err != nil {
		return err
	}

	fmt.Printf("✅ Saved %s (%d chapters) as %s\n", book.Title, book.TotalChapters, filename)
	return nil
}

// findEntry matches by exact id first, then falls back to a
// case-insensitive title substring.
func findEntry(feed *opds.Feed, needle string) (*opds.Entry, error) {
	for i := range feed.Entries {
		if feed.Entries[i].ID == needle {
			return &feed.Entries[i], nil
		}
	}
	lowered := strings.ToLower(needle)
	for i := range feed.Entries {
		if strings.Contains(strings.ToLower(feed.Entries[i].Title), lowered) {
			return &feed.Entries[i], nil
		}
	}
	return nil, fmt.Errorf("no entry matching %q in feed", needle)
}

// shelveBook records the downloaded file as a library book, reading
// metadata and the cover out of the EPUB itself when possible.
func shelveBook(cfg *config.Config, store *storage.FileStore, entry *opds.Entry, filename string) (*library.Book, error) {
	lib, err := library.Open(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open library: %w", err)
	}
	defer lib.Close()

	book := &library.Book{
		Title:      entry.Title,
		Filename:   filename,
		DocumentID: sync.DocumentID(filename),
	}
	if len(entry.Authors) > 0 {
		book.Author = strings.Join(entry.Authors, ", ")
	}

	// Book metadata beats feed metadata when the file parses.
	reader, err := epub.Open(store.BookPath(filename))
	if err == nil {
		content := reader.Content()
		if content.Metadata.Title != "" {
			book.Title = content.Metadata.Title
		}
		if content.Metadata.Author != "" {
			book.Author = content.Metadata.Author
		}
		book.TotalChapters = len(content.Chapters)
		if cover := reader.Cover(); cover != nil {
			coverName := strings.TrimSuffix(filename, ".epub") + ".cover"
			if path, err := store.SaveCover(coverName, cover); err == nil {
				book.CoverPath = path
			}
		}
		reader.Close()
	}

	if err := lib.SaveBook(book); err != nil {
		return nil, fmt.Errorf("failed to shelve book: %w", err)
	}
	return book, nil
}
