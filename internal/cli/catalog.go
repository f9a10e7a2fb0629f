package cli

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dominicmauro/dulcinea/internal/config"
	"github.com/dominicmauro/dulcinea/internal/library"
	"github.com/dominicmauro/dulcinea/internal/opds"
	"github.com/dominicmauro/dulcinea/internal/secrets"
)

// CatalogFetchCommand fetches and prints an OPDS catalog feed
type CatalogFetchCommand struct {
	URL      string
	Username string
	Password string
	Save     string // catalog name to persist, empty = don't save
}

// NewCatalogFetchCommand creates a new CatalogFetchCommand
func NewCatalogFetchCommand() *CatalogFetchCommand {
	return &CatalogFetchCommand{}
}

// ParseFlags parses command line flags
func (cmd *CatalogFetchCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("catalog-fetch", flag.ExitOnError)

	fs.StringVar(&cmd.URL, "url", "", "OPDS catalog URL (required)")
	fs.StringVar(&cmd.Username, "username", "", "Catalog username (optional)")
	fs.StringVar(&cmd.Password, "password", "", "Catalog password (optional)")
	fs.StringVar(&cmd.Save, "save", "", "Persist the catalog in the library under this name")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s catalog-fetch -url URL [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Fetch an OPDS catalog feed and list its entries.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s catalog-fetch -url https://standardebooks.org/feeds/opds\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s catalog-fetch -url https://calibre.local/opds -username me -password pw -save home\n", os.Args[0])
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if cmd.URL == "" {
		fs.Usage()
		return fmt.Errorf("-url is required")
	}
	return nil
}

// Run executes the catalog-fetch command
func (cmd *CatalogFetchCommand) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	client := opds.NewClient()
	feed, err := client.FetchFeed(ctx, cmd.URL, catalogCredentials(cmd.Username, cmd.Password))
	if err != nil {
		return fmt.Errorf("failed to fetch catalog: %w", err)
	}

	fmt.Printf("📚 %s (%d entries)\n", feed.Title, len(feed.Entries))
	printEntries(feed.Entries)

	if cmd.Save != "" {
		if err := saveCatalog(cmd.Save, cmd.URL, cmd.Username, cmd.Password); err != nil {
			return err
		}
		fmt.Printf("\n✅ Saved catalog %q\n", cmd.Save)
	}
	return nil
}

// CatalogSearchCommand searches an OPDS catalog
type CatalogSearchCommand struct {
	URL      string
	Query    string
	Username string
	Password string
}

// NewCatalogSearchCommand creates a new CatalogSearchCommand
func NewCatalogSearchCommand() *CatalogSearchCommand {
	return &CatalogSearchCommand{}
}

// ParseFlags parses command line flags
func (cmd *CatalogSearchCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("catalog-search", flag.ExitOnError)

	fs.StringVar(&cmd.URL, "url", "", "OPDS catalog URL (required)")
	fs.StringVar(&cmd.Query, "query", "", "Search terms (required)")
	fs.StringVar(&cmd.Username, "username", "", "Catalog username (optional)")
	fs.StringVar(&cmd.Password, "password", "", "Catalog password (optional)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s catalog-search -url URL -query TERMS [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Search a catalog and list matching entries.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if cmd.URL == "" || cmd.Query == "" {
		fs.Usage()
		return fmt.Errorf("-url and -query are required")
	}
	return nil
}

// Run executes the catalog-search command
func (cmd *CatalogSearchCommand) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	client := opds.NewClient()
	entries, err := client.SearchCatalog(ctx, cmd.URL, catalogCredentials(cmd.Username, cmd.Password), cmd.Query)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	fmt.Printf("🔎 %d results for %q\n", len(entries), cmd.Query)
	printEntries(entries)
	return nil
}

func printEntries(entries []opds.Entry) {
	for _, entry := range entries {
		kind := "nav"
		if entry.DownloadLink() != nil {
			kind = "book"
		}
		line := fmt.Sprintf("  [%s] %s", kind, entry.Title)
		if len(entry.Authors) > 0 {
			line += " by " + strings.Join(entry.Authors, ", ")
		}
		fmt.Println(line)
		if dl := entry.DownloadLink(); dl != nil {
			fmt.Printf("         %s (%s)\n", dl.Href, dl.Type)
		}
	}
}

func catalogCredentials(username, password string) *opds.Credentials {
	if username == "" && password == "" {
		return nil
	}
	return &opds.Credentials{Username: username, Password: password}
}

// saveCatalog persists the catalog row and its password secret.
func saveCatalog(name, url, username, password string) error {
	cfg := config.NewConfig()

	lib, err := library.Open(cfg.Storage.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to open library: %w", err)
	}
	defer lib.Close()

	now := time.Now()
	catalog := &library.Catalog{
		Name:        name,
		URL:         url,
		Username:    username,
		Enabled:     true,
		LastUpdated: &now,
	}
	if err := lib.SaveCatalog(catalog); err != nil {
		return fmt.Errorf("failed to save catalog: %w", err)
	}

	if password != "" {
		store, err := secrets.New(lib, secrets.Config{KeyFilePath: cfg.Storage.KeyFilePath})
		if err != nil {
			return fmt.Errorf("failed to open secret store: %w", err)
		}
		key := fmt.Sprintf("catalog:%d:password", catalog.ID)
		if err := store.Set(key, password); err != nil {
			return err
		}
	}
	return nil
}
