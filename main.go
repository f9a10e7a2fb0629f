package main

import (
	"fmt"
	"os"

	"github.com/dominicmauro/dulcinea/internal/cli"
)

// Version information - set at build time via ldflags
var (
	Version = "dev"
	Commit  = "unknown"
)

// command is the shared shape of all CLI subcommands
type command interface {
	ParseFlags(args []string) error
	Run() error
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	name := os.Args[1]
	args := os.Args[2:]

	var cmd command
	switch name {
	case "info":
		cmd = cli.NewInfoCommand()
	case "paginate":
		cmd = cli.NewPaginateCommand()
	case "catalog-fetch":
		cmd = cli.NewCatalogFetchCommand()
	case "catalog-search":
		cmd = cli.NewCatalogSearchCommand()
	case "download":
		cmd = cli.NewDownloadCommand()
	case "sync-test":
		cmd = cli.NewSyncTestCommand()
	case "sync-now":
		cmd = cli.NewSyncNowCommand()

	case "version":
		fmt.Printf("dulcinea %s (%s)\n", Version, Commit)
		return

	case "-h", "--help", "help":
		printUsage()
		return

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", name)
		printUsage()
		os.Exit(1)
	}

	if err := cmd.ParseFlags(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := cmd.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "Usage: %s <command> [options]\n\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "Commands:\n")
	fmt.Fprintf(os.Stderr, "  info            Inspect an EPUB: metadata, chapters, table of contents\n")
	fmt.Fprintf(os.Stderr, "  paginate        Split a chapter into pages for a given viewport\n")
	fmt.Fprintf(os.Stderr, "  catalog-fetch   Fetch an OPDS catalog feed and list its entries\n")
	fmt.Fprintf(os.Stderr, "  catalog-search  Search a catalog\n")
	fmt.Fprintf(os.Stderr, "  download        Download a book from a catalog onto the shelf\n")
	fmt.Fprintf(os.Stderr, "  sync-test       Verify progress-server connectivity and credentials\n")
	fmt.Fprintf(os.Stderr, "  sync-now        Run one sync pass over the shelf\n")
	fmt.Fprintf(os.Stderr, "  version         Print version information\n")
	fmt.Fprintf(os.Stderr, "\nUse '%s <command> -h' for help on a specific command.\n", os.Args[0])
}
