package cli

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/dominicmauro/dulcinea/internal/config"
	"github.com/dominicmauro/dulcinea/internal/library"
	"github.com/dominicmauro/dulcinea/internal/secrets"
	"github.com/dominicmauro/dulcinea/internal/sync"
)

// syncPasswordKey is where the sync account password lives in the
// secret store.
const syncPasswordKey = "sync:password"

// SyncTestCommand verifies connectivity and credentials against the
// configured progress server
type SyncTestCommand struct {
	ServerURL string
	Username  string
	Password  string
	Register  bool
}

// NewSyncTestCommand creates a new SyncTestCommand
func NewSyncTestCommand() *SyncTestCommand {
	return &SyncTestCommand{}
}

// ParseFlags parses command line flags
func (cmd *SyncTestCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("sync-test", flag.ExitOnError)

	cfg := config.NewConfig()

	fs.StringVar(&cmd.ServerURL, "server", cfg.Sync.ServerURL, "Progress server URL")
	fs.StringVar(&cmd.Username, "username", cfg.Sync.Username, "Sync account username")
	fs.StringVar(&cmd.Password, "password", "", "Sync account password (default: stored secret)")
	fs.BoolVar(&cmd.Register, "register", false, "Also register this device and store the password")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s sync-test [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Check that the progress server accepts the configured credentials.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if cmd.ServerURL == "" {
		fs.Usage()
		return fmt.Errorf("no sync server configured; set -server or SYNC_SERVER_URL")
	}
	return nil
}

// Run executes the sync-test command
func (cmd *SyncTestCommand) Run() error {
	cfg := config.NewConfig()

	lib, err := library.Open(cfg.Storage.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to open library: %w", err)
	}
	defer lib.Close()

	secretStore, err := secrets.New(lib, secrets.Config{KeyFilePath: cfg.Storage.KeyFilePath})
	if err != nil {
		return fmt.Errorf("failed to open secret store: %w", err)
	}

	password := cmd.Password
	if password == "" {
		password, err = secretStore.Get(syncPasswordKey)
		if err != nil {
			return err
		}
	}

	client, err := sync.NewClient(sync.ClientConfig{
		ServerURL: cmd.ServerURL,
		Username:  cmd.Username,
		Password:  password,
		Device:    cfg.Sync.Device,
		DeviceID:  cfg.Sync.DeviceID,
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := client.TestConnection(ctx); err != nil {
		return fmt.Errorf("connection test failed: %w", err)
	}
	fmt.Printf("✅ %s accepted credentials for %s\n", cmd.ServerURL, cmd.Username)

	if cmd.Register {
		if err := client.RegisterDevice(ctx); err != nil {
			return fmt.Errorf("device registration failed: %w", err)
		}
		fmt.Printf("✅ Registered device %s\n", cfg.Sync.Device)

		if cmd.Password != "" {
			if err := secretStore.Set(syncPasswordKey, cmd.Password); err != nil {
				return err
			}
			fmt.Println("✅ Stored sync password")
		}
	}
	return nil
}

// SyncNowCommand runs one full sync pass over the shelf
type SyncNowCommand struct {
	ServerURL string
	Username  string
	Password  string
	Stats     bool
}

// NewSyncNowCommand creates a new SyncNowCommand
func NewSyncNowCommand() *SyncNowCommand {
	return &SyncNowCommand{}
}

// ParseFlags parses command line flags
func (cmd *SyncNowCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("sync-now", flag.ExitOnError)

	cfg := config.NewConfig()

	fs.StringVar(&cmd.ServerURL, "server", cfg.Sync.ServerURL, "Progress server URL")
	fs.StringVar(&cmd.Username, "username", cfg.Sync.Username, "Sync account username")
	fs.StringVar(&cmd.Password, "password", "", "Sync account password (default: stored secret)")
	fs.BoolVar(&cmd.Stats, "stats", false, "Print server-side reading statistics afterwards")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s sync-now [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Upload dirty reading positions and pull newer remote ones.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if cmd.ServerURL == "" {
		fs.Usage()
		return fmt.Errorf("no sync server configured; set -server or SYNC_SERVER_URL")
	}
	return nil
}

// Run executes the sync-now command
func (cmd *SyncNowCommand) Run() error {
	cfg := config.NewConfig()

	lib, err := library.Open(cfg.Storage.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to open library: %w", err)
	}
	defer lib.Close()

	secretStore, err := secrets.New(lib, secrets.Config{KeyFilePath: cfg.Storage.KeyFilePath})
	if err != nil {
		return fmt.Errorf("failed to open secret store: %w", err)
	}

	password := cmd.Password
	if password == "" {
		password, err = secretStore.Get(syncPasswordKey)
		if err != nil {
			return err
		}
	}

	client, err := sync.NewClient(sync.ClientConfig{
		ServerURL: cmd.ServerURL,
		Username:  cmd.Username,
		Password:  password,
		Device:    cfg.Sync.Device,
		DeviceID:  cfg.Sync.DeviceID,
	})
	if err != nil {
		return err
	}

	service := sync.NewService(lib)
	service.Configure(client)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	if err := service.SyncAll(ctx); err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}

	status := service.Status()
	if status.LastSynced != nil {
		fmt.Printf("✅ Synced at %s\n", status.LastSynced.Format(time.RFC3339))
	}

	if cmd.Stats {
		stats, err := client.FetchStatistics(ctx)
		if err != nil {
			return fmt.Errorf("failed to fetch statistics: %w", err)
		}
		fmt.Printf("📊 %d books on server, %d finished, %s read\n",
			stats.TotalBooks, stats.BooksFinished,
			(time.Duration(stats.ReadingSeconds) * time.Second).Round(time.Minute))
	}
	return nil
}
