package config

import (
	"time"

	"github.com/spf13/viper"
)

type (
	Config struct {
		Storage
		Reader
		Sync
		Download
	}

	Storage struct {
		DataDir      string // Root for downloaded books and covers
		DatabasePath string
		KeyFilePath  string // Encryption passphrase file; empty = default location
	}

	Reader struct {
		ViewportWidth  float64
		ViewportHeight float64
		FontSize       float64
		FontFamily     string
		LineSpacing    float64
	}

	Sync struct {
		ServerURL string
		Username  string
		Device    string
		DeviceID  string
		Interval  time.Duration // 0 = manual only
	}

	Download struct {
		Timeout time.Duration // Full-transfer ceiling per download
	}
)

func NewConfig() *Config {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("data_dir", DefaultDataDir)
	v.SetDefault("database_path", DefaultDatabasePath)
	v.SetDefault("key_file_path", "")

	// Pagination defaults approximate a phone-sized viewport in points
	v.SetDefault("reader_viewport_width", 390.0)
	v.SetDefault("reader_viewport_height", 700.0)
	v.SetDefault("reader_font_size", 16.0)
	v.SetDefault("reader_font_family", "serif")
	v.SetDefault("reader_line_spacing", 1.4)

	v.SetDefault("sync_server_url", "")
	v.SetDefault("sync_username", "")
	v.SetDefault("sync_device", "dulcinea")
	v.SetDefault("sync_device_id", "")
	v.SetDefault("sync_interval", "0") // manual-only

	v.SetDefault("download_timeout", "5m")

	return &Config{
		Storage: Storage{
			DataDir:      v.GetString("DATA_DIR"),
			DatabasePath: v.GetString("DATABASE_PATH"),
			KeyFilePath:  v.GetString("KEY_FILE_PATH"),
		},
		Reader: Reader{
			ViewportWidth:  v.GetFloat64("READER_VIEWPORT_WIDTH"),
			ViewportHeight: v.GetFloat64("READER_VIEWPORT_HEIGHT"),
			FontSize:       v.GetFloat64("READER_FONT_SIZE"),
			FontFamily:     v.GetString("READER_FONT_FAMILY"),
			LineSpacing:    v.GetFloat64("READER_LINE_SPACING"),
		},
		Sync: Sync{
			ServerURL: v.GetString("SYNC_SERVER_URL"),
			Username:  v.GetString("SYNC_USERNAME"),
			Device:    v.GetString("SYNC_DEVICE"),
			DeviceID:  v.GetString("SYNC_DEVICE_ID"),
			Interval:  v.GetDuration("SYNC_INTERVAL"),
		},
		Download: Download{
			Timeout: v.GetDuration("DOWNLOAD_TIMEOUT"),
		},
	}
}
