package config

// Default paths for local state
const (
	// DefaultDataDir is the default root for downloaded books and covers
	DefaultDataDir = "./dulcinea-data"

	// DefaultDatabasePath is the default path for the library database
	DefaultDatabasePath = "./dulcinea.db"
)
