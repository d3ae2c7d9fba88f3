package database

import (
	"fmt"
	"os"
	"path/filepath"

	"pcmon/internal/config"
)

// NewStoreFromConfig creates a store based on the database config type.
func NewStoreFromConfig(cfg config.DatabaseConfig) (*SQLiteStore, error) {
	path, err := StorePath(cfg)
	if err != nil {
		return nil, err
	}
	return NewSQLiteStore(path)
}

// StorePath resolves the SQLite path for the given database config.
// Returns ":memory:" for type=memory.
func StorePath(cfg config.DatabaseConfig) (string, error) {
	switch cfg.Type {
	case "sqlite":
		if cfg.DataDir == "" {
			return "", fmt.Errorf("data_dir required for sqlite database")
		}
		if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
			return "", fmt.Errorf("creating data directory: %w", err)
		}
		return filepath.Join(cfg.DataDir, "pcmon.db"), nil
	case "memory":
		return ":memory:", nil
	default:
		return "", fmt.Errorf("unknown database type: %s", cfg.Type)
	}
}
