package store

import (
	"context"
	"fmt"
	"time"

	config "github.com/mwantia/modbot/internal/config/server"
)

// ConfigFrom translates the metadata section of the server configuration.
func ConfigFrom(cfg config.MetadataServerConfig) Config {
	c := Config{
		Type:               cfg.Type,
		TransactionTimeout: config.Duration(cfg.TransactionTimeout, 5*time.Second),
	}
	switch cfg.Type {
	case TypePostgres:
		c.DSN = cfg.Postgres.DSN
	case TypeMySQL:
		c.DSN = cfg.MySQL.DSN
	default:
		c.Path = cfg.SQLite.Path
	}
	return c
}

// Open connects to the configured store and brings its schema up to date.
func Open(ctx context.Context, cfg config.MetadataServerConfig) (*GormStore, error) {
	s, err := NewStore(ConfigFrom(cfg))
	if err != nil {
		return nil, err
	}
	if err := s.Connect(ctx); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("failed to connect to %s store: %w", s.dialect, err)
	}
	if err := s.Migrate(ctx); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("failed to migrate %s store: %w", s.dialect, err)
	}
	return s, nil
}
