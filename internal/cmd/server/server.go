// Package server parses server command flags and launches the alignment
// HTTP service.
package server

import (
	"context"
	"flag"
	"time"

	"github.com/concordhq/concord/internal/platform/config"
)

// Config holds server command configuration.
type Config struct {
	HTTPAddr          string        `env:"CONCORD_HTTP_ADDR" envDefault:":8080"`
	DBPath            string        `env:"CONCORD_DB_PATH" envDefault:"concord.db"`
	EventSyncInterval time.Duration `env:"CONCORD_EVENT_SYNC_INTERVAL" envDefault:"10s"`
}

// ParseConfig parses environment and flags into a Config. Flags win
// over environment values.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := config.ParseEnv("server", &cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "HTTP listen address")
	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "sqlite database path")
	fs.DurationVar(&cfg.EventSyncInterval, "event-sync-interval", cfg.EventSyncInterval, "store-to-hub event sync interval")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run assembles and serves the alignment service until the context ends.
func Run(ctx context.Context, cfg Config) error {
	app, err := NewApp(ctx, cfg)
	if err != nil {
		return err
	}
	return app.ListenAndServe(ctx)
}
