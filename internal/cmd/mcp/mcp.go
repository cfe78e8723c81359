// Package mcp parses MCP command flags and launches the read-only
// alignment tool server over stdio.
package mcp

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"

	mcpapi "github.com/concordhq/concord/internal/alignment/api/mcp"
	"github.com/concordhq/concord/internal/alignment/storage/sqlite"
	"github.com/concordhq/concord/internal/platform/config"
	"github.com/concordhq/concord/internal/platform/otel"
	"github.com/concordhq/concord/internal/platform/timeouts"
)

// TransportStdio serves the MCP protocol over stdin/stdout.
const TransportStdio = "stdio"

// Config holds MCP command configuration.
type Config struct {
	DBPath    string `env:"CONCORD_MCP_DB_PATH"   envDefault:"concord.db"`
	Transport string `env:"CONCORD_MCP_TRANSPORT" envDefault:"stdio"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := config.ParseEnv("mcp", &cfg); err != nil {
		return Config{}, err
	}

	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "sqlite database path shared with the alignment server")
	fs.StringVar(&cfg.Transport, "transport", cfg.Transport, "Transport type: stdio")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run serves the read-only tools until the context ends. The store opens
// the same database file the alignment server writes.
func Run(ctx context.Context, cfg Config) error {
	if cfg.Transport != TransportStdio {
		return fmt.Errorf("transport %q is not supported", cfg.Transport)
	}

	shutdown, err := otel.Setup(ctx, "concord-mcp")
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			log.Printf("otel shutdown: %v", err)
		}
	}()

	store, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open sqlite store: %w", err)
	}
	log.Printf("mcp server reading %s over stdio", cfg.DBPath)

	serveErr := mcpapi.NewServer(store).Run(ctx)
	closeErr := store.Close()
	if serveErr != nil {
		if closeErr != nil {
			return errors.Join(fmt.Errorf("serve mcp: %w", serveErr), fmt.Errorf("close store: %w", closeErr))
		}
		return fmt.Errorf("serve mcp: %w", serveErr)
	}
	if closeErr != nil {
		return fmt.Errorf("close store: %w", closeErr)
	}
	return nil
}
