package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"sync"

	"github.com/concordhq/concord/internal/alignment/access"
	"github.com/concordhq/concord/internal/alignment/api/httpapi"
	"github.com/concordhq/concord/internal/alignment/engine"
	"github.com/concordhq/concord/internal/alignment/integrity"
	"github.com/concordhq/concord/internal/alignment/notify"
	"github.com/concordhq/concord/internal/alignment/service"
	"github.com/concordhq/concord/internal/alignment/storage/sqlite"
	"github.com/concordhq/concord/internal/platform/otel"
	"github.com/concordhq/concord/internal/platform/timeouts"
)

// App hosts the HTTP process: the store, the wired service, the event
// hub, and the HTTP server around them.
type App struct {
	httpServer   *http.Server
	store        *sqlite.Store
	syncStop     context.CancelFunc
	syncDone     chan struct{}
	otelShutdown func(context.Context) error
	closeOnce    sync.Once
}

// NewApp wires the full stack. Engine, grant, signing, and workflow
// limit settings load from their own environment variables; only the
// process-level knobs arrive through cfg.
func NewApp(ctx context.Context, cfg Config) (*App, error) {
	otelShutdown, err := otel.Setup(ctx, "concord-server")
	if err != nil {
		return nil, fmt.Errorf("set up tracing: %w", err)
	}
	teardownOtel := func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
		_ = otelShutdown(shutdownCtx)
		cancel()
	}

	store, err := openStore(cfg.DBPath)
	if err != nil {
		teardownOtel()
		return nil, err
	}

	engineCfg, err := engine.LoadConfigFromEnv()
	if err != nil {
		_ = store.Close()
		teardownOtel()
		return nil, err
	}
	provider, err := engine.NewProvider(engineCfg)
	if err != nil {
		_ = store.Close()
		teardownOtel()
		return nil, fmt.Errorf("build engine provider: %w", err)
	}
	limits, err := service.LoadLimitsFromEnv()
	if err != nil {
		_ = store.Close()
		teardownOtel()
		return nil, err
	}
	signer, err := access.LoadSignerConfigFromEnv(nil)
	if err != nil {
		_ = store.Close()
		teardownOtel()
		return nil, err
	}
	verifier, err := access.LoadVerifierConfigFromEnv(nil)
	if err != nil {
		_ = store.Close()
		teardownOtel()
		return nil, err
	}
	keyring, err := integrity.KeyringFromEnv()
	if err != nil {
		_ = store.Close()
		teardownOtel()
		return nil, err
	}

	hub := notify.NewHub()
	svc := service.New(service.Config{
		Store:         store,
		Engine:        provider,
		Notifier:      notify.NewRecorder(store, hub),
		GrantSigner:   signer,
		Keyring:       keyring,
		Limits:        limits,
		EngineTimeout: engineCfg.Timeout,
	})
	if err := svc.SeedBuiltinTemplates(ctx); err != nil {
		_ = store.Close()
		teardownOtel()
		return nil, fmt.Errorf("seed templates: %w", err)
	}

	apiServer, err := httpapi.New(httpapi.Config{
		Service:  svc,
		Hub:      hub,
		Verifier: verifier,
	})
	if err != nil {
		_ = store.Close()
		teardownOtel()
		return nil, fmt.Errorf("build http server: %w", err)
	}

	syncStop, syncDone := notify.StartSyncWorker(store, hub, cfg.EventSyncInterval)

	return &App{
		httpServer: &http.Server{
			Addr:              cfg.HTTPAddr,
			Handler:           apiServer.Handler(),
			ReadHeaderTimeout: timeouts.ReadHeader,
		},
		store:        store,
		syncStop:     syncStop,
		syncDone:     syncDone,
		otelShutdown: otelShutdown,
	}, nil
}

// ListenAndServe runs the HTTP server until the context ends.
func (a *App) ListenAndServe(ctx context.Context) error {
	if a == nil {
		return errors.New("server app is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	defer a.Close()

	serveErr := make(chan error, 1)
	log.Printf("alignment server listening on %s", a.httpServer.Addr)
	go func() {
		serveErr <- a.httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
		err := a.httpServer.Shutdown(shutdownCtx)
		cancel()
		if err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve http: %w", err)
	}
}

// Close releases app resources. The sync worker stops before the store
// closes so the loop never reads a closed handle.
func (a *App) Close() {
	if a == nil {
		return
	}
	a.closeOnce.Do(func() {
		if a.syncStop != nil {
			a.syncStop()
			<-a.syncDone
		}
		if a.store != nil {
			if err := a.store.Close(); err != nil {
				log.Printf("close store: %v", err)
			}
		}
		if a.otelShutdown != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
			if err := a.otelShutdown(shutdownCtx); err != nil {
				log.Printf("shutdown tracing: %v", err)
			}
			cancel()
		}
	})
}

func openStore(path string) (*sqlite.Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage dir: %w", err)
		}
	}
	store, err := sqlite.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite store: %w", err)
	}
	return store, nil
}
