package server

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"path/filepath"
	"testing"
	"time"
)

// setAppEnv points every loader at test values: generated grant and
// signing keys, no engine API key, tracing off.
func setAppEnv(t *testing.T) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate grant key: %v", err)
	}
	rootKey := make([]byte, 32)
	if _, err := rand.Read(rootKey); err != nil {
		t.Fatalf("generate signing key: %v", err)
	}
	t.Setenv("CONCORD_GRANT_PRIVATE_KEY", base64.RawStdEncoding.EncodeToString(priv))
	t.Setenv("CONCORD_GRANT_PUBLIC_KEY", base64.RawStdEncoding.EncodeToString(pub))
	t.Setenv("CONCORD_SIGNING_ROOT_KEYS", "")
	t.Setenv("CONCORD_SIGNING_ROOT_KEY", hex.EncodeToString(rootKey))
	t.Setenv("CONCORD_ENGINE_API_KEY", "")
	t.Setenv("CONCORD_OTEL_ENDPOINT", "")
	t.Setenv("CONCORD_OTEL_ENABLED", "")
}

func testConfig(t *testing.T) Config {
	t.Helper()
	return Config{
		HTTPAddr:          "127.0.0.1:0",
		DBPath:            filepath.Join(t.TempDir(), "concord.db"),
		EventSyncInterval: time.Second,
	}
}

func TestNewAppRequiresGrantKey(t *testing.T) {
	setAppEnv(t)
	t.Setenv("CONCORD_GRANT_PRIVATE_KEY", "")

	if _, err := NewApp(context.Background(), testConfig(t)); err == nil {
		t.Fatal("expected error for missing grant private key")
	}
}

func TestNewAppRequiresSigningKey(t *testing.T) {
	setAppEnv(t)
	t.Setenv("CONCORD_SIGNING_ROOT_KEY", "")

	if _, err := NewApp(context.Background(), testConfig(t)); err == nil {
		t.Fatal("expected error for missing signing root key")
	}
}

func TestNewAppSuccess(t *testing.T) {
	setAppEnv(t)

	app, err := NewApp(context.Background(), testConfig(t))
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	t.Cleanup(app.Close)
}

func TestAppStopsOnContextCancel(t *testing.T) {
	setAppEnv(t)

	app, err := NewApp(context.Background(), testConfig(t))
	if err != nil {
		t.Fatalf("new app: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- app.ListenAndServe(ctx)
	}()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("listen and serve: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop after cancel")
	}
}
