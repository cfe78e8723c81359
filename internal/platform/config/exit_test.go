package config_test

import (
	"errors"
	"os"
	"os/exec"
	"strings"
	"testing"

	"github.com/concordhq/concord/internal/platform/config"
)

// Exitf calls os.Exit, so the assertion runs against a child test
// process re-invoked with the marker variable set.
func TestExitf(t *testing.T) {
	if os.Getenv("CONCORD_EXITF_CHILD") == "1" {
		config.Exitf("boot failed: %s", "no signing key")
		return
	}

	cmd := exec.Command(os.Args[0], "-test.run=^TestExitf$")
	cmd.Env = append(os.Environ(), "CONCORD_EXITF_CHILD=1")
	out, err := cmd.CombinedOutput()

	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("child error = %T (%v), want *exec.ExitError", err, err)
	}
	if code := exitErr.ExitCode(); code != 1 {
		t.Errorf("exit code = %d, want 1", code)
	}
	if !strings.Contains(string(out), "boot failed: no signing key") {
		t.Errorf("child output %q is missing the formatted message", string(out))
	}
}
