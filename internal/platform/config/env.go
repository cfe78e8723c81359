// Package config wraps environment parsing and fatal exits for
// process entry points and env-backed loaders.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// ParseEnv loads configuration from environment variables into target.
// The scope names the subsystem in the error so a failed boot says
// which loader rejected its environment.
func ParseEnv(scope string, target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse %s env: %w", scope, err)
	}
	return nil
}
