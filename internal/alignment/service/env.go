package service

import (
	"fmt"
	"time"

	"github.com/concordhq/concord/internal/alignment/invite"
	"github.com/concordhq/concord/internal/platform/config"
)

// Environment variable names for the workflow bounds.
const (
	EnvMaxRounds        = "CONCORD_MAX_ROUNDS"
	EnvInviteTTL        = "CONCORD_INVITE_TTL"
	EnvInviteMaxUses    = "CONCORD_INVITE_MAX_USES"
	EnvTemplateCacheTTL = "CONCORD_TEMPLATE_CACHE_TTL"
)

const (
	// DefaultMaxRounds caps the resolution loop. A disagreement that
	// survives this many analysis rounds stalls instead of cycling.
	DefaultMaxRounds = 5
	// DefaultTemplateCacheTTL bounds how stale a cached question set
	// may get.
	DefaultTemplateCacheTTL = 5 * time.Minute
)

type limitsEnv struct {
	MaxRounds        int           `env:"CONCORD_MAX_ROUNDS" envDefault:"5"`
	InviteTTL        time.Duration `env:"CONCORD_INVITE_TTL" envDefault:"168h"`
	InviteMaxUses    int           `env:"CONCORD_INVITE_MAX_USES" envDefault:"1"`
	TemplateCacheTTL time.Duration `env:"CONCORD_TEMPLATE_CACHE_TTL" envDefault:"5m"`
}

// Limits bounds the workflow: the resolution round cap, invite
// redemption policy, and template cache freshness.
type Limits struct {
	MaxRounds        int
	InviteTTL        time.Duration
	InviteMaxUses    int
	TemplateCacheTTL time.Duration
}

// withDefaults fills zero values so a hand-built Limits behaves like
// the env defaults.
func (l Limits) withDefaults() Limits {
	if l.MaxRounds <= 0 {
		l.MaxRounds = DefaultMaxRounds
	}
	if l.InviteTTL <= 0 {
		l.InviteTTL = invite.DefaultTTL
	}
	if l.InviteMaxUses <= 0 {
		l.InviteMaxUses = invite.DefaultMaxUses
	}
	if l.TemplateCacheTTL <= 0 {
		l.TemplateCacheTTL = DefaultTemplateCacheTTL
	}
	return l
}

// LoadLimitsFromEnv reads the workflow bounds from the environment.
func LoadLimitsFromEnv() (Limits, error) {
	var raw limitsEnv
	if err := config.ParseEnv("workflow limits", &raw); err != nil {
		return Limits{}, err
	}
	if raw.MaxRounds <= 0 {
		return Limits{}, fmt.Errorf("%s must be positive", EnvMaxRounds)
	}
	if raw.InviteTTL <= 0 {
		return Limits{}, fmt.Errorf("%s must be positive", EnvInviteTTL)
	}
	if raw.InviteMaxUses <= 0 {
		return Limits{}, fmt.Errorf("%s must be positive", EnvInviteMaxUses)
	}
	if raw.TemplateCacheTTL <= 0 {
		return Limits{}, fmt.Errorf("%s must be positive", EnvTemplateCacheTTL)
	}
	return Limits{
		MaxRounds:        raw.MaxRounds,
		InviteTTL:        raw.InviteTTL,
		InviteMaxUses:    raw.InviteMaxUses,
		TemplateCacheTTL: raw.TemplateCacheTTL,
	}, nil
}
