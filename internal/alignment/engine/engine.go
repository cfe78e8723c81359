// Package engine produces the structured comparison between the two
// participants' answer sets. The primary provider calls the OpenAI
// Responses API; a curated deterministic fallback keeps analysis
// available when the primary is unreachable. Every result is tagged
// with the provider that produced it so degraded rounds stay visible
// downstream.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/concordhq/concord/internal/alignment/domain"
	"github.com/concordhq/concord/internal/platform/timeouts"
)

// Participant is one side of the comparison.
type Participant struct {
	UserID  string
	Answers map[string]domain.Answer
}

// Request carries everything one comparison needs.
type Request struct {
	AlignmentID string
	Round       int
	Questions   []domain.Question
	PersonA     Participant
	PersonB     Participant
	// MergedPositions holds wording settled in earlier rounds so
	// re-analysis does not reopen it. Nil on round 1.
	MergedPositions map[string]domain.Answer
}

// Result pairs a normalized report with the provider that produced it.
type Result struct {
	Report domain.Report
	Source domain.EngineSource
}

// Provider produces one comparison report.
type Provider interface {
	Analyze(ctx context.Context, req Request) (Result, error)
}

// Failover tries the primary provider under its own budget and hands
// failures to the fallback. The fallback result keeps its own source
// tag, so callers can tell a degraded round from an engine round.
type Failover struct {
	Primary  Provider
	Fallback Provider
	// PrimaryTimeout caps the primary attempt so a slow engine still
	// leaves room for the fallback. Defaults to timeouts.EngineRequest.
	PrimaryTimeout time.Duration
}

// Analyze runs the primary attempt, then the fallback when present.
func (f Failover) Analyze(ctx context.Context, req Request) (Result, error) {
	if f.Primary == nil {
		return Result{}, errors.New("primary provider is required")
	}
	budget := f.PrimaryTimeout
	if budget <= 0 {
		budget = timeouts.EngineRequest
	}
	primaryCtx, cancel := context.WithTimeout(ctx, budget)
	result, err := f.Primary.Analyze(primaryCtx, req)
	cancel()
	if err == nil {
		return result, nil
	}
	if f.Fallback == nil {
		return Result{}, err
	}
	// A cancelled caller is not an engine failure; do not mask it with
	// a degraded result.
	if ctx.Err() != nil {
		return Result{}, err
	}
	fallbackResult, fallbackErr := f.Fallback.Analyze(ctx, req)
	if fallbackErr != nil {
		return Result{}, err
	}
	return fallbackResult, nil
}

// validateRequest checks the fields every provider depends on.
func validateRequest(req Request) error {
	if strings.TrimSpace(req.AlignmentID) == "" {
		return errors.New("alignment id is required")
	}
	if req.Round < 1 {
		return fmt.Errorf("round %d is invalid", req.Round)
	}
	if len(req.Questions) == 0 {
		return errors.New("questions are required")
	}
	if strings.TrimSpace(req.PersonA.UserID) == "" || strings.TrimSpace(req.PersonB.UserID) == "" {
		return errors.New("both participants are required")
	}
	return nil
}
