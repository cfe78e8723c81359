package domain

import (
	"strings"

	apperrors "github.com/concordhq/concord/internal/platform/errors"
)

// Status describes the alignment lifecycle label used by workflow decisions.
type Status string

const (
	StatusUnspecified Status = ""
	StatusDraft       Status = "draft"
	StatusActive      Status = "active"
	// StatusAnalyzing means an analysis is available for the current
	// round and no resolution has been recorded yet. It is set after
	// the engine call succeeds, never while one is in flight.
	StatusAnalyzing Status = "analyzing"
	StatusResolving Status = "resolving"
	StatusComplete  Status = "complete"
	StatusStalled   Status = "stalled"
)

// ParseStatus maps a wire value to a Status. The enum is closed and
// case-sensitive.
func ParseStatus(value string) (Status, error) {
	switch Status(value) {
	case StatusDraft, StatusActive, StatusAnalyzing, StatusResolving, StatusComplete, StatusStalled:
		return Status(value), nil
	default:
		return StatusUnspecified, apperrors.WithMetadata(apperrors.CodeAlignmentInvalidStatus,
			"unknown alignment status", map[string]string{"Status": strings.TrimSpace(value)})
	}
}

// Terminal reports whether the status has no outgoing edges.
func (s Status) Terminal() bool {
	return s == StatusComplete || s == StatusStalled
}

// Transition validates a status change against the closed edge table.
// Requesting the state already held is an idempotent success so retried
// operations never fail on their own earlier effect. Every status write
// in the repository flows through this function.
func Transition(current, requested Status) (Status, error) {
	if current == requested {
		return current, nil
	}
	if isTransitionAllowed(current, requested) {
		return requested, nil
	}
	return StatusUnspecified, apperrors.WithMetadata(apperrors.CodeAlignmentInvalidStatusTransition,
		"alignment status transition is not allowed", map[string]string{
			"FromStatus": string(current),
			"ToStatus":   string(requested),
		})
}

func isTransitionAllowed(from, to Status) bool {
	switch from {
	case StatusDraft:
		return to == StatusActive
	case StatusActive:
		return to == StatusAnalyzing
	case StatusAnalyzing:
		// complete covers the zero-conflict first round, where the
		// resolving phase is never entered.
		return to == StatusResolving || to == StatusComplete
	case StatusResolving:
		return to == StatusComplete || to == StatusStalled
	default:
		return false
	}
}
