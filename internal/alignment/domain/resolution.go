package domain

import (
	"maps"
	"strings"
	"time"

	apperrors "github.com/concordhq/concord/internal/platform/errors"
)

// ResolutionType is the choice a participant makes for one conflict.
type ResolutionType string

const (
	// ResolutionAISuggestion adopts the engine's suggested resolution.
	ResolutionAISuggestion ResolutionType = "ai_suggestion"
	// ResolutionAcceptOwn keeps the participant's own position.
	ResolutionAcceptOwn ResolutionType = "accept_own"
	// ResolutionAcceptPartner adopts the partner's position.
	ResolutionAcceptPartner ResolutionType = "accept_partner"
	// ResolutionCustom replaces the position with free text.
	ResolutionCustom ResolutionType = "custom"
)

// ParseResolutionType maps a wire value to a ResolutionType.
func ParseResolutionType(value string) (ResolutionType, bool) {
	switch ResolutionType(value) {
	case ResolutionAISuggestion, ResolutionAcceptOwn, ResolutionAcceptPartner, ResolutionCustom:
		return ResolutionType(value), true
	default:
		return "", false
	}
}

// ResolutionItem is one participant's choice for one conflict.
type ResolutionItem struct {
	ConflictID     string         `json:"conflictId"`
	Type           ResolutionType `json:"resolutionType"`
	SelectedOption string         `json:"selectedOption,omitempty"`
	CustomSolution string         `json:"customSolution,omitempty"`
}

// ResolutionSet is one participant's full answer to a round's conflicts.
// It stays overwritable until the round advances.
type ResolutionSet struct {
	AlignmentID string
	UserID      string
	Round       int
	Items       []ResolutionItem
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ValidateResolutions checks a submission against the conflicts of the
// round's analysis: every conflict id covered exactly once, no ids the
// analysis never reported, and non-empty text for custom choices.
func ValidateResolutions(analysis Analysis, items []ResolutionItem) error {
	seen := make(map[string]bool, len(items))
	for _, item := range items {
		if _, ok := ParseResolutionType(string(item.Type)); !ok {
			return apperrors.WithMetadata(apperrors.CodeResolutionInvalidType,
				"invalid resolution type", map[string]string{
					"ConflictID": item.ConflictID,
					"Type":       string(item.Type),
				})
		}
		if _, ok := analysis.Conflict(item.ConflictID); !ok {
			return apperrors.WithMetadata(apperrors.CodeResolutionUnknownConflict,
				"resolution references an unknown conflict", map[string]string{
					"ConflictID": item.ConflictID,
				})
		}
		if seen[item.ConflictID] {
			return apperrors.WithMetadata(apperrors.CodeResolutionDuplicateConflict,
				"duplicate resolution for conflict", map[string]string{
					"ConflictID": item.ConflictID,
				})
		}
		seen[item.ConflictID] = true
		if item.Type == ResolutionCustom && strings.TrimSpace(item.CustomSolution) == "" {
			return apperrors.WithMetadata(apperrors.CodeResolutionEmptyCustomText,
				"custom resolution requires text", map[string]string{
					"ConflictID": item.ConflictID,
				})
		}
	}
	for _, id := range analysis.ConflictIDs() {
		if !seen[id] {
			return apperrors.WithMetadata(apperrors.CodeResolutionMissingConflict,
				"missing resolution for conflict", map[string]string{
					"ConflictID": id,
				})
		}
	}
	return nil
}

// MergePositions derives one participant's next-round answers from their
// current answers, the partner's answers, and their own choices. Answers
// for questions without a conflict carry over unchanged. An ai_suggestion
// choice resolves to the selected option when one was sent, otherwise to
// the conflict's suggested resolution; if the analysis recorded neither,
// the participant's prior answer stands.
func MergePositions(analysis Analysis, own, partner map[string]Answer, items []ResolutionItem) map[string]Answer {
	merged := maps.Clone(own)
	if merged == nil {
		merged = make(map[string]Answer)
	}
	for _, item := range items {
		conflict, ok := analysis.Conflict(item.ConflictID)
		if !ok {
			continue
		}
		switch item.Type {
		case ResolutionAcceptOwn:
			// Prior answer stands.
		case ResolutionAcceptPartner:
			if answer, ok := partner[conflict.QuestionID]; ok {
				merged[conflict.QuestionID] = answer
			} else {
				delete(merged, conflict.QuestionID)
			}
		case ResolutionAISuggestion:
			text := strings.TrimSpace(item.SelectedOption)
			if text == "" {
				text = strings.TrimSpace(conflict.SuggestedResolution)
			}
			if text != "" {
				merged[conflict.QuestionID] = TextAnswer(text)
			}
		case ResolutionCustom:
			merged[conflict.QuestionID] = TextAnswer(strings.TrimSpace(item.CustomSolution))
		}
	}
	return merged
}
