package domain

import apperrors "github.com/concordhq/concord/internal/platform/errors"

var (
	// ErrEmptyTemplateID indicates a missing template reference.
	ErrEmptyTemplateID = apperrors.New(apperrors.CodeAlignmentEmptyTemplateID, "template id is required")
	// ErrEmptyAlignmentID indicates a missing alignment identity.
	ErrEmptyAlignmentID = apperrors.New(apperrors.CodeAlignmentEmptyID, "alignment id is required")
	// ErrEmptyUserID indicates a missing participant user identity.
	ErrEmptyUserID = apperrors.New(apperrors.CodeParticipantEmptyUserID, "user id is required")
	// ErrEmptyDisplayName indicates a missing participant display name.
	ErrEmptyDisplayName = apperrors.New(apperrors.CodeParticipantEmptyDisplayName, "display name is required")
	// ErrInvalidRole indicates an unknown participant role.
	ErrInvalidRole = apperrors.New(apperrors.CodeParticipantInvalidRole, "participant role is invalid")
	// ErrInvalidRound indicates a non-positive round number.
	ErrInvalidRound = apperrors.New(apperrors.CodeRoundInvalid, "round must be a positive integer")
	// ErrResolutionInvalidType indicates an unknown resolution type.
	ErrResolutionInvalidType = apperrors.New(apperrors.CodeResolutionInvalidType, "invalid resolution type")
	// ErrResolutionUnknownConflict indicates a resolution for a conflict
	// the round's analysis never reported.
	ErrResolutionUnknownConflict = apperrors.New(apperrors.CodeResolutionUnknownConflict, "resolution references an unknown conflict")
	// ErrResolutionDuplicateConflict indicates two resolutions for one conflict.
	ErrResolutionDuplicateConflict = apperrors.New(apperrors.CodeResolutionDuplicateConflict, "duplicate resolution for conflict")
	// ErrResolutionMissingConflict indicates an uncovered conflict.
	ErrResolutionMissingConflict = apperrors.New(apperrors.CodeResolutionMissingConflict, "missing resolution for conflict")
	// ErrResolutionEmptyCustomText indicates a custom resolution without text.
	ErrResolutionEmptyCustomText = apperrors.New(apperrors.CodeResolutionEmptyCustomText, "custom resolution requires text")
	// ErrAnalysisConflictsUnresolved indicates finalization was attempted
	// while the round's analysis still reports conflicts.
	ErrAnalysisConflictsUnresolved = apperrors.New(apperrors.CodeAnalysisConflictsUnresolved, "analysis still reports conflicts")
)
