package i18n

// Error codes must match the codes defined in internal/platform/errors/codes.go.
// These are duplicated as strings to avoid an import cycle.
const (
	CodeRequestInvalid                   = "REQUEST_INVALID"
	CodeAlignmentEmptyID                 = "ALIGNMENT_EMPTY_ID"
	CodeAlignmentEmptyTemplateID         = "ALIGNMENT_EMPTY_TEMPLATE_ID"
	CodeAlignmentInvalidStatus           = "ALIGNMENT_INVALID_STATUS"
	CodeAlignmentInvalidStatusTransition = "ALIGNMENT_INVALID_STATUS_TRANSITION"
	CodeAlignmentStatusDisallowsOp       = "ALIGNMENT_STATUS_DISALLOWS_OPERATION"
	CodeAlignmentRoundMismatch           = "ALIGNMENT_ROUND_MISMATCH"
	CodeAlignmentRoundFrozen             = "ALIGNMENT_ROUND_FROZEN"
	CodeAlignmentRoundCapReached         = "ALIGNMENT_ROUND_CAP_REACHED"
	CodeAlignmentTooManyParticipants     = "ALIGNMENT_TOO_MANY_PARTICIPANTS"
	CodeParticipantEmptyUserID           = "PARTICIPANT_EMPTY_USER_ID"
	CodeParticipantEmptyDisplayName      = "PARTICIPANT_EMPTY_DISPLAY_NAME"
	CodeParticipantInvalidRole           = "PARTICIPANT_INVALID_ROLE"
	CodeParticipantNotEnrolled           = "PARTICIPANT_NOT_ENROLLED"
	CodeRoundInvalid                     = "ROUND_INVALID"
	CodeAnswerUnknownQuestion            = "ANSWER_UNKNOWN_QUESTION"
	CodeAnswerInvalidKind                = "ANSWER_INVALID_KIND"
	CodeAnswerInvalidValue               = "ANSWER_INVALID_VALUE"
	CodeAnswerMissingRequired            = "ANSWER_MISSING_REQUIRED"
	CodeResponseAlreadySubmitted         = "RESPONSE_ALREADY_SUBMITTED"
	CodeSubmissionBarrierOpen            = "SUBMISSION_BARRIER_OPEN"
	CodeAnalysisAlreadyExists            = "ANALYSIS_ALREADY_EXISTS"
	CodeAnalysisConflictsUnresolved      = "ANALYSIS_CONFLICTS_UNRESOLVED"
	CodeResolutionUnknownConflict        = "RESOLUTION_UNKNOWN_CONFLICT"
	CodeResolutionMissingConflict        = "RESOLUTION_MISSING_CONFLICT"
	CodeResolutionDuplicateConflict      = "RESOLUTION_DUPLICATE_CONFLICT"
	CodeResolutionInvalidType            = "RESOLUTION_INVALID_TYPE"
	CodeResolutionEmptyCustomText        = "RESOLUTION_EMPTY_CUSTOM_TEXT"
	CodeSignatureConsentRequired         = "SIGNATURE_CONSENT_REQUIRED"
	CodeSignatureAlreadyExists           = "SIGNATURE_ALREADY_EXISTS"
	CodeSignatureHashMismatch            = "SIGNATURE_HASH_MISMATCH"
	CodeInviteEmptyToken                 = "INVITE_EMPTY_TOKEN"
	CodeInviteNotFound                   = "INVITE_NOT_FOUND"
	CodeInviteExpired                    = "INVITE_EXPIRED"
	CodeInviteInvalidated                = "INVITE_INVALIDATED"
	CodeInviteExhausted                  = "INVITE_EXHAUSTED"
	CodeUnauthenticated                  = "UNAUTHENTICATED"
	CodePermissionDenied                 = "PERMISSION_DENIED"
	CodeGrantInvalid                     = "GRANT_INVALID"
	CodeGrantExpired                     = "GRANT_EXPIRED"
	CodeListFilterInvalid                = "LIST_FILTER_INVALID"
	CodeListPageTokenInvalid             = "LIST_PAGE_TOKEN_INVALID"
	CodeEngineUnavailable                = "ENGINE_UNAVAILABLE"
	CodeEngineTimeout                    = "ENGINE_TIMEOUT"
	CodeEngineMalformedOutput            = "ENGINE_MALFORMED_OUTPUT"
	CodeNotFound                         = "NOT_FOUND"
	CodeConflict                         = "CONFLICT"
	CodeStorageFailure                   = "STORAGE_FAILURE"
)

var enUSCatalog = &Catalog{
	locale: "en-US",
	messages: map[Code]string{
		CodeRequestInvalid: "Request body could not be decoded",

		// Alignment errors
		CodeAlignmentEmptyID:                 "Alignment ID is required",
		CodeAlignmentEmptyTemplateID:         "Template ID is required",
		CodeAlignmentInvalidStatus:           "Invalid alignment status",
		CodeAlignmentInvalidStatusTransition: "Cannot transition alignment from {{.FromStatus}} to {{.ToStatus}}",
		CodeAlignmentStatusDisallowsOp:       "Alignment status {{.Status}} does not allow {{.Operation}}",
		CodeAlignmentRoundMismatch:           "Round {{.Round}} is not the current round {{.CurrentRound}}",
		CodeAlignmentRoundFrozen:             "Round {{.Round}} is frozen because a signature was recorded",
		CodeAlignmentRoundCapReached:         "Alignment stalled after {{.MaxRounds}} rounds without agreement",
		CodeAlignmentTooManyParticipants:     "Alignment has more than two submitted participants",

		// Participant errors
		CodeParticipantEmptyUserID:      "User ID is required",
		CodeParticipantEmptyDisplayName: "Display name cannot be empty",
		CodeParticipantInvalidRole:      "Invalid participant role",
		CodeParticipantNotEnrolled:      "Caller is not a participant of this alignment",

		// Response/answer errors
		CodeRoundInvalid:             "Round must be a positive number",
		CodeAnswerUnknownQuestion:    "Question {{.QuestionID}} is not part of this template",
		CodeAnswerInvalidKind:        "Answer for question {{.QuestionID}} has kind {{.Kind}}, expected {{.Expected}}",
		CodeAnswerInvalidValue:       "Answer for question {{.QuestionID}} is invalid",
		CodeAnswerMissingRequired:    "Question {{.QuestionID}} requires an answer",
		CodeResponseAlreadySubmitted: "Response for round {{.Round}} is already submitted",
		CodeSubmissionBarrierOpen:    "Both participants must submit before analysis can run",

		// Analysis errors
		CodeAnalysisAlreadyExists:       "Analysis for round {{.Round}} already exists",
		CodeAnalysisConflictsUnresolved: "Analysis for round {{.Round}} still has unresolved conflicts",

		// Resolution errors
		CodeResolutionUnknownConflict:   "Conflict {{.ConflictID}} is not part of the current analysis",
		CodeResolutionMissingConflict:   "Conflict {{.ConflictID}} has no resolution",
		CodeResolutionDuplicateConflict: "Conflict {{.ConflictID}} has more than one resolution",
		CodeResolutionInvalidType:       "Invalid resolution type {{.Type}}",
		CodeResolutionEmptyCustomText:   "Custom resolution for conflict {{.ConflictID}} requires text",

		// Signature errors
		CodeSignatureConsentRequired: "Explicit consent is required to sign",
		CodeSignatureAlreadyExists:   "A signature for this round already exists",
		CodeSignatureHashMismatch:    "Content changed since the first signature; signing aborted",

		// Invite errors
		CodeInviteEmptyToken:  "Invite token is required",
		CodeInviteNotFound:    "Invite not found",
		CodeInviteExpired:     "Invite has expired",
		CodeInviteInvalidated: "Invite has been invalidated",
		CodeInviteExhausted:   "Invite has no remaining uses",

		// Access grant errors
		CodeUnauthenticated:  "Authentication is required",
		CodePermissionDenied: "Caller is not allowed to perform this operation",
		CodeGrantInvalid:     "Access grant is invalid",
		CodeGrantExpired:     "Access grant has expired",

		// List errors
		CodeListFilterInvalid:    "List filter is invalid",
		CodeListPageTokenInvalid: "Page token is invalid",

		// Reasoning engine errors
		CodeEngineUnavailable:     "The reasoning engine is unavailable; try again shortly",
		CodeEngineTimeout:         "The reasoning engine did not respond in time",
		CodeEngineMalformedOutput: "The reasoning engine returned an unusable result",

		// Storage errors
		CodeNotFound:       "The requested resource was not found",
		CodeConflict:       "The write conflicts with an existing record",
		CodeStorageFailure: "A storage failure interrupted the operation",
	},
}
