// Package errors provides structured error handling with i18n support.
package errors

import (
	"net/http"

	"google.golang.org/grpc/codes"
)

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// CodeRequestInvalid flags a request body that cannot be decoded.
	CodeRequestInvalid Code = "REQUEST_INVALID"

	// Alignment errors
	CodeAlignmentEmptyID                Code = "ALIGNMENT_EMPTY_ID"
	CodeAlignmentEmptyTemplateID        Code = "ALIGNMENT_EMPTY_TEMPLATE_ID"
	CodeAlignmentInvalidStatus          Code = "ALIGNMENT_INVALID_STATUS"
	CodeAlignmentInvalidStatusTransition Code = "ALIGNMENT_INVALID_STATUS_TRANSITION"
	CodeAlignmentStatusDisallowsOp      Code = "ALIGNMENT_STATUS_DISALLOWS_OPERATION"
	CodeAlignmentRoundMismatch          Code = "ALIGNMENT_ROUND_MISMATCH"
	CodeAlignmentRoundFrozen            Code = "ALIGNMENT_ROUND_FROZEN"
	CodeAlignmentRoundCapReached        Code = "ALIGNMENT_ROUND_CAP_REACHED"
	CodeAlignmentTooManyParticipants    Code = "ALIGNMENT_TOO_MANY_PARTICIPANTS"

	// Participant errors
	CodeParticipantEmptyUserID      Code = "PARTICIPANT_EMPTY_USER_ID"
	CodeParticipantEmptyDisplayName Code = "PARTICIPANT_EMPTY_DISPLAY_NAME"
	CodeParticipantInvalidRole      Code = "PARTICIPANT_INVALID_ROLE"
	CodeParticipantNotEnrolled      Code = "PARTICIPANT_NOT_ENROLLED"

	// Response/answer errors
	CodeRoundInvalid             Code = "ROUND_INVALID"
	CodeAnswerUnknownQuestion    Code = "ANSWER_UNKNOWN_QUESTION"
	CodeAnswerInvalidKind        Code = "ANSWER_INVALID_KIND"
	CodeAnswerInvalidValue       Code = "ANSWER_INVALID_VALUE"
	CodeAnswerMissingRequired    Code = "ANSWER_MISSING_REQUIRED"
	CodeResponseAlreadySubmitted Code = "RESPONSE_ALREADY_SUBMITTED"
	CodeSubmissionBarrierOpen    Code = "SUBMISSION_BARRIER_OPEN"

	// Analysis errors
	CodeAnalysisAlreadyExists       Code = "ANALYSIS_ALREADY_EXISTS"
	CodeAnalysisConflictsUnresolved Code = "ANALYSIS_CONFLICTS_UNRESOLVED"

	// Resolution errors
	CodeResolutionUnknownConflict   Code = "RESOLUTION_UNKNOWN_CONFLICT"
	CodeResolutionMissingConflict   Code = "RESOLUTION_MISSING_CONFLICT"
	CodeResolutionDuplicateConflict Code = "RESOLUTION_DUPLICATE_CONFLICT"
	CodeResolutionInvalidType       Code = "RESOLUTION_INVALID_TYPE"
	CodeResolutionEmptyCustomText   Code = "RESOLUTION_EMPTY_CUSTOM_TEXT"

	// Signature errors
	CodeSignatureConsentRequired Code = "SIGNATURE_CONSENT_REQUIRED"
	CodeSignatureAlreadyExists   Code = "SIGNATURE_ALREADY_EXISTS"
	CodeSignatureHashMismatch    Code = "SIGNATURE_HASH_MISMATCH"

	// Invite errors
	CodeInviteEmptyToken  Code = "INVITE_EMPTY_TOKEN"
	CodeInviteNotFound    Code = "INVITE_NOT_FOUND"
	CodeInviteExpired     Code = "INVITE_EXPIRED"
	CodeInviteInvalidated Code = "INVITE_INVALIDATED"
	CodeInviteExhausted   Code = "INVITE_EXHAUSTED"

	// Access grant errors
	CodeUnauthenticated  Code = "UNAUTHENTICATED"
	CodePermissionDenied Code = "PERMISSION_DENIED"
	CodeGrantInvalid     Code = "GRANT_INVALID"
	CodeGrantExpired     Code = "GRANT_EXPIRED"

	// List errors
	CodeListFilterInvalid    Code = "LIST_FILTER_INVALID"
	CodeListPageTokenInvalid Code = "LIST_PAGE_TOKEN_INVALID"

	// Reasoning engine errors
	CodeEngineUnavailable     Code = "ENGINE_UNAVAILABLE"
	CodeEngineTimeout         Code = "ENGINE_TIMEOUT"
	CodeEngineMalformedOutput Code = "ENGINE_MALFORMED_OUTPUT"

	// Storage errors
	CodeNotFound       Code = "NOT_FOUND"
	CodeConflict       Code = "CONFLICT"
	CodeStorageFailure Code = "STORAGE_FAILURE"
)

// GRPCCode maps domain codes to gRPC status codes.
func (c Code) GRPCCode() codes.Code {
	switch c {
	// InvalidArgument - validation failures, bad input
	case CodeRequestInvalid,
		CodeAlignmentEmptyID,
		CodeAlignmentEmptyTemplateID,
		CodeAlignmentInvalidStatus,
		CodeParticipantEmptyUserID,
		CodeParticipantEmptyDisplayName,
		CodeParticipantInvalidRole,
		CodeRoundInvalid,
		CodeAnswerUnknownQuestion,
		CodeAnswerInvalidKind,
		CodeAnswerInvalidValue,
		CodeAnswerMissingRequired,
		CodeResolutionUnknownConflict,
		CodeResolutionMissingConflict,
		CodeResolutionDuplicateConflict,
		CodeResolutionInvalidType,
		CodeResolutionEmptyCustomText,
		CodeSignatureConsentRequired,
		CodeInviteEmptyToken,
		CodeListFilterInvalid,
		CodeListPageTokenInvalid:
		return codes.InvalidArgument

	// FailedPrecondition - state doesn't allow the operation
	case CodeAlignmentInvalidStatusTransition,
		CodeAlignmentStatusDisallowsOp,
		CodeAlignmentRoundMismatch,
		CodeAlignmentRoundFrozen,
		CodeAlignmentRoundCapReached,
		CodeAlignmentTooManyParticipants,
		CodeResponseAlreadySubmitted,
		CodeSubmissionBarrierOpen,
		CodeAnalysisConflictsUnresolved,
		CodeInviteExpired,
		CodeInviteInvalidated,
		CodeInviteExhausted:
		return codes.FailedPrecondition

	// AlreadyExists - unique resource constraint
	case CodeConflict,
		CodeAnalysisAlreadyExists,
		CodeSignatureAlreadyExists:
		return codes.AlreadyExists

	// Aborted - concurrent writes disagree on content
	case CodeSignatureHashMismatch:
		return codes.Aborted

	// NotFound - resource doesn't exist
	case CodeNotFound,
		CodeInviteNotFound:
		return codes.NotFound

	case CodeUnauthenticated,
		CodeGrantInvalid,
		CodeGrantExpired:
		return codes.Unauthenticated

	case CodePermissionDenied,
		CodeParticipantNotEnrolled:
		return codes.PermissionDenied

	case CodeEngineUnavailable,
		CodeEngineMalformedOutput:
		return codes.Unavailable

	case CodeEngineTimeout:
		return codes.DeadlineExceeded

	default:
		return codes.Internal
	}
}

// HTTPStatus maps domain codes to HTTP status codes. Engine failures map to
// gateway statuses so callers can tell an upstream fault from a local one.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeEngineUnavailable, CodeEngineMalformedOutput:
		return http.StatusBadGateway
	case CodeEngineTimeout:
		return http.StatusGatewayTimeout
	}
	switch c.GRPCCode() {
	case codes.InvalidArgument:
		return http.StatusBadRequest
	case codes.Unauthenticated:
		return http.StatusUnauthorized
	case codes.PermissionDenied:
		return http.StatusForbidden
	case codes.NotFound:
		return http.StatusNotFound
	case codes.FailedPrecondition, codes.AlreadyExists, codes.Aborted:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
