// Package storage defines the persistence records and store interfaces
// for the alignment workflow. Implementations live in subpackages;
// callers depend only on these interfaces.
package storage

import (
	"context"
	"time"

	"github.com/concordhq/concord/internal/alignment/domain"
	apperrors "github.com/concordhq/concord/internal/platform/errors"
)

// ErrNotFound indicates a requested persistence record is missing.
// Callers use this to differentiate between legitimate "no such entity"
// states and transport or data corruption failures.
var ErrNotFound = apperrors.New(apperrors.CodeNotFound, "record not found")

// ErrConflict indicates a write lost to a uniqueness constraint. The
// analysis and signature paths treat it as a signal to re-read the
// winning row rather than as a failure.
var ErrConflict = apperrors.New(apperrors.CodeConflict, "record conflict")

// AlignmentRecord captures one agreement session's workflow position.
type AlignmentRecord struct {
	ID          string
	TemplateID  string
	Status      domain.Status
	Round       int
	CreatedAt   time.Time
	UpdatedAt   time.Time
	CompletedAt *time.Time
	StalledAt   *time.Time
}

// ParticipantRecord captures one seat on an alignment.
type ParticipantRecord struct {
	AlignmentID string
	UserID      string
	Role        domain.Role
	DisplayName string
	CreatedAt   time.Time
}

// ResponseRecord captures one participant's answers for one round.
// AnswersJSON is the serialized answer map; submission is the one-way
// SubmittedAt stamp.
type ResponseRecord struct {
	AlignmentID string
	UserID      string
	Round       int
	AnswersJSON string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	SubmittedAt *time.Time
}

// AnalysisRecord captures one immutable engine comparison.
type AnalysisRecord struct {
	ID          string
	AlignmentID string
	Round       int
	ReportJSON  string
	Engine      domain.EngineSource
	CreatedAt   time.Time
}

// ResolutionRecord captures one participant's resolution set for one round.
type ResolutionRecord struct {
	AlignmentID string
	UserID      string
	Round       int
	ItemsJSON   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// SignatureRecord captures one immutable signature row.
type SignatureRecord struct {
	AlignmentID  string
	UserID       string
	Round        int
	SnapshotJSON string
	ContentHash  string
	MAC          string
	KeyID        string
	SignedAt     time.Time
}

// InviteRecord captures admission token state. Only the token hash is
// stored; the raw token never touches persistence.
type InviteRecord struct {
	ID              string
	AlignmentID     string
	TokenHash       string
	CreatedByUserID string
	ExpiresAt       time.Time
	MaxUses         int
	UseCount        int
	InvalidatedAt   *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// TemplateRecord captures a stored question set.
type TemplateRecord struct {
	ID            string
	Name          string
	QuestionsJSON string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// EventRecord captures one advisory state-change notification. Seq is
// assigned by the store on append and is monotone across the database.
type EventRecord struct {
	Seq         int64
	AlignmentID string
	Kind        domain.EventKind
	Round       int
	Status      domain.Status
	CreatedAt   time.Time
}

// AlignmentPage is a paged alignment listing result.
type AlignmentPage struct {
	Alignments    []AlignmentRecord
	NextPageToken string
}

// ListAlignmentsRequest describes a participant-scoped alignment listing.
type ListAlignmentsRequest struct {
	// UserID scopes results to alignments the user participates in (required).
	UserID string
	// PageSize is the maximum number of records to return (default 50, max 200).
	PageSize int
	// PageToken resumes a previous listing.
	PageToken string
	// FilterClause is an optional SQL WHERE fragment produced by the
	// filter translator. It only ever references alignment columns.
	FilterClause string
	// FilterParams are the positional parameters for FilterClause.
	FilterParams []any
}

// AlignmentStore persists alignment workflow rows.
type AlignmentStore interface {
	// PutAlignment inserts or updates an alignment row.
	PutAlignment(ctx context.Context, record AlignmentRecord) error
	// GetAlignment retrieves an alignment by id.
	GetAlignment(ctx context.Context, id string) (AlignmentRecord, error)
	// ListAlignmentsByUser pages through a participant's alignments,
	// newest first.
	ListAlignmentsByUser(ctx context.Context, req ListAlignmentsRequest) (AlignmentPage, error)
}

// ParticipantStore persists alignment seats and enforces the two-seat cap
// at the write boundary so concurrent joins cannot overfill an alignment.
type ParticipantStore interface {
	// AddParticipant inserts a seat. Re-adding the same user is an
	// idempotent success; a third distinct user fails with the
	// participant cap error.
	AddParticipant(ctx context.Context, record ParticipantRecord) error
	// GetParticipant retrieves one seat.
	GetParticipant(ctx context.Context, alignmentID, userID string) (ParticipantRecord, error)
	// ListParticipants returns all seats for an alignment ordered by
	// creation time.
	ListParticipants(ctx context.Context, alignmentID string) ([]ParticipantRecord, error)
}

// ResponseStore persists per-round answer sets.
type ResponseStore interface {
	// PutResponse inserts or overwrites a draft. Writes to a submitted
	// response fail with the already-submitted error.
	PutResponse(ctx context.Context, record ResponseRecord) error
	// GetResponse retrieves one participant's response for a round.
	GetResponse(ctx context.Context, alignmentID, userID string, round int) (ResponseRecord, error)
	// ListResponsesByRound returns all responses for a round.
	ListResponsesByRound(ctx context.Context, alignmentID string, round int) ([]ResponseRecord, error)
	// MarkResponseSubmitted stamps SubmittedAt once. Re-stamping keeps
	// the original time and succeeds.
	MarkResponseSubmitted(ctx context.Context, alignmentID, userID string, round int, submittedAt time.Time) (ResponseRecord, error)
}

// AnalysisStore persists engine comparisons with the exactly-once
// guarantee hanging on the (alignment_id, round) uniqueness.
type AnalysisStore interface {
	// PutAnalysis inserts a new analysis. A second insert for the same
	// (alignment, round) fails with ErrConflict.
	PutAnalysis(ctx context.Context, record AnalysisRecord) error
	// GetAnalysisByRound retrieves the analysis for a round.
	GetAnalysisByRound(ctx context.Context, alignmentID string, round int) (AnalysisRecord, error)
	// GetLatestAnalysis retrieves the highest-round analysis.
	GetLatestAnalysis(ctx context.Context, alignmentID string) (AnalysisRecord, error)
}

// ResolutionStore persists per-participant resolution sets.
type ResolutionStore interface {
	// PutResolutionSet inserts or overwrites a participant's set for a round.
	PutResolutionSet(ctx context.Context, record ResolutionRecord) error
	// GetResolutionSet retrieves one participant's set for a round.
	GetResolutionSet(ctx context.Context, alignmentID, userID string, round int) (ResolutionRecord, error)
	// ListResolutionSetsByRound returns all sets for a round.
	ListResolutionSetsByRound(ctx context.Context, alignmentID string, round int) ([]ResolutionRecord, error)
}

// SignatureStore persists immutable signature rows.
type SignatureStore interface {
	// PutSignature inserts a signature. A second insert for the same
	// (alignment, user, round) fails with ErrConflict.
	PutSignature(ctx context.Context, record SignatureRecord) error
	// GetSignature retrieves one participant's signature for a round.
	GetSignature(ctx context.Context, alignmentID, userID string, round int) (SignatureRecord, error)
	// ListSignaturesByRound returns all signatures for a round ordered
	// by user id.
	ListSignaturesByRound(ctx context.Context, alignmentID string, round int) ([]SignatureRecord, error)
}

// InviteStore persists admission tokens.
type InviteStore interface {
	// PutInvite inserts an invite row.
	PutInvite(ctx context.Context, record InviteRecord) error
	// GetInvite retrieves an invite by id.
	GetInvite(ctx context.Context, id string) (InviteRecord, error)
	// GetInviteByTokenHash retrieves an invite by its token hash.
	GetInviteByTokenHash(ctx context.Context, tokenHash string) (InviteRecord, error)
	// RedeemInviteByTokenHash atomically checks redeemability and
	// increments the use counter, returning the updated row. Failures
	// carry the precise invite error (not found, expired, invalidated,
	// exhausted).
	RedeemInviteByTokenHash(ctx context.Context, tokenHash string, now time.Time) (InviteRecord, error)
	// InvalidateInvite stamps InvalidatedAt once; repeat calls keep the
	// first stamp.
	InvalidateInvite(ctx context.Context, id string, at time.Time) error
	// ListInvitesByAlignment returns invites for an alignment, newest first.
	ListInvitesByAlignment(ctx context.Context, alignmentID string) ([]InviteRecord, error)
}

// TemplateStore persists question sets.
type TemplateStore interface {
	// PutTemplate inserts or updates a template.
	PutTemplate(ctx context.Context, record TemplateRecord) error
	// GetTemplate retrieves a template by id.
	GetTemplate(ctx context.Context, id string) (TemplateRecord, error)
	// ListTemplates returns all templates ordered by id.
	ListTemplates(ctx context.Context) ([]TemplateRecord, error)
}

// EventStore persists the advisory event stream.
type EventStore interface {
	// AppendEvent inserts an event and returns it with Seq assigned.
	AppendEvent(ctx context.Context, record EventRecord) (EventRecord, error)
	// ListAlignmentEvents returns an alignment's events with seq greater
	// than afterSeq, oldest first.
	ListAlignmentEvents(ctx context.Context, alignmentID string, afterSeq int64, limit int) ([]EventRecord, error)
	// ListEventsAfter returns events across alignments with seq greater
	// than afterSeq, oldest first. The sync worker drains this.
	ListEventsAfter(ctx context.Context, afterSeq int64, limit int) ([]EventRecord, error)
	// LatestEventSeq returns the highest assigned seq, or zero when the
	// stream is empty.
	LatestEventSeq(ctx context.Context) (int64, error)
}

// Store is the composite interface over all persistence concerns the
// workflow touches.
type Store interface {
	AlignmentStore
	ParticipantStore
	ResponseStore
	AnalysisStore
	ResolutionStore
	SignatureStore
	InviteStore
	TemplateStore
	EventStore
	Close() error
}
