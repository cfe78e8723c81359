// Package service orchestrates the alignment workflow: participant
// admission, the two-party submission barrier, analysis rounds, the
// conflict resolution loop, and dual-signature finalization. Every
// status write flows through the domain transition table, and every
// state change is handed to the notifier as an advisory event.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/concordhq/concord/internal/alignment/access"
	"github.com/concordhq/concord/internal/alignment/domain"
	"github.com/concordhq/concord/internal/alignment/engine"
	"github.com/concordhq/concord/internal/alignment/integrity"
	"github.com/concordhq/concord/internal/alignment/storage"
	"github.com/concordhq/concord/internal/platform/cache"
	apperrors "github.com/concordhq/concord/internal/platform/errors"
	"github.com/concordhq/concord/internal/platform/id"
	"github.com/concordhq/concord/internal/platform/timeouts"
)

// ErrStoreNotConfigured indicates the service is missing persistence wiring.
var ErrStoreNotConfigured = errors.New("alignment store is not configured")

// ErrEngineNotConfigured indicates the service is missing a reasoning
// engine provider.
var ErrEngineNotConfigured = errors.New("reasoning engine is not configured")

// ErrKeyringNotConfigured indicates the service is missing the signature
// keyring.
var ErrKeyringNotConfigured = errors.New("signing keyring is not configured")

// Notifier is the single observer for workflow state changes. The
// production implementation appends the event row and fans it out to
// connected clients in one call.
type Notifier interface {
	Record(ctx context.Context, record storage.EventRecord) (storage.EventRecord, error)
}

// Config wires the service's collaborators and workflow bounds.
// Zero-valued bounds fall back to the defaults; Clock and NewID default
// to the real clock and id generator.
type Config struct {
	Store       storage.Store
	Engine      engine.Provider
	Notifier    Notifier
	GrantSigner access.SignerConfig
	Keyring     *integrity.Keyring

	Limits Limits

	// EngineTimeout caps one full analysis run, fallback included.
	EngineTimeout time.Duration

	Clock func() time.Time
	NewID func() (string, error)
}

// Service implements every alignment workflow operation. Correctness
// under concurrent callers rests on the store's uniqueness constraints,
// never on in-process locks; colliding writers re-read the winning row
// and return it as their own success.
type Service struct {
	store         storage.Store
	engine        engine.Provider
	notifier      Notifier
	signer        access.SignerConfig
	keyring       *integrity.Keyring
	templates     *cache.TTL[domain.Template]
	maxRounds     int
	inviteTTL     time.Duration
	inviteMaxUses int
	engineTimeout time.Duration
	clock         func() time.Time
	newID         func() (string, error)
}

// New constructs the workflow service, filling defaulted dependencies.
func New(cfg Config) *Service {
	limits := cfg.Limits.withDefaults()
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	newID := cfg.NewID
	if newID == nil {
		newID = id.NewID
	}
	engineTimeout := cfg.EngineTimeout
	if engineTimeout <= 0 {
		engineTimeout = timeouts.EngineAnalysis
	}
	return &Service{
		store:         cfg.Store,
		engine:        cfg.Engine,
		notifier:      cfg.Notifier,
		signer:        cfg.GrantSigner,
		keyring:       cfg.Keyring,
		templates:     cache.NewTTL[domain.Template](limits.TemplateCacheTTL, clock),
		maxRounds:     limits.MaxRounds,
		inviteTTL:     limits.InviteTTL,
		inviteMaxUses: limits.InviteMaxUses,
		engineTimeout: engineTimeout,
		clock:         clock,
		newID:         newID,
	}
}

func (s *Service) nowUTC() time.Time {
	if s.clock == nil {
		return time.Now().UTC()
	}
	return s.clock().UTC()
}

// publish records one advisory event. Delivery failures are swallowed:
// the event stream is a trigger to re-fetch authoritative state, never
// the state itself, so a failed append must not unwind the state change
// that produced it.
func (s *Service) publish(ctx context.Context, alignmentID string, kind domain.EventKind, round int, status domain.Status) {
	if s.notifier == nil {
		return
	}
	_, _ = s.notifier.Record(ctx, storage.EventRecord{
		AlignmentID: alignmentID,
		Kind:        kind,
		Round:       round,
		Status:      status,
		CreatedAt:   s.nowUTC(),
	})
}

// loadAlignment fetches one alignment row, normalizing the id first.
func (s *Service) loadAlignment(ctx context.Context, alignmentID string) (storage.AlignmentRecord, error) {
	if s == nil || s.store == nil {
		return storage.AlignmentRecord{}, ErrStoreNotConfigured
	}
	alignmentID = strings.TrimSpace(alignmentID)
	if alignmentID == "" {
		return storage.AlignmentRecord{}, domain.ErrEmptyAlignmentID
	}
	return s.store.GetAlignment(ctx, alignmentID)
}

// requireParticipant resolves the caller's seat. A missing seat is an
// authorization failure, not a lookup failure: non-participants learn
// nothing about the alignment beyond its existence.
func (s *Service) requireParticipant(ctx context.Context, alignmentID, userID string) (storage.ParticipantRecord, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return storage.ParticipantRecord{}, domain.ErrEmptyUserID
	}
	participant, err := s.store.GetParticipant(ctx, alignmentID, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return storage.ParticipantRecord{}, apperrors.WithMetadata(
				apperrors.CodeParticipantNotEnrolled,
				"caller is not enrolled in this alignment",
				map[string]string{"AlignmentID": alignmentID},
			)
		}
		return storage.ParticipantRecord{}, err
	}
	return participant, nil
}

// requireOpen rejects operations against a terminal alignment.
func requireOpen(alignment storage.AlignmentRecord) error {
	if alignment.Status.Terminal() {
		return apperrors.WithMetadata(apperrors.CodeAlignmentStatusDisallowsOp,
			"alignment is closed", map[string]string{
				"AlignmentID": alignment.ID,
				"Status":      string(alignment.Status),
			})
	}
	return nil
}

// requireCurrentRound rejects operations that target anything but the
// alignment's current round. Rounds never rewind, so a mismatch means
// the caller is working from stale state.
func requireCurrentRound(alignment storage.AlignmentRecord, round int) error {
	if err := domain.ValidateRound(round); err != nil {
		return err
	}
	if round != alignment.Round {
		return apperrors.WithMetadata(apperrors.CodeAlignmentRoundMismatch,
			"operation targets a different round", map[string]string{
				"RequestedRound": strconv.Itoa(round),
				"CurrentRound":   strconv.Itoa(alignment.Round),
			})
	}
	return nil
}

// requireRoundUnfrozen rejects mutations once any signature exists for
// the round. The first signature freezes the round's content for both
// participants.
func (s *Service) requireRoundUnfrozen(ctx context.Context, alignmentID string, round int) error {
	signatures, err := s.store.ListSignaturesByRound(ctx, alignmentID, round)
	if err != nil {
		return err
	}
	if len(signatures) > 0 {
		return apperrors.WithMetadata(apperrors.CodeAlignmentRoundFrozen,
			"round content is frozen by a signature", map[string]string{
				"AlignmentID": alignmentID,
				"Round":       strconv.Itoa(round),
			})
	}
	return nil
}

// transition moves the alignment to the requested status through the
// domain edge table and persists the result. Requesting the held status
// is a no-op success with no write and no event. kind is the event
// published alongside a real change.
func (s *Service) transition(ctx context.Context, alignment *storage.AlignmentRecord, requested domain.Status, kind domain.EventKind) error {
	next, err := domain.Transition(alignment.Status, requested)
	if err != nil {
		return err
	}
	if next == alignment.Status {
		return nil
	}
	now := s.nowUTC()
	alignment.Status = next
	alignment.UpdatedAt = now
	switch next {
	case domain.StatusComplete:
		alignment.CompletedAt = &now
	case domain.StatusStalled:
		alignment.StalledAt = &now
	}
	if err := s.store.PutAlignment(ctx, *alignment); err != nil {
		return err
	}
	s.publish(ctx, alignment.ID, kind, alignment.Round, next)
	return nil
}

// decodeAnswers parses a stored answer map. A decode failure means the
// row is corrupt, which is a storage fault, not caller input.
func decodeAnswers(answersJSON string) (map[string]domain.Answer, error) {
	if strings.TrimSpace(answersJSON) == "" {
		return map[string]domain.Answer{}, nil
	}
	var answers map[string]domain.Answer
	if err := json.Unmarshal([]byte(answersJSON), &answers); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeStorageFailure, "decode stored answers", err)
	}
	return answers, nil
}

func encodeAnswers(answers map[string]domain.Answer) (string, error) {
	if answers == nil {
		answers = map[string]domain.Answer{}
	}
	encoded, err := json.Marshal(answers)
	if err != nil {
		return "", apperrors.Wrap(apperrors.CodeStorageFailure, "encode answers", err)
	}
	return string(encoded), nil
}

func alignmentFromRecord(record storage.AlignmentRecord) domain.Alignment {
	return domain.Alignment{
		ID:          record.ID,
		TemplateID:  record.TemplateID,
		Status:      record.Status,
		Round:       record.Round,
		CreatedAt:   record.CreatedAt,
		UpdatedAt:   record.UpdatedAt,
		CompletedAt: record.CompletedAt,
		StalledAt:   record.StalledAt,
	}
}

func responseFromRecord(record storage.ResponseRecord) (domain.Response, error) {
	answers, err := decodeAnswers(record.AnswersJSON)
	if err != nil {
		return domain.Response{}, err
	}
	return domain.Response{
		AlignmentID: record.AlignmentID,
		UserID:      record.UserID,
		Round:       record.Round,
		Answers:     answers,
		CreatedAt:   record.CreatedAt,
		UpdatedAt:   record.UpdatedAt,
		SubmittedAt: record.SubmittedAt,
	}, nil
}

func analysisFromRecord(record storage.AnalysisRecord) (domain.Analysis, error) {
	var report domain.Report
	if err := json.Unmarshal([]byte(record.ReportJSON), &report); err != nil {
		return domain.Analysis{}, apperrors.Wrap(apperrors.CodeStorageFailure, "decode stored analysis", err)
	}
	return domain.Analysis{
		ID:          record.ID,
		AlignmentID: record.AlignmentID,
		Round:       record.Round,
		Report:      report,
		Engine:      record.Engine,
		CreatedAt:   record.CreatedAt,
	}, nil
}

func encodeResolutionItems(items []domain.ResolutionItem) (string, error) {
	if items == nil {
		items = []domain.ResolutionItem{}
	}
	encoded, err := json.Marshal(items)
	if err != nil {
		return "", apperrors.Wrap(apperrors.CodeStorageFailure, "encode resolutions", err)
	}
	return string(encoded), nil
}

func resolutionSetFromRecord(record storage.ResolutionRecord) (domain.ResolutionSet, error) {
	var items []domain.ResolutionItem
	if strings.TrimSpace(record.ItemsJSON) != "" {
		if err := json.Unmarshal([]byte(record.ItemsJSON), &items); err != nil {
			return domain.ResolutionSet{}, apperrors.Wrap(apperrors.CodeStorageFailure, "decode stored resolutions", err)
		}
	}
	return domain.ResolutionSet{
		AlignmentID: record.AlignmentID,
		UserID:      record.UserID,
		Round:       record.Round,
		Items:       items,
		CreatedAt:   record.CreatedAt,
		UpdatedAt:   record.UpdatedAt,
	}, nil
}

// mintGrant issues the participant access grant for one seat.
func (s *Service) mintGrant(userID, alignmentID string, role domain.Role) (string, error) {
	return access.MintGrant(s.signer, userID, alignmentID, role, s.newID)
}

// resolveUserID trims the supplied id, minting an opaque one when the
// caller did not bring their own. Stable external ids keep invite
// redemption idempotent per (alignment, user).
func (s *Service) resolveUserID(userID string) (string, error) {
	userID = strings.TrimSpace(userID)
	if userID != "" {
		return userID, nil
	}
	return s.newID()
}
