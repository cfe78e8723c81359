package service

import (
	"context"

	"github.com/concordhq/concord/internal/alignment/domain"
	"github.com/concordhq/concord/internal/alignment/storage"
	apperrors "github.com/concordhq/concord/internal/platform/errors"
)

// AnswersInput carries one participant's answers for one round.
type AnswersInput struct {
	AlignmentID string
	UserID      string
	Round       int
	Answers     map[string]domain.Answer
}

// SaveDraft upserts the caller's draft answers for the current round.
// Partial answer sets are accepted; required-question enforcement waits
// for submission. Drafts produce no events and stay invisible to the
// partner.
func (s *Service) SaveDraft(ctx context.Context, input AnswersInput) (domain.Response, error) {
	alignment, err := s.loadAlignment(ctx, input.AlignmentID)
	if err != nil {
		return domain.Response{}, err
	}
	participant, err := s.requireParticipant(ctx, alignment.ID, input.UserID)
	if err != nil {
		return domain.Response{}, err
	}
	if err := requireCurrentRound(alignment, input.Round); err != nil {
		return domain.Response{}, err
	}
	if err := requireOpen(alignment); err != nil {
		return domain.Response{}, err
	}
	if err := s.requireRoundUnfrozen(ctx, alignment.ID, input.Round); err != nil {
		return domain.Response{}, err
	}

	template, err := s.ResolveTemplate(ctx, alignment.TemplateID)
	if err != nil {
		return domain.Response{}, err
	}
	if err := domain.ValidateAnswers(template, input.Answers, false); err != nil {
		return domain.Response{}, err
	}

	answersJSON, err := encodeAnswers(input.Answers)
	if err != nil {
		return domain.Response{}, err
	}

	now := s.nowUTC()
	record := storage.ResponseRecord{
		AlignmentID: alignment.ID,
		UserID:      participant.UserID,
		Round:       input.Round,
		AnswersJSON: answersJSON,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.PutResponse(ctx, record); err != nil {
		return domain.Response{}, err
	}

	// The store keeps the original CreatedAt on overwrite; re-read for
	// the authoritative row.
	stored, err := s.store.GetResponse(ctx, alignment.ID, participant.UserID, input.Round)
	if err != nil {
		return domain.Response{}, err
	}
	return responseFromRecord(stored)
}

// SubmitResponse finalizes the caller's answers for the current round.
// Submission requires every required question answered, is one-way, and
// re-submitting is an idempotent success. Submit without a prior draft
// is a not-found.
func (s *Service) SubmitResponse(ctx context.Context, alignmentID, userID string, round int) (domain.Response, error) {
	alignment, err := s.loadAlignment(ctx, alignmentID)
	if err != nil {
		return domain.Response{}, err
	}
	participant, err := s.requireParticipant(ctx, alignment.ID, userID)
	if err != nil {
		return domain.Response{}, err
	}
	if err := requireCurrentRound(alignment, round); err != nil {
		return domain.Response{}, err
	}
	if err := requireOpen(alignment); err != nil {
		return domain.Response{}, err
	}
	if err := s.requireRoundUnfrozen(ctx, alignment.ID, round); err != nil {
		return domain.Response{}, err
	}

	stored, err := s.store.GetResponse(ctx, alignment.ID, participant.UserID, round)
	if err != nil {
		return domain.Response{}, err
	}
	if stored.SubmittedAt != nil {
		return responseFromRecord(stored)
	}

	template, err := s.ResolveTemplate(ctx, alignment.TemplateID)
	if err != nil {
		return domain.Response{}, err
	}
	answers, err := decodeAnswers(stored.AnswersJSON)
	if err != nil {
		return domain.Response{}, err
	}
	if err := domain.ValidateAnswers(template, answers, true); err != nil {
		return domain.Response{}, err
	}

	submitted, err := s.store.MarkResponseSubmitted(ctx, alignment.ID, participant.UserID, round, s.nowUTC())
	if err != nil {
		return domain.Response{}, err
	}

	s.publish(ctx, alignment.ID, domain.EventResponseSubmitted, round, alignment.Status)

	return responseFromRecord(submitted)
}

// GetOwnResponse returns the caller's response for a round. There is no
// partner-read operation; answers cross the boundary only inside an
// analysis report.
func (s *Service) GetOwnResponse(ctx context.Context, alignmentID, userID string, round int) (domain.Response, error) {
	alignment, err := s.loadAlignment(ctx, alignmentID)
	if err != nil {
		return domain.Response{}, err
	}
	participant, err := s.requireParticipant(ctx, alignment.ID, userID)
	if err != nil {
		return domain.Response{}, err
	}
	if err := domain.ValidateRound(round); err != nil {
		return domain.Response{}, err
	}
	stored, err := s.store.GetResponse(ctx, alignment.ID, participant.UserID, round)
	if err != nil {
		return domain.Response{}, err
	}
	return responseFromRecord(stored)
}

// BarrierSatisfied reports whether both participants have submitted for
// the round. Analysis is gated on this so neither side's answers leak
// before both are locked in.
func (s *Service) BarrierSatisfied(ctx context.Context, alignmentID string, round int) (bool, error) {
	if s == nil || s.store == nil {
		return false, ErrStoreNotConfigured
	}
	responses, err := s.store.ListResponsesByRound(ctx, alignmentID, round)
	if err != nil {
		return false, err
	}
	submitted := 0
	for _, r := range responses {
		if r.SubmittedAt != nil {
			submitted++
		}
	}
	if submitted > domain.MaxParticipants {
		return false, apperrors.WithMetadata(apperrors.CodeAlignmentTooManyParticipants,
			"more submissions than seats", map[string]string{
				"AlignmentID": alignmentID,
			})
	}
	return submitted == domain.MaxParticipants, nil
}
