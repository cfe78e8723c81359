package service

import (
	"context"

	"github.com/concordhq/concord/internal/alignment/domain"
	"github.com/concordhq/concord/internal/alignment/storage"
	apperrors "github.com/concordhq/concord/internal/platform/errors"
)

// SubmitResolutionsInput carries one participant's choices for every
// conflict the round's analysis reported.
type SubmitResolutionsInput struct {
	AlignmentID string
	UserID      string
	Round       int
	Items       []domain.ResolutionItem
}

// SubmitResolutionsResult reports what the submission triggered. When
// both sets are in, the round either advances with freshly merged
// positions or stalls at the round cap. NextAnalysis carries the
// auto-run analysis for the new round; nil means the engine was
// unavailable and a manual run should follow.
type SubmitResolutionsResult struct {
	ResolutionSet domain.ResolutionSet
	Alignment     storage.AlignmentRecord
	RoundAdvanced bool
	Stalled       bool
	NextAnalysis  *domain.Analysis
}

// SubmitResolutions records the caller's resolution set for the current
// round. Sets stay overwritable until the partner's set arrives; the
// second set merges both into next-round positions, advances the round,
// and re-runs analysis.
func (s *Service) SubmitResolutions(ctx context.Context, input SubmitResolutionsInput) (SubmitResolutionsResult, error) {
	alignment, err := s.loadAlignment(ctx, input.AlignmentID)
	if err != nil {
		return SubmitResolutionsResult{}, err
	}
	participant, err := s.requireParticipant(ctx, alignment.ID, input.UserID)
	if err != nil {
		return SubmitResolutionsResult{}, err
	}
	if err := requireCurrentRound(alignment, input.Round); err != nil {
		return SubmitResolutionsResult{}, err
	}

	analysisRecord, err := s.store.GetAnalysisByRound(ctx, alignment.ID, input.Round)
	if err != nil {
		return SubmitResolutionsResult{}, err
	}
	analysis, err := analysisFromRecord(analysisRecord)
	if err != nil {
		return SubmitResolutionsResult{}, err
	}

	if err := requireOpen(alignment); err != nil {
		return SubmitResolutionsResult{}, err
	}
	if err := s.requireRoundUnfrozen(ctx, alignment.ID, input.Round); err != nil {
		return SubmitResolutionsResult{}, err
	}
	if !analysis.HasConflicts() {
		return SubmitResolutionsResult{}, apperrors.WithMetadata(apperrors.CodeAlignmentStatusDisallowsOp,
			"analysis reported no conflicts to resolve", map[string]string{
				"AlignmentID": alignment.ID,
			})
	}
	if err := domain.ValidateResolutions(analysis, input.Items); err != nil {
		return SubmitResolutionsResult{}, err
	}

	itemsJSON, err := encodeResolutionItems(input.Items)
	if err != nil {
		return SubmitResolutionsResult{}, err
	}
	now := s.nowUTC()
	if err := s.store.PutResolutionSet(ctx, storage.ResolutionRecord{
		AlignmentID: alignment.ID,
		UserID:      participant.UserID,
		Round:       input.Round,
		ItemsJSON:   itemsJSON,
		CreatedAt:   now,
		UpdatedAt:   now,
	}); err != nil {
		return SubmitResolutionsResult{}, err
	}

	if alignment.Status == domain.StatusAnalyzing {
		if err := s.transition(ctx, &alignment, domain.StatusResolving, domain.EventStatusChanged); err != nil {
			return SubmitResolutionsResult{}, err
		}
	}
	s.publish(ctx, alignment.ID, domain.EventResolutionsSubmitted, input.Round, alignment.Status)

	stored, err := s.store.GetResolutionSet(ctx, alignment.ID, participant.UserID, input.Round)
	if err != nil {
		return SubmitResolutionsResult{}, err
	}
	ownSet, err := resolutionSetFromRecord(stored)
	if err != nil {
		return SubmitResolutionsResult{}, err
	}

	sets, err := s.store.ListResolutionSetsByRound(ctx, alignment.ID, input.Round)
	if err != nil {
		return SubmitResolutionsResult{}, err
	}
	if len(sets) < domain.MaxParticipants {
		return SubmitResolutionsResult{ResolutionSet: ownSet, Alignment: alignment}, nil
	}

	return s.advanceRound(ctx, alignment, participant, analysis, sets, ownSet)
}

// GetOwnResolutionSet returns the caller's resolution set for a round.
func (s *Service) GetOwnResolutionSet(ctx context.Context, alignmentID, userID string, round int) (domain.ResolutionSet, error) {
	alignment, err := s.loadAlignment(ctx, alignmentID)
	if err != nil {
		return domain.ResolutionSet{}, err
	}
	participant, err := s.requireParticipant(ctx, alignment.ID, userID)
	if err != nil {
		return domain.ResolutionSet{}, err
	}
	if err := domain.ValidateRound(round); err != nil {
		return domain.ResolutionSet{}, err
	}
	stored, err := s.store.GetResolutionSet(ctx, alignment.ID, participant.UserID, round)
	if err != nil {
		return domain.ResolutionSet{}, err
	}
	return resolutionSetFromRecord(stored)
}

// advanceRound merges both resolution sets into next-round positions,
// materializes them as pre-submitted responses, bumps the round, and
// re-runs analysis. Hitting the round cap stalls the alignment instead.
// The merge is deterministic, so a concurrent or crashed-and-retried
// advance writes identical rows and the already-submitted rejection is
// safe to treat as success.
func (s *Service) advanceRound(
	ctx context.Context,
	alignment storage.AlignmentRecord,
	participant storage.ParticipantRecord,
	analysis domain.Analysis,
	sets []storage.ResolutionRecord,
	ownSet domain.ResolutionSet,
) (SubmitResolutionsResult, error) {
	nextRound := alignment.Round + 1
	if nextRound > s.maxRounds {
		if err := s.transition(ctx, &alignment, domain.StatusStalled, domain.EventAlignmentStalled); err != nil {
			return SubmitResolutionsResult{}, err
		}
		return SubmitResolutionsResult{ResolutionSet: ownSet, Alignment: alignment, Stalled: true}, nil
	}

	participants, err := s.store.ListParticipants(ctx, alignment.ID)
	if err != nil {
		return SubmitResolutionsResult{}, err
	}
	responses, err := s.store.ListResponsesByRound(ctx, alignment.ID, alignment.Round)
	if err != nil {
		return SubmitResolutionsResult{}, err
	}
	answersByUser := make(map[string]map[string]domain.Answer, len(responses))
	for _, response := range responses {
		answers, err := decodeAnswers(response.AnswersJSON)
		if err != nil {
			return SubmitResolutionsResult{}, err
		}
		answersByUser[response.UserID] = answers
	}
	itemsByUser := make(map[string][]domain.ResolutionItem, len(sets))
	for _, set := range sets {
		decoded, err := resolutionSetFromRecord(set)
		if err != nil {
			return SubmitResolutionsResult{}, err
		}
		itemsByUser[set.UserID] = decoded.Items
	}

	now := s.nowUTC()
	for _, seat := range participants {
		var partnerAnswers map[string]domain.Answer
		for _, other := range participants {
			if other.UserID != seat.UserID {
				partnerAnswers = answersByUser[other.UserID]
			}
		}
		merged := domain.MergePositions(analysis, answersByUser[seat.UserID], partnerAnswers, itemsByUser[seat.UserID])
		answersJSON, err := encodeAnswers(merged)
		if err != nil {
			return SubmitResolutionsResult{}, err
		}
		record := storage.ResponseRecord{
			AlignmentID: alignment.ID,
			UserID:      seat.UserID,
			Round:       nextRound,
			AnswersJSON: answersJSON,
			CreatedAt:   now,
			UpdatedAt:   now,
			SubmittedAt: &now,
		}
		if err := s.store.PutResponse(ctx, record); err != nil {
			if apperrors.GetCode(err) == apperrors.CodeResponseAlreadySubmitted {
				continue
			}
			return SubmitResolutionsResult{}, err
		}
	}

	alignment.Round = nextRound
	alignment.UpdatedAt = now
	if err := s.store.PutAlignment(ctx, alignment); err != nil {
		return SubmitResolutionsResult{}, err
	}
	s.publish(ctx, alignment.ID, domain.EventRoundAdvanced, nextRound, alignment.Status)

	result := SubmitResolutionsResult{
		ResolutionSet: ownSet,
		Alignment:     alignment,
		RoundAdvanced: true,
	}
	// Re-analysis failures stay out of the advance: the round is already
	// moved, the merged positions are durable, and a later manual run
	// picks up from here.
	if next, err := s.RunAnalysis(ctx, alignment.ID, participant.UserID, nextRound); err == nil {
		result.NextAnalysis = &next
	}
	return result, nil
}
