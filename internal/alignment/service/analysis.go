package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strconv"

	"github.com/concordhq/concord/internal/alignment/domain"
	"github.com/concordhq/concord/internal/alignment/domain/encoding"
	"github.com/concordhq/concord/internal/alignment/engine"
	"github.com/concordhq/concord/internal/alignment/storage"
	apperrors "github.com/concordhq/concord/internal/platform/errors"
)

// RunAnalysis invokes the reasoning engine over both submitted answer
// sets for the alignment's current round and persists the report.
// Exactly one analysis exists per round: the store's uniqueness
// constraint elects a winner under concurrent runs and losers return
// the winning row. Engine failures leave no partial state behind; the
// caller retries from the same phase.
func (s *Service) RunAnalysis(ctx context.Context, alignmentID, userID string, round int) (domain.Analysis, error) {
	alignment, err := s.loadAlignment(ctx, alignmentID)
	if err != nil {
		return domain.Analysis{}, err
	}
	if _, err := s.requireParticipant(ctx, alignment.ID, userID); err != nil {
		return domain.Analysis{}, err
	}
	if err := requireCurrentRound(alignment, round); err != nil {
		return domain.Analysis{}, err
	}

	// Re-running a completed round is an idempotent success.
	existing, err := s.store.GetAnalysisByRound(ctx, alignment.ID, round)
	if err == nil {
		if err := s.ensureAnalysisStatus(ctx, &alignment); err != nil {
			return domain.Analysis{}, err
		}
		return analysisFromRecord(existing)
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return domain.Analysis{}, err
	}

	if alignment.Status != domain.StatusActive && alignment.Status != domain.StatusResolving {
		return domain.Analysis{}, apperrors.WithMetadata(apperrors.CodeAlignmentStatusDisallowsOp,
			"analysis requires an active or resolving alignment", map[string]string{
				"AlignmentID": alignment.ID,
				"Status":      string(alignment.Status),
			})
	}

	ready, err := s.BarrierSatisfied(ctx, alignment.ID, round)
	if err != nil {
		return domain.Analysis{}, err
	}
	if !ready {
		return domain.Analysis{}, apperrors.WithMetadata(apperrors.CodeSubmissionBarrierOpen,
			"analysis requires both participants to submit", map[string]string{
				"AlignmentID": alignment.ID,
				"Round":       strconv.Itoa(round),
			})
	}

	req, err := s.buildAnalysisRequest(ctx, alignment, round)
	if err != nil {
		return domain.Analysis{}, err
	}

	if s.engine == nil {
		return domain.Analysis{}, ErrEngineNotConfigured
	}
	engineCtx, cancel := context.WithTimeout(ctx, s.engineTimeout)
	result, err := s.engine.Analyze(engineCtx, req)
	cancel()
	if err != nil {
		return domain.Analysis{}, err
	}

	reportJSON, err := json.Marshal(result.Report)
	if err != nil {
		return domain.Analysis{}, apperrors.Wrap(apperrors.CodeStorageFailure, "encode analysis report", err)
	}
	analysisID, err := s.newID()
	if err != nil {
		return domain.Analysis{}, err
	}
	record := storage.AnalysisRecord{
		ID:          analysisID,
		AlignmentID: alignment.ID,
		Round:       round,
		ReportJSON:  string(reportJSON),
		Engine:      result.Source,
		CreatedAt:   s.nowUTC(),
	}
	if err := s.store.PutAnalysis(ctx, record); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			// Another runner won the round. Their row is the analysis.
			winner, getErr := s.store.GetAnalysisByRound(ctx, alignment.ID, round)
			if getErr != nil {
				return domain.Analysis{}, getErr
			}
			if err := s.ensureAnalysisStatus(ctx, &alignment); err != nil {
				return domain.Analysis{}, err
			}
			return analysisFromRecord(winner)
		}
		return domain.Analysis{}, err
	}

	if err := s.ensureAnalysisStatus(ctx, &alignment); err != nil {
		return domain.Analysis{}, err
	}
	s.publish(ctx, alignment.ID, domain.EventAnalysisCompleted, round, alignment.Status)

	return analysisFromRecord(record)
}

// GetAnalysis returns the analysis for a specific round.
func (s *Service) GetAnalysis(ctx context.Context, alignmentID, userID string, round int) (domain.Analysis, error) {
	alignment, err := s.loadAlignment(ctx, alignmentID)
	if err != nil {
		return domain.Analysis{}, err
	}
	if _, err := s.requireParticipant(ctx, alignment.ID, userID); err != nil {
		return domain.Analysis{}, err
	}
	if err := domain.ValidateRound(round); err != nil {
		return domain.Analysis{}, err
	}
	record, err := s.store.GetAnalysisByRound(ctx, alignment.ID, round)
	if err != nil {
		return domain.Analysis{}, err
	}
	return analysisFromRecord(record)
}

// GetLatestAnalysis returns the highest-round analysis.
func (s *Service) GetLatestAnalysis(ctx context.Context, alignmentID, userID string) (domain.Analysis, error) {
	alignment, err := s.loadAlignment(ctx, alignmentID)
	if err != nil {
		return domain.Analysis{}, err
	}
	if _, err := s.requireParticipant(ctx, alignment.ID, userID); err != nil {
		return domain.Analysis{}, err
	}
	record, err := s.store.GetLatestAnalysis(ctx, alignment.ID)
	if err != nil {
		return domain.Analysis{}, err
	}
	return analysisFromRecord(record)
}

// ensureAnalysisStatus moves a round-1 alignment from active to
// analyzing once its analysis row exists. The analysis write and the
// status write are separate statements, so a crash between them leaves
// an active alignment with an analysis; the next reader heals it.
func (s *Service) ensureAnalysisStatus(ctx context.Context, alignment *storage.AlignmentRecord) error {
	if alignment.Status != domain.StatusActive {
		return nil
	}
	return s.transition(ctx, alignment, domain.StatusAnalyzing, domain.EventStatusChanged)
}

// buildAnalysisRequest assembles both submitted answer sets in seat
// order. From round 2 on it also carries the positions the parties
// already agree on, so re-analysis does not reopen settled wording.
func (s *Service) buildAnalysisRequest(ctx context.Context, alignment storage.AlignmentRecord, round int) (engine.Request, error) {
	template, err := s.ResolveTemplate(ctx, alignment.TemplateID)
	if err != nil {
		return engine.Request{}, err
	}
	participants, err := s.store.ListParticipants(ctx, alignment.ID)
	if err != nil {
		return engine.Request{}, err
	}
	responses, err := s.store.ListResponsesByRound(ctx, alignment.ID, round)
	if err != nil {
		return engine.Request{}, err
	}

	answersByUser := make(map[string]map[string]domain.Answer, len(responses))
	for _, response := range responses {
		if response.SubmittedAt == nil {
			continue
		}
		answers, err := decodeAnswers(response.AnswersJSON)
		if err != nil {
			return engine.Request{}, err
		}
		answersByUser[response.UserID] = answers
	}

	var personA, personB engine.Participant
	for _, participant := range participants {
		side := engine.Participant{
			UserID:  participant.UserID,
			Answers: answersByUser[participant.UserID],
		}
		if participant.Role == domain.RoleOwner {
			personA = side
		} else {
			personB = side
		}
	}

	req := engine.Request{
		AlignmentID: alignment.ID,
		Round:       round,
		Questions:   template.Questions,
		PersonA:     personA,
		PersonB:     personB,
	}
	if round > 1 {
		merged, err := agreedPositions(personA.Answers, personB.Answers)
		if err != nil {
			return engine.Request{}, err
		}
		req.MergedPositions = merged
	}
	return req, nil
}

// agreedPositions returns the answers both sides hold in identical form,
// compared by canonical JSON so map ordering cannot split a match.
func agreedPositions(personA, personB map[string]domain.Answer) (map[string]domain.Answer, error) {
	agreed := make(map[string]domain.Answer)
	for questionID, answerA := range personA {
		answerB, ok := personB[questionID]
		if !ok {
			continue
		}
		canonicalA, err := encoding.CanonicalJSON(answerA)
		if err != nil {
			return nil, err
		}
		canonicalB, err := encoding.CanonicalJSON(answerB)
		if err != nil {
			return nil, err
		}
		if bytes.Equal(canonicalA, canonicalB) {
			agreed[questionID] = answerA
		}
	}
	return agreed, nil
}
