package service

import (
	"context"
	"errors"

	"github.com/concordhq/concord/internal/alignment/domain"
	"github.com/concordhq/concord/internal/alignment/storage"
	apperrors "github.com/concordhq/concord/internal/platform/errors"
)

// SignInput carries one participant's signing request. Consent must be
// explicit; there is no implied signing anywhere in the workflow.
type SignInput struct {
	AlignmentID string
	UserID      string
	Round       int
	Consent     bool
}

// SignResult reports the stored signature and whether it closed the
// alignment.
type SignResult struct {
	Signature storage.SignatureRecord
	Alignment storage.AlignmentRecord
	Completed bool
}

// SnapshotView is the signable content preview: the exact snapshot and
// hash a signature would cover right now.
type SnapshotView struct {
	Snapshot    domain.Snapshot
	ContentHash string
}

// GetSnapshot rebuilds the signable content for the current round. The
// snapshot is always derived from stored rows at call time, never
// accepted from a client.
func (s *Service) GetSnapshot(ctx context.Context, alignmentID, userID string) (SnapshotView, error) {
	alignment, err := s.loadAlignment(ctx, alignmentID)
	if err != nil {
		return SnapshotView{}, err
	}
	if _, err := s.requireParticipant(ctx, alignment.ID, userID); err != nil {
		return SnapshotView{}, err
	}
	snapshot, err := s.buildSnapshot(ctx, alignment)
	if err != nil {
		return SnapshotView{}, err
	}
	hash, err := snapshot.Hash()
	if err != nil {
		return SnapshotView{}, err
	}
	return SnapshotView{Snapshot: snapshot, ContentHash: hash}, nil
}

// Sign records one participant's signature over the current round's
// snapshot. The hash is recomputed from stored rows at sign time, the
// first signature freezes the round, and the second must land on the
// same hash. Both signatures close the alignment. Re-signing is an
// idempotent success.
func (s *Service) Sign(ctx context.Context, input SignInput) (SignResult, error) {
	if !input.Consent {
		return SignResult{}, apperrors.WithMetadata(apperrors.CodeSignatureConsentRequired,
			"signing requires explicit consent", map[string]string{
				"AlignmentID": input.AlignmentID,
			})
	}
	alignment, err := s.loadAlignment(ctx, input.AlignmentID)
	if err != nil {
		return SignResult{}, err
	}
	participant, err := s.requireParticipant(ctx, alignment.ID, input.UserID)
	if err != nil {
		return SignResult{}, err
	}
	if err := requireCurrentRound(alignment, input.Round); err != nil {
		return SignResult{}, err
	}

	signatures, err := s.store.ListSignaturesByRound(ctx, alignment.ID, input.Round)
	if err != nil {
		return SignResult{}, err
	}
	for _, signature := range signatures {
		if signature.UserID == participant.UserID {
			// Already signed. Heal a missed completion before returning.
			if err := s.ensureCompletionStatus(ctx, &alignment, len(signatures)); err != nil {
				return SignResult{}, err
			}
			return SignResult{
				Signature: signature,
				Alignment: alignment,
				Completed: alignment.Status == domain.StatusComplete,
			}, nil
		}
	}

	if err := requireOpen(alignment); err != nil {
		return SignResult{}, err
	}

	snapshot, err := s.buildSnapshot(ctx, alignment)
	if err != nil {
		return SignResult{}, err
	}
	hash, err := snapshot.Hash()
	if err != nil {
		return SignResult{}, err
	}
	for _, signature := range signatures {
		if signature.ContentHash != hash {
			return SignResult{}, apperrors.WithMetadata(apperrors.CodeSignatureHashMismatch,
				"content changed since the first signature", map[string]string{
					"AlignmentID": alignment.ID,
					"SignedHash":  signature.ContentHash,
					"CurrentHash": hash,
				})
		}
	}

	if s.keyring == nil {
		return SignResult{}, ErrKeyringNotConfigured
	}
	mac, keyID, err := s.keyring.SignSnapshotHash(alignment.ID, hash)
	if err != nil {
		return SignResult{}, err
	}
	canonical, err := snapshot.CanonicalJSON()
	if err != nil {
		return SignResult{}, err
	}

	record := storage.SignatureRecord{
		AlignmentID:  alignment.ID,
		UserID:       participant.UserID,
		Round:        input.Round,
		SnapshotJSON: string(canonical),
		ContentHash:  hash,
		MAC:          mac,
		KeyID:        keyID,
		SignedAt:     s.nowUTC(),
	}
	if err := s.store.PutSignature(ctx, record); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			// A concurrent request by the same signer won; same content,
			// same hash, so the stored row is this request's result.
			stored, getErr := s.store.GetSignature(ctx, alignment.ID, participant.UserID, input.Round)
			if getErr != nil {
				return SignResult{}, getErr
			}
			record = stored
		} else {
			return SignResult{}, err
		}
	}

	s.publish(ctx, alignment.ID, domain.EventSignatureRecorded, input.Round, alignment.Status)

	signatures, err = s.store.ListSignaturesByRound(ctx, alignment.ID, input.Round)
	if err != nil {
		return SignResult{}, err
	}
	if err := s.ensureCompletionStatus(ctx, &alignment, len(signatures)); err != nil {
		return SignResult{}, err
	}

	return SignResult{
		Signature: record,
		Alignment: alignment,
		Completed: alignment.Status == domain.StatusComplete,
	}, nil
}

// ListSignatures returns the signatures recorded for a round.
func (s *Service) ListSignatures(ctx context.Context, alignmentID, userID string, round int) ([]storage.SignatureRecord, error) {
	alignment, err := s.loadAlignment(ctx, alignmentID)
	if err != nil {
		return nil, err
	}
	if _, err := s.requireParticipant(ctx, alignment.ID, userID); err != nil {
		return nil, err
	}
	if err := domain.ValidateRound(round); err != nil {
		return nil, err
	}
	return s.store.ListSignaturesByRound(ctx, alignment.ID, round)
}

// ensureCompletionStatus closes the alignment once both signatures are
// on file. The signature write and the status write are separate
// statements; a crash between them leaves the second signature recorded
// on an open alignment, and the next signer or re-signer heals it.
func (s *Service) ensureCompletionStatus(ctx context.Context, alignment *storage.AlignmentRecord, signatureCount int) error {
	if signatureCount < domain.MaxParticipants {
		return nil
	}
	if alignment.Status.Terminal() {
		return nil
	}
	return s.transition(ctx, alignment, domain.StatusComplete, domain.EventAlignmentCompleted)
}

// buildSnapshot assembles the current round's signable content from
// stored rows.
func (s *Service) buildSnapshot(ctx context.Context, alignment storage.AlignmentRecord) (domain.Snapshot, error) {
	template, err := s.ResolveTemplate(ctx, alignment.TemplateID)
	if err != nil {
		return domain.Snapshot{}, err
	}
	analysisRecord, err := s.store.GetAnalysisByRound(ctx, alignment.ID, alignment.Round)
	if err != nil {
		return domain.Snapshot{}, err
	}
	analysis, err := analysisFromRecord(analysisRecord)
	if err != nil {
		return domain.Snapshot{}, err
	}
	records, err := s.store.ListResponsesByRound(ctx, alignment.ID, alignment.Round)
	if err != nil {
		return domain.Snapshot{}, err
	}
	responses := make([]domain.Response, 0, len(records))
	for _, record := range records {
		response, err := responseFromRecord(record)
		if err != nil {
			return domain.Snapshot{}, err
		}
		responses = append(responses, response)
	}
	return domain.BuildSnapshot(alignmentFromRecord(alignment), template, responses, analysis)
}
