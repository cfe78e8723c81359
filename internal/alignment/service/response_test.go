package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/concordhq/concord/internal/alignment/domain"
	"github.com/concordhq/concord/internal/alignment/storage"
	apperrors "github.com/concordhq/concord/internal/platform/errors"
)

func TestSaveDraft(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	ctx := context.Background()
	alignment := openAlignment(t, h)
	baseline := len(h.notifier.records)

	response, err := h.service.SaveDraft(ctx, AnswersInput{
		AlignmentID: alignment.ID,
		UserID:      "user-a",
		Round:       1,
		Answers: map[string]domain.Answer{
			"pf-goals": {Kind: domain.KindLongText, Text: "Keep the studio independent"},
		},
	})
	if err != nil {
		t.Fatalf("SaveDraft: %v", err)
	}
	if response.SubmittedAt != nil {
		t.Error("draft must not be submitted")
	}
	if response.Round != 1 || response.UserID != "user-a" {
		t.Errorf("response = round %d user %q, want round 1 user-a", response.Round, response.UserID)
	}
	if len(response.Answers) != 1 {
		t.Errorf("answers = %d, want 1", len(response.Answers))
	}
	if len(h.notifier.records) != baseline {
		t.Error("drafting must not publish events")
	}

	// Overwriting keeps the original creation time.
	h.clock.Advance(time.Minute)
	updated, err := h.service.SaveDraft(ctx, AnswersInput{
		AlignmentID: alignment.ID,
		UserID:      "user-a",
		Round:       1,
		Answers:     completeAnswers("losing creative control"),
	})
	if err != nil {
		t.Fatalf("SaveDraft overwrite: %v", err)
	}
	if !updated.CreatedAt.Equal(response.CreatedAt) {
		t.Errorf("created at changed on overwrite: %v -> %v", response.CreatedAt, updated.CreatedAt)
	}
	if !updated.UpdatedAt.After(response.UpdatedAt) {
		t.Errorf("updated at = %v, want after %v", updated.UpdatedAt, response.UpdatedAt)
	}
	if len(updated.Answers) != 6 {
		t.Errorf("answers after overwrite = %d, want 6", len(updated.Answers))
	}
}

func TestSaveDraftRejects(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		userID   string
		round    int
		answers  map[string]domain.Answer
		wantCode apperrors.Code
	}{
		{
			name:   "unknown question",
			userID: "user-a",
			round:  1,
			answers: map[string]domain.Answer{
				"pf-unknown": {Kind: domain.KindLongText, Text: "?"},
			},
			wantCode: apperrors.CodeAnswerUnknownQuestion,
		},
		{
			name:   "kind mismatch",
			userID: "user-a",
			round:  1,
			answers: map[string]domain.Answer{
				"pf-goals": {Kind: domain.KindNumber},
			},
			wantCode: apperrors.CodeAnswerInvalidKind,
		},
		{
			name:   "option outside the catalog",
			userID: "user-a",
			round:  1,
			answers: map[string]domain.Answer{
				"pf-values": {Kind: domain.KindSingleChoice, Option: "secrecy"},
			},
			wantCode: apperrors.CodeAnswerInvalidValue,
		},
		{
			name:   "wrong round",
			userID: "user-a",
			round:  2,
			answers: map[string]domain.Answer{
				"pf-goals": {Kind: domain.KindLongText, Text: "x"},
			},
			wantCode: apperrors.CodeAlignmentRoundMismatch,
		},
		{
			name:   "stranger",
			userID: "user-c",
			round:  1,
			answers: map[string]domain.Answer{
				"pf-goals": {Kind: domain.KindLongText, Text: "x"},
			},
			wantCode: apperrors.CodeParticipantNotEnrolled,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			h := newHarness(t)
			alignment := openAlignment(t, h)
			_, err := h.service.SaveDraft(context.Background(), AnswersInput{
				AlignmentID: alignment.ID,
				UserID:      tc.userID,
				Round:       tc.round,
				Answers:     tc.answers,
			})
			if got := codeOf(err); got != tc.wantCode {
				t.Fatalf("SaveDraft code = %q, want %q", got, tc.wantCode)
			}
		})
	}
}

func TestSaveDraftClosedAlignment(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	ctx := context.Background()
	alignment := openAlignment(t, h)

	record := h.store.alignments[alignment.ID]
	record.Status = domain.StatusComplete
	h.store.alignments[alignment.ID] = record

	_, err := h.service.SaveDraft(ctx, AnswersInput{
		AlignmentID: alignment.ID,
		UserID:      "user-a",
		Round:       1,
		Answers:     completeAnswers("x"),
	})
	if got := codeOf(err); got != apperrors.CodeAlignmentStatusDisallowsOp {
		t.Errorf("closed code = %q, want %q", got, apperrors.CodeAlignmentStatusDisallowsOp)
	}
}

func TestSaveDraftFrozenRound(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	ctx := context.Background()
	alignment := openAlignment(t, h)

	h.store.signatures[userRoundKey{alignment.ID, "user-b", 1}] = storage.SignatureRecord{
		AlignmentID: alignment.ID,
		UserID:      "user-b",
		Round:       1,
		ContentHash: "abc",
		SignedAt:    fixedNow,
	}

	_, err := h.service.SaveDraft(ctx, AnswersInput{
		AlignmentID: alignment.ID,
		UserID:      "user-a",
		Round:       1,
		Answers:     completeAnswers("x"),
	})
	if got := codeOf(err); got != apperrors.CodeAlignmentRoundFrozen {
		t.Errorf("frozen code = %q, want %q", got, apperrors.CodeAlignmentRoundFrozen)
	}
}

func TestSubmitResponse(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	ctx := context.Background()
	alignment := openAlignment(t, h)

	if _, err := h.service.SaveDraft(ctx, AnswersInput{
		AlignmentID: alignment.ID,
		UserID:      "user-a",
		Round:       1,
		Answers:     completeAnswers("losing creative control"),
	}); err != nil {
		t.Fatalf("SaveDraft: %v", err)
	}

	submitted, err := h.service.SubmitResponse(ctx, alignment.ID, "user-a", 1)
	if err != nil {
		t.Fatalf("SubmitResponse: %v", err)
	}
	if submitted.SubmittedAt == nil {
		t.Fatal("submitted response missing timestamp")
	}
	if got := h.notifier.count(domain.EventResponseSubmitted); got != 1 {
		t.Errorf("response_submitted events = %d, want 1", got)
	}

	// Resubmitting is an idempotent read, not a second submission.
	h.clock.Advance(time.Minute)
	again, err := h.service.SubmitResponse(ctx, alignment.ID, "user-a", 1)
	if err != nil {
		t.Fatalf("SubmitResponse again: %v", err)
	}
	if !again.SubmittedAt.Equal(*submitted.SubmittedAt) {
		t.Errorf("submitted at moved: %v -> %v", submitted.SubmittedAt, again.SubmittedAt)
	}
	if got := h.notifier.count(domain.EventResponseSubmitted); got != 1 {
		t.Errorf("response_submitted events after resubmit = %d, want 1", got)
	}

	// The submitted row is closed to drafting.
	_, err = h.service.SaveDraft(ctx, AnswersInput{
		AlignmentID: alignment.ID,
		UserID:      "user-a",
		Round:       1,
		Answers:     completeAnswers("changed my mind"),
	})
	if got := codeOf(err); got != apperrors.CodeResponseAlreadySubmitted {
		t.Errorf("draft after submit code = %q, want %q", got, apperrors.CodeResponseAlreadySubmitted)
	}
}

func TestSubmitResponseRejects(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	ctx := context.Background()
	alignment := openAlignment(t, h)

	// Submitting without a draft has nothing to gate on.
	_, err := h.service.SubmitResponse(ctx, alignment.ID, "user-a", 1)
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("no draft error = %v, want %v", err, storage.ErrNotFound)
	}

	// An incomplete draft cannot pass the submission gate.
	answers := completeAnswers("x")
	delete(answers, "pf-dealbreaker")
	if _, err := h.service.SaveDraft(ctx, AnswersInput{
		AlignmentID: alignment.ID,
		UserID:      "user-a",
		Round:       1,
		Answers:     answers,
	}); err != nil {
		t.Fatalf("SaveDraft: %v", err)
	}
	_, err = h.service.SubmitResponse(ctx, alignment.ID, "user-a", 1)
	if got := codeOf(err); got != apperrors.CodeAnswerMissingRequired {
		t.Errorf("incomplete code = %q, want %q", got, apperrors.CodeAnswerMissingRequired)
	}
}

func TestGetOwnResponse(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	ctx := context.Background()
	alignment := openAlignment(t, h)

	if _, err := h.service.SaveDraft(ctx, AnswersInput{
		AlignmentID: alignment.ID,
		UserID:      "user-b",
		Round:       1,
		Answers:     completeAnswers("unbounded working hours"),
	}); err != nil {
		t.Fatalf("SaveDraft: %v", err)
	}

	response, err := h.service.GetOwnResponse(ctx, alignment.ID, "user-b", 1)
	if err != nil {
		t.Fatalf("GetOwnResponse: %v", err)
	}
	if response.UserID != "user-b" || len(response.Answers) != 6 {
		t.Errorf("response = user %q with %d answers, want user-b with 6", response.UserID, len(response.Answers))
	}

	_, err = h.service.GetOwnResponse(ctx, alignment.ID, "user-a", 1)
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("missing response error = %v, want %v", err, storage.ErrNotFound)
	}

	_, err = h.service.GetOwnResponse(ctx, alignment.ID, "user-b", 0)
	if !errors.Is(err, domain.ErrInvalidRound) {
		t.Errorf("round error = %v, want %v", err, domain.ErrInvalidRound)
	}
}

func TestBarrierSatisfied(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	ctx := context.Background()
	alignment := openAlignment(t, h)

	assertBarrier := func(want bool) {
		t.Helper()
		satisfied, err := h.service.BarrierSatisfied(ctx, alignment.ID, 1)
		if err != nil {
			t.Fatalf("BarrierSatisfied: %v", err)
		}
		if satisfied != want {
			t.Errorf("barrier = %v, want %v", satisfied, want)
		}
	}

	assertBarrier(false)

	if _, err := h.service.SaveDraft(ctx, AnswersInput{
		AlignmentID: alignment.ID,
		UserID:      "user-a",
		Round:       1,
		Answers:     completeAnswers("losing creative control"),
	}); err != nil {
		t.Fatalf("SaveDraft a: %v", err)
	}
	if _, err := h.service.SubmitResponse(ctx, alignment.ID, "user-a", 1); err != nil {
		t.Fatalf("SubmitResponse a: %v", err)
	}
	assertBarrier(false)

	if _, err := h.service.SaveDraft(ctx, AnswersInput{
		AlignmentID: alignment.ID,
		UserID:      "user-b",
		Round:       1,
		Answers:     completeAnswers("unbounded working hours"),
	}); err != nil {
		t.Fatalf("SaveDraft b: %v", err)
	}
	if _, err := h.service.SubmitResponse(ctx, alignment.ID, "user-b", 1); err != nil {
		t.Fatalf("SubmitResponse b: %v", err)
	}
	assertBarrier(true)
}
