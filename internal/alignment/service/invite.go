package service

import (
	"context"
	"errors"
	"strings"

	"github.com/concordhq/concord/internal/alignment/domain"
	"github.com/concordhq/concord/internal/alignment/invite"
	"github.com/concordhq/concord/internal/alignment/storage"
	apperrors "github.com/concordhq/concord/internal/platform/errors"
)

// CreateInviteResult pairs the stored invite with the raw token. The
// token exists only in this result; persistence keeps the hash.
type CreateInviteResult struct {
	Invite storage.InviteRecord
	Token  string
}

// CreateInvite mints an admission token for the partner seat. Only the
// owner can invite, and only while the alignment is open.
func (s *Service) CreateInvite(ctx context.Context, alignmentID, userID string) (CreateInviteResult, error) {
	alignment, err := s.loadAlignment(ctx, alignmentID)
	if err != nil {
		return CreateInviteResult{}, err
	}
	owner, err := s.requireOwner(ctx, alignment, userID)
	if err != nil {
		return CreateInviteResult{}, err
	}
	if err := requireOpen(alignment); err != nil {
		return CreateInviteResult{}, err
	}

	created, token, err := invite.CreateInvite(invite.CreateInviteInput{
		AlignmentID:     alignment.ID,
		CreatedByUserID: owner.UserID,
		TTL:             s.inviteTTL,
		MaxUses:         s.inviteMaxUses,
	}, s.clock, s.newID)
	if err != nil {
		return CreateInviteResult{}, err
	}

	record := inviteRecord(created)
	if err := s.store.PutInvite(ctx, record); err != nil {
		return CreateInviteResult{}, err
	}
	return CreateInviteResult{Invite: record, Token: token}, nil
}

// RedeemInviteInput carries an admission attempt. An empty UserID asks
// the server to mint an opaque identity; stable external ids make
// redemption idempotent per user.
type RedeemInviteInput struct {
	Token       string
	DisplayName string
	UserID      string
}

// RedeemInviteResult reports the joined alignment and the caller's seat.
type RedeemInviteResult struct {
	Alignment       storage.AlignmentRecord
	Participant     storage.ParticipantRecord
	Grant           string
	AlreadyEnrolled bool
}

// RedeemInvite admits a user through an invite token. A user already
// holding a seat gets a fresh grant without consuming a use, whatever
// the invite's state. Fresh admission burns one use, fills the partner
// seat, and activates the alignment.
func (s *Service) RedeemInvite(ctx context.Context, input RedeemInviteInput) (RedeemInviteResult, error) {
	if s == nil || s.store == nil {
		return RedeemInviteResult{}, ErrStoreNotConfigured
	}
	token := strings.TrimSpace(input.Token)
	if token == "" {
		return RedeemInviteResult{}, invite.ErrEmptyToken
	}
	displayName := strings.TrimSpace(input.DisplayName)
	if displayName == "" {
		return RedeemInviteResult{}, domain.ErrEmptyDisplayName
	}

	tokenHash := invite.HashToken(token)
	inviteRow, err := s.store.GetInviteByTokenHash(ctx, tokenHash)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return RedeemInviteResult{}, apperrors.New(apperrors.CodeInviteNotFound, "invite not found")
		}
		return RedeemInviteResult{}, err
	}
	alignment, err := s.loadAlignment(ctx, inviteRow.AlignmentID)
	if err != nil {
		return RedeemInviteResult{}, err
	}
	userID, err := s.resolveUserID(input.UserID)
	if err != nil {
		return RedeemInviteResult{}, err
	}

	// An enrolled user re-presenting the token re-enters their seat; the
	// invite's state no longer matters to them.
	if seat, err := s.store.GetParticipant(ctx, alignment.ID, userID); err == nil {
		grant, err := s.mintGrant(seat.UserID, alignment.ID, seat.Role)
		if err != nil {
			return RedeemInviteResult{}, err
		}
		return RedeemInviteResult{
			Alignment:       alignment,
			Participant:     seat,
			Grant:           grant,
			AlreadyEnrolled: true,
		}, nil
	} else if !errors.Is(err, storage.ErrNotFound) {
		return RedeemInviteResult{}, err
	}

	if err := requireOpen(alignment); err != nil {
		return RedeemInviteResult{}, err
	}
	if err := invite.Redeemable(inviteFromRecord(inviteRow), s.nowUTC()); err != nil {
		return RedeemInviteResult{}, err
	}

	partner, err := domain.NewParticipant(alignment.ID, userID, domain.RolePartner, displayName, s.clock)
	if err != nil {
		return RedeemInviteResult{}, err
	}
	seat := storage.ParticipantRecord{
		AlignmentID: partner.AlignmentID,
		UserID:      partner.UserID,
		Role:        partner.Role,
		DisplayName: partner.DisplayName,
		CreatedAt:   partner.CreatedAt,
	}
	// The guarded insert is the real admission gate: a third distinct
	// user loses here regardless of interleaving.
	if err := s.store.AddParticipant(ctx, seat); err != nil {
		return RedeemInviteResult{}, err
	}

	// Burn a use only after enrollment succeeds. A concurrent duplicate
	// redemption by the same user can bump twice and then lose the seat
	// race; the enrolled check above turns the retry into a success.
	if _, err := s.store.RedeemInviteByTokenHash(ctx, tokenHash, s.nowUTC()); err != nil {
		return RedeemInviteResult{}, err
	}

	participants, err := s.store.ListParticipants(ctx, alignment.ID)
	if err != nil {
		return RedeemInviteResult{}, err
	}
	if len(participants) == domain.MaxParticipants && alignment.Status == domain.StatusDraft {
		if err := s.transition(ctx, &alignment, domain.StatusActive, domain.EventStatusChanged); err != nil {
			return RedeemInviteResult{}, err
		}
	}
	s.publish(ctx, alignment.ID, domain.EventParticipantJoined, alignment.Round, alignment.Status)

	grant, err := s.mintGrant(seat.UserID, alignment.ID, seat.Role)
	if err != nil {
		return RedeemInviteResult{}, err
	}
	return RedeemInviteResult{
		Alignment:   alignment,
		Participant: seat,
		Grant:       grant,
	}, nil
}

// InvalidateInvite tombstones an invite so it can never admit again.
// Owner-only; invalidating twice is an idempotent success.
func (s *Service) InvalidateInvite(ctx context.Context, alignmentID, inviteID, userID string) (storage.InviteRecord, error) {
	alignment, err := s.loadAlignment(ctx, alignmentID)
	if err != nil {
		return storage.InviteRecord{}, err
	}
	if _, err := s.requireOwner(ctx, alignment, userID); err != nil {
		return storage.InviteRecord{}, err
	}

	inviteID = strings.TrimSpace(inviteID)
	inviteRow, err := s.store.GetInvite(ctx, inviteID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return storage.InviteRecord{}, apperrors.New(apperrors.CodeInviteNotFound, "invite not found")
		}
		return storage.InviteRecord{}, err
	}
	// An invite id from another alignment is indistinguishable from a
	// missing one.
	if inviteRow.AlignmentID != alignment.ID {
		return storage.InviteRecord{}, apperrors.New(apperrors.CodeInviteNotFound, "invite not found")
	}

	if err := s.store.InvalidateInvite(ctx, inviteRow.ID, s.nowUTC()); err != nil {
		return storage.InviteRecord{}, err
	}
	return s.store.GetInvite(ctx, inviteRow.ID)
}

// ListInvites returns an alignment's invites, newest first. Owner-only:
// token hashes and quotas are invite management, not shared context.
func (s *Service) ListInvites(ctx context.Context, alignmentID, userID string) ([]storage.InviteRecord, error) {
	alignment, err := s.loadAlignment(ctx, alignmentID)
	if err != nil {
		return nil, err
	}
	if _, err := s.requireOwner(ctx, alignment, userID); err != nil {
		return nil, err
	}
	return s.store.ListInvitesByAlignment(ctx, alignment.ID)
}

// requireOwner resolves the caller's seat and rejects non-owners.
func (s *Service) requireOwner(ctx context.Context, alignment storage.AlignmentRecord, userID string) (storage.ParticipantRecord, error) {
	participant, err := s.requireParticipant(ctx, alignment.ID, userID)
	if err != nil {
		return storage.ParticipantRecord{}, err
	}
	if participant.Role != domain.RoleOwner {
		return storage.ParticipantRecord{}, apperrors.WithMetadata(apperrors.CodePermissionDenied,
			"only the owner can manage invites", map[string]string{
				"AlignmentID": alignment.ID,
			})
	}
	return participant, nil
}

func inviteRecord(inv invite.Invite) storage.InviteRecord {
	return storage.InviteRecord{
		ID:              inv.ID,
		AlignmentID:     inv.AlignmentID,
		TokenHash:       inv.TokenHash,
		CreatedByUserID: inv.CreatedByUserID,
		ExpiresAt:       inv.ExpiresAt,
		MaxUses:         inv.MaxUses,
		UseCount:        inv.UseCount,
		InvalidatedAt:   inv.InvalidatedAt,
		CreatedAt:       inv.CreatedAt,
		UpdatedAt:       inv.UpdatedAt,
	}
}

func inviteFromRecord(record storage.InviteRecord) invite.Invite {
	return invite.Invite{
		ID:              record.ID,
		AlignmentID:     record.AlignmentID,
		TokenHash:       record.TokenHash,
		CreatedByUserID: record.CreatedByUserID,
		ExpiresAt:       record.ExpiresAt,
		MaxUses:         record.MaxUses,
		UseCount:        record.UseCount,
		InvalidatedAt:   record.InvalidatedAt,
		CreatedAt:       record.CreatedAt,
		UpdatedAt:       record.UpdatedAt,
	}
}
