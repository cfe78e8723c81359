// Package invite provides admission token management for alignments.
// Raw tokens are handed out exactly once at creation; persistence and
// lookups only ever see the SHA-256 digest.
package invite

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/concordhq/concord/internal/platform/id"

	apperrors "github.com/concordhq/concord/internal/platform/errors"
)

var (
	// ErrEmptyAlignmentID indicates a missing alignment ID.
	ErrEmptyAlignmentID = apperrors.New(apperrors.CodeAlignmentEmptyID, "alignment id is required")
	// ErrEmptyCreatorID indicates a missing creating user ID.
	ErrEmptyCreatorID = apperrors.New(apperrors.CodeParticipantEmptyUserID, "creator user id is required")
	// ErrEmptyToken indicates a missing raw token.
	ErrEmptyToken = apperrors.New(apperrors.CodeInviteEmptyToken, "invite token is required")
)

const (
	// DefaultTTL is how long an invite stays redeemable when the creator
	// does not pick an expiry.
	DefaultTTL = 168 * time.Hour
	// DefaultMaxUses is the redemption quota when the creator does not
	// pick one. A two-party workflow needs a single admission.
	DefaultMaxUses = 1

	tokenBytes = 32
)

// Invite represents one admission token's state.
type Invite struct {
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

// CreateInviteInput describes the metadata needed to create an invite.
// Zero TTL and MaxUses fall back to the defaults.
type CreateInviteInput struct {
	AlignmentID     string
	CreatedByUserID string
	TTL             time.Duration
	MaxUses         int
}

// CreateInvite creates a new invite with a generated ID and fresh token.
// It returns the invite alongside the raw token; the token cannot be
// recovered afterwards.
func CreateInvite(input CreateInviteInput, now func() time.Time, idGenerator func() (string, error)) (Invite, string, error) {
	if now == nil {
		now = time.Now
	}
	if idGenerator == nil {
		idGenerator = id.NewID
	}

	normalized, err := NormalizeCreateInviteInput(input)
	if err != nil {
		return Invite{}, "", err
	}

	inviteID, err := idGenerator()
	if err != nil {
		return Invite{}, "", fmt.Errorf("generate invite id: %w", err)
	}
	token, err := NewToken()
	if err != nil {
		return Invite{}, "", err
	}

	createdAt := now().UTC()
	return Invite{
		ID:              inviteID,
		AlignmentID:     normalized.AlignmentID,
		TokenHash:       HashToken(token),
		CreatedByUserID: normalized.CreatedByUserID,
		ExpiresAt:       createdAt.Add(normalized.TTL),
		MaxUses:         normalized.MaxUses,
		UseCount:        0,
		CreatedAt:       createdAt,
		UpdatedAt:       createdAt,
	}, token, nil
}

// NormalizeCreateInviteInput trims and validates invite input metadata,
// filling in the TTL and quota defaults.
func NormalizeCreateInviteInput(input CreateInviteInput) (CreateInviteInput, error) {
	input.AlignmentID = strings.TrimSpace(input.AlignmentID)
	if input.AlignmentID == "" {
		return CreateInviteInput{}, ErrEmptyAlignmentID
	}
	input.CreatedByUserID = strings.TrimSpace(input.CreatedByUserID)
	if input.CreatedByUserID == "" {
		return CreateInviteInput{}, ErrEmptyCreatorID
	}
	if input.TTL <= 0 {
		input.TTL = DefaultTTL
	}
	if input.MaxUses <= 0 {
		input.MaxUses = DefaultMaxUses
	}
	return input, nil
}

// NewToken returns a high-entropy URL-safe admission token.
func NewToken() (string, error) {
	raw := make([]byte, tokenBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generate invite token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// HashToken returns the hex SHA-256 digest stored in place of the raw token.
func HashToken(token string) string {
	digest := sha256.Sum256([]byte(token))
	return hex.EncodeToString(digest[:])
}

// Redeemable reports whether the invite can still admit a user at the
// given time. Failures carry the precise invite error, checked in the
// same order the store classifies redemption losses.
func Redeemable(inv Invite, now time.Time) error {
	if inv.InvalidatedAt != nil {
		return apperrors.WithMetadata(apperrors.CodeInviteInvalidated,
			"invite has been invalidated", map[string]string{"InviteID": inv.ID})
	}
	if !inv.ExpiresAt.After(now.UTC()) {
		return apperrors.WithMetadata(apperrors.CodeInviteExpired,
			"invite has expired", map[string]string{"InviteID": inv.ID})
	}
	if inv.UseCount >= inv.MaxUses {
		return apperrors.WithMetadata(apperrors.CodeInviteExhausted,
			"invite has no uses left", map[string]string{"InviteID": inv.ID})
	}
	return nil
}
