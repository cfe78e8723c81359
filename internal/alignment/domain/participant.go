package domain

import (
	"strings"
	"time"
)

// MaxParticipants is the hard cap on enrolled parties per alignment.
const MaxParticipants = 2

// Role describes how a participant joined the alignment.
type Role string

const (
	RoleUnspecified Role = ""
	// RoleOwner created the alignment and controls its invites.
	RoleOwner Role = "owner"
	// RolePartner joined through an invite.
	RolePartner Role = "partner"
)

// ParseRole maps a wire value to a Role.
func ParseRole(value string) (Role, error) {
	switch Role(value) {
	case RoleOwner, RolePartner:
		return Role(value), nil
	default:
		return RoleUnspecified, ErrInvalidRole
	}
}

// Participant binds one user to one alignment seat.
type Participant struct {
	AlignmentID string
	UserID      string
	Role        Role
	DisplayName string
	CreatedAt   time.Time
}

// NewParticipant validates and builds a participant row.
func NewParticipant(alignmentID, userID string, role Role, displayName string, now func() time.Time) (Participant, error) {
	if now == nil {
		now = time.Now
	}
	alignmentID = strings.TrimSpace(alignmentID)
	userID = strings.TrimSpace(userID)
	displayName = strings.TrimSpace(displayName)

	if alignmentID == "" {
		return Participant{}, ErrEmptyAlignmentID
	}
	if userID == "" {
		return Participant{}, ErrEmptyUserID
	}
	if displayName == "" {
		return Participant{}, ErrEmptyDisplayName
	}
	if role != RoleOwner && role != RolePartner {
		return Participant{}, ErrInvalidRole
	}

	return Participant{
		AlignmentID: alignmentID,
		UserID:      userID,
		Role:        role,
		DisplayName: displayName,
		CreatedAt:   now().UTC(),
	}, nil
}
