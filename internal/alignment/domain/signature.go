package domain

import "time"

// Signature is one participant's recorded consent over a snapshot.
// Rows are immutable; a retry that hits the (alignment, user, round)
// uniqueness returns the stored row unchanged.
type Signature struct {
	AlignmentID  string
	UserID       string
	Round        int
	SnapshotJSON []byte
	ContentHash  string
	MAC          string
	KeyID        string
	SignedAt     time.Time
}
