package domain

import "time"

// Response holds one participant's answer set for one round. Draft
// saves overwrite Answers; submission stamps SubmittedAt exactly once
// and is never reversed.
type Response struct {
	AlignmentID string
	UserID      string
	Round       int
	Answers     map[string]Answer
	CreatedAt   time.Time
	UpdatedAt   time.Time
	SubmittedAt *time.Time
}

// Submitted reports whether the response passed the one-way submit gate.
func (r Response) Submitted() bool {
	return r.SubmittedAt != nil
}
