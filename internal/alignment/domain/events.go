package domain

import "time"

// EventKind names a state change on an alignment.
type EventKind string

const (
	EventParticipantJoined    EventKind = "participant_joined"
	EventStatusChanged        EventKind = "status_changed"
	EventResponseSubmitted    EventKind = "response_submitted"
	EventAnalysisCompleted    EventKind = "analysis_completed"
	EventResolutionsSubmitted EventKind = "resolutions_submitted"
	EventRoundAdvanced        EventKind = "round_advanced"
	EventSignatureRecorded    EventKind = "signature_recorded"
	EventAlignmentCompleted   EventKind = "alignment_completed"
	EventAlignmentStalled     EventKind = "alignment_stalled"
)

// Event is an advisory notification that an alignment changed. Consumers
// treat it as a trigger to re-fetch authoritative state, not as state
// itself, and must tolerate duplicates.
type Event struct {
	Seq         int64
	AlignmentID string
	Kind        EventKind
	Round       int
	Status      Status
	CreatedAt   time.Time
}
