package domain

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/concordhq/concord/internal/alignment/domain/encoding"
	apperrors "github.com/concordhq/concord/internal/platform/errors"
)

// SnapshotResponse is one participant's final answer set as it appears
// in the signed content.
type SnapshotResponse struct {
	UserID  string            `json:"userId"`
	Answers map[string]Answer `json:"answers"`
}

// Snapshot is the canonical content both participants sign. Its JSON
// form is deterministic: responses are ordered by user id and the
// encoding sorts every object key.
type Snapshot struct {
	AlignmentID string             `json:"alignmentId"`
	Round       int                `json:"round"`
	Questions   []Question         `json:"questions"`
	Responses   []SnapshotResponse `json:"responses"`
	Analysis    Report             `json:"analysis"`
}

// BuildSnapshot assembles the signable content for a zero-conflict
// round. The server always rebuilds it from stored rows; client-supplied
// snapshots or hashes are never trusted.
func BuildSnapshot(alignment Alignment, template Template, responses []Response, analysis Analysis) (Snapshot, error) {
	if analysis.AlignmentID != alignment.ID {
		return Snapshot{}, fmt.Errorf("analysis belongs to alignment %s, not %s", analysis.AlignmentID, alignment.ID)
	}
	if analysis.Round != alignment.Round {
		return Snapshot{}, fmt.Errorf("analysis round %d does not match alignment round %d", analysis.Round, alignment.Round)
	}
	if analysis.HasConflicts() {
		return Snapshot{}, apperrors.WithMetadata(apperrors.CodeAnalysisConflictsUnresolved,
			"analysis still reports conflicts", map[string]string{
				"AlignmentID": alignment.ID,
				"Round":       strconv.Itoa(alignment.Round),
			})
	}
	if len(responses) != MaxParticipants {
		return Snapshot{}, fmt.Errorf("snapshot needs %d responses, got %d", MaxParticipants, len(responses))
	}

	entries := make([]SnapshotResponse, 0, len(responses))
	for _, response := range responses {
		if response.AlignmentID != alignment.ID {
			return Snapshot{}, fmt.Errorf("response belongs to alignment %s, not %s", response.AlignmentID, alignment.ID)
		}
		if response.Round != alignment.Round {
			return Snapshot{}, fmt.Errorf("response round %d does not match alignment round %d", response.Round, alignment.Round)
		}
		if !response.Submitted() {
			return Snapshot{}, fmt.Errorf("response by %s is not submitted", response.UserID)
		}
		entries = append(entries, SnapshotResponse{
			UserID:  response.UserID,
			Answers: response.Answers,
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].UserID < entries[j].UserID })

	return Snapshot{
		AlignmentID: alignment.ID,
		Round:       alignment.Round,
		Questions:   template.Questions,
		Responses:   entries,
		Analysis:    analysis.Report,
	}, nil
}

// CanonicalJSON returns the deterministic byte form of the snapshot.
func (s Snapshot) CanonicalJSON() ([]byte, error) {
	return encoding.CanonicalJSON(s)
}

// Hash returns the content hash participants sign.
func (s Snapshot) Hash() (string, error) {
	return encoding.ContentHash(s)
}
