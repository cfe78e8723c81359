package httpapi

import (
	"time"

	"github.com/concordhq/concord/internal/alignment/domain"
	"github.com/concordhq/concord/internal/alignment/notify"
	"github.com/concordhq/concord/internal/alignment/storage"
)

// Wire payloads mirror the storage records with camelCase keys and
// RFC3339 UTC timestamps. Request bodies use the snake_case field
// names the routes document; nested answer and resolution values keep
// their canonical domain encoding.

type alignmentPayload struct {
	ID          string `json:"id"`
	TemplateID  string `json:"templateId"`
	Status      string `json:"status"`
	Round       int    `json:"round"`
	CreatedAt   string `json:"createdAt"`
	UpdatedAt   string `json:"updatedAt"`
	CompletedAt string `json:"completedAt,omitempty"`
	StalledAt   string `json:"stalledAt,omitempty"`
}

func alignmentFromRecord(record storage.AlignmentRecord) alignmentPayload {
	return alignmentPayload{
		ID:          record.ID,
		TemplateID:  record.TemplateID,
		Status:      string(record.Status),
		Round:       record.Round,
		CreatedAt:   formatTime(record.CreatedAt),
		UpdatedAt:   formatTime(record.UpdatedAt),
		CompletedAt: formatTimePtr(record.CompletedAt),
		StalledAt:   formatTimePtr(record.StalledAt),
	}
}

type participantPayload struct {
	AlignmentID string `json:"alignmentId"`
	UserID      string `json:"userId"`
	Role        string `json:"role"`
	DisplayName string `json:"displayName"`
	JoinedAt    string `json:"joinedAt"`
}

func participantFromRecord(record storage.ParticipantRecord) participantPayload {
	return participantPayload{
		AlignmentID: record.AlignmentID,
		UserID:      record.UserID,
		Role:        string(record.Role),
		DisplayName: record.DisplayName,
		JoinedAt:    formatTime(record.CreatedAt),
	}
}

func participantsFromRecords(records []storage.ParticipantRecord) []participantPayload {
	payloads := make([]participantPayload, 0, len(records))
	for _, record := range records {
		payloads = append(payloads, participantFromRecord(record))
	}
	return payloads
}

type analysisPayload struct {
	ID          string        `json:"id"`
	AlignmentID string        `json:"alignmentId"`
	Round       int           `json:"round"`
	Report      domain.Report `json:"report"`
	Engine      string        `json:"engine"`
	CreatedAt   string        `json:"createdAt"`
}

func analysisFromDomain(analysis domain.Analysis) analysisPayload {
	return analysisPayload{
		ID:          analysis.ID,
		AlignmentID: analysis.AlignmentID,
		Round:       analysis.Round,
		Report:      analysis.Report,
		Engine:      string(analysis.Engine),
		CreatedAt:   formatTime(analysis.CreatedAt),
	}
}

type responsePayload struct {
	AlignmentID string                   `json:"alignmentId"`
	UserID      string                   `json:"userId"`
	Round       int                      `json:"round"`
	Answers     map[string]domain.Answer `json:"answers"`
	CreatedAt   string                   `json:"createdAt"`
	UpdatedAt   string                   `json:"updatedAt"`
	SubmittedAt string                   `json:"submittedAt,omitempty"`
}

func responseFromDomain(response domain.Response) responsePayload {
	return responsePayload{
		AlignmentID: response.AlignmentID,
		UserID:      response.UserID,
		Round:       response.Round,
		Answers:     response.Answers,
		CreatedAt:   formatTime(response.CreatedAt),
		UpdatedAt:   formatTime(response.UpdatedAt),
		SubmittedAt: formatTimePtr(response.SubmittedAt),
	}
}

type resolutionSetPayload struct {
	AlignmentID string                  `json:"alignmentId"`
	UserID      string                  `json:"userId"`
	Round       int                     `json:"round"`
	Items       []domain.ResolutionItem `json:"items"`
	CreatedAt   string                  `json:"createdAt"`
	UpdatedAt   string                  `json:"updatedAt"`
}

func resolutionSetFromDomain(set domain.ResolutionSet) resolutionSetPayload {
	return resolutionSetPayload{
		AlignmentID: set.AlignmentID,
		UserID:      set.UserID,
		Round:       set.Round,
		Items:       set.Items,
		CreatedAt:   formatTime(set.CreatedAt),
		UpdatedAt:   formatTime(set.UpdatedAt),
	}
}

// signaturePayload exposes the verifiable identity of a signature. The
// MAC stays server-side; clients cannot check it without the root key.
type signaturePayload struct {
	AlignmentID string `json:"alignmentId"`
	UserID      string `json:"userId"`
	Round       int    `json:"round"`
	ContentHash string `json:"contentHash"`
	KeyID       string `json:"keyId"`
	SignedAt    string `json:"signedAt"`
}

func signatureFromRecord(record storage.SignatureRecord) signaturePayload {
	return signaturePayload{
		AlignmentID: record.AlignmentID,
		UserID:      record.UserID,
		Round:       record.Round,
		ContentHash: record.ContentHash,
		KeyID:       record.KeyID,
		SignedAt:    formatTime(record.SignedAt),
	}
}

func signaturesFromRecords(records []storage.SignatureRecord) []signaturePayload {
	payloads := make([]signaturePayload, 0, len(records))
	for _, record := range records {
		payloads = append(payloads, signatureFromRecord(record))
	}
	return payloads
}

type invitePayload struct {
	ID            string `json:"id"`
	AlignmentID   string `json:"alignmentId"`
	ExpiresAt     string `json:"expiresAt"`
	MaxUses       int    `json:"maxUses"`
	UseCount      int    `json:"useCount"`
	InvalidatedAt string `json:"invalidatedAt,omitempty"`
	CreatedAt     string `json:"createdAt"`
}

func inviteFromRecord(record storage.InviteRecord) invitePayload {
	return invitePayload{
		ID:            record.ID,
		AlignmentID:   record.AlignmentID,
		ExpiresAt:     formatTime(record.ExpiresAt),
		MaxUses:       record.MaxUses,
		UseCount:      record.UseCount,
		InvalidatedAt: formatTimePtr(record.InvalidatedAt),
		CreatedAt:     formatTime(record.CreatedAt),
	}
}

func eventsFromRecords(records []storage.EventRecord) []notify.EventPayload {
	payloads := make([]notify.EventPayload, 0, len(records))
	for _, record := range records {
		payloads = append(payloads, notify.PayloadFromRecord(record))
	}
	return payloads
}

func formatTime(value time.Time) string {
	return value.UTC().Format(time.RFC3339)
}

func formatTimePtr(value *time.Time) string {
	if value == nil {
		return ""
	}
	return formatTime(*value)
}
