package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/concordhq/concord/internal/platform/id"
)

// Alignment represents one two-party agreement session.
type Alignment struct {
	ID          string
	TemplateID  string
	Status      Status
	Round       int
	CreatedAt   time.Time
	UpdatedAt   time.Time
	CompletedAt *time.Time
	StalledAt   *time.Time
}

// CreateAlignmentInput describes the metadata needed to open an alignment.
type CreateAlignmentInput struct {
	TemplateID string
}

// CreateAlignment creates a draft alignment at round 1 with a generated
// ID and timestamps.
func CreateAlignment(input CreateAlignmentInput, now func() time.Time, idGenerator func() (string, error)) (Alignment, error) {
	if now == nil {
		now = time.Now
	}
	if idGenerator == nil {
		idGenerator = id.NewID
	}

	input.TemplateID = strings.TrimSpace(input.TemplateID)
	if input.TemplateID == "" {
		return Alignment{}, ErrEmptyTemplateID
	}

	alignmentID, err := idGenerator()
	if err != nil {
		return Alignment{}, fmt.Errorf("generate alignment id: %w", err)
	}

	createdAt := now().UTC()
	return Alignment{
		ID:         alignmentID,
		TemplateID: input.TemplateID,
		Status:     StatusDraft,
		Round:      1,
		CreatedAt:  createdAt,
		UpdatedAt:  createdAt,
	}, nil
}

// ValidateRound rejects non-positive round numbers.
func ValidateRound(round int) error {
	if round < 1 {
		return ErrInvalidRound
	}
	return nil
}
