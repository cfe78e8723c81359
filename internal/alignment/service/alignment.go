package service

import (
	"context"
	"strings"

	"github.com/concordhq/concord/internal/alignment/domain"
	"github.com/concordhq/concord/internal/alignment/storage"
)

const (
	defaultListPageSize = 50
	maxListPageSize     = 200
)

// CreateAlignmentInput describes an alignment opening request. An empty
// UserID asks the server to mint an opaque identity for the owner.
type CreateAlignmentInput struct {
	TemplateID  string
	DisplayName string
	UserID      string
}

// CreateAlignmentResult carries the opened alignment, the owner's seat,
// and the owner's access grant.
type CreateAlignmentResult struct {
	Alignment   storage.AlignmentRecord
	Participant storage.ParticipantRecord
	Grant       string
}

// CreateAlignment opens a draft alignment at round 1 with the caller as
// owner. The partner seat stays empty until an invite is redeemed.
func (s *Service) CreateAlignment(ctx context.Context, input CreateAlignmentInput) (CreateAlignmentResult, error) {
	if s == nil || s.store == nil {
		return CreateAlignmentResult{}, ErrStoreNotConfigured
	}

	displayName := strings.TrimSpace(input.DisplayName)
	if displayName == "" {
		return CreateAlignmentResult{}, domain.ErrEmptyDisplayName
	}

	// Resolving the template up front rejects unknown ids before any row
	// is written.
	if _, err := s.ResolveTemplate(ctx, input.TemplateID); err != nil {
		return CreateAlignmentResult{}, err
	}

	alignment, err := domain.CreateAlignment(domain.CreateAlignmentInput{
		TemplateID: input.TemplateID,
	}, s.clock, s.newID)
	if err != nil {
		return CreateAlignmentResult{}, err
	}

	userID, err := s.resolveUserID(input.UserID)
	if err != nil {
		return CreateAlignmentResult{}, err
	}
	owner, err := domain.NewParticipant(alignment.ID, userID, domain.RoleOwner, displayName, s.clock)
	if err != nil {
		return CreateAlignmentResult{}, err
	}

	record := storage.AlignmentRecord{
		ID:         alignment.ID,
		TemplateID: alignment.TemplateID,
		Status:     alignment.Status,
		Round:      alignment.Round,
		CreatedAt:  alignment.CreatedAt,
		UpdatedAt:  alignment.UpdatedAt,
	}
	if err := s.store.PutAlignment(ctx, record); err != nil {
		return CreateAlignmentResult{}, err
	}

	seat := storage.ParticipantRecord{
		AlignmentID: owner.AlignmentID,
		UserID:      owner.UserID,
		Role:        owner.Role,
		DisplayName: owner.DisplayName,
		CreatedAt:   owner.CreatedAt,
	}
	if err := s.store.AddParticipant(ctx, seat); err != nil {
		return CreateAlignmentResult{}, err
	}

	grant, err := s.mintGrant(owner.UserID, alignment.ID, domain.RoleOwner)
	if err != nil {
		return CreateAlignmentResult{}, err
	}

	s.publish(ctx, alignment.ID, domain.EventParticipantJoined, alignment.Round, alignment.Status)

	return CreateAlignmentResult{
		Alignment:   record,
		Participant: seat,
		Grant:       grant,
	}, nil
}

// AlignmentView pairs an alignment with its seats. Display names are
// shared context between the two participants; answers never are.
type AlignmentView struct {
	Alignment    storage.AlignmentRecord
	Participants []storage.ParticipantRecord
}

// GetAlignment fetches one alignment for an enrolled participant.
func (s *Service) GetAlignment(ctx context.Context, alignmentID, userID string) (AlignmentView, error) {
	alignment, err := s.loadAlignment(ctx, alignmentID)
	if err != nil {
		return AlignmentView{}, err
	}
	if _, err := s.requireParticipant(ctx, alignment.ID, userID); err != nil {
		return AlignmentView{}, err
	}
	participants, err := s.store.ListParticipants(ctx, alignment.ID)
	if err != nil {
		return AlignmentView{}, err
	}
	return AlignmentView{Alignment: alignment, Participants: participants}, nil
}

// ListAlignments pages through the caller's alignments, newest first.
// The filter clause arrives pre-translated from the transport layer and
// only ever references alignment columns.
func (s *Service) ListAlignments(ctx context.Context, req storage.ListAlignmentsRequest) (storage.AlignmentPage, error) {
	if s == nil || s.store == nil {
		return storage.AlignmentPage{}, ErrStoreNotConfigured
	}
	req.UserID = strings.TrimSpace(req.UserID)
	if req.UserID == "" {
		return storage.AlignmentPage{}, domain.ErrEmptyUserID
	}
	switch {
	case req.PageSize <= 0:
		req.PageSize = defaultListPageSize
	case req.PageSize > maxListPageSize:
		req.PageSize = maxListPageSize
	}
	req.PageToken = strings.TrimSpace(req.PageToken)
	return s.store.ListAlignmentsByUser(ctx, req)
}
