package service

import (
	"context"

	"github.com/concordhq/concord/internal/alignment/storage"
)

// ListAlignmentEvents returns the alignment's event history after a
// sequence cursor, oldest first. Events are advisory; clients re-fetch
// authoritative state when one arrives.
func (s *Service) ListAlignmentEvents(ctx context.Context, alignmentID, userID string, afterSeq int64, limit int) ([]storage.EventRecord, error) {
	alignment, err := s.loadAlignment(ctx, alignmentID)
	if err != nil {
		return nil, err
	}
	if _, err := s.requireParticipant(ctx, alignment.ID, userID); err != nil {
		return nil, err
	}
	switch {
	case limit <= 0:
		limit = defaultListPageSize
	case limit > maxListPageSize:
		limit = maxListPageSize
	}
	return s.store.ListAlignmentEvents(ctx, alignment.ID, afterSeq, limit)
}
