package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/concordhq/concord/internal/alignment/domain"
	"github.com/concordhq/concord/internal/alignment/storage"
	apperrors "github.com/concordhq/concord/internal/platform/errors"
)

// SeedBuiltinTemplates upserts the built-in question sets. Servers call
// this once at startup so a fresh database can open alignments
// immediately.
func (s *Service) SeedBuiltinTemplates(ctx context.Context) error {
	if s == nil || s.store == nil {
		return ErrStoreNotConfigured
	}
	now := s.nowUTC()
	for _, tpl := range domain.BuiltinTemplates() {
		questions, err := json.Marshal(tpl.Questions)
		if err != nil {
			return fmt.Errorf("seed template %s: %w", tpl.ID, err)
		}
		record := storage.TemplateRecord{
			ID:            tpl.ID,
			Name:          tpl.Name,
			QuestionsJSON: string(questions),
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := s.store.PutTemplate(ctx, record); err != nil {
			return fmt.Errorf("seed template %s: %w", tpl.ID, err)
		}
	}
	return nil
}

// ResolveTemplate returns a template by id, serving repeat lookups from
// the in-process cache until its TTL lapses. Templates are immutable
// once an alignment references them, so a stale cache entry is at worst
// a delayed catalog addition.
func (s *Service) ResolveTemplate(ctx context.Context, templateID string) (domain.Template, error) {
	if s == nil || s.store == nil {
		return domain.Template{}, ErrStoreNotConfigured
	}
	templateID = strings.TrimSpace(templateID)
	if templateID == "" {
		return domain.Template{}, domain.ErrEmptyTemplateID
	}
	if tpl, ok := s.templates.Get(templateID); ok {
		return tpl, nil
	}

	record, err := s.store.GetTemplate(ctx, templateID)
	if err != nil {
		return domain.Template{}, err
	}
	var questions []domain.Question
	if err := json.Unmarshal([]byte(record.QuestionsJSON), &questions); err != nil {
		return domain.Template{}, apperrors.Wrap(apperrors.CodeStorageFailure, "decode stored template questions", err)
	}
	tpl := domain.Template{
		ID:        record.ID,
		Name:      record.Name,
		Questions: questions,
	}
	s.templates.Set(templateID, tpl)
	return tpl, nil
}

// ListTemplates returns the full template catalog.
func (s *Service) ListTemplates(ctx context.Context) ([]domain.Template, error) {
	if s == nil || s.store == nil {
		return nil, ErrStoreNotConfigured
	}
	records, err := s.store.ListTemplates(ctx)
	if err != nil {
		return nil, err
	}
	templates := make([]domain.Template, 0, len(records))
	for _, record := range records {
		var questions []domain.Question
		if err := json.Unmarshal([]byte(record.QuestionsJSON), &questions); err != nil {
			return nil, apperrors.Wrap(apperrors.CodeStorageFailure, "decode stored template questions", err)
		}
		templates = append(templates, domain.Template{
			ID:        record.ID,
			Name:      record.Name,
			Questions: questions,
		})
	}
	return templates, nil
}

// TemplateForAlignment resolves the question set behind an alignment
// for an enrolled participant.
func (s *Service) TemplateForAlignment(ctx context.Context, alignmentID, userID string) (domain.Template, error) {
	alignment, err := s.loadAlignment(ctx, alignmentID)
	if err != nil {
		return domain.Template{}, err
	}
	if _, err := s.requireParticipant(ctx, alignment.ID, userID); err != nil {
		return domain.Template{}, err
	}
	return s.ResolveTemplate(ctx, alignment.TemplateID)
}
