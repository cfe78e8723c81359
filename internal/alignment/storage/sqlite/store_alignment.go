package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/concordhq/concord/internal/alignment/domain"
	"github.com/concordhq/concord/internal/alignment/storage"
	apperrors "github.com/concordhq/concord/internal/platform/errors"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// PutAlignment inserts or updates one alignment row.
func (s *Store) PutAlignment(ctx context.Context, record storage.AlignmentRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	normalized, err := normalizeAlignmentRecord(record)
	if err != nil {
		return err
	}

	var completedAt, stalledAt sql.NullInt64
	if normalized.CompletedAt != nil {
		completedAt = sql.NullInt64{Int64: toMillis(*normalized.CompletedAt), Valid: true}
	}
	if normalized.StalledAt != nil {
		stalledAt = sql.NullInt64{Int64: toMillis(*normalized.StalledAt), Valid: true}
	}

	_, err = s.sqlDB.ExecContext(ctx, `
	INSERT INTO alignments (
		id, template_id, status, round, created_at, updated_at, completed_at, stalled_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		template_id = excluded.template_id,
		status = excluded.status,
		round = excluded.round,
		updated_at = excluded.updated_at,
		completed_at = excluded.completed_at,
		stalled_at = excluded.stalled_at
	`,
		normalized.ID,
		normalized.TemplateID,
		string(normalized.Status),
		normalized.Round,
		toMillis(normalized.CreatedAt),
		toMillis(normalized.UpdatedAt),
		completedAt,
		stalledAt,
	)
	if err != nil {
		return fmt.Errorf("put alignment: %w", err)
	}
	return nil
}

// GetAlignment retrieves one alignment by id.
func (s *Store) GetAlignment(ctx context.Context, id string) (storage.AlignmentRecord, error) {
	if err := ctx.Err(); err != nil {
		return storage.AlignmentRecord{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.AlignmentRecord{}, fmt.Errorf("storage is not configured")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return storage.AlignmentRecord{}, fmt.Errorf("alignment id is required")
	}

	row := s.sqlDB.QueryRowContext(ctx, `
SELECT id, template_id, status, round, created_at, updated_at, completed_at, stalled_at
FROM alignments
WHERE id = ?
`, id)
	record, err := scanAlignment(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.AlignmentRecord{}, storage.ErrNotFound
		}
		return storage.AlignmentRecord{}, fmt.Errorf("get alignment: %w", err)
	}
	return record, nil
}

// ListAlignmentsByUser pages through one participant's alignments newest-first.
func (s *Store) ListAlignmentsByUser(ctx context.Context, req storage.ListAlignmentsRequest) (storage.AlignmentPage, error) {
	if err := ctx.Err(); err != nil {
		return storage.AlignmentPage{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.AlignmentPage{}, fmt.Errorf("storage is not configured")
	}
	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		return storage.AlignmentPage{}, fmt.Errorf("user id is required")
	}
	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	query := `
SELECT a.id, a.template_id, a.status, a.round, a.created_at, a.updated_at, a.completed_at, a.stalled_at
FROM alignments a
JOIN participants p ON p.alignment_id = a.id
WHERE p.user_id = ?`
	args := []any{userID}

	if clause := strings.TrimSpace(req.FilterClause); clause != "" {
		query += "\n  AND (" + clause + ")"
		args = append(args, req.FilterParams...)
	}

	if token := strings.TrimSpace(req.PageToken); token != "" {
		cursorCreatedAt, err := s.alignmentCreatedAtByID(ctx, userID, token)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return storage.AlignmentPage{}, apperrors.New(apperrors.CodeListPageTokenInvalid, "page token does not match a listed alignment")
			}
			return storage.AlignmentPage{}, err
		}
		query += "\n  AND (a.created_at < ? OR (a.created_at = ? AND a.id < ?))"
		args = append(args, toMillis(cursorCreatedAt), toMillis(cursorCreatedAt), token)
	}

	query += "\nORDER BY a.created_at DESC, a.id DESC\nLIMIT ?"
	args = append(args, pageSize+1)

	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return storage.AlignmentPage{}, fmt.Errorf("list alignments: %w", err)
	}
	defer rows.Close()

	page := storage.AlignmentPage{
		Alignments: make([]storage.AlignmentRecord, 0, pageSize),
	}
	for rows.Next() {
		record, scanErr := scanAlignment(rows.Scan)
		if scanErr != nil {
			return storage.AlignmentPage{}, fmt.Errorf("scan alignment row: %w", scanErr)
		}
		page.Alignments = append(page.Alignments, record)
	}
	if err := rows.Err(); err != nil {
		return storage.AlignmentPage{}, fmt.Errorf("iterate alignment rows: %w", err)
	}
	if len(page.Alignments) > pageSize {
		page.NextPageToken = page.Alignments[pageSize-1].ID
		page.Alignments = page.Alignments[:pageSize]
	}
	return page, nil
}

func (s *Store) alignmentCreatedAtByID(ctx context.Context, userID, alignmentID string) (time.Time, error) {
	row := s.sqlDB.QueryRowContext(ctx, `
SELECT a.created_at
FROM alignments a
JOIN participants p ON p.alignment_id = a.id
WHERE p.user_id = ? AND a.id = ?
`, userID, alignmentID)
	var createdAtMillis int64
	if err := row.Scan(&createdAtMillis); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return time.Time{}, storage.ErrNotFound
		}
		return time.Time{}, fmt.Errorf("lookup alignment cursor: %w", err)
	}
	return fromMillis(createdAtMillis), nil
}

// AddParticipant inserts one seat, holding the two-seat cap inside a
// single statement so concurrent joins cannot overfill the alignment.
func (s *Store) AddParticipant(ctx context.Context, record storage.ParticipantRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	normalized, err := normalizeParticipantRecord(record)
	if err != nil {
		return err
	}

	result, err := s.sqlDB.ExecContext(ctx, `
	INSERT INTO participants (alignment_id, user_id, role, display_name, created_at)
	SELECT ?, ?, ?, ?, ?
	WHERE (SELECT COUNT(1) FROM participants WHERE alignment_id = ?) < ?
	`,
		normalized.AlignmentID,
		normalized.UserID,
		string(normalized.Role),
		normalized.DisplayName,
		toMillis(normalized.CreatedAt),
		normalized.AlignmentID,
		domain.MaxParticipants,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			// The same user already holds this seat.
			return nil
		}
		return fmt.Errorf("add participant: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("add participant rows affected: %w", err)
	}
	if affected == 0 {
		if _, getErr := s.GetParticipant(ctx, normalized.AlignmentID, normalized.UserID); getErr == nil {
			return nil
		}
		return apperrors.WithMetadata(apperrors.CodeAlignmentTooManyParticipants,
			"alignment already has two participants", map[string]string{
				"AlignmentID": normalized.AlignmentID,
			})
	}
	return nil
}

// GetParticipant retrieves one seat.
func (s *Store) GetParticipant(ctx context.Context, alignmentID, userID string) (storage.ParticipantRecord, error) {
	if err := ctx.Err(); err != nil {
		return storage.ParticipantRecord{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.ParticipantRecord{}, fmt.Errorf("storage is not configured")
	}
	alignmentID = strings.TrimSpace(alignmentID)
	userID = strings.TrimSpace(userID)
	if alignmentID == "" {
		return storage.ParticipantRecord{}, fmt.Errorf("alignment id is required")
	}
	if userID == "" {
		return storage.ParticipantRecord{}, fmt.Errorf("user id is required")
	}

	row := s.sqlDB.QueryRowContext(ctx, `
SELECT alignment_id, user_id, role, display_name, created_at
FROM participants
WHERE alignment_id = ? AND user_id = ?
`, alignmentID, userID)
	record, err := scanParticipant(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.ParticipantRecord{}, storage.ErrNotFound
		}
		return storage.ParticipantRecord{}, fmt.Errorf("get participant: %w", err)
	}
	return record, nil
}

// ListParticipants returns all seats for an alignment ordered by join time.
func (s *Store) ListParticipants(ctx context.Context, alignmentID string) ([]storage.ParticipantRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	alignmentID = strings.TrimSpace(alignmentID)
	if alignmentID == "" {
		return nil, fmt.Errorf("alignment id is required")
	}

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT alignment_id, user_id, role, display_name, created_at
FROM participants
WHERE alignment_id = ?
ORDER BY created_at ASC, user_id ASC
`, alignmentID)
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}
	defer rows.Close()

	results := make([]storage.ParticipantRecord, 0, domain.MaxParticipants)
	for rows.Next() {
		record, scanErr := scanParticipant(rows.Scan)
		if scanErr != nil {
			return nil, fmt.Errorf("scan participant row: %w", scanErr)
		}
		results = append(results, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate participant rows: %w", err)
	}
	return results, nil
}

func normalizeAlignmentRecord(record storage.AlignmentRecord) (storage.AlignmentRecord, error) {
	record.ID = strings.TrimSpace(record.ID)
	record.TemplateID = strings.TrimSpace(record.TemplateID)
	if record.ID == "" {
		return storage.AlignmentRecord{}, fmt.Errorf("alignment id is required")
	}
	if record.TemplateID == "" {
		return storage.AlignmentRecord{}, fmt.Errorf("template id is required")
	}
	if record.Status == "" {
		return storage.AlignmentRecord{}, fmt.Errorf("status is required")
	}
	if record.Round < 1 {
		return storage.AlignmentRecord{}, fmt.Errorf("round must be positive")
	}
	if record.CreatedAt.IsZero() {
		return storage.AlignmentRecord{}, fmt.Errorf("created_at is required")
	}
	if record.UpdatedAt.IsZero() {
		return storage.AlignmentRecord{}, fmt.Errorf("updated_at is required")
	}
	record.CreatedAt = record.CreatedAt.UTC()
	record.UpdatedAt = record.UpdatedAt.UTC()
	if record.CompletedAt != nil {
		completedAt := record.CompletedAt.UTC()
		record.CompletedAt = &completedAt
	}
	if record.StalledAt != nil {
		stalledAt := record.StalledAt.UTC()
		record.StalledAt = &stalledAt
	}
	return record, nil
}

func normalizeParticipantRecord(record storage.ParticipantRecord) (storage.ParticipantRecord, error) {
	record.AlignmentID = strings.TrimSpace(record.AlignmentID)
	record.UserID = strings.TrimSpace(record.UserID)
	record.DisplayName = strings.TrimSpace(record.DisplayName)
	if record.AlignmentID == "" {
		return storage.ParticipantRecord{}, fmt.Errorf("alignment id is required")
	}
	if record.UserID == "" {
		return storage.ParticipantRecord{}, fmt.Errorf("user id is required")
	}
	if record.Role == "" {
		return storage.ParticipantRecord{}, fmt.Errorf("role is required")
	}
	if record.DisplayName == "" {
		return storage.ParticipantRecord{}, fmt.Errorf("display name is required")
	}
	if record.CreatedAt.IsZero() {
		return storage.ParticipantRecord{}, fmt.Errorf("created_at is required")
	}
	record.CreatedAt = record.CreatedAt.UTC()
	return record, nil
}

func scanAlignment(scan scanner) (storage.AlignmentRecord, error) {
	var record storage.AlignmentRecord
	var createdAt, updatedAt int64
	var completedAt, stalledAt sql.NullInt64
	if err := scan(
		&record.ID,
		&record.TemplateID,
		&record.Status,
		&record.Round,
		&createdAt,
		&updatedAt,
		&completedAt,
		&stalledAt,
	); err != nil {
		return storage.AlignmentRecord{}, err
	}
	record.CreatedAt = fromMillis(createdAt)
	record.UpdatedAt = fromMillis(updatedAt)
	if completedAt.Valid {
		value := fromMillis(completedAt.Int64)
		record.CompletedAt = &value
	}
	if stalledAt.Valid {
		value := fromMillis(stalledAt.Int64)
		record.StalledAt = &value
	}
	return record, nil
}

func scanParticipant(scan scanner) (storage.ParticipantRecord, error) {
	var record storage.ParticipantRecord
	var createdAt int64
	if err := scan(
		&record.AlignmentID,
		&record.UserID,
		&record.Role,
		&record.DisplayName,
		&createdAt,
	); err != nil {
		return storage.ParticipantRecord{}, err
	}
	record.CreatedAt = fromMillis(createdAt)
	return record, nil
}
