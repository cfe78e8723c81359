package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/concordhq/concord/internal/alignment/storage"
	apperrors "github.com/concordhq/concord/internal/platform/errors"
)

// PutResponse inserts or overwrites a draft response. A row that has
// already been submitted rejects further writes.
func (s *Store) PutResponse(ctx context.Context, record storage.ResponseRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	normalized, err := normalizeResponseRecord(record)
	if err != nil {
		return err
	}

	var submittedAt sql.NullInt64
	if normalized.SubmittedAt != nil {
		submittedAt = sql.NullInt64{Int64: toMillis(*normalized.SubmittedAt), Valid: true}
	}

	result, err := s.sqlDB.ExecContext(ctx, `
	INSERT INTO responses (
		alignment_id, user_id, round, answers_json, created_at, updated_at, submitted_at
	) VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(alignment_id, user_id, round) DO UPDATE SET
		answers_json = excluded.answers_json,
		updated_at = excluded.updated_at
	WHERE responses.submitted_at IS NULL
	`,
		normalized.AlignmentID,
		normalized.UserID,
		normalized.Round,
		normalized.AnswersJSON,
		toMillis(normalized.CreatedAt),
		toMillis(normalized.UpdatedAt),
		submittedAt,
	)
	if err != nil {
		return fmt.Errorf("put response: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("put response rows affected: %w", err)
	}
	if affected == 0 {
		return apperrors.WithMetadata(apperrors.CodeResponseAlreadySubmitted,
			"submitted responses cannot be modified", map[string]string{
				"AlignmentID": normalized.AlignmentID,
				"UserID":      normalized.UserID,
			})
	}
	return nil
}

// GetResponse retrieves one participant's response for a round.
func (s *Store) GetResponse(ctx context.Context, alignmentID, userID string, round int) (storage.ResponseRecord, error) {
	if err := ctx.Err(); err != nil {
		return storage.ResponseRecord{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.ResponseRecord{}, fmt.Errorf("storage is not configured")
	}
	alignmentID = strings.TrimSpace(alignmentID)
	userID = strings.TrimSpace(userID)
	if alignmentID == "" || userID == "" {
		return storage.ResponseRecord{}, fmt.Errorf("alignment id and user id are required")
	}

	row := s.sqlDB.QueryRowContext(ctx, `
SELECT alignment_id, user_id, round, answers_json, created_at, updated_at, submitted_at
FROM responses
WHERE alignment_id = ? AND user_id = ? AND round = ?
`, alignmentID, userID, round)
	record, err := scanResponse(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.ResponseRecord{}, storage.ErrNotFound
		}
		return storage.ResponseRecord{}, fmt.Errorf("get response: %w", err)
	}
	return record, nil
}

// ListResponsesByRound returns all responses for one round ordered by user.
func (s *Store) ListResponsesByRound(ctx context.Context, alignmentID string, round int) ([]storage.ResponseRecord, error) {
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
SELECT alignment_id, user_id, round, answers_json, created_at, updated_at, submitted_at
FROM responses
WHERE alignment_id = ? AND round = ?
ORDER BY user_id ASC
`, alignmentID, round)
	if err != nil {
		return nil, fmt.Errorf("list responses: %w", err)
	}
	defer rows.Close()

	results := make([]storage.ResponseRecord, 0, 2)
	for rows.Next() {
		record, scanErr := scanResponse(rows.Scan)
		if scanErr != nil {
			return nil, fmt.Errorf("scan response row: %w", scanErr)
		}
		results = append(results, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate response rows: %w", err)
	}
	return results, nil
}

// MarkResponseSubmitted stamps SubmittedAt once; a repeat call keeps the
// original stamp and returns the stored row.
func (s *Store) MarkResponseSubmitted(ctx context.Context, alignmentID, userID string, round int, submittedAt time.Time) (storage.ResponseRecord, error) {
	if err := ctx.Err(); err != nil {
		return storage.ResponseRecord{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.ResponseRecord{}, fmt.Errorf("storage is not configured")
	}
	alignmentID = strings.TrimSpace(alignmentID)
	userID = strings.TrimSpace(userID)
	if alignmentID == "" || userID == "" {
		return storage.ResponseRecord{}, fmt.Errorf("alignment id and user id are required")
	}
	if submittedAt.IsZero() {
		return storage.ResponseRecord{}, fmt.Errorf("submitted at is required")
	}

	stamp := toMillis(submittedAt.UTC())
	result, err := s.sqlDB.ExecContext(ctx, `
UPDATE responses
SET submitted_at = COALESCE(submitted_at, ?),
    updated_at = CASE WHEN submitted_at IS NULL THEN ? ELSE updated_at END
WHERE alignment_id = ? AND user_id = ? AND round = ?
`, stamp, stamp, alignmentID, userID, round)
	if err != nil {
		return storage.ResponseRecord{}, fmt.Errorf("mark response submitted: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return storage.ResponseRecord{}, fmt.Errorf("mark response submitted rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ResponseRecord{}, storage.ErrNotFound
	}
	return s.GetResponse(ctx, alignmentID, userID, round)
}

// PutResolutionSet inserts or overwrites one participant's set for a round.
func (s *Store) PutResolutionSet(ctx context.Context, record storage.ResolutionRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	normalized, err := normalizeResolutionRecord(record)
	if err != nil {
		return err
	}

	_, err = s.sqlDB.ExecContext(ctx, `
	INSERT INTO resolutions (
		alignment_id, user_id, round, items_json, created_at, updated_at
	) VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(alignment_id, user_id, round) DO UPDATE SET
		items_json = excluded.items_json,
		updated_at = excluded.updated_at
	`,
		normalized.AlignmentID,
		normalized.UserID,
		normalized.Round,
		normalized.ItemsJSON,
		toMillis(normalized.CreatedAt),
		toMillis(normalized.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("put resolution set: %w", err)
	}
	return nil
}

// GetResolutionSet retrieves one participant's set for a round.
func (s *Store) GetResolutionSet(ctx context.Context, alignmentID, userID string, round int) (storage.ResolutionRecord, error) {
	if err := ctx.Err(); err != nil {
		return storage.ResolutionRecord{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.ResolutionRecord{}, fmt.Errorf("storage is not configured")
	}
	alignmentID = strings.TrimSpace(alignmentID)
	userID = strings.TrimSpace(userID)
	if alignmentID == "" || userID == "" {
		return storage.ResolutionRecord{}, fmt.Errorf("alignment id and user id are required")
	}

	row := s.sqlDB.QueryRowContext(ctx, `
SELECT alignment_id, user_id, round, items_json, created_at, updated_at
FROM resolutions
WHERE alignment_id = ? AND user_id = ? AND round = ?
`, alignmentID, userID, round)
	record, err := scanResolution(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.ResolutionRecord{}, storage.ErrNotFound
		}
		return storage.ResolutionRecord{}, fmt.Errorf("get resolution set: %w", err)
	}
	return record, nil
}

// ListResolutionSetsByRound returns all sets for a round ordered by user.
func (s *Store) ListResolutionSetsByRound(ctx context.Context, alignmentID string, round int) ([]storage.ResolutionRecord, error) {
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
SELECT alignment_id, user_id, round, items_json, created_at, updated_at
FROM resolutions
WHERE alignment_id = ? AND round = ?
ORDER BY user_id ASC
`, alignmentID, round)
	if err != nil {
		return nil, fmt.Errorf("list resolution sets: %w", err)
	}
	defer rows.Close()

	results := make([]storage.ResolutionRecord, 0, 2)
	for rows.Next() {
		record, scanErr := scanResolution(rows.Scan)
		if scanErr != nil {
			return nil, fmt.Errorf("scan resolution row: %w", scanErr)
		}
		results = append(results, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate resolution rows: %w", err)
	}
	return results, nil
}

func normalizeResponseRecord(record storage.ResponseRecord) (storage.ResponseRecord, error) {
	record.AlignmentID = strings.TrimSpace(record.AlignmentID)
	record.UserID = strings.TrimSpace(record.UserID)
	record.AnswersJSON = strings.TrimSpace(record.AnswersJSON)
	if record.AnswersJSON == "" {
		record.AnswersJSON = "{}"
	}
	if record.AlignmentID == "" {
		return storage.ResponseRecord{}, fmt.Errorf("alignment id is required")
	}
	if record.UserID == "" {
		return storage.ResponseRecord{}, fmt.Errorf("user id is required")
	}
	if record.Round < 1 {
		return storage.ResponseRecord{}, fmt.Errorf("round must be positive")
	}
	if record.CreatedAt.IsZero() {
		return storage.ResponseRecord{}, fmt.Errorf("created_at is required")
	}
	if record.UpdatedAt.IsZero() {
		return storage.ResponseRecord{}, fmt.Errorf("updated_at is required")
	}
	record.CreatedAt = record.CreatedAt.UTC()
	record.UpdatedAt = record.UpdatedAt.UTC()
	if record.SubmittedAt != nil {
		submittedAt := record.SubmittedAt.UTC()
		record.SubmittedAt = &submittedAt
	}
	return record, nil
}

func normalizeResolutionRecord(record storage.ResolutionRecord) (storage.ResolutionRecord, error) {
	record.AlignmentID = strings.TrimSpace(record.AlignmentID)
	record.UserID = strings.TrimSpace(record.UserID)
	record.ItemsJSON = strings.TrimSpace(record.ItemsJSON)
	if record.ItemsJSON == "" {
		record.ItemsJSON = "[]"
	}
	if record.AlignmentID == "" {
		return storage.ResolutionRecord{}, fmt.Errorf("alignment id is required")
	}
	if record.UserID == "" {
		return storage.ResolutionRecord{}, fmt.Errorf("user id is required")
	}
	if record.Round < 1 {
		return storage.ResolutionRecord{}, fmt.Errorf("round must be positive")
	}
	if record.CreatedAt.IsZero() {
		return storage.ResolutionRecord{}, fmt.Errorf("created_at is required")
	}
	if record.UpdatedAt.IsZero() {
		return storage.ResolutionRecord{}, fmt.Errorf("updated_at is required")
	}
	record.CreatedAt = record.CreatedAt.UTC()
	record.UpdatedAt = record.UpdatedAt.UTC()
	return record, nil
}

func scanResponse(scan scanner) (storage.ResponseRecord, error) {
	var record storage.ResponseRecord
	var createdAt, updatedAt int64
	var submittedAt sql.NullInt64
	if err := scan(
		&record.AlignmentID,
		&record.UserID,
		&record.Round,
		&record.AnswersJSON,
		&createdAt,
		&updatedAt,
		&submittedAt,
	); err != nil {
		return storage.ResponseRecord{}, err
	}
	record.CreatedAt = fromMillis(createdAt)
	record.UpdatedAt = fromMillis(updatedAt)
	if submittedAt.Valid {
		value := fromMillis(submittedAt.Int64)
		record.SubmittedAt = &value
	}
	return record, nil
}

func scanResolution(scan scanner) (storage.ResolutionRecord, error) {
	var record storage.ResolutionRecord
	var createdAt, updatedAt int64
	if err := scan(
		&record.AlignmentID,
		&record.UserID,
		&record.Round,
		&record.ItemsJSON,
		&createdAt,
		&updatedAt,
	); err != nil {
		return storage.ResolutionRecord{}, err
	}
	record.CreatedAt = fromMillis(createdAt)
	record.UpdatedAt = fromMillis(updatedAt)
	return record, nil
}
