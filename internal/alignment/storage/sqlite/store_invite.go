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

// PutInvite inserts or updates an invite. The token hash never changes
// after creation; updates only touch the mutable counters and stamps.
func (s *Store) PutInvite(ctx context.Context, record storage.InviteRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	normalized, err := normalizeInviteRecord(record)
	if err != nil {
		return err
	}

	var invalidatedAt sql.NullInt64
	if normalized.InvalidatedAt != nil {
		invalidatedAt = sql.NullInt64{Int64: toMillis(*normalized.InvalidatedAt), Valid: true}
	}

	_, err = s.sqlDB.ExecContext(ctx, `
	INSERT INTO invites (
		id, alignment_id, token_hash, created_by_user_id, expires_at,
		max_uses, use_count, invalidated_at, created_at, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		use_count = excluded.use_count,
		invalidated_at = excluded.invalidated_at,
		updated_at = excluded.updated_at
	`,
		normalized.ID,
		normalized.AlignmentID,
		normalized.TokenHash,
		normalized.CreatedByUserID,
		toMillis(normalized.ExpiresAt),
		normalized.MaxUses,
		normalized.UseCount,
		invalidatedAt,
		toMillis(normalized.CreatedAt),
		toMillis(normalized.UpdatedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return storage.ErrConflict
		}
		return fmt.Errorf("put invite: %w", err)
	}
	return nil
}

// GetInvite retrieves an invite by id.
func (s *Store) GetInvite(ctx context.Context, inviteID string) (storage.InviteRecord, error) {
	if err := ctx.Err(); err != nil {
		return storage.InviteRecord{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.InviteRecord{}, fmt.Errorf("storage is not configured")
	}
	inviteID = strings.TrimSpace(inviteID)
	if inviteID == "" {
		return storage.InviteRecord{}, fmt.Errorf("invite id is required")
	}

	row := s.sqlDB.QueryRowContext(ctx, `
SELECT id, alignment_id, token_hash, created_by_user_id, expires_at,
       max_uses, use_count, invalidated_at, created_at, updated_at
FROM invites
WHERE id = ?
`, inviteID)
	record, err := scanInvite(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.InviteRecord{}, storage.ErrNotFound
		}
		return storage.InviteRecord{}, fmt.Errorf("get invite: %w", err)
	}
	return record, nil
}

// GetInviteByTokenHash retrieves an invite by its token digest.
func (s *Store) GetInviteByTokenHash(ctx context.Context, tokenHash string) (storage.InviteRecord, error) {
	if err := ctx.Err(); err != nil {
		return storage.InviteRecord{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.InviteRecord{}, fmt.Errorf("storage is not configured")
	}
	tokenHash = strings.TrimSpace(tokenHash)
	if tokenHash == "" {
		return storage.InviteRecord{}, fmt.Errorf("token hash is required")
	}

	row := s.sqlDB.QueryRowContext(ctx, `
SELECT id, alignment_id, token_hash, created_by_user_id, expires_at,
       max_uses, use_count, invalidated_at, created_at, updated_at
FROM invites
WHERE token_hash = ?
`, tokenHash)
	record, err := scanInvite(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.InviteRecord{}, storage.ErrNotFound
		}
		return storage.InviteRecord{}, fmt.Errorf("get invite by token hash: %w", err)
	}
	return record, nil
}

// RedeemInviteByTokenHash consumes one use of a live invite in a single
// guarded update, so concurrent redemptions never overshoot max_uses.
// A failed redemption is classified against the stored row: not found,
// invalidated, expired, or exhausted.
func (s *Store) RedeemInviteByTokenHash(ctx context.Context, tokenHash string, now time.Time) (storage.InviteRecord, error) {
	if err := ctx.Err(); err != nil {
		return storage.InviteRecord{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.InviteRecord{}, fmt.Errorf("storage is not configured")
	}
	tokenHash = strings.TrimSpace(tokenHash)
	if tokenHash == "" {
		return storage.InviteRecord{}, fmt.Errorf("token hash is required")
	}
	if now.IsZero() {
		return storage.InviteRecord{}, fmt.Errorf("redemption time is required")
	}
	nowMillis := toMillis(now.UTC())

	result, err := s.sqlDB.ExecContext(ctx, `
UPDATE invites
SET use_count = use_count + 1,
    updated_at = ?
WHERE token_hash = ?
  AND invalidated_at IS NULL
  AND expires_at > ?
  AND use_count < max_uses
`, nowMillis, tokenHash, nowMillis)
	if err != nil {
		return storage.InviteRecord{}, fmt.Errorf("redeem invite: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return storage.InviteRecord{}, fmt.Errorf("redeem invite rows affected: %w", err)
	}
	if affected == 1 {
		return s.GetInviteByTokenHash(ctx, tokenHash)
	}

	record, err := s.GetInviteByTokenHash(ctx, tokenHash)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return storage.InviteRecord{}, apperrors.New(apperrors.CodeInviteNotFound, "invite not found")
		}
		return storage.InviteRecord{}, err
	}
	switch {
	case record.InvalidatedAt != nil:
		return storage.InviteRecord{}, apperrors.WithMetadata(apperrors.CodeInviteInvalidated,
			"invite has been invalidated", map[string]string{"InviteID": record.ID})
	case !record.ExpiresAt.After(now.UTC()):
		return storage.InviteRecord{}, apperrors.WithMetadata(apperrors.CodeInviteExpired,
			"invite has expired", map[string]string{"InviteID": record.ID})
	default:
		return storage.InviteRecord{}, apperrors.WithMetadata(apperrors.CodeInviteExhausted,
			"invite has no uses left", map[string]string{"InviteID": record.ID})
	}
}

// InvalidateInvite stamps InvalidatedAt once; repeat calls keep the
// original stamp.
func (s *Store) InvalidateInvite(ctx context.Context, inviteID string, invalidatedAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	inviteID = strings.TrimSpace(inviteID)
	if inviteID == "" {
		return fmt.Errorf("invite id is required")
	}
	if invalidatedAt.IsZero() {
		return fmt.Errorf("invalidated at is required")
	}

	stamp := toMillis(invalidatedAt.UTC())
	result, err := s.sqlDB.ExecContext(ctx, `
UPDATE invites
SET invalidated_at = COALESCE(invalidated_at, ?),
    updated_at = ?
WHERE id = ?
`, stamp, stamp, inviteID)
	if err != nil {
		return fmt.Errorf("invalidate invite: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("invalidate invite rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// ListInvitesByAlignment returns an alignment's invites, newest first.
func (s *Store) ListInvitesByAlignment(ctx context.Context, alignmentID string) ([]storage.InviteRecord, error) {
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
SELECT id, alignment_id, token_hash, created_by_user_id, expires_at,
       max_uses, use_count, invalidated_at, created_at, updated_at
FROM invites
WHERE alignment_id = ?
ORDER BY created_at DESC, id DESC
`, alignmentID)
	if err != nil {
		return nil, fmt.Errorf("list invites: %w", err)
	}
	defer rows.Close()

	var results []storage.InviteRecord
	for rows.Next() {
		record, scanErr := scanInvite(rows.Scan)
		if scanErr != nil {
			return nil, fmt.Errorf("scan invite row: %w", scanErr)
		}
		results = append(results, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate invite rows: %w", err)
	}
	return results, nil
}

// PutTemplate inserts or updates a question template.
func (s *Store) PutTemplate(ctx context.Context, record storage.TemplateRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	normalized, err := normalizeTemplateRecord(record)
	if err != nil {
		return err
	}

	_, err = s.sqlDB.ExecContext(ctx, `
	INSERT INTO templates (
		id, name, questions_json, created_at, updated_at
	) VALUES (?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		name = excluded.name,
		questions_json = excluded.questions_json,
		updated_at = excluded.updated_at
	`,
		normalized.ID,
		normalized.Name,
		normalized.QuestionsJSON,
		toMillis(normalized.CreatedAt),
		toMillis(normalized.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("put template: %w", err)
	}
	return nil
}

// GetTemplate retrieves a question template by id.
func (s *Store) GetTemplate(ctx context.Context, templateID string) (storage.TemplateRecord, error) {
	if err := ctx.Err(); err != nil {
		return storage.TemplateRecord{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.TemplateRecord{}, fmt.Errorf("storage is not configured")
	}
	templateID = strings.TrimSpace(templateID)
	if templateID == "" {
		return storage.TemplateRecord{}, fmt.Errorf("template id is required")
	}

	row := s.sqlDB.QueryRowContext(ctx, `
SELECT id, name, questions_json, created_at, updated_at
FROM templates
WHERE id = ?
`, templateID)
	record, err := scanTemplate(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.TemplateRecord{}, storage.ErrNotFound
		}
		return storage.TemplateRecord{}, fmt.Errorf("get template: %w", err)
	}
	return record, nil
}

// ListTemplates returns every stored template ordered by id.
func (s *Store) ListTemplates(ctx context.Context) ([]storage.TemplateRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT id, name, questions_json, created_at, updated_at
FROM templates
ORDER BY id ASC
`)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	defer rows.Close()

	var results []storage.TemplateRecord
	for rows.Next() {
		record, scanErr := scanTemplate(rows.Scan)
		if scanErr != nil {
			return nil, fmt.Errorf("scan template row: %w", scanErr)
		}
		results = append(results, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate template rows: %w", err)
	}
	return results, nil
}

func normalizeInviteRecord(record storage.InviteRecord) (storage.InviteRecord, error) {
	record.ID = strings.TrimSpace(record.ID)
	record.AlignmentID = strings.TrimSpace(record.AlignmentID)
	record.TokenHash = strings.TrimSpace(record.TokenHash)
	record.CreatedByUserID = strings.TrimSpace(record.CreatedByUserID)
	if record.ID == "" {
		return storage.InviteRecord{}, fmt.Errorf("invite id is required")
	}
	if record.AlignmentID == "" {
		return storage.InviteRecord{}, fmt.Errorf("alignment id is required")
	}
	if record.TokenHash == "" {
		return storage.InviteRecord{}, fmt.Errorf("token hash is required")
	}
	if record.CreatedByUserID == "" {
		return storage.InviteRecord{}, fmt.Errorf("created by user id is required")
	}
	if record.ExpiresAt.IsZero() {
		return storage.InviteRecord{}, fmt.Errorf("expires_at is required")
	}
	if record.MaxUses < 1 {
		return storage.InviteRecord{}, fmt.Errorf("max uses must be positive")
	}
	if record.UseCount < 0 {
		return storage.InviteRecord{}, fmt.Errorf("use count cannot be negative")
	}
	if record.CreatedAt.IsZero() {
		return storage.InviteRecord{}, fmt.Errorf("created_at is required")
	}
	if record.UpdatedAt.IsZero() {
		return storage.InviteRecord{}, fmt.Errorf("updated_at is required")
	}
	record.ExpiresAt = record.ExpiresAt.UTC()
	record.CreatedAt = record.CreatedAt.UTC()
	record.UpdatedAt = record.UpdatedAt.UTC()
	if record.InvalidatedAt != nil {
		invalidatedAt := record.InvalidatedAt.UTC()
		record.InvalidatedAt = &invalidatedAt
	}
	return record, nil
}

func normalizeTemplateRecord(record storage.TemplateRecord) (storage.TemplateRecord, error) {
	record.ID = strings.TrimSpace(record.ID)
	record.Name = strings.TrimSpace(record.Name)
	record.QuestionsJSON = strings.TrimSpace(record.QuestionsJSON)
	if record.ID == "" {
		return storage.TemplateRecord{}, fmt.Errorf("template id is required")
	}
	if record.Name == "" {
		return storage.TemplateRecord{}, fmt.Errorf("template name is required")
	}
	if record.QuestionsJSON == "" {
		return storage.TemplateRecord{}, fmt.Errorf("questions json is required")
	}
	if record.CreatedAt.IsZero() {
		return storage.TemplateRecord{}, fmt.Errorf("created_at is required")
	}
	if record.UpdatedAt.IsZero() {
		return storage.TemplateRecord{}, fmt.Errorf("updated_at is required")
	}
	record.CreatedAt = record.CreatedAt.UTC()
	record.UpdatedAt = record.UpdatedAt.UTC()
	return record, nil
}

func scanInvite(scan scanner) (storage.InviteRecord, error) {
	var record storage.InviteRecord
	var expiresAt, createdAt, updatedAt int64
	var invalidatedAt sql.NullInt64
	if err := scan(
		&record.ID,
		&record.AlignmentID,
		&record.TokenHash,
		&record.CreatedByUserID,
		&expiresAt,
		&record.MaxUses,
		&record.UseCount,
		&invalidatedAt,
		&createdAt,
		&updatedAt,
	); err != nil {
		return storage.InviteRecord{}, err
	}
	record.ExpiresAt = fromMillis(expiresAt)
	record.CreatedAt = fromMillis(createdAt)
	record.UpdatedAt = fromMillis(updatedAt)
	if invalidatedAt.Valid {
		value := fromMillis(invalidatedAt.Int64)
		record.InvalidatedAt = &value
	}
	return record, nil
}

func scanTemplate(scan scanner) (storage.TemplateRecord, error) {
	var record storage.TemplateRecord
	var createdAt, updatedAt int64
	if err := scan(
		&record.ID,
		&record.Name,
		&record.QuestionsJSON,
		&createdAt,
		&updatedAt,
	); err != nil {
		return storage.TemplateRecord{}, err
	}
	record.CreatedAt = fromMillis(createdAt)
	record.UpdatedAt = fromMillis(updatedAt)
	return record, nil
}
