package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/concordhq/concord/internal/alignment/storage"
)

// PutAnalysis records the analysis for a round. The (alignment, round)
// pair is unique; a second writer gets storage.ErrConflict and should
// re-read the stored row.
func (s *Store) PutAnalysis(ctx context.Context, record storage.AnalysisRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	normalized, err := normalizeAnalysisRecord(record)
	if err != nil {
		return err
	}

	_, err = s.sqlDB.ExecContext(ctx, `
	INSERT INTO analyses (
		id, alignment_id, round, report_json, engine, created_at
	) VALUES (?, ?, ?, ?, ?, ?)
	`,
		normalized.ID,
		normalized.AlignmentID,
		normalized.Round,
		normalized.ReportJSON,
		normalized.Engine,
		toMillis(normalized.CreatedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return storage.ErrConflict
		}
		return fmt.Errorf("put analysis: %w", err)
	}
	return nil
}

// GetAnalysisByRound retrieves the analysis recorded for a round.
func (s *Store) GetAnalysisByRound(ctx context.Context, alignmentID string, round int) (storage.AnalysisRecord, error) {
	if err := ctx.Err(); err != nil {
		return storage.AnalysisRecord{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.AnalysisRecord{}, fmt.Errorf("storage is not configured")
	}
	alignmentID = strings.TrimSpace(alignmentID)
	if alignmentID == "" {
		return storage.AnalysisRecord{}, fmt.Errorf("alignment id is required")
	}

	row := s.sqlDB.QueryRowContext(ctx, `
SELECT id, alignment_id, round, report_json, engine, created_at
FROM analyses
WHERE alignment_id = ? AND round = ?
`, alignmentID, round)
	record, err := scanAnalysis(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.AnalysisRecord{}, storage.ErrNotFound
		}
		return storage.AnalysisRecord{}, fmt.Errorf("get analysis: %w", err)
	}
	return record, nil
}

// GetLatestAnalysis retrieves the analysis with the highest round.
func (s *Store) GetLatestAnalysis(ctx context.Context, alignmentID string) (storage.AnalysisRecord, error) {
	if err := ctx.Err(); err != nil {
		return storage.AnalysisRecord{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.AnalysisRecord{}, fmt.Errorf("storage is not configured")
	}
	alignmentID = strings.TrimSpace(alignmentID)
	if alignmentID == "" {
		return storage.AnalysisRecord{}, fmt.Errorf("alignment id is required")
	}

	row := s.sqlDB.QueryRowContext(ctx, `
SELECT id, alignment_id, round, report_json, engine, created_at
FROM analyses
WHERE alignment_id = ?
ORDER BY round DESC
LIMIT 1
`, alignmentID)
	record, err := scanAnalysis(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.AnalysisRecord{}, storage.ErrNotFound
		}
		return storage.AnalysisRecord{}, fmt.Errorf("get latest analysis: %w", err)
	}
	return record, nil
}

// PutSignature records one participant's signature. The
// (alignment, user, round) key is unique; a duplicate write gets
// storage.ErrConflict.
func (s *Store) PutSignature(ctx context.Context, record storage.SignatureRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	normalized, err := normalizeSignatureRecord(record)
	if err != nil {
		return err
	}

	_, err = s.sqlDB.ExecContext(ctx, `
	INSERT INTO signatures (
		alignment_id, user_id, round, snapshot_json, content_hash, mac, key_id, signed_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		normalized.AlignmentID,
		normalized.UserID,
		normalized.Round,
		normalized.SnapshotJSON,
		normalized.ContentHash,
		normalized.MAC,
		normalized.KeyID,
		toMillis(normalized.SignedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return storage.ErrConflict
		}
		return fmt.Errorf("put signature: %w", err)
	}
	return nil
}

// GetSignature retrieves one participant's signature for a round.
func (s *Store) GetSignature(ctx context.Context, alignmentID, userID string, round int) (storage.SignatureRecord, error) {
	if err := ctx.Err(); err != nil {
		return storage.SignatureRecord{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.SignatureRecord{}, fmt.Errorf("storage is not configured")
	}
	alignmentID = strings.TrimSpace(alignmentID)
	userID = strings.TrimSpace(userID)
	if alignmentID == "" || userID == "" {
		return storage.SignatureRecord{}, fmt.Errorf("alignment id and user id are required")
	}

	row := s.sqlDB.QueryRowContext(ctx, `
SELECT alignment_id, user_id, round, snapshot_json, content_hash, mac, key_id, signed_at
FROM signatures
WHERE alignment_id = ? AND user_id = ? AND round = ?
`, alignmentID, userID, round)
	record, err := scanSignature(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.SignatureRecord{}, storage.ErrNotFound
		}
		return storage.SignatureRecord{}, fmt.Errorf("get signature: %w", err)
	}
	return record, nil
}

// ListSignaturesByRound returns all signatures for a round ordered by user.
func (s *Store) ListSignaturesByRound(ctx context.Context, alignmentID string, round int) ([]storage.SignatureRecord, error) {
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
SELECT alignment_id, user_id, round, snapshot_json, content_hash, mac, key_id, signed_at
FROM signatures
WHERE alignment_id = ? AND round = ?
ORDER BY user_id ASC
`, alignmentID, round)
	if err != nil {
		return nil, fmt.Errorf("list signatures: %w", err)
	}
	defer rows.Close()

	results := make([]storage.SignatureRecord, 0, 2)
	for rows.Next() {
		record, scanErr := scanSignature(rows.Scan)
		if scanErr != nil {
			return nil, fmt.Errorf("scan signature row: %w", scanErr)
		}
		results = append(results, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate signature rows: %w", err)
	}
	return results, nil
}

func normalizeAnalysisRecord(record storage.AnalysisRecord) (storage.AnalysisRecord, error) {
	record.ID = strings.TrimSpace(record.ID)
	record.AlignmentID = strings.TrimSpace(record.AlignmentID)
	record.ReportJSON = strings.TrimSpace(record.ReportJSON)
	if record.ID == "" {
		return storage.AnalysisRecord{}, fmt.Errorf("analysis id is required")
	}
	if record.AlignmentID == "" {
		return storage.AnalysisRecord{}, fmt.Errorf("alignment id is required")
	}
	if record.Round < 1 {
		return storage.AnalysisRecord{}, fmt.Errorf("round must be positive")
	}
	if record.ReportJSON == "" {
		return storage.AnalysisRecord{}, fmt.Errorf("report json is required")
	}
	if record.Engine == "" {
		return storage.AnalysisRecord{}, fmt.Errorf("engine is required")
	}
	if record.CreatedAt.IsZero() {
		return storage.AnalysisRecord{}, fmt.Errorf("created_at is required")
	}
	record.CreatedAt = record.CreatedAt.UTC()
	return record, nil
}

func normalizeSignatureRecord(record storage.SignatureRecord) (storage.SignatureRecord, error) {
	record.AlignmentID = strings.TrimSpace(record.AlignmentID)
	record.UserID = strings.TrimSpace(record.UserID)
	record.ContentHash = strings.TrimSpace(record.ContentHash)
	record.MAC = strings.TrimSpace(record.MAC)
	record.KeyID = strings.TrimSpace(record.KeyID)
	if record.AlignmentID == "" {
		return storage.SignatureRecord{}, fmt.Errorf("alignment id is required")
	}
	if record.UserID == "" {
		return storage.SignatureRecord{}, fmt.Errorf("user id is required")
	}
	if record.Round < 1 {
		return storage.SignatureRecord{}, fmt.Errorf("round must be positive")
	}
	if strings.TrimSpace(record.SnapshotJSON) == "" {
		return storage.SignatureRecord{}, fmt.Errorf("snapshot json is required")
	}
	if record.ContentHash == "" {
		return storage.SignatureRecord{}, fmt.Errorf("content hash is required")
	}
	if record.MAC == "" {
		return storage.SignatureRecord{}, fmt.Errorf("mac is required")
	}
	if record.KeyID == "" {
		return storage.SignatureRecord{}, fmt.Errorf("key id is required")
	}
	if record.SignedAt.IsZero() {
		return storage.SignatureRecord{}, fmt.Errorf("signed_at is required")
	}
	record.SignedAt = record.SignedAt.UTC()
	return record, nil
}

func scanAnalysis(scan scanner) (storage.AnalysisRecord, error) {
	var record storage.AnalysisRecord
	var createdAt int64
	if err := scan(
		&record.ID,
		&record.AlignmentID,
		&record.Round,
		&record.ReportJSON,
		&record.Engine,
		&createdAt,
	); err != nil {
		return storage.AnalysisRecord{}, err
	}
	record.CreatedAt = fromMillis(createdAt)
	return record, nil
}

func scanSignature(scan scanner) (storage.SignatureRecord, error) {
	var record storage.SignatureRecord
	var signedAt int64
	if err := scan(
		&record.AlignmentID,
		&record.UserID,
		&record.Round,
		&record.SnapshotJSON,
		&record.ContentHash,
		&record.MAC,
		&record.KeyID,
		&signedAt,
	); err != nil {
		return storage.SignatureRecord{}, err
	}
	record.SignedAt = fromMillis(signedAt)
	return record, nil
}
