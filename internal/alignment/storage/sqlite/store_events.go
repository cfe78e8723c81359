package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/concordhq/concord/internal/alignment/storage"
)

// AppendEvent writes one event and returns it with the assigned sequence.
func (s *Store) AppendEvent(ctx context.Context, record storage.EventRecord) (storage.EventRecord, error) {
	if err := ctx.Err(); err != nil {
		return storage.EventRecord{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.EventRecord{}, fmt.Errorf("storage is not configured")
	}
	normalized, err := normalizeEventRecord(record)
	if err != nil {
		return storage.EventRecord{}, err
	}

	result, err := s.sqlDB.ExecContext(ctx, `
	INSERT INTO events (alignment_id, kind, round, status, created_at)
	VALUES (?, ?, ?, ?, ?)
	`,
		normalized.AlignmentID,
		normalized.Kind,
		normalized.Round,
		normalized.Status,
		toMillis(normalized.CreatedAt),
	)
	if err != nil {
		return storage.EventRecord{}, fmt.Errorf("append event: %w", err)
	}
	seq, err := result.LastInsertId()
	if err != nil {
		return storage.EventRecord{}, fmt.Errorf("append event sequence: %w", err)
	}
	normalized.Seq = seq
	return normalized, nil
}

// ListAlignmentEvents returns an alignment's events after a sequence,
// oldest first.
func (s *Store) ListAlignmentEvents(ctx context.Context, alignmentID string, afterSeq int64, limit int) ([]storage.EventRecord, error) {
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
	limit = clampEventLimit(limit)

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT seq, alignment_id, kind, round, status, created_at
FROM events
WHERE alignment_id = ? AND seq > ?
ORDER BY seq ASC
LIMIT ?
`, alignmentID, afterSeq, limit)
	if err != nil {
		return nil, fmt.Errorf("list alignment events: %w", err)
	}
	defer rows.Close()
	return collectEvents(rows.Next, rows.Scan, rows.Err)
}

// ListEventsAfter returns events across all alignments after a sequence,
// oldest first. The sync worker uses it to fan recent activity out to
// connected peers.
func (s *Store) ListEventsAfter(ctx context.Context, afterSeq int64, limit int) ([]storage.EventRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	limit = clampEventLimit(limit)

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT seq, alignment_id, kind, round, status, created_at
FROM events
WHERE seq > ?
ORDER BY seq ASC
LIMIT ?
`, afterSeq, limit)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()
	return collectEvents(rows.Next, rows.Scan, rows.Err)
}

// LatestEventSeq returns the highest assigned sequence, zero when the
// log is empty.
func (s *Store) LatestEventSeq(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if s == nil || s.sqlDB == nil {
		return 0, fmt.Errorf("storage is not configured")
	}

	var seq int64
	row := s.sqlDB.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) FROM events`)
	if err := row.Scan(&seq); err != nil {
		return 0, fmt.Errorf("latest event seq: %w", err)
	}
	return seq, nil
}

func clampEventLimit(limit int) int {
	const defaultEventLimit = 100
	const maxEventLimit = 500
	if limit <= 0 {
		return defaultEventLimit
	}
	if limit > maxEventLimit {
		return maxEventLimit
	}
	return limit
}

func normalizeEventRecord(record storage.EventRecord) (storage.EventRecord, error) {
	record.AlignmentID = strings.TrimSpace(record.AlignmentID)
	if record.AlignmentID == "" {
		return storage.EventRecord{}, fmt.Errorf("alignment id is required")
	}
	if record.Kind == "" {
		return storage.EventRecord{}, fmt.Errorf("event kind is required")
	}
	if record.Round < 1 {
		return storage.EventRecord{}, fmt.Errorf("round must be positive")
	}
	if record.Status == "" {
		return storage.EventRecord{}, fmt.Errorf("status is required")
	}
	if record.CreatedAt.IsZero() {
		return storage.EventRecord{}, fmt.Errorf("created_at is required")
	}
	record.CreatedAt = record.CreatedAt.UTC()
	return record, nil
}

func collectEvents(next func() bool, scan scanner, rowsErr func() error) ([]storage.EventRecord, error) {
	var results []storage.EventRecord
	for next() {
		var record storage.EventRecord
		var createdAt int64
		if err := scan(
			&record.Seq,
			&record.AlignmentID,
			&record.Kind,
			&record.Round,
			&record.Status,
			&createdAt,
		); err != nil {
			return nil, fmt.Errorf("scan event row: %w", err)
		}
		record.CreatedAt = fromMillis(createdAt)
		results = append(results, record)
	}
	if err := rowsErr(); err != nil {
		return nil, fmt.Errorf("iterate event rows: %w", err)
	}
	return results, nil
}
