package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
)

// RecordChange is one downstream effect a handler applied while processing
// a fragment.
type RecordChange struct {
	ID         string
	FragmentID string
	Kind       string
	Key        string
	Detail     string
	CreatedAt  time.Time
}

// RecordChange appends change to the change log, assigning a ULID and
// timestamp when missing.
func (s *Store) RecordChange(ctx context.Context, change *RecordChange) error {
	if change == nil {
		return errors.New("record change is nil")
	}
	if change.FragmentID == "" || change.Kind == "" || change.Key == "" {
		return errors.New("record change requires fragment id, kind and key")
	}
	if change.CreatedAt.IsZero() {
		change.CreatedAt = s.now().UTC()
	}
	if change.ID == "" {
		change.ID = ulid.MustNew(ulid.Timestamp(change.CreatedAt), ulid.DefaultEntropy()).String()
	}
	if _, err := s.execWithRetry(
		ctx,
		`INSERT INTO record_changes (id, fragment_id, record_kind, record_key, detail, created_at)
         VALUES (?, ?, ?, ?, ?, ?)`,
		change.ID,
		change.FragmentID,
		change.Kind,
		change.Key,
		nullableString(change.Detail),
		formatTime(change.CreatedAt),
	); err != nil {
		return fmt.Errorf("record change for %s: %w", change.FragmentID, err)
	}
	return nil
}

// RecordChanges lists the changes recorded for a fragment in insertion
// order. An empty fragmentID lists every change.
func (s *Store) RecordChanges(ctx context.Context, fragmentID string) ([]RecordChange, error) {
	query := `SELECT id, fragment_id, record_kind, record_key, detail, created_at FROM record_changes`
	var args []any
	if fragmentID != "" {
		query += ` WHERE fragment_id = ?`
		args = append(args, fragmentID)
	}
	query += ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query record changes: %w", err)
	}
	defer rows.Close()

	var changes []RecordChange
	for rows.Next() {
		var (
			change     RecordChange
			detail     *string
			createdRaw string
		)
		if err := rows.Scan(&change.ID, &change.FragmentID, &change.Kind, &change.Key, &detail, &createdRaw); err != nil {
			return nil, fmt.Errorf("scan record change: %w", err)
		}
		if detail != nil {
			change.Detail = *detail
		}
		if created, err := parseTimeString(createdRaw); err == nil {
			change.CreatedAt = created
		}
		changes = append(changes, change)
	}
	return changes, rows.Err()
}
