package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"lawfeed/internal/feed"
)

// SaveFragment inserts or updates a fragment by id. Re-saving an existing id
// replaces its content and dispatch state but keeps the original staging time.
func (s *Store) SaveFragment(ctx context.Context, fragment *feed.Fragment) error {
	if fragment == nil {
		return errors.New("fragment is nil")
	}
	if fragment.ID == "" {
		return errors.New("fragment id is required")
	}
	if fragment.StagedAt.IsZero() {
		fragment.StagedAt = s.now().UTC()
	}
	if _, err := s.execWithRetry(
		ctx,
		`INSERT INTO fragments (id, document_name, published_at, fragment_type, sequence, body,
                                pending_processing, processed_count, processed_at, staged_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
         ON CONFLICT(id) DO UPDATE SET
             published_at = excluded.published_at,
             fragment_type = excluded.fragment_type,
             sequence = excluded.sequence,
             body = excluded.body,
             pending_processing = excluded.pending_processing,
             processed_count = excluded.processed_count,
             processed_at = excluded.processed_at`,
		fragment.ID,
		fragment.DocumentName,
		formatTime(fragment.PublishedAt),
		string(fragment.Type),
		fragment.Sequence,
		fragment.Text,
		boolToInt(fragment.PendingProcessing),
		fragment.ProcessedCount,
		nullableTime(fragment.ProcessedAt),
		formatTime(fragment.StagedAt),
	); err != nil {
		return fmt.Errorf("save fragment %s: %w", fragment.ID, err)
	}
	return nil
}

// FragmentByID fetches one fragment, returning ErrFragmentNotFound when absent.
func (s *Store) FragmentByID(ctx context.Context, id string) (*feed.Fragment, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+fragmentColumns+` FROM fragments WHERE id = ?`, id)
	fragment, err := scanFragment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrFragmentNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get fragment: %w", err)
	}
	return fragment, nil
}

// PendingFragments returns up to limit fragments awaiting dispatch, ordered
// by publication time, then document name, then sequence.
func (s *Store) PendingFragments(ctx context.Context, order feed.SortOrder, limit int) ([]*feed.Fragment, error) {
	dir := order.SQL()
	query := `SELECT ` + fragmentColumns + ` FROM fragments WHERE pending_processing = 1
              ORDER BY published_at ` + dir + `, document_name ` + dir + `, sequence ` + dir + limitClause(limit)
	rows, err := s.db.QueryContext(ctx, query, limitArgs(nil, limit)...)
	if err != nil {
		return nil, fmt.Errorf("query pending fragments: %w", err)
	}
	fragments, err := scanFragments(rows)
	if err != nil {
		return nil, fmt.Errorf("scan pending fragments: %w", err)
	}
	return fragments, nil
}

// FragmentsForDocument lists every fragment extracted from a document in sequence order.
func (s *Store) FragmentsForDocument(ctx context.Context, documentName string) ([]*feed.Fragment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+fragmentColumns+` FROM fragments WHERE document_name = ? ORDER BY sequence`,
		documentName,
	)
	if err != nil {
		return nil, fmt.Errorf("query document fragments: %w", err)
	}
	fragments, err := scanFragments(rows)
	if err != nil {
		return nil, fmt.Errorf("scan document fragments: %w", err)
	}
	return fragments, nil
}

// FragmentFilter narrows ListFragments.
type FragmentFilter struct {
	Types       []feed.FragmentType
	PendingOnly bool
	Document    string
	Limit       int
}

// ListFragments returns fragments matching filter, newest publication first.
func (s *Store) ListFragments(ctx context.Context, filter FragmentFilter) ([]*feed.Fragment, error) {
	var (
		clauses []string
		args    []any
	)
	if len(filter.Types) > 0 {
		clauses = append(clauses, `fragment_type IN (`+makePlaceholders(len(filter.Types))+`)`)
		for _, t := range filter.Types {
			args = append(args, string(t))
		}
	}
	if filter.PendingOnly {
		clauses = append(clauses, `pending_processing = 1`)
	}
	if filter.Document != "" {
		clauses = append(clauses, `document_name = ?`)
		args = append(args, filter.Document)
	}

	query := `SELECT ` + fragmentColumns + ` FROM fragments`
	if len(clauses) > 0 {
		query += ` WHERE ` + strings.Join(clauses, " AND ")
	}
	query += ` ORDER BY published_at DESC, document_name DESC, sequence` + limitClause(filter.Limit)

	rows, err := s.db.QueryContext(ctx, query, limitArgs(args, filter.Limit)...)
	if err != nil {
		return nil, fmt.Errorf("list fragments: %w", err)
	}
	fragments, err := scanFragments(rows)
	if err != nil {
		return nil, fmt.Errorf("scan fragments: %w", err)
	}
	return fragments, nil
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
