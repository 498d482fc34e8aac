package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"lawfeed/internal/feed"
)

// StageDocument inserts a new incoming document. Names are unique; staging
// a name twice returns ErrDocumentExists.
func (s *Store) StageDocument(ctx context.Context, doc *feed.Document) error {
	if doc == nil {
		return errors.New("document is nil")
	}
	if doc.Name == "" {
		return errors.New("document name is required")
	}
	if doc.StagedAt.IsZero() {
		doc.StagedAt = s.now().UTC()
	}
	doc.State = feed.DocumentIncoming
	doc.CollatedAt = nil
	doc.ArchivedAt = nil

	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO documents (name, published_at, encoding, body, state, staged_at)
         VALUES (?, ?, ?, ?, ?, ?)
         ON CONFLICT(name) DO NOTHING`,
		doc.Name,
		formatTime(doc.PublishedAt),
		doc.Encoding,
		doc.Text,
		doc.State,
		formatTime(doc.StagedAt),
	)
	if err != nil {
		return fmt.Errorf("stage document %s: %w", doc.Name, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("stage document %s: %w", doc.Name, err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", ErrDocumentExists, doc.Name)
	}
	return nil
}

// DocumentByName fetches a document regardless of state.
func (s *Store) DocumentByName(ctx context.Context, name string) (*feed.Document, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+documentColumns+` FROM documents WHERE name = ?`, name)
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrDocumentNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	return doc, nil
}

// IncomingDocuments returns up to limit documents that still await
// collation, ordered by publication time. A limit <= 0 returns all.
func (s *Store) IncomingDocuments(ctx context.Context, order feed.SortOrder, limit int) ([]*feed.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE state = ?
              ORDER BY published_at ` + order.SQL() + `, name ` + order.SQL() + limitClause(limit)
	rows, err := s.db.QueryContext(ctx, query, limitArgs([]any{feed.DocumentIncoming}, limit)...)
	if err != nil {
		return nil, fmt.Errorf("query incoming documents: %w", err)
	}
	docs, err := scanDocuments(rows)
	if err != nil {
		return nil, fmt.Errorf("scan incoming documents: %w", err)
	}
	return docs, nil
}

// SaveDocument persists the collation metadata of an existing document.
func (s *Store) SaveDocument(ctx context.Context, doc *feed.Document) error {
	if doc == nil {
		return errors.New("document is nil")
	}
	res, err := s.execWithRetry(
		ctx,
		`UPDATE documents SET encoding = ?, collated_at = ? WHERE name = ?`,
		doc.Encoding,
		nullableTime(doc.CollatedAt),
		doc.Name,
	)
	if err != nil {
		return fmt.Errorf("save document %s: %w", doc.Name, err)
	}
	return requireAffected(res, ErrDocumentNotFound, doc.Name)
}

// ArchiveDocument moves a document out of the incoming set.
func (s *Store) ArchiveDocument(ctx context.Context, doc *feed.Document) error {
	if doc == nil {
		return errors.New("document is nil")
	}
	archivedAt := s.now().UTC()
	res, err := s.execWithRetry(
		ctx,
		`UPDATE documents SET state = ?, archived_at = ? WHERE name = ?`,
		feed.DocumentArchived,
		formatTime(archivedAt),
		doc.Name,
	)
	if err != nil {
		return fmt.Errorf("archive document %s: %w", doc.Name, err)
	}
	if err := requireAffected(res, ErrDocumentNotFound, doc.Name); err != nil {
		return err
	}
	doc.State = feed.DocumentArchived
	doc.ArchivedAt = &archivedAt
	return nil
}

// ArchivedWithoutFragments lists archived documents that produced no
// fragments, most recent first.
func (s *Store) ArchivedWithoutFragments(ctx context.Context) ([]*feed.Document, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+documentColumns+` FROM documents d
         WHERE d.state = ?
           AND NOT EXISTS (SELECT 1 FROM fragments f WHERE f.document_name = d.name)
         ORDER BY d.published_at DESC, d.name DESC`,
		feed.DocumentArchived,
	)
	if err != nil {
		return nil, fmt.Errorf("query fragmentless documents: %w", err)
	}
	docs, err := scanDocuments(rows)
	if err != nil {
		return nil, fmt.Errorf("scan fragmentless documents: %w", err)
	}
	return docs, nil
}

func requireAffected(res sql.Result, notFound error, key string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", notFound, key)
	}
	return nil
}
