package store

import (
	"database/sql"
	"errors"
	"time"

	"lawfeed/internal/feed"
)

// timeLayout keeps stored timestamps fixed-width so lexical order matches time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

const documentColumns = "name, published_at, encoding, body, state, staged_at, collated_at, archived_at"

const fragmentColumns = "id, document_name, published_at, fragment_type, sequence, body, pending_processing, processed_count, processed_at, staged_at"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(scanner rowScanner) (*feed.Document, error) {
	var (
		name         string
		publishedRaw string
		encoding     string
		body         string
		state        string
		stagedRaw    string
		collatedRaw  sql.NullString
		archivedRaw  sql.NullString
	)
	if err := scanner.Scan(&name, &publishedRaw, &encoding, &body, &state, &stagedRaw, &collatedRaw, &archivedRaw); err != nil {
		return nil, err
	}

	doc := &feed.Document{
		Name:     name,
		Encoding: encoding,
		Text:     body,
		State:    feed.DocumentState(state),
	}
	if published, err := parseTimeString(publishedRaw); err == nil {
		doc.PublishedAt = published
	}
	if staged, err := parseTimeString(stagedRaw); err == nil {
		doc.StagedAt = staged
	}
	doc.CollatedAt = parseNullableTime(collatedRaw)
	doc.ArchivedAt = parseNullableTime(archivedRaw)
	return doc, nil
}

func scanFragment(scanner rowScanner) (*feed.Fragment, error) {
	var (
		id             string
		documentName   string
		publishedRaw   string
		fragmentType   string
		sequence       int
		body           string
		pending        int64
		processedCount int
		processedRaw   sql.NullString
		stagedRaw      string
	)
	if err := scanner.Scan(&id, &documentName, &publishedRaw, &fragmentType, &sequence, &body, &pending, &processedCount, &processedRaw, &stagedRaw); err != nil {
		return nil, err
	}

	fragment := &feed.Fragment{
		ID:                id,
		DocumentName:      documentName,
		Type:              feed.FragmentType(fragmentType),
		Sequence:          sequence,
		Text:              body,
		PendingProcessing: pending != 0,
		ProcessedCount:    processedCount,
	}
	if published, err := parseTimeString(publishedRaw); err == nil {
		fragment.PublishedAt = published
	}
	if staged, err := parseTimeString(stagedRaw); err == nil {
		fragment.StagedAt = staged
	}
	fragment.ProcessedAt = parseNullableTime(processedRaw)
	return fragment, nil
}

func scanFragments(rows *sql.Rows) ([]*feed.Fragment, error) {
	defer rows.Close()
	var fragments []*feed.Fragment
	for rows.Next() {
		fragment, err := scanFragment(rows)
		if err != nil {
			return nil, err
		}
		fragments = append(fragments, fragment)
	}
	return fragments, rows.Err()
}

func scanDocuments(rows *sql.Rows) ([]*feed.Document, error) {
	defer rows.Close()
	var docs []*feed.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	return formatTime(*value)
}

func formatTime(value time.Time) string {
	return value.UTC().Format(timeLayout)
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func parseNullableTime(value sql.NullString) *time.Time {
	if !value.Valid {
		return nil
	}
	parsed, err := parseTimeString(value.String)
	if err != nil {
		return nil
	}
	return &parsed
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func limitClause(limit int) string {
	if limit <= 0 {
		return ""
	}
	return " LIMIT ?"
}

func limitArgs(args []any, limit int) []any {
	if limit <= 0 {
		return args
	}
	return append(args, limit)
}
