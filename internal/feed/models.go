package feed

import (
	"fmt"
	"time"
)

// DocumentState tracks whether a source document still awaits collation.
type DocumentState string

const (
	DocumentIncoming DocumentState = "incoming"
	DocumentArchived DocumentState = "archived"
)

// Document is one raw legacy feed file submitted for ingestion.
type Document struct {
	Name        string
	PublishedAt time.Time
	Encoding    string
	Text        string
	State       DocumentState
	StagedAt    time.Time
	CollatedAt  *time.Time
	ArchivedAt  *time.Time
}

// Archived reports whether the document has left the incoming set.
func (d *Document) Archived() bool {
	return d != nil && d.State == DocumentArchived
}

// Fragment is one typed, independently dispatchable record extracted from a
// Document.
type Fragment struct {
	ID                string
	DocumentName      string
	PublishedAt       time.Time
	Type              FragmentType
	Sequence          int
	Text              string
	PendingProcessing bool
	ProcessedCount    int
	ProcessedAt       *time.Time
	StagedAt          time.Time
}

// NewFragment builds a fragment for doc with the canonical identifier.
func NewFragment(doc *Document, fragmentType FragmentType, text string, sequence int) Fragment {
	return Fragment{
		ID:           FragmentID(doc.Name, sequence, fragmentType),
		DocumentName: doc.Name,
		PublishedAt:  doc.PublishedAt,
		Type:         fragmentType,
		Sequence:     sequence,
		Text:         text,
	}
}

// FragmentID formats the identifier of the sequence-th fragment of a document.
func FragmentID(documentName string, sequence int, fragmentType FragmentType) string {
	return fmt.Sprintf("%s-%d-%s", documentName, sequence, fragmentType.Label())
}

// MarkProcessed records a completed dispatch attempt.
func (f *Fragment) MarkProcessed(at time.Time) {
	f.PendingProcessing = false
	f.ProcessedCount++
	ts := at.UTC()
	f.ProcessedAt = &ts
}

func (f Fragment) String() string {
	return fmt.Sprintf("%s (type=%s seq=%d)", f.ID, f.Type, f.Sequence)
}

// SortOrder selects ascending or descending pagination.
type SortOrder string

const (
	Ascending  SortOrder = "ASC"
	Descending SortOrder = "DESC"
)

// SQL returns the order keyword, defaulting to ascending.
func (o SortOrder) SQL() string {
	if o == Descending {
		return "DESC"
	}
	return "ASC"
}
