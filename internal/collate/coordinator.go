package collate

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"lawfeed/internal/extract"
	"lawfeed/internal/feed"
	"lawfeed/internal/logging"
)

// DefaultPageSize bounds the number of documents fetched per batch.
const DefaultPageSize = 100

// Store is the persistence the collation lane needs.
type Store interface {
	IncomingDocuments(ctx context.Context, order feed.SortOrder, limit int) ([]*feed.Document, error)
	SaveDocument(ctx context.Context, doc *feed.Document) error
	ArchiveDocument(ctx context.Context, doc *feed.Document) error
	SaveFragment(ctx context.Context, fragment *feed.Fragment) error
}

// Coordinator drives collation of incoming documents.
type Coordinator struct {
	store     Store
	extractor *extract.Extractor
	pageSize  int
	logger    *slog.Logger
	now       func() time.Time
}

// Option customizes a Coordinator.
type Option func(*Coordinator)

// WithPageSize overrides the batch size. Values <= 0 keep the default.
func WithPageSize(size int) Option {
	return func(c *Coordinator) {
		if size > 0 {
			c.pageSize = size
		}
	}
}

// WithClock overrides the clock used for collation timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) {
		if now != nil {
			c.now = now
		}
	}
}

// New constructs a Coordinator.
func New(store Store, logger *slog.Logger, opts ...Option) *Coordinator {
	componentLogger := logging.NewComponentLogger(logger, "collate")
	c := &Coordinator{
		store:     store,
		extractor: extract.New(logger),
		pageSize:  DefaultPageSize,
		logger:    componentLogger,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CollateAll collates every incoming document and returns how many were
// archived. A failure to fetch a batch ends the run with the count so far
// and no error; a failure to persist a document's fragments or to archive
// it stops the run and is returned alongside the count so far.
func (c *Coordinator) CollateAll(ctx context.Context) (int, error) {
	ctx = logging.WithCorrelationID(ctx, uuid.NewString())
	logger := logging.WithContext(ctx, c.logger)
	collated := 0
	for {
		if err := ctx.Err(); err != nil {
			return collated, err
		}
		docs, err := c.store.IncomingDocuments(ctx, feed.Ascending, c.pageSize)
		if err != nil {
			logging.ErrorWithContext(logger, "failed to fetch incoming documents", "collation_fetch_failed",
				logging.Error(err),
				logging.Int("collated", collated),
				logging.String(logging.FieldErrorHint, "check the feed database; the next run resumes where this one stopped"),
			)
			return collated, nil
		}
		if len(docs) == 0 {
			break
		}
		for _, doc := range docs {
			if err := ctx.Err(); err != nil {
				return collated, err
			}
			if err := c.collateDocument(ctx, doc); err != nil {
				return collated, err
			}
			collated++
		}
	}
	if collated > 0 {
		logger.Info("collation complete", logging.Int("documents", collated))
	}
	return collated, nil
}

// collateDocument persists the fragments of doc and archives it. Archival
// only happens after every fragment save succeeded.
func (c *Coordinator) collateDocument(ctx context.Context, doc *feed.Document) error {
	ctx = logging.WithDocument(ctx, doc.Name)
	docLogger := logging.WithContext(ctx, c.logger)
	fragments := c.extractor.Extract(doc)

	collatedAt := c.now().UTC()
	doc.CollatedAt = &collatedAt
	if err := c.store.SaveDocument(ctx, doc); err != nil {
		return fmt.Errorf("save document %s: %w", doc.Name, err)
	}

	for i := range fragments {
		fragment := &fragments[i]
		fragment.PendingProcessing = true
		fragment.StagedAt = collatedAt
		if err := c.store.SaveFragment(ctx, fragment); err != nil {
			return fmt.Errorf("save fragment %s: %w", fragment.ID, err)
		}
	}

	if err := c.store.ArchiveDocument(ctx, doc); err != nil {
		return fmt.Errorf("archive document %s: %w", doc.Name, err)
	}

	if len(fragments) == 0 {
		logging.WarnWithContext(docLogger, "document archived without fragments", "document_without_fragments",
			logging.String(logging.FieldErrorHint, "inspect the raw file; it matched no fragment start pattern"),
			logging.String(logging.FieldImpact, "document listed by the anomalies report"),
		)
		return nil
	}
	docLogger.Debug("document collated", logging.Int("fragments", len(fragments)))
	return nil
}

// Preview extracts the fragments of doc without touching the store. The
// result is ordered by sequence.
func (c *Coordinator) Preview(doc *feed.Document) []feed.Fragment {
	fragments := c.extractor.Extract(doc)
	for i := range fragments {
		fragments[i].PendingProcessing = true
	}
	sort.Slice(fragments, func(i, j int) bool { return fragments[i].Sequence < fragments[j].Sequence })
	return fragments
}
