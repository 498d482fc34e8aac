package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"lawfeed/internal/charset"
	"lawfeed/internal/config"
	"lawfeed/internal/feed"
	"lawfeed/internal/fileutil"
	"lawfeed/internal/logging"
	"lawfeed/internal/store"
)

// Store stages documents.
type Store interface {
	StageDocument(ctx context.Context, doc *feed.Document) error
}

// Result counts the outcome of one ingestion pass.
type Result struct {
	Staged     int
	Duplicates int
	Failed     int
}

// Ingester moves feed files from the incoming directory into the store.
type Ingester struct {
	store       Store
	incomingDir string
	archiveDir  string
	encoding    string
	patterns    []string
	logger      *slog.Logger
}

// New constructs an Ingester from configuration.
func New(cfg *config.Config, store Store, logger *slog.Logger) *Ingester {
	return &Ingester{
		store:       store,
		incomingDir: cfg.Paths.IncomingDir,
		archiveDir:  cfg.Paths.ArchiveDir,
		encoding:    cfg.Feed.DefaultEncoding,
		patterns:    cfg.Feed.FilePatterns,
		logger:      logging.NewComponentLogger(logger, "ingest"),
	}
}

type candidate struct {
	path        string
	name        string
	publishedAt time.Time
}

// IngestAll stages every matching file in the incoming directory, oldest
// publication first. A file that cannot be read or decoded is logged and
// left in place; a store failure aborts the pass.
func (i *Ingester) IngestAll(ctx context.Context) (Result, error) {
	var result Result
	candidates, err := i.scan()
	if err != nil {
		return result, err
	}
	for _, c := range candidates {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		fileLogger := i.logger.With(logging.String(logging.FieldDocument, c.name))
		doc, err := LoadDocument(c.path, i.encoding, c.publishedAt)
		if err != nil {
			result.Failed++
			logging.WarnWithContext(fileLogger, "feed file skipped", "ingest_decode_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check feed.default_encoding or remove the file"),
				logging.String(logging.FieldImpact, "file stays in the incoming directory"),
			)
			continue
		}

		stageErr := i.store.StageDocument(ctx, doc)
		switch {
		case stageErr == nil:
			if err := i.archive(c.path, filepath.Join(i.archiveDir, strconv.Itoa(doc.PublishedAt.Year()), c.name)); err != nil {
				return result, err
			}
			result.Staged++
			fileLogger.Debug("feed file staged", logging.Time("published_at", doc.PublishedAt))
		case errors.Is(stageErr, store.ErrDocumentExists):
			if err := i.archive(c.path, filepath.Join(i.archiveDir, "duplicates", c.name)); err != nil {
				return result, err
			}
			result.Duplicates++
			logging.WarnWithContext(fileLogger, "feed file already staged", "duplicate_document",
				logging.String(logging.FieldErrorHint, "the earlier copy was kept"),
				logging.String(logging.FieldImpact, "file moved to archive/duplicates"),
			)
		default:
			return result, fmt.Errorf("stage %s: %w", c.name, stageErr)
		}
	}
	if result.Staged > 0 || result.Duplicates > 0 {
		i.logger.Info("ingest complete",
			logging.Int("staged", result.Staged),
			logging.Int("duplicates", result.Duplicates),
			logging.Int("failed", result.Failed),
		)
	}
	return result, nil
}

func (i *Ingester) scan() ([]candidate, error) {
	entries, err := os.ReadDir(i.incomingDir)
	if err != nil {
		return nil, fmt.Errorf("read incoming directory: %w", err)
	}
	var candidates []candidate
	for _, entry := range entries {
		if entry.IsDir() || !i.matches(entry.Name()) {
			continue
		}
		c := candidate{path: filepath.Join(i.incomingDir, entry.Name()), name: entry.Name()}
		if published, ok := PublishedAt(entry.Name()); ok {
			c.publishedAt = published
		} else if info, err := entry.Info(); err == nil {
			c.publishedAt = info.ModTime().UTC()
		}
		candidates = append(candidates, c)
	}
	sort.Slice(candidates, func(a, b int) bool {
		if !candidates[a].publishedAt.Equal(candidates[b].publishedAt) {
			return candidates[a].publishedAt.Before(candidates[b].publishedAt)
		}
		return candidates[a].name < candidates[b].name
	})
	return candidates, nil
}

func (i *Ingester) matches(name string) bool {
	if len(i.patterns) == 0 {
		return true
	}
	for _, pattern := range i.patterns {
		if ok, _ := filepath.Match(pattern, name); ok {
			return true
		}
	}
	return false
}

func (i *Ingester) archive(src, dst string) error {
	if err := fileutil.MoveFile(src, fileutil.UniquePath(dst)); err != nil {
		return fmt.Errorf("archive %s: %w", filepath.Base(src), err)
	}
	return nil
}

// LoadDocument reads and decodes a feed file. A zero publishedAt is derived
// from the file name, then from the modification time.
func LoadDocument(path, encoding string, publishedAt time.Time) (*feed.Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read feed file: %w", err)
	}
	text, err := charset.Decode(raw, encoding)
	if err != nil {
		return nil, err
	}
	name := filepath.Base(path)
	if publishedAt.IsZero() {
		if parsed, ok := PublishedAt(name); ok {
			publishedAt = parsed
		} else if info, err := os.Stat(path); err == nil {
			publishedAt = info.ModTime().UTC()
		}
	}
	return &feed.Document{
		Name:        name,
		PublishedAt: publishedAt,
		Encoding:    charset.Canonical(encoding),
		Text:        text,
	}, nil
}
