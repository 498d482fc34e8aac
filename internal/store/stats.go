package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"lawfeed/internal/feed"
)

// TypeCounts splits the fragments of one type by dispatch state.
type TypeCounts struct {
	Pending   int
	Processed int
}

// Stats summarizes store contents for status output.
type Stats struct {
	IncomingDocuments  int
	ArchivedDocuments  int
	PendingFragments   int
	ProcessedFragments int
	RecordChanges      int
	ByType             map[feed.FragmentType]TypeCounts
}

// Stats counts documents by state, fragments by type and dispatch state, and
// recorded changes.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	stats := Stats{ByType: make(map[feed.FragmentType]TypeCounts)}

	docRows, err := s.db.QueryContext(ctx, `SELECT state, COUNT(1) FROM documents GROUP BY state`)
	if err != nil {
		return stats, fmt.Errorf("document stats: %w", err)
	}
	defer docRows.Close()
	for docRows.Next() {
		var (
			state string
			count int
		)
		if err := docRows.Scan(&state, &count); err != nil {
			return stats, err
		}
		switch feed.DocumentState(state) {
		case feed.DocumentIncoming:
			stats.IncomingDocuments = count
		case feed.DocumentArchived:
			stats.ArchivedDocuments = count
		}
	}
	if err := docRows.Err(); err != nil {
		return stats, err
	}

	fragRows, err := s.db.QueryContext(ctx,
		`SELECT fragment_type, pending_processing, COUNT(1) FROM fragments GROUP BY fragment_type, pending_processing`)
	if err != nil {
		return stats, fmt.Errorf("fragment stats: %w", err)
	}
	defer fragRows.Close()
	for fragRows.Next() {
		var (
			fragmentType string
			pending      int64
			count        int
		)
		if err := fragRows.Scan(&fragmentType, &pending, &count); err != nil {
			return stats, err
		}
		counts := stats.ByType[feed.FragmentType(fragmentType)]
		if pending != 0 {
			counts.Pending += count
			stats.PendingFragments += count
		} else {
			counts.Processed += count
			stats.ProcessedFragments += count
		}
		stats.ByType[feed.FragmentType(fragmentType)] = counts
	}
	if err := fragRows.Err(); err != nil {
		return stats, err
	}

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM record_changes`).Scan(&stats.RecordChanges); err != nil {
		return stats, fmt.Errorf("record change stats: %w", err)
	}
	return stats, nil
}

// DatabaseHealth reports diagnostic information about the feed database.
type DatabaseHealth struct {
	DBPath           string
	DatabaseExists   bool
	DatabaseReadable bool
	SchemaVersion    int
	IntegrityCheck   bool
	Error            string
}

// CheckHealth returns diagnostic information about the feed database.
func (s *Store) CheckHealth(ctx context.Context) (DatabaseHealth, error) {
	health := DatabaseHealth{DBPath: s.path}
	if s.path == "" {
		return health, errors.New("feed database path is unknown")
	}

	info, err := os.Stat(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return health, nil
		}
		return health, fmt.Errorf("stat feed database: %w", err)
	}
	if info.IsDir() {
		return health, fmt.Errorf("feed database path %q is a directory", s.path)
	}
	health.DatabaseExists = true

	connCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := s.db.PingContext(connCtx); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("ping feed database: %w", err)
	}
	health.DatabaseReadable = true

	if err := s.db.QueryRowContext(connCtx, "SELECT version FROM schema_version LIMIT 1").Scan(&health.SchemaVersion); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("read schema version: %w", err)
	}

	var integrityResult string
	if err := s.db.QueryRowContext(connCtx, "PRAGMA integrity_check").Scan(&integrityResult); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("integrity check: %w", err)
	}
	health.IntegrityCheck = strings.EqualFold(integrityResult, "ok")
	return health, nil
}
