package workflow

import (
	"context"
	"fmt"
	"time"

	"lawfeed/internal/collate"
	"lawfeed/internal/config"
	"lawfeed/internal/dispatch"
	"lawfeed/internal/ingest"
	"lawfeed/internal/runlock"
)

// Lane names.
const (
	LaneCollation = "collation"
	LaneDispatch  = "dispatch"
)

// CollationLane ingests new feed files and collates incoming documents.
func CollationLane(cfg *config.Config, ingester *ingest.Ingester, collator *collate.Coordinator) Lane {
	return Lane{
		Name:         LaneCollation,
		LockPath:     cfg.LockPath(runlock.Collate),
		PollInterval: time.Duration(cfg.Collate.PollInterval) * time.Second,
		Pass: func(ctx context.Context) (int, error) {
			staged := 0
			if ingester != nil {
				result, err := ingester.IngestAll(ctx)
				if err != nil {
					return result.Staged, fmt.Errorf("ingest: %w", err)
				}
				staged = result.Staged
			}
			collated, err := collator.CollateAll(ctx)
			if err != nil {
				return staged + collated, fmt.Errorf("collate: %w", err)
			}
			return staged + collated, nil
		},
	}
}

// DispatchLane dispatches pending fragments. Fragments left pending by the
// leave_pending policy do not count as work, so the lane sleeps between
// passes instead of retrying them in a tight loop.
func DispatchLane(cfg *config.Config, dispatcher *dispatch.Coordinator) Lane {
	return Lane{
		Name:         LaneDispatch,
		LockPath:     cfg.LockPath(runlock.Dispatch),
		PollInterval: time.Duration(cfg.Dispatch.PollInterval) * time.Second,
		Pass: func(ctx context.Context) (int, error) {
			summary, err := dispatcher.DispatchPending(ctx)
			if err != nil {
				return summary.Cleared(), fmt.Errorf("dispatch: %w", err)
			}
			return summary.Cleared(), nil
		},
	}
}
