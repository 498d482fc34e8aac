package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"lawfeed/internal/collate"
	"lawfeed/internal/config"
	"lawfeed/internal/dispatch"
	"lawfeed/internal/feed"
	"lawfeed/internal/ingest"
	"lawfeed/internal/logging"
	"lawfeed/internal/processor"
	"lawfeed/internal/processor/handlers"
	"lawfeed/internal/runlock"
	"lawfeed/internal/store"
	"lawfeed/internal/workflow"
)

// Daemon coordinates the processing lanes and enforces single-instance execution.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *store.Store
	workflow *workflow.Manager
	runID    string

	lockPath string
	lock     *runlock.Lock

	running atomic.Bool
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	RunID        string
	Workflow     workflow.StatusSummary
	Stats        store.Stats
	DatabasePath string
	LockFilePath string
}

// New constructs a daemon with the standard lanes: ingest and collation,
// then dispatch through the built-in handlers.
func New(cfg *config.Config, st *store.Store, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || st == nil {
		return nil, errors.New("daemon requires config and store")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	runID := uuid.NewString()
	logger = logger.With(logging.String("run_id", runID))

	registry := Registry(cfg, st, logger)
	manager := workflow.NewManager(cfg, logger,
		workflow.CollationLane(cfg, ingest.New(cfg, st, logger), collate.New(st, logger, collate.WithPageSize(cfg.Collate.PageSize))),
		workflow.DispatchLane(cfg, NewDispatcher(cfg, st, registry, logger)),
	)
	return &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    st,
		workflow: manager,
		runID:    runID,
		lockPath: cfg.LockPath(runlock.Daemon),
	}, nil
}

// Registry returns the built-in handler registry minus the types disabled in configuration.
func Registry(cfg *config.Config, st *store.Store, logger *slog.Logger) *processor.Registry {
	registry := handlers.Default(st, logger)
	if len(cfg.Dispatch.DisabledTypes) == 0 {
		return registry
	}
	var disabled []feed.FragmentType
	for _, name := range cfg.Dispatch.DisabledTypes {
		if fragmentType, err := feed.ParseFragmentType(name); err == nil {
			disabled = append(disabled, fragmentType)
		}
	}
	return registry.Without(disabled...)
}

// NewDispatcher builds a dispatch coordinator from configuration.
func NewDispatcher(cfg *config.Config, st dispatch.Store, registry *processor.Registry, logger *slog.Logger) *dispatch.Coordinator {
	return dispatch.New(st, registry, logger,
		dispatch.WithPageSize(cfg.Dispatch.PageSize),
		dispatch.WithUnhandledPolicy(dispatch.UnhandledPolicy(cfg.Dispatch.UnhandledPolicy)),
		dispatch.WithHandlerTimeout(cfg.HandlerTimeout()),
	)
}

// Start acquires the daemon lock and launches the lanes.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	lock, err := runlock.Acquire(d.lockPath)
	if errors.Is(err, runlock.ErrLocked) {
		return errors.New("another lawfeed daemon instance is already running")
	}
	if err != nil {
		return err
	}

	if d.cfg.Logging.RetentionDays > 0 {
		removed := logging.PruneRunLogs(d.logger, d.cfg.Paths.LogDir, d.cfg.Logging.RetentionDays, time.Now())
		if removed > 0 {
			d.logger.Info("old logs pruned", logging.Int("removed", removed))
		}
	}

	runCtx, cancel := context.WithCancel(ctx)
	if err := d.workflow.Start(runCtx); err != nil {
		cancel()
		_ = lock.Release()
		return fmt.Errorf("start workflow: %w", err)
	}

	d.lock = lock
	d.cancel = cancel
	d.running.Store(true)
	d.logger.Info("lawfeed daemon started",
		logging.String("lock", d.lockPath),
		logging.String("database", d.store.Path()),
	)
	return nil
}

// Stop stops background processing and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.workflow.Stop()
	if err := d.lock.Release(); err != nil {
		logging.WarnWithContext(d.logger, "failed to release daemon lock", "lock_release_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "remove the lock file if no daemon is running"),
			logging.String(logging.FieldImpact, "next start may report a running instance"),
		)
	}
	d.lock = nil
	d.running.Store(false)
	d.logger.Info("lawfeed daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	stats, err := d.store.Stats(ctx)
	if err != nil {
		d.logger.Warn("failed to read store stats", logging.Error(err))
	}
	return Status{
		Running:      d.running.Load(),
		RunID:        d.runID,
		Workflow:     d.workflow.Status(),
		Stats:        stats,
		DatabasePath: d.store.Path(),
		LockFilePath: d.lockPath,
	}
}
