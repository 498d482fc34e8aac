package workflow

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"lawfeed/internal/config"
	"lawfeed/internal/logging"
	"lawfeed/internal/runlock"
)

// PassFunc runs one pass of a lane and reports how much work it did.
type PassFunc func(ctx context.Context) (int, error)

// Lane describes one processing loop.
type Lane struct {
	Name         string
	LockPath     string
	PollInterval time.Duration
	Pass         PassFunc
}

// LaneStatus is a snapshot of one lane.
type LaneStatus struct {
	Name      string
	Passes    int
	LastRun   time.Time
	LastWork  int
	LastError string
	Skipped   int
}

// StatusSummary represents lightweight workflow diagnostics.
type StatusSummary struct {
	Running bool
	Lanes   []LaneStatus
}

type laneState struct {
	lane   Lane
	logger *slog.Logger
	status LaneStatus
}

// Manager coordinates the processing lanes.
type Manager struct {
	logger     *slog.Logger
	retryDelay time.Duration
	lanes      []*laneState

	mu      sync.RWMutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewManager constructs a manager for the given lanes.
func NewManager(cfg *config.Config, logger *slog.Logger, lanes ...Lane) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	m := &Manager{
		logger:     logger,
		retryDelay: time.Duration(cfg.Workflow.ErrorRetryInterval) * time.Second,
	}
	for _, lane := range lanes {
		m.lanes = append(m.lanes, &laneState{lane: lane, status: LaneStatus{Name: lane.Name}})
	}
	return m
}

// Start begins background processing.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return errors.New("workflow already running")
	}
	if len(m.lanes) == 0 {
		m.mu.Unlock()
		return errors.New("workflow lanes not configured")
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true
	for _, lane := range m.lanes {
		lane.logger = m.laneLogger(lane)
	}
	m.wg.Add(len(m.lanes))
	m.mu.Unlock()

	for _, lane := range m.lanes {
		go m.runLane(runCtx, lane)
	}
	return nil
}

// Stop terminates background processing and waits for completion.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
}

// Status returns the latest lane information.
func (m *Manager) Status() StatusSummary {
	m.mu.RLock()
	defer m.mu.RUnlock()
	summary := StatusSummary{Running: m.running}
	for _, lane := range m.lanes {
		summary.Lanes = append(summary.Lanes, lane.status)
	}
	return summary
}

func (m *Manager) laneLogger(lane *laneState) *slog.Logger {
	return m.logger.With(
		logging.String(logging.FieldComponent, "workflow"),
		logging.String(logging.FieldLane, lane.lane.Name),
	)
}

func (m *Manager) runLane(ctx context.Context, lane *laneState) {
	defer m.wg.Done()
	logger := lane.logger

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		work, err := m.runPass(ctx, lane)
		switch {
		case errors.Is(err, context.Canceled):
			return
		case errors.Is(err, runlock.ErrLocked):
			logger.Debug("lane pass skipped; coordinator busy elsewhere")
			m.wait(ctx, lane.lane.PollInterval)
		case err != nil:
			m.handlePassError(ctx, logger, err)
		case work == 0:
			m.wait(ctx, lane.lane.PollInterval)
		}
	}
}

func (m *Manager) runPass(ctx context.Context, lane *laneState) (int, error) {
	var work int
	err := runlock.With(lane.lane.LockPath, func() error {
		var passErr error
		work, passErr = lane.lane.Pass(logging.WithLane(ctx, lane.lane.Name))
		return passErr
	})

	m.mu.Lock()
	defer m.mu.Unlock()
	if errors.Is(err, runlock.ErrLocked) {
		lane.status.Skipped++
		return 0, err
	}
	lane.status.Passes++
	lane.status.LastRun = time.Now()
	lane.status.LastWork = work
	lane.status.LastError = ""
	if err != nil {
		lane.status.LastError = err.Error()
	}
	return work, err
}

func (m *Manager) handlePassError(ctx context.Context, logger *slog.Logger, err error) {
	logging.ErrorWithContext(logger, "lane pass failed", "lane_pass_failed",
		logging.Error(err),
		logging.Duration("retry_in", m.retryDelay),
		logging.String(logging.FieldErrorHint, "check the feed database and handler logs"),
	)
	m.wait(ctx, m.retryDelay)
}

func (m *Manager) wait(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
