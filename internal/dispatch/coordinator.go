package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"lawfeed/internal/feed"
	"lawfeed/internal/logging"
	"lawfeed/internal/processor"
	"lawfeed/internal/store"
)

// DefaultPageSize bounds the number of fragments fetched per batch.
const DefaultPageSize = 100

// ErrNotFound is returned when a fragment id is unknown to the store.
var ErrNotFound = errors.New("fragment not found")

// UnhandledPolicy decides what happens to fragments whose type has no handler.
type UnhandledPolicy string

const (
	// MarkProcessed records the attempt and clears the pending flag.
	MarkProcessed UnhandledPolicy = "mark_processed"
	// LeavePending records the attempt but keeps the fragment pending.
	LeavePending UnhandledPolicy = "leave_pending"
)

// Store is the persistence the dispatch lane needs.
type Store interface {
	PendingFragments(ctx context.Context, order feed.SortOrder, limit int) ([]*feed.Fragment, error)
	SaveFragment(ctx context.Context, fragment *feed.Fragment) error
	FragmentByID(ctx context.Context, id string) (*feed.Fragment, error)
}

// Summary counts the outcome of one dispatch run.
type Summary struct {
	Handled   int
	Unhandled int
	Rejected  int
	Batches   int
	// LeftPending counts unhandled fragments kept pending by LeavePending.
	LeftPending int
}

// Total reports every fragment attempted.
func (s Summary) Total() int {
	return s.Handled + s.Unhandled + s.Rejected
}

// Cleared reports the fragments this run took off the pending queue.
func (s Summary) Cleared() int {
	return s.Total() - s.LeftPending
}

// Coordinator dispatches pending fragments.
type Coordinator struct {
	store          Store
	registry       *processor.Registry
	policy         UnhandledPolicy
	pageSize       int
	handlerTimeout time.Duration
	logger         *slog.Logger
	now            func() time.Time
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

// WithUnhandledPolicy selects the policy for fragments without a handler.
func WithUnhandledPolicy(policy UnhandledPolicy) Option {
	return func(c *Coordinator) {
		if policy != "" {
			c.policy = policy
		}
	}
}

// WithHandlerTimeout bounds each handler call. Zero disables the deadline.
func WithHandlerTimeout(timeout time.Duration) Option {
	return func(c *Coordinator) {
		c.handlerTimeout = timeout
	}
}

// WithClock overrides the clock used to stamp processed fragments.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) {
		if now != nil {
			c.now = now
		}
	}
}

// New constructs a Coordinator.
func New(store Store, registry *processor.Registry, logger *slog.Logger, opts ...Option) *Coordinator {
	c := &Coordinator{
		store:    store,
		registry: registry,
		policy:   MarkProcessed,
		pageSize: DefaultPageSize,
		logger:   logging.NewComponentLogger(logger, "dispatch"),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// DispatchPending dispatches every pending fragment until a batch comes back
// empty. A handler error stops the run; the fragment stays pending and the
// error is returned with the summary so far.
func (c *Coordinator) DispatchPending(ctx context.Context) (Summary, error) {
	ctx = logging.WithCorrelationID(ctx, uuid.NewString())
	logger := logging.WithContext(ctx, c.logger)
	var summary Summary
	// Fragments left pending by LeavePending are skipped for the rest of the
	// run; each fetch over-asks by their count so a full page stays reachable.
	skipped := make(map[string]struct{})
	for {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		batch, err := c.store.PendingFragments(ctx, feed.Ascending, c.pageSize+len(skipped))
		if err != nil {
			return summary, fmt.Errorf("fetch pending fragments: %w", err)
		}
		batch = withoutSkipped(batch, skipped)
		if len(batch) == 0 {
			break
		}
		summary.Batches++
		for _, fragment := range batch {
			if err := ctx.Err(); err != nil {
				return summary, err
			}
			outcome, err := c.dispatch(ctx, logger, fragment)
			if err != nil {
				return summary, err
			}
			summary.add(outcome)
			if outcome == outcomeUnhandled && c.policy == LeavePending {
				skipped[fragment.ID] = struct{}{}
				summary.LeftPending++
			}
		}
	}
	if summary.Total() > 0 {
		logger.Info("dispatch complete",
			logging.Int("handled", summary.Handled),
			logging.Int("unhandled", summary.Unhandled),
			logging.Int("rejected", summary.Rejected),
			logging.Int("batches", summary.Batches),
		)
	}
	return summary, nil
}

// DispatchOne dispatches a single fragment regardless of its pending flag.
// When repending is set the fragment is first re-marked pending and saved,
// so a failing handler leaves it queued for the lane.
func (c *Coordinator) DispatchOne(ctx context.Context, id string, repending bool) (*feed.Fragment, error) {
	fragment, err := c.fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	if repending && !fragment.PendingProcessing {
		fragment.PendingProcessing = true
		if err := c.store.SaveFragment(ctx, fragment); err != nil {
			return nil, fmt.Errorf("re-mark %s pending: %w", id, err)
		}
	}
	if _, err := c.dispatch(ctx, c.logger, fragment); err != nil {
		return fragment, err
	}
	return fragment, nil
}

// SetPending flips the pending flag of one fragment without dispatching it.
func (c *Coordinator) SetPending(ctx context.Context, id string, pending bool) (*feed.Fragment, error) {
	fragment, err := c.fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	fragment.PendingProcessing = pending
	if err := c.store.SaveFragment(ctx, fragment); err != nil {
		return nil, fmt.Errorf("update pending flag of %s: %w", id, err)
	}
	return fragment, nil
}

func (c *Coordinator) fetch(ctx context.Context, id string) (*feed.Fragment, error) {
	fragment, err := c.store.FragmentByID(ctx, id)
	if errors.Is(err, store.ErrFragmentNotFound) {
		return nil, fmt.Errorf("%w: %s: %w", ErrNotFound, id, err)
	}
	if err != nil {
		return nil, fmt.Errorf("fetch fragment %s: %w", id, err)
	}
	return fragment, nil
}

type outcome int

const (
	outcomeHandled outcome = iota
	outcomeUnhandled
	outcomeRejected
)

func (s *Summary) add(o outcome) {
	switch o {
	case outcomeHandled:
		s.Handled++
	case outcomeUnhandled:
		s.Unhandled++
	case outcomeRejected:
		s.Rejected++
	}
}

// dispatch runs the handler for fragment and records the attempt. A
// retryable handler error is returned without touching the fragment.
func (c *Coordinator) dispatch(ctx context.Context, logger *slog.Logger, fragment *feed.Fragment) (outcome, error) {
	fragmentLogger := logger.With(
		logging.String(logging.FieldFragmentID, fragment.ID),
		logging.String(logging.FieldFragmentType, string(fragment.Type)),
	)

	result := outcomeHandled
	handler, ok := c.registry.Resolve(fragment.Type)
	if !ok {
		result = outcomeUnhandled
		logging.ErrorWithContext(fragmentLogger, "no handler registered for fragment type", "fragment_unhandled",
			logging.String("policy", string(c.policy)),
			logging.String(logging.FieldErrorHint, "register a handler for this type or re-dispatch the fragment later"),
		)
	} else if err := c.invoke(ctx, handler, fragment); err != nil {
		if !errors.Is(err, processor.ErrRejected) {
			logging.ErrorWithContext(fragmentLogger, "handler failed; fragment left pending", "fragment_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "fix the cause; the fragment is retried on the next run"),
			)
			return result, fmt.Errorf("dispatch %s: %w", fragment.ID, err)
		}
		result = outcomeRejected
		logging.ErrorWithContext(fragmentLogger, "handler rejected fragment", "fragment_rejected",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "inspect the fragment with 'lawfeed fragments show'"),
		)
	}

	if result == outcomeUnhandled && c.policy == LeavePending {
		fragment.ProcessedCount++
	} else {
		fragment.MarkProcessed(c.now())
	}
	if err := c.store.SaveFragment(ctx, fragment); err != nil {
		return result, fmt.Errorf("save fragment %s: %w", fragment.ID, err)
	}
	if result == outcomeHandled {
		fragmentLogger.Debug("fragment dispatched", logging.Int("attempts", fragment.ProcessedCount))
	}
	return result, nil
}

func (c *Coordinator) invoke(ctx context.Context, handler processor.Handler, fragment *feed.Fragment) error {
	if c.handlerTimeout <= 0 {
		return handler.Process(ctx, fragment)
	}
	callCtx, cancel := context.WithTimeout(ctx, c.handlerTimeout)
	defer cancel()
	return handler.Process(callCtx, fragment)
}

func withoutSkipped(batch []*feed.Fragment, skipped map[string]struct{}) []*feed.Fragment {
	if len(skipped) == 0 {
		return batch
	}
	kept := batch[:0]
	for _, fragment := range batch {
		if _, ok := skipped[fragment.ID]; ok {
			continue
		}
		kept = append(kept, fragment)
	}
	return kept
}
