package dispatch_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"testing"
	"time"

	"lawfeed/internal/dispatch"
	"lawfeed/internal/feed"
	"lawfeed/internal/processor"
	"lawfeed/internal/processor/handlers"
	"lawfeed/internal/store"
	"lawfeed/internal/testsupport"
)

// memStore is an in-memory dispatch.Store.
type memStore struct {
	fragments map[string]*feed.Fragment
	saves     int
}

func newMemStore(fragments ...feed.Fragment) *memStore {
	s := &memStore{fragments: make(map[string]*feed.Fragment)}
	for i := range fragments {
		f := fragments[i]
		s.fragments[f.ID] = &f
	}
	return s
}

func (s *memStore) PendingFragments(_ context.Context, _ feed.SortOrder, limit int) ([]*feed.Fragment, error) {
	var out []*feed.Fragment
	for _, f := range s.fragments {
		if f.PendingProcessing {
			copied := *f
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].PublishedAt.Equal(out[j].PublishedAt) {
			return out[i].PublishedAt.Before(out[j].PublishedAt)
		}
		if out[i].DocumentName != out[j].DocumentName {
			return out[i].DocumentName < out[j].DocumentName
		}
		return out[i].Sequence < out[j].Sequence
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *memStore) SaveFragment(_ context.Context, fragment *feed.Fragment) error {
	s.saves++
	copied := *fragment
	s.fragments[fragment.ID] = &copied
	return nil
}

func (s *memStore) FragmentByID(_ context.Context, id string) (*feed.Fragment, error) {
	f, ok := s.fragments[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", store.ErrFragmentNotFound, id)
	}
	copied := *f
	return &copied, nil
}

func pending(doc string, offset time.Duration, fragmentType feed.FragmentType, seq int) feed.Fragment {
	d := &feed.Document{Name: doc, PublishedAt: time.Date(2013, 1, 10, 0, 0, 0, 0, time.UTC).Add(offset)}
	f := feed.NewFragment(d, fragmentType, "payload", seq)
	f.PendingProcessing = true
	return f
}

// recordingRegistry builds a registry whose handlers append the ids they see.
func recordingRegistry(seen *[]string, types ...feed.FragmentType) *processor.Registry {
	handler := processor.HandlerFunc(func(_ context.Context, fragment *feed.Fragment) error {
		*seen = append(*seen, fragment.ID)
		return nil
	})
	m := make(map[feed.FragmentType]processor.Handler)
	for _, t := range types {
		m[t] = handler
	}
	return processor.NewRegistry(m)
}

func TestDispatchPendingOrderAndMarking(t *testing.T) {
	st := newMemStore(
		pending("b", time.Hour, feed.TypeCalendar, 1),
		pending("a", 0, feed.TypeCalendar, 2),
		pending("a", 0, feed.TypeBill, 0),
		pending("a", 0, feed.TypeCommittee, 1),
	)
	var seen []string
	registry := recordingRegistry(&seen, feed.TypeBill, feed.TypeCalendar, feed.TypeCommittee)
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	coordinator := dispatch.New(st, registry, nil, dispatch.WithPageSize(2), dispatch.WithClock(func() time.Time { return now }))

	summary, err := coordinator.DispatchPending(context.Background())
	if err != nil {
		t.Fatalf("DispatchPending returned error: %v", err)
	}
	want := []string{"a-0-BILL", "a-1-COMMITTEE", "a-2-CALENDAR", "b-1-CALENDAR"}
	if strings.Join(seen, ",") != strings.Join(want, ",") {
		t.Fatalf("dispatch order %v, want %v", seen, want)
	}
	if summary.Handled != 4 || summary.Batches != 2 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	for id, f := range st.fragments {
		if f.PendingProcessing || f.ProcessedCount != 1 || f.ProcessedAt == nil || !f.ProcessedAt.Equal(now) {
			t.Fatalf("fragment %s not marked processed: %+v", id, f)
		}
	}
}

func TestDispatchUnhandledMarkProcessed(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	st := newMemStore(pending("a", 0, feed.TypeAgenda, 1))
	coordinator := dispatch.New(st, processor.NewRegistry(nil), logger)

	summary, err := coordinator.DispatchPending(context.Background())
	if err != nil {
		t.Fatalf("DispatchPending returned error: %v", err)
	}
	if summary.Unhandled != 1 || summary.LeftPending != 0 || summary.Cleared() != 1 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	f := st.fragments["a-1-AGENDA"]
	if f.PendingProcessing || f.ProcessedCount != 1 {
		t.Fatalf("unhandled fragment should be marked processed: %+v", f)
	}
	if !strings.Contains(buf.String(), `"event_type":"fragment_unhandled"`) || !strings.Contains(buf.String(), `"level":"ERROR"`) {
		t.Fatalf("expected error-level fragment_unhandled log, got %s", buf.String())
	}
}

func TestDispatchUnhandledLeavePendingTerminates(t *testing.T) {
	st := newMemStore(
		pending("a", 0, feed.TypeAgenda, 1),
		pending("a", 0, feed.TypeAnnotation, 2),
		pending("a", 0, feed.TypeCalendar, 3),
	)
	var seen []string
	registry := recordingRegistry(&seen, feed.TypeCalendar)
	coordinator := dispatch.New(st, registry, nil,
		dispatch.WithPageSize(1),
		dispatch.WithUnhandledPolicy(dispatch.LeavePending),
	)

	summary, err := coordinator.DispatchPending(context.Background())
	if err != nil {
		t.Fatalf("DispatchPending returned error: %v", err)
	}
	if summary.Unhandled != 2 || summary.Handled != 1 || summary.LeftPending != 2 || summary.Cleared() != 1 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	for _, id := range []string{"a-1-AGENDA", "a-2-ANNOTATION"} {
		f := st.fragments[id]
		if !f.PendingProcessing || f.ProcessedCount != 1 || f.ProcessedAt != nil {
			t.Fatalf("fragment %s should stay pending with one attempt: %+v", id, f)
		}
	}
	if f := st.fragments["a-3-CALENDAR"]; f.PendingProcessing {
		t.Fatalf("handled fragment still pending: %+v", f)
	}

	again, err := coordinator.DispatchPending(context.Background())
	if err != nil {
		t.Fatalf("second DispatchPending returned error: %v", err)
	}
	if again.Unhandled != 2 || again.Cleared() != 0 || st.fragments["a-1-AGENDA"].ProcessedCount != 2 {
		t.Fatalf("second run should retry unhandled fragments: %+v", again)
	}
}

func TestDispatchHandlerErrorStopsAndLeavesPending(t *testing.T) {
	st := newMemStore(
		pending("a", 0, feed.TypeBill, 0),
		pending("a", 0, feed.TypeCalendar, 1),
	)
	boom := errors.New("downstream unavailable")
	calls := 0
	registry := processor.NewRegistry(map[feed.FragmentType]processor.Handler{
		feed.TypeBill: processor.HandlerFunc(func(context.Context, *feed.Fragment) error {
			calls++
			return boom
		}),
		feed.TypeCalendar: processor.HandlerFunc(func(context.Context, *feed.Fragment) error {
			calls++
			return nil
		}),
	})
	coordinator := dispatch.New(st, registry, nil)

	_, err := coordinator.DispatchPending(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("expected handler error, got %v", err)
	}
	if !strings.Contains(err.Error(), "a-0-BILL") {
		t.Fatalf("error should name the fragment: %v", err)
	}
	if calls != 1 {
		t.Fatalf("loop should stop at the failing fragment, handler calls=%d", calls)
	}
	f := st.fragments["a-0-BILL"]
	if !f.PendingProcessing || f.ProcessedCount != 0 {
		t.Fatalf("failed fragment must be untouched: %+v", f)
	}
}

func TestDispatchRejectedFragmentIsRecorded(t *testing.T) {
	st := newMemStore(pending("a", 0, feed.TypeCalendar, 1), pending("a", 0, feed.TypeCalendar, 2))
	registry := processor.NewRegistry(map[feed.FragmentType]processor.Handler{
		feed.TypeCalendar: processor.HandlerFunc(func(_ context.Context, f *feed.Fragment) error {
			if f.Sequence == 1 {
				return processor.Reject("bad payload")
			}
			return nil
		}),
	})
	summary, err := dispatch.New(st, registry, nil).DispatchPending(context.Background())
	if err != nil {
		t.Fatalf("DispatchPending returned error: %v", err)
	}
	if summary.Rejected != 1 || summary.Handled != 1 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if f := st.fragments["a-1-CALENDAR"]; f.PendingProcessing || f.ProcessedCount != 1 {
		t.Fatalf("rejected fragment should be marked processed: %+v", f)
	}
}

func TestDispatchHandlerTimeout(t *testing.T) {
	st := newMemStore(pending("a", 0, feed.TypeBill, 0))
	registry := processor.NewRegistry(map[feed.FragmentType]processor.Handler{
		feed.TypeBill: processor.HandlerFunc(func(ctx context.Context, _ *feed.Fragment) error {
			if _, ok := ctx.Deadline(); !ok {
				return errors.New("expected deadline")
			}
			return nil
		}),
	})
	coordinator := dispatch.New(st, registry, nil, dispatch.WithHandlerTimeout(time.Second))
	if _, err := coordinator.DispatchPending(context.Background()); err != nil {
		t.Fatalf("DispatchPending returned error: %v", err)
	}
}

func TestDispatchOneAndSetPending(t *testing.T) {
	done := pending("a", 0, feed.TypeBill, 0)
	done.MarkProcessed(time.Now())
	st := newMemStore(done)
	var seen []string
	coordinator := dispatch.New(st, recordingRegistry(&seen, feed.TypeBill), nil)
	ctx := context.Background()

	if _, err := coordinator.DispatchOne(ctx, "missing", false); !errors.Is(err, dispatch.ErrNotFound) || !errors.Is(err, store.ErrFragmentNotFound) {
		t.Fatalf("expected ErrNotFound wrapping store.ErrFragmentNotFound, got %v", err)
	}

	fragment, err := coordinator.DispatchOne(ctx, "a-0-BILL", true)
	if err != nil {
		t.Fatalf("DispatchOne returned error: %v", err)
	}
	if len(seen) != 1 || fragment.ProcessedCount != 2 || fragment.PendingProcessing {
		t.Fatalf("unexpected retry result: seen=%v fragment=%+v", seen, fragment)
	}

	if _, err := coordinator.SetPending(ctx, "a-0-BILL", true); err != nil {
		t.Fatalf("SetPending returned error: %v", err)
	}
	if !st.fragments["a-0-BILL"].PendingProcessing {
		t.Fatal("SetPending did not persist the flag")
	}
	if _, err := coordinator.SetPending(ctx, "missing", true); !errors.Is(err, dispatch.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDispatchWithSQLiteAndBuiltInHandlers(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	published := time.Date(2013, 1, 10, 0, 0, 0, 0, time.UTC)
	testsupport.SaveFragment(t, st, "doc", published, feed.TypeBill, 0, "2013S12345 1Sponsor\n")
	testsupport.SaveFragment(t, st, "doc", published, feed.TypeCalendar, 1,
		"<?xml version='1.0' encoding='UTF-8'?>\n<SENATEDATA>\n<sencalendar no=\"1\" sessyr=\"2013\">\n</sencalendar>\n</SENATEDATA>")
	testsupport.SaveFragment(t, st, "doc", published, feed.TypeAgenda, 2, "<senagenda/>")

	coordinator := dispatch.New(st, handlers.Default(st, nil), nil)
	summary, err := coordinator.DispatchPending(ctx)
	if err != nil {
		t.Fatalf("DispatchPending returned error: %v", err)
	}
	if summary.Handled != 2 || summary.Unhandled != 1 {
		t.Fatalf("unexpected summary %+v", summary)
	}

	left, err := st.PendingFragments(ctx, feed.Ascending, 0)
	if err != nil {
		t.Fatalf("PendingFragments failed: %v", err)
	}
	if len(left) != 0 {
		t.Fatalf("expected no pending fragments, got %d", len(left))
	}

	changes, err := st.RecordChanges(ctx, "")
	if err != nil {
		t.Fatalf("RecordChanges failed: %v", err)
	}
	if len(changes) != 2 || changes[0].Key != "2013S12345" || changes[1].Key != "2013/1" {
		t.Fatalf("unexpected record changes: %+v", changes)
	}
}
