package handlers

import (
	"context"
	"log/slog"

	"lawfeed/internal/feed"
	"lawfeed/internal/logging"
	"lawfeed/internal/processor"
	"lawfeed/internal/store"
)

// Recorder persists handler effects.
type Recorder interface {
	RecordChange(ctx context.Context, change *store.RecordChange) error
}

// Default returns the built-in registry: bill, calendar, active list and
// committee fragments. Agenda, agenda vote and annotation fragments have no
// built-in handler.
func Default(recorder Recorder, logger *slog.Logger) *processor.Registry {
	logger = logging.NewComponentLogger(logger, "handlers")
	return processor.NewRegistry(map[feed.FragmentType]processor.Handler{
		feed.TypeBill:           &BillHandler{recorder: recorder, logger: logger},
		feed.TypeCalendar:       &CalendarHandler{recorder: recorder, logger: logger},
		feed.TypeCalendarActive: &ActiveListHandler{recorder: recorder, logger: logger},
		feed.TypeCommittee:      &CommitteeHandler{recorder: recorder, logger: logger},
	})
}

func record(ctx context.Context, recorder Recorder, fragment *feed.Fragment, kind, key, detail string) error {
	return recorder.RecordChange(ctx, &store.RecordChange{
		FragmentID: fragment.ID,
		Kind:       kind,
		Key:        key,
		Detail:     detail,
	})
}
