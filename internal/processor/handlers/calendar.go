package handlers

import (
	"context"
	"fmt"
	"log/slog"

	"lawfeed/internal/feed"
	"lawfeed/internal/logging"
	"lawfeed/internal/processor"
)

// CalendarHandler applies floor calendar fragments.
type CalendarHandler struct {
	recorder Recorder
	logger   *slog.Logger
}

// Process records one change per calendar in the fragment.
func (h *CalendarHandler) Process(ctx context.Context, fragment *feed.Fragment) error {
	data, err := decodeSenateData(fragment.Text)
	if err != nil {
		return err
	}
	if len(data.Calendars) == 0 {
		return processor.Reject("calendar fragment %s has no sencalendar element", fragment.ID)
	}
	for _, calendar := range data.Calendars {
		key := fmt.Sprintf("%s/%s", sessionOf(calendar.SessionYear, calendar.Year), calendar.Number)
		detail := fmt.Sprintf("supplementals=%d", len(calendar.Supplementals))
		if err := record(ctx, h.recorder, fragment, "calendar", key, detail); err != nil {
			return err
		}
		logging.WithContext(ctx, h.logger).Debug("calendar applied",
			logging.String(logging.FieldFragmentID, fragment.ID),
			logging.String("calendar", key),
		)
	}
	return nil
}

// ActiveListHandler applies active list fragments.
type ActiveListHandler struct {
	recorder Recorder
	logger   *slog.Logger
}

// Process records one change per active list in the fragment.
func (h *ActiveListHandler) Process(ctx context.Context, fragment *feed.Fragment) error {
	data, err := decodeSenateData(fragment.Text)
	if err != nil {
		return err
	}
	if len(data.ActiveLists) == 0 {
		return processor.Reject("active list fragment %s has no sencalendaractive element", fragment.ID)
	}
	for _, list := range data.ActiveLists {
		key := fmt.Sprintf("%s/%s", sessionOf(list.SessionYear, list.Year), list.Number)
		detail := fmt.Sprintf("sequences=%d", len(list.Sequences))
		if err := record(ctx, h.recorder, fragment, "active_list", key, detail); err != nil {
			return err
		}
		logging.WithContext(ctx, h.logger).Debug("active list applied",
			logging.String(logging.FieldFragmentID, fragment.ID),
			logging.String("active_list", key),
		)
	}
	return nil
}
