package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"lawfeed/internal/feed"
	"lawfeed/internal/logging"
	"lawfeed/internal/processor"
)

// CommitteeHandler applies committee membership fragments. Committee names
// arrive upper case and are stored title cased.
type CommitteeHandler struct {
	recorder Recorder
	logger   *slog.Logger
}

// Process records one change per committee in the fragment.
func (h *CommitteeHandler) Process(ctx context.Context, fragment *feed.Fragment) error {
	data, err := decodeSenateData(fragment.Text)
	if err != nil {
		return err
	}
	caser := cases.Title(language.English)
	applied := 0
	for _, set := range data.Committees {
		for _, committee := range set.Committees {
			name := caser.String(strings.TrimSpace(committee.Name))
			if name == "" {
				continue
			}
			key := fmt.Sprintf("senate/%s/%s", strings.TrimSpace(set.SessionYear), name)
			if err := record(ctx, h.recorder, fragment, "committee", key, committeeDetail(committee)); err != nil {
				return err
			}
			applied++
		}
	}
	if applied == 0 {
		return processor.Reject("committee fragment %s names no committee", fragment.ID)
	}
	logging.WithContext(ctx, h.logger).Debug("committee fragment applied",
		logging.String(logging.FieldFragmentID, fragment.ID),
		logging.Int("committees", applied),
	)
	return nil
}

func committeeDetail(committee committeeXML) string {
	parts := []string{fmt.Sprintf("members=%d", len(committee.Members))}
	if chair := chairOf(committee.Members); chair != "" {
		parts = append(parts, "chair="+chair)
	}
	if meets := strings.TrimSpace(strings.TrimSpace(committee.MeetDay) + " " + strings.TrimSpace(committee.MeetTime)); meets != "" {
		parts = append(parts, "meets="+meets)
	}
	if location := strings.TrimSpace(committee.Location); location != "" {
		parts = append(parts, "location="+location)
	}
	return strings.Join(parts, " ")
}

func chairOf(members []memberXML) string {
	for _, member := range members {
		if strings.EqualFold(strings.TrimSpace(member.Title), "chairperson") {
			return strings.TrimSpace(member.Name)
		}
	}
	return ""
}
