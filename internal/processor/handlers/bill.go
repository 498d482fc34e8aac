package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"lawfeed/internal/feed"
	"lawfeed/internal/logging"
	"lawfeed/internal/processor"
)

// BillHandler applies merged bill fragments. Lines are grouped by bill print
// number; each bill touched by the fragment yields one change.
type BillHandler struct {
	recorder Recorder
	logger   *slog.Logger
}

type billLines struct {
	printID string
	count   int
	types   []byte
}

// Process records one change per bill referenced by the fragment.
func (h *BillHandler) Process(ctx context.Context, fragment *feed.Fragment) error {
	bills := groupBillLines(fragment.Text)
	if len(bills) == 0 {
		return processor.Reject("bill fragment %s has no bill lines", fragment.ID)
	}
	for _, bill := range bills {
		detail := fmt.Sprintf("lines=%d types=%s", bill.count, joinTypes(bill.types))
		if err := record(ctx, h.recorder, fragment, "bill", bill.printID, detail); err != nil {
			return err
		}
	}
	logging.WithContext(ctx, h.logger).Debug("bill fragment applied",
		logging.String(logging.FieldFragmentID, fragment.ID),
		logging.Int("bills", len(bills)),
	)
	return nil
}

func groupBillLines(text string) []*billLines {
	var (
		ordered []*billLines
		index   = make(map[string]*billLines)
	)
	for _, line := range strings.Split(text, "\n") {
		if fragmentType, ok := feed.Classify(line); !ok || !fragmentType.IsPrimary() {
			continue
		}
		printID := feed.BillPrintID(line)
		bill, ok := index[printID]
		if !ok {
			bill = &billLines{printID: printID}
			index[printID] = bill
			ordered = append(ordered, bill)
		}
		bill.count++
		lineType := feed.LineType(line)
		if !containsByte(bill.types, lineType) {
			bill.types = append(bill.types, lineType)
		}
	}
	return ordered
}

func containsByte(values []byte, b byte) bool {
	for _, v := range values {
		if v == b {
			return true
		}
	}
	return false
}

func joinTypes(types []byte) string {
	parts := make([]string, 0, len(types))
	for _, t := range types {
		parts = append(parts, string(t))
	}
	return strings.Join(parts, ",")
}
