package extract_test

import (
	"bytes"
	"log/slog"
	"reflect"
	"sort"
	"strings"
	"testing"
	"time"

	"lawfeed/internal/extract"
	"lawfeed/internal/feed"
)

const calendarRecord = "<?xml version='1.0' encoding='UTF-8'?>\n<SENATEDATA>\n<sencalendar no=\"1\" sessyr=\"2013\">\n <supplemental id=\"\">\n</sencalendar>\n</SENATEDATA>"

func newDoc(text string) *feed.Document {
	return &feed.Document{
		Name:        "SOBI.D130110.T143000.TXT",
		PublishedAt: time.Date(2013, 1, 10, 14, 30, 0, 0, time.UTC),
		Encoding:    "UTF-8",
		Text:        text,
	}
}

func bySequence(fragments []feed.Fragment) []feed.Fragment {
	sorted := append([]feed.Fragment(nil), fragments...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Sequence < sorted[j].Sequence })
	return sorted
}

func TestExtractBillAndCalendar(t *testing.T) {
	doc := newDoc("2013S12345 1Sponsor line\n<sencalendar no=\"1\" sessyr=\"2013\">\n <supplemental id=\"\">\n</sencalendar>\nnoise\n")
	fragments := bySequence(extract.New(nil).Extract(doc))

	if len(fragments) != 2 {
		t.Fatalf("expected 2 fragments, got %d", len(fragments))
	}
	bill, calendar := fragments[0], fragments[1]
	if bill.Type != feed.TypeBill || bill.Sequence != 0 || bill.Text != "2013S12345 1Sponsor line\n" {
		t.Fatalf("unexpected bill fragment: %+v", bill)
	}
	if bill.ID != "SOBI.D130110.T143000.TXT-0-BILL" {
		t.Fatalf("unexpected bill id %q", bill.ID)
	}
	if calendar.Type != feed.TypeCalendar || calendar.Sequence != 1 {
		t.Fatalf("unexpected calendar fragment: %+v", calendar)
	}
	if calendar.Text != calendarRecord {
		t.Fatalf("unexpected calendar text:\n%q\nwant\n%q", calendar.Text, calendarRecord)
	}
	if !calendar.PublishedAt.Equal(doc.PublishedAt) || calendar.DocumentName != doc.Name {
		t.Fatalf("document metadata not copied: %+v", calendar)
	}
}

func TestExtractMergesBillRuns(t *testing.T) {
	doc := newDoc(strings.Join([]string{
		"2013S12345 1First",
		"<sencalendar no=\"1\">",
		"</sencalendar>",
		"2013S12346 2Second",
	}, "\n"))
	fragments := bySequence(extract.New(nil).Extract(doc))
	if len(fragments) != 2 {
		t.Fatalf("expected 2 fragments, got %d", len(fragments))
	}
	if fragments[0].Text != "2013S12345 1First\n2013S12346 2Second\n" {
		t.Fatalf("unexpected merged bill text %q", fragments[0].Text)
	}
}

func TestExtractSequencesFollowStartOrder(t *testing.T) {
	doc := newDoc(strings.Join([]string{
		"<sencalendar no=\"1\">",
		"</sencalendar>",
		"<sencommmem id=\"a\">",
		"</sencommmem>",
		"<sencalendaractive no=\"2\">",
		"</sencalendaractive>",
	}, "\n"))
	fragments := bySequence(extract.New(nil).Extract(doc))
	want := []feed.FragmentType{feed.TypeCalendar, feed.TypeCommittee, feed.TypeCalendarActive}
	if len(fragments) != len(want) {
		t.Fatalf("expected %d fragments, got %d", len(want), len(fragments))
	}
	for i, fragment := range fragments {
		if fragment.Sequence != i+1 || fragment.Type != want[i] {
			t.Fatalf("fragment %d: got seq=%d type=%s", i, fragment.Sequence, fragment.Type)
		}
	}
}

func TestExtractUnterminatedRecordIsLogged(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	doc := newDoc("<senagenda no=\"1\">\n<item/>\n")
	fragments := extract.New(logger).Extract(doc)
	if len(fragments) != 1 {
		t.Fatalf("expected 1 fragment, got %d", len(fragments))
	}
	want := "<?xml version='1.0' encoding='UTF-8'?>\n<SENATEDATA>\n<senagenda no=\"1\">\n<item/>\n</SENATEDATA>"
	if fragments[0].Text != want {
		t.Fatalf("unexpected text %q", fragments[0].Text)
	}
	logs := buf.String()
	if !strings.Contains(logs, `"event_type":"unterminated_record"`) {
		t.Fatalf("expected unterminated_record warning, got %s", logs)
	}
	if !strings.Contains(logs, `"document":"SOBI.D130110.T143000.TXT"`) {
		t.Fatalf("expected document field in warning, got %s", logs)
	}
}

func TestExtractIsDeterministic(t *testing.T) {
	doc := newDoc("2013S12345 1Sponsor\n<sencalendar no=\"1\">\n</sencalendar>\n<sencommmem>\n</sencommmem>\n")
	extractor := extract.New(nil)
	first := extractor.Extract(doc)
	second := extractor.Extract(doc)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("extraction not deterministic:\n%+v\n%+v", first, second)
	}
}

func TestExtractHandlesCRLF(t *testing.T) {
	lf := newDoc("2013S12345 1Sponsor line\n<sencalendar no=\"1\" sessyr=\"2013\">\n <supplemental id=\"\">\n</sencalendar>\n")
	crlf := newDoc(strings.ReplaceAll(lf.Text, "\n", "\r\n"))
	extractor := extract.New(nil)
	if !reflect.DeepEqual(extractor.Extract(lf), extractor.Extract(crlf)) {
		t.Fatal("CRLF input produced different fragments")
	}
}

func TestExtractBillLineNormalization(t *testing.T) {
	doc := newDoc("2013S12345 MCafé\n2013S12345 1Heat to 110Á F\n")
	fragments := extract.New(nil).Extract(doc)
	if len(fragments) != 1 {
		t.Fatalf("expected 1 fragment, got %d", len(fragments))
	}
	want := "2013S12345 MCafÃ©\n2013S12345 1Heat to 110° F\n"
	if fragments[0].Text != want {
		t.Fatalf("unexpected bill text %q, want %q", fragments[0].Text, want)
	}
}

func TestExtractEscapesSectionInConsumedLines(t *testing.T) {
	doc := newDoc("<sencommmem id=\"¹\">\n<law>Section ¹ 5</law>\n</sencommmem>\n")
	fragments := extract.New(nil).Extract(doc)
	if len(fragments) != 1 {
		t.Fatalf("expected 1 fragment, got %d", len(fragments))
	}
	text := fragments[0].Text
	if !strings.Contains(text, "<sencommmem id=\"¹\">") {
		t.Fatalf("start line should be kept verbatim: %q", text)
	}
	if !strings.Contains(text, "<law>Section &sect; 5</law>") {
		t.Fatalf("consumed line not escaped: %q", text)
	}
}

func TestExtractIgnoresNoise(t *testing.T) {
	extractor := extract.New(nil)
	for _, text := range []string{"", "\n\n", "just some text\nmore noise\n"} {
		if fragments := extractor.Extract(newDoc(text)); len(fragments) != 0 {
			t.Fatalf("expected no fragments for %q, got %d", text, len(fragments))
		}
	}
	if fragments := extractor.Extract(nil); fragments != nil {
		t.Fatalf("expected nil for nil document, got %v", fragments)
	}
}
