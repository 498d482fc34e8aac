package handlers_test

import (
	"context"
	"errors"
	"testing"

	"lawfeed/internal/feed"
	"lawfeed/internal/processor"
	"lawfeed/internal/processor/handlers"
	"lawfeed/internal/store"
)

type fakeRecorder struct {
	changes []store.RecordChange
	err     error
}

func (r *fakeRecorder) RecordChange(_ context.Context, change *store.RecordChange) error {
	if r.err != nil {
		return r.err
	}
	r.changes = append(r.changes, *change)
	return nil
}

func wrap(record string) string {
	return "<?xml version='1.0' encoding='UTF-8'?>\n<SENATEDATA>\n" + record + "\n</SENATEDATA>"
}

func process(t *testing.T, recorder *fakeRecorder, fragmentType feed.FragmentType, text string) error {
	t.Helper()
	registry := handlers.Default(recorder, nil)
	handler, ok := registry.Resolve(fragmentType)
	if !ok {
		t.Fatalf("no handler for %s", fragmentType)
	}
	fragment := &feed.Fragment{ID: "doc-1-" + fragmentType.Label(), Type: fragmentType, Text: text}
	return handler.Process(context.Background(), fragment)
}

func TestDefaultRegistryTypes(t *testing.T) {
	registry := handlers.Default(&fakeRecorder{}, nil)
	want := []feed.FragmentType{feed.TypeBill, feed.TypeCalendarActive, feed.TypeCalendar, feed.TypeCommittee}
	got := registry.Types()
	if len(got) != len(want) {
		t.Fatalf("unexpected types %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Types()[%d] = %s, want %s", i, got[i], want[i])
		}
	}
	for _, missing := range []feed.FragmentType{feed.TypeAgenda, feed.TypeAgendaVote, feed.TypeAnnotation} {
		if _, ok := registry.Resolve(missing); ok {
			t.Fatalf("unexpected handler for %s", missing)
		}
	}
}

func TestBillHandlerGroupsByPrintNumber(t *testing.T) {
	recorder := &fakeRecorder{}
	text := "2013S12345 1Sponsor\n2013S12345 MMemo text\n2013A00100 1Other\n2013S12345 1More\n"
	if err := process(t, recorder, feed.TypeBill, text); err != nil {
		t.Fatalf("Process returned error: %v", err)
	}
	if len(recorder.changes) != 2 {
		t.Fatalf("expected 2 bill changes, got %+v", recorder.changes)
	}
	first, second := recorder.changes[0], recorder.changes[1]
	if first.Kind != "bill" || first.Key != "2013S12345" || first.Detail != "lines=3 types=1,M" {
		t.Fatalf("unexpected first change: %+v", first)
	}
	if second.Key != "2013A00100" || second.Detail != "lines=1 types=1" {
		t.Fatalf("unexpected second change: %+v", second)
	}
	if first.FragmentID != "doc-1-BILL" {
		t.Fatalf("change not tied to fragment: %+v", first)
	}
}

func TestBillHandlerRejectsEmptyPayload(t *testing.T) {
	err := process(t, &fakeRecorder{}, feed.TypeBill, "\n")
	if !errors.Is(err, processor.ErrRejected) {
		t.Fatalf("expected ErrRejected, got %v", err)
	}
}

func TestCalendarHandler(t *testing.T) {
	recorder := &fakeRecorder{}
	text := wrap("<sencalendar no=\"54\" sessyr=\"2013\" year=\"2014\">\n <supplemental id=\"\">\n </supplemental>\n <supplemental id=\"A\">\n </supplemental>\n</sencalendar>")
	if err := process(t, recorder, feed.TypeCalendar, text); err != nil {
		t.Fatalf("Process returned error: %v", err)
	}
	if len(recorder.changes) != 1 {
		t.Fatalf("expected 1 change, got %+v", recorder.changes)
	}
	change := recorder.changes[0]
	if change.Kind != "calendar" || change.Key != "2013/54" || change.Detail != "supplementals=2" {
		t.Fatalf("unexpected change: %+v", change)
	}
}

func TestActiveListHandlerAcceptsSectionEntity(t *testing.T) {
	recorder := &fakeRecorder{}
	text := wrap("<sencalendaractive no=\"7\" year=\"2013\">\n <sequence no=\"0\">Law &sect; 5</sequence>\n</sencalendaractive>")
	if err := process(t, recorder, feed.TypeCalendarActive, text); err != nil {
		t.Fatalf("Process returned error: %v", err)
	}
	if len(recorder.changes) != 1 || recorder.changes[0].Key != "2013/7" || recorder.changes[0].Detail != "sequences=1" {
		t.Fatalf("unexpected changes: %+v", recorder.changes)
	}
}

func TestCommitteeHandlerTitleCasesNames(t *testing.T) {
	recorder := &fakeRecorder{}
	text := wrap(`<sencommmem sessyr="2017">
<committee name="AGRICULTURE">
<location>Room 412 LOB</location>
<meetday>Tuesday</meetday>
<meettime>09:00 AM</meettime>
<member><name>RITCHIE</name><title>Chairperson</title></member>
<member><name>SMITH</name><title>Member</title></member>
</committee>
</sencommmem>`)
	if err := process(t, recorder, feed.TypeCommittee, text); err != nil {
		t.Fatalf("Process returned error: %v", err)
	}
	if len(recorder.changes) != 1 {
		t.Fatalf("expected 1 change, got %+v", recorder.changes)
	}
	change := recorder.changes[0]
	if change.Key != "senate/2017/Agriculture" {
		t.Fatalf("unexpected key %q", change.Key)
	}
	want := "members=2 chair=RITCHIE meets=Tuesday 09:00 AM location=Room 412 LOB"
	if change.Detail != want {
		t.Fatalf("unexpected detail %q, want %q", change.Detail, want)
	}
}

func TestXMLHandlersRejectMalformedPayload(t *testing.T) {
	unterminated := "<?xml version='1.0' encoding='UTF-8'?>\n<SENATEDATA>\n<sencalendar no=\"1\">\n</SENATEDATA>"
	for _, fragmentType := range []feed.FragmentType{feed.TypeCalendar, feed.TypeCalendarActive, feed.TypeCommittee} {
		err := process(t, &fakeRecorder{}, fragmentType, unterminated)
		if !errors.Is(err, processor.ErrRejected) {
			t.Fatalf("%s: expected ErrRejected, got %v", fragmentType, err)
		}
	}
}

func TestRecorderFailureIsReturned(t *testing.T) {
	recorder := &fakeRecorder{err: errors.New("database is locked")}
	err := process(t, recorder, feed.TypeBill, "2013S12345 1Sponsor\n")
	if err == nil || errors.Is(err, processor.ErrRejected) {
		t.Fatalf("expected a retryable error, got %v", err)
	}
}
