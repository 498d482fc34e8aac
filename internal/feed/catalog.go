package feed

import (
	"fmt"
	"regexp"
	"strings"
)

// FragmentType identifies a kind of record found in a source document.
type FragmentType string

const (
	TypeBill           FragmentType = "bill"
	TypeAgenda         FragmentType = "agenda"
	TypeAgendaVote     FragmentType = "agenda_vote"
	TypeCalendar       FragmentType = "calendar"
	TypeCalendarActive FragmentType = "calendar_active"
	TypeCommittee      FragmentType = "committee"
	TypeAnnotation     FragmentType = "annotation"
)

// PrimaryType is merged across a whole document into a single fragment
// with sequence number 0.
const PrimaryType = TypeBill

// SponsorMemoLine is the bill line-type code whose payload needs transcoding.
const SponsorMemoLine = 'M'

// lineTypeOffset is the byte offset of the line-type code in a bill line.
const lineTypeOffset = 11

type catalogEntry struct {
	fragmentType FragmentType
	start        *regexp.Regexp
	end          *regexp.Regexp
}

// fullLine anchors a pattern so it must match the entire line.
func fullLine(pattern string) *regexp.Regexp {
	return regexp.MustCompile(`^(?:` + pattern + `)$`)
}

// catalog is ordered by classification priority.
var catalog = []catalogEntry{
	{fragmentType: TypeBill, start: fullLine(`[0-9]{4}[A-Z][0-9]{5}[ A-Z][1-9ABCMRTV].*`)},
	{fragmentType: TypeAgendaVote, start: fullLine(`<senagendavote[\s>].*`), end: fullLine(`\s*</senagendavote>.*`)},
	{fragmentType: TypeAgenda, start: fullLine(`<senagenda[\s>].*`), end: fullLine(`\s*</senagenda>.*`)},
	{fragmentType: TypeCalendarActive, start: fullLine(`<sencalendaractive[\s>].*`), end: fullLine(`\s*</sencalendaractive>.*`)},
	{fragmentType: TypeCalendar, start: fullLine(`<sencalendar[\s>].*`), end: fullLine(`\s*</sencalendar>.*`)},
	{fragmentType: TypeCommittee, start: fullLine(`<sencommmem[\s>].*`), end: fullLine(`\s*</sencommmem>.*`)},
	{fragmentType: TypeAnnotation, start: fullLine(`<senannotated[\s>].*`), end: fullLine(`\s*</senannotated>.*`)},
}

var catalogIndex = func() map[FragmentType]catalogEntry {
	index := make(map[FragmentType]catalogEntry, len(catalog))
	for _, entry := range catalog {
		index[entry.fragmentType] = entry
	}
	return index
}()

// AllTypes returns every known fragment type in classification order.
func AllTypes() []FragmentType {
	types := make([]FragmentType, 0, len(catalog))
	for _, entry := range catalog {
		types = append(types, entry.fragmentType)
	}
	return types
}

// Classify returns the first fragment type whose start pattern matches line.
func Classify(line string) (FragmentType, bool) {
	for _, entry := range catalog {
		if entry.start.MatchString(line) {
			return entry.fragmentType, true
		}
	}
	return "", false
}

// IsPrimary reports whether t is merged into the sequence 0 fragment.
func (t FragmentType) IsPrimary() bool {
	return t == PrimaryType
}

// MatchesEnd reports whether line closes a record of type t. The primary
// type has no end pattern and never matches.
func (t FragmentType) MatchesEnd(line string) bool {
	entry, ok := catalogIndex[t]
	if !ok || entry.end == nil {
		return false
	}
	return entry.end.MatchString(line)
}

// Label returns the upper-case form used inside fragment identifiers.
func (t FragmentType) Label() string {
	return strings.ToUpper(string(t))
}

// ParseFragmentType converts a stored or user-supplied name into a known type.
// Both "calendar_active" and "CALENDAR_ACTIVE" are accepted.
func ParseFragmentType(value string) (FragmentType, error) {
	normalized := FragmentType(strings.ToLower(strings.TrimSpace(value)))
	if _, ok := catalogIndex[normalized]; !ok {
		return "", fmt.Errorf("unknown fragment type %q", value)
	}
	return normalized, nil
}

// LineType returns the bill line-type code of line, or 0 when line is too
// short to carry one.
func LineType(line string) byte {
	if len(line) <= lineTypeOffset {
		return 0
	}
	return line[lineTypeOffset]
}

// BillPrintID returns the session year, chamber and print number prefix of
// a bill line (for example "2013S01234"), or "" when line is too short.
func BillPrintID(line string) string {
	if len(line) < 10 {
		return ""
	}
	return line[:10]
}
