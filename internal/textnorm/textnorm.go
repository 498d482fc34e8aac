package textnorm

import (
	"regexp"
	"strings"
)

// NewlinePlaceholder stands in for a line break while a record is assembled
// into a single line.
const NewlinePlaceholder = "&newl;"

// SectionEntity replaces the legacy section-sign byte, which the feed
// emits as U+00B9.
const SectionEntity = "&sect;"

const legacySection = "¹"

var (
	cdataSection = regexp.MustCompile(`<!\[CDATA\[(.*?)\]\]>`)
	controlChars = regexp.MustCompile(`[\x00-\x09\x0B-\x1F\x7F]`)
	spaceRuns    = regexp.MustCompile(` {2,}`)
)

// EscapeSection replaces the legacy section byte with its named entity.
func EscapeSection(line string) string {
	return strings.ReplaceAll(line, legacySection, SectionEntity)
}

// UnwrapCDATA prepares CDATA sections, which already carry escaped payload:
// newline placeholders inside them are dropped and literal `\n` sequences
// become real line breaks.
func UnwrapCDATA(s string) string {
	return cdataSection.ReplaceAllStringFunc(s, func(section string) string {
		section = strings.ReplaceAll(section, NewlinePlaceholder, "")
		return strings.ReplaceAll(section, `\n`, "\n")
	})
}

// ExpandNewlines turns every remaining newline placeholder into a line break.
func ExpandNewlines(s string) string {
	return strings.ReplaceAll(s, NewlinePlaceholder, "\n")
}

// StripControl removes ASCII control characters other than the line feed.
func StripControl(s string) string {
	return controlChars.ReplaceAllString(s, "")
}

// CollapseSpaces replaces each run of two or more spaces with one space.
// The legacy rule guarded runs starting with "..", which a run of spaces can
// never do, so ellipses and dot leaders pass through untouched.
func CollapseSpaces(s string) string {
	return spaceRuns.ReplaceAllString(s, " ")
}

// Repair applies the document-level rules to an assembled record.
func Repair(s string) string {
	s = UnwrapCDATA(s)
	s = ExpandNewlines(s)
	s = StripControl(s)
	return CollapseSpaces(s)
}
