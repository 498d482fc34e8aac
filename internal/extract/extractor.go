package extract

import (
	"log/slog"
	"strings"

	"lawfeed/internal/charset"
	"lawfeed/internal/feed"
	"lawfeed/internal/logging"
	"lawfeed/internal/textnorm"
)

const (
	xmlHeader = "<?xml version='1.0' encoding='UTF-8'?>"
	rootOpen  = "<SENATEDATA>"
	rootClose = "</SENATEDATA>"

	// legacyDegree is the rune the upstream system wrote where a degree
	// sign was meant (byte 193 in the source encoding).
	legacyDegree = 'Á'
	degreeSign   = '°'
)

// Extractor turns source documents into fragments.
type Extractor struct {
	logger *slog.Logger
}

// New constructs an Extractor. A nil logger discards anomaly reports.
func New(logger *slog.Logger) *Extractor {
	return &Extractor{logger: logging.NewComponentLogger(logger, "extract")}
}

// Extract returns the fragments of doc. The order of the returned slice is
// not authoritative; consumers sort by sequence number, where the merged
// bill fragment (sequence 0) comes first.
func (e *Extractor) Extract(doc *feed.Document) []feed.Fragment {
	if doc == nil {
		return nil
	}
	var (
		fragments  []feed.Fragment
		billBuffer strings.Builder
		sequence   = 1
	)

	cursor := newLineCursor(doc.Text)
	for cursor.more() {
		line := cursor.next()
		fragmentType, ok := feed.Classify(line)
		if !ok {
			continue
		}
		if fragmentType.IsPrimary() {
			billBuffer.WriteString(e.normalizeBillLine(doc, line))
			billBuffer.WriteByte('\n')
			continue
		}
		text := e.consumeRecord(doc, fragmentType, line, cursor)
		fragments = append(fragments, feed.NewFragment(doc, fragmentType, text, sequence))
		sequence++
	}

	if billBuffer.Len() > 0 {
		fragments = append(fragments, feed.NewFragment(doc, feed.PrimaryType, billBuffer.String(), 0))
	}
	return fragments
}

// consumeRecord reads lines following start until the end pattern of
// fragmentType matches (inclusive) and returns the repaired synthetic
// document.
func (e *Extractor) consumeRecord(doc *feed.Document, fragmentType feed.FragmentType, start string, cursor *lineCursor) string {
	var buf strings.Builder
	buf.WriteString(xmlHeader)
	buf.WriteString(textnorm.NewlinePlaceholder)
	buf.WriteString(rootOpen)
	buf.WriteString(textnorm.NewlinePlaceholder)
	buf.WriteString(start)
	buf.WriteString(textnorm.NewlinePlaceholder)

	terminated := false
	for cursor.more() {
		line := cursor.next()
		buf.WriteString(textnorm.EscapeSection(line))
		buf.WriteString(textnorm.NewlinePlaceholder)
		if fragmentType.MatchesEnd(line) {
			terminated = true
			break
		}
	}
	if !terminated {
		logging.WarnWithContext(e.logger, "unterminated record; keeping consumed lines", "unterminated_record",
			logging.String(logging.FieldDocument, doc.Name),
			logging.String(logging.FieldFragmentType, string(fragmentType)),
			logging.String("start_line", start),
			logging.String(logging.FieldErrorHint, "handler will reject the fragment if the payload is malformed"),
			logging.String(logging.FieldImpact, "fragment emitted without its closing tag"),
		)
	}
	buf.WriteString(rootClose)
	return textnorm.Repair(buf.String())
}

// normalizeBillLine reinterprets sponsor memo lines as Latin-1 and restores
// the degree sign on every bill line.
func (e *Extractor) normalizeBillLine(doc *feed.Document, line string) string {
	if feed.LineType(line) == feed.SponsorMemoLine {
		converted, err := charset.Reinterpret(line, doc.Encoding, charset.Latin1)
		if err != nil {
			logging.WarnWithContext(e.logger, "sponsor memo transcoding failed; line kept as-is", "memo_transcode_failed",
				logging.String(logging.FieldDocument, doc.Name),
				logging.String("encoding", doc.Encoding),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check the document's declared encoding"),
				logging.String(logging.FieldImpact, "memo text may contain mis-encoded characters"),
			)
		} else {
			line = converted
		}
	}
	return strings.ReplaceAll(line, string(legacyDegree), string(degreeSign))
}
