package logging

import "strings"

// FormatSubject builds the lane/document/fragment subject shown in console
// output. A fragment id already names its document, so the document is only
// shown on its own.
func FormatSubject(lane, document, fragment string) string {
	lane = strings.TrimSpace(lane)
	document = strings.TrimSpace(document)
	fragment = strings.TrimSpace(fragment)
	parts := make([]string, 0, 2)
	if lane != "" {
		parts = append(parts, strings.ToUpper(lane[:1])+strings.ToLower(lane[1:]))
	}
	switch {
	case fragment != "":
		parts = append(parts, "Fragment "+fragment)
	case document != "":
		parts = append(parts, "Document "+document)
	}
	return strings.Join(parts, " · ")
}
