// Package feed defines the legislative feed data model shared by every
// lawfeed component: source documents, the fragments extracted from them,
// and the static catalog of fragment types.
//
// The catalog is the only place that knows what a record looks like on the
// wire. Each FragmentType carries an anchored start pattern and, for every
// type except the primary bill type, an end pattern. Classify walks the
// catalog in priority order and returns the first type whose start pattern
// matches a whole line.
//
// Downstream parsing depends on exact line offsets in the bill format (the
// line-type code lives at byte 11), so patterns here must not be loosened.
package feed
