// Package extract partitions a source document into typed fragments.
//
// The Extractor walks the document's lines with an explicit cursor. Bill
// lines are normalized and merged into one running buffer that becomes the
// sequence 0 fragment. Every other recognized start line opens a record
// that consumes lines from the same cursor until the type's end pattern
// matches; the record is wrapped into a small synthetic XML document,
// repaired by textnorm, and emitted with the next sequence number starting
// at 1. Lines no catalog entry recognizes are feed filler and are dropped.
//
// Extraction never fails. An unterminated record is logged and emitted with
// whatever was consumed, leaving validity checks to the handlers.
package extract
