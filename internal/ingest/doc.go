// Package ingest stages raw feed files from the incoming directory.
//
// Each matching file is decoded with the configured charset, stamped with
// the publication time encoded in its name (falling back to the file's
// modification time), staged in the store as an incoming document and
// moved to archive/<year>/. Files whose name was already staged go to
// archive/duplicates/.
package ingest
