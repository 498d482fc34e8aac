// Package store persists source documents, extracted fragments and handler
// record changes in SQLite.
//
// Documents are staged by ingestion and move from the incoming set to the
// archived set once collation has saved every fragment. Fragments carry the
// pending flag the dispatch lane pages over. All writes are single-row
// statements wrapped in the SQLITE_BUSY retry helper so the collation and
// dispatch lanes can share the database.
package store
