// Package main hosts the lawfeed CLI entrypoint and command graph.
//
// The Cobra command tree runs single passes of the ingest, collation and
// dispatch lanes, inspects stored fragments and record changes, and starts
// the long-running daemon. Commands open the SQLite store directly; lane
// passes take the same file locks the daemon uses so a manual pass never
// overlaps a scheduled one.
package main
