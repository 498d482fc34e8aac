// Package workflow runs the daemon's processing lanes.
//
// The Manager runs two independent lanes, each in its own goroutine:
// collation (ingest new feed files, then collate incoming documents) and
// dispatch (route pending fragments to handlers). A lane repeats its pass
// immediately while it finds work, sleeps for its poll interval when idle
// and backs off for the error retry interval after a failure.
//
// Every pass holds the coordinator's run lock, so a one-shot CLI command and
// the daemon never run the same coordinator concurrently; a pass that finds
// the lock taken is skipped.
package workflow
