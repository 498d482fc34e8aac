// Package daemon coordinates the long-running lawfeed process.
//
// It wires configuration, the feed store and the workflow manager into a
// single lifecycle with flock-based locking to prevent multiple instances,
// prunes old log files on start, and reports status for the CLI.
//
// Keep orchestration logic here: collation and dispatch live in their own
// packages while the daemon focuses on startup, shutdown, and high level
// coordination.
package daemon
