// Package logging assembles structured slog loggers and formatting helpers used
// across lawfeed components.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so collation and dispatch code
// can tag log lines with document names, fragment ids and lanes. The package
// also provides a no-op logger for tests and wiring code that cannot fail.
//
// Prefer these constructors over hand-rolled slog setup so every component
// emits records with the same keys.
package logging
