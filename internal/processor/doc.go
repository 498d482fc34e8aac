// Package processor maps fragment types to the handlers that apply them to
// downstream records.
//
// A Registry is built once from an explicit map and never mutated, so it can
// be shared between the dispatch lane and one-shot CLI commands.
package processor
