// Package handlers holds the built-in fragment handlers.
//
// Each handler parses its fragment type and records the downstream effect
// as a RecordChange, keyed by the entity the fragment updates (a bill print
// number, a calendar, an active list, a committee).
package handlers
