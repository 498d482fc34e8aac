// Package collate turns incoming source documents into persisted pending
// fragments.
//
// The Coordinator pages through incoming documents oldest first, extracts
// their fragments, saves each fragment as pending and only then archives
// the document. A crash between those steps leaves either an incoming
// document (collated again on the next run, fragment ids are deterministic
// so the saves are upserts) or an archived document with no fragments,
// which the store reports as an anomaly.
package collate
