// Package dispatch routes pending fragments to their handlers.
//
// The Coordinator pages over pending fragments in publication order,
// resolves each fragment's handler from the processor registry and records
// the attempt on the fragment. Fragments without a handler follow the
// configured UnhandledPolicy. Handler failures stop the run and leave the
// fragment pending for the next one, except for rejections, which are
// logged and recorded like any other attempt.
package dispatch
