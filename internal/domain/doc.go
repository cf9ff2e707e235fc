// Package domain contains the core business entities and invariants of the
// concept-generation pipeline: jobs, concepts, their status machine, and the
// client-side resolution predicate. It has no dependencies on infrastructure
// or delivery mechanisms.
package domain
