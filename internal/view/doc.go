// Package view implements the projection core: read-optimized view variants
// that accumulate pending change records as an entity's events are projected
// onto them, and surrender those records through a single-shot drain.
//
// A view is constructed with its immutable initial value, registered into a
// Group (which binds the owning entity identifier exactly once), mutated zero
// or more times during a projection cycle, and drained exactly once per cycle
// via Changes. Draining clears the pending buffer; an immediate second call
// returns nothing. The package performs no I/O and no locking: all operations
// on one view are expected to run on the single goroutine projecting that
// entity's events.
package view
