// Package window owns the per-channel rolling sample history.
//
// Ownership boundary:
// - fixed-capacity FIFO windows, one per channel
// - lazy channel growth padded with the None sentinel
// - immutable snapshots for renderers
//
// A Buffer is not safe for concurrent use. Exactly one goroutine owns it;
// everyone else reads Snapshot copies.
//
// Sentinel policy: new channels are pre-filled with sample.None() up to the
// current shared window length. Narrower records pad the channels they do
// not cover with sample.None() for that step, so every window always has
// the same length and evicts in lockstep.
package window
