// Package resolve turns raw settings into immutable Configuration snapshots.
//
// Resolve is a pure function: the same settings always produce an equivalent
// configuration, and every call recompiles all scopes and rules. The Manager
// holds the current snapshot behind an atomic pointer and publishes a
// ChangeEvent carrying the old and new snapshots whenever it is replaced.
// Snapshot identity, not deep equality, signals that something changed.
package resolve
