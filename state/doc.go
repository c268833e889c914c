// Package state computes the desired instrumentation of a unit and tracks
// what is currently applied.
//
// The desired state is derived from the current configuration on demand and
// never stored. The AppliedCache holds the last state the host applied to
// each unit; a missing entry means the unit carries no instrumentation.
// Comparing the two decides whether a unit has to be modified again.
package state
