// Package hook maintains the method hook bindings consulted by instrumented
// code at run time.
//
// A binding lists the rules and actions executed around one method of one
// unit. Bindings change in update sessions: an Update collects the refreshed
// bindings of many units and Commit publishes all of them at once, so
// readers never observe a partially updated set.
package hook
