// Package reconcile drives the instrumentation of loaded units towards the
// state the current configuration asks for.
//
// Units waiting to be checked sit in a PendingSet. A single background loop
// runs one Batch per inter-batch delay. A batch checks at most
// max-units-per-batch units and stops early once max-units-to-modify-per-batch
// units were selected for modification. Checking is cheap, modifying is not,
// so the two limits are independent.
//
// Hook bindings of every checked unit are refreshed in an update session
// that is committed once the pending set is empty, making the new bindings
// visible together.
package reconcile
