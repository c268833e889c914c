// Package wasmhost is a unit.Host over WebAssembly modules compiled with
// wazero.
//
// Every loaded module is one unit; its exported functions are the unit's
// methods. Retransforming a unit rebuilds the module from its original
// binary with an "ocelot.instrumentation" custom section listing the woven
// advice, recompiles it and replaces the previous compiled module. A
// rewritten binary that fails to compile is rejected and the previous module
// stays in place.
package wasmhost
