// Package ocelot is the reconciliation core of a runtime instrumentation
// agent. It decides for every loaded code unit whether its behavior must be
// modified and drives the host's modifications to convergence while the
// process keeps running.
//
// # Architecture Overview
//
// The module is organized into packages with distinct responsibilities:
//
//	ocelot/
//	├── unit/        Unit and Method descriptions, Host and Transformer contracts
//	├── config/      Settings tree, defaults, validation, file watching
//	├── scope/       Scope and rule compilation into type and method predicates
//	├── resolve/     Immutable configuration snapshots and change events
//	├── sensor/      Built-in sensors behind one interface
//	├── state/       Desired state, equivalence and the applied-state cache
//	├── ordering/    Class-loader prerequisites applied before their dependents
//	├── hook/        Method hook bindings published in atomic sessions
//	├── transform/   Host callback and the shutdown sweep
//	├── reconcile/   Pending set and the periodic batch loop
//	├── selfmon/     Self-monitoring sink
//	├── agent/       Wiring of all of the above for one host
//	├── wasmhost/    Host over WebAssembly modules compiled with wazero
//	└── errors/      Structured error types
//
// # Data Flow
//
// A settings change produces a new snapshot. The reconciler schedules every
// loaded unit; each batch compares desired and applied state, resolves
// loader prerequisites and asks the host to retransform what differs. The
// host calls back into transform, which applies sensors and rule hooks and
// reports the result. The applied-state cache follows those reports, and the
// unit is checked once more until the pending set drains, at which point the
// hook bindings of the pass are published together.
//
// # Quick Start
//
//	host := wasmhost.New(ctx, nil)
//	raw, _ := config.Load("ocelot.yml")
//	a := agent.New(host, raw, nil)
//	host.LoadDir(ctx, "modules")
//	a.Start(ctx)
//	defer a.Shutdown(ctx)
package ocelot
