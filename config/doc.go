// Package config holds the raw, declarative settings of the instrumentation
// engine.
//
// A Raw value is decoded from YAML over Default(), validated, and then treated
// as immutable: every change produces a new Raw that replaces the previous one
// wholesale. Compilation of scopes and rules happens in package resolve.
//
//	raw, err := config.Load("agent.yml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	w, err := config.NewWatcher("agent.yml", func(raw *config.Raw) {
//	    manager.Update(raw)
//	})
//	w.Start(ctx)
//	defer w.Stop()
package config
