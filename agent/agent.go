// Package agent wires the instrumentation engine together.
package agent

import (
	"context"

	"go.uber.org/zap"

	"github.com/inspectIT/inspectit-ocelot-sub003/config"
	"github.com/inspectIT/inspectit-ocelot-sub003/hook"
	"github.com/inspectIT/inspectit-ocelot-sub003/ordering"
	"github.com/inspectIT/inspectit-ocelot-sub003/reconcile"
	"github.com/inspectIT/inspectit-ocelot-sub003/resolve"
	"github.com/inspectIT/inspectit-ocelot-sub003/selfmon"
	"github.com/inspectIT/inspectit-ocelot-sub003/sensor"
	"github.com/inspectIT/inspectit-ocelot-sub003/state"
	"github.com/inspectIT/inspectit-ocelot-sub003/transform"
	"github.com/inspectIT/inspectit-ocelot-sub003/unit"
)

// Config holds optional agent settings.
type Config struct {
	// Monitor receives self-monitoring measurements. Defaults to selfmon.Noop.
	Monitor selfmon.Monitor

	// Sensors builds the sensor list. Defaults to sensor.All.
	Sensors func(support sensor.SupportTracker) []sensor.Sensor
}

// Agent instruments the units of one host.
type Agent struct {
	host     unit.Host
	configs  *resolve.Manager
	engine   *state.Engine
	ordering *ordering.Resolver
	hooks    *hook.Manager
	apply    *transform.Hook
	rec      *reconcile.Reconciler
	monitor  selfmon.Monitor
}

// New builds an agent for host with raw as the initial settings.
func New(host unit.Host, raw *config.Raw, cfg *Config) *Agent {
	if cfg == nil {
		cfg = &Config{}
	}
	monitor := cfg.Monitor
	if monitor == nil {
		monitor = selfmon.Noop{}
	}
	build := cfg.Sensors
	if build == nil {
		build = sensor.All
	}

	a := &Agent{
		host:     host,
		configs:  resolve.NewManager(raw),
		ordering: ordering.NewResolver(),
		hooks:    hook.NewManager(),
		monitor:  monitor,
	}
	a.engine = state.NewEngine(build(a.ordering))
	a.apply = transform.New(host, a.configs, a.engine)
	a.rec = reconcile.New(reconcile.Config{
		Host:     host,
		Configs:  a.configs,
		Engine:   a.engine,
		Ordering: a.ordering,
		Hooks:    a.hooks,
		Monitor:  monitor,
		Logger:   Logger(),
	})

	// The cache must see an applied event before the reconciler re-checks it.
	a.apply.SubscribeApplied(a.engine)
	a.apply.SubscribeApplied(a.rec)
	a.apply.SubscribeDiscovered(a.rec)
	a.configs.Subscribe(a.rec)

	monitor.SetEnabled(raw.SelfMonitoring.Enabled)
	return a
}

// Configs returns the configuration manager.
func (a *Agent) Configs() *resolve.Manager { return a.configs }

// Engine returns the state engine.
func (a *Agent) Engine() *state.Engine { return a.engine }

// Hooks returns the hook bindings.
func (a *Agent) Hooks() *hook.Manager { return a.hooks }

// Reconciler returns the reconciler.
func (a *Agent) Reconciler() *reconcile.Reconciler { return a.rec }

// Start installs the transformer, schedules every loaded unit and starts the
// reconciliation loop.
func (a *Agent) Start(ctx context.Context) {
	a.host.SetTransformer(a.apply)
	units := a.host.LoadedUnits()
	a.rec.EnqueueAll(units)
	a.rec.Start(ctx)

	Logger().Info("agent started", zap.Int("units", len(units)))
}

// UpdateConfig installs new settings.
func (a *Agent) UpdateConfig(raw *config.Raw) {
	a.configs.Update(raw)
}

// Unloaded forgets everything known about a unit the host unloaded.
func (a *Agent) Unloaded(id unit.ID) {
	a.rec.Forget(id)
	a.engine.Forget(id)
	a.ordering.Forget(id)
	a.hooks.Forget(id)
}

// Shutdown stops reconciling and removes all instrumentation. A call
// interrupted by ctx can be repeated to finish the removal.
func (a *Agent) Shutdown(ctx context.Context) error {
	a.rec.Stop()
	err := a.apply.Shutdown(ctx)
	if err != nil {
		Logger().Warn("instrumentation not fully removed", zap.Error(err))
	} else {
		Logger().Info("agent stopped")
	}
	return err
}

// Run starts the agent and shuts it down once ctx is done.
func (a *Agent) Run(ctx context.Context) error {
	a.Start(ctx)
	<-ctx.Done()
	return a.Shutdown(context.WithoutCancel(ctx))
}
