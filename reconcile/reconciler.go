package reconcile

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/inspectIT/inspectit-ocelot-sub003/errors"
	"github.com/inspectIT/inspectit-ocelot-sub003/hook"
	"github.com/inspectIT/inspectit-ocelot-sub003/ordering"
	"github.com/inspectIT/inspectit-ocelot-sub003/resolve"
	"github.com/inspectIT/inspectit-ocelot-sub003/selfmon"
	"github.com/inspectIT/inspectit-ocelot-sub003/state"
	"github.com/inspectIT/inspectit-ocelot-sub003/transform"
	"github.com/inspectIT/inspectit-ocelot-sub003/unit"
)

// Config holds the collaborators of a Reconciler. Monitor and Logger are
// optional.
type Config struct {
	Host     unit.Host
	Configs  transform.ConfigSource
	Engine   *state.Engine
	Ordering *ordering.Resolver
	Hooks    *hook.Manager
	Monitor  selfmon.Monitor
	Logger   *zap.Logger
}

// Result describes one batch.
type Result struct {
	// Failed lists the units whose retransformation failed.
	Failed    []string
	Checked   int
	Modified  int
	Remaining int
	// Committed is set when the batch drained the pending set and published
	// the hook update session.
	Committed bool
}

// Reconciler owns the pending set and the batch loop.
type Reconciler struct {
	host     unit.Host
	configs  transform.ConfigSource
	engine   *state.Engine
	ordering *ordering.Resolver
	hooks    *hook.Manager
	monitor  selfmon.Monitor
	log      *zap.Logger
	pending  *PendingSet

	// batchMu serializes batches; session is only touched under it.
	batchMu sync.Mutex
	session *hook.Update

	runMu  sync.Mutex
	stopCh chan struct{}
	doneCh chan struct{}
}

// New creates a reconciler with an empty pending set.
func New(cfg Config) *Reconciler {
	r := &Reconciler{
		host:     cfg.Host,
		configs:  cfg.Configs,
		engine:   cfg.Engine,
		ordering: cfg.Ordering,
		hooks:    cfg.Hooks,
		monitor:  cfg.Monitor,
		log:      cfg.Logger,
		pending:  NewPendingSet(),
	}
	if r.monitor == nil {
		r.monitor = selfmon.Noop{}
	}
	if r.log == nil {
		r.log = Logger()
	}
	if r.ordering == nil {
		r.ordering = ordering.NewResolver()
	}
	if r.hooks == nil {
		r.hooks = hook.NewManager()
	}
	return r
}

// Pending returns the pending set.
func (r *Reconciler) Pending() *PendingSet { return r.pending }

// Enqueue schedules u for a check.
func (r *Reconciler) Enqueue(u *unit.Unit) {
	if u != nil {
		r.pending.Add(u)
	}
}

// EnqueueAll schedules every unit for a check.
func (r *Reconciler) EnqueueAll(units []*unit.Unit) {
	for _, u := range units {
		r.Enqueue(u)
	}
}

// OnConfigChanged rescans every loaded unit. Resolution is never
// incremental, so neither is the rescan.
func (r *Reconciler) OnConfigChanged(e resolve.ChangeEvent) {
	r.monitor.SetEnabled(e.New.SelfMonitoring)
	units := r.host.LoadedUnits()
	r.EnqueueAll(units)
	r.log.Debug("configuration changed, rescanning units", zap.Int("units", len(units)))
}

// OnApplied re-checks a unit after the host applied it, so that a
// configuration change racing with the apply is not lost. Failed
// modifications are not re-checked until another trigger enqueues them.
func (r *Reconciler) OnApplied(e state.AppliedEvent) {
	if e.Err == nil {
		r.Enqueue(e.Unit)
	}
}

// OnDiscovered schedules a newly defined unit.
func (r *Reconciler) OnDiscovered(u *unit.Unit) {
	r.Enqueue(u)
}

// Forget drops an unloaded unit.
func (r *Reconciler) Forget(id unit.ID) {
	r.pending.Remove(id)
}

// Batch runs one reconciliation pass. Units are popped while fewer than the
// check cap have been checked and fewer than the modify cap are selected.
// The modify cap is tested before each pop only, so the prerequisites of the
// last selected unit can take the selection past it. A unit whose check
// panics is logged and skipped.
func (r *Reconciler) Batch(ctx context.Context) Result {
	r.batchMu.Lock()
	defer r.batchMu.Unlock()

	stop := r.monitor.Time(selfmon.BatchDuration)
	defer stop()

	cfg := r.configs.Current()
	checkCap := cfg.Internal.MaxUnitsPerBatch
	modifyCap := cfg.Internal.MaxUnitsToModifyPerBatch

	var res Result
	var modify []*unit.Unit
	selected := make(map[unit.ID]bool)
	add := func(u *unit.Unit) {
		if !selected[u.ID] {
			selected[u.ID] = true
			modify = append(modify, u)
		}
	}

	for res.Checked < checkCap && len(modify) < modifyCap {
		if ctx.Err() != nil {
			break
		}
		u, ok := r.pending.Pop()
		if !ok {
			break
		}
		res.Checked++

		desired, differs, err := r.check(u, cfg)
		if err != nil {
			r.log.Error("state check failed, skipping unit",
				zap.String("unit", u.Name),
				zap.Error(err))
			continue
		}
		if differs {
			for _, p := range r.ordering.Prerequisites(u, cfg) {
				r.pending.Remove(p.ID)
				add(p)
			}
			add(u)
		}

		if r.session == nil {
			r.session = r.hooks.StartUpdate()
		}
		r.session.Refresh(u, desired)
	}

	if len(modify) > 0 {
		if failures := transform.ApplyIsolated(r.host, modify, r.log); failures != nil {
			res.Failed = failures.Units()
		}
	}
	res.Modified = len(modify) - len(res.Failed)
	res.Remaining = r.pending.Len()

	if res.Remaining == 0 && r.session != nil {
		r.session.Commit()
		r.session = nil
		res.Committed = true
	}

	r.monitor.Record(selfmon.QueueSize, float64(res.Remaining))
	r.monitor.Record(selfmon.BatchChecked, float64(res.Checked))
	r.monitor.Record(selfmon.BatchModified, float64(res.Modified))

	if res.Checked > 0 {
		r.log.Debug("batch finished",
			zap.Int("checked", res.Checked),
			zap.Int("modified", res.Modified),
			zap.Int("failed", len(res.Failed)),
			zap.Int("queue", res.Remaining))
	}
	return res
}

// check runs the engine check for one unit, turning a sensor panic into an
// error so the rest of the batch still proceeds.
func (r *Reconciler) check(u *unit.Unit, cfg *resolve.Configuration) (desired *state.State, differs bool, err error) {
	defer func() {
		if p := recover(); p != nil {
			desired, differs = nil, false
			err = errors.New(errors.PhaseCheck, errors.KindSensorFailed).
				Unit(string(u.ID)).
				Detail("panic: %v", p).
				Build()
		}
	}()
	desired, differs = r.engine.Check(u, cfg)
	return desired, differs, nil
}

// Start runs batches in the background until Stop is called or ctx is
// done. The delay between batches is re-read from the configuration after
// every batch.
func (r *Reconciler) Start(ctx context.Context) {
	r.runMu.Lock()
	defer r.runMu.Unlock()
	if r.stopCh != nil {
		return
	}
	r.stopCh = make(chan struct{})
	r.doneCh = make(chan struct{})
	go r.loop(ctx, r.stopCh, r.doneCh)
}

// Stop ends the background loop and waits for the running batch.
func (r *Reconciler) Stop() {
	r.runMu.Lock()
	stopCh, doneCh := r.stopCh, r.doneCh
	r.stopCh, r.doneCh = nil, nil
	r.runMu.Unlock()

	if stopCh == nil {
		return
	}
	close(stopCh)
	<-doneCh
}

func (r *Reconciler) loop(ctx context.Context, stopCh, doneCh chan struct{}) {
	defer close(doneCh)

	timer := time.NewTimer(r.configs.Current().InterBatchDelay())
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		case <-timer.C:
			r.safeBatch(ctx)
			timer.Reset(r.configs.Current().InterBatchDelay())
		}
	}
}

func (r *Reconciler) safeBatch(ctx context.Context) {
	defer func() {
		if p := recover(); p != nil {
			r.log.Error("reconciliation batch panicked", zap.Any("panic", p))
		}
	}()
	r.Batch(ctx)
}
