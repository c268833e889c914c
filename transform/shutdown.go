package transform

import (
	"context"
	"runtime"

	"go.uber.org/zap"

	"github.com/inspectIT/inspectit-ocelot-sub003/errors"
	"github.com/inspectIT/inspectit-ocelot-sub003/unit"
)

// sweep is the progress of a shutdown that may span several Shutdown calls.
type sweep struct {
	attempted map[unit.ID]bool
	loaders   []*unit.Unit
	failures  *errors.BatchError
	batches   int
	done      bool
}

// Shutdown removes every applied modification. After the shutdown flag is
// set, it repeatedly retransforms the units still recorded as instrumented
// in batches of the configured size. Class-loader units are held back and
// retransformed together in a final batch. No unit is attempted twice.
//
// A unit that cannot be restored is logged and skipped. If ctx is cancelled
// between batches, Shutdown returns ctx's error and a later call resumes the
// sweep where it stopped. Once the sweep has completed, further calls fail
// with KindShuttingDown.
func (h *Hook) Shutdown(ctx context.Context) error {
	h.sweepMu.Lock()
	defer h.sweepMu.Unlock()

	if h.sweep == nil {
		h.mu.Lock()
		h.shuttingDown = true
		h.mu.Unlock()
		h.sweep = &sweep{
			attempted: make(map[unit.ID]bool),
			failures:  &errors.BatchError{},
		}
	}
	sw := h.sweep
	if sw.done {
		return errors.New(errors.PhaseShutdown, errors.KindShuttingDown).
			Detail("shutdown already completed").
			Build()
	}

	size := h.configs.Current().Internal.ShutdownBatchSize
	if size < 1 {
		size = 1
	}

	for {
		if err := ctx.Err(); err != nil {
			h.log.Warn("instrumentation removal interrupted",
				zap.Int("batches", sw.batches),
				zap.Int("remaining", h.engine.Cache().Len()),
				zap.Error(err))
			return err
		}

		var batch []*unit.Unit
		for _, e := range h.engine.Cache().Snapshot() {
			if sw.attempted[e.Unit.ID] {
				continue
			}
			sw.attempted[e.Unit.ID] = true
			if e.Unit.ClassLoader {
				sw.loaders = append(sw.loaders, e.Unit)
				continue
			}
			batch = append(batch, e.Unit)
			if len(batch) == size {
				break
			}
		}
		if len(batch) == 0 {
			break
		}

		h.restore(batch, sw.failures)
		sw.batches++
		runtime.Gosched()
	}

	if len(sw.loaders) > 0 {
		h.restore(sw.loaders, sw.failures)
		sw.batches++
		runtime.Gosched()
	}
	sw.done = true

	h.log.Info("instrumentation removed",
		zap.Int("batches", sw.batches),
		zap.Int("failed", len(sw.failures.Failures)),
		zap.Int("remaining", h.engine.Cache().Len()))

	return sw.failures.ErrorOrNil()
}

func (h *Hook) restore(units []*unit.Unit, failures *errors.BatchError) {
	if batch := ApplyIsolated(h.host, units, h.log); batch != nil {
		failures.Failures = append(failures.Failures, batch.Failures...)
	}
}
