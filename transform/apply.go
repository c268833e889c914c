package transform

import (
	"go.uber.org/zap"

	"github.com/inspectIT/inspectit-ocelot-sub003/errors"
	"github.com/inspectIT/inspectit-ocelot-sub003/unit"
)

// ApplyIsolated retransforms units in one host call. If the batch fails,
// every unit is retried on its own so that one failing unit does not hold
// back the others. Units that still fail are logged and returned; they are
// not retried again.
func ApplyIsolated(host unit.Host, units []*unit.Unit, log *zap.Logger) *errors.BatchError {
	if len(units) == 0 {
		return nil
	}
	if log == nil {
		log = Logger()
	}

	err := host.Retransform(units...)
	if err == nil {
		return nil
	}
	if len(units) == 1 {
		return failed(log, units[0], err)
	}

	log.Debug("batch retransform failed, retrying units one by one",
		zap.Int("units", len(units)),
		zap.Error(err))

	var batch *errors.BatchError
	for _, u := range units {
		if err := host.Retransform(u); err != nil {
			if batch == nil {
				batch = &errors.BatchError{}
			}
			batch.Failures = append(batch.Failures, failed(log, u, err).Failures...)
		}
	}
	return batch
}

func failed(log *zap.Logger, u *unit.Unit, cause error) *errors.BatchError {
	err := errors.ApplyFailed(u.Name, cause)
	log.Error("could not retransform unit",
		zap.String("unit", u.Name),
		zap.Error(err))

	batch := &errors.BatchError{}
	batch.Add(u.Name, err)
	return batch
}
