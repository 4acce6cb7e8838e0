package runner

import (
	"context"
	"sync"

	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/media-uniquer/internal/metrics"
	"github.com/aliskhannn/media-uniquer/internal/model"
	"github.com/aliskhannn/media-uniquer/internal/repository/status"
)

// maxInFlight keeps 100 reserved for verified completion.
const maxInFlight = 99

// reporter serializes the status writes of a single task. Progress only ever
// moves forward and the first terminal write wins.
type reporter struct {
	mu       sync.Mutex
	store    status.Store
	strategy retry.Strategy
	id       string
	last     int
	done     bool
}

func newReporter(store status.Store, strategy retry.Strategy, id string) *reporter {
	return &reporter{store: store, strategy: strategy, id: id}
}

// start writes the initial PROCESSING record.
func (r *reporter) start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.store.Put(ctx, r.id, model.Status{
		State:    model.StateProcessing,
		Progress: 0,
		Stage:    StageInitializing,
	})
}

// progress records p if it advances the task. Duplicates and regressions are
// dropped. A failed write is logged and does not stop the task.
func (r *reporter) progress(ctx context.Context, p int) {
	p = max(0, min(maxInFlight, p))

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.done || p <= r.last {
		return
	}

	err := r.store.Put(ctx, r.id, model.Status{
		State:    model.StateProcessing,
		Progress: p,
		Stage:    StageFor(p),
	})
	if err != nil {
		metrics.StatusWriteErrorsTotal.Inc()
		zlog.Logger.Warn().Err(err).Str("task_id", r.id).Int("progress", p).Msg("failed to write progress")
		return
	}

	r.last = p
}

// complete writes the COMPLETED record.
func (r *reporter) complete(ctx context.Context) (model.Status, bool) {
	return r.terminal(ctx, model.Status{
		State:    model.StateCompleted,
		Progress: 100,
		Stage:    StageComplete,
	})
}

// fail writes a FAILED record that keeps the last reported progress.
func (r *reporter) fail(ctx context.Context, stage, msg string) (model.Status, bool) {
	r.mu.Lock()
	last := r.last
	r.mu.Unlock()

	return r.terminal(ctx, model.Status{
		State:    model.StateFailed,
		Progress: last,
		Stage:    stage,
		Error:    msg,
	})
}

// terminal writes s once. It reports false if a terminal record was already
// written by this reporter.
func (r *reporter) terminal(ctx context.Context, s model.Status) (model.Status, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.done {
		return model.Status{}, false
	}
	r.done = true

	err := retry.Do(func() error {
		return r.store.Put(ctx, r.id, s)
	}, r.strategy)
	if err != nil {
		metrics.StatusWriteErrorsTotal.Inc()
		zlog.Logger.Error().Err(err).Str("task_id", r.id).Str("state", string(s.State)).Msg("failed to write terminal status")
	}

	return s, true
}

// finished reports whether a terminal record has been claimed.
func (r *reporter) finished() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.done
}
