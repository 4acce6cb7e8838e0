// Package runner drives one background job per accepted task and records its
// lifecycle in the status store.
package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/media-uniquer/internal/metrics"
	"github.com/aliskhannn/media-uniquer/internal/model"
	"github.com/aliskhannn/media-uniquer/internal/processor"
	"github.com/aliskhannn/media-uniquer/internal/repository/status"
)

var (
	ErrInvalidTask    = errors.New("invalid task")
	ErrNotReady       = errors.New("task is still processing")
	ErrTaskFailed     = errors.New("task failed")
	ErrResultNotFound = errors.New("result not found")
)

// Failure stages and messages.
const (
	stageVideoFailed  = "Error processing video"
	stageImageFailed  = "Error processing image"
	stageNoOutput     = "Failed to create output file"
	stageUnexpected   = "Unexpected error"
	msgNoOutput       = "Processing failed"
	msgEmptyOutput    = "Output file is empty"
	msgUnexpectedFail = "Unexpected error: %v"
)

// engine performs the actual media transform.
type engine interface {
	Image(ctx context.Context, inputPath, outputPath string) error
	Video(ctx context.Context, inputPath, outputPath string, report func(processor.Event)) error
}

// Listener is notified once when a task reaches a terminal state.
type Listener interface {
	OnTerminal(ctx context.Context, task model.Task, s model.Status)
}

// Options configures a Runner.
type Options struct {
	OutputDir     string
	MaxConcurrent int // zero means unbounded
	Strategy      retry.Strategy
}

// Runner starts and tracks background transform jobs.
type Runner struct {
	store     status.Store
	engine    engine
	outputDir string
	strategy  retry.Strategy
	sem       chan struct{}
	listeners []Listener

	wg sync.WaitGroup
}

// New creates a new Runner.
func New(store status.Store, e engine, opts Options, listeners ...Listener) *Runner {
	r := &Runner{
		store:     store,
		engine:    e,
		outputDir: opts.OutputDir,
		strategy:  opts.Strategy,
		listeners: listeners,
	}

	if opts.MaxConcurrent > 0 {
		r.sem = make(chan struct{}, opts.MaxConcurrent)
	}

	return r
}

// Start records the task as PROCESSING and runs the transform in the
// background. It returns once the initial record is written; every later
// outcome is observable only through Status.
//
// The job does not inherit cancellation from ctx.
func (r *Runner) Start(ctx context.Context, task model.Task) error {
	if !model.ValidTaskID(task.ID) || task.InputPath == "" {
		return ErrInvalidTask
	}

	rep := newReporter(r.store, r.strategy, task.ID)
	if err := rep.start(ctx); err != nil {
		return fmt.Errorf("write initial status: %w", err)
	}

	metrics.TasksStartedTotal.WithLabelValues(string(task.Kind)).Inc()

	jobCtx := context.WithoutCancel(ctx)

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		if r.sem != nil {
			r.sem <- struct{}{}
			defer func() { <-r.sem }()
		}

		r.run(jobCtx, task, rep)
	}()

	return nil
}

// Wait blocks until every started job has finished.
func (r *Runner) Wait() {
	r.wg.Wait()
}

// Status returns the current record for id, or status.ErrStatusNotFound.
func (r *Runner) Status(ctx context.Context, id string) (model.Status, error) {
	if !model.ValidTaskID(id) {
		return model.Status{}, status.ErrStatusNotFound
	}

	return r.store.Get(ctx, id)
}

// ResultPath returns the output file of a completed task.
func (r *Runner) ResultPath(ctx context.Context, id string) (string, error) {
	s, err := r.Status(ctx, id)
	if err != nil {
		return "", err
	}

	switch s.State {
	case model.StateProcessing:
		return "", ErrNotReady
	case model.StateFailed:
		return "", ErrTaskFailed
	}

	for _, name := range model.OutputNames(id) {
		path := filepath.Join(r.outputDir, name)
		if info, err := os.Stat(path); err == nil && info.Mode().IsRegular() {
			return path, nil
		}
	}

	return "", ErrResultNotFound
}

func (r *Runner) run(ctx context.Context, task model.Task, rep *reporter) {
	started := time.Now()
	out := filepath.Join(r.outputDir, model.OutputName(task.ID, task.Kind))

	metrics.TasksActive.Inc()
	defer metrics.TasksActive.Dec()

	defer func() {
		if v := recover(); v != nil {
			zlog.Logger.Error().Str("task_id", task.ID).Interface("panic", v).Msg("transform panicked")
			if rep.finished() {
				return
			}
			removeOutput(out)
			r.fail(ctx, task, rep, started, stageUnexpected, fmt.Sprintf(msgUnexpectedFail, v))
		}
	}()

	zlog.Logger.Info().Str("task_id", task.ID).Str("kind", string(task.Kind)).Msg("task started")

	var err error
	switch task.Kind {
	case model.KindVideo:
		err = r.engine.Video(ctx, task.InputPath, out, func(e processor.Event) {
			rep.progress(ctx, e.Percent())
		})
	default:
		err = r.engine.Image(ctx, task.InputPath, out)
	}

	if err != nil {
		stage := stageImageFailed
		if task.Kind == model.KindVideo {
			stage = stageVideoFailed
		}

		removeOutput(out)
		r.fail(ctx, task, rep, started, stage, err.Error())
		return
	}

	info, err := os.Stat(out)
	switch {
	case err != nil:
		r.fail(ctx, task, rep, started, stageNoOutput, msgNoOutput)
	case info.Size() == 0:
		removeOutput(out)
		r.fail(ctx, task, rep, started, stageNoOutput, msgEmptyOutput)
	default:
		s, written := rep.complete(ctx)
		r.finish(ctx, task, started, s, written)
	}
}

func (r *Runner) fail(ctx context.Context, task model.Task, rep *reporter, started time.Time, stage, msg string) {
	s, written := rep.fail(ctx, stage, msg)
	r.finish(ctx, task, started, s, written)
}

func (r *Runner) finish(ctx context.Context, task model.Task, started time.Time, s model.Status, written bool) {
	if !written {
		return
	}

	metrics.TasksFinishedTotal.WithLabelValues(string(task.Kind), string(s.State)).Inc()
	metrics.TaskDuration.WithLabelValues(string(task.Kind)).Observe(time.Since(started).Seconds())

	ev := zlog.Logger.Info()
	if s.State == model.StateFailed {
		ev = zlog.Logger.Warn().Str("error", s.Error)
	}
	ev.Str("task_id", task.ID).Str("state", string(s.State)).Dur("elapsed", time.Since(started)).Msg("task finished")

	for _, l := range r.listeners {
		notify(ctx, l, task, s)
	}
}

// notify isolates a listener so its panic cannot reach the task or the
// listeners after it.
func notify(ctx context.Context, l Listener, task model.Task, s model.Status) {
	defer func() {
		if v := recover(); v != nil {
			zlog.Logger.Error().Str("task_id", task.ID).Interface("panic", v).Msg("terminal listener panicked")
		}
	}()

	l.OnTerminal(ctx, task, s)
}

func removeOutput(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		zlog.Logger.Warn().Err(err).Str("output", path).Msg("failed to remove output")
	}
}
