package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/robfig/cron/v3"
)

// Cleaner removes expired entries and reports how many it removed.
// draft.Store satisfies it.
type Cleaner interface {
	Cleanup(ctx context.Context) (int, error)
}

// Worker periodically sweeps expired drafts. Expiry is already enforced on
// read; the sweep only bounds memory when drafts are abandoned.
type Worker struct {
	target   Cleaner
	schedule cron.Schedule
	logger   *slog.Logger
	runs     atomic.Int64
}

// New parses spec (standard cron or a descriptor such as "@every 1m").
func New(target Cleaner, spec string, logger *slog.Logger) (*Worker, error) {
	sched, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("parse sweep schedule %q: %w", spec, err)
	}
	return &Worker{target: target, schedule: sched, logger: logger}, nil
}

// Start runs the sweep on schedule. It blocks until ctx is cancelled and a
// running sweep has finished.
func (w *Worker) Start(ctx context.Context) {
	c := cron.New()
	c.Schedule(w.schedule, cron.FuncJob(func() { w.SweepOnce(ctx) }))
	c.Start()

	<-ctx.Done()
	<-c.Stop().Done()
}

// SweepOnce runs a single cleanup pass and returns the number removed.
func (w *Worker) SweepOnce(ctx context.Context) int {
	w.runs.Add(1)
	n, err := w.target.Cleanup(ctx)
	if err != nil {
		w.logger.ErrorContext(ctx, "draft sweep failed", slog.String("error", err.Error()))
		return 0
	}
	if n > 0 {
		w.logger.InfoContext(ctx, "draft sweep", slog.Int("removed", n))
	}
	return n
}

// Runs reports how many sweeps have started.
func (w *Worker) Runs() int64 {
	return w.runs.Load()
}
