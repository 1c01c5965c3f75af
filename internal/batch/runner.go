// Package batch drives file transactions over a directory tree with a
// bounded number of concurrent workers.
//
// Each file is an independent failure unit: a failed or rolled back file is
// recorded and the run moves on. The one exception is a failed rollback,
// which means an original could not be restored; the run then stops
// starting new files and reports the files it never reached.
package batch

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ajitpratap0/scrub/pkg/errors"
	"github.com/ajitpratap0/scrub/pkg/logger"
	"github.com/ajitpratap0/scrub/pkg/metrics"
	"github.com/ajitpratap0/scrub/pkg/transaction"
)

// Processor runs one file transaction
type Processor interface {
	Process(ctx context.Context, path string) transaction.Result
}

// Config configures a Runner
type Config struct {
	Workers int
	Logger  *zap.Logger
	Metrics *metrics.Collector
}

// Runner processes batches of files
type Runner struct {
	proc    Processor
	workers int
	logger  *zap.Logger
	metrics *metrics.Collector
}

// NewRunner creates a runner that hands each file to proc
func NewRunner(proc Processor, cfg Config) *Runner {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Runner{
		proc:    proc,
		workers: cfg.Workers,
		logger:  cfg.Logger.With(zap.String("component", "batch_runner")),
		metrics: cfg.Metrics,
	}
}

// Run processes files and returns the summary. The error is non-nil only
// when the run halted on a failed rollback; per-file failures are in the
// summary.
func (r *Runner) Run(ctx context.Context, files []string) (*Summary, error) {
	timer := metrics.NewTimer()
	s := &Summary{
		RunID:     uuid.NewString(),
		StartedAt: time.Now(),
	}
	ctx = logger.WithRunID(ctx, s.RunID)
	log := logger.FromContext(ctx, r.logger)
	log.Info("starting batch", zap.Int("files", len(files)), zap.Int("workers", r.workers))

	results := make([]*transaction.Result, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for i, path := range files {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			if r.metrics != nil {
				r.metrics.WorkerStarted()
				defer r.metrics.WorkerDone()
			}

			res := r.proc.Process(gctx, path)
			results[i] = &res
			if errors.HaltsBatch(res.Err) {
				return res.Err
			}
			return nil
		})
	}
	err := g.Wait()

	for i, res := range results {
		if res == nil {
			s.NotProcessed = append(s.NotProcessed, files[i])
			continue
		}
		s.Results = append(s.Results, *res)
	}
	s.Duration = timer.Stop()

	if err != nil {
		s.Halted = true
		log.Error("batch halted",
			zap.Error(err),
			zap.Int("not_processed", len(s.NotProcessed)))
		return s, err
	}

	log.Info("batch finished",
		zap.Any("outcomes", s.Counts()),
		zap.Int("values_redacted", s.ValuesRedacted()),
		zap.Duration("duration", s.Duration))
	return s, nil
}
