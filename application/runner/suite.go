package runner

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"webharness-go/domain/flow"
	"webharness-go/domain/run"
)

// SuiteConfig holds configuration for a Suite.
type SuiteConfig struct {
	Runner *FlowRunner

	// History stores records. Optional.
	History *run.History

	// Parallel bounds how many flows run at once. Values below 1 mean 1.
	Parallel int

	// LaunchesPerSecond throttles browser starts. Zero or less means no limit.
	LaunchesPerSecond float64

	Logger *slog.Logger
}

// Suite runs many flows, each in its own session.
type Suite struct {
	runner   *FlowRunner
	history  *run.History
	parallel int
	limiter  *rate.Limiter
	logger   *slog.Logger
}

// NewSuite creates a suite.
func NewSuite(cfg *SuiteConfig) *Suite {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	parallel := cfg.Parallel
	if parallel < 1 {
		parallel = 1
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.LaunchesPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.LaunchesPerSecond), 1)
	}
	return &Suite{
		runner:   cfg.Runner,
		history:  cfg.History,
		parallel: parallel,
		limiter:  limiter,
		logger:   logger,
	}
}

// Run executes flows and returns their records in input order. Flows that
// never started because ctx was cancelled have no record. The error joins
// setup failures and the cancellation cause; assertion failures are only
// reported through the records.
func (s *Suite) Run(ctx context.Context, flows []*flow.Flow) ([]*run.Record, error) {
	records := make([]*run.Record, len(flows))
	setupErrs := make([]error, len(flows))

	var g errgroup.Group
	g.SetLimit(s.parallel)

	for i, f := range flows {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if f.UI {
				if err := s.limiter.Wait(ctx); err != nil {
					return err
				}
			}

			metricFlowsInFlight.Inc()
			rec, err := s.runner.Run(ctx, f)
			metricFlowsInFlight.Dec()

			records[i] = rec
			setupErrs[i] = err
			s.save(ctx, rec)
			return nil
		})
	}

	waitErr := g.Wait()
	if waitErr == nil {
		waitErr = ctx.Err()
	}

	out := make([]*run.Record, 0, len(records))
	for _, rec := range records {
		if rec != nil {
			out = append(out, rec)
		}
	}

	summary := run.Summarize(out)
	s.logger.Info("Suite finished",
		"total", summary.Total,
		"success", summary.Success,
		"failure", summary.Failure,
		"inconclusive", summary.Inconclusive,
		"skipped", len(flows)-len(out),
	)
	return out, errors.Join(append(setupErrs, waitErr)...)
}

func (s *Suite) save(ctx context.Context, rec *run.Record) {
	if s.history == nil || rec == nil {
		return
	}
	if err := s.history.Record(context.WithoutCancel(ctx), rec); err != nil {
		s.logger.Warn("Failed to save run record", "flow", rec.Flow, "id", rec.ID, "error", err)
	}
}
