package runner

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/sreehariX/redbus-scrapping/config"
	"github.com/sreehariX/redbus-scrapping/harvest"
	"github.com/sreehariX/redbus-scrapping/models"
)

// JobRunner executes one route to a terminal outcome. *Runner is the real
// implementation; tests substitute scripted ones.
type JobRunner interface {
	Run(ctx context.Context, q models.RouteQuery) models.RouteOutcome
	PreviouslyFailed(q models.RouteQuery) (bool, error)
}

// Coordinator fans a batch of routes across a bounded worker pool. Workers
// pull the next route as soon as they finish one, so the pool stays full
// even when job durations are uneven.
type Coordinator struct {
	cfg     *config.Config
	runner  JobRunner
	metrics *harvest.Metrics
	log     *slog.Logger
}

// NewCoordinator builds a batch coordinator. metrics may be nil.
func NewCoordinator(cfg *config.Config, runner JobRunner, metrics *harvest.Metrics) *Coordinator {
	return &Coordinator{
		cfg:     cfg,
		runner:  runner,
		metrics: metrics,
		log:     slog.Default(),
	}
}

// RunAll executes every route in the batch and returns the tally. Routes
// whose store already carries a failure sentinel are skipped when
// SkipFailed is set. Each job gets its own deadline; a route that blows it
// is cancelled and counted failed, and the batch moves on.
func (c *Coordinator) RunAll(ctx context.Context, queries []models.RouteQuery) models.BatchSummary {
	var summary models.BatchSummary

	// Route identity is the storage partition key; a duplicate entry would
	// put two workers on the same CSV file.
	pending := make([]models.RouteQuery, 0, len(queries))
	scheduled := make(map[string]struct{}, len(queries))
	for _, q := range queries {
		if _, dup := scheduled[q.Name()]; dup {
			c.log.Warn("duplicate route in batch, running once", slog.String("route", q.Name()))
			continue
		}
		scheduled[q.Name()] = struct{}{}
		if c.cfg.SkipFailed {
			failed, err := c.runner.PreviouslyFailed(q)
			if err != nil {
				c.log.Warn("cannot check previous failure, running anyway",
					slog.String("route", q.Name()), slog.Any("error", err))
			} else if failed {
				c.log.Info("skipping previously failed route", slog.String("route", q.Name()))
				summary.Skipped++
				continue
			}
		}
		pending = append(pending, q)
	}

	workers := c.cfg.Concurrency
	if workers > len(pending) {
		workers = len(pending)
	}
	if workers == 0 {
		return summary
	}

	start := time.Now()
	jobs := make(chan models.RouteQuery)
	outcomes := make(chan models.RouteOutcome)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for q := range jobs {
				outcomes <- c.runOne(ctx, q)
			}
		}()
	}
	go func() {
		defer close(jobs)
		for _, q := range pending {
			select {
			case jobs <- q:
			case <-ctx.Done():
				return
			}
		}
	}()
	go func() {
		wg.Wait()
		close(outcomes)
	}()

	for outcome := range outcomes {
		c.metrics.IncRoute(outcome.Kind.String())
		switch outcome.Kind {
		case models.OutcomeSuccess:
			summary.Completed++
			summary.Records += outcome.Count
		case models.OutcomeEmpty:
			summary.Empty++
		case models.OutcomeFailed:
			summary.Failed++
		}
	}

	c.log.Info("batch finished",
		slog.Int("completed", summary.Completed),
		slog.Int("empty", summary.Empty),
		slog.Int("failed", summary.Failed),
		slog.Int("skipped", summary.Skipped),
		slog.Int("records", summary.Records),
		slog.Duration("elapsed", time.Since(start).Round(time.Second)),
	)
	return summary
}

// runOne wraps a single job in its per-route deadline.
func (c *Coordinator) runOne(ctx context.Context, q models.RouteQuery) models.RouteOutcome {
	jobCtx, cancel := context.WithTimeout(ctx, c.cfg.JobTimeout)
	defer cancel()
	return c.runner.Run(jobCtx, q)
}
