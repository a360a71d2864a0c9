// Package runner wraps harvest attempts with retry, failure-sentinel
// bookkeeping, and bounded-concurrency batch scheduling.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sreehariX/redbus-scrapping/config"
	"github.com/sreehariX/redbus-scrapping/harvest"
	"github.com/sreehariX/redbus-scrapping/models"
	"github.com/sreehariX/redbus-scrapping/store"
	"github.com/sreehariX/redbus-scrapping/surface"
)

// Runner executes one route end to end: surface per attempt, retries with
// linear backoff, sentinel row once retries are exhausted.
type Runner struct {
	cfg       *config.Config
	factory   surface.Factory
	harvester *harvest.Harvester
	metrics   *harvest.Metrics
	log       *slog.Logger
}

// New builds a route job runner. metrics may be nil.
func New(cfg *config.Config, factory surface.Factory, harvester *harvest.Harvester, metrics *harvest.Metrics) *Runner {
	return &Runner{
		cfg:       cfg,
		factory:   factory,
		harvester: harvester,
		metrics:   metrics,
		log:       slog.Default(),
	}
}

// Run drives one route to a terminal outcome. Partial output from failed
// attempts stays in the store; the store is append-only, not
// transactional.
func (r *Runner) Run(ctx context.Context, q models.RouteQuery) models.RouteOutcome {
	log := r.log.With(slog.String("route", q.Name()))

	st, err := store.Open(r.cfg.OutputDir, q)
	if err != nil {
		log.Error("cannot open route store", slog.Any("error", err))
		return models.Failed(fmt.Sprintf("open store: %v", err))
	}
	defer func() {
		if err := st.Close(); err != nil {
			log.Error("close route store", slog.Any("error", err))
		}
	}()

	var lastErr error
	for attempt := 1; attempt <= r.cfg.MaxRetries+1; attempt++ {
		if err := ctx.Err(); err != nil {
			lastErr = err
			break
		}

		count, err := r.attempt(ctx, q, st, log)
		if err == nil {
			outcome := models.Success(count)
			log.Info("route finished",
				slog.String("outcome", outcome.Kind.String()),
				slog.Int("records", count),
				slog.Int("attempt", attempt),
			)
			return outcome
		}
		if errors.Is(err, surface.ErrNoResults) {
			log.Info("route has no buses", slog.Int("attempt", attempt))
			return models.RouteOutcome{Kind: models.OutcomeEmpty}
		}

		lastErr = err
		r.metrics.IncNavigationError(surface.ErrorLabel(err))
		log.Warn("route attempt failed",
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", r.cfg.MaxRetries+1),
			slog.String("category", surface.ErrorLabel(err)),
			slog.Any("error", err),
		)

		if ctx.Err() != nil || attempt > r.cfg.MaxRetries {
			break
		}
		if !surface.Recoverable(err) {
			log.Error("error is not recoverable, not retrying", slog.Any("error", err))
			break
		}
		// Linear, not exponential: the constraint is the remote site's
		// anti-automation pacing, not a saturated local resource.
		r.metrics.IncRetries()
		delay := r.cfg.RetryDelay * time.Duration(attempt)
		log.Info("retrying after backoff", slog.Duration("delay", delay))
		if err := sleepCtx(ctx, delay); err != nil {
			lastErr = err
			break
		}
	}

	reason := failureReason(ctx, lastErr)
	if err := st.WriteFailure(q, reason); err != nil {
		log.Error("cannot write failure sentinel", slog.Any("error", err))
	}
	log.Error("route failed", slog.String("reason", reason))
	return models.Failed(reason)
}

// attempt runs one navigation + harvest pass on a fresh surface. The
// surface never outlives the attempt.
func (r *Runner) attempt(ctx context.Context, q models.RouteQuery, st *store.RouteStore, log *slog.Logger) (int, error) {
	surf, err := r.factory(ctx)
	if err != nil {
		return 0, &surface.NavigationError{Step: "acquire-surface", Err: err}
	}
	defer func() {
		if err := surf.Close(); err != nil {
			log.Warn("surface close failed", slog.Any("error", err))
		}
	}()

	if err := surf.Navigate(ctx, q); err != nil {
		return 0, err
	}

	result, err := r.harvester.Run(ctx, surf, q, st.RowCount(), st.Append)
	if err != nil {
		return 0, err
	}
	return result.Count, nil
}

// PreviouslyFailed reports whether the route's store already carries a
// failure sentinel.
func (r *Runner) PreviouslyFailed(q models.RouteQuery) (bool, error) {
	return store.RouteFailed(r.cfg.OutputDir, q)
}

func failureReason(ctx context.Context, err error) string {
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return "Route cancelled due to timeout"
	case errors.Is(ctx.Err(), context.Canceled):
		return "Route cancelled"
	case err != nil:
		return err.Error()
	default:
		return "unknown failure"
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
