package runner

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/sreehariX/redbus-scrapping/config"
	"github.com/sreehariX/redbus-scrapping/models"
)

// fakeJob is a scripted JobRunner that records scheduling behavior.
type fakeJob struct {
	outcome func(q models.RouteQuery) models.RouteOutcome
	failed  map[string]bool

	mu      sync.Mutex
	current int
	peak    int
	ran     map[string]int
}

func newFakeJob(outcome func(q models.RouteQuery) models.RouteOutcome) *fakeJob {
	if outcome == nil {
		outcome = func(models.RouteQuery) models.RouteOutcome { return models.Success(1) }
	}
	return &fakeJob{outcome: outcome, ran: make(map[string]int)}
}

func (j *fakeJob) Run(ctx context.Context, q models.RouteQuery) models.RouteOutcome {
	j.mu.Lock()
	j.current++
	if j.current > j.peak {
		j.peak = j.current
	}
	j.mu.Unlock()

	time.Sleep(5 * time.Millisecond)

	j.mu.Lock()
	j.current--
	j.ran[q.Name()]++
	j.mu.Unlock()
	return j.outcome(q)
}

func (j *fakeJob) PreviouslyFailed(q models.RouteQuery) (bool, error) {
	return j.failed[q.Name()], nil
}

func routes(n int) []models.RouteQuery {
	queries := make([]models.RouteQuery, n)
	for i := range queries {
		queries[i] = models.RouteQuery{From: "Delhi", To: fmt.Sprintf("City %d", i), MonthYear: "Apr 2025", Day: "20"}
	}
	return queries
}

func TestCoordinatorBoundsConcurrency(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Concurrency = 3
	cfg.SkipFailed = false

	job := newFakeJob(nil)
	summary := NewCoordinator(cfg, job, nil).RunAll(context.Background(), routes(10))

	if summary.Completed != 10 || summary.Records != 10 {
		t.Errorf("summary = %+v, want 10 completed routes", summary)
	}
	if job.peak > cfg.Concurrency {
		t.Errorf("observed %d concurrent jobs, bound is %d", job.peak, cfg.Concurrency)
	}
	for name, n := range job.ran {
		if n != 1 {
			t.Errorf("route %s ran %d times", name, n)
		}
	}
	if len(job.ran) != 10 {
		t.Errorf("ran %d distinct routes, want 10", len(job.ran))
	}
}

func TestCoordinatorSkipsPreviouslyFailed(t *testing.T) {
	queries := routes(4)
	job := newFakeJob(nil)
	job.failed = map[string]bool{
		queries[1].Name(): true,
		queries[3].Name(): true,
	}

	cfg := config.DefaultConfig()
	cfg.Concurrency = 2
	summary := NewCoordinator(cfg, job, nil).RunAll(context.Background(), queries)

	if summary.Skipped != 2 || summary.Completed != 2 {
		t.Errorf("summary = %+v, want 2 skipped and 2 completed", summary)
	}
	if job.ran[queries[1].Name()] != 0 || job.ran[queries[3].Name()] != 0 {
		t.Error("previously failed routes were run despite skip")
	}

	// With skipping off, everything runs again.
	job = newFakeJob(nil)
	job.failed = map[string]bool{queries[1].Name(): true}
	cfg.SkipFailed = false
	summary = NewCoordinator(cfg, job, nil).RunAll(context.Background(), queries)
	if summary.Skipped != 0 || summary.Completed != 4 {
		t.Errorf("summary = %+v, want all 4 completed with --no-skip", summary)
	}
}

func TestCoordinatorTalliesOutcomes(t *testing.T) {
	queries := routes(6)
	job := newFakeJob(func(q models.RouteQuery) models.RouteOutcome {
		switch q.To {
		case "City 0", "City 1":
			return models.Success(3)
		case "City 2":
			return models.RouteOutcome{Kind: models.OutcomeEmpty}
		default:
			return models.Failed("browser crashed")
		}
	})

	cfg := config.DefaultConfig()
	cfg.SkipFailed = false
	summary := NewCoordinator(cfg, job, nil).RunAll(context.Background(), queries)

	want := models.BatchSummary{Completed: 2, Empty: 1, Failed: 3, Records: 6}
	if summary != want {
		t.Errorf("summary = %+v, want %+v", summary, want)
	}
}

func TestCoordinatorRunsDuplicateRoutesOnce(t *testing.T) {
	queries := routes(3)
	queries = append(queries, queries[0], queries[2])

	cfg := config.DefaultConfig()
	cfg.SkipFailed = false
	job := newFakeJob(nil)
	summary := NewCoordinator(cfg, job, nil).RunAll(context.Background(), queries)

	if summary.Completed != 3 {
		t.Errorf("summary = %+v, want the 3 distinct routes completed", summary)
	}
	for name, n := range job.ran {
		if n != 1 {
			t.Errorf("route %s ran %d times, duplicates must collapse to one job", name, n)
		}
	}
}

func TestCoordinatorEmptyBatch(t *testing.T) {
	cfg := config.DefaultConfig()
	summary := NewCoordinator(cfg, newFakeJob(nil), nil).RunAll(context.Background(), nil)
	if summary != (models.BatchSummary{}) {
		t.Errorf("summary = %+v, want zero", summary)
	}
}
