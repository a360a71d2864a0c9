// Package harvest implements the incremental scroll-and-extract loop that
// turns an infinitely-scrolling result list into a deduplicated stream of
// bus records.
package harvest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/sreehariX/redbus-scrapping/config"
	"github.com/sreehariX/redbus-scrapping/models"
	"github.com/sreehariX/redbus-scrapping/surface"
)

// Sink receives each harvested record as soon as it is fully extracted.
// Returning an error aborts the harvest.
type Sink func(*models.BusRecord) error

// Result summarizes one harvest run.
type Result struct {
	Count    int  // records emitted
	Expected int  // page-reported total, 0 when unavailable
	Partial  bool // hit the absolute scroll bound before stabilizing
	Steps    int  // scroll steps taken
}

// Harvester drives one surface through priming, discovery, and settling.
// It owns sequence-id assignment and identity-based deduplication; the
// surface owns everything about how rows render.
type Harvester struct {
	cfg     *config.Config
	fare    *FareExtractor
	metrics *Metrics
	log     *slog.Logger
}

// New builds a harvester. metrics may be nil.
func New(cfg *config.Config, metrics *Metrics) *Harvester {
	return &Harvester{
		cfg:     cfg,
		fare:    &FareExtractor{Metrics: metrics},
		metrics: metrics,
		log:     slog.Default(),
	}
}

// NewWithFareExtractor overrides the fare extractor, used by tests to drop
// the settle waits.
func NewWithFareExtractor(cfg *config.Config, metrics *Metrics, fare *FareExtractor) *Harvester {
	h := New(cfg, metrics)
	if fare != nil {
		if fare.Metrics == nil {
			fare.Metrics = metrics
		}
		h.fare = fare
	}
	return h
}

type harvestState struct {
	seen    *lru.Cache[string, struct{}]
	nextSeq int
	emitted int
}

// Run harvests the surface's result list for one route. Sequence ids start
// at startSeq+1, so a caller appending to a store with n rows passes n.
// Rows are fully consumed (normalized and fare-extracted) before every
// scroll; handles never survive a scroll step.
func (h *Harvester) Run(ctx context.Context, surf surface.Surface, q models.RouteQuery, startSeq int, emit Sink) (*Result, error) {
	seen, err := lru.New[string, struct{}](h.cfg.DedupeMaxSize)
	if err != nil {
		return nil, fmt.Errorf("build seen set: %w", err)
	}
	state := &harvestState{seen: seen, nextSeq: startSeq + 1}
	log := h.log.With(slog.String("route", q.Name()))

	if err := h.prime(ctx, surf, log); err != nil {
		return nil, err
	}

	result := &Result{}
	if expected, ok := surf.ExpectedCount(ctx); ok {
		result.Expected = expected
		log.Info("page reports expected total", slog.Int("expected", expected))
	}

	lastHeight, err := surf.PageHeight(ctx)
	if err != nil {
		return nil, fmt.Errorf("measure page: %w", err)
	}
	noProgress := 0
	matched := false

	for result.Steps < h.cfg.MaxScrollSteps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		result.Steps++

		visibleBefore, newCount, err := h.discover(ctx, surf, q, state, emit)
		if err != nil {
			return nil, err
		}
		log.Info("scroll step",
			slog.Int("step", result.Steps),
			slog.Int("new", newCount),
			slog.Int("total", state.emitted),
			slog.Int("expected", result.Expected),
		)

		if result.Expected > 0 && state.emitted == result.Expected {
			matched = true
			break
		}

		if err := surf.ScrollBy(ctx, h.cfg.ScrollStep); err != nil {
			return nil, fmt.Errorf("scroll: %w", err)
		}
		if err := sleep(ctx, h.cfg.ScrollSettle); err != nil {
			return nil, err
		}

		newHeight, err := surf.PageHeight(ctx)
		if err != nil {
			return nil, fmt.Errorf("measure page: %w", err)
		}
		visibleNow, err := h.visibleCount(ctx, surf)
		if err != nil {
			return nil, err
		}

		// Three independent plateau signals: document height, rendered row
		// count, and harvest delta. All three must stall to count as
		// no-progress, so one noisy signal cannot stop the run early.
		if newHeight == lastHeight && visibleNow == visibleBefore && newCount == 0 {
			noProgress++
			log.Debug("no progress", slog.Int("streak", noProgress), slog.Int("threshold", h.cfg.NoProgressThreshold))
			if noProgress >= h.cfg.NoProgressThreshold {
				if err := h.settle(ctx, surf, q, state, result, emit, log); err != nil {
					return nil, err
				}
				matched = result.Expected > 0 && state.emitted == result.Expected
				break
			}
		} else {
			noProgress = 0
		}
		lastHeight = newHeight
	}

	result.Count = state.emitted
	if result.Steps >= h.cfg.MaxScrollSteps && !matched && noProgress < h.cfg.NoProgressThreshold {
		result.Partial = true
		log.Warn("scroll bound reached before the page stabilized",
			slog.Int("steps", result.Steps),
			slog.Int("harvested", state.emitted),
			slog.Int("expected", result.Expected),
		)
	}
	h.metrics.ObserveScrollSteps(result.Steps)
	log.Info("harvest finished",
		slog.Int("records", result.Count),
		slog.Int("steps", result.Steps),
		slog.Bool("partial", result.Partial),
	)
	return result, nil
}

// prime coaxes the lazy renderer into existence: one full bottom-and-back
// pass, three progressive pulses, then the grouped-operator expanders.
// Best effort throughout.
func (h *Harvester) prime(ctx context.Context, surf surface.Surface, log *slog.Logger) error {
	if err := surf.ScrollTo(ctx, 0); err != nil {
		return fmt.Errorf("prime: %w", err)
	}
	if err := sleep(ctx, h.cfg.ScrollSettle); err != nil {
		return err
	}
	if err := surf.ScrollToBottom(ctx); err != nil {
		return fmt.Errorf("prime: %w", err)
	}
	if err := sleep(ctx, h.cfg.ScrollSettle); err != nil {
		return err
	}
	if err := surf.ScrollTo(ctx, 0); err != nil {
		return fmt.Errorf("prime: %w", err)
	}
	if err := sleep(ctx, h.cfg.ScrollSettle); err != nil {
		return err
	}

	for i := 1; i <= 3; i++ {
		if err := surf.ScrollTo(ctx, 750*i); err != nil {
			return fmt.Errorf("prime: %w", err)
		}
		if err := sleep(ctx, h.cfg.ScrollSettle/2); err != nil {
			return err
		}
	}
	if err := surf.ScrollTo(ctx, 0); err != nil {
		return fmt.Errorf("prime: %w", err)
	}
	if err := sleep(ctx, h.cfg.ScrollSettle); err != nil {
		return err
	}

	expanded, err := surf.ExpandGroups(ctx)
	if err != nil {
		if errors.Is(err, surface.ErrCrashed) || ctx.Err() != nil {
			return err
		}
		log.Warn("group expansion abandoned", slog.Any("error", err))
	}
	if expanded > 0 {
		log.Info("expanded operator groups", slog.Int("groups", expanded))
	}

	if err := surf.ScrollTo(ctx, 0); err != nil {
		return fmt.Errorf("prime: %w", err)
	}
	return sleep(ctx, h.cfg.ScrollSettle/2)
}

// discover consumes every currently rendered row that has not been seen
// yet: normalize, extract fares, emit. Returns the rendered row count and
// how many new records were emitted.
func (h *Harvester) discover(ctx context.Context, surf surface.Surface, q models.RouteQuery, state *harvestState, emit Sink) (visible, newCount int, err error) {
	rows, err := surf.Rows(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("list rows: %w", err)
	}

	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return len(rows), newCount, err
		}
		rec, identity, ok := Normalize(ctx, row, q)
		if !ok {
			h.metrics.IncStaleRows()
			continue
		}
		key := identity.String()
		if _, dup := state.seen.Get(key); dup {
			h.metrics.IncDuplicates()
			continue
		}

		rec.LowestPrice, rec.HighestPrice = h.fare.ExtractFareRange(ctx, row)
		rec.SeqID = state.nextSeq

		if err := emit(rec); err != nil {
			return len(rows), newCount, fmt.Errorf("emit record %d: %w", rec.SeqID, err)
		}
		state.seen.Add(key, struct{}{})
		state.nextSeq++
		state.emitted++
		newCount++
		h.metrics.IncRecords()
	}
	return len(rows), newCount, nil
}

// settle runs the bounded forced-bottom passes that catch rows which only
// render at the true end of the list.
func (h *Harvester) settle(ctx context.Context, surf surface.Surface, q models.RouteQuery, state *harvestState, result *Result, emit Sink, log *slog.Logger) error {
	log.Info("settling", slog.Int("passes", h.cfg.SettlePasses))
	for i := 0; i < h.cfg.SettlePasses; i++ {
		if err := surf.ScrollToBottom(ctx); err != nil {
			return fmt.Errorf("settle: %w", err)
		}
		if err := sleep(ctx, h.cfg.ScrollSettle); err != nil {
			return err
		}

		_, newCount, err := h.discover(ctx, surf, q, state, emit)
		if err != nil {
			return err
		}
		if newCount > 0 {
			log.Info("settling pass found more rows", slog.Int("pass", i+1), slog.Int("new", newCount))
		}
		if result.Expected > 0 && state.emitted == result.Expected {
			return nil
		}

		if err := surf.ScrollTo(ctx, 0); err != nil {
			return fmt.Errorf("settle: %w", err)
		}
		if err := sleep(ctx, h.cfg.ScrollSettle/2); err != nil {
			return err
		}
	}
	return nil
}

func (h *Harvester) visibleCount(ctx context.Context, surf surface.Surface) (int, error) {
	rows, err := surf.Rows(ctx)
	if err != nil {
		return 0, fmt.Errorf("list rows: %w", err)
	}
	return len(rows), nil
}

// sleep waits for d unless the context ends first.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
