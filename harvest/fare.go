package harvest

import (
	"context"
	"log/slog"
	"regexp"
	"strconv"
	"time"

	"github.com/sreehariX/redbus-scrapping/surface"
)

// FareExtractor expands a row's fare-breakdown panel and computes the
// lowest/highest price pair. Every failure degrades to the single visible
// fare; nothing here is allowed to fail a route.
type FareExtractor struct {
	// ExpandSettle is the wait after opening the panel before reading
	// prices; CollapseSettle the wait after closing it. Zero means the
	// production defaults.
	ExpandSettle   time.Duration
	CollapseSettle time.Duration

	Metrics *Metrics
}

func (fe *FareExtractor) expandSettle() time.Duration {
	if fe.ExpandSettle > 0 {
		return fe.ExpandSettle
	}
	return 1500 * time.Millisecond
}

func (fe *FareExtractor) collapseSettle() time.Duration {
	if fe.CollapseSettle > 0 {
		return fe.CollapseSettle
	}
	return 500 * time.Millisecond
}

// ExtractFareRange returns (lowest, highest) for one row. Both fall back
// to the single visible fare when no breakdown is obtainable, and to 0.0
// when even that is unreadable.
func (fe *FareExtractor) ExtractFareRange(ctx context.Context, row surface.Row) (float64, float64) {
	fallback := 0.0
	if text, err := row.Text(ctx, visibleFareSel); err == nil {
		if v, ok := parsePrice(text); ok {
			fallback = v
		}
	}
	lowest, highest := fallback, fallback

	expanded := false
	for _, sel := range viewSeatsSelectors {
		clicked, err := row.ClickVisible(ctx, sel, viewSeatsTexts)
		if err != nil {
			slog.Debug("fare panel expand failed", slog.String("selector", sel), slog.Any("error", err))
			fe.Metrics.IncFareFallbacks()
			return lowest, highest
		}
		if clicked {
			expanded = true
			break
		}
	}
	if !expanded {
		fe.Metrics.IncFareFallbacks()
		return lowest, highest
	}
	if err := sleep(ctx, fe.expandSettle()); err != nil {
		return lowest, highest
	}

	if values := fe.priceTier(ctx, row); len(values) > 0 {
		lowest, highest = values[0], values[0]
		for _, v := range values[1:] {
			if v < lowest {
				lowest = v
			}
			if v > highest {
				highest = v
			}
		}
	} else {
		fe.Metrics.IncFareFallbacks()
	}

	fe.collapse(ctx, row)
	return lowest, highest
}

// priceTier scans the breakdown tiers in priority order: discounted fares,
// then multi-fare entries, then any generically tagged price. The first
// tier that yields values wins; tiers are never merged.
func (fe *FareExtractor) priceTier(ctx context.Context, row surface.Row) []float64 {
	if values := fe.readPrices(ctx, row, discountPriceSel); len(values) > 0 {
		return values
	}
	if values := fe.readPrices(ctx, row, multiFareSel); len(values) > 0 {
		return values
	}
	return fe.readPrices(ctx, row, anyPriceSel)
}

func (fe *FareExtractor) readPrices(ctx context.Context, row surface.Row, selector string) []float64 {
	raw, err := row.AttrAll(ctx, selector, priceAttr)
	if err != nil {
		slog.Debug("price scan failed", slog.String("selector", selector), slog.Any("error", err))
		return nil
	}
	values := make([]float64, 0, len(raw))
	for _, text := range raw {
		if text == priceAllSentinel {
			continue
		}
		v, ok := parsePrice(text)
		if !ok {
			slog.Warn("unparseable price dropped", slog.String("text", text))
			continue
		}
		values = append(values, v)
	}
	return values
}

// collapse closes the expanded panel so later rows keep a stable layout.
// Failure to collapse is logged, never fatal.
func (fe *FareExtractor) collapse(ctx context.Context, row surface.Row) {
	for _, sel := range hideSeatsSelectors {
		clicked, err := row.ClickVisible(ctx, sel, nil)
		if err != nil {
			slog.Debug("fare panel collapse failed", slog.String("selector", sel), slog.Any("error", err))
			return
		}
		if clicked {
			_ = sleep(ctx, fe.collapseSettle())
			return
		}
	}
	// No hide control; push the row to the viewport edge so the UI folds
	// the panel itself.
	if err := row.ScrollOutOfView(ctx); err != nil {
		slog.Debug("fare panel collapse scroll failed", slog.Any("error", err))
		return
	}
	_ = sleep(ctx, fe.collapseSettle())
}

var nonPriceChars = regexp.MustCompile(`[^\d.]`)

// parsePrice strips everything but digits and dots before conversion.
func parsePrice(text string) (float64, bool) {
	cleaned := nonPriceChars.ReplaceAllString(text, "")
	if cleaned == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
