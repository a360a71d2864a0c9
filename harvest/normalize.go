package harvest

import (
	"context"
	"errors"

	"github.com/sreehariX/redbus-scrapping/models"
	"github.com/sreehariX/redbus-scrapping/surface"
)

// Normalize converts a raw result row into a canonical record and its
// dedupe identity. A field that cannot be read gets the "Not Found"
// sentinel; a row that cannot be read at all (stale handle) returns
// (nil, zero, false) and the caller skips it without failing the route.
//
// Prices are not filled in here; the fare extractor owns those.
func Normalize(ctx context.Context, row surface.Row, q models.RouteQuery) (*models.BusRecord, models.Identity, bool) {
	operator, err := readText(ctx, row, operatorSel)
	if err != nil {
		return nil, models.Identity{}, false
	}

	busType, err := readText(ctx, row, busTypeSel)
	if err != nil {
		return nil, models.Identity{}, false
	}
	depart, err := readText(ctx, row, departSel)
	if err != nil {
		return nil, models.Identity{}, false
	}
	arrive, err := readText(ctx, row, arriveSel)
	if err != nil {
		return nil, models.Identity{}, false
	}
	duration, err := readText(ctx, row, durationSel)
	if err != nil {
		return nil, models.Identity{}, false
	}

	departLoc, err := readAttr(ctx, row, departLocSel, "title")
	if err != nil {
		return nil, models.Identity{}, false
	}
	arriveLoc, err := readAttr(ctx, row, arriveLocSel, "title")
	if err != nil {
		return nil, models.Identity{}, false
	}

	startPoint := departLoc
	if startPoint == models.NotFound {
		startPoint = q.From
	}
	endPoint := arriveLoc
	if endPoint == models.NotFound {
		endPoint = q.To
	}

	rec := &models.BusRecord{
		Operator:   operator,
		BusType:    busType,
		Departure:  depart,
		Arrival:    arrive,
		Duration:   duration,
		StartPoint: startPoint,
		EndPoint:   endPoint,
		FromCity:   q.From,
		ToCity:     q.To,
	}
	return rec, models.IdentityOf(rec), true
}

// readText reads one row field, mapping a missing element to the soft-fail
// sentinel and anything else (stale handle, dead surface) to an error.
func readText(ctx context.Context, row surface.Row, selector string) (string, error) {
	text, err := row.Text(ctx, selector)
	if errors.Is(err, surface.ErrNoElement) {
		return models.NotFound, nil
	}
	if err != nil {
		return "", err
	}
	if text == "" {
		return models.NotFound, nil
	}
	return text, nil
}

func readAttr(ctx context.Context, row surface.Row, selector, attr string) (string, error) {
	value, err := row.Attr(ctx, selector, attr)
	if errors.Is(err, surface.ErrNoElement) {
		return models.NotFound, nil
	}
	if err != nil {
		return "", err
	}
	if value == "" {
		return models.NotFound, nil
	}
	return value, nil
}
