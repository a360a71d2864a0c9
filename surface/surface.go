// Package surface abstracts the rendering surface the harvester drives.
//
// A Surface owns one live result page; Rows are transient handles into the
// currently rendered result list. Handles are only valid until the next
// scroll or navigation: any scroll bumps the surface's render epoch and all
// outstanding rows answer ErrStale afterwards. The harvester therefore
// fully consumes each row before it scrolls again.
package surface

import (
	"context"

	"github.com/sreehariX/redbus-scrapping/models"
)

// Surface is one exclusively-owned rendering surface (a browser page, or a
// static fixture in tests). Implementations are not safe for concurrent
// use; each job owns exactly one.
type Surface interface {
	// Navigate drives the search flow for the route and returns once the
	// result list is rendered. It reports ErrNoResults when the page
	// explicitly says the route has no buses.
	Navigate(ctx context.Context, q models.RouteQuery) error

	// ExpandGroups clicks grouped-operator expanders ("View Buses") so
	// their rows join the result list. Best effort: surfaces without such
	// affordances return 0, nil.
	ExpandGroups(ctx context.Context) (int, error)

	// Rows returns handles for the currently rendered result rows, in
	// document order.
	Rows(ctx context.Context) ([]Row, error)

	// ScrollTo moves the viewport to an absolute offset; ScrollBy advances
	// it; ScrollToBottom jumps to the full page height. All three
	// invalidate outstanding row handles.
	ScrollTo(ctx context.Context, y int) error
	ScrollBy(ctx context.Context, dy int) error
	ScrollToBottom(ctx context.Context) error

	// PageHeight reports the current document height in pixels.
	PageHeight(ctx context.Context) (int, error)

	// ExpectedCount reports the page-level result counter, when present.
	// The second return is false when the counter is absent or unreadable.
	ExpectedCount(ctx context.Context) (int, bool)

	// Close tears the surface down. Safe to call more than once.
	Close() error
}

// Row is a handle to one rendered result item. The handle is owned by the
// surface and goes stale on the next scroll or navigation; every method
// reports ErrStale once that happens.
type Row interface {
	// Text returns the trimmed text of the first element matching selector
	// inside the row. ErrNoElement when nothing matches.
	Text(ctx context.Context, selector string) (string, error)

	// Attr returns the named attribute of the first match, falling back to
	// the element text when the attribute is empty. ErrNoElement when
	// nothing matches.
	Attr(ctx context.Context, selector, attr string) (string, error)

	// AttrAll returns the named attribute of every match, skipping
	// elements where it is empty. An empty slice is not an error.
	AttrAll(ctx context.Context, selector, attr string) ([]string, error)

	// ClickVisible clicks the first displayed element matching selector
	// whose text contains any of the given fragments (case-insensitive;
	// an empty fragment list matches every displayed element). Returns
	// false when no candidate qualified.
	ClickVisible(ctx context.Context, selector string, textFragments []string) (bool, error)

	// ScrollOutOfView scrolls the row to the viewport edge, forcing any
	// expanded panel attached to it to collapse.
	ScrollOutOfView(ctx context.Context) error
}

// Factory produces a fresh surface for one job attempt. The runner closes
// the surface at the end of every attempt.
type Factory func(ctx context.Context) (Surface, error)
