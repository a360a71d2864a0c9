package surface

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrStale marks a row handle used after the surface re-rendered.
	ErrStale = errors.New("surface: stale row handle")

	// ErrNoElement marks a selector that matched nothing inside a row.
	ErrNoElement = errors.New("surface: no matching element")

	// ErrNoResults marks a search that rendered an explicit empty state.
	ErrNoResults = errors.New("surface: no results for route")

	// ErrCrashed marks a rendering surface that died underneath us.
	ErrCrashed = errors.New("surface: rendering surface crashed")
)

// NavigationError wraps a failure while driving the search flow. These are
// the transient errors the runner retries.
type NavigationError struct {
	Step string
	Err  error
}

func (e *NavigationError) Error() string {
	return fmt.Sprintf("navigate (%s): %v", e.Step, e.Err)
}

func (e *NavigationError) Unwrap() error { return e.Err }

// Recoverable reports whether a route attempt that ended with err is worth
// retrying on a fresh surface. Field-level errors (ErrNoElement, ErrStale)
// never reach here; they are absorbed row-by-row.
func Recoverable(err error) bool {
	if err == nil {
		return false
	}
	var nav *NavigationError
	if errors.As(err, &nav) {
		return true
	}
	return errors.Is(err, ErrCrashed) || errors.Is(err, context.DeadlineExceeded)
}

// ErrorLabel classifies an error for metrics and log fields.
func ErrorLabel(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, ErrNoResults):
		return "no_results"
	case errors.Is(err, ErrCrashed):
		return "crashed"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		var nav *NavigationError
		if errors.As(err, &nav) {
			return "navigation"
		}
		return "other"
	}
}
