package harvest

import (
	"context"
	"sync"

	"github.com/sreehariX/redbus-scrapping/models"
	"github.com/sreehariX/redbus-scrapping/surface"
)

// fakeRow is a scripted result row. Selectors resolve against the texts and
// attrs maps; ClickVisible succeeds for selectors listed in clicks and
// ignores text fragments.
type fakeRow struct {
	texts   map[string]string
	attrs   map[string]string   // selector + "\x00" + attr
	attrAll map[string][]string // selector + "\x00" + attr
	clicks  map[string]bool
	stale   bool

	mu      sync.Mutex
	clicked []string
}

func (r *fakeRow) Text(ctx context.Context, selector string) (string, error) {
	if r.stale {
		return "", surface.ErrStale
	}
	if text, ok := r.texts[selector]; ok {
		return text, nil
	}
	return "", surface.ErrNoElement
}

func (r *fakeRow) Attr(ctx context.Context, selector, attr string) (string, error) {
	if r.stale {
		return "", surface.ErrStale
	}
	if value, ok := r.attrs[selector+"\x00"+attr]; ok {
		return value, nil
	}
	if text, ok := r.texts[selector]; ok {
		return text, nil
	}
	return "", surface.ErrNoElement
}

func (r *fakeRow) AttrAll(ctx context.Context, selector, attr string) ([]string, error) {
	if r.stale {
		return nil, surface.ErrStale
	}
	return r.attrAll[selector+"\x00"+attr], nil
}

func (r *fakeRow) ClickVisible(ctx context.Context, selector string, textFragments []string) (bool, error) {
	if r.stale {
		return false, surface.ErrStale
	}
	if !r.clicks[selector] {
		return false, nil
	}
	r.mu.Lock()
	r.clicked = append(r.clicked, selector)
	r.mu.Unlock()
	return true, nil
}

func (r *fakeRow) ScrollOutOfView(ctx context.Context) error {
	if r.stale {
		return surface.ErrStale
	}
	return nil
}

// busRow builds a row with the standard fields and a visible fare of 799.
func busRow(operator, busType, departure string) *fakeRow {
	return &fakeRow{
		texts: map[string]string{
			operatorSel:    operator,
			busTypeSel:     busType,
			departSel:      departure,
			arriveSel:      "06:00",
			durationSel:    "09h 00m",
			visibleFareSel: "INR 799",
		},
		attrs: map[string]string{
			departLocSel + "\x00title": "Kashmere Gate",
			arriveLocSel + "\x00title": "Central Bus Stand",
		},
	}
}

// fakeSurface renders a scripted result list. Scrolling reveals reveal more
// rows per step; with bottomOnly set, rows beyond baseVisible render only
// while the viewport sits at the bottom.
type fakeSurface struct {
	rows       []surface.Row
	visible    int
	reveal     int
	bottomOnly bool
	base       int
	expected   int
	expandN    int
	navErr     error

	atBottom bool
	scrolls  int
	closed   bool
}

func (s *fakeSurface) Navigate(ctx context.Context, q models.RouteQuery) error {
	return s.navErr
}

func (s *fakeSurface) ExpandGroups(ctx context.Context) (int, error) {
	return s.expandN, nil
}

func (s *fakeSurface) rendered() int {
	if s.bottomOnly {
		if s.atBottom {
			return len(s.rows)
		}
		return s.base
	}
	if s.visible > len(s.rows) {
		return len(s.rows)
	}
	return s.visible
}

func (s *fakeSurface) Rows(ctx context.Context) ([]surface.Row, error) {
	return s.rows[:s.rendered()], nil
}

func (s *fakeSurface) ScrollTo(ctx context.Context, y int) error {
	s.atBottom = false
	return nil
}

func (s *fakeSurface) ScrollBy(ctx context.Context, dy int) error {
	s.atBottom = false
	s.visible += s.reveal
	s.scrolls++
	return nil
}

func (s *fakeSurface) ScrollToBottom(ctx context.Context) error {
	s.atBottom = true
	return nil
}

func (s *fakeSurface) PageHeight(ctx context.Context) (int, error) {
	return 1000 + s.rendered()*100, nil
}

func (s *fakeSurface) ExpectedCount(ctx context.Context) (int, bool) {
	if s.expected > 0 {
		return s.expected, true
	}
	return 0, false
}

func (s *fakeSurface) Close() error {
	s.closed = true
	return nil
}
