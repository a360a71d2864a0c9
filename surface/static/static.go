// Package static renders a saved results page as a Surface. It backs the
// offline re-extraction mode and the harvester's tests: same selectors,
// same row contract, no browser.
package static

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/PuerkitoBio/goquery"

	"github.com/sreehariX/redbus-scrapping/models"
	"github.com/sreehariX/redbus-scrapping/surface"
)

const (
	rowSelector    = "ul.bus-items li.row-sec"
	resultCountSel = "span.f-bold.busFound"
)

// Surface serves rows from a parsed HTML document. A static page has no
// lazy loading, so scrolls only advance the render epoch; the page height
// never changes and the harvester's no-progress detection terminates it.
type Surface struct {
	doc   *goquery.Document
	epoch atomic.Int64
}

var _ surface.Surface = (*Surface)(nil)

// New parses a saved results page.
func New(r io.Reader) (*Surface, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	return &Surface{doc: doc}, nil
}

// NewFromFile parses a saved results page from disk.
func NewFromFile(path string) (*Surface, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open document: %w", err)
	}
	defer f.Close()
	return New(f)
}

// Navigate is satisfied trivially: the document is already rendered.
// A page without a result list reports ErrNoResults, mirroring the live
// surface's empty state.
func (s *Surface) Navigate(ctx context.Context, q models.RouteQuery) error {
	if s.doc.Find(rowSelector).Length() == 0 && s.doc.Find("ul.bus-items").Length() == 0 {
		return surface.ErrNoResults
	}
	return nil
}

// ExpandGroups has nothing to do on a static page.
func (s *Surface) ExpandGroups(ctx context.Context) (int, error) {
	return 0, nil
}

// Rows returns handles over the document's result items.
func (s *Surface) Rows(ctx context.Context) ([]surface.Row, error) {
	sel := s.doc.Find(rowSelector)
	epoch := s.epoch.Load()
	rows := make([]surface.Row, sel.Length())
	for i := range rows {
		rows[i] = &staticRow{s: s, sel: sel.Eq(i), epoch: epoch}
	}
	return rows, nil
}

func (s *Surface) ScrollTo(ctx context.Context, y int) error {
	s.epoch.Add(1)
	return nil
}

func (s *Surface) ScrollBy(ctx context.Context, dy int) error {
	s.epoch.Add(1)
	return nil
}

func (s *Surface) ScrollToBottom(ctx context.Context) error {
	s.epoch.Add(1)
	return nil
}

func (s *Surface) PageHeight(ctx context.Context) (int, error) {
	// Static documents do not grow; a stable stand-in is enough for the
	// harvester's progress signals.
	return s.doc.Find("*").Length(), nil
}

func (s *Surface) ExpectedCount(ctx context.Context) (int, bool) {
	text := strings.TrimSpace(s.doc.Find(resultCountSel).First().Text())
	if text == "" {
		return 0, false
	}
	fields := strings.Fields(text)
	if len(fields) < 2 || !strings.EqualFold(fields[1], "Buses") {
		return 0, false
	}
	n, err := strconv.Atoi(fields[0])
	if err != nil {
		return 0, false
	}
	return n, true
}

func (s *Surface) Close() error { return nil }

// staticRow wraps one goquery selection. It honors the same epoch
// discipline as the live surface so tests exercise the stale-handle rule.
type staticRow struct {
	s     *Surface
	sel   *goquery.Selection
	epoch int64
}

var _ surface.Row = (*staticRow)(nil)

func (r *staticRow) check() error {
	if r.epoch != r.s.epoch.Load() {
		return surface.ErrStale
	}
	return nil
}

func (r *staticRow) Text(ctx context.Context, selector string) (string, error) {
	if err := r.check(); err != nil {
		return "", err
	}
	found := r.sel.Find(selector).First()
	if found.Length() == 0 {
		return "", surface.ErrNoElement
	}
	return strings.TrimSpace(found.Text()), nil
}

func (r *staticRow) Attr(ctx context.Context, selector, attr string) (string, error) {
	if err := r.check(); err != nil {
		return "", err
	}
	found := r.sel.Find(selector).First()
	if found.Length() == 0 {
		return "", surface.ErrNoElement
	}
	if v := strings.TrimSpace(found.AttrOr(attr, "")); v != "" {
		return v, nil
	}
	return strings.TrimSpace(found.Text()), nil
}

func (r *staticRow) AttrAll(ctx context.Context, selector, attr string) ([]string, error) {
	if err := r.check(); err != nil {
		return nil, err
	}
	var values []string
	r.sel.Find(selector).Each(func(_ int, el *goquery.Selection) {
		if v := strings.TrimSpace(el.AttrOr(attr, "")); v != "" {
			values = append(values, v)
		}
	})
	return values, nil
}

// ClickVisible reports whether a matching control exists; a static page's
// fare panels are already in the markup, so "clicking" succeeds whenever
// the control is present.
func (r *staticRow) ClickVisible(ctx context.Context, selector string, textFragments []string) (bool, error) {
	if err := r.check(); err != nil {
		return false, err
	}
	clicked := false
	r.sel.Find(selector).EachWithBreak(func(_ int, el *goquery.Selection) bool {
		if len(textFragments) == 0 {
			clicked = true
			return false
		}
		text := strings.ToLower(strings.TrimSpace(el.Text()))
		for _, f := range textFragments {
			if strings.Contains(text, strings.ToLower(f)) {
				clicked = true
				return false
			}
		}
		return true
	})
	return clicked, nil
}

func (r *staticRow) ScrollOutOfView(ctx context.Context) error {
	return r.check()
}
