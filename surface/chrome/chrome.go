// Package chrome drives a Chrome instance over the DevTools protocol as
// the live rendering surface.
package chrome

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chromedp/cdproto/inspector"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"github.com/sreehariX/redbus-scrapping/models"
	"github.com/sreehariX/redbus-scrapping/surface"
)

// Options configures one Chrome surface.
type Options struct {
	BaseURL     string
	UserAgent   string
	Visible     bool
	MemorySaver bool

	// StepTimeout bounds each individual wait in the search flow.
	StepTimeout time.Duration
	// ResultsTimeout bounds the wait for the result list after submitting
	// the search.
	ResultsTimeout time.Duration
	// GroupSettle is the pause after clicking a grouped-operator expander.
	GroupSettle time.Duration
}

func (o *Options) withDefaults() Options {
	out := *o
	if out.StepTimeout <= 0 {
		out.StepTimeout = 10 * time.Second
	}
	if out.ResultsTimeout <= 0 {
		out.ResultsTimeout = 20 * time.Second
	}
	if out.GroupSettle <= 0 {
		out.GroupSettle = 3 * time.Second
	}
	return out
}

// Chrome is a Surface backed by one exclusively-owned browser instance.
type Chrome struct {
	opts Options

	allocCancel context.CancelFunc
	browserCtx  context.Context
	browserStop context.CancelFunc

	epoch   atomic.Int64
	crashed atomic.Bool

	closeOnce sync.Once
}

var _ surface.Surface = (*Chrome)(nil)

// New launches a browser and prepares it for harvesting. The parent ctx
// bounds the surface's whole lifetime.
func New(ctx context.Context, opts Options) (*Chrome, error) {
	opts = opts.withDefaults()

	flags := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-popup-blocking", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-infobars", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.UserAgent(opts.UserAgent),
	)
	if opts.MemorySaver {
		flags = append(flags,
			chromedp.Flag("js-flags", "--expose-gc"),
			chromedp.Flag("aggressive-cache-discard", true),
			chromedp.Flag("disable-cache", true),
			chromedp.Flag("disable-application-cache", true),
			chromedp.Flag("disable-offline-load-stale-cache", true),
			chromedp.Flag("process-per-site", true),
			chromedp.Flag("disk-cache-size", "1"),
		)
	}
	if opts.Visible {
		flags = append(flags,
			chromedp.Flag("headless", false),
			chromedp.Flag("start-maximized", true),
		)
	} else {
		flags = append(flags,
			chromedp.Flag("headless", "new"),
			chromedp.Flag("window-size", "1920,1080"),
		)
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, flags...)
	browserCtx, browserStop := chromedp.NewContext(allocCtx)

	c := &Chrome{
		opts:        opts,
		allocCancel: allocCancel,
		browserCtx:  browserCtx,
		browserStop: browserStop,
	}

	chromedp.ListenTarget(browserCtx, func(ev interface{}) {
		if _, ok := ev.(*inspector.EventTargetCrashed); ok {
			c.crashed.Store(true)
		}
	})

	err := chromedp.Run(browserCtx,
		network.Enable(),
		network.SetBlockedURLS(blockedURLPatterns),
		chromedp.ActionFunc(func(ctx context.Context) error {
			_, err := page.AddScriptToEvaluateOnNewDocument(stealthScript).Do(ctx)
			return err
		}),
	)
	if err != nil {
		browserStop()
		allocCancel()
		return nil, fmt.Errorf("start browser: %w", err)
	}
	return c, nil
}

// Factory adapts New to the surface.Factory contract.
func Factory(opts Options) surface.Factory {
	return func(ctx context.Context) (surface.Surface, error) {
		return New(ctx, opts)
	}
}

// run executes actions against the browser, bounded by timeout and by the
// caller's context.
func (c *Chrome) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithTimeout(c.browserCtx, timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(runCtx, actions...)
	if err != nil && c.crashed.Load() {
		return fmt.Errorf("%w: %v", surface.ErrCrashed, err)
	}
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

// step wraps run so failures carry the search-flow step name.
func (c *Chrome) step(ctx context.Context, name string, timeout time.Duration, actions ...chromedp.Action) error {
	if err := c.run(ctx, timeout, actions...); err != nil {
		if surface.Recoverable(err) {
			return err
		}
		return &surface.NavigationError{Step: name, Err: err}
	}
	return nil
}

// Navigate drives the full search flow: origin, destination, calendar,
// search, results.
func (c *Chrome) Navigate(ctx context.Context, q models.RouteQuery) error {
	t := c.opts.StepTimeout

	if err := c.step(ctx, "open", t,
		chromedp.Navigate(c.opts.BaseURL),
		chromedp.WaitVisible("#"+srcInputID, chromedp.ByID),
		chromedp.Sleep(time.Second),
	); err != nil {
		return err
	}

	if err := c.step(ctx, "origin", t,
		chromedp.SendKeys("#"+srcInputID, q.From, chromedp.ByID),
		chromedp.WaitVisible(suggestionFirst, chromedp.ByQuery),
		clickQuery(suggestionFirst),
		chromedp.Sleep(500*time.Millisecond),
	); err != nil {
		return err
	}

	if err := c.step(ctx, "destination", t,
		chromedp.SendKeys("#"+destInputID, q.To, chromedp.ByID),
		chromedp.WaitVisible(suggestionFirst, chromedp.ByQuery),
		clickQuery(suggestionFirst),
		chromedp.Sleep(500*time.Millisecond),
	); err != nil {
		return err
	}

	if err := c.step(ctx, "calendar", t,
		clickQuery("#"+calendarFieldID),
		chromedp.WaitVisible(calendarContainerXPath, chromedp.BySearch),
	); err != nil {
		return err
	}
	if err := c.selectDate(ctx, q); err != nil {
		return err
	}

	if err := c.step(ctx, "search", t, clickQuery("#"+searchButtonID)); err != nil {
		// The id occasionally disappears behind an overlay; the text
		// lookup still finds the button.
		if err := c.step(ctx, "search-fallback", t, clickXPath(searchButtonXPath)); err != nil {
			return err
		}
	}

	if err := c.step(ctx, "results", c.opts.ResultsTimeout,
		chromedp.WaitReady(resultsIndicatorXPath, chromedp.BySearch),
	); err != nil {
		var present bool
		if probe := c.run(ctx, c.opts.StepTimeout, evalBool(xpathExists(noResultsXPath), &present)); probe == nil && present {
			return surface.ErrNoResults
		}
		return err
	}

	c.epoch.Add(1)
	return nil
}

// selectDate pages the calendar to the target month and clicks the day.
func (c *Chrome) selectDate(ctx context.Context, q models.RouteQuery) error {
	const maxMonthHops = 24
	t := c.opts.StepTimeout

	found := false
	for attempt := 0; attempt < maxMonthHops; attempt++ {
		var monthYear string
		if err := c.step(ctx, "read-month", t,
			chromedp.Text(monthYearXPath, &monthYear, chromedp.BySearch),
		); err != nil {
			return err
		}
		if strings.Contains(monthYear, q.MonthYear) {
			found = true
			break
		}
		if err := c.step(ctx, "next-month", t,
			clickXPath(nextMonthXPath),
			chromedp.Sleep(500*time.Millisecond),
		); err != nil {
			return err
		}
	}
	if !found {
		return &surface.NavigationError{
			Step: "calendar",
			Err:  fmt.Errorf("month %q not reachable within %d hops", q.MonthYear, maxMonthHops),
		}
	}

	dayXPath := fmt.Sprintf(dayXPathTemplate, q.Day, q.Day)
	if err := c.step(ctx, "select-day", t, clickXPath(dayXPath), chromedp.Sleep(time.Second)); err != nil {
		// Looser match over every visible day tile.
		simple := fmt.Sprintf(daySimpleXPathTemplate, q.Day, q.Day)
		if err := c.step(ctx, "select-day-fallback", t, clickFirstVisibleXPath(simple), chromedp.Sleep(time.Second)); err != nil {
			return err
		}
	}
	return nil
}

// ExpandGroups clicks grouped-operator "View Buses" expanders one at a
// time, re-finding after each click since the list re-renders.
func (c *Chrome) ExpandGroups(ctx context.Context) (int, error) {
	const maxFindAttempts = 10
	clicked := 0
	findAttempts := 0

	if err := c.run(ctx, c.opts.StepTimeout, chromedp.Evaluate("window.scrollTo(0, 0)", nil)); err != nil {
		return clicked, err
	}

	for clicked < maxGroupExpansions {
		if err := ctx.Err(); err != nil {
			return clicked, err
		}
		var didClick bool
		js := fmt.Sprintf(`(() => {
	const xp = document.evaluate(%q, document, null, XPathResult.ORDERED_NODE_SNAPSHOT_TYPE, null);
	for (let i = 0; i < xp.snapshotLength; i++) {
		const el = xp.snapshotItem(i);
		const r = el.getBoundingClientRect();
		if (r.width === 0 || r.height === 0) continue;
		el.scrollIntoView({block: 'center'});
		el.click();
		return true;
	}
	return false;
})()`, viewBusesXPath)
		if err := c.run(ctx, c.opts.StepTimeout, evalBool(js, &didClick)); err != nil {
			return clicked, err
		}
		if !didClick {
			findAttempts++
			if findAttempts >= maxFindAttempts {
				break
			}
			// Nudge the lazy renderer and look again.
			if err := c.run(ctx, c.opts.StepTimeout,
				chromedp.Evaluate("window.scrollTo(0, 0)", nil),
				chromedp.Sleep(time.Second),
				chromedp.Evaluate("window.scrollBy(0, 500)", nil),
				chromedp.Sleep(time.Second),
			); err != nil {
				return clicked, err
			}
			continue
		}
		findAttempts = 0
		clicked++
		slog.Debug("expanded operator group", slog.Int("clicked", clicked))
		if err := c.run(ctx, c.opts.StepTimeout,
			chromedp.Sleep(c.opts.GroupSettle),
			chromedp.Evaluate("window.scrollTo(0, 0)", nil),
			chromedp.Sleep(time.Second),
		); err != nil {
			return clicked, err
		}
	}

	c.epoch.Add(1)
	return clicked, nil
}

// Rows returns handles into the currently rendered result list.
func (c *Chrome) Rows(ctx context.Context) ([]surface.Row, error) {
	var count int
	js := fmt.Sprintf("document.querySelectorAll(%q).length", rowSelector)
	if err := c.run(ctx, c.opts.StepTimeout, chromedp.Evaluate(js, &count)); err != nil {
		return nil, err
	}
	epoch := c.epoch.Load()
	rows := make([]surface.Row, count)
	for i := range rows {
		rows[i] = &chromeRow{c: c, index: i, epoch: epoch}
	}
	return rows, nil
}

// ScrollTo moves to an absolute offset and invalidates row handles.
func (c *Chrome) ScrollTo(ctx context.Context, y int) error {
	defer c.epoch.Add(1)
	return c.run(ctx, c.opts.StepTimeout,
		chromedp.Evaluate(fmt.Sprintf("window.scrollTo(0, %d)", y), nil))
}

// ScrollBy advances the viewport and invalidates row handles.
func (c *Chrome) ScrollBy(ctx context.Context, dy int) error {
	defer c.epoch.Add(1)
	return c.run(ctx, c.opts.StepTimeout,
		chromedp.Evaluate(fmt.Sprintf("window.scrollBy(0, %d)", dy), nil))
}

// ScrollToBottom jumps to the document end and invalidates row handles.
func (c *Chrome) ScrollToBottom(ctx context.Context) error {
	defer c.epoch.Add(1)
	return c.run(ctx, c.opts.StepTimeout,
		chromedp.Evaluate("window.scrollTo(0, document.body.scrollHeight)", nil))
}

// PageHeight reports the rendered document height.
func (c *Chrome) PageHeight(ctx context.Context) (int, error) {
	var height int
	err := c.run(ctx, c.opts.StepTimeout,
		chromedp.Evaluate("document.body.scrollHeight", &height))
	return height, err
}

var busCountPattern = regexp.MustCompile(`(\d+)\s+Buses`)

// ExpectedCount reads the page-level result counter ("231 Buses").
func (c *Chrome) ExpectedCount(ctx context.Context) (int, bool) {
	var res struct {
		Found bool   `json:"found"`
		Value string `json:"value"`
	}
	js := fmt.Sprintf(`(() => {
	const el = document.querySelector(%q);
	if (!el) return {found: false, value: ""};
	return {found: true, value: el.textContent.trim()};
})()`, resultCountSel)
	if err := c.run(ctx, c.opts.StepTimeout, chromedp.Evaluate(js, &res)); err != nil || !res.Found {
		return 0, false
	}
	m := busCountPattern.FindStringSubmatch(res.Value)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

// Close tears the browser down. Safe to call more than once.
func (c *Chrome) Close() error {
	c.closeOnce.Do(func() {
		c.browserStop()
		c.allocCancel()
	})
	return nil
}

func clickQuery(sel string) chromedp.Action {
	js := fmt.Sprintf(`(() => {
	const el = document.querySelector(%q);
	if (!el) return false;
	el.click();
	return true;
})()`, sel)
	return mustClick(js, sel)
}

func clickXPath(xp string) chromedp.Action {
	js := fmt.Sprintf(`(() => {
	const el = document.evaluate(%q, document, null, XPathResult.FIRST_ORDERED_NODE_TYPE, null).singleNodeValue;
	if (!el) return false;
	el.click();
	return true;
})()`, xp)
	return mustClick(js, xp)
}

func clickFirstVisibleXPath(xp string) chromedp.Action {
	js := fmt.Sprintf(`(() => {
	const xp = document.evaluate(%q, document, null, XPathResult.ORDERED_NODE_SNAPSHOT_TYPE, null);
	for (let i = 0; i < xp.snapshotLength; i++) {
		const el = xp.snapshotItem(i);
		const r = el.getBoundingClientRect();
		if (r.width === 0 || r.height === 0) continue;
		el.click();
		return true;
	}
	return false;
})()`, xp)
	return mustClick(js, xp)
}

func mustClick(js, target string) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		var ok bool
		if err := chromedp.Evaluate(js, &ok).Do(ctx); err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("click target not found: %s", target)
		}
		return nil
	})
}

func evalBool(js string, out *bool) chromedp.Action {
	return chromedp.Evaluate(js, out)
}

func xpathExists(xp string) string {
	return fmt.Sprintf(
		"document.evaluate(%q, document, null, XPathResult.FIRST_ORDERED_NODE_TYPE, null).singleNodeValue !== null",
		xp)
}
