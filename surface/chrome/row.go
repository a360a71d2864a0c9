package chrome

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/chromedp/chromedp"

	"github.com/sreehariX/redbus-scrapping/surface"
)

// chromeRow addresses one result row by its index in the rendered list.
// The handle carries the epoch it was issued under; once the surface
// scrolls or navigates, the epoch moves on and the handle is stale.
type chromeRow struct {
	c     *Chrome
	index int
	epoch int64
}

var _ surface.Row = (*chromeRow)(nil)

type rowEval struct {
	Stale  bool     `json:"stale"`
	Found  bool     `json:"found"`
	Value  string   `json:"value"`
	Values []string `json:"values"`
}

func (r *chromeRow) eval(ctx context.Context, js string) (rowEval, error) {
	var out rowEval
	if r.epoch != r.c.epoch.Load() {
		return out, surface.ErrStale
	}
	if err := r.c.run(ctx, r.c.opts.StepTimeout, chromedp.Evaluate(js, &out)); err != nil {
		return out, err
	}
	// The list re-rendered shorter than this handle's index.
	if out.Stale {
		return out, surface.ErrStale
	}
	return out, nil
}

func (r *chromeRow) Text(ctx context.Context, selector string) (string, error) {
	js := fmt.Sprintf(`(() => {
	const rows = document.querySelectorAll(%q);
	if (%d >= rows.length) return {stale: true};
	const el = rows[%d].querySelector(%q);
	if (!el) return {stale: false, found: false};
	return {stale: false, found: true, value: el.textContent.trim()};
})()`, rowSelector, r.index, r.index, selector)
	out, err := r.eval(ctx, js)
	if err != nil {
		return "", err
	}
	if !out.Found {
		return "", surface.ErrNoElement
	}
	return out.Value, nil
}

func (r *chromeRow) Attr(ctx context.Context, selector, attr string) (string, error) {
	js := fmt.Sprintf(`(() => {
	const rows = document.querySelectorAll(%q);
	if (%d >= rows.length) return {stale: true};
	const el = rows[%d].querySelector(%q);
	if (!el) return {stale: false, found: false};
	const v = el.getAttribute(%q);
	const value = (v && v.trim()) ? v.trim() : el.textContent.trim();
	return {stale: false, found: true, value: value};
})()`, rowSelector, r.index, r.index, selector, attr)
	out, err := r.eval(ctx, js)
	if err != nil {
		return "", err
	}
	if !out.Found {
		return "", surface.ErrNoElement
	}
	return out.Value, nil
}

func (r *chromeRow) AttrAll(ctx context.Context, selector, attr string) ([]string, error) {
	js := fmt.Sprintf(`(() => {
	const rows = document.querySelectorAll(%q);
	if (%d >= rows.length) return {stale: true};
	const values = [];
	rows[%d].querySelectorAll(%q).forEach(el => {
		const v = el.getAttribute(%q);
		if (v) values.push(v);
	});
	return {stale: false, found: true, values: values};
})()`, rowSelector, r.index, r.index, selector, attr)
	out, err := r.eval(ctx, js)
	if err != nil {
		return nil, err
	}
	return out.Values, nil
}

func (r *chromeRow) ClickVisible(ctx context.Context, selector string, textFragments []string) (bool, error) {
	fragments := make([]string, 0, len(textFragments))
	for _, f := range textFragments {
		fragments = append(fragments, strings.ToLower(f))
	}
	fragJSON, err := json.Marshal(fragments)
	if err != nil {
		return false, fmt.Errorf("encode fragments: %w", err)
	}
	js := fmt.Sprintf(`(() => {
	const rows = document.querySelectorAll(%q);
	if (%d >= rows.length) return {stale: true};
	const frags = %s;
	const els = rows[%d].querySelectorAll(%q);
	for (const el of els) {
		const r = el.getBoundingClientRect();
		if (r.width === 0 || r.height === 0) continue;
		const t = el.textContent.trim().toLowerCase();
		if (frags.length > 0 && !frags.some(f => t.includes(f))) continue;
		el.click();
		return {stale: false, found: true};
	}
	return {stale: false, found: false};
})()`, rowSelector, r.index, string(fragJSON), r.index, selector)
	out, err := r.eval(ctx, js)
	if err != nil {
		return false, err
	}
	return out.Found, nil
}

// ScrollOutOfView aligns the row's bottom edge with the viewport to force
// an expanded panel shut. It deliberately does not advance the surface
// epoch: it is a within-pass cleanup, not a harvesting scroll step.
func (r *chromeRow) ScrollOutOfView(ctx context.Context) error {
	js := fmt.Sprintf(`(() => {
	const rows = document.querySelectorAll(%q);
	if (%d >= rows.length) return {stale: true};
	rows[%d].scrollIntoView(false);
	return {stale: false, found: true};
})()`, rowSelector, r.index, r.index)
	_, err := r.eval(ctx, js)
	return err
}
