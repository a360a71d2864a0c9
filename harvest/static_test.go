package harvest

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/sreehariX/redbus-scrapping/surface/static"
)

// fixturePage builds a saved results page with n plain rows (visible fare
// only, no expandable panel).
func fixturePage(n int) string {
	var b strings.Builder
	b.WriteString(`<html><body><ul class="bus-items">`)
	for i := 1; i <= n; i++ {
		fmt.Fprintf(&b, `<li class="row-sec">
			<div class="travels">Operator %d</div>
			<div class="bus-type">A/C Seater (2+2)</div>
			<div class="dp-time">%02d:30</div>
			<div class="dp-loc" title="Gate %d">Gate %d</div>
			<div class="bp-time">06:00</div>
			<div class="bp-loc" title="Stand %d">Stand %d</div>
			<div class="dur">08h 30m</div>
			<div class="fare"><span class="f-bold">INR %d</span></div>
		</li>`, i, i%24, i, i, i, i, 500+i*10)
	}
	b.WriteString(`</ul></body></html>`)
	return b.String()
}

func TestHarvesterOverSavedPage(t *testing.T) {
	surf, err := static.New(strings.NewReader(fixturePage(5)))
	if err != nil {
		t.Fatalf("parse fixture: %v", err)
	}

	cfg := testConfig()
	var got capture
	result, err := testHarvester(cfg).Run(context.Background(), surf, testQuery, 0, got.sink)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Count != 5 {
		t.Fatalf("result = %+v, want all 5 rows", result)
	}
	if result.Partial {
		t.Error("a page that settled must not be partial")
	}
	// No lazy loading and no counter: the run must end through the
	// no-progress threshold, not the scroll bound.
	if result.Steps >= cfg.MaxScrollSteps {
		t.Errorf("took %d steps, should have settled well before the bound", result.Steps)
	}
	for i, rec := range got.records {
		if rec.SeqID != i+1 {
			t.Errorf("record %d has SeqID %d", i, rec.SeqID)
		}
		want := float64(500 + (i+1)*10)
		if rec.LowestPrice != want || rec.HighestPrice != want {
			t.Errorf("record %d fares = (%v, %v), want the visible fare %v twice", i, rec.LowestPrice, rec.HighestPrice, want)
		}
	}
}

func TestHarvesterDeterministicOverSamePage(t *testing.T) {
	page := fixturePage(4)
	var runs [2][]string
	for n := 0; n < 2; n++ {
		surf, err := static.New(strings.NewReader(page))
		if err != nil {
			t.Fatalf("parse fixture: %v", err)
		}
		var got capture
		if _, err := testHarvester(testConfig()).Run(context.Background(), surf, testQuery, 0, got.sink); err != nil {
			t.Fatalf("Run: %v", err)
		}
		for _, rec := range got.records {
			runs[n] = append(runs[n], fmt.Sprintf("%d|%s|%s|%v", rec.SeqID, rec.Operator, rec.Departure, rec.LowestPrice))
		}
	}
	if strings.Join(runs[0], "\n") != strings.Join(runs[1], "\n") {
		t.Errorf("two runs over the same page diverged:\n%v\n%v", runs[0], runs[1])
	}
}
