package static

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/sreehariX/redbus-scrapping/models"
	"github.com/sreehariX/redbus-scrapping/surface"
)

const fixture = `<html><body>
<span class="f-bold busFound">2 Buses found</span>
<ul class="bus-items">
  <li class="row-sec">
    <div class="travels">Zingbus</div>
    <div class="bus-type">A/C Seater (2+2)</div>
    <div class="dp-time">20:00</div>
    <div class="dp-loc" title="Kashmere Gate">Kashmere Gate ISBT</div>
    <div class="bp-time">06:00</div>
    <div class="bp-loc" title="Manali Bus Stand">Manali</div>
    <div class="dur">10h 00m</div>
    <div class="fare"><span class="f-bold">INR 899</span></div>
    <div class="button view-seats">View Seats</div>
    <div class="discountPrice"><ul>
      <li class="disPrice" data-price="450">450</li>
      <li class="disPrice" data-price="500">500</li>
      <li class="disPrice price-selected" data-price="475">475</li>
    </ul></div>
  </li>
  <li class="row-sec">
    <div class="travels">IntrCity</div>
    <div class="bus-type">A/C Sleeper (2+1)</div>
    <div class="dp-time">21:30</div>
    <div class="dp-loc">Majnu ka Tilla</div>
    <div class="bp-time">07:45</div>
    <div class="bp-loc">Mall Road</div>
    <div class="dur">10h 15m</div>
    <div class="fare"><span class="f-bold">1,349</span></div>
  </li>
</ul>
</body></html>`

func fixtureSurface(t *testing.T) *Surface {
	t.Helper()
	s, err := New(strings.NewReader(fixture))
	if err != nil {
		t.Fatalf("parse fixture: %v", err)
	}
	return s
}

func TestRowsAndFields(t *testing.T) {
	s := fixtureSurface(t)
	ctx := context.Background()

	rows, err := s.Rows(ctx)
	if err != nil {
		t.Fatalf("Rows: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}

	operator, err := rows[0].Text(ctx, ".travels")
	if err != nil || operator != "Zingbus" {
		t.Errorf("operator = (%q, %v)", operator, err)
	}

	// Attribute present.
	loc, err := rows[0].Attr(ctx, ".dp-loc", "title")
	if err != nil || loc != "Kashmere Gate" {
		t.Errorf("dp-loc title = (%q, %v)", loc, err)
	}
	// Attribute absent, falls back to the element text.
	loc, err = rows[1].Attr(ctx, ".dp-loc", "title")
	if err != nil || loc != "Majnu ka Tilla" {
		t.Errorf("dp-loc fallback = (%q, %v)", loc, err)
	}

	if _, err := rows[0].Text(ctx, ".does-not-exist"); !errors.Is(err, surface.ErrNoElement) {
		t.Errorf("missing selector error = %v, want ErrNoElement", err)
	}
}

func TestAttrAllHonorsNotSelector(t *testing.T) {
	s := fixtureSurface(t)
	ctx := context.Background()

	rows, err := s.Rows(ctx)
	if err != nil {
		t.Fatalf("Rows: %v", err)
	}
	prices, err := rows[0].AttrAll(ctx, ".discountPrice li.disPrice:not(.price-selected)", "data-price")
	if err != nil {
		t.Fatalf("AttrAll: %v", err)
	}
	if len(prices) != 2 || prices[0] != "450" || prices[1] != "500" {
		t.Errorf("prices = %v, want the selected entry excluded", prices)
	}
}

func TestRowsGoStaleAfterScroll(t *testing.T) {
	s := fixtureSurface(t)
	ctx := context.Background()

	rows, err := s.Rows(ctx)
	if err != nil {
		t.Fatalf("Rows: %v", err)
	}
	if err := s.ScrollBy(ctx, 1500); err != nil {
		t.Fatalf("ScrollBy: %v", err)
	}
	if _, err := rows[0].Text(ctx, ".travels"); !errors.Is(err, surface.ErrStale) {
		t.Errorf("after scroll, Text error = %v, want ErrStale", err)
	}
	if _, err := rows[0].AttrAll(ctx, "[data-price]", "data-price"); !errors.Is(err, surface.ErrStale) {
		t.Errorf("after scroll, AttrAll error = %v, want ErrStale", err)
	}

	// Fresh handles from the new epoch work again.
	rows, err = s.Rows(ctx)
	if err != nil {
		t.Fatalf("Rows: %v", err)
	}
	if _, err := rows[0].Text(ctx, ".travels"); err != nil {
		t.Errorf("fresh handle failed: %v", err)
	}
}

func TestClickVisibleTextFilter(t *testing.T) {
	s := fixtureSurface(t)
	ctx := context.Background()

	rows, err := s.Rows(ctx)
	if err != nil {
		t.Fatalf("Rows: %v", err)
	}
	clicked, err := rows[0].ClickVisible(ctx, ".button.view-seats", []string{"view seats"})
	if err != nil || !clicked {
		t.Errorf("ClickVisible = (%v, %v), want (true, nil)", clicked, err)
	}
	clicked, err = rows[0].ClickVisible(ctx, ".button.view-seats", []string{"book now"})
	if err != nil || clicked {
		t.Errorf("fragment mismatch should not click, got (%v, %v)", clicked, err)
	}
	clicked, err = rows[1].ClickVisible(ctx, ".button.view-seats", nil)
	if err != nil || clicked {
		t.Errorf("row without the control should not click, got (%v, %v)", clicked, err)
	}
}

func TestExpectedCount(t *testing.T) {
	s := fixtureSurface(t)
	n, ok := s.ExpectedCount(context.Background())
	if !ok || n != 2 {
		t.Errorf("ExpectedCount = (%d, %v), want (2, true)", n, ok)
	}

	bare, err := New(strings.NewReader("<html><body><p>hello</p></body></html>"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if _, ok := bare.ExpectedCount(context.Background()); ok {
		t.Error("page without a counter must report absence")
	}
}

func TestNavigateEmptyState(t *testing.T) {
	q := models.RouteQuery{From: "Delhi", To: "Manali"}

	s := fixtureSurface(t)
	if err := s.Navigate(context.Background(), q); err != nil {
		t.Errorf("Navigate on a results page: %v", err)
	}

	empty, err := New(strings.NewReader("<html><body><p>Oops! No buses found.</p></body></html>"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if err := empty.Navigate(context.Background(), q); !errors.Is(err, surface.ErrNoResults) {
		t.Errorf("Navigate on an empty page = %v, want ErrNoResults", err)
	}
}
