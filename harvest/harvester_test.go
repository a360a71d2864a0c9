package harvest

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/sreehariX/redbus-scrapping/config"
	"github.com/sreehariX/redbus-scrapping/models"
	"github.com/sreehariX/redbus-scrapping/surface"
)

var testQuery = models.RouteQuery{From: "Delhi", To: "Manali", MonthYear: "Apr 2025", Day: "20"}

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.ScrollSettle = time.Millisecond
	cfg.NoProgressThreshold = 2
	cfg.MaxScrollSteps = 30
	cfg.SettlePasses = 1
	return cfg
}

func testHarvester(cfg *config.Config) *Harvester {
	return NewWithFareExtractor(cfg, nil, &FareExtractor{
		ExpandSettle:   time.Millisecond,
		CollapseSettle: time.Millisecond,
	})
}

type capture struct {
	records []*models.BusRecord
}

func (c *capture) sink(rec *models.BusRecord) error {
	c.records = append(c.records, rec)
	return nil
}

func TestHarvesterCollectsIncrementallyRenderedRows(t *testing.T) {
	rows := []surface.Row{
		busRow("Zingbus", "A/C Seater", "20:00"),
		busRow("IntrCity", "A/C Sleeper", "21:00"),
		busRow("RSRTC", "Non A/C Seater", "21:30"),
		busRow("Laxmi Holidays", "A/C Sleeper", "22:00"),
		busRow("Zingbus", "A/C Seater", "23:55"),
	}
	surf := &fakeSurface{rows: rows, visible: 2, reveal: 2}

	var got capture
	result, err := testHarvester(testConfig()).Run(context.Background(), surf, testQuery, 0, got.sink)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Count != 5 || len(got.records) != 5 {
		t.Fatalf("harvested %d records, want 5", result.Count)
	}
	if result.Partial {
		t.Error("a stabilized run must not be partial")
	}

	seen := make(map[string]bool)
	for i, rec := range got.records {
		if rec.SeqID != i+1 {
			t.Errorf("record %d has SeqID %d", i, rec.SeqID)
		}
		key := models.IdentityOf(rec).String()
		if seen[key] {
			t.Errorf("duplicate identity emitted: %s", key)
		}
		seen[key] = true
		if rec.LowestPrice > rec.HighestPrice {
			t.Errorf("record %d: lowest %v above highest %v", i, rec.LowestPrice, rec.HighestPrice)
		}
		if rec.FromCity != "Delhi" || rec.ToCity != "Manali" {
			t.Errorf("record %d carries wrong route: %+v", i, rec)
		}
	}
}

func TestHarvesterDeduplicatesByIdentity(t *testing.T) {
	dup := busRow("Zingbus", "A/C Seater", "20:00")
	rows := []surface.Row{
		busRow("Zingbus", "A/C Seater", "20:00"),
		busRow("IntrCity", "A/C Sleeper", "21:00"),
		dup,
	}
	surf := &fakeSurface{rows: rows, visible: 3}

	var got capture
	result, err := testHarvester(testConfig()).Run(context.Background(), surf, testQuery, 0, got.sink)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Count != 2 {
		t.Errorf("harvested %d records, want 2 after dedupe", result.Count)
	}
}

func TestHarvesterStopsEarlyOnExpectedCount(t *testing.T) {
	rows := []surface.Row{
		busRow("Zingbus", "A/C Seater", "20:00"),
		busRow("IntrCity", "A/C Sleeper", "21:00"),
		busRow("RSRTC", "Non A/C Seater", "21:30"),
	}
	surf := &fakeSurface{rows: rows, visible: 3, expected: 3}

	var got capture
	result, err := testHarvester(testConfig()).Run(context.Background(), surf, testQuery, 0, got.sink)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Count != 3 || result.Expected != 3 {
		t.Errorf("result = %+v, want all 3 with expected 3", result)
	}
	if result.Steps != 1 {
		t.Errorf("took %d steps, want to stop after the first full discovery", result.Steps)
	}
	if surf.scrolls != 0 {
		t.Errorf("scrolled %d times after matching the expected count", surf.scrolls)
	}
}

func TestHarvesterSettlingFindsBottomOnlyRows(t *testing.T) {
	rows := []surface.Row{
		busRow("Zingbus", "A/C Seater", "20:00"),
		busRow("IntrCity", "A/C Sleeper", "21:00"),
		busRow("RSRTC", "Non A/C Seater", "21:30"),
		busRow("Laxmi Holidays", "A/C Sleeper", "22:00"),
	}
	surf := &fakeSurface{rows: rows, bottomOnly: true, base: 2}

	cfg := testConfig()
	cfg.NoProgressThreshold = 1
	var got capture
	result, err := testHarvester(cfg).Run(context.Background(), surf, testQuery, 0, got.sink)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Count != 4 {
		t.Errorf("harvested %d records, want the 2 bottom-only rows found while settling", result.Count)
	}
}

func TestHarvesterEmptyListIsNotAnError(t *testing.T) {
	surf := &fakeSurface{}
	cfg := testConfig()
	cfg.NoProgressThreshold = 1

	var got capture
	result, err := testHarvester(cfg).Run(context.Background(), surf, testQuery, 0, got.sink)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Count != 0 || len(got.records) != 0 {
		t.Errorf("harvested %d records from an empty list", result.Count)
	}
}

func TestHarvesterPartialWhenScrollBoundHit(t *testing.T) {
	rows := make([]surface.Row, 50)
	for i := range rows {
		rows[i] = busRow(fmt.Sprintf("Operator %d", i), "A/C Seater", fmt.Sprintf("%02d:15", i%24))
	}
	surf := &fakeSurface{rows: rows, visible: 1, reveal: 1}

	cfg := testConfig()
	cfg.MaxScrollSteps = 6
	cfg.NoProgressThreshold = 6
	var got capture
	result, err := testHarvester(cfg).Run(context.Background(), surf, testQuery, 0, got.sink)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !result.Partial {
		t.Error("run that exhausted the scroll bound mid-progress must be partial")
	}
	if result.Count == 0 {
		t.Error("partial run should still keep the records it found")
	}
}

func TestHarvesterSeqIDsContinueFromStartSeq(t *testing.T) {
	rows := []surface.Row{
		busRow("Zingbus", "A/C Seater", "20:00"),
		busRow("IntrCity", "A/C Sleeper", "21:00"),
	}
	surf := &fakeSurface{rows: rows, visible: 2}

	var got capture
	if _, err := testHarvester(testConfig()).Run(context.Background(), surf, testQuery, 7, got.sink); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(got.records) != 2 || got.records[0].SeqID != 8 || got.records[1].SeqID != 9 {
		t.Fatalf("sequence ids do not continue from 7: %+v", got.records)
	}
}

func TestHarvesterSinkErrorAbortsRun(t *testing.T) {
	surf := &fakeSurface{rows: []surface.Row{busRow("Zingbus", "A/C Seater", "20:00")}, visible: 1}

	_, err := testHarvester(testConfig()).Run(context.Background(), surf, testQuery, 0, func(*models.BusRecord) error {
		return fmt.Errorf("disk full")
	})
	if err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Fatalf("expected sink error to surface, got %v", err)
	}
}

func TestHarvesterHonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	surf := &fakeSurface{rows: []surface.Row{busRow("Zingbus", "A/C Seater", "20:00")}, visible: 1}
	if _, err := testHarvester(testConfig()).Run(ctx, surf, testQuery, 0, (&capture{}).sink); err == nil {
		t.Fatal("expected context error")
	}
}
