package store

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
)

// RouteCount is one origin/destination pair's row tally within a store.
type RouteCount struct {
	From  string
	To    string
	Count int
}

// CountRoute counts data rows in a store whose parent-city columns match
// the given pair. Sentinel rows are not data and are never counted.
func CountRoute(path, from, to string) (int, error) {
	counts, err := RouteCounts(path)
	if err != nil {
		return 0, err
	}
	for _, c := range counts {
		if c.From == from && c.To == to {
			return c.Count, nil
		}
	}
	return 0, nil
}

// RouteCounts tallies data rows per origin/destination pair, sorted by
// pair for stable output. Works on per-route files and merged files alike.
func RouteCounts(path string) ([]RouteCount, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %q: %w", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%q is empty", path)
	}
	if err != nil {
		return nil, fmt.Errorf("read header of %q: %w", path, err)
	}
	fromIdx, toIdx := -1, -1
	for i, name := range header {
		switch name {
		case "Starting Point Parent":
			fromIdx = i
		case "Destination Point Parent":
			toIdx = i
		}
	}
	if fromIdx < 0 || toIdx < 0 {
		return nil, fmt.Errorf("%q lacks the parent-city columns", path)
	}

	type pair struct{ from, to string }
	tally := make(map[pair]int)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %q: %w", path, err)
		}
		if len(record) > 0 && record[0] == FailureSentinel {
			continue
		}
		if len(record) <= fromIdx || len(record) <= toIdx {
			continue
		}
		tally[pair{record[fromIdx], record[toIdx]}]++
	}

	counts := make([]RouteCount, 0, len(tally))
	for p, n := range tally {
		counts = append(counts, RouteCount{From: p.from, To: p.to, Count: n})
	}
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].From != counts[j].From {
			return counts[i].From < counts[j].From
		}
		return counts[i].To < counts[j].To
	})
	return counts, nil
}
