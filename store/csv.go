// Package store persists harvested records to append-only per-route CSV
// files and implements the file-embedded failure-sentinel contract.
package store

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/sreehariX/redbus-scrapping/models"
)

// Header is the fixed column schema. Downstream tooling matches these
// names verbatim; never reorder or rename.
var Header = []string{
	"Bus ID",
	"Bus Name",
	"Bus Type",
	"Departure Time",
	"Arrival Time",
	"Journey Duration",
	"Lowest Price(INR)",
	"Highest Price(INR)",
	"Starting Point",
	"Destination",
	"Starting Point Parent",
	"Destination Point Parent",
}

// FailureSentinel is the literal value in the Bus ID column that marks a
// route as failed. Downstream tools grep for it; keep it bit-for-bit.
const FailureSentinel = "error"

// maxFailureReason bounds the diagnostic carried in a sentinel row.
const maxFailureReason = 100

// RouteStore is the append-only output file for one route. Exactly one
// task writes a given route's store at a time; the mutex only guards
// against accidental misuse, not cross-process access.
type RouteStore struct {
	path string

	mu         sync.Mutex
	file       *os.File
	writer     *csv.Writer
	rows       int // non-sentinel data rows present
	hasFailure bool
	closed     bool
}

// PathFor returns the store file path for a route.
func PathFor(dir string, q models.RouteQuery) string {
	return filepath.Join(dir, q.FileName())
}

// Open opens (or creates) a route's store for appending. The header is
// written exactly once, on first creation; existing content is scanned to
// recover the data-row count and any failure sentinel.
func Open(dir string, q models.RouteQuery) (*RouteStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create directory %q: %w", dir, err)
	}
	path := PathFor(dir, q)

	rows, hasFailure, hasHeader, err := scan(path)
	if err != nil {
		return nil, err
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open store %q: %w", path, err)
	}

	s := &RouteStore{
		path:       path,
		file:       f,
		writer:     csv.NewWriter(f),
		rows:       rows,
		hasFailure: hasFailure,
	}
	if !hasHeader {
		if err := s.writer.Write(Header); err != nil {
			f.Close()
			return nil, fmt.Errorf("write header: %w", err)
		}
		s.writer.Flush()
		if err := s.writer.Error(); err != nil {
			f.Close()
			return nil, fmt.Errorf("flush header: %w", err)
		}
	}
	return s, nil
}

// scan reads an existing store to recover its state. A missing file is an
// empty store.
func scan(path string) (rows int, hasFailure, hasHeader bool, err error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return 0, false, false, nil
	}
	if err != nil {
		return 0, false, false, fmt.Errorf("open store %q: %w", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	first := true
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, false, false, fmt.Errorf("scan store %q: %w", path, err)
		}
		if first {
			first = false
			hasHeader = true
			continue
		}
		if len(record) > 0 && record[0] == FailureSentinel {
			hasFailure = true
			continue
		}
		rows++
	}
	return rows, hasFailure, hasHeader, nil
}

// RowCount reports the non-sentinel data rows present when the store was
// opened plus those appended since. Sequence ids for appended records
// continue from this count.
func (s *RouteStore) RowCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rows
}

// HasFailure reports whether the store carries a failure sentinel.
func (s *RouteStore) HasFailure() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasFailure
}

// Append writes one record and flushes it, so a crash mid-route loses at
// most the record being written.
func (s *RouteStore) Append(rec *models.BusRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("store %q is closed", s.path)
	}

	row := []string{
		strconv.Itoa(rec.SeqID),
		rec.Operator,
		rec.BusType,
		rec.Departure,
		rec.Arrival,
		rec.Duration,
		formatPrice(rec.LowestPrice),
		formatPrice(rec.HighestPrice),
		rec.StartPoint,
		rec.EndPoint,
		rec.FromCity,
		rec.ToCity,
	}
	if err := s.writer.Write(row); err != nil {
		return fmt.Errorf("write record: %w", err)
	}
	s.writer.Flush()
	if err := s.writer.Error(); err != nil {
		return fmt.Errorf("flush record: %w", err)
	}
	s.rows++
	return nil
}

// WriteFailure appends the failure sentinel row, at most once per store.
// The Bus Name column carries the diagnostic; the parent-city columns keep
// the route readable without the file name.
func (s *RouteStore) WriteFailure(q models.RouteQuery, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("store %q is closed", s.path)
	}
	if s.hasFailure {
		return nil
	}

	row := make([]string, len(Header))
	for i := range row {
		row[i] = FailureSentinel
	}
	row[0] = FailureSentinel
	row[1] = "ERROR: " + truncate(reason, maxFailureReason)
	row[10] = q.From
	row[11] = q.To

	if err := s.writer.Write(row); err != nil {
		return fmt.Errorf("write failure sentinel: %w", err)
	}
	s.writer.Flush()
	if err := s.writer.Error(); err != nil {
		return fmt.Errorf("flush failure sentinel: %w", err)
	}
	s.hasFailure = true
	return nil
}

// Close flushes and closes the underlying file.
func (s *RouteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.writer.Flush()
	if err := s.writer.Error(); err != nil {
		s.file.Close()
		return fmt.Errorf("flush store: %w", err)
	}
	return s.file.Close()
}

// RouteFailed reports whether a route's store marks it as previously
// failed. A missing store means the route has not run yet.
func RouteFailed(dir string, q models.RouteQuery) (bool, error) {
	_, hasFailure, _, err := scan(PathFor(dir, q))
	return hasFailure, err
}

// formatPrice renders prices the way the store always has: integral
// values without a decimal part, fractional ones with it.
func formatPrice(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
