// Package models defines data structures shared across the harvester.
package models

import "fmt"

// NotFound is the sentinel value recorded for a row field that could not be
// read. A missing field is a soft failure, not an error.
const NotFound = "Not Found"

// RouteQuery identifies one unit of harvesting work: an origin/destination
// pair and a fixed travel date. Constructed once per job, never mutated.
type RouteQuery struct {
	From      string
	To        string
	MonthYear string // calendar header form, e.g. "Apr 2025"
	Day       string // day of month, e.g. "20"
}

// Name returns the route's canonical identity, used as the storage
// partition key and in log lines.
func (q RouteQuery) Name() string {
	return q.From + " to " + q.To
}

// FileName returns the per-route output file name.
func (q RouteQuery) FileName() string {
	return fmt.Sprintf("%s_to_%s.csv", q.From, q.To)
}

// BusRecord is the canonical output unit for one bus offering. Fields map
// one-to-one onto the output store's CSV columns.
type BusRecord struct {
	SeqID        int     `json:"bus_id"`
	Operator     string  `json:"bus_name"`
	BusType      string  `json:"bus_type"`
	Departure    string  `json:"departure_time"`
	Arrival      string  `json:"arrival_time"`
	Duration     string  `json:"journey_duration"`
	LowestPrice  float64 `json:"lowest_price_inr"`
	HighestPrice float64 `json:"highest_price_inr"`
	StartPoint   string  `json:"starting_point"`
	EndPoint     string  `json:"destination"`
	FromCity     string  `json:"starting_point_parent"`
	ToCity       string  `json:"destination_point_parent"`
}

// Identity is the content-based dedupe key for a BusRecord. Within one
// route run identities are unique; the harvester never emits two records
// with the same identity.
type Identity struct {
	Operator  string
	BusType   string
	Departure string
}

// IdentityOf derives the dedupe key from a record.
func IdentityOf(r *BusRecord) Identity {
	return Identity{Operator: r.Operator, BusType: r.BusType, Departure: r.Departure}
}

// String renders the key in the operator_type_departure form used by the
// downstream tooling.
func (id Identity) String() string {
	return id.Operator + "_" + id.BusType + "_" + id.Departure
}

// OutcomeKind classifies how a route attempt ended.
type OutcomeKind int

const (
	// OutcomeSuccess means harvesting completed and persisted records.
	OutcomeSuccess OutcomeKind = iota
	// OutcomeEmpty means the page reported, or the harvest observed, zero
	// results without any failure.
	OutcomeEmpty
	// OutcomeFailed means retries were exhausted or the job was cancelled.
	OutcomeFailed
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeEmpty:
		return "empty"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// RouteOutcome is the terminal state of one route attempt.
type RouteOutcome struct {
	Kind   OutcomeKind
	Count  int    // records persisted, for OutcomeSuccess
	Reason string // diagnostic, for OutcomeFailed
}

// Success builds a success outcome. A zero count is reported as Empty.
func Success(count int) RouteOutcome {
	if count == 0 {
		return RouteOutcome{Kind: OutcomeEmpty}
	}
	return RouteOutcome{Kind: OutcomeSuccess, Count: count}
}

// Failed builds a failure outcome carrying a short diagnostic.
func Failed(reason string) RouteOutcome {
	return RouteOutcome{Kind: OutcomeFailed, Reason: reason}
}

// BatchSummary aggregates a full coordinator run.
type BatchSummary struct {
	Completed int
	Empty     int
	Failed    int
	Skipped   int
	Records   int
}
