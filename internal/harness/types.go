package harness

import (
	"fmt"
	"strings"
)

// TraceEvent records one executed step.
type TraceEvent struct {
	Seq     int
	Op      string
	Kind    string // entity kind for new/create
	Target  string // alias, or "place/amenity" for link steps
	Outcome string // "ok" or the storage error code
}

// String renders the event as one golden-file line.
func (e TraceEvent) String() string {
	parts := []string{fmt.Sprintf("%02d", e.Seq), e.Op}
	if e.Kind != "" {
		parts = append(parts, e.Kind)
	}
	if e.Target != "" {
		parts = append(parts, e.Target)
	}
	return strings.Join(parts, " ") + " -> " + e.Outcome
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every step met its expectation and every assertion
	// held.
	Pass bool

	// Trace lists executed steps in order.
	Trace []TraceEvent

	// Errors contains failure messages. Empty if Pass is true.
	Errors []string

	// Counts holds the final entity count per kind.
	Counts map[string]int

	// Links holds the final link table as "place/amenity" aliases.
	Links []string
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
		Counts: make(map[string]int),
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
	r.Pass = false
}
