package harness

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/hbnb/internal/model"
)

// Render formats a result as the golden-file text: the trace, the final
// count per kind, and the link table by alias.
func Render(scenarioName string, r *Result) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "scenario: %s\n", scenarioName)

	b.WriteString("trace:\n")
	for _, e := range r.Trace {
		fmt.Fprintf(&b, "  %s\n", e)
	}

	b.WriteString("counts:\n")
	for _, k := range model.Kinds {
		fmt.Fprintf(&b, "  %s: %d\n", k, r.Counts[string(k)])
	}

	b.WriteString("links:\n")
	if len(r.Links) == 0 {
		b.WriteString("  (none)\n")
	}
	for _, l := range r.Links {
		fmt.Fprintf(&b, "  %s\n", l)
	}
	return []byte(b.String())
}

// RunWithGolden executes a scenario and compares its rendering against
// testdata/golden/{scenario.Name}.golden. Every backend must produce the
// same file.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario, open Opener) (*Result, error) {
	t.Helper()

	result, err := Run(context.Background(), scenario, open)
	if err != nil {
		return nil, err
	}
	AssertGolden(t, scenario.Name, result)
	return result, nil
}

// AssertGolden compares an existing result against its golden file.
func AssertGolden(t *testing.T, scenarioName string, result *Result) {
	t.Helper()

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, Render(scenarioName, result))
}
