package script

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/statebox/internal/canonical"
)

// Snapshot renders a result as canonical JSON for golden comparison. Error
// messages are left out; outcomes carry the same information.
func Snapshot(name string, result *Result) ([]byte, error) {
	trace := make([]any, len(result.Trace))
	for i, e := range result.Trace {
		event := map[string]any{
			"seq":       e.Seq,
			"id":        e.ID,
			"depth":     e.Depth,
			"action":    e.Action,
			"payload":   e.Payload,
			"committed": e.Committed,
			"outcome":   e.Outcome,
			"notified":  e.Notified,
		}
		if e.ParentID != "" {
			event["parent_id"] = e.ParentID
		}
		trace[i] = event
	}

	return canonical.Marshal(map[string]any{
		"scenario": name,
		"trace":    trace,
		"state":    result.State,
		"pending":  result.Pending,
	})
}

// RunWithGolden executes a scenario and compares its snapshot against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/script -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return result, err
	}
	return result, nil
}

// AssertGolden compares an existing result against its golden file.
func AssertGolden(t *testing.T, name string, result *Result) error {
	t.Helper()

	snapshot, err := Snapshot(name, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, snapshot)
	return nil
}
