package script

import (
	"fmt"
	"strings"
)

// AssertionError is returned when an assertion fails.
// It includes the trace to help debug the failure.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
	Trace    []TraceEvent
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, event := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s%s %s\n", event.Seq, strings.Repeat("  ", event.Depth), event.Action, event.Outcome)
		}
	}
	return buf.String()
}

func evaluate(a Assertion, result *Result) error {
	switch a.Type {
	case AssertState:
		return assertState(result, a)
	case AssertDispatchCount:
		return assertDispatchCount(result.Trace, a)
	case AssertDispatchOrder:
		return assertDispatchOrder(result.Trace, a)
	case AssertOutcome:
		return assertOutcome(result.Trace, a)
	}
	return fmt.Errorf("unknown assertion type %q", a.Type)
}

func assertState(result *Result, a Assertion) error {
	got, ok := lookup(result.State, a.Path)
	if !ok {
		return &AssertionError{
			Type:     AssertState,
			Expected: fmt.Sprintf("%s = %v", displayPath(a.Path), a.Equals),
			Actual:   "path not found",
		}
	}
	if !sameValue(got, a.Equals) {
		return &AssertionError{
			Type:     AssertState,
			Expected: fmt.Sprintf("%s = %v", displayPath(a.Path), a.Equals),
			Actual:   fmt.Sprintf("%v", got),
			Trace:    result.Trace,
		}
	}
	return nil
}

func assertDispatchCount(trace []TraceEvent, a Assertion) error {
	count := 0
	for _, event := range trace {
		if matchesAction(a.Action, event.Action) {
			count++
		}
	}
	if count != a.Count {
		return &AssertionError{
			Type:     AssertDispatchCount,
			Expected: fmt.Sprintf("%s dispatched %d times", displayAction(a.Action), a.Count),
			Actual:   fmt.Sprintf("dispatched %d times", count),
			Trace:    trace,
		}
	}
	return nil
}

// assertDispatchOrder checks that the actions appear in the given order.
// Actions don't need to be consecutive.
func assertDispatchOrder(trace []TraceEvent, a Assertion) error {
	next := 0
	for _, event := range trace {
		if next < len(a.Actions) && event.Action == a.Actions[next] {
			next++
		}
	}
	if next < len(a.Actions) {
		return &AssertionError{
			Type:     AssertDispatchOrder,
			Expected: strings.Join(a.Actions, " -> "),
			Actual:   fmt.Sprintf("%s not found after %s", a.Actions[next], strings.Join(a.Actions[:next], " -> ")),
			Trace:    trace,
		}
	}
	return nil
}

func assertOutcome(trace []TraceEvent, a Assertion) error {
	seen := 0
	for _, event := range trace {
		if event.Action != a.Action {
			continue
		}
		if seen == a.Index {
			if event.Outcome != a.Outcome {
				return &AssertionError{
					Type:     AssertOutcome,
					Expected: fmt.Sprintf("%s #%d %s", a.Action, a.Index, a.Outcome),
					Actual:   event.Outcome,
					Trace:    trace,
				}
			}
			return nil
		}
		seen++
	}
	return &AssertionError{
		Type:     AssertOutcome,
		Expected: fmt.Sprintf("%s #%d %s", a.Action, a.Index, a.Outcome),
		Actual:   fmt.Sprintf("%s dispatched %d times", a.Action, seen),
		Trace:    trace,
	}
}

func matchesAction(filter, action string) bool {
	return filter == "" || filter == Wildcard || filter == action
}

func displayAction(name string) string {
	if name == "" || name == Wildcard {
		return "any action"
	}
	return name
}

func displayPath(path string) string {
	if path == "" {
		return "state"
	}
	return path
}
