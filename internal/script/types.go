package script

import "github.com/roach88/statebox"

// TraceEvent is one finished dispatch.
type TraceEvent struct {
	Seq       int64  `json:"seq"`
	ID        string `json:"id"`
	ParentID  string `json:"parent_id,omitempty"`
	Depth     int    `json:"depth"`
	Action    string `json:"action"`
	Payload   any    `json:"payload"`
	Committed bool   `json:"committed"`
	Outcome   string `json:"outcome"`
	Notified  int    `json:"notified"`
	Error     string `json:"error,omitempty"`
}

func traceEvent(rec statebox.Record) TraceEvent {
	e := TraceEvent{
		Seq:       rec.Seq,
		ID:        rec.ID,
		ParentID:  rec.ParentID,
		Depth:     rec.Depth,
		Action:    rec.Action,
		Payload:   rec.Payload,
		Committed: rec.Committed,
		Outcome:   string(rec.Outcome),
		Notified:  rec.Notified,
	}
	if rec.Err != nil {
		e.Error = rec.Err.Error()
	}
	return e
}

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true if every step behaved as expected and every assertion held.
	Pass bool `json:"pass"`

	// Trace lists dispatches in seq order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains failure messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// State is the final state.
	State State `json:"state"`

	// Pending counts asynchronous continuations still waiting at the end.
	Pending int `json:"pending"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
		State:  State{},
	}
}

// AddError adds an error message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
