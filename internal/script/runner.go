package script

import (
	"cmp"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"slices"

	"github.com/roach88/statebox"
	"github.com/roach88/statebox/internal/schema"
	"github.com/roach88/statebox/internal/testutil"
)

// MaxDepth bounds dispatches made from subscribers. A subscriber that would
// dispatch deeper fails instead, which stops its pass.
const MaxDepth = 32

// RunOptions configures a run.
type RunOptions struct {
	// Observer receives every dispatch record in addition to the trace.
	Observer statebox.Observer

	// Logger receives store and runner logs. Nil discards them.
	Logger *slog.Logger

	// IDs replaces the deterministic d-NNNN dispatch IDs. Runs that share a
	// trace database need unique IDs.
	IDs statebox.IDGenerator
}

type continuation struct {
	action string
	then   []Step
	dc     *statebox.Context[State]
	done   statebox.Awaitable
	match  *statebox.Future[statebox.Match[State]]
}

func (c *continuation) ready() bool {
	select {
	case <-c.done.Done():
		return true
	default:
		return false
	}
}

type runner struct {
	scenario *Scenario
	store    *statebox.Store[State]
	actions  map[string]*statebox.Action[State]
	schema   *schema.Schema
	pending  []*continuation
	result   *Result
	logger   *slog.Logger
}

// Run executes a scenario with default options.
func Run(scenario *Scenario) (*Result, error) {
	return RunWithOptions(scenario, RunOptions{})
}

// RunWithOptions executes a scenario.
//
// Execution flow:
//  1. Validate the scenario and compile its schema
//  2. Create a store with deterministic IDs and build actions and subscribers
//  3. Dispatch each step, then run continuations it made ready
//  4. Check the schema after every step
//  5. Evaluate assertions against the trace and final state
//
// The returned error covers scenarios that cannot run at all. Failed steps
// and assertions are reported in the Result.
func RunWithOptions(scenario *Scenario, opts RunOptions) (*Result, error) {
	if err := Validate(scenario); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidScenario, err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	r := &runner{
		scenario: scenario,
		actions:  make(map[string]*statebox.Action[State], len(scenario.Actions)),
		result:   NewResult(),
		logger:   logger.With("scenario", scenario.Name),
	}

	if scenario.Schema != "" {
		s, err := schema.Compile(scenario.Schema)
		if err != nil {
			return nil, fmt.Errorf("schema: %w", err)
		}
		r.schema = s
	}

	var records []statebox.Record
	collect := statebox.ObserverFunc(func(rec statebox.Record) {
		records = append(records, rec)
	})

	var ids statebox.IDGenerator = testutil.NewSequenceGenerator("d")
	if opts.IDs != nil {
		ids = opts.IDs
	}

	initial := maps.Clone(scenario.State)
	if initial == nil {
		initial = State{}
	}
	r.store = statebox.New(initial,
		statebox.WithLogger(r.logger),
		statebox.WithObserver(statebox.NewMultiObserver(collect, opts.Observer)),
		statebox.WithIDGenerator(ids),
		statebox.WithClock(testutil.NewDeterministicClock()),
	)

	for _, name := range slices.Sorted(maps.Keys(scenario.Actions)) {
		r.actions[name] = r.buildAction(name, scenario.Actions[name])
	}
	for i, def := range scenario.Subscribers {
		r.subscribe(i, def)
	}

	r.check("initial state")
	for i, step := range scenario.Steps {
		where := fmt.Sprintf("steps[%d]", i)
		_, err := r.store.Dispatch(r.actions[step.Dispatch], resolve(step.Payload, r.store.State(), nil))
		r.expect(where, step, err)
		r.drain()
		r.check(where)
	}

	for _, rec := range records {
		r.result.Trace = append(r.result.Trace, traceEvent(rec))
	}
	slices.SortFunc(r.result.Trace, func(a, b TraceEvent) int {
		return cmp.Compare(a.Seq, b.Seq)
	})
	r.result.State = r.store.State()
	r.result.Pending = len(r.pending)

	for i, a := range scenario.Assertions {
		if err := evaluate(a, r.result); err != nil {
			r.result.AddError(fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}

	r.logger.Debug("scenario finished",
		"pass", r.result.Pass,
		"dispatches", len(r.result.Trace),
		"pending", r.result.Pending)
	return r.result, nil
}

func (r *runner) action(name string) *statebox.Action[State] {
	if name == Wildcard {
		return statebox.Any[State]()
	}
	return r.actions[name]
}

func (r *runner) buildAction(name string, def ActionDef) *statebox.Action[State] {
	switch {
	case def.Noop:
		return statebox.NewAction(name, func(State, *statebox.Context[State]) (statebox.Result[State], error) {
			return statebox.Keep[State](), nil
		})

	case def.Fail != "":
		return statebox.NewAction(name, func(State, *statebox.Context[State]) (statebox.Result[State], error) {
			return statebox.Keep[State](), errors.New(def.Fail)
		})

	case def.Async:
		return statebox.NewAction(name, func(_ State, dc *statebox.Context[State]) (statebox.Result[State], error) {
			c := &continuation{action: name, then: def.Then, dc: dc}
			if def.Until != "" {
				c.match = dc.Until(r.action(def.Until))
				c.done = c.match
			} else {
				ready, resolve := statebox.NewPromise[struct{}]()
				resolve(struct{}{})
				c.done = ready
			}
			r.pending = append(r.pending, c)
			return statebox.Pending[State](c.done), nil
		})
	}

	return statebox.NewAction(name, func(state State, dc *statebox.Context[State]) (statebox.Result[State], error) {
		next, err := apply(state, def.Ops, dc.Payload())
		if err != nil {
			return statebox.Keep[State](), err
		}
		return statebox.Next(next), nil
	})
}

func (r *runner) subscribe(i int, def SubscriberDef) {
	var unsubscribe statebox.Unsubscribe
	fn := func(state State, dc *statebox.Context[State]) error {
		if def.Once {
			unsubscribe()
		}
		payload := dc.Payload()

		if def.RevertWhen != nil {
			held, err := evalCondition(def.RevertWhen, state, payload)
			if err != nil {
				return fmt.Errorf("subscribers[%d].revert_when: %w", i, err)
			}
			if held {
				return dc.Revert()
			}
		}

		if def.FailWhen != nil {
			held, err := evalCondition(def.FailWhen, state, payload)
			if err != nil {
				return fmt.Errorf("subscribers[%d].fail_when: %w", i, err)
			}
			if held {
				return fmt.Errorf("subscribers[%d]: %s %s held", i, def.FailWhen.Path, def.FailWhen.Op)
			}
		}

		if def.Dispatch == "" {
			return nil
		}
		if def.When != nil {
			held, err := evalCondition(def.When, state, payload)
			if err != nil {
				return fmt.Errorf("subscribers[%d].when: %w", i, err)
			}
			if !held {
				return nil
			}
		}
		if dc.Depth() >= MaxDepth {
			return fmt.Errorf("subscribers[%d]: dispatch depth limit %d exceeded", i, MaxDepth)
		}
		_, err := dc.Dispatch(r.actions[def.Dispatch], resolve(def.Payload, state, payload))
		return err
	}

	if def.On == "" {
		unsubscribe = r.store.Subscribe(fn)
		return
	}
	unsubscribe = r.store.SubscribeAction(r.action(def.On), fn)
}

// drain runs ready continuations, oldest first, until none is ready.
// Continuations may start or resolve others.
func (r *runner) drain() {
	for {
		i := slices.IndexFunc(r.pending, (*continuation).ready)
		if i < 0 {
			return
		}
		c := r.pending[i]
		r.pending = slices.Delete(r.pending, i, i+1)

		payload := c.dc.Payload()
		if c.match != nil {
			if m, ok := c.match.Value(); ok {
				payload = m.Payload
			}
		}

		for j, step := range c.then {
			where := fmt.Sprintf("%s.then[%d]", c.action, j)
			_, err := c.dc.Dispatch(r.actions[step.Dispatch], resolve(step.Payload, r.store.State(), payload))
			r.expect(where, step, err)
		}
	}
}

func (r *runner) expect(where string, step Step, err error) {
	switch {
	case err != nil && !step.ExpectError:
		r.result.AddError(fmt.Sprintf("%s: dispatch %s: %v", where, step.Dispatch, err))
	case err == nil && step.ExpectError:
		r.result.AddError(fmt.Sprintf("%s: dispatch %s: expected an error", where, step.Dispatch))
	}
}

func (r *runner) check(where string) {
	if r.schema == nil {
		return
	}
	if err := r.schema.Check(r.store.State()); err != nil {
		r.result.AddError(fmt.Sprintf("%s: %v", where, err))
	}
}
