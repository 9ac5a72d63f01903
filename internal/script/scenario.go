package script

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// Scenario is a scripted store session: an initial state, named actions,
// subscribers, the dispatches to perform and assertions on the outcome.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario checks.
	Description string `yaml:"description"`

	// State is the initial state. Nil starts from an empty map.
	State map[string]any `yaml:"state,omitempty"`

	// Schema is optional CUE source. The state is checked against it after
	// every step.
	Schema string `yaml:"schema,omitempty"`

	// Actions maps action names to their definitions. "*" is reserved.
	Actions map[string]ActionDef `yaml:"actions"`

	// Subscribers are registered in order before the first step.
	Subscribers []SubscriberDef `yaml:"subscribers,omitempty"`

	// Steps are top-level dispatches, performed in order.
	Steps []Step `yaml:"steps"`

	// Assertions are evaluated after the last step.
	Assertions []Assertion `yaml:"assertions"`
}

// ActionDef defines an action. Exactly one of Ops, Noop, Fail or Async must
// be set.
type ActionDef struct {
	// Ops produce the next state from a copy of the current one.
	Ops []Op `yaml:"ops,omitempty"`

	// Noop actions return no state.
	Noop bool `yaml:"noop,omitempty"`

	// Fail makes the action return an error with this message.
	Fail string `yaml:"fail,omitempty"`

	// Async actions return a pending result. Their Then steps run once the
	// action named by Until has been dispatched, or right after the current
	// step when Until is empty. In Then steps $payload is the payload of the
	// dispatch that satisfied Until, or the action's own payload.
	Async bool   `yaml:"async,omitempty"`
	Until string `yaml:"until,omitempty"`
	Then  []Step `yaml:"then,omitempty"`
}

// Op is one state edit.
//
//	op: set | add | delete | merge
//	path: dot.separated.keys (empty for the root, merge only)
//	value: literal, $payload, $payload.<path> or $state.<path>
type Op struct {
	Op    string `yaml:"op"`
	Path  string `yaml:"path,omitempty"`
	Value any    `yaml:"value,omitempty"`
}

// Op names.
const (
	OpSet    = "set"
	OpAdd    = "add"
	OpDelete = "delete"
	OpMerge  = "merge"
)

// SubscriberDef defines a subscriber. Checks run in field order: Once
// unsubscribes first, then RevertWhen, FailWhen and finally Dispatch.
type SubscriberDef struct {
	// On limits the subscriber to one action. Empty or "*" means every action.
	On string `yaml:"on,omitempty"`

	// RevertWhen rolls the dispatch back when it holds.
	RevertWhen *Condition `yaml:"revert_when,omitempty"`

	// FailWhen makes the subscriber return an error when it holds.
	FailWhen *Condition `yaml:"fail_when,omitempty"`

	// Dispatch names an action to dispatch from inside the subscriber, gated
	// by When if set.
	Dispatch string     `yaml:"dispatch,omitempty"`
	Payload  any        `yaml:"payload,omitempty"`
	When     *Condition `yaml:"when,omitempty"`

	// Once removes the subscriber on its first call.
	Once bool `yaml:"once,omitempty"`
}

// Condition compares the value at Path in the state with Value.
type Condition struct {
	Path  string `yaml:"path"`
	Op    string `yaml:"op"`
	Value any    `yaml:"value,omitempty"`
}

// Condition operators.
var conditionOps = []string{"eq", "ne", "gt", "gte", "lt", "lte", "exists", "missing"}

// Step dispatches one action.
type Step struct {
	Dispatch string `yaml:"dispatch"`
	Payload  any    `yaml:"payload,omitempty"`

	// ExpectError marks a dispatch whose action is expected to fail.
	ExpectError bool `yaml:"expect_error,omitempty"`
}

// Assertion checks the outcome of a run.
type Assertion struct {
	// Type is one of state, dispatch_count, dispatch_order, outcome.
	Type string `yaml:"type"`

	// Path and Equals are used by state. An empty path compares the whole
	// state.
	Path   string `yaml:"path,omitempty"`
	Equals any    `yaml:"equals,omitempty"`

	// Action is used by dispatch_count and outcome. Empty or "*" counts every
	// dispatch.
	Action string `yaml:"action,omitempty"`

	// Count is used by dispatch_count.
	Count int `yaml:"count,omitempty"`

	// Actions is used by dispatch_order.
	Actions []string `yaml:"actions,omitempty"`

	// Outcome and Index are used by outcome: the Index-th (0-based) dispatch
	// of Action must have ended with Outcome.
	Outcome string `yaml:"outcome,omitempty"`
	Index   int    `yaml:"index,omitempty"`
}

// Assertion type constants.
const (
	AssertState         = "state"
	AssertDispatchCount = "dispatch_count"
	AssertDispatchOrder = "dispatch_order"
	AssertOutcome       = "outcome"
)

// Wildcard names every action in On, Until and assertion filters.
const Wildcard = "*"

// ErrInvalidScenario wraps every validation failure.
var ErrInvalidScenario = errors.New("invalid scenario")

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed, contains unknown
// fields (typos), or fails validation.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := Validate(&scenario); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidScenario, err)
	}
	return &scenario, nil
}

// Validate checks that required fields are present and that every name a
// scenario uses refers to a defined action.
func Validate(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Actions) == 0 {
		return fmt.Errorf("actions map is required and must be non-empty")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	if _, ok := s.Actions[Wildcard]; ok {
		return fmt.Errorf("actions: %q is reserved", Wildcard)
	}
	for name, def := range s.Actions {
		if err := validateAction(s, name, def); err != nil {
			return err
		}
	}

	for i, sub := range s.Subscribers {
		if err := validateSubscriber(s, i, sub); err != nil {
			return err
		}
	}

	for i, step := range s.Steps {
		if err := validateStep(s, fmt.Sprintf("steps[%d]", i), step); err != nil {
			return err
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(s, i, a); err != nil {
			return err
		}
	}
	return nil
}

func validateAction(s *Scenario, name string, def ActionDef) error {
	kinds := 0
	if len(def.Ops) > 0 {
		kinds++
	}
	if def.Noop {
		kinds++
	}
	if def.Fail != "" {
		kinds++
	}
	if def.Async {
		kinds++
	}
	if kinds != 1 {
		return fmt.Errorf("actions.%s: exactly one of ops, noop, fail or async is required", name)
	}

	for i, op := range def.Ops {
		switch op.Op {
		case OpSet, OpAdd, OpMerge:
			if op.Op != OpMerge && op.Path == "" {
				return fmt.Errorf("actions.%s.ops[%d]: path is required for %s", name, i, op.Op)
			}
		case OpDelete:
			if op.Path == "" {
				return fmt.Errorf("actions.%s.ops[%d]: path is required for delete", name, i)
			}
		default:
			return fmt.Errorf("actions.%s.ops[%d]: unknown op %q", name, i, op.Op)
		}
	}

	if !def.Async && (def.Until != "" || len(def.Then) > 0) {
		return fmt.Errorf("actions.%s: until and then require async", name)
	}
	if def.Until != "" && !knownOrWildcard(s, def.Until) {
		return fmt.Errorf("actions.%s: until refers to unknown action %q", name, def.Until)
	}
	for i, step := range def.Then {
		if err := validateStep(s, fmt.Sprintf("actions.%s.then[%d]", name, i), step); err != nil {
			return err
		}
	}
	return nil
}

func validateSubscriber(s *Scenario, i int, sub SubscriberDef) error {
	if sub.On != "" && !knownOrWildcard(s, sub.On) {
		return fmt.Errorf("subscribers[%d]: on refers to unknown action %q", i, sub.On)
	}
	if sub.RevertWhen == nil && sub.FailWhen == nil && sub.Dispatch == "" {
		return fmt.Errorf("subscribers[%d]: one of revert_when, fail_when or dispatch is required", i)
	}
	if sub.Dispatch != "" && !known(s, sub.Dispatch) {
		return fmt.Errorf("subscribers[%d]: dispatch refers to unknown action %q", i, sub.Dispatch)
	}
	if sub.When != nil && sub.Dispatch == "" {
		return fmt.Errorf("subscribers[%d]: when requires dispatch", i)
	}
	conds := []struct {
		field string
		c     *Condition
	}{{"revert_when", sub.RevertWhen}, {"fail_when", sub.FailWhen}, {"when", sub.When}}
	for _, cond := range conds {
		if cond.c != nil && !slices.Contains(conditionOps, cond.c.Op) {
			return fmt.Errorf("subscribers[%d].%s: unknown op %q", i, cond.field, cond.c.Op)
		}
	}
	return nil
}

func validateStep(s *Scenario, where string, step Step) error {
	if step.Dispatch == "" {
		return fmt.Errorf("%s: dispatch is required", where)
	}
	if !known(s, step.Dispatch) {
		return fmt.Errorf("%s: unknown action %q", where, step.Dispatch)
	}
	return nil
}

func validateAssertion(s *Scenario, index int, a Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertState:
	case AssertDispatchCount:
		if a.Action != "" && !knownOrWildcard(s, a.Action) {
			return fmt.Errorf("assertions[%d]: unknown action %q", index, a.Action)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative", index)
		}
	case AssertDispatchOrder:
		if len(a.Actions) == 0 {
			return fmt.Errorf("assertions[%d]: actions list is required for dispatch_order", index)
		}
		for _, name := range a.Actions {
			if !known(s, name) {
				return fmt.Errorf("assertions[%d]: unknown action %q", index, name)
			}
		}
	case AssertOutcome:
		if !known(s, a.Action) {
			return fmt.Errorf("assertions[%d]: action is required for outcome and must be defined", index)
		}
		switch a.Outcome {
		case "completed", "rolled_back", "aborted", "failed":
		default:
			return fmt.Errorf("assertions[%d]: unknown outcome %q", index, a.Outcome)
		}
		if a.Index < 0 {
			return fmt.Errorf("assertions[%d]: index must be non-negative", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown type %q", index, a.Type)
	}
	return nil
}

func known(s *Scenario, name string) bool {
	_, ok := s.Actions[name]
	return ok
}

func knownOrWildcard(s *Scenario, name string) bool {
	return name == Wildcard || known(s, name)
}
