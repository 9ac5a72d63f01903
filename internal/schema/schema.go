// Package schema checks states against CUE constraints.
//
// A schema is CUE source. If it declares a #State definition, states are
// checked against #State; otherwise against the whole file:
//
//	#State: {
//		count: int & >=0
//		user?: {name: string}
//	}
package schema

import (
	"fmt"
	"strings"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
)

// Schema is a compiled set of constraints.
//
// Thread-safety: Check is safe for concurrent use.
type Schema struct {
	mu    sync.Mutex
	ctx   *cue.Context
	value cue.Value
	src   string
}

// Compile compiles CUE source.
func Compile(src string) (*Schema, error) {
	ctx := cuecontext.New()
	v := ctx.CompileString(src, cue.Filename("schema.cue"))
	if err := v.Err(); err != nil {
		return nil, formatCUEError("compile", err)
	}

	if def := v.LookupPath(cue.ParsePath("#State")); def.Exists() {
		v = def
	}
	return &Schema{ctx: ctx, value: v, src: src}, nil
}

// Source returns the CUE text the schema was compiled from.
func (s *Schema) Source() string {
	return s.src
}

// Check reports whether state satisfies the schema. State must be made of
// JSON-like values (maps, slices, strings, numbers, bools, nil) or types that
// CUE can encode.
func (s *Schema) Check(state any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	encoded := s.ctx.Encode(state)
	if err := encoded.Err(); err != nil {
		return formatCUEError("encode state", err)
	}

	unified := s.value.Unify(encoded)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return formatCUEError("state", err)
	}
	return nil
}

// Error is a schema failure with the position of the first CUE error.
type Error struct {
	Op      string
	Message string
	Pos     token.Pos
}

func (e *Error) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s: %s:%d:%d: %s", e.Op, e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func formatCUEError(op string, err error) error {
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return &Error{Op: op, Message: err.Error()}
	}

	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		msgs = append(msgs, e.Error())
	}
	out := &Error{Op: op, Message: strings.Join(msgs, "; ")}
	if positions := errors.Positions(errs[0]); len(positions) > 0 {
		out.Pos = positions[0]
	}
	return out
}
