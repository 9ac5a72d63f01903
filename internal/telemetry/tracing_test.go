package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/roach88/statebox"
	"github.com/roach88/statebox/internal/testutil"
)

func newRecorder(t *testing.T) (*tracetest.SpanRecorder, *Tracing) {
	t.Helper()
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return sr, NewTracing(tp)
}

func attrs(span sdktrace.ReadOnlySpan) map[attribute.Key]attribute.Value {
	m := make(map[attribute.Key]attribute.Value)
	for _, kv := range span.Attributes() {
		m[kv.Key] = kv.Value
	}
	return m
}

func TestTracing_NestedDispatch(t *testing.T) {
	sr, obs := newRecorder(t)

	inc := add()
	audit := statebox.Reduce("Audit", func(n int, _ any) int { return n })
	store := statebox.New(0,
		statebox.WithObserver(obs),
		statebox.WithIDGenerator(testutil.NewSequenceGenerator("d")),
	)
	store.SubscribeAction(inc, func(_ int, dc *statebox.Context[int]) error {
		_, err := dc.Dispatch(audit, nil)
		return err
	})

	_, err := store.Dispatch(inc, 1)
	require.NoError(t, err)

	spans := sr.Ended()
	require.Len(t, spans, 2)

	// The nested dispatch finishes first.
	assert.Equal(t, "dispatch Audit", spans[0].Name())
	assert.Equal(t, "dispatch Increment", spans[1].Name())

	child := attrs(spans[0])
	assert.Equal(t, "d-0002", child["statebox.dispatch_id"].AsString())
	assert.Equal(t, "d-0001", child["statebox.parent_id"].AsString())
	assert.Equal(t, int64(1), child["statebox.depth"].AsInt64())

	parent := attrs(spans[1])
	assert.Equal(t, "completed", parent["statebox.outcome"].AsString())
	assert.True(t, parent["statebox.committed"].AsBool())
	assert.Equal(t, int64(1), parent["statebox.notified"].AsInt64())
	assert.Equal(t, int64(1), parent["statebox.seq"].AsInt64())
	_, hasParent := parent["statebox.parent_id"]
	assert.False(t, hasParent)
	assert.Equal(t, codes.Ok, spans[1].Status().Code)
}

func TestTracing_Status(t *testing.T) {
	tests := []struct {
		name    string
		outcome statebox.Outcome
		err     error
		code    codes.Code
		events  int
	}{
		{"completed", statebox.OutcomeCompleted, nil, codes.Ok, 0},
		{"rolled_back", statebox.OutcomeRolledBack, statebox.ErrRollback, codes.Unset, 1},
		{"aborted", statebox.OutcomeAborted, errors.New("subscriber failed"), codes.Error, 1},
		{"failed", statebox.OutcomeFailed, errors.New("action failed"), codes.Error, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sr, obs := newRecorder(t)
			obs.OnDispatch(statebox.Record{ID: "d-0001", Action: "A", Outcome: tt.outcome, Err: tt.err})

			spans := sr.Ended()
			require.Len(t, spans, 1)
			assert.Equal(t, tt.code, spans[0].Status().Code)
			assert.Len(t, spans[0].Events(), tt.events)
		})
	}
}

func TestTracing_GlobalProvider(t *testing.T) {
	obs := NewTracing(nil)
	assert.NotPanics(t, func() {
		obs.OnDispatch(statebox.Record{Action: "A", Outcome: statebox.OutcomeCompleted})
	})
}
