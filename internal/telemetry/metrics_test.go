package telemetry

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/statebox"
)

func add() *statebox.Action[int] {
	return statebox.Reduce("Increment", func(n int, payload any) int {
		return n + payload.(int)
	})
}

// guardedStore reverts any increment that takes the count above 3.
func guardedStore(obs statebox.Observer) (*statebox.Store[int], *statebox.Action[int]) {
	inc := add()
	store := statebox.New(0, statebox.WithObserver(obs))
	store.SubscribeAction(inc, func(n int, dc *statebox.Context[int]) error {
		if n > 3 {
			return dc.Revert()
		}
		return nil
	})
	return store, inc
}

func TestMetrics_CountsOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	store, inc := guardedStore(m)
	fail := statebox.NewAction("Fail", func(int, *statebox.Context[int]) (statebox.Result[int], error) {
		return statebox.Keep[int](), errors.New("boom")
	})

	_, err := store.Dispatch(inc, 2)
	require.NoError(t, err)
	_, err = store.Dispatch(inc, 2)
	require.NoError(t, err)
	_, err = store.Dispatch(fail, nil)
	require.Error(t, err)

	assert.Equal(t, 2, store.State())
	assert.Equal(t, float64(1), promtest.ToFloat64(m.dispatches.WithLabelValues("Increment", "completed")))
	assert.Equal(t, float64(1), promtest.ToFloat64(m.dispatches.WithLabelValues("Increment", "rolled_back")))
	assert.Equal(t, float64(1), promtest.ToFloat64(m.dispatches.WithLabelValues("Fail", "failed")))
	assert.Equal(t, float64(2), promtest.ToFloat64(m.commits.WithLabelValues("Increment")))
	assert.Equal(t, float64(1), promtest.ToFloat64(m.rollbacks.WithLabelValues("Increment")))

	count, err := promtest.GatherAndCount(reg, "statebox_dispatches_total")
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestMetrics_ObservesNotifiedAndDepth(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	store, inc := guardedStore(m)

	_, err := store.Dispatch(inc, 1)
	require.NoError(t, err)

	families, err := reg.Gather()
	require.NoError(t, err)

	samples := map[string]uint64{}
	sums := map[string]float64{}
	for _, mf := range families {
		for _, metric := range mf.GetMetric() {
			if h := metric.GetHistogram(); h != nil {
				samples[mf.GetName()] += h.GetSampleCount()
				sums[mf.GetName()] += h.GetSampleSum()
			}
		}
	}
	assert.Equal(t, uint64(1), samples["statebox_notified_subscribers"])
	assert.Equal(t, float64(1), sums["statebox_notified_subscribers"])
	assert.Equal(t, uint64(1), samples["statebox_dispatch_depth"])
	assert.Equal(t, float64(0), sums["statebox_dispatch_depth"])
}

func TestMetrics_Options(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg,
		WithNamespace("app"),
		WithSubsystem("cart"),
		WithConstLabels(prometheus.Labels{"store": "cart"}),
		WithNotifiedBuckets([]float64{1, 10}),
	)
	store, inc := guardedStore(m)

	_, err := store.Dispatch(inc, 1)
	require.NoError(t, err)

	count, err := promtest.GatherAndCount(reg, "app_cart_dispatches_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	count, err = promtest.GatherAndCount(reg, "statebox_dispatches_total")
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestMetrics_NilRegistererDoesNotRegister(t *testing.T) {
	// Two unregistered instances must not collide.
	a := NewMetrics(nil)
	b := NewMetrics(nil)

	a.OnDispatch(statebox.Record{Action: "A", Outcome: statebox.OutcomeCompleted, Committed: true})
	b.OnDispatch(statebox.Record{Action: "A", Outcome: statebox.OutcomeAborted})

	assert.Equal(t, float64(1), promtest.ToFloat64(a.dispatches.WithLabelValues("A", "completed")))
	assert.Equal(t, float64(0), promtest.ToFloat64(b.commits.WithLabelValues("A")))
}

func TestMetrics_DuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewMetrics(reg)
	assert.Panics(t, func() { NewMetrics(reg) })
}
