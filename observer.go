package statebox

// Outcome classifies how a dispatch ended.
type Outcome string

const (
	// OutcomeCompleted: every subscriber in the snapshot was notified.
	OutcomeCompleted Outcome = "completed"
	// OutcomeRolledBack: a subscriber reverted; the pass stopped.
	OutcomeRolledBack Outcome = "rolled_back"
	// OutcomeAborted: a subscriber failed; the pass stopped, no rollback.
	OutcomeAborted Outcome = "aborted"
	// OutcomeFailed: the action returned an error; nothing was committed.
	OutcomeFailed Outcome = "failed"
)

// Record describes one finished dispatch.
type Record struct {
	ID       string
	Seq      int64
	ParentID string
	Depth    int
	Action   string
	Payload  any
	// Committed reports whether the action's result was written to the state.
	// It stays true after a rollback.
	Committed bool
	Outcome   Outcome
	// Notified counts subscribers invoked, including the one that stopped the pass.
	Notified int
	// Err is the *ActionError or *SubscriberError behind a failed, aborted or
	// rolled back dispatch.
	Err error
}

// Observer receives a Record after every dispatch. A nested dispatch is
// reported before the dispatch that issued it. Observers run on the
// dispatching goroutine and must not block.
type Observer interface {
	OnDispatch(rec Record)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(rec Record)

func (f ObserverFunc) OnDispatch(rec Record) {
	f(rec)
}

// NoOpObserver discards records.
type NoOpObserver struct{}

func (NoOpObserver) OnDispatch(Record) {}

// MultiObserver fans records out to several observers.
type MultiObserver struct {
	observers []Observer
}

// NewMultiObserver creates a MultiObserver over the non-nil observers.
func NewMultiObserver(observers ...Observer) *MultiObserver {
	filtered := make([]Observer, 0, len(observers))
	for _, obs := range observers {
		if obs != nil {
			filtered = append(filtered, obs)
		}
	}
	return &MultiObserver{observers: filtered}
}

func (m *MultiObserver) OnDispatch(rec Record) {
	for _, obs := range m.observers {
		obs.OnDispatch(rec)
	}
}
