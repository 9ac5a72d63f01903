package statebox

// Context is created for a single dispatch and handed to the action and to
// every subscriber notified by that dispatch. Closures may keep it after the
// dispatch returns; dispatches made through it then record it as their parent.
type Context[S any] struct {
	store   *Store[S]
	action  *Action[S]
	payload any
	id      string
	seq     int64
	parent  *Context[S]
	depth   int
}

// Action returns the dispatched action.
func (dc *Context[S]) Action() *Action[S] {
	return dc.action
}

// Payload returns the payload passed to Dispatch.
func (dc *Context[S]) Payload() any {
	return dc.payload
}

// ID returns the dispatch ID.
func (dc *Context[S]) ID() string {
	return dc.id
}

// Seq returns the dispatch sequence number within its store.
func (dc *Context[S]) Seq() int64 {
	return dc.seq
}

// Parent returns the context that issued this dispatch, or nil when it was
// dispatched on the store directly.
func (dc *Context[S]) Parent() *Context[S] {
	return dc.parent
}

// Depth is 0 for top-level dispatches and grows by one per nesting level.
func (dc *Context[S]) Depth() int {
	return dc.depth
}

// Select evaluates expr against the store's current state.
func (dc *Context[S]) Select(expr Selector[S]) any {
	return dc.store.Select(expr)
}

// State returns the store's current state.
func (dc *Context[S]) State() S {
	return dc.store.State()
}

// Dispatch runs a nested dispatch. It completes before returning.
func (dc *Context[S]) Dispatch(action *Action[S], payload any) (Result[S], error) {
	return dc.store.dispatch(action, payload, dc)
}

// Until is Store.Until.
func (dc *Context[S]) Until(action *Action[S]) *Future[Match[S]] {
	return dc.store.Until(action)
}

// Subscribe is Store.Subscribe.
func (dc *Context[S]) Subscribe(fn Subscriber[S]) Unsubscribe {
	return dc.store.Subscribe(fn)
}

// SubscribeAction is Store.SubscribeAction.
func (dc *Context[S]) SubscribeAction(action *Action[S], fn Subscriber[S]) Unsubscribe {
	return dc.store.SubscribeAction(action, fn)
}

// Revert requests a rollback. Subscribers return its result:
//
//	return dc.Revert()
func (dc *Context[S]) Revert() error {
	return ErrRollback
}

// PayloadAs returns the payload asserted to T.
func PayloadAs[T, S any](dc *Context[S]) (T, bool) {
	v, ok := dc.payload.(T)
	return v, ok
}
