// Package bind implements the reactive layer shared by every view: attribute
// models, ordered collections of models and composite views that re-render
// whenever one of their bound sources changes.
package bind

// Event names emitted by models and collections.
const (
	EventChange = "change"
	EventReset  = "reset"
	EventAdd    = "add"
)

// Handler is called synchronously when an event fires.
type Handler func()

type subscription struct {
	id int
	fn Handler
}

// Emitter keeps per-event handler lists. It is not safe for concurrent use;
// callers serialize access through their event loop.
type Emitter struct {
	nextID   int
	handlers map[string][]subscription
}

// On registers fn for event and returns a func that removes it again.
func (e *Emitter) On(event string, fn Handler) (off func()) {
	if e.handlers == nil {
		e.handlers = make(map[string][]subscription)
	}
	e.nextID++
	id := e.nextID
	e.handlers[event] = append(e.handlers[event], subscription{id: id, fn: fn})

	return func() {
		subs := e.handlers[event]
		for i, s := range subs {
			if s.id == id {
				e.handlers[event] = append(subs[:i:i], subs[i+1:]...)
				return
			}
		}
	}
}

// Trigger runs every handler registered for event in subscription order.
func (e *Emitter) Trigger(event string) {
	subs := e.handlers[event]
	if len(subs) == 0 {
		return
	}
	// Handlers may unsubscribe while we iterate.
	snapshot := make([]subscription, len(subs))
	copy(snapshot, subs)
	for _, s := range snapshot {
		s.fn()
	}
}

// Count returns the number of handlers registered for event.
func (e *Emitter) Count(event string) int {
	return len(e.handlers[event])
}
