package order

// Event is a client-visible order transition reported by Update.
type Event string

// Order events, in the order they can occur within a single Update.
const (
	EventSent         Event = "SENT"
	EventRegistered   Event = "REGISTERED"
	EventCancelFailed Event = "CANCEL_FAILED"
	EventExecuted     Event = "EXECUTED"
	EventCancelled    Event = "CANCELLED"
)

// Handler reacts to an order event.
type Handler func(o *Order, ev Event) error

type handlerKey struct {
	tag string
	ev  Event
}

// HandlerTable routes order events to handlers by (order tag, event).
// Strategies change how an order is handled by retagging it rather than
// rebinding callbacks on the order itself.
type HandlerTable struct {
	handlers map[handlerKey]Handler
}

// NewHandlerTable creates an empty handler table.
func NewHandlerTable() *HandlerTable {
	return &HandlerTable{handlers: make(map[handlerKey]Handler)}
}

// On registers h for orders tagged tag receiving ev.
// An empty tag matches orders whose tag has no handler of its own.
func (t *HandlerTable) On(tag string, ev Event, h Handler) {
	if t.handlers == nil {
		t.handlers = make(map[handlerKey]Handler)
	}
	t.handlers[handlerKey{tag: tag, ev: ev}] = h
}

// Dispatch invokes the handler registered for o's tag and ev, if any.
func (t *HandlerTable) Dispatch(o *Order, ev Event) error {
	if t == nil || t.handlers == nil {
		return nil
	}
	h, ok := t.handlers[handlerKey{tag: o.Tag(), ev: ev}]
	if !ok {
		h, ok = t.handlers[handlerKey{ev: ev}]
	}
	if !ok {
		return nil
	}
	return h(o, ev)
}
