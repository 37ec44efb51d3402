package serial

// EventType classifies transport notifications.
type EventType string

const (
	EventConnect    EventType = "connect"
	EventDisconnect EventType = "disconnect"
	EventData       EventType = "data"
	EventError      EventType = "error"
)

// Event is delivered to registered handlers. Data events carry the received
// chunk decoded as text; the other types carry a human-readable summary.
type Event struct {
	Type    EventType
	Message string
}

// Handler consumes transport events. Handlers run synchronously on the
// goroutine raising the event, so a slow data handler delays the read loop.
type Handler func(Event)

// On registers handler for events of the given type. Handlers are invoked
// in registration order. Events of one session are delivered in emission
// order, and no session event follows its disconnect event.
func (t *Transport) On(typ EventType, handler Handler) {
	if handler == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.handlers == nil {
		t.handlers = make(map[EventType][]Handler)
	}
	t.handlers[typ] = append(t.handlers[typ], handler)
}

func (t *Transport) emit(ev Event) {
	t.mu.Lock()
	handlers := append([]Handler(nil), t.handlers[ev.Type]...)
	t.mu.Unlock()
	for _, h := range handlers {
		h(ev)
	}
}
