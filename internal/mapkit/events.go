package mapkit

// EventType names a map notification.
type EventType string

const (
	EventZoomEnd     EventType = "zoomend"
	EventAddLayer    EventType = "addlayer"
	EventRemoveLayer EventType = "removelayer"
)

// Event is a map notification delivered to listeners.
type Event struct {
	Type  EventType
	Layer Layer // set for addlayer/removelayer
	Zoom  int   // set for zoomend
}

// Listener handles one map event.
type Listener func(Event)

type registration struct {
	scope    any
	listener Listener
}

// Events is a synchronous listener registry. Listeners are grouped by the
// scope they were registered with so a control can drop all of its
// listeners in one call.
type Events struct {
	listeners map[EventType][]registration
}

// NewEvents creates an empty registry.
func NewEvents() *Events {
	return &Events{listeners: make(map[EventType][]registration)}
}

// On registers listeners for scope.
func (e *Events) On(scope any, handlers map[EventType]Listener) {
	for typ, fn := range handlers {
		if fn == nil {
			continue
		}
		e.listeners[typ] = append(e.listeners[typ], registration{scope: scope, listener: fn})
	}
}

// Un removes the listeners registered by scope. With no types given, every
// type is cleared for that scope.
func (e *Events) Un(scope any, types ...EventType) {
	if len(types) == 0 {
		for typ := range e.listeners {
			types = append(types, typ)
		}
	}
	for _, typ := range types {
		regs := e.listeners[typ]
		kept := regs[:0]
		for _, reg := range regs {
			if reg.scope != scope {
				kept = append(kept, reg)
			}
		}
		if len(kept) == 0 {
			delete(e.listeners, typ)
			continue
		}
		e.listeners[typ] = kept
	}
}

// Trigger calls every listener registered for ev.Type in registration order.
func (e *Events) Trigger(ev Event) {
	regs := append([]registration(nil), e.listeners[ev.Type]...)
	for _, reg := range regs {
		reg.listener(ev)
	}
}

// Count returns the number of listeners registered for typ.
func (e *Events) Count(typ EventType) int {
	return len(e.listeners[typ])
}
