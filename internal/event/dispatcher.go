package event

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
)

// Handler reacts to a dispatched event. Handlers run post-commit and may
// fail independently of the command that raised the event.
type Handler func(ctx context.Context, e Event) error

// Sink accepts a committed event for post-commit side effects. Command
// services hold a Sink so delivery can go through the outbox publisher's
// dedupe instead of the raw dispatcher.
type Sink interface {
	Dispatch(ctx context.Context, e Event)
}

// Dispatcher fans an event out to every handler registered for its type.
// It is an in-process, synchronous fan-out: durability across restarts is
// the outbox relay's job, not the dispatcher's.
type Dispatcher struct {
	handlers map[string][]Handler
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: make(map[string][]Handler)}
}

// Register appends a handler for the given event type. Handlers for the
// same type run in registration order. Not safe for concurrent use with
// Dispatch; register everything at startup.
func (d *Dispatcher) Register(eventType string, h Handler) {
	d.handlers[eventType] = append(d.handlers[eventType], h)
}

// Dispatch invokes every handler registered for the event's type. A failing
// or panicking handler is logged and must not prevent its siblings from
// running.
func (d *Dispatcher) Dispatch(ctx context.Context, e Event) {
	for i, h := range d.handlers[e.EventType()] {
		if err := d.invoke(ctx, h, e); err != nil {
			log.WithError(err).WithFields(log.Fields{
				"event_type": e.EventType(),
				"event_id":   e.EventID(),
				"handler":    i,
			}).Error("Event handler failed")
		}
	}
}

func (d *Dispatcher) invoke(ctx context.Context, h Handler, e Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return h(ctx, e)
}

// HandlerCount reports how many handlers listen for the given type, so
// startup wiring can assert that no event type is left unrouted.
func (d *Dispatcher) HandlerCount(eventType string) int {
	return len(d.handlers[eventType])
}
