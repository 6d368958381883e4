package outbox

import (
	"context"
	"sync"
	"time"

	"casino_backoffice/internal/event"

	log "github.com/sirupsen/logrus"
)

// Publisher delivers a relayed outbox message downstream.
type Publisher interface {
	Publish(ctx context.Context, messageID string, eventType string, payload []byte) error
}

const (
	// Seen ids only matter for the window between an inline dispatch and
	// the relay marking the row processed, which is bounded by the backoff
	// cap. An hour gives ample slack.
	dedupeTTL            = time.Hour
	dedupePruneThreshold = 1024
)

// EventPublisher delivers events into the in-process dispatcher exactly once
// per process. Command services dispatch through it post-commit, and the
// relay republishes through it; both paths share one seen-id set keyed by
// event id (= outbox message id), so the relay's republish of an already
// dispatched event is a no-op.
type EventPublisher struct {
	dispatcher *event.Dispatcher

	mu        sync.Mutex
	processed map[string]time.Time
}

func NewEventPublisher(dispatcher *event.Dispatcher) *EventPublisher {
	return &EventPublisher{
		dispatcher: dispatcher,
		processed:  make(map[string]time.Time),
	}
}

// Dispatch delivers a freshly committed event inline, recording its id so
// the relay's later republish of the same outbox row is skipped.
func (p *EventPublisher) Dispatch(ctx context.Context, e event.Event) {
	if !p.markSeen(e.EventID()) {
		return
	}
	p.dispatcher.Dispatch(ctx, e)
}

func (p *EventPublisher) Publish(ctx context.Context, messageID string, eventType string, payload []byte) error {
	if !p.markSeen(messageID) {
		log.WithField("message_id", messageID).Debug("Skipping duplicate outbox message")
		return nil
	}

	e, err := event.Decode(eventType, payload)
	if err != nil {
		// Undecodable messages must not be retried forever as if transient;
		// unmark so the failure count advances in the relay.
		p.forget(messageID)
		return err
	}

	p.dispatcher.Dispatch(ctx, e)
	return nil
}

// markSeen records the id and reports whether it was new.
func (p *EventPublisher) markSeen(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, seen := p.processed[id]; seen {
		return false
	}
	if len(p.processed) >= dedupePruneThreshold {
		p.pruneLocked()
	}
	p.processed[id] = time.Now()
	return true
}

func (p *EventPublisher) pruneLocked() {
	cutoff := time.Now().Add(-dedupeTTL)
	for id, seenAt := range p.processed {
		if seenAt.Before(cutoff) {
			delete(p.processed, id)
		}
	}
}

func (p *EventPublisher) forget(messageID string) {
	p.mu.Lock()
	delete(p.processed, messageID)
	p.mu.Unlock()
}
