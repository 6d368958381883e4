package outbox

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	backoffBase = time.Second
	backoffCap  = 5 * time.Minute
)

// Relay periodically claims unprocessed outbox messages and republishes
// them, oldest first. Publishing failures leave a message unprocessed with
// an exponential backoff until the dead-letter cap is reached.
type Relay struct {
	db        *gorm.DB
	repo      Repository
	publisher Publisher

	PollInterval time.Duration
	BatchSize    int
	MaxAttempts  int
	Retention    time.Duration
}

func NewRelay(db *gorm.DB, repo Repository, publisher Publisher) *Relay {
	return &Relay{
		db:           db,
		repo:         repo,
		publisher:    publisher,
		PollInterval: time.Second,
		BatchSize:    10,
		MaxAttempts:  10,
		Retention:    7 * 24 * time.Hour,
	}
}

// Start blocks until ctx is cancelled. Run it on its own goroutine.
func (r *Relay) Start(ctx context.Context) {
	ticker := time.NewTicker(r.PollInterval)
	defer ticker.Stop()

	// The retention sweep runs far less often than the relay itself.
	sweep := time.NewTicker(time.Hour)
	defer sweep.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.ProcessBatch(ctx); err != nil {
				log.WithError(err).Error("Outbox relay cycle failed")
			}
		case <-sweep.C:
			purged, err := r.repo.PurgeProcessed(ctx, time.Now().Add(-r.Retention))
			if err != nil {
				log.WithError(err).Error("Outbox retention sweep failed")
			} else if purged > 0 {
				log.WithField("purged", purged).Info("Outbox retention sweep removed processed messages")
			}
			if dead, err := r.repo.CountDeadLettered(ctx, r.MaxAttempts); err == nil && dead > 0 {
				log.WithField("count", dead).Warn("Outbox messages dead-lettered, operator action needed")
			}
		}
	}
}

// ProcessBatch claims one batch under row locks and publishes each message.
// Failures are recorded outside the claiming transaction so the backoff
// survives the rollback of nothing-to-commit cycles.
func (r *Relay) ProcessBatch(ctx context.Context) error {
	var failed []relayFailure

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		msgs, err := r.repo.ListUnprocessed(ctx, tx, r.BatchSize, r.MaxAttempts)
		if err != nil {
			return err
		}
		for _, msg := range msgs {
			if err := r.publisher.Publish(ctx, msg.MessageID, msg.EventType, msg.Payload); err != nil {
				failed = append(failed, relayFailure{msg: msg, cause: err})
				continue
			}
			claimed, err := r.repo.MarkProcessed(ctx, tx, msg.MessageID)
			if err != nil {
				return err
			}
			if !claimed {
				log.WithField("message_id", msg.MessageID).Warn("Outbox message already claimed by another worker")
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	for _, f := range failed {
		next := time.Now().Add(Backoff(f.msg.Attempts))
		log.WithError(f.cause).WithFields(log.Fields{
			"message_id": f.msg.MessageID,
			"event_type": f.msg.EventType,
			"attempts":   f.msg.Attempts + 1,
		}).Error("Failed to relay outbox message")
		if err := r.repo.RecordFailure(ctx, f.msg.MessageID, f.cause, next); err != nil {
			log.WithError(err).WithField("message_id", f.msg.MessageID).Error("Failed to record relay failure")
		}
	}
	return nil
}

type relayFailure struct {
	msg   Message
	cause error
}

// Backoff returns the delay before the next attempt: 1s, 2s, 4s, ... capped
// at five minutes.
func Backoff(attempts int) time.Duration {
	d := backoffBase
	for i := 0; i < attempts; i++ {
		d *= 2
		if d >= backoffCap {
			return backoffCap
		}
	}
	return d
}
