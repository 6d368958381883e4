package outbox

import (
	"context"
	"errors"
	"fmt"
	"time"

	"casino_backoffice/internal/event"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrMessageNotFound = errors.New("outbox message not found")

type Repository interface {
	Enqueue(ctx context.Context, tx *gorm.DB, e event.Event) error
	ListUnprocessed(ctx context.Context, tx *gorm.DB, limit int, maxAttempts int) ([]Message, error)
	MarkProcessed(ctx context.Context, tx *gorm.DB, messageID string) (bool, error)
	RecordFailure(ctx context.Context, messageID string, cause error, nextAttempt time.Time) error
	PurgeProcessed(ctx context.Context, olderThan time.Time) (int64, error)
	CountDeadLettered(ctx context.Context, maxAttempts int) (int64, error)
}

type RepositoryImpl struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *RepositoryImpl {
	return &RepositoryImpl{db: db}
}

// Enqueue serializes the event and inserts it inside the caller's
// transaction. The message id is the event id, so downstream consumers can
// dedupe replays.
func (r *RepositoryImpl) Enqueue(ctx context.Context, tx *gorm.DB, e event.Event) error {
	payload, err := event.Encode(e)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	db := r.db
	if tx != nil {
		db = tx
	}
	msg := Message{
		MessageID:     e.EventID(),
		EventType:     e.EventType(),
		Payload:       payload,
		NextAttemptAt: time.Now(),
		CreatedAt:     time.Now(),
	}
	if err := db.WithContext(ctx).Create(&msg).Error; err != nil {
		return fmt.Errorf("failed to enqueue outbox message: %w", err)
	}
	return nil
}

// ListUnprocessed fetches messages due for relay, oldest first. When tx is a
// transaction the rows are locked with SKIP LOCKED so concurrent relay
// workers never pick the same batch. Messages at or beyond maxAttempts are
// dead-lettered and left for operators.
func (r *RepositoryImpl) ListUnprocessed(ctx context.Context, tx *gorm.DB, limit int, maxAttempts int) ([]Message, error) {
	db := r.db
	if tx != nil {
		db = tx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"})
	}
	var msgs []Message
	err := db.WithContext(ctx).
		Where("processed_at IS NULL AND next_attempt_at <= ? AND attempts < ?", time.Now(), maxAttempts).
		Order("created_at ASC").
		Limit(limit).
		Find(&msgs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list unprocessed messages: %w", err)
	}
	return msgs, nil
}

// MarkProcessed sets processed_at, guarded so the transition from null
// happens at most once. Returns false when another worker already claimed
// the message.
func (r *RepositoryImpl) MarkProcessed(ctx context.Context, tx *gorm.DB, messageID string) (bool, error) {
	db := r.db
	if tx != nil {
		db = tx
	}
	result := db.WithContext(ctx).Model(&Message{}).
		Where("message_id = ? AND processed_at IS NULL", messageID).
		Update("processed_at", time.Now())
	if result.Error != nil {
		return false, fmt.Errorf("failed to mark message processed: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (r *RepositoryImpl) RecordFailure(ctx context.Context, messageID string, cause error, nextAttempt time.Time) error {
	result := r.db.WithContext(ctx).Model(&Message{}).
		Where("message_id = ? AND processed_at IS NULL", messageID).
		Updates(map[string]interface{}{
			"attempts":        gorm.Expr("attempts + 1"),
			"next_attempt_at": nextAttempt,
			"last_error":      cause.Error(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to record relay failure: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrMessageNotFound
	}
	return nil
}

// PurgeProcessed removes processed messages older than the cutoff. The relay
// never deletes rows itself; this is the retention sweep.
func (r *RepositoryImpl) PurgeProcessed(ctx context.Context, olderThan time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("processed_at IS NOT NULL AND processed_at < ?", olderThan).
		Delete(&Message{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to purge processed messages: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func (r *RepositoryImpl) CountDeadLettered(ctx context.Context, maxAttempts int) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&Message{}).
		Where("processed_at IS NULL AND attempts >= ?", maxAttempts).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count dead-lettered messages: %w", err)
	}
	return count, nil
}
