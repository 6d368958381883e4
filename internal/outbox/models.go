package outbox

import (
	"time"
)

// Message is a durable record of a domain event awaiting downstream
// delivery. It is written in the same transaction as the entity mutation it
// describes, so the event survives a crash between commit and dispatch.
type Message struct {
	MessageID     string     `gorm:"column:message_id;primaryKey;type:uuid"`
	EventType     string     `gorm:"column:event_type;type:varchar(100);not null"`
	Payload       []byte     `gorm:"column:payload;type:jsonb;not null"`
	Attempts      int        `gorm:"column:attempts;not null;default:0"`
	NextAttemptAt time.Time  `gorm:"column:next_attempt_at;not null;default:now()"`
	LastError     string     `gorm:"column:last_error;type:text"`
	CreatedAt     time.Time  `gorm:"column:created_at;not null;default:now()"`
	ProcessedAt   *time.Time `gorm:"column:processed_at"`
}

func (Message) TableName() string {
	return "outbox_messages"
}
