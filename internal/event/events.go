package event

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	TypeBonusClaimed       = "bonus.claimed"
	TypeWageringCompleted  = "bonus.wagering_completed"
	TypeClaimStatusChanged = "bonus.claim_status_changed"
	TypePlayerRegistered   = "player.registered"
)

var ErrUnknownEventType = errors.New("unknown event type")

// Event is an immutable fact about something that happened. Payloads are
// value structs and must never be mutated after construction.
type Event interface {
	EventID() string
	EventType() string
	OccurredAt() time.Time
}

// Meta carries the identity shared by every event.
type Meta struct {
	ID         string    `json:"id"`
	OccurredOn time.Time `json:"occurred_on"`
}

func NewMeta() Meta {
	return Meta{ID: uuid.New().String(), OccurredOn: time.Now().UTC()}
}

func (m Meta) EventID() string       { return m.ID }
func (m Meta) OccurredAt() time.Time { return m.OccurredOn }

type BonusClaimed struct {
	Meta
	PlayerID  string    `json:"player_id"`
	BonusID   string    `json:"bonus_id"`
	ClaimID   string    `json:"claim_id"`
	ClaimedAt time.Time `json:"claimed_at"`
}

func (BonusClaimed) EventType() string { return TypeBonusClaimed }

type WageringCompleted struct {
	Meta
	PlayerID string          `json:"player_id"`
	ClaimID  string          `json:"claim_id"`
	Wagered  decimal.Decimal `json:"wagered"`
}

func (WageringCompleted) EventType() string { return TypeWageringCompleted }

type ClaimStatusChanged struct {
	Meta
	PlayerID   string `json:"player_id"`
	ClaimID    string `json:"claim_id"`
	FromStatus string `json:"from_status"`
	ToStatus   string `json:"to_status"`
}

func (ClaimStatusChanged) EventType() string { return TypeClaimStatusChanged }

type PlayerRegistered struct {
	Meta
	PlayerID string `json:"player_id"`
	Segment  string `json:"segment"`
}

func (PlayerRegistered) EventType() string { return TypePlayerRegistered }

// registry maps an event type to a decoder so outbox payloads round-trip
// through the same schema used at creation time.
var registry = map[string]func([]byte) (Event, error){
	TypeBonusClaimed:       decodeInto[BonusClaimed],
	TypeWageringCompleted:  decodeInto[WageringCompleted],
	TypeClaimStatusChanged: decodeInto[ClaimStatusChanged],
	TypePlayerRegistered:   decodeInto[PlayerRegistered],
}

func decodeInto[E Event](payload []byte) (Event, error) {
	var e E
	if err := json.Unmarshal(payload, &e); err != nil {
		return nil, err
	}
	return e, nil
}

// Encode serializes an event for outbox storage.
func Encode(e Event) ([]byte, error) {
	return json.Marshal(e)
}

// Decode rebuilds a typed event from its serialized outbox form.
func Decode(eventType string, payload []byte) (Event, error) {
	decode, ok := registry[eventType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEventType, eventType)
	}
	return decode(payload)
}

// KnownTypes lists every registered event type, for startup self-checks.
func KnownTypes() []string {
	types := make([]string, 0, len(registry))
	for t := range registry {
		types = append(types, t)
	}
	return types
}
