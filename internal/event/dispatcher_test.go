package event

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatchRunsHandlersInRegistrationOrder(t *testing.T) {
	d := NewDispatcher()
	var order []int
	d.Register(TypeBonusClaimed, func(ctx context.Context, e Event) error {
		order = append(order, 1)
		return nil
	})
	d.Register(TypeBonusClaimed, func(ctx context.Context, e Event) error {
		order = append(order, 2)
		return nil
	})

	d.Dispatch(context.Background(), BonusClaimed{Meta: NewMeta(), PlayerID: "p1"})
	require.Equal(t, []int{1, 2}, order)
}

func TestDispatchIsolatesHandlerFailures(t *testing.T) {
	d := NewDispatcher()
	ran := false
	d.Register(TypeBonusClaimed, func(ctx context.Context, e Event) error {
		return errors.New("boom")
	})
	d.Register(TypeBonusClaimed, func(ctx context.Context, e Event) error {
		panic("worse")
	})
	d.Register(TypeBonusClaimed, func(ctx context.Context, e Event) error {
		ran = true
		return nil
	})

	d.Dispatch(context.Background(), BonusClaimed{Meta: NewMeta()})
	require.True(t, ran, "sibling handler must run despite earlier failures")
}

func TestDispatchIgnoresUnregisteredTypes(t *testing.T) {
	d := NewDispatcher()
	d.Dispatch(context.Background(), PlayerRegistered{Meta: NewMeta(), PlayerID: "p1"})
}

func TestEventRoundTrip(t *testing.T) {
	original := BonusClaimed{
		Meta:      NewMeta(),
		PlayerID:  "player-1",
		BonusID:   "bonus-1",
		ClaimID:   "claim-1",
		ClaimedAt: time.Now().UTC().Truncate(time.Millisecond),
	}

	payload, err := Encode(original)
	require.NoError(t, err)

	decoded, err := Decode(TypeBonusClaimed, payload)
	require.NoError(t, err)

	claimed, ok := decoded.(BonusClaimed)
	require.True(t, ok)
	assert.Equal(t, original.EventID(), claimed.EventID())
	assert.Equal(t, original.PlayerID, claimed.PlayerID)
	assert.Equal(t, original.BonusID, claimed.BonusID)
	assert.True(t, original.ClaimedAt.Equal(claimed.ClaimedAt))
}

func TestDecodeUnknownType(t *testing.T) {
	_, err := Decode("no.such.event", []byte(`{}`))
	require.ErrorIs(t, err, ErrUnknownEventType)
}

func TestKnownTypesRegistry(t *testing.T) {
	types := KnownTypes()
	assert.Contains(t, types, TypeBonusClaimed)
	assert.Contains(t, types, TypeWageringCompleted)
	assert.Contains(t, types, TypeClaimStatusChanged)
	assert.Contains(t, types, TypePlayerRegistered)
}
