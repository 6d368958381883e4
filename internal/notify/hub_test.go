package notify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receiveOne(t *testing.T, sub *Subscription) Notification {
	t.Helper()
	select {
	case n := <-sub.Receive():
		return n
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for notification")
		return Notification{}
	}
}

func TestPlayerNotificationDeliversToJoinedGroupOnly(t *testing.T) {
	hub := NewHub()
	sub42 := hub.JoinPlayerGroup("42")
	sub43 := hub.JoinPlayerGroup("43")
	defer sub42.Leave()
	defer sub43.Leave()

	hub.SendPlayerNotification("42", "bonus_claimed", map[string]string{"claim": "c1"})

	n := receiveOne(t, sub42)
	assert.Equal(t, "bonus_claimed", n.Type)
	assert.Equal(t, PlayerGroup("42"), n.Group)

	select {
	case n := <-sub43.Receive():
		t.Fatalf("player-43 must not receive player-42 notifications, got %+v", n)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestAdminGroupFanOut(t *testing.T) {
	hub := NewHub()
	a := hub.JoinAdminGroup()
	b := hub.JoinAdminGroup()
	defer a.Leave()
	defer b.Leave()

	hub.SendAdminNotification("player_registered", nil)

	assert.Equal(t, "player_registered", receiveOne(t, a).Type)
	assert.Equal(t, "player_registered", receiveOne(t, b).Type)
}

func TestLeaveIsIdempotentAndCleansMembership(t *testing.T) {
	hub := NewHub()
	sub := hub.JoinGameGroup("g1")
	require.Equal(t, 1, hub.GroupSize(GameGroup("g1")))

	sub.Leave()
	sub.Leave()
	assert.Equal(t, 0, hub.GroupSize(GameGroup("g1")))

	// Sending to an empty group is a no-op.
	hub.SendGameNotification("g1", "noop", nil)
}

func TestSlowSubscriberDoesNotBlockSender(t *testing.T) {
	hub := NewHub()
	sub := hub.JoinPlayerGroup("slow")
	defer sub.Leave()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			hub.SendPlayerNotification("slow", "tick", i)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sender blocked on a slow subscriber")
	}
}

func TestConcurrentJoinLeave(t *testing.T) {
	hub := NewHub()
	done := make(chan struct{})
	for i := 0; i < 10; i++ {
		go func() {
			for j := 0; j < 100; j++ {
				sub := hub.JoinAdminGroup()
				hub.SendAdminNotification("tick", j)
				sub.Leave()
			}
			done <- struct{}{}
		}()
	}
	for i := 0; i < 10; i++ {
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Fatal("concurrent join/leave deadlocked")
		}
	}
}
