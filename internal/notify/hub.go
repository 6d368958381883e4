package notify

import (
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

const AdminGroup = "admin"

func PlayerGroup(playerID string) string { return "player-" + playerID }
func GameGroup(gameID string) string     { return "game-" + gameID }

type Notification struct {
	Group   string      `json:"group"`
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
	SentAt  time.Time   `json:"sent_at"`
}

// Subscription is one connection's membership in a group. Closing it via
// Leave is idempotent.
type Subscription struct {
	group string
	ch    chan Notification

	once sync.Once
	hub  *Hub
}

func (s *Subscription) Receive() <-chan Notification { return s.ch }

func (s *Subscription) Leave() {
	s.once.Do(func() { s.hub.remove(s) })
}

// Hub keeps connection-group membership and fans notifications out to every
// member of a group. Delivery is fire-and-forget: a slow consumer's buffer
// overflowing drops the notification rather than blocking the sender.
type Hub struct {
	mu     sync.RWMutex
	groups map[string][]*Subscription
}

func NewHub() *Hub {
	return &Hub{groups: make(map[string][]*Subscription)}
}

func (h *Hub) JoinPlayerGroup(playerID string) *Subscription {
	return h.join(PlayerGroup(playerID))
}

func (h *Hub) JoinGameGroup(gameID string) *Subscription {
	return h.join(GameGroup(gameID))
}

func (h *Hub) JoinAdminGroup() *Subscription {
	return h.join(AdminGroup)
}

func (h *Hub) join(group string) *Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()

	sub := &Subscription{group: group, ch: make(chan Notification, 16), hub: h}
	h.groups[group] = append(h.groups[group], sub)
	return sub
}

func (h *Hub) remove(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()

	members := h.groups[sub.group]
	for i, s := range members {
		if s == sub {
			h.groups[sub.group] = append(members[:i], members[i+1:]...)
			break
		}
	}
	if len(h.groups[sub.group]) == 0 {
		delete(h.groups, sub.group)
	}
	close(sub.ch)
}

func (h *Hub) SendPlayerNotification(playerID string, typ string, payload interface{}) {
	h.send(PlayerGroup(playerID), typ, payload)
}

func (h *Hub) SendGameNotification(gameID string, typ string, payload interface{}) {
	h.send(GameGroup(gameID), typ, payload)
}

func (h *Hub) SendAdminNotification(typ string, payload interface{}) {
	h.send(AdminGroup, typ, payload)
}

func (h *Hub) send(group string, typ string, payload interface{}) {
	n := Notification{Group: group, Type: typ, Payload: payload, SentAt: time.Now()}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, sub := range h.groups[group] {
		select {
		case sub.ch <- n:
		default:
			log.WithFields(log.Fields{"group": group, "type": typ}).
				Warn("Dropping notification for slow subscriber")
		}
	}
}

// GroupSize reports current membership, mainly for tests and diagnostics.
func (h *Hub) GroupSize(group string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.groups[group])
}
