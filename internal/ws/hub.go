// Package ws holds the live-connection side of the system: a registry of
// authenticated websocket clients grouped by user, and the relay that routes
// AI worker results from the broadcast channel to those groups.
package ws

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"

	"github.com/Chenghao-Wen/NoteTree/internal/metrics"
	"github.com/Chenghao-Wen/NoteTree/internal/models"
)

// eventFrame is the wire shape pushed to clients.
type eventFrame struct {
	Event models.EventKind `json:"event"`
	Data  json.RawMessage  `json:"data"`
}

// Hub tracks live connections grouped by user identity. Its lifetime is the
// process lifetime; connections do not survive a restart.
type Hub struct {
	mu     sync.RWMutex
	groups map[string]map[*Client]struct{}
	logger zerolog.Logger
}

// NewHub creates an empty hub.
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		groups: make(map[string]map[*Client]struct{}),
		logger: logger.With().Str("component", "hub").Logger(),
	}
}

func groupKey(userID string) string {
	return "user:" + userID
}

func (h *Hub) add(c *Client) {
	key := groupKey(c.userID)

	h.mu.Lock()
	group, ok := h.groups[key]
	if !ok {
		group = make(map[*Client]struct{})
		h.groups[key] = group
	}
	group[c] = struct{}{}
	h.mu.Unlock()

	metrics.ConnectionsActive.Inc()
}

// remove takes the client out of its group and closes its send channel in
// one critical section. Closing only under the write lock is what lets
// Dispatch send under the read lock without racing a concurrent disconnect.
func (h *Hub) remove(c *Client) {
	key := groupKey(c.userID)

	h.mu.Lock()
	group, ok := h.groups[key]
	if ok {
		if _, member := group[c]; member {
			delete(group, c)
			metrics.ConnectionsActive.Dec()
		}
		if len(group) == 0 {
			delete(h.groups, key)
		}
	}
	close(c.send)
	h.mu.Unlock()
}

// GroupSize reports how many live connections a user currently has.
func (h *Hub) GroupSize(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.groups[groupKey(userID)])
}

// Dispatch sends the named event to every live connection of the user. A
// user with no connections is a silent no-op; missed notifications are not
// replayed. A client whose send buffer is full is dropped rather than
// blocking the dispatch.
func (h *Hub) Dispatch(userID string, event models.EventKind, data json.RawMessage) {
	frame, err := json.Marshal(eventFrame{Event: event, Data: data})
	if err != nil {
		h.logger.Error().Err(err).Str("event", string(event)).Msg("failed to encode event frame")
		return
	}

	// Send while holding the read lock: a client still in its group cannot
	// have a closed send channel, since remove() closes it under the write
	// lock in the same critical section that deletes the membership. Slow
	// clients are collected and dropped after the lock is released, because
	// close() needs the write lock.
	h.mu.RLock()
	var slow []*Client
	for c := range h.groups[groupKey(userID)] {
		select {
		case c.send <- frame:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.logger.Warn().Str("userId", userID).Msg("client send buffer full, dropping connection")
		c.close()
	}
}
