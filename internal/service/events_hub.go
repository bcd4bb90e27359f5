package service

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/ImArvindRaj/virtual-event-platform/internal/model"
)

// Watcher is a WebSocket connection waiting on a gathering's session events.
type Watcher struct {
	GatheringID string
	UserID      string
	Conn        *websocket.Conn
	Send        chan []byte
}

// EventsHub fans session lifecycle events out to waiting-room watchers. It is
// the push-channel complement to status polling: a waiting client may hold a
// watch socket instead of polling, the coordinator contract is the same.
type EventsHub struct {
	mu       sync.RWMutex
	watchers map[string]map[*Watcher]struct{} // gatheringID -> set of watchers
	upgrader websocket.Upgrader
	log      *zap.Logger
}

// NewEventsHub creates an events hub.
func NewEventsHub(log *zap.Logger) *EventsHub {
	return &EventsHub{
		watchers: make(map[string]map[*Watcher]struct{}),
		log:      log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Allow all origins for dev; in prod set CheckOrigin.
		},
	}
}

// Upgrader returns the WebSocket upgrader for HTTP handlers.
func (h *EventsHub) Upgrader() *websocket.Upgrader { return &h.upgrader }

// Register adds a watcher for a gathering and returns a cleanup function.
func (h *EventsHub) Register(gatheringID, userID string, conn *websocket.Conn) (*Watcher, func()) {
	w := &Watcher{
		GatheringID: gatheringID,
		UserID:      userID,
		Conn:        conn,
		Send:        make(chan []byte, 16),
	}
	h.mu.Lock()
	if h.watchers[gatheringID] == nil {
		h.watchers[gatheringID] = make(map[*Watcher]struct{})
	}
	h.watchers[gatheringID][w] = struct{}{}
	h.mu.Unlock()

	h.log.Info("watcher registered",
		zap.String("gathering_id", gatheringID),
		zap.String("user_id", userID))

	return w, func() { h.unregister(gatheringID, w) }
}

func (h *EventsHub) unregister(gatheringID string, w *Watcher) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if m, ok := h.watchers[gatheringID]; ok {
		if _, present := m[w]; !present {
			return
		}
		delete(m, w)
		if len(m) == 0 {
			delete(h.watchers, gatheringID)
		}
	}
	close(w.Send)
	h.log.Info("watcher unregistered",
		zap.String("gathering_id", gatheringID),
		zap.String("user_id", w.UserID))
}

// SessionStarted implements SessionNotifier.
func (h *EventsHub) SessionStarted(gatheringID, sessionID string) {
	h.broadcast(model.SessionEvent{Event: "session_started", GatheringID: gatheringID, SessionID: sessionID})
}

// SessionEnded implements SessionNotifier.
func (h *EventsHub) SessionEnded(gatheringID, sessionID string) {
	h.broadcast(model.SessionEvent{Event: "session_ended", GatheringID: gatheringID, SessionID: sessionID})
}

func (h *EventsHub) broadcast(ev model.SessionEvent) {
	raw, err := json.Marshal(ev)
	if err != nil {
		return
	}
	// unregister closes Send under the write lock, so holding the read lock
	// across the sends keeps send and close mutually exclusive. Sends are
	// non-blocking; the lock is never held waiting on a full buffer.
	h.mu.RLock()
	defer h.mu.RUnlock()
	for w := range h.watchers[ev.GatheringID] {
		select {
		case w.Send <- raw:
		default:
			h.log.Warn("watcher send buffer full", zap.String("user_id", w.UserID))
		}
	}
}

// WatcherCount returns the number of watchers for a gathering (for debugging).
func (h *EventsHub) WatcherCount(gatheringID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.watchers[gatheringID])
}
