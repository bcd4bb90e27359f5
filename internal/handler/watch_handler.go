package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/ImArvindRaj/virtual-event-platform/internal/middleware"
	"github.com/ImArvindRaj/virtual-event-platform/internal/service"
)

// WatchHandler serves the session-events WebSocket: waiting-room clients that
// prefer a push channel over polling hold this socket and receive
// session_started / session_ended events for one gathering.
type WatchHandler struct {
	hub    *service.EventsHub
	sess   *service.SessionService
	logger *zap.Logger
}

// NewWatchHandler creates the watch WebSocket handler.
func NewWatchHandler(hub *service.EventsHub, sess *service.SessionService, logger *zap.Logger) *WatchHandler {
	return &WatchHandler{hub: hub, sess: sess, logger: logger}
}

// ServeWS upgrades the request and streams session events.
// Path: /ws/gatherings/:id/watch
// When the gathering already has a live session the connecting user is
// recorded as a participant join.
func (h *WatchHandler) ServeWS(c *gin.Context) {
	gatheringID := c.Param("id")
	if gatheringID == "" {
		badRequest(c, "gathering id required")
		return
	}
	callerID, _ := middleware.CallerID(c)

	st, err := h.sess.Status(c.Request.Context(), gatheringID, callerID)
	if err != nil {
		respondError(c, err)
		return
	}

	conn, err := h.hub.Upgrader().Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	watcher, cleanup := h.hub.Register(gatheringID, callerID, conn)
	defer cleanup()

	if st.SessionStarted {
		if err := h.sess.Join(c.Request.Context(), st.SessionID, callerID); err != nil {
			h.logger.Warn("record participant join failed",
				zap.String("session_id", st.SessionID), zap.Error(err))
		}
	}

	go h.writePump(watcher)
	h.readPump(watcher)
}

// readPump drains the connection so pings and close frames are processed; the
// watch channel is server-to-client only.
func (h *WatchHandler) readPump(w *service.Watcher) {
	defer func() {
		_ = w.Conn.Close()
	}()
	for {
		if _, _, err := w.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Debug("watch read error", zap.Error(err))
			}
			return
		}
	}
}

func (h *WatchHandler) writePump(w *service.Watcher) {
	defer func() {
		_ = w.Conn.Close()
	}()
	for data := range w.Send {
		if err := w.Conn.WriteMessage(websocket.TextMessage, data); err != nil {
			return
		}
	}
}
