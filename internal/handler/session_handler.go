package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ImArvindRaj/virtual-event-platform/internal/middleware"
	"github.com/ImArvindRaj/virtual-event-platform/internal/model"
)

// SessionAPI is the coordinator surface the handler depends on.
type SessionAPI interface {
	Status(ctx context.Context, gatheringID, callerID string) (*model.SessionStatusResponse, error)
	Start(ctx context.Context, gatheringID, callerID string) (*model.StartSessionResponse, error)
	Token(ctx context.Context, gatheringID, callerID string) (*model.TokenResponse, error)
	End(ctx context.Context, sessionID, callerID string) (*model.EndSessionResponse, error)
	Participants(ctx context.Context, sessionID string) (*model.SessionParticipantsResponse, error)
}

// SessionHandler handles the REST API for session admission.
type SessionHandler struct {
	svc SessionAPI
}

// NewSessionHandler creates a session handler.
func NewSessionHandler(svc SessionAPI) *SessionHandler {
	return &SessionHandler{svc: svc}
}

// Status godoc
// GET /api/sessions/:id/status (id is a gathering id)
func (h *SessionHandler) Status(c *gin.Context) {
	gatheringID := c.Param("id")
	if gatheringID == "" {
		badRequest(c, "gathering id required")
		return
	}
	callerID, _ := middleware.CallerID(c)
	resp, err := h.svc.Status(c.Request.Context(), gatheringID, callerID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Start godoc
// POST /api/sessions/start
func (h *SessionHandler) Start(c *gin.Context) {
	var req model.StartSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "gathering_id required")
		return
	}
	callerID, _ := middleware.CallerID(c)
	resp, err := h.svc.Start(c.Request.Context(), req.GatheringID, callerID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Token godoc
// GET /api/sessions/:id/token (id is a gathering id)
func (h *SessionHandler) Token(c *gin.Context) {
	gatheringID := c.Param("id")
	if gatheringID == "" {
		badRequest(c, "gathering id required")
		return
	}
	callerID, _ := middleware.CallerID(c)
	resp, err := h.svc.Token(c.Request.Context(), gatheringID, callerID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// End godoc
// PUT /api/sessions/:id/end
func (h *SessionHandler) End(c *gin.Context) {
	sessionID := c.Param("id")
	if sessionID == "" {
		badRequest(c, "session id required")
		return
	}
	callerID, _ := middleware.CallerID(c)
	resp, err := h.svc.End(c.Request.Context(), sessionID, callerID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Participants godoc
// GET /api/sessions/:id/participants
func (h *SessionHandler) Participants(c *gin.Context) {
	sessionID := c.Param("id")
	if sessionID == "" {
		badRequest(c, "session id required")
		return
	}
	resp, err := h.svc.Participants(c.Request.Context(), sessionID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
