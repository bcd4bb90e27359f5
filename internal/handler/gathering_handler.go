package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ImArvindRaj/virtual-event-platform/internal/middleware"
	"github.com/ImArvindRaj/virtual-event-platform/internal/model"
)

// GatheringAPI is the gathering surface the handler depends on.
type GatheringAPI interface {
	Create(ctx context.Context, hostID string, req *model.CreateGatheringRequest) (*model.GatheringResponse, error)
	Get(ctx context.Context, id string) (*model.GatheringResponse, error)
	List(ctx context.Context) ([]model.GatheringResponse, error)
	Join(ctx context.Context, gatheringID, userID string) (*model.GatheringResponse, error)
}

// GatheringHandler handles the minimal gathering REST surface.
type GatheringHandler struct {
	svc GatheringAPI
}

// NewGatheringHandler creates a gathering handler.
func NewGatheringHandler(svc GatheringAPI) *GatheringHandler {
	return &GatheringHandler{svc: svc}
}

// Create godoc
// POST /api/gatherings
func (h *GatheringHandler) Create(c *gin.Context) {
	var req model.CreateGatheringRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "title and scheduled_at are required")
		return
	}
	callerID, _ := middleware.CallerID(c)
	resp, err := h.svc.Create(c.Request.Context(), callerID, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Get godoc
// GET /api/gatherings/:id
func (h *GatheringHandler) Get(c *gin.Context) {
	resp, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// List godoc
// GET /api/gatherings
func (h *GatheringHandler) List(c *gin.Context) {
	resp, err := h.svc.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(resp), "data": resp})
}

// Join godoc
// POST /api/gatherings/:id/join
func (h *GatheringHandler) Join(c *gin.Context) {
	callerID, _ := middleware.CallerID(c)
	resp, err := h.svc.Join(c.Request.Context(), c.Param("id"), callerID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
