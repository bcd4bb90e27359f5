package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ImArvindRaj/virtual-event-platform/internal/handler"
	"github.com/ImArvindRaj/virtual-event-platform/internal/middleware"
	"github.com/ImArvindRaj/virtual-event-platform/pkg/constants"
)

// New builds the HTTP router. Every /api and /ws route runs behind bearer
// auth; health probes stay open.
func New(
	authSecret string,
	sessions *handler.SessionHandler,
	gatherings *handler.GatheringHandler,
	watch *handler.WatchHandler,
	health *handler.HealthHandler,
) http.Handler {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET(constants.PathHealth, health.Health)
	r.GET(constants.PathReady, health.Ready)

	auth := middleware.RequireAuth(authSecret)

	api := r.Group("/api", auth)
	{
		s := api.Group("/sessions")
		{
			// :id is a gathering id for status/token and a session id for
			// end/participants (gin requires one wildcard name per segment).
			s.GET("/:id/status", sessions.Status)
			s.GET("/:id/token", sessions.Token)
			s.POST("/start", sessions.Start)
			s.PUT("/:id/end", sessions.End)
			s.GET("/:id/participants", sessions.Participants)
		}

		g := api.Group("/gatherings")
		{
			g.POST("", gatherings.Create)
			g.GET("", gatherings.List)
			g.GET("/:id", gatherings.Get)
			g.POST("/:id/join", gatherings.Join)
		}
	}

	// WebSocket: /ws/gatherings/:id/watch
	r.GET("/ws/gatherings/:id/watch", auth, watch.ServeWS)

	return r
}
