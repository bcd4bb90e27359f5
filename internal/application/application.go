package application

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/ImArvindRaj/virtual-event-platform/internal/config"
	"github.com/ImArvindRaj/virtual-event-platform/internal/database"
	"github.com/ImArvindRaj/virtual-event-platform/internal/handler"
	"github.com/ImArvindRaj/virtual-event-platform/internal/router"
	"github.com/ImArvindRaj/virtual-event-platform/internal/rtc"
	"github.com/ImArvindRaj/virtual-event-platform/internal/service"
	"github.com/ImArvindRaj/virtual-event-platform/internal/storage"
)

// API is the HTTP + WebSocket API application.
type API struct {
	cfg *config.Config
	srv *http.Server
	db  *gorm.DB
	rdb *redis.Client
	log *zap.Logger
}

// NewAPI creates the API application: validates config, runs migrations,
// opens the database and builds the router.
func NewAPI(cfg *config.Config) (*API, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := database.MigrateUp(cfg.DatabaseURL()); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	db, err := database.Open(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}

	logger, _ := zap.NewProduction()
	if cfg.AppEnv == "development" {
		logger, _ = zap.NewDevelopment()
	}

	var rdb *redis.Client
	var cache service.StatusCache
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		cache = service.NewRedisStatusCache(rdb, cfg.StatusCacheTTL, logger)
	}

	gatheringStore := storage.NewPgGatheringStore(db)
	sessionStore := storage.NewPgSessionStore(db)
	issuer := rtc.NewIssuer(cfg.RTCAppID, cfg.RTCAppJWT, cfg.RTCTokenTTL)
	hub := service.NewEventsHub(logger)

	sessionSvc := service.NewSessionService(gatheringStore, sessionStore, issuer, hub, cache, logger)
	gatheringSvc := service.NewGatheringService(gatheringStore, logger)

	r := router.New(
		cfg.AuthJWTSecret,
		handler.NewSessionHandler(sessionSvc),
		handler.NewGatheringHandler(gatheringSvc),
		handler.NewWatchHandler(hub, sessionSvc, logger),
		handler.NewHealthHandler(),
	)

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return &API{cfg: cfg, srv: srv, db: db, rdb: rdb, log: logger}, nil
}

// Run starts the HTTP server and blocks until ctx is cancelled, then shuts
// down gracefully.
func (a *API) Run(ctx context.Context) error {
	host := a.cfg.AppHost
	if host == "0.0.0.0" {
		host = "localhost"
	}
	base := "http://" + host + ":" + a.cfg.HTTPPort
	log.Printf("HTTP server listening on %s", a.srv.Addr)
	log.Printf("  Health:      %s/health", base)
	log.Printf("  Gatherings:  %s/api/gatherings", base)
	log.Printf("  Sessions:    %s/api/sessions", base)
	log.Printf("  Watch:       ws://%s:%s/ws/gatherings/:id/watch", host, a.cfg.HTTPPort)

	go func() {
		if err := a.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("http: %v", err)
		}
	}()

	<-ctx.Done()
	if a.rdb != nil {
		_ = a.rdb.Close()
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	defer func() { _ = a.log.Sync() }()
	if err := a.srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}
