// Package api exposes the analyzer over HTTP and a live signal websocket.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"signal-analyzer/internal/analyzer"
	"signal-analyzer/internal/database"
)

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host           string
	Port           int
	ProductionMode bool
	AllowOrigins   []string
}

// HealthChecker reports backing-store health for the health endpoint
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Server is the HTTP API server
type Server struct {
	router     *gin.Engine
	httpServer *http.Server
	analyzer   *analyzer.Service
	repo       *database.Repository
	health     HealthChecker
	hub        *WSHub
	config     ServerConfig
	logger     zerolog.Logger
}

// NewServer wires routes over the analyzer service. repo and health may be
// nil when persistence is disabled.
func NewServer(cfg ServerConfig, svc *analyzer.Service, repo *database.Repository, health HealthChecker, logger zerolog.Logger) *Server {
	if cfg.ProductionMode {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type"}
	router.Use(cors.New(corsConfig))

	s := &Server{
		router:   router,
		analyzer: svc,
		repo:     repo,
		health:   health,
		hub:      NewWSHub(logger),
		config:   cfg,
		logger:   logger.With().Str("component", "api").Logger(),
	}
	s.setupRoutes()
	go s.hub.Run()

	return s
}

// Hub exposes the websocket hub for the signal worker
func (s *Server) Hub() *WSHub {
	return s.hub
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	v1 := s.router.Group("/api/v1")
	{
		v1.POST("/analyze", s.handleAnalyze)
		v1.POST("/backtest", s.handleBacktest)
		v1.GET("/strategies", s.handleStrategies)
		v1.GET("/reports", s.handleListReports)
		v1.POST("/subscriptions", s.handleCreateSubscription)
		v1.GET("/subscriptions", s.handleListSubscriptions)
		v1.GET("/signals/live", s.handleWebSocket)
	}
}

// Start runs the HTTP server until the context is canceled
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return s.Shutdown()
	}
}

// Shutdown drains in-flight requests
func (s *Server) Shutdown() error {
	if s.httpServer == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.logger.Info().Msg("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}
