package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/opensource-finance/kestrel/internal/config"
	"github.com/opensource-finance/kestrel/internal/domain"
	"github.com/opensource-finance/kestrel/internal/pipeline"
	"github.com/opensource-finance/kestrel/internal/velocity"
)

// Server represents the HTTP API server.
type Server struct {
	router  *chi.Mux
	handler *Handler
	server  *http.Server
	config  domain.ServerConfig
}

// NewServer creates a new API server.
func NewServer(cfg domain.ServerConfig, store *config.Store, pipe *pipeline.Pipeline, velo *velocity.Service, repo domain.Repository, cache domain.Cache, bus domain.EventBus, version string) *Server {
	handler := NewHandler(store, pipe, velo, repo, cache, bus, version)
	router := chi.NewRouter()

	// Global middleware stack
	router.Use(CORSMiddleware)         // CORS for browser clients
	router.Use(RecoverMiddleware)      // Recover from panics
	router.Use(TracingMiddleware)      // OpenTelemetry tracing
	router.Use(LoggingMiddleware)      // Request logging
	router.Use(middleware.RealIP)      // Extract real IP
	router.Use(middleware.Compress(5)) // Gzip compression

	// Health endpoints
	router.Get("/health", handler.Health)
	router.Get("/ready", handler.Ready)

	// Checkout scoring
	router.Post("/score", handler.Score)
	router.Post("/recommend", handler.Recommend)
	router.Post("/decide", handler.Decide)

	// Result retrieval
	router.Get("/scores/{id}", handler.GetScore)
	router.Get("/decisions/{id}", handler.GetDecision)

	// Customer wallets and history
	router.Get("/customers/{id}/cards", handler.ListCards)
	router.Put("/customers/{id}/cards", handler.ReplaceWallet)
	router.Post("/customers/{id}/cards", handler.SaveCard)
	router.Delete("/customers/{id}/cards/{cardId}", handler.DeleteCard)
	router.Get("/customers/{id}/decisions", handler.ListDecisions)

	// Webhook endpoint management
	router.Get("/webhooks", handler.ListWebhooks)
	router.Post("/webhooks", handler.CreateWebhook)
	router.Get("/webhooks/{id}", handler.GetWebhook)
	router.Delete("/webhooks/{id}", handler.DeleteWebhook)
	router.Get("/webhooks/{id}/deliveries", handler.ListWebhookDeliveries)

	// Scoring table management
	router.Get("/config", handler.GetConfig)
	router.Post("/config/reload", handler.ReloadConfig)

	return &Server{
		router:  router,
		handler: handler,
		config:  cfg,
	}
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  time.Duration(s.config.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(s.config.WriteTimeout) * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the Chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Handler returns the handler for testing.
func (s *Server) Handler() *Handler {
	return s.handler
}
