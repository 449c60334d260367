// Package api exposes the investigation workbench over HTTP. One mutating
// endpoint per workbench operation, each replying with the post-operation
// snapshot; read endpoints project slices of the same snapshot.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/opensource-finance/mulecatcher/internal/domain"
)

// Server is the HTTP server for the workbench API.
type Server struct {
	router  *chi.Mux
	handler *Handler
	server  *http.Server
	config  domain.ServerConfig
}

// NewServer creates an HTTP server with all routes mounted.
func NewServer(cfg domain.ServerConfig, handler *Handler) *Server {
	r := chi.NewRouter()

	r.Use(CORSMiddleware)
	r.Use(RecoverMiddleware)
	r.Use(TracingMiddleware)
	r.Use(LoggingMiddleware)
	r.Use(middleware.RealIP)
	r.Use(middleware.Compress(5))

	r.Get("/health", handler.Health)
	r.Get("/ready", handler.Ready)

	r.Route("/case", func(r chi.Router) {
		r.Get("/", handler.GetSnapshot)
		r.Post("/file", handler.StageFile)
		r.Delete("/file", handler.UnstageFile)
		r.Post("/validate", handler.ValidateFile)
		r.Post("/analyze", handler.RunAnalysis)
		r.Post("/reset", handler.ResetAnalysis)
		r.Post("/sample", handler.LoadSampleData)
		r.Get("/history", handler.GetHistory)
	})

	r.Get("/accounts", handler.GetAccounts)
	r.Get("/rings", handler.GetRings)
	r.Get("/edges", handler.GetEdges)

	r.Route("/interventions", func(r chi.Router) {
		r.Get("/", handler.GetInterventions)
		r.Post("/", handler.AddIntervention)
		r.Delete("/{index}", handler.RemoveIntervention)
		r.Post("/preview", handler.PreviewIntervention)
		r.Post("/apply", handler.ApplyIntervention)
		r.Post("/reset", handler.ResetIntervention)
	})

	r.Route("/selection", func(r chi.Router) {
		r.Get("/", handler.GetSelection)
		r.Put("/account", handler.SelectAccount)
		r.Put("/ring", handler.SelectRing)
		r.Put("/ring-focus", handler.SetRingFocus)
		r.Put("/why-panel", handler.OpenWhyPanel)
		r.Delete("/why-panel", handler.CloseWhyPanel)
	})

	r.Route("/rules", func(r chi.Router) {
		r.Get("/", handler.ListRules)
		r.Post("/", handler.CreateRule)
		r.Post("/reload", handler.ReloadRules)
	})

	return &Server{
		router:  r,
		handler: handler,
		config:  cfg,
	}
}

// Start begins listening for HTTP requests. Blocks until the server stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  time.Duration(s.config.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(s.config.WriteTimeout) * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	slog.Info("starting http server", "addr", addr)

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	slog.Info("shutting down http server")
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router, mainly for tests.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Handler returns the underlying API handler.
func (s *Server) Handler() *Handler {
	return s.handler
}
