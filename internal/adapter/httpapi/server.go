// Package httpapi exposes the portfolio over a JSON HTTP API.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/kmehta/nivesh-backend/internal/adapter/auth"
)

// Server is the HTTP transport for the portfolio service.
type Server struct {
	router   *chi.Mux
	server   *http.Server
	log      zerolog.Logger
	auth     *auth.Service
	sessions *SessionRegistry
}

// Config holds server wiring.
type Config struct {
	Addr     string
	Log      zerolog.Logger
	Auth     *auth.Service
	Sessions *SessionRegistry
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	s := &Server{
		router:   chi.NewRouter(),
		log:      cfg.Log.With().Str("component", "server").Logger(),
		auth:     cfg.Auth,
		sessions: cfg.Sessions,
	}

	s.setupMiddleware()
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(middleware.Timeout(60 * time.Second))

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth/otp", func(r chi.Router) {
			r.Post("/request", s.handleOTPRequest)
			r.Post("/verify", s.handleOTPVerify)
		})

		// Everything below requires a session token
		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			r.Route("/trades", func(r chi.Router) {
				r.Get("/", s.handleListTrades)
				r.Post("/", s.handleAddTrade)
				r.Patch("/{id}", s.handleUpdateTrade)
				r.Delete("/{id}", s.handleDeleteTrade)
			})

			r.Get("/holdings", s.handleListHoldings)

			r.Route("/buckets", func(r chi.Router) {
				r.Get("/", s.handleListBuckets)
				r.Put("/{name}", s.handleUpsertBucket)
			})

			r.Post("/prices/refresh", s.handleRefreshPrices)
			r.Get("/dashboard", s.handleDashboard)
		})
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}
