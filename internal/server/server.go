// Package server exposes the assistant and the data layer over HTTP.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/stockbro/stockbro/internal/assistant"
	"github.com/stockbro/stockbro/internal/observ"
	"github.com/stockbro/stockbro/internal/ratelimit"
	"github.com/stockbro/stockbro/internal/store"
)

// Config holds server configuration.
type Config struct {
	Addr    string
	DevMode bool
}

// Deps are the collaborators the HTTP layer fronts. Market and News are the
// same narrow interfaces the assistant consumes, so tests can swap fakes in.
type Deps struct {
	Assistant *assistant.Service
	Market    assistant.MarketData
	News      assistant.NewsProvider
	Store     *store.Store
	Limits    *ratelimit.Registry
	Log       zerolog.Logger
}

// Server is the HTTP front end.
type Server struct {
	router    *chi.Mux
	server    *http.Server
	log       zerolog.Logger
	assistant *assistant.Service
	market    assistant.MarketData
	news      assistant.NewsProvider
	store     *store.Store
	limits    *ratelimit.Registry
}

// New builds the server and its route table.
func New(cfg Config, deps Deps) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		log:       deps.Log.With().Str("component", "server").Logger(),
		assistant: deps.Assistant,
		market:    deps.Market,
		news:      deps.News,
		store:     deps.Store,
		limits:    deps.Limits,
	}

	s.setupMiddleware(cfg.DevMode)
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

func (s *Server) setupMiddleware(devMode bool) {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(middleware.Timeout(60 * time.Second))

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	if !devMode {
		s.router.Use(middleware.Compress(5))
	}
}

func (s *Server) setupRoutes() {
	s.router.Get("/healthz", observ.Health().ServeHTTP)
	s.router.Get("/metrics", observ.Handler().ServeHTTP)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Get("/health", observ.HealthHandler().ServeHTTP)

		r.Route("/stocks", func(r chi.Router) {
			r.Get("/search", s.handleSearch)
			r.Get("/trending", s.handleTrending)
			r.Get("/{symbol}", s.handleQuote)
			r.Get("/{symbol}/history", s.handleHistory)
		})

		r.Route("/news", func(r chi.Router) {
			r.Get("/search", s.handleNewsSearch)
			r.Get("/headlines", s.handleHeadlines)
		})

		r.Route("/chat", func(r chi.Router) {
			r.Post("/query", s.handleChatQuery)
			r.Get("/conversations/{id}/messages", s.handleConversationMessages)
		})

		r.Route("/watchlists", func(r chi.Router) {
			r.Post("/", s.handleCreateWatchlist)
			r.Get("/", s.handleListWatchlists)
			r.Get("/{id}", s.handleGetWatchlist)
			r.Put("/{id}", s.handleUpdateWatchlist)
			r.Delete("/{id}", s.handleDeleteWatchlist)
		})
	})
}

// Handler exposes the mux for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start blocks serving HTTP until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

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

func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{
		"error": message,
	})
}
