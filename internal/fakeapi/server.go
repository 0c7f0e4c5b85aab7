// Package fakeapi serves a small, deterministic imitation of the remote API:
// chat completions (plain and streamed), speech, transcription and a realtime
// websocket. Replies echo the caller's input so tests can assert on them.
package fakeapi

import (
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"simple-openai-go/internal/metrics"
	"simple-openai-go/internal/middleware"
)

type Options struct {
	APIKey      string        // empty accepts any caller
	Timeout     time.Duration // for non-streaming routes (default: 15s)
	MaxBodySize int64         // default: 25MiB, the upload limit
}

// Server records what it received, per route.
type Server struct {
	opts   Options
	logger *zap.Logger

	mu    sync.Mutex
	calls map[string]int
}

func New(opts Options, logger *zap.Logger) *Server {
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.MaxBodySize <= 0 {
		opts.MaxBodySize = 25 << 20
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		opts:   opts,
		logger: logger,
		calls:  map[string]int{},
	}
}

// Calls returns how many requests reached the named route, e.g. "chat".
func (s *Server) Calls(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[route]
}

func (s *Server) count(route string) {
	s.mu.Lock()
	s.calls[route]++
	s.mu.Unlock()
}

// Handler builds the router. Azure-style deployment paths are served by the
// same handlers as the /v1 paths.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(metrics.Middleware)
	r.Use(chimw.RequestID)
	r.Use(middleware.LoggingContext(s.logger))
	r.Use(middleware.Recoverer())

	api := func(r chi.Router) {
		r.Use(middleware.RequireKey(s.opts.APIKey))
		r.Use(middleware.MaxBodySize(s.opts.MaxBodySize))

		// streamed replies outlive a request timeout
		r.Post("/chat/completions", s.ChatCompletion)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(s.opts.Timeout))
			r.Post("/audio/speech", s.Speech)
			r.Post("/audio/transcriptions", s.Transcription)
			r.Post("/audio/translations", s.Translation)
		})
	}

	r.Route("/v1", func(r chi.Router) {
		api(r)
		r.Get("/realtime", s.Realtime)
	})
	r.Route("/openai/deployments/{deployment}", api)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", metrics.Handler())

	return r
}
