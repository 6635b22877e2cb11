// Package server is the HTTP persistence and content service game clients
// talk to: game sessions are created and finalized here, and topic content
// banks are served from the store through an optional Redis cache.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/abhisek/missionkit/internal/content"
	"github.com/abhisek/missionkit/internal/logging"
	"github.com/abhisek/missionkit/internal/store"
)

// Invalidator drops cached content of a topic.
type Invalidator interface {
	Invalidate(ctx context.Context, topicID string) error
}

// Server serves the game session and content API.
type Server struct {
	cfg       Config
	sessions  store.SessionRepo
	bank      store.ContentRepo
	reads     content.Source
	cache     Invalidator
	publisher Publisher
	pinger    func(context.Context) error
	logger    *slog.Logger
	now       func() time.Time
	newID     func() string
}

// Option configures a Server.
type Option func(*Server)

// WithContentCache serves content reads through a cached source.
func WithContentCache(c *content.CachedSource) Option {
	return func(s *Server) {
		s.reads = c
		s.cache = c
	}
}

// WithPublisher publishes session events.
func WithPublisher(p Publisher) Option {
	return func(s *Server) { s.publisher = p }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithPinger sets the readiness check used by /healthz.
func WithPinger(fn func(context.Context) error) Option {
	return func(s *Server) { s.pinger = fn }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// WithIDGenerator overrides the session id generator.
func WithIDGenerator(fn func() string) Option {
	return func(s *Server) { s.newID = fn }
}

// New creates a Server over the given repositories.
func New(cfg Config, sessions store.SessionRepo, bank store.ContentRepo, opts ...Option) *Server {
	s := &Server{
		cfg:       cfg,
		sessions:  sessions,
		bank:      bank,
		reads:     bank,
		publisher: NopPublisher{},
		now:       time.Now,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logging.OrDiscard(s.logger)
	return s
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, s.requestLog, middleware.Recoverer)
	if s.cfg.RequestTimeout > 0 {
		r.Use(middleware.Timeout(s.cfg.RequestTimeout))
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
		ExposedHeaders: []string{"Content-Length"},
		MaxAge:         300,
	}))
	r.Use(instrument)

	r.Get("/healthz", s.healthz)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Route("/game-sessions", func(r chi.Router) {
			r.Post("/", s.createSession)
			r.Get("/", s.listSessions)
			r.Route("/{sessionID}", func(r chi.Router) {
				r.Get("/", s.getSession)
				r.Put("/", s.finalizeSession)
			})
		})
		r.Route("/topics", func(r chi.Router) {
			r.Get("/", s.listTopics)
			r.Get("/{topicID}/content", s.topicContent)
			r.Put("/{topicID}/content", s.replaceContent)
		})
	})
	return r
}

// ListenAndServe serves until ctx is canceled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", s.cfg.Addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) requestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
