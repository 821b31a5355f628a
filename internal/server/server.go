// Package server exposes sessions over HTTP: inspection, messaging,
// stepping and a server-sent event stream of the framework's bus.
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/hugin-ai/hugin/internal/event"
	"github.com/hugin-ai/hugin/internal/session"
	"github.com/hugin-ai/hugin/internal/storage"
)

// Config holds server configuration.
type Config struct {
	Port         int
	EnableCORS   bool
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultConfig returns default server configuration.
func DefaultConfig() *Config {
	return &Config{
		Port:         8080,
		EnableCORS:   true,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // no write timeout, SSE connections are long-lived
	}
}

// Server is the HTTP server. Sessions are held in memory and loaded
// from storage on demand.
type Server struct {
	config  *Config
	router  *chi.Mux
	httpSrv *http.Server
	store   *storage.Store
	bus     *event.Bus

	// sessionOpts is the wiring template for sessions loaded from
	// storage.
	sessionOpts session.Options

	mu       sync.Mutex
	sessions map[string]*session.Session
	// locks serialize step/message/respond handlers per session. The
	// core only guards against re-entrant stepping; concurrent HTTP
	// mutations of one session must not interleave with its step loop.
	locks map[string]*sync.Mutex
}

// New creates a server. opts wires registries and providers into
// lazily loaded sessions.
func New(cfg *Config, store *storage.Store, bus *event.Bus, opts session.Options) *Server {
	opts.Store = store
	opts.Bus = bus
	s := &Server{
		config:      cfg,
		router:      chi.NewRouter(),
		store:       store,
		bus:         bus,
		sessionOpts: opts,
		sessions:    make(map[string]*session.Session),
		locks:       make(map[string]*sync.Mutex),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// AddSession registers an in-memory session.
func (s *Server) AddSession(sess *session.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID()] = sess
}

// session returns a live session, loading it from storage on first
// access.
func (s *Server) session(ctx context.Context, sessionID string) (*session.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[sessionID]; ok {
		return sess, nil
	}
	sess, err := session.Load(ctx, sessionID, s.sessionOpts)
	if err != nil {
		return nil, err
	}
	s.sessions[sessionID] = sess
	return sess, nil
}

// sessionLock returns the mutex serializing mutations of one session.
func (s *Server) sessionLock(sessionID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[sessionID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[sessionID] = lock
	}
	return lock
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RealIP)

	if s.config.EnableCORS {
		s.router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   []string{"*"},
			AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}
}

func (s *Server) setupRoutes() {
	s.router.Route("/sessions", func(r chi.Router) {
		r.Get("/", s.listSessions)
		r.Route("/{sessionID}", func(r chi.Router) {
			r.Get("/", s.getSession)
			r.Post("/step", s.stepSession)
			r.Route("/agents/{agentID}", func(r chi.Router) {
				r.Get("/", s.getAgent)
				r.Post("/message", s.messageAgent)
				r.Post("/response", s.respondToAgent)
			})
		})
	})
	s.router.Get("/events", s.streamEvents)
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.httpSrv = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}
	return s.httpSrv.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}

// Router returns the chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}
