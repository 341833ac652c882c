package server

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/me/galahad/internal/config"
	"github.com/me/galahad/internal/form"
	"github.com/me/galahad/internal/store"
	"github.com/me/galahad/pkg/galaxy"
	"github.com/me/galahad/pkg/model"
	"golang.org/x/sync/singleflight"
)

// Version is reported by the health endpoint.
const Version = "0.1.0"

// Galaxy is the part of the Galaxy client the API needs beyond schema
// fetching.
type Galaxy interface {
	ListTools(ctx context.Context) ([]galaxy.ToolSummary, error)
	RunTool(ctx context.Context, input galaxy.RunInput) (*galaxy.RunResult, error)
	UploadDataset(ctx context.Context, input galaxy.UploadInput) (*galaxy.Dataset, error)
}

// SchemaLister lists cached tool schemas.
type SchemaLister interface {
	ListSchemas(ctx context.Context, opts model.ListOptions) ([]model.SchemaEntry, int, error)
}

// Server is the galahad REST API server. A renderer opens forms, sets
// values and reads back specs and visibility through it.
type Server struct {
	router    chi.Router
	logger    *slog.Logger
	config    config.Config
	startTime time.Time
	source    form.SchemaSource
	driver    *form.Driver
	overrides form.Overrides
	galaxy    Galaxy       // optional; nil disables /tools, uploads and submit
	schemas   SchemaLister // optional; nil lists no schemas

	mu    sync.RWMutex
	forms map[string]*form.Form

	// opens shares one schema fetch between concurrent opens of the same tool.
	opens        singleflight.Group
	fetchTimeout time.Duration
}

// defaultFetchTimeout bounds a shared schema fetch when the Galaxy timeout
// is not configured.
const defaultFetchTimeout = 2 * time.Minute

// Option configures optional Server dependencies.
type Option func(*Server)

// WithGalaxy sets the Galaxy client used for tool listings and job submission.
func WithGalaxy(g Galaxy) Option {
	return func(s *Server) {
		s.galaxy = g
	}
}

// WithOverrides sets the parameter overrides applied to every form.
func WithOverrides(o form.Overrides) Option {
	return func(s *Server) {
		s.overrides = o
	}
}

// WithSchemaStore exposes the schema cache through /schemas.
func WithSchemaStore(st store.SchemaStore) Option {
	return func(s *Server) {
		s.schemas = st
	}
}

// New creates a new Server with all routes registered.
func New(cfg config.Config, source form.SchemaSource, logger *slog.Logger, opts ...Option) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		logger:    logger.With("component", "server"),
		config:    cfg,
		startTime: time.Now(),
		source:    source,
		driver:    form.NewDriver(source, logger),
		forms:     make(map[string]*form.Form),

		fetchTimeout: defaultFetchTimeout,
	}
	if t := cfg.Galaxy.Timeout; t > 0 {
		// Every attempt of the client's retry loop may take the full timeout.
		s.fetchTimeout = t * time.Duration(cfg.Galaxy.MaxRetries+1)
	}
	for _, opt := range opts {
		opt(s)
	}

	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Handler returns the http.Handler for this server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() {
	r := s.router

	// Global middleware
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(s.logger))
	if origins := s.config.Server.CORSOrigins; len(origins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: origins,
			AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Content-Type", "X-Request-ID"},
			ExposedHeaders: []string{"X-Request-ID"},
			MaxAge:         300,
		}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		// Discovery
		r.Get("/", s.handleDiscovery)

		// Health
		r.Get("/health", s.handleHealth)

		// Stateless compilation
		r.Post("/compile", s.handleCompile)

		// Forms
		r.Route("/forms", func(r chi.Router) {
			r.Get("/", s.handleListForms)
			r.Post("/", s.handleCreateForm)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetForm)
				r.Delete("/", s.handleDeleteForm)
				r.Put("/values", s.handleSetValue)
				r.Post("/recompile", s.handleRecompile)
				r.Get("/job", s.handleGetJob)
				r.Post("/submit", s.handleSubmit)
			})
		})

		// Galaxy proxy
		r.Get("/tools", s.handleListTools)
		r.Post("/uploads", s.handleUpload)

		// Schema cache
		r.Get("/schemas", s.handleListSchemas)
	})
}

func (s *Server) lookupForm(id string) *form.Form {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.forms[id]
}

func (s *Server) formCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.forms)
}
