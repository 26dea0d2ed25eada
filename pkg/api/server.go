// Package api serves the converter, validator and topology store over HTTP.
//
// All bodies are JSON. Graph payloads have the session form {meta, graph}:
//
//	GET    /healthz
//	GET    /v1/definitions
//	POST   /v1/flatten                    topology document -> {meta, graph}
//	POST   /v1/collect                    {meta, graph} -> topology document
//	POST   /v1/validate                   {graph | topology, serverErrors} -> {valid, errors}
//	GET    /v1/topologies
//	GET    /v1/topologies/{name}
//	PUT    /v1/topologies/{name}[?force=true]
//	DELETE /v1/topologies/{name}
//	GET    /v1/topologies/{name}/diagram?format=svg|png|dot[&detailed=true]
//
// A PUT flattens the document, validates the graph and stores the collected
// form. Validation findings answer 422 unless force is set.
//
// Each request works on its own graph; the store, cache and registry are
// shared and safe for concurrent use.
package api

import (
	"context"
	stderrors "errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/topoedit/pkg/layout"
	"github.com/matzehuels/topoedit/pkg/observability"
	"github.com/matzehuels/topoedit/pkg/render"
	"github.com/matzehuels/topoedit/pkg/schema"
	"github.com/matzehuels/topoedit/pkg/store"
	"github.com/matzehuels/topoedit/pkg/validate"
)

// DefaultMaxBodyBytes bounds request bodies when Options.MaxBodyBytes is 0.
const DefaultMaxBodyBytes = 4 << 20

// Options configures a [Server]. Store is required; everything else has a
// default.
type Options struct {
	Store     store.Store
	Registry  *schema.Registry    // defaults to schema.Default()
	Validator *validate.Validator // defaults to the built-in rules
	Engine    layout.Engine       // defaults to layout.Layered{}
	Renderer  render.Renderer
	Logger    *log.Logger // defaults to log.Default()

	MaxBodyBytes int64
}

// Server is the HTTP host. Create it with [New].
type Server struct {
	store     store.Store
	reg       *schema.Registry
	validator *validate.Validator
	engine    layout.Engine
	renderer  render.Renderer
	logger    *log.Logger
	maxBody   int64
	router    chi.Router
}

// New builds a server and its routes.
func New(opts Options) *Server {
	s := &Server{
		store:     opts.Store,
		reg:       opts.Registry,
		validator: opts.Validator,
		engine:    opts.Engine,
		renderer:  opts.Renderer,
		logger:    opts.Logger,
		maxBody:   opts.MaxBodyBytes,
	}
	if s.reg == nil {
		s.reg = schema.Default()
	}
	if s.validator == nil {
		s.validator = validate.New(s.reg, validate.DefaultRules())
	}
	if s.engine == nil {
		s.engine = layout.Layered{}
	}
	if s.logger == nil {
		s.logger = log.Default()
	}
	if s.renderer.Logger == nil {
		s.renderer.Logger = s.logger
	}
	if s.maxBody <= 0 {
		s.maxBody = DefaultMaxBodyBytes
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.health)
	r.Route("/v1", func(r chi.Router) {
		r.Get("/definitions", s.definitions)
		r.Post("/flatten", s.flatten)
		r.Post("/collect", s.collect)
		r.Post("/validate", s.validate)

		r.Route("/topologies", func(r chi.Router) {
			r.Get("/", s.listTopologies)
			r.Route("/{name}", func(r chi.Router) {
				r.Get("/", s.getTopology)
				r.Put("/", s.putTopology)
				r.Delete("/", s.deleteTopology)
				r.Get("/diagram", s.diagram)
			})
		})
	})
	return r
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Timeouts configures [Server.ListenAndServe].
type Timeouts struct {
	Read     time.Duration
	Write    time.Duration
	Shutdown time.Duration
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully within t.Shutdown.
func (s *Server) ListenAndServe(ctx context.Context, addr string, t Timeouts) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadTimeout:       t.Read,
		ReadHeaderTimeout: t.Read,
		WriteTimeout:      t.Write,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	shutdownCtx := context.Background()
	if t.Shutdown > 0 {
		var cancel context.CancelFunc
		shutdownCtx, cancel = context.WithTimeout(shutdownCtx, t.Shutdown)
		defer cancel()
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !stderrors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		took := time.Since(start)
		var route string
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			route = rctx.RoutePattern()
		}
		observability.Server().OnRequest(r.Context(), r.Method, route, ww.Status(), took)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"took", took.Round(time.Microsecond),
			"id", middleware.GetReqID(r.Context()),
		)
	})
}
