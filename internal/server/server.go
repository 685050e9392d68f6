// Package server exposes layouts and the polled hierarchy over HTTP.
//
// Routes:
//
//	GET  /health               liveness and version
//	POST /v1/layout            lay out records sent in the body
//	GET  /v1/graph             latest polled snapshot
//	GET  /v1/graph/flow        latest graph in renderer flow shape
//	GET  /v1/graph.svg         latest graph as SVG
//	POST /v1/refresh           refresh now and return the result
//	PUT  /v1/selector/{name}   switch the polled selector
//
// Errors are JSON objects {"code", "message", "retry"} with the status
// derived from the code.
package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/cursograph/pkg/pipeline"
	"github.com/matzehuels/cursograph/pkg/refresh"
	"github.com/matzehuels/cursograph/pkg/source"
)

// DefaultMaxBody bounds POST /v1/layout request bodies.
const DefaultMaxBody = 32 << 20

// Options configures a [Server].
type Options struct {
	Runner *pipeline.Runner

	// Refresher backs the /v1/graph, /v1/refresh and /v1/selector routes.
	// Nil turns those routes into 404 UNSUPPORTED errors.
	Refresher *refresh.Refresher
	Selectors source.Selectors

	// Layout holds the base options for POST /v1/layout; query parameters
	// override the shape and centering.
	Layout pipeline.Options

	Logger  *log.Logger
	MaxBody int64
}

// Server holds the handlers' dependencies.
type Server struct {
	runner    *pipeline.Runner
	refresher *refresh.Refresher
	selectors source.Selectors
	layout    pipeline.Options
	logger    *log.Logger
	maxBody   int64
}

// New creates a server. A nil runner gets an uncached one.
func New(opts Options) *Server {
	s := &Server{
		runner:    opts.Runner,
		refresher: opts.Refresher,
		selectors: opts.Selectors,
		layout:    opts.Layout,
		logger:    opts.Logger,
		maxBody:   opts.MaxBody,
	}
	if s.logger == nil {
		s.logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	if s.runner == nil {
		s.runner = pipeline.NewRunner(nil, nil, s.logger)
	}
	if s.selectors == nil {
		s.selectors = source.DefaultSelectors()
	}
	if s.maxBody <= 0 {
		s.maxBody = DefaultMaxBody
	}
	return s
}

// Router returns the HTTP handler with all routes and middleware.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/layout", s.handleLayout)
		r.Get("/graph", s.handleGraph)
		r.Get("/graph/flow", s.handleGraphFlow)
		r.Get("/graph.svg", s.handleGraphSVG)
		r.Post("/refresh", s.handleRefresh)
		r.Put("/selector/{name}", s.handleSelect)
	})

	return r
}

// HTTPConfig holds listener settings for [Server.ListenAndServe].
type HTTPConfig struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// ListenAndServe serves until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, cfg HTTPConfig) error {
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.Router(),
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return ctx.Err()
}

// requestLogger logs one line per request with status and duration.
func requestLogger(logger *log.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				logger.Info("request",
					"method", r.Method,
					"path", r.URL.Path,
					"status", ww.Status(),
					"bytes", ww.BytesWritten(),
					"duration", time.Since(start).Round(time.Microsecond),
					"request_id", middleware.GetReqID(r.Context()),
				)
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
