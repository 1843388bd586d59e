// Package httpserver wires the pageboot HTTP routes and server lifecycle.
package httpserver

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"

	"git.home.luguber.info/inful/pageboot/internal/config"
	"git.home.luguber.info/inful/pageboot/internal/content"
	"git.home.luguber.info/inful/pageboot/internal/errors"
	"git.home.luguber.info/inful/pageboot/internal/kvstore"
	"git.home.luguber.info/inful/pageboot/internal/metrics"
	handlers "git.home.luguber.info/inful/pageboot/internal/server/handlers"
	smw "git.home.luguber.info/inful/pageboot/internal/server/middleware"
)

// Options carries the collaborators the routes need.
type Options struct {
	Pages    *handlers.PageHandlers
	Content  *content.Client
	Store    kvstore.Store
	Recorder metrics.Recorder
	// Metrics serves /metrics when set and metrics are enabled.
	Metrics http.Handler
	Logger  *slog.Logger
}

// Server is the edge proxy.
type Server struct {
	cfg          *config.Config
	opts         Options
	errorAdapter *errors.HTTPErrorAdapter
	router       chi.Router
	httpServer   *http.Server
	logger       *slog.Logger

	monitoringHandlers *handlers.MonitoringHandlers
	contentHandlers    *handlers.ContentHandlers
}

// New constructs the server and its routes.
func New(cfg *config.Config, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		cfg:          cfg,
		opts:         opts,
		errorAdapter: errors.NewHTTPErrorAdapter(logger),
		logger:       logger,
	}
	s.monitoringHandlers = handlers.NewMonitoringHandlers(opts.Store, s.errorAdapter)
	if opts.Content != nil {
		s.contentHandlers = handlers.NewContentHandlers(opts.Content, s.errorAdapter)
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(smw.Chain(s.logger, s.errorAdapter, s.opts.Recorder))

	r.Get(s.cfg.Monitoring.Health.Path, s.monitoringHandlers.HandleHealthCheck)
	if s.cfg.Monitoring.Metrics.Enabled && s.opts.Metrics != nil {
		r.Method(http.MethodGet, s.cfg.Monitoring.Metrics.Path, s.opts.Metrics)
	}
	if s.contentHandlers != nil {
		r.Get("/api/content", s.contentHandlers.HandleQuery)
	}
	if s.opts.Pages != nil {
		r.Get("/*", s.opts.Pages.HandlePage)
	}
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		err := errors.ValidationError("invalid HTTP method").
			WithContext("method", req.Method).
			WithContext("allowed_method", http.MethodGet).
			Build()
		s.errorAdapter.WriteErrorResponse(w, req, err)
	})
	return r
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler { return s.router }

// Start binds the listen address and serves in the background. Binding is
// done up front so address errors surface immediately.
func (s *Server) Start(ctx context.Context) error {
	lc := net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp", s.cfg.Server.Addr)
	if err != nil {
		return fmt.Errorf("http startup failed: %w", err)
	}
	return s.StartWithListener(ln)
}

// StartWithListener serves on an already bound listener.
func (s *Server) StartWithListener(ln net.Listener) error {
	s.httpServer = &http.Server{
		Handler:           s.router,
		ReadTimeout:       s.cfg.Server.ReadTimeout,
		ReadHeaderTimeout: s.cfg.Server.ReadTimeout,
		WriteTimeout:      s.cfg.Server.WriteTimeout,
	}
	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP server stopped", slog.String("error", err.Error()))
		}
	}()
	s.logger.Info("HTTP server started", slog.String("addr", ln.Addr().String()))
	return nil
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	return nil
}
