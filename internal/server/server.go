// Package server exposes the extractor over HTTP: start a run, poll or
// stream its progress, download the table and ingest CSV exports.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	slr "github.com/vivaneiona/genkit-slr"
	"github.com/vivaneiona/genkit-slr/internal/logging"
)

// Options configures a Server.
type Options struct {
	// Extractor options, e.g. from config.ExtractorOptions.
	Extractor []slr.Option
	// Sink receives a markdown and CSV export after every finished run. Optional.
	Sink         *slr.Sink
	ExportPrefix string
	Compress     bool

	MaxUploadBytes int64
	ReadTimeout    time.Duration
	Logger         *slog.Logger
}

// Server is the HTTP surface of one Extractor. Runs execute in the
// background; only one at a time.
type Server struct {
	x      *slr.Extractor
	hub    *hub
	opts   Options
	log    *slog.Logger
	router *chi.Mux
	http   *http.Server

	mu      sync.Mutex
	closed  bool
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	// afterRun handles a finished run outside the run guard.
	afterRun func(ctx context.Context, res *slr.Result)
}

// New builds a Server whose extractor calls inv.
func New(inv slr.Invoker, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 64 << 20
	}
	if opts.ExportPrefix == "" {
		opts.ExportPrefix = "slr-results"
	}

	s := &Server{
		hub:    newHub(),
		opts:   opts,
		log:    opts.Logger,
		router: chi.NewRouter(),
	}
	s.afterRun = s.export
	xopts := append([]slr.Option{slr.WithLogger(opts.Logger)}, opts.Extractor...)
	xopts = append(xopts, slr.WithObserver(s.hub.publish))
	s.x = slr.NewWithInvoker(inv, xopts...)

	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(requestLogger)
	s.router.Use(middleware.Recoverer)
}

func (s *Server) setupRoutes() {
	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	s.router.Route("/api", func(r chi.Router) {
		r.Post("/runs", s.handleStartRun)
		r.Post("/plan", s.handlePlan)
		r.Post("/ingest", s.handleIngest)

		r.Get("/run", s.handleSnapshot)
		r.Get("/run/events", s.handleEvents)
		r.Get("/run/table.md", s.handleTableMarkdown)
		r.Get("/run/table.csv", s.handleTableCSV)
		r.Delete("/run", s.handleClear)
	})
}

// Handler returns the router, for httptest and embedding.
func (s *Server) Handler() http.Handler { return s.router }

// Extractor returns the extractor driven by the server.
func (s *Server) Extractor() *slr.Extractor { return s.x }

// Start listens on addr until Shutdown. It returns nil at once when
// Shutdown has already been called.
func (s *Server) Start(addr string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	srv := &http.Server{
		Addr:        addr,
		Handler:     s.router,
		ReadTimeout: s.opts.ReadTimeout,
		// no write timeout: the event stream stays open for the whole run
		IdleTimeout: 60 * time.Second,
	}
	s.http = srv
	s.mu.Unlock()

	s.log.Info("Starting server", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown cancels any active run, waits for it to finish and stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	srv := s.http
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

// Wait blocks until the background run, if any, has finished.
func (s *Server) Wait() { s.wg.Wait() }

// startRun launches in the background. It fails with ErrRunInProgress when
// a run is active.
func (s *Server) startRun(in slr.Input) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return slr.ErrRunInProgress
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.running = true
	s.cancel = cancel
	s.wg.Add(1)

	go func() {
		defer s.wg.Done()

		res, err := s.x.Run(ctx, in)
		if err != nil {
			s.log.Warn("Background run ended with error", "error", err)
		}

		s.mu.Lock()
		s.running = false
		s.cancel = nil
		s.mu.Unlock()
		cancel()

		if res != nil {
			s.afterRun(ctx, res)
		}
	}()
	return nil
}

func (s *Server) export(ctx context.Context, res *slr.Result) {
	if s.opts.Sink == nil {
		return
	}
	// the run context is cancelled by now; exports still go out
	ctx = context.WithoutCancel(ctx)
	prefix := fmt.Sprintf("%s/%s/table", s.opts.ExportPrefix, res.RunID)
	keys, err := s.opts.Sink.ExportResult(ctx, prefix, res.Table, s.opts.Compress)
	if err != nil {
		s.log.Warn("Export incomplete", "run_id", res.RunID, "keys", keys, "error", err)
		return
	}
	s.log.Info("Exported run", "run_id", res.RunID, "keys", keys)
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		logging.FromContext(r.Context()).Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}
