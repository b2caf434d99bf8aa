// Package api serves the read-only status API over HTTP.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/juststeveking/sentinel/internal/enrich"
	"github.com/juststeveking/sentinel/internal/monitor"
)

// StatusReader is the engine's read-only status query
type StatusReader interface {
	ListTargets() []monitor.Target
	Sweeping() bool
}

// Enricher looks up on-demand target details
type Enricher interface {
	Enrich(ctx context.Context, t monitor.Target) (enrich.Details, error)
}

// Options configure the router
type Options struct {
	Status   StatusReader
	Enricher Enricher
	Gatherer prometheus.Gatherer
	// ScreenshotDir is served under /screenshots/ when set
	ScreenshotDir string
	Logger        *slog.Logger
}

// NewRouter builds the status API handler
func NewRouter(opts Options) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(logger))

	h := &handlers{status: opts.Status, enricher: opts.Enricher, logger: logger}

	r.Get("/healthz", h.health)

	r.Route("/api/targets", func(r chi.Router) {
		r.Get("/", h.listTargets)
		r.Get("/{domain}", h.getTarget)
		r.Get("/{domain}/details", h.targetDetails)
	})

	if opts.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	}

	if opts.ScreenshotDir != "" {
		fs := http.StripPrefix("/screenshots/", http.FileServer(http.Dir(opts.ScreenshotDir)))
		r.Handle("/screenshots/*", fs)
	}

	return r
}

// requestLogger logs one line per request
func requestLogger(logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			defer func() {
				logger.Info("request",
					"method", r.Method,
					"path", r.URL.Path,
					"status", ww.Status(),
					"bytes", ww.BytesWritten(),
					"duration_ms", time.Since(start).Milliseconds(),
					"request_id", middleware.GetReqID(r.Context()),
					"remote_addr", r.RemoteAddr,
				)
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
