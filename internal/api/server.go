// Package api exposes the HTTP interface for the audit service.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/crawlworks/seoaudit/internal/autofix"
	"github.com/crawlworks/seoaudit/internal/keywords"
	"github.com/crawlworks/seoaudit/internal/report"
	"github.com/crawlworks/seoaudit/internal/store"
)

// Config bounds request handling.
type Config struct {
	RequestTimeout time.Duration
	MaxPagesLimit  int
	DefaultPages   int
}

// Server wires HTTP handlers to the audit pipeline.
type Server struct {
	router   chi.Router
	store    store.Store
	runner   *report.Runner
	fixer    *autofix.Engine
	keywords *keywords.Service
	logger   *zap.Logger
	cfg      Config
}

// NewServer constructs a Server with middleware and routes.
func NewServer(
	st store.Store,
	runner *report.Runner,
	fixer *autofix.Engine,
	kw *keywords.Service,
	logger *zap.Logger,
	cfg Config,
) *Server {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 60 * time.Second
	}
	if cfg.MaxPagesLimit <= 0 {
		cfg.MaxPagesLimit = 100
	}
	if cfg.DefaultPages <= 0 {
		cfg.DefaultPages = 10
	}
	s := &Server{
		store:    st,
		runner:   runner,
		fixer:    fixer,
		keywords: kw,
		logger:   logger,
		cfg:      cfg,
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(logger))
	r.Use(recoverMiddleware(logger))
	r.Use(timeoutMiddleware(cfg.RequestTimeout))

	r.Get("/healthz", s.healthz)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/seo", func(r chi.Router) {
		r.Get("/test", s.test)
		r.Post("/crawl", s.startCrawl)
		r.Route("/reports", func(r chi.Router) {
			r.Get("/latest", s.latestReport)
			r.Get("/{report_id}", s.getReport)
		})
		r.Get("/audits", s.listAudits)
		r.Get("/fixable-issues", s.listFixableIssues)
		r.Post("/fix-issue/{issue_id}", s.fixIssue)
		r.Post("/fix-all-issues", s.fixAllIssues)
		r.Get("/top-keywords", s.topKeywords)
		r.Get("/suggested-topics", s.suggestedTopics)
		r.Post("/research-keywords", s.researchKeywords)
	})

	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

type requestIDKey struct{}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func loggingMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)
			logger.Info("request completed",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.status),
				zap.Int64("duration_ms", time.Since(start).Milliseconds()),
			)
		})
	}
}

func recoverMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("panic recovered", zap.Any("error", rec))
					writeError(w, http.StatusInternalServerError, "internal server error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, "request timed out")
	}
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}
