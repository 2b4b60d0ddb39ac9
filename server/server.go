// Package server exposes the content service over HTTP/JSON.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/burugo/ante"
	"github.com/burugo/ante/common"
	"github.com/burugo/ante/content"
)

// HeaderCompanyID carries the tenant of every /api/v1 request except health.
const HeaderCompanyID = "X-Company-ID"

const maxBodyBytes = 1 << 20

// Pinger reports whether the source-of-truth database is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server routes HTTP requests to the content service.
type Server struct {
	svc    *content.Service
	cache  ante.TenantScopedCache
	db     Pinger
	logger *slog.Logger
	router *chi.Mux
}

// New builds the router. db may be nil, in which case health only reports
// the cache.
func New(svc *content.Service, cache ante.TenantScopedCache, db Pinger, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		svc:    svc,
		cache:  cache,
		db:     db,
		logger: logger.With(slog.String("component", "http")),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Group(func(r chi.Router) {
			r.Use(tenantContext)

			r.Route("/content-types", func(r chi.Router) {
				r.Get("/", s.handleListContentTypes)
				r.Post("/", s.handleCreateContentType)

				r.Route("/{slug}", func(r chi.Router) {
					r.Get("/", s.handleGetContentType)
					r.Put("/", s.handleUpdateContentType)
					r.Delete("/", s.handleDeleteContentType)

					r.Get("/entries", s.handleListEntries)
					r.Post("/entries", s.handleCreateEntry)
					r.Get("/entries/{id}", s.handleGetEntry)
					r.Put("/entries/{id}", s.handleUpdateEntry)
					r.Delete("/entries/{id}", s.handleDeleteEntry)
				})
			})

			r.Get("/media", s.handleListMedia)
			r.Post("/media", s.handleCreateMedia)
			r.Delete("/media/{id}", s.handleDeleteMedia)

			r.Get("/settings/{key}", s.handleGetSetting)
			r.Put("/settings/{key}", s.handlePutSetting)
		})
	})

	s.router = r
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// tenantContext puts the X-Company-ID tenant into the request context and
// turns "Cache-Control: no-cache" into a cache refresh.
func tenantContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		company := strings.TrimSpace(r.Header.Get(HeaderCompanyID))
		if company == "" {
			respondError(w, http.StatusBadRequest, HeaderCompanyID+" header is required", nil)
			return
		}
		ctx := ante.WithTenant(r.Context(), ante.TenantID(company))
		if strings.Contains(strings.ToLower(r.Header.Get("Cache-Control")), "no-cache") {
			ctx = ante.WithRefresh(ctx)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.InfoContext(r.Context(), "request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", ww.Status()),
			slog.Int("bytes", ww.BytesWritten()),
			slog.Duration("duration", time.Since(start)),
			slog.String("requestId", middleware.GetReqID(r.Context())),
			slog.String("companyId", r.Header.Get(HeaderCompanyID)),
		)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := s.cache.Health(r.Context())
	resp := map[string]any{"status": "healthy", "cache": health}
	status := http.StatusOK
	// Requests are still served from the database while the cache is down.
	if !health.IsConnected {
		resp["status"] = "degraded"
	}
	if s.db != nil {
		if err := s.db.Ping(r.Context()); err != nil {
			status = http.StatusServiceUnavailable
			resp["status"] = "unhealthy"
			resp["database"] = map[string]string{"error": err.Error()}
		} else {
			resp["database"] = map[string]string{"status": "ok"}
		}
	}
	respondJSON(w, status, resp)
}

// Helper functions

func decode(w http.ResponseWriter, r *http.Request, dest any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return false
	}
	return true
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string, err error) {
	response := map[string]string{
		"error": message,
	}
	if err != nil {
		response["details"] = err.Error()
	}
	respondJSON(w, status, response)
}

// respondServiceError maps service errors onto status codes.
func (s *Server) respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, common.ErrNotFound):
		respondError(w, http.StatusNotFound, "not found", err)
	case errors.Is(err, content.ErrInvalid):
		respondError(w, http.StatusBadRequest, "invalid request", err)
	case errors.Is(err, content.ErrConflict):
		respondError(w, http.StatusConflict, "already exists", err)
	case errors.Is(err, ante.ErrTenantRequired), errors.Is(err, ante.ErrTenantMismatch):
		respondError(w, http.StatusBadRequest, "invalid tenant", err)
	default:
		s.logger.ErrorContext(r.Context(), "request failed", slog.String("path", r.URL.Path), slog.Any("error", err))
		respondError(w, http.StatusInternalServerError, "internal error", nil)
	}
}
