// Package web serves the TalentTrack HTML shell: dashboard, candidate
// list and forms, spreadsheet import with preview, and export downloads.
package web

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/talenttrack/internal/config"
	"github.com/JonMunkholm/talenttrack/internal/core"
	ttmw "github.com/JonMunkholm/talenttrack/internal/web/middleware"
	"github.com/JonMunkholm/talenttrack/internal/web/templates"
)

// Server is the HTTP server for the web shell.
type Server struct {
	service *core.Service
	cfg     *config.Config
	router  *chi.Mux
	server  *http.Server
}

// NewServer creates a Server over service.
func NewServer(service *core.Service, cfg *config.Config) *Server {
	s := &Server{
		service: service,
		cfg:     cfg,
		router:  chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(ttmw.TrustedRealIP(s.cfg.Server.TrustedProxies))
	s.router.Use(ttmw.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5, "text/html", "text/csv"))
	s.router.Use(securityHeaders)
}

func (s *Server) setupRoutes() {
	// Page requests share the short request timeout.
	s.router.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(s.cfg.Server.RequestTimeout))

		r.Get("/", s.handleDashboard)

		r.Get("/candidates", s.handleListCandidates)
		r.Get("/candidates/new", s.handleNewCandidate)
		r.Post("/candidates", s.handleCreateCandidate)
		r.Get("/candidates/{id}/edit", s.handleEditCandidate)
		r.Post("/candidates/{id}", s.handleUpdateCandidate)

		r.Get("/import", s.handleImportPage)
		r.Post("/import/preview", s.handlePreview)

		r.Get("/export", s.handleExport)
		r.Get("/export/template", s.handleExportTemplate)
	})

	// Imports are bounded by the import timeout inside the service.
	s.router.Post("/import", s.handleImport)

	s.router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.render(w, r, http.StatusNotFound, templates.ErrorPage(msgPageNotFound))
	})
}

// Start listens on the configured address.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.writeTimeout(),
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	slog.Info("server listening", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

// writeTimeout must outlast the longest import.
func (s *Server) writeTimeout() time.Duration {
	wt := s.cfg.Server.WriteTimeout
	if it := s.cfg.Import.Timeout + 30*time.Second; it > wt {
		wt = it
	}
	return wt
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		// Pages carry only an inline stylesheet.
		w.Header().Set("Content-Security-Policy", "default-src 'self'; style-src 'self' 'unsafe-inline'; script-src 'none'")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}
