// Package server exposes the storage facade as a local JSON API with a
// websocket stream of change notifications.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"giftwise/internal/gw"
)

const (
	maxBodyBytes    = 1 << 20
	maxImportBytes  = 16 << 20
	shutdownTimeout = 5 * time.Second
)

// Server serves the HTTP API for one Storage.
type Server struct {
	storage        *gw.Storage
	logger         *slog.Logger
	allowedOrigins []string
	hub            *hub
	router         chi.Router
}

// New creates a Server. allowedOrigins is the CORS allow list; an empty list
// rejects cross-origin requests. Requests that change data are refused when
// they come from an origin that is neither listed nor the server's own host,
// and their bodies must be JSON.
func New(storage *gw.Storage, allowedOrigins []string, logger *slog.Logger) *Server {
	s := &Server{
		storage:        storage,
		logger:         logger,
		allowedOrigins: allowedOrigins,
		hub:            newHub(allowedOrigins, logger),
	}
	s.hub.unsubscribe = storage.Subscribe(s.hub.broadcast)

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)
	// cors treats an empty list as "allow all", so skip it entirely.
	if len(allowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: allowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Content-Type"},
			ExposedHeaders: []string{"Content-Disposition"},
			MaxAge:         300,
		}))
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(s.rejectForeignWrites)
		r.Use(middleware.AllowContentType("application/json"))

		r.Get("/catalog", s.handleCatalog)

		r.Route("/profiles", func(r chi.Router) {
			r.Get("/", s.handleListProfiles)
			r.Post("/", s.handleAddProfile)
			r.Get("/{id}", s.handleGetProfile)
			r.Patch("/{id}", s.handleUpdateProfile)
			r.Delete("/{id}", s.handleDeleteProfile)
			r.Get("/{id}/gifts", s.handleProfileGifts)
		})

		r.Get("/gifts", s.handleListGifts)
		r.Post("/gifts", s.handleAddGift)

		r.Get("/settings", s.handleGetSettings)
		r.Patch("/settings", s.handleUpdateSettings)

		r.Get("/stats", s.handleStats)
		r.Get("/usage", s.handleUsage)

		r.Get("/export", s.handleExport)
		r.Post("/import", s.handleImport)
		r.Post("/clear", s.handleClear)

		r.Get("/events", s.hub.serveWS)
	})

	s.router = r
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close detaches the server from storage notifications and disconnects
// websocket clients.
func (s *Server) Close() {
	s.hub.close()
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serving: %w", err)
	case <-ctx.Done():
	}

	s.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	return nil
}

// rejectForeignWrites refuses POST, PATCH and DELETE requests whose Origin is
// not allowed. CORS alone does not stop such requests from running.
func (s *Server) rejectForeignWrites(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost, http.MethodPatch, http.MethodDelete:
			if !originAllowed(r, s.allowedOrigins) {
				s.logger.Warn("rejected cross-origin write", "method", r.Method, "path", r.URL.Path, "origin", r.Header.Get("Origin"))
				writeError(w, http.StatusForbidden, "origin not allowed")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"elapsed", time.Since(start),
		)
	})
}
