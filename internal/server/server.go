package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"deployclean/internal/cleanup"
	"deployclean/internal/config"
	"deployclean/internal/ghclient"
	"deployclean/internal/history"
	"deployclean/internal/tasks"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/time/rate"
)

const (
	// HTTP server timeouts
	HTTPReadTimeout  = 10 * time.Second
	HTTPWriteTimeout = 90 * time.Second
	HTTPIdleTimeout  = 60 * time.Second

	// Request timeout for middleware. Listing resolves one status per
	// deployment, so it is longer than a single GitHub call.
	RequestTimeout = 75 * time.Second

	// ShutdownTimeout bounds the graceful shutdown of the HTTP listener.
	ShutdownTimeout = 15 * time.Second
)

// GitHub is the part of the GitHub client the handlers use.
type GitHub interface {
	cleanup.API
	ListWithStates(ctx context.Context, repo ghclient.Repo) []ghclient.Deployment
}

// ClientFactory builds a GitHub client authenticated with token.
type ClientFactory func(token string) (GitHub, error)

// Server represents the HTTP server
type Server struct {
	Config      *config.Config
	NewClient   ClientFactory
	History     *history.History // nil when history is disabled
	Pool        *tasks.Pool
	LockManager *cleanup.LockManager
	Logger      *slog.Logger
	TestMode    bool
	watchWg     sync.WaitGroup
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config, factory ClientFactory, hist *history.History, pool *tasks.Pool, logger *slog.Logger, testMode bool) *Server {
	return &Server{
		Config:      cfg,
		NewClient:   factory,
		History:     hist,
		Pool:        pool,
		LockManager: cleanup.NewLockManager(),
		Logger:      logger,
		TestMode:    testMode,
	}
}

// Router creates and configures the HTTP router
func (s *Server) Router() *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(RequestTimeout))

	// Logging middleware
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				s.Logger.Info("http_request",
					"method", r.Method,
					"path", r.URL.Path,
					"status", ww.Status(),
					"request_id", middleware.GetReqID(r.Context()),
					"duration_ms", time.Since(start).Milliseconds())
			}()

			next.ServeHTTP(ww, r)
		})
	})

	if len(s.Config.Server.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.Config.Server.AllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Content-Type", TokenHeader},
			MaxAge:         300,
		}))
	}

	// Rate limiting middleware (only if not in test mode)
	if !s.TestMode {
		r.Use(NewRateLimitMiddleware(rate.Limit(s.Config.Server.RateLimit), s.Config.Server.RateBurst, s.Logger))
	}

	// Routes
	r.Get("/health", s.HandleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/deployments", s.HandleListDeployments)
		r.Post("/deployments/{id}/mark_inactive", s.HandleMarkInactive)
		r.Delete("/deployments/{id}", s.HandleDelete)
		r.Post("/clean", s.HandleClean)
		r.Get("/jobs/{id}", s.HandleJob)
		r.Get("/history", s.HandleHistory)
	})

	if dir := s.Config.Server.StaticDir; dir != "" {
		r.Handle("/*", http.FileServer(http.Dir(dir)))
	}

	return r
}

// Start serves HTTP until ctx is cancelled, then shuts the listener down
// gracefully.
func (s *Server) Start(ctx context.Context, host string, port int) error {
	addr := fmt.Sprintf("%s:%d", host, port)
	s.Logger.Info("Starting server", "addr", addr)

	server := &http.Server{
		Addr:         addr,
		Handler:      s.Router(),
		ReadTimeout:  HTTPReadTimeout,
		WriteTimeout: HTTPWriteTimeout,
		IdleTimeout:  HTTPIdleTimeout,
	}

	s.WatchEvents()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.Logger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	return nil
}

// WatchEvents logs every finished background job until the pool is closed.
func (s *Server) WatchEvents() {
	s.watchWg.Add(1)
	go func() {
		defer s.watchWg.Done()
		for ev := range s.Pool.Events() {
			if ev.Err != nil {
				s.Logger.Error("Background job failed", "job_id", ev.ID, "job", ev.Name, "error", ev.Err,
					"duration_ms", ev.Duration.Milliseconds())
				continue
			}
			s.Logger.Info("Background job finished", "job_id", ev.ID, "job", ev.Name,
				"duration_ms", ev.Duration.Milliseconds())
		}
	}()
}

// Shutdown waits for queued and running jobs, then closes the history
// database.
func (s *Server) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.Pool.Close()
		s.watchWg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		s.Pool.Cancel()
		<-done
	}

	if s.History != nil {
		return s.History.Close()
	}
	return nil
}
