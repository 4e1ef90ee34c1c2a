// Package web serves the read-mostly HTTP view of the day: the chained
// schedule, capacity, the session log and the daily report. A background loop
// ticks once a second and a file watcher keeps the cached snapshot fresh when
// another process writes the database.
package web

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/hpungsan/daychain/internal/config"
	"github.com/hpungsan/daychain/internal/logging"
	"github.com/hpungsan/daychain/internal/ops"
	"github.com/hpungsan/daychain/internal/watch"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

// TickInterval is how often the background loop runs.
const TickInterval = time.Second

// Server is the HTTP server plus the background loops feeding it.
type Server struct {
	*http.Server
	handlers *Handlers
}

// NewServer creates and configures the HTTP server for the daychain web UI.
func NewServer(env *ops.Env, version string) (*Server, error) {
	if env.Config == nil {
		env.Config = config.DefaultConfig()
	}
	logger := env.Logger
	if logger == nil {
		logger = logging.Logger()
	}

	// Strip the "templates/" and "static/" prefixes
	templateSub, err := fs.Sub(templateFS, "templates")
	if err != nil {
		return nil, fmt.Errorf("template sub-FS: %w", err)
	}
	staticSub, err := fs.Sub(staticFS, "static")
	if err != nil {
		return nil, fmt.Errorf("static sub-FS: %w", err)
	}

	h := &Handlers{
		env:      env,
		renderer: NewRenderer(templateSub, version, logger),
	}

	mux := http.NewServeMux()

	// Routes using Go 1.22+ pattern syntax
	mux.HandleFunc("GET /{$}", h.HandleDashboard)
	mux.HandleFunc("GET /today", h.HandleToday)
	mux.HandleFunc("GET /capacity", h.HandleCapacity)
	mux.HandleFunc("GET /sessions", h.HandleSessions)
	mux.HandleFunc("GET /report", h.HandleReport)
	mux.HandleFunc("GET /notifications", h.HandleNotifications)

	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(staticSub)))

	return &Server{
		Server: &http.Server{
			Addr:              fmt.Sprintf("%s:%d", env.Config.WebBind, env.Config.WebPort),
			Handler:           securityHeaders(mux),
			ReadHeaderTimeout: 10 * time.Second,
		},
		handlers: h,
	}, nil
}

// securityHeaders adds security-related HTTP headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Security-Policy", "default-src 'self'; script-src 'self'; style-src 'self'")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		next.ServeHTTP(w, r)
	})
}

// Background runs the tick loop and the database watcher until ctx is done.
func (s *Server) Background(ctx context.Context) {
	h := s.handlers
	log := h.logger()

	if err := h.reload(ctx); err != nil {
		log.Warn("initial snapshot load failed", "error", err)
	}

	changes, err := watch.Watch(ctx, h.env.BaseDir, watch.Options{Logger: log})
	if err != nil {
		// Without the watcher the cache still refreshes on every tick change.
		log.Warn("database watcher unavailable", "error", err)
	}

	ticker := time.NewTicker(TickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.tick(ctx)
		case evt, ok := <-changes:
			if !ok {
				changes = nil
				continue
			}
			log.Debug("database changed", "files", evt.Files)
			if err := h.reload(ctx); err != nil {
				log.Warn("reload failed", "error", err)
			}
		}
	}
}

// Run starts the HTTP server and handles graceful shutdown on SIGINT/SIGTERM.
func (s *Server) Run() error {
	log := s.handlers.logger()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Background(ctx)

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.ListenAndServe()
	}()

	log.Info("web server listening", "url", "http://"+s.Addr)

	if strings.Contains(s.Addr, "0.0.0.0") || strings.Contains(s.Addr, "::") {
		log.Warn("server is binding to all interfaces and may be accessible from the network")
	}

	select {
	case err := <-errCh:
		return err
	case <-sigCh:
		log.Info("shutting down")
		cancel()
		shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		return s.Shutdown(shutdownCtx)
	}
}
