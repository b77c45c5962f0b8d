package devserver

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/conduit-lang/gallery/internal/gallery"
	"github.com/conduit-lang/gallery/internal/reload"
	"github.com/conduit-lang/gallery/internal/watch"
)

//go:embed assets/client.js
var clientScript string

const (
	clientPath    = "/__gallery/client.js"
	websocketPath = "/__gallery/ws"
	modulePrefix  = "/@id/"

	// nullMarker stands in for the NUL byte of resolved ids inside URLs
	nullMarker = "__x00__"
)

// Config holds configuration for the development server
type Config struct {
	Root           string
	Host           string
	Port           int
	IgnorePatterns []string
}

// Server is the development host for the gallery plugin: it serves the
// project, the virtual module and the reload channel, and feeds filesystem
// events of the demos directory to the plugin.
type Server struct {
	config     Config
	plugin     *gallery.Plugin
	reload     *reload.Server
	watcher    *watch.Watcher
	router     chi.Router
	httpServer *http.Server
	listener   net.Listener
	logger     *zap.Logger
	wg         sync.WaitGroup
	stopOnce   sync.Once
}

// New resolves the plugin configuration for serving and attaches the plugin
// to a new server. The initial scan runs in Start.
func New(config Config, plugin *gallery.Plugin, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.Host == "" {
		config.Host = "localhost"
	}
	if len(config.IgnorePatterns) == 0 {
		config.IgnorePatterns = watch.DefaultIgnorePatterns
	}

	if err := plugin.ConfigResolved(gallery.ResolvedConfig{
		Root:    config.Root,
		Command: gallery.CommandServe,
	}); err != nil {
		return nil, fmt.Errorf("failed to resolve configuration: %w", err)
	}

	watcher, err := watch.NewWatcher(plugin.DemosDir(), config.IgnorePatterns, logger.Named("watch"))
	if err != nil {
		return nil, err
	}

	s := &Server{
		config:  config,
		plugin:  plugin,
		reload:  reload.NewServer(logger.Named("reload")),
		watcher: watcher,
		logger:  logger,
	}
	s.router = s.routes()

	plugin.ConfigureServer(s)

	return s, nil
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)
	r.Use(s.plugin.Middleware)

	r.Get(websocketPath, s.reload.HandleWebSocket)
	r.Get(clientPath, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
		if _, err := w.Write([]byte(clientScript)); err != nil {
			s.logger.Warn("failed to write reload client", zap.Error(err))
		}
	})
	r.Get(modulePrefix+"*", s.serveModule)
	r.Handle("/*", fileServer(s.plugin.Root(), s.logger))

	return r
}

// serveModule answers /@id/<id> with the module text the plugin loads for it
func (s *Server) serveModule(w http.ResponseWriter, r *http.Request) {
	id := strings.Replace(chi.URLParam(r, "*"), nullMarker, "\x00", 1)
	if resolved, ok := s.plugin.ResolveID(id); ok {
		id = resolved
	}

	content, ok := s.plugin.Load(id)
	if !ok {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	if _, err := w.Write([]byte(content)); err != nil {
		s.logger.Warn("failed to write module", zap.String("id", id), zap.Error(err))
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

// Handler returns the HTTP handler of the server
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts watching, runs the initial scan and begins listening.
// The watcher comes first so edits made during the scan are not missed.
func (s *Server) Start() error {
	if err := s.watcher.Start(); err != nil {
		return fmt.Errorf("failed to start file watcher: %w", err)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for ev := range s.watcher.Events() {
			s.plugin.HandleEvent(ev)
		}
	}()

	if err := s.plugin.BuildStart(); err != nil {
		s.watcher.Stop()
		return fmt.Errorf("initial scan failed: %w", err)
	}

	listener, err := net.Listen("tcp", net.JoinHostPort(s.config.Host, fmt.Sprint(s.config.Port)))
	if err != nil {
		s.watcher.Stop()
		return fmt.Errorf("failed to listen: %w", err)
	}
	s.listener = listener

	s.httpServer = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http server error", zap.Error(err))
		}
	}()

	s.logger.Info("development server ready",
		zap.String("url", "http://"+listener.Addr().String()),
		zap.String("demos", s.plugin.DemosDir()),
	)

	return nil
}

// Addr returns the listening address once started
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop shuts the server down
func (s *Server) Stop(ctx context.Context) error {
	var err error
	s.stopOnce.Do(func() {
		s.plugin.Close()
		s.reload.Close()

		if s.httpServer != nil {
			err = s.httpServer.Shutdown(ctx)
		}
		if werr := s.watcher.Stop(); werr != nil && err == nil {
			err = werr
		}
		s.wg.Wait()
	})
	return err
}

// EmitChange announces a changed module to connected clients
func (s *Server) EmitChange(id string) {
	s.logger.Info("module changed", zap.String("id", strings.TrimPrefix(id, "\x00")))
	s.reload.NotifyUpdate(id)
}

// Send pushes a custom event to connected clients
func (s *Server) Send(event string, data any) {
	s.reload.Send(event, data)
}

// OnConnection registers a callback for new client connections
func (s *Server) OnConnection(fn func()) {
	s.reload.OnConnection(fn)
}

// ReportError surfaces a background failure to connected clients
func (s *Server) ReportError(err error) {
	s.reload.NotifyError(&reload.ErrorInfo{Message: err.Error(), Phase: "scan"})
}
