package gallery

import (
	"mime"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/conduit-lang/gallery/internal/demos"
	"github.com/conduit-lang/gallery/internal/fsutil"
	"github.com/conduit-lang/gallery/internal/watch"
)

// UpdateEvent is the client channel announcing an HTML demo change
const UpdateEvent = "demos:update"

// UpdatePayload is the UpdateEvent body
type UpdatePayload struct {
	ID string `json:"id"`
}

// Server is the development server surface the plugin hooks into
type Server interface {
	// EmitChange reports id through the file-change channel
	EmitChange(id string)
	// Send pushes a custom event to all connected clients
	Send(event string, data any)
	// OnConnection registers a callback for new client connections
	OnConnection(fn func())
}

// ErrorReporter is implemented by servers that surface background failures
type ErrorReporter interface {
	ReportError(err error)
}

// ConfigureServer attaches the plugin to the development server
func (p *Plugin) ConfigureServer(server Server) {
	p.mutex.Lock()
	p.server = server
	p.mutex.Unlock()

	server.OnConnection(func() {
		p.mutex.Lock()
		p.clients = true
		p.mutex.Unlock()
	})
}

// HandleEvent reacts to one filesystem event from the demos watcher.
// Creations, removals and config file writes reschedule a rescan; plain
// content writes do not change the demo list. Events inside an HTML demo
// are also pushed to connected clients.
func (p *Plugin) HandleEvent(ev watch.Event) {
	p.mutex.RLock()
	demosDir := p.demosDir
	server := p.server
	clients := p.clients
	configs := p.configs
	p.mutex.RUnlock()

	if demosDir == "" || !filepath.IsAbs(ev.Path) {
		return
	}
	if inside, _ := fsutil.IsWithin(demosDir, ev.Path); !inside {
		return
	}

	if ev.Op != watch.OpChange || filepath.Base(ev.Path) == demos.ConfigFileName {
		p.ScheduleRegenerate()
	}

	if !clients || server == nil {
		return
	}
	for _, config := range configs {
		if config.Type != demos.KindHTML {
			continue
		}
		if inside, _ := fsutil.IsSubPath(config.Dir, ev.Path); inside {
			p.logger.Debug("html demo changed", zap.String("id", config.ID), zap.String("path", ev.Path))
			server.Send(UpdateEvent, UpdatePayload{ID: config.ID})
		}
	}
}

// Middleware answers GET requests for files of HTML demos with the raw file
// bytes, bypassing the HTML processing of the host. Everything else passes
// through.
func (p *Plugin) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || !strings.HasPrefix(r.URL.Path, "/"+DemosDirName) {
			next.ServeHTTP(w, r)
			return
		}

		file, ok := p.demoFile(r.URL.Path)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		data, err := os.ReadFile(file)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}

		if ctype := mime.TypeByExtension(filepath.Ext(file)); ctype != "" {
			w.Header().Set("Content-Type", ctype)
		}
		w.Header().Set("Cache-Control", "no-cache")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write(data); err != nil {
			p.logger.Warn("failed to write demo file", zap.String("path", file), zap.Error(err))
		}
	})
}

// demoFile maps a request path to a file below an HTML demo directory
func (p *Plugin) demoFile(urlPath string) (string, bool) {
	p.mutex.RLock()
	root := p.root
	configs := p.configs
	p.mutex.RUnlock()

	if root == "" {
		return "", false
	}

	file := filepath.Join(root, filepath.FromSlash(path.Clean(urlPath)))
	for _, config := range configs {
		if config.Type != demos.KindHTML {
			continue
		}
		if inside, _ := fsutil.IsSubPath(config.Dir, file); inside {
			return file, fsutil.IsFile(file)
		}
	}
	return "", false
}
