// Package gallery keeps the "virtual:demos" module in step with the demos
// directory across the development server and build lifecycles.
package gallery

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/conduit-lang/gallery/internal/demos"
	"github.com/conduit-lang/gallery/internal/fsutil"
	"github.com/conduit-lang/gallery/internal/virtualmodule"
)

// Name identifies the plugin in host diagnostics
const Name = "demos-plugin"

// DemosDirName is the directory under the project root holding the demos
const DemosDirName = "demos"

// DefaultDebounce is the window coalescing bursts of filesystem events
const DefaultDebounce = 100 * time.Millisecond

var (
	// ErrNotConfigured is returned by hooks that need a resolved configuration
	ErrNotConfigured = errors.New("gallery plugin is not configured")

	// ErrAlreadyConfigured is returned when the configuration is resolved twice
	ErrAlreadyConfigured = errors.New("gallery plugin is already configured")
)

// Command is the host mode
type Command string

const (
	CommandServe Command = "serve"
	CommandBuild Command = "build"
)

// ResolvedConfig is what the host knows once its configuration is final
type ResolvedConfig struct {
	Root    string
	Command Command
}

// State is the plugin lifecycle position
type State int

const (
	StateUninitialized State = iota
	StateConfigured
	StateScanning
	StateIdle
)

// String returns the state name
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateConfigured:
		return "configured"
	case StateScanning:
		return "scanning"
	case StateIdle:
		return "idle"
	default:
		return "unknown"
	}
}

// Plugin owns the current demo list and the module text generated from it.
// Both are only ever replaced wholesale.
type Plugin struct {
	mutex    sync.RWMutex
	state    State
	root     string
	demosDir string
	command  Command
	configs  []demos.Config
	content  string
	server   Server
	build    *BuildContext

	// scans run one at a time
	scanMutex sync.Mutex

	clients   bool
	debounce  time.Duration
	debouncer *fsutil.Debouncer[struct{}]
	logger    *zap.Logger
}

// Option configures a Plugin
type Option func(*Plugin)

// WithLogger sets the plugin logger
func WithLogger(logger *zap.Logger) Option {
	return func(p *Plugin) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithDebounce overrides DefaultDebounce
func WithDebounce(d time.Duration) Option {
	return func(p *Plugin) {
		p.debounce = d
	}
}

// New creates an unconfigured plugin holding the default (empty) module
func New(opts ...Option) *Plugin {
	p := &Plugin{
		state:    StateUninitialized,
		configs:  []demos.Config{},
		content:  virtualmodule.GenerateDefault(),
		debounce: DefaultDebounce,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}

	p.debouncer = fsutil.NewDebouncer(p.debounce, func(struct{}) {
		if err := p.Regenerate(false); err != nil {
			p.logger.Error("failed to regenerate demos module", zap.Error(err))
			p.reportError(err)
		}
	})

	return p
}

// ConfigResolved records the project root and derives the demos directory.
// It does not scan.
func (p *Plugin) ConfigResolved(cfg ResolvedConfig) error {
	if !filepath.IsAbs(cfg.Root) {
		return fmt.Errorf("project root must be absolute: %q", cfg.Root)
	}
	if cfg.Command != CommandServe && cfg.Command != CommandBuild {
		return fmt.Errorf("unknown command %q", cfg.Command)
	}

	p.mutex.Lock()
	defer p.mutex.Unlock()

	if p.state != StateUninitialized {
		return ErrAlreadyConfigured
	}

	p.root = filepath.Clean(cfg.Root)
	p.demosDir = filepath.Join(p.root, DemosDirName)
	p.command = cfg.Command
	if cfg.Command == CommandBuild {
		p.build = &BuildContext{}
	}
	p.state = StateConfigured

	p.logger.Debug("configuration resolved",
		zap.String("root", p.root),
		zap.String("demos", p.demosDir),
		zap.String("command", string(p.command)),
	)

	return nil
}

// BuildStart performs the initial scan. No change notification is sent.
func (p *Plugin) BuildStart() error {
	return p.Regenerate(true)
}

// ResolveID maps the public module identifier to its resolved form
func (p *Plugin) ResolveID(id string) (string, bool) {
	if id == virtualmodule.PublicID {
		return virtualmodule.ResolvedID, true
	}
	return "", false
}

// Load returns the current module text for the resolved identifier
func (p *Plugin) Load(id string) (string, bool) {
	if id != virtualmodule.ResolvedID {
		return "", false
	}

	p.mutex.RLock()
	defer p.mutex.RUnlock()
	return p.content, true
}

// Regenerate rescans the demos directory and replaces the module text when
// it changed. Unless first is set, a change is announced to the server.
func (p *Plugin) Regenerate(first bool) error {
	p.scanMutex.Lock()
	defer p.scanMutex.Unlock()

	p.mutex.Lock()
	if p.state == StateUninitialized {
		p.mutex.Unlock()
		return ErrNotConfigured
	}
	p.state = StateScanning
	root, demosDir, command := p.root, p.demosDir, p.command
	p.mutex.Unlock()

	start := time.Now()
	configs, err := demos.Scan(demosDir, root, command == CommandBuild,
		demos.WithLogger(p.logger.Named("demos")))
	if err != nil {
		p.setState(StateIdle)
		return fmt.Errorf("failed to scan demos: %w", err)
	}

	content := virtualmodule.Generate(configs)

	p.mutex.Lock()
	p.configs = configs
	if p.build != nil {
		p.build.set(configs)
	}
	changed := content != p.content
	if changed {
		p.content = content
	}
	server := p.server
	p.state = StateIdle
	p.mutex.Unlock()

	p.logger.Debug("demos module regenerated",
		zap.Int("demos", len(configs)),
		zap.Bool("changed", changed),
		zap.Duration("duration", time.Since(start)),
	)

	if changed && !first && server != nil {
		server.EmitChange(virtualmodule.ResolvedID)
	}

	return nil
}

// ScheduleRegenerate requests a debounced Regenerate
func (p *Plugin) ScheduleRegenerate() {
	p.debouncer.Trigger(struct{}{})
}

// Configs returns the list from the latest scan
func (p *Plugin) Configs() []demos.Config {
	p.mutex.RLock()
	defer p.mutex.RUnlock()

	out := make([]demos.Config, len(p.configs))
	copy(out, p.configs)
	return out
}

// State returns the lifecycle position
func (p *Plugin) State() State {
	p.mutex.RLock()
	defer p.mutex.RUnlock()
	return p.state
}

// Root returns the project root, empty until configured
func (p *Plugin) Root() string {
	p.mutex.RLock()
	defer p.mutex.RUnlock()
	return p.root
}

// DemosDir returns the watched demos directory, empty until configured
func (p *Plugin) DemosDir() string {
	p.mutex.RLock()
	defer p.mutex.RUnlock()
	return p.demosDir
}

// BuildContext returns the handoff for the asset re-emission pass. It is nil
// outside build mode.
func (p *Plugin) BuildContext() *BuildContext {
	p.mutex.RLock()
	defer p.mutex.RUnlock()
	return p.build
}

// Close cancels any pending regeneration
func (p *Plugin) Close() {
	p.debouncer.Stop()
}

func (p *Plugin) setState(s State) {
	p.mutex.Lock()
	p.state = s
	p.mutex.Unlock()
}

func (p *Plugin) reportError(err error) {
	p.mutex.RLock()
	server := p.server
	p.mutex.RUnlock()

	if reporter, ok := server.(ErrorReporter); ok {
		reporter.ReportError(err)
	}
}

// BuildContext carries the scanned list from the plugin to the later
// re-emission stage of the same build
type BuildContext struct {
	mutex   sync.RWMutex
	configs []demos.Config
	ready   bool
}

// Configs returns the list from the most recent build scan
func (b *BuildContext) Configs() ([]demos.Config, bool) {
	b.mutex.RLock()
	defer b.mutex.RUnlock()

	out := make([]demos.Config, len(b.configs))
	copy(out, b.configs)
	return out, b.ready
}

func (b *BuildContext) set(configs []demos.Config) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.configs = configs
	b.ready = true
}
