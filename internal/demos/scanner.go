package demos

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/conduit-lang/gallery/internal/fsutil"
	"github.com/conduit-lang/gallery/internal/jsstring"
)

var errNotObject = errors.New("config file is not a JSON object")

// Option configures a scan
type Option func(*scanner)

// WithLogger sets the logger used for per-demo diagnostics
func WithLogger(logger *zap.Logger) Option {
	return func(s *scanner) {
		if logger != nil {
			s.logger = logger
		}
	}
}

type scanner struct {
	demosRoot   string
	projectRoot string
	production  bool
	logger      *zap.Logger
}

// Scan walks the immediate children of demosRoot and returns one Config per
// directory that holds an HTML or component entry file, in directory order.
//
// A missing demosRoot yields an empty list. A malformed config file is logged
// and the demo falls back to derived fields. Failing to stat an entry file
// for any reason other than absence aborts the scan.
func Scan(demosRoot, projectRoot string, production bool, opts ...Option) ([]Config, error) {
	s := &scanner{
		demosRoot:   demosRoot,
		projectRoot: projectRoot,
		production:  production,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	configs := make([]Config, 0)

	entries, err := os.ReadDir(demosRoot)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return configs, nil
		}
		return nil, fmt.Errorf("failed to read demos directory %s: %w", demosRoot, err)
	}

	for _, entry := range entries {
		dir := filepath.Join(demosRoot, entry.Name())
		if !fsutil.IsDirectory(dir) {
			continue
		}

		config, ok, err := s.scanDir(dir)
		if err != nil {
			return nil, err
		}
		if ok {
			configs = append(configs, config)
		}
	}

	s.logger.Debug("scanned demos",
		zap.String("root", demosRoot),
		zap.Bool("production", production),
		zap.Int("count", len(configs)),
	)

	return configs, nil
}

func (s *scanner) scanDir(dir string) (Config, bool, error) {
	config := Config{
		ID:  filepath.Base(dir),
		Dir: dir,
	}
	s.applyConfigFile(&config, filepath.Join(dir, ConfigFileName))

	// Excluded demos are not probed any further
	if config.OnlyDev && s.production {
		return Config{}, false, nil
	}

	htmlPath := filepath.Join(dir, HTMLEntryName)
	isHTML, err := entryExists(htmlPath)
	if err != nil {
		return Config{}, false, err
	}
	if isHTML {
		base := s.projectRoot
		if s.production {
			base = s.demosRoot
		}
		rel, err := filepath.Rel(base, htmlPath)
		if err != nil {
			return Config{}, false, fmt.Errorf("failed to relativize %s: %w", htmlPath, err)
		}
		config.Type = KindHTML
		config.HTML = fsutil.ToSlash(rel)
		return config, true, nil
	}

	componentPath := filepath.Join(dir, ComponentEntryName)
	isComponent, err := entryExists(componentPath)
	if err != nil {
		return Config{}, false, err
	}
	if isComponent {
		rel, err := filepath.Rel(s.demosRoot, componentPath)
		if err != nil {
			return Config{}, false, fmt.Errorf("failed to relativize %s: %w", componentPath, err)
		}
		importPath, err := filepath.Rel(s.projectRoot, componentPath)
		if err != nil {
			return Config{}, false, fmt.Errorf("failed to relativize %s: %w", componentPath, err)
		}
		config.Type = KindComponent
		config.Component = fsutil.ToSlash(rel)
		config.ImportFn = Code("() => import(" + jsstring.Quote("/"+fsutil.ToSlash(importPath)) + ")")
		return config, true, nil
	}

	return Config{}, false, nil
}

// applyConfigFile merges the optional config file into config. Problems are
// diagnostics only.
func (s *scanner) applyConfigFile(config *Config, path string) {
	if !fsutil.IsFile(path) {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		s.logger.Error("failed to read demo config file", zap.String("path", path), zap.Error(err))
		return
	}

	fc, extra, err := parseConfigFile(data)
	if err != nil {
		s.logger.Error("failed to parse demo config file", zap.String("path", path), zap.Error(err))
		return
	}

	config.Title = fc.Title
	config.Description = fc.Description
	if fc.OnlyDev != nil {
		config.OnlyDev = *fc.OnlyDev
	}
	config.Extra = extra
}

// entryExists reports whether path is a regular file. Absence is not an error.
func entryExists(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check entry file %s: %w", path, err)
	}
	return info.Mode().IsRegular(), nil
}
