// Package builder drives the gallery plugin through a production build.
package builder

import (
	"context"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/conduit-lang/gallery/internal/demos"
	"github.com/conduit-lang/gallery/internal/emit"
	"github.com/conduit-lang/gallery/internal/fsutil"
	"github.com/conduit-lang/gallery/internal/gallery"
	"github.com/conduit-lang/gallery/internal/virtualmodule"
)

const (
	// ModuleFileName is the output name of the bundled virtual module
	ModuleFileName = "demos.js"

	// PublicDirName is copied verbatim into directory output
	PublicDirName = "public"
)

// Options configures a build
type Options struct {
	// Root is the absolute project root
	Root string

	// OutDir receives the output when Bucket is nil. Relative paths are
	// resolved against Root.
	OutDir string

	// Bucket, when set, receives the output instead of OutDir
	Bucket *emit.BucketConfig
}

// Result summarizes a finished build
type Result struct {
	Configs []demos.Config
	Module  string
	Files   int
	Output  string
}

// Builder runs the build-side plugin lifecycle
type Builder struct {
	options Options
	plugin  *gallery.Plugin
	emitter emit.Emitter
	logger  *zap.Logger
}

// New resolves the plugin configuration for a build and prepares the output
// target
func New(options Options, plugin *gallery.Plugin, logger *zap.Logger) (*Builder, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	if err := plugin.ConfigResolved(gallery.ResolvedConfig{
		Root:    options.Root,
		Command: gallery.CommandBuild,
	}); err != nil {
		return nil, fmt.Errorf("failed to resolve configuration: %w", err)
	}

	b := &Builder{options: options, plugin: plugin, logger: logger}

	if options.Bucket != nil {
		emitter, err := emit.NewBucketEmitter(*options.Bucket)
		if err != nil {
			return nil, err
		}
		b.emitter = emitter
		return b, nil
	}

	if options.OutDir == "" {
		return nil, fmt.Errorf("output directory is required")
	}
	if !filepath.IsAbs(options.OutDir) {
		b.options.OutDir = filepath.Join(plugin.Root(), options.OutDir)
	}
	b.emitter = &emit.DirEmitter{OutDir: b.options.OutDir}

	return b, nil
}

// WithEmitter replaces the output target
func (b *Builder) WithEmitter(emitter emit.Emitter) *Builder {
	b.emitter = emitter
	return b
}

// Build scans the demos, writes the module and re-emits HTML demo assets
func (b *Builder) Build(ctx context.Context) (*Result, error) {
	if err := b.plugin.BuildStart(); err != nil {
		return nil, fmt.Errorf("scan failed: %w", err)
	}

	id, _ := b.plugin.ResolveID(virtualmodule.PublicID)
	module, ok := b.plugin.Load(id)
	if !ok {
		return nil, fmt.Errorf("virtual module %s did not load", virtualmodule.PublicID)
	}

	if err := b.emitter.EmitFile(ctx, ModuleFileName, []byte(module)); err != nil {
		return nil, fmt.Errorf("failed to write module: %w", err)
	}

	if _, ok := b.emitter.(*emit.DirEmitter); ok {
		if err := b.copyPublic(); err != nil {
			return nil, err
		}
	}

	configs, ready := b.plugin.BuildContext().Configs()
	if !ready {
		return nil, fmt.Errorf("build context was not populated")
	}

	files, err := emit.NewReemitter(b.emitter, b.logger.Named("emit")).Run(ctx, configs)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Configs: configs,
		Module:  module,
		Files:   files,
		Output:  b.output(),
	}

	b.logger.Info("build complete",
		zap.Int("demos", len(configs)),
		zap.Int("files", files),
		zap.String("output", result.Output),
	)

	return result, nil
}

func (b *Builder) copyPublic() error {
	public := filepath.Join(b.plugin.Root(), PublicDirName)
	if !fsutil.IsDirectory(public) {
		return nil
	}
	if err := fsutil.CopyDir(public, b.options.OutDir); err != nil {
		return fmt.Errorf("failed to copy public directory: %w", err)
	}
	return nil
}

func (b *Builder) output() string {
	if b.options.Bucket != nil {
		return "s3://" + b.options.Bucket.Bucket + "/" + b.options.Bucket.Prefix
	}
	return b.options.OutDir
}
