// Package emit copies the supporting files of HTML demos into build output.
//
// HTML demos are standalone documents whose scripts, styles and media are
// referenced by relative URL, so a bundler never discovers them. Component
// demos are imported as code and are left to the bundler.
package emit

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/conduit-lang/gallery/internal/demos"
	"github.com/conduit-lang/gallery/internal/fsutil"
)

// Emitter receives build output assets. fileName is slash separated and
// relative to the output root.
type Emitter interface {
	EmitFile(ctx context.Context, fileName string, source []byte) error
}

// Reemitter walks HTML demo directories and emits their files
type Reemitter struct {
	emitter Emitter
	logger  *zap.Logger
}

// NewReemitter creates a re-emission pass writing to emitter
func NewReemitter(emitter Emitter, logger *zap.Logger) *Reemitter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reemitter{emitter: emitter, logger: logger}
}

// Run emits every file of every HTML demo except the per-demo config file as
// <demo dir basename>/<path relative to the demo dir>. It returns the number
// of emitted files and stops at the first error.
func (r *Reemitter) Run(ctx context.Context, configs []demos.Config) (int, error) {
	count := 0

	for _, config := range configs {
		if config.Type != demos.KindHTML {
			continue
		}

		n, err := r.emitDir(ctx, config.Dir)
		count += n
		if err != nil {
			return count, fmt.Errorf("failed to emit demo %s: %w", config.ID, err)
		}
	}

	r.logger.Info("re-emitted html demo assets", zap.Int("files", count))
	return count, nil
}

func (r *Reemitter) emitDir(ctx context.Context, dir string) (int, error) {
	name := filepath.Base(dir)
	count := 0

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.Name() == demos.ConfigFileName {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}

		source, err := os.ReadFile(path)
		if err != nil {
			return err
		}

		fileName := fsutil.ToSlash(filepath.Join(name, rel))
		if err := r.emitter.EmitFile(ctx, fileName, source); err != nil {
			return fmt.Errorf("failed to emit %s: %w", fileName, err)
		}

		r.logger.Debug("emitted asset", zap.String("file", fileName), zap.Int("bytes", len(source)))
		count++
		return nil
	})

	return count, err
}
