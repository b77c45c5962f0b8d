package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	// No config file: defaults apply
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, 5173, cfg.Server.Port)
	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, "dist", cfg.Build.OutDir)
	assert.False(t, cfg.Build.Bucket.Enabled())
	assert.Empty(t, cfg.Watch.Ignore)
}

func TestLoadWithConfigFile(t *testing.T) {
	root := t.TempDir()
	configContent := `
server:
  port: 8080
  host: 0.0.0.0
build:
  out_dir: public/site
  bucket:
    endpoint: localhost:9000
    name: gallery
    prefix: preview
    use_ssl: false
watch:
  ignore:
    - "**/*.tmp"
`
	require.NoError(t, os.WriteFile(filepath.Join(root, "gallery.yaml"), []byte(configContent), 0644))

	cfg, err := Load(root)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, "public/site", cfg.Build.OutDir)
	assert.True(t, cfg.Build.Bucket.Enabled())
	assert.Equal(t, "localhost:9000", cfg.Build.Bucket.Endpoint)
	assert.Equal(t, "preview", cfg.Build.Bucket.Prefix)
	assert.False(t, cfg.Build.Bucket.UseSSL)
	assert.Equal(t, []string{"**/*.tmp"}, cfg.Watch.Ignore)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "gallery.yml"), []byte("server:\n  port: 8080\n"), 0644))

	t.Setenv("GALLERY_SERVER_PORT", "9090")
	t.Setenv("GALLERY_BUILD_OUT_DIR", "out")

	cfg, err := Load(root)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "out", cfg.Build.OutDir)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"port out of range", "server:\n  port: 70000\n"},
		{"bucket without endpoint", "build:\n  bucket:\n    name: gallery\n"},
		{"malformed yaml", "server: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			require.NoError(t, os.WriteFile(filepath.Join(root, "gallery.yaml"), []byte(tt.content), 0644))

			_, err := Load(root)
			assert.Error(t, err)
		})
	}
}

func TestFindProjectRoot(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "gallery.yaml"), []byte(""), 0644))

	nested := filepath.Join(root, "src", "deep", "nested")
	require.NoError(t, os.MkdirAll(nested, 0755))

	found, err := FindProjectRoot(nested)
	require.NoError(t, err)
	assert.Equal(t, root, found)
}

func TestFindProjectRoot_DemosDirectory(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "demos", "foo"), 0755))

	found, err := FindProjectRoot(filepath.Join(root, "demos", "foo"))
	require.NoError(t, err)
	assert.Equal(t, root, found)
}

func TestFindProjectRootNotInProject(t *testing.T) {
	_, err := FindProjectRoot(t.TempDir())
	assert.Error(t, err)
}
