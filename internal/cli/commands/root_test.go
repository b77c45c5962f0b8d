package commands

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func newProject(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "demos", "foo", "index.html"), "<h1>foo</h1>")
	writeFile(t, filepath.Join(root, "demos", "foo", "app.js"), "console.log('foo')")
	writeFile(t, filepath.Join(root, "demos", "bar", "index.vue"), "<template />")
	writeFile(t, filepath.Join(root, "demos", "bar", ".config.json"), `{"title":"Bar","tags":["ui"]}`)
	writeFile(t, filepath.Join(root, "demos", "wip", "index.html"), "wip")
	writeFile(t, filepath.Join(root, "demos", "wip", ".config.json"), `{"onlyDev":true}`)
	return root
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append(args, "--no-color"))
	err := cmd.Execute()
	return out.String(), err
}

func TestNewRootCommand(t *testing.T) {
	cmd := NewRootCommand()

	assert.Equal(t, "gallery", cmd.Use)
	assert.NotEmpty(t, cmd.Short)
	assert.NotEmpty(t, cmd.Long)

	names := make([]string, 0)
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}
	for _, expected := range []string{"version", "serve", "build", "list"} {
		assert.Contains(t, names, expected)
	}

	for _, flag := range []string{"root", "verbose", "no-color"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(flag), flag)
	}
}

func TestVersionCommand(t *testing.T) {
	Version = "1.0.0-test"
	GitCommit = "abc123"
	defer func() { Version, GitCommit = "dev", "unknown" }()

	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "Gallery version: 1.0.0-test")
	assert.Contains(t, out, "Git commit: abc123")
	assert.Contains(t, out, "Go version: ")
}

func TestServeCommand_Flags(t *testing.T) {
	cmd := NewServeCommand(&globalOptions{})

	assert.Equal(t, "serve", cmd.Use)
	assert.Contains(t, cmd.Aliases, "watch")

	port := cmd.Flags().Lookup("port")
	require.NotNil(t, port)
	assert.Equal(t, "5173", port.DefValue)
	assert.NotNil(t, cmd.Flags().Lookup("host"))
}

func TestServeCommand_RejectsInvalidConfig(t *testing.T) {
	root := newProject(t)
	writeFile(t, filepath.Join(root, "gallery.yaml"), "server:\n  port: -1\n")

	_, err := run(t, "serve", "--root", root)
	assert.Error(t, err)
}

func TestListCommand(t *testing.T) {
	root := newProject(t)

	out, err := run(t, "list", "--root", root)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 5)
	assert.Contains(t, lines[0], "ENTRY")
	assert.Contains(t, lines[2], "bar")
	assert.Contains(t, lines[2], "component")
	assert.Contains(t, lines[2], "Bar")
	assert.Contains(t, lines[2], "bar/index.vue")
	assert.Contains(t, lines[3], "demos/foo/index.html")
	assert.Contains(t, lines[4], "wip")
}

func TestListCommand_ProductionJSON(t *testing.T) {
	root := newProject(t)

	out, err := run(t, "list", "--root", root, "--production", "--json")
	require.NoError(t, err)

	var listed []listedDemo
	require.NoError(t, json.Unmarshal([]byte(out), &listed))
	require.Len(t, listed, 2)

	assert.Equal(t, "bar", listed[0].ID)
	require.NotNil(t, listed[0].Title)
	assert.Equal(t, "Bar", *listed[0].Title)
	assert.Equal(t, []any{"ui"}, listed[0].Extra["tags"])

	assert.Equal(t, "foo", listed[1].ID)
	assert.Equal(t, "foo/index.html", listed[1].Entry)
}

func TestListCommand_Module(t *testing.T) {
	out, err := run(t, "list", "--root", newProject(t), "--module")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "export const configs = [\n"))
	assert.Contains(t, out, "id: 'foo'")
}

func TestListCommand_NoDemos(t *testing.T) {
	out, err := run(t, "list", "--root", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "No demos found")
}

func TestBuildCommand_JSONReport(t *testing.T) {
	root := newProject(t)

	out, err := run(t, "build", "--root", root, "--json")
	require.NoError(t, err)

	var report buildReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, filepath.Join(root, "dist"), report.Output)
	assert.Equal(t, []string{"bar", "foo"}, report.Demos)
	assert.Equal(t, 2, report.Files)

	_, err = os.Stat(filepath.Join(root, "dist", "demos.js"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(root, "dist", "foo", "app.js"))
	assert.NoError(t, err)
}

func TestBuildCommand_OutDirFlag(t *testing.T) {
	root := newProject(t)
	writeFile(t, filepath.Join(root, "gallery.yaml"), "build:\n  out_dir: from-config\n")
	outDir := filepath.Join(t.TempDir(), "site")

	out, err := run(t, "build", "--root", root, "--out-dir", outDir)
	require.NoError(t, err)
	assert.Contains(t, out, "Build successful")
	assert.Contains(t, out, "Output: "+outDir)

	_, err = os.Stat(filepath.Join(outDir, "foo", "index.html"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(root, "from-config"))
	assert.True(t, os.IsNotExist(err))
}
