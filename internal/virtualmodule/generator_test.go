package virtualmodule

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conduit-lang/gallery/internal/demos"
)

func strPtr(s string) *string { return &s }

func sampleConfigs() []demos.Config {
	return []demos.Config{
		{
			ID:   "foo",
			Type: demos.KindHTML,
			Dir:  "/project/demos/foo",
			HTML: "demos/foo/index.html",
		},
		{
			ID:        "bar",
			Type:      demos.KindComponent,
			Title:     strPtr("Bar"),
			Dir:       "/project/demos/bar",
			Component: "bar/index.vue",
			ImportFn:  "() => import('/demos/bar/index.vue')",
		},
	}
}

func TestGenerateDefault(t *testing.T) {
	assert.Equal(t, "export const configs = [\n\n]\n", GenerateDefault())
	assert.Equal(t, Generate(nil), Generate([]demos.Config{}))
}

func TestGenerate_Layout(t *testing.T) {
	want := `export const configs = [
  {
    id: 'foo',
    type: 'html',
    title: undefined,
    description: undefined,
    html: 'demos/foo/index.html'
  },
  {
    id: 'bar',
    type: 'component',
    title: 'Bar',
    description: undefined,
    component: () => import('/demos/bar/index.vue')
  }
]
`
	assert.Equal(t, want, Generate(sampleConfigs()))
}

func TestGenerate_OmitsBuildPlumbing(t *testing.T) {
	out := Generate(sampleConfigs())

	assert.NotContains(t, out, "/project/demos")
	assert.NotContains(t, out, "bar/index.vue'")
	assert.NotContains(t, out, "importFnText")
	assert.NotContains(t, out, "'() => import")
}

func TestGenerate_Deterministic(t *testing.T) {
	configs := sampleConfigs()
	configs[0].Extra = map[string]any{"zeta": 1.0, "alpha": []any{"x"}, "with-dash": true}

	first := Generate(configs)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Generate(configs))
	}
	assert.Contains(t, first, "    alpha: [\"x\"],\n    'with-dash': true,\n    zeta: 1\n")
}

func TestGenerate_DetectsEmittedFieldChanges(t *testing.T) {
	base := Generate(sampleConfigs())

	mutations := map[string]func([]demos.Config){
		"title":       func(c []demos.Config) { c[0].Title = strPtr("Foo") },
		"description": func(c []demos.Config) { c[1].Description = strPtr("desc") },
		"html path":   func(c []demos.Config) { c[0].HTML = "foo/index.html" },
		"import text": func(c []demos.Config) { c[1].ImportFn = "() => import('/demos/baz/index.vue')" },
		"id":          func(c []demos.Config) { c[0].ID = "foo2" },
		"order":       func(c []demos.Config) { c[0], c[1] = c[1], c[0] },
	}

	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			configs := sampleConfigs()
			mutate(configs)
			assert.NotEqual(t, base, Generate(configs))
		})
	}
}

func TestGenerate_IgnoresNonEmittedFields(t *testing.T) {
	base := Generate(sampleConfigs())

	configs := sampleConfigs()
	configs[0].Dir = "/elsewhere/foo"
	configs[1].Component = "other/index.vue"
	configs[1].OnlyDev = true

	assert.Equal(t, base, Generate(configs))
}

func TestGenerate_QuoteInDirectoryName(t *testing.T) {
	root := t.TempDir()
	demosRoot := filepath.Join(root, "demos")
	for _, name := range []string{"it's/index.vue", "o'clock/index.html"} {
		path := filepath.Join(demosRoot, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(""), 0644))
	}

	configs, err := demos.Scan(demosRoot, root, false)
	require.NoError(t, err)
	require.Len(t, configs, 2)

	module := Generate(configs)
	assert.Contains(t, module, `id: 'it\'s'`)
	assert.Contains(t, module, `component: () => import('/demos/it\'s/index.vue')`)
	assert.Contains(t, module, `html: 'demos/o\'clock/index.html'`)
	assert.NotContains(t, module, "it's")
	assert.NotContains(t, module, "o'clock")
}

func TestIdentifiers(t *testing.T) {
	assert.Equal(t, "virtual:demos", PublicID)
	assert.Equal(t, "\x00virtual:demos", ResolvedID)
}
