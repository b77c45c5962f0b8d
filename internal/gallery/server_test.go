package gallery

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestMiddleware(t *testing.T) {
	root := newProject(t)
	writeFile(t, filepath.Join(root, "demos", "foo", "js", "app.js"), "console.log('foo')")
	p, _ := newServePlugin(t, root)

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		w.Write([]byte("next"))
	})
	handler := p.Middleware(next)

	tests := []struct {
		name       string
		method     string
		path       string
		wantStatus int
		wantBody   string
		wantType   string
	}{
		{"html entry served raw", http.MethodGet, "/demos/foo/index.html", http.StatusOK, "<h1>foo</h1>", "text/html; charset=utf-8"},
		{"nested asset", http.MethodGet, "/demos/foo/js/app.js", http.StatusOK, "console.log('foo')", ""},
		{"stylesheet", http.MethodGet, "/demos/foo/style.css", http.StatusOK, "h1 { color: red }", "text/css; charset=utf-8"},
		{"component demo passes through", http.MethodGet, "/demos/bar/index.vue", http.StatusTeapot, "next", ""},
		{"missing file passes through", http.MethodGet, "/demos/foo/missing.png", http.StatusTeapot, "next", ""},
		{"demo directory passes through", http.MethodGet, "/demos/foo", http.StatusTeapot, "next", ""},
		{"non-GET passes through", http.MethodPost, "/demos/foo/index.html", http.StatusTeapot, "next", ""},
		{"other prefix passes through", http.MethodGet, "/src/main.ts", http.StatusTeapot, "next", ""},
		{"traversal is contained", http.MethodGet, "/demos/foo/../bar/.config.json", http.StatusTeapot, "next", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantBody, rec.Body.String())
			if tt.wantType != "" {
				assert.Equal(t, tt.wantType, rec.Header().Get("Content-Type"))
			}
		})
	}
}

func TestMiddleware_BeforeScan(t *testing.T) {
	p := New()
	defer p.Close()

	called := false
	handler := p.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	req := httptest.NewRequest(http.MethodGet, "/demos/foo/index.html", nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)
	require.True(t, called)
}

// brokenWriter accepts headers but fails every body write
type brokenWriter struct {
	header http.Header
	status int
}

func (b *brokenWriter) Header() http.Header {
	if b.header == nil {
		b.header = make(http.Header)
	}
	return b.header
}

func (b *brokenWriter) WriteHeader(status int) { b.status = status }

func (b *brokenWriter) Write([]byte) (int, error) {
	return 0, errors.New("connection reset by peer")
}

func TestMiddleware_LogsWriteFailure(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	p := New(WithLogger(zap.New(core)))
	t.Cleanup(p.Close)
	require.NoError(t, p.ConfigResolved(ResolvedConfig{Root: newProject(t), Command: CommandServe}))
	require.NoError(t, p.BuildStart())

	handler := p.Middleware(http.NotFoundHandler())
	w := &brokenWriter{}
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/demos/foo/index.html", nil))

	assert.Equal(t, http.StatusOK, w.status)
	entries := logs.FilterMessage("failed to write demo file").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Contains(t, fields["path"], filepath.Join("demos", "foo", "index.html"))
	assert.Equal(t, "connection reset by peer", fields["error"])
}
