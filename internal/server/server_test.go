package server

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/livetemplate/dotweb/internal/config"
)

const cardPage = `$component Card
  *struct
    div.card
      h3 {$title}
      $slot
Card
  *title<string> "Hello"
  p Body
`

const brokenPage = "$component C\n  *struct\n    p {$v}\nC\n  *v<boolean> yes\n"

// writeFiles creates files (relative path → content) under dir.
func writeFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		p := filepath.Join(dir, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0644))
	}
}

func newTestServer(t *testing.T, dir string, cfg *config.Config) *Server {
	t.Helper()
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	s := New(dir, cfg, nil)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Discover())
	return s
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", target, nil))
	return w
}

func TestWebToPattern(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"index.web", "/"},
		{"counter.web", "/counter"},
		{"card.dw", "/card"},
		{"docs/intro.web", "/docs/intro"},
		{"docs/index.web", "/docs/"},
		{"a/b/c.dw", "/a/b/c"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := webToPattern(tt.input); got != tt.expected {
				t.Errorf("webToPattern(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestIsSource(t *testing.T) {
	assert.True(t, IsSource("index.web"))
	assert.True(t, IsSource("dir/card.dw"))
	assert.False(t, IsSource("notes.md"))
	assert.False(t, IsSource("web"))
}

func TestDiscover(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"index.web":         "p Home",
		"counter.web":       "p Counter",
		"about.dw":          "p About",
		"about.web":         "p Duplicate",
		"docs/index.web":    "p Docs",
		"docs/intro.dw":     "p Intro",
		"_partials/nav.web": "p Hidden",
		".cache/page.web":   "p Hidden",
		"drafts/wip.web":    "p Draft",
		"notes.txt":         "not a page",
	})

	s := newTestServer(t, dir, nil)

	var patterns []string
	files := map[string]string{}
	for _, r := range s.Routes() {
		patterns = append(patterns, r.Pattern)
		files[r.Pattern] = r.FilePath
	}

	assert.Equal(t, []string{"/", "/docs/", "/about", "/counter", "/docs/intro"}, patterns)
	assert.Equal(t, "about.dw", files["/about"], "first file in walk order wins")
	assert.Equal(t, filepath.Join("docs", "intro.dw"), files["/docs/intro"])
}

func TestDiscoverMissingRoot(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "missing"), nil, nil)
	defer s.Close()
	assert.Error(t, s.Discover())
}

func TestServePage(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"index.web":      cardPage,
		"docs/index.web": "p Docs home",
		"broken.web":     brokenPage,
		"style.css":      "body { color: red; }",
		"_private/x.css": "secret",
		config.FileName:  "server:\n  port: 9000\n",
	})

	cfg := config.DefaultConfig()
	cfg.Document.Title = "Site Title"
	s := newTestServer(t, dir, cfg)
	h := s.Handler()

	t.Run("page is compiled", func(t *testing.T) {
		w := get(t, h, "/")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "text/html; charset=utf-8", w.Header().Get("Content-Type"))
		body := w.Body.String()
		assert.True(t, strings.HasPrefix(body, "<!DOCTYPE html>"))
		assert.Contains(t, body, `<div data-component="Card"><div class="card"><h3>Hello</h3><p>Body</p></div></div>`)
		assert.Contains(t, body, "<title>Site Title</title>")
		assert.NotContains(t, body, "/ws", "no reload client without watching")
	})

	t.Run("directory index without slash", func(t *testing.T) {
		w := get(t, h, "/docs")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "<p>Docs home</p>")
	})

	t.Run("compile error page", func(t *testing.T) {
		w := get(t, h, "/broken")
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Contains(t, w.Body.String(), "DotWeb Compile Error")
		assert.Contains(t, w.Body.String(), "Line 5")
	})

	t.Run("static file", func(t *testing.T) {
		w := get(t, h, "/style.css")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "body { color: red; }", w.Body.String())
		assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	})

	t.Run("private paths are hidden", func(t *testing.T) {
		for _, target := range []string{"/_private/x.css", "/" + config.FileName, "/index.web", "/missing"} {
			assert.Equal(t, http.StatusNotFound, get(t, h, target).Code, target)
		}
	})
}

func TestServePageCache(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"index.web": cardPage})
	s := newTestServer(t, dir, nil)

	first := get(t, s, "/").Body.String()
	second := get(t, s, "/").Body.String()
	assert.Equal(t, first, second)

	stats := s.cache.Stats()
	assert.Equal(t, uint64(1), stats.Hits)
	assert.Equal(t, 1, stats.Entries)

	// A changed file hashes to a new key
	writeFiles(t, dir, map[string]string{"index.web": "p Changed"})
	assert.Contains(t, get(t, s, "/").Body.String(), "<p>Changed</p>")
}

func TestServePageCacheDisabled(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"index.web": cardPage})
	cfg := config.DefaultConfig()
	cfg.Cache.TTL = ""
	s := newTestServer(t, dir, cfg)

	get(t, s, "/")
	get(t, s, "/")
	assert.Equal(t, 0, s.cache.Len())
}

func TestServeIndexListing(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"counter.web":   "p Counter",
		"docs/card.web": "p Card",
	})
	s := newTestServer(t, dir, nil)

	w := get(t, s, "/")
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `<a href="/counter">/counter</a>`)
	assert.Contains(t, body, `<a href="/docs/card">/docs/card</a>`)
	assert.Contains(t, body, "<h1>DotWeb App</h1>")
}

func TestServeGzip(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"index.web": cardPage})
	s := newTestServer(t, dir, nil)

	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	req, err := http.NewRequest("GET", srv.URL+"/", nil)
	require.NoError(t, err)
	req.Header.Set("Accept-Encoding", "gzip")

	// Setting Accept-Encoding disables the transport's transparent decoding
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	assert.Equal(t, "gzip", resp.Header.Get("Content-Encoding"))
}

func TestReloadInjectedWhenWatching(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"index.web": cardPage})
	s := newTestServer(t, dir, nil)

	require.NoError(t, s.EnableWatch())
	require.NoError(t, s.EnableWatch(), "enabling twice is a no-op")

	body := get(t, s, "/").Body.String()
	assert.Contains(t, body, `"/ws"`)
	assert.Less(t, strings.Index(body, "<script>"), strings.Index(body, "</body>"))

	require.NoError(t, s.StopWatch())
	assert.NotContains(t, get(t, s, "/").Body.String(), `"/ws"`)
}

func TestPlaygroundDisabled(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Playground.Enabled = false
	s := newTestServer(t, t.TempDir(), cfg)

	assert.Equal(t, http.StatusNotFound, get(t, s, "/playground").Code)
}
