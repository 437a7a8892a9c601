package server

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"log"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/livetemplate/dotweb"
	"github.com/livetemplate/dotweb/internal/cache"
	"github.com/livetemplate/dotweb/internal/config"
	"github.com/livetemplate/dotweb/internal/store"
)

// SourceExtensions are the file extensions served as DotWeb pages.
var SourceExtensions = []string{".web", ".dw"}

// IsSource reports whether name has a DotWeb source extension.
func IsSource(name string) bool {
	ext := filepath.Ext(name)
	for _, e := range SourceExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

// Route represents a discovered page route.
type Route struct {
	Pattern  string // URL pattern (e.g., "/counter")
	FilePath string // Relative file path (e.g., "counter.web")
}

// Server is the DotWeb preview server.
type Server struct {
	rootDir string
	config  *config.Config
	routes  []*Route
	mu      sync.RWMutex

	connections map[*websocket.Conn]bool // Track connected WebSocket clients
	connMu      sync.Mutex               // Held while writing; a conn allows one writer at a time

	watcher  *Watcher // File watcher for live reload
	watchMu  sync.Mutex
	cache    *cache.MemoryCache
	store    store.Store
	ownStore bool

	playground http.Handler
	cancel     context.CancelFunc
	closeOnce  sync.Once
}

// New creates a server for rootDir. When the playground is enabled and st is
// nil, snapshots are kept in memory for the lifetime of the server.
func New(rootDir string, cfg *config.Config, st store.Store) *Server {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	ctx, cancel := context.WithCancel(context.Background())

	s := &Server{
		rootDir:     rootDir,
		config:      cfg,
		routes:      make([]*Route, 0),
		connections: make(map[*websocket.Conn]bool),
		cache:       cache.NewMemoryCache(),
		store:       st,
		cancel:      cancel,
	}

	if cfg.Playground.Enabled {
		if s.store == nil {
			s.store = store.NewMemoryStore()
			s.ownStore = true
		}
		pg := &cfg.Playground
		limiter := NewRateLimiter(ctx, pg.GetRateLimitRPS(), pg.GetRateLimitBurst(), pg.GetRateLimitMaxIPs())
		s.playground = limiter.Middleware(newPlayground(s, s.store, pg.GetMaxSource()))
	}

	return s
}

// Handler returns the server wrapped with security headers and compression.
func (s *Server) Handler() http.Handler {
	return SecurityHeadersMiddleware()(WithCompression(s))
}

// Discover scans the root directory for .web and .dw files and creates routes.
// Entries starting with "_" or "." and paths matching the configured ignore
// patterns are skipped.
func (s *Server) Discover() error {
	routes := make([]*Route, 0)
	seen := make(map[string]string)

	err := filepath.WalkDir(s.rootDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(s.rootDir, p)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}

		name := d.Name()
		if strings.HasPrefix(name, "_") || strings.HasPrefix(name, ".") || s.config.IsIgnored(filepath.ToSlash(rel)) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !IsSource(name) {
			return nil
		}

		pattern := webToPattern(rel)
		if other, dup := seen[pattern]; dup {
			log.Printf("[Server] Skipping %s: %s already serves %s", rel, other, pattern)
			return nil
		}
		seen[pattern] = rel
		routes = append(routes, &Route{Pattern: pattern, FilePath: rel})
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to discover pages: %w", err)
	}

	sortRoutes(routes)

	s.mu.Lock()
	s.routes = routes
	s.mu.Unlock()

	if s.config.Server.Debug {
		log.Printf("[Server] Discovered %d page(s) in %s", len(routes), s.rootDir)
	}
	return nil
}

// Routes returns a copy of the discovered routes.
func (s *Server) Routes() []*Route {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*Route(nil), s.routes...)
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	urlPath := r.URL.Path

	if urlPath == "/ws" {
		s.serveWebSocket(w, r)
		return
	}

	if s.playground != nil && (urlPath == "/playground" || strings.HasPrefix(urlPath, "/playground/")) {
		s.playground.ServeHTTP(w, r)
		return
	}

	if ext := path.Ext(urlPath); ext != "" && !IsSource(urlPath) {
		s.serveStatic(w, r)
		return
	}

	if route := s.match(urlPath); route != nil {
		s.servePage(w, r, route)
		return
	}

	if urlPath == "/" {
		s.serveIndex(w)
		return
	}

	http.NotFound(w, r)
}

// match finds the route for urlPath. "/docs" also matches a "/docs/" index.
func (s *Server) match(urlPath string) *Route {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, route := range s.routes {
		if route.Pattern == urlPath {
			return route
		}
	}
	if !strings.HasSuffix(urlPath, "/") {
		for _, route := range s.routes {
			if route.Pattern == urlPath+"/" {
				return route
			}
		}
	}
	return nil
}

// servePage compiles and serves a page. Compile failures are shown as an
// error page so the browser still picks up the next reload.
func (s *Server) servePage(w http.ResponseWriter, r *http.Request, route *Route) {
	source, err := os.ReadFile(filepath.Join(s.rootDir, route.FilePath))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			http.NotFound(w, r)
			return
		}
		log.Printf("[Server] Failed to read %s: %v", route.FilePath, err)
		http.Error(w, "failed to read page", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")

	page, err := s.compile(string(source))
	status := http.StatusOK
	if err != nil {
		log.Printf("[Server] Compile failed for %s: %v", route.FilePath, err)
		page = dotweb.ErrorPage(err)
		status = http.StatusInternalServerError
	}

	if s.watching() {
		page = injectReloadScript(page)
	}

	w.WriteHeader(status)
	_, _ = w.Write([]byte(page))
}

// compile compiles source with the configured document defaults, going
// through the page cache when a TTL is configured.
func (s *Server) compile(source string) (string, error) {
	key := cache.Key(source)
	if out, ok := s.cache.Get(key); ok {
		return out, nil
	}

	doc := s.config.Document
	out, err := dotweb.Compile(source,
		dotweb.WithDebug(s.config.Server.Debug),
		dotweb.WithDocumentDefaults(dotweb.Metadata{
			Title:       doc.Title,
			Lang:        doc.Lang,
			Description: doc.Description,
			Author:      doc.Author,
		}),
	)
	if err != nil {
		return "", err
	}

	s.cache.Set(key, out, s.config.Cache.GetTTL())
	return out, nil
}

// serveStatic serves non-source files from the root directory. Hidden and
// underscore-prefixed paths and the config file are never served.
func (s *Server) serveStatic(w http.ResponseWriter, r *http.Request) {
	rel := strings.TrimPrefix(path.Clean(r.URL.Path), "/")
	for _, part := range strings.Split(rel, "/") {
		if strings.HasPrefix(part, ".") || strings.HasPrefix(part, "_") {
			http.NotFound(w, r)
			return
		}
	}
	if rel == config.FileName || s.config.IsIgnored(rel) {
		http.NotFound(w, r)
		return
	}

	http.ServeFile(w, r, filepath.Join(s.rootDir, filepath.FromSlash(rel)))
}

var indexTemplate = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <title>{{.Title}}</title>
</head>
<body>
  <h1>{{.Title}}</h1>
{{- if .Routes}}
  <ul>
{{- range .Routes}}
    <li><a href="{{.Pattern}}">{{.Pattern}}</a> <small>{{.FilePath}}</small></li>
{{- end}}
  </ul>
{{- else}}
  <p>No .web files found.</p>
{{- end}}
</body>
</html>`))

// serveIndex lists the discovered pages when no index.web exists.
func (s *Server) serveIndex(w http.ResponseWriter) {
	title := s.config.Document.Title
	if title == "" {
		title = dotweb.DefaultTitle
	}

	page := struct {
		Title  string
		Routes []*Route
	}{title, s.Routes()}

	var b strings.Builder
	if err := indexTemplate.Execute(&b, page); err != nil {
		http.Error(w, "failed to render index", http.StatusInternalServerError)
		return
	}

	out := b.String()
	if s.watching() {
		out = injectReloadScript(out)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(out))
}

// webToPattern converts a source file path to a URL pattern.
//
//   - "index.web" → "/"
//   - "counter.web" → "/counter"
//   - "docs/intro.dw" → "/docs/intro"
//   - "docs/index.web" → "/docs/"
func webToPattern(relPath string) string {
	p := filepath.ToSlash(relPath)
	p = strings.TrimSuffix(p, path.Ext(p))

	if p == "index" {
		return "/"
	}
	if strings.HasSuffix(p, "/index") {
		return "/" + strings.TrimSuffix(p, "index")
	}
	return "/" + p
}

// sortRoutes sorts routes with index routes first.
func sortRoutes(routes []*Route) {
	for i := 0; i < len(routes); i++ {
		for j := i + 1; j < len(routes); j++ {
			if shouldSwap(routes[i], routes[j]) {
				routes[i], routes[j] = routes[j], routes[i]
			}
		}
	}
}

func shouldSwap(a, b *Route) bool {
	// Root path comes first
	if a.Pattern == "/" {
		return false
	}
	if b.Pattern == "/" {
		return true
	}

	// Directory index paths come before other paths
	aIsIndex := strings.HasSuffix(a.Pattern, "/")
	bIsIndex := strings.HasSuffix(b.Pattern, "/")
	if aIsIndex != bIsIndex {
		return bIsIndex
	}

	return a.Pattern > b.Pattern
}

// RegisterConnection adds a WebSocket connection to the tracked connections.
func (s *Server) RegisterConnection(conn *websocket.Conn) {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	s.connections[conn] = true
	if s.config.Server.Debug {
		log.Printf("[Server] WebSocket connection registered: %d active connections", len(s.connections))
	}
}

// UnregisterConnection removes a WebSocket connection from tracked connections.
func (s *Server) UnregisterConnection(conn *websocket.Conn) {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	delete(s.connections, conn)
	if s.config.Server.Debug {
		log.Printf("[Server] WebSocket connection unregistered: %d active connections", len(s.connections))
	}
}

// ConnectionCount returns the number of connected reload clients.
func (s *Server) ConnectionCount() int {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	return len(s.connections)
}

// BroadcastReload sends a reload message to all connected WebSocket clients.
func (s *Server) BroadcastReload(filePath string) {
	s.connMu.Lock()
	defer s.connMu.Unlock()

	if len(s.connections) == 0 {
		return
	}

	msg := reloadMessage{Action: "reload", FilePath: filepath.ToSlash(filePath)}
	log.Printf("[Server] Broadcasting reload for %s to %d connections", msg.FilePath, len(s.connections))

	for conn := range s.connections {
		if err := conn.WriteJSON(msg); err != nil {
			log.Printf("[Server] Failed to send reload to connection: %v", err)
		}
	}
}

// EnableWatch enables file watching for live reload.
func (s *Server) EnableWatch() error {
	s.watchMu.Lock()
	defer s.watchMu.Unlock()
	if s.watcher != nil {
		return nil
	}

	watcher, err := NewWatcher(s.rootDir, func(filePath string) error {
		log.Printf("[Watch] File changed: %s", filePath)

		s.cache.InvalidateAll()
		if err := s.Discover(); err != nil {
			return fmt.Errorf("failed to re-discover pages: %w", err)
		}

		s.BroadcastReload(filePath)
		return nil
	}, s.config.Server.Debug)
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	watcher.Ignore = func(rel string) bool {
		return s.config.IsIgnored(filepath.ToSlash(rel))
	}

	s.watcher = watcher
	s.watcher.Start()

	log.Printf("[Watch] File watcher started for %s", s.rootDir)
	return nil
}

// StopWatch stops the file watcher if it's running.
func (s *Server) StopWatch() error {
	s.watchMu.Lock()
	defer s.watchMu.Unlock()
	if s.watcher == nil {
		return nil
	}
	err := s.watcher.Stop()
	s.watcher = nil
	return err
}

func (s *Server) watching() bool {
	s.watchMu.Lock()
	defer s.watchMu.Unlock()
	return s.watcher != nil
}

// Close stops the watcher and background work and disconnects reload
// clients. A store passed to New is left open.
func (s *Server) Close() error {
	var err error
	s.closeOnce.Do(func() {
		err = s.StopWatch()
		s.cancel()
		s.cache.Stop()

		s.connMu.Lock()
		for conn := range s.connections {
			conn.Close()
		}
		s.connections = make(map[*websocket.Conn]bool)
		s.connMu.Unlock()

		if s.ownStore {
			if cerr := s.store.Close(); err == nil {
				err = cerr
			}
		}
	})
	return err
}
