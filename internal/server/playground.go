package server

import (
	"embed"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/livetemplate/dotweb"
	"github.com/livetemplate/dotweb/internal/store"
)

//go:embed playground.html
var playgroundHTML embed.FS

// bodyOverhead is the allowance on top of the source limit for JSON framing.
const bodyOverhead = 1 << 10

// PlaygroundHandler serves the in-browser editor and its compile and
// snapshot API.
type PlaygroundHandler struct {
	server    *Server
	store     store.Store
	maxSource int
	mux       *http.ServeMux
}

func newPlayground(s *Server, st store.Store, maxSource int) *PlaygroundHandler {
	h := &PlaygroundHandler{
		server:    s,
		store:     st,
		maxSource: maxSource,
		mux:       http.NewServeMux(),
	}
	h.mux.HandleFunc("GET /playground", h.ServePlaygroundPage)
	h.mux.HandleFunc("POST /playground/compile", h.HandleCompile)
	h.mux.HandleFunc("POST /playground/snapshots", h.HandleSave)
	h.mux.HandleFunc("GET /playground/snapshots", h.HandleList)
	h.mux.HandleFunc("GET /playground/snapshots/{id}", h.HandleSnapshot)
	return h
}

func (h *PlaygroundHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// ServePlaygroundPage serves the playground HTML page.
func (h *PlaygroundHandler) ServePlaygroundPage(w http.ResponseWriter, r *http.Request) {
	content, err := playgroundHTML.ReadFile("playground.html")
	if err != nil {
		http.Error(w, "Playground not available", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(content)
}

// SourceRequest is the JSON request body for compile and save.
type SourceRequest struct {
	Source string `json:"source"`
}

// CompileResponse is the JSON response for /playground/compile.
type CompileResponse struct {
	HTML   string `json:"html,omitempty"`
	Error  string `json:"error,omitempty"`
	Kind   string `json:"kind,omitempty"`
	Line   int    `json:"line,omitempty"`
	Detail string `json:"detail,omitempty"`
}

// SaveResponse is the JSON response for POST /playground/snapshots.
type SaveResponse struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// SnapshotInfo describes a saved snapshot in listings.
type SnapshotInfo struct {
	ID         string    `json:"id"`
	URL        string    `json:"url"`
	CreatedAt  time.Time `json:"created_at"`
	Characters int       `json:"characters"`
	Lines      int       `json:"lines"`
	Components int       `json:"components"`
}

// readSource decodes a SourceRequest, enforcing the size limit. It writes
// the error response itself and returns false on failure.
func (h *PlaygroundHandler) readSource(w http.ResponseWriter, r *http.Request) (string, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, int64(h.maxSource+bodyOverhead))

	var req SourceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSONError(w, http.StatusRequestEntityTooLarge, "source too large")
			return "", false
		}
		writeJSONError(w, http.StatusBadRequest, "invalid JSON")
		return "", false
	}

	if len(req.Source) > h.maxSource {
		writeJSONError(w, http.StatusRequestEntityTooLarge, "source too large")
		return "", false
	}
	if strings.TrimSpace(req.Source) == "" {
		writeJSONError(w, http.StatusBadRequest, "source is required")
		return "", false
	}
	return req.Source, true
}

// HandleCompile handles POST /playground/compile.
func (h *PlaygroundHandler) HandleCompile(w http.ResponseWriter, r *http.Request) {
	source, ok := h.readSource(w, r)
	if !ok {
		return
	}

	out, err := h.server.compile(source)
	if err != nil {
		resp := CompileResponse{Error: err.Error()}
		var ce *dotweb.CompileError
		if errors.As(err, &ce) {
			resp.Kind = string(ce.Kind)
			resp.Line = ce.Line
			resp.Detail = ce.Format()
		}
		writeJSON(w, http.StatusUnprocessableEntity, resp)
		return
	}

	writeJSON(w, http.StatusOK, CompileResponse{HTML: out})
}

// HandleSave handles POST /playground/snapshots.
func (h *PlaygroundHandler) HandleSave(w http.ResponseWriter, r *http.Request) {
	source, ok := h.readSource(w, r)
	if !ok {
		return
	}

	id, err := h.store.Save(r.Context(), source)
	if err != nil {
		log.Printf("[Playground] Failed to save snapshot: %v", err)
		writeJSONError(w, http.StatusInternalServerError, "failed to save snapshot")
		return
	}

	if h.server.config.Server.Debug {
		log.Printf("[Playground] Saved snapshot %s (%d bytes)", id, len(source))
	}
	writeJSON(w, http.StatusCreated, SaveResponse{ID: id, URL: snapshotURL(id)})
}

// HandleList handles GET /playground/snapshots.
func (h *PlaygroundHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	snaps, err := h.store.Recent(r.Context(), 0)
	if err != nil {
		log.Printf("[Playground] Failed to list snapshots: %v", err)
		writeJSONError(w, http.StatusInternalServerError, "failed to list snapshots")
		return
	}

	infos := make([]SnapshotInfo, 0, len(snaps))
	for _, snap := range snaps {
		stats := dotweb.Analyze(snap.Source)
		infos = append(infos, SnapshotInfo{
			ID:         snap.ID,
			URL:        snapshotURL(snap.ID),
			CreatedAt:  snap.CreatedAt,
			Characters: stats.Characters,
			Lines:      stats.Lines,
			Components: stats.Components,
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"snapshots": infos})
}

// HandleSnapshot handles GET /playground/snapshots/{id}. The compiled page is
// returned; ?raw=1 returns the source instead.
func (h *PlaygroundHandler) HandleSnapshot(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !store.ValidID(id) {
		http.NotFound(w, r)
		return
	}

	snap, err := h.store.Load(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		log.Printf("[Playground] Failed to load snapshot %s: %v", id, err)
		http.Error(w, "failed to load snapshot", http.StatusInternalServerError)
		return
	}

	if r.URL.Query().Get("raw") == "1" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte(snap.Source))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	out, err := h.server.compile(snap.Source)
	if err != nil {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(dotweb.ErrorPage(err)))
		return
	}
	_, _ = w.Write([]byte(out))
}

func snapshotURL(id string) string {
	return "/playground/snapshots/" + id
}
