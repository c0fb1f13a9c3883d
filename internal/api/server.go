// Package api serves a read-only HTTP view of a track-graph model: the
// track table, per-track detail, spots by frame, the change journal and
// Prometheus metrics.
package api

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fiji/fiji-sub027/internal/httputil"
	"github.com/fiji/fiji-sub027/internal/journal"
	"github.com/fiji/fiji-sub027/internal/model"
	"github.com/fiji/fiji-sub027/internal/monitoring"
	"github.com/fiji/fiji-sub027/internal/version"
)

// Server holds the last published snapshot. Publish and the handlers may
// run concurrently.
type Server struct {
	journal *journal.Journal

	mu   sync.RWMutex
	snap *Snapshot
}

// NewServer returns a server with nothing published. j may be nil.
func NewServer(j *journal.Journal) *Server {
	return &Server{journal: j}
}

// Publish replaces the served snapshot with the current state of m. Call it
// from the goroutine that owns m.
func (s *Server) Publish(m *model.Model) {
	snap := TakeSnapshot(m)
	s.mu.Lock()
	s.snap = snap
	s.mu.Unlock()
}

func (s *Server) current() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

// LoggingMiddleware logs method, path, status and duration.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		monitoring.Logf("[%d] %s %s %.3fms", lrw.statusCode, r.Method, r.RequestURI,
			float64(time.Since(start).Nanoseconds())/1e6)
	})
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", monitoring.Handler())
	mux.HandleFunc("/healthz", s.healthz)
	mux.HandleFunc("/api/version", s.showVersion)
	mux.HandleFunc("/api/model", s.showModel)
	mux.HandleFunc("/api/tracks", s.listTracks)
	mux.HandleFunc("/api/tracks/", s.showTrack)
	mux.HandleFunc("/api/spots", s.listSpots)
	mux.HandleFunc("/api/journal/sessions", s.listSessions)
	mux.HandleFunc("/api/journal/sessions/", s.listSessionEvents)
	return mux
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	if !httputil.RequireGET(w, r) {
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]bool{"ok": true, "published": s.current() != nil})
}

func (s *Server) showVersion(w http.ResponseWriter, r *http.Request) {
	if !httputil.RequireGET(w, r) {
		return
	}
	httputil.WriteJSON(w, http.StatusOK, version.Get())
}

// snapshotOrError writes a 503 and returns nil when nothing is published.
func (s *Server) snapshotOrError(w http.ResponseWriter) *Snapshot {
	snap := s.current()
	if snap == nil {
		httputil.WriteJSONError(w, http.StatusServiceUnavailable, "no model published")
	}
	return snap
}

func (s *Server) showModel(w http.ResponseWriter, r *http.Request) {
	if !httputil.RequireGET(w, r) {
		return
	}
	if snap := s.snapshotOrError(w); snap != nil {
		httputil.WriteJSON(w, http.StatusOK, snap.Summary)
	}
}

func (s *Server) listTracks(w http.ResponseWriter, r *http.Request) {
	if !httputil.RequireGET(w, r) {
		return
	}
	snap := s.snapshotOrError(w)
	if snap == nil {
		return
	}
	visibleOnly, err := boolQuery(r, "visible")
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, snap.TrackTable(visibleOnly))
}

func (s *Server) showTrack(w http.ResponseWriter, r *http.Request) {
	if !httputil.RequireGET(w, r) {
		return
	}
	snap := s.snapshotOrError(w)
	if snap == nil {
		return
	}
	idStr := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/tracks/"), "/")
	i, err := strconv.Atoi(idStr)
	if err != nil {
		httputil.BadRequest(w, "invalid track index: "+idStr)
		return
	}
	t, ok := snap.Track(i)
	if !ok {
		httputil.NotFound(w, "track not found: "+idStr)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, t)
}

func (s *Server) listSpots(w http.ResponseWriter, r *http.Request) {
	if !httputil.RequireGET(w, r) {
		return
	}
	snap := s.snapshotOrError(w)
	if snap == nil {
		return
	}
	frame, ok, err := httputil.IntQuery(r, "frame", 0)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, snap.Spots(frame, !ok))
}

func (s *Server) listSessions(w http.ResponseWriter, r *http.Request) {
	if !httputil.RequireGET(w, r) {
		return
	}
	if s.journal == nil {
		httputil.NotFound(w, "journal not enabled")
		return
	}
	sessions, err := s.journal.Sessions()
	if err != nil {
		httputil.WriteJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if sessions == nil {
		sessions = []journal.Session{}
	}
	httputil.WriteJSON(w, http.StatusOK, sessions)
}

// listSessionEvents serves /api/journal/sessions/{id}/events.
func (s *Server) listSessionEvents(w http.ResponseWriter, r *http.Request) {
	if !httputil.RequireGET(w, r) {
		return
	}
	if s.journal == nil {
		httputil.NotFound(w, "journal not enabled")
		return
	}
	rest := strings.TrimPrefix(r.URL.Path, "/api/journal/sessions/")
	idStr, ok := strings.CutSuffix(rest, "/events")
	if !ok {
		httputil.NotFound(w, "unknown path: "+r.URL.Path)
		return
	}
	session, err := uuid.Parse(idStr)
	if err != nil {
		httputil.BadRequest(w, "invalid session id: "+idStr)
		return
	}
	entries, err := s.journal.Events(session)
	if err != nil {
		httputil.WriteJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if entries == nil {
		entries = []journal.Entry{}
	}
	httputil.WriteJSON(w, http.StatusOK, entries)
}

func boolQuery(r *http.Request, name string) (bool, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return false, nil
	}
	return strconv.ParseBool(v)
}
