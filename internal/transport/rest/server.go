// Package rest exposes the HTTP API for history, stats, and capture control.
package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/lakefm/airlog/internal/capture"
	"github.com/lakefm/airlog/internal/domain/playlist"
	"github.com/lakefm/airlog/internal/infra/store"
	"github.com/lakefm/airlog/internal/poller"
	"github.com/lakefm/airlog/internal/version"
)

// HistorySource reads the play history archive.
type HistorySource interface {
	History(ctx context.Context, filter store.HistoryFilter) ([]playlist.PlayEntry, error)
	GetStats(ctx context.Context, since time.Time) (*store.Stats, error)
}

// CaptureRunner triggers a capture run on demand.
type CaptureRunner interface {
	Run(ctx context.Context, source playlist.CaptureSource) capture.Result
}

// NowPlayingSource is the poller surface the API needs.
type NowPlayingSource interface {
	Snapshot() poller.Snapshot
	RefreshNow()
}

// Server is the REST API server.
type Server struct {
	router  chi.Router
	history HistorySource
	capture CaptureRunner
	now     NowPlayingSource
}

// Option configures the server.
type Option func(*Server)

// NewServer builds the API router.
func NewServer(history HistorySource, captureRunner CaptureRunner, now NowPlayingSource, opts ...Option) *Server {
	s := &Server{
		history: history,
		capture: captureRunner,
		now:     now,
	}

	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/version", s.handleVersion)
		r.Get("/now-playing", s.handleNowPlaying)
		r.Get("/history", s.handleHistory)
		r.Get("/stats", s.handleStats)
		r.Post("/capture/run", s.handleCaptureRun)
	})

	s.router = r
	return s
}

// Router returns the HTTP handler.
func (s *Server) Router() http.Handler {
	return s.router
}

// Mount attaches an extra handler under the given pattern. Used for the
// Socket.io endpoint and static image assets.
func (s *Server) Mount(pattern string, h http.Handler) {
	s.router.Mount(pattern, h)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, version.GetInfo())
}

func (s *Server) handleNowPlaying(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.now.Snapshot())
}

// defaultHistoryRange is the lookback applied when a history query sets
// neither start nor end.
const defaultHistoryRange = 7 * 24 * time.Hour

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := store.HistoryFilter{
		DJName:    q.Get("dj"),
		Artist:    q.Get("artist"),
		LocalOnly: q.Get("local") == "true",
	}
	if raw := q.Get("start"); raw != "" {
		start, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "start must be an RFC 3339 timestamp")
			return
		}
		filter.Start = start
	}
	if raw := q.Get("end"); raw != "" {
		end, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "end must be an RFC 3339 timestamp")
			return
		}
		filter.End = end
	}
	// Unbounded queries cover the last week.
	if filter.Start.IsZero() && filter.End.IsZero() {
		filter.Start = time.Now().Add(-defaultHistoryRange)
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		filter.Limit = limit
	}

	entries, err := s.history.History(r.Context(), filter)
	if err != nil {
		log.Error().Err(err).Msg("History query failed")
		writeError(w, http.StatusInternalServerError, "history query failed")
		return
	}
	if entries == nil {
		entries = []playlist.PlayEntry{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"entries": entries,
		"count":   len(entries),
	})
}

// statsPeriods maps the period query parameter to a lookback window. "all"
// (the default) spans the whole archive.
var statsPeriods = map[string]time.Duration{
	"day":   24 * time.Hour,
	"week":  7 * 24 * time.Hour,
	"month": 30 * 24 * time.Hour,
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	period := r.URL.Query().Get("period")

	var since time.Time
	switch period {
	case "", "all":
		// zero time: everything
	default:
		d, ok := statsPeriods[period]
		if !ok {
			writeError(w, http.StatusBadRequest, "period must be one of day, week, month, all")
			return
		}
		since = time.Now().Add(-d)
	}

	stats, err := s.history.GetStats(r.Context(), since)
	if err != nil {
		log.Error().Err(err).Msg("Stats query failed")
		writeError(w, http.StatusInternalServerError, "stats query failed")
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleCaptureRun(w http.ResponseWriter, r *http.Request) {
	result := s.capture.Run(r.Context(), playlist.CaptureManual)

	status := http.StatusOK
	if !result.Success {
		status = http.StatusBadGateway
	}
	writeJSON(w, status, result)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Response encoding failed")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
