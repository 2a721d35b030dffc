package feedsim

import (
	"context"
	"net/http"
	"strconv"
	"sync/atomic"

	"github.com/go-chi/chi/v5"
	jsoniter "github.com/json-iterator/go"

	"github.com/okian/hockeyplots/pkg/logger"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Handler serves a Season over HTTP.
type Handler struct {
	season   *Season
	requests atomic.Int64
	// failNext makes the next n schedule requests answer 503.
	failNext atomic.Int64
	logger   logger.Logger
}

// NewHandler wraps season.
func NewHandler(season *Season) *Handler {
	return &Handler{season: season, logger: logger.Get().Named("feedsim")}
}

// Routes returns the router:
//
//	GET  /club-schedule-season/{abbrev}/{season}
//	POST /admin/advance?rounds=n
//	POST /admin/fail?count=n
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Get("/club-schedule-season/{abbrev}/{season}", h.schedule)
	r.Post("/admin/advance", h.advance)
	r.Post("/admin/fail", h.fail)
	return r
}

// Requests returns the number of schedule requests served.
func (h *Handler) Requests() int64 { return h.requests.Load() }

// FailNext makes the next n schedule requests fail with 503.
func (h *Handler) FailNext(n int64) { h.failNext.Store(n) }

func (h *Handler) schedule(w http.ResponseWriter, r *http.Request) {
	h.requests.Add(1)
	if h.takeFailure() {
		http.Error(w, "service unavailable", http.StatusServiceUnavailable)
		return
	}

	s, ok := h.season.Schedule(chi.URLParam(r, "abbrev"), chi.URLParam(r, "season"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	writeJSON(r.Context(), w, h.logger, s)
}

func (h *Handler) takeFailure() bool {
	for {
		n := h.failNext.Load()
		if n <= 0 {
			return false
		}
		if h.failNext.CompareAndSwap(n, n-1) {
			return true
		}
	}
}

func (h *Handler) advance(w http.ResponseWriter, r *http.Request) {
	n := queryInt(r, "rounds", 1)
	played := h.season.Advance(n)
	h.logger.Info(r.Context(), "season advanced", logger.Int("rounds", n), logger.Int("played", played))
	writeJSON(r.Context(), w, h.logger, map[string]int{"played": played})
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request) {
	n := queryInt(r, "count", 1)
	h.FailNext(int64(n))
	w.WriteHeader(http.StatusNoContent)
}

func queryInt(r *http.Request, key string, def int) int {
	if v, err := strconv.Atoi(r.URL.Query().Get(key)); err == nil && v > 0 {
		return v
	}
	return def
}

func writeJSON(ctx context.Context, w http.ResponseWriter, l logger.Logger, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		l.Error(ctx, "failed to encode response", logger.Error(err))
	}
}
