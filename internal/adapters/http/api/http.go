// Package api serves the series snapshot and refresh controls over HTTP.
package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/okian/hockeyplots/internal/domain/model"
	"github.com/okian/hockeyplots/internal/domain/types"
	"github.com/okian/hockeyplots/pkg/metrics"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	Teams() []types.Team
	Series(divisions ...model.Division) types.Snapshot
	TeamSeries(abbrev string) (types.Series, error)

	// Refresh starts a background fetch. It does not wait for the result.
	Refresh(force bool) (uuid.UUID, error)
}

// Server wires HTTP routes for the read API.
type Server struct {
	healthHandler  *HealthHandler
	statsHandler   *StatsHandler
	teamsHandler   *TeamsHandler
	seriesHandler  *SeriesHandler
	refreshHandler *RefreshHandler

	allowedOrigins []string
	refreshLimit   float64
	refreshBurst   int
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	s := &Server{
		healthHandler:  NewHealthHandler(),
		statsHandler:   NewStatsHandler(statsProvider),
		teamsHandler:   NewTeamsHandler(deps),
		seriesHandler:  NewSeriesHandler(deps),
		refreshHandler: NewRefreshHandler(deps),
		allowedOrigins: []string{"*"},
		refreshLimit:   defaultRefreshPerSecond,
		refreshBurst:   defaultRefreshBurst,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
	r.Use(MetricsMiddleware)

	r.Get("/healthz", s.healthHandler.HandleHealth)
	r.Handle("/metrics", promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}))

	r.Route("/v1", func(r chi.Router) {
		r.Get("/teams", s.teamsHandler.HandleList)
		r.Get("/series", s.seriesHandler.HandleList)
		r.Get("/series/{abbrev}", s.seriesHandler.HandleTeam)
		r.Get("/stats", s.statsHandler.HandleStats)
		r.With(RateLimit(s.refreshLimit, s.refreshBurst)).Post("/refresh", s.refreshHandler.HandleRefresh)
	})
	return r
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeDepError maps provider errors onto status codes.
func writeDepError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, types.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err)
	case errors.Is(err, types.ErrUnavailable):
		writeError(w, http.StatusServiceUnavailable, "unavailable", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}
