package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/okian/hockeyplots/internal/domain/model"
	"github.com/okian/hockeyplots/internal/domain/types"
)

// SeriesDependencies defines the interface for series reads.
type SeriesDependencies interface {
	Series(divisions ...model.Division) types.Snapshot
	TeamSeries(abbrev string) (types.Series, error)
}

// SeriesHandler handles series requests.
type SeriesHandler struct {
	deps SeriesDependencies
}

// NewSeriesHandler creates a new series handler.
func NewSeriesHandler(deps SeriesDependencies) *SeriesHandler {
	return &SeriesHandler{deps: deps}
}

// HandleList handles GET /v1/series?division=a,b requests.
func (h *SeriesHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	divisions, err := parseDivisions(r.URL.Query()["division"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	snap := h.deps.Series(divisions...)
	if snap.Series == nil {
		snap.Series = []types.Series{}
	}
	writeJSON(w, http.StatusOK, snap)
}

// HandleTeam handles GET /v1/series/{abbrev} requests.
func (h *SeriesHandler) HandleTeam(w http.ResponseWriter, r *http.Request) {
	abbrev := strings.TrimSpace(chi.URLParam(r, "abbrev"))
	if abbrev == "" {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}
	s, err := h.deps.TeamSeries(abbrev)
	if err != nil {
		writeDepError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// parseDivisions accepts repeated or comma-separated division names.
func parseDivisions(values []string) ([]model.Division, error) {
	var out []model.Division
	for _, v := range values {
		for _, name := range strings.Split(v, ",") {
			if strings.TrimSpace(name) == "" {
				continue
			}
			d, ok := model.ParseDivision(name)
			if !ok {
				return nil, fmt.Errorf("%w: %q", ErrUnknownDivision, name)
			}
			out = append(out, d)
		}
	}
	return out, nil
}
