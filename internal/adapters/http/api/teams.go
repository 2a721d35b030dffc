package api

import (
	"net/http"

	"github.com/okian/hockeyplots/internal/domain/types"
)

// TeamsDependencies defines the interface for team metadata.
type TeamsDependencies interface {
	Teams() []types.Team
}

// TeamsHandler handles team metadata requests.
type TeamsHandler struct {
	deps TeamsDependencies
}

// NewTeamsHandler creates a new teams handler.
func NewTeamsHandler(deps TeamsDependencies) *TeamsHandler {
	return &TeamsHandler{deps: deps}
}

// HandleList handles GET /v1/teams requests.
func (h *TeamsHandler) HandleList(w http.ResponseWriter, _ *http.Request) {
	teams := h.deps.Teams()
	if teams == nil {
		teams = []types.Team{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"teams": teams})
}
