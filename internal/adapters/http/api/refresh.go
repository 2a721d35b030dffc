package api

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"
)

// RefreshDependencies defines the interface for starting refreshes.
type RefreshDependencies interface {
	Refresh(force bool) (uuid.UUID, error)
}

// RefreshHandler handles refresh requests.
type RefreshHandler struct {
	deps RefreshDependencies
}

// NewRefreshHandler creates a new refresh handler.
func NewRefreshHandler(deps RefreshDependencies) *RefreshHandler {
	return &RefreshHandler{deps: deps}
}

type refreshResponse struct {
	RequestID string `json:"request_id"`
	Force     bool   `json:"force"`
}

// HandleRefresh handles POST /v1/refresh?force=true requests. The fetch
// runs in the background; the response only acknowledges it.
func (h *RefreshHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	force := false
	if v := r.URL.Query().Get("force"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
			return
		}
		force = b
	}
	id, err := h.deps.Refresh(force)
	if err != nil {
		writeDepError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, refreshResponse{RequestID: id.String(), Force: force})
}
