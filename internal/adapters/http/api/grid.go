package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/okian/mingle/pkg/logger"
)

// GridHandler serves stored match grids.
type GridHandler struct {
	deps Dependencies
	log  logger.Logger
}

// NewGridHandler creates a new grid handler.
func NewGridHandler(deps Dependencies, log logger.Logger) *GridHandler {
	return &GridHandler{deps: deps, log: log}
}

// HandleGetGrid handles GET /v1/events/{eventID}/grid requests.
func (h *GridHandler) HandleGetGrid(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_grid"
	grid, err := h.deps.Grid(r.Context(), chi.URLParam(r, "eventID"))
	if err != nil {
		logFailure(h.log, r, op, err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, grid)
}
