package api

import (
	"net/http"

	service "github.com/okian/mingle/internal/app"
	"github.com/okian/mingle/internal/auth"
	"github.com/okian/mingle/internal/domain/types"
	"github.com/okian/mingle/pkg/logger"
)

// ProfileHandler manages the caller's interest labels.
type ProfileHandler struct {
	deps Dependencies
	log  logger.Logger
}

// NewProfileHandler creates a new profile handler.
func NewProfileHandler(deps Dependencies, log logger.Logger) *ProfileHandler {
	return &ProfileHandler{deps: deps, log: log}
}

// HandlePutInterests handles PUT /v1/profile/interests requests.
func (h *ProfileHandler) HandlePutInterests(w http.ResponseWriter, r *http.Request) {
	const op = "api.put_interests"
	if _, ok := auth.UserIDFromContext(r.Context()); !ok {
		writeError(w, NewKind(op, service.ErrUnauthenticated))
		return
	}

	var req types.InterestsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	if req.Interests == nil {
		req.Interests = []string{}
	}

	if err := h.deps.PutInterests(r.Context(), req.Interests); err != nil {
		logFailure(h.log, r, op, err)
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
