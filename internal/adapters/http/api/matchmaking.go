package api

import (
	"net/http"

	service "github.com/okian/mingle/internal/app"
	"github.com/okian/mingle/internal/auth"
	"github.com/okian/mingle/internal/domain/types"
	"github.com/okian/mingle/pkg/logger"
)

// MatchmakingHandler handles survey submissions.
type MatchmakingHandler struct {
	deps Dependencies
	log  logger.Logger
}

// NewMatchmakingHandler creates a new matchmaking handler.
func NewMatchmakingHandler(deps Dependencies, log logger.Logger) *MatchmakingHandler {
	return &MatchmakingHandler{deps: deps, log: log}
}

// HandleSubmit handles POST /v1/matchmaking requests.
func (h *MatchmakingHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	const op = "api.submit"

	// identity is checked before the body is looked at
	if _, ok := auth.UserIDFromContext(r.Context()); !ok {
		writeError(w, NewKind(op, service.ErrUnauthenticated))
		return
	}

	var req types.MatchmakingRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, WrapKind(op, ErrBadRequest, err))
		return
	}

	res, err := h.deps.ProcessSurveyAndFindMatches(r.Context(), req.EventID, req.Answers)
	if err != nil {
		logFailure(h.log, r, op, err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
