// Package types contains the wire shapes shared by the API and its clients.
package types

import (
	"time"

	"github.com/okian/mingle/internal/domain/model"
)

// Status is the outcome reported for a matchmaking run.
type Status string

// Matchmaking outcomes.
const (
	StatusSuccess   Status = "SUCCESS"
	StatusNoMatches Status = "NO_MATCHES"
)

// Messages returned alongside each status.
const (
	MessageSuccess   = "Matches found"
	MessageNoMatches = "No other participants have submitted the survey yet"
)

// MatchEntry is one ranked candidate.
type MatchEntry struct {
	UserID             string  `json:"userId"`
	CompatibilityScore float64 `json:"compatibilityScore"`
}

// MatchmakingRequest is the body of a survey submission.
type MatchmakingRequest struct {
	EventID string         `json:"eventId" validate:"required,max=128"`
	Answers []model.Answer `json:"answers" validate:"required,min=1,max=256,dive"`
}

// MatchmakingResult is returned by a successful matchmaking run.
// Matches is omitted when the status is NO_MATCHES.
type MatchmakingResult struct {
	Status  Status       `json:"status"`
	Message string       `json:"message"`
	Matches []MatchEntry `json:"matches,omitempty"`
}

// GridResponse is the stored match grid of one user for one event.
type GridResponse struct {
	UserID    string       `json:"userId"`
	EventID   string       `json:"eventId"`
	Matches   []MatchEntry `json:"matches"`
	UpdatedAt time.Time    `json:"updatedAt"`
}

// InterestsRequest replaces the caller's interest labels.
type InterestsRequest struct {
	Interests []string `json:"interests" validate:"max=256,dive,required,max=128"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Entries converts ranked matches into their wire form. The result is never nil.
func Entries(matches []model.Match) []MatchEntry {
	out := make([]MatchEntry, 0, len(matches))
	for _, m := range matches {
		out = append(out, MatchEntry{UserID: m.UserID, CompatibilityScore: m.CompatibilityScore})
	}
	return out
}

// NewGridResponse converts a stored grid into its wire form.
func NewGridResponse(g model.MatchGrid) GridResponse {
	return GridResponse{
		UserID:    g.UserID,
		EventID:   g.EventID,
		Matches:   Entries(g.Matches),
		UpdatedAt: g.UpdatedAt,
	}
}
