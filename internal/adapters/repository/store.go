// Package repository defines the survey, profile and grid store ports and
// their backends.
package repository

import (
	"context"

	"github.com/okian/mingle/internal/domain/model"
)

// SubmissionStore persists survey submissions keyed by (eventID, userID).
type SubmissionStore interface {
	// PutSubmission stores or replaces the submission of one user for one event.
	PutSubmission(ctx context.Context, s model.SurveySubmission) error
	// ListByEvent returns every submission for eventID except excludingUserID's,
	// ordered by SubmittedAt then UserID. No submissions is not an error.
	ListByEvent(ctx context.Context, eventID, excludingUserID string) ([]model.SurveySubmission, error)
}

// InterestLookup resolves a user's interest labels.
type InterestLookup interface {
	// GetUserInterests returns an empty slice for unknown users.
	GetUserInterests(ctx context.Context, userID string) ([]string, error)
}

// ProfileStore writes interest labels.
type ProfileStore interface {
	PutInterests(ctx context.Context, userID string, interests []string) error
}

// GridStore persists match grids keyed by (userID, eventID).
type GridStore interface {
	// PutGrid replaces the grid. It never merges with a previous one.
	PutGrid(ctx context.Context, g model.MatchGrid) error
	// GetGrid returns ErrNotFound when no grid was written.
	GetGrid(ctx context.Context, userID, eventID string) (model.MatchGrid, error)
}

// Backend is a complete store used by the service.
type Backend interface {
	SubmissionStore
	InterestLookup
	ProfileStore
	GridStore
	Close() error
}
