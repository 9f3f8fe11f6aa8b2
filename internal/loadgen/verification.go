package loadgen

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"

	"github.com/okian/mingle/internal/domain/types"
	"github.com/okian/mingle/pkg/logger"
)

// ErrVerification is returned when a run observed failed or inconsistent responses.
var ErrVerification = errors.New("verification failed")

// verifyResult checks one matchmaking response.
func verifyResult(userID string, res types.MatchmakingResult, topK int) error {
	switch res.Status {
	case types.StatusNoMatches:
		if len(res.Matches) != 0 {
			return fmt.Errorf("%s: NO_MATCHES with %d matches", userID, len(res.Matches))
		}
		return nil
	case types.StatusSuccess:
	default:
		return fmt.Errorf("%s: unknown status %q", userID, res.Status)
	}

	if len(res.Matches) == 0 || len(res.Matches) > topK {
		return fmt.Errorf("%s: %d matches, want 1..%d", userID, len(res.Matches), topK)
	}
	seen := make(map[string]struct{}, len(res.Matches))
	for i, m := range res.Matches {
		if m.UserID == userID {
			return fmt.Errorf("%s: matched with self", userID)
		}
		if _, dup := seen[m.UserID]; dup {
			return fmt.Errorf("%s: %s listed twice", userID, m.UserID)
		}
		seen[m.UserID] = struct{}{}
		if m.CompatibilityScore < 0 {
			return fmt.Errorf("%s: negative score for %s", userID, m.UserID)
		}
		if i > 0 && m.CompatibilityScore > res.Matches[i-1].CompatibilityScore {
			return fmt.Errorf("%s: scores not descending at %d", userID, i)
		}
	}
	return nil
}

// sameMatches reports whether a stored grid holds exactly the returned matches.
func sameMatches(grid []types.MatchEntry, returned []types.MatchEntry) bool {
	if len(grid) != len(returned) {
		return false
	}
	for i := range grid {
		if grid[i] != returned[i] {
			return false
		}
	}
	return true
}

// verifyOutcomes checks every successful response and that the stored grid
// equals what the run returned.
func verifyOutcomes(ctx context.Context, cfg *Config, c *client, respondents []Respondent, outcomes []outcome, stats *Stats) error {
	logger.Get().Info(ctx, "verifying results")

	var invalid, verified atomic.Int64
	forEach(ctx, cfg.Workers, len(respondents), func(i int) {
		r, out := respondents[i], outcomes[i]
		if out.status != http.StatusOK {
			return
		}
		if err := verifyResult(r.UserID, out.result, cfg.TopK); err != nil {
			invalid.Add(1)
			logger.Get().Error(ctx, "invalid result", logger.Error(err))
			return
		}

		var grid types.GridResponse
		status, _, err := c.do(ctx, http.MethodGet, "/v1/events/"+cfg.EventID+"/grid", r.UserID, nil, &grid)
		if err != nil || status != http.StatusOK {
			invalid.Add(1)
			logger.Get().Error(ctx, "failed to read grid",
				logger.String("userID", r.UserID), logger.Int("status", status), logger.Error(err))
			return
		}
		if !sameMatches(grid.Matches, out.result.Matches) {
			invalid.Add(1)
			logger.Get().Error(ctx, "stored grid differs from returned matches", logger.String("userID", r.UserID))
			return
		}
		verified.Add(1)
	})

	stats.Invalid = int(invalid.Load())
	stats.GridsVerified = int(verified.Load())
	if stats.Invalid > 0 || stats.Failed > 0 {
		return fmt.Errorf("%w: %d invalid, %d failed", ErrVerification, stats.Invalid, stats.Failed)
	}
	return nil
}
