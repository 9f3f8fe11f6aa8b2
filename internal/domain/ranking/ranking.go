// Package ranking orders scored candidates into a match grid.
package ranking

import (
	"sort"

	"github.com/okian/mingle/internal/domain/model"
	"github.com/okian/mingle/internal/domain/scoring"
)

// DefaultTopK is the number of matches kept per grid.
const DefaultTopK = 3

// MaxTopK bounds the size of any match grid.
const MaxTopK = 3

// Option applies a configuration option to the Ranker.
type Option func(*Ranker)

// WithTopK sets how many matches are kept. Values outside 1..MaxTopK are ignored.
func WithTopK(k int) Option {
	return func(r *Ranker) {
		if k > 0 && k <= MaxTopK {
			r.topK = k
		}
	}
}

// WithScorer sets the scorer used for each candidate.
func WithScorer(s scoring.Scorer) Option {
	return func(r *Ranker) {
		if s != nil {
			r.scorer = s
		}
	}
}

// Ranker scores every candidate and keeps the best ones.
type Ranker struct {
	scorer scoring.Scorer
	topK   int
}

// New creates a ranker using the default compatibility scorer.
func New(opts ...Option) *Ranker {
	r := &Ranker{
		scorer: scoring.NewCompatibilityScorer(),
		topK:   DefaultTopK,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// TopK returns the configured grid size.
func (r *Ranker) TopK() int { return r.topK }

// Rank scores candidates against current and returns at most TopK matches,
// highest score first. Equal scores keep the order candidates were given in.
// The result is never nil.
func (r *Ranker) Rank(current model.UserSurveyData, candidates []model.UserSurveyData) []model.Match {
	scored := make([]model.Match, 0, len(candidates))
	for _, c := range candidates {
		scored = append(scored, model.Match{
			UserID:             c.UserID,
			CompatibilityScore: r.scorer.Score(current, c),
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].CompatibilityScore > scored[j].CompatibilityScore
	})

	if len(scored) > r.topK {
		scored = scored[:r.topK]
	}
	return scored
}
