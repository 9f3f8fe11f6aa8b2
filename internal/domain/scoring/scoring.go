// Package scoring computes how compatible two event participants are.
package scoring

import "github.com/okian/mingle/internal/domain/model"

// Default scoring configuration constants.
const (
	defaultInterestWeight     = 0.4
	defaultSurveyWeight       = 0.6
	defaultInterestPoints     = 10
	defaultMultiChoicePoints  = 10
	defaultSingleChoicePoints = 15
)

// Option applies a configuration option to the CompatibilityScorer.
type Option func(*CompatibilityScorer)

// WithWeights sets the weights of the interest and survey components.
// Negative weights are ignored.
func WithWeights(interest, survey float64) Option {
	return func(s *CompatibilityScorer) {
		if interest >= 0 && survey >= 0 {
			s.interestWeight = interest
			s.surveyWeight = survey
		}
	}
}

// WithPoints sets the pre-weight points per shared interest, per shared
// multi-choice option and per equal single-choice answer. Negative values are ignored.
func WithPoints(interest, multiChoice, singleChoice float64) Option {
	return func(s *CompatibilityScorer) {
		if interest >= 0 && multiChoice >= 0 && singleChoice >= 0 {
			s.interestPoints = interest
			s.multiChoicePoints = multiChoice
			s.singleChoicePoints = singleChoice
		}
	}
}

// Scorer scores a candidate against the current user.
type Scorer interface {
	Score(a, b model.UserSurveyData) float64
}

// CompatibilityScorer is a pure, deterministic Scorer. It holds no mutable
// state and is safe for concurrent use.
type CompatibilityScorer struct {
	interestWeight     float64
	surveyWeight       float64
	interestPoints     float64
	multiChoicePoints  float64
	singleChoicePoints float64
}

// NewCompatibilityScorer creates a scorer with configuration options.
func NewCompatibilityScorer(opts ...Option) *CompatibilityScorer {
	s := &CompatibilityScorer{
		interestWeight:     defaultInterestWeight,
		surveyWeight:       defaultSurveyWeight,
		interestPoints:     defaultInterestPoints,
		multiChoicePoints:  defaultMultiChoicePoints,
		singleChoicePoints: defaultSingleChoicePoints,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Score returns the weighted compatibility of b from a's point of view.
// Every answer a gave is compared with b's first answer to the same question,
// so Score(a, b) and Score(b, a) may differ.
func (s *CompatibilityScorer) Score(a, b model.UserSurveyData) float64 {
	return s.InterestScore(a, b)*s.interestWeight + s.SurveyScore(a, b)*s.surveyWeight
}

// InterestScore returns the unweighted interest component.
func (s *CompatibilityScorer) InterestScore(a, b model.UserSurveyData) float64 {
	return float64(overlap(a.Interests, b.Interests)) * s.interestPoints
}

// SurveyScore returns the unweighted survey component.
func (s *CompatibilityScorer) SurveyScore(a, b model.UserSurveyData) float64 {
	if len(a.Answers) == 0 || len(b.Answers) == 0 {
		return 0
	}

	theirs := answerIndex(b.Answers)

	var total float64
	for _, mine := range a.Answers {
		other, ok := theirs[mine.QuestionID]
		if !ok {
			continue
		}
		total += s.answerPoints(mine.Answer, other)
	}
	return total
}

// answerPoints scores one question. Answers of different shapes score zero.
func (s *CompatibilityScorer) answerPoints(mine, other model.AnswerValue) float64 {
	switch {
	case mine.Kind == model.AnswerMulti && other.Kind == model.AnswerMulti:
		return float64(overlap(mine.Multi, other.Multi)) * s.multiChoicePoints
	case mine.Kind == model.AnswerSingle && other.Kind == model.AnswerSingle && mine.Single == other.Single:
		return s.singleChoicePoints
	default:
		return 0
	}
}

// answerIndex maps question IDs to answers, keeping the first answer per question.
func answerIndex(answers []model.Answer) map[string]model.AnswerValue {
	idx := make(map[string]model.AnswerValue, len(answers))
	for _, ans := range answers {
		if _, ok := idx[ans.QuestionID]; !ok {
			idx[ans.QuestionID] = ans.Answer
		}
	}
	return idx
}

// overlap counts distinct strings present in both lists. Comparison is exact.
func overlap(a, b []string) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	set := make(map[string]struct{}, len(b))
	for _, v := range b {
		set[v] = struct{}{}
	}

	n := 0
	for _, v := range a {
		if _, ok := set[v]; ok {
			n++
			delete(set, v)
		}
	}
	return n
}
