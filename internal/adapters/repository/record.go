package repository

import (
	"fmt"
	"sort"
	"time"

	"github.com/okian/mingle/internal/domain/model"
)

const (
	kindSingle = "single"
	kindMulti  = "multi"
)

// answerRecord is the storage shape of one answer. Single-choice answers
// keep their option as the only value.
type answerRecord struct {
	QuestionID string   `json:"questionId" bson:"questionId" dynamodbav:"questionId"`
	Kind       string   `json:"kind" bson:"kind" dynamodbav:"kind"`
	Values     []string `json:"values" bson:"values" dynamodbav:"values"`
}

type submissionRecord struct {
	EventID     string         `json:"eventId" bson:"eventId" dynamodbav:"eventId"`
	UserID      string         `json:"userId" bson:"userId" dynamodbav:"userId"`
	Answers     []answerRecord `json:"answers" bson:"answers" dynamodbav:"answers"`
	SubmittedAt time.Time      `json:"submittedAt" bson:"submittedAt" dynamodbav:"submittedAt"`
}

type matchRecord struct {
	UserID string  `json:"userId" bson:"userId" dynamodbav:"userId"`
	Score  float64 `json:"score" bson:"score" dynamodbav:"score"`
}

type gridRecord struct {
	UserID    string        `json:"userId" bson:"userId" dynamodbav:"userId"`
	EventID   string        `json:"eventId" bson:"eventId" dynamodbav:"eventId"`
	Matches   []matchRecord `json:"matches" bson:"matches" dynamodbav:"matches"`
	UpdatedAt time.Time     `json:"updatedAt" bson:"updatedAt" dynamodbav:"updatedAt"`
}

type profileRecord struct {
	UserID    string   `json:"userId" bson:"userId" dynamodbav:"userId"`
	Interests []string `json:"interests" bson:"interests" dynamodbav:"interests"`
}

func toAnswerRecords(answers []model.Answer) []answerRecord {
	out := make([]answerRecord, 0, len(answers))
	for _, a := range answers {
		rec := answerRecord{QuestionID: a.QuestionID, Kind: a.Answer.Kind.String()}
		switch a.Answer.Kind {
		case model.AnswerSingle:
			rec.Values = []string{a.Answer.Single}
		case model.AnswerMulti:
			rec.Values = append([]string{}, a.Answer.Multi...)
		}
		out = append(out, rec)
	}
	return out
}

func fromAnswerRecords(recs []answerRecord) ([]model.Answer, error) {
	out := make([]model.Answer, 0, len(recs))
	for _, r := range recs {
		var v model.AnswerValue
		switch {
		case r.Kind == kindSingle && len(r.Values) == 1:
			v = model.Single(r.Values[0])
		case r.Kind == kindMulti:
			v = model.Multi(r.Values...)
		default:
			return nil, fmt.Errorf("%w: question %q has kind %q with %d values",
				ErrCorruptRecord, r.QuestionID, r.Kind, len(r.Values))
		}
		out = append(out, model.Answer{QuestionID: r.QuestionID, Answer: v})
	}
	return out, nil
}

func toSubmissionRecord(s model.SurveySubmission) submissionRecord {
	return submissionRecord{
		EventID:     s.EventID,
		UserID:      s.UserID,
		Answers:     toAnswerRecords(s.Answers),
		SubmittedAt: s.SubmittedAt.UTC(),
	}
}

func (r submissionRecord) model() (model.SurveySubmission, error) {
	answers, err := fromAnswerRecords(r.Answers)
	if err != nil {
		return model.SurveySubmission{}, err
	}
	return model.SurveySubmission{
		UserID:      r.UserID,
		EventID:     r.EventID,
		Answers:     answers,
		SubmittedAt: r.SubmittedAt,
	}, nil
}

func toMatchRecords(matches []model.Match) []matchRecord {
	out := make([]matchRecord, 0, len(matches))
	for _, m := range matches {
		out = append(out, matchRecord{UserID: m.UserID, Score: m.CompatibilityScore})
	}
	return out
}

func fromMatchRecords(recs []matchRecord) []model.Match {
	out := make([]model.Match, 0, len(recs))
	for _, r := range recs {
		out = append(out, model.Match{UserID: r.UserID, CompatibilityScore: r.Score})
	}
	return out
}

func toGridRecord(g model.MatchGrid) gridRecord {
	return gridRecord{
		UserID:    g.UserID,
		EventID:   g.EventID,
		Matches:   toMatchRecords(g.Matches),
		UpdatedAt: g.UpdatedAt.UTC(),
	}
}

func (r gridRecord) model() model.MatchGrid {
	return model.MatchGrid{
		UserID:    r.UserID,
		EventID:   r.EventID,
		Matches:   fromMatchRecords(r.Matches),
		UpdatedAt: r.UpdatedAt,
	}
}

// sortSubmissions orders submissions by SubmittedAt, then UserID.
func sortSubmissions(subs []model.SurveySubmission) {
	sort.SliceStable(subs, func(i, j int) bool {
		if !subs[i].SubmittedAt.Equal(subs[j].SubmittedAt) {
			return subs[i].SubmittedAt.Before(subs[j].SubmittedAt)
		}
		return subs[i].UserID < subs[j].UserID
	})
}

// interestsOrEmpty never returns nil.
func interestsOrEmpty(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}

func cloneStrings(in []string) []string {
	return append([]string{}, in...)
}
