// Package model contains domain models passed between layers.
package model

import (
	"bytes"
	"errors"
	"time"

	"github.com/goccy/go-json"
)

// ErrMalformedAnswer is returned when an answer is neither a string nor a list of strings.
var ErrMalformedAnswer = errors.New("answer must be a string or an array of strings")

// AnswerKind tells single-choice answers apart from multi-choice ones.
type AnswerKind uint8

// Answer kinds. The zero value marks an absent or malformed answer.
const (
	AnswerSingle AnswerKind = iota + 1
	AnswerMulti
)

func (k AnswerKind) String() string {
	switch k {
	case AnswerSingle:
		return "single"
	case AnswerMulti:
		return "multi"
	default:
		return "invalid"
	}
}

// AnswerValue holds either one selected option or a set of selected options.
type AnswerValue struct {
	Kind   AnswerKind
	Single string
	Multi  []string
}

// Single builds a single-choice answer.
func Single(option string) AnswerValue {
	return AnswerValue{Kind: AnswerSingle, Single: option}
}

// Multi builds a multi-choice answer. A nil or empty list is a valid empty selection.
func Multi(options ...string) AnswerValue {
	if options == nil {
		options = []string{}
	}
	return AnswerValue{Kind: AnswerMulti, Multi: options}
}

// Valid reports whether the value carries a recognised shape.
func (v AnswerValue) Valid() bool {
	return v.Kind == AnswerSingle || v.Kind == AnswerMulti
}

// MarshalJSON encodes single answers as a string and multi answers as an array.
func (v AnswerValue) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case AnswerSingle:
		return json.Marshal(v.Single)
	case AnswerMulti:
		if v.Multi == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.Multi)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON accepts a string or an array of strings. null leaves the value invalid.
func (v *AnswerValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*v = AnswerValue{}
		return nil
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return ErrMalformedAnswer
		}
		*v = Single(s)
		return nil
	case '[':
		var raw []*string
		if err := json.Unmarshal(data, &raw); err != nil {
			return ErrMalformedAnswer
		}
		opts := make([]string, 0, len(raw))
		for _, o := range raw {
			if o == nil {
				return ErrMalformedAnswer
			}
			opts = append(opts, *o)
		}
		*v = Multi(opts...)
		return nil
	default:
		return ErrMalformedAnswer
	}
}

// Answer is one user's answer to one question.
type Answer struct {
	QuestionID string      `json:"questionId" validate:"required,max=128"`
	Answer     AnswerValue `json:"answer"`
}

// SurveySubmission is the durable record that a user completed an event's survey.
// There is at most one per (UserID, EventID); a resubmission replaces it.
type SurveySubmission struct {
	UserID      string
	EventID     string
	Answers     []Answer
	SubmittedAt time.Time
}

// UserSurveyData is what the scorer compares: a submitter's answers plus their interests.
type UserSurveyData struct {
	UserID    string
	Interests []string
	Answers   []Answer
}

// Match is one ranked entry of a match grid.
type Match struct {
	UserID             string
	CompatibilityScore float64
}

// MatchGrid is the persisted top matches of a user for an event. Writes replace it.
type MatchGrid struct {
	UserID    string
	EventID   string
	Matches   []Match
	UpdatedAt time.Time
}
