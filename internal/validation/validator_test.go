package validation_test

import (
	"errors"
	"testing"

	"github.com/okian/mingle/internal/domain/model"
	"github.com/okian/mingle/internal/domain/types"
	"github.com/okian/mingle/internal/validation"
	. "github.com/smartystreets/goconvey/convey"
)

func TestStruct(t *testing.T) {
	Convey("Given a matchmaking request", t, func() {
		req := types.MatchmakingRequest{
			EventID: "E",
			Answers: []model.Answer{
				{QuestionID: "Q1", Answer: model.Single("Chill")},
				{QuestionID: "Q2", Answer: model.Multi()},
			},
		}

		Convey("When it is well formed", func() {
			Convey("Then it should pass", func() {
				So(validation.Struct(&req), ShouldBeNil)
			})
		})

		Convey("When the event id is missing", func() {
			req.EventID = ""
			err := validation.Struct(&req)

			Convey("Then it should name the field", func() {
				So(errors.Is(err, validation.ErrValidation), ShouldBeTrue)
				So(err.Error(), ShouldContainSubstring, "eventId is required")
			})
		})

		Convey("When the answers are missing or empty", func() {
			req.Answers = nil
			So(errors.Is(validation.Struct(&req), validation.ErrValidation), ShouldBeTrue)

			req.Answers = []model.Answer{}
			err := validation.Struct(&req)
			So(errors.Is(err, validation.ErrValidation), ShouldBeTrue)
			So(err.Error(), ShouldContainSubstring, "answers must contain at least 1 items")
		})

		Convey("When an answer has no value", func() {
			req.Answers = append(req.Answers, model.Answer{QuestionID: "Q3"})
			err := validation.Struct(&req)

			Convey("Then the answer should be rejected", func() {
				So(errors.Is(err, validation.ErrValidation), ShouldBeTrue)
				So(err.Error(), ShouldContainSubstring, "must be a string or an array of strings")

				var verr *validation.Error
				So(errors.As(err, &verr), ShouldBeTrue)
				So(verr.Fields, ShouldHaveLength, 1)
				So(verr.Fields[0].Tag, ShouldEqual, "answer")
			})
		})

		Convey("When a question id is missing", func() {
			req.Answers[0].QuestionID = ""
			err := validation.Struct(&req)

			Convey("Then the question id should be rejected", func() {
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, "questionId is required")
			})
		})
	})

	Convey("Given an interests request", t, func() {
		Convey("When a label is blank", func() {
			err := validation.Struct(&types.InterestsRequest{Interests: []string{"Music", ""}})
			So(errors.Is(err, validation.ErrValidation), ShouldBeTrue)
		})

		Convey("When the list is empty", func() {
			So(validation.Struct(&types.InterestsRequest{Interests: []string{}}), ShouldBeNil)
		})
	})

	Convey("Given a value that is not a struct", t, func() {
		err := validation.Struct("nope")
		So(errors.Is(err, validation.ErrValidation), ShouldBeTrue)
	})
}
