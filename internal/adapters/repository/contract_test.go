package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/mingle/internal/domain/model"
)

// testBackendContract exercises the behaviour every Backend must share.
func testBackendContract(t *testing.T, b Backend) {
	t.Helper()
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	sub := func(user, event string, at time.Time, answers ...model.Answer) model.SurveySubmission {
		return model.SurveySubmission{UserID: user, EventID: event, Answers: answers, SubmittedAt: at}
	}
	userIDs := func(subs []model.SurveySubmission) []string {
		out := make([]string, 0, len(subs))
		for _, s := range subs {
			out = append(out, s.UserID)
		}
		return out
	}

	Convey("Given a backend", t, func() {
		Convey("When an event has no submissions", func() {
			got, err := b.ListByEvent(ctx, "no-such-event", "A")

			Convey("Then it should list nothing", func() {
				So(err, ShouldBeNil)
				So(got, ShouldNotBeNil)
				So(got, ShouldBeEmpty)
			})
		})

		Convey("When several users submit for an event", func() {
			So(b.PutSubmission(ctx, sub("C", "E1", base.Add(2*time.Second), model.Answer{QuestionID: "Q1", Answer: model.Single("High-Energy")})), ShouldBeNil)
			So(b.PutSubmission(ctx, sub("B", "E1", base.Add(time.Second), model.Answer{QuestionID: "Q1", Answer: model.Single("Chill")})), ShouldBeNil)
			So(b.PutSubmission(ctx, sub("A", "E1", base.Add(3*time.Second), model.Answer{QuestionID: "Q1", Answer: model.Single("Chill")})), ShouldBeNil)
			So(b.PutSubmission(ctx, sub("Z", "E1", base.Add(time.Second), model.Answer{QuestionID: "Q2", Answer: model.Multi("x", "y")})), ShouldBeNil)
			So(b.PutSubmission(ctx, sub("B", "E10", base, model.Answer{QuestionID: "Q1", Answer: model.Single("other-event")})), ShouldBeNil)

			got, err := b.ListByEvent(ctx, "E1", "A")

			Convey("Then they should be listed in submission order without the requester", func() {
				So(err, ShouldBeNil)
				So(userIDs(got), ShouldResemble, []string{"B", "Z", "C"})
				for _, s := range got {
					So(s.EventID, ShouldEqual, "E1")
				}
				So(got[1].Answers[0].Answer.Kind, ShouldEqual, model.AnswerMulti)
				So(got[1].Answers[0].Answer.Multi, ShouldResemble, []string{"x", "y"})
				So(got[0].Answers[0].Answer.Single, ShouldEqual, "Chill")
			})
		})

		Convey("When a user resubmits", func() {
			So(b.PutSubmission(ctx, sub("R", "E2", base, model.Answer{QuestionID: "Q1", Answer: model.Single("old")})), ShouldBeNil)
			So(b.PutSubmission(ctx, sub("R", "E2", base.Add(time.Minute),
				model.Answer{QuestionID: "Q9", Answer: model.Multi()})), ShouldBeNil)

			got, err := b.ListByEvent(ctx, "E2", "")

			Convey("Then only the second answers should be kept", func() {
				So(err, ShouldBeNil)
				So(got, ShouldHaveLength, 1)
				So(got[0].Answers, ShouldHaveLength, 1)
				So(got[0].Answers[0].QuestionID, ShouldEqual, "Q9")
				So(got[0].SubmittedAt.Equal(base.Add(time.Minute)), ShouldBeTrue)
			})
		})

		Convey("When user ids differ only by case", func() {
			So(b.PutSubmission(ctx, sub("alice", "E4", base, model.Answer{QuestionID: "Q1", Answer: model.Single("x")})), ShouldBeNil)
			So(b.PutSubmission(ctx, sub("Alice", "E4", base.Add(time.Second), model.Answer{QuestionID: "Q1", Answer: model.Single("y")})), ShouldBeNil)
			So(b.PutInterests(ctx, "bob", []string{"Music"}), ShouldBeNil)
			So(b.PutInterests(ctx, "Bob", []string{"Art"}), ShouldBeNil)

			all, err := b.ListByEvent(ctx, "E4", "")
			others, err2 := b.ListByEvent(ctx, "E4", "alice")
			lower, err3 := b.GetUserInterests(ctx, "bob")

			Convey("Then they should be kept apart", func() {
				So(err, ShouldBeNil)
				So(err2, ShouldBeNil)
				So(err3, ShouldBeNil)
				So(userIDs(all), ShouldResemble, []string{"alice", "Alice"})
				So(userIDs(others), ShouldResemble, []string{"Alice"})
				So(lower, ShouldResemble, []string{"Music"})
			})
		})

		Convey("When a user has no stored interests", func() {
			got, err := b.GetUserInterests(ctx, "nobody")

			Convey("Then an empty list should be returned", func() {
				So(err, ShouldBeNil)
				So(got, ShouldNotBeNil)
				So(got, ShouldBeEmpty)
			})
		})

		Convey("When interests are written twice", func() {
			So(b.PutInterests(ctx, "A", []string{"Music", "Art"}), ShouldBeNil)
			So(b.PutInterests(ctx, "A", []string{"Sports"}), ShouldBeNil)
			got, err := b.GetUserInterests(ctx, "A")

			Convey("Then the second list should replace the first", func() {
				So(err, ShouldBeNil)
				So(got, ShouldResemble, []string{"Sports"})
			})
		})

		Convey("When a grid was never written", func() {
			_, err := b.GetGrid(ctx, "A", "nope")

			Convey("Then it should not be found", func() {
				So(errors.Is(err, ErrNotFound), ShouldBeTrue)
			})
		})

		Convey("When a grid is written again", func() {
			first := model.MatchGrid{UserID: "A", EventID: "E1", UpdatedAt: base,
				Matches: []model.Match{{UserID: "B", CompatibilityScore: 13}, {UserID: "C", CompatibilityScore: 0}}}
			So(b.PutGrid(ctx, first), ShouldBeNil)
			So(b.PutGrid(ctx, model.MatchGrid{UserID: "A", EventID: "E1", UpdatedAt: base.Add(time.Second),
				Matches: []model.Match{}}), ShouldBeNil)
			emptied, err := b.GetGrid(ctx, "A", "E1")
			So(err, ShouldBeNil)

			So(b.PutGrid(ctx, first), ShouldBeNil)
			restored, err := b.GetGrid(ctx, "A", "E1")

			Convey("Then each write should fully replace the last", func() {
				So(emptied.Matches, ShouldBeEmpty)
				So(err, ShouldBeNil)
				So(restored.UserID, ShouldEqual, "A")
				So(restored.EventID, ShouldEqual, "E1")
				So(restored.Matches, ShouldHaveLength, 2)
				So(restored.Matches[0].UserID, ShouldEqual, "B")
				So(restored.Matches[0].CompatibilityScore, ShouldEqual, 13)
			})
		})

		Convey("When users submit concurrently", func() {
			var (
				wg   sync.WaitGroup
				mu   sync.Mutex
				errs []error
			)
			for i := range 20 {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					user := string(rune('a' + i))
					if err := b.PutSubmission(ctx, sub(user, "E3", base.Add(time.Duration(i)*time.Millisecond),
						model.Answer{QuestionID: "Q1", Answer: model.Single("x")})); err != nil {
						mu.Lock()
						errs = append(errs, err)
						mu.Unlock()
					}
				}(i)
			}
			wg.Wait()

			got, err := b.ListByEvent(ctx, "E3", "a")

			Convey("Then every submission should be stored", func() {
				So(errs, ShouldBeEmpty)
				So(err, ShouldBeNil)
				So(got, ShouldHaveLength, 19)
			})
		})
	})
}
