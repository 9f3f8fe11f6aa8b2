package scoring_test

import (
	"testing"

	"github.com/okian/mingle/internal/domain/model"
	scoring "github.com/okian/mingle/internal/domain/scoring"
	. "github.com/smartystreets/goconvey/convey"
)

const epsilon = 1e-9

func user(id string, interests []string, answers ...model.Answer) model.UserSurveyData {
	return model.UserSurveyData{UserID: id, Interests: interests, Answers: answers}
}

func ans(q string, v model.AnswerValue) model.Answer {
	return model.Answer{QuestionID: q, Answer: v}
}

func TestCompatibilityScorer_Score(t *testing.T) {
	Convey("Given a scorer with default weights", t, func() {
		scorer := scoring.NewCompatibilityScorer()

		Convey("When two users share three interests and no questions", func() {
			a := user("A", []string{"Music", "Art", "Food"}, ans("Q1", model.Single("x")))
			b := user("B", []string{"Food", "Art", "Music", "Sports"}, ans("Q2", model.Single("x")))

			Convey("Then only the interest component should count", func() {
				So(scorer.Score(a, b), ShouldAlmostEqual, 12, epsilon)
			})
		})

		Convey("When two users answer a single-choice question identically", func() {
			a := user("A", nil, ans("Q1", model.Single("Chill")))
			b := user("B", nil, ans("Q1", model.Single("Chill")))

			Convey("Then the score should be the weighted single-choice points", func() {
				So(scorer.Score(a, b), ShouldAlmostEqual, 9, epsilon)
			})
		})

		Convey("When single-choice answers differ", func() {
			a := user("A", nil, ans("Q1", model.Single("Chill")))
			b := user("B", nil, ans("Q1", model.Single("chill")))

			Convey("Then the comparison should be exact and score zero", func() {
				So(scorer.Score(a, b), ShouldEqual, 0)
			})
		})

		Convey("When multi-choice answers share two options", func() {
			a := user("A", nil, ans("Q1", model.Multi("Jazz", "Rock", "Pop")))
			b := user("B", nil, ans("Q1", model.Multi("Rock", "Jazz", "Metal")))

			Convey("Then each shared option should count", func() {
				So(scorer.Score(a, b), ShouldAlmostEqual, 12, epsilon)
			})

			Convey("And points should add up across questions", func() {
				a.Answers = append(a.Answers, ans("Q2", model.Single("Yes")))
				b.Answers = append(b.Answers, ans("Q2", model.Single("Yes")))
				So(scorer.Score(a, b), ShouldAlmostEqual, 12+9, epsilon)
			})
		})

		Convey("When an option is repeated within one answer", func() {
			a := user("A", []string{"Music", "Music"}, ans("Q1", model.Multi("Jazz", "Jazz")))
			b := user("B", []string{"Music"}, ans("Q1", model.Multi("Jazz")))

			Convey("Then it should count once", func() {
				So(scorer.Score(a, b), ShouldAlmostEqual, 4+6, epsilon)
			})
		})

		Convey("When the answers have different shapes", func() {
			a := user("A", nil, ans("Q1", model.Single("Jazz")))
			b := user("B", nil, ans("Q1", model.Multi("Jazz")))

			Convey("Then the question should score zero both ways", func() {
				So(scorer.Score(a, b), ShouldEqual, 0)
				So(scorer.Score(b, a), ShouldEqual, 0)
			})
		})

		Convey("When an answer is empty or absent", func() {
			a := user("A", nil, ans("Q1", model.Multi()))
			b := user("B", nil, ans("Q1", model.Multi("Jazz")))

			Convey("Then it should contribute nothing", func() {
				So(scorer.Score(a, b), ShouldEqual, 0)
				So(scorer.Score(user("A", nil), user("B", nil)), ShouldEqual, 0)
			})
		})

		Convey("When the other user answered a question twice", func() {
			a := user("A", nil, ans("Q1", model.Single("Chill")))
			b := user("B", nil, ans("Q1", model.Single("Chill")), ans("Q1", model.Single("Loud")))

			Convey("Then only their first answer should count", func() {
				So(scorer.Score(a, b), ShouldAlmostEqual, 9, epsilon)
			})
		})

		Convey("When running the event scenario", func() {
			a := user("A", []string{"Music", "Art"}, ans("Q1", model.Single("Chill")))
			b := user("B", []string{"Music", "Sports"}, ans("Q1", model.Single("Chill")))
			c := user("C", []string{}, ans("Q1", model.Single("High-Energy")))

			Convey("Then B and C should score 13 and 0", func() {
				So(scorer.Score(a, b), ShouldAlmostEqual, 13, epsilon)
				So(scorer.Score(a, c), ShouldEqual, 0)
			})
		})
	})
}

func TestCompatibilityScorer_Properties(t *testing.T) {
	Convey("Given a scorer", t, func() {
		scorer := scoring.NewCompatibilityScorer()

		Convey("When scoring the same pair repeatedly", func() {
			a := user("A", []string{"Music", "Art"}, ans("Q1", model.Multi("a", "b")), ans("Q2", model.Single("x")))
			b := user("B", []string{"Art"}, ans("Q1", model.Multi("b", "c")), ans("Q2", model.Single("x")))
			first := scorer.Score(a, b)

			Convey("Then the result should never change", func() {
				for range 100 {
					So(scorer.Score(a, b), ShouldEqual, first)
				}
			})
		})

		Convey("When one user has an answer the other lacks", func() {
			a := user("A", nil, ans("Q1", model.Single("x")), ans("Q1", model.Single("x")))
			b := user("B", nil, ans("Q1", model.Single("x")), ans("Q2", model.Multi("y")))

			Convey("Then score(A,B) may differ from score(B,A)", func() {
				So(scorer.Score(a, b), ShouldAlmostEqual, 18, epsilon)
				So(scorer.Score(b, a), ShouldAlmostEqual, 9, epsilon)
			})
		})
	})
}

func TestCompatibilityScorer_Options(t *testing.T) {
	Convey("Given custom weights and points", t, func() {
		scorer := scoring.NewCompatibilityScorer(
			scoring.WithWeights(1, 2),
			scoring.WithPoints(1, 3, 5),
		)
		a := user("A", []string{"Music"}, ans("Q1", model.Multi("a", "b")), ans("Q2", model.Single("x")))
		b := user("B", []string{"Music"}, ans("Q1", model.Multi("a", "b")), ans("Q2", model.Single("x")))

		Convey("Then the components should use them", func() {
			So(scorer.InterestScore(a, b), ShouldEqual, 1)
			So(scorer.SurveyScore(a, b), ShouldEqual, 11)
			So(scorer.Score(a, b), ShouldEqual, 1+22)
		})
	})

	Convey("Given negative options", t, func() {
		scorer := scoring.NewCompatibilityScorer(
			scoring.WithWeights(-1, 2),
			scoring.WithPoints(1, -3, 5),
		)
		a := user("A", []string{"Music"}, ans("Q1", model.Single("x")))

		Convey("Then the defaults should be kept", func() {
			So(scorer.Score(a, a), ShouldAlmostEqual, 13, epsilon)
		})
	})
}
