package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	repository "github.com/okian/mingle/internal/adapters/repository"
	service "github.com/okian/mingle/internal/app"
	"github.com/okian/mingle/internal/auth"
	"github.com/okian/mingle/internal/domain/model"
	"github.com/okian/mingle/internal/domain/scoring"
	"github.com/okian/mingle/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	err := logger.Init()
	if err != nil {
		panic(err)
	}
}

var fixedNow = time.Date(2026, 6, 1, 18, 0, 0, 0, time.UTC)

func as(userID string) context.Context {
	return auth.WithUserID(context.Background(), userID)
}

func single(q, v string) model.Answer { return model.Answer{QuestionID: q, Answer: model.Single(v)} }

func TestService_New(t *testing.T) {
	Convey("Given a new service with default options", t, func() {
		svc := service.New()

		Convey("Then it should have sensible defaults", func() {
			So(svc, ShouldNotBeNil)
			stats := svc.GetStats()
			So(stats["topK"], ShouldEqual, 3)
			So(stats["lookupConcurrency"], ShouldBeGreaterThan, 0)
			So(stats["started"], ShouldEqual, false)
		})
	})

	Convey("Given a new service with custom options", t, func() {
		svc := service.New(
			service.WithTopK(2),
			service.WithLookupConcurrency(2),
			service.WithRequestTimeout(time.Second),
			service.WithScorer(scoring.NewCompatibilityScorer(scoring.WithWeights(1, 1))),
			service.WithClock(func() time.Time { return fixedNow }),
			service.WithBackend(repository.NewMemoryStore()),
			service.WithLogger(logger.Get()),
		)

		Convey("Then it should be created with them", func() {
			stats := svc.GetStats()
			So(stats["topK"], ShouldEqual, 2)
			So(stats["lookupConcurrency"], ShouldEqual, 2)
		})

		Convey("And invalid values should be ignored", func() {
			svc := service.New(service.WithTopK(0), service.WithLookupConcurrency(-1))
			So(svc.GetStats()["topK"], ShouldEqual, 3)

			svc = service.New(service.WithTopK(5))
			So(svc.GetStats()["topK"], ShouldEqual, 3)
		})
	})
}

func TestService_Lifecycle(t *testing.T) {
	Convey("Given a new service", t, func() {
		svc := service.New(service.WithClock(func() time.Time { return fixedNow }))
		defer svc.Stop()

		Convey("When using it before it starts", func() {
			_, err := svc.ProcessSurveyAndFindMatches(as("A"), "E", []model.Answer{single("Q1", "x")})

			Convey("Then it should report an internal error", func() {
				So(errors.Is(err, service.ErrInternal), ShouldBeTrue)
			})
		})

		Convey("When starting the service", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			err := svc.Start(ctx)

			Convey("Then it should start successfully", func() {
				So(err, ShouldBeNil)
				So(svc.GetStats()["started"], ShouldEqual, true)
			})

			Convey("And starting again should be a no-op", func() {
				So(svc.Start(ctx), ShouldBeNil)
			})

			Convey("And stopping should mark it stopped", func() {
				svc.Stop()
				So(svc.GetStats()["started"], ShouldEqual, false)
				svc.Stop()
			})
		})
	})
}

func TestService_Errors(t *testing.T) {
	Convey("Given a started service", t, func() {
		store := repository.NewMemoryStore()
		svc := service.New(service.WithBackend(store))
		So(svc.Start(context.Background()), ShouldBeNil)
		defer svc.Stop()

		Convey("When the caller is not authenticated", func() {
			_, err := svc.ProcessSurveyAndFindMatches(context.Background(), "E", []model.Answer{single("Q1", "x")})

			Convey("Then it should fail before any side effect", func() {
				So(errors.Is(err, service.ErrUnauthenticated), ShouldBeTrue)
				So(service.KindOf(err), ShouldEqual, service.ErrUnauthenticated)
				So(store.Count(), ShouldEqual, 0)
			})
		})

		Convey("When the event id is missing", func() {
			_, err := svc.ProcessSurveyAndFindMatches(as("A"), "", []model.Answer{single("Q1", "x")})

			Convey("Then it should be an invalid argument", func() {
				So(errors.Is(err, service.ErrInvalidArgument), ShouldBeTrue)
				So(store.Count(), ShouldEqual, 0)
			})
		})

		Convey("When the answers are missing", func() {
			_, err1 := svc.ProcessSurveyAndFindMatches(as("A"), "E", nil)
			_, err2 := svc.ProcessSurveyAndFindMatches(as("A"), "E", []model.Answer{})
			_, err3 := svc.ProcessSurveyAndFindMatches(as("A"), "E", []model.Answer{{QuestionID: "Q1"}})

			Convey("Then they should be invalid arguments", func() {
				So(errors.Is(err1, service.ErrInvalidArgument), ShouldBeTrue)
				So(errors.Is(err2, service.ErrInvalidArgument), ShouldBeTrue)
				So(errors.Is(err3, service.ErrInvalidArgument), ShouldBeTrue)
				So(store.Count(), ShouldEqual, 0)
			})
		})

		Convey("When submitting without a user", func() {
			err := svc.Submit(context.Background(), "", "E", []model.Answer{single("Q1", "x")})
			So(errors.Is(err, service.ErrUnauthenticated), ShouldBeTrue)
		})

		Convey("When reading a grid that was never written", func() {
			_, err := svc.Grid(as("A"), "E")

			Convey("Then it should be not found", func() {
				So(errors.Is(err, service.ErrNotFound), ShouldBeTrue)
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			})
		})

		Convey("When reading a grid without an event", func() {
			_, err := svc.Grid(as("A"), "")
			So(errors.Is(err, service.ErrInvalidArgument), ShouldBeTrue)
		})

		Convey("When setting interests", func() {
			So(svc.PutInterests(as("A"), []string{"Music"}), ShouldBeNil)
			So(errors.Is(svc.PutInterests(context.Background(), []string{"Music"}), service.ErrUnauthenticated), ShouldBeTrue)
			So(errors.Is(svc.PutInterests(as("A"), []string{""}), service.ErrInvalidArgument), ShouldBeTrue)

			got, err := store.GetUserInterests(context.Background(), "A")
			So(err, ShouldBeNil)
			So(got, ShouldResemble, []string{"Music"})
		})
	})
}

func TestError(t *testing.T) {
	Convey("Given service errors", t, func() {
		cause := errors.New("disk full")
		err := &service.Error{Op: "write grid", Kind: service.ErrInternal, Err: cause}

		So(err.Error(), ShouldEqual, "write grid: internal error: disk full")
		So(errors.Is(err, service.ErrInternal), ShouldBeTrue)
		So(errors.Is(err, cause), ShouldBeTrue)
		So(errors.Is(err, service.ErrInvalidArgument), ShouldBeFalse)

		bare := &service.Error{Op: "submit", Kind: service.ErrUnauthenticated}
		So(bare.Error(), ShouldEqual, "submit: unauthenticated")
		So(service.KindOf(cause), ShouldEqual, service.ErrInternal)
	})
}
