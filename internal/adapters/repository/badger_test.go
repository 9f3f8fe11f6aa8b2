package repository

import (
	"context"
	"testing"

	"github.com/dgraph-io/badger/v4"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/mingle/internal/domain/model"
)

func openInMemoryBadger(t *testing.T) *badger.DB {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	if err != nil {
		t.Fatalf("open badger: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestBadgerStore_Contract(t *testing.T) {
	testBackendContract(t, NewBadgerStore(openInMemoryBadger(t)))
}

func TestBadgerStore_KeysDoNotOverlap(t *testing.T) {
	Convey("Given events whose ids share a prefix", t, func() {
		ctx := context.Background()
		store := NewBadgerStore(openInMemoryBadger(t))
		answers := []model.Answer{{QuestionID: "Q", Answer: model.Single("a")}}

		So(store.PutSubmission(ctx, model.SurveySubmission{UserID: "u1", EventID: "E1", Answers: answers}), ShouldBeNil)
		So(store.PutSubmission(ctx, model.SurveySubmission{UserID: "u2", EventID: "E1:x", Answers: answers}), ShouldBeNil)
		So(store.PutSubmission(ctx, model.SurveySubmission{UserID: "u3", EventID: "E10", Answers: answers}), ShouldBeNil)

		got, err := store.ListByEvent(ctx, "E1", "")

		Convey("Then listing one event should not see the others", func() {
			So(err, ShouldBeNil)
			So(got, ShouldHaveLength, 1)
			So(got[0].UserID, ShouldEqual, "u1")
		})
	})
}

func TestBadgerStore_CloseLeavesSharedDB(t *testing.T) {
	Convey("Given a store on a shared database", t, func() {
		db := openInMemoryBadger(t)
		store := NewBadgerStore(db)

		Convey("When the store is closed", func() {
			So(store.Close(), ShouldBeNil)

			Convey("Then the database should stay open", func() {
				So(db.IsClosed(), ShouldBeFalse)
			})
		})
	})
}
