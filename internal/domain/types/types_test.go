package types_test

import (
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/okian/mingle/internal/domain/model"
	types "github.com/okian/mingle/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMatchmakingResult(t *testing.T) {
	Convey("Given matchmaking results", t, func() {
		Convey("When the run found matches", func() {
			res := types.MatchmakingResult{
				Status:  types.StatusSuccess,
				Message: types.MessageSuccess,
				Matches: types.Entries([]model.Match{{UserID: "B", CompatibilityScore: 13}, {UserID: "C"}}),
			}
			out, err := json.Marshal(res)

			Convey("Then matches should be encoded in rank order", func() {
				So(err, ShouldBeNil)
				So(string(out), ShouldEqual,
					`{"status":"SUCCESS","message":"Matches found","matches":[{"userId":"B","compatibilityScore":13},{"userId":"C","compatibilityScore":0}]}`)
			})
		})

		Convey("When the run found nobody", func() {
			out, err := json.Marshal(types.MatchmakingResult{Status: types.StatusNoMatches, Message: types.MessageNoMatches})

			Convey("Then matches should be omitted", func() {
				So(err, ShouldBeNil)
				So(string(out), ShouldNotContainSubstring, "matches")
				So(string(out), ShouldContainSubstring, `"status":"NO_MATCHES"`)
			})
		})
	})
}

func TestEntries(t *testing.T) {
	Convey("Given no matches", t, func() {
		entries := types.Entries(nil)

		Convey("Then the entries should be an empty, non-nil slice", func() {
			So(entries, ShouldNotBeNil)
			So(entries, ShouldBeEmpty)
		})
	})

	Convey("Given a stored grid", t, func() {
		at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
		resp := types.NewGridResponse(model.MatchGrid{
			UserID:    "A",
			EventID:   "E",
			Matches:   []model.Match{{UserID: "B", CompatibilityScore: 13}},
			UpdatedAt: at,
		})

		Convey("Then the response should carry every field", func() {
			So(resp.UserID, ShouldEqual, "A")
			So(resp.EventID, ShouldEqual, "E")
			So(resp.Matches, ShouldResemble, []types.MatchEntry{{UserID: "B", CompatibilityScore: 13}})
			So(resp.UpdatedAt, ShouldEqual, at)
		})
	})
}
