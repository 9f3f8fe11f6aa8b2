package auth_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/okian/mingle/internal/auth"
	. "github.com/smartystreets/goconvey/convey"
)

const secret = "0123456789abcdef0123456789abcdef"

func TestManager(t *testing.T) {
	Convey("Given a token manager", t, func() {
		m, err := auth.NewManager(secret, auth.WithIssuer("mingle"))
		So(err, ShouldBeNil)

		Convey("When issuing and validating a token", func() {
			token, err := m.Issue("user-1")
			So(err, ShouldBeNil)
			userID, err := m.Validate(token)

			Convey("Then the subject should round-trip", func() {
				So(err, ShouldBeNil)
				So(userID, ShouldEqual, "user-1")
			})
		})

		Convey("When the token was signed with another secret", func() {
			other, _ := auth.NewManager("another-secret-another-secret-xx", auth.WithIssuer("mingle"))
			token, _ := other.Issue("user-1")
			_, err := m.Validate(token)
			So(errors.Is(err, auth.ErrInvalidToken), ShouldBeTrue)
		})

		Convey("When the issuer differs", func() {
			other, _ := auth.NewManager(secret, auth.WithIssuer("someone-else"))
			token, _ := other.Issue("user-1")
			_, err := m.Validate(token)
			So(errors.Is(err, auth.ErrInvalidToken), ShouldBeTrue)
		})

		Convey("When the token has expired", func() {
			past, _ := auth.NewManager(secret, auth.WithIssuer("mingle"), auth.WithTTL(time.Minute),
				auth.WithClock(func() time.Time { return time.Now().Add(-time.Hour) }))
			token, _ := past.Issue("user-1")
			_, err := m.Validate(token)
			So(errors.Is(err, auth.ErrInvalidToken), ShouldBeTrue)
		})

		Convey("When the token uses the none algorithm", func() {
			token, _ := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
				Subject:   "user-1",
				Issuer:    "mingle",
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			}).SignedString(jwt.UnsafeAllowNoneSignatureType)
			_, err := m.Validate(token)
			So(errors.Is(err, auth.ErrInvalidToken), ShouldBeTrue)
		})

		Convey("When the token has no subject", func() {
			token, _ := m.Issue("")
			_, err := m.Validate(token)
			So(errors.Is(err, auth.ErrInvalidToken), ShouldBeTrue)
		})

		Convey("When the token is garbage", func() {
			_, err := m.Validate("not-a-token")
			So(errors.Is(err, auth.ErrInvalidToken), ShouldBeTrue)
		})
	})

	Convey("Given an empty secret", t, func() {
		_, err := auth.NewManager("")
		So(errors.Is(err, auth.ErrEmptySecret), ShouldBeTrue)
	})
}

func TestContext(t *testing.T) {
	Convey("Given a context", t, func() {
		_, ok := auth.UserIDFromContext(context.Background())
		So(ok, ShouldBeFalse)

		id, ok := auth.UserIDFromContext(auth.WithUserID(context.Background(), "user-1"))
		So(ok, ShouldBeTrue)
		So(id, ShouldEqual, "user-1")

		_, ok = auth.UserIDFromContext(auth.WithUserID(context.Background(), ""))
		So(ok, ShouldBeFalse)
	})
}

func TestMiddleware(t *testing.T) {
	Convey("Given the bearer middleware", t, func() {
		m, _ := auth.NewManager(secret)
		var seen string
		var authed bool
		h := auth.Middleware(m)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen, authed = auth.UserIDFromContext(r.Context())
			w.WriteHeader(http.StatusNoContent)
		}))

		Convey("When a valid token is sent", func() {
			token, _ := m.Issue("user-1")
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("Authorization", "Bearer "+token)
			h.ServeHTTP(httptest.NewRecorder(), req)

			Convey("Then the handler should see the user", func() {
				So(authed, ShouldBeTrue)
				So(seen, ShouldEqual, "user-1")
			})
		})

		Convey("When no token or a bad token is sent", func() {
			for _, header := range []string{"", "Bearer", "Basic abc", "Bearer nope"} {
				authed = true
				req := httptest.NewRequest(http.MethodGet, "/", nil)
				if header != "" {
					req.Header.Set("Authorization", header)
				}
				rec := httptest.NewRecorder()
				h.ServeHTTP(rec, req)
				So(rec.Code, ShouldEqual, http.StatusNoContent)
				So(authed, ShouldBeFalse)
			}
		})
	})
}
