package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/mingle/internal/auth"
	"github.com/okian/mingle/internal/config"
	"github.com/okian/mingle/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func TestMainFunction(t *testing.T) {
	convey.Convey("Given the main application", t, func() {
		convey.Convey("When testing configuration loading", func() {
			_ = os.Setenv("MINGLE_ADDR", ":8080")
			_ = os.Setenv("MINGLE_TOP_K", "2")
			defer func() {
				_ = os.Unsetenv("MINGLE_ADDR")
				_ = os.Unsetenv("MINGLE_TOP_K")
			}()

			convey.Convey("Then configuration should be loadable", func() {
				cfg, err := config.Load(context.Background())
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.TopK, convey.ShouldEqual, 2)
			})
		})

		convey.Convey("When building the service from defaults", func() {
			cfg := config.New()
			cfg.TopK = 2
			svc, err := newService(context.Background(), cfg, logger.Get())
			convey.So(err, convey.ShouldBeNil)
			defer svc.Stop()

			convey.Convey("Then it should be started with the configured options", func() {
				stats := svc.GetStats()
				convey.So(stats["started"], convey.ShouldEqual, true)
				convey.So(stats["topK"], convey.ShouldEqual, 2)
			})
		})

		convey.Convey("When the store driver is unknown", func() {
			cfg := config.New()
			cfg.StoreDriver = "etcd"
			_, err := newService(context.Background(), cfg, logger.Get())

			convey.Convey("Then the service should not start", func() {
				convey.So(err, convey.ShouldNotBeNil)
			})
		})

		convey.Convey("When the secret is empty", func() {
			cfg := config.New()
			cfg.JWTSecret = ""
			svc, err := newService(context.Background(), cfg, logger.Get())
			convey.So(err, convey.ShouldBeNil)
			defer svc.Stop()

			_, err = newHandler(cfg, svc, logger.Get())
			convey.So(err, convey.ShouldEqual, auth.ErrEmptySecret)
		})
	})
}

func TestMainApplicationIntegration(t *testing.T) {
	convey.Convey("Given the assembled application", t, func() {
		cfg := config.New()
		svc, err := newService(context.Background(), cfg, logger.Get())
		convey.So(err, convey.ShouldBeNil)
		defer svc.Stop()

		handler, err := newHandler(cfg, svc, logger.Get())
		convey.So(err, convey.ShouldBeNil)

		tokens, err := auth.NewManager(cfg.JWTSecret, auth.WithIssuer(cfg.JWTIssuer))
		convey.So(err, convey.ShouldBeNil)

		serve := func(method, path, body, userID string) *httptest.ResponseRecorder {
			req := httptest.NewRequest(method, path, strings.NewReader(body))
			if userID != "" {
				token, err := tokens.Issue(userID)
				convey.So(err, convey.ShouldBeNil)
				req.Header.Set("Authorization", "Bearer "+token)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)
			return w
		}

		convey.Convey("Then operational routes should respond", func() {
			convey.So(serve("GET", "/healthz", "", "").Code, convey.ShouldEqual, http.StatusOK)
			convey.So(serve("GET", "/stats", "", "").Code, convey.ShouldEqual, http.StatusOK)
			convey.So(serve("GET", "/metrics", "", "").Code, convey.ShouldEqual, http.StatusOK)
			convey.So(serve("GET", "/openapi.yaml", "", "").Code, convey.ShouldEqual, http.StatusOK)
		})

		convey.Convey("Then a survey round trip should work", func() {
			w := serve("POST", "/v1/matchmaking", `{"eventId":"E","answers":[{"questionId":"Q1","answer":"Chill"}]}`, "B")
			convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
			w = serve("POST", "/v1/matchmaking", `{"eventId":"E","answers":[{"questionId":"Q1","answer":"Chill"}]}`, "A")
			convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
			convey.So(w.Body.String(), convey.ShouldContainSubstring, `"userId":"B"`)

			w = serve("GET", "/v1/events/E/grid", "", "A")
			convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
		})
	})
}

func TestMainApplicationComponents(t *testing.T) {
	convey.Convey("Given main application components", t, func() {
		convey.Convey("When testing system metrics updater", func() {
			convey.Convey("Then it should stop with its context", func() {
				ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
				defer cancel()

				convey.So(func() {
					startSystemMetricsUpdater(ctx)
				}, convey.ShouldNotPanic)
			})
		})

		convey.Convey("When testing system metrics update", func() {
			convey.Convey("Then it should update metrics without panicking", func() {
				convey.So(func() {
					updateSystemMetrics()
				}, convey.ShouldNotPanic)
			})
		})
	})
}
