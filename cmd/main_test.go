package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/okian/huddle/internal/adapters/auth"
	app "github.com/okian/huddle/internal/app"
	"github.com/okian/huddle/internal/config"
	"github.com/okian/huddle/internal/domain/model"
	"github.com/okian/huddle/internal/seed"
	"github.com/okian/huddle/pkg/logger"
	"github.com/okian/huddle/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func TestServiceOptions(t *testing.T) {
	convey.Convey("Given configuration from the environment", t, func() {
		_ = os.Setenv("HUDDLE_AUTH_SECRET", "s3cret")
		_ = os.Setenv("HUDDLE_SEED_DEMO", "true")
		_ = os.Setenv("HUDDLE_FANOUT_WORKERS", "3")
		defer func() {
			_ = os.Unsetenv("HUDDLE_AUTH_SECRET")
			_ = os.Unsetenv("HUDDLE_SEED_DEMO")
			_ = os.Unsetenv("HUDDLE_FANOUT_WORKERS")
		}()

		cfg, err := config.Load(context.Background())
		convey.So(err, convey.ShouldBeNil)

		convey.Convey("Then the service starts seeded with the configured pool", func() {
			svc := app.New(serviceOptions(cfg, logger.Get())...)
			convey.So(svc.Start(context.Background()), convey.ShouldBeNil)
			defer svc.Stop()

			stats := svc.GetStats()
			convey.So(stats["fanoutWorkers"], convey.ShouldEqual, 3)
			counts, ok := stats["entities"].(map[string]int)
			convey.So(ok, convey.ShouldBeTrue)
			convey.So(counts["comments"], convey.ShouldBeGreaterThan, 0)
		})
	})
}

func TestNewMux(t *testing.T) {
	convey.Convey("Given a seeded service behind the mux", t, func() {
		svc := app.New(app.WithSeedDemo(true), app.WithFanoutWorkers(2))
		convey.So(svc.Start(context.Background()), convey.ShouldBeNil)
		defer svc.Stop()

		v, err := auth.NewVerifier("s3cret", "huddle")
		convey.So(err, convey.ShouldBeNil)
		mux := newMux(svc, v)

		ds := seed.Generate(seed.DefaultConfig(time.Now().UTC()))
		coach, ok := seed.FirstOf(ds, model.RoleCoach)
		convey.So(ok, convey.ShouldBeTrue)

		convey.Convey("When the coach fetches their digest", func() {
			tok, err := v.Issue(coach.ID, model.RoleCoach, time.Hour)
			convey.So(err, convey.ShouldBeNil)
			req := httptest.NewRequest(http.MethodGet, "/digests/coach/"+coach.ID, nil)
			req.Header.Set("Authorization", "Bearer "+tok)
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)

			convey.Convey("Then it is served", func() {
				convey.So(rec.Code, convey.ShouldEqual, http.StatusOK)
				convey.So(rec.Body.String(), convey.ShouldContainSubstring, `"comments"`)
			})
		})

		convey.Convey("When the health endpoint is hit", func() {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
			convey.So(rec.Code, convey.ShouldEqual, http.StatusOK)
		})
	})
}

func TestUpdateSystemMetrics(t *testing.T) {
	convey.Convey("Given the system metrics updater", t, func() {
		updateSystemMetrics()

		convey.Convey("Then the goroutine gauge is populated", func() {
			n, err := testutil.GatherAndCount(metrics.GetRegistry(), "huddle_system_goroutines")
			convey.So(err, convey.ShouldBeNil)
			convey.So(n, convey.ShouldEqual, 1)
		})
	})
}
