package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	app "github.com/okian/clashintel/internal/app"
	"github.com/okian/clashintel/internal/auth"
	"github.com/okian/clashintel/internal/config"
	"github.com/okian/clashintel/pkg/logger"
)

func TestConfigFromEnv(t *testing.T) {
	convey.Convey("Given CLASHINTEL_* environment overrides", t, func() {
		t.Setenv("CLASHINTEL_ADDR", ":8080")
		t.Setenv("CLASHINTEL_QUEUE_SIZE", "1000")
		t.Setenv("CLASHINTEL_WORKER_COUNT", "4")

		convey.Convey("Then the configuration reflects them", func() {
			cfg, err := config.Load(context.Background())
			convey.So(err, convey.ShouldBeNil)
			convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
			convey.So(cfg.QueueSize, convey.ShouldEqual, 1000)
			convey.So(cfg.WorkerCount, convey.ShouldEqual, 4)
		})
	})

	convey.Convey("Given an empty listen address", t, func() {
		t.Setenv("CLASHINTEL_ADDR", " ")

		convey.Convey("Then loading fails", func() {
			cfg, err := config.Load(context.Background())
			convey.So(err, convey.ShouldNotBeNil)
			convey.So(cfg, convey.ShouldBeNil)
		})
	})
}

func TestMux(t *testing.T) {
	convey.Convey("Given a started service behind the full mux", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		cfg := config.New()
		cfg.WorkerCount = 2
		svc := app.New(append(app.FromConfig(cfg), app.WithLogger(logger.Discard()))...)
		convey.So(svc.Start(ctx), convey.ShouldBeNil)
		defer svc.Stop()

		mux := newMux(ctx, svc, auth.NewService("secret", 0))

		get := func(path string) *httptest.ResponseRecorder {
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
			return w
		}

		convey.Convey("Then docs, health and stats are served", func() {
			convey.So(get("/api-docs").Code, convey.ShouldEqual, http.StatusOK)
			convey.So(get("/openapi.yaml").Code, convey.ShouldEqual, http.StatusOK)
			convey.So(get("/health").Code, convey.ShouldEqual, http.StatusOK)
			convey.So(get("/stats").Code, convey.ShouldEqual, http.StatusOK)
			convey.So(get("/healthz").Code, convey.ShouldEqual, http.StatusOK)
		})

		convey.Convey("Then an ingested snapshot becomes readable", func() {
			w := httptest.NewRecorder()
			body := `{"playerTag":"#2PP","snapshotDate":"2024-01-02","trophies":1000}`
			mux.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/snapshots", strings.NewReader(body)))
			convey.So(w.Code, convey.ShouldEqual, http.StatusAccepted)

			var status int
			for range 100 {
				if status = get("/players/2PP/profile").Code; status == http.StatusOK {
					break
				}
				time.Sleep(10 * time.Millisecond)
			}
			convey.So(status, convey.ShouldEqual, http.StatusOK)
			convey.So(get("/roster").Body.String(), convey.ShouldContainSubstring, "#2PP")
		})
	})
}

func TestServiceMetricsUpdater(t *testing.T) {
	convey.Convey("Given a service that has not started", t, func() {
		svc := app.New(app.WithLogger(logger.Discard()))

		convey.Convey("Then the updater returns once the context ends", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
			defer cancel()
			convey.So(func() { startServiceMetricsUpdater(ctx, svc) }, convey.ShouldNotPanic)
		})
	})
}
