package config_test

import (
	"errors"
	"runtime"
	"testing"
	"time"

	"github.com/okian/clashintel/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.QueueSize, convey.ShouldEqual, 10_000)
			convey.So(cfg.WorkerCount, convey.ShouldEqual, runtime.NumCPU()*2)
			convey.So(cfg.DedupeSize, convey.ShouldEqual, 200_000)
			convey.So(cfg.StorageDriver, convey.ShouldEqual, config.StorageMemory)
			convey.So(cfg.CacheTTL, convey.ShouldEqual, 30*time.Second)
			convey.So(cfg.HistoryMaxDays, convey.ShouldEqual, 90)
			convey.So(cfg.RetentionSchedule, convey.ShouldEqual, "@daily")
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given a default config", t, func() {
		cfg := config.New()

		convey.Convey("When the storage driver is unknown", func() {
			cfg.StorageDriver = "postgres"
			err := cfg.Validate()

			convey.Convey("Then validation fails with ErrInvalidConfig", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "storage_driver")
			})
		})

		convey.Convey("When sqlite is selected without a path", func() {
			cfg.StorageDriver = config.StorageSQLite
			cfg.SQLitePath = " "

			convey.Convey("Then validation fails", func() {
				convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When history_max_days is zero", func() {
			cfg.HistoryMaxDays = 0

			convey.Convey("Then validation fails", func() {
				convey.So(cfg.Validate(), convey.ShouldNotBeNil)
			})
		})

		convey.Convey("When retention is enabled with a bad schedule", func() {
			cfg.RetentionDays = 30
			cfg.RetentionSchedule = "every tuesday"

			convey.Convey("Then validation fails on the schedule", func() {
				err := cfg.Validate()
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "retention_schedule")
			})
		})

		convey.Convey("When retention is disabled a bad schedule is ignored", func() {
			cfg.RetentionDays = 0
			cfg.RetentionSchedule = "every tuesday"

			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}
