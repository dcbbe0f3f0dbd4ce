package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/okian/clashintel/internal/adapters/mq/queue"
	"github.com/okian/clashintel/internal/adapters/repository"
	service "github.com/okian/clashintel/internal/app"
	"github.com/okian/clashintel/internal/config"
	"github.com/okian/clashintel/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

// blockingStore holds every SaveSnapshot call until release is closed.
type blockingStore struct {
	repository.Store
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (b *blockingStore) SaveSnapshot(ctx context.Context, s model.Snapshot) (bool, error) {
	b.once.Do(func() { close(b.entered) })
	<-b.release
	return b.Store.SaveSnapshot(ctx, s)
}

func snap(tag, date string, trophies float64) model.Snapshot {
	return model.Snapshot{PlayerTag: tag, Date: date, Trophies: model.Num(trophies)}
}

func eventually(cond func() bool) bool {
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

func TestService_Lifecycle(t *testing.T) {
	Convey("Given a new service", t, func() {
		svc := service.New(service.WithWorkerCount(2), service.WithQueueSize(16))
		ctx := context.Background()

		Convey("Operations before Start report ErrNotStarted", func() {
			_, err := svc.Ingest(ctx, snap("#2PP", "2024-01-01", 1))
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			_, err = svc.Roster(ctx)
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			So(svc.Health(ctx).Status, ShouldEqual, "starting")
		})

		Convey("When started and stopped", func() {
			So(svc.Start(ctx), ShouldBeNil)
			So(svc.Start(ctx), ShouldBeNil)
			stats := svc.GetStats()
			health := svc.Health(ctx)
			svc.Stop()

			Convey("Then stats and health reflect each phase", func() {
				So(stats["started"], ShouldEqual, true)
				So(stats["storageDriver"], ShouldEqual, config.StorageMemory)
				So(stats["totalPlayers"], ShouldEqual, 0)
				So(health.Status, ShouldEqual, "ok")
				So(health.Storage, ShouldEqual, "memory")
				So(svc.GetStats()["started"], ShouldEqual, false)
			})
		})

		Convey("When the storage driver is unknown", func() {
			bad := service.New(service.WithStorage("redis", ""))
			err := bad.Start(ctx)

			Convey("Then Start fails", func() {
				So(errors.Is(err, config.ErrInvalidConfig), ShouldBeTrue)
			})
		})
	})
}

func TestService_Ingest(t *testing.T) {
	Convey("Given a started service", t, func() {
		ctx := context.Background()
		store := repository.NewMemoryStore(ctx)
		svc := service.New(service.WithStore(store), service.WithWorkerCount(2))
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		Convey("Invalid tags and dates are rejected", func() {
			_, err := svc.Ingest(ctx, snap("INVALID123", "2024-01-01", 1))
			So(errors.Is(err, model.ErrInvalidTag), ShouldBeTrue)
			_, err = svc.Ingest(ctx, snap("#2PP", "yesterday", 1))
			So(errors.Is(err, model.ErrInvalidDate), ShouldBeTrue)
		})

		Convey("The first snapshot per player and day wins", func() {
			first, err1 := svc.Ingest(ctx, snap("2pp", "2024-01-01", 1000))
			second, err2 := svc.Ingest(ctx, snap("#2PP", "2024-01-01T18:00:00Z", 9999))
			So(err1, ShouldBeNil)
			So(err2, ShouldBeNil)
			So(first, ShouldEqual, service.OutcomeAccepted)
			So(second, ShouldEqual, service.OutcomeDuplicate)

			So(eventually(func() bool {
				snaps, err := store.Snapshots(ctx, "#2PP")
				return err == nil && len(snaps) == 1
			}), ShouldBeTrue)
			snaps, _ := store.Snapshots(ctx, "#2PP")
			So(snaps[0].Trophies.Value(), ShouldEqual, 1000)
			So(snaps[0].Date, ShouldEqual, "2024-01-01")
		})

		Convey("A batch reports each outcome", func() {
			res := svc.IngestBatch(ctx, []model.Snapshot{
				snap("#2PP", "2024-02-01", 1),
				snap("#2PP", "2024-02-01", 2),
				snap("bad!", "2024-02-01", 3),
			})
			So(res, ShouldHaveLength, 3)
			So(res[0].Status, ShouldEqual, service.OutcomeAccepted)
			So(res[1].Status, ShouldEqual, service.OutcomeDuplicate)
			So(res[2].Status, ShouldEqual, service.OutcomeRejected)
			So(errors.Is(res[2].Err(), model.ErrInvalidTag), ShouldBeTrue)
		})
	})
}

func TestService_Backpressure(t *testing.T) {
	Convey("Given one blocked worker and a queue of one", t, func() {
		ctx := context.Background()
		blocked := &blockingStore{
			Store:   repository.NewMemoryStore(ctx),
			entered: make(chan struct{}),
			release: make(chan struct{}),
		}
		svc := service.New(service.WithStore(blocked), service.WithWorkerCount(1), service.WithQueueSize(1))
		So(svc.Start(ctx), ShouldBeNil)

		_, err := svc.Ingest(ctx, snap("#2PP", "2024-01-01", 1))
		So(err, ShouldBeNil)
		<-blocked.entered
		_, err = svc.Ingest(ctx, snap("#2PP", "2024-01-02", 1))
		So(err, ShouldBeNil)

		Convey("When the queue is full", func() {
			_, errFull := svc.Ingest(ctx, snap("#2PP", "2024-01-03", 1))
			_, errRetry := svc.Ingest(ctx, snap("#2PP", "2024-01-03", 1))

			Convey("Then the snapshot is rejected and its dedupe slot released", func() {
				So(errors.Is(errFull, queue.ErrFull), ShouldBeTrue)
				So(errors.Is(errRetry, queue.ErrFull), ShouldBeTrue)
			})
		})

		Reset(func() {
			close(blocked.release)
			svc.Stop()
		})
	})
}
