package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/okian/clashintel/internal/adapters/repository"
	service "github.com/okian/clashintel/internal/app"
	"github.com/okian/clashintel/internal/domain/comparison"
	"github.com/okian/clashintel/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func seed(ctx context.Context, store repository.Store, snaps ...model.Snapshot) {
	for _, s := range snaps {
		if _, err := store.SaveSnapshot(ctx, s); err != nil {
			panic(err)
		}
	}
}

func startedWith(ctx context.Context, store repository.Store, opts ...service.Option) *service.Service {
	svc := service.New(append([]service.Option{service.WithStore(store), service.WithWorkerCount(1)}, opts...)...)
	if err := svc.Start(ctx); err != nil {
		panic(err)
	}
	return svc
}

func TestService_ReadModels(t *testing.T) {
	Convey("Given two players with a few days of snapshots", t, func() {
		ctx := context.Background()
		store := repository.NewMemoryStore(ctx)
		seed(ctx, store,
			model.Snapshot{PlayerTag: "#2PP", PlayerName: "Ada", Role: "leader", Date: "2024-01-01",
				Trophies: model.Num(1000), Donations: model.Num(100), DonationsReceived: model.Num(50), TownHallLevel: model.Num(14)},
			model.Snapshot{PlayerTag: "#2PP", PlayerName: "Ada", Role: "leader", Date: "2024-01-02",
				Trophies: model.Num(1200), Donations: model.Num(100), DonationsReceived: model.Num(50), TownHallLevel: model.Num(14)},
			model.Snapshot{PlayerTag: "#2PP", PlayerName: "Ada", Role: "leader", Date: "2024-01-03",
				Trophies: model.Num(1200), Donations: model.Num(350), DonationsReceived: model.Num(80), TownHallLevel: model.Num(14)},
			model.Snapshot{PlayerTag: "#9QQ", PlayerName: "Bo", Role: "member", Date: "2024-01-03",
				Trophies: model.Num(3000), Donations: model.Num(10), DonationsReceived: model.Num(400), TownHallLevel: model.Num(15)},
		)
		svc := startedWith(ctx, store)
		defer svc.Stop()

		Convey("The roster is sorted by trophies and carries activity", func() {
			r, err := svc.Roster(ctx)
			So(err, ShouldBeNil)
			So(r.Snapshot.Players, ShouldEqual, 2)
			So(r.Snapshot.Date, ShouldEqual, "2024-01-03")
			So(r.Members[0].Tag, ShouldEqual, "#9QQ")
			So(r.Members[1].Tag, ShouldEqual, "#2PP")
			So(r.Members[1].ActivityLevel, ShouldNotBeEmpty)
		})

		Convey("The timeline is derived newest first", func() {
			items, err := svc.Timeline(ctx, "2pp", false)
			So(err, ShouldBeNil)
			So(items, ShouldHaveLength, 2)
			So(items[0].Date, ShouldEqual, "2024-01-03")
			So(items[0].Description, ShouldContainSubstring, "Donations given +250 (now 350)")
			So(items[1].Title, ShouldEqual, "Trophy Gain")
			So(items[1].Description, ShouldContainSubstring, "Trophies +200 (now 1,200)")
		})

		Convey("An unknown player is not found", func() {
			_, err := svc.Timeline(ctx, "#8YY", false)
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
		})

		Convey("An invalid tag is rejected", func() {
			_, err := svc.Profile(ctx, "INVALID123", false)
			So(errors.Is(err, model.ErrInvalidTag), ShouldBeTrue)
		})

		Convey("Leadership records appear only for leaders", func() {
			_, err := svc.AddNote(ctx, model.Note{PlayerTag: "#2PP", Text: "promising", CreatedAt: "2024-01-04", CreatedBy: "#9QQ"})
			So(err, ShouldBeNil)

			viewer, err := svc.Timeline(ctx, "#2PP", false)
			So(err, ShouldBeNil)
			leader, err := svc.Timeline(ctx, "#2PP", true)
			So(err, ShouldBeNil)

			So(viewer, ShouldHaveLength, 2)
			So(leader, ShouldHaveLength, 3)
			So(leader[0].Title, ShouldEqual, "Leadership note")

			p, err := svc.Profile(ctx, "#2PP", true)
			So(err, ShouldBeNil)
			So(p.Leadership, ShouldNotBeNil)
			So(p.Leadership.Notes, ShouldHaveLength, 1)
			So(p.Leadership.Notes[0].ID, ShouldNotBeEmpty)

			p, _ = svc.Profile(ctx, "#2PP", false)
			So(p.Leadership, ShouldBeNil)
		})

		Convey("Joiner events show for everyone", func() {
			j, err := svc.AddJoinerEvent(ctx, model.JoinerEvent{PlayerTag: "#2PP", DetectedAt: "2024-01-05"})
			So(err, ShouldBeNil)
			So(j.Status, ShouldEqual, model.JoinerNew)

			items, _ := svc.Timeline(ctx, "#2PP", false)
			So(items[0].Title, ShouldEqual, "New joiner detected")
		})

		Convey("Invalid leadership records are rejected", func() {
			_, err := svc.AddNote(ctx, model.Note{PlayerTag: "#2PP", Text: "  "})
			So(errors.Is(err, model.ErrInvalidRecord), ShouldBeTrue)
			_, err = svc.AddMovement(ctx, model.Movement{PlayerTag: "#2PP", Type: "kicked"})
			So(errors.Is(err, model.ErrInvalidRecord), ShouldBeTrue)
			_, err = svc.AddTenureAction(ctx, model.TenureAction{PlayerTag: "#2PP", Action: "granted", OccurredAt: "soon"})
			So(errors.Is(err, model.ErrInvalidDate), ShouldBeTrue)
			_, err = svc.AddWarning(ctx, model.Warning{PlayerTag: "nope!", Text: "x"})
			So(errors.Is(err, model.ErrInvalidTag), ShouldBeTrue)
		})

		Convey("History windows end at the latest snapshot", func() {
			h, err := svc.History(ctx, "#2PP", 2)
			So(err, ShouldBeNil)
			So(h.Days, ShouldEqual, 2)
			So(h.SnapshotsFound, ShouldEqual, 2)
			So(h.Points[0].Date, ShouldEqual, "2024-01-02")
			So(h.Points[0].Deltas[model.MetricTrophies].Value(), ShouldEqual, 200)

			h, _ = svc.History(ctx, "#2PP", 200)
			So(h.Days, ShouldEqual, 90)
			So(h.SnapshotsFound, ShouldEqual, 3)

			So(svc.ClampDays(0), ShouldEqual, 30)
			So(svc.ClampDays(-5), ShouldEqual, 1)
		})

		Convey("Quiet players have no milestones", func() {
			out, err := svc.Milestones(ctx, "#2PP", model.Number{})
			So(err, ShouldBeNil)
			So(out, ShouldBeEmpty)
		})

		Convey("Comparison ranks against the clan", func() {
			rep, err := svc.Comparison(ctx, "#2PP")
			So(err, ShouldBeNil)
			So(rep.Metrics[comparison.MetricTrophies].Rank, ShouldEqual, 2)
			So(rep.Metrics[comparison.MetricDonations].Rank, ShouldEqual, 1)

			_, err = svc.Comparison(ctx, "#8YY")
			So(errors.Is(err, comparison.ErrPlayerNotInClan), ShouldBeTrue)
		})
	})
}

func TestService_Prune(t *testing.T) {
	Convey("Given a 30 day retention window", t, func() {
		ctx := context.Background()
		store := repository.NewMemoryStore(ctx)
		seed(ctx, store,
			model.Snapshot{PlayerTag: "#2PP", Date: "2024-01-01", Trophies: model.Num(1)},
			model.Snapshot{PlayerTag: "#2PP", Date: "2024-03-01", Trophies: model.Num(2)},
		)
		now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
		svc := startedWith(ctx, store,
			service.WithRetention(30, "@daily"),
			service.WithClock(func() time.Time { return now }),
		)
		defer svc.Stop()

		Convey("When pruning", func() {
			n, err := svc.Prune(ctx)

			Convey("Then only snapshots before the cutoff go", func() {
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 1)
				snaps, _ := store.Snapshots(ctx, "#2PP")
				So(snaps, ShouldHaveLength, 1)
				So(snaps[0].Date, ShouldEqual, "2024-03-01")
			})
		})
	})

	Convey("Given retention disabled", t, func() {
		ctx := context.Background()
		svc := startedWith(ctx, repository.NewMemoryStore(ctx))
		defer svc.Stop()

		n, err := svc.Prune(ctx)
		So(err, ShouldBeNil)
		So(n, ShouldEqual, 0)
	})
}

func TestService_Insights(t *testing.T) {
	Convey("Given a tracked clan with two members", t, func() {
		ctx := context.Background()
		store := repository.NewMemoryStore(ctx)
		seed(ctx, store,
			model.Snapshot{PlayerTag: "#2PP", PlayerName: "Ada", Role: "leader", Date: "2024-01-02",
				Trophies: model.Num(1000), Donations: model.Num(100)},
			model.Snapshot{PlayerTag: "#2PP", PlayerName: "Ada", Role: "leader", Date: "2024-01-03",
				Trophies: model.Num(1200), Donations: model.Num(350)},
			model.Snapshot{PlayerTag: "#9QQ", PlayerName: "Bo", Role: "member", Date: "2024-01-03",
				Trophies: model.Num(3000), Donations: model.Num(10)},
		)
		now := time.Date(2024, 1, 4, 12, 0, 0, 0, time.UTC)
		svc := startedWith(ctx, store,
			service.WithClanTag("#2PR8R8V8P"),
			service.WithClock(func() time.Time { return now }),
		)
		defer svc.Stop()

		Convey("Clan tags resolve with or without the hash", func() {
			tag, err := svc.ResolveClan("2pr8r8v8p")
			So(err, ShouldBeNil)
			So(tag, ShouldEqual, "#2PR8R8V8P")

			tag, err = svc.ResolveClan("")
			So(err, ShouldBeNil)
			So(tag, ShouldEqual, "#2PR8R8V8P")

			_, err = svc.ResolveClan("#9QQ")
			So(errors.Is(err, service.ErrClanNotTracked), ShouldBeTrue)
		})

		Convey("Insights summarise the roster", func() {
			in, err := svc.Insights(ctx, "#2PR8R8V8P")
			So(err, ShouldBeNil)
			So(in.ClanTag, ShouldEqual, "#2PR8R8V8P")
			So(in.SnapshotDate, ShouldEqual, "2024-01-03")

			meta := in.SmartInsightsPayload.Metadata
			So(meta.MemberCount, ShouldEqual, 2)
			So(meta.GeneratedAt, ShouldEqual, now)
			So(meta.Source, ShouldEqual, "derived")

			p := in.SmartInsightsPayload
			So(p.TopDonors[0].Tag, ShouldEqual, "#2PP")
			So(p.NeedsAttention, ShouldHaveLength, 1)
			So(p.NeedsAttention[0].Tag, ShouldEqual, "#9QQ")
			So(p.Headlines, ShouldContain, "Bo leads the clan with 3,000 trophies")
			So(p.Headlines, ShouldContain, "Ada is the top donor with 350 troops donated")
		})

		Convey("Insights need a clan tag that is tracked", func() {
			_, err := svc.Insights(ctx, "")
			So(errors.Is(err, service.ErrClanTagRequired), ShouldBeTrue)
			_, err = svc.Insights(ctx, "#9QQ")
			So(errors.Is(err, service.ErrClanNotTracked), ShouldBeTrue)
		})
	})

	Convey("Given a tracked clan without snapshots", t, func() {
		ctx := context.Background()
		svc := startedWith(ctx, repository.NewMemoryStore(ctx), service.WithClanTag("#2PR8R8V8P"))
		defer svc.Stop()

		Convey("There are no insights yet", func() {
			_, err := svc.Insights(ctx, "2PR8R8V8P")
			So(errors.Is(err, service.ErrNoInsights), ShouldBeTrue)
		})
	})
}

func TestService_RecordsWithoutSnapshots(t *testing.T) {
	Convey("Given a joiner detected before any snapshot arrived", t, func() {
		ctx := context.Background()
		svc := startedWith(ctx, repository.NewMemoryStore(ctx))
		defer svc.Stop()

		_, err := svc.AddJoinerEvent(ctx, model.JoinerEvent{PlayerTag: "#2PP", Status: "new", DetectedAt: "2024-01-05"})
		So(err, ShouldBeNil)

		Convey("The timeline carries the joiner item", func() {
			items, err := svc.Timeline(ctx, "#2PP", false)
			So(err, ShouldBeNil)
			So(items, ShouldHaveLength, 1)
			So(items[0].Title, ShouldEqual, "New joiner detected")
			So(items[0].Date, ShouldEqual, "2024-01-05")
		})

		Convey("Snapshot-based reads are empty rather than failing", func() {
			ms, err := svc.Milestones(ctx, "#2PP", model.Number{})
			So(err, ShouldBeNil)
			So(ms, ShouldBeEmpty)

			h, err := svc.History(ctx, "#2PP", 7)
			So(err, ShouldBeNil)
			So(h.Points, ShouldBeEmpty)
		})

		Convey("The profile still needs a snapshot", func() {
			_, err := svc.Profile(ctx, "#2PP", true)
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
		})

		Convey("A player with neither is not found", func() {
			_, err := svc.Timeline(ctx, "#9QQ", false)
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
		})
	})
}
