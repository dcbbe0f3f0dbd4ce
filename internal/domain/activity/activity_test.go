package activity_test

import (
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/clashintel/internal/domain/activity"
	"github.com/okian/clashintel/internal/domain/model"
)

func snap(date string, donations, warStars, trophies float64) model.Snapshot {
	return model.Snapshot{
		Date:      date,
		PlayerTag: "#2PP",
		Donations: model.Num(donations),
		WarStars:  model.Num(warStars),
		Trophies:  model.Num(trophies),
	}
}

func TestScorer_Score(t *testing.T) {
	Convey("Given a scorer with default weights", t, func() {
		scorer := activity.NewScorer()

		Convey("When there are no snapshots", func() {
			res := scorer.Score(nil)

			Convey("Then the player is inactive", func() {
				So(res.Score, ShouldEqual, 0)
				So(res.Level, ShouldEqual, activity.LevelInactive)
			})
		})

		Convey("When the player donated and fought during the week", func() {
			res := scorer.Score([]model.Snapshot{
				snap("2024-01-01", 0, 10, 3000),
				snap("2024-01-02", 200, 13, 3020),
				snap("2024-01-03", 400, 16, 3000),
			})

			Convey("Then every signal contributes on top of the baseline", func() {
				So(res.Signals[activity.SignalDonations], ShouldEqual, 400)
				So(res.Signals[activity.SignalWarStars], ShouldEqual, 6)
				So(res.Signals[activity.SignalTrophies], ShouldEqual, 40)
				// baseline 12+20+10, deltas 400*0.05 + 6*3 + 40*0.05
				So(res.Baseline[activity.BaselineTrophies], ShouldEqual, 20)
				So(res.Baseline[activity.BaselineDonations], ShouldEqual, 10)
				So(res.Score, ShouldEqual, 82)
				So(res.Level, ShouldEqual, activity.LevelVeryActive)
			})
		})

		Convey("When activity is older than the window", func() {
			res := scorer.Score([]model.Snapshot{
				snap("2024-01-01", 0, 0, 3000),
				snap("2024-01-02", 2000, 0, 3000),
				snap("2024-01-20", 2000, 0, 3000),
			})

			Convey("Then only the baseline counts", func() {
				So(res.Signals[activity.SignalDonations], ShouldEqual, 0)
				So(res.Score, ShouldEqual, 42)
				So(res.Level, ShouldEqual, activity.LevelLow)
			})
		})

		Convey("When the raw score exceeds the maximum", func() {
			res := scorer.Score([]model.Snapshot{
				snap("2024-01-01", 0, 0, 0),
				snap("2024-01-02", 10_000, 0, 0),
			})

			Convey("Then it is clamped to 100", func() {
				So(res.Score, ShouldEqual, 100)
				So(res.Level, ShouldEqual, activity.LevelVeryActive)
			})
		})
	})

	Convey("Given custom weights and window", t, func() {
		scorer := activity.NewScorer(
			activity.WithWeights(map[string]float64{"UPGRADES": 20, "donations": -1}),
			activity.WithWindow(48*time.Hour),
		)
		a, b := snap("2024-01-01", 0, 0, 0), snap("2024-01-02", 100, 0, 0)
		a.HeroLevels = map[string]model.Number{"bk": model.Num(10)}
		b.HeroLevels = map[string]model.Number{"bk": model.Num(11)}

		res := scorer.Score([]model.Snapshot{a, b})

		Convey("Then upgrades use the override and invalid weights are ignored", func() {
			So(res.Signals[activity.SignalUpgrades], ShouldEqual, 1)
			// deltas 100*0.05 + 1*20, baseline 12 + 100/30 + 1 hero
			So(res.Score, ShouldEqual, 41.3)
			So(res.Level, ShouldEqual, activity.LevelLow)
		})
	})
}

func TestScorer_SingleSnapshot(t *testing.T) {
	Convey("Given members with a single snapshot each", t, func() {
		scorer := activity.NewScorer()
		member := func(role string, trophies, donations float64) activity.Result {
			s := snap("2024-01-01", donations, 0, trophies)
			s.Role = role
			return scorer.Score([]model.Snapshot{s})
		}

		Convey("A leader with trophies and donations is moderate", func() {
			res := member("leader", 380, 72)
			So(res.Score, ShouldBeBetweenOrEqual, 45.0, 50.0)
			So(res.Level, ShouldEqual, activity.LevelModerate)
			So(res.Baseline[activity.BaselineRole], ShouldEqual, 15)
		})

		Convey("A co-leader with trophies and no donations is low", func() {
			res := member("coLeader", 239, 0)
			So(res.Score, ShouldBeBetweenOrEqual, 35.0, 40.0)
			So(res.Level, ShouldEqual, activity.LevelLow)
		})

		Convey("A member with nothing is inactive but not zero", func() {
			res := member("member", 0, 0)
			So(res.Score, ShouldBeBetweenOrEqual, 10.0, 15.0)
			So(res.Level, ShouldEqual, activity.LevelInactive)
		})

		Convey("Ranked participation and heroes raise the baseline", func() {
			s := snap("2024-01-01", 0, 0, 0)
			s.RankedLeagueName = "Electro League 34"
			s.HeroLevels = map[string]model.Number{"bk": model.Num(40), "aq": model.Num(45), "gw": model.Num(0)}
			res := scorer.Score([]model.Snapshot{s})
			So(res.Baseline[activity.BaselineRanked], ShouldEqual, 5)
			So(res.Baseline[activity.BaselineHeroes], ShouldEqual, 2)
			So(res.Score, ShouldEqual, 19)
		})
	})
}

func TestLevelFor(t *testing.T) {
	Convey("Levels follow the score bands", t, func() {
		So(activity.LevelFor(80), ShouldEqual, activity.LevelVeryActive)
		So(activity.LevelFor(79.9), ShouldEqual, activity.LevelActive)
		So(activity.LevelFor(60), ShouldEqual, activity.LevelActive)
		So(activity.LevelFor(47), ShouldEqual, activity.LevelModerate)
		So(activity.LevelFor(37), ShouldEqual, activity.LevelLow)
		So(activity.LevelFor(25), ShouldEqual, activity.LevelLow)
		So(activity.LevelFor(12), ShouldEqual, activity.LevelInactive)
	})
}
