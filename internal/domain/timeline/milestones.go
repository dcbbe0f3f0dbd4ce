package timeline

import (
	"maps"
	"slices"
	"sort"
	"time"

	"github.com/okian/clashintel/internal/domain/model"
)

// MaxMilestones bounds the highlights returned by DeriveMilestones.
const MaxMilestones = 4

var donationLadder = []float64{20000, 10000, 5000, 2500, 1000, 500} //nolint:gochecknoglobals // descending

var capitalLadder = []float64{1_000_000, 500_000, 250_000, 100_000} //nolint:gochecknoglobals // descending

// Single-day thresholds.
const (
	warStandoutStars     = 6
	builderSurgeWins     = 5
	builderSurgeTrophies = 30
)

type milestone struct {
	hl model.MilestoneHighlight
	at time.Time
}

// DeriveMilestones returns at most MaxMilestones highlights, newest first.
// currentTownHallLevel is used for hero caps when a snapshot lacks its own.
func DeriveMilestones(snapshots []model.Snapshot, currentTownHallLevel model.Number) []model.MilestoneHighlight {
	seq := backfill(snapshots)
	var found []milestone

	for i := 1; i < len(seq); i++ {
		prev, cur := seq[i-1].snap, seq[i].snap
		add := func(kind, title, detail string) {
			iso := seq[i].day.Format(model.DateLayout)
			found = append(found, milestone{at: seq[i].day, hl: model.MilestoneHighlight{
				Kind:        kind,
				Title:       title,
				Detail:      detail,
				DateISO:     iso,
				DateDisplay: displayDate(seq[i].day),
			}})
		}

		th := cur.TownHallLevel
		if !th.Valid() {
			th = currentTownHallLevel
		}
		for _, hero := range slices.Sorted(maps.Keys(cur.HeroLevels)) {
			limit := heroCap(th, hero)
			before, okPrev := prev.HeroLevels[hero].Float()
			after, okCur := cur.HeroLevels[hero].Float()
			if limit == 0 || !okPrev || !okCur {
				continue
			}
			if before < float64(limit) && after >= float64(limit) {
				add(model.MilestoneHero, heroName(hero)+" maxed",
					"Reached level "+formatNumber(after)+" at Town Hall "+formatNumber(th.Value()))
			}
		}

		if t, ok := crossed(prev.Donations, cur.Donations, donationLadder); ok {
			add(model.MilestoneDonation, "Donation milestone", "Crossed "+formatNumber(t)+" troops donated")
		}

		if t, ok := crossed(prev.CapitalContributions, cur.CapitalContributions, capitalLadder); ok {
			add(model.MilestoneCapital, "Capital milestone", "Crossed "+formatNumber(t)+" capital gold contributed")
		}

		if league, ok := leaguePromotion(prev, cur); ok {
			add(model.MilestoneLeague, "League promotion", "Promoted to "+league)
		}

		if stars := cur.Delta(model.MetricWarStars).Value(); stars >= warStandoutStars {
			add(model.MilestoneWar, "War standout", "Earned "+formatNumber(stars)+" war stars in a day")
		}

		if legendDay(cur) && !legendDay(prev) {
			add(model.MilestoneLegend, "Legend League", "Started pushing in Legend League")
		}

		wins := cur.Delta(model.MetricBuilderBattleWins).Value()
		trophies := cur.Delta(model.MetricBuilderTrophies).Value()
		switch {
		case wins >= builderSurgeWins:
			add(model.MilestoneBuilder, "Builder Base surge", "Won "+formatNumber(wins)+" builder battles in a day")
		case trophies >= builderSurgeTrophies:
			add(model.MilestoneBuilder, "Builder Base surge", "Gained "+formatNumber(trophies)+" builder trophies in a day")
		}
	}

	sort.SliceStable(found, func(i, j int) bool { return found[i].at.After(found[j].at) })

	type key struct{ kind, detail string }
	seen := make(map[key]bool, len(found))
	out := make([]model.MilestoneHighlight, 0, MaxMilestones)
	for _, m := range found {
		k := key{m.hl.Kind, m.hl.Detail}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, m.hl)
		if len(out) == MaxMilestones {
			break
		}
	}
	return out
}

// crossed returns the highest ladder rung t with prev < t <= cur.
func crossed(prev, cur model.Number, ladder []float64) (float64, bool) {
	before, okPrev := prev.Float()
	after, okCur := cur.Float()
	if !okPrev || !okCur || after <= before {
		return 0, false
	}
	for _, t := range ladder {
		if before < t && t <= after {
			return t, true
		}
	}
	return 0, false
}

func legendDay(s model.Snapshot) bool {
	return isLegend(s.League()) || s.HasEvent(EventLegendActivity)
}
