package timeline

import (
	"maps"
	"slices"
	"strings"

	"github.com/okian/clashintel/internal/domain/model"
)

const descriptionSeparator = " • "

var metricLabels = map[string]string{ //nolint:gochecknoglobals // fixed lookup
	model.MetricTrophies:             "Trophies",
	model.MetricRankedTrophies:       "Ranked trophies",
	model.MetricDonations:            "Donations given",
	model.MetricDonationsReceived:    "Donations received",
	model.MetricWarStars:             "War stars",
	model.MetricAttackWins:           "Attack wins",
	model.MetricDefenseWins:          "Defense wins",
	model.MetricCapitalContributions: "Capital gold contributed",
	model.MetricBuilderTrophies:      "Builder trophies",
	model.MetricBuilderBattleWins:    "Builder battle wins",
	model.MetricExpLevel:             "Experience level",
	model.MetricRushPercent:          "Rush %",
	model.MetricTownHallLevel:        "Town Hall",
}

// Totals listed by the last-resort summary.
var summaryTotals = []string{ //nolint:gochecknoglobals // fixed order
	model.MetricTrophies,
	model.MetricDonations,
	model.MetricDonationsReceived,
	model.MetricWarStars,
	model.MetricCapitalContributions,
}

type describer struct {
	snap     model.Snapshot
	consumed map[string]bool
	parts    []string
}

// describe builds the description for one day. An empty result means the day
// has nothing worth showing.
func describe(s model.Snapshot, primary string) string {
	d := &describer{snap: s, consumed: map[string]bool{}}
	d.trophyCollapse()
	d.scalars()
	d.levels(model.HeroPrefix, heroName, "leveled up", "dropped")
	d.levels(model.PetPrefix, titleCase, "leveled up", "dropped")
	d.levels(model.EquipmentPrefix, titleCase, "upgraded", "downgraded")
	d.townHall()
	d.remaining()

	if len(d.parts) == 0 {
		if canned := cannedDescription(primary, s); canned != "" {
			return canned
		}
		return d.totals()
	}
	return strings.Join(d.parts, descriptionSeparator)
}

func (d *describer) add(key, text string) {
	d.consumed[key] = true
	d.parts = append(d.parts, text)
}

func (d *describer) scalarLine(label string, delta, total model.Number, suffix string) string {
	line := label + " " + formatSigned(delta.Value())
	if v, ok := total.Float(); ok {
		line += " (now " + formatNumber(v) + suffix + ")"
	}
	return line
}

// trophyCollapse merges identical trophy and ranked trophy movement into one line.
func (d *describer) trophyCollapse() {
	td := d.snap.Delta(model.MetricTrophies)
	rd := d.snap.Delta(model.MetricRankedTrophies)
	if !td.NonZero() || !rd.NonZero() || td.Value() != rd.Value() {
		return
	}
	tt, tok := d.snap.Trophies.Float()
	rt, rok := d.snap.RankedTrophies.Float()
	if !tok || !rok || tt != rt {
		return
	}
	d.add(model.MetricTrophies, d.scalarLine("Trophies", td, d.snap.Trophies, ""))
	d.consumed[model.MetricRankedTrophies] = true
}

func (d *describer) scalars() {
	for _, key := range model.ScalarMetrics {
		delta := d.snap.Delta(key)
		if d.consumed[key] || !delta.NonZero() {
			continue
		}
		suffix := ""
		if key == model.MetricRushPercent {
			suffix = "%"
		}
		d.add(key, d.scalarLine(metricLabels[key], delta, d.snap.Metric(key), suffix))
	}
}

func (d *describer) levels(prefix string, name func(string) string, up, down string) {
	for _, key := range prefixedKeys(d.snap.Deltas, prefix) {
		delta := d.snap.Delta(key)
		if !delta.NonZero() {
			continue
		}
		verb := up
		v := delta.Value()
		if v < 0 {
			verb, v = down, -v
		}
		line := name(strings.TrimPrefix(key, prefix)) + " " + verb + " by " + formatNumber(v)
		if lvl, ok := d.snap.Metric(key).Float(); ok {
			line += " to level " + formatNumber(lvl)
		}
		d.add(key, line)
	}
}

func (d *describer) townHall() {
	delta := d.snap.Delta(model.MetricTownHallLevel)
	if !delta.NonZero() {
		return
	}
	if lvl, ok := d.snap.TownHallLevel.Float(); ok && delta.Value() > 0 {
		d.add(model.MetricTownHallLevel, "Town Hall upgraded to "+formatNumber(lvl))
		return
	}
	d.add(model.MetricTownHallLevel, "Town Hall "+formatSigned(delta.Value()))
}

func (d *describer) remaining() {
	keys := slices.Sorted(maps.Keys(d.snap.Deltas))
	for _, key := range keys {
		delta := d.snap.Deltas[key]
		if d.consumed[key] || !delta.NonZero() {
			continue
		}
		d.add(key, titleCase(key)+" "+formatSigned(delta.Value()))
	}
}

// totals summarises whatever absolute totals were not already described.
func (d *describer) totals() string {
	var parts []string
	for _, key := range summaryTotals {
		if d.consumed[key] {
			continue
		}
		if v, ok := d.snap.Metric(key).Float(); ok {
			parts = append(parts, metricLabels[key]+": "+formatNumber(v))
		}
	}
	if len(parts) == 0 {
		return ""
	}
	return "Totals — " + strings.Join(parts, descriptionSeparator)
}

// cannedDescription phrases a day from its primary event when no delta was describable.
func cannedDescription(primary string, s model.Snapshot) string {
	switch primary {
	case EventDonationsThreshold:
		if v, ok := s.Donations.Float(); ok {
			return "Donated " + formatNumber(v) + " troops in total"
		}
	case EventCapitalContribution:
		if v, ok := s.CapitalContributions.Float(); ok {
			return "Contributed " + formatNumber(v) + " capital gold in total"
		}
	case EventWarActivity:
		if v, ok := s.WarStars.Float(); ok {
			return formatNumber(v) + " war stars earned in total"
		}
		return "Took part in clan war"
	case EventLegendActivity:
		if v, ok := s.Trophies.Float(); ok {
			return "Pushing in Legend League at " + formatNumber(v) + " trophies"
		}
		return "Active in Legend League"
	case EventBuilderActivity:
		if v, ok := s.BuilderTrophies.Float(); ok {
			return "Builder Base at " + formatNumber(v) + " trophies"
		}
		return "Active on the Builder Base"
	case EventLeagueChange:
		if l := s.League(); l != "" {
			return "Now in " + l
		}
	case EventTrophyGain, EventTrophyLoss:
		if v, ok := s.Trophies.Float(); ok {
			return "At " + formatNumber(v) + " trophies"
		}
	case EventTownHallLevelUp:
		if v, ok := s.TownHallLevel.Float(); ok {
			return "Reached Town Hall " + formatNumber(v)
		}
	}
	return ""
}
