package timeline

import (
	"slices"
	"strings"

	"github.com/okian/clashintel/internal/domain/model"
)

// Event tags asserted by the ingestion pipeline.
const (
	EventTownHallLevelUp     = "th_level_up"
	EventHeroLevelUp         = "hero_level_up"
	EventPetLevelUp          = "pet_level_up"
	EventEquipmentUpgrade    = "equipment_upgrade"
	EventLeagueChange        = "league_change"
	EventTrophyGain          = "trophy_gain"
	EventTrophyLoss          = "trophy_loss"
	EventDonationsThreshold  = "donations_threshold"
	EventCapitalContribution = "capital_contribution"
	EventWarActivity         = "war_activity"
	EventLegendActivity      = "legend_activity"
	EventBuilderActivity     = "builder_activity"
	EventExpLevelUp          = "exp_level_up"

	eventHighlight = "highlight"
)

// Icons.
const (
	IconJoin      = "join"
	IconDepart    = "depart"
	IconReturn    = "return"
	IconTenure    = "tenure"
	IconWarning   = "warning"
	IconNote      = "note"
	IconJoiner    = "joiner"
	IconUpgrade   = "upgrade"
	IconHero      = "hero"
	IconPet       = "pet"
	IconEquipment = "equipment"
	IconLeague    = "league"
	IconTrophy    = "trophy"
	IconCapital   = "capital"
	IconDonation  = "donation"
	IconLegend    = "legend"
	IconBuilder   = "builder"
	IconWar       = "war"
	IconHighlight = "highlight"
)

type display struct {
	title string
	icon  string
	tone  string
}

var eventDisplay = map[string]display{ //nolint:gochecknoglobals // fixed lookup
	EventTownHallLevelUp:     {"Town Hall Upgrade", IconUpgrade, model.TonePositive},
	EventHeroLevelUp:         {"Hero Upgrade", IconHero, model.TonePositive},
	EventPetLevelUp:          {"Pet Upgrade", IconPet, model.TonePositive},
	EventEquipmentUpgrade:    {"Equipment Upgrade", IconEquipment, model.TonePositive},
	EventLeagueChange:        {"League Change", IconLeague, model.ToneDefault},
	EventTrophyGain:          {"Trophy Gain", IconTrophy, model.ToneDefault},
	EventTrophyLoss:          {"Trophy Loss", IconTrophy, model.ToneDefault},
	EventDonationsThreshold:  {"Donation Milestone", IconDonation, model.ToneDefault},
	EventCapitalContribution: {"Capital Contribution", IconCapital, model.ToneDefault},
	EventWarActivity:         {"War Activity", IconWar, model.ToneDefault},
	EventLegendActivity:      {"Legend League Activity", IconLegend, model.ToneDefault},
	EventBuilderActivity:     {"Builder Base Activity", IconBuilder, model.ToneDefault},
	EventExpLevelUp:          {"Experience Level Up", IconUpgrade, model.TonePositive},
	eventHighlight:           {"Notable Activity", IconHighlight, model.ToneDefault},
}

// trustedEvents returns the snapshot's event tags that its deltas support, in
// their original order and without repeats.
func trustedEvents(s model.Snapshot) []string {
	var out []string
	for _, tag := range s.Events {
		tag = strings.TrimSpace(tag)
		if tag == "" || slices.Contains(out, tag) || !supported(tag, s.Deltas) {
			continue
		}
		out = append(out, tag)
	}
	return out
}

func supported(tag string, deltas map[string]model.Number) bool {
	switch tag {
	case EventTownHallLevelUp:
		return deltas[model.MetricTownHallLevel].NonZero()
	case EventHeroLevelUp:
		return anyPositive(deltas, model.HeroPrefix)
	case EventPetLevelUp:
		return anyPositive(deltas, model.PetPrefix)
	case EventEquipmentUpgrade:
		return anyPositive(deltas, model.EquipmentPrefix)
	}
	return true
}

func anyPositive(deltas map[string]model.Number, prefix string) bool {
	for k, v := range deltas {
		if strings.HasPrefix(k, prefix) && v.Value() > 0 {
			return true
		}
	}
	return false
}

// primaryEvent picks the first trusted event with a display mapping. A day
// without one falls back to the generic highlight when it is notable or has
// any delta.
func primaryEvent(trusted []string, s model.Snapshot) (string, bool) {
	for _, tag := range trusted {
		if _, ok := eventDisplay[tag]; ok {
			return tag, true
		}
	}
	if s.Notability.Value() > 0 || len(s.Deltas) > 0 {
		return eventHighlight, true
	}
	return "", false
}

// refineTitle replaces the event title with the metric that dominated the day.
func refineTitle(title string, deltas map[string]model.Number) string {
	trophy := deltas[model.MetricTrophies]
	if !trophy.NonZero() {
		trophy = deltas[model.MetricRankedTrophies]
	}
	switch {
	case trophy.NonZero() && trophy.Value() > 0:
		return "Trophy Gain"
	case trophy.NonZero():
		return "Trophy Loss"
	case deltas[model.MetricDonations].NonZero() || deltas[model.MetricDonationsReceived].NonZero():
		return "Donation Activity"
	case deltas[model.MetricWarStars].NonZero():
		return "War Performance"
	case deltas[model.MetricCapitalContributions].NonZero():
		return "Capital Contribution"
	case anyPositive(deltas, model.HeroPrefix):
		return "Hero Upgrade"
	case deltas[model.MetricTownHallLevel].NonZero():
		return "Town Hall Upgrade"
	}
	return title
}
