// Package model contains domain models passed between layers.
package model

import (
	"maps"
	"slices"
	"strings"
	"time"
)

// DateLayout is the calendar date format used for snapshot dates.
const DateLayout = "2006-01-02"

// Scalar metric keys. These are also the keys used in Snapshot.Deltas.
const (
	MetricTrophies             = "trophies"
	MetricRankedTrophies       = "ranked_trophies"
	MetricDonations            = "donations"
	MetricDonationsReceived    = "donations_received"
	MetricWarStars             = "war_stars"
	MetricAttackWins           = "attack_wins"
	MetricDefenseWins          = "defense_wins"
	MetricCapitalContributions = "capital_contributions"
	MetricBuilderTrophies      = "builder_trophies"
	MetricBuilderBattleWins    = "builder_battle_wins"
	MetricExpLevel             = "exp_level"
	MetricRushPercent          = "rush_percent"
	MetricTownHallLevel        = "town_hall_level"
)

// Prefixes of per-item level delta keys.
const (
	HeroPrefix      = "hero_"
	PetPrefix       = "pet_"
	EquipmentPrefix = "equipment_"
)

// ScalarMetrics lists the backfilled scalar metrics in description priority order.
var ScalarMetrics = []string{ //nolint:gochecknoglobals // fixed metric order
	MetricTrophies,
	MetricRankedTrophies,
	MetricDonations,
	MetricDonationsReceived,
	MetricWarStars,
	MetricAttackWins,
	MetricDefenseWins,
	MetricCapitalContributions,
	MetricBuilderTrophies,
	MetricBuilderBattleWins,
	MetricExpLevel,
	MetricRushPercent,
}

// Snapshot is one day's recorded state for a single player.
type Snapshot struct {
	Date       string `json:"snapshotDate"`
	PlayerTag  string `json:"playerTag"`
	PlayerName string `json:"playerName,omitempty"`
	Role       string `json:"role,omitempty"`

	Trophies             Number `json:"trophies,omitzero"`
	RankedTrophies       Number `json:"rankedTrophies,omitzero"`
	Donations            Number `json:"donations,omitzero"`
	DonationsReceived    Number `json:"donationsReceived,omitzero"`
	WarStars             Number `json:"warStars,omitzero"`
	AttackWins           Number `json:"attackWins,omitzero"`
	DefenseWins          Number `json:"defenseWins,omitzero"`
	CapitalContributions Number `json:"capitalContributions,omitzero"`
	BuilderTrophies      Number `json:"builderTrophies,omitzero"`
	BuilderBattleWins    Number `json:"builderBattleWins,omitzero"`
	ExpLevel             Number `json:"expLevel,omitzero"`
	RushPercent          Number `json:"rushPercent,omitzero"`
	TownHallLevel        Number `json:"townHallLevel,omitzero"`

	LeagueName       string `json:"leagueName,omitempty"`
	RankedLeagueName string `json:"rankedLeagueName,omitempty"`

	HeroLevels      map[string]Number `json:"heroLevels,omitempty"`
	PetLevels       map[string]Number `json:"petLevels,omitempty"`
	EquipmentLevels map[string]Number `json:"equipmentLevels,omitempty"`

	Deltas     map[string]Number `json:"deltas,omitempty"`
	Events     []string          `json:"events,omitempty"`
	Notability Number            `json:"notability,omitzero"`
}

// ParseDate parses a snapshot or event date. Both calendar dates and RFC3339
// timestamps are accepted.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), true
	}
	return time.Time{}, false
}

// Day returns the parsed snapshot date.
func (s Snapshot) Day() (time.Time, bool) { return ParseDate(s.Date) }

// DayKey returns the calendar date (YYYY-MM-DD) of the snapshot, or "" when
// the date does not parse.
func (s Snapshot) DayKey() string {
	t, ok := s.Day()
	if !ok {
		return ""
	}
	return t.Format(DateLayout)
}

// Metric returns the absolute value of a scalar metric by delta key.
func (s Snapshot) Metric(key string) Number {
	switch key {
	case MetricTrophies:
		return s.Trophies
	case MetricRankedTrophies:
		return s.RankedTrophies
	case MetricDonations:
		return s.Donations
	case MetricDonationsReceived:
		return s.DonationsReceived
	case MetricWarStars:
		return s.WarStars
	case MetricAttackWins:
		return s.AttackWins
	case MetricDefenseWins:
		return s.DefenseWins
	case MetricCapitalContributions:
		return s.CapitalContributions
	case MetricBuilderTrophies:
		return s.BuilderTrophies
	case MetricBuilderBattleWins:
		return s.BuilderBattleWins
	case MetricExpLevel:
		return s.ExpLevel
	case MetricRushPercent:
		return s.RushPercent
	case MetricTownHallLevel:
		return s.TownHallLevel
	}
	switch {
	case strings.HasPrefix(key, HeroPrefix):
		return s.HeroLevels[strings.TrimPrefix(key, HeroPrefix)]
	case strings.HasPrefix(key, PetPrefix):
		return s.PetLevels[strings.TrimPrefix(key, PetPrefix)]
	case strings.HasPrefix(key, EquipmentPrefix):
		return s.EquipmentLevels[strings.TrimPrefix(key, EquipmentPrefix)]
	}
	return Number{}
}

// Delta returns the recorded change for key.
func (s Snapshot) Delta(key string) Number { return s.Deltas[key] }

// League returns the ranked league name when set, else the regular league.
func (s Snapshot) League() string {
	if s.RankedLeagueName != "" {
		return s.RankedLeagueName
	}
	return s.LeagueName
}

// HasEvent reports whether the snapshot carries the given event tag.
func (s Snapshot) HasEvent(tag string) bool { return slices.Contains(s.Events, tag) }

// Clone returns a deep copy so derived data never aliases stored snapshots.
func (s Snapshot) Clone() Snapshot {
	c := s
	c.HeroLevels = maps.Clone(s.HeroLevels)
	c.PetLevels = maps.Clone(s.PetLevels)
	c.EquipmentLevels = maps.Clone(s.EquipmentLevels)
	c.Deltas = maps.Clone(s.Deltas)
	c.Events = slices.Clone(s.Events)
	return c
}
