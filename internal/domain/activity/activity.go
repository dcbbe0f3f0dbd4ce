// Package activity scores how active a player is. The score is a baseline
// from the latest snapshot (standing in the clan) plus the deltas of the
// snapshots inside the scoring window.
package activity

import (
	"math"
	"strings"
	"time"

	"github.com/okian/clashintel/internal/domain/model"
	"github.com/okian/clashintel/internal/domain/timeline"
)

// Signal names. They double as weight keys in configuration.
const (
	SignalDonations  = "donations"
	SignalAttackWins = "attack_wins"
	SignalWarStars   = "war_stars"
	SignalCapital    = "capital_contributions"
	SignalTrophies   = "trophies"
	SignalUpgrades   = "upgrades"
)

// Baseline parts reported in Result.Baseline.
const (
	BaselinePresence  = "presence"
	BaselineRole      = "role"
	BaselineTrophies  = "trophies"
	BaselineDonations = "donations"
	BaselineRanked    = "ranked"
	BaselineHeroes    = "heroes"
)

// Activity levels.
const (
	LevelVeryActive = "Very Active"
	LevelActive     = "Active"
	LevelModerate   = "Moderate"
	LevelLow        = "Low"
	LevelInactive   = "Inactive"
)

const (
	defaultWindow = 7 * 24 * time.Hour
	maxScoreValue = 100

	presencePoints    = 12
	trophiesPerPoint  = 15
	maxTrophyPoints   = 20
	donationsPerPoint = 30
	maxDonationPoints = 10
	rankedPoints      = 5
	maxHeroPoints     = 5
)

var rolePoints = map[string]float64{ //nolint:gochecknoglobals // fixed lookup
	"leader":   15,
	"coleader": 10,
	"elder":    5,
	"admin":    5,
}

// Option applies a configuration option to the Scorer.
type Option func(*Scorer)

// WithWeights overrides per-signal weights. Non-positive weights are ignored.
func WithWeights(weights map[string]float64) Option {
	return func(s *Scorer) {
		for signal, weight := range weights {
			if weight > 0 {
				s.weights[strings.ToLower(signal)] = weight
			}
		}
	}
}

// WithWindow sets how far back from the latest snapshot deltas count.
func WithWindow(window time.Duration) Option {
	return func(s *Scorer) {
		if window > 0 {
			s.window = window
		}
	}
}

// Result is a player's activity score.
type Result struct {
	Score    float64            `json:"score"`
	Level    string             `json:"level"`
	Baseline map[string]float64 `json:"baseline"`
	Signals  map[string]float64 `json:"signals"`
}

// Scorer computes activity scores. It is safe for concurrent use once built.
type Scorer struct {
	weights map[string]float64
	window  time.Duration
}

// NewScorer creates a scorer with default weights.
func NewScorer(opts ...Option) *Scorer {
	s := &Scorer{
		weights: map[string]float64{
			SignalDonations:  0.05,
			SignalAttackWins: 1.5,
			SignalWarStars:   3,
			SignalCapital:    0.0005,
			SignalTrophies:   0.05,
			SignalUpgrades:   5,
		},
		window: defaultWindow,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Score rates the latest snapshot's standing plus the deltas falling inside
// the window that ends at the most recent snapshot.
func (s *Scorer) Score(snapshots []model.Snapshot) Result {
	seq := timeline.Backfill(snapshots)
	signals := map[string]float64{}
	if len(seq) == 0 {
		return Result{Level: LevelInactive, Baseline: map[string]float64{}, Signals: signals}
	}

	latest, _ := seq[len(seq)-1].Day()
	since := latest.Add(-s.window)
	for _, snap := range seq {
		d, _ := snap.Day()
		if !d.After(since) {
			continue
		}
		for key, delta := range snap.Deltas {
			v := delta.Value()
			switch {
			case key == model.MetricDonations && v > 0:
				signals[SignalDonations] += v
			case key == model.MetricAttackWins && v > 0:
				signals[SignalAttackWins] += v
			case key == model.MetricWarStars && v > 0:
				signals[SignalWarStars] += v
			case key == model.MetricCapitalContributions && v > 0:
				signals[SignalCapital] += v
			case key == model.MetricTrophies:
				signals[SignalTrophies] += math.Abs(v)
			case v > 0 && isUpgrade(key):
				signals[SignalUpgrades]++
			}
		}
	}

	baseline := Baseline(seq[len(seq)-1])
	var score float64
	for _, v := range baseline {
		score += v
	}
	for signal, v := range signals {
		score += v * s.weights[signal]
	}
	score = math.Max(0, math.Min(maxScoreValue, math.Round(score*10)/10))

	return Result{Score: score, Level: LevelFor(score), Baseline: baseline, Signals: signals}
}

// Baseline scores a single snapshot's standing: being in the clan, role,
// trophies, lifetime donations, ranked participation and unlocked heroes.
func Baseline(snap model.Snapshot) map[string]float64 {
	b := map[string]float64{BaselinePresence: presencePoints}
	if p := rolePoints[strings.ToLower(snap.Role)]; p > 0 {
		b[BaselineRole] = p
	}
	if v := snap.Trophies.Value(); v > 0 {
		b[BaselineTrophies] = math.Min(maxTrophyPoints, v/trophiesPerPoint)
	}
	if v := snap.Donations.Value(); v > 0 {
		b[BaselineDonations] = math.Min(maxDonationPoints, v/donationsPerPoint)
	}
	if snap.RankedTrophies.Value() > 0 || snap.RankedLeagueName != "" {
		b[BaselineRanked] = rankedPoints
	}
	var heroes float64
	for _, lvl := range snap.HeroLevels {
		if lvl.Value() > 0 {
			heroes++
		}
	}
	if heroes > 0 {
		b[BaselineHeroes] = math.Min(maxHeroPoints, heroes)
	}
	return b
}

func isUpgrade(key string) bool {
	return key == model.MetricTownHallLevel ||
		strings.HasPrefix(key, model.HeroPrefix) ||
		strings.HasPrefix(key, model.PetPrefix) ||
		strings.HasPrefix(key, model.EquipmentPrefix)
}

// LevelFor maps a score to its activity level.
func LevelFor(score float64) string {
	switch {
	case score >= 80:
		return LevelVeryActive
	case score >= 60:
		return LevelActive
	case score >= 45:
		return LevelModerate
	case score >= 25:
		return LevelLow
	default:
		return LevelInactive
	}
}
