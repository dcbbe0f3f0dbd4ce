// Package comparison ranks one player against the rest of the clan.
package comparison

import (
	"errors"
	"math"
	"slices"
	"strconv"

	"github.com/okian/clashintel/internal/domain/model"
)

// ErrPlayerNotInClan is returned when the player has no latest snapshot in the set.
var ErrPlayerNotInClan = errors.New("player not in clan")

// Compared metrics, keyed as they appear in the response.
const (
	MetricTrophies                 = "trophies"
	MetricDonations                = "donations"
	MetricDonationsReceived        = "donationsReceived"
	MetricWarStars                 = "warStars"
	MetricClanCapitalContributions = "clanCapitalContributions"
	MetricDonationRatio            = "donationRatio"
)

// Stat places one value within the clan distribution.
type Stat struct {
	PlayerValue  float64 `json:"playerValue"`
	ClanAverage  float64 `json:"clanAverage"`
	ClanMedian   float64 `json:"clanMedian"`
	Percentile   float64 `json:"percentile"`
	Rank         int     `json:"rank"`
	TotalPlayers int     `json:"totalPlayers"`
}

// Peers summarises players sharing an attribute with the subject.
type Peers struct {
	Key              string  `json:"key"`
	Count            int     `json:"count"`
	AverageTrophies  float64 `json:"averageTrophies"`
	AverageDonations float64 `json:"averageDonations"`
}

// Report is the full comparison for one player.
type Report struct {
	Metrics            map[string]Stat `json:"metrics"`
	TownHallComparison *Peers          `json:"townHallComparison,omitempty"`
	RoleComparison     *Peers          `json:"roleComparison,omitempty"`
}

var extractors = map[string]func(model.Snapshot) float64{ //nolint:gochecknoglobals // fixed lookup
	MetricTrophies:                 func(s model.Snapshot) float64 { return s.Trophies.Value() },
	MetricDonations:                func(s model.Snapshot) float64 { return s.Donations.Value() },
	MetricDonationsReceived:        func(s model.Snapshot) float64 { return s.DonationsReceived.Value() },
	MetricWarStars:                 func(s model.Snapshot) float64 { return s.WarStars.Value() },
	MetricClanCapitalContributions: func(s model.Snapshot) float64 { return s.CapitalContributions.Value() },
	MetricDonationRatio:            donationRatio,
}

func donationRatio(s model.Snapshot) float64 {
	received := math.Max(1, s.DonationsReceived.Value())
	return math.Round(s.Donations.Value()/received*100) / 100
}

// Compare ranks tag against latest, the most recent snapshot of every clan member.
func Compare(tag string, latest []model.Snapshot) (Report, error) {
	idx := slices.IndexFunc(latest, func(s model.Snapshot) bool { return s.PlayerTag == tag })
	if idx < 0 {
		return Report{}, ErrPlayerNotInClan
	}
	subject := latest[idx]

	report := Report{Metrics: make(map[string]Stat, len(extractors))}
	for name, extract := range extractors {
		values := make([]float64, len(latest))
		for i, s := range latest {
			values[i] = extract(s)
		}
		report.Metrics[name] = place(extract(subject), values)
	}

	if subject.TownHallLevel.Valid() {
		th := subject.TownHallLevel.Value()
		report.TownHallComparison = peers(strconv.FormatFloat(th, 'f', -1, 64), latest, func(s model.Snapshot) bool {
			return s.TownHallLevel.Valid() && s.TownHallLevel.Value() == th
		})
	}
	if subject.Role != "" {
		report.RoleComparison = peers(subject.Role, latest, func(s model.Snapshot) bool { return s.Role == subject.Role })
	}
	return report, nil
}

// place computes average, median, percentile and rank of v within values.
// Rank 1 is the highest value; ties share a rank.
func place(v float64, values []float64) Stat {
	sorted := slices.Clone(values)
	slices.Sort(sorted)

	var sum float64
	below, above := 0, 0
	for _, x := range sorted {
		sum += x
		switch {
		case x < v:
			below++
		case x > v:
			above++
		}
	}

	total := len(sorted)
	percentile := 100.0
	if total > 1 {
		percentile = float64(below) / float64(total-1) * 100
	}

	return Stat{
		PlayerValue:  v,
		ClanAverage:  round2(sum / float64(total)),
		ClanMedian:   median(sorted),
		Percentile:   round2(math.Min(100, percentile)),
		Rank:         above + 1,
		TotalPlayers: total,
	}
}

func median(sorted []float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

func peers(key string, latest []model.Snapshot, match func(model.Snapshot) bool) *Peers {
	p := &Peers{Key: key}
	for _, s := range latest {
		if !match(s) {
			continue
		}
		p.Count++
		p.AverageTrophies += s.Trophies.Value()
		p.AverageDonations += s.Donations.Value()
	}
	if p.Count > 0 {
		p.AverageTrophies = round2(p.AverageTrophies / float64(p.Count))
		p.AverageDonations = round2(p.AverageDonations / float64(p.Count))
	}
	return p
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
