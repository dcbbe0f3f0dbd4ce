package service

import (
	"cmp"
	"context"
	"slices"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/okian/clashintel/internal/domain/activity"
	"github.com/okian/clashintel/internal/domain/model"
)

const (
	insightsSource   = "derived"
	insightsTopCount = 3
)

// Insights is the command-center summary for a clan.
type Insights struct {
	ClanTag              string          `json:"clanTag"`
	SnapshotDate         string          `json:"snapshotDate"`
	SmartInsightsPayload InsightsPayload `json:"smartInsightsPayload"`
}

// InsightsPayload carries the summary and how it was produced.
type InsightsPayload struct {
	Metadata       InsightsMetadata `json:"metadata"`
	Headlines      []string         `json:"headlines"`
	ActivityLevels map[string]int   `json:"activityLevels"`
	TopDonors      []model.Player   `json:"topDonors"`
	NeedsAttention []model.Player   `json:"needsAttention"`
}

// InsightsMetadata describes the snapshot an insights payload was built from.
type InsightsMetadata struct {
	ClanTag      string    `json:"clanTag"`
	SnapshotDate string    `json:"snapshotDate"`
	GeneratedAt  time.Time `json:"generatedAt"`
	MemberCount  int       `json:"memberCount"`
	Source       string    `json:"source"`
}

// ResolveClan normalises a clan tag and checks it against the configured
// clan. An empty tag resolves to the configured clan.
func (s *Service) ResolveClan(raw string) (string, error) {
	if raw == "" {
		return s.clanTag, nil
	}
	tag, err := model.NormalizeTag(raw)
	if err != nil {
		return "", err
	}
	if s.clanTag == "" {
		return tag, nil
	}
	if own, err := model.NormalizeTag(s.clanTag); err != nil || own != tag {
		return "", ErrClanNotTracked
	}
	return tag, nil
}

// Insights summarises the roster of the given clan.
func (s *Service) Insights(ctx context.Context, rawClanTag string) (Insights, error) {
	if rawClanTag == "" {
		return Insights{}, ErrClanTagRequired
	}
	clan, err := s.ResolveClan(rawClanTag)
	if err != nil {
		return Insights{}, err
	}
	roster, err := s.Roster(ctx)
	if err != nil {
		return Insights{}, err
	}
	if len(roster.Members) == 0 {
		return Insights{}, ErrNoInsights
	}

	levels := map[string]int{}
	var attention []model.Player
	for _, m := range roster.Members {
		levels[m.ActivityLevel]++
		if m.ActivityLevel == activity.LevelInactive || m.ActivityLevel == activity.LevelLow {
			attention = append(attention, m)
		}
	}
	slices.SortStableFunc(attention, func(a, b model.Player) int {
		return cmp.Compare(a.ActivityScore, b.ActivityScore)
	})

	donors := slices.Clone(roster.Members)
	slices.SortStableFunc(donors, func(a, b model.Player) int {
		return cmp.Compare(b.Donations.Value(), a.Donations.Value())
	})
	donors = donors[:min(insightsTopCount, len(donors))]

	return Insights{
		ClanTag:      clan,
		SnapshotDate: roster.Snapshot.Date,
		SmartInsightsPayload: InsightsPayload{
			Metadata: InsightsMetadata{
				ClanTag:      clan,
				SnapshotDate: roster.Snapshot.Date,
				GeneratedAt:  s.now().UTC(),
				MemberCount:  len(roster.Members),
				Source:       insightsSource,
			},
			Headlines:      headlines(roster, donors, attention),
			ActivityLevels: levels,
			TopDonors:      donors,
			NeedsAttention: attention,
		},
	}, nil
}

func headlines(roster Roster, donors, attention []model.Player) []string {
	p := message.NewPrinter(language.English)
	out := []string{p.Sprintf("%d members tracked as of %s", len(roster.Members), roster.Snapshot.Date)}
	if top := roster.Members[0]; top.Trophies.Valid() {
		out = append(out, p.Sprintf("%s leads the clan with %d trophies", top.Name, int64(top.Trophies.Value())))
	}
	if d := donors[0]; d.Donations.Value() > 0 {
		out = append(out, p.Sprintf("%s is the top donor with %d troops donated", d.Name, int64(d.Donations.Value())))
	}
	if len(attention) > 0 {
		out = append(out, p.Sprintf("%d members show low or no activity", len(attention)))
	}
	return out
}
