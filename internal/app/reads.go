package service

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/okian/clashintel/internal/adapters/repository"
	"github.com/okian/clashintel/internal/domain/activity"
	"github.com/okian/clashintel/internal/domain/comparison"
	"github.com/okian/clashintel/internal/domain/model"
	"github.com/okian/clashintel/internal/domain/timeline"
	"github.com/okian/clashintel/pkg/logger"
	"github.com/okian/clashintel/pkg/metrics"
)

const defaultHistoryDays = 30

// RosterClan identifies the clan a roster belongs to.
type RosterClan struct {
	Tag string `json:"tag,omitempty"`
}

// RosterSnapshot describes the data the roster was built from.
type RosterSnapshot struct {
	Date    string `json:"date"`
	Players int    `json:"players"`
}

// Roster is the clan member list.
type Roster struct {
	Clan     RosterClan     `json:"clan"`
	Snapshot RosterSnapshot `json:"snapshot"`
	Members  []model.Player `json:"members"`
}

// Roster lists every player from their latest snapshot, highest trophies first.
func (s *Service) Roster(ctx context.Context) (Roster, error) {
	store, profiles, err := s.deps()
	if err != nil {
		return Roster{}, err
	}
	latest, err := store.Latest(ctx)
	if err != nil {
		return Roster{}, fmt.Errorf("load roster: %w", err)
	}

	r := Roster{Clan: RosterClan{Tag: s.clanTag}, Members: make([]model.Player, 0, len(latest))}
	for _, snap := range latest {
		p := model.PlayerFromSnapshot(snap)
		if view, err := profiles.Get(ctx, snap.PlayerTag); err == nil {
			res := s.scorer.Score(view.Snapshots)
			p.ActivityScore, p.ActivityLevel = res.Score, res.Level
		} else {
			s.logger.Warn(ctx, "activity unavailable", logger.String("tag", snap.PlayerTag), logger.Error(err))
			p.ActivityLevel = activity.LevelInactive
		}
		r.Members = append(r.Members, p)
		r.Snapshot.Date = max(r.Snapshot.Date, p.LastSeen)
	}
	r.Snapshot.Players = len(r.Members)

	slices.SortFunc(r.Members, func(a, b model.Player) int {
		if c := cmp.Compare(b.Trophies.Value(), a.Trophies.Value()); c != 0 {
			return c
		}
		return cmp.Compare(a.Tag, b.Tag)
	})
	return r, nil
}

// Profile is everything the dashboard shows for one player.
type Profile struct {
	Player     model.Player               `json:"player"`
	Latest     model.Snapshot             `json:"latest"`
	Timeline   []model.TimelineItem       `json:"timeline"`
	Milestones []model.MilestoneHighlight `json:"milestones"`
	Activity   activity.Result            `json:"activity"`
	Leadership *model.LeadershipRecords   `json:"leadership,omitempty"`
}

// Profile builds a player's profile. Leadership records are included only
// when includeLeadership is set.
func (s *Service) Profile(ctx context.Context, rawTag string, includeLeadership bool) (Profile, error) {
	_, view, err := s.player(ctx, rawTag)
	if err != nil {
		return Profile{}, err
	}
	if len(view.Snapshots) == 0 {
		return Profile{}, fmt.Errorf("%s: %w", rawTag, repository.ErrNotFound)
	}
	latest := view.Snapshots[len(view.Snapshots)-1]
	act := s.scorer.Score(view.Snapshots)

	p := Profile{
		Player:     model.PlayerFromSnapshot(latest),
		Latest:     latest,
		Timeline:   s.deriveTimeline(view, includeLeadership),
		Milestones: s.deriveMilestones(view, latest.TownHallLevel),
		Activity:   act,
	}
	p.Player.ActivityScore, p.Player.ActivityLevel = act.Score, act.Level
	if includeLeadership {
		recs := view.Records
		p.Leadership = &recs
	}
	return p, nil
}

// Timeline derives a player's timeline.
func (s *Service) Timeline(ctx context.Context, rawTag string, includeLeadership bool) ([]model.TimelineItem, error) {
	_, view, err := s.player(ctx, rawTag)
	if err != nil {
		return nil, err
	}
	return s.deriveTimeline(view, includeLeadership), nil
}

// Milestones derives a player's milestone highlights. An invalid
// townHallOverride falls back to the latest snapshot's Town Hall level.
func (s *Service) Milestones(ctx context.Context, rawTag string, townHallOverride model.Number) ([]model.MilestoneHighlight, error) {
	_, view, err := s.player(ctx, rawTag)
	if err != nil {
		return nil, err
	}
	th := townHallOverride
	if !th.Valid() && len(view.Snapshots) > 0 {
		th = view.Snapshots[len(view.Snapshots)-1].TownHallLevel
	}
	return s.deriveMilestones(view, th), nil
}

func (s *Service) deriveTimeline(view playerView, includeLeadership bool) []model.TimelineItem {
	start := time.Now()
	items := timeline.DeriveTimeline(view.Snapshots, view.Records, includeLeadership)
	metrics.RecordDerivationLatency("timeline", msSince(start))
	metrics.RecordTimelineItems(len(items))
	return items
}

func (s *Service) deriveMilestones(view playerView, th model.Number) []model.MilestoneHighlight {
	start := time.Now()
	out := timeline.DeriveMilestones(view.Snapshots, th)
	metrics.RecordDerivationLatency("milestones", msSince(start))
	metrics.RecordMilestonesEmitted(len(out))
	return out
}

// HistoryPoint is one day of a player's history.
type HistoryPoint struct {
	Date              string                  `json:"date"`
	Trophies          model.Number            `json:"trophies"`
	Donations         model.Number            `json:"donations"`
	DonationsReceived model.Number            `json:"donationsReceived"`
	WarStars          model.Number            `json:"warStars,omitzero"`
	TownHallLevel     model.Number            `json:"townHallLevel,omitzero"`
	Deltas            map[string]model.Number `json:"deltas,omitempty"`
}

// History is a window of history points ending at the latest snapshot.
type History struct {
	PlayerTag      string         `json:"playerTag"`
	Days           int            `json:"days"`
	SnapshotsFound int            `json:"snapshotsFound"`
	Points         []HistoryPoint `json:"points"`
}

// ClampDays bounds a requested history window to [1, history_max_days].
// Zero selects the default of 30 days.
func (s *Service) ClampDays(days int) int {
	if days == 0 {
		days = defaultHistoryDays
	}
	return max(1, min(days, s.historyMaxDays))
}

// History returns up to days calendar days of points ending at the player's
// latest snapshot, oldest first, with deltas backfilled.
func (s *Service) History(ctx context.Context, rawTag string, days int) (History, error) {
	tag, view, err := s.player(ctx, rawTag)
	if err != nil {
		return History{}, err
	}
	days = s.ClampDays(days)
	h := History{PlayerTag: tag, Days: days, Points: []HistoryPoint{}}

	seq := timeline.Backfill(view.Snapshots)
	if len(seq) == 0 {
		return h, nil
	}
	last, _ := seq[len(seq)-1].Day()
	from := last.AddDate(0, 0, -(days - 1))
	for _, snap := range seq {
		d, _ := snap.Day()
		if d.Before(from) {
			continue
		}
		h.Points = append(h.Points, HistoryPoint{
			Date:              snap.DayKey(),
			Trophies:          snap.Trophies,
			Donations:         snap.Donations,
			DonationsReceived: snap.DonationsReceived,
			WarStars:          snap.WarStars,
			TownHallLevel:     snap.TownHallLevel,
			Deltas:            snap.Deltas,
		})
	}
	h.SnapshotsFound = len(h.Points)
	return h, nil
}

// Comparison ranks the player against every player's latest snapshot.
func (s *Service) Comparison(ctx context.Context, rawTag string) (comparison.Report, error) {
	tag, err := model.NormalizeTag(rawTag)
	if err != nil {
		return comparison.Report{}, err
	}
	store, _, err := s.deps()
	if err != nil {
		return comparison.Report{}, err
	}
	latest, err := store.Latest(ctx)
	if err != nil {
		return comparison.Report{}, fmt.Errorf("load latest snapshots: %w", err)
	}
	return comparison.Compare(tag, latest)
}
