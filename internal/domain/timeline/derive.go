// Package timeline derives a player's activity timeline and milestone
// highlights from daily snapshots.
//
// Derivation is pure: inputs are never modified, nothing is persisted and
// malformed records are skipped rather than reported.
package timeline

import (
	"sort"
	"strconv"
	"time"

	"github.com/okian/clashintel/internal/domain/model"
)

// entry is a timeline item with its sort key.
type entry struct {
	item model.TimelineItem
	at   time.Time
}

// DeriveTimeline returns the player's timeline, newest first.
//
// Leadership records (movements, tenure actions, warnings and notes) are only
// included when includeLeadership is set. Joiner events are always included.
func DeriveTimeline(snapshots []model.Snapshot, records model.LeadershipRecords, includeLeadership bool) []model.TimelineItem {
	seq := backfill(snapshots)
	entries := make([]entry, 0, len(seq))

	for i, d := range seq {
		item, ok := snapshotItem(d.snap, i)
		if !ok {
			continue
		}
		entries = append(entries, entry{item: item, at: d.day})
	}

	if includeLeadership {
		entries = append(entries, movementItems(records.Movements)...)
		entries = append(entries, tenureItems(records.TenureActions)...)
		entries = append(entries, warningItems(records.Warnings)...)
		entries = append(entries, noteItems(records.Notes)...)
	}
	entries = append(entries, joinerItems(records.JoinerEvents)...)

	sort.SliceStable(entries, func(i, j int) bool { return entries[i].at.After(entries[j].at) })

	out := make([]model.TimelineItem, len(entries))
	for i := range entries {
		out[i] = entries[i].item
	}
	return out
}

// snapshotItem renders one backfilled day, or reports false when the day is skipped.
func snapshotItem(s model.Snapshot, index int) (model.TimelineItem, bool) {
	trusted := trustedEvents(s)
	if len(trusted) == 0 && s.Notability.Value() <= 0 && len(s.Deltas) == 0 {
		return model.TimelineItem{}, false
	}

	primary, ok := primaryEvent(trusted, s)
	if !ok {
		return model.TimelineItem{}, false
	}

	description := describe(s, primary)
	if description == "" {
		return model.TimelineItem{}, false
	}

	disp := eventDisplay[primary]
	date := s.DayKey()
	return model.TimelineItem{
		ID:          date + "-" + strconv.Itoa(index),
		Date:        date,
		Title:       refineTitle(disp.title, s.Deltas),
		Description: description,
		Tone:        disp.tone,
		Icon:        disp.icon,
	}, true
}
