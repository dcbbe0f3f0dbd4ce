package timeline

import (
	"maps"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/okian/clashintel/internal/domain/model"
)

// dated pairs a snapshot with its parsed date.
type dated struct {
	snap model.Snapshot
	day  time.Time
}

// chronological drops undated snapshots and returns clones sorted ascending.
func chronological(snapshots []model.Snapshot) []dated {
	out := make([]dated, 0, len(snapshots))
	for _, s := range snapshots {
		day, ok := s.Day()
		if !ok {
			continue
		}
		out = append(out, dated{snap: s.Clone(), day: day})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].day.Before(out[j].day) })
	return out
}

// Backfill returns the dated snapshots in ascending order with every missing
// delta computed from the previous snapshot. The input is not modified.
//
// Scalar deltas are recorded only when non-zero. Derived hero, pet and
// equipment deltas are kept only when positive. A negative Town Hall delta is
// always dropped.
func Backfill(snapshots []model.Snapshot) []model.Snapshot {
	seq := backfill(snapshots)
	out := make([]model.Snapshot, len(seq))
	for i := range seq {
		out[i] = seq[i].snap
	}
	return out
}

func backfill(snapshots []model.Snapshot) []dated {
	seq := chronological(snapshots)
	for i := range seq {
		var prev *model.Snapshot
		if i > 0 {
			prev = &seq[i-1].snap
		}
		seq[i].snap.Deltas = completeDeltas(seq[i].snap, prev)
	}
	return seq
}

func completeDeltas(cur model.Snapshot, prev *model.Snapshot) map[string]model.Number {
	deltas := make(map[string]model.Number, len(cur.Deltas))
	for k, v := range cur.Deltas {
		if v.NonZero() {
			deltas[k] = v
		}
	}

	if th, ok := deltas[model.MetricTownHallLevel]; ok && th.Value() < 0 {
		delete(deltas, model.MetricTownHallLevel)
	}

	if prev == nil {
		return deltas
	}

	for _, key := range model.ScalarMetrics {
		if _, ok := deltas[key]; ok {
			continue
		}
		if d := cur.Metric(key).Sub(prev.Metric(key)); d.NonZero() {
			deltas[key] = d
		}
	}

	if _, ok := deltas[model.MetricTownHallLevel]; !ok {
		if d := cur.TownHallLevel.Sub(prev.TownHallLevel); d.Value() > 0 {
			deltas[model.MetricTownHallLevel] = d
		}
	}

	levelDeltas(deltas, model.HeroPrefix, cur.HeroLevels, prev.HeroLevels)
	levelDeltas(deltas, model.PetPrefix, cur.PetLevels, prev.PetLevels)
	levelDeltas(deltas, model.EquipmentPrefix, cur.EquipmentLevels, prev.EquipmentLevels)
	return deltas
}

// levelDeltas records positive per-item level changes under prefix+key.
func levelDeltas(deltas map[string]model.Number, prefix string, cur, prev map[string]model.Number) {
	for key, lvl := range cur {
		k := prefix + key
		if _, ok := deltas[k]; ok {
			continue
		}
		if d := lvl.Sub(prev[key]); d.Value() > 0 {
			deltas[k] = d
		}
	}
}

// prefixedKeys returns the delta keys carrying prefix, sorted.
func prefixedKeys(deltas map[string]model.Number, prefix string) []string {
	var keys []string
	for k := range maps.Keys(deltas) {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)
	return keys
}
