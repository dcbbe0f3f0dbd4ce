package timeline

import "github.com/okian/clashintel/internal/domain/model"

// heroCaps is the maximum level of each hero per Town Hall level.
var heroCaps = map[int]map[string]int{ //nolint:gochecknoglobals // game data
	7:  {"bk": 5},
	8:  {"bk": 10, "aq": 10},
	9:  {"bk": 30, "aq": 30, "mp": 10},
	10: {"bk": 40, "aq": 40, "mp": 20},
	11: {"bk": 50, "aq": 50, "gw": 20, "mp": 30},
	12: {"bk": 65, "aq": 65, "gw": 40, "mp": 40},
	13: {"bk": 75, "aq": 75, "gw": 50, "rc": 25, "mp": 50},
	14: {"bk": 80, "aq": 80, "gw": 55, "rc": 30, "mp": 60},
	15: {"bk": 90, "aq": 90, "gw": 65, "rc": 40, "mp": 70},
	16: {"bk": 95, "aq": 95, "gw": 70, "rc": 45, "mp": 80},
	17: {"bk": 100, "aq": 100, "gw": 75, "rc": 50, "mp": 90},
}

const (
	minCapTownHall = 7
	maxCapTownHall = 17
)

// heroCap returns the cap of hero at Town Hall th, or 0 when unknown.
// Town Halls above the table use its highest row.
func heroCap(th model.Number, hero string) int {
	v, ok := th.Float()
	if !ok {
		return 0
	}
	level := int(v)
	if level > maxCapTownHall {
		level = maxCapTownHall
	}
	if level < minCapTownHall {
		return 0
	}
	return heroCaps[level][hero]
}
