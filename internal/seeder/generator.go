package seeder

import (
	"math/rand/v2"
	"strings"

	"github.com/google/uuid"

	"github.com/okian/clashintel/internal/auth"
	"github.com/okian/clashintel/internal/domain/model"
)

const tagAlphabet = "0289PYLQGRJCUV"

var heroes = []string{"bk", "aq", "gw", "rc", "mp"} //nolint:gochecknoglobals // hero keys

var leagues = []string{ //nolint:gochecknoglobals // league ladder used by generated players
	"Gold League I", "Crystal League III", "Crystal League II", "Crystal League I",
	"Master League III", "Master League II", "Master League I",
	"Champion League III", "Champion League II", "Champion League I",
}

// seedFromRunID folds a run id into a generator seed.
func seedFromRunID(runID string) uint64 {
	id, err := uuid.Parse(runID)
	if err != nil {
		return 1
	}
	var seed uint64
	for _, b := range id[:8] {
		seed = seed<<8 | uint64(b)
	}
	return seed
}

// playerTag builds a valid, run-unique tag from a run prefix and an index.
func playerTag(prefix uint64, index int) string {
	var b strings.Builder
	b.WriteByte('#')
	encode := func(v uint64, width int) {
		digits := make([]byte, width)
		for i := width - 1; i >= 0; i-- {
			digits[i] = tagAlphabet[v%uint64(len(tagAlphabet))]
			v /= uint64(len(tagAlphabet))
		}
		b.Write(digits)
	}
	encode(prefix, 4)
	encode(uint64(index), 4)
	return b.String()
}

// Generate builds cfg.Days consecutive snapshots for each of cfg.Players
// players. Cumulative counters never decrease, trophies drift and levels
// rise occasionally. The output is ordered by player, then date.
func Generate(cfg Config) [][]model.Snapshot {
	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15))
	prefix := rng.Uint64()

	out := make([][]model.Snapshot, cfg.Players)
	for p := range cfg.Players {
		out[p] = generatePlayer(rng, cfg, playerTag(prefix, p), p)
	}
	return out
}

func generatePlayer(rng *rand.Rand, cfg Config, tag string, index int) []model.Snapshot {
	th := 9 + rng.IntN(9)
	trophies := 1200 + rng.IntN(4000)
	league := min(len(leagues)-1, trophies/600)
	donations, received, warStars, capital, exp := 0, 0, 50+rng.IntN(1500), 0, 80+rng.IntN(150)
	heroLevels := map[string]int{}
	for i, h := range heroes {
		if i < th-8 {
			heroLevels[h] = 5 + rng.IntN(30)
		}
	}
	role := auth.RoleMember
	if index == 0 {
		role = auth.RoleLeader
	}

	snaps := make([]model.Snapshot, cfg.Days)
	for d := range cfg.Days {
		var events []string
		trophyDelta := rng.IntN(120) - 40
		trophies = max(0, trophies+trophyDelta)
		switch {
		case trophyDelta >= 50:
			events = append(events, "trophy_gain")
		case trophyDelta <= -30:
			events = append(events, "trophy_loss")
		}
		donations += rng.IntN(200)
		received += rng.IntN(150)
		if rng.IntN(3) == 0 {
			warStars += rng.IntN(4)
		}
		if rng.IntN(4) == 0 {
			capital += 1000 + rng.IntN(20_000)
			events = append(events, "capital_contribution")
		}
		if rng.IntN(5) == 0 {
			exp++
		}
		if d > 0 && rng.IntN(10) == 0 {
			h := heroes[rng.IntN(len(heroes))]
			if _, ok := heroLevels[h]; ok {
				heroLevels[h]++
				events = append(events, "hero_level_up")
			}
		}
		if d > 0 && th < 17 && rng.IntN(30) == 0 {
			th++
			events = append(events, "th_level_up")
		}
		if next := min(len(leagues)-1, trophies/600); next != league {
			league = next
			if d > 0 {
				events = append(events, "league_change")
			}
		}

		levels := make(map[string]model.Number, len(heroLevels))
		for h, lvl := range heroLevels {
			levels[h] = model.Num(float64(lvl))
		}
		snaps[d] = model.Snapshot{
			Date:                 cfg.StartDate.AddDate(0, 0, d).Format(model.DateLayout),
			PlayerTag:            tag,
			PlayerName:           "Seed " + tag[1:],
			Role:                 role,
			Trophies:             model.Num(float64(trophies)),
			Donations:            model.Num(float64(donations)),
			DonationsReceived:    model.Num(float64(received)),
			WarStars:             model.Num(float64(warStars)),
			CapitalContributions: model.Num(float64(capital)),
			ExpLevel:             model.Num(float64(exp)),
			TownHallLevel:        model.Num(float64(th)),
			LeagueName:           leagues[league],
			HeroLevels:           levels,
			Events:               events,
		}
	}
	return snaps
}
