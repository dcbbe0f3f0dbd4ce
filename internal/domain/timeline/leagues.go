package timeline

import (
	"slices"
	"strconv"
	"strings"

	"github.com/okian/clashintel/internal/domain/model"
)

// League tiers from lowest to highest.
var leagueTiers = []string{ //nolint:gochecknoglobals // fixed order
	"unranked", "bronze", "silver", "gold", "crystal", "master", "champion", "titan", "legend",
}

// Ranked league tiers from lowest to highest. Ranked names end in a numeric
// division that increases with the tier, e.g. "Electro League 34".
var rankedTiers = []string{ //nolint:gochecknoglobals // fixed order
	"skeleton", "barbarian", "archer", "wizard", "valkyrie", "witch",
	"golem", "pekka", "titan", "dragon", "electro", "legend",
}

var leagueDivisions = map[string]int{ //nolint:gochecknoglobals // fixed lookup
	"iii": 1, "ii": 2, "i": 3,
}

const (
	// divisionsPerTier leaves room for an undivided tier (Legend) above division I.
	divisionsPerTier = 4
	rankedPerTier    = 100
)

// leagueRank orders league names. Classic names order by tier then division
// (III < II < I); numbered ranked names order by tier then number. The two
// formats are not comparable with each other, so numbered reports which one
// applies. Unknown names rank -1.
func leagueRank(name string) (rank int, numbered bool) {
	fields := strings.Fields(strings.ToLower(name))
	if len(fields) == 0 {
		return -1, false
	}
	first := strings.NewReplacer(".", "", "-", "").Replace(fields[0])
	if n, err := strconv.Atoi(fields[len(fields)-1]); err == nil && len(fields) > 1 {
		tier := slices.Index(rankedTiers, first)
		if tier < 0 || n < 0 || n >= rankedPerTier {
			return -1, true
		}
		return tier*rankedPerTier + n, true
	}
	tier := slices.Index(leagueTiers, first)
	if tier < 0 {
		return -1, false
	}
	return tier*divisionsPerTier + leagueDivisions[fields[len(fields)-1]], false
}

// promoted reports whether after is a higher league than before in the same
// naming format.
func promoted(before, after string) bool {
	b, bNum := leagueRank(before)
	a, aNum := leagueRank(after)
	return b >= 0 && a >= 0 && bNum == aNum && a > b
}

// leaguePromotion checks the ranked league first and falls back to the
// regular league when the ranked names did not move up.
func leaguePromotion(prev, cur model.Snapshot) (string, bool) {
	if promoted(prev.RankedLeagueName, cur.RankedLeagueName) {
		return cur.RankedLeagueName, true
	}
	if promoted(prev.LeagueName, cur.LeagueName) {
		return cur.LeagueName, true
	}
	return "", false
}

// isLegend reports whether a league name is Legend League.
func isLegend(name string) bool {
	return strings.Contains(strings.ToLower(name), "legend")
}
