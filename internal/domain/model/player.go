package model

import "strings"

const tagAlphabet = "0289PYLQGRJCUV"

// Minimum and maximum tag length, excluding '#'.
const (
	minTagLen = 3
	maxTagLen = 15
)

// NormalizeTag upper-cases a tag, replaces the letter O with zero and adds the
// leading '#'. It returns ErrInvalidTag when the result is not a valid tag.
func NormalizeTag(raw string) (string, error) {
	t := strings.ToUpper(strings.TrimSpace(raw))
	t = strings.TrimPrefix(t, "%23")
	t = strings.TrimPrefix(t, "#")
	t = strings.ReplaceAll(t, "O", "0")
	if len(t) < minTagLen || len(t) > maxTagLen {
		return "", ErrInvalidTag
	}
	for _, r := range t {
		if !strings.ContainsRune(tagAlphabet, r) {
			return "", ErrInvalidTag
		}
	}
	return "#" + t, nil
}

// Player is a roster row built from a player's latest snapshot.
type Player struct {
	Tag               string            `json:"tag"`
	Name              string            `json:"name"`
	Role              string            `json:"role,omitempty"`
	Trophies          Number            `json:"trophies"`
	RankedTrophies    Number            `json:"rankedTrophies,omitzero"`
	Donations         Number            `json:"donations"`
	DonationsReceived Number            `json:"donationsReceived"`
	TownHallLevel     Number            `json:"townHallLevel,omitzero"`
	League            string            `json:"league,omitempty"`
	HeroLevels        map[string]Number `json:"heroLevels,omitempty"`
	LastSeen          string            `json:"lastSeen"`
	ActivityScore     float64           `json:"activityScore"`
	ActivityLevel     string            `json:"activityLevel"`
}

// PlayerFromSnapshot builds a roster row from a snapshot.
func PlayerFromSnapshot(s Snapshot) Player {
	return Player{
		Tag:               s.PlayerTag,
		Name:              s.PlayerName,
		Role:              s.Role,
		Trophies:          s.Trophies,
		RankedTrophies:    s.RankedTrophies,
		Donations:         s.Donations,
		DonationsReceived: s.DonationsReceived,
		TownHallLevel:     s.TownHallLevel,
		League:            s.League(),
		HeroLevels:        s.HeroLevels,
		LastSeen:          s.DayKey(),
	}
}
