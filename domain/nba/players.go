package nba

import "strings"

// Player is one entry in the provider's player index.
type Player struct {
	ID     int
	Name   string
	Active bool
}

// FindPlayer resolves a display name to a player: exact match first, then
// substring match preferring active players. Misses return ok=false so the
// caller can surface an explicit not-found result.
func FindPlayer(index []Player, name string) (Player, bool) {
	lowered := strings.ToLower(name)

	for _, p := range index {
		if strings.ToLower(p.Name) == lowered {
			return p, true
		}
	}

	var partial []Player
	for _, p := range index {
		if strings.Contains(strings.ToLower(p.Name), lowered) {
			partial = append(partial, p)
		}
	}
	if len(partial) == 0 {
		return Player{}, false
	}
	for _, p := range partial {
		if p.Active {
			return p, true
		}
	}
	return partial[0], true
}
