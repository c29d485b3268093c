package dataset

import (
	"hoopsight/domain/features"
	"hoopsight/internal/cluster"
)

// Assemble concatenates per-player engineered tables into one master table.
// Pure merge: the player column is preserved for joins, no feature logic
// happens here.
func Assemble(perPlayer [][]features.Row) []features.Row {
	total := 0
	for _, rows := range perPlayer {
		total += len(rows)
	}
	master := make([]features.Row, 0, total)
	for _, rows := range perPlayer {
		master = append(master, rows...)
	}
	return master
}

// JoinOpponentContext fills each row's opponent archetype and defensive
// metrics from the archetype table, keyed on (opponent team, season). Rows
// whose opponent has no archetype row keep absent opponent context.
func JoinOpponentContext(master []features.Row, archetypes []cluster.ArchetypeRow) []features.Row {
	type key struct {
		team   string
		season string
	}
	index := make(map[key]cluster.ArchetypeRow, len(archetypes))
	for _, a := range archetypes {
		index[key{a.TeamAbbr, a.Season}] = a
	}

	out := make([]features.Row, len(master))
	for i, row := range master {
		if a, ok := index[key{row.Opponent, row.Season}]; ok {
			row.OppArchetype = a.Archetype
			row.OppPace = a.Pace
			row.OppDefRating = a.DefRating
			row.OppEFGPct = a.EFGPct
			row.OppTovPct = a.TovPct
			row.OppDrebPct = a.DrebPct
		}
		out[i] = row
	}
	return out
}
