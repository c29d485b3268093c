package nba

// ScheduledGame is one upcoming (unplayed) game from the schedule feed.
type ScheduledGame struct {
	GameDate string // DateLayout
	GameID   string
	HomeTeam string
	AwayTeam string
}

// Involves reports whether team plays in this game.
func (s ScheduledGame) Involves(team string) bool {
	return s.HomeTeam == team || s.AwayTeam == team
}

// OpponentOf returns the other side from team's perspective.
func (s ScheduledGame) OpponentOf(team string) string {
	if s.HomeTeam == team {
		return s.AwayTeam
	}
	return s.HomeTeam
}

// NextGameFor finds the first scheduled game involving team. The slice is
// assumed date-ascending, as produced by the schedule fetch.
func NextGameFor(schedule []ScheduledGame, team string) (ScheduledGame, bool) {
	for _, g := range schedule {
		if g.Involves(team) {
			return g, true
		}
	}
	return ScheduledGame{}, false
}
