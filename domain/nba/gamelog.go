package nba

import (
	"sort"
	"strings"
	"time"
)

// DateLayout is the calendar-date form used throughout the snapshot files.
// Game dates carry no time-of-day.
const DateLayout = "2006-01-02"

// GameLog is one raw per-game row for one player: the provider's box-score
// counts plus the matchup descriptor that encodes venue and opponent.
type GameLog struct {
	Season     string  `parquet:"season"`
	PlayerID   int     `parquet:"player_id"`
	PlayerName string  `parquet:"player_name"`
	TeamAbbr   string  `parquet:"team_abbr"`
	GameID     string  `parquet:"game_id"`
	GameDate   string  `parquet:"game_date"` // DateLayout; no time-of-day exists upstream
	Matchup    string  `parquet:"matchup"`
	Minutes    float64 `parquet:"min"`
	FGM        float64 `parquet:"fgm"`
	FGA        float64 `parquet:"fga"`
	FG3M       float64 `parquet:"fg3m"`
	FG3A       float64 `parquet:"fg3a"`
	FTM        float64 `parquet:"ftm"`
	FTA        float64 `parquet:"fta"`
	REB        float64 `parquet:"reb"`
	AST        float64 `parquet:"ast"`
	STL        float64 `parquet:"stl"`
	BLK        float64 `parquet:"blk"`
	TOV        float64 `parquet:"tov"`
	PTS        float64 `parquet:"pts"`
	PlusMinus  float64 `parquet:"plus_minus"`
}

// Date parses the row's calendar date. A zero time means the row carried an
// unparseable date and should be treated as absent, not fatal.
func (g GameLog) Date() time.Time {
	t, err := time.Parse(DateLayout, g.GameDate)
	if err != nil {
		return time.Time{}
	}
	return t
}

// PRA is the combined points+rebounds+assists total.
func (g GameLog) PRA() float64 {
	return g.PTS + g.REB + g.AST
}

// Matchup descriptors come in two forms: "LAL vs. BOS" when the first token
// hosts, "LAL @ BOS" when it visits.
type MatchupInfo struct {
	Team     string
	Opponent string
	IsHome   bool
}

// ParseMatchup splits a matchup descriptor. A descriptor that fits neither
// form yields ok=false; callers degrade rather than abort.
func ParseMatchup(matchup string) (MatchupInfo, bool) {
	if parts := strings.Split(matchup, " @ "); len(parts) == 2 {
		return MatchupInfo{Team: parts[0], Opponent: parts[1], IsHome: false}, true
	}
	if parts := strings.Split(matchup, " vs. "); len(parts) == 2 {
		return MatchupInfo{Team: parts[0], Opponent: parts[1], IsHome: true}, true
	}
	return MatchupInfo{}, false
}

// FormatMatchup renders the descriptor for a game from team's perspective.
func FormatMatchup(team, opponent string, home bool) string {
	if home {
		return team + " vs. " + opponent
	}
	return team + " @ " + opponent
}

// HomeTeam resolves which side's arena hosts the game described by matchup.
func (m MatchupInfo) HomeTeam() string {
	if m.IsHome {
		return m.Team
	}
	return m.Opponent
}

// Dedupe collapses rows sharing a game ID, last-seen wins. Input order is
// otherwise preserved.
func Dedupe(rows []GameLog) []GameLog {
	byID := make(map[string]int, len(rows))
	out := make([]GameLog, 0, len(rows))
	for _, r := range rows {
		if idx, seen := byID[r.GameID]; seen {
			out[idx] = r
			continue
		}
		byID[r.GameID] = len(out)
		out = append(out, r)
	}
	return out
}

// SortChronological orders rows ascending by game date, breaking same-date
// ties by game ID so the ordering is a function of row content alone.
func SortChronological(rows []GameLog) {
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].GameDate != rows[j].GameDate {
			return rows[i].GameDate < rows[j].GameDate
		}
		return rows[i].GameID < rows[j].GameID
	})
}
