package features

import (
	"math"
	"time"

	"github.com/montanaflynn/stats"

	"hoopsight/domain/geo"
	"hoopsight/domain/nba"
)

// Engineer transforms one player's raw game rows, in any input order, into
// engineered feature rows sorted ascending by game date.
//
// The function is pure and deterministic: identical input row sets produce
// identical output regardless of input order. Every derived field of row i
// depends only on rows strictly before i in sorted order, which is what
// makes the output safe to train on and reusable for projecting an unplayed
// game appended to the end of a real history.
func Engineer(logs []nba.GameLog) []Row {
	sorted := make([]nba.GameLog, len(logs))
	copy(sorted, logs)
	nba.SortChronological(sorted)

	out := make([]Row, len(sorted))
	dates := make([]time.Time, len(sorted))
	for i, g := range sorted {
		dates[i] = g.Date()
		out[i] = baseRow(g)
	}

	rollingAverages(sorted, out)
	fatigueIndicators(dates, out)
	travelBurden(out)

	return out
}

// baseRow copies identity and target values and resolves the matchup
// descriptor. A descriptor that fails to parse degrades to empty tokens and
// absent venue attributes; the row still flows through.
func baseRow(g nba.GameLog) Row {
	r := Row{
		Season:     g.Season,
		PlayerID:   g.PlayerID,
		PlayerName: g.PlayerName,
		GameID:     g.GameID,
		GameDate:   g.GameDate,
		Matchup:    g.Matchup,
		PTS:        g.PTS,
		AST:        g.AST,
		REB:        g.REB,
		FG3M:       g.FG3M,
		PRA:        g.PRA(),

		DaysRest:  math.NaN(),
		Lat:       math.NaN(),
		Lon:       math.NaN(),
		Altitude:  math.NaN(),
		UTCOffset: math.NaN(),
		TravelDir: geo.DirectionNone,
		TZShift:   "0",

		OppPace:      math.NaN(),
		OppDefRating: math.NaN(),
		OppEFGPct:    math.NaN(),
		OppTovPct:    math.NaN(),
		OppDrebPct:   math.NaN(),
	}

	mi, ok := nba.ParseMatchup(g.Matchup)
	if !ok {
		return r
	}
	r.TeamAbbr = mi.Team
	r.Opponent = mi.Opponent
	r.HomeTeam = mi.HomeTeam()
	r.HighAltitude = geo.IsHighAltitude(r.HomeTeam)

	if arena, found := geo.Lookup(r.HomeTeam); found {
		r.Lat = arena.Lat
		r.Lon = arena.Lon
		r.Altitude = arena.Elevation
		r.UTCOffset = arena.UTCOffset
	}
	return r
}

// rollingAverages fills the 3/5/10-game trailing means for each target.
// The window at row i covers positions [i-w, i-1]: the game's own value is
// never part of its own average. Rows with no prior games get NaN; rows
// with some history average over whatever exists.
func rollingAverages(sorted []nba.GameLog, out []Row) {
	for _, target := range Targets {
		values := make([]float64, len(sorted))
		for i, g := range sorted {
			switch target {
			case "PRA":
				values[i] = g.PRA()
			default:
				values[i] = out[i].Target(target)
			}
		}
		for _, w := range Windows {
			for i := range out {
				out[i].setAvg(target, w, trailingMean(values, i, w))
			}
		}
	}
}

func trailingMean(values []float64, i, window int) float64 {
	if i == 0 {
		return math.NaN()
	}
	lo := i - window
	if lo < 0 {
		lo = 0
	}
	mean, err := stats.Mean(values[lo:i])
	if err != nil {
		return math.NaN()
	}
	return mean
}

// fatigueIndicators fills rest days, the back-to-back flag, and the count
// of games in the seven days before each row's date.
func fatigueIndicators(dates []time.Time, out []Row) {
	for i := range out {
		if i > 0 && !dates[i].IsZero() && !dates[i-1].IsZero() {
			rest := calendarDays(dates[i-1], dates[i])
			out[i].DaysRest = float64(rest)
			out[i].BackToBack = rest == 1
		}

		if dates[i].IsZero() {
			continue
		}
		count := 0
		for j := 0; j < i; j++ {
			if dates[j].IsZero() {
				continue
			}
			d := calendarDays(dates[j], dates[i])
			if d >= 1 && d <= 7 {
				count++
			}
		}
		out[i].GamesLast7D = float64(count)
	}
}

// travelBurden fills distance, direction, and timezone shift relative to the
// immediately preceding row's venue. The first row, and any row adjacent to
// an unknown venue, degrades to zero distance and neutral categories.
func travelBurden(out []Row) {
	for i := 1; i < len(out); i++ {
		prev, cur := &out[i-1], &out[i]

		if !math.IsNaN(prev.Lat) && !math.IsNaN(cur.Lat) {
			cur.TravelDist = geo.Haversine(prev.Lat, prev.Lon, cur.Lat, cur.Lon)
		}
		cur.TravelDir = geo.TravelDirection(prev.Lon, cur.Lon)
		cur.TZShift = geo.TimezoneShiftBucket(prev.UTCOffset, cur.UTCOffset)
	}
}

// calendarDays counts whole days between two date-only timestamps.
func calendarDays(from, to time.Time) int {
	return int(to.Sub(from).Hours() / 24)
}
