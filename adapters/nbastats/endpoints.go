package nbastats

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"hoopsight/domain/nba"
	"hoopsight/internal/cluster"
	"hoopsight/internal/errors"
)

// providerDateLayout is the date form scoreboard and game-log endpoints use
// in query parameters.
const providerDateLayout = "01/02/2006"

// PlayerGameLogs fetches one player's regular-season game log for a season.
func (c *Client) PlayerGameLogs(ctx context.Context, playerID int, season string) ([]nba.GameLog, error) {
	params := url.Values{}
	params.Set("PlayerID", fmt.Sprintf("%d", playerID))
	params.Set("Season", season)
	params.Set("SeasonType", "Regular Season")

	resp, err := c.get(ctx, "playergamelog", params)
	if err != nil {
		return nil, err
	}
	rs, err := resp.table("PlayerGameLog")
	if err != nil {
		return nil, err
	}

	cols, err := gameLogColumns(rs)
	if err != nil {
		return nil, err
	}

	out := make([]nba.GameLog, 0, len(rs.RowSet))
	for _, row := range rs.RowSet {
		matchup := asString(row[cols.matchup])
		log := nba.GameLog{
			Season:    season,
			PlayerID:  asInt(row[cols.playerID]),
			TeamAbbr:  teamFromMatchup(matchup),
			GameID:    asString(row[cols.gameID]),
			GameDate:  normalizeDate(asString(row[cols.gameDate])),
			Matchup:   matchup,
			Minutes:   asFloat(row[cols.min]),
			FGM:       asFloat(row[cols.fgm]),
			FGA:       asFloat(row[cols.fga]),
			FG3M:      asFloat(row[cols.fg3m]),
			FG3A:      asFloat(row[cols.fg3a]),
			FTM:       asFloat(row[cols.ftm]),
			FTA:       asFloat(row[cols.fta]),
			REB:       asFloat(row[cols.reb]),
			AST:       asFloat(row[cols.ast]),
			STL:       asFloat(row[cols.stl]),
			BLK:       asFloat(row[cols.blk]),
			TOV:       asFloat(row[cols.tov]),
			PTS:       asFloat(row[cols.pts]),
			PlusMinus: asFloat(row[cols.plusMinus]),
		}
		out = append(out, log)
	}
	return out, nil
}

type gameLogCols struct {
	playerID, gameID, gameDate, matchup                          int
	min, fgm, fga, fg3m, fg3a, ftm, fta, reb, ast, stl, blk, tov int
	pts, plusMinus                                               int
}

func gameLogColumns(rs *resultSet) (gameLogCols, error) {
	var cols gameLogCols
	var err error
	resolve := func(dst *int, candidates ...string) {
		if err != nil {
			return
		}
		*dst, err = rs.column(candidates...)
	}

	resolve(&cols.playerID, "Player_ID", "PLAYER_ID")
	resolve(&cols.gameID, "Game_ID", "GAME_ID")
	resolve(&cols.gameDate, "GAME_DATE")
	resolve(&cols.matchup, "MATCHUP")
	resolve(&cols.min, "MIN")
	resolve(&cols.fgm, "FGM")
	resolve(&cols.fga, "FGA")
	resolve(&cols.fg3m, "FG3M")
	resolve(&cols.fg3a, "FG3A")
	resolve(&cols.ftm, "FTM")
	resolve(&cols.fta, "FTA")
	resolve(&cols.reb, "REB")
	resolve(&cols.ast, "AST")
	resolve(&cols.stl, "STL")
	resolve(&cols.blk, "BLK")
	resolve(&cols.tov, "TOV")
	resolve(&cols.pts, "PTS")
	resolve(&cols.plusMinus, "PLUS_MINUS")
	return cols, err
}

// AllPlayers fetches the league player index across history so retired
// names still resolve.
func (c *Client) AllPlayers(ctx context.Context, currentSeason string) ([]nba.Player, error) {
	params := url.Values{}
	params.Set("LeagueID", "00")
	params.Set("Season", currentSeason)
	params.Set("IsOnlyCurrentSeason", "0")

	resp, err := c.get(ctx, "commonallplayers", params)
	if err != nil {
		return nil, err
	}
	rs, err := resp.table("CommonAllPlayers")
	if err != nil {
		return nil, err
	}

	idCol, err := rs.column("PERSON_ID")
	if err != nil {
		return nil, err
	}
	nameCol, err := rs.column("DISPLAY_FIRST_LAST")
	if err != nil {
		return nil, err
	}
	activeCol, err := rs.column("ROSTERSTATUS")
	if err != nil {
		return nil, err
	}

	out := make([]nba.Player, 0, len(rs.RowSet))
	for _, row := range rs.RowSet {
		out = append(out, nba.Player{
			ID:     asInt(row[idCol]),
			Name:   asString(row[nameCol]),
			Active: asInt(row[activeCol]) == 1,
		})
	}
	return out, nil
}

// TeamAdvancedStats fetches every team's advanced metrics for one season.
// The full header list rides along so column drift is detected where the
// metrics are consumed, not silently absorbed here.
func (c *Client) TeamAdvancedStats(ctx context.Context, season string) (*cluster.MetricsTable, error) {
	params := url.Values{}
	params.Set("LeagueID", "00")
	params.Set("Season", season)
	params.Set("SeasonType", "Regular Season")
	params.Set("MeasureType", "Advanced")
	params.Set("PerMode", "PerGame")

	resp, err := c.get(ctx, "leaguedashteamstats", params)
	if err != nil {
		return nil, err
	}
	rs, err := resp.table("LeagueDashTeamStats")
	if err != nil {
		return nil, err
	}

	idCol, err := rs.column("TEAM_ID")
	if err != nil {
		return nil, err
	}
	nameCol, err := rs.column("TEAM_NAME")
	if err != nil {
		return nil, err
	}

	table := &cluster.MetricsTable{Columns: rs.Headers}
	for _, row := range rs.RowSet {
		teamID := asInt(row[idCol])
		abbr := ""
		if team, ok := nba.TeamByID(teamID); ok {
			abbr = team.Abbr
		}

		values := make(map[string]float64, len(rs.Headers))
		for i, header := range rs.Headers {
			if i == idCol || i == nameCol || i >= len(row) {
				continue
			}
			if _, isStr := row[i].(string); isStr {
				continue
			}
			values[header] = asFloat(row[i])
		}

		table.Rows = append(table.Rows, cluster.MetricsRow{
			TeamID:   teamID,
			TeamName: asString(row[nameCol]),
			TeamAbbr: abbr,
			Season:   season,
			Values:   values,
		})
	}
	return table, nil
}

// Scoreboard fetches the games scheduled for one calendar day.
func (c *Client) Scoreboard(ctx context.Context, day time.Time) ([]nba.ScheduledGame, error) {
	params := url.Values{}
	params.Set("LeagueID", "00")
	params.Set("GameDate", day.Format(providerDateLayout))
	params.Set("DayOffset", "0")

	resp, err := c.get(ctx, "scoreboardv2", params)
	if err != nil {
		return nil, err
	}
	rs, err := resp.table("GameHeader")
	if err != nil {
		return nil, err
	}

	dateCol, err := rs.column("GAME_DATE_EST")
	if err != nil {
		return nil, err
	}
	idCol, err := rs.column("GAME_ID")
	if err != nil {
		return nil, err
	}
	homeCol, err := rs.column("HOME_TEAM_ID")
	if err != nil {
		return nil, err
	}
	awayCol, err := rs.column("VISITOR_TEAM_ID")
	if err != nil {
		return nil, err
	}

	out := make([]nba.ScheduledGame, 0, len(rs.RowSet))
	for _, row := range rs.RowSet {
		home, okHome := nba.TeamByID(asInt(row[homeCol]))
		away, okAway := nba.TeamByID(asInt(row[awayCol]))
		if !okHome || !okAway {
			c.logger.WithFields(logrus.Fields{
				"game_id": asString(row[idCol]),
			}).Warn("Skipping scheduled game with unrecognized team")
			continue
		}
		out = append(out, nba.ScheduledGame{
			GameDate: normalizeDate(asString(row[dateCol])),
			GameID:   asString(row[idCol]),
			HomeTeam: home.Abbr,
			AwayTeam: away.Abbr,
		})
	}
	return out, nil
}

// FetchSchedule walks the scoreboard day by day over [start, end]. Runs of
// consecutive empty days past emptyDayLimit end the walk early: the season
// is over.
func (c *Client) FetchSchedule(ctx context.Context, start, end time.Time, emptyDayLimit int) ([]nba.ScheduledGame, error) {
	var schedule []nba.ScheduledGame
	emptyStreak := 0

	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		games, err := c.Scoreboard(ctx, day)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to fetch scoreboard for %s", day.Format(nba.DateLayout))
		}

		if len(games) == 0 {
			emptyStreak++
			if emptyDayLimit > 0 && emptyStreak >= emptyDayLimit {
				c.logger.WithFields(logrus.Fields{
					"empty_days": emptyStreak,
					"last_day":   day.Format(nba.DateLayout),
				}).Info("Stopping schedule walk after empty-day run")
				break
			}
			continue
		}
		emptyStreak = 0
		schedule = append(schedule, games...)
	}
	return schedule, nil
}

// normalizeDate coerces the provider's date strings ("2024-11-05T00:00:00"
// and "NOV 05, 2024" both occur) to the snapshot layout.
func normalizeDate(raw string) string {
	if idx := strings.Index(raw, "T"); idx > 0 {
		raw = raw[:idx]
	}
	if _, err := time.Parse(nba.DateLayout, raw); err == nil {
		return raw
	}
	if t, err := time.Parse("Jan 02, 2006", raw); err == nil {
		return t.Format(nba.DateLayout)
	}
	if t, err := time.Parse("Jan 2, 2006", raw); err == nil {
		return t.Format(nba.DateLayout)
	}
	return raw
}

func teamFromMatchup(matchup string) string {
	if info, ok := nba.ParseMatchup(matchup); ok {
		return info.Team
	}
	return ""
}
