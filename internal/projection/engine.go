// Package projection produces point-in-time forecasts for not-yet-played
// games. A synthetic next-game row is appended to a player's history and the
// feature engine re-runs over the augmented sequence, so the projected row's
// features flow through exactly the code path training rows did.
package projection

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"hoopsight/domain/features"
	"hoopsight/domain/nba"
	"hoopsight/internal/cluster"
	"hoopsight/internal/dataset"
	"hoopsight/internal/errors"
	"hoopsight/internal/model"
)

// syntheticIDPrefix marks the placeholder game row appended for projection.
// Nothing persists it; the prefix only has to never collide with a real
// provider game ID.
const syntheticIDPrefix = "proj-"

// LiveSource refreshes a player's current-season rows at projection time.
// Optional: a nil source projects from the snapshot alone.
type LiveSource interface {
	PlayerGameLogs(ctx context.Context, playerID int, season string) ([]nba.GameLog, error)
}

// Engine resolves history, schedule, and persisted models into projections.
type Engine struct {
	raw           *dataset.RawStore
	processed     *dataset.ProcessedStore
	models        *model.Store
	live          LiveSource
	currentSeason string
	logger        *logrus.Logger
}

// NewEngine builds a projection engine. live may be nil.
func NewEngine(raw *dataset.RawStore, processed *dataset.ProcessedStore, models *model.Store, live LiveSource, currentSeason string, logger *logrus.Logger) *Engine {
	return &Engine{
		raw:           raw,
		processed:     processed,
		models:        models,
		live:          live,
		currentSeason: currentSeason,
		logger:        logger,
	}
}

// Projection is one player's forecast for one upcoming game.
type Projection struct {
	PlayerID   int
	PlayerName string
	Team       string
	Opponent   string
	GameDate   string
	Home       bool
	// BaselinePTS is the trailing 5-game points average entering the game,
	// the same naive forecast models are evaluated against.
	BaselinePTS float64
	// Predicted holds one model output per trained target.
	Predicted map[string]float64
}

// ProjectPlayer forecasts a player's next game. An empty opponent resolves
// from the schedule cache; an explicit opponent overrides it.
func (e *Engine) ProjectPlayer(ctx context.Context, ref dataset.PlayerRef, opponent string) (*Projection, error) {
	rows, err := e.loadHistory(ctx, ref)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, errors.NoHistory(ref.PlayerName)
	}

	last := rows[len(rows)-1]
	team := teamOf(last)
	if team == "" {
		return nil, errors.InvalidInput(fmt.Sprintf(
			"cannot infer %s's team from matchup %q", ref.PlayerName, last.Matchup))
	}

	opponent, home, gameDate, err := e.resolveNextGame(team, opponent, last)
	if err != nil {
		return nil, err
	}

	synthetic := last
	synthetic.GameID = syntheticIDPrefix + uuid.NewString()[:8]
	synthetic.GameDate = gameDate
	synthetic.Matchup = nba.FormatMatchup(team, opponent, home)
	synthetic.Season = e.currentSeason

	engineered := features.Engineer(append(rows, synthetic))
	row := engineered[len(engineered)-1]
	e.joinOpponentContext(&row)

	bundles, err := e.models.LoadAll(model.Targets)
	if err != nil {
		return nil, err
	}

	predicted := make(map[string]float64, len(bundles))
	for target, bundle := range bundles {
		feat := row.FeatureMap()
		bundle.EncodeCategoricals(feat, map[string]string{
			features.FieldTravelDir:    row.TravelDir,
			features.FieldTZShift:      row.TZShift,
			features.FieldOppArchetype: row.OppArchetype,
		})
		predicted[target] = bundle.Estimator.Predict(bundle.Align(feat))
	}

	return &Projection{
		PlayerID:    ref.PlayerID,
		PlayerName:  ref.PlayerName,
		Team:        team,
		Opponent:    opponent,
		GameDate:    gameDate,
		Home:        home,
		BaselinePTS: row.PtsAvg5,
		Predicted:   predicted,
	}, nil
}

// ProjectSlate forecasts every snapshotted player with a resolvable next
// game, sorted by predicted points descending. Players that fail resolve
// are skipped and logged, not fatal.
func (e *Engine) ProjectSlate(ctx context.Context) ([]Projection, error) {
	refs, err := e.raw.ListPlayers()
	if err != nil {
		return nil, err
	}
	if len(refs) == 0 {
		return nil, errors.NotFound("player snapshots")
	}

	var out []Projection
	for _, ref := range refs {
		proj, err := e.ProjectPlayer(ctx, ref, "")
		if err != nil {
			e.logger.WithFields(logrus.Fields{
				"player": ref.PlayerName,
				"error":  err.Error(),
			}).Warn("Skipping player in slate projection")
			continue
		}
		out = append(out, *proj)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Predicted["PTS"] > out[j].Predicted["PTS"]
	})
	return out, nil
}

// loadHistory reads the cached snapshot and, when a live source exists,
// merges in a fresh current-season fetch. A failed live fetch degrades to
// the snapshot with a warning; only an empty merged history is fatal to the
// caller.
func (e *Engine) loadHistory(ctx context.Context, ref dataset.PlayerRef) ([]nba.GameLog, error) {
	var cached []nba.GameLog
	if ref.Path != "" {
		rows, err := e.raw.ReadPlayerLogs(ref)
		if err != nil {
			e.logger.WithFields(logrus.Fields{
				"player": ref.PlayerName,
				"error":  err.Error(),
			}).Warn("Failed to read cached logs")
		} else {
			cached = rows
		}
	}

	if e.live != nil {
		fresh, err := e.live.PlayerGameLogs(ctx, ref.PlayerID, e.currentSeason)
		if err != nil {
			e.logger.WithFields(logrus.Fields{
				"player": ref.PlayerName,
				"season": e.currentSeason,
				"error":  err.Error(),
			}).Warn("Live refresh failed; projecting from snapshot only")
		} else {
			// Later rows win in Dedupe, so fresh rows supersede cached
			// copies of the same game.
			cached = append(cached, fresh...)
		}
	}

	merged := nba.Dedupe(cached)
	nba.SortChronological(merged)
	return merged, nil
}

// resolveNextGame decides opponent, venue side, and date for the synthetic
// row. Schedule wins when it knows the game; an explicit opponent with no
// schedule entry assumes the player's team hosts.
func (e *Engine) resolveNextGame(team, opponent string, last nba.GameLog) (string, bool, string, error) {
	schedule, err := e.raw.ReadSchedule()
	if err != nil && !errors.HasCode(err, errors.CodeNotFound) {
		return "", false, "", err
	}

	nextDate := nextDateAfter(last)

	if opponent == "" {
		next, ok := nba.NextGameFor(schedule, team)
		if !ok {
			return "", false, "", errors.NotFound(fmt.Sprintf("upcoming game for %s", team))
		}
		date := next.GameDate
		if date == "" {
			date = nextDate
		}
		return next.OpponentOf(team), next.HomeTeam == team, date, nil
	}

	for _, g := range schedule {
		if g.Involves(team) && g.Involves(opponent) {
			date := g.GameDate
			if date == "" {
				date = nextDate
			}
			return opponent, g.HomeTeam == team, date, nil
		}
	}
	return opponent, true, nextDate, nil
}

// joinOpponentContext attaches the (opponent, season) archetype and metrics
// when the archetype table exists. Absence leaves the context fields at
// their neutral values.
func (e *Engine) joinOpponentContext(row *features.Row) {
	archetypes, err := e.processed.ReadArchetypes()
	if err != nil {
		e.logger.WithField("error", err.Error()).Warn("Failed to read archetype table")
		return
	}
	match, ok := findArchetype(archetypes, row.Opponent, row.Season)
	if !ok {
		return
	}
	row.OppArchetype = match.Archetype
	row.OppPace = match.Pace
	row.OppDefRating = match.DefRating
	row.OppEFGPct = match.EFGPct
	row.OppTovPct = match.TovPct
	row.OppDrebPct = match.DrebPct
}

func findArchetype(rows []cluster.ArchetypeRow, opponent, season string) (cluster.ArchetypeRow, bool) {
	for _, r := range rows {
		if r.TeamAbbr == opponent && r.Season == season {
			return r, true
		}
	}
	return cluster.ArchetypeRow{}, false
}

func teamOf(last nba.GameLog) string {
	if last.TeamAbbr != "" {
		return last.TeamAbbr
	}
	if info, ok := nba.ParseMatchup(last.Matchup); ok {
		return info.Team
	}
	return ""
}

// nextDateAfter places the synthetic game one day after the last real one.
// An unparseable last date falls back to today.
func nextDateAfter(last nba.GameLog) string {
	d := last.Date()
	if d.IsZero() {
		return time.Now().Format(nba.DateLayout)
	}
	return d.AddDate(0, 0, 1).Format(nba.DateLayout)
}

// PRAOf is the combined PTS+REB+AST forecast when all three components were
// modeled separately; the direct PRA model output wins when present.
func (p *Projection) PRAOf() float64 {
	if v, ok := p.Predicted["PRA"]; ok {
		return v
	}
	sum := 0.0
	for _, t := range []string{"PTS", "REB", "AST"} {
		v, ok := p.Predicted[t]
		if !ok || math.IsNaN(v) {
			return math.NaN()
		}
		sum += v
	}
	return sum
}
