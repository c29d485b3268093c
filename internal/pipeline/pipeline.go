// Package pipeline orchestrates the batch refresh: ingest raw snapshots,
// cluster team defenses, engineer features, assemble the master table, and
// train models. Entity-scoped failures skip and log; cross-cutting failures
// stop the phase.
package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"

	"hoopsight/domain/features"
	"hoopsight/domain/nba"
	"hoopsight/internal/cluster"
	"hoopsight/internal/config"
	"hoopsight/internal/dataset"
	"hoopsight/internal/errors"
	"hoopsight/internal/model"
)

// scheduleHorizonDays bounds the day-by-day schedule walk; the empty-day
// early stop usually ends it well before this.
const scheduleHorizonDays = 180

// StatsSource is the provider surface the pipeline ingests from.
type StatsSource interface {
	AllPlayers(ctx context.Context, currentSeason string) ([]nba.Player, error)
	PlayerGameLogs(ctx context.Context, playerID int, season string) ([]nba.GameLog, error)
	TeamAdvancedStats(ctx context.Context, season string) (*cluster.MetricsTable, error)
	FetchSchedule(ctx context.Context, start, end time.Time, emptyDayLimit int) ([]nba.ScheduledGame, error)
}

// Pipeline wires the stats client and snapshot stores into runnable phases.
type Pipeline struct {
	cfg       *config.Config
	client    StatsSource
	raw       *dataset.RawStore
	processed *dataset.ProcessedStore
	models    *model.Store
	logger    *logrus.Logger
}

// New builds a pipeline over the configured stores.
func New(cfg *config.Config, client StatsSource, logger *logrus.Logger) *Pipeline {
	return &Pipeline{
		cfg:       cfg,
		client:    client,
		raw:       dataset.NewRawStore(cfg.Paths.RawDir),
		processed: dataset.NewProcessedStore(cfg.Paths.ProcessedDir),
		models:    model.NewStore(cfg.Paths.ModelDir),
		logger:    logger,
	}
}

// CurrentSeason is the most recent configured season.
func (p *Pipeline) CurrentSeason() string {
	return p.cfg.Seasons[len(p.cfg.Seasons)-1]
}

// Run executes a full refresh in dependency order.
func (p *Pipeline) Run(ctx context.Context, playerNames []string) error {
	if err := p.Ingest(ctx, playerNames); err != nil {
		return err
	}
	if err := p.IngestTeams(ctx); err != nil {
		return err
	}
	if err := p.Cluster(ctx); err != nil {
		return err
	}
	if err := p.EngineerAll(ctx); err != nil {
		return err
	}
	return p.TrainAll(ctx)
}

// Ingest refreshes per-player raw game-log snapshots across every
// configured season. An empty name list ingests all active players. A
// player whose fetch fails is skipped and logged; a failed player index
// degrades to the cached roster before becoming fatal.
func (p *Pipeline) Ingest(ctx context.Context, playerNames []string) error {
	index, err := p.playerIndex(ctx)
	if err != nil {
		return err
	}

	targets, err := selectPlayers(index, playerNames)
	if err != nil {
		return err
	}
	p.logger.WithField("players", len(targets)).Info("Ingesting player game logs")

	for _, player := range targets {
		logs, err := p.fetchPlayerSeasons(ctx, player)
		if err != nil {
			p.logger.WithFields(logrus.Fields{
				"player": player.Name,
				"error":  err.Error(),
			}).Warn("Skipping player ingest")
			continue
		}
		if len(logs) == 0 {
			p.logger.WithField("player", player.Name).Warn("No game rows across configured seasons")
			continue
		}
		if err := p.raw.WritePlayerLogs(player.Name, player.ID, logs); err != nil {
			return err
		}
	}
	return nil
}

// playerIndex fetches the league player index, degrading to the roster
// already snapshotted in the raw store when the provider is unreachable
// after its retry budget. With neither, the refresh cannot proceed.
func (p *Pipeline) playerIndex(ctx context.Context) ([]nba.Player, error) {
	index, err := p.client.AllPlayers(ctx, p.CurrentSeason())
	if err == nil {
		return index, nil
	}
	p.logger.WithField("error", err.Error()).Warn("Player index fetch failed, falling back to cached roster")

	refs, listErr := p.raw.ListPlayers()
	if listErr != nil || len(refs) == 0 {
		return nil, errors.Wrap(err, "failed to fetch player index and no cached roster exists")
	}
	fallback := make([]nba.Player, 0, len(refs))
	for _, ref := range refs {
		fallback = append(fallback, nba.Player{ID: ref.PlayerID, Name: ref.PlayerName, Active: true})
	}
	p.logger.WithField("players", len(fallback)).Info("Ingesting against the cached roster")
	return fallback, nil
}

func (p *Pipeline) fetchPlayerSeasons(ctx context.Context, player nba.Player) ([]nba.GameLog, error) {
	var all []nba.GameLog
	for _, season := range p.cfg.Seasons {
		logs, err := p.client.PlayerGameLogs(ctx, player.ID, season)
		if err != nil {
			return nil, err
		}
		for i := range logs {
			logs[i].PlayerName = player.Name
		}
		all = append(all, logs...)
	}
	all = nba.Dedupe(all)
	nba.SortChronological(all)
	return all, nil
}

func selectPlayers(index []nba.Player, names []string) ([]nba.Player, error) {
	if len(names) == 0 {
		var active []nba.Player
		for _, p := range index {
			if p.Active {
				active = append(active, p)
			}
		}
		return active, nil
	}

	out := make([]nba.Player, 0, len(names))
	for _, name := range names {
		player, ok := nba.FindPlayer(index, name)
		if !ok {
			return nil, errors.NotFound("player " + name)
		}
		out = append(out, player)
	}
	return out, nil
}

// IngestTeams refreshes the team-season advanced metrics snapshot, one
// provider call per configured season merged into a single table.
func (p *Pipeline) IngestTeams(ctx context.Context) error {
	merged := &cluster.MetricsTable{}
	seen := make(map[string]bool)

	for _, season := range p.cfg.Seasons {
		table, err := p.client.TeamAdvancedStats(ctx, season)
		if err != nil {
			return errors.Wrapf(err, "failed to fetch team metrics for %s", season)
		}
		for _, col := range table.Columns {
			if !seen[col] {
				seen[col] = true
				merged.Columns = append(merged.Columns, col)
			}
		}
		merged.Rows = append(merged.Rows, table.Rows...)
		p.logger.WithFields(logrus.Fields{
			"season": season,
			"teams":  len(table.Rows),
		}).Info("Fetched team advanced metrics")
	}

	return p.raw.WriteTeamMetrics(merged)
}

// FetchSchedule walks the scoreboard from today forward and overwrites the
// upcoming-games cache.
func (p *Pipeline) FetchSchedule(ctx context.Context) error {
	start := time.Now()
	end := start.AddDate(0, 0, scheduleHorizonDays)

	games, err := p.client.FetchSchedule(ctx, start, end, p.cfg.Fetch.EmptyDayLimit)
	if err != nil {
		return err
	}
	p.logger.WithField("games", len(games)).Info("Fetched upcoming schedule")
	return p.raw.WriteSchedule(games)
}

// Cluster rebuilds the defensive archetype table and fitted transforms from
// the team metrics snapshot.
func (p *Pipeline) Cluster(ctx context.Context) error {
	table, err := p.raw.ReadTeamMetrics()
	if err != nil {
		return err
	}
	rows, transforms, err := cluster.Build(table, p.logger)
	if err != nil {
		return err
	}
	if err := p.processed.WriteArchetypes(rows); err != nil {
		return err
	}
	return p.processed.WriteTransforms(transforms)
}

// EngineerAll runs the feature engine over every snapshotted player,
// bounded-concurrent across players. Rows within one player stay strictly
// sequential, and the assembled master keeps the snapshot listing order so
// repeated refreshes over the same store produce the same table.
func (p *Pipeline) EngineerAll(ctx context.Context) error {
	refs, err := p.raw.ListPlayers()
	if err != nil {
		return err
	}
	if len(refs) == 0 {
		return errors.NotFound("player snapshots")
	}

	sem := semaphore.NewWeighted(p.cfg.Engineer.Parallelism)
	var wg sync.WaitGroup
	slots := make([][]features.Row, len(refs))
	done := make([]bool, len(refs))

	for i, ref := range refs {
		if err := sem.Acquire(ctx, 1); err != nil {
			return err
		}
		wg.Add(1)
		go func(i int, ref dataset.PlayerRef) {
			defer sem.Release(1)
			defer wg.Done()

			logs, err := p.raw.ReadPlayerLogs(ref)
			if err != nil {
				p.logger.WithFields(logrus.Fields{
					"player": ref.PlayerName,
					"error":  err.Error(),
				}).Warn("Skipping player in feature engineering")
				return
			}
			rows := features.Engineer(logs)
			if err := p.processed.WritePlayerFeatures(ref.PlayerName, ref.PlayerID, rows); err != nil {
				p.logger.WithFields(logrus.Fields{
					"player": ref.PlayerName,
					"error":  err.Error(),
				}).Warn("Failed to write engineered table")
				return
			}

			slots[i] = rows
			done[i] = true
		}(i, ref)
	}
	wg.Wait()

	perPlayer := make([][]features.Row, 0, len(refs))
	for i := range slots {
		if done[i] {
			perPlayer = append(perPlayer, slots[i])
		}
	}
	if len(perPlayer) == 0 {
		return errors.InsufficientData("feature engineering produced no player tables")
	}

	master := dataset.Assemble(perPlayer)
	archetypes, err := p.processed.ReadArchetypes()
	if err != nil {
		return err
	}
	if archetypes != nil {
		master = dataset.JoinOpponentContext(master, archetypes)
	}

	p.logger.WithFields(logrus.Fields{
		"players": len(perPlayer),
		"rows":    len(master),
	}).Info("Assembled master dataset")
	return p.processed.WriteMaster(master)
}

// TrainAll fits and persists one model per target against the master table.
// A target refused for lack of usable rows is reported and skipped; the
// remaining targets still train.
func (p *Pipeline) TrainAll(ctx context.Context) error {
	master, err := p.processed.ReadMaster()
	if err != nil {
		return err
	}

	trained := 0
	for _, target := range model.Targets {
		if err := ctx.Err(); err != nil {
			return err
		}
		bundle, report, err := model.Train(master, target, p.cfg.Train, p.logger)
		if errors.HasCode(err, errors.CodeInsufficientData) {
			p.logger.WithFields(logrus.Fields{
				"target": target,
				"error":  err.Error(),
			}).Warn("Training refused, skipping target")
			continue
		}
		if err != nil {
			return errors.Wrapf(err, "training failed for %s", target)
		}
		if err := p.models.Save(bundle); err != nil {
			return err
		}
		p.logger.WithFields(logrus.Fields{
			"target":          target,
			"model_mae":       report.ModelMAE,
			"baseline_mae":    report.BaselineMAE,
			"improvement_pct": report.ImprovementPct(),
		}).Info("Model trained and saved")
		trained++
	}
	if trained == 0 {
		return errors.InsufficientData("no target reached the usable-row floor")
	}
	return nil
}
