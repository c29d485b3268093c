package pipeline

import (
	"context"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"hoopsight/domain/nba"
	"hoopsight/internal/cluster"
	"hoopsight/internal/config"
	"hoopsight/internal/errors"
	"hoopsight/internal/model"
)

type fakeSource struct {
	players    []nba.Player
	playersErr error
	logs       map[int][]nba.GameLog
}

func (f *fakeSource) AllPlayers(ctx context.Context, season string) ([]nba.Player, error) {
	return f.players, f.playersErr
}

func (f *fakeSource) PlayerGameLogs(ctx context.Context, playerID int, season string) ([]nba.GameLog, error) {
	return f.logs[playerID], nil
}

func (f *fakeSource) TeamAdvancedStats(ctx context.Context, season string) (*cluster.MetricsTable, error) {
	return nil, errors.ExternalServiceError("nba-stats", context.Canceled)
}

func (f *fakeSource) FetchSchedule(ctx context.Context, start, end time.Time, emptyDayLimit int) ([]nba.ScheduledGame, error) {
	return nil, nil
}

func testPipeline(t *testing.T) *Pipeline {
	t.Helper()
	cfg := &config.Config{
		Paths: config.PathConfig{
			RawDir:       t.TempDir(),
			ProcessedDir: t.TempDir(),
			ModelDir:     t.TempDir(),
		},
		Seasons:  []string{"2024-25"},
		Engineer: config.EngineerConfig{Parallelism: 2},
		Train:    config.TrainConfig{MinRows: 50, TestFrac: 0.2, Seed: 42},
	}
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return New(cfg, nil, logger)
}

func seedPlayers(t *testing.T, p *Pipeline) {
	t.Helper()
	teams := []string{"DEN", "BOS"}
	opponents := []string{"UTA", "LAL", "MIA", "CHI", "NYK"}
	for pi, team := range teams {
		var logs []nba.GameLog
		for i := 0; i < 80; i++ {
			home := i%2 == 0
			logs = append(logs, nba.GameLog{
				Season:   "2024-25",
				PlayerID: 100 + pi,
				GameID:   fmt.Sprintf("p%d-%03d", pi, i),
				GameDate: fmt.Sprintf("2024-%02d-%02d", 1+i/28, 1+i%28),
				Matchup:  nba.FormatMatchup(team, opponents[i%len(opponents)], home),
				PTS:      15 + float64(i%12),
				AST:      4 + float64(i%5),
				REB:      6 + float64(i%4),
				FG3M:     float64(i % 4),
			})
		}
		name := fmt.Sprintf("Player %s", team)
		if err := p.raw.WritePlayerLogs(name, 100+pi, logs); err != nil {
			t.Fatalf("Failed to seed %s: %v", name, err)
		}
	}
}

func seedTeamMetrics(t *testing.T, p *Pipeline) {
	t.Helper()
	table := &cluster.MetricsTable{
		Columns: []string{"PACE", "DEF_RATING", "EFG_PCT", "TM_TOV_PCT", "DREB_PCT"},
	}
	for i, team := range nba.Teams() {
		table.Rows = append(table.Rows, cluster.MetricsRow{
			TeamID:   team.ID,
			TeamName: team.Name,
			TeamAbbr: team.Abbr,
			Season:   "2024-25",
			Values: map[string]float64{
				"PACE":       96 + float64(i%5),
				"DEF_RATING": 108 + float64((i*3)%7),
				"EFG_PCT":    0.50 + float64(i%4)/100,
				"TM_TOV_PCT": 0.12 + float64(i%3)/100,
				"DREB_PCT":   0.70 + float64(i%5)/100,
			},
		})
	}
	if err := p.raw.WriteTeamMetrics(table); err != nil {
		t.Fatalf("Failed to seed team metrics: %v", err)
	}
}

func TestClusterEngineerTrain_EndToEnd(t *testing.T) {
	p := testPipeline(t)
	seedPlayers(t, p)
	seedTeamMetrics(t, p)
	ctx := context.Background()

	if err := p.Cluster(ctx); err != nil {
		t.Fatalf("Cluster failed: %v", err)
	}
	archetypes, err := p.processed.ReadArchetypes()
	if err != nil || len(archetypes) != 30 {
		t.Fatalf("Expected 30 archetype rows, got %d (%v)", len(archetypes), err)
	}

	if err := p.EngineerAll(ctx); err != nil {
		t.Fatalf("EngineerAll failed: %v", err)
	}
	master, err := p.processed.ReadMaster()
	if err != nil {
		t.Fatalf("ReadMaster failed: %v", err)
	}
	if len(master) != 160 {
		t.Fatalf("Expected 160 master rows, got %d", len(master))
	}

	// The opponent join ran, so rows past game one should carry context.
	joined := 0
	for _, row := range master {
		if row.OppArchetype != "" {
			joined++
			if math.IsNaN(row.OppPace) {
				t.Errorf("Archetype without metrics on row %s", row.GameID)
			}
		}
	}
	if joined == 0 {
		t.Fatal("No master row carries opponent context")
	}

	if err := p.TrainAll(ctx); err != nil {
		t.Fatalf("TrainAll failed: %v", err)
	}
	bundles, err := model.NewStore(p.cfg.Paths.ModelDir).LoadAll(model.Targets)
	if err != nil {
		t.Fatalf("Expected a bundle per target: %v", err)
	}
	for target, b := range bundles {
		if b.Estimator == nil || b.TrainedRows == 0 {
			t.Errorf("Bundle for %s looks unfitted: %+v", target, b)
		}
	}
}

func TestEngineerAll_EmptyRawStore(t *testing.T) {
	p := testPipeline(t)
	if err := p.EngineerAll(context.Background()); !errors.HasCode(err, errors.CodeNotFound) {
		t.Errorf("Empty raw store should be not-found, got %v", err)
	}
}

func TestTrainAll_MissingMaster(t *testing.T) {
	p := testPipeline(t)
	if err := p.TrainAll(context.Background()); !errors.HasCode(err, errors.CodeNotFound) {
		t.Errorf("Missing master should stop the phase, got %v", err)
	}
}

func TestIngest_FallsBackToCachedRoster(t *testing.T) {
	p := testPipeline(t)
	seedPlayers(t, p)
	p.client = &fakeSource{
		playersErr: errors.ExternalServiceError("nba-stats", fmt.Errorf("status 503")),
		logs: map[int][]nba.GameLog{
			100: {{Season: "2024-25", PlayerID: 100, GameID: "g-100", GameDate: "2025-01-03", Matchup: "DEN vs. UTA", PTS: 30}},
			101: {{Season: "2024-25", PlayerID: 101, GameID: "g-101", GameDate: "2025-01-03", Matchup: "BOS @ MIA", PTS: 25}},
		},
	}

	if err := p.Ingest(context.Background(), nil); err != nil {
		t.Fatalf("Ingest should degrade to the cached roster: %v", err)
	}

	refs, err := p.raw.ListPlayers()
	if err != nil || len(refs) != 2 {
		t.Fatalf("Expected both cached players refreshed, got %d refs (%v)", len(refs), err)
	}
	for _, ref := range refs {
		logs, err := p.raw.ReadPlayerLogs(ref)
		if err != nil {
			t.Fatalf("ReadPlayerLogs failed for %s: %v", ref.PlayerName, err)
		}
		if len(logs) != 1 || logs[0].PlayerName != ref.PlayerName {
			t.Errorf("Snapshot for %s should hold the refetched rows, got %d", ref.PlayerName, len(logs))
		}
	}
}

func TestIngest_NoIndexNoCache(t *testing.T) {
	p := testPipeline(t)
	p.client = &fakeSource{
		playersErr: errors.ExternalServiceError("nba-stats", fmt.Errorf("status 503")),
	}

	err := p.Ingest(context.Background(), nil)
	if !errors.HasCode(err, errors.CodeExternalService) {
		t.Errorf("Without a cached roster the index failure is fatal, got %v", err)
	}
}

func TestEngineerAll_MasterKeepsListingOrder(t *testing.T) {
	p := testPipeline(t)
	seedPlayers(t, p)

	if err := p.EngineerAll(context.Background()); err != nil {
		t.Fatalf("EngineerAll failed: %v", err)
	}
	master, err := p.processed.ReadMaster()
	if err != nil || len(master) != 160 {
		t.Fatalf("Expected 160 master rows, got %d (%v)", len(master), err)
	}

	// Snapshot listing is lexicographic, so Player BOS (101) precedes
	// Player DEN (100) regardless of which goroutine finishes first.
	for i, row := range master {
		want := 101
		if i >= 80 {
			want = 100
		}
		if row.PlayerID != want {
			t.Fatalf("Row %d belongs to player %d, want %d", i, row.PlayerID, want)
		}
	}
}

func TestTrainAll_SkipsRefusedTarget(t *testing.T) {
	p := testPipeline(t)
	seedPlayers(t, p)
	ctx := context.Background()
	if err := p.EngineerAll(ctx); err != nil {
		t.Fatalf("EngineerAll failed: %v", err)
	}

	// Knock out one target's trailing averages so only it trips the floor.
	master, err := p.processed.ReadMaster()
	if err != nil {
		t.Fatalf("ReadMaster failed: %v", err)
	}
	for i := range master {
		master[i].PraAvg3 = math.NaN()
	}
	if err := p.processed.WriteMaster(master); err != nil {
		t.Fatalf("WriteMaster failed: %v", err)
	}

	if err := p.TrainAll(ctx); err != nil {
		t.Fatalf("One refused target should not sink the phase: %v", err)
	}
	store := model.NewStore(p.cfg.Paths.ModelDir)
	for _, target := range []string{"PTS", "AST", "REB"} {
		if _, err := store.Load(target); err != nil {
			t.Errorf("Expected a trained bundle for %s: %v", target, err)
		}
	}
	if _, err := store.Load("PRA"); !errors.HasCode(err, errors.CodeNotFound) {
		t.Errorf("Refused target should have no bundle, got %v", err)
	}
}

func TestTrainAll_AllTargetsBelowFloor(t *testing.T) {
	p := testPipeline(t)
	seedPlayers(t, p)
	ctx := context.Background()
	if err := p.EngineerAll(ctx); err != nil {
		t.Fatalf("EngineerAll failed: %v", err)
	}
	master, err := p.processed.ReadMaster()
	if err != nil {
		t.Fatalf("ReadMaster failed: %v", err)
	}
	if err := p.processed.WriteMaster(master[:20]); err != nil {
		t.Fatalf("WriteMaster failed: %v", err)
	}

	if err := p.TrainAll(ctx); !errors.HasCode(err, errors.CodeInsufficientData) {
		t.Errorf("Every target refused should report insufficient data, got %v", err)
	}
}

func TestEngineerAll_ToleratesEmptySnapshot(t *testing.T) {
	p := testPipeline(t)
	seedPlayers(t, p)

	// A zero-row snapshot alongside healthy ones must not sink the phase.
	if err := p.raw.WritePlayerLogs("Empty Player", 999, nil); err != nil {
		t.Fatalf("Failed to seed empty snapshot: %v", err)
	}

	if err := p.EngineerAll(context.Background()); err != nil {
		t.Fatalf("EngineerAll should tolerate an empty entity: %v", err)
	}
	master, err := p.processed.ReadMaster()
	if err != nil {
		t.Fatalf("ReadMaster failed: %v", err)
	}
	if len(master) != 160 {
		t.Errorf("Healthy players should still assemble: %d rows", len(master))
	}
}
