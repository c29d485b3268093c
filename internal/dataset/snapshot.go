// Package dataset owns the snapshot files every phase reads and writes:
// per-player raw logs, engineered tables, the master table, the archetype
// table, and the schedule cache. All artifacts are whole-file overwrites;
// nothing is appended in place.
package dataset

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/parquet-go/parquet-go"

	"hoopsight/domain/features"
	"hoopsight/domain/nba"
	"hoopsight/internal/cluster"
	"hoopsight/internal/errors"
)

const (
	masterFile       = "master_dataset.parquet"
	archetypeFile    = "team_clusters.parquet"
	transformsFile   = "team_transforms.json"
	teamMetricsFile  = "team_defensive_metrics.json"
	scheduleFile     = "upcoming_games.csv"
	playerLogSuffix  = "_logs.parquet"
	playerFeatSuffix = "_features.parquet"
)

// PlayerRef locates one player's snapshot within a store.
type PlayerRef struct {
	PlayerID   int
	PlayerName string
	Path       string
}

// RawStore holds provider-shaped inputs: raw game logs, team metrics, the
// schedule cache.
type RawStore struct {
	dir string
}

func NewRawStore(dir string) *RawStore {
	return &RawStore{dir: dir}
}

// ProcessedStore holds everything derived: engineered tables, the master
// table, archetypes, and fitted transforms.
type ProcessedStore struct {
	dir string
}

func NewProcessedStore(dir string) *ProcessedStore {
	return &ProcessedStore{dir: dir}
}

func playerFileName(name string, id int, suffix string) string {
	return fmt.Sprintf("%s_%d%s", strings.ReplaceAll(name, " ", "_"), id, suffix)
}

// parsePlayerFileName recovers identity from a snapshot filename, e.g.
// "LeBron_James_2544_logs.parquet".
func parsePlayerFileName(base, suffix string) (PlayerRef, bool) {
	if !strings.HasSuffix(base, suffix) {
		return PlayerRef{}, false
	}
	stem := strings.TrimSuffix(base, suffix)
	parts := strings.Split(stem, "_")
	if len(parts) < 2 {
		return PlayerRef{}, false
	}
	id, err := strconv.Atoi(parts[len(parts)-1])
	if err != nil {
		return PlayerRef{}, false
	}
	return PlayerRef{
		PlayerID:   id,
		PlayerName: strings.Join(parts[:len(parts)-1], " "),
	}, true
}

// WritePlayerLogs overwrites one player's raw game-log snapshot.
func (s *RawStore) WritePlayerLogs(name string, id int, rows []nba.GameLog) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return errors.Wrap(err, "failed to create raw store directory")
	}
	path := filepath.Join(s.dir, playerFileName(name, id, playerLogSuffix))
	if err := parquet.WriteFile(path, rows); err != nil {
		return errors.Wrapf(err, "failed to write raw logs for %s", name)
	}
	return nil
}

// ReadPlayerLogs loads one player's raw game-log snapshot.
func (s *RawStore) ReadPlayerLogs(ref PlayerRef) ([]nba.GameLog, error) {
	rows, err := parquet.ReadFile[nba.GameLog](ref.Path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read raw logs at %s", ref.Path)
	}
	return rows, nil
}

// ListPlayers scans the raw store for per-player log snapshots.
func (s *RawStore) ListPlayers() ([]PlayerRef, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to list raw store")
	}
	var refs []PlayerRef
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ref, ok := parsePlayerFileName(e.Name(), playerLogSuffix)
		if !ok {
			continue
		}
		ref.Path = filepath.Join(s.dir, e.Name())
		refs = append(refs, ref)
	}
	return refs, nil
}

// WriteTeamMetrics overwrites the team-season metrics snapshot. The column
// set varies across source versions, so this table is stored as JSON rather
// than forced into a fixed parquet schema.
func (s *RawStore) WriteTeamMetrics(table *cluster.MetricsTable) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return errors.Wrap(err, "failed to create raw store directory")
	}
	return writeJSON(filepath.Join(s.dir, teamMetricsFile), table)
}

// ReadTeamMetrics loads the team-season metrics snapshot.
func (s *RawStore) ReadTeamMetrics() (*cluster.MetricsTable, error) {
	var table cluster.MetricsTable
	if err := readJSON(filepath.Join(s.dir, teamMetricsFile), &table); err != nil {
		return nil, err
	}
	return &table, nil
}

// WriteSchedule overwrites the upcoming-games cache.
func (s *RawStore) WriteSchedule(games []nba.ScheduledGame) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return errors.Wrap(err, "failed to create raw store directory")
	}
	f, err := os.Create(filepath.Join(s.dir, scheduleFile))
	if err != nil {
		return errors.Wrap(err, "failed to create schedule file")
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"GAME_DATE", "GAME_ID", "HOME_TEAM", "AWAY_TEAM"}); err != nil {
		return errors.Wrap(err, "failed to write schedule header")
	}
	for _, g := range games {
		if err := w.Write([]string{g.GameDate, g.GameID, g.HomeTeam, g.AwayTeam}); err != nil {
			return errors.Wrap(err, "failed to write schedule row")
		}
	}
	w.Flush()
	return errors.Wrap(w.Error(), "failed to flush schedule file")
}

// ReadSchedule loads the upcoming-games cache.
func (s *RawStore) ReadSchedule() ([]nba.ScheduledGame, error) {
	f, err := os.Open(filepath.Join(s.dir, scheduleFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NotFound("schedule cache")
		}
		return nil, errors.Wrap(err, "failed to open schedule file")
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse schedule file")
	}
	var games []nba.ScheduledGame
	for i, rec := range records {
		if i == 0 || len(rec) < 4 {
			continue
		}
		games = append(games, nba.ScheduledGame{
			GameDate: rec[0],
			GameID:   rec[1],
			HomeTeam: rec[2],
			AwayTeam: rec[3],
		})
	}
	return games, nil
}

// WritePlayerFeatures overwrites one player's engineered table.
func (s *ProcessedStore) WritePlayerFeatures(name string, id int, rows []features.Row) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return errors.Wrap(err, "failed to create processed store directory")
	}
	path := filepath.Join(s.dir, playerFileName(name, id, playerFeatSuffix))
	if err := parquet.WriteFile(path, rows); err != nil {
		return errors.Wrapf(err, "failed to write features for %s", name)
	}
	return nil
}

// WriteMaster overwrites the concatenated master table.
func (s *ProcessedStore) WriteMaster(rows []features.Row) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return errors.Wrap(err, "failed to create processed store directory")
	}
	if err := parquet.WriteFile(filepath.Join(s.dir, masterFile), rows); err != nil {
		return errors.Wrap(err, "failed to write master table")
	}
	return nil
}

// ReadMaster loads the master table. Its absence is a cross-cutting failure
// surfaced as not-found so callers stop the phase.
func (s *ProcessedStore) ReadMaster() ([]features.Row, error) {
	path := filepath.Join(s.dir, masterFile)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, errors.NotFound("master dataset")
	}
	rows, err := parquet.ReadFile[features.Row](path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read master table")
	}
	return rows, nil
}

// WriteArchetypes overwrites the team archetype table.
func (s *ProcessedStore) WriteArchetypes(rows []cluster.ArchetypeRow) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return errors.Wrap(err, "failed to create processed store directory")
	}
	if err := parquet.WriteFile(filepath.Join(s.dir, archetypeFile), rows); err != nil {
		return errors.Wrap(err, "failed to write archetype table")
	}
	return nil
}

// ReadArchetypes loads the team archetype table; missing means clustering
// has not run, which downstream treats as "no opponent context", not an
// error.
func (s *ProcessedStore) ReadArchetypes() ([]cluster.ArchetypeRow, error) {
	path := filepath.Join(s.dir, archetypeFile)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil
	}
	rows, err := parquet.ReadFile[cluster.ArchetypeRow](path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read archetype table")
	}
	return rows, nil
}

// WriteTransforms overwrites the fitted standardizer and partitioner.
func (s *ProcessedStore) WriteTransforms(t *cluster.Transforms) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return errors.Wrap(err, "failed to create processed store directory")
	}
	return writeJSON(filepath.Join(s.dir, transformsFile), t)
}

// ReadTransforms loads the fitted standardizer and partitioner.
func (s *ProcessedStore) ReadTransforms() (*cluster.Transforms, error) {
	var t cluster.Transforms
	if err := readJSON(filepath.Join(s.dir, transformsFile), &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrapf(err, "failed to marshal %s", filepath.Base(path))
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrapf(err, "failed to write %s", filepath.Base(path))
	}
	return nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return errors.NotFound(filepath.Base(path))
		}
		return errors.Wrapf(err, "failed to read %s", filepath.Base(path))
	}
	if err := json.Unmarshal(data, v); err != nil {
		return errors.Wrapf(err, "failed to parse %s", filepath.Base(path))
	}
	return nil
}
