package dataset

import (
	"testing"

	"hoopsight/domain/nba"
	"hoopsight/internal/errors"
)

func TestPlayerFileName_RoundTrip(t *testing.T) {
	name := playerFileName("Shai Gilgeous-Alexander", 1628983, playerLogSuffix)
	if name != "Shai_Gilgeous-Alexander_1628983_logs.parquet" {
		t.Fatalf("Unexpected snapshot name: %s", name)
	}

	ref, ok := parsePlayerFileName(name, playerLogSuffix)
	if !ok {
		t.Fatal("Snapshot name should parse back")
	}
	if ref.PlayerID != 1628983 || ref.PlayerName != "Shai Gilgeous-Alexander" {
		t.Errorf("Identity lost in round trip: %+v", ref)
	}
}

func TestParsePlayerFileName_RejectsForeignFiles(t *testing.T) {
	for _, base := range []string{
		"team_clusters.parquet",
		"notes.txt",
		"_logs.parquet",
		"NoID_logs.parquet",
	} {
		if _, ok := parsePlayerFileName(base, playerLogSuffix); ok {
			t.Errorf("%q should not parse as a player snapshot", base)
		}
	}
}

func TestRawStore_ListPlayers(t *testing.T) {
	store := NewRawStore(t.TempDir())

	refs, err := store.ListPlayers()
	if err != nil {
		t.Fatalf("Empty store should list cleanly: %v", err)
	}
	if len(refs) != 0 {
		t.Fatalf("Expected no players, got %d", len(refs))
	}

	logs := []nba.GameLog{{Season: "2024-25", PlayerID: 2544, GameID: "001", GameDate: "2024-11-01", Matchup: "LAL vs. BOS", PTS: 28}}
	if err := store.WritePlayerLogs("LeBron James", 2544, logs); err != nil {
		t.Fatalf("WritePlayerLogs failed: %v", err)
	}

	refs, err = store.ListPlayers()
	if err != nil {
		t.Fatalf("ListPlayers failed: %v", err)
	}
	if len(refs) != 1 || refs[0].PlayerID != 2544 || refs[0].PlayerName != "LeBron James" {
		t.Fatalf("Snapshot not listed: %+v", refs)
	}

	rows, err := store.ReadPlayerLogs(refs[0])
	if err != nil {
		t.Fatalf("ReadPlayerLogs failed: %v", err)
	}
	if len(rows) != 1 || rows[0].PTS != 28 {
		t.Errorf("Snapshot content lost: %+v", rows)
	}
}

func TestRawStore_ScheduleRoundTrip(t *testing.T) {
	store := NewRawStore(t.TempDir())

	if _, err := store.ReadSchedule(); !errors.HasCode(err, errors.CodeNotFound) {
		t.Fatalf("Missing schedule should be not-found, got %v", err)
	}

	games := []nba.ScheduledGame{
		{GameDate: "2024-11-10", GameID: "0022400123", HomeTeam: "DEN", AwayTeam: "UTA"},
		{GameDate: "2024-11-11", GameID: "0022400124", HomeTeam: "BOS", AwayTeam: "NYK"},
	}
	if err := store.WriteSchedule(games); err != nil {
		t.Fatalf("WriteSchedule failed: %v", err)
	}

	loaded, err := store.ReadSchedule()
	if err != nil {
		t.Fatalf("ReadSchedule failed: %v", err)
	}
	if len(loaded) != 2 || loaded[0] != games[0] || loaded[1] != games[1] {
		t.Errorf("Schedule round trip lost content: %+v", loaded)
	}
}

func TestProcessedStore_MissingArtifacts(t *testing.T) {
	store := NewProcessedStore(t.TempDir())

	if _, err := store.ReadMaster(); !errors.HasCode(err, errors.CodeNotFound) {
		t.Errorf("Missing master should be not-found, got %v", err)
	}

	// A missing archetype table is not an error: clustering simply has
	// not run yet.
	rows, err := store.ReadArchetypes()
	if err != nil || rows != nil {
		t.Errorf("Missing archetypes should be (nil, nil), got %v, %v", rows, err)
	}
}
