package nbastats

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"hoopsight/internal/config"
	"hoopsight/internal/errors"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func testFetchConfig() config.FetchConfig {
	return config.FetchConfig{
		Timeout:     2 * time.Second,
		MaxAttempts: 3,
		BaseDelay:   time.Millisecond,
		MaxDelay:    5 * time.Millisecond,
	}
}

func testClient(serverURL string) *Client {
	c := NewClient(testFetchConfig(), quietLogger())
	c.baseURL = serverURL
	return c
}

func gameLogResponse() map[string]any {
	return map[string]any{
		"resultSets": []map[string]any{{
			"name": "PlayerGameLog",
			"headers": []string{
				"Player_ID", "Game_ID", "GAME_DATE", "MATCHUP", "MIN",
				"FGM", "FGA", "FG3M", "FG3A", "FTM", "FTA",
				"REB", "AST", "STL", "BLK", "TOV", "PTS", "PLUS_MINUS",
			},
			"rowSet": [][]any{
				{2544.0, "0022400001", "NOV 05, 2024", "LAL @ BOS", 38.0,
					11.0, 20.0, 2.0, 6.0, 5.0, 6.0,
					8.0, 9.0, 1.0, 1.0, 3.0, 29.0, 4.0},
				{2544.0, "0022400002", "NOV 07, 2024", "LAL vs. MIA", 36.0,
					nil, 18.0, 3.0, 7.0, 4.0, 4.0,
					7.0, 11.0, 2.0, 0.0, 2.0, 25.0, -2.0},
			},
		}},
	}
}

func TestPlayerGameLogs_ParsesResultSets(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "playergamelog") {
			t.Errorf("Unexpected endpoint: %s", r.URL.Path)
		}
		if r.URL.Query().Get("Season") != "2024-25" {
			t.Errorf("Season parameter missing: %s", r.URL.RawQuery)
		}
		if r.Header.Get("User-Agent") == "" {
			t.Error("Requests must carry a browser user agent")
		}
		json.NewEncoder(w).Encode(gameLogResponse())
	}))
	defer server.Close()

	logs, err := testClient(server.URL).PlayerGameLogs(context.Background(), 2544, "2024-25")
	if err != nil {
		t.Fatalf("PlayerGameLogs failed: %v", err)
	}
	if len(logs) != 2 {
		t.Fatalf("Expected 2 rows, got %d", len(logs))
	}

	first := logs[0]
	if first.GameID != "0022400001" || first.PTS != 29 || first.Matchup != "LAL @ BOS" {
		t.Errorf("Row misparsed: %+v", first)
	}
	if first.GameDate != "2024-11-05" {
		t.Errorf("Provider date not normalized: %s", first.GameDate)
	}
	if first.TeamAbbr != "LAL" {
		t.Errorf("Team not derived from matchup: %s", first.TeamAbbr)
	}
	// Null cells become NaN, never zero.
	if !math.IsNaN(logs[1].FGM) {
		t.Errorf("Null cell should be NaN, got %v", logs[1].FGM)
	}
}

func TestPlayerGameLogs_SchemaDrift(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"resultSets": []map[string]any{{
				"name":    "PlayerGameLog",
				"headers": []string{"Player_ID", "Game_ID", "GAME_DATE", "MATCHUP", "POINTS_SCORED"},
				"rowSet":  [][]any{},
			}},
		})
	}))
	defer server.Close()

	_, err := testClient(server.URL).PlayerGameLogs(context.Background(), 2544, "2024-25")
	if err == nil {
		t.Fatal("Expected schema drift error")
	}
	if !errors.HasCode(err, errors.CodeSchemaDrift) {
		t.Errorf("Expected %s, got %s", errors.CodeSchemaDrift, errors.GetCode(err))
	}
	if !strings.Contains(err.Error(), "POINTS_SCORED") {
		t.Errorf("Drift error should list available columns: %v", err)
	}
}

func TestGet_RetriesTransientFailures(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		json.NewEncoder(w).Encode(gameLogResponse())
	}))
	defer server.Close()

	logs, err := testClient(server.URL).PlayerGameLogs(context.Background(), 2544, "2024-25")
	if err != nil {
		t.Fatalf("Expected success after retries, got %v", err)
	}
	if len(logs) != 2 {
		t.Fatalf("Expected 2 rows, got %d", len(logs))
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Errorf("Expected 3 attempts, got %d", got)
	}
}

func TestGet_ExhaustedRetriesSurfaceAsExternalServiceError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := testClient(server.URL).PlayerGameLogs(context.Background(), 2544, "2024-25")
	if err == nil {
		t.Fatal("Expected failure after exhausting retries")
	}
	if !errors.HasCode(err, errors.CodeExternalService) {
		t.Errorf("Expected %s, got %s", errors.CodeExternalService, errors.GetCode(err))
	}
}

func TestFetchSchedule_EmptyDayEarlyStop(t *testing.T) {
	var days int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&days, 1)
		json.NewEncoder(w).Encode(map[string]any{
			"resultSets": []map[string]any{{
				"name":    "GameHeader",
				"headers": []string{"GAME_DATE_EST", "GAME_ID", "HOME_TEAM_ID", "VISITOR_TEAM_ID"},
				"rowSet":  [][]any{},
			}},
		})
	}))
	defer server.Close()

	start := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
	games, err := testClient(server.URL).FetchSchedule(context.Background(), start, start.AddDate(0, 0, 60), 5)
	if err != nil {
		t.Fatalf("FetchSchedule failed: %v", err)
	}
	if len(games) != 0 {
		t.Fatalf("Expected no games in the offseason, got %d", len(games))
	}
	if got := atomic.LoadInt32(&days); got != 5 {
		t.Errorf("Walk should stop after 5 empty days, made %d calls", got)
	}
}

func TestScoreboard_MapsTeamIDs(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"resultSets": []map[string]any{{
				"name":    "GameHeader",
				"headers": []string{"GAME_DATE_EST", "GAME_ID", "HOME_TEAM_ID", "VISITOR_TEAM_ID"},
				"rowSet": [][]any{
					{"2024-11-10T00:00:00", "0022400123", 1610612743.0, 1610612762.0}, // DEN hosts UTA
					{"2024-11-10T00:00:00", "0022400124", 999.0, 1610612738.0},        // junk home id
				},
			}},
		})
	}))
	defer server.Close()

	games, err := testClient(server.URL).Scoreboard(context.Background(), time.Date(2024, 11, 10, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Scoreboard failed: %v", err)
	}
	if len(games) != 1 {
		t.Fatalf("Unrecognized teams should be skipped, got %d games", len(games))
	}
	g := games[0]
	if g.HomeTeam != "DEN" || g.AwayTeam != "UTA" || g.GameDate != "2024-11-10" {
		t.Errorf("Scoreboard row misparsed: %+v", g)
	}
}

func TestNormalizeDate(t *testing.T) {
	cases := map[string]string{
		"2024-11-05T00:00:00": "2024-11-05",
		"2024-11-05":          "2024-11-05",
		"NOV 05, 2024":        "2024-11-05",
		"JAN 2, 2025":         "2025-01-02",
	}
	for in, want := range cases {
		if got := normalizeDate(in); got != want {
			t.Errorf("normalizeDate(%q) = %q, want %q", in, got, want)
		}
	}
}
