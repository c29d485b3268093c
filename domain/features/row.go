// Package features is the temporal feature engine: it turns one player's
// chronological raw game rows into leakage-free engineered feature rows.
// Every derived field of a row is a function only of strictly earlier rows,
// so the same code path serves training-set construction and projection of
// not-yet-played games without train/serve skew.
package features

import (
	"fmt"
	"math"
)

// Targets are the statistics that receive trailing rolling averages.
var Targets = []string{"PTS", "AST", "REB", "FG3M", "PRA"}

// Windows are the trailing rolling-average window sizes, in games.
var Windows = []int{3, 5, 10}

// Feature column names. These are frozen into persisted model bundles, so
// renaming one invalidates every trained model.
const (
	FeatB2B          = "B2B_FLAG"
	FeatGamesLast7D  = "GAMES_LAST_7D"
	FeatAltitude     = "ALTITUDE"
	FeatHighAltitude = "HIGH_ALTITUDE_FLAG"
	FeatTravelDist   = "TRAVEL_DIST"

	FieldTravelDir    = "TRAVEL_DIR"
	FieldTZShift      = "TZ_SHIFT"
	FieldOppArchetype = "OPP_ARCHETYPE"

	FeatOppPace      = "OPP_PACE"
	FeatOppDefRating = "OPP_DEF_RATING"
	FeatOppEFGPct    = "OPP_EFG_PCT"
	FeatOppTovPct    = "OPP_TM_TOV_PCT"
	FeatOppDrebPct   = "OPP_DREB_PCT"
)

// OppMetricFeatures lists the opponent defensive metrics in master-table order.
var OppMetricFeatures = []string{
	FeatOppPace, FeatOppDefRating, FeatOppEFGPct, FeatOppTovPct, FeatOppDrebPct,
}

// AvgFeature names the trailing average column for a target and window,
// e.g. AvgFeature("PTS", 5) == "PTS_5g_avg".
func AvgFeature(target string, window int) string {
	return fmt.Sprintf("%s_%dg_avg", target, window)
}

// Row is one engineered feature row: the raw row's identity and target
// values plus every derived field. Absent numeric values are NaN; absent
// categoricals take their neutral category ("None" / "0").
type Row struct {
	Season     string `parquet:"season"`
	PlayerID   int    `parquet:"player_id"`
	PlayerName string `parquet:"player_name"`
	GameID     string `parquet:"game_id"`
	GameDate   string `parquet:"game_date"`
	Matchup    string `parquet:"matchup"`

	// Team and opponent tokens for this game, from the matchup descriptor.
	// Empty when the descriptor failed to parse.
	TeamAbbr string `parquet:"team_abbr"`
	Opponent string `parquet:"opponent"`
	HomeTeam string `parquet:"home_team"`

	// Raw target values for the game itself. Never features; they are the
	// labels models train against.
	PTS  float64 `parquet:"pts"`
	AST  float64 `parquet:"ast"`
	REB  float64 `parquet:"reb"`
	FG3M float64 `parquet:"fg3m"`
	PRA  float64 `parquet:"pra"`

	// Trailing rolling averages over strictly earlier games.
	PtsAvg3   float64 `parquet:"pts_3g_avg"`
	PtsAvg5   float64 `parquet:"pts_5g_avg"`
	PtsAvg10  float64 `parquet:"pts_10g_avg"`
	AstAvg3   float64 `parquet:"ast_3g_avg"`
	AstAvg5   float64 `parquet:"ast_5g_avg"`
	AstAvg10  float64 `parquet:"ast_10g_avg"`
	RebAvg3   float64 `parquet:"reb_3g_avg"`
	RebAvg5   float64 `parquet:"reb_5g_avg"`
	RebAvg10  float64 `parquet:"reb_10g_avg"`
	Fg3mAvg3  float64 `parquet:"fg3m_3g_avg"`
	Fg3mAvg5  float64 `parquet:"fg3m_5g_avg"`
	Fg3mAvg10 float64 `parquet:"fg3m_10g_avg"`
	PraAvg3   float64 `parquet:"pra_3g_avg"`
	PraAvg5   float64 `parquet:"pra_5g_avg"`
	PraAvg10  float64 `parquet:"pra_10g_avg"`

	// Fatigue indicators.
	DaysRest    float64 `parquet:"days_rest"` // NaN for the first game
	BackToBack  bool    `parquet:"b2b_flag"`
	GamesLast7D float64 `parquet:"games_last_7d"`

	// Venue attributes of the game's home arena. NaN when the home team
	// token is unknown.
	Lat          float64 `parquet:"lat"`
	Lon          float64 `parquet:"lon"`
	Altitude     float64 `parquet:"altitude"`
	UTCOffset    float64 `parquet:"utc_offset"`
	HighAltitude bool    `parquet:"high_altitude_flag"`

	// Travel burden relative to the previous game's venue.
	TravelDist float64 `parquet:"travel_dist"`
	TravelDir  string  `parquet:"travel_dir"`
	TZShift    string  `parquet:"tz_shift"`

	// Opponent context, joined on during dataset assembly. NaN / empty
	// until the archetype table is available for (Opponent, Season).
	OppArchetype string  `parquet:"opp_archetype"`
	OppPace      float64 `parquet:"opp_pace"`
	OppDefRating float64 `parquet:"opp_def_rating"`
	OppEFGPct    float64 `parquet:"opp_efg_pct"`
	OppTovPct    float64 `parquet:"opp_tm_tov_pct"`
	OppDrebPct   float64 `parquet:"opp_dreb_pct"`
}

// Target returns the row's raw value for a target statistic.
func (r Row) Target(name string) float64 {
	switch name {
	case "PTS":
		return r.PTS
	case "AST":
		return r.AST
	case "REB":
		return r.REB
	case "FG3M":
		return r.FG3M
	case "PRA":
		return r.PRA
	}
	return math.NaN()
}

// Avg returns the trailing average for a target and window size.
func (r Row) Avg(target string, window int) float64 {
	switch target + "/" + fmt.Sprint(window) {
	case "PTS/3":
		return r.PtsAvg3
	case "PTS/5":
		return r.PtsAvg5
	case "PTS/10":
		return r.PtsAvg10
	case "AST/3":
		return r.AstAvg3
	case "AST/5":
		return r.AstAvg5
	case "AST/10":
		return r.AstAvg10
	case "REB/3":
		return r.RebAvg3
	case "REB/5":
		return r.RebAvg5
	case "REB/10":
		return r.RebAvg10
	case "FG3M/3":
		return r.Fg3mAvg3
	case "FG3M/5":
		return r.Fg3mAvg5
	case "FG3M/10":
		return r.Fg3mAvg10
	case "PRA/3":
		return r.PraAvg3
	case "PRA/5":
		return r.PraAvg5
	case "PRA/10":
		return r.PraAvg10
	}
	return math.NaN()
}

func (r *Row) setAvg(target string, window int, v float64) {
	switch target + "/" + fmt.Sprint(window) {
	case "PTS/3":
		r.PtsAvg3 = v
	case "PTS/5":
		r.PtsAvg5 = v
	case "PTS/10":
		r.PtsAvg10 = v
	case "AST/3":
		r.AstAvg3 = v
	case "AST/5":
		r.AstAvg5 = v
	case "AST/10":
		r.AstAvg10 = v
	case "REB/3":
		r.RebAvg3 = v
	case "REB/5":
		r.RebAvg5 = v
	case "REB/10":
		r.RebAvg10 = v
	case "FG3M/3":
		r.Fg3mAvg3 = v
	case "FG3M/5":
		r.Fg3mAvg5 = v
	case "FG3M/10":
		r.Fg3mAvg10 = v
	case "PRA/3":
		r.PraAvg3 = v
	case "PRA/5":
		r.PraAvg5 = v
	case "PRA/10":
		r.PraAvg10 = v
	}
}

// FeatureMap flattens every numeric feature into a name-keyed map in the
// vocabulary persisted models are frozen against. Categorical fields are not
// included; one-hot expansion owns those.
func (r Row) FeatureMap() map[string]float64 {
	m := make(map[string]float64, 24)
	for _, t := range Targets {
		for _, w := range Windows {
			m[AvgFeature(t, w)] = r.Avg(t, w)
		}
	}
	m[FeatB2B] = boolToFloat(r.BackToBack)
	m[FeatGamesLast7D] = r.GamesLast7D
	m[FeatAltitude] = r.Altitude
	m[FeatHighAltitude] = boolToFloat(r.HighAltitude)
	m[FeatTravelDist] = r.TravelDist
	m[FeatOppPace] = r.OppPace
	m[FeatOppDefRating] = r.OppDefRating
	m[FeatOppEFGPct] = r.OppEFGPct
	m[FeatOppTovPct] = r.OppTovPct
	m[FeatOppDrebPct] = r.OppDrebPct
	return m
}

// Categorical returns the row's value for a categorical field.
func (r Row) Categorical(field string) string {
	switch field {
	case FieldTravelDir:
		return r.TravelDir
	case FieldTZShift:
		return r.TZShift
	case FieldOppArchetype:
		return r.OppArchetype
	}
	return ""
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
