package projection

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"strconv"

	"hoopsight/internal/errors"
)

// slateColumns is the slate CSV header, in output order.
var slateColumns = []string{
	"PLAYER_ID", "PLAYER_NAME", "TEAM", "OPPONENT", "GAME_DATE", "HOME",
	"PREDICTED_PTS", "PREDICTED_AST", "PREDICTED_REB", "PREDICTED_PRA",
	"BASELINE_PTS_5G",
}

// WriteSlateCSV writes a slate of projections, preserving their order.
func WriteSlateCSV(path string, slate []Projection) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "failed to create slate file")
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(slateColumns); err != nil {
		return errors.Wrap(err, "failed to write slate header")
	}
	for _, p := range slate {
		rec := []string{
			strconv.Itoa(p.PlayerID),
			p.PlayerName,
			p.Team,
			p.Opponent,
			p.GameDate,
			strconv.FormatBool(p.Home),
			formatStat(p.Predicted["PTS"]),
			formatStat(p.Predicted["AST"]),
			formatStat(p.Predicted["REB"]),
			formatStat(p.PRAOf()),
			formatStat(p.BaselinePTS),
		}
		if err := w.Write(rec); err != nil {
			return errors.Wrap(err, "failed to write slate row")
		}
	}
	w.Flush()
	return errors.Wrap(w.Error(), "failed to flush slate file")
}

// formatStat renders a forecast with one decimal; absent values stay empty
// cells rather than becoming "NaN" text.
func formatStat(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return fmt.Sprintf("%.1f", v)
}
