// Package cluster groups team-seasons into defensive archetypes from
// standardized advanced metrics. Labels are opaque tags, stable only within
// one fit; everything downstream joins on team+season, never on label
// identity.
package cluster

import (
	"fmt"
	"math"
	"strings"

	"github.com/sirupsen/logrus"

	"hoopsight/internal/errors"
	"hoopsight/internal/ml"
)

// NumArchetypes is the fixed number of defensive archetypes.
const NumArchetypes = 5

// MetricsTable is the team-season advanced metrics table as ingested, with
// whatever column names the source version emitted.
type MetricsTable struct {
	Columns []string     `json:"columns"`
	Rows    []MetricsRow `json:"rows"`
}

// MetricsRow is one team-season of advanced metrics.
type MetricsRow struct {
	TeamID   int                `json:"team_id"`
	TeamName string             `json:"team_name"`
	TeamAbbr string             `json:"team_abbr"`
	Season   string             `json:"season"`
	Values   map[string]float64 `json:"values"`
}

// ArchetypeRow is one clustered team-season: the label plus the resolved
// metrics that produced it.
type ArchetypeRow struct {
	TeamID    int     `parquet:"team_id"`
	TeamName  string  `parquet:"team_name"`
	TeamAbbr  string  `parquet:"team_abbr"`
	Season    string  `parquet:"season"`
	Archetype string  `parquet:"archetype"`
	Pace      float64 `parquet:"pace"`
	DefRating float64 `parquet:"def_rating"`
	EFGPct    float64 `parquet:"efg_pct"`
	TovPct    float64 `parquet:"tm_tov_pct"`
	DrebPct   float64 `parquet:"dreb_pct"`
}

// logicalMetric pairs a clustering input with the prioritized list of
// column names different source versions have used for it.
type logicalMetric struct {
	name       string
	candidates []string
}

var clusterMetrics = []logicalMetric{
	{"pace", []string{"PACE"}},
	{"def_rating", []string{"DEF_RATING"}},
	{"efg_pct", []string{"EFG_PCT", "EFG_PCT_ALLOWED"}},
	{"tov_pct", []string{"TM_TOV_PCT", "TOV_PCT"}},
	{"dreb_pct", []string{"DREB_PCT", "REB_PCT"}},
}

// Transforms bundles the fitted standardizer and partitioner so team-seasons
// not seen during fitting can still be classified later.
type Transforms struct {
	Scaler *ml.StandardScaler `json:"scaler"`
	KMeans *ml.KMeans         `json:"kmeans"`
}

// resolveColumns maps each logical metric to the first candidate present in
// the table. A metric with no match is schema drift: fail loudly with the
// full available column list rather than cluster on wrong features.
func resolveColumns(table *MetricsTable) (map[string]string, error) {
	present := make(map[string]bool, len(table.Columns))
	for _, c := range table.Columns {
		present[c] = true
	}

	resolved := make(map[string]string, len(clusterMetrics))
	for _, m := range clusterMetrics {
		found := ""
		for _, cand := range m.candidates {
			if present[cand] {
				found = cand
				break
			}
		}
		if found == "" {
			return nil, errors.SchemaDrift(fmt.Sprintf(
				"no column for metric %q (tried %s); available columns: %s",
				m.name,
				strings.Join(m.candidates, ", "),
				strings.Join(table.Columns, ", "),
			))
		}
		resolved[m.name] = found
	}
	return resolved, nil
}

// Build standardizes the metrics, partitions team-seasons into
// NumArchetypes clusters, and returns labeled rows plus the fitted
// transforms. Rows missing any required metric are excluded.
func Build(table *MetricsTable, logger *logrus.Logger) ([]ArchetypeRow, *Transforms, error) {
	resolved, err := resolveColumns(table)
	if err != nil {
		return nil, nil, err
	}

	var kept []MetricsRow
	var X [][]float64
	for _, row := range table.Rows {
		vec := make([]float64, len(clusterMetrics))
		ok := true
		for i, m := range clusterMetrics {
			v, has := row.Values[resolved[m.name]]
			if !has || math.IsNaN(v) {
				ok = false
				break
			}
			vec[i] = v
		}
		if !ok {
			continue
		}
		kept = append(kept, row)
		X = append(X, vec)
	}
	if len(kept) < NumArchetypes {
		return nil, nil, errors.InsufficientData(fmt.Sprintf(
			"only %d complete team-season rows; need at least %d to cluster", len(kept), NumArchetypes))
	}

	logger.WithFields(logrus.Fields{
		"component": "cluster",
		"rows":      len(kept),
		"dropped":   len(table.Rows) - len(kept),
	}).Info("Clustering team-seasons into defensive archetypes")

	scaler := &ml.StandardScaler{}
	scaled, err := scaler.FitTransform(X)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to standardize team metrics")
	}

	km := ml.NewKMeans(NumArchetypes)
	labels, err := km.FitPredict(scaled)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to cluster team metrics")
	}

	out := make([]ArchetypeRow, len(kept))
	for i, row := range kept {
		out[i] = ArchetypeRow{
			TeamID:    row.TeamID,
			TeamName:  row.TeamName,
			TeamAbbr:  row.TeamAbbr,
			Season:    row.Season,
			Archetype: Label(labels[i]),
			Pace:      X[i][0],
			DefRating: X[i][1],
			EFGPct:    X[i][2],
			TovPct:    X[i][3],
			DrebPct:   X[i][4],
		}
	}
	return out, &Transforms{Scaler: scaler, KMeans: km}, nil
}

// Label renders a cluster index as its symbolic archetype tag.
func Label(cluster int) string {
	return fmt.Sprintf("Type_%d", cluster)
}

// Labels enumerates every possible archetype tag, in index order. This is
// the closed category set one-hot encoders freeze at training time.
func Labels() []string {
	out := make([]string, NumArchetypes)
	for i := range out {
		out[i] = Label(i)
	}
	return out
}

// Classify labels a single metrics vector (pace, def rating, eFG%, TOV%,
// DREB%) with the fitted transforms.
func (t *Transforms) Classify(metrics []float64) (string, error) {
	if t.Scaler == nil || t.KMeans == nil || len(t.KMeans.Centers) == 0 {
		return "", errors.InvalidInput("transforms are not fitted")
	}
	scaled := t.Scaler.Transform([][]float64{metrics})
	labels := t.KMeans.Predict(scaled)
	return Label(labels[0]), nil
}
