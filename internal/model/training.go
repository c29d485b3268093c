package model

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"hoopsight/domain/features"
	"hoopsight/internal/config"
	"hoopsight/internal/errors"
	"hoopsight/internal/ml"
)

// Targets are the statistics a full refresh trains one model for each of.
var Targets = []string{"PTS", "AST", "REB", "PRA"}

// Report summarizes one training run: the fitted model's holdout error next
// to the naive 5-game-trailing-average baseline.
type Report struct {
	Target       string  `json:"target"`
	UsableRows   int     `json:"usable_rows"`
	TrainRows    int     `json:"train_rows"`
	TestRows     int     `json:"test_rows"`
	BaselineMAE  float64 `json:"baseline_mae"`
	BaselineRMSE float64 `json:"baseline_rmse"`
	ModelMAE     float64 `json:"model_mae"`
	ModelRMSE    float64 `json:"model_rmse"`
}

// ImprovementPct is the model's MAE improvement over baseline, in percent.
func (r Report) ImprovementPct() float64 {
	if r.BaselineMAE == 0 {
		return 0
	}
	return (r.BaselineMAE - r.ModelMAE) / r.BaselineMAE * 100
}

// Train fits a gradient-boosted regressor for one target against the master
// table and returns the persisted-shape bundle plus its evaluation report.
//
// Rows where the target or any of its 3/5/10-game trailing averages are
// absent are dropped first (too early in a player's history, or missing
// input), then rows with any absent selected feature. Below the usable-row
// floor, training is refused outright.
func Train(master []features.Row, target string, cfg config.TrainConfig, logger *logrus.Logger) (*Bundle, *Report, error) {
	categoricals := []CategoricalField{travelDirField(), tzShiftField()}
	if hasOpponentContext(master) {
		categoricals = append(categoricals, archetypeField())
	}

	names := featureNames(target, hasOpponentMetrics(master), categoricals)

	var X [][]float64
	var y []float64
	var baseline []float64
	for _, row := range master {
		if !usable(row, target) {
			continue
		}
		feat := row.FeatureMap()
		for _, field := range categoricals {
			for col, v := range field.Encode(row.Categorical(field.Name)) {
				feat[col] = v
			}
		}

		vec := make([]float64, len(names))
		complete := true
		for i, name := range names {
			v, ok := feat[name]
			if !ok || math.IsNaN(v) {
				complete = false
				break
			}
			vec[i] = v
		}
		if !complete {
			continue
		}
		X = append(X, vec)
		y = append(y, row.Target(target))
		baseline = append(baseline, row.Avg(target, 5))
	}

	if len(X) < cfg.MinRows {
		return nil, nil, errors.InsufficientData(fmt.Sprintf(
			"target %s has %d usable rows, below the %d-row floor", target, len(X), cfg.MinRows))
	}

	logger.WithFields(logrus.Fields{
		"component": "model",
		"target":    target,
		"rows":      len(X),
		"features":  len(names),
	}).Info("Training model")

	trainIdx, testIdx := ml.TrainTestSplit(len(X), cfg.TestFrac, cfg.Seed)

	evalModel := ml.NewGBTRegressor()
	if err := evalModel.Fit(subMatrix(X, trainIdx), subVector(y, trainIdx)); err != nil {
		return nil, nil, errors.Wrapf(err, "failed to fit evaluation model for %s", target)
	}

	testTruth := subVector(y, testIdx)
	testPreds := evalModel.PredictBatch(subMatrix(X, testIdx))
	basePreds := subVector(baseline, testIdx)

	report := &Report{
		Target:       target,
		UsableRows:   len(X),
		TrainRows:    len(trainIdx),
		TestRows:     len(testIdx),
		BaselineMAE:  ml.MAE(basePreds, testTruth),
		BaselineRMSE: ml.RMSE(basePreds, testTruth),
		ModelMAE:     ml.MAE(testPreds, testTruth),
		ModelRMSE:    ml.RMSE(testPreds, testTruth),
	}

	logger.WithFields(logrus.Fields{
		"component":     "model",
		"target":        target,
		"baseline_mae":  fmt.Sprintf("%.2f", report.BaselineMAE),
		"baseline_rmse": fmt.Sprintf("%.2f", report.BaselineRMSE),
		"model_mae":     fmt.Sprintf("%.2f", report.ModelMAE),
		"model_rmse":    fmt.Sprintf("%.2f", report.ModelRMSE),
		"improvement":   fmt.Sprintf("%.1f%%", report.ImprovementPct()),
	}).Info("Evaluation against 5-game-average baseline")

	// The shipped estimator refits on every usable row; the holdout model
	// only exists to produce an honest error estimate.
	final := ml.NewGBTRegressor()
	if err := final.Fit(X, y); err != nil {
		return nil, nil, errors.Wrapf(err, "failed to fit final model for %s", target)
	}

	bundle := &Bundle{
		Target:       target,
		Features:     names,
		Categoricals: categoricals,
		Estimator:    final,
		TrainedRows:  len(X),
		TrainedAt:    time.Now().UTC(),
	}
	return bundle, report, nil
}

// usable reports whether a row can train for target: the target value and
// all three of its trailing averages must be present.
func usable(row features.Row, target string) bool {
	if math.IsNaN(row.Target(target)) {
		return false
	}
	for _, w := range features.Windows {
		if math.IsNaN(row.Avg(target, w)) {
			return false
		}
	}
	return true
}

// featureNames assembles the frozen column order: the target's trailing
// averages, fatigue and travel features, opponent metrics when the join
// populated them, then indicator columns.
func featureNames(target string, withOppMetrics bool, categoricals []CategoricalField) []string {
	names := []string{
		features.AvgFeature(target, 3),
		features.AvgFeature(target, 5),
		features.AvgFeature(target, 10),
		features.FeatB2B,
		features.FeatGamesLast7D,
		features.FeatAltitude,
		features.FeatHighAltitude,
		features.FeatTravelDist,
	}
	if withOppMetrics {
		names = append(names, features.OppMetricFeatures...)
	}
	for _, field := range categoricals {
		names = append(names, field.Columns()...)
	}
	return names
}

func hasOpponentContext(master []features.Row) bool {
	for _, row := range master {
		if row.OppArchetype != "" {
			return true
		}
	}
	return false
}

func hasOpponentMetrics(master []features.Row) bool {
	for _, row := range master {
		if !math.IsNaN(row.OppPace) {
			return true
		}
	}
	return false
}

func subMatrix(X [][]float64, indices []int) [][]float64 {
	out := make([][]float64, len(indices))
	for i, idx := range indices {
		out[i] = X[idx]
	}
	return out
}

func subVector(v []float64, indices []int) []float64 {
	out := make([]float64, len(indices))
	for i, idx := range indices {
		out[i] = v[idx]
	}
	return out
}

func marshalBundle(b *Bundle) ([]byte, error) {
	data, err := json.Marshal(b)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to marshal model bundle for %s", b.Target)
	}
	return data, nil
}

func unmarshalBundle(data []byte, target string) (*Bundle, error) {
	var b Bundle
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, errors.Wrapf(err, "failed to parse model bundle for %s", target)
	}
	return &b, nil
}
