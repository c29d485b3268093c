// Package model trains one gradient-boosted regressor per target statistic
// and persists each with the exact ordered feature-name list it was fit on.
// Prediction-time vectors are reindexed onto that frozen list so column
// order and presence match training bit-for-bit.
package model

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"hoopsight/domain/features"
	"hoopsight/internal/cluster"
	"hoopsight/internal/errors"
	"hoopsight/internal/ml"
)

// CategoricalField is the closed category set for one categorical feature,
// fixed at training time. Categories[0] is the reference level: it gets no
// indicator column. A value outside the set encodes as all zeros, the
// explicit unknown bucket, indistinguishable from the reference level.
type CategoricalField struct {
	Name       string   `json:"name"`
	Categories []string `json:"categories"`
}

// Columns returns the indicator column names, one per non-reference
// category.
func (f CategoricalField) Columns() []string {
	cols := make([]string, 0, len(f.Categories)-1)
	for _, c := range f.Categories[1:] {
		cols = append(cols, f.Name+"_"+c)
	}
	return cols
}

// Encode produces the indicator values for an observed category value.
func (f CategoricalField) Encode(value string) map[string]float64 {
	out := make(map[string]float64, len(f.Categories)-1)
	for _, c := range f.Categories[1:] {
		col := f.Name + "_" + c
		if value == c {
			out[col] = 1
		} else {
			out[col] = 0
		}
	}
	return out
}

// travelDirField and tzShiftField are always present; the archetype field
// joins them only when opponent context exists in the master table.
func travelDirField() CategoricalField {
	return CategoricalField{
		Name:       features.FieldTravelDir,
		Categories: []string{"None", "Eastward", "Westward"},
	}
}

func tzShiftField() CategoricalField {
	return CategoricalField{
		Name:       features.FieldTZShift,
		Categories: []string{"0", "1", "2", "3+"},
	}
}

func archetypeField() CategoricalField {
	return CategoricalField{
		Name:       features.FieldOppArchetype,
		Categories: append([]string{""}, cluster.Labels()...),
	}
}

// Bundle is a persisted model: the fitted estimator plus everything needed
// to rebuild its exact input row at prediction time.
type Bundle struct {
	Target       string             `json:"target"`
	Features     []string           `json:"features"`
	Categoricals []CategoricalField `json:"categoricals"`
	Estimator    *ml.GBTRegressor   `json:"estimator"`
	TrainedRows  int                `json:"trained_rows"`
	TrainedAt    time.Time          `json:"trained_at"`
}

// Align reindexes a named feature map onto the bundle's frozen column list:
// missing or NaN entries fill with 0, extras are dropped, order is
// preserved exactly.
func (b *Bundle) Align(feat map[string]float64) []float64 {
	out := make([]float64, len(b.Features))
	for i, name := range b.Features {
		if v, ok := feat[name]; ok && !math.IsNaN(v) {
			out[i] = v
		}
	}
	return out
}

// EncodeCategoricals expands the observed categorical values into indicator
// entries in feat, using the bundle's frozen category sets.
func (b *Bundle) EncodeCategoricals(feat map[string]float64, values map[string]string) {
	for _, field := range b.Categoricals {
		for col, v := range field.Encode(values[field.Name]) {
			feat[col] = v
		}
	}
}

// Store persists model bundles, one JSON file per target.
type Store struct {
	dir string
}

func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

func (s *Store) path(target string) string {
	return filepath.Join(s.dir, fmt.Sprintf("gbt_%s_model.json", strings.ToLower(target)))
}

// Save overwrites the bundle for its target.
func (s *Store) Save(b *Bundle) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return errors.Wrap(err, "failed to create model store directory")
	}
	data, err := marshalBundle(b)
	if err != nil {
		return err
	}
	if err := os.WriteFile(s.path(b.Target), data, 0o644); err != nil {
		return errors.Wrapf(err, "failed to write model bundle for %s", b.Target)
	}
	return nil
}

// Load reads the bundle for a target; a missing file surfaces as not-found.
func (s *Store) Load(target string) (*Bundle, error) {
	data, err := os.ReadFile(s.path(target))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NotFound(fmt.Sprintf("model bundle for %s", target))
		}
		return nil, errors.Wrapf(err, "failed to read model bundle for %s", target)
	}
	return unmarshalBundle(data, target)
}

// LoadAll reads bundles for every requested target, failing on the first
// missing one so a half-trained model set is caught before projecting.
func (s *Store) LoadAll(targets []string) (map[string]*Bundle, error) {
	out := make(map[string]*Bundle, len(targets))
	for _, t := range targets {
		b, err := s.Load(t)
		if err != nil {
			return nil, err
		}
		out[t] = b
	}
	return out, nil
}
