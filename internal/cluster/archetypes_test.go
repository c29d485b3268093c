package cluster

import (
	"fmt"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"

	"hoopsight/internal/errors"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func metricsTable(columns []string, rows int) *MetricsTable {
	table := &MetricsTable{Columns: columns}
	for i := 0; i < rows; i++ {
		values := make(map[string]float64, len(columns))
		for j, col := range columns {
			// Spread rows apart so clustering has structure to find.
			values[col] = float64(i%5)*10 + float64(j)
		}
		table.Rows = append(table.Rows, MetricsRow{
			TeamID:   1610612737 + i,
			TeamName: fmt.Sprintf("Team %d", i),
			TeamAbbr: fmt.Sprintf("T%02d", i),
			Season:   "2024-25",
			Values:   values,
		})
	}
	return table
}

func TestBuild_LabelsEveryCompleteRow(t *testing.T) {
	table := metricsTable([]string{"PACE", "DEF_RATING", "EFG_PCT", "TM_TOV_PCT", "DREB_PCT"}, 30)

	rows, transforms, err := Build(table, testLogger())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if len(rows) != 30 {
		t.Fatalf("Expected 30 labeled rows, got %d", len(rows))
	}

	valid := make(map[string]bool)
	for _, l := range Labels() {
		valid[l] = true
	}
	for _, r := range rows {
		if !valid[r.Archetype] {
			t.Errorf("Row %s carries unexpected label %q", r.TeamAbbr, r.Archetype)
		}
	}
	if transforms.Scaler == nil || transforms.KMeans == nil {
		t.Fatal("Build should return fitted transforms")
	}

	// A row the fit saw must classify without error.
	label, err := transforms.Classify([]float64{
		table.Rows[0].Values["PACE"],
		table.Rows[0].Values["DEF_RATING"],
		table.Rows[0].Values["EFG_PCT"],
		table.Rows[0].Values["TM_TOV_PCT"],
		table.Rows[0].Values["DREB_PCT"],
	})
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if !valid[label] {
		t.Errorf("Classify returned unexpected label %q", label)
	}
}

func TestBuild_AcceptsAlternateColumnNames(t *testing.T) {
	// An older source version: EFG_PCT_ALLOWED, TOV_PCT, REB_PCT.
	table := metricsTable([]string{"PACE", "DEF_RATING", "EFG_PCT_ALLOWED", "TOV_PCT", "REB_PCT"}, 30)
	if _, _, err := Build(table, testLogger()); err != nil {
		t.Fatalf("Alternate column names should resolve: %v", err)
	}
}

func TestBuild_SchemaDriftFailsLoudly(t *testing.T) {
	table := metricsTable([]string{"PACE", "DEF_RATING", "SOMETHING_NEW", "TM_TOV_PCT", "DREB_PCT"}, 30)

	_, _, err := Build(table, testLogger())
	if err == nil {
		t.Fatal("Expected schema drift error")
	}
	if !errors.HasCode(err, errors.CodeSchemaDrift) {
		t.Errorf("Expected %s, got %s", errors.CodeSchemaDrift, errors.GetCode(err))
	}
	// The message must carry the available columns so the drift is
	// diagnosable from the log line alone.
	if !strings.Contains(err.Error(), "SOMETHING_NEW") {
		t.Errorf("Error should list available columns: %v", err)
	}
}

func TestBuild_DropsIncompleteRowsAndEnforcesFloor(t *testing.T) {
	table := metricsTable([]string{"PACE", "DEF_RATING", "EFG_PCT", "TM_TOV_PCT", "DREB_PCT"}, 8)
	for i := 4; i < 8; i++ {
		delete(table.Rows[i].Values, "PACE")
	}

	_, _, err := Build(table, testLogger())
	if err == nil {
		t.Fatal("Four complete rows cannot support five clusters")
	}
	if !errors.HasCode(err, errors.CodeInsufficientData) {
		t.Errorf("Expected %s, got %s", errors.CodeInsufficientData, errors.GetCode(err))
	}
}

func TestLabels(t *testing.T) {
	labels := Labels()
	if len(labels) != NumArchetypes {
		t.Fatalf("Expected %d labels, got %d", NumArchetypes, len(labels))
	}
	if labels[0] != "Type_0" || labels[4] != "Type_4" {
		t.Errorf("Label scheme drifted: %v", labels)
	}
}
