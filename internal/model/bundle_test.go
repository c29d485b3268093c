package model

import (
	"math"
	"testing"

	"hoopsight/domain/features"
)

func TestCategoricalField_DropFirstEncoding(t *testing.T) {
	field := travelDirField()

	cols := field.Columns()
	if len(cols) != 2 {
		t.Fatalf("Three categories should yield two indicator columns, got %v", cols)
	}
	if cols[0] != "TRAVEL_DIR_Eastward" || cols[1] != "TRAVEL_DIR_Westward" {
		t.Errorf("Indicator columns drifted: %v", cols)
	}

	// The reference level encodes as all zeros.
	ref := field.Encode("None")
	for col, v := range ref {
		if v != 0 {
			t.Errorf("Reference level should zero %s, got %v", col, v)
		}
	}

	east := field.Encode("Eastward")
	if east["TRAVEL_DIR_Eastward"] != 1 || east["TRAVEL_DIR_Westward"] != 0 {
		t.Errorf("Eastward misencoded: %v", east)
	}
}

func TestCategoricalField_UnknownValueIsAllZeros(t *testing.T) {
	field := tzShiftField()
	got := field.Encode("99")
	for col, v := range got {
		if v != 0 {
			t.Errorf("Unknown category should zero every indicator, %s = %v", col, v)
		}
	}
}

func TestBundle_AlignFrozenOrder(t *testing.T) {
	b := &Bundle{
		Target:   "PTS",
		Features: []string{"PTS_3g_avg", "PTS_5g_avg", "B2B_FLAG"},
	}

	vec := b.Align(map[string]float64{
		"B2B_FLAG":    1,
		"PTS_3g_avg":  24.5,
		"PTS_5g_avg":  22.0,
		"EXTRA_THING": 999, // never trained on; must be dropped
	})
	want := []float64{24.5, 22.0, 1}
	for i := range want {
		if vec[i] != want[i] {
			t.Fatalf("Align order wrong at %d: got %v, want %v", i, vec, want)
		}
	}
}

func TestBundle_AlignFillsMissingAndNaNWithZero(t *testing.T) {
	b := &Bundle{
		Target:   "PTS",
		Features: []string{"PTS_3g_avg", "TRAVEL_DIST", "GAMES_LAST_7D"},
	}

	vec := b.Align(map[string]float64{
		"PTS_3g_avg":  18,
		"TRAVEL_DIST": math.NaN(),
		// GAMES_LAST_7D absent entirely
	})
	if vec[0] != 18 || vec[1] != 0 || vec[2] != 0 {
		t.Errorf("Missing and NaN entries should fill with 0: %v", vec)
	}
}

func TestBundle_EncodeCategoricalsUsesFrozenSets(t *testing.T) {
	b := &Bundle{
		Target:       "PTS",
		Categoricals: []CategoricalField{travelDirField(), tzShiftField()},
	}

	feat := map[string]float64{}
	b.EncodeCategoricals(feat, map[string]string{
		features.FieldTravelDir: "Westward",
		features.FieldTZShift:   "3+",
	})

	if feat["TRAVEL_DIR_Westward"] != 1 || feat["TRAVEL_DIR_Eastward"] != 0 {
		t.Errorf("Travel direction misencoded: %v", feat)
	}
	if feat["TZ_SHIFT_3+"] != 1 || feat["TZ_SHIFT_1"] != 0 {
		t.Errorf("Timezone shift misencoded: %v", feat)
	}
}
