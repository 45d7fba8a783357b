package template

import (
	"bytes"
	"encoding/csv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trialscreen/internal/catalog"
)

// The header order is the server-side bulk parser's contract; these columns
// must not drift.
func TestColumns_Contract(t *testing.T) {
	tests := []struct {
		trial catalog.TrialType
		want  []string
	}{
		{
			trial: catalog.Hypertension,
			want: []string{
				"age", "gender", "bmi", "glucose", "lifestyle_risk", "stress_level",
				"systolic_bp", "diastolic_bp", "cholesterol_total", "comorbidities", "consent",
			},
		},
		{
			trial: catalog.Arthritis,
			want: []string{
				"age", "years_since_diagnosis", "tender_joint_count", "swollen_joint_count",
				"crp_level", "patient_pain_score", "egfr", "on_biologic_dmards", "has_hepatitis",
			},
		},
		{
			trial: catalog.Migraine,
			want: []string{
				"age", "migraine_frequency", "previous_medication_failures", "liver_enzyme_level",
				"has_aura", "chronic_kidney_disease", "on_anticoagulants", "sleep_disorder",
				"depression", "caffeine_intake",
			},
		},
		{
			trial: catalog.Phase1,
			want: []string{
				"age", "sex", "weight_kg", "height_cm", "bmi", "cohort", "alt", "creatinine",
				"sbp", "dbp", "hr", "temp_c", "adverse_event",
			},
		},
	}

	for _, tt := range tests {
		t.Run(string(tt.trial), func(t *testing.T) {
			assert.Equal(t, tt.want, Columns(tt.trial))
		})
	}
}

func TestCSV_HeaderPlusExampleRow(t *testing.T) {
	for _, trial := range catalog.All() {
		t.Run(string(trial), func(t *testing.T) {
			data, err := CSV(trial)
			require.NoError(t, err)

			records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
			require.NoError(t, err)
			require.Len(t, records, 2)
			assert.Equal(t, Columns(trial), records[0])
			assert.Len(t, records[1], len(Columns(trial)))
		})
	}
}

func TestCSV_UnknownTrialType(t *testing.T) {
	_, err := CSV(catalog.TrialType("oncology"))
	assert.Error(t, err)
}

func TestFilename(t *testing.T) {
	assert.Equal(t, "hypertension_template.csv", Filename(catalog.Hypertension))
	assert.Equal(t, "phase1_template.xlsx", XLSXFilename(catalog.Phase1))
}
