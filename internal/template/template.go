// Package template generates the per-trial cohort upload templates. The
// column header order is the contract the server-side bulk parser depends
// on; changing it breaks uploads.
package template

import (
	"bytes"
	"encoding/csv"
	"fmt"

	"trialscreen/internal/catalog"
)

// Columns returns the ordered header for a trial type's cohort file.
func Columns(trial catalog.TrialType) []string {
	switch trial {
	case catalog.Hypertension:
		return []string{
			"age", "gender", "bmi", "glucose", "lifestyle_risk", "stress_level",
			"systolic_bp", "diastolic_bp", "cholesterol_total", "comorbidities", "consent",
		}
	case catalog.Arthritis:
		return []string{
			"age", "years_since_diagnosis", "tender_joint_count", "swollen_joint_count",
			"crp_level", "patient_pain_score", "egfr", "on_biologic_dmards", "has_hepatitis",
		}
	case catalog.Migraine:
		return []string{
			"age", "migraine_frequency", "previous_medication_failures", "liver_enzyme_level",
			"has_aura", "chronic_kidney_disease", "on_anticoagulants", "sleep_disorder",
			"depression", "caffeine_intake",
		}
	case catalog.Phase1:
		return []string{
			"age", "sex", "weight_kg", "height_cm", "bmi", "cohort", "alt", "creatinine",
			"sbp", "dbp", "hr", "temp_c", "adverse_event",
		}
	default:
		panic(fmt.Sprintf("template: no columns for trial type %q", string(trial)))
	}
}

// exampleRow returns one sample data row matching Columns(trial).
func exampleRow(trial catalog.TrialType) []string {
	switch trial {
	case catalog.Hypertension:
		return []string{"45", "Male", "26.5", "95", "1", "7", "140", "85", "220", "1", "Yes"}
	case catalog.Arthritis:
		return []string{"55", "5.2", "8", "6", "15.3", "7", "75.5", "1", "0"}
	case catalog.Migraine:
		return []string{"35", "8", "2", "25.5", "1", "0", "0", "1", "0", "3"}
	case catalog.Phase1:
		return []string{"28", "0", "70.5", "175.0", "23.0", "1", "22.3", "0.9", "120", "80", "72", "36.5", "0"}
	default:
		panic(fmt.Sprintf("template: no example row for trial type %q", string(trial)))
	}
}

// CSV renders the header line plus one example data row.
func CSV(trial catalog.TrialType) ([]byte, error) {
	if !trial.Valid() {
		return nil, fmt.Errorf("unknown trial type %q", string(trial))
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(Columns(trial)); err != nil {
		return nil, err
	}
	if err := w.Write(exampleRow(trial)); err != nil {
		return nil, err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Filename returns the download name for a trial's CSV template.
func Filename(trial catalog.TrialType) string {
	return string(trial) + "_template.csv"
}
