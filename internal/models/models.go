// Package models holds the wire-level data types shared between the
// screening controllers and the evaluation service.
package models

import (
	"encoding/json"
	"fmt"
)

// Field types supported by the dynamic intake forms.
const (
	FieldText   = "text"
	FieldNumber = "number"
	FieldSelect = "select"
)

// Eligibility verdicts returned by the evaluation service.
const (
	EligibilityEligible   = "Eligible"
	EligibilityIneligible = "Ineligible"
	EligibilityError      = "Error"
)

// Option is one choice of a select field. The service sends options either
// as bare strings ("Male") or as {value,label} objects ({"value":0,
// "label":"No"}), so both shapes must unmarshal.
type Option struct {
	Value any    `json:"value"`
	Label string `json:"label"`
}

func (o *Option) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		o.Value = s
		o.Label = s
		return nil
	}

	type alias Option
	var obj alias
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("option must be a string or a value/label object: %w", err)
	}
	*o = Option(obj)
	return nil
}

// FieldSpec describes one data point of a trial's intake schema. Order of
// specs within a schema is significant and preserved as received.
type FieldSpec struct {
	Name     string   `json:"name"`
	Label    string   `json:"label"`
	Type     string   `json:"type"`
	Required bool     `json:"required"`
	Min      *float64 `json:"min,omitempty"`
	Max      *float64 `json:"max,omitempty"`
	Step     *float64 `json:"step,omitempty"`
	Options  []Option `json:"options,omitempty"`
}

// EligibilityOutcome is the service verdict for a single application.
type EligibilityOutcome struct {
	PatientID   int64  `json:"patient_id"`
	TrialType   string `json:"trial_type"`
	Eligibility string `json:"eligibility"`
	Message     string `json:"message"`
}

// BulkRowResult is the per-row outcome inside a bulk upload response.
type BulkRowResult struct {
	Row         int    `json:"row"`
	PatientID   int64  `json:"patient_id,omitempty"`
	Eligibility string `json:"eligibility"`
	Error       string `json:"error,omitempty"`
}

// BulkResultSet is the response to a cohort upload. Results carries at most
// the first 100 rows; the counters always cover the whole job.
type BulkResultSet struct {
	Message        string          `json:"message,omitempty"`
	TotalProcessed int             `json:"total_processed"`
	Eligible       int             `json:"eligible"`
	Ineligible     int             `json:"ineligible"`
	Errors         int             `json:"errors"`
	Results        []BulkRowResult `json:"results"`
}

// TrialSummary aggregates applications per trial type for dashboards.
type TrialSummary struct {
	TrialType         string `json:"trial_type"`
	TotalApplications int    `json:"total_applications"`
	Eligible          int    `json:"eligible"`
	Ineligible        int    `json:"ineligible"`
}

// TrendPoint is one day's application count for a trial type and verdict.
type TrendPoint struct {
	TrialType   string `json:"trial_type"`
	Count       int    `json:"count"`
	Eligibility string `json:"eligibility"`
	Date        string `json:"date"`
}

// AnalyticsSummary is the dashboard payload from GET /api/analytics.
type AnalyticsSummary struct {
	Summary      []TrialSummary `json:"summary"`
	RecentTrends []TrendPoint   `json:"recent_trends"`
	LastUpdated  string         `json:"last_updated"`
}

// ApplicationRecord is one entry of a user's application history.
type ApplicationRecord struct {
	TrialType   string `json:"trial_type"`
	Eligibility string `json:"eligibility"`
	CreatedAt   string `json:"created_at"`
}
