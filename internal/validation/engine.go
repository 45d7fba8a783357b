// Package validation checks draft form values against a trial's field
// schema. It is pure: no I/O, no state, identical inputs give identical
// results.
package validation

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"trialscreen/internal/models"
)

// Reason classifies a single violation.
type Reason string

const (
	ReasonMissing    Reason = "missing"
	ReasonNotANumber Reason = "not-a-number"
	ReasonBelowMin   Reason = "below-min"
	ReasonAboveMax   Reason = "above-max"
)

// Violation is one failed check against one field.
type Violation struct {
	FieldLabel string `json:"field_label"`
	Reason     Reason `json:"reason"`
	Message    string `json:"message"`
}

// Result holds every violation found, in schema order.
type Result struct {
	Violations []Violation `json:"violations"`
}

// Valid reports whether no violations were found.
func (r Result) Valid() bool { return len(r.Violations) == 0 }

// FirstMissing returns the first missing-field violation, if any.
func (r Result) FirstMissing() *Violation {
	return r.first(func(v Violation) bool { return v.Reason == ReasonMissing })
}

// FirstRange returns the first type or range violation, if any.
func (r Result) FirstRange() *Violation {
	return r.first(func(v Violation) bool { return v.Reason != ReasonMissing })
}

func (r Result) first(match func(Violation) bool) *Violation {
	for i := range r.Violations {
		if match(r.Violations[i]) {
			return &r.Violations[i]
		}
	}
	return nil
}

// Messages flattens the violations into human-readable strings.
func (r Result) Messages() []string {
	out := make([]string, len(r.Violations))
	for i, v := range r.Violations {
		out[i] = v.Message
	}
	return out
}

// Validate runs every check for every field and collects all violations.
// A required field left blank yields exactly one missing violation and no
// further checks for that field. Non-required blank fields are skipped
// entirely. Number fields must parse as a finite number and respect any
// declared min/max bounds.
func Validate(fields []models.FieldSpec, values map[string]string) Result {
	var res Result

	for _, f := range fields {
		raw, ok := values[f.Name]
		blank := !ok || strings.TrimSpace(raw) == ""

		if blank {
			if f.Required {
				res.Violations = append(res.Violations, Violation{
					FieldLabel: f.Label,
					Reason:     ReasonMissing,
					Message:    fmt.Sprintf("%s is required", f.Label),
				})
			}
			continue
		}

		if f.Type != models.FieldNumber {
			continue
		}

		num, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil || math.IsNaN(num) || math.IsInf(num, 0) {
			res.Violations = append(res.Violations, Violation{
				FieldLabel: f.Label,
				Reason:     ReasonNotANumber,
				Message:    fmt.Sprintf("%s must be a number", f.Label),
			})
			continue
		}
		if f.Min != nil && num < *f.Min {
			res.Violations = append(res.Violations, Violation{
				FieldLabel: f.Label,
				Reason:     ReasonBelowMin,
				Message:    fmt.Sprintf("%s must be >= %v", f.Label, *f.Min),
			})
		}
		if f.Max != nil && num > *f.Max {
			res.Violations = append(res.Violations, Violation{
				FieldLabel: f.Label,
				Reason:     ReasonAboveMax,
				Message:    fmt.Sprintf("%s must be <= %v", f.Label, *f.Max),
			})
		}
	}

	return res
}
