// Package catalog defines the closed set of trial types and their display
// metadata. Adding a trial type without extending Metadata does not compile
// past the exhaustive switch below.
package catalog

import "fmt"

// TrialType tags one of the supported clinical studies.
type TrialType string

const (
	Hypertension TrialType = "hypertension"
	Arthritis    TrialType = "arthritis"
	Migraine     TrialType = "migraine"
	Phase1       TrialType = "phase1"
)

// Metadata carries the display attributes of a trial type.
type Metadata struct {
	Name        string
	Description string
	Icon        string
	Color       string
}

// All returns the supported trial types in display order.
func All() []TrialType {
	return []TrialType{Hypertension, Arthritis, Migraine, Phase1}
}

// Parse validates a raw tag against the known trial types.
func Parse(s string) (TrialType, error) {
	t := TrialType(s)
	if !t.Valid() {
		return "", fmt.Errorf("unknown trial type %q", s)
	}
	return t, nil
}

// Valid reports whether t is one of the known trial types.
func (t TrialType) Valid() bool {
	switch t {
	case Hypertension, Arthritis, Migraine, Phase1:
		return true
	}
	return false
}

func (t TrialType) String() string { return string(t) }

// Metadata returns the display attributes for t. The switch is exhaustive
// over the TrialType constants; an unknown tag is a programming error.
func (t TrialType) Metadata() Metadata {
	switch t {
	case Hypertension:
		return Metadata{
			Name:        "Hypertension Trial",
			Description: "Clinical trial for hypertension treatment and blood pressure management",
			Icon:        "heartbeat",
			Color:       "red",
		}
	case Arthritis:
		return Metadata{
			Name:        "Arthritis Trial",
			Description: "Rheumatoid arthritis treatment study with new therapeutic approaches",
			Icon:        "bone",
			Color:       "orange",
		}
	case Migraine:
		return Metadata{
			Name:        "Migraine Trial",
			Description: "Migraine prevention medication trial for chronic sufferers",
			Icon:        "brain",
			Color:       "purple",
		}
	case Phase1:
		return Metadata{
			Name:        "Phase 1 Trial",
			Description: "Phase 1 safety and dosage study for new investigational drugs",
			Icon:        "vial",
			Color:       "blue",
		}
	default:
		panic(fmt.Sprintf("catalog: no metadata for trial type %q", string(t)))
	}
}
