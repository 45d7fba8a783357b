package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		input   string
		want    TrialType
		wantErr bool
	}{
		{input: "hypertension", want: Hypertension},
		{input: "arthritis", want: Arthritis},
		{input: "migraine", want: Migraine},
		{input: "phase1", want: Phase1},
		{input: "oncology", wantErr: true},
		{input: "", wantErr: true},
		{input: "Hypertension", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := Parse(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAll_OrderStable(t *testing.T) {
	assert.Equal(t, []TrialType{Hypertension, Arthritis, Migraine, Phase1}, All())
}

func TestMetadata_CompleteForAllTrialTypes(t *testing.T) {
	for _, trial := range All() {
		md := trial.Metadata()
		assert.NotEmpty(t, md.Name, "trial %s", trial)
		assert.NotEmpty(t, md.Description, "trial %s", trial)
		assert.NotEmpty(t, md.Icon, "trial %s", trial)
		assert.NotEmpty(t, md.Color, "trial %s", trial)
	}
}

func TestMetadata_UnknownTagPanics(t *testing.T) {
	assert.Panics(t, func() {
		TrialType("oncology").Metadata()
	})
}
