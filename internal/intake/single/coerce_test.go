package single

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"trialscreen/internal/models"
)

func TestCoerceDraft(t *testing.T) {
	fields := []models.FieldSpec{
		{Name: "age", Type: models.FieldNumber},
		{Name: "bmi", Type: models.FieldNumber},
		{Name: "notes", Type: models.FieldText},
		{Name: "gender", Type: models.FieldSelect, Options: []models.Option{
			{Value: "Male", Label: "Male"}, {Value: "Female", Label: "Female"},
		}},
		{Name: "on_biologic_dmards", Type: models.FieldSelect, Options: []models.Option{
			{Value: float64(0), Label: "No"}, {Value: float64(1), Label: "Yes"},
		}},
	}
	draft := map[string]string{
		"age":                "45",
		"bmi":                "not-a-number",
		"notes":              "prior participant",
		"gender":             "Female",
		"on_biologic_dmards": "Yes",
	}

	got := coerceDraft(fields, draft)

	assert.Equal(t, float64(45), got["age"])
	assert.Equal(t, float64(0), got["bmi"], "unparseable numbers fall back to 0")
	assert.Equal(t, "prior participant", got["notes"])
	assert.Equal(t, "Female", got["gender"])
	assert.Equal(t, float64(1), got["on_biologic_dmards"], "label matched to the numeric option value")
}

func TestResolveOption(t *testing.T) {
	numeric := []models.Option{
		{Value: float64(0), Label: "No"},
		{Value: float64(1), Label: "Yes"},
	}
	strings := []models.Option{
		{Value: "Male", Label: "Male"},
		{Value: "Female", Label: "Female"},
	}

	tests := []struct {
		name string
		opts []models.Option
		raw  string
		want interface{}
	}{
		{name: "value match on stringified number", opts: numeric, raw: "1", want: float64(1)},
		{name: "label match resolves to value", opts: numeric, raw: "Yes", want: float64(1)},
		{name: "zero value match", opts: numeric, raw: "0", want: float64(0)},
		{name: "string value match", opts: strings, raw: "Female", want: "Female"},
		{name: "no match falls back to raw", opts: strings, raw: "Other", want: "Other"},
		{name: "empty input falls back to raw", opts: numeric, raw: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, resolveOption(tt.opts, tt.raw))
		})
	}
}
