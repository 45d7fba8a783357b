package single

import (
	"fmt"
	"strconv"
	"strings"

	"trialscreen/internal/models"
)

// coerceDraft converts the validated string draft into the typed record the
// evaluation service expects.
func coerceDraft(fields []models.FieldSpec, draft map[string]string) map[string]interface{} {
	out := make(map[string]interface{}, len(fields))
	for _, f := range fields {
		raw := draft[f.Name]
		switch f.Type {
		case models.FieldNumber:
			// Required number fields were already range-checked; an
			// unparseable leftover falls back to 0 rather than failing the
			// whole submission.
			num, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
			if err != nil {
				num = 0
			}
			out[f.Name] = num
		case models.FieldSelect:
			out[f.Name] = resolveOption(f.Options, raw)
		default:
			out[f.Name] = raw
		}
	}
	return out
}

// resolveOption maps the raw input to the matching option's value, trying
// value equality first, then label equality, then falling back to the raw
// string. Drafts hold strings, so value comparison is on the string form.
func resolveOption(opts []models.Option, raw string) interface{} {
	for _, o := range opts {
		if optionValueString(o.Value) == raw {
			return o.Value
		}
	}
	for _, o := range opts {
		if o.Label == raw {
			return o.Value
		}
	}
	return raw
}

func optionValueString(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", val)
	}
}
