package gateway

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// fieldSchemaDoc is the shape contract for GET /api/trial-fields responses.
// Options may be bare strings or {value,label} objects; both occur in
// production schemas.
const fieldSchemaDoc = `{
  "type": "array",
  "items": {
    "type": "object",
    "required": ["name", "label", "type", "required"],
    "properties": {
      "name":     {"type": "string", "minLength": 1},
      "label":    {"type": "string", "minLength": 1},
      "type":     {"enum": ["text", "number", "select"]},
      "required": {"type": "boolean"},
      "min":      {"type": "number"},
      "max":      {"type": "number"},
      "step":     {"type": "number"},
      "options": {
        "type": "array",
        "items": {
          "oneOf": [
            {"type": "string"},
            {
              "type": "object",
              "required": ["value", "label"],
              "properties": {
                "label": {"type": "string"}
              }
            }
          ]
        }
      }
    }
  }
}`

var fieldSchema = gojsonschema.NewStringLoader(fieldSchemaDoc)

// checkFieldSchemaPayload rejects malformed schema payloads before they are
// decoded, so a broken service response never becomes a half-applied schema.
func checkFieldSchemaPayload(body []byte) error {
	result, err := gojsonschema.Validate(fieldSchema, gojsonschema.NewBytesLoader(body))
	if err != nil {
		return fmt.Errorf("schema payload not valid JSON: %w", err)
	}
	if result.Valid() {
		return nil
	}

	msgs := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		msgs = append(msgs, desc.String())
	}
	return fmt.Errorf("schema payload malformed: %s", strings.Join(msgs, "; "))
}
