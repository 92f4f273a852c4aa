package web

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// documentSchema describes a workflow document as posted by the editor.
// Steps may also arrive as a JSON encoded string.
const documentSchema = `{
  "type": "object",
  "required": ["name", "owner"],
  "properties": {
    "id": {"type": ["string", "integer", "null"]},
    "name": {"type": "string", "minLength": 1},
    "owner": {"type": "string", "minLength": 1},
    "workflow": {
      "oneOf": [
        {"type": "string"},
        {"type": "null"},
        {
          "type": "array",
          "items": {
            "type": "object",
            "required": ["id"],
            "properties": {
              "id": {"type": ["string", "integer"]},
              "type": {"enum": ["trigger", "action"]},
              "service": {"type": "string"},
              "action": {"type": "string"}
            }
          }
        }
      ]
    },
    "edges": {
      "oneOf": [
        {"type": "string"},
        {"type": "null"},
        {
          "type": "array",
          "items": {
            "type": "object",
            "required": ["source", "target"],
            "properties": {
              "source": {"type": ["string", "integer"]},
              "target": {"type": ["string", "integer"]}
            }
          }
        }
      ]
    }
  }
}`

var documentSchemaLoader = gojsonschema.NewStringLoader(documentSchema)

// validateDocument checks a raw request body against documentSchema.
func validateDocument(body []byte) error {
	result, err := gojsonschema.Validate(documentSchemaLoader, gojsonschema.NewBytesLoader(body))
	if err != nil {
		return err
	}

	if !result.Valid() {
		var errors []string
		for _, desc := range result.Errors() {
			errors = append(errors, desc.String())
		}

		return fmt.Errorf("validation errors: %s", strings.Join(errors, "; "))
	}

	return nil
}
