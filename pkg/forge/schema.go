package forge

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// editSchema describes a ToManagerEdits document. Graph keys use the
// "service.function" form; targets may use either form.
const editSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["name", "version", "workflow"],
  "properties": {
    "name": {"type": "string", "minLength": 1},
    "version": {"type": "string", "minLength": 1},
    "schema": {"type": "string"},
    "workflow": {
      "type": "object",
      "propertyNames": {"pattern": "^.+\\..+$"},
      "additionalProperties": {
        "type": "array",
        "items": {"$ref": "#/definitions/process"}
      }
    }
  },
  "definitions": {
    "process": {
      "oneOf": [
        {"type": "string", "pattern": "^.+\\..+$"},
        {
          "type": "object",
          "required": ["service", "function"],
          "properties": {
            "service": {"type": "string", "minLength": 1},
            "function": {"type": "string", "pattern": "^[^.]+$"}
          }
        }
      ]
    }
  }
}`

var editSchemaLoader = gojsonschema.NewStringLoader(editSchema)

// validateSchema checks a raw edit document against the edit JSON schema.
func validateSchema(payload []byte) error {
	result, err := gojsonschema.Validate(editSchemaLoader, gojsonschema.NewBytesLoader(payload))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidEdit, err)
	}

	if !result.Valid() {
		var errors []string
		for _, desc := range result.Errors() {
			errors = append(errors, desc.String())
		}

		return fmt.Errorf("%w: %s", ErrInvalidEdit, strings.Join(errors, "; "))
	}

	return nil
}
