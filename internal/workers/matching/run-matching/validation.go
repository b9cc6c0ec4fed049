// internal/workers/matching/run-matching/validation.go
package runmatching

import (
	"strings"

	"github.com/xeipuuv/gojsonschema"

	apperrors "bestchoice-workers/internal/common/errors"
)

const inputSchema = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"required": ["algorithm"],
	"properties": {
		"algorithm": {
			"type": "string",
			"enum": ["WEIGHTED", "STABLE", "HYBRID"]
		},
		"scope": {
			"type": "string",
			"enum": ["ALL", "ONE"]
		},
		"studentId": {
			"type": "integer",
			"minimum": 1
		},
		"recompute": {"type": "boolean"},
		"persist": {"type": "boolean"},
		"threshold": {
			"type": "number",
			"minimum": 0,
			"maximum": 1
		},
		"weights": {
			"type": "object",
			"properties": {
				"skills": {"type": "number", "minimum": 0},
				"interests": {"type": "number", "minimum": 0},
				"workMode": {"type": "number", "minimum": 0}
			},
			"additionalProperties": false
		}
	}
}`

var compiledInputSchema = gojsonschema.NewStringLoader(inputSchema)

// validateInput checks the raw process variables against the input schema
// before they are bound to the typed Input.
func validateInput(variables string) error {
	result, err := gojsonschema.Validate(compiledInputSchema, gojsonschema.NewStringLoader(variables))
	if err != nil {
		return apperrors.NewInvalidArgument("input is not valid JSON: %v", err)
	}
	if result.Valid() {
		return nil
	}

	messages := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		messages = append(messages, desc.String())
	}
	return apperrors.NewInvalidArgument("invalid run request: %s", strings.Join(messages, "; "))
}
