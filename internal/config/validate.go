package config

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/conveyor-engine/conveyor/pkg/schema"
)

// pipelineSchemaJSON is the JSON Schema for pipeline definition documents.
// Embedded as a constant to avoid filesystem dependencies.
const pipelineSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "$id": "https://conveyor.dev/schemas/pipelines.json",
  "type": "object",
  "required": ["pipelines"],
  "properties": {
    "vars": {
      "type": "object"
    },
    "use": {
      "type": "string",
      "minLength": 1
    },
    "pipelines": {
      "type": "object",
      "minProperties": 1,
      "additionalProperties": {
        "type": "array",
        "items": { "$ref": "#/$defs/step" }
      }
    }
  },
  "additionalProperties": false,
  "$defs": {
    "step": {
      "type": "object",
      "required": ["task"],
      "properties": {
        "task": {
          "type": "string",
          "minLength": 1
        },
        "mode": {
          "type": "string",
          "enum": ["raw", "update"]
        },
        "kwargs": {
          "type": "object"
        },
        "result_key": {
          "type": "string",
          "minLength": 1
        },
        "when": { "$ref": "#/$defs/guard" }
      },
      "additionalProperties": false
    },
    "guard": {
      "type": "object",
      "minProperties": 1,
      "properties": {
        "file_exists": {
          "type": "string",
          "minLength": 1
        },
        "expr": {
          "type": "string",
          "minLength": 1
        }
      },
      "additionalProperties": false
    }
  }
}`

var (
	compileOnce    sync.Once
	pipelineSchema *jsonschema.Schema
	compileErr     error
)

func compiledSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		c := jsonschema.NewCompiler()
		c.AssertFormat()

		doc, err := jsonschema.UnmarshalJSON(strings.NewReader(pipelineSchemaJSON))
		if err != nil {
			compileErr = fmt.Errorf("unmarshal pipeline schema: %w", err)
			return
		}
		if err := c.AddResource("https://conveyor.dev/schemas/pipelines.json", doc); err != nil {
			compileErr = fmt.Errorf("add pipeline schema resource: %w", err)
			return
		}
		pipelineSchema, compileErr = c.Compile("https://conveyor.dev/schemas/pipelines.json")
	})
	return pipelineSchema, compileErr
}

// ValidateDocument checks a decoded YAML document against the pipeline
// definition schema.
func ValidateDocument(doc any) error {
	compiled, err := compiledSchema()
	if err != nil {
		return schema.NewError(schema.ErrCodeValidation, "pipeline schema is broken").WithCause(err)
	}

	jsonDoc, err := toJSONValue(doc)
	if err != nil {
		return schema.NewError(schema.ErrCodeValidation, "cannot serialize config for validation").WithCause(err)
	}

	if err := compiled.Validate(jsonDoc); err != nil {
		return toConfigError(err)
	}
	return nil
}

// toJSONValue round-trips a value through JSON encoding so numbers become
// json.Number, which the jsonschema library requires.
func toJSONValue(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return jsonschema.UnmarshalJSON(strings.NewReader(string(b)))
}

func toConfigError(err error) *schema.PipelineError {
	verr, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return schema.NewError(schema.ErrCodeValidation, err.Error())
	}

	violations := collectViolations(verr)
	if len(violations) == 0 {
		return schema.NewError(schema.ErrCodeValidation, verr.Error())
	}
	if len(violations) == 1 {
		return schema.NewError(schema.ErrCodeValidation, violations[0]).
			WithDetails(map[string]any{"violations": violations})
	}
	return schema.NewErrorf(schema.ErrCodeValidation,
		"config validation failed with %d errors", len(violations)).
		WithDetails(map[string]any{"violations": violations})
}

// collectViolations walks a ValidationError tree and collects leaf messages
// with their instance locations.
func collectViolations(verr *jsonschema.ValidationError) []string {
	if len(verr.Causes) == 0 {
		loc := "/"
		if len(verr.InstanceLocation) > 0 {
			loc = "/" + strings.Join(verr.InstanceLocation, "/")
		}
		return []string{fmt.Sprintf("%s: %s", loc, verr.Error())}
	}

	var violations []string
	for _, cause := range verr.Causes {
		violations = append(violations, collectViolations(cause)...)
	}
	return violations
}
