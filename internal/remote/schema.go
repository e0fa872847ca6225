package remote

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// Schema is a named JSON Schema definition for a response body.
type Schema struct {
	Name       string
	Definition map[string]any
}

var itemDefinition = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"id":                      map[string]any{"type": "string", "minLength": 1},
		"quizId":                  map[string]any{"type": "string"},
		"quizRootId":              map[string]any{"type": "string"},
		"quizVersion":             map[string]any{"type": "integer", "minimum": 0},
		"startDate":               map[string]any{"type": "string"},
		"endDate":                 map[string]any{"type": "string"},
		"attemptsAllowed":         map[string]any{"type": "integer", "minimum": 1},
		"showAnswersAfterAttempt": map[string]any{"type": "boolean"},
		"contribution":            map[string]any{"type": []any{"number", "null"}},
		"name":                    map[string]any{"type": "string"},
		"subject":                 map[string]any{"type": "string"},
		"color":                   map[string]any{"type": "string"},
	},
	"required": []any{"id", "quizId", "startDate", "endDate"},
}

// envelopeSchema is the outer shape shared by every response.
var envelopeSchema = &Schema{
	Name: "envelope",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"ok":      map[string]any{"type": "boolean"},
			"message": map[string]any{"type": "string"},
			"fieldErrors": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"field": map[string]any{"type": "string"},
						"error": map[string]any{"type": "string"},
					},
					"required": []any{"field", "error"},
				},
			},
		},
		"required": []any{"ok"},
	},
}

var itemSchema = &Schema{Name: "item", Definition: itemDefinition}

var itemListSchema = &Schema{
	Name: "item-list",
	Definition: map[string]any{
		"type":  "array",
		"items": itemDefinition,
	},
}

// schemaCache caches compiled JSON schemas by name.
var schemaCache sync.Map // map[string]*jsonschema.Schema

// validateBody validates raw JSON against the given Schema.
// Returns nil if no schema is provided or validation passes.
// Returns *ErrInvalidResponse on failure.
func validateBody(schema *Schema, raw json.RawMessage) error {
	if schema == nil {
		return nil
	}

	var parsed any
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return &ErrInvalidResponse{
			Body: raw,
			Err:  fmt.Errorf("invalid JSON: %w", err),
		}
	}

	compiled, err := getCompiledSchema(schema)
	if err != nil {
		return &ErrInvalidResponse{
			Body: raw,
			Err:  fmt.Errorf("compile schema %q: %w", schema.Name, err),
		}
	}

	if err := compiled.Validate(parsed); err != nil {
		return &ErrInvalidResponse{
			Body: raw,
			Err:  fmt.Errorf("schema validation failed: %w", err),
		}
	}

	return nil
}

// getCompiledSchema returns a cached compiled schema or compiles and caches it.
func getCompiledSchema(schema *Schema) (*jsonschema.Schema, error) {
	if cached, ok := schemaCache.Load(schema.Name); ok {
		return cached.(*jsonschema.Schema), nil
	}

	// The jsonschema library expects a parsed JSON value (any), not raw bytes.
	defBytes, err := json.Marshal(schema.Definition)
	if err != nil {
		return nil, fmt.Errorf("marshal schema definition: %w", err)
	}
	var defParsed any
	if err := json.Unmarshal(defBytes, &defParsed); err != nil {
		return nil, fmt.Errorf("parse schema definition: %w", err)
	}

	c := jsonschema.NewCompiler()
	schemaURL := fmt.Sprintf("schema://%s.json", schema.Name)
	if err := c.AddResource(schemaURL, defParsed); err != nil {
		return nil, fmt.Errorf("add resource: %w", err)
	}

	compiled, err := c.Compile(schemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile: %w", err)
	}

	schemaCache.Store(schema.Name, compiled)
	return compiled, nil
}
