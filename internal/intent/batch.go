package intent

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
)

// Batch is the on-disk shape of an edit request: a document reference plus
// the ordered intents to apply against it.
type Batch struct {
	Document string       `json:"document"`
	Intents  []EditIntent `json:"intents"`
}

const batchSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["document", "intents"],
  "properties": {
    "document": {"type": "string", "minLength": 1},
    "intents": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["type", "target", "content"],
        "properties": {
          "type": {
            "enum": [
              "replace-with-title",
              "replace-content-only",
              "insert-with-title",
              "insert-content-only"
            ]
          },
          "target": {
            "type": "object",
            "required": ["sid"],
            "properties": {
              "sid": {"type": "string", "minLength": 1},
              "line_range": {
                "type": "object",
                "required": ["start_line"],
                "properties": {
                  "start_line": {"type": "integer", "minimum": 1},
                  "end_line": {"type": "integer", "minimum": 1}
                }
              },
              "insertion_position": {"enum": ["before", "after"]}
            }
          },
          "content": {"type": "string"},
          "reason": {"type": "string"},
          "priority": {"type": "integer"},
          "validate_only": {"type": "boolean"}
        }
      }
    }
  }
}`

var (
	batchSchemaOnce sync.Once
	batchSchema     *jsonschema.Schema
	batchSchemaErr  error
)

func compiledBatchSchema() (*jsonschema.Schema, error) {
	batchSchemaOnce.Do(func() {
		batchSchema, batchSchemaErr = jsonschema.CompileString("batch.schema.json", batchSchemaJSON)
	})
	return batchSchema, batchSchemaErr
}

// LoadBatch reads and schema-validates an edit batch file. Schema validation
// runs before decoding so malformed agent output fails with a structural
// message instead of a zero-valued intent.
func LoadBatch(path string) (*Batch, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseBatch(raw)
}

// ParseBatch validates and decodes raw batch JSON.
func ParseBatch(raw []byte) (*Batch, error) {
	schema, err := compiledBatchSchema()
	if err != nil {
		return nil, fmt.Errorf("failed to compile batch schema: %w", err)
	}

	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("batch is not valid JSON: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return nil, fmt.Errorf("batch schema validation failed: %w", err)
	}

	var b Batch
	if err := json.Unmarshal(raw, &b); err != nil {
		return nil, err
	}
	return &b, nil
}
