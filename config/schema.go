package config

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// configSchema gates the structure of every recognized section before the
// option parse runs. Non-reserved top-level keys are patterns and must be
// metric option blocks.
const configSchema = `{
  "type": "object",
  "properties": {
    "statistics": {"$ref": "#/$defs/values"},
    "defaults": {"$ref": "#/$defs/values"},
    "metrics": {
      "type": "object",
      "properties": {
        "gauge": {"$ref": "#/$defs/metric"},
        "counter": {"$ref": "#/$defs/metric"},
        "timer": {"$ref": "#/$defs/metric"}
      }
    },
    "gauge": {"$ref": "#/$defs/metric"},
    "counter": {"$ref": "#/$defs/metric"},
    "timer": {"$ref": "#/$defs/metric"},
    "metrics-dump": {
      "type": "object",
      "properties": {
        "interval": {"type": "integer", "minimum": 0}
      }
    },
    "dump-interval": {"type": "integer", "minimum": 0},
    "core": {
      "type": "object",
      "properties": {
        "enable": {"type": "boolean"},
        "queue-limit": {"type": "integer", "minimum": 0}
      }
    },
    "enable": {"type": "boolean"}
  },
  "additionalProperties": {"$ref": "#/$defs/metric"},
  "$defs": {
    "values": {
      "type": "object",
      "properties": {
        "tags": {"type": "array", "items": {"type": "string"}},
        "moving-interval-ms": {"type": "integer", "minimum": 0},
        "moving-interval": {"type": "integer", "minimum": 0},
        "histogram-bins": {"type": "integer", "minimum": 1},
        "quantile-probs": {
          "type": "array",
          "items": {"type": "number", "exclusiveMinimum": 0, "exclusiveMaximum": 1}
        }
      }
    },
    "metric": {
      "type": "object",
      "properties": {
        "values": {"$ref": "#/$defs/values"},
        "idle-timeout-ms": {"type": "integer", "minimum": 0},
        "idle-timeout": {"type": "integer", "minimum": 0}
      }
    }
  }
}`

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaErr      error
)

func schema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("config-schema.json", strings.NewReader(configSchema)); err != nil {
			schemaErr = err
			return
		}
		compiledSchema, schemaErr = compiler.Compile("config-schema.json")
	})
	return compiledSchema, schemaErr
}

// validateSchema checks data against the config schema.
func validateSchema(data []byte) error {
	s, err := schema()
	if err != nil {
		return fmt.Errorf("config: schema: %w", err)
	}

	var doc interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("config: invalid JSON: %w", err)
	}
	if err := s.Validate(doc); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}
