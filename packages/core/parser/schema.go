package parser

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

const requestFileSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "definitions": {
    "text": {"type": ["string", "number", "integer", "boolean", "null"]},
    "scalarMap": {
      "type": ["object", "null"],
      "additionalProperties": {"type": ["string", "number", "integer", "boolean"]}
    },
    "basic": {
      "type": "object",
      "required": ["username", "password"],
      "properties": {
        "username": {"type": ["string", "number", "integer", "boolean"]},
        "password": {"type": ["string", "number", "integer", "boolean"]}
      }
    },
    "bearer": {
      "type": "object",
      "required": ["token"],
      "properties": {
        "token": {"type": ["string", "number", "integer", "boolean"]}
      }
    },
    "auth": {
      "oneOf": [
        {"type": "null"},
        {
          "type": "object",
          "required": ["basic"],
          "additionalProperties": false,
          "properties": {"basic": {"$ref": "#/definitions/basic"}}
        },
        {
          "type": "object",
          "required": ["bearer"],
          "additionalProperties": false,
          "properties": {"bearer": {"$ref": "#/definitions/bearer"}}
        }
      ]
    },
    "node": {
      "type": "object",
      "properties": {
        "name": {"$ref": "#/definitions/text"},
        "host": {"$ref": "#/definitions/text"},
        "scheme": {"$ref": "#/definitions/text"},
        "port": {"type": ["integer", "null"], "minimum": 0, "maximum": 65535},
        "timeout": {"type": ["integer", "null"], "minimum": 0, "maximum": 9223372036},
        "resource": {"$ref": "#/definitions/text"},
        "method": {"$ref": "#/definitions/text"},
        "hash": {"$ref": "#/definitions/text"},
        "params": {"$ref": "#/definitions/scalarMap"},
        "headers": {"$ref": "#/definitions/scalarMap"},
        "auth": {"$ref": "#/definitions/auth"},
        "content": {"$ref": "#/definitions/text"},
        "body": {},
        "form": {"$ref": "#/definitions/scalarMap"},
        "requests": {
          "type": ["array", "null"],
          "items": {"$ref": "#/definitions/node"}
        }
      }
    }
  },
  "type": ["array", "null"],
  "items": {"$ref": "#/definitions/node"}
}`

var schemaLoader = gojsonschema.NewStringLoader(requestFileSchema)

// ValidateSchema checks a decoded YAML document against the request file
// schema. It returns one human readable problem per violation; the error is
// only set when the document could not be checked at all.
func ValidateSchema(doc *yaml.Node) ([]string, error) {
	value, err := toJSONValue(doc)
	if err != nil {
		return nil, err
	}

	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewGoLoader(value))
	if err != nil {
		return nil, fmt.Errorf("schema validation: %w", err)
	}

	if result.Valid() {
		return nil, nil
	}

	problems := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		// oneOf reports its own summary next to the branch errors.
		if e.Type() == "number_one_of" {
			continue
		}
		problems = append(problems, fmt.Sprintf("%s: %s", e.Field(), e.Description()))
	}
	if len(problems) == 0 {
		for _, e := range result.Errors() {
			problems = append(problems, fmt.Sprintf("%s: %s", e.Field(), e.Description()))
		}
	}
	return problems, nil
}

// toJSONValue turns a YAML node into plain Go values. Tagged auth variants
// (!basic, !bearer) are rewritten to their mapping form so both spellings
// validate against the same schema.
func toJSONValue(n *yaml.Node) (any, error) {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return nil, nil
		}
		return toJSONValue(n.Content[0])
	case yaml.AliasNode:
		return toJSONValue(n.Alias)
	case yaml.SequenceNode:
		out := make([]any, 0, len(n.Content))
		for _, item := range n.Content {
			v, err := toJSONValue(item)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	case yaml.MappingNode:
		out := make(map[string]any, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			v, err := toJSONValue(n.Content[i+1])
			if err != nil {
				return nil, err
			}
			out[n.Content[i].Value] = v
		}
		if tag := strings.TrimPrefix(n.Tag, "!"); tag == string(AuthBasic) || tag == string(AuthBearer) {
			return map[string]any{tag: out}, nil
		}
		return out, nil
	case yaml.ScalarNode:
		if isCustomTag(n.Tag) {
			return n.Value, nil
		}
		var v any
		if err := n.Decode(&v); err != nil {
			return nil, err
		}
		return normalizeValue(v), nil
	default:
		return nil, fmt.Errorf("line %d: unsupported YAML node", n.Line)
	}
}

func isCustomTag(tag string) bool {
	return strings.HasPrefix(tag, "!") && !strings.HasPrefix(tag, "!!")
}
