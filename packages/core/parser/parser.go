package parser

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ParseFile reads and parses the request file at path.
func ParseFile(path string) ([]*Node, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigReadError{Path: path, Err: err}
	}
	return Parse(data, path)
}

// Parse decodes a request tree. The document is checked against the request
// file schema before it is decoded, so type errors are reported with their
// location in the tree rather than as decoder failures.
func Parse(data []byte, path string) ([]*Node, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &ConfigSyntaxError{File: path, Err: err}
	}

	if doc.Kind == 0 || len(doc.Content) == 0 {
		return nil, nil
	}

	if problems, err := ValidateSchema(&doc); err != nil {
		return nil, &ConfigSyntaxError{File: path, Err: err}
	} else if len(problems) > 0 {
		return nil, &ConfigSyntaxError{File: path, Problems: problems}
	}

	var nodes []*Node
	if err := doc.Decode(&nodes); err != nil {
		return nil, &ConfigSyntaxError{File: path, Err: err}
	}

	for _, n := range nodes {
		normalizeNode(n)
	}

	return nodes, nil
}

func normalizeNode(n *Node) {
	if n == nil {
		return
	}
	n.Body = normalizeValue(n.Body)
	for _, child := range n.Requests {
		normalizeNode(child)
	}
}

// normalizeValue converts decoded YAML into values encoding/json can marshal.
func normalizeValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = normalizeValue(item)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[fmt.Sprint(k)] = normalizeValue(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = normalizeValue(item)
		}
		return out
	default:
		return v
	}
}
