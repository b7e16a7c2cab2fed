package resolver

import (
	"fmt"

	"github.com/nixpig/corkscrew/packages/core/parser"
)

// MalformedNodeError is returned when a node has neither a name nor child
// requests. Path locates the node in the tree, e.g. "[0].requests[2]".
type MalformedNodeError struct {
	Path string
}

func (e *MalformedNodeError) Error() string {
	return fmt.Sprintf("request at %s must have a name or nested requests", e.Path)
}

// root is the synthetic parent of top-level nodes; every attribute is unset.
const root = 0

// Resolve flattens the tree into records. With an empty selection every
// runnable record is returned; otherwise only records whose name is
// selected. Output order is the pre-order traversal order.
func Resolve(nodes []*parser.Node, selected []string) ([]*Record, error) {
	arena := []*Record{{}}
	if err := flatten(nodes, root, "", &arena); err != nil {
		return nil, err
	}

	selection := make(map[string]struct{}, len(selected))
	for _, name := range selected {
		selection[name] = struct{}{}
	}

	var records []*Record
	for _, rec := range arena[1:] {
		if !rec.Runnable() {
			continue
		}
		if len(selection) > 0 {
			if _, ok := selection[*rec.Name]; !ok {
				continue
			}
		}
		records = append(records, rec)
	}

	return records, nil
}

// flatten appends one record per node to arena. parent is the arena slot
// holding the merged record of the enclosing node.
func flatten(nodes []*parser.Node, parent int, path string, arena *[]*Record) error {
	for i, n := range nodes {
		nodePath := fmt.Sprintf("%s[%d]", path, i)
		if n == nil || (n.Name == nil && !n.HasChildren()) {
			return &MalformedNodeError{Path: nodePath}
		}

		*arena = append(*arena, merge(n, (*arena)[parent]))
		slot := len(*arena) - 1

		if n.HasChildren() {
			if err := flatten(n.Requests, slot, nodePath+".requests", arena); err != nil {
				return err
			}
		}
	}
	return nil
}
