package theology

import (
	"errors"
	"sort"
)

// ErrCyclicOutline indicates that parent pointers form a cycle, which the
// outline data must never contain.
var ErrCyclicOutline = errors.New("theology: outline parent pointers form a cycle")

// Node is an outline entry with its children attached.
type Node struct {
	Entry
	Children []*Node
}

// BuildTree assembles the outline forest from flat parent-pointer rows.
// Entries whose parent is null or unknown become roots. Siblings sort by
// sort order, then entry id for a stable tie-break. Rows unreachable from
// any root indicate a parent cycle and are reported as a data-integrity
// error instead of being dropped.
func BuildTree(entries []Entry) ([]*Node, error) {
	index := make(map[string]*Node, len(entries))
	for i := range entries {
		entry := entries[i]
		entry.Children = nil
		index[entry.EntryID] = &Node{Entry: entry}
	}

	roots := make([]*Node, 0)
	for _, node := range index {
		if node.ParentID == nil {
			roots = append(roots, node)
			continue
		}
		parent, ok := index[*node.ParentID]
		if !ok {
			roots = append(roots, node)
			continue
		}
		parent.Children = append(parent.Children, node)
	}

	reached := 0
	stack := make([]*Node, len(roots))
	copy(stack, roots)
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		reached++
		stack = append(stack, node.Children...)
	}
	if reached != len(index) {
		return nil, ErrCyclicOutline
	}

	sortForest(roots)
	return roots, nil
}

func sortForest(nodes []*Node) {
	sort.Slice(nodes, func(i, j int) bool {
		if nodes[i].SortOrder != nodes[j].SortOrder {
			return nodes[i].SortOrder < nodes[j].SortOrder
		}
		return nodes[i].EntryID < nodes[j].EntryID
	})
	for _, node := range nodes {
		sortForest(node.Children)
	}
}
