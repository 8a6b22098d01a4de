package graph

import "sort"

// Node is an individual vertex in a definition graph: a state name, the opaque
// payload the caller attached to it, and the set of states reachable from it.
type Node struct {
	Name string
	Data string

	edges map[string]struct{}
}

// NewNode creates a node with an empty edge set.
func NewNode(name, data string) *Node {
	return &Node{
		Name:  name,
		Data:  data,
		edges: make(map[string]struct{}),
	}
}

// AddEdge records a directed edge to the named node. Adding the same edge
// twice is a no-op.
func (n *Node) AddEdge(to string) {
	n.edges[to] = struct{}{}
}

// HasEdge reports whether a direct edge to the named node exists.
func (n *Node) HasEdge(to string) bool {
	_, ok := n.edges[to]
	return ok
}

// Edges returns the edge targets sorted ascending.
func (n *Node) Edges() []string {
	out := make([]string, 0, len(n.edges))
	for to := range n.edges {
		out = append(out, to)
	}
	sort.Strings(out)
	return out
}
