// Package graph implements the definition graphs that govern business state
// transitions: named nodes carrying opaque payloads, directed edges between
// them, and derived root sets. Graphs may contain self-loops and cycles; only
// single-edge membership is ever consulted, never global reachability.
package graph

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// NoSuchNode is the error code carried by EdgeResult when an edge operation
// references a node that was never added.
const NoSuchNode = "NO_SUCH_NODE"

// DefaultVersion is the definition version used when none is declared.
const DefaultVersion = "1"

// EdgeResult reports the outcome of an edge operation. When OK is false, Code
// identifies the failure and Details carries the offending node name.
type EdgeResult struct {
	OK      bool
	Code    string
	Details string
}

// Tag builds the canonical definition identity "{name}.v{version}".
func Tag(name, version string) string {
	return name + ".v" + version
}

// FormatName normalizes a definition name by replacing spaces with dots and
// trimming surrounding whitespace.
func FormatName(name string) string {
	return strings.TrimSpace(strings.ReplaceAll(name, " ", "."))
}

// Name returns the normalized definition name, or a generated opaque
// "auto-<hex>" name when the input is empty.
func Name(name string) string {
	if formatted := FormatName(name); formatted != "" {
		return formatted
	}
	return "auto-" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// Definition is a graph of nodes and the edges connecting them, identified by
// a (name, version) tag. Once parsed and registered it is treated as immutable
// and is safe for unsynchronized concurrent reads.
type Definition struct {
	Name    string
	Version string
	Tag     string

	nodes   map[string]*Node
	nonRoot map[string]struct{}
	roots   []string // recomputed lazily, reset on every mutation
}

// New creates an empty definition. An empty name is replaced with a generated
// one and an empty version defaults to DefaultVersion.
func New(name, version string) *Definition {
	name = Name(name)
	if version == "" {
		version = DefaultVersion
	}
	return &Definition{
		Name:    name,
		Version: version,
		Tag:     Tag(name, version),
		nodes:   make(map[string]*Node),
		nonRoot: make(map[string]struct{}),
	}
}

// AddNode inserts a node under the given name. Re-adding an existing name
// replaces the node, discarding any outgoing edges recorded on it so far.
func (d *Definition) AddNode(name, data string) {
	d.nodes[name] = NewNode(name, data)
	d.roots = nil
}

// AddEdge records a directed edge between two existing nodes. Both endpoints
// are validated before anything is mutated; a failed call leaves the graph
// unchanged.
func (d *Definition) AddEdge(from, to string) EdgeResult {
	if res := d.validate(from, to); !res.OK {
		return res
	}
	d.nodes[from].AddEdge(to)
	d.nonRoot[to] = struct{}{}
	d.roots = nil
	return EdgeResult{OK: true}
}

// HasEdge reports whether a direct edge from one node to another exists. The
// same endpoint validation as AddEdge applies before the membership test.
func (d *Definition) HasEdge(from, to string) EdgeResult {
	if res := d.validate(from, to); !res.OK {
		return res
	}
	return EdgeResult{OK: d.nodes[from].HasEdge(to)}
}

func (d *Definition) validate(from, to string) EdgeResult {
	for _, name := range []string{from, to} {
		if _, ok := d.nodes[name]; !ok {
			return EdgeResult{Code: NoSuchNode, Details: name}
		}
	}
	return EdgeResult{OK: true}
}

// Has reports whether a node of the given name exists.
func (d *Definition) Has(name string) bool {
	_, ok := d.nodes[name]
	return ok
}

// Node returns the named node, or nil when absent.
func (d *Definition) Node(name string) *Node {
	return d.nodes[name]
}

// Names returns every node name sorted ascending.
func (d *Definition) Names() []string {
	out := make([]string, 0, len(d.nodes))
	for name := range d.nodes {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of nodes.
func (d *Definition) Len() int {
	return len(d.nodes)
}

// Roots returns the names of all nodes that are never an edge target, sorted
// ascending. A node with no edges at all is still a root. The result is
// cached and the cache is dropped on every graph mutation.
func (d *Definition) Roots() []string {
	if d.roots == nil {
		roots := make([]string, 0, len(d.nodes))
		for name := range d.nodes {
			if _, ok := d.nonRoot[name]; !ok {
				roots = append(roots, name)
			}
		}
		sort.Strings(roots)
		d.roots = roots
	}
	return d.roots
}

// String renders the definition deterministically: roots first, prefixed with
// "~", followed by the remaining nodes, then one aligned line per node naming
// its edge targets. Useful for equality-based tests and debugging, not a wire
// format.
func (d *Definition) String() string {
	rootSet := make(map[string]struct{})
	for _, root := range d.Roots() {
		rootSet[root] = struct{}{}
	}

	ordered := make([]string, 0, len(d.nodes))
	for _, root := range d.Roots() {
		ordered = append(ordered, "~"+root)
	}
	for _, name := range d.Names() {
		if _, ok := rootSet[name]; !ok {
			ordered = append(ordered, name)
		}
	}

	maxName := 0
	for _, name := range ordered {
		if len(name) > maxName {
			maxName = len(name)
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Definition %s v%s: %s", d.Name, d.Version, strings.Join(ordered, ", "))
	for _, name := range ordered {
		targets := "(None)"
		if edges := d.nodes[strings.TrimPrefix(name, "~")].Edges(); len(edges) > 0 {
			targets = strings.Join(edges, ", ")
		}
		fmt.Fprintf(&b, "\n * %-*s -> %s", maxName, name, targets)
	}
	return b.String()
}
