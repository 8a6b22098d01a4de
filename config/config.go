// Package config parses declarative transition definitions. A definition is a
// small INI block: one bracketed header naming the definition, reserved keys
// for its version, governed object types and force-stop states, and one
// "from_state = to_state[, to_state...]" line per edge declaration.
package config

import (
	"fmt"
	"strings"

	"gopkg.in/ini.v1"

	"github.com/zatosource/bst/graph"
)

// Reserved keys of a definition block. Every other key declares edges.
const (
	keyVersion   = "version"
	keyObjects   = "objects"
	keyForceStop = "force_stop"
)

// ParseError reports structurally invalid definition text.
type ParseError struct {
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse error: %s: %v", e.Reason, e.Err)
	}
	return "parse error: " + e.Reason
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// KV is one declaration of a definition block. Values holds the comma-split
// list form; a scalar value is a one-element list.
type KV struct {
	Key    string
	Values []string
}

// Item is one parsed transition definition: the graph it declares, the object
// types it governs and its force-stop states. Items are populated once by the
// parser and treated as immutable afterwards.
type Item struct {
	Def       *graph.Definition
	Objects   []string
	ForceStop []string

	source []KV // the full parsed block, reserved keys included, in declaration order
	edges  []KV // edge declarations only
}

// ParseText parses a declarative INI block into a fully populated Item.
func ParseText(text string) (*Item, error) {
	file, err := ini.Load([]byte(text))
	if err != nil {
		return nil, &ParseError{Reason: "invalid definition text", Err: err}
	}

	var section *ini.Section
	for _, sec := range file.Sections() {
		if sec.Name() == ini.DefaultSection {
			continue
		}
		if section != nil {
			return nil, &ParseError{Reason: "definition text must contain exactly one section"}
		}
		section = sec
	}
	if section == nil {
		return nil, &ParseError{Reason: "no definition header found"}
	}

	kvs := make([]KV, 0, len(section.Keys()))
	for _, key := range section.Keys() {
		kvs = append(kvs, KV{Key: key.Name(), Values: splitList(key.Value())})
	}

	return ParseSource(section.Name(), kvs)
}

// ParseSource builds an Item from an already-parsed source block: the
// definition name and its declarations in order. Forward references between
// edge declarations are resolved by adding every mentioned state as a node
// before any edge is created.
func ParseSource(name string, kvs []KV) (*Item, error) {
	item := &Item{source: kvs}

	version := graph.DefaultVersion
	for _, kv := range kvs {
		switch kv.Key {
		case keyVersion:
			if len(kv.Values) > 0 {
				version = kv.Values[0]
			}
		case keyObjects:
			item.Objects = append(item.Objects, kv.Values...)
		case keyForceStop:
			item.ForceStop = append(item.ForceStop, kv.Values...)
		default:
			item.edges = append(item.edges, kv)
		}
	}

	item.Def = graph.New(name, version)

	// First pass: every from-state and to-state becomes a node, so edges may
	// reference states declared further down the block.
	for _, kv := range item.edges {
		item.Def.AddNode(kv.Key, "")
		for _, to := range kv.Values {
			item.Def.AddNode(to, "")
		}
	}

	for _, kv := range item.edges {
		for _, to := range kv.Values {
			if res := item.Def.AddEdge(kv.Key, to); !res.OK {
				return nil, &ParseError{
					Reason: fmt.Sprintf("edge %q -> %q references unknown node %q", kv.Key, to, res.Details),
				}
			}
		}
	}

	return item, nil
}

// EdgeDecls returns the edge declarations in their original order, with the
// reserved keys already removed.
func (it *Item) EdgeDecls() []KV {
	return it.edges
}

// Source returns the full parsed block in declaration order, reserved keys
// included.
func (it *Item) Source() []KV {
	return it.source
}

// EncodeText renders the item back into its INI form.
func (it *Item) EncodeText() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s]\n", it.Def.Name)
	for _, kv := range it.source {
		fmt.Fprintf(&b, "%s=%s\n", kv.Key, strings.Join(kv.Values, ", "))
	}
	return b.String()
}

// sourceMap rebuilds the {name: {key: value}} shape of the original block.
// Single values stay scalar, multi-values stay lists.
func (it *Item) sourceMap() map[string]any {
	inner := make(map[string]any, len(it.source))
	for _, kv := range it.source {
		if len(kv.Values) == 1 {
			inner[kv.Key] = kv.Values[0]
		} else {
			inner[kv.Key] = kv.Values
		}
	}
	return map[string]any{it.Def.Name: inner}
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		out = append(out, strings.TrimSpace(part))
	}
	return out
}
