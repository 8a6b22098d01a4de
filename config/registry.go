package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Registry holds every parsed definition keyed by its tag. It is populated
// once at startup and read-only afterwards, so lookups need no locking.
type Registry struct {
	items map[string]*Item
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{items: make(map[string]*Item)}
}

// Register adds an item under its definition tag, replacing any previous
// registration of the same tag.
func (r *Registry) Register(item *Item) {
	r.items[item.Def.Tag] = item
}

// Get returns the item registered under the given definition tag.
func (r *Registry) Get(defTag string) (*Item, bool) {
	item, ok := r.items[defTag]
	return item, ok
}

// Tags returns every registered definition tag sorted ascending.
func (r *Registry) Tags() []string {
	out := make([]string, 0, len(r.items))
	for tag := range r.items {
		out = append(out, tag)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of registered definitions.
func (r *Registry) Len() int {
	return len(r.items)
}

// LoadDir parses every regular file in dir into a registry. Files in the
// labeled pretty-print format are converted first; hidden files are skipped.
func LoadDir(dir string) (*Registry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading definition dir: %w", err)
	}

	registry := NewRegistry()
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading definition %s: %w", path, err)
		}

		text := string(data)
		if IsPretty(text) {
			if text, err = FromPretty(text); err != nil {
				return nil, fmt.Errorf("converting definition %s: %w", path, err)
			}
		}

		item, err := ParseText(text)
		if err != nil {
			return nil, fmt.Errorf("parsing definition %s: %w", path, err)
		}
		registry.Register(item)
	}

	return registry, nil
}
