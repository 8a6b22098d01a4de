package statestore

import (
	"context"
	"sync"

	"github.com/zatosource/bst/graph"
)

// MemoryBackend keeps object state in process memory. It is safe for
// concurrent use and meant for development, tests and single-process
// deployments; distributed systems should use RedisBackend.
type MemoryBackend struct {
	Unsupported

	mu      sync.RWMutex
	current map[string]map[string]*StateInfo // defTag -> objectTag -> record
	history map[string]map[string][]StateInfo
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		current: make(map[string]map[string]*StateInfo),
		history: make(map[string]map[string][]StateInfo),
	}
}

// GetCurrentStateInfo returns a copy of the object's current state record.
func (b *MemoryBackend) GetCurrentStateInfo(_ context.Context, objectTag, defTag string) (*StateInfo, error) {
	if objectTag == "" || defTag == "" {
		return nil, ErrInvalidTag
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	info, ok := b.current[defTag][objectTag]
	if !ok {
		return nil, ErrNotFound
	}
	return info.Clone(), nil
}

// GetHistory returns a copy of the object's transition history.
func (b *MemoryBackend) GetHistory(_ context.Context, objectTag, defTag string) ([]StateInfo, error) {
	if objectTag == "" || defTag == "" {
		return nil, ErrInvalidTag
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	recorded := b.history[defTag][objectTag]
	history := make([]StateInfo, 0, len(recorded))
	for i := range recorded {
		history = append(history, *recorded[i].Clone())
	}
	return history, nil
}

// SetCurrentStateInfo overwrites the current-state slot and appends to the
// history under one lock acquisition.
func (b *MemoryBackend) SetCurrentStateInfo(_ context.Context, objectTag, defTag string, info *StateInfo) error {
	if objectTag == "" || defTag == "" {
		return ErrInvalidTag
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	stored := info.Clone()
	if b.current[defTag] == nil {
		b.current[defTag] = make(map[string]*StateInfo)
	}
	b.current[defTag][objectTag] = stored

	if b.history[defTag] == nil {
		b.history[defTag] = make(map[string][]StateInfo)
	}
	b.history[defTag][objectTag] = append(b.history[defTag][objectTag], *stored.Clone())

	return nil
}

// RenameDef moves every record stored under the old definition tag to the new
// one. Stored records keep their original def_tag field; only the storage key
// moves, matching what a key rename does in a key-value store.
func (b *MemoryBackend) RenameDef(_ context.Context, oldName, oldVersion, newName, newVersion string) error {
	oldTag := graph.Tag(oldName, oldVersion)
	newTag := graph.Tag(newName, newVersion)

	b.mu.Lock()
	defer b.mu.Unlock()

	if current, ok := b.current[oldTag]; ok {
		b.current[newTag] = current
		delete(b.current, oldTag)
	}
	if history, ok := b.history[oldTag]; ok {
		b.history[newTag] = history
		delete(b.history, oldTag)
	}
	return nil
}
