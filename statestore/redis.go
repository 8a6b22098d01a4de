package statestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisBackend stores object state in Redis. Current state lives in one hash
// per definition, field-indexed by object tag; history is a native Redis list
// per (definition, object) pair, so appends are atomic and never re-serialize
// the whole history. Suitable for distributed deployments where many
// processes share one state machine backend.
type RedisBackend struct {
	Unsupported

	client *redis.Client
	prefix string
}

// RedisOption configures a RedisBackend.
type RedisOption func(*RedisBackend)

// WithPrefix sets the key prefix for all Redis keys. Default is "bst".
func WithPrefix(prefix string) RedisOption {
	return func(b *RedisBackend) {
		b.prefix = prefix
	}
}

// NewRedisBackend creates a Redis-backed state backend.
//
// Example:
//
//	backend := NewRedisBackend(
//	    redis.NewClient(&redis.Options{Addr: "localhost:6379"}),
//	    WithPrefix("myapp"),
//	)
func NewRedisBackend(client *redis.Client, opts ...RedisOption) *RedisBackend {
	backend := &RedisBackend{
		client: client,
		prefix: "bst",
	}
	for _, opt := range opts {
		opt(backend)
	}
	return backend
}

// GetCurrentStateInfo reads the current-state slot for the object.
func (b *RedisBackend) GetCurrentStateInfo(ctx context.Context, objectTag, defTag string) (*StateInfo, error) {
	if objectTag == "" || defTag == "" {
		return nil, ErrInvalidTag
	}

	data, err := b.client.HGet(ctx, b.currentKey(defTag), objectTag).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("redis hget failed: %w", err)
	}

	var info StateInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("failed to unmarshal state info: %w", err)
	}
	return &info, nil
}

// GetHistory reads the full transition history for the object.
func (b *RedisBackend) GetHistory(ctx context.Context, objectTag, defTag string) ([]StateInfo, error) {
	if objectTag == "" || defTag == "" {
		return nil, ErrInvalidTag
	}

	vals, err := b.client.LRange(ctx, b.historyKey(defTag, objectTag), 0, -1).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []StateInfo{}, nil
		}
		return nil, fmt.Errorf("redis lrange failed: %w", err)
	}

	history := make([]StateInfo, 0, len(vals))
	for _, v := range vals {
		var info StateInfo
		if err := json.Unmarshal([]byte(v), &info); err != nil {
			return nil, fmt.Errorf("failed to unmarshal history entry: %w", err)
		}
		history = append(history, info)
	}
	return history, nil
}

// SetCurrentStateInfo overwrites the current-state slot and appends the record
// to the history list. Both writes go through one transactional pipeline, so
// a concurrent reader never observes the history updated without the current
// state.
func (b *RedisBackend) SetCurrentStateInfo(ctx context.Context, objectTag, defTag string, info *StateInfo) error {
	if objectTag == "" || defTag == "" {
		return ErrInvalidTag
	}

	data, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("failed to marshal state info: %w", err)
	}

	pipe := b.client.TxPipeline()
	pipe.HSet(ctx, b.currentKey(defTag), objectTag, data)
	pipe.RPush(ctx, b.historyKey(defTag, objectTag), data)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis pipeline failed: %w", err)
	}
	return nil
}

// currentKey generates the key of the per-definition current-state hash.
func (b *RedisBackend) currentKey(defTag string) string {
	return fmt.Sprintf("%s:state:current:%s", b.prefix, defTag)
}

// historyKey generates the key of the per-object history list.
func (b *RedisBackend) historyKey(defTag, objectTag string) string {
	return fmt.Sprintf("%s:state:history:%s:%s", b.prefix, defTag, objectTag)
}
