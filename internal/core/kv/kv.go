// Package kv defines the key/value persistence contract used for timer
// snapshots.
package kv

import (
	"context"
	"errors"
)

// ErrNotFound is wrapped by Get when a key does not exist.
var ErrNotFound = errors.New("key not found")

// KV is the interface for a persistent key-value store. Keys are strings
// and values are serialised by the store's Codec.
type KV interface {
	Get(ctx context.Context, key string, dest any) error
	Set(ctx context.Context, key string, value any) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
	Has(ctx context.Context, key string) (bool, error)
	ListKeys(ctx context.Context) ([]string, error)
}
