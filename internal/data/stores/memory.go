package stores

import (
	"context"
	"fmt"
	"sort"

	"github.com/hay-kot/marktimer/internal/core/kv"
	pkgkv "github.com/hay-kot/marktimer/pkg/kv"
)

// MemoryStore implements kv.KV in process memory. Values are encoded on
// Set so callers never share state with the store.
type MemoryStore struct {
	codec kv.Codec
	data  *pkgkv.Store[string, []byte]
}

var _ kv.KV = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store. A nil codec means JSON.
func NewMemoryStore(codec kv.Codec) *MemoryStore {
	if codec == nil {
		codec = kv.JSON
	}
	return &MemoryStore{codec: codec, data: pkgkv.New[string, []byte]()}
}

func (s *MemoryStore) Get(_ context.Context, key string, dest any) error {
	raw, ok := s.data.Get(key)
	if !ok {
		return fmt.Errorf("kv get %q: %w", key, kv.ErrNotFound)
	}
	if err := s.codec.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("kv get %q unmarshal: %w", key, err)
	}
	return nil
}

func (s *MemoryStore) Set(_ context.Context, key string, value any) error {
	raw, err := s.codec.Marshal(value)
	if err != nil {
		return fmt.Errorf("kv set %q marshal: %w", key, err)
	}
	s.data.Set(key, raw)
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.data.Delete(key)
	return nil
}

func (s *MemoryStore) Clear(context.Context) error {
	s.data.Clear()
	return nil
}

func (s *MemoryStore) Has(_ context.Context, key string) (bool, error) {
	_, ok := s.data.Get(key)
	return ok, nil
}

// ListKeys returns all keys in sorted order.
func (s *MemoryStore) ListKeys(context.Context) ([]string, error) {
	keys := s.data.Keys()
	sort.Strings(keys)
	return keys, nil
}
