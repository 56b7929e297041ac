package blobstore

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/finsight-ai/finsight/internal/fault"
)

// Memory is an in-process Store used when no S3 bucket is configured and by
// tests. Call counters are exposed so tests can assert pull-on-miss behavior.
type Memory struct {
	mu    sync.RWMutex
	blobs map[string][]byte

	puts atomic.Int64
	gets atomic.Int64
}

var _ Store = (*Memory)(nil)

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{blobs: make(map[string][]byte)}
}

// Put stores a copy of data under key.
func (m *Memory) Put(ctx context.Context, key string, data []byte) error {
	m.puts.Add(1)

	cp := make([]byte, len(data))
	copy(cp, data)

	m.mu.Lock()
	m.blobs[key] = cp
	m.mu.Unlock()
	return nil
}

// Get returns a copy of the blob stored under key.
func (m *Memory) Get(ctx context.Context, key string) ([]byte, error) {
	m.gets.Add(1)

	m.mu.RLock()
	data, ok := m.blobs[key]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("get %s: %w", key, fault.ErrNotFound)
	}

	cp := make([]byte, len(data))
	copy(cp, data)
	return cp, nil
}

// PutCalls returns how many times Put was invoked.
func (m *Memory) PutCalls() int64 { return m.puts.Load() }

// GetCalls returns how many times Get was invoked.
func (m *Memory) GetCalls() int64 { return m.gets.Load() }
