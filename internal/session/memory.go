package session

import (
	"context"
	"sync"
)

type memoryEntry struct {
	text   string
	flag   bool
	isBool bool
}

// MemoryBackend keeps entries in process memory. Nothing survives a restart.
type MemoryBackend struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	closed  bool
}

var _ Backend = (*MemoryBackend)(nil)

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{entries: make(map[string]memoryEntry)}
}

func (m *MemoryBackend) String(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return "", false, ErrClosed
	}
	e, ok := m.entries[key]
	if !ok || e.isBool {
		return "", false, nil
	}
	return e.text, true, nil
}

func (m *MemoryBackend) SetString(ctx context.Context, key, value string) error {
	return m.Set(ctx, StringEntry(key, value))
}

func (m *MemoryBackend) Bool(_ context.Context, key string) (bool, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return false, false, ErrClosed
	}
	e, ok := m.entries[key]
	if !ok || !e.isBool {
		return false, false, nil
	}
	return e.flag, true, nil
}

func (m *MemoryBackend) SetBool(ctx context.Context, key string, value bool) error {
	return m.Set(ctx, BoolEntry(key, value))
}

func (m *MemoryBackend) Set(_ context.Context, entries ...Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	for _, e := range entries {
		m.entries[e.Key] = memoryEntry{text: e.Text, flag: e.Flag, isBool: e.IsBool}
	}
	return nil
}

func (m *MemoryBackend) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	for _, key := range keys {
		delete(m.entries, key)
	}
	return nil
}

// Len returns the number of stored entries.
func (m *MemoryBackend) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func (m *MemoryBackend) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
