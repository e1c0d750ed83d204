package cache

import (
	"context"
	"sync"
)

// Memory keeps the slot in process memory. The zero value is ready to use.
type Memory struct {
	mu    sync.RWMutex
	value []byte
	set   bool
}

func (m *Memory) Get(context.Context) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.set {
		return nil, ErrNotFound
	}
	return append([]byte(nil), m.value...), nil
}

func (m *Memory) Set(_ context.Context, value []byte) error {
	m.mu.Lock()
	m.value = append([]byte(nil), value...)
	m.set = true
	m.mu.Unlock()
	return nil
}

func (m *Memory) Delete(context.Context) error {
	m.mu.Lock()
	m.value, m.set = nil, false
	m.mu.Unlock()
	return nil
}
