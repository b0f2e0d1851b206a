// Package store provides poll-cursor persistence: a process-memory default
// and an optional SQLite-backed store for surviving restarts.
package store

import (
	"context"
	"sync"
)

// Memory keeps cursors in process memory. This is the default: a restart
// starts with no cursor and may re-answer the newest message.
type Memory struct {
	mu      sync.Mutex
	cursors map[string]string
}

func NewMemory() *Memory {
	return &Memory{cursors: make(map[string]string)}
}

func (m *Memory) LoadCursor(_ context.Context, conversationSID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cursors[conversationSID], nil
}

func (m *Memory) SaveCursor(_ context.Context, conversationSID, messageSID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cursors[conversationSID] = messageSID
	return nil
}
