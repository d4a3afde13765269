package store

import (
	"context"
	"slices"
	"sync"

	"github.com/effective-security/persona/pkg/llms"
	"github.com/effective-security/xlog"
)

// Memory is a process-local MessageStore backed by a map.
type Memory struct {
	mu      sync.RWMutex
	max     int
	storage map[string][]llms.Message
}

// NewMemoryStore returns a MessageStore backed by a process-local map,
// keeping at most DefaultMaxMessages per chat.
func NewMemoryStore() *Memory {
	return &Memory{max: DefaultMaxMessages}
}

// WithMaxMessages overrides the number of most recent messages kept per chat.
func (m *Memory) WithMaxMessages(n int) *Memory {
	if n > 0 {
		m.max = n
	}
	return m
}

func (m *Memory) Messages(ctx context.Context) []llms.Message {
	chatID, err := chatIDFromContext(ctx)
	if err != nil {
		logger.ContextKV(ctx, xlog.ERROR, "reason", "chat_context", "err", err.Error())
		return nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.storage == nil {
		return nil
	}
	return slices.Clone(m.storage[chatID])
}

func (m *Memory) Add(ctx context.Context, msg llms.Message) error {
	chatID, err := chatIDFromContext(ctx)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.storage == nil {
		// create on first use
		m.storage = make(map[string][]llms.Message)
	}
	history := append(m.storage[chatID], msg)
	if m.max > 0 && len(history) > m.max {
		history = history[len(history)-m.max:]
	}
	m.storage[chatID] = history
	return nil
}

func (m *Memory) Reset(ctx context.Context) error {
	chatID, err := chatIDFromContext(ctx)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.storage != nil {
		delete(m.storage, chatID)
	}
	return nil
}
