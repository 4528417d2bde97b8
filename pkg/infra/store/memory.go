package store

import (
	"context"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/webchatter/pkg/domain/interfaces"
	"github.com/m-mizutani/webchatter/pkg/domain/model"
)

// Memory keeps snapshots in process memory
type Memory struct {
	mu    sync.RWMutex
	chats map[string]*model.ChatSnapshot
}

var _ interfaces.ChatRepository = (*Memory)(nil)

// NewMemory creates an empty in-memory repository
func NewMemory() *Memory {
	return &Memory{chats: map[string]*model.ChatSnapshot{}}
}

func (m *Memory) Save(ctx context.Context, snap *model.ChatSnapshot) error {
	if snap.ChatID == "" {
		return goerr.Wrap(model.ErrNoConversation, "cannot save snapshot without chat id")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chats[snap.ChatID] = copySnapshot(snap)
	return nil
}

func (m *Memory) Load(ctx context.Context, chatID string) (*model.ChatSnapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snap, ok := m.chats[chatID]
	if !ok {
		return nil, goerr.Wrap(model.ErrNotFound, "chat not in memory store", goerr.V("chat_id", chatID))
	}
	return copySnapshot(snap), nil
}

func (m *Memory) Delete(ctx context.Context, chatID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.chats[chatID]; !ok {
		return goerr.Wrap(model.ErrNotFound, "chat not in memory store", goerr.V("chat_id", chatID))
	}
	delete(m.chats, chatID)
	return nil
}

func (m *Memory) Close() error { return nil }

// copySnapshot deep-copies nodes so callers cannot mutate stored state
func copySnapshot(snap *model.ChatSnapshot) *model.ChatSnapshot {
	cp := *snap
	cp.Nodes = make([]*model.Node, 0, len(snap.Nodes))
	for _, n := range snap.Nodes {
		node := *n
		node.Children = append([]string{}, n.Children...)
		cp.Nodes = append(cp.Nodes, &node)
	}
	return &cp
}
