package agent

import (
	"context"
	"sync"

	"github.com/cloudwego/eino/schema"
)

// ChatMemory 定义问答会话的对话历史存储。
// 问答经验采集与未来的自由对话Agent共用这一接口。
type ChatMemory interface {
	// GetHistory 获取指定会话的全部历史。会话不存在时返回空切片而非错误。
	GetHistory(ctx context.Context, sessionID string) ([]*schema.Message, error)

	// AddMessage 向会话历史追加一条消息。
	AddMessage(ctx context.Context, sessionID string, message *schema.Message) error

	// AddMessages 批量追加多条消息。
	AddMessages(ctx context.Context, sessionID string, messages []*schema.Message) error

	// ClearHistory 清空会话历史。会话不存在时静默成功。
	ClearHistory(ctx context.Context, sessionID string) error
}

// InMemoryChatMemory 是ChatMemory的内存实现，不持久化，测试与单机调试用
type InMemoryChatMemory struct {
	mu       sync.RWMutex
	sessions map[string][]*schema.Message
}

// NewInMemoryChatMemory 创建内存版会话存储
func NewInMemoryChatMemory() *InMemoryChatMemory {
	return &InMemoryChatMemory{
		sessions: make(map[string][]*schema.Message),
	}
}

func (m *InMemoryChatMemory) GetHistory(_ context.Context, sessionID string) ([]*schema.Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	history, ok := m.sessions[sessionID]
	if !ok {
		return []*schema.Message{}, nil
	}
	// 返回副本，防止调用方修改内部切片
	out := make([]*schema.Message, len(history))
	copy(out, history)
	return out, nil
}

func (m *InMemoryChatMemory) AddMessage(ctx context.Context, sessionID string, message *schema.Message) error {
	return m.AddMessages(ctx, sessionID, []*schema.Message{message})
}

func (m *InMemoryChatMemory) AddMessages(_ context.Context, sessionID string, messages []*schema.Message) error {
	if len(messages) == 0 {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[sessionID] = append(m.sessions[sessionID], messages...)
	return nil
}

func (m *InMemoryChatMemory) ClearHistory(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sessionID)
	return nil
}
