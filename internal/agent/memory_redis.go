package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/redis/go-redis/v9"
)

// RedisChatMemory 基于Redis List的ChatMemory实现，多实例共享会话历史。
// 每条消息JSON序列化后RPUSH，读取时LRANGE全量反序列化。
type RedisChatMemory struct {
	redisClient *redis.Client
	keyPrefix   string
	ttl         time.Duration // 0表示不过期
}

// NewRedisChatMemory 创建Redis版会话存储。keyPrefix用于隔离键空间，ttl为0时历史永不过期。
func NewRedisChatMemory(redisClient *redis.Client, keyPrefix string, ttl time.Duration) (*RedisChatMemory, error) {
	if redisClient == nil {
		return nil, fmt.Errorf("redis client cannot be nil")
	}
	if keyPrefix == "" {
		return nil, fmt.Errorf("key prefix cannot be empty")
	}
	return &RedisChatMemory{
		redisClient: redisClient,
		keyPrefix:   keyPrefix,
		ttl:         ttl,
	}, nil
}

func (m *RedisChatMemory) buildKey(sessionID string) string {
	return m.keyPrefix + sessionID
}

func (m *RedisChatMemory) GetHistory(ctx context.Context, sessionID string) ([]*schema.Message, error) {
	raw, err := m.redisClient.LRange(ctx, m.buildKey(sessionID), 0, -1).Result()
	if err != nil {
		if err == redis.Nil {
			return []*schema.Message{}, nil
		}
		return nil, fmt.Errorf("读取会话历史失败: %w", err)
	}

	messages := make([]*schema.Message, 0, len(raw))
	for _, item := range raw {
		var msg schema.Message
		if err := json.Unmarshal([]byte(item), &msg); err != nil {
			return nil, fmt.Errorf("反序列化会话消息失败: %w", err)
		}
		messages = append(messages, &msg)
	}
	return messages, nil
}

func (m *RedisChatMemory) AddMessage(ctx context.Context, sessionID string, message *schema.Message) error {
	return m.AddMessages(ctx, sessionID, []*schema.Message{message})
}

func (m *RedisChatMemory) AddMessages(ctx context.Context, sessionID string, messages []*schema.Message) error {
	if len(messages) == 0 {
		return nil
	}

	key := m.buildKey(sessionID)
	values := make([]interface{}, 0, len(messages))
	for _, msg := range messages {
		if msg == nil {
			continue
		}
		data, err := json.Marshal(msg)
		if err != nil {
			return fmt.Errorf("序列化会话消息失败: %w", err)
		}
		values = append(values, data)
	}
	if len(values) == 0 {
		return nil
	}

	pipe := m.redisClient.TxPipeline()
	pipe.RPush(ctx, key, values...)
	if m.ttl > 0 {
		pipe.Expire(ctx, key, m.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("写入会话历史失败: %w", err)
	}
	return nil
}

func (m *RedisChatMemory) ClearHistory(ctx context.Context, sessionID string) error {
	if err := m.redisClient.Del(ctx, m.buildKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("清空会话历史失败: %w", err)
	}
	return nil
}
