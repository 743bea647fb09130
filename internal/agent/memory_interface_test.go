package agent

import (
	"context"
	"sync"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryChatMemory_Basic(t *testing.T) {
	memory := NewInMemoryChatMemory()
	ctx := context.Background()

	// 不存在的会话返回空历史而非错误
	history, err := memory.GetHistory(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, history)

	require.NoError(t, memory.AddMessage(ctx, "s1", schema.UserMessage("5 saal ka experience hai")))
	require.NoError(t, memory.AddMessages(ctx, "s1", []*schema.Message{
		schema.AssistantMessage("Which city would you prefer to work in?", nil),
		schema.UserMessage("Delhi"),
	}))

	history, err = memory.GetHistory(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, schema.User, history[0].Role)
	assert.Equal(t, "Delhi", history[2].Content)

	// 会话相互隔离
	other, err := memory.GetHistory(ctx, "s2")
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestInMemoryChatMemory_HistoryIsCopy(t *testing.T) {
	memory := NewInMemoryChatMemory()
	ctx := context.Background()

	require.NoError(t, memory.AddMessage(ctx, "s1", schema.UserMessage("first")))

	history, err := memory.GetHistory(ctx, "s1")
	require.NoError(t, err)
	history[0] = schema.UserMessage("mutated")

	fresh, err := memory.GetHistory(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "first", fresh[0].Content)
}

func TestInMemoryChatMemory_ClearHistory(t *testing.T) {
	memory := NewInMemoryChatMemory()
	ctx := context.Background()

	require.NoError(t, memory.AddMessage(ctx, "s1", schema.UserMessage("hello")))
	require.NoError(t, memory.ClearHistory(ctx, "s1"))

	history, err := memory.GetHistory(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, history)

	// 清空不存在的会话静默成功
	assert.NoError(t, memory.ClearHistory(ctx, "ghost"))
}

func TestInMemoryChatMemory_ConcurrentAppend(t *testing.T) {
	memory := NewInMemoryChatMemory()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = memory.AddMessage(ctx, "s1", schema.UserMessage("msg"))
		}()
	}
	wg.Wait()

	history, err := memory.GetHistory(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, history, 20)
}
