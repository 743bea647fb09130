package parser_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"onboard-agent-go/internal/config"
	"onboard-agent-go/internal/parser"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newEmbeddingStub 模拟阿里云OpenAI兼容embedding端点
func newEmbeddingStub(t *testing.T, dim int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.Contains(t, r.Header.Get("Authorization"), "Bearer ")

		var req map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		// input可以是string或[]string
		count := 1
		if arr, ok := req["input"].([]interface{}); ok {
			count = len(arr)
		}

		vec := make([]float64, dim)
		for i := range vec {
			vec[i] = 0.1
		}
		data := make([]map[string]interface{}, count)
		for i := 0; i < count; i++ {
			data[i] = map[string]interface{}{"object": "embedding", "embedding": vec, "index": i}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"object": "list",
			"data":   data,
			"model":  req["model"],
			"usage":  map[string]int{"prompt_tokens": 8, "total_tokens": 8},
		})
	}))
}

func TestAliyunEmbedder_EmbedStrings(t *testing.T) {
	server := newEmbeddingStub(t, 4)
	defer server.Close()

	embedder, err := parser.NewAliyunEmbedder("test-key", config.EmbeddingConfig{
		Model:      "text-embedding-v3",
		Dimensions: 4,
		BaseURL:    server.URL,
	})
	require.NoError(t, err)
	require.NotNil(t, embedder)
	assert.Equal(t, 4, embedder.GetDimensions())

	embeddings, err := embedder.EmbedStrings(context.Background(), []string{
		"electrician with 5 years experience in Delhi",
		"plumber available in Patna",
	})
	require.NoError(t, err)
	require.Len(t, embeddings, 2)
	assert.Len(t, embeddings[0], 4)
}

func TestAliyunEmbedder_EmbedStrings_EmptyInput(t *testing.T) {
	embedder, err := parser.NewAliyunEmbedder("test-key", config.EmbeddingConfig{})
	require.NoError(t, err)

	embeddings, err := embedder.EmbedStrings(context.Background(), nil)
	// 空输入不报错，返回空切片
	require.NoError(t, err)
	require.NotNil(t, embeddings)
	require.Empty(t, embeddings)
}

func TestAliyunEmbedder_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"message": "Invalid API key", "type": "invalid_request_error", "code": "401"}`))
	}))
	defer server.Close()

	embedder, err := parser.NewAliyunEmbedder("bad-key", config.EmbeddingConfig{BaseURL: server.URL})
	require.NoError(t, err)

	_, err = embedder.EmbedStrings(context.Background(), []string{"text"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid API key")
}

func TestAliyunEmbedder_NoAPIKey(t *testing.T) {
	_, err := parser.NewAliyunEmbedder("", config.EmbeddingConfig{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API密钥不能为空")
}
