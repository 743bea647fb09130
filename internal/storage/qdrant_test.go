package storage_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"onboard-agent-go/internal/config"
	"onboard-agent-go/internal/storage"
	"onboard-agent-go/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newQdrantStub 返回一个模拟Qdrant API的HTTP服务器
func newQdrantStub(t *testing.T, collection string, onPoints func(r *http.Request, body []byte)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/collections/"+collection && r.Method == http.MethodGet:
			// 集合已存在
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{
				"result": {
					"config": {
						"params": {
							"vectors": {
								"size": 4,
								"distance": "Cosine"
							}
						}
					}
				}
			}`))
		case r.URL.Path == "/collections/"+collection+"/points":
			body, _ := io.ReadAll(r.Body)
			if onPoints != nil {
				onPoints(r, body)
			}
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"result": {"status": "acknowledged"}, "status": "ok", "time": 0.001}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

// TestQdrant_NewQdrant 测试Qdrant客户端初始化
func TestQdrant_NewQdrant(t *testing.T) {
	server := newQdrantStub(t, "test_collection", nil)
	defer server.Close()

	cfg := &config.QdrantConfig{
		Endpoint:   server.URL,
		Collection: "test_collection",
		Dimension:  4,
	}

	// 使用选项模式创建客户端
	client, err := storage.NewQdrant(cfg,
		storage.WithDistanceMetric("Cosine"),
		storage.WithHttpTimeout(5*time.Second))

	require.NoError(t, err, "应该成功创建Qdrant客户端")
	require.NotNil(t, client, "客户端不应为nil")
}

// TestWorkerPointID_Deterministic 同一workerID必须稳定映射到同一个点ID
func TestWorkerPointID_Deterministic(t *testing.T) {
	id1 := storage.WorkerPointID("worker-abc")
	id2 := storage.WorkerPointID("worker-abc")
	id3 := storage.WorkerPointID("worker-def")

	assert.Equal(t, id1, id2, "相同workerID应生成相同点ID")
	assert.NotEqual(t, id1, id3, "不同workerID应生成不同点ID")
}

// TestQdrant_UpsertWorkerCVVector 测试工人CV画像向量写入
func TestQdrant_UpsertWorkerCVVector(t *testing.T) {
	var captured []byte
	server := newQdrantStub(t, "worker_cvs", func(r *http.Request, body []byte) {
		require.Equal(t, http.MethodPut, r.Method)
		captured = body
	})
	defer server.Close()

	cfg := &config.QdrantConfig{
		Endpoint:   server.URL,
		Collection: "worker_cvs",
		Dimension:  4,
	}
	client, err := storage.NewQdrant(cfg, storage.WithHttpTimeout(5*time.Second))
	require.NoError(t, err)

	profile := &types.ExperienceProfile{
		PrimarySkill:      "electrician",
		ExperienceYears:   3.5,
		Skills:            []string{"wiring", "panel installation"},
		PreferredLocation: "Mumbai",
	}

	pointID, err := client.UpsertWorkerCVVector(context.Background(), "worker-1", profile, []float64{0.1, 0.2, 0.3, 0.4})
	require.NoError(t, err)
	assert.Equal(t, storage.WorkerPointID("worker-1"), pointID)

	// 校验payload携带匹配用的结构化字段
	var req struct {
		Points []struct {
			ID      string                 `json:"id"`
			Vector  []float64              `json:"vector"`
			Payload map[string]interface{} `json:"payload"`
		} `json:"points"`
	}
	require.NoError(t, json.Unmarshal(captured, &req))
	require.Len(t, req.Points, 1)
	assert.Equal(t, "worker-1", req.Points[0].Payload["worker_id"])
	assert.Equal(t, "electrician", req.Points[0].Payload["primary_skill"])
	assert.Equal(t, "Mumbai", req.Points[0].Payload["preferred_location"])
	assert.Len(t, req.Points[0].Vector, 4)
}

// TestQdrant_UpsertWorkerCVVector_DimensionMismatch 向量维度不匹配时直接报错
func TestQdrant_UpsertWorkerCVVector_DimensionMismatch(t *testing.T) {
	server := newQdrantStub(t, "worker_cvs", nil)
	defer server.Close()

	cfg := &config.QdrantConfig{
		Endpoint:   server.URL,
		Collection: "worker_cvs",
		Dimension:  4,
	}
	client, err := storage.NewQdrant(cfg, storage.WithHttpTimeout(5*time.Second))
	require.NoError(t, err)

	_, err = client.UpsertWorkerCVVector(context.Background(), "worker-1", nil, []float64{0.1, 0.2})
	assert.Error(t, err)
}
