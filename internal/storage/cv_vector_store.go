package storage

import (
	"context"
	"fmt"

	"onboard-agent-go/internal/types"
)

// ErrVectorDBNotConfigured 向量库未配置
var ErrVectorDBNotConfigured = fmt.Errorf("vector database not configured")

// CVVectorStore 提供工人CV画像向量存储功能
type CVVectorStore struct {
	VectorDB VectorDatabase
}

// NewCVVectorStore 创建一个新的CV画像向量存储
func NewCVVectorStore(vectorDB VectorDatabase) *CVVectorStore {
	return &CVVectorStore{
		VectorDB: vectorDB,
	}
}

// UpsertWorkerCVVector 存储/覆盖工人CV画像向量
func (s *CVVectorStore) UpsertWorkerCVVector(ctx context.Context, workerID string, profile *types.ExperienceProfile, embedding []float64) (string, error) {
	if s.VectorDB == nil {
		return "", ErrVectorDBNotConfigured
	}
	return s.VectorDB.UpsertWorkerCVVector(ctx, workerID, profile, embedding)
}

// SearchSimilarWorkers 搜索相似工人画像
func (s *CVVectorStore) SearchSimilarWorkers(ctx context.Context, queryVector []float64, limit int, filter map[string]interface{}) ([]SearchResult, error) {
	if s.VectorDB == nil {
		return nil, ErrVectorDBNotConfigured
	}
	return s.VectorDB.SearchSimilarWorkers(ctx, queryVector, limit, filter)
}

// DeleteWorkerVector 删除工人CV向量
func (s *CVVectorStore) DeleteWorkerVector(ctx context.Context, workerID string) error {
	if s.VectorDB == nil {
		return ErrVectorDBNotConfigured
	}
	return s.VectorDB.DeleteWorkerVector(ctx, workerID)
}
