package processor

import (
	"context"
	"fmt"
	"strings"

	"onboard-agent-go/internal/types"
)

// DefaultCVEmbedder 是 CVEmbedder 接口的默认实现。
// 把工人的结构化经验档案拼成一段检索文本，交给底层TextEmbedder产出单个向量。
type DefaultCVEmbedder struct {
	textEmbedder TextEmbedder
}

// NewDefaultCVEmbedder 创建一个新的 DefaultCVEmbedder 实例。
func NewDefaultCVEmbedder(textEmbedder TextEmbedder) (*DefaultCVEmbedder, error) {
	if textEmbedder == nil {
		return nil, fmt.Errorf("textEmbedder cannot be nil")
	}
	return &DefaultCVEmbedder{textEmbedder: textEmbedder}, nil
}

// EmbedProfile 实现 CVEmbedder 接口。
// 向量文本与职位向量文本保持同一布局，以保证Qdrant里的相似度可比。
func (dce *DefaultCVEmbedder) EmbedProfile(ctx context.Context, workerName string, profile *types.ExperienceProfile, address string) ([]float64, error) {
	if dce.textEmbedder == nil {
		return nil, fmt.Errorf("textEmbedder is not initialized in DefaultCVEmbedder")
	}
	if profile == nil {
		return nil, fmt.Errorf("experience profile cannot be nil")
	}

	text := BuildProfileEmbeddingText(workerName, profile, address)
	embeddings, err := dce.textEmbedder.EmbedStrings(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("embedding profile text failed: %w", err)
	}
	if len(embeddings) != 1 || len(embeddings[0]) == 0 {
		return nil, fmt.Errorf("embedding count mismatch: expected 1 non-empty vector, got %d", len(embeddings))
	}
	return embeddings[0], nil
}

// BuildProfileEmbeddingText 构造经验档案的向量化文本
// 只放对匹配有意义的字段，缺失字段整行省略
func BuildProfileEmbeddingText(workerName string, profile *types.ExperienceProfile, address string) string {
	var sb strings.Builder
	if workerName != "" {
		sb.WriteString(fmt.Sprintf("Worker: %s\n", workerName))
	}
	if profile.PrimarySkill != "" {
		sb.WriteString(fmt.Sprintf("Primary skill: %s\n", profile.PrimarySkill))
	}
	if profile.ExperienceYears > 0 {
		sb.WriteString(fmt.Sprintf("Experience: %.1f years\n", profile.ExperienceYears))
	}
	if len(profile.Skills) > 0 {
		sb.WriteString(fmt.Sprintf("Skills: %s\n", strings.Join(profile.Skills, ", ")))
	}
	if len(profile.Tools) > 0 {
		sb.WriteString(fmt.Sprintf("Tools: %s\n", strings.Join(profile.Tools, ", ")))
	}
	location := profile.PreferredLocation
	if location == "" {
		location = profile.CurrentLocation
	}
	if location != "" {
		sb.WriteString(fmt.Sprintf("Location: %s\n", location))
	}
	if address != "" {
		sb.WriteString(fmt.Sprintf("Address: %s\n", address))
	}
	for _, wp := range profile.Workplaces {
		if wp.WorkplaceName == "" {
			continue
		}
		sb.WriteString(fmt.Sprintf("Worked at %s", wp.WorkplaceName))
		if wp.WorkLocation != "" {
			sb.WriteString(fmt.Sprintf(" in %s", wp.WorkLocation))
		}
		if wp.WorkDuration != "" {
			sb.WriteString(fmt.Sprintf(" for %s", wp.WorkDuration))
		}
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}
