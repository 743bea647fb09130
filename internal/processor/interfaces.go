package processor

import (
	"context"
	"io"

	"onboard-agent-go/internal/types"

	"github.com/cloudwego/eino/components/embedding"
)

//
// 文本提取相关接口
//

// TextExtractor 证件文本提取器接口（Tika OCR或本地PDF解析）
type TextExtractor interface {
	// ExtractFromFile 从本地文件提取文本和元数据
	ExtractFromFile(ctx context.Context, filePath string) (string, map[string]interface{}, error)

	// ExtractTextFromReader 从io.Reader提取文本和元数据
	ExtractTextFromReader(ctx context.Context, reader io.Reader, fileName string) (string, map[string]interface{}, error)

	// ExtractTextFromBytes 从字节数组提取文本和元数据
	ExtractTextFromBytes(ctx context.Context, data []byte, fileName string) (string, map[string]interface{}, error)
}

//
// LLM结构化提取相关接口
//

// DocumentExtractor 从OCR文本中提取证件结构化字段
type DocumentExtractor interface {
	// ExtractPersonal 提取个人证件字段
	ExtractPersonal(ctx context.Context, text string) (*types.PersonalExtraction, error)

	// ExtractEducational 提取学历证件字段
	ExtractEducational(ctx context.Context, text string) (*types.EducationalExtraction, error)
}

// ExperienceExtractor 从转写或问答文本中提取经验画像
type ExperienceExtractor interface {
	ExtractExperience(ctx context.Context, transcript string) (*types.ExperienceProfile, error)
}

//
// 向量嵌入相关接口
//

// TextEmbedder 文本向量化接口 (符合 cloudwego/eino 规范)
type TextEmbedder interface {
	// EmbedStrings 将文本转换为向量表示
	EmbedStrings(ctx context.Context, texts []string, opts ...embedding.Option) ([][]float64, error)

	// GetDimensions 返回嵌入向量的维度
	GetDimensions() int
}

// CVEmbedder CV画像嵌入器接口
type CVEmbedder interface {
	// EmbedProfile 将工人经验画像转换为单条向量
	EmbedProfile(ctx context.Context, workerName string, profile *types.ExperienceProfile, address string) ([]float64, error)
}

//
// CV产物相关接口
//

// HTMLToPDFConverter 将渲染出的CV HTML转成PDF字节流
type HTMLToPDFConverter interface {
	ConvertHTMLToPDF(ctx context.Context, html string) ([]byte, error)
}
