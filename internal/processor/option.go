package processor

import (
	"onboard-agent-go/internal/storage"

	"github.com/rs/zerolog"
)

// Components 流水线依赖的全部外部组件
type Components struct {
	Storage *storage.Storage

	// 主文本提取器（Tika，支持PDF和图片OCR）
	TextExtractor TextExtractor
	// PDF备用提取器（本地eino解析，Tika不可用时退路）
	PDFFallbackExtractor TextExtractor

	// LLM结构化提取
	DocExtractor DocumentExtractor
	ExpExtractor ExperienceExtractor

	// 向量化
	TextEmbedder TextEmbedder
	CVEmbedder   CVEmbedder

	// CV产物
	PDFConverter HTMLToPDFConverter
}

// Settings 流水线行为设置
type Settings struct {
	Debug              bool
	NameMatchThreshold float64
	TopJobMatches      int
	Logger             *zerolog.Logger
}

// ComponentOpt 组件选项类型，仅改变 Components 结构体内的字段
type ComponentOpt func(*Components)

// SettingOpt 设置选项类型，仅改变 Settings 结构体内的字段
type SettingOpt func(*Settings)

// ----- 组件选项 -----

// WithcompTextExtractor 设置主文本提取器
func WithcompTextExtractor(extractor TextExtractor) ComponentOpt {
	return func(c *Components) {
		c.TextExtractor = extractor
	}
}

// WithcompPDFFallback 设置PDF备用提取器
func WithcompPDFFallback(extractor TextExtractor) ComponentOpt {
	return func(c *Components) {
		c.PDFFallbackExtractor = extractor
	}
}

// WithcompDocExtractor 设置证件LLM提取器
func WithcompDocExtractor(extractor DocumentExtractor) ComponentOpt {
	return func(c *Components) {
		c.DocExtractor = extractor
	}
}

// WithcompExpExtractor 设置经验LLM提取器
func WithcompExpExtractor(extractor ExperienceExtractor) ComponentOpt {
	return func(c *Components) {
		c.ExpExtractor = extractor
	}
}

// WithcompTextEmbedder 设置文本嵌入器
func WithcompTextEmbedder(embedder TextEmbedder) ComponentOpt {
	return func(c *Components) {
		c.TextEmbedder = embedder
	}
}

// WithcompCVEmbedder 设置CV画像嵌入器
func WithcompCVEmbedder(embedder CVEmbedder) ComponentOpt {
	return func(c *Components) {
		c.CVEmbedder = embedder
	}
}

// WithcompPDFConverter 设置HTML转PDF转换器
func WithcompPDFConverter(converter HTMLToPDFConverter) ComponentOpt {
	return func(c *Components) {
		c.PDFConverter = converter
	}
}

// WithcompStorage 设置存储组件
func WithcompStorage(s *storage.Storage) ComponentOpt {
	return func(c *Components) {
		c.Storage = s
	}
}

// ----- 设置选项 -----

// WithsetDebug 设置调试模式
func WithsetDebug(debug bool) SettingOpt {
	return func(s *Settings) {
		s.Debug = debug
	}
}

// WithsetNameMatchThreshold 设置姓名匹配阈值
func WithsetNameMatchThreshold(threshold float64) SettingOpt {
	return func(s *Settings) {
		if threshold > 0 && threshold <= 1 {
			s.NameMatchThreshold = threshold
		}
	}
}

// WithsetTopJobMatches 设置岗位匹配返回条数
func WithsetTopJobMatches(n int) SettingOpt {
	return func(s *Settings) {
		if n > 0 {
			s.TopJobMatches = n
		}
	}
}

// WithsetLogger 设置日志记录器
func WithsetLogger(logger *zerolog.Logger) SettingOpt {
	return func(s *Settings) {
		if logger != nil {
			s.Logger = logger
		}
	}
}
