package processor

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"onboard-agent-go/internal/config"
	"onboard-agent-go/internal/parser"
	"onboard-agent-go/internal/storage"
	"onboard-agent-go/internal/storage/models"
	"onboard-agent-go/pkg/agent"
	"onboard-agent-go/pkg/ratelimit"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
)

// 定义公共错误类型，用于整个服务
var (
	ErrStorageNotInit      = errors.New("storage is not initialized")
	ErrExtractorNotInit    = errors.New("text extractor is not initialized")
	ErrDocExtractorNotInit = errors.New("document extractor is not initialized")
	ErrExpExtractorNotInit = errors.New("experience extractor is not initialized")
	ErrConverterNotInit    = errors.New("pdf converter is not initialized")
	ErrDuplicateContent    = errors.New("duplicate content detected")
)

// 定义tracer
var tracer = otel.Tracer("processor")

// OnboardingService 定义入职资料处理服务的接口
// 提供统一的服务层入口，隐藏内部组件细节
type OnboardingService interface {
	// ProcessUploadedDocument 消费证件上传消息：OCR + LLM提取 + 身份核验
	ProcessUploadedDocument(ctx context.Context, message storage.DocumentUploadedMessage) error

	// ProcessTranscript 消费通话转写消息：LLM经验提取 + 经验整合落库
	ProcessTranscript(ctx context.Context, message storage.TranscriptReceivedMessage) error

	// GenerateCV 生成CV三件套（HTML/TXT/PDF）并上传，附带向量入库
	GenerateCV(ctx context.Context, workerID string) (*CVGenerationResult, error)

	// RunVerification 对工人当前资料重新执行身份核验并持久化
	RunVerification(ctx context.Context, workerID string) (*VerificationOutcome, error)

	// ExtractForReview 同步抽取工人当前证件到待复核暂存区，不直接改动工人记录
	ExtractForReview(ctx context.Context, workerID string) (*models.PendingExtraction, error)

	// ConsolidateExperience 对任意转写文本执行经验提取与落库（语音与问答共用）
	ConsolidateExperience(ctx context.Context, workerID string, transcript string) (*ExperienceOutcome, error)
}

// onboardingServiceImpl 是OnboardingService的实现
// 采用Facade模式，内部持有所有需要的组件，但不暴露给外部
type onboardingServiceImpl struct {
	components Components
	settings   Settings
	config     *config.Config
	logger     *zerolog.Logger
}

// NewOnboardingService 创建新的入职处理服务实例
func NewOnboardingService(cfg *config.Config, storageManager *storage.Storage, logger *zerolog.Logger, compOpts []ComponentOpt, setOpts ...SettingOpt) (OnboardingService, error) {
	if logger == nil {
		defaultLogger := zerolog.Nop()
		logger = &defaultLogger
	}

	components, err := createComponents(cfg, storageManager, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create components: %w", err)
	}
	for _, opt := range compOpts {
		opt(&components)
	}

	settings := Settings{
		NameMatchThreshold: DefaultNameMatchThreshold,
		TopJobMatches:      10,
		Logger:             logger,
	}
	if cfg != nil && cfg.NameMatchThreshold > 0 {
		settings.NameMatchThreshold = cfg.NameMatchThreshold
	}
	for _, opt := range setOpts {
		opt(&settings)
	}

	return &onboardingServiceImpl{
		components: components,
		settings:   settings,
		config:     cfg,
		logger:     logger,
	}, nil
}

// createComponents 按配置创建所有可用组件，缺配置的组件留空由调用前检查兜底
func createComponents(cfg *config.Config, storageManager *storage.Storage, logger *zerolog.Logger) (Components, error) {
	components := Components{
		Storage: storageManager,
	}
	if cfg == nil {
		return components, nil
	}

	// Tika文本提取器（PDF+图片OCR）
	if cfg.Tika.ServerURL != "" {
		tikaOptions := []parser.TikaOption{
			parser.WithMinimalMetadata(true),
		}
		if logger != nil {
			stdLogger := log.New(
				zerolog.NewConsoleWriter(func(w *zerolog.ConsoleWriter) {
					w.NoColor = false
					w.TimeFormat = "15:04:05"
				}),
				"[TikaExtractor] ",
				log.LstdFlags,
			)
			tikaOptions = append(tikaOptions, parser.WithTikaLogger(stdLogger))
		}
		if tikaTimeout := time.Duration(cfg.Tika.Timeout) * time.Second; tikaTimeout > 0 {
			tikaOptions = append(tikaOptions, parser.WithTimeout(tikaTimeout))
		}
		components.TextExtractor = parser.NewTikaTextExtractor(cfg.Tika.ServerURL, tikaOptions...)
	}

	// 本地eino PDF解析器作为Tika的退路
	if einoExtractor, err := parser.NewEinoPDFTextExtractor(context.Background()); err == nil {
		components.PDFFallbackExtractor = einoExtractor
	}

	// LLM证件与经验提取器，全部走限流代理
	if cfg.Aliyun.APIKey != "" {
		docModel, err := agent.NewAliyunQwenChatModel(
			cfg.Aliyun.APIKey,
			cfg.GetModelForTask("document_extraction"),
			cfg.Aliyun.APIURL,
		)
		if err == nil {
			limited := ratelimit.NewLLMWithRateLimit(
				docModel,
				cfg.GetModelForTask("document_extraction"),
				cfg.ModelQPMLimits,
				cfg.LLMExtractor.QPM,
				cfg.LLMExtractor.MaxRetries,
				time.Duration(cfg.LLMExtractor.RetryWaitSeconds)*time.Second,
			)
			stdLogger := log.New(os.Stdout, "[DocExtractor] ", log.LstdFlags)
			components.DocExtractor = parser.NewLLMDocumentExtractor(limited, stdLogger)
		}

		expModel, err := agent.NewAliyunQwenChatModel(
			cfg.Aliyun.APIKey,
			cfg.GetModelForTask("experience_extraction"),
			cfg.Aliyun.APIURL,
		)
		if err == nil {
			limited := ratelimit.NewLLMWithRateLimit(
				expModel,
				cfg.GetModelForTask("experience_extraction"),
				cfg.ModelQPMLimits,
				cfg.LLMExtractor.QPM,
				cfg.LLMExtractor.MaxRetries,
				time.Duration(cfg.LLMExtractor.RetryWaitSeconds)*time.Second,
			)
			stdLogger := log.New(os.Stdout, "[ExpExtractor] ", log.LstdFlags)
			components.ExpExtractor = parser.NewLLMExperienceExtractor(limited, stdLogger)
		}
	}

	// 向量化组件
	if cfg.Aliyun.Embedding.Model != "" && cfg.Aliyun.APIKey != "" {
		aliyunEmbedder, err := parser.NewAliyunEmbedder(cfg.Aliyun.APIKey, cfg.Aliyun.Embedding)
		if err == nil {
			components.TextEmbedder = aliyunEmbedder
			if cvEmbedder, embedErr := NewDefaultCVEmbedder(aliyunEmbedder); embedErr == nil {
				components.CVEmbedder = cvEmbedder
			}
		}
	}

	// HTML转PDF转换器
	if cfg.PDFConverter.PrimaryURL != "" || cfg.PDFConverter.FallbackURL != "" {
		converter, err := parser.NewPDFConverter(cfg.PDFConverter)
		if err == nil {
			components.PDFConverter = converter
		}
	}

	return components, nil
}

// CheckComponentsInitialized 检查证件流水线所需组件是否就绪
func (s *onboardingServiceImpl) checkDocumentComponents() error {
	if s.components.Storage == nil {
		return ErrStorageNotInit
	}
	if s.components.TextExtractor == nil && s.components.PDFFallbackExtractor == nil {
		return ErrExtractorNotInit
	}
	if s.components.DocExtractor == nil {
		return ErrDocExtractorNotInit
	}
	return nil
}

func (s *onboardingServiceImpl) checkExperienceComponents() error {
	if s.components.Storage == nil {
		return ErrStorageNotInit
	}
	if s.components.ExpExtractor == nil {
		return ErrExpExtractorNotInit
	}
	return nil
}
