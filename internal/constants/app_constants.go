package constants

import "time"

// 工人验证状态（Worker.verification_status / EducationalDocument.verification_status）
const (
	StatusVerificationPending  = "pending"
	StatusVerificationVerified = "verified"
	StatusVerificationFailed   = "failed"
)

// 语音会话状态（VoiceSession.status）
const (
	StatusCallInitiated  = "initiated"
	StatusCallInProgress = "in_progress"
	StatusCallCompleted  = "completed"
	StatusCallFailed     = "failed"
)

// 经验问答会话状态（ExperienceSession.status）
const (
	StatusSessionActive    = "active"
	StatusSessionCompleted = "completed"
	StatusSessionDeclined  = "declined"
)

// 待复核抽取状态（PendingExtraction.status）
const (
	StatusExtractionPending   = "pending"
	StatusExtractionReviewed  = "reviewed"
	StatusExtractionProcessed = "processed"
)

// Outbox 消息状态
const (
	OutboxStatusPending = "PENDING"
	OutboxStatusSent    = "SENT"
	OutboxStatusFailed  = "FAILED"
)

// 文档类型
const (
	DocumentKindPersonal    = "personal"
	DocumentKindEducational = "educational"
)

const (
	// DefaultNameMatchThreshold 姓名模糊匹配的默认相似度阈值
	DefaultNameMatchThreshold = 0.85

	// MaxDocumentUploadBytes 单个证件文件的大小上限（2MB）
	MaxDocumentUploadBytes = 2 * 1024 * 1024
	// MaxVideoUploadBytes 单个自我介绍视频的大小上限（50MB）
	MaxVideoUploadBytes = 50 * 1024 * 1024

	// MinExtractedTextLen 提取文本短于该长度视为无效扫描件，跳过LLM抽取
	MinExtractedTextLen = 10

	// JobVectorCacheDuration 岗位向量在Redis中的缓存时长
	JobVectorCacheDuration = 24 * time.Hour
)

// 支持上传的文件扩展名白名单
var (
	AllowedDocumentExts = map[string]bool{
		".pdf": true, ".jpg": true, ".jpeg": true, ".png": true, ".bmp": true,
	}
	AllowedVideoExts = map[string]bool{
		".mp4": true, ".mov": true, ".avi": true, ".mkv": true,
		".webm": true, ".flv": true, ".wmv": true,
	}
)
