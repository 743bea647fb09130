package processor

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"onboard-agent-go/internal/constants"
	"onboard-agent-go/internal/logger"
	"onboard-agent-go/internal/storage"
	"onboard-agent-go/internal/storage/models"
	"onboard-agent-go/internal/types"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// VerificationOutcome 是RunVerification的返回值，携带聚合结果供HTTP层直接返回
type VerificationOutcome struct {
	WorkerID string                    `json:"worker_id"`
	Result   *types.VerificationResult `json:"result"`
}

// ProcessUploadedDocument 消费证件上传消息，驱动完整的证件处理流水线：
// MinIO下载 → Tika提取（PDF可退路到本地解析）→ LLM结构化抽取 → 落库 → 身份核验。
// 返回nil表示消息可以ack；返回错误时调用方决定重试，同时回滚文件MD5去重集合，
// 让用户修正后重新上传同一文件不被拒绝。
func (s *onboardingServiceImpl) ProcessUploadedDocument(ctx context.Context, message storage.DocumentUploadedMessage) error {
	ctx, span := tracer.Start(ctx, "OnboardingService.ProcessUploadedDocument",
		trace.WithSpanKind(trace.SpanKindConsumer))
	defer span.End()
	span.SetAttributes(
		attribute.String("worker_id", message.WorkerID),
		attribute.String("document.kind", message.DocumentKind),
		attribute.String("document.object_key", message.ObjectKey),
	)

	ctx = logger.WithWorkerID(ctx, message.WorkerID)

	err := s.processDocumentMessage(ctx, message)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.releaseFileMD5(ctx, message.RawFileMD5)
	}
	return err
}

func (s *onboardingServiceImpl) processDocumentMessage(ctx context.Context, message storage.DocumentUploadedMessage) error {
	log := logger.Ctx(ctx)

	if err := s.checkDocumentComponents(); err != nil {
		return err
	}
	if message.WorkerID == "" || message.ObjectKey == "" {
		return NewDownloadError(message.WorkerID, "消息缺少worker_id或object_key")
	}

	// 1. 从MinIO下载原始证件
	data, err := s.components.Storage.MinIO.GetDocument(ctx, message.ObjectKey)
	if err != nil {
		log.Error().Err(err).Str("object_key", message.ObjectKey).Msg("下载证件失败")
		return NewDownloadError(message.WorkerID, fmt.Sprintf("下载 %s: %v", message.ObjectKey, err))
	}
	log.Info().Str("object_key", message.ObjectKey).Int("size", len(data)).Msg("证件下载完成")

	// 2. OCR提取文本
	text, err := s.extractDocumentText(ctx, message.ObjectKey, data)
	if err != nil {
		return NewExtractError(message.WorkerID, err.Error())
	}

	// 扫描质量太差时跳过LLM抽取，留给人工复核，消息照常ack
	if len(strings.TrimSpace(text)) < constants.MinExtractedTextLen {
		log.Warn().
			Str("object_key", message.ObjectKey).
			Int("text_len", len(strings.TrimSpace(text))).
			Msg("提取文本过短，跳过LLM抽取")
		return nil
	}

	// 3. 提取文本上传MinIO，留证据链
	documentID := strings.TrimSuffix(filepath.Base(message.ObjectKey), filepath.Ext(message.ObjectKey))
	textPath, err := s.components.Storage.MinIO.UploadExtractedText(ctx, message.WorkerID, documentID, text)
	if err != nil {
		log.Warn().Err(err).Msg("上传提取文本失败，流水线继续")
		textPath = ""
	}

	// 4. LLM结构化抽取并落库
	switch message.DocumentKind {
	case constants.DocumentKindPersonal:
		if err := s.extractAndSavePersonal(ctx, message.WorkerID, text); err != nil {
			return err
		}
	case constants.DocumentKindEducational:
		if err := s.extractAndSaveEducational(ctx, message.WorkerID, text, textPath); err != nil {
			return err
		}
	default:
		return NewLLMExtractError(message.WorkerID, fmt.Sprintf("未知证件类别: %s", message.DocumentKind))
	}

	// 5. 每份新证件落库后重跑身份核验
	if _, err := s.RunVerification(ctx, message.WorkerID); err != nil {
		return err
	}

	log.Info().Str("document_kind", message.DocumentKind).Msg("证件处理流水线完成")
	return nil
}

// extractDocumentText 先走Tika（图片OCR与PDF通吃），PDF在Tika不可用或失败时退路到本地解析
func (s *onboardingServiceImpl) extractDocumentText(ctx context.Context, objectKey string, data []byte) (string, error) {
	log := logger.Ctx(ctx)
	fileName := filepath.Base(objectKey)
	isPDF := strings.EqualFold(filepath.Ext(fileName), ".pdf")

	var tikaErr error
	if s.components.TextExtractor != nil {
		text, _, err := s.components.TextExtractor.ExtractTextFromBytes(ctx, data, fileName)
		if err == nil {
			return text, nil
		}
		tikaErr = err
		log.Warn().Err(err).Str("file_name", fileName).Msg("Tika提取失败")
	}

	if isPDF && s.components.PDFFallbackExtractor != nil {
		text, _, err := s.components.PDFFallbackExtractor.ExtractTextFromBytes(ctx, data, fileName)
		if err == nil {
			log.Info().Str("file_name", fileName).Msg("本地PDF解析退路成功")
			return text, nil
		}
		return "", fmt.Errorf("Tika与本地PDF解析均失败: tika=%v, fallback=%v", tikaErr, err)
	}

	if tikaErr != nil {
		return "", fmt.Errorf("文本提取失败: %w", tikaErr)
	}
	return "", ErrExtractorNotInit
}

func (s *onboardingServiceImpl) extractAndSavePersonal(ctx context.Context, workerID string, text string) error {
	log := logger.Ctx(ctx)

	extraction, err := s.components.DocExtractor.ExtractPersonal(ctx, text)
	if err != nil {
		return NewLLMExtractError(workerID, err.Error())
	}

	extraction.Name = cleanNullString(extraction.Name)
	extraction.DOB = cleanNullString(extraction.DOB)
	extraction.Address = cleanNullString(extraction.Address)
	extraction.Mobile = cleanNullString(extraction.Mobile)
	extraction.NormalizedName = NormalizeName(extraction.Name)
	extraction.NormalizedDOB = NormalizeDate(extraction.DOB)

	if extraction.NormalizedName == "" && extraction.NormalizedDOB == "" {
		log.Warn().Msg("个人证件未抽取到姓名与出生日期，照常落库等人工复核")
	}

	if err := s.components.Storage.MySQL.SavePersonalExtraction(ctx, workerID, extraction); err != nil {
		return NewDatabaseError(workerID, fmt.Sprintf("保存个人抽取结果: %v", err))
	}
	log.Info().
		Str("extracted_name", extraction.NormalizedName).
		Str("extracted_dob", extraction.NormalizedDOB).
		Msg("个人证件抽取落库完成")
	return nil
}

func (s *onboardingServiceImpl) extractAndSaveEducational(ctx context.Context, workerID string, text string, textPath string) error {
	log := logger.Ctx(ctx)

	extraction, err := s.components.DocExtractor.ExtractEducational(ctx, text)
	if err != nil {
		return NewLLMExtractError(workerID, err.Error())
	}

	extraction.Name = cleanNullString(extraction.Name)
	extraction.DOB = cleanNullString(extraction.DOB)
	extraction.Board = cleanNullString(extraction.Board)
	extraction.Stream = cleanNullString(extraction.Stream)
	extraction.SchoolName = cleanNullString(extraction.SchoolName)
	extraction.YearOfPassing = cleanNullString(extraction.YearOfPassing)
	extraction.Marks = cleanNullString(extraction.Marks)
	extraction.Qualification = normalizeQualification(cleanNullString(extraction.Qualification))

	doc := &models.EducationalDocument{
		WorkerID:           workerID,
		DocumentType:       cleanNullString(extraction.DocumentType),
		Qualification:      extraction.Qualification,
		Board:              extraction.Board,
		Stream:             extraction.Stream,
		YearOfPassing:      extraction.YearOfPassing,
		SchoolName:         extraction.SchoolName,
		MarksType:          cleanNullString(extraction.MarksType),
		Marks:              extraction.Marks,
		RawTextPathOSS:     textPath,
		LLMExtractedData:   models.ToJSON(extraction),
		ExtractedName:      NormalizeName(extraction.Name),
		ExtractedDOB:       NormalizeDate(extraction.DOB),
		VerificationStatus: constants.StatusVerificationPending,
	}
	if err := s.components.Storage.MySQL.InsertEducationalDocument(ctx, doc); err != nil {
		return NewDatabaseError(workerID, fmt.Sprintf("保存学历抽取结果: %v", err))
	}
	log.Info().
		Str("qualification", doc.Qualification).
		Str("board", doc.Board).
		Uint64("document_id", doc.ID).
		Msg("学历证件抽取落库完成")
	return nil
}

// RunVerification 重新核验工人的全部资料并在单个事务中持久化结论
func (s *onboardingServiceImpl) RunVerification(ctx context.Context, workerID string) (*VerificationOutcome, error) {
	ctx, span := tracer.Start(ctx, "OnboardingService.RunVerification")
	defer span.End()
	span.SetAttributes(attribute.String("worker_id", workerID))

	ctx = logger.WithWorkerID(ctx, workerID)
	log := logger.Ctx(ctx)

	if s.components.Storage == nil {
		return nil, ErrStorageNotInit
	}

	worker, err := s.components.Storage.MySQL.GetWorkerByID(ctx, workerID)
	if err != nil {
		return nil, NewDatabaseError(workerID, fmt.Sprintf("查询工人: %v", err))
	}
	docs, err := s.components.Storage.MySQL.ListEducationalDocuments(ctx, workerID)
	if err != nil {
		return nil, NewDatabaseError(workerID, fmt.Sprintf("查询学历证件: %v", err))
	}

	docIdentities := make([]types.DocumentIdentity, 0, len(docs))
	for i := range docs {
		docIdentities = append(docIdentities, docs[i].DocumentIdentity())
	}

	result := VerifyDocuments(worker.PersonalIdentity(), docIdentities, s.settings.NameMatchThreshold)
	if err := s.components.Storage.MySQL.PersistVerificationResult(ctx, workerID, &result); err != nil {
		return nil, NewDatabaseError(workerID, fmt.Sprintf("持久化核验结论: %v", err))
	}

	log.Info().
		Str("status", string(result.Status)).
		Int("verified_count", result.VerifiedCount).
		Int("total_count", result.TotalCount).
		Int("mismatches", len(result.Mismatches)).
		Msg("身份核验完成")
	span.SetAttributes(attribute.String("verification.status", string(result.Status)))

	return &VerificationOutcome{WorkerID: workerID, Result: &result}, nil
}

// releaseFileMD5 在流水线失败时把文件MD5从去重集合移出，允许同一文件重传
func (s *onboardingServiceImpl) releaseFileMD5(ctx context.Context, md5Hex string) {
	if md5Hex == "" || s.components.Storage == nil || s.components.Storage.Redis == nil {
		return
	}
	if err := s.components.Storage.Redis.RemoveFileMD5(ctx, md5Hex); err != nil {
		logger.Ctx(ctx).Warn().Err(err).Str("md5", md5Hex).Msg("回滚文件MD5去重集合失败")
	}
}

// cleanNullString 清理LLM偶发返回的字面空值
func cleanNullString(s string) string {
	trimmed := strings.TrimSpace(s)
	switch strings.ToLower(trimmed) {
	case "", "null", "none", "n/a", "na", "nil":
		return ""
	}
	return trimmed
}

// normalizeQualification 把LLM五花八门的学历写法归一到Class 10 / Class 12
// 顺序敏感：12和XII要先于10和X判断
func normalizeQualification(q string) string {
	if q == "" {
		return ""
	}
	upper := strings.ToUpper(q)
	fields := strings.FieldsFunc(upper, func(r rune) bool {
		return (r < 'A' || r > 'Z') && (r < '0' || r > '9')
	})
	hasToken := func(tok string) bool {
		for _, f := range fields {
			if f == tok {
				return true
			}
		}
		return false
	}
	switch {
	case strings.Contains(upper, "12") || hasToken("XII"):
		return "Class 12"
	case strings.Contains(upper, "10") || hasToken("X"):
		return "Class 10"
	}
	return q
}
