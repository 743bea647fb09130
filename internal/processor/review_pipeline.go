package processor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"onboard-agent-go/internal/constants"
	"onboard-agent-go/internal/logger"
	"onboard-agent-go/internal/storage/models"
	"onboard-agent-go/internal/types"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// ErrNoDocumentsUploaded 工人还没有上传任何证件，复核抽取无从谈起
var ErrNoDocumentsUploaded = errors.New("no documents uploaded")

// ExtractForReview 人工复核路径的同步抽取：
// 取工人当前的个人证件与最近一份学历证件，即时跑OCR+LLM，
// 结果写入pending_extractions暂存区，等运营侧修订后再经submit-review落到工人记录。
func (s *onboardingServiceImpl) ExtractForReview(ctx context.Context, workerID string) (*models.PendingExtraction, error) {
	ctx, span := tracer.Start(ctx, "OnboardingService.ExtractForReview")
	defer span.End()
	span.SetAttributes(attribute.String("worker_id", workerID))

	ctx = logger.WithWorkerID(ctx, workerID)
	log := logger.Ctx(ctx)

	if err := s.checkDocumentComponents(); err != nil {
		return nil, err
	}

	worker, err := s.components.Storage.MySQL.GetWorkerByID(ctx, workerID)
	if err != nil {
		return nil, NewDatabaseError(workerID, fmt.Sprintf("查询工人: %v", err))
	}

	eduPaths := worker.EducationalPathList()
	if worker.PersonalDocumentPath == "" && len(eduPaths) == 0 {
		return nil, ErrNoDocumentsUploaded
	}

	pending := &models.PendingExtraction{
		WorkerID: workerID,
		Status:   constants.StatusExtractionPending,
	}

	if worker.PersonalDocumentPath != "" {
		personal, err := s.reviewExtractPersonal(ctx, workerID, worker.PersonalDocumentPath)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		if personal != nil {
			pending.PersonalDocumentPath = worker.PersonalDocumentPath
			pending.PersonalData = models.ToJSON(personal)
		}
	}

	if len(eduPaths) > 0 {
		latest := eduPaths[len(eduPaths)-1]
		education, err := s.reviewExtractEducational(ctx, workerID, latest)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		if education != nil {
			pending.EducationalDocumentPath = latest
			pending.EducationData = models.ToJSON(education)
		}
	}

	if err := s.components.Storage.MySQL.UpsertPendingExtraction(ctx, pending); err != nil {
		return nil, NewDatabaseError(workerID, fmt.Sprintf("保存待复核抽取: %v", err))
	}

	log.Info().
		Bool("has_personal", len(pending.PersonalData) > 0).
		Bool("has_education", len(pending.EducationData) > 0).
		Msg("复核抽取完成")
	return pending, nil
}

// reviewExtractPersonal 下载并抽取个人证件，文本过短返回nil表示跳过
func (s *onboardingServiceImpl) reviewExtractPersonal(ctx context.Context, workerID, objectKey string) (*types.PersonalExtraction, error) {
	text, skip, err := s.reviewFetchText(ctx, workerID, objectKey)
	if err != nil || skip {
		return nil, err
	}

	extraction, err := s.components.DocExtractor.ExtractPersonal(ctx, text)
	if err != nil {
		return nil, NewLLMExtractError(workerID, err.Error())
	}
	extraction.Name = cleanNullString(extraction.Name)
	extraction.DOB = cleanNullString(extraction.DOB)
	extraction.Address = cleanNullString(extraction.Address)
	extraction.Mobile = cleanNullString(extraction.Mobile)
	extraction.NormalizedName = NormalizeName(extraction.Name)
	extraction.NormalizedDOB = NormalizeDate(extraction.DOB)
	return extraction, nil
}

// reviewExtractEducational 下载并抽取学历证件，文本过短返回nil表示跳过
func (s *onboardingServiceImpl) reviewExtractEducational(ctx context.Context, workerID, objectKey string) (*types.EducationalExtraction, error) {
	text, skip, err := s.reviewFetchText(ctx, workerID, objectKey)
	if err != nil || skip {
		return nil, err
	}

	extraction, err := s.components.DocExtractor.ExtractEducational(ctx, text)
	if err != nil {
		return nil, NewLLMExtractError(workerID, err.Error())
	}
	extraction.Name = cleanNullString(extraction.Name)
	extraction.DOB = cleanNullString(extraction.DOB)
	extraction.Board = cleanNullString(extraction.Board)
	extraction.Stream = cleanNullString(extraction.Stream)
	extraction.SchoolName = cleanNullString(extraction.SchoolName)
	extraction.YearOfPassing = cleanNullString(extraction.YearOfPassing)
	extraction.Marks = cleanNullString(extraction.Marks)
	extraction.MarksType = cleanNullString(extraction.MarksType)
	extraction.Qualification = normalizeQualification(cleanNullString(extraction.Qualification))
	return extraction, nil
}

func (s *onboardingServiceImpl) reviewFetchText(ctx context.Context, workerID, objectKey string) (string, bool, error) {
	log := logger.Ctx(ctx)

	data, err := s.components.Storage.MinIO.GetDocument(ctx, objectKey)
	if err != nil {
		return "", false, NewDownloadError(workerID, fmt.Sprintf("下载 %s: %v", objectKey, err))
	}
	text, err := s.extractDocumentText(ctx, objectKey, data)
	if err != nil {
		return "", false, NewExtractError(workerID, err.Error())
	}
	if len(strings.TrimSpace(text)) < constants.MinExtractedTextLen {
		log.Warn().Str("object_key", objectKey).Msg("复核抽取文本过短，跳过该证件")
		return "", true, nil
	}
	return text, false, nil
}
