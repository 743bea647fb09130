package processor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"onboard-agent-go/internal/constants"
	"onboard-agent-go/internal/logger"
	"onboard-agent-go/internal/storage"
	"onboard-agent-go/internal/storage/models"
	"onboard-agent-go/internal/types"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var (
	// ErrWorkerNotFound 工人记录不存在，HTTP层映射404
	ErrWorkerNotFound = errors.New("worker not found")
	// ErrExperienceNotFound 工作经验尚未采集，HTTP层映射400
	ErrExperienceNotFound = errors.New("experience data not found")
)

// CVGenerationResult 是GenerateCV的返回值，携带三份产物的对象键
type CVGenerationResult struct {
	WorkerID    string    `json:"worker_id"`
	HTMLPathOSS string    `json:"html_path_oss"`
	TextPathOSS string    `json:"text_path_oss"`
	PDFPathOSS  string    `json:"pdf_path_oss"`
	PDFFileName string    `json:"pdf_file_name"`
	GeneratedAt time.Time `json:"generated_at"`
}

// GenerateCV 为工人生成CV三件套并上传MinIO：
// HTML主渲染、纯文本镜像、HTML转PDF。三份都落库到cv_records，
// 最后尽力把经验档案向量写入Qdrant供岗位反向匹配，向量失败不影响CV结果。
func (s *onboardingServiceImpl) GenerateCV(ctx context.Context, workerID string) (*CVGenerationResult, error) {
	ctx, span := tracer.Start(ctx, "OnboardingService.GenerateCV")
	defer span.End()
	span.SetAttributes(attribute.String("worker_id", workerID))

	ctx = logger.WithWorkerID(ctx, workerID)
	log := logger.Ctx(ctx)

	if s.components.Storage == nil {
		return nil, ErrStorageNotInit
	}
	if s.components.PDFConverter == nil {
		return nil, ErrConverterNotInit
	}

	worker, err := s.components.Storage.MySQL.GetWorkerByID(ctx, workerID)
	if err != nil {
		if storage.IsNotFound(err) {
			return nil, ErrWorkerNotFound
		}
		return nil, NewDatabaseError(workerID, fmt.Sprintf("查询工人: %v", err))
	}

	exp, err := s.components.Storage.MySQL.GetWorkExperience(ctx, workerID)
	if err != nil {
		if storage.IsNotFound(err) {
			return nil, ErrExperienceNotFound
		}
		return nil, NewDatabaseError(workerID, fmt.Sprintf("查询工作经验: %v", err))
	}

	docs, err := s.components.Storage.MySQL.ListEducationalDocuments(ctx, workerID)
	if err != nil {
		return nil, NewDatabaseError(workerID, fmt.Sprintf("查询学历证件: %v", err))
	}

	personal := types.CVPersonal{
		Name:    worker.Name,
		Mobile:  worker.MobileNumber,
		DOB:     worker.DOB,
		Address: worker.Address,
	}
	profile := profileFromExperience(exp)
	education := educationRows(docs)

	html, err := RenderHTML(personal, profile, exp.TotalExperienceMonths, education)
	if err != nil {
		return nil, NewCVRenderError(workerID, err.Error())
	}
	text := RenderText(personal, profile, exp.TotalExperienceMonths, education)

	pdfData, err := s.components.PDFConverter.ConvertHTMLToPDF(ctx, html)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, NewCVRenderError(workerID, fmt.Sprintf("HTML转PDF: %v", err))
	}

	// 上传三份产物，PDF对象键带上工人姓名方便人工直接下载转发
	pdfFileName := fmt.Sprintf("%s_Resume.pdf", SanitizeNameForFilename(worker.Name))
	htmlKey := fmt.Sprintf("cv/%s/cv.html", workerID)
	textKey := fmt.Sprintf("cv/%s/cv.txt", workerID)
	pdfKey := fmt.Sprintf("cv/%s/%s", workerID, pdfFileName)

	if _, err := s.components.Storage.MinIO.UploadCVArtifact(ctx, htmlKey, []byte(html), "text/html; charset=utf-8"); err != nil {
		return nil, NewStoreError(workerID, fmt.Sprintf("上传CV HTML: %v", err))
	}
	if _, err := s.components.Storage.MinIO.UploadCVArtifact(ctx, textKey, []byte(text), "text/plain; charset=utf-8"); err != nil {
		return nil, NewStoreError(workerID, fmt.Sprintf("上传CV文本: %v", err))
	}
	if _, err := s.components.Storage.MinIO.UploadCVArtifact(ctx, pdfKey, pdfData, "application/pdf"); err != nil {
		return nil, NewStoreError(workerID, fmt.Sprintf("上传CV PDF: %v", err))
	}

	now := time.Now()
	record := &models.CVRecord{
		WorkerID:      workerID,
		HasCV:         true,
		HTMLPathOSS:   htmlKey,
		TextPathOSS:   textKey,
		PDFPathOSS:    pdfKey,
		CVGeneratedAt: &now,
	}
	if err := s.components.Storage.MySQL.UpsertCVRecord(ctx, record); err != nil {
		return nil, NewDatabaseError(workerID, fmt.Sprintf("保存CV记录: %v", err))
	}

	// 向量入库是尽力而为：失败记日志，不能让已生成的CV报错
	s.upsertCVVector(ctx, worker, profile)

	log.Info().
		Str("pdf_key", pdfKey).
		Int("pdf_bytes", len(pdfData)).
		Msg("CV生成完成")

	return &CVGenerationResult{
		WorkerID:    workerID,
		HTMLPathOSS: htmlKey,
		TextPathOSS: textKey,
		PDFPathOSS:  pdfKey,
		PDFFileName: pdfFileName,
		GeneratedAt: now,
	}, nil
}

func (s *onboardingServiceImpl) upsertCVVector(ctx context.Context, worker *models.Worker, profile *types.ExperienceProfile) {
	log := logger.Ctx(ctx)
	if s.components.CVEmbedder == nil || s.components.Storage.Qdrant == nil {
		log.Debug().Msg("向量组件未配置，跳过CV向量入库")
		return
	}

	embedding, err := s.components.CVEmbedder.EmbedProfile(ctx, worker.Name, profile, worker.Address)
	if err != nil {
		log.Warn().Err(err).Msg("经验档案向量化失败")
		return
	}
	if _, err := s.components.Storage.Qdrant.UpsertWorkerCVVector(ctx, worker.WorkerID, profile, embedding); err != nil {
		log.Warn().Err(err).Msg("CV向量写入Qdrant失败")
		return
	}
	log.Info().Int("dimensions", len(embedding)).Msg("CV向量入库完成")
}

// profileFromExperience 把落库的工作经验记录还原成经验档案
func profileFromExperience(exp *models.WorkExperience) *types.ExperienceProfile {
	return &types.ExperienceProfile{
		PrimarySkill:      exp.PrimarySkill,
		ExperienceYears:   exp.ExperienceYearsFloat,
		Skills:            splitSkillList(exp.Skills),
		CurrentLocation:   exp.CurrentLocation,
		PreferredLocation: exp.PreferredLocation,
		Availability:      exp.Availability,
		Workplaces:        exp.WorkplaceEntries(),
	}
}

// educationRows 把学历证件记录整理成CV展示行，核验通过的标记Verified
func educationRows(docs []models.EducationalDocument) []types.CVEducationRow {
	rows := make([]types.CVEducationRow, 0, len(docs))
	for _, d := range docs {
		rows = append(rows, types.CVEducationRow{
			Qualification: d.Qualification,
			Board:         d.Board,
			YearOfPassing: d.YearOfPassing,
			SchoolName:    d.SchoolName,
			Marks:         d.Marks,
			Verified:      d.VerificationStatus == constants.StatusVerificationVerified,
		})
	}
	return rows
}
