package handler

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"onboard-agent-go/internal/config"
	"onboard-agent-go/internal/logger"
	"onboard-agent-go/internal/processor"
	"onboard-agent-go/internal/storage"

	"github.com/cloudwego/hertz/pkg/app"
	hzutils "github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
)

// pdfMagic PDF文件头，下载前用来校验产物有效性
var pdfMagic = []byte("%PDF")

// CVHandler 简历生成、预览与下载接口
type CVHandler struct {
	cfg          *config.Config
	storage      *storage.Storage
	service      processor.OnboardingService
	pdfConverter processor.HTMLToPDFConverter
}

// NewCVHandler 创建简历接口处理器，pdfConverter可为空（下载时不做现场补转）
func NewCVHandler(cfg *config.Config, storageManager *storage.Storage, service processor.OnboardingService, pdfConverter processor.HTMLToPDFConverter) *CVHandler {
	return &CVHandler{cfg: cfg, storage: storageManager, service: service, pdfConverter: pdfConverter}
}

// HandleGenerateCV 同步生成CV三件套并返回OSS路径
func (h *CVHandler) HandleGenerateCV(c context.Context, ctx *app.RequestContext) {
	workerID := ctx.Query("worker_id")
	if workerID == "" {
		ctx.JSON(consts.StatusBadRequest, hzutils.H{"error": "worker_id is required"})
		return
	}

	result, err := h.service.GenerateCV(c, workerID)
	if err != nil {
		switch {
		case errors.Is(err, processor.ErrWorkerNotFound):
			ctx.JSON(consts.StatusNotFound, hzutils.H{"error": "Worker not found"})
		case errors.Is(err, processor.ErrExperienceNotFound):
			ctx.JSON(consts.StatusBadRequest, hzutils.H{"error": "Experience data not found. Complete experience collection first."})
		default:
			logger.Ctx(c).Error().Err(err).Str("worker_id", workerID).Msg("CV生成失败")
			ctx.JSON(consts.StatusInternalServerError, hzutils.H{"error": "CV generation failed"})
		}
		return
	}

	ctx.JSON(consts.StatusOK, hzutils.H{
		"status":        "generated",
		"worker_id":     result.WorkerID,
		"html_path_oss": result.HTMLPathOSS,
		"text_path_oss": result.TextPathOSS,
		"pdf_path_oss":  result.PDFPathOSS,
		"pdf_file_name": result.PDFFileName,
		"generated_at":  result.GeneratedAt,
	})
}

// HandleCVPreview 返回已生成CV的HTML正文
func (h *CVHandler) HandleCVPreview(c context.Context, ctx *app.RequestContext) {
	workerID := ctx.Param("worker_id")
	if workerID == "" {
		ctx.JSON(consts.StatusBadRequest, hzutils.H{"error": "worker_id is required"})
		return
	}

	record, err := h.storage.MySQL.GetCVRecord(c, workerID)
	if err != nil {
		if storage.IsNotFound(err) {
			ctx.JSON(consts.StatusOK, hzutils.H{"status": "processing", "message": "Your resume is being generated. Please try again shortly."})
			return
		}
		ctx.JSON(consts.StatusInternalServerError, hzutils.H{"error": "查询CV记录失败"})
		return
	}

	if record.HTMLPathOSS == "" {
		// 只有PDF产物，没有可预览的HTML
		if record.PDFPathOSS != "" {
			ctx.JSON(consts.StatusNotFound, hzutils.H{"error": "CV HTML not found. Regenerate the CV to enable preview."})
			return
		}
		ctx.JSON(consts.StatusOK, hzutils.H{"status": "processing", "message": "Your resume is being generated. Please try again shortly."})
		return
	}

	htmlData, err := h.storage.MinIO.GetCVArtifact(c, record.HTMLPathOSS)
	if err != nil {
		logger.Ctx(c).Error().Err(err).Str("worker_id", workerID).Str("object_key", record.HTMLPathOSS).Msg("下载CV HTML失败")
		ctx.JSON(consts.StatusInternalServerError, hzutils.H{"error": "Failed to load CV preview"})
		return
	}

	ctx.Data(consts.StatusOK, "text/html; charset=utf-8", htmlData)
}

// HandleCVDownload 下载CV PDF，产物损坏时用存储的HTML现场补转一次
func (h *CVHandler) HandleCVDownload(c context.Context, ctx *app.RequestContext) {
	workerID := ctx.Param("worker_id")
	if workerID == "" {
		ctx.JSON(consts.StatusBadRequest, hzutils.H{"error": "worker_id is required"})
		return
	}

	record, err := h.storage.MySQL.GetCVRecord(c, workerID)
	if err != nil {
		if storage.IsNotFound(err) {
			ctx.JSON(consts.StatusOK, hzutils.H{"status": "processing", "message": "Your resume is being generated. Please try again shortly."})
			return
		}
		ctx.JSON(consts.StatusInternalServerError, hzutils.H{"error": "查询CV记录失败"})
		return
	}

	var pdfData []byte
	if record.PDFPathOSS != "" {
		data, fetchErr := h.storage.MinIO.GetCVArtifact(c, record.PDFPathOSS)
		if fetchErr != nil {
			logger.Ctx(c).Warn().Err(fetchErr).Str("worker_id", workerID).Str("object_key", record.PDFPathOSS).Msg("下载CV PDF失败，尝试HTML补转")
		} else if !bytes.HasPrefix(data, pdfMagic) {
			logger.Ctx(c).Warn().Str("worker_id", workerID).Str("object_key", record.PDFPathOSS).Msg("CV PDF产物损坏，尝试HTML补转")
		} else {
			pdfData = data
		}
	}

	if pdfData == nil {
		converted, convErr := h.convertFromStoredHTML(c, record.HTMLPathOSS)
		if convErr != nil {
			logger.Ctx(c).Error().Err(convErr).Str("worker_id", workerID).Msg("CV PDF补转失败")
			ctx.JSON(consts.StatusNotFound, hzutils.H{"error": "CV PDF not found. Generate the CV first."})
			return
		}
		pdfData = converted
	}

	fileName := downloadFileName(c, h.storage, workerID)
	ctx.Response.Header.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", fileName))
	ctx.Data(consts.StatusOK, "application/pdf", pdfData)
}

// convertFromStoredHTML 取存储的HTML重新转一份PDF
func (h *CVHandler) convertFromStoredHTML(c context.Context, htmlKey string) ([]byte, error) {
	if htmlKey == "" {
		return nil, errors.New("no html artifact to convert")
	}
	if h.pdfConverter == nil {
		return nil, errors.New("pdf converter is not configured")
	}
	htmlData, err := h.storage.MinIO.GetCVArtifact(c, htmlKey)
	if err != nil {
		return nil, fmt.Errorf("下载CV HTML失败: %w", err)
	}
	pdfData, err := h.pdfConverter.ConvertHTMLToPDF(c, string(htmlData))
	if err != nil {
		return nil, fmt.Errorf("HTML转PDF失败: %w", err)
	}
	if !bytes.HasPrefix(pdfData, pdfMagic) {
		return nil, errors.New("补转结果不是有效PDF")
	}
	return pdfData, nil
}

// downloadFileName 根据工人姓名组装下载文件名，取不到姓名时用worker_id兜底
func downloadFileName(c context.Context, storageManager *storage.Storage, workerID string) string {
	name := workerID
	if worker, err := storageManager.MySQL.GetWorkerByID(c, workerID); err == nil && worker.Name != "" {
		name = worker.Name
	}
	return fmt.Sprintf("%s_Resume.pdf", processor.SanitizeNameForFilename(name))
}
