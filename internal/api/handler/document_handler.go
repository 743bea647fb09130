package handler

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"onboard-agent-go/internal/config"
	"onboard-agent-go/internal/constants"
	"onboard-agent-go/internal/logger"
	"onboard-agent-go/internal/storage"
	"onboard-agent-go/pkg/utils"

	"github.com/cloudwego/hertz/pkg/app"
	hzutils "github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
)

// DocumentHandler 证件与视频上传接口
type DocumentHandler struct {
	cfg     *config.Config
	storage *storage.Storage
}

// NewDocumentHandler 创建上传接口处理器
func NewDocumentHandler(cfg *config.Config, storageManager *storage.Storage) *DocumentHandler {
	return &DocumentHandler{cfg: cfg, storage: storageManager}
}

// HandlePersonalDocumentUpload 个人证件上传
func (h *DocumentHandler) HandlePersonalDocumentUpload(c context.Context, ctx *app.RequestContext) {
	h.handleDocumentUpload(c, ctx, constants.DocumentKindPersonal)
}

// HandleEducationalDocumentUpload 学历证件上传
func (h *DocumentHandler) HandleEducationalDocumentUpload(c context.Context, ctx *app.RequestContext) {
	h.handleDocumentUpload(c, ctx, constants.DocumentKindEducational)
}

// handleDocumentUpload 两类证件共用的上传流程：
// 校验 → MD5去重 → MinIO落盘 → 工人路径落库 → 发布DocumentUploadedMessage
func (h *DocumentHandler) handleDocumentUpload(c context.Context, ctx *app.RequestContext, kind string) {
	workerID := ctx.Query("worker_id")
	if workerID == "" {
		ctx.JSON(consts.StatusBadRequest, hzutils.H{"error": "worker_id is required"})
		return
	}
	if _, err := h.storage.MySQL.GetWorkerByID(c, workerID); err != nil {
		if storage.IsNotFound(err) {
			ctx.JSON(consts.StatusNotFound, hzutils.H{"error": "Worker not found"})
			return
		}
		ctx.JSON(consts.StatusInternalServerError, hzutils.H{"error": "查询工人失败"})
		return
	}

	fileHeader, err := ctx.FormFile("file")
	if err != nil {
		ctx.JSON(consts.StatusBadRequest, hzutils.H{"error": "文件未找到"})
		return
	}
	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	if !constants.AllowedDocumentExts[ext] {
		ctx.JSON(consts.StatusBadRequest, hzutils.H{"error": fmt.Sprintf("File type %s is not allowed", ext)})
		return
	}
	if fileHeader.Size == 0 {
		ctx.JSON(consts.StatusBadRequest, hzutils.H{"error": "Uploaded file is empty"})
		return
	}
	if fileHeader.Size > constants.MaxDocumentUploadBytes {
		ctx.JSON(consts.StatusBadRequest, hzutils.H{"error": "File size exceeds 2MB limit."})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		ctx.JSON(consts.StatusInternalServerError, hzutils.H{"error": "打开文件失败"})
		return
	}
	defer file.Close()

	fileBytes, err := io.ReadAll(file)
	if err != nil {
		ctx.JSON(consts.StatusInternalServerError, hzutils.H{"error": "读取文件失败"})
		return
	}

	// 内容级去重：同一份文件（不论文件名）只处理一次
	md5Hex := utils.CalculateMD5(fileBytes)
	if h.storage.Redis != nil {
		exists, dupWorkerID, err := h.storage.Redis.CheckAndSetFileMD5(c, md5Hex, workerID)
		if err != nil {
			logger.Ctx(c).Error().Err(err).Str("md5", md5Hex).Msg("文件MD5去重检查失败")
			ctx.JSON(consts.StatusInternalServerError, hzutils.H{"error": "文件去重检查失败"})
			return
		}
		if exists {
			logger.Ctx(c).Info().
				Str("md5", md5Hex).
				Str("duplicate_of", dupWorkerID).
				Msg("重复文件，跳过处理")
			ctx.JSON(consts.StatusOK, hzutils.H{
				"status":    "skipped",
				"worker_id": workerID,
				"reason":    "duplicate file",
			})
			return
		}
	}

	objectKey, _, err := h.storage.MinIO.UploadDocumentStreaming(
		c, workerID, kind, ext, bytes.NewReader(fileBytes), int64(len(fileBytes)))
	if err != nil {
		logger.Ctx(c).Error().Err(err).Msg("上传证件到MinIO失败")
		h.rollbackFileMD5(c, md5Hex)
		ctx.JSON(consts.StatusInternalServerError, hzutils.H{"error": "上传文件失败"})
		return
	}

	// 证件路径落到工人记录
	if kind == constants.DocumentKindPersonal {
		err = h.storage.MySQL.UpdateWorkerFields(c, workerID, map[string]interface{}{
			"personal_document_path": objectKey,
		})
	} else {
		err = h.storage.MySQL.AppendEducationalDocumentPath(c, workerID, objectKey)
	}
	if err != nil {
		logger.Ctx(c).Error().Err(err).Msg("保存证件路径失败")
		h.rollbackFileMD5(c, md5Hex)
		ctx.JSON(consts.StatusInternalServerError, hzutils.H{"error": "保存证件路径失败"})
		return
	}

	// 发布上传消息驱动异步抽取流水线
	message := &storage.DocumentUploadedMessage{
		WorkerID:      workerID,
		DocumentKind:  kind,
		ObjectKey:     objectKey,
		FileName:      fileHeader.Filename,
		FileSize:      int64(len(fileBytes)),
		RawFileMD5:    md5Hex,
		UploadedAt:    time.Now(),
		ContentType:   fileHeader.Header.Get("Content-Type"),
		SourceChannel: ctx.Query("source_channel"),
	}
	if h.storage.RabbitMQ != nil {
		if err := h.storage.RabbitMQ.PublishDocumentUploaded(c, message); err != nil {
			logger.Ctx(c).Error().Err(err).Str("object_key", objectKey).Msg("发布证件上传消息失败")
			ctx.JSON(consts.StatusInternalServerError, hzutils.H{"error": "文件已保存但处理消息发布失败"})
			return
		}
	}

	logger.Ctx(c).Info().
		Str("worker_id", workerID).
		Str("document_kind", kind).
		Str("object_key", objectKey).
		Msg("证件上传完成")
	ctx.JSON(consts.StatusOK, hzutils.H{
		"status":    "uploaded",
		"worker_id": workerID,
		"object_key": objectKey,
		"file_size": len(fileBytes),
	})
}

// HandleVideoUpload 自我介绍视频上传
func (h *DocumentHandler) HandleVideoUpload(c context.Context, ctx *app.RequestContext) {
	workerID := ctx.Query("worker_id")
	if workerID == "" {
		ctx.JSON(consts.StatusBadRequest, hzutils.H{"error": "worker_id is required"})
		return
	}
	if _, err := h.storage.MySQL.GetWorkerByID(c, workerID); err != nil {
		if storage.IsNotFound(err) {
			ctx.JSON(consts.StatusNotFound, hzutils.H{"error": "Worker not found"})
			return
		}
		ctx.JSON(consts.StatusInternalServerError, hzutils.H{"error": "查询工人失败"})
		return
	}

	fileHeader, err := ctx.FormFile("file")
	if err != nil {
		ctx.JSON(consts.StatusBadRequest, hzutils.H{"error": "文件未找到"})
		return
	}
	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	if !constants.AllowedVideoExts[ext] {
		ctx.JSON(consts.StatusBadRequest, hzutils.H{"error": fmt.Sprintf("Video type %s is not allowed", ext)})
		return
	}
	if fileHeader.Size == 0 {
		ctx.JSON(consts.StatusBadRequest, hzutils.H{"error": "Uploaded file is empty"})
		return
	}
	if fileHeader.Size > constants.MaxVideoUploadBytes {
		ctx.JSON(consts.StatusBadRequest, hzutils.H{"error": "File size exceeds 50MB limit."})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		ctx.JSON(consts.StatusInternalServerError, hzutils.H{"error": "打开文件失败"})
		return
	}
	defer file.Close()

	objectKey, err := h.storage.MinIO.UploadVideo(c, workerID, ext, file, fileHeader.Size)
	if err != nil {
		logger.Ctx(c).Error().Err(err).Msg("上传视频到MinIO失败")
		ctx.JSON(consts.StatusInternalServerError, hzutils.H{"error": "上传视频失败"})
		return
	}
	if err := h.storage.MySQL.UpdateWorkerFields(c, workerID, map[string]interface{}{
		"video_url": objectKey,
	}); err != nil {
		logger.Ctx(c).Error().Err(err).Msg("保存视频路径失败")
		ctx.JSON(consts.StatusInternalServerError, hzutils.H{"error": "保存视频路径失败"})
		return
	}

	ctx.JSON(consts.StatusOK, hzutils.H{
		"status":    "uploaded",
		"worker_id": workerID,
		"video_url": objectKey,
	})
}

func (h *DocumentHandler) rollbackFileMD5(c context.Context, md5Hex string) {
	if h.storage.Redis == nil {
		return
	}
	if err := h.storage.Redis.RemoveFileMD5(c, md5Hex); err != nil {
		logger.Ctx(c).Warn().Err(err).Str("md5", md5Hex).Msg("回滚文件MD5失败")
	}
}
