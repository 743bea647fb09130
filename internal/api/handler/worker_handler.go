package handler

import (
	"context"
	"time"

	"onboard-agent-go/internal/config"
	"onboard-agent-go/internal/constants"
	"onboard-agent-go/internal/logger"
	"onboard-agent-go/internal/storage"
	"onboard-agent-go/internal/storage/models"
	"onboard-agent-go/pkg/utils"

	"github.com/cloudwego/hertz/pkg/app"
	hzutils "github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/gofrs/uuid/v5"
	"gorm.io/gorm"
)

// WorkerHandler 工人注册与主数据接口
type WorkerHandler struct {
	cfg     *config.Config
	storage *storage.Storage
}

// NewWorkerHandler 创建工人接口处理器
func NewWorkerHandler(cfg *config.Config, storageManager *storage.Storage) *WorkerHandler {
	return &WorkerHandler{cfg: cfg, storage: storageManager}
}

// SignupRequest 报名表单
type SignupRequest struct {
	MobileNumber string `json:"mobile_number" form:"mobile_number"`
	Consent      bool   `json:"consent" form:"consent"`
}

// HandleSignup 报名注册：校验同意条款与10位手机号，总是创建新工人
func (h *WorkerHandler) HandleSignup(c context.Context, ctx *app.RequestContext) {
	var req SignupRequest
	if err := ctx.Bind(&req); err != nil {
		ctx.JSON(consts.StatusBadRequest, hzutils.H{"error": "请求体解析失败"})
		return
	}

	if !req.Consent {
		ctx.JSON(consts.StatusBadRequest, hzutils.H{"error": "Please accept the consent checkbox."})
		return
	}
	mobile := utils.DigitsOnly(req.MobileNumber)
	if len(mobile) != 10 {
		ctx.JSON(consts.StatusBadRequest, hzutils.H{"error": "Invalid mobile number. Please enter a 10-digit number."})
		return
	}

	// 同号历史记录只用来回显进度标记，注册本身总是新建工人
	var hasExperience, hasCV bool
	isNewWorker := true
	if previous, err := h.storage.MySQL.GetLatestWorkerByMobile(c, mobile); err == nil && previous != nil {
		isNewWorker = false
		if _, expErr := h.storage.MySQL.GetWorkExperience(c, previous.WorkerID); expErr == nil {
			hasExperience = true
		}
		if record, cvErr := h.storage.MySQL.GetCVRecord(c, previous.WorkerID); cvErr == nil && record.HasCV {
			hasCV = true
		}
	}

	uuidV7, err := uuid.NewV7()
	if err != nil {
		ctx.JSON(consts.StatusInternalServerError, hzutils.H{"error": "生成工人ID失败"})
		return
	}
	worker := &models.Worker{
		WorkerID:           uuidV7.String(),
		MobileNumber:       mobile,
		VerificationStatus: constants.StatusVerificationPending,
	}
	if err := h.storage.MySQL.CreateWorker(c, worker); err != nil {
		logger.Ctx(c).Error().Err(err).Msg("创建工人记录失败")
		ctx.JSON(consts.StatusInternalServerError, hzutils.H{"error": "创建工人记录失败"})
		return
	}

	logger.Ctx(c).Info().Str("worker_id", worker.WorkerID).Bool("is_new_worker", isNewWorker).Msg("工人报名成功")
	ctx.JSON(consts.StatusOK, hzutils.H{
		"worker_id":      worker.WorkerID,
		"is_new_worker":  isNewWorker,
		"has_experience": hasExperience,
		"has_cv":         hasCV,
	})
}

// HandleGetWorkerData 工人全量快照：验证状态、证件路径、抽取进度、经验与CV标记
func (h *WorkerHandler) HandleGetWorkerData(c context.Context, ctx *app.RequestContext) {
	workerID := ctx.Param("worker_id")
	worker, err := h.storage.MySQL.GetWorkerByID(c, workerID)
	if err != nil {
		if storage.IsNotFound(err) {
			ctx.JSON(consts.StatusNotFound, hzutils.H{"error": "Worker not found"})
			return
		}
		ctx.JSON(consts.StatusInternalServerError, hzutils.H{"error": "查询工人失败"})
		return
	}

	docs, err := h.storage.MySQL.ListEducationalDocuments(c, workerID)
	if err != nil {
		ctx.JSON(consts.StatusInternalServerError, hzutils.H{"error": "查询学历证件失败"})
		return
	}

	eduPaths := worker.EducationalPathList()
	pendingDocs := 0
	for _, d := range docs {
		if d.VerificationStatus == constants.StatusVerificationPending {
			pendingDocs++
		}
	}
	// 已上传但尚未出现在抽取结果里的学历证件仍在流水线里
	processingDocs := len(eduPaths) - len(docs)
	if processingDocs < 0 {
		processingDocs = 0
	}

	hasExperience := false
	if _, err := h.storage.MySQL.GetWorkExperience(c, workerID); err == nil {
		hasExperience = true
	}
	hasCV := false
	if record, err := h.storage.MySQL.GetCVRecord(c, workerID); err == nil && record.HasCV {
		hasCV = true
	}

	var verificationErrors interface{}
	if len(worker.VerificationErrors) > 0 {
		verificationErrors = worker.VerificationErrors
	}

	ctx.JSON(consts.StatusOK, hzutils.H{
		"worker_id":                  worker.WorkerID,
		"mobile_number":              worker.MobileNumber,
		"name":                       worker.Name,
		"dob":                        worker.DOB,
		"address":                    worker.Address,
		"verification_status":        worker.VerificationStatus,
		"verified_at":                worker.VerifiedAt,
		"verification_errors":        verificationErrors,
		"personal_document_path":     worker.PersonalDocumentPath,
		"educational_document_paths": eduPaths,
		"video_url":                  worker.VideoURL,
		"educational_documents":      docs,
		"pending_documents":          pendingDocs,
		"processing_documents":       processingDocs,
		"has_experience":             hasExperience,
		"has_cv":                     hasCV,
	})
}

// HandleGetWorkerByMobile 按手机号取最新工人
func (h *WorkerHandler) HandleGetWorkerByMobile(c context.Context, ctx *app.RequestContext) {
	mobile := utils.DigitsOnly(ctx.Param("mobile"))
	worker, err := h.storage.MySQL.GetLatestWorkerByMobile(c, mobile)
	if err != nil {
		if storage.IsNotFound(err) {
			ctx.JSON(consts.StatusNotFound, hzutils.H{"error": "Worker not found with this mobile number"})
			return
		}
		ctx.JSON(consts.StatusInternalServerError, hzutils.H{"error": "查询工人失败"})
		return
	}
	ctx.JSON(consts.StatusOK, hzutils.H{
		"worker_id":           worker.WorkerID,
		"mobile_number":       worker.MobileNumber,
		"name":                worker.Name,
		"verification_status": worker.VerificationStatus,
		"created_at":          worker.CreatedAt,
	})
}

// HandleDeleteWorkerData 删除工人的证件数据，data_type ∈ {personal, educational, both}
func (h *WorkerHandler) HandleDeleteWorkerData(c context.Context, ctx *app.RequestContext) {
	workerID := ctx.Param("worker_id")
	dataType := ctx.Param("data_type")
	if dataType != constants.DocumentKindPersonal && dataType != constants.DocumentKindEducational && dataType != "both" {
		ctx.JSON(consts.StatusBadRequest, hzutils.H{"error": "data_type must be personal, educational or both"})
		return
	}

	worker, err := h.storage.MySQL.GetWorkerByID(c, workerID)
	if err != nil {
		if storage.IsNotFound(err) {
			ctx.JSON(consts.StatusNotFound, hzutils.H{"error": "Worker not found"})
			return
		}
		ctx.JSON(consts.StatusInternalServerError, hzutils.H{"error": "查询工人失败"})
		return
	}

	// 先收集要清理的MinIO对象键，DB删除成功后尽力移除
	var objectKeys []string
	if dataType == constants.DocumentKindPersonal || dataType == "both" {
		if worker.PersonalDocumentPath != "" {
			objectKeys = append(objectKeys, worker.PersonalDocumentPath)
		}
	}
	if dataType == constants.DocumentKindEducational || dataType == "both" {
		objectKeys = append(objectKeys, worker.EducationalPathList()...)
	}

	if err := h.storage.MySQL.DeleteWorkerData(c, workerID, dataType); err != nil {
		logger.Ctx(c).Error().Err(err).Str("data_type", dataType).Msg("删除工人数据失败")
		ctx.JSON(consts.StatusInternalServerError, hzutils.H{"error": "删除工人数据失败"})
		return
	}

	for _, key := range objectKeys {
		if err := h.storage.MinIO.DeleteDocument(c, key); err != nil {
			logger.Ctx(c).Warn().Err(err).Str("object_key", key).Msg("删除MinIO对象失败")
		}
	}

	ctx.JSON(consts.StatusOK, hzutils.H{
		"status":    "deleted",
		"worker_id": workerID,
		"data_type": dataType,
	})
}

// HandleFinalSubmit 最终提交：校验前置条件后把外呼请求写入outbox，
// 与工人状态更新同一事务，中继异步投递给语音Agent调度
func (h *WorkerHandler) HandleFinalSubmit(c context.Context, ctx *app.RequestContext) {
	workerID := ctx.Param("worker_id")
	worker, err := h.storage.MySQL.GetWorkerByID(c, workerID)
	if err != nil {
		if storage.IsNotFound(err) {
			ctx.JSON(consts.StatusNotFound, hzutils.H{"error": "Worker not found"})
			return
		}
		ctx.JSON(consts.StatusInternalServerError, hzutils.H{"error": "查询工人失败"})
		return
	}

	if worker.MobileNumber == "" {
		ctx.JSON(consts.StatusBadRequest, hzutils.H{"error": "Worker has no mobile number"})
		return
	}
	if h.cfg.VoiceAgent.DispatchURL == "" {
		ctx.JSON(consts.StatusServiceUnavailable, hzutils.H{"error": "Voice agent is not configured"})
		return
	}
	if worker.PersonalDocumentPath == "" {
		ctx.JSON(consts.StatusBadRequest, hzutils.H{"error": "Upload a personal document before final submit"})
		return
	}

	payload := storage.VoiceCallRequestedMessage{
		WorkerID:    workerID,
		PhoneNumber: worker.MobileNumber,
		WorkerName:  worker.Name,
		RequestedAt: time.Now(),
	}
	payloadJSON := string(models.ToJSON(payload))

	err = h.storage.MySQL.DB().WithContext(c).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Worker{}).Where("worker_id = ?", workerID).
			Update("updated_at", time.Now()).Error; err != nil {
			return err
		}
		outboxMsg := &models.OutboxMessage{
			AggregateID:      workerID,
			EventType:        "voice.call.requested",
			Payload:          payloadJSON,
			TargetExchange:   h.cfg.RabbitMQ.VoiceEventsExchange,
			TargetRoutingKey: h.cfg.RabbitMQ.VoiceCallRoutingKey,
			Status:           constants.OutboxStatusPending,
		}
		return h.storage.MySQL.CreateOutboxMessage(tx, outboxMsg)
	})
	if err != nil {
		logger.Ctx(c).Error().Err(err).Msg("写入外呼outbox失败")
		ctx.JSON(consts.StatusInternalServerError, hzutils.H{"error": "提交失败，请稍后重试"})
		return
	}

	logger.Ctx(c).Info().Str("worker_id", workerID).Msg("最终提交成功，外呼请求已入outbox")
	ctx.JSON(consts.StatusOK, hzutils.H{
		"status":  "submitted",
		"message": "Call will be made shortly",
	})
}
