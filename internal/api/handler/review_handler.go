package handler

import (
	"context"
	"errors"
	"time"

	"onboard-agent-go/internal/config"
	"onboard-agent-go/internal/constants"
	"onboard-agent-go/internal/logger"
	"onboard-agent-go/internal/processor"
	"onboard-agent-go/internal/storage"
	"onboard-agent-go/internal/storage/models"

	"github.com/cloudwego/hertz/pkg/app"
	hzutils "github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"gorm.io/gorm"
)

// ReviewHandler 人工复核工作流接口：同步抽取、查看暂存结果、提交修订
type ReviewHandler struct {
	cfg     *config.Config
	storage *storage.Storage
	service processor.OnboardingService
}

// NewReviewHandler 创建复核接口处理器
func NewReviewHandler(cfg *config.Config, storageManager *storage.Storage, service processor.OnboardingService) *ReviewHandler {
	return &ReviewHandler{cfg: cfg, storage: storageManager, service: service}
}

// HandleProcessOCR 同步抽取工人当前证件到待复核暂存区
func (h *ReviewHandler) HandleProcessOCR(c context.Context, ctx *app.RequestContext) {
	workerID := ctx.Param("worker_id")

	pending, err := h.service.ExtractForReview(c, workerID)
	if err != nil {
		if errors.Is(err, processor.ErrNoDocumentsUploaded) {
			ctx.JSON(consts.StatusBadRequest, hzutils.H{"error": "No documents uploaded for this worker"})
			return
		}
		logger.Ctx(c).Error().Err(err).Str("worker_id", workerID).Msg("复核抽取失败")
		ctx.JSON(consts.StatusInternalServerError, hzutils.H{"error": "OCR processing failed"})
		return
	}

	ctx.JSON(consts.StatusOK, hzutils.H{
		"status":         "extracted",
		"worker_id":      workerID,
		"personal_data":  pending.PersonalData,
		"education_data": pending.EducationData,
	})
}

// HandleGetOCRResults 查看待复核抽取结果
func (h *ReviewHandler) HandleGetOCRResults(c context.Context, ctx *app.RequestContext) {
	workerID := ctx.Param("worker_id")
	pending, err := h.storage.MySQL.GetPendingExtraction(c, workerID)
	if err != nil {
		if storage.IsNotFound(err) {
			ctx.JSON(consts.StatusNotFound, hzutils.H{"error": "No pending extraction for this worker"})
			return
		}
		ctx.JSON(consts.StatusInternalServerError, hzutils.H{"error": "查询待复核抽取失败"})
		return
	}
	ctx.JSON(consts.StatusOK, pending)
}

// ReviewSubmission 运营修订后的表单
type ReviewSubmission struct {
	Name          string `json:"name"`
	DOB           string `json:"dob"`
	Address       string `json:"address"`
	Qualification string `json:"qualification"`
	Board         string `json:"board"`
	YearOfPassing string `json:"year_of_passing"`
	SchoolName    string `json:"school_name"`
	Stream        string `json:"stream"`
	MarksType     string `json:"marks_type"`
	Marks         string `json:"marks"`
}

// HandleSubmitReview 提交修订：个人字段+学历记录落库、删除暂存行、
// 外呼请求写outbox，全部在一个事务里
func (h *ReviewHandler) HandleSubmitReview(c context.Context, ctx *app.RequestContext) {
	workerID := ctx.Param("worker_id")
	var req ReviewSubmission
	if err := ctx.Bind(&req); err != nil {
		ctx.JSON(consts.StatusBadRequest, hzutils.H{"error": "请求体解析失败"})
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

	payload := storage.VoiceCallRequestedMessage{
		WorkerID:    workerID,
		PhoneNumber: worker.MobileNumber,
		WorkerName:  req.Name,
		RequestedAt: time.Now(),
	}

	err = h.storage.MySQL.DB().WithContext(c).Transaction(func(tx *gorm.DB) error {
		workerUpdates := map[string]interface{}{
			"name":                    req.Name,
			"dob":                     processor.NormalizeDate(req.DOB),
			"address":                 req.Address,
			"personal_extracted_name": processor.NormalizeName(req.Name),
			"personal_extracted_dob":  processor.NormalizeDate(req.DOB),
		}
		if err := tx.Model(&models.Worker{}).Where("worker_id = ?", workerID).
			Updates(workerUpdates).Error; err != nil {
			return err
		}

		if req.Qualification != "" {
			doc := &models.EducationalDocument{
				WorkerID:           workerID,
				Qualification:      req.Qualification,
				Board:              req.Board,
				YearOfPassing:      req.YearOfPassing,
				SchoolName:         req.SchoolName,
				Stream:             req.Stream,
				MarksType:          req.MarksType,
				Marks:              req.Marks,
				ExtractedName:      processor.NormalizeName(req.Name),
				ExtractedDOB:       processor.NormalizeDate(req.DOB),
				VerificationStatus: constants.StatusVerificationVerified,
			}
			if err := tx.Create(doc).Error; err != nil {
				return err
			}
		}

		if err := tx.Where("worker_id = ?", workerID).
			Delete(&models.PendingExtraction{}).Error; err != nil {
			return err
		}

		outboxMsg := &models.OutboxMessage{
			AggregateID:      workerID,
			EventType:        "voice.call.requested",
			Payload:          string(models.ToJSON(payload)),
			TargetExchange:   h.cfg.RabbitMQ.VoiceEventsExchange,
			TargetRoutingKey: h.cfg.RabbitMQ.VoiceCallRoutingKey,
			Status:           constants.OutboxStatusPending,
		}
		return h.storage.MySQL.CreateOutboxMessage(tx, outboxMsg)
	})
	if err != nil {
		logger.Ctx(c).Error().Err(err).Str("worker_id", workerID).Msg("提交复核修订失败")
		ctx.JSON(consts.StatusInternalServerError, hzutils.H{"error": "提交失败，请稍后重试"})
		return
	}

	logger.Ctx(c).Info().Str("worker_id", workerID).Msg("复核修订提交成功")
	ctx.JSON(consts.StatusOK, hzutils.H{
		"status":  "submitted",
		"message": "Your form is submitted successfully. We will call you within 24 hours.",
	})
}
