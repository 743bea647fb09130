package handler

import (
	"context"
	"errors"
	"strings"
	"time"

	"onboard-agent-go/internal/config"
	"onboard-agent-go/internal/constants"
	"onboard-agent-go/internal/logger"
	"onboard-agent-go/internal/processor"
	"onboard-agent-go/internal/storage"
	"onboard-agent-go/internal/storage/models"
	"onboard-agent-go/pkg/utils"

	"github.com/cloudwego/hertz/pkg/app"
	hzutils "github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
)

// errWorkerUnresolved 转写无法关联到任何工人
var errWorkerUnresolved = errors.New("worker could not be resolved for transcript")

// VoiceHandler 语音外呼回调与转写接口
type VoiceHandler struct {
	cfg     *config.Config
	storage *storage.Storage
	service processor.OnboardingService
}

// NewVoiceHandler 创建语音接口处理器
func NewVoiceHandler(cfg *config.Config, storageManager *storage.Storage, service processor.OnboardingService) *VoiceHandler {
	return &VoiceHandler{cfg: cfg, storage: storageManager, service: service}
}

// CallWebhookRequest 语音Agent的状态回调
type CallWebhookRequest struct {
	CallID      string                 `json:"call_id"`
	WorkerID    string                 `json:"worker_id"`
	PhoneNumber string                 `json:"phone_number"`
	Status      string                 `json:"status"`
	CurrentStep string                 `json:"current_step"`
	Responses   map[string]interface{} `json:"responses"`
}

// HandleCallWebhook 按call_id upsert语音会话状态
func (h *VoiceHandler) HandleCallWebhook(c context.Context, ctx *app.RequestContext) {
	var req CallWebhookRequest
	if err := ctx.Bind(&req); err != nil {
		ctx.JSON(consts.StatusBadRequest, hzutils.H{"error": "请求体解析失败"})
		return
	}
	if req.CallID == "" {
		ctx.JSON(consts.StatusBadRequest, hzutils.H{"error": "call_id is required"})
		return
	}

	session := &models.VoiceSession{
		CallID:      req.CallID,
		WorkerID:    req.WorkerID,
		PhoneNumber: utils.DigitsOnly(req.PhoneNumber),
		Status:      req.Status,
		CurrentStep: req.CurrentStep,
	}
	if session.Status == "" {
		session.Status = constants.StatusCallInProgress
	}
	if req.Responses != nil {
		session.Responses = models.ToJSON(req.Responses)
	}
	if err := h.storage.MySQL.UpsertVoiceSession(c, session); err != nil {
		logger.Ctx(c).Error().Err(err).Str("call_id", req.CallID).Msg("upsert语音会话失败")
		ctx.JSON(consts.StatusInternalServerError, hzutils.H{"error": "保存会话状态失败"})
		return
	}

	// Redis热缓存尽力而为，语音Agent高频查进度时减轻MySQL压力
	if h.storage.Redis != nil {
		if err := h.storage.Redis.CacheVoiceSession(c, req.CallID, session, 30*time.Minute); err != nil {
			logger.Ctx(c).Warn().Err(err).Str("call_id", req.CallID).Msg("缓存语音会话失败")
		}
	}

	ctx.JSON(consts.StatusOK, hzutils.H{"status": "updated", "call_id": req.CallID})
}

// TranscriptSubmitRequest 通话转写提交
type TranscriptSubmitRequest struct {
	CallID      string `json:"call_id"`
	WorkerID    string `json:"worker_id"`
	PhoneNumber string `json:"phone_number"`
	Transcript  string `json:"transcript"`
}

// HandleTranscriptSubmit 接收整通转写：落到会话上并发布转写消息，LLM提取走异步消费者
func (h *VoiceHandler) HandleTranscriptSubmit(c context.Context, ctx *app.RequestContext) {
	var req TranscriptSubmitRequest
	if err := ctx.Bind(&req); err != nil {
		ctx.JSON(consts.StatusBadRequest, hzutils.H{"error": "请求体解析失败"})
		return
	}
	if req.CallID == "" || strings.TrimSpace(req.Transcript) == "" {
		ctx.JSON(consts.StatusBadRequest, hzutils.H{"error": "call_id and transcript are required"})
		return
	}

	workerID, err := h.resolveWorkerID(c, &req)
	if err != nil {
		ctx.JSON(consts.StatusNotFound, hzutils.H{"error": "Worker not found for this transcript"})
		return
	}

	session := &models.VoiceSession{
		CallID:      req.CallID,
		WorkerID:    workerID,
		PhoneNumber: utils.DigitsOnly(req.PhoneNumber),
		Status:      constants.StatusCallCompleted,
	}
	if err := h.storage.MySQL.UpsertVoiceSession(c, session); err != nil {
		logger.Ctx(c).Error().Err(err).Str("call_id", req.CallID).Msg("upsert语音会话失败")
		ctx.JSON(consts.StatusInternalServerError, hzutils.H{"error": "保存会话失败"})
		return
	}
	if err := h.storage.MySQL.UpdateVoiceSessionFields(c, req.CallID, map[string]interface{}{
		"transcript": req.Transcript,
		"exp_ready":  false,
	}); err != nil {
		logger.Ctx(c).Error().Err(err).Str("call_id", req.CallID).Msg("保存转写失败")
		ctx.JSON(consts.StatusInternalServerError, hzutils.H{"error": "保存转写失败"})
		return
	}

	message := &storage.TranscriptReceivedMessage{
		CallID:        req.CallID,
		WorkerID:      workerID,
		PhoneNumber:   utils.DigitsOnly(req.PhoneNumber),
		Transcript:    req.Transcript,
		TranscriptMD5: utils.CalculateMD5([]byte(req.Transcript)),
		ReceivedAt:    time.Now(),
	}
	if h.storage.RabbitMQ != nil {
		if err := h.storage.RabbitMQ.PublishTranscriptReceived(c, message); err != nil {
			logger.Ctx(c).Error().Err(err).Str("call_id", req.CallID).Msg("发布转写消息失败")
			ctx.JSON(consts.StatusInternalServerError, hzutils.H{"error": "转写已保存但处理消息发布失败"})
			return
		}
	}

	logger.Ctx(c).Info().
		Str("call_id", req.CallID).
		Str("worker_id", workerID).
		Int("transcript_len", len(req.Transcript)).
		Msg("转写提交成功")
	ctx.JSON(consts.StatusOK, hzutils.H{
		"status":    "received",
		"call_id":   req.CallID,
		"worker_id": workerID,
	})
}

// resolveWorkerID 按 显式worker_id → 手机号反查 → 会话上的worker 的顺序定位工人
func (h *VoiceHandler) resolveWorkerID(c context.Context, req *TranscriptSubmitRequest) (string, error) {
	if req.WorkerID != "" {
		return req.WorkerID, nil
	}
	if phone := utils.DigitsOnly(req.PhoneNumber); phone != "" {
		if worker, err := h.storage.MySQL.GetLatestWorkerByMobile(c, phone); err == nil {
			return worker.WorkerID, nil
		}
	}
	session, err := h.storage.MySQL.GetVoiceSession(c, req.CallID)
	if err != nil || session.WorkerID == "" {
		return "", errWorkerUnresolved
	}
	return session.WorkerID, nil
}

// ExperienceConfirmRequest 经验确认与修订
type ExperienceConfirmRequest struct {
	CallID string                 `json:"call_id"`
	Edits  map[string]interface{} `json:"edits"`
}

// HandleExperienceConfirm 经验确认：要求消费者已完成整合（exp_ready），
// 带修订时把修订字段覆盖到正式经验记录上
func (h *VoiceHandler) HandleExperienceConfirm(c context.Context, ctx *app.RequestContext) {
	var req ExperienceConfirmRequest
	if err := ctx.Bind(&req); err != nil {
		ctx.JSON(consts.StatusBadRequest, hzutils.H{"error": "请求体解析失败"})
		return
	}
	if req.CallID == "" {
		ctx.JSON(consts.StatusBadRequest, hzutils.H{"error": "call_id is required"})
		return
	}

	session, err := h.storage.MySQL.GetVoiceSession(c, req.CallID)
	if err != nil {
		if storage.IsNotFound(err) {
			ctx.JSON(consts.StatusNotFound, hzutils.H{"error": "Voice session not found"})
			return
		}
		ctx.JSON(consts.StatusInternalServerError, hzutils.H{"error": "查询会话失败"})
		return
	}
	if !session.ExpReady {
		ctx.JSON(consts.StatusConflict, hzutils.H{
			"status":  "processing",
			"message": "Experience extraction is still processing. Please try again shortly.",
		})
		return
	}

	exp, err := h.storage.MySQL.GetWorkExperience(c, session.WorkerID)
	if err != nil {
		if storage.IsNotFound(err) {
			ctx.JSON(consts.StatusNotFound, hzutils.H{"error": "Experience data not found. Complete experience collection first."})
			return
		}
		ctx.JSON(consts.StatusInternalServerError, hzutils.H{"error": "查询经验记录失败"})
		return
	}

	if len(req.Edits) > 0 {
		applyExperienceEdits(exp, req.Edits)
		if err := h.storage.MySQL.SaveWorkExperience(c, exp); err != nil {
			logger.Ctx(c).Error().Err(err).Str("worker_id", session.WorkerID).Msg("保存经验修订失败")
			ctx.JSON(consts.StatusInternalServerError, hzutils.H{"error": "保存经验修订失败"})
			return
		}
		h.requestCVRefresh(c, session.WorkerID)
	}

	ctx.JSON(consts.StatusOK, hzutils.H{
		"status":     "confirmed",
		"worker_id":  session.WorkerID,
		"experience": exp,
	})
}

// requestCVRefresh 经验被修订后，若该工人已生成过CV则投递异步再生成消息，
// 让CV消费者刷新旧文件；失败只记日志，不影响确认响应
func (h *VoiceHandler) requestCVRefresh(c context.Context, workerID string) {
	if h.storage.RabbitMQ == nil {
		return
	}
	record, err := h.storage.MySQL.GetCVRecord(c, workerID)
	if err != nil || !record.HasCV {
		return
	}
	msg := &storage.CVRequestedMessage{
		WorkerID:    workerID,
		RequestedAt: time.Now(),
		Reason:      "experience_updated",
	}
	if err := h.storage.RabbitMQ.PublishCVRequested(c, msg); err != nil {
		logger.Ctx(c).Warn().Err(err).Str("worker_id", workerID).Msg("投递CV再生成消息失败")
	}
}

// applyExperienceEdits 把运营/工人修订的字段覆盖到经验记录上，只认识白名单字段
func applyExperienceEdits(exp *models.WorkExperience, edits map[string]interface{}) {
	if v, ok := edits["primary_skill"].(string); ok && v != "" {
		exp.PrimarySkill = v
	}
	if v, ok := edits["experience_years"].(float64); ok && v >= 0 {
		exp.ExperienceYearsFloat = v
		exp.ExperienceYears = int(v)
		exp.TotalExperienceMonths = int(v * 12)
	}
	if v, ok := edits["skills"].(string); ok && v != "" {
		exp.Skills = v
	}
	if v, ok := edits["preferred_location"].(string); ok && v != "" {
		exp.PreferredLocation = v
	}
	if v, ok := edits["current_location"].(string); ok && v != "" {
		exp.CurrentLocation = v
	}
	if v, ok := edits["availability"].(string); ok && v != "" {
		exp.Availability = v
	}
}
