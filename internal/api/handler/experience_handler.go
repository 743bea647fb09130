package handler

import (
	"context"
	"encoding/json"

	"onboard-agent-go/internal/agent"
	"onboard-agent-go/internal/config"
	"onboard-agent-go/internal/constants"
	"onboard-agent-go/internal/logger"
	"onboard-agent-go/internal/processor"
	"onboard-agent-go/internal/storage"
	"onboard-agent-go/internal/storage/models"

	"github.com/cloudwego/eino/schema"
	"github.com/cloudwego/hertz/pkg/app"
	hzutils "github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/gofrs/uuid/v5"
)

// ExperienceHandler 问答式经验采集接口。
// 固定脚本逐题推进，最后一题答完走与语音通路相同的LLM整合。
type ExperienceHandler struct {
	cfg     *config.Config
	storage *storage.Storage
	service processor.OnboardingService
	memory  agent.ChatMemory // 可为空，仅用于运营侧回看对话
}

// NewExperienceHandler 创建问答接口处理器
func NewExperienceHandler(cfg *config.Config, storageManager *storage.Storage, service processor.OnboardingService, memory agent.ChatMemory) *ExperienceHandler {
	return &ExperienceHandler{cfg: cfg, storage: storageManager, service: service, memory: memory}
}

// StartSessionRequest 开始问答
type StartSessionRequest struct {
	WorkerID string `json:"worker_id"`
}

// HandleStart 创建问答会话并返回第0题（同意确认）
func (h *ExperienceHandler) HandleStart(c context.Context, ctx *app.RequestContext) {
	var req StartSessionRequest
	if err := ctx.Bind(&req); err != nil || req.WorkerID == "" {
		ctx.JSON(consts.StatusBadRequest, hzutils.H{"error": "worker_id is required"})
		return
	}
	if _, err := h.storage.MySQL.GetWorkerByID(c, req.WorkerID); err != nil {
		if storage.IsNotFound(err) {
			ctx.JSON(consts.StatusNotFound, hzutils.H{"error": "Worker not found"})
			return
		}
		ctx.JSON(consts.StatusInternalServerError, hzutils.H{"error": "查询工人失败"})
		return
	}

	uuidV7, err := uuid.NewV7()
	if err != nil {
		ctx.JSON(consts.StatusInternalServerError, hzutils.H{"error": "生成会话ID失败"})
		return
	}
	session := &models.ExperienceSession{
		SessionID:       uuidV7.String(),
		WorkerID:        req.WorkerID,
		CurrentQuestion: 0,
		RawConversation: models.ToJSON([]processor.ConversationTurn{}),
		Status:          constants.StatusSessionActive,
	}
	if err := h.storage.MySQL.CreateExperienceSession(c, session); err != nil {
		logger.Ctx(c).Error().Err(err).Msg("创建问答会话失败")
		ctx.JSON(consts.StatusInternalServerError, hzutils.H{"error": "创建会话失败"})
		return
	}

	question, _ := processor.ChatQuestionAt(0)
	h.mirrorToMemory(c, session.SessionID, schema.AssistantMessage(question.Text, nil))

	ctx.JSON(consts.StatusOK, hzutils.H{
		"session_id":      session.SessionID,
		"question":        question.Text,
		"question_key":    question.Key,
		"question_index":  0,
		"total_questions": processor.ChatQuestionCount(),
	})
}

// ChatRequest 一轮回答
type ChatRequest struct {
	SessionID string `json:"session_id"`
	Answer    string `json:"answer"`
}

// HandleChat 记录回答并推进问题指针；
// 同意环节拒绝则终止会话，最后一题答完触发LLM整合
func (h *ExperienceHandler) HandleChat(c context.Context, ctx *app.RequestContext) {
	var req ChatRequest
	if err := ctx.Bind(&req); err != nil || req.SessionID == "" {
		ctx.JSON(consts.StatusBadRequest, hzutils.H{"error": "session_id is required"})
		return
	}

	session, err := h.storage.MySQL.GetExperienceSession(c, req.SessionID)
	if err != nil {
		if storage.IsNotFound(err) {
			ctx.JSON(consts.StatusNotFound, hzutils.H{"error": "Session not found"})
			return
		}
		ctx.JSON(consts.StatusInternalServerError, hzutils.H{"error": "查询会话失败"})
		return
	}
	if session.Status != constants.StatusSessionActive {
		ctx.JSON(consts.StatusConflict, hzutils.H{"error": "Session is not active", "status": session.Status})
		return
	}

	question, ok := processor.ChatQuestionAt(session.CurrentQuestion)
	if !ok {
		ctx.JSON(consts.StatusConflict, hzutils.H{"error": "Session has no pending question"})
		return
	}

	turns := parseTurns(session.RawConversation)
	turns = append(turns, processor.ConversationTurn{Question: question.Text, Answer: req.Answer})
	h.mirrorToMemory(c, session.SessionID, schema.UserMessage(req.Answer))

	// 同意环节被拒绝，会话终止
	if question.Key == "consent" && processor.IsDeclinedConsent(req.Answer) {
		if err := h.storage.MySQL.UpdateExperienceSessionFields(c, req.SessionID, map[string]interface{}{
			"raw_conversation": models.ToJSON(turns),
			"status":           constants.StatusSessionDeclined,
		}); err != nil {
			ctx.JSON(consts.StatusInternalServerError, hzutils.H{"error": "更新会话失败"})
			return
		}
		ctx.JSON(consts.StatusOK, hzutils.H{
			"session_id": req.SessionID,
			"status":     constants.StatusSessionDeclined,
			"message":    "No problem. You can start again anytime.",
		})
		return
	}

	nextIndex := session.CurrentQuestion + 1
	if nextQuestion, more := processor.ChatQuestionAt(nextIndex); more {
		if err := h.storage.MySQL.UpdateExperienceSessionFields(c, req.SessionID, map[string]interface{}{
			"raw_conversation": models.ToJSON(turns),
			"current_question": nextIndex,
		}); err != nil {
			ctx.JSON(consts.StatusInternalServerError, hzutils.H{"error": "更新会话失败"})
			return
		}
		h.mirrorToMemory(c, req.SessionID, schema.AssistantMessage(nextQuestion.Text, nil))
		ctx.JSON(consts.StatusOK, hzutils.H{
			"session_id":      req.SessionID,
			"question":        nextQuestion.Text,
			"question_key":    nextQuestion.Key,
			"question_index":  nextIndex,
			"total_questions": processor.ChatQuestionCount(),
		})
		return
	}

	// 全部问题答完，复用语音通路的LLM整合
	outcome, err := h.service.ConsolidateExperience(c, session.WorkerID, processor.ConversationTranscript(turns))
	if err != nil {
		logger.Ctx(c).Error().Err(err).Str("session_id", req.SessionID).Msg("问答经验整合失败")
		ctx.JSON(consts.StatusInternalServerError, hzutils.H{"error": "经验提取失败，请稍后重试"})
		return
	}
	if err := h.storage.MySQL.UpdateExperienceSessionFields(c, req.SessionID, map[string]interface{}{
		"raw_conversation": models.ToJSON(turns),
		"current_question": nextIndex,
		"structured_data":  models.ToJSON(outcome.Profile),
		"status":           constants.StatusSessionCompleted,
	}); err != nil {
		ctx.JSON(consts.StatusInternalServerError, hzutils.H{"error": "更新会话失败"})
		return
	}

	ctx.JSON(consts.StatusOK, hzutils.H{
		"session_id": req.SessionID,
		"status":     constants.StatusSessionCompleted,
		"experience": outcome.Profile,
	})
}

// ExtractRequest 强制提取
type ExtractRequest struct {
	SessionID string `json:"session_id"`
}

// HandleExtract 对进行中的会话按当前已累计的对话强制跑一次LLM整合
func (h *ExperienceHandler) HandleExtract(c context.Context, ctx *app.RequestContext) {
	var req ExtractRequest
	if err := ctx.Bind(&req); err != nil || req.SessionID == "" {
		ctx.JSON(consts.StatusBadRequest, hzutils.H{"error": "session_id is required"})
		return
	}

	session, err := h.storage.MySQL.GetExperienceSession(c, req.SessionID)
	if err != nil {
		if storage.IsNotFound(err) {
			ctx.JSON(consts.StatusNotFound, hzutils.H{"error": "Session not found"})
			return
		}
		ctx.JSON(consts.StatusInternalServerError, hzutils.H{"error": "查询会话失败"})
		return
	}

	turns := parseTurns(session.RawConversation)
	if len(turns) == 0 {
		ctx.JSON(consts.StatusBadRequest, hzutils.H{"error": "Session has no conversation to extract from"})
		return
	}

	outcome, err := h.service.ConsolidateExperience(c, session.WorkerID, processor.ConversationTranscript(turns))
	if err != nil {
		logger.Ctx(c).Error().Err(err).Str("session_id", req.SessionID).Msg("强制经验提取失败")
		ctx.JSON(consts.StatusInternalServerError, hzutils.H{"error": "经验提取失败，请稍后重试"})
		return
	}
	if err := h.storage.MySQL.UpdateExperienceSessionFields(c, req.SessionID, map[string]interface{}{
		"structured_data": models.ToJSON(outcome.Profile),
	}); err != nil {
		ctx.JSON(consts.StatusInternalServerError, hzutils.H{"error": "更新会话失败"})
		return
	}

	ctx.JSON(consts.StatusOK, hzutils.H{
		"session_id": req.SessionID,
		"experience": outcome.Profile,
	})
}

// mirrorToMemory 把对话镜像进Redis聊天记忆，失败只记日志
func (h *ExperienceHandler) mirrorToMemory(c context.Context, sessionID string, message *schema.Message) {
	if h.memory == nil || message == nil {
		return
	}
	if err := h.memory.AddMessage(c, sessionID, message); err != nil {
		logger.Ctx(c).Warn().Err(err).Str("session_id", sessionID).Msg("写入聊天记忆失败")
	}
}

func parseTurns(raw []byte) []processor.ConversationTurn {
	var turns []processor.ConversationTurn
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &turns)
	}
	return turns
}
