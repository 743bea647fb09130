package handler

import (
	"context"
	"errors"
	"strconv"

	"onboard-agent-go/internal/config"
	"onboard-agent-go/internal/logger"
	"onboard-agent-go/internal/processor"
	"onboard-agent-go/internal/storage"

	"github.com/cloudwego/hertz/pkg/app"
	hzutils "github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
)

// AdminHandler 管理端接口：复核、巡检与运维操作
type AdminHandler struct {
	cfg     *config.Config
	storage *storage.Storage
	service processor.OnboardingService
	jobs    *processor.JobProcessor
}

// NewAdminHandler 创建管理端接口处理器
func NewAdminHandler(cfg *config.Config, storageManager *storage.Storage, service processor.OnboardingService, jobs *processor.JobProcessor) *AdminHandler {
	return &AdminHandler{cfg: cfg, storage: storageManager, service: service, jobs: jobs}
}

// HandleRerunVerification 对指定工人重新执行身份核验
func (h *AdminHandler) HandleRerunVerification(c context.Context, ctx *app.RequestContext) {
	workerID := ctx.Param("worker_id")
	if workerID == "" {
		ctx.JSON(consts.StatusBadRequest, hzutils.H{"error": "worker_id is required"})
		return
	}

	outcome, err := h.service.RunVerification(c, workerID)
	if err != nil {
		if storage.IsNotFound(err) {
			ctx.JSON(consts.StatusNotFound, hzutils.H{"error": "Worker not found"})
			return
		}
		logger.Ctx(c).Error().Err(err).Str("worker_id", workerID).Msg("重新核验失败")
		ctx.JSON(consts.StatusInternalServerError, hzutils.H{"error": "Verification rerun failed"})
		return
	}

	ctx.JSON(consts.StatusOK, hzutils.H{
		"worker_id": outcome.WorkerID,
		"result":    outcome.Result,
	})
}

// HandleSearchWorkers 按岗位向量召回相似工人
func (h *AdminHandler) HandleSearchWorkers(c context.Context, ctx *app.RequestContext) {
	jobID, err := strconv.ParseUint(ctx.Query("job_id"), 10, 64)
	if err != nil {
		ctx.JSON(consts.StatusBadRequest, hzutils.H{"error": "job_id must be a number"})
		return
	}
	limit := 10
	if rawLimit := ctx.Query("limit"); rawLimit != "" {
		if parsed, parseErr := strconv.Atoi(rawLimit); parseErr == nil && parsed > 0 {
			limit = parsed
		}
	}

	ranked, err := h.jobs.RankWorkersForJob(c, jobID, limit)
	if err != nil {
		if storage.IsNotFound(err) {
			ctx.JSON(consts.StatusNotFound, hzutils.H{"error": "Job not found"})
			return
		}
		if errors.Is(err, processor.ErrVectorStoreNotInit) {
			ctx.JSON(consts.StatusServiceUnavailable, hzutils.H{"error": "Vector search is not configured"})
			return
		}
		logger.Ctx(c).Error().Err(err).Uint64("job_id", jobID).Msg("工人向量召回失败")
		ctx.JSON(consts.StatusInternalServerError, hzutils.H{"error": "Worker search failed"})
		return
	}

	ctx.JSON(consts.StatusOK, hzutils.H{
		"job_id":  jobID,
		"workers": ranked,
		"count":   len(ranked),
	})
}

// HandleRefreshDedup 给MD5去重集合续期，防止长期运行后整集过期
func (h *AdminHandler) HandleRefreshDedup(c context.Context, ctx *app.RequestContext) {
	if h.storage.Redis == nil {
		ctx.JSON(consts.StatusServiceUnavailable, hzutils.H{"error": "Redis is not configured"})
		return
	}
	if err := h.storage.Redis.RefreshDedupSetTTL(c); err != nil {
		logger.Ctx(c).Error().Err(err).Msg("去重集合续期失败")
		ctx.JSON(consts.StatusInternalServerError, hzutils.H{"error": "Failed to refresh dedup TTL"})
		return
	}
	ctx.JSON(consts.StatusOK, hzutils.H{"status": "refreshed"})
}

// HandleOutboxStats 汇总发件箱各状态的积压量
func (h *AdminHandler) HandleOutboxStats(c context.Context, ctx *app.RequestContext) {
	counts, err := h.storage.MySQL.CountOutboxByStatus(c)
	if err != nil {
		ctx.JSON(consts.StatusInternalServerError, hzutils.H{"error": "Failed to load outbox stats"})
		return
	}
	ctx.JSON(consts.StatusOK, hzutils.H{"outbox": counts})
}
