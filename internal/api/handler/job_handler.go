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

// JobHandler 岗位目录与匹配接口
type JobHandler struct {
	cfg     *config.Config
	storage *storage.Storage
	jobs    *processor.JobProcessor
}

// NewJobHandler 创建岗位接口处理器
func NewJobHandler(cfg *config.Config, storageManager *storage.Storage, jobs *processor.JobProcessor) *JobHandler {
	return &JobHandler{cfg: cfg, storage: storageManager, jobs: jobs}
}

// HandleSeedJobs 灌入15工种的岗位种子目录
func (h *JobHandler) HandleSeedJobs(c context.Context, ctx *app.RequestContext) {
	inserted, err := h.jobs.SeedJobs(c)
	if err != nil {
		logger.Ctx(c).Error().Err(err).Msg("岗位种子灌入失败")
		ctx.JSON(consts.StatusInternalServerError, hzutils.H{"error": "Seeding jobs failed"})
		return
	}
	ctx.JSON(consts.StatusOK, hzutils.H{"status": "ok", "inserted": inserted})
}

// HandleListJobs 列出全部岗位
func (h *JobHandler) HandleListJobs(c context.Context, ctx *app.RequestContext) {
	jobs, err := h.storage.MySQL.ListJobs(c)
	if err != nil {
		ctx.JSON(consts.StatusInternalServerError, hzutils.H{"error": "查询岗位失败"})
		return
	}
	ctx.JSON(consts.StatusOK, hzutils.H{"jobs": jobs, "count": len(jobs)})
}

// HandleGetJob 按ID取单个岗位
func (h *JobHandler) HandleGetJob(c context.Context, ctx *app.RequestContext) {
	jobID, err := strconv.ParseUint(ctx.Param("job_id"), 10, 64)
	if err != nil {
		ctx.JSON(consts.StatusBadRequest, hzutils.H{"error": "job_id must be a number"})
		return
	}
	job, err := h.storage.MySQL.GetJobByID(c, jobID)
	if err != nil {
		if storage.IsNotFound(err) {
			ctx.JSON(consts.StatusNotFound, hzutils.H{"error": "Job not found"})
			return
		}
		ctx.JSON(consts.StatusInternalServerError, hzutils.H{"error": "查询岗位失败"})
		return
	}
	ctx.JSON(consts.StatusOK, job)
}

// HandleMatchJobs 工人的岗位匹配：规则打分，按总分降序取前N
func (h *JobHandler) HandleMatchJobs(c context.Context, ctx *app.RequestContext) {
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

	matches, err := h.jobs.MatchJobsForWorkerID(c, workerID, 10)
	if err != nil {
		if errors.Is(err, processor.ErrExperienceNotFound) {
			ctx.JSON(consts.StatusBadRequest, hzutils.H{"error": "Experience data not found. Complete experience collection first."})
			return
		}
		logger.Ctx(c).Error().Err(err).Str("worker_id", workerID).Msg("岗位匹配失败")
		ctx.JSON(consts.StatusInternalServerError, hzutils.H{"error": "Job matching failed"})
		return
	}

	ctx.JSON(consts.StatusOK, hzutils.H{
		"worker_id": workerID,
		"matches":   matches,
		"count":     len(matches),
	})
}
