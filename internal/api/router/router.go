package router

import (
	"context"

	"onboard-agent-go/internal/api/handler"
	"onboard-agent-go/internal/config"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	hzutils "github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/hertz-contrib/keyauth"
)

// Handlers 路由注册所需的全部接口处理器
type Handlers struct {
	Worker     *handler.WorkerHandler
	Document   *handler.DocumentHandler
	Review     *handler.ReviewHandler
	Voice      *handler.VoiceHandler
	Experience *handler.ExperienceHandler
	Job        *handler.JobHandler
	CV         *handler.CVHandler
	Admin      *handler.AdminHandler
}

// RegisterRoutes 注册全部API路由
func RegisterRoutes(h *server.Hertz, cfg *config.Config, hs Handlers) {
	api := h.Group("/api/v1")

	// 表单与证件上传
	form := api.Group("/form")
	form.POST("/signup", hs.Worker.HandleSignup)
	form.POST("/personal-document/upload", hs.Document.HandlePersonalDocumentUpload)
	form.POST("/educational-document/upload", hs.Document.HandleEducationalDocumentUpload)
	form.POST("/video/upload", hs.Document.HandleVideoUpload)
	form.GET("/worker/:worker_id/data", hs.Worker.HandleGetWorkerData)
	form.GET("/worker/mobile/:mobile", hs.Worker.HandleGetWorkerByMobile)
	form.DELETE("/:worker_id/data/:data_type", hs.Worker.HandleDeleteWorkerData)

	// 人工复核流程
	form.POST("/:worker_id/process-ocr", hs.Review.HandleProcessOCR)
	form.GET("/:worker_id/ocr-results", hs.Review.HandleGetOCRResults)
	form.POST("/:worker_id/submit-review", hs.Review.HandleSubmitReview)
	form.POST("/:worker_id/final-submit", hs.Worker.HandleFinalSubmit)

	// 语音回调与经验确认
	voice := api.Group("/voice")
	voice.POST("/call/webhook", hs.Voice.HandleCallWebhook)
	voice.POST("/transcript/submit", hs.Voice.HandleTranscriptSubmit)
	voice.POST("/experience/confirm", hs.Voice.HandleExperienceConfirm)

	// 问答式经验采集
	experience := api.Group("/experience")
	experience.POST("/start", hs.Experience.HandleStart)
	experience.POST("/chat", hs.Experience.HandleChat)
	experience.POST("/extract", hs.Experience.HandleExtract)

	// 岗位目录与匹配
	jobs := api.Group("/jobs")
	jobs.GET("/seed", hs.Job.HandleSeedJobs)
	jobs.GET("/all", hs.Job.HandleListJobs)
	jobs.GET("/match", hs.Job.HandleMatchJobs)
	jobs.GET("/:job_id", hs.Job.HandleGetJob)

	// 简历产物
	cv := api.Group("/cv")
	cv.POST("/generate", hs.CV.HandleGenerateCV)
	cv.GET("/preview/:worker_id", hs.CV.HandleCVPreview)
	cv.GET("/download/:worker_id", hs.CV.HandleCVDownload)

	// 管理端，X-Admin-Key鉴权
	admin := api.Group("/admin", adminAuth(cfg))
	admin.POST("/verify/:worker_id", hs.Admin.HandleRerunVerification)
	admin.GET("/workers/search", hs.Admin.HandleSearchWorkers)
	admin.POST("/dedup/refresh", hs.Admin.HandleRefreshDedup)
	admin.GET("/outbox/stats", hs.Admin.HandleOutboxStats)

	// 健康检查
	api.GET("/health", func(c context.Context, ctx *app.RequestContext) {
		ctx.JSON(consts.StatusOK, hzutils.H{"status": "ok"})
	})
}

// adminAuth 管理端keyauth中间件，未配置密钥时直接拒绝所有请求
func adminAuth(cfg *config.Config) app.HandlerFunc {
	adminKey := ""
	if cfg != nil {
		adminKey = cfg.Server.AdminAPIKey
	}
	if adminKey == "" {
		return func(c context.Context, ctx *app.RequestContext) {
			ctx.JSON(consts.StatusServiceUnavailable, hzutils.H{"error": "Admin API is not configured"})
			ctx.Abort()
		}
	}
	return keyauth.New(
		keyauth.WithKeyLookUp("header:X-Admin-Key", ""),
		keyauth.WithValidator(func(c context.Context, ctx *app.RequestContext, key string) (bool, error) {
			return key == adminKey, nil
		}),
	)
}
