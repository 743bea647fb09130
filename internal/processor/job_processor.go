package processor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"onboard-agent-go/internal/logger"
	"onboard-agent-go/internal/storage"
	"onboard-agent-go/internal/storage/models"
	"onboard-agent-go/internal/types"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// ErrVectorStoreNotInit 向量库未配置时由向量相关操作返回
var ErrVectorStoreNotInit = errors.New("vector store is not initialized")

// JobProcessor 负责岗位侧的处理：岗位向量的生成与缓存、
// 岗位到工人的向量反查、以及工人到岗位的规则打分匹配。
type JobProcessor struct {
	storage      *storage.Storage
	embedder     TextEmbedder
	modelVersion string
	logger       *zerolog.Logger
}

// NewJobProcessor 创建岗位处理器。embedder可以为空，
// 此时向量相关操作返回错误，规则匹配照常可用。
func NewJobProcessor(storageManager *storage.Storage, embedder TextEmbedder, modelVersion string, logger *zerolog.Logger) (*JobProcessor, error) {
	if storageManager == nil {
		return nil, ErrStorageNotInit
	}
	if logger == nil {
		defaultLogger := zerolog.Nop()
		logger = &defaultLogger
	}
	return &JobProcessor{
		storage:      storageManager,
		embedder:     embedder,
		modelVersion: modelVersion,
		logger:       logger,
	}, nil
}

// buildJobText 构造岗位的向量化文本，字段布局与工人档案保持一致
func buildJobText(job *models.Job) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Job: %s\n", job.Title))
	if job.RequiredSkills != "" {
		sb.WriteString(fmt.Sprintf("Skills: %s\n", job.RequiredSkills))
	}
	if job.Location != "" {
		sb.WriteString(fmt.Sprintf("Location: %s\n", job.Location))
	}
	if job.Description != "" {
		sb.WriteString(fmt.Sprintf("Description: %s\n", job.Description))
	}
	return strings.TrimRight(sb.String(), "\n")
}

// EnsureJobVector 为岗位生成向量并写入MySQL与Redis缓存
func (p *JobProcessor) EnsureJobVector(ctx context.Context, job *models.Job) ([]float64, error) {
	ctx, span := tracer.Start(ctx, "JobProcessor.EnsureJobVector")
	defer span.End()
	span.SetAttributes(attribute.Int64("job_id", int64(job.JobID)))

	if p.embedder == nil {
		return nil, fmt.Errorf("embedder is not initialized in JobProcessor")
	}

	embeddings, err := p.embedder.EmbedStrings(ctx, []string{buildJobText(job)})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("岗位向量化失败: %w", err)
	}
	if len(embeddings) != 1 || len(embeddings[0]) == 0 {
		return nil, fmt.Errorf("岗位向量化返回异常: 期望1个非空向量, 得到%d个", len(embeddings))
	}
	vector := embeddings[0]

	record := &models.JobVector{
		JobID:                 job.JobID,
		Embedding:             models.ToJSON(vector),
		EmbeddingModelVersion: p.modelVersion,
	}
	if err := p.storage.MySQL.UpsertJobVector(ctx, record); err != nil {
		return nil, fmt.Errorf("保存岗位向量: %w", err)
	}

	// Redis缓存尽力而为
	if p.storage.Redis != nil {
		jobKey := strconv.FormatUint(job.JobID, 10)
		if err := p.storage.Redis.SetJobVector(ctx, jobKey, vector, p.modelVersion); err != nil {
			p.logger.Warn().Err(err).Uint64("job_id", job.JobID).Msg("岗位向量写入Redis缓存失败")
		}
	}

	p.logger.Info().Uint64("job_id", job.JobID).Int("dimensions", len(vector)).Msg("岗位向量已更新")
	return vector, nil
}

// GetJobVector 按 Redis缓存 → MySQL → 现算 的顺序取岗位向量。
// 模型版本不一致的缓存视为失效，触发重算。
func (p *JobProcessor) GetJobVector(ctx context.Context, jobID uint64) ([]float64, error) {
	ctx, span := tracer.Start(ctx, "JobProcessor.GetJobVector")
	defer span.End()
	span.SetAttributes(attribute.Int64("job_id", int64(jobID)))

	jobKey := strconv.FormatUint(jobID, 10)

	if p.storage.Redis != nil {
		vector, version, err := p.storage.Redis.GetJobVector(ctx, jobKey)
		if err == nil && len(vector) > 0 && version == p.modelVersion {
			span.SetAttributes(attribute.String("vector.source", "redis"))
			return vector, nil
		}
	}

	if record, err := p.storage.MySQL.GetJobVectorByID(ctx, jobID); err == nil {
		if record.EmbeddingModelVersion == p.modelVersion {
			var vector []float64
			if err := json.Unmarshal(record.Embedding, &vector); err == nil && len(vector) > 0 {
				if p.storage.Redis != nil {
					if cacheErr := p.storage.Redis.SetJobVector(ctx, jobKey, vector, p.modelVersion); cacheErr != nil {
						p.logger.Warn().Err(cacheErr).Uint64("job_id", jobID).Msg("回填岗位向量缓存失败")
					}
				}
				span.SetAttributes(attribute.String("vector.source", "mysql"))
				return vector, nil
			}
		}
		p.logger.Info().
			Uint64("job_id", jobID).
			Str("stored_version", record.EmbeddingModelVersion).
			Str("current_version", p.modelVersion).
			Msg("岗位向量模型版本不一致，重算")
	}

	job, err := p.storage.MySQL.GetJobByID(ctx, jobID)
	if err != nil {
		if storage.IsNotFound(err) {
			return nil, fmt.Errorf("岗位 %d 不存在: %w", jobID, err)
		}
		return nil, fmt.Errorf("查询岗位: %w", err)
	}
	span.SetAttributes(attribute.String("vector.source", "computed"))
	return p.EnsureJobVector(ctx, job)
}

// RankWorkersForJob 用岗位向量在Qdrant中反查最相似的工人
func (p *JobProcessor) RankWorkersForJob(ctx context.Context, jobID uint64, limit int) ([]types.RankedWorker, error) {
	ctx, span := tracer.Start(ctx, "JobProcessor.RankWorkersForJob")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("job_id", int64(jobID)),
		attribute.Int("limit", limit),
	)

	if p.storage.Qdrant == nil {
		return nil, ErrVectorStoreNotInit
	}
	if limit <= 0 {
		limit = 10
	}

	vector, err := p.GetJobVector(ctx, jobID)
	if err != nil {
		return nil, err
	}

	results, err := p.storage.Qdrant.SearchSimilarWorkers(ctx, vector, limit, nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("向量检索工人失败: %w", err)
	}

	ranked := make([]types.RankedWorker, 0, len(results))
	for _, r := range results {
		workerID := r.ID
		if wid, ok := r.Payload["worker_id"].(string); ok && wid != "" {
			workerID = wid
		}
		ranked = append(ranked, types.RankedWorker{
			WorkerID: workerID,
			Score:    r.Score,
		})
	}
	span.SetAttributes(attribute.Int("results", len(ranked)))
	return ranked, nil
}

// MatchJobsForWorkerID 取工人经验与岗位目录，做规则打分匹配
func (p *JobProcessor) MatchJobsForWorkerID(ctx context.Context, workerID string, topN int) ([]types.JobMatchResult, error) {
	ctx, span := tracer.Start(ctx, "JobProcessor.MatchJobsForWorkerID")
	defer span.End()
	span.SetAttributes(attribute.String("worker_id", workerID))

	ctx = logger.WithWorkerID(ctx, workerID)

	exp, err := p.storage.MySQL.GetWorkExperience(ctx, workerID)
	if err != nil {
		if storage.IsNotFound(err) {
			return nil, ErrExperienceNotFound
		}
		return nil, fmt.Errorf("查询工作经验: %w", err)
	}

	jobs, err := p.storage.MySQL.ListJobs(ctx)
	if err != nil {
		return nil, fmt.Errorf("查询岗位目录: %w", err)
	}

	matches := MatchJobsForWorker(exp, jobs, topN)
	span.SetAttributes(attribute.Int("matches", len(matches)))
	return matches, nil
}

// defaultJobCatalogue 蓝领岗位种子目录，覆盖常见工种与城市
var defaultJobCatalogue = []models.Job{
	{Title: "Electrician", Description: "Residential and commercial wiring, fault finding, panel installation.", RequiredSkills: "electrician, wiring, electrical maintenance", Location: "Delhi"},
	{Title: "Plumber", Description: "Pipe fitting, leak repair, bathroom and kitchen installations.", RequiredSkills: "plumber, pipe fitting, plumbing", Location: "Mumbai"},
	{Title: "Carpenter", Description: "Furniture making, door and window fitting, modular work.", RequiredSkills: "carpenter, woodwork, furniture making", Location: "Bangalore"},
	{Title: "Welder", Description: "Arc and gas welding for fabrication workshops.", RequiredSkills: "welder, arc welding, gas welding, fabrication", Location: "Pune"},
	{Title: "Painter", Description: "Interior and exterior painting, putty and primer work.", RequiredSkills: "painter, painting, putty work", Location: "Hyderabad"},
	{Title: "Mason", Description: "Brick laying, plastering, tile fixing on construction sites.", RequiredSkills: "mason, brick laying, plastering, tiling", Location: "Noida"},
	{Title: "AC Technician", Description: "Split and window AC installation, gas charging, servicing.", RequiredSkills: "ac technician, ac repair, hvac, gas charging", Location: "Gurgaon"},
	{Title: "Driver", Description: "Commercial driving with valid licence, city and highway routes.", RequiredSkills: "driver, driving, commercial vehicle", Location: "Delhi"},
	{Title: "Security Guard", Description: "Gate duty, patrolling and visitor management for housing societies.", RequiredSkills: "security guard, patrolling, gate duty", Location: "Faridabad"},
	{Title: "Housekeeping Staff", Description: "Cleaning and upkeep for offices and hotels.", RequiredSkills: "housekeeping, cleaning", Location: "Mumbai"},
	{Title: "Cook", Description: "Indian cuisine for canteens and small restaurants.", RequiredSkills: "cook, cooking, indian cuisine", Location: "Bangalore"},
	{Title: "Fitter", Description: "Mechanical fitting and assembly in manufacturing units.", RequiredSkills: "fitter, mechanical fitting, assembly", Location: "Chennai"},
	{Title: "Machine Operator", Description: "CNC and lathe machine operation with basic maintenance.", RequiredSkills: "machine operator, cnc, lathe", Location: "Pune"},
	{Title: "Gardener", Description: "Lawn and plant maintenance for campuses and farmhouses.", RequiredSkills: "gardener, gardening, landscaping", Location: "Hyderabad"},
	{Title: "Delivery Executive", Description: "Two wheeler delivery for e-commerce and food platforms.", RequiredSkills: "delivery, two wheeler, driving", Location: "Delhi"},
}

// SeedJobs 在岗位表为空时灌入种子目录，返回插入条数。
// 向量生成尽力而为，embedder未配置时只落岗位行。
func (p *JobProcessor) SeedJobs(ctx context.Context) (int, error) {
	ctx, span := tracer.Start(ctx, "JobProcessor.SeedJobs")
	defer span.End()

	count, err := p.storage.MySQL.CountJobs(ctx)
	if err != nil {
		return 0, fmt.Errorf("统计岗位数: %w", err)
	}
	if count > 0 {
		p.logger.Info().Int64("existing", count).Msg("岗位表非空，跳过种子灌入")
		return 0, nil
	}

	inserted := 0
	for i := range defaultJobCatalogue {
		job := defaultJobCatalogue[i]
		if err := p.storage.MySQL.CreateJob(ctx, &job); err != nil {
			return inserted, fmt.Errorf("插入种子岗位 %q: %w", job.Title, err)
		}
		inserted++
		if p.embedder != nil {
			if _, err := p.EnsureJobVector(ctx, &job); err != nil {
				p.logger.Warn().Err(err).Str("title", job.Title).Msg("种子岗位向量生成失败")
			}
		}
	}
	p.logger.Info().Int("inserted", inserted).Msg("岗位种子目录灌入完成")
	return inserted, nil
}
