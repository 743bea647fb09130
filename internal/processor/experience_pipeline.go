package processor

import (
	"context"
	"fmt"
	stdlog "log"
	"strings"

	"onboard-agent-go/internal/constants"
	"onboard-agent-go/internal/logger"
	"onboard-agent-go/internal/storage"
	"onboard-agent-go/internal/storage/models"
	"onboard-agent-go/internal/types"
	"onboard-agent-go/pkg/utils"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ExperienceOutcome 是经验整合的返回值，HTTP层与消费者共用
type ExperienceOutcome struct {
	WorkerID              string                   `json:"worker_id"`
	Profile               *types.ExperienceProfile `json:"profile"`
	TotalExperienceMonths int                      `json:"total_experience_months"`
	ExperienceYears       float64                  `json:"experience_years"`
}

// ProcessTranscript 消费通话转写消息：MD5去重 → LLM经验提取 → upsert落库 → 回写语音会话
func (s *onboardingServiceImpl) ProcessTranscript(ctx context.Context, message storage.TranscriptReceivedMessage) error {
	ctx, span := tracer.Start(ctx, "OnboardingService.ProcessTranscript",
		trace.WithSpanKind(trace.SpanKindConsumer))
	defer span.End()
	span.SetAttributes(
		attribute.String("worker_id", message.WorkerID),
		attribute.String("call_id", message.CallID),
	)

	ctx = logger.WithWorkerID(ctx, message.WorkerID)
	if message.CallID != "" {
		ctx = logger.WithCallID(ctx, message.CallID)
	}
	log := logger.Ctx(ctx)

	if err := s.checkExperienceComponents(); err != nil {
		return err
	}
	if message.WorkerID == "" || strings.TrimSpace(message.Transcript) == "" {
		log.Warn().Msg("转写消息缺少worker_id或正文，丢弃")
		return nil
	}

	// 同一份转写只消费一次
	if s.components.Storage.Redis != nil {
		md5Hex := message.TranscriptMD5
		if md5Hex == "" {
			md5Hex = utils.CalculateMD5([]byte(message.Transcript))
		}
		exists, err := s.components.Storage.Redis.CheckAndAddTranscriptMD5(ctx, md5Hex)
		if err != nil {
			log.Warn().Err(err).Msg("转写MD5去重检查失败，继续处理")
		} else if exists {
			log.Info().Str("md5", md5Hex).Msg("重复转写，跳过")
			return nil
		}
	}

	outcome, err := s.ConsolidateExperience(ctx, message.WorkerID, message.Transcript)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	// 回写语音会话：转写原文、结构化结果与完成标记
	if message.CallID != "" {
		updates := map[string]interface{}{
			"transcript":      message.Transcript,
			"experience_data": models.ToJSON(outcome.Profile),
			"exp_ready":       true,
			"status":          constants.StatusCallCompleted,
		}
		if err := s.components.Storage.MySQL.UpdateVoiceSessionFields(ctx, message.CallID, updates); err != nil {
			// 经验已落库，会话回写失败只告警不重投
			log.Warn().Err(err).Msg("回写语音会话失败")
		}
	}

	log.Info().
		Str("primary_skill", outcome.Profile.PrimarySkill).
		Int("total_months", outcome.TotalExperienceMonths).
		Msg("转写消费完成")
	return nil
}

// ConsolidateExperience 对任意转写文本执行LLM经验提取并upsert工作经验记录。
// 语音外呼转写与站内问答对话共用这一条整合路径。
func (s *onboardingServiceImpl) ConsolidateExperience(ctx context.Context, workerID string, transcript string) (*ExperienceOutcome, error) {
	ctx, span := tracer.Start(ctx, "OnboardingService.ConsolidateExperience")
	defer span.End()
	span.SetAttributes(attribute.String("worker_id", workerID))

	ctx = logger.WithWorkerID(ctx, workerID)
	log := logger.Ctx(ctx)

	if err := s.checkExperienceComponents(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(transcript) == "" {
		return nil, NewLLMExtractError(workerID, "转写文本为空")
	}

	profile, err := s.components.ExpExtractor.ExtractExperience(ctx, transcript)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, NewLLMExtractError(workerID, err.Error())
	}

	profile.PrimarySkill = cleanNullString(profile.PrimarySkill)
	profile.CurrentLocation = cleanNullString(profile.CurrentLocation)
	profile.PreferredLocation = cleanNullString(profile.PreferredLocation)
	profile.Availability = cleanNullString(profile.Availability)
	if profile.PreferredLocation == "" {
		profile.PreferredLocation = profile.CurrentLocation
	}

	// 以工作经历明细为准重算总月数，LLM直出的年限只作无明细时的兜底
	totalMonths := TotalExperienceMonths(profile.Workplaces, newPipelineStdLogger(log))
	yearsFloat := ExperienceYearsFloat(totalMonths)
	yearsInt := ExperienceYearsInt(totalMonths)
	if totalMonths == 0 && profile.ExperienceYears > 0 {
		yearsFloat = profile.ExperienceYears
		yearsInt = int(profile.ExperienceYears)
	}

	exp := &models.WorkExperience{
		WorkerID:              workerID,
		PrimarySkill:          profile.PrimarySkill,
		ExperienceYears:       yearsInt,
		ExperienceYearsFloat:  yearsFloat,
		TotalExperienceMonths: totalMonths,
		Skills:                MergeSkills(profile.Skills, profile.Tools),
		PreferredLocation:     profile.PreferredLocation,
		CurrentLocation:       profile.CurrentLocation,
		Availability:          profile.Availability,
		Workplaces:            models.ToJSON(profile.Workplaces),
	}
	if err := s.components.Storage.MySQL.SaveWorkExperience(ctx, exp); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, NewDatabaseError(workerID, fmt.Sprintf("保存工作经验: %v", err))
	}

	log.Info().
		Str("primary_skill", profile.PrimarySkill).
		Float64("experience_years", yearsFloat).
		Int("workplaces", len(profile.Workplaces)).
		Msg("经验整合落库完成")
	span.SetAttributes(
		attribute.Int("experience.total_months", totalMonths),
		attribute.Int("experience.workplaces", len(profile.Workplaces)),
	)

	return &ExperienceOutcome{
		WorkerID:              workerID,
		Profile:               profile,
		TotalExperienceMonths: totalMonths,
		ExperienceYears:       yearsFloat,
	}, nil
}

// newPipelineStdLogger 把zerolog适配成标准库logger，喂给需要*log.Logger的纯函数
func newPipelineStdLogger(l *zerolog.Logger) *stdlog.Logger {
	return stdlog.New(l, "", 0)
}
