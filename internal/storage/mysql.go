package storage

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"onboard-agent-go/internal/config"
	"onboard-agent-go/internal/constants"
	"onboard-agent-go/internal/storage/models"
	"onboard-agent-go/internal/types"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

var mysqlTracer = otel.Tracer("onboard-agent-go/storage/mysql")

// GormTracingPlugin 是一个GORM插件，用于向OpenTelemetry中添加数据库操作的追踪点
type GormTracingPlugin struct {
	tracer         trace.Tracer
	dbName         string
	dbSystem       string
	disableErrSkip bool
}

// Name 返回插件名称
func (p *GormTracingPlugin) Name() string {
	return "GormOpenTelemetryPlugin"
}

// Initialize 注册GORM回调以启用追踪
func (p *GormTracingPlugin) Initialize(db *gorm.DB) error {
	// 为各种操作类型注册回调
	cb := db.Callback()

	// 为所有CRUD操作注册Before和After回调
	if err := cb.Create().Before("gorm:create").Register("otel:before_create", p.before("CREATE")); err != nil {
		return err
	}
	if err := cb.Create().After("gorm:create").Register("otel:after_create", p.after()); err != nil {
		return err
	}

	if err := cb.Query().Before("gorm:query").Register("otel:before_query", p.before("SELECT")); err != nil {
		return err
	}
	if err := cb.Query().After("gorm:query").Register("otel:after_query", p.after()); err != nil {
		return err
	}

	if err := cb.Update().Before("gorm:update").Register("otel:before_update", p.before("UPDATE")); err != nil {
		return err
	}
	if err := cb.Update().After("gorm:update").Register("otel:after_update", p.after()); err != nil {
		return err
	}

	if err := cb.Delete().Before("gorm:delete").Register("otel:before_delete", p.before("DELETE")); err != nil {
		return err
	}
	if err := cb.Delete().After("gorm:delete").Register("otel:after_delete", p.after()); err != nil {
		return err
	}

	if err := cb.Row().Before("gorm:row").Register("otel:before_row", p.before("ROW")); err != nil {
		return err
	}
	if err := cb.Row().After("gorm:row").Register("otel:after_row", p.after()); err != nil {
		return err
	}

	if err := cb.Raw().Before("gorm:raw").Register("otel:before_raw", p.before("RAW")); err != nil {
		return err
	}
	if err := cb.Raw().After("gorm:raw").Register("otel:after_raw", p.after()); err != nil {
		return err
	}

	return nil
}

// before 返回在GORM操作之前执行的回调函数
func (p *GormTracingPlugin) before(operation string) func(db *gorm.DB) {
	return func(db *gorm.DB) {
		// 如果是错误跳过且DisableErrSkip为true，则跳过追踪
		if p.disableErrSkip && db.Statement.SkipHooks {
			return
		}

		// 从DB获取上下文
		ctx := db.Statement.Context
		if ctx == nil {
			ctx = context.Background()
		}

		// 获取操作表名，如果为空则使用"unknown"
		tableName := db.Statement.Table
		if tableName == "" {
			tableName = "unknown"
		}

		// 创建一个新的span
		spanName := fmt.Sprintf("%s %s", operation, tableName)
		opts := []trace.SpanStartOption{
			trace.WithSpanKind(trace.SpanKindClient),
			trace.WithAttributes(
				semconv.DBSystemMySQL,
				attribute.String("db.name", p.dbName),
				attribute.String("db.operation", operation),
				attribute.String("db.sql.table", tableName),
			),
		}

		// 获取SQL语句（如果有）
		sqlStatement := db.Statement.SQL.String()
		if sqlStatement != "" {
			opts = append(opts, trace.WithAttributes(
				attribute.String("db.statement", sqlStatement),
			))
		}

		newCtx, span := p.tracer.Start(ctx, spanName, opts...)

		// 将span保存在DB上下文中，以便在after回调中使用
		db.Statement.Context = context.WithValue(newCtx, "otel-span", span)
	}
}

// after 返回在GORM操作之后执行的回调函数
func (p *GormTracingPlugin) after() func(db *gorm.DB) {
	return func(db *gorm.DB) {
		// 从DB上下文中获取span
		span, ok := db.Statement.Context.Value("otel-span").(trace.Span)
		if !ok {
			return
		}
		defer span.End()

		// 添加额外的属性
		if db.Statement.RowsAffected > 0 {
			span.SetAttributes(attribute.Int64("db.rows_affected", db.Statement.RowsAffected))
		} else {
			span.SetAttributes(attribute.Int64("db.rows_affected", 0))
		}

		// 记录错误（如果有），但正确处理ErrRecordNotFound
		if db.Error != nil {
			if db.Error == gorm.ErrRecordNotFound {
				// ErrRecordNotFound 是业务逻辑正常情况的一部分，不应作为错误处理
				span.SetAttributes(attribute.String("error.type", "record_not_found"))
				span.SetStatus(codes.Ok, "record not found")
			} else {
				// 真正的错误情况
				span.SetAttributes(attribute.String("error.type", "database_error"))
				span.SetAttributes(attribute.String("error.message", db.Error.Error()))
				span.RecordError(db.Error)
				span.SetStatus(codes.Error, db.Error.Error())
			}
		} else {
			span.SetStatus(codes.Ok, "")
		}
	}
}

// NewGormTracingPlugin 创建一个新的GORM追踪插件
func NewGormTracingPlugin(dbName string) *GormTracingPlugin {
	return &GormTracingPlugin{
		tracer:         mysqlTracer,
		dbName:         dbName,
		dbSystem:       "mysql",
		disableErrSkip: true, // 默认禁用错误跳过，减少误报错误
	}
}

// WithDisableErrSkip 设置是否禁用错误跳过
func (p *GormTracingPlugin) WithDisableErrSkip(disable bool) *GormTracingPlugin {
	p.disableErrSkip = disable
	return p
}

// Database 关系数据库接口
type Database interface {
	// DB 返回GORM数据库连接实例
	DB() *gorm.DB

	// Close 关闭数据库连接
	Close() error
}

// 确保MySQL实现了Database接口
var _ Database = (*MySQL)(nil)

// MySQL 提供关系数据库功能
type MySQL struct {
	db  *gorm.DB
	cfg *config.MySQLConfig
}

// NewMySQL 创建MySQL客户端
func NewMySQL(cfg *config.MySQLConfig) (*MySQL, error) {
	if cfg == nil {
		return nil, fmt.Errorf("MySQL配置不能为空")
	}

	// 构建DSN，添加超时设置
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local&timeout=%ds&readTimeout=%ds&writeTimeout=%ds",
		cfg.Username, cfg.Password, cfg.Host, cfg.Port, cfg.Database,
		cfg.ConnectTimeoutSeconds, cfg.ReadTimeoutSeconds, cfg.WriteTimeoutSeconds)

	// 配置GORM日志级别
	var logLevel logger.LogLevel
	switch cfg.LogLevel {
	case 1:
		logLevel = logger.Silent
	case 2:
		logLevel = logger.Error
	case 3:
		logLevel = logger.Warn
	case 4:
		logLevel = logger.Info
	default:
		logLevel = logger.Info // 默认Info级别
	}

	// GORM配置增强
	gormConfig := &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,                             // 禁用自动外键创建
		Logger:                                   logger.Default.LogMode(logLevel), // 设置日志级别
		PrepareStmt:                              true,                             // 开启预编译语句缓存
		NowFunc: func() time.Time {
			return time.Now().Local() // 使用本地时间作为默认时间
		},
	}

	db, err := gorm.Open(mysql.Open(dsn), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("连接MySQL失败: %w", err)
	}

	// 设置连接池参数
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("获取底层 sql.DB 失败: %w", err)
	}

	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)                                           // 最大空闲连接数
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)                                           // 最大打开连接数
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetimeMinutes) * time.Minute) // 连接最大生命周期
	sqlDB.SetConnMaxIdleTime(time.Duration(cfg.ConnMaxIdleTimeMinutes) * time.Minute) // 空闲连接最大生命周期

	m := &MySQL{
		db:  db,
		cfg: cfg,
	}

	// 注册OpenTelemetry追踪插件
	tracingPlugin := NewGormTracingPlugin(cfg.Database).WithDisableErrSkip(true)
	if err := db.Use(tracingPlugin); err != nil {
		return nil, fmt.Errorf("注册追踪插件失败: %w", err)
	}

	// 使用 GORM 的 AutoMigrate 功能自动迁移表结构
	if err := m.autoMigrateSchema(); err != nil {
		sqlDB, _ := db.DB()
		if sqlDB != nil {
			sqlDB.Close()
		}
		return nil, fmt.Errorf("自动迁移数据库结构失败: %w", err)
	}

	log.Println("成功连接到MySQL并自动迁移数据库结构")
	return m, nil
}

// autoMigrateSchema 使用GORM自动迁移数据库表结构
func (m *MySQL) autoMigrateSchema() error {
	// 保存当前的日志级别
	currentLogger := m.db.Logger

	// 创建一个静默的logger以关闭SQL日志打印
	silentLogger := logger.New(
		log.New(log.Writer(), "", log.LstdFlags),
		logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logger.Silent, // 设置为Silent级别，关闭所有SQL日志
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	// 创建一个使用静默日志记录器的DB会话
	silentDB := m.db.Session(&gorm.Session{Logger: silentLogger})

	// 列出所有需要迁移的模型
	err := silentDB.AutoMigrate(
		&models.Worker{},
		&models.EducationalDocument{},
		&models.WorkExperience{},
		&models.VoiceSession{},
		&models.ExperienceSession{},
		&models.PendingExtraction{},
		&models.Job{},
		&models.JobVector{},
		&models.CVRecord{},
		&models.OutboxMessage{},
	)

	// 恢复原来的日志记录器
	m.db = m.db.Session(&gorm.Session{Logger: currentLogger})

	if err != nil {
		return fmt.Errorf("GORM自动迁移失败: %w", err)
	}
	log.Println("GORM数据库结构迁移成功")
	return nil
}

// DB 返回GORM数据库连接实例
func (m *MySQL) DB() *gorm.DB {
	return m.db
}

// Close 关闭数据库连接
func (m *MySQL) Close() error {
	sqlDB, err := m.db.DB()
	if err != nil {
		return fmt.Errorf("获取底层 sql.DB 失败: %w", err)
	}
	return sqlDB.Close()
}

//
// Worker 相关操作
//

// CreateWorker 创建新工人记录
func (m *MySQL) CreateWorker(ctx context.Context, worker *models.Worker) error {
	return m.db.WithContext(ctx).Create(worker).Error
}

// GetWorkerByID 通过WorkerID获取工人记录
func (m *MySQL) GetWorkerByID(ctx context.Context, workerID string) (*models.Worker, error) {
	var worker models.Worker
	if err := m.db.WithContext(ctx).Where("worker_id = ?", workerID).First(&worker).Error; err != nil {
		return nil, err
	}
	return &worker, nil
}

// GetLatestWorkerByMobile 按手机号查找最新注册的工人
// 同一手机号允许注册多次，返回created_at最新的一条
func (m *MySQL) GetLatestWorkerByMobile(ctx context.Context, mobile string) (*models.Worker, error) {
	var worker models.Worker
	err := m.db.WithContext(ctx).
		Where("mobile_number = ?", mobile).
		Order("created_at DESC").
		First(&worker).Error
	if err != nil {
		return nil, err
	}
	return &worker, nil
}

// UpdateWorkerFields 更新Worker表的多个字段
func (m *MySQL) UpdateWorkerFields(ctx context.Context, workerID string, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}
	return m.db.WithContext(ctx).Model(&models.Worker{}).Where("worker_id = ?", workerID).Updates(updates).Error
}

// AppendEducationalDocumentPath 向工人的学历证件路径数组追加一个对象键
// 读改写在事务内进行，避免并发上传互相覆盖
func (m *MySQL) AppendEducationalDocumentPath(ctx context.Context, workerID string, objectKey string) error {
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var worker models.Worker
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("worker_id = ?", workerID).First(&worker).Error; err != nil {
			return fmt.Errorf("锁定工人记录失败: %w", err)
		}

		paths := worker.EducationalPathList()
		paths = append(paths, objectKey)
		if err := worker.SetEducationalPaths(paths); err != nil {
			return fmt.Errorf("序列化学历证件路径失败: %w", err)
		}

		return tx.Model(&models.Worker{}).Where("worker_id = ?", workerID).
			Update("educational_document_paths", worker.EducationalDocumentPaths).Error
	})
}

// SavePersonalExtraction 持久化个人证件的抽取结果
// 个人身份变更会使此前的验证结论失效，因此在同一事务内：
// 写入身份字段、把工人验证状态重置为pending、清空工人错误、
// 并将该工人全部学历证件的验证状态一并置空重验
func (m *MySQL) SavePersonalExtraction(ctx context.Context, workerID string, extraction *types.PersonalExtraction) error {
	ctx, span := mysqlTracer.Start(ctx, "MySQL.SavePersonalExtraction",
		trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(attribute.String("worker_id", workerID))

	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{
			"name":                    extraction.Name,
			"dob":                     extraction.DOB,
			"address":                 extraction.Address,
			"personal_extracted_name": extraction.NormalizedName,
			"personal_extracted_dob":  extraction.NormalizedDOB,
			"verification_status":     constants.StatusVerificationPending,
			"verification_errors":     gorm.Expr("NULL"),
			"verified_at":             gorm.Expr("NULL"),
		}
		if err := tx.Model(&models.Worker{}).Where("worker_id = ?", workerID).Updates(updates).Error; err != nil {
			return fmt.Errorf("更新工人身份字段失败: %w", err)
		}

		// 同一事务内重置该工人所有学历证件的验证状态
		if err := tx.Model(&models.EducationalDocument{}).
			Where("worker_id = ?", workerID).
			Updates(map[string]interface{}{
				"verification_status": constants.StatusVerificationPending,
				"verification_errors": gorm.Expr("NULL"),
			}).Error; err != nil {
			return fmt.Errorf("重置学历证件验证状态失败: %w", err)
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

// InsertEducationalDocument 插入一条学历证件抽取记录
func (m *MySQL) InsertEducationalDocument(ctx context.Context, doc *models.EducationalDocument) error {
	return m.db.WithContext(ctx).Create(doc).Error
}

// ListEducationalDocuments 列出工人的全部学历证件记录
func (m *MySQL) ListEducationalDocuments(ctx context.Context, workerID string) ([]models.EducationalDocument, error) {
	var docs []models.EducationalDocument
	err := m.db.WithContext(ctx).
		Where("worker_id = ?", workerID).
		Order("id ASC").
		Find(&docs).Error
	if err != nil {
		return nil, err
	}
	return docs, nil
}

// PersistVerificationResult 在单个事务中落库验证结果
// 工人状态、错误、verified_at 和每条学历证件的状态要么全部提交要么全部回滚
func (m *MySQL) PersistVerificationResult(ctx context.Context, workerID string, result *types.VerificationResult) error {
	ctx, span := mysqlTracer.Start(ctx, "MySQL.PersistVerificationResult",
		trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(
		attribute.String("worker_id", workerID),
		attribute.String("verification.status", string(result.Status)),
		attribute.Int("verification.verified_count", result.VerifiedCount),
		attribute.Int("verification.total_count", result.TotalCount),
	)

	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		workerUpdates := map[string]interface{}{
			"verification_status": string(result.Status),
			"verification_errors": models.ToJSON(result),
		}
		if result.Status == types.VerificationVerified {
			now := time.Now()
			workerUpdates["verified_at"] = &now
		} else {
			workerUpdates["verified_at"] = gorm.Expr("NULL")
		}
		if err := tx.Model(&models.Worker{}).Where("worker_id = ?", workerID).Updates(workerUpdates).Error; err != nil {
			return fmt.Errorf("更新工人验证状态失败: %w", err)
		}

		// 逐证件落库：某个证件可以verified，即使整体failed
		for _, cmp := range result.Comparisons {
			docStatus := constants.StatusVerificationFailed
			if cmp.OverallMatch {
				docStatus = constants.StatusVerificationVerified
			}
			docUpdates := map[string]interface{}{
				"verification_status": docStatus,
			}
			docMismatches := result.MismatchesForDocument(cmp.DocumentID)
			if len(docMismatches) > 0 {
				docUpdates["verification_errors"] = models.ToJSON(docMismatches)
			} else {
				docUpdates["verification_errors"] = gorm.Expr("NULL")
			}
			if err := tx.Model(&models.EducationalDocument{}).
				Where("id = ? AND worker_id = ?", cmp.DocumentID, workerID).
				Updates(docUpdates).Error; err != nil {
				return fmt.Errorf("更新学历证件 %d 验证状态失败: %w", cmp.DocumentID, err)
			}
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

//
// 工作经验相关操作
//

// SaveWorkExperience upsert工作经验记录，每个工人至多保留一条
func (m *MySQL) SaveWorkExperience(ctx context.Context, exp *models.WorkExperience) error {
	return m.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "worker_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"primary_skill", "experience_years", "experience_years_float",
			"total_experience_months", "skills", "preferred_location",
			"current_location", "availability", "workplaces", "updated_at",
		}),
	}).Create(exp).Error
}

// GetWorkExperience 获取工人的工作经验记录
func (m *MySQL) GetWorkExperience(ctx context.Context, workerID string) (*models.WorkExperience, error) {
	var exp models.WorkExperience
	if err := m.db.WithContext(ctx).Where("worker_id = ?", workerID).First(&exp).Error; err != nil {
		return nil, err
	}
	return &exp, nil
}

//
// 语音会话与问答会话
//

// UpsertVoiceSession 按call_id插入或更新语音会话
func (m *MySQL) UpsertVoiceSession(ctx context.Context, session *models.VoiceSession) error {
	return m.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "call_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"worker_id", "phone_number", "status", "current_step",
			"responses", "updated_at",
		}),
	}).Create(session).Error
}

// GetVoiceSession 获取语音会话
func (m *MySQL) GetVoiceSession(ctx context.Context, callID string) (*models.VoiceSession, error) {
	var session models.VoiceSession
	if err := m.db.WithContext(ctx).Where("call_id = ?", callID).First(&session).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

// GetLatestVoiceSessionByPhone 按手机号找最新的语音会话
func (m *MySQL) GetLatestVoiceSessionByPhone(ctx context.Context, phone string) (*models.VoiceSession, error) {
	var session models.VoiceSession
	err := m.db.WithContext(ctx).
		Where("phone_number = ?", phone).
		Order("created_at DESC").
		First(&session).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// UpdateVoiceSessionFields 更新语音会话的多个字段
func (m *MySQL) UpdateVoiceSessionFields(ctx context.Context, callID string, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}
	return m.db.WithContext(ctx).Model(&models.VoiceSession{}).Where("call_id = ?", callID).Updates(updates).Error
}

// CreateExperienceSession 创建问答会话
func (m *MySQL) CreateExperienceSession(ctx context.Context, session *models.ExperienceSession) error {
	return m.db.WithContext(ctx).Create(session).Error
}

// GetExperienceSession 获取问答会话
func (m *MySQL) GetExperienceSession(ctx context.Context, sessionID string) (*models.ExperienceSession, error) {
	var session models.ExperienceSession
	if err := m.db.WithContext(ctx).Where("session_id = ?", sessionID).First(&session).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

// UpdateExperienceSessionFields 更新问答会话的多个字段
func (m *MySQL) UpdateExperienceSessionFields(ctx context.Context, sessionID string, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}
	return m.db.WithContext(ctx).Model(&models.ExperienceSession{}).Where("session_id = ?", sessionID).Updates(updates).Error
}

//
// 人工复核工作流
//

// UpsertPendingExtraction 按worker_id写入待复核抽取结果
func (m *MySQL) UpsertPendingExtraction(ctx context.Context, pending *models.PendingExtraction) error {
	return m.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "worker_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"personal_document_path", "educational_document_path",
			"personal_data", "education_data", "status", "updated_at",
		}),
	}).Create(pending).Error
}

// GetPendingExtraction 获取待复核抽取结果
func (m *MySQL) GetPendingExtraction(ctx context.Context, workerID string) (*models.PendingExtraction, error) {
	var pending models.PendingExtraction
	if err := m.db.WithContext(ctx).Where("worker_id = ?", workerID).First(&pending).Error; err != nil {
		return nil, err
	}
	return &pending, nil
}

// DeletePendingExtraction 删除待复核记录
func (m *MySQL) DeletePendingExtraction(ctx context.Context, workerID string) error {
	return m.db.WithContext(ctx).Where("worker_id = ?", workerID).Delete(&models.PendingExtraction{}).Error
}

//
// 岗位相关操作
//

// CreateJob 创建岗位记录
func (m *MySQL) CreateJob(ctx context.Context, job *models.Job) error {
	return m.db.WithContext(ctx).Create(job).Error
}

// GetJobByID 通过JobID获取岗位
func (m *MySQL) GetJobByID(ctx context.Context, jobID uint64) (*models.Job, error) {
	var job models.Job
	if err := m.db.WithContext(ctx).Where("job_id = ?", jobID).First(&job).Error; err != nil {
		return nil, err
	}
	return &job, nil
}

// ListJobs 列出全部岗位
func (m *MySQL) ListJobs(ctx context.Context) ([]models.Job, error) {
	var jobs []models.Job
	if err := m.db.WithContext(ctx).Order("job_id ASC").Find(&jobs).Error; err != nil {
		return nil, err
	}
	return jobs, nil
}

// CountJobs 统计岗位数量
func (m *MySQL) CountJobs(ctx context.Context) (int64, error) {
	var count int64
	if err := m.db.WithContext(ctx).Model(&models.Job{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// UpsertJobVector 写入或更新岗位向量
func (m *MySQL) UpsertJobVector(ctx context.Context, vector *models.JobVector) error {
	return m.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "job_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"embedding", "embedding_model_version", "updated_at",
		}),
	}).Create(vector).Error
}

// GetJobVectorByID 通过JobID获取向量记录
func (m *MySQL) GetJobVectorByID(ctx context.Context, jobID uint64) (*models.JobVector, error) {
	var vector models.JobVector
	if err := m.db.WithContext(ctx).Where("job_id = ?", jobID).First(&vector).Error; err != nil {
		return nil, err
	}
	return &vector, nil
}

//
// CV记录
//

// UpsertCVRecord 写入或更新CV生成记录
func (m *MySQL) UpsertCVRecord(ctx context.Context, record *models.CVRecord) error {
	return m.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "worker_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"has_cv", "html_path_oss", "text_path_oss", "pdf_path_oss",
			"cv_generated_at", "updated_at",
		}),
	}).Create(record).Error
}

// GetCVRecord 获取CV生成记录
func (m *MySQL) GetCVRecord(ctx context.Context, workerID string) (*models.CVRecord, error) {
	var record models.CVRecord
	if err := m.db.WithContext(ctx).Where("worker_id = ?", workerID).First(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

//
// Outbox
//

// CreateOutboxMessage 在给定事务内写入一条outbox消息
// 与业务写入同事务提交，保证事件不丢失也不超发
func (m *MySQL) CreateOutboxMessage(tx *gorm.DB, msg *models.OutboxMessage) error {
	if tx == nil {
		tx = m.db
	}
	return tx.Create(msg).Error
}

//
// 数据删除
//

// DeleteWorkerData 按类型清除工人数据
// dataType ∈ {personal, educational, both}；MinIO对象由调用方尽力清理
func (m *MySQL) DeleteWorkerData(ctx context.Context, workerID string, dataType string) error {
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		resetVerification := map[string]interface{}{
			"verification_status": constants.StatusVerificationPending,
			"verification_errors": gorm.Expr("NULL"),
			"verified_at":         gorm.Expr("NULL"),
		}

		if dataType == constants.DocumentKindPersonal || dataType == "both" {
			updates := map[string]interface{}{
				"name":                    "",
				"dob":                     "",
				"address":                 "",
				"personal_document_path":  "",
				"personal_extracted_name": "",
				"personal_extracted_dob":  "",
			}
			for k, v := range resetVerification {
				updates[k] = v
			}
			if err := tx.Model(&models.Worker{}).Where("worker_id = ?", workerID).Updates(updates).Error; err != nil {
				return fmt.Errorf("清除个人数据失败: %w", err)
			}
		}

		if dataType == constants.DocumentKindEducational || dataType == "both" {
			if err := tx.Where("worker_id = ?", workerID).Delete(&models.EducationalDocument{}).Error; err != nil {
				return fmt.Errorf("删除学历证件记录失败: %w", err)
			}
			updates := map[string]interface{}{
				"educational_document_paths": datatypes.JSON([]byte("[]")),
			}
			for k, v := range resetVerification {
				updates[k] = v
			}
			if err := tx.Model(&models.Worker{}).Where("worker_id = ?", workerID).Updates(updates).Error; err != nil {
				return fmt.Errorf("清除学历路径失败: %w", err)
			}
		}
		return nil
	})
}

// CountOutboxByStatus 按状态统计outbox消息数，运维端点用
func (m *MySQL) CountOutboxByStatus(ctx context.Context) (map[string]int64, error) {
	type row struct {
		Status string
		Count  int64
	}
	var rows []row
	err := m.db.WithContext(ctx).Model(&models.OutboxMessage{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	stats := make(map[string]int64, len(rows))
	for _, r := range rows {
		stats[r.Status] = r.Count
	}
	return stats, nil
}

// IsNotFound 判断错误是否为记录不存在
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
