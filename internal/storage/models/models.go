package models

import (
	"time"

	"gorm.io/datatypes"
)

// Worker 工人主表
// verification_status 取值 pending/verified/failed，描述证件交叉验证的进度
type Worker struct {
	WorkerID                  string         `gorm:"type:char(36);primaryKey"`
	MobileNumber              string         `gorm:"type:varchar(20);not null;index:idx_workers_mobile_number"`
	Name                      string         `gorm:"type:varchar(255)"`
	DOB                       string         `gorm:"column:dob;type:varchar(20)"` // DD-MM-YYYY
	Address                   string         `gorm:"type:text"`
	PersonalDocumentPath      string         `gorm:"type:varchar(1024)"`
	EducationalDocumentPaths  datatypes.JSON `gorm:"type:json"` // string[] MinIO对象键
	VideoURL                  string         `gorm:"type:varchar(1024)"`
	VerificationStatus        string         `gorm:"type:varchar(20);default:'pending';index:idx_workers_verification_status"`
	VerifiedAt                *time.Time     `gorm:"type:datetime(6)"`
	VerificationErrors        datatypes.JSON `gorm:"type:json"` // 结构化错误与比对记录
	PersonalExtractedName     string         `gorm:"type:varchar(255)"` // 规范化后的证件姓名
	PersonalExtractedDOB      string         `gorm:"column:personal_extracted_dob;type:varchar(20)"`
	CreatedAt                 time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6)"`
	UpdatedAt                 time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);autoUpdateTime"`
}

func (Worker) TableName() string {
	return "workers"
}

// EducationalDocument 学历证件表，一个工人可以有多条记录
type EducationalDocument struct {
	ID                 uint64         `gorm:"primaryKey;autoIncrement"`
	WorkerID           string         `gorm:"type:char(36);not null;index:idx_edu_worker_status,priority:1"`
	DocumentType       string         `gorm:"type:varchar(50)"`
	Qualification      string         `gorm:"type:varchar(100)"` // 规范化后的学历，例如 Class 10 / Class 12
	Board              string         `gorm:"type:varchar(255)"`
	Stream             string         `gorm:"type:varchar(255)"`
	YearOfPassing      string         `gorm:"type:varchar(20)"`
	SchoolName         string         `gorm:"type:varchar(255)"`
	MarksType          string         `gorm:"type:varchar(50)"`
	Marks              string         `gorm:"type:varchar(50)"`
	Percentage         string         `gorm:"type:varchar(20)"`
	RawTextPathOSS     string         `gorm:"type:varchar(1024)"` // 提取文本在MinIO中的对象键
	LLMExtractedData   datatypes.JSON `gorm:"type:json"`
	ExtractedName      string         `gorm:"type:varchar(255)"` // 规范化后的证件姓名
	ExtractedDOB       string         `gorm:"column:extracted_dob;type:varchar(20)"`
	VerificationStatus string         `gorm:"type:varchar(20);default:'pending';index:idx_edu_worker_status,priority:2"`
	VerificationErrors datatypes.JSON `gorm:"type:json"`
	CreatedAt          time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6)"`

	Worker *Worker `gorm:"foreignKey:WorkerID;references:WorkerID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

func (EducationalDocument) TableName() string {
	return "educational_documents"
}

// WorkExperience 工作经验表，每个工人至多一条存活记录（upsert语义）
type WorkExperience struct {
	ID                    uint64         `gorm:"primaryKey;autoIncrement"`
	WorkerID              string         `gorm:"type:char(36);not null;uniqueIndex:idx_we_worker_unique"`
	PrimarySkill          string         `gorm:"type:varchar(255)"`
	ExperienceYears       int            `gorm:"type:int"`
	ExperienceYearsFloat  float64        `gorm:"type:float"`
	TotalExperienceMonths int            `gorm:"type:int"`
	Skills                string         `gorm:"type:text"` // 逗号分隔，工具已合并入内
	PreferredLocation     string         `gorm:"type:varchar(255)"`
	CurrentLocation       string         `gorm:"type:varchar(255)"`
	Availability          string         `gorm:"type:varchar(100)"`
	Workplaces            datatypes.JSON `gorm:"type:json"` // []{workplace_name, work_location, work_duration}
	CreatedAt             time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6)"`
	UpdatedAt             time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);autoUpdateTime"`

	Worker *Worker `gorm:"foreignKey:WorkerID;references:WorkerID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

func (WorkExperience) TableName() string {
	return "work_experiences"
}

// VoiceSession 语音外呼会话表
type VoiceSession struct {
	CallID         string         `gorm:"type:char(36);primaryKey"`
	WorkerID       string         `gorm:"type:char(36);index:idx_vs_worker_id"`
	PhoneNumber    string         `gorm:"type:varchar(20);index:idx_vs_phone_number"`
	Status         string         `gorm:"type:varchar(20);default:'initiated'"`
	CurrentStep    string         `gorm:"type:varchar(100)"`
	Responses      datatypes.JSON `gorm:"type:json"`
	Transcript     string         `gorm:"type:text"`
	ExperienceData datatypes.JSON `gorm:"type:json"`
	ExpReady       bool           `gorm:"default:false"` // 经验整合是否已完成，confirm接口据此放行
	CreatedAt      time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6)"`
	UpdatedAt      time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);autoUpdateTime"`
}

func (VoiceSession) TableName() string {
	return "voice_sessions"
}

// ExperienceSession 问答式经验收集会话表
type ExperienceSession struct {
	SessionID       string         `gorm:"type:char(36);primaryKey"`
	WorkerID        string         `gorm:"type:char(36);index:idx_es_worker_id"`
	CurrentQuestion int            `gorm:"type:int;default:0"`
	RawConversation datatypes.JSON `gorm:"type:json"` // []{question, answer}
	StructuredData  datatypes.JSON `gorm:"type:json"`
	Status          string         `gorm:"type:varchar(20);default:'active'"`
	CreatedAt       time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6)"`
	UpdatedAt       time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);autoUpdateTime"`
}

func (ExperienceSession) TableName() string {
	return "experience_sessions"
}

// PendingExtraction 人工复核工作流的暂存区，不直接落到Worker上
type PendingExtraction struct {
	WorkerID                string         `gorm:"type:char(36);primaryKey"`
	PersonalDocumentPath    string         `gorm:"type:varchar(1024)"`
	EducationalDocumentPath string         `gorm:"type:varchar(1024)"`
	PersonalData            datatypes.JSON `gorm:"type:json"`
	EducationData           datatypes.JSON `gorm:"type:json"`
	Status                  string         `gorm:"type:varchar(20);default:'pending'"`
	CreatedAt               time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6)"`
	UpdatedAt               time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);autoUpdateTime"`
}

func (PendingExtraction) TableName() string {
	return "pending_extractions"
}

// Job 岗位信息表
type Job struct {
	JobID          uint64    `gorm:"primaryKey;autoIncrement"`
	Title          string    `gorm:"type:varchar(255);not null"`
	Description    string    `gorm:"type:text"`
	RequiredSkills string    `gorm:"type:text"` // 逗号分隔
	Location       string    `gorm:"type:varchar(255)"`
	CreatedAt      time.Time `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6)"`
}

func (Job) TableName() string {
	return "jobs"
}

// JobVector 存储岗位的向量表示，Redis中另有一份HASH缓存
type JobVector struct {
	JobID                 uint64         `gorm:"primaryKey"`
	Embedding             datatypes.JSON `gorm:"type:json;not null"` // float64[]
	EmbeddingModelVersion string         `gorm:"type:varchar(100);not null"`
	CreatedAt             time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6)"`
	UpdatedAt             time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);autoUpdateTime"`

	Job *Job `gorm:"foreignKey:JobID;references:JobID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

func (JobVector) TableName() string {
	return "job_vectors"
}

// CVRecord CV生成记录表，每个工人至多一条
type CVRecord struct {
	ID            uint64     `gorm:"primaryKey;autoIncrement"`
	WorkerID      string     `gorm:"type:char(36);not null;uniqueIndex:idx_cv_worker_unique"`
	HasCV         bool       `gorm:"column:has_cv;default:false"`
	HTMLPathOSS   string     `gorm:"column:html_path_oss;type:varchar(1024)"`
	TextPathOSS   string     `gorm:"column:text_path_oss;type:varchar(1024)"`
	PDFPathOSS    string     `gorm:"column:pdf_path_oss;type:varchar(1024)"`
	CVGeneratedAt *time.Time `gorm:"column:cv_generated_at;type:datetime(6)"`
	UpdatedAt     time.Time  `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);autoUpdateTime"`

	Worker *Worker `gorm:"foreignKey:WorkerID;references:WorkerID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

func (CVRecord) TableName() string {
	return "cv_records"
}
