package types

// VerificationStatus 表示工人或证件的审核验证状态
type VerificationStatus string

const (
	// VerificationPending 待验证（资料不全或尚未处理）
	VerificationPending VerificationStatus = "pending"
	// VerificationVerified 全部证件通过身份核验
	VerificationVerified VerificationStatus = "verified"
	// VerificationFailed 存在至少一份证件核验失败
	VerificationFailed VerificationStatus = "failed"
)

// DocumentKind 表示上传证件的类别
type DocumentKind string

const (
	// DocumentPersonal 个人身份证件（Aadhaar等）
	DocumentPersonal DocumentKind = "personal"
	// DocumentEducational 学历证件（成绩单、毕业证）
	DocumentEducational DocumentKind = "educational"
)

// Identity 从单份证件中提取出的身份信息（姓名+出生日期）
type Identity struct {
	Name string `json:"name"`
	DOB  string `json:"dob"`
}

// DocumentIdentity 学历证件携带的身份信息，附带证件定位字段
type DocumentIdentity struct {
	DocumentID    uint   `json:"document_id"`
	Qualification string `json:"qualification"`
	Name          string `json:"name"`
	DOB           string `json:"dob"`
}

// ComparisonRecord 单份证件与个人证件的比对结果
type ComparisonRecord struct {
	DocumentID     uint    `json:"document_id"`
	Qualification  string  `json:"qualification"`
	NameMatch      bool    `json:"name_match"`
	NameSimilarity float64 `json:"name_similarity"`
	DOBMatch       bool    `json:"dob_match"`
	OverallMatch   bool    `json:"overall_match"`
}

// MismatchRecord 单个字段的不一致明细，返回给调用方作为可操作的错误列表
type MismatchRecord struct {
	DocumentID    uint   `json:"document_id"`
	Field         string `json:"field"`
	DocumentValue string `json:"document_value"`
	PersonalValue string `json:"personal_value"`
	Reason        string `json:"reason"`
}

// VerificationResult 验证聚合器的输出，纯内存结构，不单独落库
type VerificationResult struct {
	Status        VerificationStatus `json:"status"`
	VerifiedCount int                `json:"verified_count"`
	TotalCount    int                `json:"total_count"`
	Comparisons   []ComparisonRecord `json:"comparisons"`
	Mismatches    []MismatchRecord   `json:"mismatches"`
	Error         string             `json:"error,omitempty"`
}

// MismatchesForDocument 过滤出某一份证件的不一致记录
func (r *VerificationResult) MismatchesForDocument(documentID uint) []MismatchRecord {
	var out []MismatchRecord
	for _, m := range r.Mismatches {
		if m.DocumentID == documentID {
			out = append(out, m)
		}
	}
	return out
}

// WorkplaceEntry 一段工作经历，时长字段为自由文本
type WorkplaceEntry struct {
	WorkplaceName  string `json:"workplace_name"`
	WorkLocation   string `json:"work_location,omitempty"`
	WorkDuration   string `json:"work_duration,omitempty"`
	DurationMonths int    `json:"duration_months,omitempty"`
	StartDate      string `json:"start_date,omitempty"`
	EndDate        string `json:"end_date,omitempty"`
}

// ExperienceProfile LLM从通话记录或问答会话中提取出的完整经验画像
type ExperienceProfile struct {
	PrimarySkill      string           `json:"primary_skill"`
	ExperienceYears   float64          `json:"experience_years"`
	Skills            []string         `json:"skills"`
	Tools             []string         `json:"tools"`
	CurrentLocation   string           `json:"current_location"`
	PreferredLocation string           `json:"preferred_location"`
	Availability      string           `json:"availability"`
	Workplaces        []WorkplaceEntry `json:"workplaces"`
}

// PersonalExtraction 个人证件的结构化提取结果
// NormalizedName/NormalizedDOB 由规范化器在入库前填充
type PersonalExtraction struct {
	Name           string `json:"name"`
	DOB            string `json:"dob"`
	Address        string `json:"address"`
	Mobile         string `json:"mobile"`
	NormalizedName string `json:"normalized_name,omitempty"`
	NormalizedDOB  string `json:"normalized_dob,omitempty"`
}

// EducationalExtraction 学历证件的结构化提取结果；Name和DOB为必填项
type EducationalExtraction struct {
	Name          string `json:"name"`
	DOB           string `json:"dob"`
	Qualification string `json:"qualification"`
	Board         string `json:"board"`
	YearOfPassing string `json:"year_of_passing"`
	SchoolName    string `json:"school_name"`
	Stream        string `json:"stream"`
	MarksType     string `json:"marks_type"`
	Marks         string `json:"marks"`
	DocumentType  string `json:"document_type"`
}

// CVPersonal 简历渲染器需要的个人信息视图
type CVPersonal struct {
	Name    string `json:"name"`
	Mobile  string `json:"mobile"`
	DOB     string `json:"dob"`
	Address string `json:"address"`
}

// CVEducationRow 简历中展示的一条学历记录
type CVEducationRow struct {
	Qualification string `json:"qualification"`
	Board         string `json:"board"`
	YearOfPassing string `json:"year_of_passing"`
	SchoolName    string `json:"school_name"`
	Marks         string `json:"marks"`
	Verified      bool   `json:"verified"`
}

// JobMatchResult 单个岗位的匹配评分结果
type JobMatchResult struct {
	JobID           uint    `json:"job_id"`
	Title           string  `json:"title"`
	Location        string  `json:"location"`
	MatchScore      float64 `json:"match_score"`
	Explanation     string  `json:"explanation"`
	SkillScore      float64 `json:"skill_match"`
	LocationScore   float64 `json:"location_match"`
	ExperienceScore float64 `json:"experience_score"`
}

// RankedWorker holds the final similarity score for a worker profile, used in
// admin vector search results.
type RankedWorker struct {
	WorkerID string
	Score    float32
}
