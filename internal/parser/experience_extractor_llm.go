package parser

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"

	"onboard-agent-go/internal/types"

	"github.com/cloudwego/eino/components/model"
)

// LLMExperienceExtractor 从语音转写或聊天问答中提取工人经验画像
type LLMExperienceExtractor struct {
	llmModel model.ToolCallingChatModel

	// 经验提取提示词
	prompt string

	logger *log.Logger
}

// ExpExtractorOption 是经验提取器的配置选项
type ExpExtractorOption func(*LLMExperienceExtractor)

// WithExperiencePrompt 覆盖默认经验提取提示词
func WithExperiencePrompt(prompt string) ExpExtractorOption {
	return func(e *LLMExperienceExtractor) {
		e.prompt = prompt
	}
}

// NewLLMExperienceExtractor 创建新的LLM经验提取器
func NewLLMExperienceExtractor(llmModel model.ToolCallingChatModel, logger *log.Logger, options ...ExpExtractorOption) *LLMExperienceExtractor {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	extractor := &LLMExperienceExtractor{
		llmModel: llmModel,
		logger:   logger,
	}

	for _, opt := range options {
		opt(extractor)
	}

	if extractor.prompt == "" {
		extractor.prompt = experienceExtractionPrompt()
	}

	return extractor
}

// experienceExtractionPrompt 经验画像提取提示词
func experienceExtractionPrompt() string {
	return `你是一个蓝领招聘领域的信息提取专家，专注于从工人的电话转写或问答对话中提取工作经验画像。

对话以印地语/英语混杂（Hinglish）为主，转写可能有噪声。请只提取对话中明确陈述的信息，严禁编造。

提取以下字段：
- primary_skill: 工人的主要工种，尽量归一为英文技能词（如 "electrician"、"plumber"、"welder"、"carpenter"、"driver"、"cook"）
- experience_years: 总工作年限，数字（允许小数，如2.5）。对话未提及时为0
- skills: 技能列表，英文，包含primary_skill及提到的其他技能
- tools: 工人提到会使用的工具/设备列表
- current_location: 当前所在城市
- preferred_location: 期望工作城市，未提及时与current_location相同
- availability: 可到岗时间，原文大意（如 "immediate"、"15 days"）
- workplaces: 工作经历数组，每项包含：
  - workplace_name: 雇主/工地名称
  - work_location: 工作城市（可选）
  - work_duration: 时长原文（如 "2 saal"、"6 months"，保留原始表述）
  - duration_months: 对话明确给出月数时填写，否则为0
  - start_date: 开始年月（如 "01-2020"，可选）
  - end_date: 结束年月，在职则为空（可选）

信息缺失处理：字符串字段缺失时为空字符串，数组字段缺失时为空数组。不要推断未提及的内容。

JSON输出格式规范：
{
  "primary_skill": "string",
  "experience_years": 0.0,
  "skills": ["string"],
  "tools": ["string"],
  "current_location": "string",
  "preferred_location": "string",
  "availability": "string",
  "workplaces": [
    {
      "workplace_name": "string",
      "work_location": "string",
      "work_duration": "string",
      "duration_months": 0,
      "start_date": "string",
      "end_date": "string"
    }
  ]
}

请严格按照上述JSON格式输出，不要包含任何解释性文字或Markdown标记。

以下是示例分析，请参考这些模式进行学习：

示例1
输入转写：
"""
Agent: Aap kya kaam karte hain?
Worker: Main electrician ka kaam karta hun, wiring aur fitting dono.
Agent: Kitne saal ka experience hai?
Worker: Total 5 saal ho gaye. Pehle 2 saal Sharma Electricals Kanpur mein kiya, phir 3 saal se L&T site Delhi mein hun.
Agent: Kaunse tools use karte ho?
Worker: Tester, drill machine, multimeter sab chala leta hun.
Agent: Kahan kaam karna chahte ho?
Worker: Abhi Delhi mein hun, Mumbai mein kaam mil jaye to accha hai. Turant join kar sakta hun.
"""
输出：
{"primary_skill": "electrician", "experience_years": 5, "skills": ["electrician", "wiring", "fitting"], "tools": ["tester", "drill machine", "multimeter"], "current_location": "Delhi", "preferred_location": "Mumbai", "availability": "immediate", "workplaces": [{"workplace_name": "Sharma Electricals", "work_location": "Kanpur", "work_duration": "2 saal", "duration_months": 24, "start_date": "", "end_date": ""}, {"workplace_name": "L&T site", "work_location": "Delhi", "work_duration": "3 saal", "duration_months": 36, "start_date": "", "end_date": ""}]}

示例2 (信息稀疏)
输入转写：
"""
Agent: What work do you do?
Worker: Plumber. Ek saal se kaam dhund raha hun, pehle thoda bahut local kaam kiya tha Patna mein.
"""
输出：
{"primary_skill": "plumber", "experience_years": 0, "skills": ["plumber"], "tools": [], "current_location": "Patna", "preferred_location": "Patna", "availability": "", "workplaces": []}

接下来，你将收到一份转写文本，请对其进行分析。`
}

// ExtractExperience 从转写文本中提取经验画像
func (e *LLMExperienceExtractor) ExtractExperience(ctx context.Context, transcript string) (*types.ExperienceProfile, error) {
	// 复用证件提取器的调用与重试逻辑
	call := &LLMDocumentExtractor{llmModel: e.llmModel, logger: e.logger}
	response, err := call.callLLM(ctx, e.prompt, transcript)
	if err != nil {
		return nil, fmt.Errorf("LLM调用失败: %w", err)
	}

	jsonStr := extractJSON(response)
	if jsonStr == "" {
		e.logger.Printf("无法从LLM响应中提取有效的JSON。原始响应: %s", response)
		return nil, fmt.Errorf("无法从LLM响应中提取有效的JSON")
	}

	var profile types.ExperienceProfile
	if err := json.Unmarshal([]byte(jsonStr), &profile); err != nil {
		return nil, fmt.Errorf("解析JSON失败: %w", err)
	}

	// 提取后交叉校验：preferred_location缺省回退到current_location
	if profile.PreferredLocation == "" {
		profile.PreferredLocation = profile.CurrentLocation
	}
	if profile.Skills == nil {
		profile.Skills = []string{}
	}
	if profile.Tools == nil {
		profile.Tools = []string{}
	}
	if profile.Workplaces == nil {
		profile.Workplaces = []types.WorkplaceEntry{}
	}

	return &profile, nil
}
