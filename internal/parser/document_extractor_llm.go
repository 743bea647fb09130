package parser

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"regexp"
	"strings"
	"time"

	"onboard-agent-go/internal/types"

	"github.com/cloudwego/eino/components/model"
	einoschema "github.com/cloudwego/eino/schema"
)

// LLMDocumentExtractor 使用LLM从OCR文本中提取证件结构化字段
type LLMDocumentExtractor struct {
	// LLM模型接口
	llmModel model.ToolCallingChatModel

	// 个人证件提示词
	personalPrompt string

	// 学历证件提示词
	educationalPrompt string

	logger *log.Logger
}

// DocExtractorOption 是证件提取器的配置选项
type DocExtractorOption func(*LLMDocumentExtractor)

// WithPersonalPrompt 覆盖个人证件提示词
func WithPersonalPrompt(prompt string) DocExtractorOption {
	return func(e *LLMDocumentExtractor) {
		e.personalPrompt = prompt
	}
}

// WithEducationalPrompt 覆盖学历证件提示词
func WithEducationalPrompt(prompt string) DocExtractorOption {
	return func(e *LLMDocumentExtractor) {
		e.educationalPrompt = prompt
	}
}

// NewLLMDocumentExtractor 创建新的LLM证件提取器
func NewLLMDocumentExtractor(llmModel model.ToolCallingChatModel, logger *log.Logger, options ...DocExtractorOption) *LLMDocumentExtractor {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	extractor := &LLMDocumentExtractor{
		llmModel: llmModel,
		logger:   logger,
	}

	// 应用选项
	for _, opt := range options {
		opt(extractor)
	}

	if extractor.personalPrompt == "" {
		extractor.personalPrompt = personalExtractionPrompt()
	}
	if extractor.educationalPrompt == "" {
		extractor.educationalPrompt = educationalExtractionPrompt()
	}

	return extractor
}

// personalExtractionPrompt 个人证件（Aadhaar等）提取提示词
func personalExtractionPrompt() string {
	return `你是一个证件信息提取专家，专注于从OCR识别出的印度身份证件文本（Aadhaar卡、PAN卡等）中提取结构化信息。

OCR文本可能包含乱码、错位的行和无关内容，请只依据文本中确实存在的信息提取，严禁编造。

提取以下字段：
- name: 持证人姓名（英文原样保留大小写）
- dob: 出生日期，保持原文格式，不要自行换算
- address: 地址（如存在，保留为一行）
- mobile: 手机号（如存在，只保留数字）

信息缺失处理：若某字段在文本里找不到，设为空字符串。不要推断、不要补全。

JSON输出格式规范：
{
  "name": "string",
  "dob": "string",
  "address": "string",
  "mobile": "string"
}

请严格按照上述JSON格式输出，不要包含任何解释性文字或Markdown标记。

以下是示例分析，请参考这些模式进行学习：

示例1
输入OCR文本：
"""
Government of India
RAHUL KUMAR SHARMA
DOB: 15/06/1998
Male
XXXX XXXX 4521
Address: H.No 42, Gandhi Nagar, Kanpur, Uttar Pradesh - 208001
"""
输出：
{"name": "RAHUL KUMAR SHARMA", "dob": "15/06/1998", "address": "H.No 42, Gandhi Nagar, Kanpur, Uttar Pradesh - 208001", "mobile": ""}

示例2 (字段缺失)
输入OCR文本：
"""
INCOME TAX DEPARTMENT
PRIYA DEVI
Permanent Account Number
FXXPS1234L
01-03-2000
"""
输出：
{"name": "PRIYA DEVI", "dob": "01-03-2000", "address": "", "mobile": ""}

接下来，你将收到一份证件OCR文本，请对其进行分析。`
}

// educationalExtractionPrompt 学历证件（成绩单/毕业证）提取提示词
func educationalExtractionPrompt() string {
	return `你是一个证件信息提取专家，专注于从OCR识别出的印度学历证件文本（10th/12th成绩单、毕业证、ITI证书等）中提取结构化信息。

OCR文本可能包含乱码和表格错位，请只依据文本中确实存在的信息提取，严禁编造。

提取以下字段：
- name: 学生姓名（文本原样）
- dob: 出生日期，保持原文格式
- qualification: 学历层次，尽量归一为 "10th"、"12th"、"Graduate"、"Diploma"、"ITI" 之一；无法判断时保留原文
- board: 考试委员会/大学名称（如 CBSE、UP Board、State Board）
- year_of_passing: 通过年份
- school_name: 学校/学院名称
- stream: 科目方向（如 Science、Commerce、Arts），10th通常为空
- marks_type: "percentage"、"cgpa" 或 "division"
- marks: 分数原始值（如 "78.4"、"8.2"、"First Division"）
- document_type: 证件类型描述（如 "marksheet"、"certificate"）

信息缺失处理：缺失字段设为空字符串。name和dob是身份核验的关键，请尽最大努力定位。

JSON输出格式规范：
{
  "name": "string",
  "dob": "string",
  "qualification": "string",
  "board": "string",
  "year_of_passing": "string",
  "school_name": "string",
  "stream": "string",
  "marks_type": "string",
  "marks": "string",
  "document_type": "string"
}

请严格按照上述JSON格式输出，不要包含任何解释性文字或Markdown标记。

以下是示例分析，请参考这些模式进行学习：

示例1
输入OCR文本：
"""
BOARD OF HIGH SCHOOL AND INTERMEDIATE EDUCATION UTTAR PRADESH
HIGH SCHOOL EXAMINATION - 2014
Name: RAHUL KUMAR SHARMA
Father's Name: SURESH SHARMA
Date of Birth: 15-06-1998
Roll No: 0234567
School: GANDHI INTER COLLEGE KANPUR
Percentage: 68.5
Result: PASSED
"""
输出：
{"name": "RAHUL KUMAR SHARMA", "dob": "15-06-1998", "qualification": "10th", "board": "UP Board", "year_of_passing": "2014", "school_name": "GANDHI INTER COLLEGE KANPUR", "stream": "", "marks_type": "percentage", "marks": "68.5", "document_type": "marksheet"}

示例2 (12th 理科，CGPA)
输入OCR文本：
"""
CENTRAL BOARD OF SECONDARY EDUCATION
SENIOR SCHOOL CERTIFICATE EXAMINATION 2016
PRIYA DEVI
DOB 01/03/2000
Stream: Science (PCM)
DAV PUBLIC SCHOOL, PATNA
CGPA: 8.2
"""
输出：
{"name": "PRIYA DEVI", "dob": "01/03/2000", "qualification": "12th", "board": "CBSE", "year_of_passing": "2016", "school_name": "DAV PUBLIC SCHOOL, PATNA", "stream": "Science (PCM)", "marks_type": "cgpa", "marks": "8.2", "document_type": "certificate"}

接下来，你将收到一份学历证件OCR文本，请对其进行分析。`
}

// ExtractPersonal 从个人证件OCR文本中提取结构化字段
func (e *LLMDocumentExtractor) ExtractPersonal(ctx context.Context, text string) (*types.PersonalExtraction, error) {
	response, err := e.callLLM(ctx, e.personalPrompt, text)
	if err != nil {
		return nil, fmt.Errorf("LLM调用失败: %w", err)
	}

	jsonStr := extractJSON(response)
	if jsonStr == "" {
		e.logger.Printf("无法从LLM响应中提取有效的JSON。原始响应: %s", response)
		return nil, fmt.Errorf("无法从LLM响应中提取有效的JSON")
	}

	var result types.PersonalExtraction
	if err := json.Unmarshal([]byte(jsonStr), &result); err != nil {
		return nil, fmt.Errorf("解析JSON失败: %w", err)
	}
	return &result, nil
}

// ExtractEducational 从学历证件OCR文本中提取结构化字段
func (e *LLMDocumentExtractor) ExtractEducational(ctx context.Context, text string) (*types.EducationalExtraction, error) {
	response, err := e.callLLM(ctx, e.educationalPrompt, text)
	if err != nil {
		return nil, fmt.Errorf("LLM调用失败: %w", err)
	}

	jsonStr := extractJSON(response)
	if jsonStr == "" {
		e.logger.Printf("无法从LLM响应中提取有效的JSON。原始响应: %s", response)
		return nil, fmt.Errorf("无法从LLM响应中提取有效的JSON")
	}

	var result types.EducationalExtraction
	if err := json.Unmarshal([]byte(jsonStr), &result); err != nil {
		return nil, fmt.Errorf("解析JSON失败: %w", err)
	}
	return &result, nil
}

// callLLM 调用LLM处理提示词，带重试
func (e *LLMDocumentExtractor) callLLM(ctx context.Context, systemContent string, userContent string) (string, error) {
	messages := []*einoschema.Message{
		{Role: "system", Content: systemContent},
		{Role: "user", Content: userContent},
	}

	// 设置最大重试次数
	maxRetries := 2
	retryDelay := 2 * time.Second

	var response *einoschema.Message
	var err error

	e.logger.Printf("[LLMDocumentExtractor] System Prompt: %.50s...", systemContent)
	e.logger.Printf("[LLMDocumentExtractor] User Prompt: %.50s...", userContent)

	// 重试逻辑
	for retry := 0; retry <= maxRetries; retry++ {
		// 如果是重试，则先检查上下文是否已取消
		if retry > 0 {
			select {
			case <-ctx.Done():
				return "", fmt.Errorf("上下文已取消: %w", ctx.Err())
			case <-time.After(retryDelay):
				// 增加退避时间
				retryDelay *= 2
				e.logger.Printf("重试LLM调用 (第%d次)", retry)
			}
		}

		// 创建带超时的上下文，继承上游的取消信号
		callCtx, cancel := context.WithTimeout(ctx, 60*time.Second)

		// 调用LLM
		response, err = e.llmModel.Generate(callCtx, messages)
		cancel()

		if err == nil {
			break // 调用成功，退出重试循环
		}

		// 判断是否应该重试
		if !isRetryableError(err) || retry >= maxRetries {
			e.logger.Printf("[LLMDocumentExtractor] LLM call final error after retries: %v", err)
			return "", fmt.Errorf("LLM Generate failed: %w", err)
		}
	}

	e.logger.Printf("[LLMDocumentExtractor] LLM Response: %.50s", response.Content)
	return response.Content, nil
}

// isRetryableError 判断错误是否应该重试
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}

	// 检查常见的可重试错误
	errStr := err.Error()
	return strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "deadline exceeded") ||
		strings.Contains(errStr, "connection reset") ||
		strings.Contains(errStr, "EOF") ||
		strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "no such host")
}

// 从文本中提取JSON
func extractJSON(text string) string {
	// 尝试使用正则表达式提取 ```json ... ``` 代码块中的内容
	re := regexp.MustCompile("(?s)```json\\s*(\\{.*?\\})\\s*```")
	matches := re.FindStringSubmatch(text)
	if len(matches) > 1 {
		return strings.TrimSpace(matches[1])
	}

	// 如果正则没有匹配到，尝试寻找 JSON 的开始和结束位置作为回退
	start := strings.Index(text, "{")
	if start == -1 {
		return ""
	}

	// 查找匹配的}
	level := 0
	for i := start; i < len(text); i++ {
		if text[i] == '{' {
			level++
		} else if text[i] == '}' {
			level--
			if level == 0 {
				return strings.TrimSpace(text[start : i+1])
			}
		}
	}
	return ""
}
