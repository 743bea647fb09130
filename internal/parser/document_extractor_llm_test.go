package parser

import (
	"context"
	"log"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 测试用LLM模型模拟器
type MockLLMModel struct {
	// 模拟响应
	mockResponse string
	// 记录绑定的工具 (可选，用于测试)
	boundTools []*schema.ToolInfo
}

// Generate 实现model.ChatModel接口
func (m *MockLLMModel) Generate(ctx context.Context, messages []*schema.Message, options ...model.Option) (*schema.Message, error) {
	return &schema.Message{
		Role:    "assistant",
		Content: m.mockResponse,
	}, nil
}

// Stream 实现model.ChatModel接口
func (m *MockLLMModel) Stream(ctx context.Context, messages []*schema.Message, options ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	// 测试中不需要流式响应
	return nil, nil
}

// BindTools 实现model.ChatModel接口
func (m *MockLLMModel) BindTools(tools []*schema.ToolInfo) error {
	m.boundTools = tools
	return nil
}

// WithTools 实现 model.ToolCallingChatModel 接口
func (m *MockLLMModel) WithTools(tools []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	if err := m.BindTools(tools); err != nil {
		return nil, err
	}
	return m, nil
}

func TestLLMDocumentExtractor_ExtractPersonal(t *testing.T) {
	mockModel := &MockLLMModel{
		mockResponse: "```json\n{\"name\": \"RAHUL KUMAR SHARMA\", \"dob\": \"15/06/1998\", \"address\": \"H.No 42, Gandhi Nagar, Kanpur\", \"mobile\": \"\"}\n```",
	}

	extractor := NewLLMDocumentExtractor(mockModel, log.New(log.Writer(), "[TEST] ", log.LstdFlags))

	result, err := extractor.ExtractPersonal(context.Background(), "Government of India\nRAHUL KUMAR SHARMA\nDOB: 15/06/1998")
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, "RAHUL KUMAR SHARMA", result.Name)
	assert.Equal(t, "15/06/1998", result.DOB)
	assert.Equal(t, "H.No 42, Gandhi Nagar, Kanpur", result.Address)
	assert.Empty(t, result.Mobile)
}

func TestLLMDocumentExtractor_ExtractEducational(t *testing.T) {
	// 模拟LLM不带代码块标记、直接返回JSON的情况
	mockModel := &MockLLMModel{
		mockResponse: `{"name": "PRIYA DEVI", "dob": "01/03/2000", "qualification": "12th", "board": "CBSE", "year_of_passing": "2016", "school_name": "DAV PUBLIC SCHOOL, PATNA", "stream": "Science (PCM)", "marks_type": "cgpa", "marks": "8.2", "document_type": "certificate"}`,
	}

	extractor := NewLLMDocumentExtractor(mockModel, nil)

	result, err := extractor.ExtractEducational(context.Background(), "CBSE SENIOR SCHOOL CERTIFICATE EXAMINATION 2016 ...")
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, "PRIYA DEVI", result.Name)
	assert.Equal(t, "12th", result.Qualification)
	assert.Equal(t, "CBSE", result.Board)
	assert.Equal(t, "2016", result.YearOfPassing)
	assert.Equal(t, "cgpa", result.MarksType)
	assert.Equal(t, "8.2", result.Marks)
}

func TestLLMDocumentExtractor_InvalidJSON(t *testing.T) {
	mockModel := &MockLLMModel{
		mockResponse: "对不起，我无法识别这份证件。",
	}

	extractor := NewLLMDocumentExtractor(mockModel, nil)

	_, err := extractor.ExtractPersonal(context.Background(), "garbled ocr output")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "无法从LLM响应中提取有效的JSON")
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "json代码块",
			input:    "前置说明\n```json\n{\"name\": \"A\"}\n```\n后置说明",
			expected: `{"name": "A"}`,
		},
		{
			name:     "裸JSON",
			input:    `{"name": "A", "nested": {"x": 1}}`,
			expected: `{"name": "A", "nested": {"x": 1}}`,
		},
		{
			name:     "嵌入文本中的JSON",
			input:    `结果如下: {"dob": "01-01-2000"} 请查收`,
			expected: `{"dob": "01-01-2000"}`,
		},
		{
			name:     "无JSON",
			input:    "没有任何结构化输出",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, extractJSON(tt.input))
		})
	}
}

func TestIsRetryableError(t *testing.T) {
	assert.False(t, isRetryableError(nil))
	assert.False(t, isRetryableError(assert.AnError))
	assert.True(t, isRetryableError(context.DeadlineExceeded))
}
