package processor

import "strings"

// ChatQuestion 问答流程中的一个问题
type ChatQuestion struct {
	Key  string `json:"key"`
	Text string `json:"text"`
}

// chatScript 经验采集的固定问题序列，第0题为同意确认
var chatScript = []ChatQuestion{
	{Key: "consent", Text: "Hi! I will ask you a few quick questions about your work experience to build your resume. Shall we start? (yes/no)"},
	{Key: "primary_skill", Text: "What is your main trade or skill? For example: electrician, plumber, welder."},
	{Key: "experience_years", Text: "How many years of work experience do you have?"},
	{Key: "skills", Text: "What other skills do you have? You can list more than one."},
	{Key: "tools", Text: "Which tools or machines can you work with?"},
	{Key: "preferred_location", Text: "Which city would you prefer to work in?"},
}

// declineWords 同意环节的否定回答
var declineWords = map[string]struct{}{
	"no":    {},
	"nahi":  {},
	"nhi":   {},
	"nahin": {},
}

// ChatQuestionCount 问题总数
func ChatQuestionCount() int {
	return len(chatScript)
}

// ChatQuestionAt 返回第idx个问题，越界返回false
func ChatQuestionAt(idx int) (ChatQuestion, bool) {
	if idx < 0 || idx >= len(chatScript) {
		return ChatQuestion{}, false
	}
	return chatScript[idx], true
}

// IsDeclinedConsent 判断同意环节的回答是否为拒绝
func IsDeclinedConsent(answer string) bool {
	normalized := strings.ToLower(strings.TrimSpace(answer))
	// 只看首词，容忍 "no, thanks" 这类回答
	if idx := strings.IndexAny(normalized, " ,.!"); idx > 0 {
		normalized = normalized[:idx]
	}
	_, declined := declineWords[normalized]
	return declined
}

// ConversationTurn 一轮问答
type ConversationTurn struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// ConversationTranscript 把问答轮次拼成转写文本，供LLM经验提取复用语音通路
func ConversationTranscript(turns []ConversationTurn) string {
	var b strings.Builder
	for _, turn := range turns {
		b.WriteString("Agent: " + turn.Question + "\n")
		b.WriteString("Worker: " + turn.Answer + "\n")
	}
	return b.String()
}
