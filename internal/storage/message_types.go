package storage

import "time"

// DocumentUploadedMessage 证件上传消息
// 上传接口写入MinIO并落库后发布，文档提取消费者据此驱动OCR+LLM流水线
type DocumentUploadedMessage struct {
	WorkerID      string    `json:"worker_id"`               // 工人ID
	DocumentKind  string    `json:"document_kind"`           // personal / educational
	ObjectKey     string    `json:"object_key"`              // MinIO中的对象路径
	FileName      string    `json:"file_name"`               // 原始文件名
	FileSize      int64     `json:"file_size,omitempty"`     // 文件大小(字节)
	RawFileMD5    string    `json:"raw_file_md5,omitempty"`  // 原始文件MD5，失败时用于回滚去重集合
	UploadedAt    time.Time `json:"uploaded_at"`             // 上传时间
	ContentType   string    `json:"content_type,omitempty"`  // MIME类型
	SourceChannel string    `json:"source_channel,omitempty"`
}

// TranscriptReceivedMessage 通话转写消息
// 转写提交接口发布，经验整合消费者据此做LLM抽取与upsert
type TranscriptReceivedMessage struct {
	CallID        string    `json:"call_id"`
	WorkerID      string    `json:"worker_id"`
	PhoneNumber   string    `json:"phone_number,omitempty"`
	Transcript    string    `json:"transcript"`
	TranscriptMD5 string    `json:"transcript_md5,omitempty"` // 转写文本MD5，防止重复消费
	ReceivedAt    time.Time `json:"received_at"`
}

// CVRequestedMessage CV生成消息（异步再生成路径）
type CVRequestedMessage struct {
	WorkerID    string    `json:"worker_id"`
	RequestedAt time.Time `json:"requested_at"`
	Reason      string    `json:"reason,omitempty"` // regenerate / experience_updated 等
}

// VoiceCallRequestedMessage 外呼请求消息
// final-submit通过outbox写入，中继发布后由外呼调度消费者POST给语音Agent
type VoiceCallRequestedMessage struct {
	WorkerID    string    `json:"worker_id"`
	PhoneNumber string    `json:"phone_number"`
	WorkerName  string    `json:"worker_name,omitempty"`
	RequestedAt time.Time `json:"requested_at"`
}
