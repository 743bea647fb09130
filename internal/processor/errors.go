package processor

import (
	"errors"
	"fmt"
)

// 定义基础错误类型
var (
	ErrDocumentDownloadFailed = errors.New("下载证件失败")
	ErrExtractTextFailed      = errors.New("提取证件文本失败")
	ErrStoreTextFailed        = errors.New("上传解析文本失败")
	ErrLLMExtractFailed       = errors.New("LLM结构化提取失败")
	ErrPublishMessageFailed   = errors.New("发布消息失败")
	ErrUpdateStatusFailed     = errors.New("更新工人状态失败")
	ErrDatabaseFailed         = errors.New("数据库操作失败")
	ErrCVRenderFailed         = errors.New("CV渲染失败")
)

// OnboardingProcessError 包含详细错误信息的自定义错误
type OnboardingProcessError struct {
	WorkerID string
	Op       string
	BaseErr  error
	Detail   string
}

func (e *OnboardingProcessError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s (操作:%s, WorkerID:%s): %s", e.BaseErr, e.Op, e.WorkerID, e.Detail)
	}
	return fmt.Sprintf("%s (操作:%s, WorkerID:%s)", e.BaseErr, e.Op, e.WorkerID)
}

func (e *OnboardingProcessError) Unwrap() error {
	return e.BaseErr
}

// Is 实现 errors.Is 接口以支持错误比较
func (e *OnboardingProcessError) Is(target error) bool {
	return errors.Is(e.BaseErr, target)
}

// 错误构造函数
func NewDownloadError(workerID, detail string) error {
	return &OnboardingProcessError{
		WorkerID: workerID,
		Op:       "download",
		BaseErr:  ErrDocumentDownloadFailed,
		Detail:   detail,
	}
}

func NewExtractError(workerID, detail string) error {
	return &OnboardingProcessError{
		WorkerID: workerID,
		Op:       "extract",
		BaseErr:  ErrExtractTextFailed,
		Detail:   detail,
	}
}

func NewStoreError(workerID, detail string) error {
	return &OnboardingProcessError{
		WorkerID: workerID,
		Op:       "store",
		BaseErr:  ErrStoreTextFailed,
		Detail:   detail,
	}
}

func NewLLMExtractError(workerID, detail string) error {
	return &OnboardingProcessError{
		WorkerID: workerID,
		Op:       "llm_extract",
		BaseErr:  ErrLLMExtractFailed,
		Detail:   detail,
	}
}

func NewPublishError(workerID, detail string) error {
	return &OnboardingProcessError{
		WorkerID: workerID,
		Op:       "publish",
		BaseErr:  ErrPublishMessageFailed,
		Detail:   detail,
	}
}

func NewUpdateError(workerID, detail string) error {
	return &OnboardingProcessError{
		WorkerID: workerID,
		Op:       "update",
		BaseErr:  ErrUpdateStatusFailed,
		Detail:   detail,
	}
}

func NewDatabaseError(workerID, detail string) error {
	return &OnboardingProcessError{
		WorkerID: workerID,
		Op:       "database",
		BaseErr:  ErrDatabaseFailed,
		Detail:   detail,
	}
}

func NewCVRenderError(workerID, detail string) error {
	return &OnboardingProcessError{
		WorkerID: workerID,
		Op:       "cv_render",
		BaseErr:  ErrCVRenderFailed,
		Detail:   detail,
	}
}
