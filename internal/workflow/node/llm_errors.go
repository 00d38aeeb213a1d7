package node

import (
	"context"
	"errors"
	"strings"
)

// ErrOutputRejected 模型返回了内容但未通过调用方的校验（空内容、格式不符等）
var ErrOutputRejected = errors.New("llm output rejected")

// 单次调用尝试的结果分类，用作指标标签
const (
	OutcomeSuccess  = "success"
	OutcomeTimeout  = "timeout"
	OutcomeCanceled = "canceled"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

// AttemptOutcome 将一次调用的错误归类
func AttemptOutcome(err error) string {
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, context.DeadlineExceeded):
		return OutcomeTimeout
	case errors.Is(err, context.Canceled):
		return OutcomeCanceled
	case errors.Is(err, ErrOutputRejected):
		return OutcomeRejected
	default:
		return OutcomeError
	}
}

// IsResponseFormatUnsupportedError 判断提供商是否拒绝了 response_format 参数
func IsResponseFormatUnsupportedError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "response_format"):
		return true
	case strings.Contains(msg, "json_object"):
		return true
	case strings.Contains(msg, "unknown parameter") && strings.Contains(msg, "response"):
		return true
	case strings.Contains(msg, "invalid") && strings.Contains(msg, "response"):
		return true
	default:
		return false
	}
}
