// Package dto 提供 HTTP 层数据传输对象
package dto

import (
	"github.com/gin-gonic/gin"
)

// gin.Context 中由中间件写入、错误响应读取的键
const (
	CtxKeyRequestID = "request_id"
	CtxKeyTraceID   = "trace_id"
)

// ErrorDetail 机器可读的错误码
type ErrorDetail struct {
	ErrorCode string `json:"error_code,omitempty"`
}

// ErrorResponse 所有非 2xx 响应的统一结构；message 面向最终用户，不含底层原因
type ErrorResponse struct {
	Code      int          `json:"code"`
	Message   string       `json:"message"`
	Error     *ErrorDetail `json:"error,omitempty"`
	TraceID   string       `json:"trace_id,omitempty"`
	RequestID string       `json:"request_id,omitempty"`
}

// AbortWithError 写入错误响应并中止后续处理
func AbortWithError(c *gin.Context, status int, errorCode, message string) {
	resp := ErrorResponse{
		Code:      status,
		Message:   message,
		TraceID:   c.GetString(CtxKeyTraceID),
		RequestID: c.GetString(CtxKeyRequestID),
	}
	if errorCode != "" {
		resp.Error = &ErrorDetail{ErrorCode: errorCode}
	}
	c.AbortWithStatusJSON(status, resp)
}
