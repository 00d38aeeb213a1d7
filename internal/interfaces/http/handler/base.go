package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"lexsim-api/internal/interfaces/http/dto"
	apperrors "lexsim-api/pkg/errors"
	"lexsim-api/pkg/logger"
)

const (
	msgInvalidBody   = "El cuerpo de la solicitud no es un JSON válido."
	msgBodyTooLarge  = "La solicitud excede el tamaño máximo permitido."
	msgInternalError = "Error interno del servidor."
)

// respondError 把错误映射为 HTTP 响应；只返回面向用户的消息，不暴露底层原因
func respondError(c *gin.Context, err error) {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		logger.Error(c.Request.Context(), "unhandled error", err)
		appErr = apperrors.Wrap(err, apperrors.CodeInternalError, msgInternalError)
	}

	status := appErr.HTTPStatus
	if status == 0 {
		status = http.StatusInternalServerError
	}
	if appErr.RetryAfter > 0 {
		c.Header("Retry-After", strconv.Itoa(appErr.RetryAfter))
	}
	dto.AbortWithError(c, status, string(appErr.Code), appErr.Message)
}

// bindError 请求体解析失败
func bindError(err error) *apperrors.AppError {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return apperrors.Wrap(err, apperrors.CodePayloadTooLarge, msgBodyTooLarge)
	}
	return apperrors.Wrap(err, apperrors.CodeInvalidParam, msgInvalidBody)
}
