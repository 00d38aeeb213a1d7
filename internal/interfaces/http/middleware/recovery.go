package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"lexsim-api/internal/interfaces/http/dto"
	apperrors "lexsim-api/pkg/errors"
	"lexsim-api/pkg/logger"
)

const msgInternalError = "Error interno del servidor."

// Recovery 捕获 handler 中的 panic，记录堆栈并返回通用 500。
// http.ErrAbortHandler 原样抛出，由 net/http 中断连接。
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if err, ok := rec.(error); ok && errors.Is(err, http.ErrAbortHandler) {
				panic(rec)
			}

			logger.Error(c.Request.Context(), "panic recovered",
				fmt.Errorf("%v", rec),
				"stack", string(debug.Stack()),
				"path", c.Request.URL.Path,
				"method", c.Request.Method,
			)

			// 响应已开始写出时只能中止
			if c.Writer.Written() {
				c.Abort()
				return
			}
			dto.AbortWithError(c, http.StatusInternalServerError, string(apperrors.CodeInternalError), msgInternalError)
		}()

		c.Next()
	}
}
