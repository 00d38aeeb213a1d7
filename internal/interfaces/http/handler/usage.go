package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"lexsim-api/internal/application/usage"
)

// UsageHandler 进程内模型用量统计
type UsageHandler struct {
	recorder *usage.Recorder
}

func NewUsageHandler(recorder *usage.Recorder) *UsageHandler {
	return &UsageHandler{recorder: recorder}
}

type usageResponse struct {
	Models []usage.Totals `json:"models"`
}

// Usage 返回自进程启动以来的累计调用与 token 数
// @Summary 模型用量
// @Tags System
// @Produce json
// @Success 200 {object} usageResponse
// @Router /api/usage [get]
func (h *UsageHandler) Usage(c *gin.Context) {
	models := []usage.Totals{}
	if h != nil && h.recorder != nil {
		models = h.recorder.Snapshot()
	}
	c.JSON(http.StatusOK, usageResponse{Models: models})
}
