// Package handler 提供 HTTP 请求处理器
package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"lexsim-api/internal/application/simulation"
	"lexsim-api/internal/domain/entity"
	"lexsim-api/internal/interfaces/http/dto"
)

// SimulationService 模拟用例
type SimulationService interface {
	Simulate(ctx context.Context, clientKey string, d simulation.SimulationDraft) (*entity.SimulationResult, error)
	Steps(ctx context.Context, clientKey string, d simulation.StepsDraft) (*entity.StepsResult, error)
}

// SimulateHandler 模拟生成处理器
type SimulateHandler struct {
	svc SimulationService
}

// NewSimulateHandler 创建模拟生成处理器
func NewSimulateHandler(svc SimulationService) *SimulateHandler {
	return &SimulateHandler{svc: svc}
}

// Simulate 生成模拟
// @Summary 生成庭审模拟
// @Description 规范形态返回 markdown/json/warnings；只提供 prompt 时返回 steps/summary/metadata
// @Tags Simulation
// @Accept json
// @Produce json
// @Param body body dto.SimulateRequest true "模拟参数"
// @Success 200 {object} entity.SimulationResult
// @Failure 400 {object} dto.ErrorResponse
// @Failure 429 {object} dto.ErrorResponse
// @Failure 502 {object} dto.ErrorResponse
// @Router /api/simulate [post]
func (h *SimulateHandler) Simulate(c *gin.Context) {
	var req dto.SimulateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, bindError(err))
		return
	}

	ctx := c.Request.Context()
	clientKey := c.ClientIP()

	if req.IsSteps() {
		res, err := h.svc.Steps(ctx, clientKey, req.ToStepsDraft())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, res)
		return
	}

	res, err := h.svc.Simulate(ctx, clientKey, req.ToSimulationDraft())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
