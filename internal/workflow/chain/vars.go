package chain

import (
	"strconv"

	"lexsim-api/internal/domain/entity"
)

// SimulationVars 模拟模板变量；可选字段也必须出现（模板以 missingkey=error 渲染）
func SimulationVars(in entity.SimulationInput) map[string]any {
	constraints := in.Constraints
	if constraints == nil {
		constraints = []string{}
	}
	return map[string]any{
		"context":          in.Context,
		"subject":          string(in.Subject),
		"level":            string(in.Level),
		"jurisdiction":     in.Jurisdiction,
		"objective":        in.Objective,
		"duration_minutes": in.DurationMinutes,
		"constraints":      constraints,
	}
}

// StepsVars 步骤模板变量
func StepsVars(in entity.StepsInput) map[string]any {
	temperature := ""
	if in.Temperature != nil {
		temperature = strconv.FormatFloat(*in.Temperature, 'f', -1, 64)
	}
	return map[string]any{
		"prompt":      in.Prompt,
		"max_steps":   in.MaxSteps,
		"temperature": temperature,
	}
}
