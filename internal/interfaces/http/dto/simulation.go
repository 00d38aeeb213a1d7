package dto

import (
	"strings"

	"lexsim-api/internal/application/simulation"
)

// SimulateRequest POST /api/simulate 请求体。
// 规范形态使用西班牙语字段名，同时接受英文别名；两者都有非空值时以西班牙语字段为准，
// 西班牙语字段为空白时使用英文别名。
// 只有 prompt 而没有 context 时按兼容的步骤形态处理。
type SimulateRequest struct {
	Contexto          *string  `json:"contexto,omitempty"`
	Materia           *string  `json:"materia,omitempty"`
	Nivel             *string  `json:"nivel,omitempty"`
	Jurisdiccion      *string  `json:"jurisdiccion,omitempty"`
	ObjetivoDidactico *string  `json:"objetivo_didactico,omitempty"`
	DuracionMin       *int     `json:"duracion_min,omitempty"`
	Restricciones     []string `json:"restricciones,omitempty"`

	Context         *string  `json:"context,omitempty"`
	Subject         *string  `json:"subject,omitempty"`
	Level           *string  `json:"level,omitempty"`
	Jurisdiction    *string  `json:"jurisdiction,omitempty"`
	Objective       *string  `json:"objective,omitempty"`
	DurationMinutes *int     `json:"duration_minutes,omitempty"`
	Constraints     []string `json:"constraints,omitempty"`

	Prompt     *string          `json:"prompt,omitempty"`
	Parameters *StepsParameters `json:"parameters,omitempty"`
}

// StepsParameters 步骤形态的可选参数
type StepsParameters struct {
	Temperature *float64 `json:"temperature,omitempty"`
	MaxSteps    *int     `json:"max_steps,omitempty"`
}

// IsSteps 判断请求形态
func (r *SimulateRequest) IsSteps() bool {
	return r.Prompt != nil && strings.TrimSpace(r.contextText()) == ""
}

// ToSimulationDraft 合并别名字段
func (r *SimulateRequest) ToSimulationDraft() simulation.SimulationDraft {
	d := simulation.SimulationDraft{
		Context:         r.contextText(),
		Subject:         deref(firstText(r.Materia, r.Subject)),
		Level:           deref(firstText(r.Nivel, r.Level)),
		Jurisdiction:    firstText(r.Jurisdiccion, r.Jurisdiction),
		Objective:       firstText(r.ObjetivoDidactico, r.Objective),
		DurationMinutes: first(r.DuracionMin, r.DurationMinutes),
		Constraints:     r.Restricciones,
	}
	if d.Constraints == nil {
		d.Constraints = r.Constraints
	}
	return d
}

// ToStepsDraft 步骤形态
func (r *SimulateRequest) ToStepsDraft() simulation.StepsDraft {
	d := simulation.StepsDraft{Prompt: deref(r.Prompt)}
	if r.Parameters != nil {
		d.Temperature = r.Parameters.Temperature
		d.MaxSteps = r.Parameters.MaxSteps
	}
	return d
}

func (r *SimulateRequest) contextText() string {
	return deref(firstText(r.Contexto, r.Context))
}

// firstText 返回第一个非空白的值；都为空白时返回第一个非 nil 的值
func firstText(vals ...*string) *string {
	for _, v := range vals {
		if v != nil && strings.TrimSpace(*v) != "" {
			return v
		}
	}
	return first(vals...)
}

func first[T any](vals ...*T) *T {
	for _, v := range vals {
		if v != nil {
			return v
		}
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
