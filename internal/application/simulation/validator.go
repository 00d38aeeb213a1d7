// Package simulation 实现模拟请求的校验、生成与解析
package simulation

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"lexsim-api/internal/config"
	"lexsim-api/internal/domain/entity"
	apperrors "lexsim-api/pkg/errors"
)

const (
	minDurationMinutes = 30
	maxDurationMinutes = 480
)

// SimulationDraft 未经校验的模拟请求；指针为 nil 表示调用方未提供该字段
type SimulationDraft struct {
	Context         string
	Subject         string
	Level           string
	Jurisdiction    *string
	Objective       *string
	DurationMinutes *int
	Constraints     []string
}

// StepsDraft 未经校验的兼容形态请求
type StepsDraft struct {
	Prompt      string
	Temperature *float64
	MaxSteps    *int
}

// simulationRules 枚举与范围类的静态规则
type simulationRules struct {
	Subject         string `validate:"oneof=penal civil laboral administrativo otro"`
	Level           string `validate:"oneof=basico intermedio avanzado"`
	DurationMinutes int    `validate:"gte=30,lte=480"`
}

type stepsRules struct {
	Temperature *float64 `validate:"omitempty,gte=0,lte=1"`
	MaxSteps    int      `validate:"gte=1"`
}

// Validator 服务端权威校验；CLI 客户端复用同一实现
type Validator struct {
	rules    config.ValidationConfig
	defaults config.DefaultsConfig
	validate *validator.Validate
}

// NewValidator 创建校验器
func NewValidator(cfg config.SimulationConfig) *Validator {
	return &Validator{
		rules:    cfg.Validation,
		defaults: cfg.Defaults,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// ValidateSimulation 校验并归一化模拟请求：去除首尾空白、填充默认值
func (v *Validator) ValidateSimulation(d SimulationDraft) (entity.SimulationInput, error) {
	text := strings.TrimSpace(NormalizeNewlines(d.Context))
	if err := v.checkContext(text); err != nil {
		return entity.SimulationInput{}, err
	}

	in := entity.SimulationInput{
		Context:         text,
		Subject:         entity.Subject(orDefault(strings.ToLower(strings.TrimSpace(d.Subject)), v.defaults.Subject)),
		Level:           entity.Level(orDefault(strings.ToLower(strings.TrimSpace(d.Level)), v.defaults.Level)),
		Objective:       v.defaults.Objective,
		DurationMinutes: v.defaults.DurationMinutes,
	}
	if d.Jurisdiction != nil {
		in.Jurisdiction = strings.TrimSpace(*d.Jurisdiction)
	}
	if d.Objective != nil {
		in.Objective = orDefault(strings.TrimSpace(*d.Objective), v.defaults.Objective)
	}
	if d.DurationMinutes != nil {
		in.DurationMinutes = *d.DurationMinutes
	}

	err := v.validate.Struct(simulationRules{
		Subject:         string(in.Subject),
		Level:           string(in.Level),
		DurationMinutes: in.DurationMinutes,
	})
	if err != nil {
		return entity.SimulationInput{}, invalid(simulationRuleMessage(err))
	}

	constraints, err := v.normalizeConstraints(d.Constraints)
	if err != nil {
		return entity.SimulationInput{}, err
	}
	in.Constraints = constraints
	return in, nil
}

// ValidateSteps 校验兼容形态请求
func (v *Validator) ValidateSteps(d StepsDraft) (entity.StepsInput, error) {
	prompt := strings.TrimSpace(d.Prompt)
	if prompt == "" {
		return entity.StepsInput{}, invalid("El prompt es obligatorio.")
	}

	in := entity.StepsInput{Prompt: prompt, Temperature: d.Temperature, MaxSteps: v.defaults.MaxSteps}
	if d.MaxSteps != nil {
		in.MaxSteps = *d.MaxSteps
	}

	if err := v.validate.Struct(stepsRules{Temperature: in.Temperature, MaxSteps: in.MaxSteps}); err != nil {
		var verrs validator.ValidationErrors
		if asValidationErrors(err, &verrs) && verrs[0].Field() == "Temperature" {
			return entity.StepsInput{}, invalid("La temperatura debe estar entre 0 y 1.")
		}
		return entity.StepsInput{}, invalid(fmt.Sprintf("max_steps debe estar entre 1 y %d.", v.rules.MaxSteps))
	}
	if v.rules.MaxSteps > 0 && in.MaxSteps > v.rules.MaxSteps {
		return entity.StepsInput{}, invalid(fmt.Sprintf("max_steps debe estar entre 1 y %d.", v.rules.MaxSteps))
	}
	return in, nil
}

// checkContext 长度、行数与信息量规则
func (v *Validator) checkContext(text string) error {
	if text == "" {
		return invalid("El contexto es obligatorio.")
	}
	if utf8.RuneCountInString(text) < v.rules.MinContextChars {
		return invalid(fmt.Sprintf("El contexto debe tener al menos %d caracteres.", v.rules.MinContextChars))
	}

	lines := NonEmptyLines(text)
	if v.rules.MaxContextLines > 0 && lines > v.rules.MaxContextLines {
		return invalid(fmt.Sprintf("El contexto no debe exceder %d líneas.", v.rules.MaxContextLines))
	}
	if lines < v.rules.MinInformativeRows && SentenceCount(text) < v.rules.MinSentences {
		return invalid(fmt.Sprintf("El contexto debe contener al menos %d líneas o %d oraciones.",
			v.rules.MinInformativeRows, v.rules.MinSentences))
	}
	return nil
}

func (v *Validator) normalizeConstraints(raw []string) ([]string, error) {
	out := make([]string, 0, len(raw))
	for _, c := range raw {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		if v.rules.MaxConstraintChars > 0 && utf8.RuneCountInString(c) > v.rules.MaxConstraintChars {
			return nil, invalid(fmt.Sprintf("Cada restricción debe tener como máximo %d caracteres.", v.rules.MaxConstraintChars))
		}
		out = append(out, c)
	}
	if v.rules.MaxConstraints > 0 && len(out) > v.rules.MaxConstraints {
		return nil, invalid(fmt.Sprintf("Se permiten como máximo %d restricciones.", v.rules.MaxConstraints))
	}
	return out, nil
}

var newlineReplacer = strings.NewReplacer("\r\n", "\n", "\r", "\n")

// NormalizeNewlines 把 \r\n 与单独的 \r 统一为 \n
func NormalizeNewlines(text string) string {
	return newlineReplacer.Replace(text)
}

// NonEmptyLines 统计非空白行数；\r\n 与 \r 均视为换行
func NonEmptyLines(text string) int {
	n := 0
	for _, line := range strings.Split(NormalizeNewlines(text), "\n") {
		if strings.TrimSpace(line) != "" {
			n++
		}
	}
	return n
}

// SentenceCount 按 . ! ? ; … 切分，统计含字母或数字的片段数
func SentenceCount(text string) int {
	segments := strings.FieldsFunc(text, func(r rune) bool {
		switch r {
		case '.', '!', '?', ';', '…':
			return true
		}
		return false
	})
	n := 0
	for _, s := range segments {
		if strings.IndexFunc(s, func(r rune) bool { return unicode.IsLetter(r) || unicode.IsDigit(r) }) >= 0 {
			n++
		}
	}
	return n
}

func simulationRuleMessage(err error) string {
	var verrs validator.ValidationErrors
	if !asValidationErrors(err, &verrs) {
		return "Solicitud inválida."
	}
	switch verrs[0].Field() {
	case "Subject":
		return "La materia debe ser una de: penal, civil, laboral, administrativo, otro."
	case "Level":
		return "El nivel debe ser uno de: basico, intermedio, avanzado."
	default:
		return fmt.Sprintf("La duración debe estar entre %d y %d minutos.", minDurationMinutes, maxDurationMinutes)
	}
}

func asValidationErrors(err error, target *validator.ValidationErrors) bool {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok || len(verrs) == 0 {
		return false
	}
	*target = verrs
	return true
}

func invalid(msg string) *apperrors.AppError {
	return apperrors.Validation(msg)
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
