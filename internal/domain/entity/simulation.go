// Package entity 定义领域实体
package entity

// Subject 案件所属法律领域（materia）
type Subject string

const (
	SubjectPenal          Subject = "penal"
	SubjectCivil          Subject = "civil"
	SubjectLaboral        Subject = "laboral"
	SubjectAdministrativo Subject = "administrativo"
	SubjectOtro           Subject = "otro"
)

// Subjects 按展示顺序列出全部合法领域
var Subjects = []Subject{SubjectPenal, SubjectCivil, SubjectLaboral, SubjectAdministrativo, SubjectOtro}

// Valid 判断是否为合法领域
func (s Subject) Valid() bool {
	for _, v := range Subjects {
		if v == s {
			return true
		}
	}
	return false
}

// Level 练习难度（nivel）
type Level string

const (
	LevelBasico     Level = "basico"
	LevelIntermedio Level = "intermedio"
	LevelAvanzado   Level = "avanzado"
)

// Levels 全部合法难度
var Levels = []Level{LevelBasico, LevelIntermedio, LevelAvanzado}

// Valid 判断是否为合法难度
func (l Level) Valid() bool {
	for _, v := range Levels {
		if v == l {
			return true
		}
	}
	return false
}

// Mode 请求形态
type Mode string

const (
	// ModeSimulation 规范形态：markdown/json/warnings
	ModeSimulation Mode = "simulation"
	// ModeSteps 兼容形态：steps/summary/metadata
	ModeSteps Mode = "steps"
)

// SimulationInput 经过校验与归一化的模拟请求
type SimulationInput struct {
	Context         string
	Subject         Subject
	Level           Level
	Jurisdiction    string
	Objective       string
	DurationMinutes int
	Constraints     []string
}

// StepsInput 经过校验的兼容形态请求
type StepsInput struct {
	Prompt      string
	Temperature *float64
	MaxSteps    int
}

// SimulationResult 规范形态结果
type SimulationResult struct {
	Markdown string `json:"markdown"`
	// JSON 为模型给出的结构化块（已通过 SimulationDocument 校验），缺失时为 null
	JSON     map[string]any `json:"json"`
	Warnings []string       `json:"warnings"`
}

// StepsResult 兼容形态结果
type StepsResult struct {
	Steps    []string          `json:"steps"`
	Summary  string            `json:"summary"`
	Metadata map[string]string `json:"metadata"`
}
