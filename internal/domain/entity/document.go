package entity

import (
	"encoding/json"
	"fmt"
	"math"
)

// WholeNumber 整数字段；模型常把整数写成 90.0，解码时接受小数部分为零的数字
type WholeNumber int

func (n *WholeNumber) UnmarshalJSON(b []byte) error {
	var num json.Number
	if err := json.Unmarshal(b, &num); err != nil {
		return err
	}
	if i, err := num.Int64(); err == nil {
		*n = WholeNumber(i)
		return nil
	}
	f, err := num.Float64()
	if err != nil {
		return err
	}
	if math.Trunc(f) != f || math.Abs(f) > math.MaxInt32 {
		return fmt.Errorf("entity: %s is not a whole number", num)
	}
	*n = WholeNumber(f)
	return nil
}

// SimulationDocument 模型输出中 JSON 块的结构约定。
// validate 标签由 go-playground/validator 执行：嵌套对象与列表必须出现，枚举字段必须取合法值。
type SimulationDocument struct {
	Meta                  *DocumentMeta   `json:"meta" validate:"required"`
	Personajes            []Character     `json:"personajes" validate:"required,dive"`
	Cronologia            []TimelineEvent `json:"cronologia" validate:"required,dive"`
	PlanteamientoJuridico *LegalFraming   `json:"planteamiento_juridico" validate:"required"`
	Pruebas               *Evidence       `json:"pruebas" validate:"required"`
	Guion                 *Script         `json:"guion" validate:"required"`
	Decision              *Decision       `json:"decision" validate:"required"`
	BancoPreguntas        []string        `json:"banco_preguntas" validate:"required"`
	Rubrica               []RubricItem    `json:"rubrica" validate:"required,dive"`
	Variantes             []string        `json:"variantes" validate:"required"`
	Glosario              []GlossaryTerm  `json:"glosario" validate:"required,dive"`
}

type DocumentMeta struct {
	Titulo            string      `json:"titulo"`
	Jurisdiccion      string      `json:"jurisdiccion"`
	Materia           string      `json:"materia"`
	Nivel             Level       `json:"nivel" validate:"oneof=basico intermedio avanzado"`
	ObjetivoDidactico string      `json:"objetivo_didactico"`
	DuracionMinutos   WholeNumber `json:"duracion_minutos" validate:"gte=0"`
}

type Character struct {
	Nombre    string   `json:"nombre"`
	Rol       string   `json:"rol" validate:"oneof=juez fiscal defensa demandante demandado testigo perito policia otro"`
	Bio       string   `json:"bio"`
	Objetivos []string `json:"objetivos" validate:"required"`
	Sesgos    []string `json:"sesgos" validate:"required"`
}

type TimelineEvent struct {
	T      string `json:"t"`
	Evento string `json:"evento"`
}

type LegalFraming struct {
	Tipo                Subject  `json:"tipo" validate:"oneof=penal civil laboral administrativo otro"`
	CargosOPretensiones []string `json:"cargos_o_pretensiones" validate:"required"`
	EstandarProbatorio  string   `json:"estandar_probatorio"`
	Notas               string   `json:"notas"`
}

type Evidence struct {
	Documental    []DocumentaryEvidence `json:"documental" validate:"required,dive"`
	Testimonial   []TestimonialEvidence `json:"testimonial" validate:"required,dive"`
	Pericial      []ExpertEvidence      `json:"pericial" validate:"required,dive"`
	DigitalFisica []PhysicalEvidence    `json:"digital_fisica" validate:"required,dive"`
}

type DocumentaryEvidence struct {
	ID                   string   `json:"id"`
	Descripcion          string   `json:"descripcion"`
	Origen               string   `json:"origen"`
	AutenticidadCustodia string   `json:"autenticidad_custodia"`
	PosiblesObjeciones   []string `json:"posibles_objeciones" validate:"required"`
}

type TestimonialEvidence struct {
	ID                       string   `json:"id"`
	Testigo                  string   `json:"testigo"`
	Alcance                  string   `json:"alcance"`
	RiesgosCredibilidad      []string `json:"riesgos_credibilidad" validate:"required"`
	ContrapreguntasSugeridas []string `json:"contrapreguntas_sugeridas" validate:"required"`
}

type ExpertEvidence struct {
	ID      string `json:"id"`
	Area    string `json:"area"`
	Metodo  string `json:"metodo"`
	Limites string `json:"limites"`
	Validez string `json:"validez"`
}

type PhysicalEvidence struct {
	ID             string            `json:"id"`
	Tipo           string            `json:"tipo" validate:"oneof=digital fisica"`
	Descripcion    string            `json:"descripcion"`
	Hash           string            `json:"hash"`
	Metadatos      map[string]string `json:"metadatos" validate:"required"`
	CadenaCustodia string            `json:"cadena_custodia"`
}

type Script struct {
	InstruccionesInicialesJuez string         `json:"instrucciones_iniciales_juez"`
	Apertura                   *TwoPartSpeech `json:"apertura" validate:"required"`
	Interrogatorios            []Examination  `json:"interrogatorios" validate:"required,dive"`
	ObjecionesTipicas          []Objection    `json:"objeciones_tipicas" validate:"required,dive"`
	Cierre                     *TwoPartSpeech `json:"cierre" validate:"required"`
	InstruccionesFinalesJuez   string         `json:"instrucciones_finales_juez"`
}

// TwoPartSpeech 开场陈述与结案陈词（控方/辩方各一段）
type TwoPartSpeech struct {
	Parte1 string `json:"parte_1"`
	Parte2 string `json:"parte_2"`
}

type Examination struct {
	Tipo      string   `json:"tipo" validate:"oneof=directo contrainterrogatorio"`
	AQuien    string   `json:"a_quien"`
	Preguntas []string `json:"preguntas" validate:"required"`
}

type Objection struct {
	Objecion   string `json:"objecion"`
	Fundamento string `json:"fundamento"`
}

type Decision struct {
	Criterios              []string             `json:"criterios" validate:"required"`
	MatrizVeredicto        []VerdictCriterion   `json:"matriz_veredicto" validate:"required,dive"`
	ResultadosAlternativos []AlternativeOutcome `json:"resultados_alternativos" validate:"required,dive"`
}

type VerdictCriterion struct {
	Criterio      string  `json:"criterio"`
	Peso          float64 `json:"peso"`
	Observaciones string  `json:"observaciones"`
}

type AlternativeOutcome struct {
	Escenario   string `json:"escenario"`
	Descripcion string `json:"descripcion"`
}

type RubricItem struct {
	Criterio   string            `json:"criterio"`
	Niveles    map[string]string `json:"niveles" validate:"required"`
	PuntajeMax WholeNumber       `json:"puntaje_max"`
}

type GlossaryTerm struct {
	Termino    string `json:"termino"`
	Definicion string `json:"definicion"`
}
