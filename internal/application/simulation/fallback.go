package simulation

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"lexsim-api/internal/domain/entity"
	wfnode "lexsim-api/internal/workflow/node"
)

const (
	fallbackSnippetRunes = 280
	defaultJurisdiction  = "Jurisdicción genérica"
)

var fallbackBaseTime = time.Date(2035, 1, 1, 9, 0, 0, 0, time.UTC)

// contextSnippet 折叠空白后截取前 280 个字符
func contextSnippet(text string) string {
	return wfnode.Snippet(text, fallbackSnippetRunes)
}

func jurisdictionOrDefault(in entity.SimulationInput) string {
	if in.Jurisdiction != "" {
		return in.Jurisdiction
	}
	return defaultJurisdiction
}

// FallbackMarkdown 模型未给出 Markdown 时的确定性替代内容
func FallbackMarkdown(in entity.SimulationInput) string {
	snippet := contextSnippet(in.Context)
	if snippet == "" {
		snippet = "El contexto proporcionado fue muy breve, se recomienda revisarlo."
	}

	var b strings.Builder
	b.WriteString("# Simulación de respaldo LexSim\n\n")
	b.WriteString("_Contenido generado automáticamente debido a un fallo del modelo._\n\n")
	b.WriteString("## Resumen del caso\n")
	b.WriteString("- **Jurisdicción:** " + jurisdictionOrDefault(in) + "\n")
	b.WriteString("- **Materia:** " + string(in.Subject) + "\n")
	b.WriteString("- **Nivel:** " + string(in.Level) + "\n")
	b.WriteString("- **Objetivo didáctico:** " + in.Objective + "\n")
	b.WriteString("- **Duración estimada:** " + strconv.Itoa(in.DurationMinutes) + " minutos\n\n")
	b.WriteString("### Contexto sintetizado\n")
	b.WriteString(snippet + "\n\n")
	b.WriteString("### Actividades sugeridas\n")
	b.WriteString("1. Analizar los roles propuestos en la estructura JSON de respaldo.\n")
	b.WriteString("2. Discutir los riesgos procesales principales y las medidas de mitigación.\n")
	b.WriteString("3. Elaborar argumentos introductorios y de cierre para fiscalía y defensa.\n\n")
	b.WriteString("---\n")
	b.WriteString("_Este material de contingencia asegura que la práctica pedagógica pueda continuar aun sin la salida del modelo._")
	return b.String()
}

// FallbackDocument 模型未给出有效 JSON 时的确定性替代结构
func FallbackDocument(in entity.SimulationInput) entity.SimulationDocument {
	snippet := contextSnippet(in.Context)
	if snippet == "" {
		snippet = "Contexto resumido no disponible"
	}
	sum := sha256.Sum256([]byte(snippet))
	contextHash := hex.EncodeToString(sum[:])[:16]

	timeline := make([]entity.TimelineEvent, 0, 3)
	for _, ev := range []struct {
		desc   string
		offset time.Duration
	}{
		{"Inicio de audiencia de acusación", 0},
		{"Presentación de pruebas y objeciones", 30 * time.Minute},
		{"Deliberación y conclusiones pedagógicas", 90 * time.Minute},
	} {
		timeline = append(timeline, entity.TimelineEvent{
			T:      fallbackBaseTime.Add(ev.offset).Format("2006-01-02 15:04"),
			Evento: ev.desc,
		})
	}

	return entity.SimulationDocument{
		Meta: &entity.DocumentMeta{
			Titulo:            "Simulación de contingencia: " + titleCase(string(in.Subject)),
			Jurisdiccion:      jurisdictionOrDefault(in),
			Materia:           string(in.Subject),
			Nivel:             in.Level,
			ObjetivoDidactico: in.Objective,
			DuracionMinutos:   entity.WholeNumber(in.DurationMinutes),
		},
		Personajes: []entity.Character{
			{
				Nombre:    "Juez(a) de Control LexSim",
				Rol:       "juez",
				Bio:       "Facilitador ficticio que modera el ejercicio cuando el modelo falla.",
				Objetivos: []string{"Garantizar continuidad de la práctica", "Modelar decisiones imparciales"},
				Sesgos:    []string{"Preferencia por material estructurado"},
			},
			{
				Nombre:    "Fiscal sustituto",
				Rol:       "fiscal",
				Bio:       "Representación académica que usa el contexto proporcionado para sustentar cargos.",
				Objetivos: []string{"Vincular hechos a la teoría del caso", "Aprovechar el material de respaldo"},
				Sesgos:    []string{"Confianza en informes escritos"},
			},
			{
				Nombre:    "Defensor(a) de oficio académico",
				Rol:       "defensa",
				Bio:       "Profesional ficticio encargado de impugnar la versión acusatoria usando solo el contexto.",
				Objetivos: []string{"Resaltar dudas razonables", "Proteger el debido proceso"},
				Sesgos:    []string{"Estrategias prudentes"},
			},
			{
				Nombre:    "Testigo contextual",
				Rol:       "testigo",
				Bio:       "Figura creada para narrar los hechos descritos en el contexto proporcionado.",
				Objetivos: []string{"Describir hechos relevantes", "Responder a contrainterrogatorios"},
				Sesgos:    []string{"Recuerdos influenciados por el estrés"},
			},
		},
		Cronologia: timeline,
		PlanteamientoJuridico: &entity.LegalFraming{
			Tipo:                in.Subject,
			CargosOPretensiones: []string{"Análisis de responsabilidad según contexto: " + wfnode.TruncateByRunes(snippet, 60)},
			EstandarProbatorio:  "Determinable según normatividad aplicable",
			Notas:               "Escenario generado automáticamente por ausencia de salida del modelo.",
		},
		Pruebas: &entity.Evidence{
			Documental: []entity.DocumentaryEvidence{{
				ID:                   "DOC-FB-01",
				Descripcion:          "Resumen documental construido con la información disponible en el contexto.",
				Origen:               "Archivo de respaldo LexSim",
				AutenticidadCustodia: "Cadena hipotética verificada para fines académicos",
				PosiblesObjeciones:   []string{"Pertinencia", "Fundamento insuficiente"},
			}},
			Testimonial: []entity.TestimonialEvidence{{
				ID:                  "TES-FB-01",
				Testigo:             "Testigo contextual",
				Alcance:             "Relata los hechos descritos en el contexto de la solicitud.",
				RiesgosCredibilidad: []string{"Memoria dependiente de notas de respaldo"},
				ContrapreguntasSugeridas: []string{
					"Precise circunstancias observadas",
					"Indique fuentes de su conocimiento",
				},
			}},
			Pericial: []entity.ExpertEvidence{{
				ID:      "PER-FB-01",
				Area:    "Reconstrucción de hechos",
				Metodo:  "Análisis de consistencia del contexto",
				Limites: "Datos incompletos al provenir de un fallback",
				Validez: "Únicamente para práctica académica",
			}},
			DigitalFisica: []entity.PhysicalEvidence{{
				ID:             "DIG-FB-01",
				Tipo:           "digital",
				Descripcion:    "Archivo simulado que resume el contexto aportado.",
				Hash:           contextHash,
				Metadatos:      map[string]string{"generado_por": "LexSim fallback", "fiabilidad": "moderada"},
				CadenaCustodia: "Registro automático interno (uso educativo)",
			}},
		},
		Guion: &entity.Script{
			InstruccionesInicialesJuez: "Se informa a los participantes que se utiliza material de respaldo debido a un error del modelo.",
			Apertura: &entity.TwoPartSpeech{
				Parte1: "La fiscalía describe los hechos apoyándose en el contexto y los documentos de respaldo.",
				Parte2: "La defensa señala posibles fallas en la cadena causal y enfatiza la necesidad de mayor corroboración.",
			},
			Interrogatorios: []entity.Examination{
				{
					Tipo:   "directo",
					AQuien: "Testigo contextual",
					Preguntas: []string{
						"Detalle qué observó según el contexto proporcionado",
						"Explique cómo reaccionaron los involucrados",
					},
				},
				{
					Tipo:   "contrainterrogatorio",
					AQuien: "Testigo contextual",
					Preguntas: []string{
						"Confirme las limitaciones de su recuerdo",
						"Señale si recibió instrucciones previas al testimonio",
					},
				},
			},
			ObjecionesTipicas: []entity.Objection{
				{Objecion: "leading", Fundamento: "Se sugiere la respuesta al testigo durante el fallback"},
				{Objecion: "hearsay", Fundamento: "La declaración depende de información secundaria compilada en el fallback"},
			},
			Cierre: &entity.TwoPartSpeech{
				Parte1: "La fiscalía solicita valorar la coherencia del contexto y la simulación de pruebas.",
				Parte2: "La defensa pide absolver ante la ausencia de corroboración directa del modelo.",
			},
			InstruccionesFinalesJuez: "Los estudiantes deliberarán considerando las limitaciones de este material de respaldo.",
		},
		Decision: &entity.Decision{
			Criterios: []string{
				"Coherencia interna del contexto",
				"Consistencia de testimonios simulados",
				"Respeto por garantías procesales en el ejercicio",
			},
			MatrizVeredicto: []entity.VerdictCriterion{
				{Criterio: "Análisis del contexto", Peso: 0.4, Observaciones: "Evaluar qué elementos faltan por ausencia del modelo"},
				{Criterio: "Calidad de los interrogatorios", Peso: 0.3, Observaciones: "Considerar si las preguntas cubren todos los hechos"},
				{Criterio: "Argumentación final", Peso: 0.3, Observaciones: "Valorar la incorporación crítica del material de respaldo"},
			},
			ResultadosAlternativos: []entity.AlternativeOutcome{
				{Escenario: "A", Descripcion: "Se dicta responsabilidad simbólica con base en el material de respaldo"},
				{Escenario: "B", Descripcion: "Se absuelve ante las limitaciones derivadas del uso del fallback"},
			},
		},
		BancoPreguntas: []string{
			"¿Cómo se adaptan los roles cuando se trabaja con un fallback?",
			"¿Qué riesgos probatorios emergen al no contar con evidencia completa?",
			"¿Qué estrategias de objeción son prioritarias en este escenario?",
		},
		Rubrica: []entity.RubricItem{{
			Criterio: "Dominio del caso de respaldo",
			Niveles: map[string]string{
				"excelente": "Integra críticamente el fallback con referencias normativas.",
				"bueno":     "Utiliza adecuadamente el fallback identificando riesgos.",
				"basico":    "Depende casi exclusivamente del material entregado sin análisis crítico.",
			},
			PuntajeMax: 10,
		}},
		Variantes: []string{
			"Reformular el caso a materia administrativa usando el mismo fallback.",
			"Solicitar a los estudiantes generar pruebas adicionales para reforzar la simulación.",
		},
		Glosario: []entity.GlossaryTerm{
			{Termino: "Fallback pedagógico", Definicion: "Material generado automáticamente para continuar la simulación cuando falla el modelo."},
			{Termino: "Cadena de custodia simulada", Definicion: "Registro ficticio que preserva trazabilidad en ejercicios académicos."},
		},
	}
}

// documentToMap 转为响应使用的通用结构
func documentToMap(doc entity.SimulationDocument) map[string]any {
	b, err := json.Marshal(doc)
	if err != nil {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil
	}
	return m
}

// applyFallback 用兜底内容补齐缺失部分，并替换对应的检测警告
func applyFallback(p ParsedSimulation, in entity.SimulationInput) ParsedSimulation {
	var added []string
	if p.Markdown == "" {
		p.Markdown = FallbackMarkdown(in)
		added = append(added, WarningFallbackMarkdown)
	}
	if p.JSON == nil {
		p.JSON = documentToMap(FallbackDocument(in))
		added = append(added, WarningFallbackJSON)
	}
	if len(added) == 0 {
		return p
	}

	kept := make([]string, 0, len(p.Warnings)+len(added))
	for _, w := range p.Warnings {
		if w != WarningJSONMissing {
			kept = append(kept, w)
		}
	}
	p.Warnings = append(kept, added...)
	return p
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	r := []rune(strings.ToLower(s))
	return strings.ToUpper(string(r[0])) + string(r[1:])
}
