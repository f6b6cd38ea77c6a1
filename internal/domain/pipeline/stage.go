// Package pipeline contiene el núcleo puro del pipeline de ventas: registro de etapas,
// el PipelineItem unificado, el normalizador de entidades, el evaluador de permisos y
// los filtros de búsqueda. No hace I/O.
package pipeline

import (
	"strings"
)

// Stage nombre canónico de una etapa del embudo.
type Stage string

// Etapas del embudo, en orden de tablero.
const (
	StageLead         Stage = "Lead"
	StageSurvey       Stage = "Survey"
	StageDesign       Stage = "Design"
	StageQuote        Stage = "Quote"
	StageConsultation Stage = "Consultation"
	StageQuoted       Stage = "Quoted"
	StageAccepted     Stage = "Accepted"
	StageOnHold       Stage = "On Hold"
	StageProduction   Stage = "Production"
	StageDelivery     Stage = "Delivery"
	StageInstallation Stage = "Installation"
	StageComplete     Stage = "Complete"
	StageRemedial     Stage = "Remedial"
)

// FallbackStage etapa inicial usada cuando el backend envía un valor desconocido o vacío.
const FallbackStage = StageLead

const columnPrefix = "col-"

// StageInfo metadatos de visualización de una etapa.
type StageInfo struct {
	Stage      Stage  `json:"stage"`
	Color      string `json:"color"`
	Column     string `json:"column"`
	Production bool   `json:"production"`
	Position   int    `json:"position"`
}

// Registry conjunto fijo y ordenado de etapas válidas.
type Registry struct {
	stages   []StageInfo
	byKey    map[string]int
	byColumn map[string]int
}

var defaultStages = []struct {
	stage      Stage
	color      string
	production bool
}{
	{StageLead, "#94a3b8", false},
	{StageSurvey, "#60a5fa", false},
	{StageDesign, "#818cf8", false},
	{StageQuote, "#a78bfa", false},
	{StageConsultation, "#c084fc", false},
	{StageQuoted, "#f472b6", false},
	{StageAccepted, "#34d399", false},
	{StageOnHold, "#fbbf24", false},
	{StageProduction, "#f97316", true},
	{StageDelivery, "#fb923c", true},
	{StageInstallation, "#22d3ee", true},
	{StageComplete, "#22c55e", true},
	{StageRemedial, "#ef4444", true},
}

// DefaultRegistry registro global de etapas. Es inmutable tras su construcción.
var DefaultRegistry = newRegistry()

func newRegistry() *Registry {
	r := &Registry{
		stages:   make([]StageInfo, 0, len(defaultStages)),
		byKey:    make(map[string]int, len(defaultStages)),
		byColumn: make(map[string]int, len(defaultStages)),
	}
	for i, s := range defaultStages {
		info := StageInfo{
			Stage:      s.stage,
			Color:      s.color,
			Column:     ColumnID(s.stage),
			Production: s.production,
			Position:   i,
		}
		r.stages = append(r.stages, info)
		r.byKey[stageKey(string(s.stage))] = i
		r.byColumn[info.Column] = i
	}
	return r
}

// Slug convierte el nombre de la etapa a minúsculas con guiones en lugar de espacios.
func Slug(s Stage) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(string(s))), " ", "-")
}

// ColumnID identificador de columna derivado del nombre de la etapa (función pura).
func ColumnID(s Stage) string {
	return columnPrefix + Slug(s)
}

// stageKey clave tolerante: ignora mayúsculas, espacios, guiones y guiones bajos.
func stageKey(raw string) string {
	return strings.NewReplacer(" ", "", "-", "", "_", "").Replace(strings.ToLower(strings.TrimSpace(raw)))
}

// Stages devuelve una copia de las etapas en orden.
func (r *Registry) Stages() []StageInfo {
	out := make([]StageInfo, len(r.stages))
	copy(out, r.stages)
	return out
}

// Lookup busca una etapa por su valor crudo del backend.
func (r *Registry) Lookup(raw string) (StageInfo, bool) {
	i, ok := r.byKey[stageKey(raw)]
	if !ok {
		return StageInfo{}, false
	}
	return r.stages[i], true
}

// Coerce devuelve la etapa registrada para raw o la etapa de respaldo si no existe.
// El segundo valor indica si hubo que sustituir el valor.
func (r *Registry) Coerce(raw string) (Stage, bool) {
	if info, ok := r.Lookup(raw); ok {
		return info.Stage, false
	}
	return FallbackStage, true
}

// StageForColumn decodifica una columna a su etapa.
func (r *Registry) StageForColumn(column string) (Stage, bool) {
	i, ok := r.byColumn[strings.ToLower(strings.TrimSpace(column))]
	if !ok {
		return "", false
	}
	return r.stages[i].Stage, true
}

// Info devuelve los metadatos de una etapa registrada.
func (r *Registry) Info(s Stage) (StageInfo, bool) {
	return r.Lookup(string(s))
}

// IsProduction informa si la etapa pertenece al subconjunto de producción.
func (r *Registry) IsProduction(s Stage) bool {
	info, ok := r.Info(s)
	return ok && info.Production
}
