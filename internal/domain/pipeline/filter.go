package pipeline

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// DateWindow ventana fija sobre la fecha de medición.
type DateWindow string

// Ventanas soportadas.
const (
	DateAny   DateWindow = ""
	DateToday DateWindow = "today"
	DateNext7 DateWindow = "next7"
	DateMonth DateWindow = "month"
)

// ParseDateWindow valida el valor recibido en query.
func ParseDateWindow(s string) (DateWindow, error) {
	switch w := DateWindow(strings.ToLower(strings.TrimSpace(s))); w {
	case DateAny, DateToday, DateNext7, DateMonth:
		return w, nil
	default:
		return DateAny, fmt.Errorf("ventana de fecha desconocida: %q", s)
	}
}

// Bounds devuelve el intervalo [from, to) de la ventana respecto a now.
func (w DateWindow) Bounds(now time.Time) (from, to time.Time, ok bool) {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	switch w {
	case DateToday:
		return today, today.AddDate(0, 0, 1), true
	case DateNext7:
		return today, today.AddDate(0, 0, 7), true
	case DateMonth:
		first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		return first, first.AddDate(0, 1, 0), true
	default:
		return time.Time{}, time.Time{}, false
	}
}

// Criteria filtros de la vista. Todos se combinan con AND; un campo vacío no filtra.
type Criteria struct {
	Query       string
	Salesperson string
	Stage       string
	JobType     string
	Date        DateWindow
}

// Filter proyección sin estado sobre los items normalizados.
type Filter struct {
	registry *Registry
}

// NewFilter construye el filtro. Si reg es nil usa DefaultRegistry.
func NewFilter(reg *Registry) *Filter {
	if reg == nil {
		reg = DefaultRegistry
	}
	return &Filter{registry: reg}
}

// Apply devuelve los items que cumplen todos los criterios, en el mismo orden.
func (f *Filter) Apply(items []Item, c Criteria, now time.Time) []Item {
	query := fold(c.Query)
	stageFilter, stageOK := f.resolveStage(c.Stage)
	from, to, dated := c.Date.Bounds(now)

	out := make([]Item, 0, len(items))
	for _, it := range items {
		if query != "" && !matchesText(it, query) {
			continue
		}
		if c.Salesperson != "" && strings.TrimSpace(it.Salesperson) != strings.TrimSpace(c.Salesperson) {
			continue
		}
		if c.Stage != "" && (!stageOK || it.Stage != stageFilter) {
			continue
		}
		if c.JobType != "" && strings.TrimSpace(it.JobType) != strings.TrimSpace(c.JobType) {
			continue
		}
		if dated {
			if it.MeasureDate == nil {
				continue
			}
			d := it.MeasureDate.In(now.Location())
			if d.Before(from) || !d.Before(to) {
				continue
			}
		}
		out = append(out, it)
	}
	return out
}

// resolveStage acepta tanto el nombre de la etapa como su columna.
func (f *Filter) resolveStage(v string) (Stage, bool) {
	if v == "" {
		return "", false
	}
	if s, ok := f.registry.StageForColumn(v); ok {
		return s, true
	}
	if info, ok := f.registry.Lookup(v); ok {
		return info.Stage, true
	}
	return "", false
}

func matchesText(it Item, query string) bool {
	for _, field := range []string{it.DisplayName, it.Reference, it.Customer.Address, it.Customer.Phone} {
		if strings.Contains(fold(field), query) {
			return true
		}
	}
	return false
}

// FacetSet valores distintos disponibles para los filtros exactos.
type FacetSet struct {
	Salespeople []string `json:"salespeople"`
	JobTypes    []string `json:"job_types"`
	Stages      []Stage  `json:"stages"`
}

// Facets calcula las facetas presentes en items. Las etapas salen en orden de tablero.
func (f *Filter) Facets(items []Item) FacetSet {
	people := map[string]struct{}{}
	types := map[string]struct{}{}
	stages := map[Stage]struct{}{}
	for _, it := range items {
		if s := strings.TrimSpace(it.Salesperson); s != "" {
			people[s] = struct{}{}
		}
		if t := strings.TrimSpace(it.JobType); t != "" {
			types[t] = struct{}{}
		}
		stages[it.Stage] = struct{}{}
	}
	set := FacetSet{
		Salespeople: sortedKeys(people),
		JobTypes:    sortedKeys(types),
		Stages:      []Stage{},
	}
	for _, info := range f.registry.Stages() {
		if _, ok := stages[info.Stage]; ok {
			set.Stages = append(set.Stages, info.Stage)
		}
	}
	return set
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
