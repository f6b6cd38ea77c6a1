package pipeline

import (
	"fmt"

	"github.com/jhoicas/pipeline-api/internal/domain/entity"
)

// FeedEntry registro del feed combinado. Un trabajo o proyecto puede venir anidado bajo su cliente.
// Kind es opcional; si falta se infiere del payload.
type FeedEntry struct {
	Kind     Kind
	Customer *entity.Customer
	Job      *entity.Job
	Project  *entity.Project
}

// Anomaly incidencia no fatal detectada al normalizar (se registra en log, nunca aborta).
type Anomaly struct {
	Ref    string
	Detail string
}

func (a Anomaly) String() string {
	return a.Ref + ": " + a.Detail
}

// Normalizer convierte registros crudos del backend en PipelineItems.
type Normalizer struct {
	registry *Registry
}

// NewNormalizer construye el normalizador. Si reg es nil usa DefaultRegistry.
func NewNormalizer(reg *Registry) *Normalizer {
	if reg == nil {
		reg = DefaultRegistry
	}
	return &Normalizer{registry: reg}
}

// EntriesFromCollections arma entradas de feed a partir de las colecciones separadas
// (ruta de respaldo cuando el backend no expone el feed combinado).
func EntriesFromCollections(customers []entity.Customer, jobs []entity.Job, projects []entity.Project) []FeedEntry {
	entries := make([]FeedEntry, 0, len(customers)+len(jobs)+len(projects))
	for i := range jobs {
		entries = append(entries, FeedEntry{Kind: KindJob, Job: &jobs[i]})
	}
	for i := range projects {
		entries = append(entries, FeedEntry{Kind: KindProject, Project: &projects[i]})
	}
	for i := range customers {
		entries = append(entries, FeedEntry{Kind: KindCustomer, Customer: &customers[i]})
	}
	return entries
}

// NormalizeCollections normaliza las tres colecciones por separado.
func (n *Normalizer) NormalizeCollections(customers []entity.Customer, jobs []entity.Job, projects []entity.Project) ([]Item, []Anomaly) {
	return n.NormalizeFeed(EntriesFromCollections(customers, jobs, projects))
}

// NormalizeFeed normaliza el feed combinado.
//
// Reglas:
//   - cada trabajo/proyecto produce exactamente un item, con la etapa de su propia entidad
//     (nunca la del cliente padre, aunque venga anidado);
//   - un cliente sin trabajos ni proyectos produce exactamente un item de tipo customer;
//   - una etapa desconocida se sustituye por FallbackStage.
func (n *Normalizer) NormalizeFeed(entries []FeedEntry) ([]Item, []Anomaly) {
	var anomalies []Anomaly

	customers := make(map[string]*entity.Customer)
	hasWork := make(map[string]bool)
	for _, e := range entries {
		if e.Customer != nil && e.Customer.ID != "" {
			if _, ok := customers[e.Customer.ID]; !ok {
				customers[e.Customer.ID] = e.Customer
			}
		}
		switch {
		case e.Job != nil:
			hasWork[parentID(e.Customer, e.Job.CustomerID)] = true
		case e.Project != nil:
			hasWork[parentID(e.Customer, e.Project.CustomerID)] = true
		}
	}

	items := make([]Item, 0, len(entries))
	seen := make(map[string]bool, len(entries))
	for idx, e := range entries {
		kind := inferKind(e)
		if e.Kind != "" && e.Kind != kind {
			anomalies = append(anomalies, Anomaly{
				Ref:    fmt.Sprintf("entry[%d]", idx),
				Detail: fmt.Sprintf("tipo declarado %q no coincide con el payload (%q)", e.Kind, kind),
			})
		}

		var it Item
		switch kind {
		case KindJob:
			parent := e.Customer
			if parent == nil {
				parent = customers[e.Job.CustomerID]
			}
			stage := n.coerce(e.Job.Stage, ItemID(KindJob, e.Job.ID), &anomalies)
			it = newJobItem(e.Job, parent, stage)
		case KindProject:
			parent := e.Customer
			if parent == nil {
				parent = customers[e.Project.CustomerID]
			}
			stage := n.coerce(e.Project.Stage, ItemID(KindProject, e.Project.ID), &anomalies)
			it = newProjectItem(e.Project, parent, stage)
		case KindCustomer:
			if hasWork[e.Customer.ID] {
				continue
			}
			stage := n.coerce(e.Customer.Stage, ItemID(KindCustomer, e.Customer.ID), &anomalies)
			it = newCustomerItem(e.Customer, stage)
		default:
			anomalies = append(anomalies, Anomaly{Ref: fmt.Sprintf("entry[%d]", idx), Detail: "registro sin payload"})
			continue
		}

		if it.EntityID == "" {
			anomalies = append(anomalies, Anomaly{Ref: fmt.Sprintf("entry[%d]", idx), Detail: "registro sin id"})
			continue
		}
		if seen[it.ID] {
			// Un cliente repetido en varias entradas es normal en el feed combinado.
			if kind != KindCustomer {
				anomalies = append(anomalies, Anomaly{Ref: it.ID, Detail: "id duplicado, se conserva la primera aparición"})
			}
			continue
		}
		seen[it.ID] = true
		items = append(items, it)
	}
	return items, anomalies
}

func (n *Normalizer) coerce(raw, ref string, anomalies *[]Anomaly) Stage {
	stage, coerced := n.registry.Coerce(raw)
	if coerced {
		*anomalies = append(*anomalies, Anomaly{
			Ref:    ref,
			Detail: fmt.Sprintf("etapa %q desconocida, se usa %q", raw, stage),
		})
	}
	return stage
}

func inferKind(e FeedEntry) Kind {
	switch {
	case e.Job != nil:
		return KindJob
	case e.Project != nil:
		return KindProject
	case e.Customer != nil:
		return KindCustomer
	default:
		return ""
	}
}

func parentID(c *entity.Customer, fallback string) string {
	if c != nil && c.ID != "" {
		return c.ID
	}
	return fallback
}
