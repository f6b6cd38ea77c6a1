package pipeline

import (
	"fmt"
	"strings"
	"time"

	"github.com/jhoicas/pipeline-api/internal/domain"
	"github.com/jhoicas/pipeline-api/internal/domain/entity"
)

// Kind discriminante del PipelineItem.
type Kind string

// Tipos de entidad que pueden aparecer en el pipeline.
const (
	KindCustomer Kind = "customer"
	KindJob      Kind = "job"
	KindProject  Kind = "project"
)

// WriteMode forma en que el backend acepta un cambio de etapa.
type WriteMode int

const (
	// WritePatchStage PATCH {resource}/{id}/stage con {stage, reason, updatedBy}.
	WritePatchStage WriteMode = iota
	// WriteReplace PUT {resource}/{id} con el objeto completo.
	WriteReplace
)

type kindSpec struct {
	prefix   string
	resource string
	write    WriteMode
}

// Tabla única id ↔ tipo ↔ recurso del backend.
var kindTable = map[Kind]kindSpec{
	KindCustomer: {prefix: "customer-", resource: "customers", write: WritePatchStage},
	KindJob:      {prefix: "job-", resource: "jobs", write: WritePatchStage},
	KindProject:  {prefix: "project-", resource: "projects", write: WriteReplace},
}

// Kinds orden estable para recorrer la tabla.
var Kinds = []Kind{KindCustomer, KindJob, KindProject}

// Valid informa si k es un tipo conocido.
func (k Kind) Valid() bool {
	_, ok := kindTable[k]
	return ok
}

// Resource nombre del recurso REST del backend para el tipo.
func (k Kind) Resource() string {
	return kindTable[k].resource
}

// WriteMode modo de persistencia de etapa para el tipo.
func (k Kind) WriteMode() WriteMode {
	return kindTable[k].write
}

// ItemID construye el id del item con el prefijo de su tipo.
func ItemID(k Kind, entityID string) string {
	return kindTable[k].prefix + entityID
}

// ParseItemID invierte ItemID. Es el único lugar que interpreta prefijos.
func ParseItemID(id string) (Kind, string, error) {
	for _, k := range Kinds {
		prefix := kindTable[k].prefix
		if strings.HasPrefix(id, prefix) && len(id) > len(prefix) {
			return k, id[len(prefix):], nil
		}
	}
	return "", "", fmt.Errorf("%w: %q", domain.ErrUnknownEntityKind, id)
}

// CustomerSummary datos del cliente que se muestran en la tarjeta.
type CustomerSummary struct {
	ID       string
	Name     string
	Address  string
	Postcode string
	Phone    string
	Email    string
}

// Item vista unificada sobre Customer, Job o Project.
// Exactamente uno de los payloads internos está presente según Kind.
type Item struct {
	ID           string
	Kind         Kind
	EntityID     string
	Customer     CustomerSummary
	Stage        Stage
	Reference    string
	DisplayName  string
	Salesperson  string
	CreatedBy    string
	JobType      string
	MeasureDate  *time.Time
	Financials   *entity.JobFinancials
	DeliveryDate *time.Time

	customer *entity.Customer
	job      *entity.Job
	project  *entity.Project
}

func summarize(c *entity.Customer) CustomerSummary {
	if c == nil {
		return CustomerSummary{}
	}
	return CustomerSummary{
		ID:       c.ID,
		Name:     c.Name,
		Address:  c.Address,
		Postcode: c.Postcode,
		Phone:    c.Phone,
		Email:    c.Email,
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func newCustomerItem(c *entity.Customer, stage Stage) Item {
	cc := *c
	cc.Stage = string(stage)
	return Item{
		ID:          ItemID(KindCustomer, c.ID),
		Kind:        KindCustomer,
		EntityID:    c.ID,
		Customer:    summarize(c),
		Stage:       stage,
		DisplayName: c.Name,
		Salesperson: c.Salesperson,
		CreatedBy:   c.CreatedBy,
		MeasureDate: c.MeasureDate,
		customer:    &cc,
	}
}

func newJobItem(j *entity.Job, parent *entity.Customer, stage Stage) Item {
	jj := *j
	jj.Stage = string(stage)
	fin := jj.Financials
	it := Item{
		ID:           ItemID(KindJob, j.ID),
		Kind:         KindJob,
		EntityID:     j.ID,
		Customer:     summarize(parent),
		Stage:        stage,
		Reference:    j.Reference,
		Salesperson:  j.Salesperson,
		CreatedBy:    j.CreatedBy,
		JobType:      j.Type,
		MeasureDate:  j.MeasureDate,
		Financials:   &fin,
		DeliveryDate: j.DeliveryDate,
		job:          &jj,
	}
	if parent != nil {
		it.DisplayName = firstNonEmpty(parent.Name, j.Reference)
		it.Salesperson = firstNonEmpty(j.Salesperson, parent.Salesperson)
		if it.MeasureDate == nil {
			it.MeasureDate = parent.MeasureDate
		}
	} else {
		it.DisplayName = j.Reference
	}
	if it.Customer.ID == "" {
		it.Customer.ID = j.CustomerID
	}
	return it
}

func newProjectItem(p *entity.Project, parent *entity.Customer, stage Stage) Item {
	pp := *p
	pp.Stage = string(stage)
	it := Item{
		ID:          ItemID(KindProject, p.ID),
		Kind:        KindProject,
		EntityID:    p.ID,
		Customer:    summarize(parent),
		Stage:       stage,
		Reference:   p.Name,
		Salesperson: p.Salesperson,
		CreatedBy:   p.CreatedBy,
		JobType:     p.Type,
		MeasureDate: p.MeasureDate,
		project:     &pp,
	}
	if parent != nil {
		it.DisplayName = firstNonEmpty(parent.Name, p.Name)
		it.Salesperson = firstNonEmpty(p.Salesperson, parent.Salesperson)
		if it.MeasureDate == nil {
			it.MeasureDate = parent.MeasureDate
		}
	} else {
		it.DisplayName = p.Name
	}
	if it.Customer.ID == "" {
		it.Customer.ID = p.CustomerID
	}
	return it
}

// CustomerRecord payload Customer (solo para items KindCustomer).
func (it Item) CustomerRecord() (entity.Customer, bool) {
	if it.customer == nil {
		return entity.Customer{}, false
	}
	return *it.customer, true
}

// JobRecord payload Job (solo para items KindJob).
func (it Item) JobRecord() (entity.Job, bool) {
	if it.job == nil {
		return entity.Job{}, false
	}
	return *it.job, true
}

// ProjectRecord payload Project completo (solo para items KindProject).
// Es el cuerpo del PUT de reemplazo.
func (it Item) ProjectRecord() (entity.Project, bool) {
	if it.project == nil {
		return entity.Project{}, false
	}
	return *it.project, true
}

// WithStage devuelve una copia del item en la etapa s. El payload se clona, de modo que
// el item original (por ejemplo, el de un snapshot) no se modifica.
func (it Item) WithStage(s Stage) Item {
	out := it
	out.Stage = s
	switch it.Kind {
	case KindCustomer:
		if it.customer != nil {
			c := *it.customer
			c.Stage = string(s)
			out.customer = &c
		}
	case KindJob:
		if it.job != nil {
			j := *it.job
			j.Stage = string(s)
			out.job = &j
		}
	case KindProject:
		if it.project != nil {
			p := *it.project
			p.Stage = string(s)
			out.project = &p
		}
	}
	return out
}

// WithoutFinancials copia del item sin importes (roles sin canViewFinancials).
func (it Item) WithoutFinancials() Item {
	out := it
	out.Financials = nil
	if it.job != nil {
		j := *it.job
		j.Financials = entity.JobFinancials{}
		out.job = &j
	}
	return out
}
