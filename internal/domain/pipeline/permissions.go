package pipeline

import (
	"strings"

	"golang.org/x/text/cases"

	"github.com/jhoicas/pipeline-api/internal/domain/entity"
)

// Capabilities conjunto de permisos globales de un rol.
type Capabilities struct {
	CanCreate         bool `json:"can_create"`
	CanEdit           bool `json:"can_edit"`
	CanDelete         bool `json:"can_delete"`
	CanViewFinancials bool `json:"can_view_financials"`
	CanDragDrop       bool `json:"can_drag_drop"`
	CanViewAll        bool `json:"can_view_all"`
	CanSendQuotes     bool `json:"can_send_quotes"`
	CanSchedule       bool `json:"can_schedule"`
}

// capabilityMatrix tabla estática rol → capacidades. Es la fuente de verdad;
// cualquier otro camino que conceda viewAll a sales_rep es un error.
var capabilityMatrix = map[string]Capabilities{
	entity.RoleOwner: {
		CanCreate: true, CanEdit: true, CanDelete: true, CanViewFinancials: true,
		CanDragDrop: true, CanViewAll: true, CanSendQuotes: true, CanSchedule: true,
	},
	entity.RoleAccessAdmin: {
		CanCreate: true, CanEdit: true, CanDelete: true, CanViewFinancials: true,
		CanDragDrop: true, CanViewAll: true, CanSendQuotes: true, CanSchedule: true,
	},
	entity.RoleSalesRep: {
		CanCreate: true, CanEdit: true, CanViewFinancials: true,
		CanDragDrop: true, CanSendQuotes: true, CanSchedule: true,
	},
	entity.RoleProductionStaff: {
		CanEdit: true, CanDragDrop: true, CanSchedule: true,
	},
	entity.RoleLimitedStaff: {},
}

// CapabilitiesFor devuelve las capacidades del rol. Un rol desconocido no tiene ninguna.
func CapabilitiesFor(role string) Capabilities {
	return capabilityMatrix[role]
}

// Access capacidades del rol más la decisión por item.
type Access struct {
	Capabilities
	IsVisible  bool `json:"is_visible"`
	IsEditable bool `json:"is_editable"`
}

// Evaluator evaluador de permisos. Función pura: sin I/O.
type Evaluator struct {
	registry *Registry
}

// NewEvaluator construye el evaluador. Si reg es nil usa DefaultRegistry.
func NewEvaluator(reg *Registry) *Evaluator {
	if reg == nil {
		reg = DefaultRegistry
	}
	return &Evaluator{registry: reg}
}

// Evaluate calcula (rol, item, actor) → capacidades + visibilidad/edición.
func (e *Evaluator) Evaluate(actor entity.Actor, it Item) Access {
	caps := CapabilitiesFor(actor.Role)
	visible := e.isVisible(caps, actor, it)
	return Access{
		Capabilities: caps,
		IsVisible:    visible,
		IsEditable:   visible && e.isEditable(caps, actor, it),
	}
}

// IsVisible atajo de Evaluate(...).IsVisible.
func (e *Evaluator) IsVisible(actor entity.Actor, it Item) bool {
	return e.Evaluate(actor, it).IsVisible
}

// IsEditable atajo de Evaluate(...).IsEditable.
func (e *Evaluator) IsEditable(actor entity.Actor, it Item) bool {
	return e.Evaluate(actor, it).IsEditable
}

func (e *Evaluator) isVisible(caps Capabilities, actor entity.Actor, it Item) bool {
	if caps.CanViewAll {
		return true
	}
	switch actor.Role {
	case entity.RoleSalesRep:
		return OwnsItem(actor, it) || matchesActor(it.CreatedBy, actor)
	case entity.RoleProductionStaff:
		return e.registry.IsProduction(it.Stage)
	default:
		// limited_staff depende de una comprobación externa por registro.
		return false
	}
}

func (e *Evaluator) isEditable(caps Capabilities, actor entity.Actor, it Item) bool {
	if !caps.CanEdit {
		return false
	}
	switch actor.Role {
	case entity.RoleOwner, entity.RoleAccessAdmin, entity.RoleProductionStaff:
		return true
	case entity.RoleSalesRep:
		return OwnsItem(actor, it)
	default:
		return false
	}
}

// OwnsItem informa si el comercial del item coincide con el email o el nombre del actor
// (sin distinguir mayúsculas).
func OwnsItem(actor entity.Actor, it Item) bool {
	return matchesActor(it.Salesperson, actor)
}

func matchesActor(value string, actor entity.Actor) bool {
	v := fold(value)
	if v == "" {
		return false
	}
	return (actor.Email != "" && v == fold(actor.Email)) || (actor.Name != "" && v == fold(actor.Name))
}

// fold normaliza para comparación sin mayúsculas (Unicode). cases.Caser no es seguro
// entre goroutines, por eso se crea en cada llamada.
func fold(s string) string {
	return cases.Fold().String(strings.TrimSpace(s))
}
