package entity

import "time"

// Acciones registradas en la auditoría.
const (
	AuditActionStageChange = "stage_change"
)

// AuditEntry registro de una transición confirmada por el backend.
type AuditEntry struct {
	ID         string    `json:"id"`
	EntityType string    `json:"entity_type"`
	EntityID   string    `json:"entity_id"`
	Action     string    `json:"action"`
	Actor      string    `json:"actor"`
	Timestamp  time.Time `json:"timestamp"`
	Summary    string    `json:"summary"`
}
