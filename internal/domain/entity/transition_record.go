package entity

import "time"

// Origen de una transición.
const (
	TransitionSourceDrag   = "drag"
	TransitionSourceManual = "manual"
)

// TransitionRecord fila del diario de transiciones confirmadas (archivo del servidor).
type TransitionRecord struct {
	ID         string    `json:"id"`
	BatchID    string    `json:"batch_id"`
	ItemID     string    `json:"item_id"`
	EntityType string    `json:"entity_type"`
	EntityID   string    `json:"entity_id"`
	FromStage  string    `json:"from_stage"`
	ToStage    string    `json:"to_stage"`
	Reason     string    `json:"reason"`
	Source     string    `json:"source"`
	Actor      string    `json:"actor"`
	ActorRole  string    `json:"actor_role"`
	OccurredAt time.Time `json:"occurred_at"`
}
