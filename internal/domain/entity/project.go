package entity

import (
	"encoding/json"
	"time"
)

// Project es el análogo ligero de Job para trabajo sin importes.
// El backend solo acepta escrituras de reemplazo completo (PUT) para este recurso.
type Project struct {
	ID          string
	CustomerID  string
	Name        string
	Type        string
	Stage       string
	MeasureDate *time.Time
	Notes       string
	FormCount   int
	Salesperson string
	CreatedBy   string
	// Raw objeto tal como lo envió el backend, todas las claves incluidas. El PUT lo
	// reenvía intacto salvo "stage".
	Raw map[string]json.RawMessage
}
