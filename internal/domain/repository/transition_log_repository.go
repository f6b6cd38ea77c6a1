package repository

import (
	"context"

	"github.com/jhoicas/pipeline-api/internal/domain/entity"
)

// TransitionLogRepository define el puerto de persistencia del diario de transiciones.
type TransitionLogRepository interface {
	// InsertBatch guarda todas las transiciones de un lote en una sola transacción.
	InsertBatch(ctx context.Context, records []entity.TransitionRecord) error
	// ListRecent devuelve las últimas transiciones, la más reciente primero.
	ListRecent(ctx context.Context, limit int) ([]entity.TransitionRecord, error)
}
