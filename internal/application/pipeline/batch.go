package pipeline

import (
	"errors"
	"fmt"

	"github.com/jhoicas/pipeline-api/internal/domain/pipeline"
)

// BatchState estado de un lote de transiciones.
type BatchState string

// Idle → Pending → Committed | RolledBack. Rejected: rechazado antes de tocar el estado local.
const (
	BatchIdle       BatchState = "idle"
	BatchPending    BatchState = "pending"
	BatchCommitted  BatchState = "committed"
	BatchRolledBack BatchState = "rolled_back"
	BatchRejected   BatchState = "rejected"
)

// ErrIllegalBatchState transición de estado no permitida (error de programación).
var ErrIllegalBatchState = errors.New("transición de estado de lote inválida")

// PlannedMove item antes y después del cambio de etapa.
type PlannedMove struct {
	Before pipeline.Item
	After  pipeline.Item
}

// Batch commit en dos fases sobre un Store:
// fase 1 aplica los cambios en local y retiene el snapshot previo;
// fase 2 confirma o revierte el lote completo al snapshot.
type Batch struct {
	ID    string
	state BatchState
	moves []PlannedMove
}

func newBatch(id string) *Batch {
	return &Batch{ID: id, state: BatchIdle}
}

// State estado actual.
func (b *Batch) State() BatchState { return b.state }

// Moves cambios planificados.
func (b *Batch) Moves() []PlannedMove {
	out := make([]PlannedMove, len(b.moves))
	copy(out, b.moves)
	return out
}

func (b *Batch) move(from, to BatchState) error {
	if b.state != from {
		return fmt.Errorf("%w: %s → %s (actual %s)", ErrIllegalBatchState, from, to, b.state)
	}
	b.state = to
	return nil
}

func (b *Batch) reject() error {
	return b.move(BatchIdle, BatchRejected)
}

// apply fase 1: aplica After en el store. El snapshot (Before) queda en el lote.
func (b *Batch) apply(s *Store, moves []PlannedMove) error {
	if err := b.move(BatchIdle, BatchPending); err != nil {
		return err
	}
	b.moves = moves
	after := make([]pipeline.Item, len(moves))
	for i, m := range moves {
		after[i] = m.After
	}
	s.patch(after)
	return nil
}

func (b *Batch) commit() error {
	return b.move(BatchPending, BatchCommitted)
}

// rollback fase 2 fallida: restaura todos los items del lote a su snapshot.
func (b *Batch) rollback(s *Store) error {
	if err := b.move(BatchPending, BatchRolledBack); err != nil {
		return err
	}
	before := make([]pipeline.Item, len(b.moves))
	for i, m := range b.moves {
		before[i] = m.Before
	}
	s.patch(before)
	return nil
}
