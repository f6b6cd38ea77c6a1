package pipeline

import (
	"context"
	"fmt"

	"github.com/jhoicas/pipeline-api/internal/domain"
	"github.com/jhoicas/pipeline-api/internal/domain/entity"
	"github.com/jhoicas/pipeline-api/internal/domain/repository"
)

// DefaultJournalLimit filas devueltas si no se indica límite.
const DefaultJournalLimit = 50

// maxJournalLimit tope de filas por consulta.
const maxJournalLimit = 500

// JournalUseCase consulta el diario de transiciones del servidor.
// Con repo nil el diario está desactivado y List devuelve ErrNotFound.
type JournalUseCase struct {
	repo         repository.TransitionLogRepository
	defaultLimit int
}

// NewJournalUseCase construye el caso de uso.
func NewJournalUseCase(repo repository.TransitionLogRepository, defaultLimit int) *JournalUseCase {
	if defaultLimit <= 0 {
		defaultLimit = DefaultJournalLimit
	}
	return &JournalUseCase{repo: repo, defaultLimit: defaultLimit}
}

// Enabled informa si hay diario configurado.
func (uc *JournalUseCase) Enabled() bool {
	return uc.repo != nil
}

// List últimas transiciones confirmadas, la más reciente primero.
func (uc *JournalUseCase) List(ctx context.Context, limit int) ([]entity.TransitionRecord, error) {
	if uc.repo == nil {
		return nil, fmt.Errorf("%w: diario de transiciones desactivado", domain.ErrNotFound)
	}
	if limit < 0 {
		return nil, fmt.Errorf("%w: límite negativo", domain.ErrInvalidInput)
	}
	if limit == 0 {
		limit = uc.defaultLimit
	}
	if limit > maxJournalLimit {
		limit = maxJournalLimit
	}
	records, err := uc.repo.ListRecent(ctx, limit)
	if err != nil {
		return nil, err
	}
	if records == nil {
		records = []entity.TransitionRecord{}
	}
	return records, nil
}
