package pipeline_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	app "github.com/jhoicas/pipeline-api/internal/application/pipeline"
	"github.com/jhoicas/pipeline-api/internal/domain"
	"github.com/jhoicas/pipeline-api/internal/domain/entity"
)

func TestJournal_Desactivado(t *testing.T) {
	uc := app.NewJournalUseCase(nil, 0)
	assert.False(t, uc.Enabled())

	_, err := uc.List(context.Background(), 10)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestJournal_ListaConLimite(t *testing.T) {
	j := &fakeJournal{records: []entity.TransitionRecord{
		{ID: "r3", ItemID: "job-123"},
		{ID: "r2", ItemID: "project-9"},
		{ID: "r1", ItemID: "customer-c2"},
	}}
	uc := app.NewJournalUseCase(j, 2)
	require.True(t, uc.Enabled())

	got, err := uc.List(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, got, 2, "sin límite usa el valor por defecto")
	assert.Equal(t, "r3", got[0].ID)

	got, err = uc.List(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, got, 1)

	_, err = uc.List(context.Background(), -1)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestJournal_VacioDevuelveListaVacia(t *testing.T) {
	uc := app.NewJournalUseCase(&fakeJournal{}, 0)
	got, err := uc.List(context.Background(), 5)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}
