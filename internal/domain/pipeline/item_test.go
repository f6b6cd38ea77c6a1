package pipeline_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/pipeline-api/internal/domain"
	"github.com/jhoicas/pipeline-api/internal/domain/entity"
	"github.com/jhoicas/pipeline-api/internal/domain/pipeline"
)

func TestParseItemID(t *testing.T) {
	cases := []struct {
		id       string
		kind     pipeline.Kind
		entityID string
	}{
		{"customer-12", pipeline.KindCustomer, "12"},
		{"job-123", pipeline.KindJob, "123"},
		{"project-9", pipeline.KindProject, "9"},
		{"job-a-b", pipeline.KindJob, "a-b"},
	}
	for _, c := range cases {
		kind, id, err := pipeline.ParseItemID(c.id)
		require.NoError(t, err, c.id)
		assert.Equal(t, c.kind, kind)
		assert.Equal(t, c.entityID, id)
		assert.Equal(t, c.id, pipeline.ItemID(kind, id), "ItemID debe invertir ParseItemID")
	}
}

func TestParseItemID_PrefijoDesconocido(t *testing.T) {
	for _, id := range []string{"invoice-1", "job-", "123", ""} {
		_, _, err := pipeline.ParseItemID(id)
		assert.True(t, errors.Is(err, domain.ErrUnknownEntityKind), "id %q debe ser tipo desconocido", id)
	}
}

func TestKind_TablaDePersistencia(t *testing.T) {
	assert.Equal(t, "jobs", pipeline.KindJob.Resource())
	assert.Equal(t, "customers", pipeline.KindCustomer.Resource())
	assert.Equal(t, "projects", pipeline.KindProject.Resource())
	assert.Equal(t, pipeline.WritePatchStage, pipeline.KindJob.WriteMode())
	assert.Equal(t, pipeline.WritePatchStage, pipeline.KindCustomer.WriteMode())
	assert.Equal(t, pipeline.WriteReplace, pipeline.KindProject.WriteMode())
	assert.False(t, pipeline.Kind("invoice").Valid())
}

func TestItem_WithStageNoModificaOriginal(t *testing.T) {
	n := pipeline.NewNormalizer(nil)
	items, _ := n.NormalizeCollections(nil, nil, []entity.Project{{ID: "9", Name: "Kitchen", Stage: "Survey", Notes: "n"}})
	require.Len(t, items, 1)
	orig := items[0]

	moved := orig.WithStage(pipeline.StageDesign)

	p, ok := moved.ProjectRecord()
	require.True(t, ok)
	assert.Equal(t, "Design", p.Stage)
	assert.Equal(t, "n", p.Notes, "el resto de campos del proyecto se conserva")

	op, _ := orig.ProjectRecord()
	assert.Equal(t, "Survey", op.Stage, "el item original no debe cambiar")
	assert.Equal(t, pipeline.StageSurvey, orig.Stage)
}
