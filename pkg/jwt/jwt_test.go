package jwt_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/pipeline-api/pkg/jwt"
)

func TestGenerateParse_IdaYVuelta(t *testing.T) {
	id := jwt.Identity{ID: "u1", Name: "Jane", Email: "jane@co", Role: "sales_rep"}
	tok, err := jwt.Generate("s3cret", id, "pipeline-api", 5)
	require.NoError(t, err)

	got, err := jwt.Parse("s3cret", "pipeline-api", tok)
	require.NoError(t, err)
	assert.Equal(t, id, got)
}

func TestParse_Rechazos(t *testing.T) {
	id := jwt.Identity{ID: "u1", Role: "owner"}
	tok, err := jwt.Generate("s3cret", id, "pipeline-api", 5)
	require.NoError(t, err)

	_, err = jwt.Parse("otro", "pipeline-api", tok)
	assert.Error(t, err, "firma incorrecta")

	_, err = jwt.Parse("s3cret", "otro-emisor", tok)
	assert.Error(t, err, "emisor incorrecto")

	expired, err := jwt.Generate("s3cret", id, "pipeline-api", -1)
	require.NoError(t, err)
	_, err = jwt.Parse("s3cret", "pipeline-api", expired)
	assert.Error(t, err, "token expirado")

	_, err = jwt.Parse("", "", tok)
	assert.ErrorIs(t, err, jwt.ErrEmptySecret)
}
