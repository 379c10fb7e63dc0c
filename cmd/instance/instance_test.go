package instance

import (
	"errors"
	"testing"

	"craft-keeper/internal/models"
	"craft-keeper/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateAndListInstances(t *testing.T) {
	im := services.NewInstanceManager(t.TempDir())
	require.NoError(t, listInstances(im))

	inst := models.Instance{Name: "survival", Version: "1.20.4"}
	inst.Java.MaxMemory = "4G"
	require.NoError(t, createInstance(im, inst))
	require.NoError(t, listInstances(im))

	err := createInstance(im, inst)
	assert.True(t, errors.Is(err, services.ErrInstanceExists))

	got, err := im.Get("survival")
	require.NoError(t, err)
	assert.Equal(t, "4G", got.Java.MaxMemory)
}
