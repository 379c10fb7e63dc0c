package services

import (
	"context"
	"testing"

	"craft-keeper/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetHealthz(t *testing.T) {
	w := newWorld(t, "")
	_, err := w.svc.Install(context.Background(), "1.0", nil)
	require.NoError(t, err)
	require.NoError(t, w.svc.Instances().Create(models.Instance{Name: "a", Version: "1.0"}))

	srv := NewServer(w.svc.cfg, w.svc)
	h := srv.GetHealthz()
	assert.Equal(t, "UP", h.Status)
	assert.Equal(t, "test", h.Version)
	assert.NotEmpty(t, h.StartTime)
	assert.Equal(t, 1, h.Metrics.Instances)
	assert.Zero(t, h.Metrics.ActiveInstalls)
	assert.Zero(t, h.Metrics.RunningGames)
	// descriptor, asset index and three planned files
	assert.Equal(t, 5, h.Metrics.CacheEntries)
}
