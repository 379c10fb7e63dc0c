package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetLogLevelFromString(t *testing.T) {
	assert.Equal(t, DEBUG, GetLogLevelFromString("DEBUG"))
	assert.Equal(t, INFO, GetLogLevelFromString("info"))
	assert.Equal(t, WARN, GetLogLevelFromString("warn"))
	assert.Equal(t, ERROR, GetLogLevelFromString("error"))
	assert.Equal(t, WARN, GetLogLevelFromString("verbose"))
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(&buf, "warn")

	Infof("hidden %d", 1)
	Warnf("shown %d", 2)
	Error("also shown")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown 2")
	assert.Contains(t, out, "also shown")
}

func TestWithComponent(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(&buf, "debug")

	l := With("cache")
	l.Debug().Msg("hello")
	assert.Contains(t, buf.String(), `"component":"cache"`)
}

func TestInitLoggerFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "craft.log")
	InitLogger(path, "info", false)
	Info("written to file")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "written to file")
}
