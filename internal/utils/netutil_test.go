package utils

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckPortAvailable(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	assert.Error(t, CheckPortAvailable(addr))
	l.Close()
	assert.NoError(t, CheckPortAvailable(addr))
	assert.Error(t, CheckPortAvailable("no-port"))
}
