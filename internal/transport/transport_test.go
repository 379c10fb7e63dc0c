package transport

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer() *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"id":"1.20.1"}`))
		case "/big":
			w.Write([]byte(strings.Repeat("x", 100*1024)))
		case "/ua":
			w.Write([]byte(r.Header.Get("User-Agent")))
		case "/gone":
			w.WriteHeader(http.StatusGone)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func TestFetch(t *testing.T) {
	server := newTestServer()
	defer server.Close()
	tr := NewHTTPTransport(5*time.Second, "craft-keeper/test")

	data, err := tr.Fetch(context.Background(), server.URL+"/ok")
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"1.20.1"}`, string(data))

	ua, err := tr.Fetch(context.Background(), server.URL+"/ua")
	require.NoError(t, err)
	assert.Equal(t, "craft-keeper/test", string(ua))
}

func TestFetchStatusErrors(t *testing.T) {
	server := newTestServer()
	defer server.Close()
	tr := NewWithClient(server.Client(), "")

	_, err := tr.Fetch(context.Background(), server.URL+"/missing")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))

	_, err = tr.Fetch(context.Background(), server.URL+"/gone")
	assert.True(t, IsNotFound(err))

	assert.False(t, IsNotFound(context.Canceled))
}

func TestStreamReportsProgress(t *testing.T) {
	server := newTestServer()
	defer server.Close()
	tr := NewWithClient(server.Client(), "")

	var buf bytes.Buffer
	var last, total int64
	calls := 0
	n, err := tr.Stream(context.Background(), server.URL+"/big", &buf, func(written, tot int64) {
		assert.GreaterOrEqual(t, written, last)
		last, total = written, tot
		calls++
	})
	require.NoError(t, err)
	assert.Equal(t, int64(100*1024), n)
	assert.Equal(t, n, last)
	assert.Equal(t, int64(100*1024), total)
	assert.Greater(t, calls, 0)
	assert.Equal(t, 100*1024, buf.Len())
}

func TestStreamHonoursContext(t *testing.T) {
	server := newTestServer()
	defer server.Close()
	tr := NewWithClient(server.Client(), "")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := tr.Stream(ctx, server.URL+"/big", &bytes.Buffer{}, nil)
	assert.ErrorIs(t, err, context.Canceled)
}
