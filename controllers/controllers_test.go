package controllers

import (
	"bytes"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"craft-keeper/internal/config"
	"craft-keeper/internal/models"
	"craft-keeper/internal/transport/transporttest"
	"craft-keeper/services"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const listURL = "https://meta.test/version_manifest_v2.json"

func sha(data []byte) string {
	h := sha1.Sum(data)
	return hex.EncodeToString(h[:])
}

func newRouter(t *testing.T) (*gin.Engine, *services.LauncherService) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	root := t.TempDir()
	fake := transporttest.New()

	client := []byte("client jar")
	desc := []byte(fmt.Sprintf(`{"id":"1.0","type":"release","mainClass":"Main",
		"downloads":{"client":{"url":"https://files.test/1.0.jar","sha1":"%s","size":%d}}}`, sha(client), len(client)))
	list := []byte(fmt.Sprintf(`{"latest":{"release":"1.0","snapshot":"1.1-pre"},"versions":[
		{"id":"1.1-pre","type":"snapshot","url":"https://meta.test/missing.json"},
		{"id":"1.0","type":"release","url":"https://meta.test/1.0.json","sha1":"%s"}]}`, sha(desc)))
	fake.Set(listURL, list)
	fake.Set("https://meta.test/1.0.json", desc)
	fake.Set("https://files.test/1.0.jar", client)

	cfg := &config.AppConfig{
		Remote:   config.RemoteConfig{VersionManifest: listURL, Resources: "https://resources.test", Libraries: "https://libraries.test"},
		Download: config.DownloadConfig{Concurrency: 1, MaxRetries: 1},
		Cache:    config.CacheConfig{Root: root},
		Launcher: config.LauncherConfig{Name: "craft-keeper", Version: "test"},
	}
	svc, err := services.NewLauncherService(cfg, fake, services.NewInstanceManager(filepath.Join(root, "instances")))
	require.NoError(t, err)
	t.Cleanup(func() { svc.Close() })
	return NewRouter(services.NewServer(cfg, svc)), svc
}

func do(r *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestHealthzAndMetrics(t *testing.T) {
	r, _ := newRouter(t)
	w := do(r, "GET", "/healthz", nil)
	require.Equal(t, 200, w.Code)
	h := decode(t, w)
	assert.Equal(t, "UP", h["status"])
	assert.Equal(t, "test", h["version"])

	w = do(r, "GET", "/metrics", nil)
	require.Equal(t, 200, w.Code)
	assert.Contains(t, w.Body.String(), "launcher_request_total")
}

func TestListVersions(t *testing.T) {
	r, _ := newRouter(t)
	w := do(r, "GET", apiPrefix+"/versions?type=release", nil)
	require.Equal(t, 200, w.Code)
	var body struct {
		Latest   map[string]string `json:"latest"`
		Versions []struct {
			ID string `json:"id"`
		} `json:"versions"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "1.0", body.Latest["release"])
	require.Len(t, body.Versions, 1)
	assert.Equal(t, "1.0", body.Versions[0].ID)
}

func TestGetVersionErrors(t *testing.T) {
	r, _ := newRouter(t)
	w := do(r, "GET", apiPrefix+"/versions/1.0", nil)
	require.Equal(t, 200, w.Code)
	assert.Equal(t, "Main", decode(t, w)["mainClass"])

	w = do(r, "GET", apiPrefix+"/versions/9.9", nil)
	require.Equal(t, 404, w.Code)
	body := decode(t, w)
	assert.Equal(t, "DESCRIPTOR_NOT_FOUND", body["code"])
	assert.Equal(t, "9.9", body["version"])
	assert.NotEmpty(t, body["message"])

	// listed but not published
	w = do(r, "GET", apiPrefix+"/versions/1.1-pre", nil)
	assert.Equal(t, 404, w.Code)
}

func TestInstallAndEventStream(t *testing.T) {
	r, svc := newRouter(t)
	w := do(r, "POST", apiPrefix+"/versions/1.0/install", nil)
	require.Equal(t, 202, w.Code)
	runID, _ := decode(t, w)["id"].(string)
	require.NotEmpty(t, runID)

	run, err := svc.GetRun(runID)
	require.NoError(t, err)
	select {
	case <-run.Done():
	case <-time.After(10 * time.Second):
		t.Fatal("install did not finish")
	}

	w = do(r, "GET", apiPrefix+"/installs/"+runID+"/events", nil)
	require.Equal(t, 200, w.Code)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
	stream := w.Body.String()
	assert.Contains(t, stream, "event:started")
	assert.Contains(t, stream, "event:completed")
	assert.Contains(t, stream, "event:finished")
	assert.True(t, strings.HasSuffix(strings.TrimSpace(stream), "}"))
	assert.Contains(t, stream, "event:end")

	w = do(r, "GET", apiPrefix+"/installs/"+runID, nil)
	require.Equal(t, 200, w.Code)
	assert.Equal(t, string(models.InstallSucceeded), decode(t, w)["status"])

	w = do(r, "GET", apiPrefix+"/installs", nil)
	require.Equal(t, 200, w.Code)
	assert.Contains(t, w.Body.String(), runID)

	w = do(r, "GET", apiPrefix+"/installs/unknown/events", nil)
	assert.Equal(t, 404, w.Code)
	assert.Equal(t, "NOT_FOUND", decode(t, w)["code"])
}

func TestInstallUnknownVersion(t *testing.T) {
	r, _ := newRouter(t)
	w := do(r, "POST", apiPrefix+"/versions/9.9/install", nil)
	assert.Equal(t, 404, w.Code)
}

func TestInstanceRoutes(t *testing.T) {
	r, _ := newRouter(t)
	w := do(r, "GET", apiPrefix+"/instances", nil)
	require.Equal(t, 200, w.Code)
	assert.JSONEq(t, "[]", w.Body.String())

	inst := models.Instance{Name: "main", Version: "1.0", Java: models.JavaConfig{MaxMemory: "2G"}}
	w = do(r, "POST", apiPrefix+"/instances", inst)
	require.Equal(t, 201, w.Code, w.Body.String())

	w = do(r, "POST", apiPrefix+"/instances", inst)
	assert.Equal(t, 409, w.Code)

	w = do(r, "POST", apiPrefix+"/instances", models.Instance{Name: "../x", Version: "1.0"})
	assert.Equal(t, 400, w.Code)
	assert.Equal(t, "INVALID_INPUT", decode(t, w)["code"])

	w = do(r, "GET", apiPrefix+"/instances/main", nil)
	require.Equal(t, 200, w.Code)
	got := decode(t, w)
	assert.Equal(t, "1.0", got["version"])

	w = do(r, "DELETE", apiPrefix+"/instances/main", nil)
	require.Equal(t, 200, w.Code)
	w = do(r, "GET", apiPrefix+"/instances/main", nil)
	assert.Equal(t, 404, w.Code)
}

func TestGameRoutes(t *testing.T) {
	r, _ := newRouter(t)
	w := do(r, "GET", apiPrefix+"/games", nil)
	require.Equal(t, 200, w.Code)
	assert.JSONEq(t, "[]", w.Body.String())

	assert.Equal(t, 400, do(r, "DELETE", apiPrefix+"/games/abc", nil).Code)
	assert.Equal(t, 404, do(r, "DELETE", apiPrefix+"/games/99999", nil).Code)
	assert.Equal(t, 404, do(r, "POST", apiPrefix+"/instances/none/launch", nil).Code)
}

func TestLaunchBodyOptions(t *testing.T) {
	opts := LaunchBody{PlayerName: "Steve", QuickPlayMultiplayer: "mc.example.org:25565"}.options()
	assert.Equal(t, "Steve", opts.PlayerName)
	assert.True(t, opts.Features["is_quick_play_multiplayer"])
	assert.Equal(t, "mc.example.org:25565", opts.Extra["quickPlayMultiplayer"])

	opts = LaunchBody{}.options()
	assert.Nil(t, opts.Features)
}
