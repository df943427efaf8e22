package handlers

import (
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/scriba/internal/common"
	"github.com/ternarybob/scriba/internal/models"
	"github.com/ternarybob/scriba/internal/registry"
	"github.com/ternarybob/scriba/internal/services/transform"
)

func TestHealthHandler(t *testing.T) {
	h := &APIHandler{}
	rec, env := postJSON(t, h.HealthHandler, http.MethodGet, "/api/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.Success)
}

func TestVersionHandler(t *testing.T) {
	h := &APIHandler{}
	rec, env := postJSON(t, h.VersionHandler, http.MethodGet, "/api/version", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	data := dataMap(t, env)
	assert.NotEmpty(t, data["version"])
}

func TestNotFoundHandler(t *testing.T) {
	h := &APIHandler{}
	rec, env := postJSON(t, h.NotFoundHandler, http.MethodGet, "/api/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, models.ErrNotFound, env.Error.Code)
}

func TestMarkdownHandler(t *testing.T) {
	h := NewTransformHandler(transform.NewService(nil), nil)

	body := `{"contentHtml":"<h1>Title</h1><p>Body text.</p>"}`
	rec, env := postJSON(t, h.MarkdownHandler, http.MethodPost, "/api/transform/markdown", body)
	assert.Equal(t, http.StatusOK, rec.Code)
	data := dataMap(t, env)
	assert.Contains(t, data["markdown"], "# Title")

	rec, _ = postJSON(t, h.MarkdownHandler, http.MethodPost, "/api/transform/markdown", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetStatusHandler(t *testing.T) {
	cfg := common.DefaultConfig()
	cfg.Workspace.Token = "tok"
	common.SetSnapshot(cfg)

	h := NewStatusHandler("", registry.New(nil), nil)
	rec, env := postJSON(t, h.GetStatusHandler, http.MethodGet, "/api/status", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	data := dataMap(t, env)
	assert.Equal(t, "127.0.0.1:3004", data["listen_addr"])
	jobs, ok := data["jobs"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(0), jobs["tracked"])
}

func TestReloadConfigHandler(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scriba.toml")
	require.NoError(t, os.WriteFile(path, []byte("environment = \"staging\"\n\n[workspace]\ntoken = \"tok\"\n"), 0644))

	h := NewStatusHandler(path, registry.New(nil), nil)
	rec, env := postJSON(t, h.ReloadConfigHandler, http.MethodPost, "/api/config/reload", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	data := dataMap(t, env)
	assert.Equal(t, "staging", data["environment"])
}
