package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/burugo/ante"
	"github.com/burugo/ante/content"
	"github.com/burugo/ante/drivers/cache/memory"
	"github.com/burugo/ante/drivers/db/sqlstore"
	"github.com/burugo/ante/server"
)

type testEnv struct {
	srv    *httptest.Server
	client *memory.Client
}

func setupServer(t *testing.T) *testEnv {
	t.Helper()
	store, err := sqlstore.Open(context.Background(), "sqlite", filepath.Join(t.TempDir(), "server.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.MigrateUp())

	client := memory.NewClient(nil)
	t.Cleanup(func() { _ = client.Close() })
	cache, err := ante.New(client, ante.DefaultConfig())
	require.NoError(t, err)

	svc := content.NewService(store, cache, nil)
	srv := httptest.NewServer(server.New(svc, cache, store, nil))
	t.Cleanup(srv.Close)
	return &testEnv{srv: srv, client: client}
}

func (e *testEnv) do(t *testing.T, method, path, company string, body any, headers ...string) (*http.Response, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, e.srv.URL+path, &buf)
	require.NoError(t, err)
	if company != "" {
		req.Header.Set(server.HeaderCompanyID, company)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	if resp.StatusCode != http.StatusNoContent {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	}
	return resp, out
}

func TestHealth(t *testing.T) {
	env := setupServer(t)

	resp, body := env.do(t, http.MethodGet, "/api/v1/health", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "healthy", body["status"])
	cache := body["cache"].(map[string]any)
	assert.Equal(t, true, cache["isConnected"])

	require.NoError(t, env.client.Close())
	resp, body = env.do(t, http.MethodGet, "/api/v1/health", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "degraded", body["status"])
	cache = body["cache"].(map[string]any)
	assert.Equal(t, false, cache["isConnected"])
	assert.Equal(t, map[string]any{"status": "ok"}, body["database"])

	resp, body = env.do(t, http.MethodGet, "/api/v1/content-types", "16", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode, "requests are served without the cache")
	assert.Empty(t, body["contentTypes"])
}

func TestTenantHeaderRequired(t *testing.T) {
	env := setupServer(t)

	resp, body := env.do(t, http.MethodGet, "/api/v1/content-types", "", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body["error"], server.HeaderCompanyID)
}

func TestContentTypesAndEntries(t *testing.T) {
	env := setupServer(t)

	resp, body := env.do(t, http.MethodPost, "/api/v1/content-types", "16",
		map[string]any{"slug": "blog", "name": "Blog", "fields": []map[string]string{{"name": "title"}}})
	require.Equal(t, http.StatusCreated, resp.StatusCode, body)
	assert.Equal(t, "blog", body["slug"])
	assert.Equal(t, "16", body["companyId"])

	resp, _ = env.do(t, http.MethodPost, "/api/v1/content-types", "16", map[string]any{"slug": "blog", "name": "Blog"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, _ = env.do(t, http.MethodPost, "/api/v1/content-types", "16", map[string]any{"slug": "Not A Slug", "name": "x"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = env.do(t, http.MethodGet, "/api/v1/content-types/blog", "16", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []any{map[string]any{"name": "title"}}, body["fields"])

	resp, _ = env.do(t, http.MethodGet, "/api/v1/content-types/blog", "17", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode, "tenants are isolated")

	resp, body = env.do(t, http.MethodPost, "/api/v1/content-types/blog/entries", "16",
		map[string]any{"slug": "hello", "status": "published", "data": map[string]string{"title": "Hello"}})
	require.Equal(t, http.StatusCreated, resp.StatusCode, body)
	id := int64(body["id"].(float64))
	assert.NotZero(t, id)

	resp, body = env.do(t, http.MethodGet, "/api/v1/content-types/blog/entries?status=published&limit=5", "16", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body["entries"], 1)

	resp, _ = env.do(t, http.MethodGet, "/api/v1/content-types/blog/entries?limit=abc", "16", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	path := "/api/v1/content-types/blog/entries/" + jsonNumber(id)
	resp, body = env.do(t, http.MethodPut, path, "16", map[string]any{"status": "draft", "data": map[string]string{"title": "Bye"}})
	require.Equal(t, http.StatusOK, resp.StatusCode, body)

	resp, body = env.do(t, http.MethodGet, path, "16", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "draft", body["status"])
	assert.Equal(t, map[string]any{"title": "Bye"}, body["data"])

	resp, body = env.do(t, http.MethodGet, "/api/v1/content-types/blog/entries?status=published", "16", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, body["entries"])

	resp, _ = env.do(t, http.MethodGet, "/api/v1/content-types/blog/entries/x", "16", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = env.do(t, http.MethodDelete, path, "16", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp, _ = env.do(t, http.MethodGet, path, "16", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = env.do(t, http.MethodDelete, "/api/v1/content-types/blog", "16", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp, body = env.do(t, http.MethodGet, "/api/v1/content-types", "16", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, body["contentTypes"])
}

func TestNoCacheHeaderRefreshes(t *testing.T) {
	env := setupServer(t)

	resp, _ := env.do(t, http.MethodPut, "/api/v1/settings/timezone", "16", map[string]string{"value": "UTC"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = env.do(t, http.MethodGet, "/api/v1/settings/timezone", "16", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Poison the cached value; a normal read serves it, no-cache reads through.
	raw, err := env.client.Get(context.Background(), "config:16:timezone")
	require.NoError(t, err)
	var cached map[string]any
	require.NoError(t, json.Unmarshal(raw, &cached))
	cached["value"] = "stale"
	poisoned, _ := json.Marshal(cached)
	require.NoError(t, env.client.Set(context.Background(), "config:16:timezone", poisoned, 0))

	_, body := env.do(t, http.MethodGet, "/api/v1/settings/timezone", "16", nil)
	assert.Equal(t, "stale", body["value"])

	_, body = env.do(t, http.MethodGet, "/api/v1/settings/timezone", "16", nil, "Cache-Control", "no-cache")
	assert.Equal(t, "UTC", body["value"])
	_, body = env.do(t, http.MethodGet, "/api/v1/settings/timezone", "16", nil)
	assert.Equal(t, "UTC", body["value"], "refresh rewrites the cache")
}

func TestMedia(t *testing.T) {
	env := setupServer(t)

	resp, body := env.do(t, http.MethodPost, "/api/v1/media", "16", map[string]any{"fileName": "a.png", "folder": "logos", "size": 3})
	require.Equal(t, http.StatusCreated, resp.StatusCode, body)
	id := body["id"].(string)

	resp, body = env.do(t, http.MethodGet, "/api/v1/media?folder=logos", "16", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body["media"], 1)

	resp, _ = env.do(t, http.MethodDelete, "/api/v1/media/"+id, "17", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp, _ = env.do(t, http.MethodDelete, "/api/v1/media/"+id, "16", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, body = env.do(t, http.MethodGet, "/api/v1/media?folder=logos", "16", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, body["media"])
}

func TestBadBody(t *testing.T) {
	env := setupServer(t)
	req, err := http.NewRequest(http.MethodPost, env.srv.URL+"/api/v1/content-types", bytes.NewBufferString("{"))
	require.NoError(t, err)
	req.Header.Set(server.HeaderCompanyID, "16")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

type downDB struct{}

func (downDB) Ping(context.Context) error { return errors.New("connection refused") }

func TestHealthDatabaseDown(t *testing.T) {
	client := memory.NewClient(nil)
	defer client.Close()
	cache, err := ante.New(client, ante.DefaultConfig())
	require.NoError(t, err)

	srv := httptest.NewServer(server.New(nil, cache, downDB{}, nil))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/v1/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func jsonNumber(n int64) string {
	b, _ := json.Marshal(n)
	return string(b)
}
