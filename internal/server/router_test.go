package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loykin/openlist-service/internal/catalog"
	"github.com/loykin/openlist-service/internal/supervisor"
)

const testAPIKey = "test-key-123"

func newTestServer(t *testing.T) *Server {
	t.Helper()
	dir := t.TempDir()
	store := catalog.NewStore(filepath.Join(dir, "process_configs.json"), nil)
	cat := store.Load()
	sup := supervisor.New(cat, store, nil, supervisor.WithLogDir(dir))
	t.Cleanup(sup.Shutdown)
	return New(sup, testAPIKey, func() {})
}

func doReq(t *testing.T, h http.Handler, method, path, auth string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) Envelope {
	t.Helper()
	var env Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func TestHealthRequiresNoAuth(t *testing.T) {
	s := newTestServer(t)
	rec := doReq(t, s.Handler(), http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUnauthorizedWithoutKey(t *testing.T) {
	s := newTestServer(t)
	rec := doReq(t, s.Handler(), http.MethodGet, "/api/v1/status", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthorizedWithBareKey(t *testing.T) {
	s := newTestServer(t)
	rec := doReq(t, s.Handler(), http.MethodGet, "/api/v1/status", testAPIKey, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthorizedWithBearerPrefix(t *testing.T) {
	s := newTestServer(t)
	rec := doReq(t, s.Handler(), http.MethodGet, "/api/v1/status", "Bearer "+testAPIKey, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCreateGetListDeleteProcess(t *testing.T) {
	s := newTestServer(t)
	h := s.Handler()

	rec := doReq(t, h, http.MethodPost, "/api/v1/processes", testAPIKey, createProcessRequest{
		Name: "sleeper", BinPath: "/bin/sleep", Args: []string{"30"},
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	env := decodeEnvelope(t, rec)
	require.True(t, env.Success)

	data, _ := json.Marshal(env.Data)
	var v supervisor.View
	require.NoError(t, json.Unmarshal(data, &v))
	require.NotEmpty(t, v.Config.ID)

	rec = doReq(t, h, http.MethodGet, "/api/v1/processes/"+v.Config.ID, testAPIKey, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doReq(t, h, http.MethodGet, "/api/v1/processes", testAPIKey, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doReq(t, h, http.MethodDelete, "/api/v1/processes/"+v.Config.ID, testAPIKey, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doReq(t, h, http.MethodGet, "/api/v1/processes/"+v.Config.ID, testAPIKey, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateRejectsMissingBinPath(t *testing.T) {
	s := newTestServer(t)
	rec := doReq(t, s.Handler(), http.MethodPost, "/api/v1/processes", testAPIKey, map[string]string{"name": "bad"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	var env Envelope
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&env))
	require.NotNil(t, env.Error)
	assert.Equal(t, "invalid_config", *env.Error)
}

func TestSuccessResponseHasNullError(t *testing.T) {
	s := newTestServer(t)
	rec := doReq(t, s.Handler(), http.MethodGet, "/api/v1/processes", testAPIKey, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var env Envelope
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&env))
	assert.True(t, env.Success)
	assert.Nil(t, env.Error)
	assert.NotContains(t, rec.Body.String(), `"error":""`)
}

func TestGetUnknownProcessIs404(t *testing.T) {
	s := newTestServer(t)
	rec := doReq(t, s.Handler(), http.MethodGet, "/api/v1/processes/does-not-exist", testAPIKey, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStopBeforeStartIsConflict(t *testing.T) {
	s := newTestServer(t)
	h := s.Handler()

	rec := doReq(t, h, http.MethodPost, "/api/v1/processes", testAPIKey, createProcessRequest{
		Name: "idle", BinPath: "/bin/true",
	})
	env := decodeEnvelope(t, rec)
	data, _ := json.Marshal(env.Data)
	var v supervisor.View
	require.NoError(t, json.Unmarshal(data, &v))

	rec = doReq(t, h, http.MethodPost, "/api/v1/processes/"+v.Config.ID+"/stop", testAPIKey, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestLogsRejectsNegativeLines(t *testing.T) {
	s := newTestServer(t)
	h := s.Handler()

	rec := doReq(t, h, http.MethodPost, "/api/v1/processes", testAPIKey, createProcessRequest{
		Name: "idle", BinPath: "/bin/true",
	})
	env := decodeEnvelope(t, rec)
	data, _ := json.Marshal(env.Data)
	var v supervisor.View
	require.NoError(t, json.Unmarshal(data, &v))

	rec = doReq(t, h, http.MethodGet, "/api/v1/processes/"+v.Config.ID+"/logs?lines=-1", testAPIKey, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doReq(t, h, http.MethodGet, "/api/v1/processes/"+v.Config.ID+"/logs?lines=notanumber", testAPIKey, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doReq(t, h, http.MethodGet, "/api/v1/processes/"+v.Config.ID+"/logs?lines=0", testAPIKey, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	env = decodeEnvelope(t, rec)
	dataMap, ok := env.Data.(map[string]any)
	require.True(t, ok)
	lines, ok := dataMap["lines"].([]any)
	require.True(t, ok)
	assert.Empty(t, lines)
}

func TestVersionEndpoint(t *testing.T) {
	s := newTestServer(t)
	rec := doReq(t, s.Handler(), http.MethodGet, "/api/v1/version", testAPIKey, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMetricsEndpointUnauthenticated(t *testing.T) {
	s := newTestServer(t)
	rec := doReq(t, s.Handler(), http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
