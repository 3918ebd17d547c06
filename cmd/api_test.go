package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Vini334/ReclamaAI/internal/config"
	"github.com/Vini334/ReclamaAI/internal/model"
	"github.com/Vini334/ReclamaAI/internal/pipeline"
	"github.com/Vini334/ReclamaAI/internal/store"
	anthropicpkg "github.com/Vini334/ReclamaAI/pkg/anthropic"
)

const deliveryReply = `{"category":"Produto não entregue","sentiment":"insatisfeito","urgency":"media","summary":"Pedido não chegou.","key_issues":["atraso"]}`

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Store: config.StoreConfig{Driver: "sqlite", DatabaseURL: filepath.Join(t.TempDir(), "api.db")},
		Anthropic: config.AnthropicConfig{
			Key:           "test",
			Model:         "claude-haiku-4-5-20251001",
			RetryAttempts: 1,
		},
		Data:     config.DataConfig{MockPath: filepath.Join("..", "data", "mock")},
		Pipeline: config.PipelineConfig{Persist: true, DefaultLimit: 3},
		Server:   config.ServerConfig{Port: 8000, AllowedOrigins: []string{"*"}},
	}
}

// newTestEnv builds a pipeline environment over a temp SQLite store and a
// scripted model.
func newTestEnv(t *testing.T, replies ...anthropicpkg.ScriptedReply) (*pipelineEnv, *anthropicpkg.ScriptedClient) {
	t.Helper()
	cfg = testConfig(t)

	st, err := initStore(context.Background())
	require.NoError(t, err)

	client := anthropicpkg.NewScriptedClient(replies...)
	env, err := buildPipelineEnv(context.Background(), cfg, st, client)
	require.NoError(t, err)
	t.Cleanup(env.Close)
	return env, client
}

func newTestServer(t *testing.T, replies ...anthropicpkg.ScriptedReply) (http.Handler, *pipelineEnv) {
	t.Helper()
	env, _ := newTestEnv(t, replies...)
	return newAPI(env, cfg.Pipeline.DefaultLimit).router(cfg.Server.AllowedOrigins), env
}

func doRequest(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeBody[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

func TestHealthEndpoint(t *testing.T) {
	h, _ := newTestServer(t)

	rr := doRequest(t, h, http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "application/json")
	body := decodeBody[map[string]string](t, rr)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "ok", body["store"])
	assert.NotEmpty(t, body["timestamp"])
}

func TestProcessSingle(t *testing.T) {
	h, env := newTestServer(t, anthropicpkg.ScriptedReply{Text: deliveryReply})

	rr := doRequest(t, h, http.MethodPost, "/complaints/process-single", model.ComplaintRecord{
		ID:              "api-1",
		Source:          model.SourceEmail,
		Title:           "Pedido não chegou",
		Description:     "Meu pedido não chegou. CPF 123.456.789-00.",
		ConsumerContact: "cliente@example.com",
	})

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	st := decodeBody[model.WorkflowState](t, rr)
	assert.Equal(t, model.StatusCompleted, st.Status)
	assert.Equal(t, "logistica", st.Routing.TeamID)
	assert.Contains(t, st.Anonymized.Description, "[CPF REMOVIDO]")

	assert.Equal(t, 1, env.Orchestrator.Stats().Successful)
	assert.Len(t, env.Outbox.SentTo("cliente@example.com"), 1)
}

func TestProcessSingle_BadRequests(t *testing.T) {
	h, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/complaints/process-single", strings.NewReader("{not json"))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = doRequest(t, h, http.MethodPost, "/complaints/process-single", map[string]string{
		"source": "fax", "title": "t", "description": "d",
	})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, decodeBody[map[string]string](t, rr)["error"], "unknown source")
}

func TestProcessBatchAndQuery(t *testing.T) {
	h, _ := newTestServer(t, anthropicpkg.ScriptedReply{Text: deliveryReply})

	rr := doRequest(t, h, http.MethodPost, "/complaints/process", map[string]any{"source": "reclame_aqui", "limit": 2})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	res := decodeBody[pipeline.BatchResult](t, rr)
	assert.Equal(t, 2, res.Total)
	assert.Equal(t, 2, res.Successful)
	require.Len(t, res.States, 2)
	for _, st := range res.States {
		assert.Equal(t, model.SourceReclameAqui, st.Raw.Source)
	}
	id := res.States[0].ComplaintID()

	rr = doRequest(t, h, http.MethodGet, "/complaints/"+id, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, model.StatusCompleted, decodeBody[model.WorkflowState](t, rr).Status)

	rr = doRequest(t, h, http.MethodGet, "/complaints?source=reclame_aqui&limit=10", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	list := decodeBody[struct {
		Complaints []model.WorkflowState `json:"complaints"`
		Count      int                   `json:"count"`
	}](t, rr)
	assert.Equal(t, 2, list.Count)

	rr = doRequest(t, h, http.MethodGet, "/complaints/stats/summary", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	stats := decodeBody[store.Stats](t, rr)
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 2, stats.ByStatus["COMPLETED"])

	rr = doRequest(t, h, http.MethodGet, "/complaints/audit/"+id, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	audit := decodeBody[struct {
		Events []store.AuditEvent `json:"events"`
		Count  int                `json:"count"`
	}](t, rr)
	assert.Equal(t, 4, audit.Count)

	rr = doRequest(t, h, http.MethodGet, "/complaints/orchestrator/stats", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	orch := decodeBody[orchestratorStats](t, rr)
	assert.Equal(t, 2, orch.Workflow.TotalProcessed)
	assert.Equal(t, 2, orch.Tickets.Total)
	assert.Equal(t, 2, orch.LLM.Calls)
}

func TestProcessBatch_DefaultLimitAndBadSource(t *testing.T) {
	h, _ := newTestServer(t, anthropicpkg.ScriptedReply{Text: deliveryReply})

	rr := doRequest(t, h, http.MethodPost, "/complaints/process", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, 3, decodeBody[pipeline.BatchResult](t, rr).Total)

	rr = doRequest(t, h, http.MethodPost, "/complaints/process", map[string]string{"source": "telegram"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestReprocessEndpoint(t *testing.T) {
	h, _ := newTestServer(t,
		anthropicpkg.ScriptedReply{Err: assert.AnError},
		anthropicpkg.ScriptedReply{Text: deliveryReply},
	)

	rr := doRequest(t, h, http.MethodPost, "/complaints/process-single", model.ComplaintRecord{
		ID: "api-r", Source: model.SourceChat, Title: "Sem entrega", Description: "Não recebi",
	})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, model.StatusFailedLLM, decodeBody[model.WorkflowState](t, rr).Status)

	rr = doRequest(t, h, http.MethodPost, "/complaints/api-r/reprocess", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, model.StatusCompleted, decodeBody[model.WorkflowState](t, rr).Status)

	rr = doRequest(t, h, http.MethodGet, "/complaints/audit/api-r?event_type=reprocessed", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"previous_status":"FAILED_LLM"`)
}

func TestNotFoundAndBadParams(t *testing.T) {
	h, _ := newTestServer(t)

	assert.Equal(t, http.StatusNotFound, doRequest(t, h, http.MethodGet, "/complaints/missing", nil).Code)
	assert.Equal(t, http.StatusNotFound, doRequest(t, h, http.MethodPost, "/complaints/missing/reprocess", nil).Code)
	assert.Equal(t, http.StatusBadRequest, doRequest(t, h, http.MethodGet, "/complaints?limit=abc", nil).Code)
	assert.Equal(t, http.StatusBadRequest, doRequest(t, h, http.MethodGet, "/complaints?source=fax", nil).Code)
	assert.Equal(t, http.StatusBadRequest, doRequest(t, h, http.MethodGet, "/complaints/audit/x?from=01-02-2026", nil).Code)
}

func TestPersistenceDisabled(t *testing.T) {
	cfg = testConfig(t)
	client := anthropicpkg.NewScriptedClient(anthropicpkg.ScriptedReply{Text: deliveryReply})
	env, err := buildPipelineEnv(context.Background(), cfg, nil, client)
	require.NoError(t, err)
	h := newAPI(env, 3).router([]string{"*"})

	rr := doRequest(t, h, http.MethodGet, "/health", nil)
	assert.Equal(t, "disabled", decodeBody[map[string]string](t, rr)["store"])

	assert.Equal(t, http.StatusServiceUnavailable, doRequest(t, h, http.MethodGet, "/complaints", nil).Code)
	assert.Equal(t, http.StatusServiceUnavailable, doRequest(t, h, http.MethodGet, "/complaints/stats/summary", nil).Code)

	rr = doRequest(t, h, http.MethodPost, "/complaints/process-single", model.ComplaintRecord{
		Source: model.SourceEmail, Title: "t", Description: "não chegou",
	})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, model.StatusCompleted, decodeBody[model.WorkflowState](t, rr).Status)
}

func TestMetricsEndpoint(t *testing.T) {
	h, _ := newTestServer(t)

	doRequest(t, h, http.MethodGet, "/health", nil)
	rr := doRequest(t, h, http.MethodGet, "/metrics", nil)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `reclamaai_http_requests_total{method="GET",path_pattern="/health",status="200"} 1`)
	assert.Contains(t, rr.Body.String(), "go_goroutines")
}

func TestCORSPreflight(t *testing.T) {
	h, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/complaints/process", nil)
	req.Header.Set("Origin", "https://dashboard.technova.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
}
