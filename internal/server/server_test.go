package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/straja-ai/prerouter/internal/auth"
	"github.com/straja-ai/prerouter/internal/config"
	"github.com/straja-ai/prerouter/internal/router"
	"github.com/straja-ai/prerouter/internal/tracelog"
)

type testEnv struct {
	srv      *Server
	recorder *tracelog.Recorder
	emitter  *tracelog.Emitter
}

func newTestEnv(t *testing.T, mutate func(*config.Config)) *testEnv {
	t.Helper()

	cfg, err := config.Load("testdata/does-not-exist.yaml")
	require.NoError(t, err)
	cfg.Server.Addr = ":0"
	cfg.Policy.Terms = []string{"Forbidden", "secret"}
	if mutate != nil {
		mutate(cfg)
	}
	require.NoError(t, config.Validate(cfg))

	authz, err := auth.NewFromConfig(cfg)
	require.NoError(t, err)

	rec := tracelog.NewRecorder()
	em := tracelog.NewEmitter(tracelog.EmitterConfig{QueueSize: 16, Workers: 1, ShutdownTimeout: time.Second}, nil)
	t.Cleanup(func() { em.Close(context.Background()) })

	pipeline := router.NewPipeline(cfg.Policy.Terms, tracelog.Multi(rec, em))
	return &testEnv{
		srv:      New(cfg, authz, pipeline, em),
		recorder: rec,
		emitter:  em,
	}
}

func (e *testEnv) do(method, path, body string, header map[string]string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	e.srv.Handler().ServeHTTP(rr, req)
	return rr
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t, nil)
	rr := env.do(http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ok\n", rr.Body.String())
}

func TestPreprocess(t *testing.T) {
	env := newTestEnv(t, nil)

	rr := env.do(http.MethodPost, "/v1/preprocess", `{"query":"  this is a   FORBIDDEN\tquery \n"}`, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var got router.Result
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, router.Result{
		Original:         "  this is a   FORBIDDEN\tquery \n",
		Normalized:       "this is a FORBIDDEN query",
		PolicyKeywordHit: true,
	}, got)

	records := env.recorder.Records()
	require.Len(t, records, 2)
	assert.Equal(t, router.StagePreprocess, records[0].Stage)
	assert.Equal(t, router.StagePolicy, records[1].Stage)
}

func TestPreprocessEmptyQuery(t *testing.T) {
	env := newTestEnv(t, nil)
	rr := env.do(http.MethodPost, "/v1/preprocess", `{"query":""}`, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"original":"","normalized":"","policy_keyword_hit":false}`, rr.Body.String())
}

func TestPreprocessRejectsBadRequests(t *testing.T) {
	env := newTestEnv(t, func(c *config.Config) { c.Server.MaxRequestBodyBytes = 32 })

	cases := []struct {
		name   string
		method string
		body   string
		want   int
	}{
		{"wrong method", http.MethodGet, "", http.StatusMethodNotAllowed},
		{"invalid json", http.MethodPost, `{"query":`, http.StatusBadRequest},
		{"missing query", http.MethodPost, `{}`, http.StatusBadRequest},
		{"too large", http.MethodPost, `{"query":"` + strings.Repeat("a", 64) + `"}`, http.StatusRequestEntityTooLarge},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := env.do(tc.method, "/v1/preprocess", tc.body, nil)
			assert.Equal(t, tc.want, rr.Code)
			var body errorBody
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
			assert.NotEmpty(t, body.Error.Message)
		})
	}
	assert.Empty(t, env.recorder.Records())
}

func TestAPIKeyRequired(t *testing.T) {
	env := newTestEnv(t, func(c *config.Config) { c.Server.APIKeys = []string{"test-key"} })
	body := `{"query":"hi"}`

	rr := env.do(http.MethodPost, "/v1/preprocess", body, nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = env.do(http.MethodPost, "/v1/preprocess", body, map[string]string{"Authorization": "Bearer wrong"})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = env.do(http.MethodPost, "/v1/preprocess", body, map[string]string{"Authorization": "Bearer test-key"})
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = env.do(http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestPolicyTerms(t *testing.T) {
	env := newTestEnv(t, nil)
	rr := env.do(http.MethodGet, "/v1/policy/terms", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"terms":["forbidden","secret"]}`, rr.Body.String())

	rr = env.do(http.MethodPost, "/v1/policy/terms", "", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestTraceMetrics(t *testing.T) {
	env := newTestEnv(t, nil)
	env.do(http.MethodPost, "/v1/preprocess", `{"query":"hello"}`, nil)

	rr := env.do(http.MethodGet, "/v1/trace/metrics", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var got traceMetricsResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.True(t, got.Enabled)
	assert.Equal(t, uint64(2), got.Enqueued+got.Dropped)
}

func TestTraceMetricsDisabled(t *testing.T) {
	cfg, err := config.Load("testdata/does-not-exist.yaml")
	require.NoError(t, err)
	authz, err := auth.NewFromConfig(cfg)
	require.NoError(t, err)
	srv := New(cfg, authz, router.NewPipeline(nil, nil), nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/trace/metrics", nil)
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"enabled":false,"enqueued":0,"dropped":0,"sinks":{}}`, rr.Body.String())
}

func TestShutdownWithoutStart(t *testing.T) {
	env := newTestEnv(t, nil)
	assert.NoError(t, env.srv.Shutdown(context.Background()))
}
