package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ergo/internal/engine"
	"github.com/roach88/ergo/internal/ir"
	"github.com/roach88/ergo/internal/library"
	"github.com/roach88/ergo/internal/logging"
	"github.com/roach88/ergo/internal/pipeline"
	"github.com/roach88/ergo/internal/primitive"
	"github.com/roach88/ergo/internal/testutil"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	lib, err := library.New(
		testutil.HelloWorld(),
		testutil.HelloWorldGated(),
		testutil.ComputeIntoAction(),
		testutil.ThresholdGate(),
		testutil.Strategy(),
	)
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	p, err := pipeline.New(lib, primitive.Core(),
		pipeline.WithLogger(logging.NewNop()),
		pipeline.WithMetrics(engine.NewMetrics(reg)),
		pipeline.WithRunIDGenerator(testutil.NewFixedRunIDGenerator("run-1")),
	)
	require.NoError(t, err)

	srv := httptest.NewServer(NewHandler(p, reg, logging.NewNop()))
	t.Cleanup(srv.Close)
	return srv
}

func get(t *testing.T, srv *httptest.Server, path string) (int, []byte) {
	t.Helper()
	resp, err := http.Get(srv.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, body
}

func post(t *testing.T, srv *httptest.Server, path string, body []byte) (int, []byte) {
	t.Helper()
	resp, err := http.Post(srv.URL+path, "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, out
}

func TestHealthz(t *testing.T) {
	srv := newServer(t)
	status, body := get(t, srv, "/healthz")
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))
}

func TestListClusters(t *testing.T) {
	srv := newServer(t)
	status, body := get(t, srv, "/v1/clusters")
	require.Equal(t, http.StatusOK, status)

	var keys []map[string]string
	require.NoError(t, json.Unmarshal(body, &keys))
	require.Len(t, keys, 5)
	assert.Equal(t, map[string]string{"id": "compute_into_action", "version": "1.0.0"}, keys[0])
}

func TestExpand(t *testing.T) {
	srv := newServer(t)

	status, body := get(t, srv, "/v1/clusters/strategy/1.0.0/expand?param.price=9")
	require.Equal(t, http.StatusOK, status, string(body))
	g, err := ir.ParseExpandedGraph(body)
	require.NoError(t, err)
	assert.Len(t, g.Nodes, 7)
	// price=n6; 9 parses as an Int literal.
	assert.Equal(t, ir.IntValue(9), g.Nodes["n6"].Parameters["value"])

	status, body = get(t, srv, "/v1/clusters/nope/1.0.0/expand")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Contains(t, string(body), "MISSING_CLUSTER")
}

func TestSignature(t *testing.T) {
	srv := newServer(t)
	status, body := get(t, srv, "/v1/clusters/threshold_gate/1.0.0/signature")
	require.Equal(t, http.StatusOK, status, string(body))

	var resp signatureResponse
	require.NoError(t, json.Unmarshal(body, &resp))
	assert.Equal(t, "threshold_gate@1.0.0", resp.Cluster)
	assert.Equal(t, ir.TriggerLike, resp.Signature.Kind)
	assert.NotEmpty(t, resp.Hash)
}

func TestValidateCluster(t *testing.T) {
	srv := newServer(t)

	status, body := get(t, srv, "/v1/clusters/hello_world/1.0.0/validate")
	require.Equal(t, http.StatusOK, status)
	var ok clusterValidation
	require.NoError(t, json.Unmarshal(body, &ok))
	assert.True(t, ok.Valid)
	assert.Empty(t, ok.Definition)
	require.NotNil(t, ok.Graph)
	assert.True(t, ok.Graph.Success)

	status, body = get(t, srv, "/v1/clusters/compute_into_action/1.0.0/validate")
	require.Equal(t, http.StatusOK, status)
	var bad clusterValidation
	require.NoError(t, json.Unmarshal(body, &bad))
	assert.False(t, bad.Valid)
	require.Len(t, bad.Definition, 1)
	assert.Equal(t, "E203", bad.Definition[0].Code)
	assert.Nil(t, bad.Graph)
}

func TestDiff(t *testing.T) {
	srv := newServer(t)

	status, body := get(t, srv, "/v1/clusters/threshold_gate/diff?from=1.0.0&to=1.0.0")
	require.Equal(t, http.StatusOK, status, string(body))
	var d pipeline.Diff
	require.NoError(t, json.Unmarshal(body, &d))
	assert.False(t, d.Breaking)

	status, _ = get(t, srv, "/v1/clusters/threshold_gate/diff?from=1.0.0")
	assert.Equal(t, http.StatusBadRequest, status)
}

func expandedBody(t *testing.T, srv *httptest.Server, cluster string) []byte {
	t.Helper()
	status, body := get(t, srv, "/v1/clusters/"+cluster+"/1.0.0/expand")
	require.Equal(t, http.StatusOK, status, string(body))
	return body
}

func TestValidateGraph(t *testing.T) {
	srv := newServer(t)

	status, body := post(t, srv, "/v1/graphs/validate", expandedBody(t, srv, "compute_into_action"))
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), `"success":false`)
	assert.Contains(t, string(body), `"InvalidWiring"`)

	status, _ = post(t, srv, "/v1/graphs/validate", []byte(`{"nodes": 1}`))
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestRunGraph(t *testing.T) {
	srv := newServer(t)
	graph := expandedBody(t, srv, "hello_world")

	req, err := json.Marshal(map[string]any{"graph": json.RawMessage(graph)})
	require.NoError(t, err)
	status, body := post(t, srv, "/v1/graphs/run", req)
	require.Equal(t, http.StatusOK, status, string(body))
	assert.NotContains(t, string(body), `"run_id"`)
	assert.Contains(t, string(body), "Filled")

	status, _ = get(t, srv, "/metrics")
	assert.Equal(t, http.StatusOK, status)
	_, metrics := get(t, srv, "/metrics")
	assert.Contains(t, string(metrics), `ergo_runs_total{result="ok"} 1`)
}

func TestRunGraphRejections(t *testing.T) {
	srv := newServer(t)

	req, err := json.Marshal(map[string]any{"graph": json.RawMessage(expandedBody(t, srv, "compute_into_action"))})
	require.NoError(t, err)
	status, body := post(t, srv, "/v1/graphs/run", req)
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Contains(t, string(body), `"code":"InvalidGraph"`)

	status, _ = post(t, srv, "/v1/graphs/run", []byte(`{}`))
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = post(t, srv, "/v1/graphs/run", []byte(`{"graph": {}, "extra": 1}`))
	assert.Equal(t, http.StatusBadRequest, status)

	req, err = json.Marshal(map[string]any{
		"graph":   json.RawMessage(expandedBody(t, srv, "hello_world")),
		"context": map[string]any{"bogus": 1},
	})
	require.NoError(t, err)
	status, _ = post(t, srv, "/v1/graphs/run", req)
	assert.Equal(t, http.StatusBadRequest, status)
}
