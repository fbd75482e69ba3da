// Package api serves the pipeline over HTTP for authoring tools.
//
// Routes:
//
//	GET  /healthz
//	GET  /metrics
//	GET  /v1/clusters
//	GET  /v1/clusters/{id}/{version}/expand
//	GET  /v1/clusters/{id}/{version}/signature
//	GET  /v1/clusters/{id}/{version}/validate
//	GET  /v1/clusters/{id}/diff?from=&to=
//	POST /v1/graphs/validate
//	POST /v1/graphs/run
//
// Cluster routes take root parameters as param.<name>=<value> query
// arguments.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/roach88/ergo/internal/compiler"
	"github.com/roach88/ergo/internal/engine"
	"github.com/roach88/ergo/internal/expand"
	"github.com/roach88/ergo/internal/ir"
	"github.com/roach88/ergo/internal/pipeline"
	"github.com/roach88/ergo/internal/signature"
	"github.com/roach88/ergo/internal/validate"
)

// maxBody bounds request bodies.
const maxBody = 1 << 20

// Server handles API requests.
type Server struct {
	pipeline *pipeline.Pipeline
	logger   *slog.Logger
}

// NewHandler creates the HTTP handler. Metrics are served from gatherer;
// a nil gatherer serves the default registry.
func NewHandler(p *pipeline.Pipeline, gatherer prometheus.Gatherer, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	s := &Server{pipeline: p, logger: logger}

	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/v1", func(r chi.Router) {
		r.Get("/clusters", s.listClusters)
		r.Get("/clusters/{id}/diff", s.diff)
		r.Route("/clusters/{id}/{version}", func(r chi.Router) {
			r.Get("/expand", s.expandCluster)
			r.Get("/signature", s.clusterSignature)
			r.Get("/validate", s.validateCluster)
		})
		r.Post("/graphs/validate", s.validateGraph)
		r.Post("/graphs/run", s.runGraph)
	})
	return r
}

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

func clusterKey(r *http.Request) ir.ClusterKey {
	return ir.ClusterKey{ID: chi.URLParam(r, "id"), Version: chi.URLParam(r, "version")}
}

// queryParameters reads param.<name>=<value> query arguments.
func queryParameters(r *http.Request) ir.Parameters {
	params := ir.Parameters{}
	for k, vs := range r.URL.Query() {
		name, ok := strings.CutPrefix(k, "param.")
		if !ok || name == "" || len(vs) == 0 {
			continue
		}
		params[name] = pipeline.ParseParameterValue(vs[0])
	}
	return params
}

func (s *Server) listClusters(w http.ResponseWriter, _ *http.Request) {
	keys := s.pipeline.Keys()
	out := make([]map[string]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, map[string]string{"id": k.ID, "version": k.Version})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) expandCluster(w http.ResponseWriter, r *http.Request) {
	g, err := s.pipeline.Expand(clusterKey(r), queryParameters(r))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

type signatureResponse struct {
	Cluster   string       `json:"cluster"`
	Signature ir.Signature `json:"signature"`
	Hash      string       `json:"hash"`
}

func (s *Server) clusterSignature(w http.ResponseWriter, r *http.Request) {
	key := clusterKey(r)
	sig, err := s.pipeline.Signature(r.Context(), key)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, signatureResponse{Cluster: key.String(), Signature: sig, Hash: signature.Hash(sig)})
}

type clusterValidation struct {
	Valid      bool                       `json:"valid"`
	Definition []compiler.ValidationError `json:"definition"`
	Graph      *validate.Result           `json:"graph,omitempty"`
}

// validateCluster runs the definition-time checks and, when they pass,
// the expansion-time checks on the expanded graph.
func (s *Server) validateCluster(w http.ResponseWriter, r *http.Request) {
	key := clusterKey(r)
	defErrs, err := s.pipeline.Check(r.Context(), key)
	if err != nil {
		s.writeError(w, err)
		return
	}
	out := clusterValidation{Definition: defErrs}
	if len(defErrs) == 0 {
		res, err := s.pipeline.Validate(key, queryParameters(r))
		if err != nil {
			s.writeError(w, err)
			return
		}
		out.Graph = &res
		out.Valid = res.Success
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) diff(w http.ResponseWriter, r *http.Request) {
	from, to := r.URL.Query().Get("from"), r.URL.Query().Get("to")
	if from == "" || to == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "from and to are required"})
		return
	}
	d, err := s.pipeline.Diff(r.Context(), chi.URLParam(r, "id"), from, to)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) validateGraph(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBody))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	g, err := ir.ParseExpandedGraph(data)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, s.pipeline.ValidateGraph(g))
}

// runRequest is the body of POST /v1/graphs/run. Context has the YAML
// context document's shape: {"values": {...}, "metadata": {...}}.
type runRequest struct {
	Graph   json.RawMessage `json:"graph"`
	Context map[string]any  `json:"context"`
}

func (s *Server) runGraph(w http.ResponseWriter, r *http.Request) {
	var req runRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body: " + err.Error()})
		return
	}
	if len(req.Graph) == 0 {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "graph is required"})
		return
	}
	g, err := ir.ParseExpandedGraph(req.Graph)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	execCtx := engine.NewContext()
	if req.Context != nil {
		if execCtx, err = engine.DecodeContext(req.Context); err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
			return
		}
	}

	rep, err := s.pipeline.RunGraph(r.Context(), g, execCtx)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// writeError maps phase errors to status codes: unknown clusters are 404,
// every other phase failure is 422 with the typed error as details.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	var (
		ee *expand.Error
		ie *engine.InvalidGraphError
		xe *engine.ExecutionError
	)
	switch {
	case expand.IsMissingCluster(err):
		writeJSON(w, http.StatusNotFound, errorBody{Error: err.Error(), Code: string(expand.ErrCodeMissingCluster)})
	case errors.As(err, &ee):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{Error: err.Error(), Code: string(ee.Code)})
	case errors.As(err, &ie):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{Error: err.Error(), Code: "InvalidGraph", Details: ie.Result})
	case errors.As(err, &xe):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{Error: err.Error(), Code: string(xe.Kind), Details: xe})
	default:
		s.logger.Error("request failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: err.Error()})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
