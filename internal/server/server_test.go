package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/cursograph/pkg/cache"
	"github.com/matzehuels/cursograph/pkg/errors"
	"github.com/matzehuels/cursograph/pkg/graph"
	"github.com/matzehuels/cursograph/pkg/pipeline"
	"github.com/matzehuels/cursograph/pkg/refresh"
	"github.com/matzehuels/cursograph/pkg/source"
)

const courseJSON = `[
  {
    "ID_Curso": 1,
    "Nombre": "Matemáticas",
    "modulos": [
      {"ID_Modulo": 10, "Nombre": "Álgebra", "lecciones": [{"ID_Leccion": 100, "Titulo": "Ecuaciones"}]},
      {"ID_Modulo": 11, "Nombre": "Geometría", "lecciones": [
        {"ID_Leccion": 110, "Titulo": "Ángulos", "evaluaciones": [{"ID_Evaluacion": 1000, "Titulo": "Quiz 1"}]},
        {"ID_Leccion": 111, "Titulo": "Triángulos", "evaluaciones": [{"ID_Evaluacion": 1001}]}
      ]}
    ]
  }
]`

const professorJSON = `[{"ID_Profesor": 7, "Nombre": "Ana", "cursos": [
  {"ID_Curso": 1, "Nombre": "Física", "estudiantes": [{"ID_Estudiante": 3, "Nombre": "Luis"}]}
]}]`

// backend serves canned records per selector and can be switched to fail.
type backend struct {
	failing atomic.Bool
	calls   atomic.Int32
}

func (b *backend) Fetch(_ context.Context, selector string) ([]byte, error) {
	b.calls.Add(1)
	if b.failing.Load() {
		return nil, errors.New(errors.ErrCodeNetwork, "backend unavailable")
	}
	if selector == source.SelectorProfessors {
		return []byte(professorJSON), nil
	}
	return []byte(courseJSON), nil
}

func newTestServer(t *testing.T, withRefresher bool) (*httptest.Server, *backend, *refresh.Refresher) {
	t.Helper()
	runner := pipeline.NewRunner(cache.NewMemoryCache(0), nil, nil)
	b := &backend{}
	opts := Options{Runner: runner}
	var r *refresh.Refresher
	if withRefresher {
		r = refresh.New(refresh.Options{
			Fetcher:  b,
			Build:    refresh.PipelineBuild(runner, source.DefaultSelectors(), pipeline.Options{}),
			Selector: source.SelectorCourses,
		})
		opts.Refresher = r
	}
	ts := httptest.NewServer(New(opts).Router())
	t.Cleanup(ts.Close)
	return ts, b, r
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func TestHealth(t *testing.T) {
	ts, _, _ := newTestServer(t, false)
	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if resp.Header.Get("Content-Type") != "application/json" {
		t.Errorf("content type = %q", resp.Header.Get("Content-Type"))
	}
	body := decode[map[string]string](t, resp)
	if body["status"] != "ok" {
		t.Errorf("body = %v", body)
	}
}

func TestLayout(t *testing.T) {
	ts, _, _ := newTestServer(t, false)

	post := func() *http.Response {
		resp, err := http.Post(ts.URL+"/v1/layout", "application/json", strings.NewReader(courseJSON))
		if err != nil {
			t.Fatal(err)
		}
		return resp
	}

	resp := post()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if got := resp.Header.Get(HeaderCache); got != "MISS" {
		t.Errorf("first %s = %q, want MISS", HeaderCache, got)
	}
	if resp.Header.Get(HeaderSourceHash) == "" {
		t.Error("missing source hash header")
	}
	g := decode[graph.Graph](t, resp)
	if len(g.Nodes) != 8 || len(g.Edges) != 7 {
		t.Errorf("got %d nodes / %d edges, want 8 / 7", len(g.Nodes), len(g.Edges))
	}
	if g.Nodes[0].ID != "course:1" {
		t.Errorf("first node = %q, want course:1", g.Nodes[0].ID)
	}

	resp = post()
	resp.Body.Close()
	if got := resp.Header.Get(HeaderCache); got != "HIT" {
		t.Errorf("second %s = %q, want HIT", HeaderCache, got)
	}
}

func TestLayoutFormats(t *testing.T) {
	ts, _, _ := newTestServer(t, false)

	resp, err := http.Post(ts.URL+"/v1/layout?shape=professor&format=flow", "application/json", strings.NewReader(professorJSON))
	if err != nil {
		t.Fatal(err)
	}
	flow := decode[graph.Flow](t, resp)
	if len(flow.Nodes) != 3 || len(flow.Edges) != 2 {
		t.Errorf("flow has %d nodes / %d edges, want 3 / 2", len(flow.Nodes), len(flow.Edges))
	}

	resp, err = http.Post(ts.URL+"/v1/layout?format=dot", "application/json", strings.NewReader(courseJSON))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/vnd.graphviz") {
		t.Errorf("dot content type = %q", ct)
	}
}

func TestLayoutErrors(t *testing.T) {
	ts, _, _ := newTestServer(t, false)

	tests := []struct {
		name   string
		query  string
		body   string
		status int
		code   errors.Code
		retry  bool
	}{
		{"invalid json", "", `{`, http.StatusBadRequest, errors.ErrCodeInvalidInput, false},
		{"not records", "", `"text"`, http.StatusBadRequest, errors.ErrCodeInvalidInput, false},
		{"bad shape", "?shape=alumni", courseJSON, http.StatusBadRequest, errors.ErrCodeInvalidShape, false},
		{"bad centering", "?centering=left", courseJSON, http.StatusBadRequest, errors.ErrCodeInvalidConfig, false},
		{"bad format", "?format=gif", courseJSON, http.StatusBadRequest, errors.ErrCodeInvalidFormat, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Post(ts.URL+"/v1/layout"+tt.query, "application/json", strings.NewReader(tt.body))
			if err != nil {
				t.Fatal(err)
			}
			if resp.StatusCode != tt.status {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.status)
			}
			body := decode[errorBody](t, resp)
			if body.Code != tt.code {
				t.Errorf("code = %s, want %s", body.Code, tt.code)
			}
			if body.Retry != tt.retry {
				t.Errorf("retry = %v, want %v", body.Retry, tt.retry)
			}
			if body.Message == "" {
				t.Error("empty message")
			}
		})
	}
}

func TestLayoutMalformed(t *testing.T) {
	runner := pipeline.NewRunner(nil, nil, nil)
	ts := httptest.NewServer(New(Options{Runner: runner, Layout: pipeline.Options{MaxDepth: 2}}).Router())
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/v1/layout", "application/json", strings.NewReader(courseJSON))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", resp.StatusCode)
	}
	body := decode[errorBody](t, resp)
	if body.Code != errors.ErrCodeMalformedHierarchy {
		t.Errorf("code = %s", body.Code)
	}
}

func TestLayoutBodyLimit(t *testing.T) {
	ts := httptest.NewServer(New(Options{MaxBody: 16}).Router())
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/v1/layout", "application/json", strings.NewReader(courseJSON))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
	body := decode[errorBody](t, resp)
	if body.Code != errors.ErrCodeInvalidInput {
		t.Errorf("code = %s", body.Code)
	}
}

func TestGraphWithoutRefresher(t *testing.T) {
	ts, _, _ := newTestServer(t, false)
	for _, path := range []string{"/v1/graph", "/v1/graph/flow", "/v1/graph.svg"} {
		resp, err := http.Get(ts.URL + path)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("GET %s status = %d, want 404", path, resp.StatusCode)
		}
	}
}

func TestGraphBeforeFirstRefresh(t *testing.T) {
	ts, _, _ := newTestServer(t, true)
	resp, err := http.Get(ts.URL + "/v1/graph")
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
	body := decode[errorBody](t, resp)
	if body.Code != errors.ErrCodeNotFound || !body.Retry {
		t.Errorf("body = %+v", body)
	}
}

func TestRefreshAndGraph(t *testing.T) {
	ts, _, _ := newTestServer(t, true)

	resp, err := http.Post(ts.URL+"/v1/refresh", "", nil)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("refresh status = %d", resp.StatusCode)
	}
	refreshed := decode[snapshotBody](t, resp)
	if refreshed.Applied == nil || !*refreshed.Applied {
		t.Errorf("applied = %v", refreshed.Applied)
	}
	if refreshed.Seq != 1 || refreshed.Selector != source.SelectorCourses {
		t.Errorf("snapshot = seq %d selector %q", refreshed.Seq, refreshed.Selector)
	}

	resp, err = http.Get(ts.URL + "/v1/graph")
	if err != nil {
		t.Fatal(err)
	}
	snap := decode[snapshotBody](t, resp)
	if len(snap.Graph.Nodes) != 8 || snap.Error != nil {
		t.Errorf("graph has %d nodes, error %+v", len(snap.Graph.Nodes), snap.Error)
	}

	resp, err = http.Get(ts.URL + "/v1/graph/flow")
	if err != nil {
		t.Fatal(err)
	}
	flow := decode[graph.Flow](t, resp)
	if len(flow.Nodes) != 8 {
		t.Errorf("flow has %d nodes", len(flow.Nodes))
	}
}

func TestRefreshFailureKeepsGraph(t *testing.T) {
	ts, b, r := newTestServer(t, true)
	if _, _, err := r.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}

	b.failing.Store(true)
	resp, err := http.Post(ts.URL+"/v1/refresh", "", nil)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", resp.StatusCode)
	}
	body := decode[snapshotBody](t, resp)
	if body.Error == nil || body.Error.Code != errors.ErrCodeNetwork || !body.Error.Retry {
		t.Errorf("error = %+v", body.Error)
	}
	if len(body.Graph.Nodes) != 8 {
		t.Errorf("failed refresh should keep the previous graph, got %d nodes", len(body.Graph.Nodes))
	}
}

func TestSelect(t *testing.T) {
	ts, _, r := newTestServer(t, true)
	if _, _, err := r.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}

	put := func(name string) *http.Response {
		req, _ := http.NewRequest(http.MethodPut, ts.URL+"/v1/selector/"+name, nil)
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatal(err)
		}
		return resp
	}

	resp := put("alumni")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown selector status = %d, want 404", resp.StatusCode)
	}
	if body := decode[errorBody](t, resp); body.Code != errors.ErrCodeSelectorNotFound {
		t.Errorf("code = %s", body.Code)
	}

	resp = put(source.SelectorProfessors)
	resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("select status = %d, want 202", resp.StatusCode)
	}
	if r.Selector() != source.SelectorProfessors {
		t.Errorf("selector = %q", r.Selector())
	}
	if _, ok := r.Current(); ok {
		t.Error("switching selectors should clear the snapshot")
	}

	if _, _, err := r.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}
	resp, err := http.Get(ts.URL + "/v1/graph")
	if err != nil {
		t.Fatal(err)
	}
	snap := decode[snapshotBody](t, resp)
	if snap.Selector != source.SelectorProfessors || len(snap.Graph.Nodes) != 3 {
		t.Errorf("snapshot = %q with %d nodes", snap.Selector, len(snap.Graph.Nodes))
	}
}

func TestRequestLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := log.NewWithOptions(&buf, log.Options{Level: log.InfoLevel})
	h := New(Options{Logger: logger}).Router()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-Id", "abc-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	out := buf.String()
	for _, want := range []string{"request", "/health", "status=200", "abc-123"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output %q missing %q", out, want)
		}
	}
}

func TestRecoverer(t *testing.T) {
	s := New(Options{})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/layout", nil)
	req.Body = panicBody{}
	s.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

type panicBody struct{}

func (panicBody) Read([]byte) (int, error) { panic("boom") }
func (panicBody) Close() error             { return nil }

func TestStatusFor(t *testing.T) {
	tests := []struct {
		code errors.Code
		want int
	}{
		{errors.ErrCodeInvalidInput, http.StatusBadRequest},
		{errors.ErrCodeInvalidShape, http.StatusBadRequest},
		{errors.ErrCodeMalformedHierarchy, http.StatusUnprocessableEntity},
		{errors.ErrCodeDuplicateNode, http.StatusUnprocessableEntity},
		{errors.ErrCodeNotFound, http.StatusNotFound},
		{errors.ErrCodeSelectorNotFound, http.StatusNotFound},
		{errors.ErrCodeNetwork, http.StatusBadGateway},
		{errors.ErrCodeUnauthorized, http.StatusBadGateway},
		{errors.ErrCodeInternal, http.StatusInternalServerError},
		{"", http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(tt.code); got != tt.want {
			t.Errorf("statusFor(%q) = %d, want %d", tt.code, got, tt.want)
		}
	}
}
