package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/matzehuels/cursograph/pkg/cache"
	"github.com/matzehuels/cursograph/pkg/errors"
	"github.com/matzehuels/cursograph/pkg/graph"
	"github.com/matzehuels/cursograph/pkg/hierarchy"
	"github.com/matzehuels/cursograph/pkg/layout"
	"github.com/matzehuels/cursograph/pkg/render"
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

func TestValidateFormat(t *testing.T) {
	tests := []struct {
		format  string
		wantErr bool
	}{
		{"json", false},
		{"flow", false},
		{"dot", false},
		{"svg", false},
		{"png", false},
		{"pdf", false},
		{"invalid", true},
		{"SVG", true}, // case-sensitive
		{"", true},
	}

	for _, tt := range tests {
		err := ValidateFormat(tt.format)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateFormat(%q) error = %v, wantErr %v", tt.format, err, tt.wantErr)
		}
		if err != nil && !errors.Is(err, errors.ErrCodeInvalidFormat) {
			t.Errorf("ValidateFormat(%q) code = %s, want INVALID_FORMAT", tt.format, errors.GetCode(err))
		}
	}
}

func TestValidateFormats(t *testing.T) {
	if err := ValidateFormats([]string{"svg", "dot"}); err != nil {
		t.Errorf("Valid formats should pass: %v", err)
	}
	if err := ValidateFormats([]string{"svg", "invalid"}); err == nil {
		t.Error("Invalid format should fail")
	}
	// Empty slice is valid
	if err := ValidateFormats(nil); err != nil {
		t.Errorf("Empty formats should pass: %v", err)
	}
}

func TestOptionsDefaults(t *testing.T) {
	opts := Options{}
	opts.SetDefaults()

	if opts.Shape != hierarchy.ShapeAuto {
		t.Errorf("Shape should be %q, got %q", hierarchy.ShapeAuto, opts.Shape)
	}
	if opts.MinSpacingX != layout.DefaultMinSpacingX {
		t.Errorf("MinSpacingX should be %v, got %v", layout.DefaultMinSpacingX, opts.MinSpacingX)
	}
	if opts.MaxDepth != layout.DefaultMaxDepth {
		t.Errorf("MaxDepth should be %d, got %d", layout.DefaultMaxDepth, opts.MaxDepth)
	}
	if opts.Centering != layout.CenterFirstLast {
		t.Errorf("Centering should be %q, got %q", layout.CenterFirstLast, opts.Centering)
	}
	if opts.Relations == nil || opts.Logger == nil {
		t.Error("Relations and Logger should be set")
	}

	// Second call should be idempotent
	before := opts.LayoutKeyOpts()
	opts.SetDefaults()
	if opts.LayoutKeyOpts() != before {
		t.Error("SetDefaults should be idempotent")
	}
}

func TestOptionsValidate(t *testing.T) {
	tests := []struct {
		name string
		opts Options
		code errors.Code
	}{
		{"bad shape", Options{Shape: "alumni"}, errors.ErrCodeInvalidShape},
		{"negative spacing", Options{MinSpacingX: -1}, errors.ErrCodeInvalidConfig},
		{"bad centering", Options{Centering: "left"}, errors.ErrCodeInvalidConfig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.opts.Validate(); !errors.Is(err, tt.code) {
				t.Errorf("Validate() = %v, want code %s", err, tt.code)
			}
		})
	}
	if err := (&Options{}).Validate(); err != nil {
		t.Errorf("zero Options should be valid: %v", err)
	}
}

func TestLayoutKeyOptsDistinguishOptions(t *testing.T) {
	base := Options{Shape: hierarchy.ShapeCourse}
	spaced := Options{Shape: hierarchy.ShapeCourse, MinSpacingX: 100}
	relabeled := Options{
		Shape: hierarchy.ShapeCourse,
		Relations: layout.DefaultRelations().With(
			layout.KindPair{Parent: hierarchy.KindCourse, Child: hierarchy.KindModule},
			layout.Relation{Label: "agrupa"}),
	}
	if base.LayoutKeyOpts() == spaced.LayoutKeyOpts() {
		t.Error("spacing should change the layout key")
	}
	if base.LayoutKeyOpts() == relabeled.LayoutKeyOpts() {
		t.Error("relations should change the layout key")
	}
	if base.LayoutKeyOpts() != (&Options{Shape: hierarchy.ShapeCourse, MinSpacingX: layout.DefaultMinSpacingX}).LayoutKeyOpts() {
		t.Error("explicit defaults should match implicit defaults")
	}
}

func TestLayout(t *testing.T) {
	res, err := Layout([]byte(courseJSON), Options{})
	if err != nil {
		t.Fatalf("Layout: %v", err)
	}
	if res.Stats.NodeCount != 8 || res.Stats.EdgeCount != 7 {
		t.Errorf("got %d nodes / %d edges, want 8 / 7", res.Stats.NodeCount, res.Stats.EdgeCount)
	}
	if res.Stats.RootCount != 1 {
		t.Errorf("RootCount = %d, want 1", res.Stats.RootCount)
	}
	if res.Stats.Kinds[hierarchy.KindLesson] != 3 {
		t.Errorf("lesson count = %d, want 3", res.Stats.Kinds[hierarchy.KindLesson])
	}
	if len(res.Roots) != 1 || res.Roots[0].ID != "course:1" {
		t.Errorf("Roots = %+v", res.Roots)
	}
	if res.SourceHash != cache.Hash([]byte(courseJSON)) {
		t.Error("SourceHash should hash the raw input")
	}

	// The extent is centered on the canvas; the root is centered over its
	// first and last module, which for this asymmetric course is off-center.
	lo, hi := res.Graph.Nodes[0].X, res.Graph.Nodes[0].X
	for _, n := range res.Graph.Nodes {
		lo, hi = min(lo, n.X), max(hi, n.X)
	}
	if mid := (lo + hi) / 2; mid != layout.DefaultCanvasCenterX {
		t.Errorf("extent midpoint = %v, want %v", mid, layout.DefaultCanvasCenterX)
	}
	root, _ := res.Graph.Node("course:1")
	first, _ := res.Graph.Node("course:1/module:10")
	last, _ := res.Graph.Node("course:1/module:11")
	if want := (first.X + last.X) / 2; root.X != want {
		t.Errorf("root x = %v, want midpoint of modules %v", root.X, want)
	}
}

func TestLayoutErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
		opts Options
		code errors.Code
	}{
		{"invalid json", `{`, Options{}, errors.ErrCodeInvalidInput},
		{"too deep", courseJSON, Options{MaxDepth: 2}, errors.ErrCodeMalformedHierarchy},
		{"bad shape", courseJSON, Options{Shape: "x"}, errors.ErrCodeInvalidShape},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Layout([]byte(tt.data), tt.opts)
			if !errors.Is(err, tt.code) {
				t.Errorf("Layout() = %v, want code %s", err, tt.code)
			}
		})
	}
}

func TestLayoutEmpty(t *testing.T) {
	res, err := Layout([]byte(`[]`), Options{})
	if err != nil {
		t.Fatalf("Layout: %v", err)
	}
	data, _ := graph.MarshalGraph(res.Graph)
	var raw map[string]json.RawMessage
	json.Unmarshal(data, &raw)
	if string(raw["nodes"]) != "[]" || string(raw["edges"]) != "[]" {
		t.Errorf("empty graph should encode empty arrays, got %s", data)
	}
}

func TestRunnerBuildCaches(t *testing.T) {
	r := NewRunner(cache.NewMemoryCache(0), nil, nil)
	defer r.Close()
	ctx := context.Background()

	first, err := r.Build(ctx, []byte(courseJSON), Options{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if first.CacheHit {
		t.Error("first build should miss the cache")
	}

	second, err := r.Build(ctx, []byte(courseJSON), Options{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !second.CacheHit {
		t.Error("second build should hit the cache")
	}
	if second.Roots != nil {
		t.Error("cached result carries no roots")
	}
	a, _ := graph.MarshalGraph(first.Graph)
	b, _ := graph.MarshalGraph(second.Graph)
	if !bytes.Equal(a, b) {
		t.Error("cached graph differs from computed graph")
	}

	refreshed, _ := r.Build(ctx, []byte(courseJSON), Options{Refresh: true})
	if refreshed.CacheHit {
		t.Error("Refresh should bypass the cache")
	}

	other, _ := r.Build(ctx, []byte(courseJSON), Options{MinSpacingX: 100})
	if other.CacheHit {
		t.Error("different spacing should miss the cache")
	}
}

func TestRunnerBuildNullCache(t *testing.T) {
	r := NewRunner(nil, nil, nil)
	for range 2 {
		res, err := r.Build(context.Background(), []byte(courseJSON), Options{})
		if err != nil {
			t.Fatalf("Build: %v", err)
		}
		if res.CacheHit {
			t.Error("NullCache should never hit")
		}
	}
}

func TestRender(t *testing.T) {
	res, err := Layout([]byte(courseJSON), Options{})
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	tests := []struct {
		format string
		want   string
	}{
		{graph.FormatJSON, `"relationLabel": "contiene"`},
		{graph.FormatFlow, `"className": "node-course"`},
		{graph.FormatDOT, "digraph"},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			data, err := Render(ctx, res.Graph, RenderOptions{Format: tt.format})
			if err != nil {
				t.Fatalf("Render: %v", err)
			}
			if !strings.Contains(string(data), tt.want) {
				t.Errorf("%s output missing %q:\n%s", tt.format, tt.want, data)
			}
		})
	}

	if _, err := Render(ctx, res.Graph, RenderOptions{Format: "gif"}); !errors.Is(err, errors.ErrCodeInvalidFormat) {
		t.Errorf("unknown format error = %v", err)
	}
}

func TestRenderSVG(t *testing.T) {
	res, _ := Layout([]byte(courseJSON), Options{})
	data, err := Render(context.Background(), res.Graph, RenderOptions{})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(string(data), "<svg") {
		t.Error("default format should be SVG")
	}
}

func TestRenderPNG(t *testing.T) {
	if !render.Available() {
		t.Skip("rsvg-convert not installed")
	}
	res, _ := Layout([]byte(courseJSON), Options{})
	data, err := Render(context.Background(), res.Graph, RenderOptions{Format: graph.FormatPNG})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("\x89PNG")) {
		t.Error("output is not a PNG")
	}
}

func TestRunnerRenderCaches(t *testing.T) {
	mem := cache.NewMemoryCache(0)
	r := NewRunner(mem, nil, nil)
	res, _ := Layout([]byte(courseJSON), Options{})
	ctx := context.Background()

	out, err := r.RenderAll(ctx, res.Graph, []string{graph.FormatDOT, graph.FormatJSON}, RenderOptions{})
	if err != nil {
		t.Fatalf("RenderAll: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("got %d artifacts, want 2", len(out))
	}
	// Only artifacts were stored; no layout ran through this runner.
	if mem.Len() != 2 {
		t.Errorf("cache holds %d entries, want 2", mem.Len())
	}

	again, err := r.Render(ctx, res.Graph, RenderOptions{Format: graph.FormatDOT})
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(again, out[graph.FormatDOT]) {
		t.Error("cached artifact differs")
	}

	if _, err := r.RenderAll(ctx, res.Graph, []string{"gif"}, RenderOptions{}); err == nil {
		t.Error("RenderAll should reject unknown formats")
	}
}
