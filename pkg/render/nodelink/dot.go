package nodelink

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/cursograph/pkg/graph"
	"github.com/matzehuels/cursograph/pkg/hierarchy"
	"github.com/matzehuels/cursograph/pkg/render"
)

// Options configures node-link diagram rendering.
type Options struct {
	// Detailed adds the node id and kind under the label.
	Detailed bool

	// HideEdgeLabels omits relation labels from edges.
	HideEdgeLabels bool
}

// fillColors maps node kinds to Graphviz fill colors.
var fillColors = map[hierarchy.Kind]string{
	hierarchy.KindProfessor:  "#fde68a",
	hierarchy.KindCourse:     "#bfdbfe",
	hierarchy.KindModule:     "#c7d2fe",
	hierarchy.KindLesson:     "#bbf7d0",
	hierarchy.KindEvaluation: "#fecaca",
	hierarchy.KindStudent:    "#e9d5ff",
}

// edgeColors maps edge style keys to Graphviz colors.
var edgeColors = map[string]string{
	string(hierarchy.KindProfessor): "#b45309",
	string(hierarchy.KindCourse):    "#1d4ed8",
	string(hierarchy.KindModule):    "#4338ca",
	string(hierarchy.KindLesson):    "#15803d",
	graph.StyleNeutral:              "#9ca3af",
}

// ToDOT converts a laid-out graph to Graphviz DOT format.
//
// Every node is pinned at its computed position (pos="x,y!" in points with
// inputscale=72), so Graphviz only draws and never re-lays out. Graphviz's
// y axis points up, so y is negated to keep roots at the top.
func ToDOT(g graph.Graph, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  layout=neato;\n")
	buf.WriteString("  inputscale=72;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  splines=line;\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=14, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  edge [fontsize=11, fontcolor=\"#374151\"];\n")
	buf.WriteString("\n")

	for _, n := range g.Nodes {
		fmt.Fprintf(&buf, "  %s [%s];\n", quote(n.ID), strings.Join(nodeAttrs(n, opts.Detailed), ", "))
	}

	buf.WriteString("\n")
	for _, e := range g.Edges {
		fmt.Fprintf(&buf, "  %s -> %s [%s];\n", quote(e.SourceID), quote(e.TargetID), strings.Join(edgeAttrs(e, opts), ", "))
	}

	buf.WriteString("}\n")
	return buf.String()
}

func nodeAttrs(n graph.PositionedNode, detailed bool) []string {
	label := n.DisplayLabel()
	if detailed {
		label += "\n" + n.ID + "\n" + string(n.Kind)
	}
	attrs := []string{
		"label=" + quote(label),
		fmt.Sprintf("pos=\"%s,%s!\"", fmtCoord(n.X), fmtCoord(-n.Y)),
	}
	if c, ok := fillColors[n.Kind]; ok {
		attrs = append(attrs, fmt.Sprintf("fillcolor=%q", c))
	} else {
		attrs = append(attrs, "style=\"rounded,filled,dashed\"", "fillcolor=lightgrey")
	}
	return attrs
}

func edgeAttrs(e graph.LayoutEdge, opts Options) []string {
	var attrs []string
	if e.RelationLabel != "" && !opts.HideEdgeLabels {
		attrs = append(attrs, "label="+quote(e.RelationLabel))
	}
	color, ok := edgeColors[e.StyleKey]
	if !ok {
		color = edgeColors[graph.StyleNeutral]
	}
	attrs = append(attrs, fmt.Sprintf("color=%q", color))
	if e.StyleKey == graph.StyleNeutral {
		attrs = append(attrs, "style=dashed")
	}
	return attrs
}

// dotEscaper escapes DOT string literals. Unlike %q it leaves every
// non-ASCII rune (emoji joiners included) untouched.
var dotEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`)

func quote(s string) string { return `"` + dotEscaper.Replace(s) + `"` }

func fmtCoord(v float64) string {
	if v == 0 {
		v = 0 // drop the sign of -0
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// RenderSVG renders a DOT graph to SVG using Graphviz's neato engine.
// Returns the SVG bytes ready for display or further conversion.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()
	gv.SetLayout(graphviz.NEATO)

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox rewrites the root element so the SVG scales to its
// container instead of carrying Graphviz's pt-based width and height.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	newSvg := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)

	return svgTagRe.ReplaceAll(svg, []byte(newSvg))
}

// RenderPNG renders a DOT graph as PNG via SVG conversion.
// A scale of 2.0 produces a 2x resolution image suitable for high-DPI displays.
//
// Requires librsvg: brew install librsvg (macOS), apt install librsvg2-bin (Linux).
func RenderPNG(ctx context.Context, dot string, scale float64) ([]byte, error) {
	svg, err := RenderSVG(ctx, dot)
	if err != nil {
		return nil, err
	}
	return render.ToPNG(ctx, svg, scale)
}

// RenderPDF renders a DOT graph as PDF via SVG conversion.
//
// Requires librsvg: brew install librsvg (macOS), apt install librsvg2-bin (Linux).
func RenderPDF(ctx context.Context, dot string) ([]byte, error) {
	svg, err := RenderSVG(ctx, dot)
	if err != nil {
		return nil, err
	}
	return render.ToPDF(ctx, svg)
}
