// Package nodelink renders laid-out hierarchies as node-link diagrams.
//
// # Overview
//
// Positions are computed by pkg/layout; this package only draws them. The
// DOT produced by [ToDOT] pins every node with pos="x,y!" and is rendered
// with Graphviz's neato engine, which honors pinned positions, so the
// picture matches the JSON layout exactly.
//
// # Usage
//
//	dot := nodelink.ToDOT(g, nodelink.Options{})
//	svg, err := nodelink.RenderSVG(ctx, dot)
//
// For PNG or PDF output:
//
//	png, err := nodelink.RenderPNG(ctx, dot, 2.0)  // 2x scale
//	pdf, err := nodelink.RenderPDF(ctx, dot)
//
// # Options
//
//   - Detailed: add the node id and kind under each label
//   - HideEdgeLabels: draw edges without relation labels
//
// Node fill colors follow the node kind; edge colors follow the style key,
// and edges with the neutral style are dashed.
//
// # Dependencies
//
// This package uses [github.com/goccy/go-graphviz] for in-process SVG
// rendering. PDF and PNG conversion requires librsvg (rsvg-convert).
package nodelink
