// Package render provides output format conversion for rendered layouts.
//
// # Overview
//
// Layouts are drawn as SVG by the [nodelink] subpackage. The [ToPDF] and
// [ToPNG] functions convert any SVG to other formats using the external
// rsvg-convert tool (from librsvg).
//
//	dot := nodelink.ToDOT(g, nodelink.Options{})
//	svg, err := nodelink.RenderSVG(ctx, dot)
//	png, err := render.ToPNG(ctx, svg, 2.0)  // 2x scale
//
// [nodelink]: github.com/matzehuels/cursograph/pkg/render/nodelink
package render
