package pipeline

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/matzehuels/cursograph/pkg/graph"
	"github.com/matzehuels/cursograph/pkg/render/nodelink"
)

// Render encodes g in the format given by opts without any caching.
func Render(ctx context.Context, g graph.Graph, opts RenderOptions) ([]byte, error) {
	opts.SetDefaults()
	if err := ValidateFormat(opts.Format); err != nil {
		return nil, err
	}

	dotOpts := nodelink.Options{Detailed: opts.Detailed, HideEdgeLabels: opts.HideEdgeLabels}

	var (
		data []byte
		err  error
	)
	switch opts.Format {
	case graph.FormatJSON:
		data, err = graph.MarshalGraph(g)
	case graph.FormatFlow:
		data, err = json.MarshalIndent(graph.ToFlow(g), "", "  ")
	case graph.FormatDOT:
		data = []byte(nodelink.ToDOT(g, dotOpts))
	case graph.FormatSVG:
		data, err = nodelink.RenderSVG(ctx, nodelink.ToDOT(g, dotOpts))
	case graph.FormatPNG:
		data, err = nodelink.RenderPNG(ctx, nodelink.ToDOT(g, dotOpts), opts.Scale)
	case graph.FormatPDF:
		data, err = nodelink.RenderPDF(ctx, nodelink.ToDOT(g, dotOpts))
	}
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", opts.Format, err)
	}
	return data, nil
}
