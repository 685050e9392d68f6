package refresh

import (
	"context"

	"github.com/matzehuels/cursograph/pkg/graph"
	"github.com/matzehuels/cursograph/pkg/pipeline"
	"github.com/matzehuels/cursograph/pkg/source"
)

// PipelineBuild returns a BuildFunc that runs records through runner,
// taking each selector's record shape from sels. base supplies the layout
// options shared by every selector.
func PipelineBuild(runner *pipeline.Runner, sels source.Selectors, base pipeline.Options) BuildFunc {
	return func(ctx context.Context, data []byte, selector string) (graph.Graph, error) {
		sel, err := sels.Lookup(selector)
		if err != nil {
			return graph.Graph{}, err
		}
		opts := base
		opts.Shape = sel.Shape
		res, err := runner.Build(ctx, data, opts)
		if err != nil {
			return graph.Graph{}, err
		}
		return res.Graph, nil
	}
}
