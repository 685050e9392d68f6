package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/cursograph/pkg/graph"
	"github.com/matzehuels/cursograph/pkg/pipeline"
)

// renderOpts holds the command-line flags for the render command.
type renderOpts struct {
	output         string   // output file (single format) or base path (multiple)
	formats        []string // output formats: json, flow, dot, svg, png, pdf
	detailed       bool     // include node ids under labels
	hideEdgeLabels bool     // omit relation labels on edges
	scale          float64  // PNG scale factor
	noCache        bool     // bypass the artifact cache
}

// renderCommand creates the render command for generating artifacts from a
// laid-out graph.
func (c *CLI) renderCommand() *cobra.Command {
	var formatsStr string
	opts := renderOpts{scale: pipeline.DefaultScale}

	cmd := &cobra.Command{
		Use:   "render [graph.json]",
		Short: "Render a laid-out graph to SVG, PNG, PDF, DOT or renderer JSON",
		Long: `Render a laid-out graph to one or more formats.

The input is a graph.json produced by 'layout'. Formats:

  json   canonical graph (nodes, edges, warnings)
  flow   node/edge objects for a browser flow renderer
  dot    Graphviz source with pinned positions
  svg    Graphviz SVG (default)
  png    rasterized SVG (requires librsvg)
  pdf    vector PDF (requires librsvg)`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.formats = parseFormats(formatsStr)
			if err := pipeline.ValidateFormats(opts.formats); err != nil {
				return err
			}
			return c.runRender(cmd.Context(), args[0], &opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (single format) or base path (multiple)")
	cmd.Flags().StringVarP(&formatsStr, "format", "f", "", "output format(s): svg (default), json, flow, dot, png, pdf (comma-separated)")
	cmd.Flags().BoolVar(&opts.detailed, "detailed", false, "show node ids under labels")
	cmd.Flags().BoolVar(&opts.hideEdgeLabels, "no-edge-labels", false, "hide relation labels on edges")
	cmd.Flags().Float64Var(&opts.scale, "scale", opts.scale, "PNG scale factor")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable caching")

	return cmd
}

// runRender loads the graph, renders every requested format, and writes
// one file per format.
func (c *CLI) runRender(ctx context.Context, input string, opts *renderOpts) error {
	g, err := graph.ReadGraphFile(input)
	if err != nil {
		return fmt.Errorf("load graph %s: %w", input, err)
	}

	runner, err := c.newRunner(ctx, opts.noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	prog := newProgress(loggerFromContext(ctx))
	spinner := newSpinnerWithContext(ctx, "Rendering...")
	spinner.Start()

	artifacts, err := runner.RenderAll(ctx, g, opts.formats, pipeline.RenderOptions{
		Detailed:       opts.detailed,
		HideEdgeLabels: opts.hideEdgeLabels,
		Scale:          opts.scale,
	})
	if err != nil {
		spinner.StopWithError("Render failed")
		return err
	}
	spinner.Stop()
	prog.done(fmt.Sprintf("Rendered %s as %s", input, strings.Join(opts.formats, ", ")))

	paths := outputPaths(input, opts.output, opts.formats)
	for _, format := range opts.formats {
		path := paths[format]
		if err := os.WriteFile(path, artifacts[format], 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
	}

	printSuccess("Rendered %d format(s)", len(opts.formats))
	for _, format := range opts.formats {
		printFile(paths[format])
	}
	fmt.Println(statsLine(len(g.Nodes), len(g.Edges), false))
	return nil
}

// outputPaths maps each format to its output file.
//
// A single format with an explicit output uses that path verbatim. Otherwise
// files are named <base>.<ext>, with base taken from output or input. The
// json format becomes <base>.render.json so it never overwrites the input,
// and flow becomes <base>.flow.json.
func outputPaths(input, output string, formats []string) map[string]string {
	paths := make(map[string]string, len(formats))
	if len(formats) == 1 && output != "" {
		paths[formats[0]] = output
		return paths
	}
	base := outputBase(input, output)
	if output == "" {
		base = outputBase(trimGraphSuffix(input), "")
	}
	for _, f := range formats {
		switch f {
		case graph.FormatJSON:
			paths[f] = base + ".render.json"
		case graph.FormatFlow:
			paths[f] = base + ".flow.json"
		default:
			paths[f] = base + "." + f
		}
	}
	return paths
}

// trimGraphSuffix turns "x.graph.json" into "x.json" so derived names do
// not repeat the .graph part.
func trimGraphSuffix(path string) string {
	if base, ok := strings.CutSuffix(path, ".graph.json"); ok && base != "" {
		return base + ".json"
	}
	return path
}
