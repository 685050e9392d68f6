package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/matzehuels/cursograph/pkg/graph"
	"github.com/matzehuels/cursograph/pkg/hierarchy"
	"github.com/matzehuels/cursograph/pkg/layout"
	"github.com/matzehuels/cursograph/pkg/pipeline"
)

// layoutFlags are the command-line overrides for the [layout] section.
type layoutFlags struct {
	shape           string
	minSpacingX     float64
	verticalSpacing float64
	canvasCenterX   float64
	maxDepth        int
	centering       string
}

// register adds the layout flags to fs.
func (f *layoutFlags) register(fs *pflag.FlagSet) {
	def := layout.DefaultConfig()
	fs.StringVar(&f.shape, "shape", string(hierarchy.ShapeAuto), "record shape: auto, course, professor")
	fs.Float64Var(&f.minSpacingX, "min-spacing-x", def.MinSpacingX, "horizontal space reserved per leaf")
	fs.Float64Var(&f.verticalSpacing, "vertical-spacing", def.VerticalSpacing, "distance between depth levels")
	fs.Float64Var(&f.canvasCenterX, "canvas-center-x", def.CanvasCenterX, "x coordinate the graph is centered on")
	fs.IntVar(&f.maxDepth, "max-depth", def.MaxDepth, "deepest level accepted before the input is rejected")
	fs.StringVar(&f.centering, "centering", string(def.Centering), "parent centering: first-last, mean")
}

// apply copies flags the user set over opts, leaving configured values for
// the rest.
func (f *layoutFlags) apply(fs *pflag.FlagSet, opts *pipeline.Options) error {
	if fs.Changed("shape") {
		shape, err := hierarchy.ParseShape(f.shape)
		if err != nil {
			return err
		}
		opts.Shape = shape
	}
	if fs.Changed("centering") {
		mode, err := layout.ParseCentering(f.centering)
		if err != nil {
			return err
		}
		opts.Centering = mode
	}
	if fs.Changed("min-spacing-x") {
		opts.MinSpacingX = f.minSpacingX
	}
	if fs.Changed("vertical-spacing") {
		opts.VerticalSpacing = f.verticalSpacing
	}
	if fs.Changed("canvas-center-x") {
		opts.CanvasCenterX = f.canvasCenterX
	}
	if fs.Changed("max-depth") {
		opts.MaxDepth = f.maxDepth
	}
	return nil
}

// layoutCommand creates the layout command for computing positioned graphs.
func (c *CLI) layoutCommand() *cobra.Command {
	var (
		flags    layoutFlags
		output   string
		selector string
		noCache  bool
		refresh  bool
	)

	cmd := &cobra.Command{
		Use:   "layout [records.json]",
		Short: "Compute a positioned graph from hierarchy records",
		Long: `Compute a positioned graph from hierarchy records.

The layout command reads a JSON array of course or professor records, either
from a file or fetched from the backend with --selector, and writes the laid
out graph (nodes with x/y, edges with relation labels) as graph.json. The
result can be rendered with 'render'.

Layouts are cached by the hash of the records and the layout options.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && selector == "" {
				return fmt.Errorf("give a records file or --selector")
			}
			if len(args) == 1 && selector != "" {
				return fmt.Errorf("a records file and --selector are mutually exclusive")
			}
			opts := c.pipelineOptions()
			if err := flags.apply(cmd.Flags(), &opts); err != nil {
				return err
			}
			opts.Refresh = refresh

			input := ""
			if len(args) == 1 {
				input = args[0]
			}
			return c.runLayout(cmd.Context(), input, selector, opts, output, noCache)
		},
	}

	flags.register(cmd.Flags())
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: <input>.graph.json, - for stdout)")
	cmd.Flags().StringVarP(&selector, "selector", "s", "", "fetch records from the backend selector instead of a file")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "ignore cached layouts and backend responses")

	return cmd
}

// runLayout loads the records, computes the layout, and writes the graph.
func (c *CLI) runLayout(ctx context.Context, input, selector string, opts pipeline.Options, output string, noCache bool) error {
	runner, err := c.newRunner(ctx, noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	data, name, err := c.loadRecords(ctx, runner, input, selector, &opts)
	if err != nil {
		return err
	}

	prog := newProgress(loggerFromContext(ctx))
	spinner := newSpinnerWithContext(ctx, "Computing layout...")
	spinner.Start()

	res, err := runner.Build(ctx, data, opts)
	if err != nil {
		spinner.StopWithError("Layout failed")
		return fmt.Errorf("compute layout: %w", err)
	}
	spinner.Stop()
	prog.done("Laid out " + name)

	if ctx.Err() != nil {
		return ctx.Err()
	}

	if output == "-" {
		return graph.WriteGraph(res.Graph, os.Stdout)
	}
	outputPath := output
	if outputPath == "" {
		outputPath = outputBase(name, "") + ".graph.json"
	}
	if err := graph.WriteGraphFile(res.Graph, outputPath); err != nil {
		return fmt.Errorf("write output %s: %w", outputPath, err)
	}

	printSuccess("Layout complete")
	printFile(outputPath)
	printStats(res.Stats, res.CacheHit)
	printWarnings(res.Graph.Warnings)
	printNewline()
	printNextStep("Render", appName+" render "+outputPath)

	return nil
}

// loadRecords reads raw records from input or fetches them for selector.
// For a selector the configured shape is used unless --shape was given. It
// returns the data and a name to derive the default output path from.
func (c *CLI) loadRecords(ctx context.Context, runner *pipeline.Runner, input, selector string, opts *pipeline.Options) ([]byte, string, error) {
	if input != "" {
		data, err := os.ReadFile(input)
		if err != nil {
			return nil, "", fmt.Errorf("read records %s: %w", input, err)
		}
		return data, input, nil
	}

	client, err := c.newClient(runner.Cache)
	if err != nil {
		return nil, "", err
	}
	sel, err := client.Selector(selector)
	if err != nil {
		return nil, "", err
	}
	if opts.Shape == "" || opts.Shape == hierarchy.ShapeAuto {
		opts.Shape = sel.Shape
	}

	c.Logger.Info("Fetching records", "selector", selector, "backend", c.Config.Backend.URL)
	data, err := client.Cached(ctx, selector, opts.Refresh)
	if err != nil {
		return nil, "", fmt.Errorf("fetch %s: %w", selector, err)
	}
	return data, selector, nil
}
