package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/cursograph/pkg/graph"
	"github.com/matzehuels/cursograph/pkg/observability"
	"github.com/matzehuels/cursograph/pkg/refresh"
)

// watchOpts holds the command-line flags for the watch command.
type watchOpts struct {
	selector string
	interval time.Duration
	output   string
	plain    bool
	noCache  bool
}

// watchCommand creates the watch command, which polls the backend and
// keeps the latest graph on screen and on disk.
func (c *CLI) watchCommand() *cobra.Command {
	var opts watchOpts

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Poll the backend and keep the latest graph up to date",
		Long: `Poll the backend and keep the latest graph up to date.

watch fetches the configured selector immediately and then on every interval,
lays the records out, and shows per-kind counts in a live view. Press r to
refresh now and s to switch to the next selector. With -o the latest good
graph is written to that file after every refresh.

Use --plain for one log line per refresh instead of the live view.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("selector") {
				opts.selector = c.Config.Backend.Selector
			}
			if !cmd.Flags().Changed("interval") {
				opts.interval = c.Config.Backend.Interval.Duration
			}
			return c.runWatch(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.selector, "selector", "s", "", "backend selector (default: [backend] selector)")
	cmd.Flags().DurationVar(&opts.interval, "interval", refresh.DefaultInterval, "poll interval")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "write the latest graph to this file")
	cmd.Flags().BoolVar(&opts.plain, "plain", false, "log refreshes instead of showing the live view")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable the layout cache")

	return cmd
}

// runWatch wires the backend client, the pipeline and a refresher, then
// drives either the live view or plain logging until ctx is done.
func (c *CLI) runWatch(ctx context.Context, opts watchOpts) error {
	runner, err := c.newRunner(ctx, opts.noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	// Polling always goes to the backend; only layouts are cached.
	client, err := c.newClient(nil)
	if err != nil {
		return err
	}
	if _, err := client.Selector(opts.selector); err != nil {
		return err
	}

	// The live view owns the terminal, so library logging is silenced there.
	logger := c.Logger
	if !opts.plain {
		logger = log.NewWithOptions(io.Discard, log.Options{})
		runner.Logger = logger
	} else {
		hooks := observability.NewLogHooks(c.Logger)
		observability.SetRefreshHooks(hooks)
		observability.SetPipelineHooks(hooks)
		defer observability.Reset()
	}

	base := c.pipelineOptions()
	base.Logger = logger
	r := refresh.New(refresh.Options{
		Fetcher:  client,
		Build:    refresh.PipelineBuild(runner, client.Selectors(), base),
		Selector: opts.selector,
		Interval: opts.interval,
		Logger:   logger,
	})

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	runErr := make(chan error, 1)
	go func() { runErr <- r.Run(ctx) }()

	snaps, stop := r.Subscribe()
	defer stop()

	if opts.plain {
		err = c.watchPlain(ctx, snaps, opts.output)
	} else {
		err = c.watchTUI(ctx, r, snaps, opts)
	}
	cancel()
	<-runErr
	return err
}

// watchPlain logs one line per published snapshot until ctx is done.
func (c *CLI) watchPlain(ctx context.Context, snaps <-chan refresh.Snapshot, output string) error {
	c.Logger.Info("Watching", "backend", c.Config.Backend.URL)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case s, ok := <-snaps:
			if !ok {
				return nil
			}
			if s.Seq == 0 {
				continue
			}
			written, werr := saveSnapshot(s, output)
			switch {
			case s.Failed():
				c.Logger.Error("could not render structure, retry", "selector", s.Selector, "seq", s.Seq, "err", s.Err)
			default:
				c.Logger.Info("Structure updated", "selector", s.Selector, "seq", s.Seq,
					"nodes", len(s.Graph.Nodes), "edges", len(s.Graph.Edges), "warnings", len(s.Graph.Warnings))
			}
			if werr != nil {
				c.Logger.Error("write graph", "err", werr)
			} else if written != "" {
				c.Logger.Debug("wrote graph", "path", written)
			}
		}
	}
}

// watchTUI runs the live view and forwards snapshots to it.
func (c *CLI) watchTUI(ctx context.Context, r *refresh.Refresher, snaps <-chan refresh.Snapshot, opts watchOpts) error {
	model := NewWatchModel(opts.selector, c.Config.Selectors().Names(), r.Interval(), r.Trigger, r.Select)
	p := tea.NewProgram(model, tea.WithContext(ctx))

	go func() {
		for s := range snaps {
			var written string
			var werr error
			if s.Seq > 0 {
				written, werr = saveSnapshot(s, opts.output)
			}
			p.Send(snapshotMsg{snap: s, written: written, writeErr: werr})
		}
	}()

	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

// saveSnapshot writes the snapshot's graph to path and returns the path
// written. Nothing is written for an empty path or a failed refresh, so the
// file always holds the last good graph.
func saveSnapshot(s refresh.Snapshot, path string) (string, error) {
	if path == "" || s.Failed() {
		return "", nil
	}
	if err := graph.WriteGraphFile(s.Graph, path); err != nil {
		return "", err
	}
	return path, nil
}
