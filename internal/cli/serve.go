package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/cursograph/internal/server"
	"github.com/matzehuels/cursograph/pkg/observability"
	"github.com/matzehuels/cursograph/pkg/refresh"
)

// serveCommand creates the serve command for the HTTP API.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr    string
		noPoll  bool
		noCache bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve layouts and the polled hierarchy over HTTP",
		Long: `Serve layouts and the polled hierarchy over HTTP.

POST /v1/layout lays out records sent in the request body. When a backend URL
is configured, the selected hierarchy is also polled and exposed on
/v1/graph, /v1/graph/flow and /v1/graph.svg; POST /v1/refresh refreshes now
and PUT /v1/selector/{name} switches selectors.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("addr") {
				c.Config.Server.Addr = addr
			}
			if noPoll {
				c.Config.Server.Poll = false
			}
			return c.runServe(cmd.Context(), noCache)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", c.Config.Server.Addr, "listen address")
	cmd.Flags().BoolVar(&noPoll, "no-poll", false, "do not poll the backend in the background")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")

	return cmd
}

// runServe starts the HTTP server and, when a backend is configured, a
// refresher behind the /v1/graph routes.
func (c *CLI) runServe(ctx context.Context, noCache bool) error {
	runner, err := c.newRunner(ctx, noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	hooks := observability.NewLogHooks(c.Logger)
	observability.SetPipelineHooks(hooks)
	observability.SetRefreshHooks(hooks)
	observability.SetCacheHooks(hooks)
	observability.SetHTTPHooks(hooks)
	defer observability.Reset()

	opts := server.Options{
		Runner:    runner,
		Selectors: c.Config.Selectors(),
		Layout:    c.pipelineOptions(),
		Logger:    c.Logger,
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if c.Config.Backend.URL != "" {
		client, err := c.newClient(nil)
		if err != nil {
			return err
		}
		r := refresh.New(refresh.Options{
			Fetcher:  client,
			Build:    refresh.PipelineBuild(runner, client.Selectors(), c.pipelineOptions()),
			Selector: c.Config.Backend.Selector,
			Interval: c.Config.Backend.Interval.Duration,
			Logger:   c.Logger,
		})
		opts.Refresher = r
		if c.Config.Server.Poll {
			go func() { _ = r.Run(ctx) }()
			c.Logger.Info("Polling backend", "url", c.Config.Backend.URL, "selector", r.Selector(), "interval", r.Interval())
		}
	} else {
		c.Logger.Warn("No backend configured; only POST /v1/layout is available")
	}

	printInfo("Serving HTTP API")
	printKeyValue("Address", c.Config.Server.Addr)
	if c.Config.Backend.URL != "" {
		printKeyValue("Backend", c.Config.Backend.URL)
		printKeyValue("Selector", c.Config.Backend.Selector)
	}
	return server.New(opts).ListenAndServe(ctx, server.HTTPConfig{
		Addr:         c.Config.Server.Addr,
		ReadTimeout:  c.Config.Server.ReadTimeout.Duration,
		WriteTimeout: c.Config.Server.WriteTimeout.Duration,
	})
}
