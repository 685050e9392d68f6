package cli

import (
	"context"
	"io"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/cursograph/internal/config"
	"github.com/matzehuels/cursograph/pkg/buildinfo"
	"github.com/matzehuels/cursograph/pkg/cache"
	"github.com/matzehuels/cursograph/pkg/errors"
	"github.com/matzehuels/cursograph/pkg/pipeline"
	"github.com/matzehuels/cursograph/pkg/source"
)

// =============================================================================
// Constants
// =============================================================================

// appName is the application name used for directories and display.
const appName = "cursograph"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	// Config is loaded by the root command before any subcommand runs.
	Config config.Config

	configPath string
	envFiles   []string
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger:   newLogger(w, level),
		Config:   config.Default(),
		envFiles: []string{".env"},
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "Cursograph lays out course hierarchies as node-link graphs",
		Long: `Cursograph turns the course, module, lesson and evaluation records of an
academic backend into a positioned node-link graph, renders it, and keeps it
fresh by polling the backend.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.loadConfig(cmd)
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default: $XDG_CONFIG_HOME/cursograph/config.toml)")

	root.AddCommand(c.layoutCommand())
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.watchCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// loadConfig reads the configuration and attaches the logger to the
// command's context.
func (c *CLI) loadConfig(cmd *cobra.Command) error {
	cfg, err := config.Load(c.configPath, c.envFiles...)
	if err != nil {
		return err
	}
	c.Config = cfg
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(withLogger(ctx, c.Logger))
	c.Logger.Debug("config loaded", "path", c.configPath, "cache", cfg.Cache.Backend, "selector", cfg.Backend.Selector)
	return nil
}

// =============================================================================
// Runner and Client Factories
// =============================================================================

// newRunner creates a pipeline runner backed by the configured cache.
func (c *CLI) newRunner(ctx context.Context, noCache bool) (*pipeline.Runner, error) {
	var store cache.Cache = cache.NewNullCache()
	if !noCache {
		opened, err := c.Config.Cache.OpenCache(ctx)
		if err != nil {
			return nil, err
		}
		store = opened
	}
	return pipeline.NewRunner(store, c.Config.Cache.Keyer(), c.Logger), nil
}

// newClient creates a backend client from the [backend] section. HTTP
// responses are cached in store when it is non-nil.
func (c *CLI) newClient(store cache.Cache) (*source.Client, error) {
	if c.Config.Backend.URL == "" {
		return nil, errors.New(errors.ErrCodeInvalidConfig,
			"no backend URL: set [backend] url or %s", config.EnvBackendURL)
	}
	return source.NewClient(source.Options{
		BaseURL:   c.Config.Backend.URL,
		Token:     c.Config.Backend.Token,
		Selectors: c.Config.Selectors(),
		Logger:    c.Logger,
		Cache:     store,
		Keyer:     c.Config.Cache.Keyer(),
	})
}

// pipelineOptions returns the configured layout options with the logger set.
func (c *CLI) pipelineOptions() pipeline.Options {
	opts := c.Config.PipelineOptions()
	opts.Logger = c.Logger
	return opts
}

// =============================================================================
// Options Helpers
// =============================================================================

// parseFormats parses a comma-separated format string into a slice.
func parseFormats(s string) []string {
	if s == "" {
		return []string{pipeline.DefaultFormat}
	}
	var out []string
	for _, f := range strings.Split(s, ",") {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// outputBase returns the path prefix for outputs derived from input.
func outputBase(input, output string) string {
	if output != "" {
		return strings.TrimSuffix(output, filepath.Ext(output))
	}
	return strings.TrimSuffix(input, filepath.Ext(input))
}
