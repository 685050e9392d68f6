package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/cursograph/pkg/cache"
	"github.com/matzehuels/cursograph/pkg/graph"
	"github.com/matzehuels/cursograph/pkg/observability"
)

// Runner wraps [Layout] and [Render] with caching and observability hooks.
// Both CLI and API use it to avoid duplicating caching logic.
//
// The Runner is stateless except for the cache and logger, so multiple
// goroutines can share one Runner with different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{Cache: c, Keyer: keyer, Logger: logger}
}

// Build turns raw records into a laid-out graph, reusing a cached layout of
// the same records and options unless opts.Refresh is set.
func (r *Runner) Build(ctx context.Context, data []byte, opts Options) (*Result, error) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
	opts.SetDefaults()
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	hooks := observability.Pipeline()
	hooks.OnLayoutStart(ctx, string(opts.Shape), len(data))
	start := time.Now()

	sourceHash := cache.Hash(data)
	key := r.Keyer.LayoutKey(sourceHash, opts.LayoutKeyOpts())

	if !opts.Refresh {
		if cached, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
			if g, err := graph.UnmarshalGraph(cached); err == nil {
				observability.Cache().OnCacheHit(ctx, cache.KeyTypeLayout)
				hooks.OnLayoutComplete(ctx, string(opts.Shape), len(g.Nodes), len(g.Edges), time.Since(start), nil)
				r.Logger.Debug("layout cache hit", "nodes", len(g.Nodes))
				return &Result{Graph: g, SourceHash: sourceHash, Stats: statsOf(g), CacheHit: true}, nil
			}
			// Undecodable entries fall through and are overwritten.
		}
		observability.Cache().OnCacheMiss(ctx, cache.KeyTypeLayout)
	}

	res, err := Layout(data, opts)
	if err != nil {
		hooks.OnLayoutComplete(ctx, string(opts.Shape), 0, 0, time.Since(start), err)
		return nil, err
	}
	for _, w := range res.Graph.Warnings {
		hooks.OnLayoutWarning(ctx, string(w.Code), w.NodeID, w.Message)
	}
	hooks.OnLayoutComplete(ctx, string(opts.Shape), res.Stats.NodeCount, res.Stats.EdgeCount, time.Since(start), nil)

	r.Logger.Info("computed layout",
		"nodes", res.Stats.NodeCount,
		"edges", res.Stats.EdgeCount,
		"warnings", res.Stats.Warnings,
		"duration", res.Stats.IngestTime+res.Stats.LayoutTime)

	if encoded, err := graph.MarshalGraph(res.Graph); err == nil {
		if err := r.Cache.Set(ctx, key, encoded, cache.TTLLayout); err == nil {
			observability.Cache().OnCacheSet(ctx, cache.KeyTypeLayout, len(encoded))
		} else {
			r.Logger.Warn("layout cache write failed", "err", err)
		}
	}
	return res, nil
}

// Render encodes g with artifact caching.
func (r *Runner) Render(ctx context.Context, g graph.Graph, opts RenderOptions) ([]byte, error) {
	opts.SetDefaults()
	if err := ValidateFormat(opts.Format); err != nil {
		return nil, err
	}

	encoded, err := graph.MarshalGraph(g)
	if err != nil {
		return nil, fmt.Errorf("serialize graph for cache key: %w", err)
	}
	key := r.Keyer.ArtifactKey(cache.Hash(encoded), opts.ArtifactKeyOpts())

	if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
		observability.Cache().OnCacheHit(ctx, cache.KeyTypeArtifact)
		return data, nil
	}
	observability.Cache().OnCacheMiss(ctx, cache.KeyTypeArtifact)

	hooks := observability.Pipeline()
	hooks.OnRenderStart(ctx, opts.Format)
	start := time.Now()
	data, err := Render(ctx, g, opts)
	hooks.OnRenderComplete(ctx, opts.Format, len(data), time.Since(start), err)
	if err != nil {
		return nil, err
	}

	if err := r.Cache.Set(ctx, key, data, cache.TTLArtifact); err == nil {
		observability.Cache().OnCacheSet(ctx, cache.KeyTypeArtifact, len(data))
	}
	r.Logger.Debug("rendered", "format", opts.Format, "bytes", len(data), "duration", time.Since(start))
	return data, nil
}

// RenderAll renders every format and returns the artifacts keyed by format.
func (r *Runner) RenderAll(ctx context.Context, g graph.Graph, formats []string, opts RenderOptions) (map[string][]byte, error) {
	if err := ValidateFormats(formats); err != nil {
		return nil, err
	}
	out := make(map[string][]byte, len(formats))
	for _, f := range formats {
		o := opts
		o.Format = f
		data, err := r.Render(ctx, g, o)
		if err != nil {
			return nil, err
		}
		out[f] = data
	}
	return out, nil
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}
