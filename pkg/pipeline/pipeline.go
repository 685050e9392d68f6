// Package pipeline runs ingest, layout and rendering as one unit.
//
// The CLI, the HTTP server and the refresh scheduler all go through this
// package so that raw backend records become the same graph everywhere.
//
// # Stages
//
//  1. Ingest: decode course or professor records into [hierarchy.Node] trees
//  2. Layout: place every node and build the relation edges ([layout.Build])
//  3. Render: encode the graph as JSON, renderer flow, DOT, SVG, PNG or PDF
//
// # Usage
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	res, err := runner.Build(ctx, data, pipeline.Options{Shape: hierarchy.ShapeCourse})
//	if err != nil {
//	    return err
//	}
//	svg, err := runner.Render(ctx, res.Graph, pipeline.RenderOptions{Format: graph.FormatSVG})
//
// Layouts are cached by the hash of the raw records plus every option that
// changes placement; artifacts by the hash of the encoded graph plus the
// render options.
package pipeline

import (
	"io"
	"slices"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/cursograph/pkg/cache"
	"github.com/matzehuels/cursograph/pkg/errors"
	"github.com/matzehuels/cursograph/pkg/graph"
	"github.com/matzehuels/cursograph/pkg/hierarchy"
	"github.com/matzehuels/cursograph/pkg/layout"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI, API, and Refresher
// =============================================================================

const (
	// DefaultFormat is the render format when none is given.
	DefaultFormat = graph.FormatSVG

	// DefaultScale is the PNG scale factor.
	DefaultScale = 2.0
)

// =============================================================================
// Options - Build Configuration
// =============================================================================

// Options configures ingest and layout. Zero layout fields take the
// [layout] package defaults.
type Options struct {
	Shape hierarchy.Shape `json:"shape,omitempty"`

	MinSpacingX     float64          `json:"min_spacing_x,omitempty"`
	VerticalSpacing float64          `json:"vertical_spacing,omitempty"`
	CanvasCenterX   float64          `json:"canvas_center_x,omitempty"`
	MaxDepth        int              `json:"max_depth,omitempty"`
	Centering       layout.Centering `json:"centering,omitempty"`

	// Relations overrides the edge relation table.
	Relations layout.RelationTable `json:"-"`

	// Refresh skips the layout cache lookup. The result is still stored.
	Refresh bool `json:"refresh,omitempty"`

	Logger *log.Logger `json:"-"`
}

// SetDefaults fills zero fields. It is idempotent.
func (o *Options) SetDefaults() {
	if o.Shape == "" {
		o.Shape = hierarchy.ShapeAuto
	}
	cfg := o.LayoutConfig().WithDefaults()
	o.MinSpacingX = cfg.MinSpacingX
	o.VerticalSpacing = cfg.VerticalSpacing
	o.CanvasCenterX = cfg.CanvasCenterX
	o.MaxDepth = cfg.MaxDepth
	o.Centering = cfg.Centering
	o.Relations = cfg.Relations
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// Validate checks the shape and the layout constants.
func (o *Options) Validate() error {
	if _, err := hierarchy.ParseShape(string(o.Shape)); err != nil {
		return err
	}
	return o.LayoutConfig().WithDefaults().Validate()
}

// LayoutConfig converts the options into a layout configuration.
func (o *Options) LayoutConfig() layout.Config {
	return layout.Config{
		MinSpacingX:     o.MinSpacingX,
		VerticalSpacing: o.VerticalSpacing,
		CanvasCenterX:   o.CanvasCenterX,
		MaxDepth:        o.MaxDepth,
		Centering:       o.Centering,
		Relations:       o.Relations,
		Logger:          o.Logger,
	}
}

// LayoutKeyOpts returns cache key options for the layout stage.
func (o *Options) LayoutKeyOpts() cache.LayoutKeyOpts {
	cfg := o.LayoutConfig().WithDefaults()
	return cache.LayoutKeyOpts{
		Shape:           string(o.Shape),
		MinSpacingX:     cfg.MinSpacingX,
		VerticalSpacing: cfg.VerticalSpacing,
		CanvasCenterX:   cfg.CanvasCenterX,
		MaxDepth:        cfg.MaxDepth,
		Centering:       string(cfg.Centering),
		Relations:       cfg.Relations.Fingerprint(),
	}
}

// =============================================================================
// RenderOptions - Artifact Configuration
// =============================================================================

// RenderOptions selects an output format and its presentation flags.
type RenderOptions struct {
	Format         string  `json:"format"`
	Detailed       bool    `json:"detailed,omitempty"`
	HideEdgeLabels bool    `json:"hide_edge_labels,omitempty"`
	Scale          float64 `json:"scale,omitempty"` // PNG only
}

// SetDefaults fills zero fields.
func (o *RenderOptions) SetDefaults() {
	if o.Format == "" {
		o.Format = DefaultFormat
	}
	if o.Scale <= 0 {
		o.Scale = DefaultScale
	}
}

// ArtifactKeyOpts returns cache key options for the render stage.
func (o RenderOptions) ArtifactKeyOpts() cache.ArtifactKeyOpts {
	return cache.ArtifactKeyOpts{
		Format:         o.Format,
		Detailed:       o.Detailed,
		HideEdgeLabels: o.HideEdgeLabels,
		Scale:          o.Scale,
	}
}

// ValidateFormat checks that format is one of [graph.Formats].
func ValidateFormat(format string) error {
	if !slices.Contains(graph.Formats, format) {
		return errors.New(errors.ErrCodeInvalidFormat, "invalid format %q (must be one of %v)", format, graph.Formats)
	}
	return nil
}

// ValidateFormats checks every format.
func ValidateFormats(formats []string) error {
	for _, f := range formats {
		if err := ValidateFormat(f); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// Result
// =============================================================================

// Result is the output of [Runner.Build].
type Result struct {
	Graph graph.Graph

	// Roots are the ingested trees. Nil when the graph came from cache.
	Roots []hierarchy.Node

	// SourceHash is the content hash of the raw records.
	SourceHash string

	Stats    Stats
	CacheHit bool
}

// Stats summarizes a build.
type Stats struct {
	NodeCount  int
	EdgeCount  int
	RootCount  int
	Warnings   int
	Kinds      map[hierarchy.Kind]int
	IngestTime time.Duration
	LayoutTime time.Duration
}

func statsOf(g graph.Graph) Stats {
	return Stats{
		NodeCount: len(g.Nodes),
		EdgeCount: len(g.Edges),
		RootCount: len(g.Roots()),
		Warnings:  len(g.Warnings),
		Kinds:     g.CountKinds(),
	}
}
