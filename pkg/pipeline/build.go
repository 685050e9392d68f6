package pipeline

import (
	"fmt"
	"time"

	"github.com/matzehuels/cursograph/pkg/cache"
	"github.com/matzehuels/cursograph/pkg/graph"
	"github.com/matzehuels/cursograph/pkg/hierarchy"
	"github.com/matzehuels/cursograph/pkg/layout"
)

// Layout ingests raw records and lays them out without any caching.
func Layout(data []byte, opts Options) (*Result, error) {
	opts.SetDefaults()
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	ingestStart := time.Now()
	roots, err := hierarchy.Ingest(data, opts.Shape)
	if err != nil {
		return nil, fmt.Errorf("ingest: %w", err)
	}
	ingestTime := time.Since(ingestStart)

	layoutStart := time.Now()
	g, err := layout.Build(roots, opts.LayoutConfig())
	if err != nil {
		return nil, fmt.Errorf("layout: %w", err)
	}
	if err := graph.Validate(g); err != nil {
		return nil, fmt.Errorf("layout produced an invalid graph: %w", err)
	}

	res := &Result{
		Graph:      g,
		Roots:      roots,
		SourceHash: cache.Hash(data),
		Stats:      statsOf(g),
	}
	res.Stats.IngestTime = ingestTime
	res.Stats.LayoutTime = time.Since(layoutStart)
	return res, nil
}
