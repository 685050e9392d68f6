// Package pkg provides the core libraries for cursograph.
//
// # Overview
//
// Cursograph turns the nested records of an academic backend (courses with
// modules, lessons and evaluations, or professors with courses and students)
// into a positioned node-link graph. The pkg directory is organized as:
//
//  1. [hierarchy] - Record ingestion into a uniform tree
//  2. [layout] - The recursive tree layout and edge labelling
//  3. [graph] - Serialization types for the laid-out graph
//  4. [pipeline] - Orchestration (ingest → layout → render) with caching
//  5. [refresh] - Polling with last-write-wins snapshots
//
// # Architecture
//
// The typical data flow:
//
//	Backend REST endpoint
//	         ↓
//	    [source] package (fetch raw records)
//	         ↓
//	    [hierarchy] package (normalize records into trees)
//	         ↓
//	    [layout] package (positions, edges, warnings)
//	         ↓
//	    [render/nodelink] package (DOT, SVG, PNG, PDF)
//
// # Quick Start
//
//	roots, err := hierarchy.Ingest(data, hierarchy.ShapeAuto)
//	if err != nil {
//	    return err
//	}
//	g, err := layout.Build(roots, layout.DefaultConfig())
//	if err != nil {
//	    return err
//	}
//	svg, err := nodelink.RenderSVG(ctx, nodelink.ToDOT(g, nodelink.Options{}))
//
// Most callers go through a [pipeline.Runner], which caches layouts by the
// hash of the records and options:
//
//	runner := pipeline.NewRunner(cache.NewMemoryCache(0), nil, logger)
//	res, err := runner.Build(ctx, data, pipeline.Options{})
//
// # Supporting Packages
//
// [cache] - Layout and artifact cache with null, memory, file, Redis, MongoDB
// and tiered backends.
//
// [errors] - Coded errors shared by every package; the HTTP API maps codes
// to status codes.
//
// [httputil] - Retry with backoff for transient backend failures.
//
// [observability] - Hooks for pipeline, refresh, cache and HTTP events.
//
// [buildinfo] - Version information set at link time.
package pkg
