// Package graph provides serialization types for laid-out hierarchies.
//
// This package defines the canonical wire format for cursograph's layout
// output, used for JSON files, API responses, caching, and renderer input.
//
// # Core Types
//
//   - [Graph]: positioned nodes, parent/child edges and layout warnings
//   - [PositionedNode]: a node with its center x and layer y
//   - [LayoutEdge]: one edge per parent/child pair with relation label and style
//   - [Flow]: the nested shape expected by browser graph surfaces
//
// # Serialization
//
//	{
//	  "nodes": [{"id": "course:1", "kind": "course", "label": "📚 Física", "x": 600, "y": 0}],
//	  "edges": []
//	}
//
// Common operations:
//
//	g, _ := graph.ReadGraphFile("graph.json")   // File → Graph (validated)
//	graph.WriteGraphFile(g, "output.json")      // Graph → File
//	data, _ := graph.MarshalGraph(g)            // Graph → []byte
//	flow := graph.ToFlow(g)                     // Graph → renderer shape
//
// Node and edge slices are never encoded as null, so an empty layout is
// always {"nodes": [], "edges": []}.
//
// # Concurrency
//
// All functions are safe for concurrent reads but not concurrent writes.
package graph
