// Package layout places a hierarchy on a 2D canvas.
//
// The engine is a single pure recursion over [hierarchy.Node] trees. Each
// call returns the positioned nodes, the parent/child edges and the
// horizontal footprint of its subtree, and parents concatenate what their
// children return. Nothing is mutated after construction.
//
// # Placement Rules
//
//   - A leaf is MinSpacingX wide and sits at its offset.
//   - Children are laid out left to right, separated by MinSpacingX.
//   - A parent's width is the sum of its children's widths plus the gaps,
//     never less than MinSpacingX.
//   - A parent is centered over its children (see [Centering]).
//   - Every node at depth d has y = d * VerticalSpacing.
//   - Independent roots are separated by 2 * MinSpacingX, then the whole
//     graph is shifted so its horizontal midpoint lands on CanvasCenterX.
//
// # Edges
//
// One edge is emitted per parent/child pair, labelled and styled from a
// [RelationTable] keyed by the pair of kinds. Pairs missing from the table
// get an empty label and the neutral style, plus an UNKNOWN_KIND warning.
//
// # Usage
//
//	roots, _ := hierarchy.Ingest(data, hierarchy.ShapeAuto)
//	g, err := layout.Build(roots, layout.Config{MinSpacingX: 200})
//	if err != nil {
//	    // MALFORMED_HIERARCHY, DUPLICATE_NODE or INVALID_CONFIG
//	}
//
// Output is deterministic: the same tree and configuration always produce
// the same positions in the same order.
package layout
