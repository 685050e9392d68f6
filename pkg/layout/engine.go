package layout

import (
	"fmt"
	"slices"

	"github.com/matzehuels/cursograph/pkg/errors"
	"github.com/matzehuels/cursograph/pkg/graph"
	"github.com/matzehuels/cursograph/pkg/hierarchy"
)

// subtree is the horizontal footprint of a node and its descendants.
//
// The footprint is the half-open interval [left, left+width): a leaf at
// offset x owns [x - s/2, x + s/2) for spacing s, and an internal node owns
// the union of its children plus the gaps between them. Footprints of
// siblings never intersect.
type subtree struct {
	id      string
	width   float64
	centerX float64
	left    float64
}

// placement is everything produced for one subtree.
type placement struct {
	nodes    []graph.PositionedNode
	edges    []graph.LayoutEdge
	warnings []graph.Warning
	result   subtree
	spans    []subtree // result of every node in the subtree, pre-order
}

// place lays out n with its leftmost leaf at xOffset. It is a pure function
// of its arguments: child placements are concatenated after the parent's own
// node, so the output is in pre-order.
func place(cfg Config, n hierarchy.Node, xOffset float64, depth int, ancestors []string) (placement, error) {
	if err := errors.ValidateNodeID(n.ID); err != nil {
		return placement{}, err
	}
	if depth > cfg.MaxDepth {
		return placement{}, errors.New(errors.ErrCodeMalformedHierarchy,
			"node %q is at depth %d, deeper than the limit %d", n.ID, depth, cfg.MaxDepth)
	}
	if slices.Contains(ancestors, n.ID) {
		return placement{}, errors.New(errors.ErrCodeMalformedHierarchy,
			"node %q is its own ancestor", n.ID)
	}

	s := cfg.MinSpacingX
	var out placement
	if !n.Kind.Known() {
		out.warnings = append(out.warnings, graph.Warning{
			Code:    errors.WarnCodeUnknownKind,
			NodeID:  n.ID,
			Message: fmt.Sprintf("unknown node kind %q", n.Kind),
		})
	}

	if n.IsLeaf() {
		out.result = subtree{id: n.ID, width: s, centerX: xOffset, left: xOffset - s/2}
		out.nodes = []graph.PositionedNode{positioned(cfg, n, xOffset, depth)}
		out.spans = []subtree{out.result}
		return out, nil
	}

	path := append(ancestors[:len(ancestors):len(ancestors)], n.ID)
	children := make([]subtree, 0, len(n.Children))
	var (
		childNodes []graph.PositionedNode
		childSpans []subtree
		edges      []graph.LayoutEdge
		offset     = xOffset
	)
	for _, c := range n.Children {
		cp, err := place(cfg, c, offset, depth+1, path)
		if err != nil {
			return placement{}, err
		}
		rel, ok := cfg.Relations.Lookup(n.Kind, c.Kind)
		if !ok && n.Kind.Known() && c.Kind.Known() {
			out.warnings = append(out.warnings, graph.Warning{
				Code:    errors.WarnCodeUnknownKind,
				NodeID:  c.ID,
				Message: "no relation for " + KindPair{n.Kind, c.Kind}.String(),
			})
		}
		edges = append(edges, edge(n.ID, c.ID, rel))
		edges = append(edges, cp.edges...)
		childNodes = append(childNodes, cp.nodes...)
		childSpans = append(childSpans, cp.spans...)
		out.warnings = append(out.warnings, cp.warnings...)

		children = append(children, cp.result)
		offset += cp.result.width + s
	}

	width := -s
	for _, c := range children {
		width += c.width + s
	}
	width = max(width, s)

	center := centerOver(cfg.Centering, children)
	out.result = subtree{id: n.ID, width: width, centerX: center, left: xOffset - s/2}
	out.nodes = append([]graph.PositionedNode{positioned(cfg, n, center, depth)}, childNodes...)
	out.spans = append([]subtree{out.result}, childSpans...)
	out.edges = edges
	return out, nil
}

// centerOver returns the parent's x for the given child footprints.
func centerOver(mode Centering, children []subtree) float64 {
	first, last := children[0].centerX, children[len(children)-1].centerX
	if mode == CenterMean {
		sum := 0.0
		for _, c := range children {
			sum += c.centerX
		}
		return sum / float64(len(children))
	}
	return (first + last) / 2
}

func positioned(cfg Config, n hierarchy.Node, x float64, depth int) graph.PositionedNode {
	return graph.PositionedNode{
		ID:    n.ID,
		Kind:  n.Kind,
		Label: n.Label,
		X:     x,
		Y:     float64(depth) * cfg.VerticalSpacing,
	}
}

func edge(source, target string, r Relation) graph.LayoutEdge {
	return graph.LayoutEdge{
		ID:            graph.EdgeID(source, target),
		SourceID:      source,
		TargetID:      target,
		RelationLabel: r.Label,
		StyleKey:      r.Style,
	}
}
