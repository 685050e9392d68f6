package graph

import (
	"github.com/matzehuels/cursograph/pkg/errors"
	"github.com/matzehuels/cursograph/pkg/hierarchy"
)

// =============================================================================
// Constants - Single Source of Truth
// =============================================================================

// Output formats understood by renderers and the CLI.
const (
	FormatJSON = "json"
	FormatFlow = "flow"
	FormatDOT  = "dot"
	FormatSVG  = "svg"
	FormatPNG  = "png"
	FormatPDF  = "pdf"
)

// Formats lists every output format in display order.
var Formats = []string{FormatJSON, FormatFlow, FormatDOT, FormatSVG, FormatPNG, FormatPDF}

// StyleNeutral is the edge style used when no relation is registered for a
// parent/child kind pair.
const StyleNeutral = "neutral"

// =============================================================================
// Graph - Positioned Layout Serialization
// =============================================================================

// Graph is the canonical serialization format for a laid-out hierarchy.
// Used for API responses, storage, caching, and renderer input.
//
// Nodes are emitted in pre-order (parent before children, children in input
// order) and edges in the same traversal order, so two layouts of the same
// input are byte-identical once encoded.
type Graph struct {
	Nodes    []PositionedNode `json:"nodes" bson:"nodes"`
	Edges    []LayoutEdge     `json:"edges" bson:"edges"`
	Warnings []Warning        `json:"warnings,omitempty" bson:"warnings,omitempty"`
}

// Empty returns a graph with non-nil, empty node and edge slices so it
// encodes as {"nodes": [], "edges": []}.
func Empty() Graph {
	return Graph{Nodes: []PositionedNode{}, Edges: []LayoutEdge{}}
}

// =============================================================================
// PositionedNode - Placed Tree Node
// =============================================================================

// PositionedNode is a hierarchy node with its final coordinates. X is the
// horizontal center of the node, Y its layer (depth * vertical spacing).
type PositionedNode struct {
	ID    string         `json:"id" bson:"id"`
	Kind  hierarchy.Kind `json:"kind" bson:"kind"`
	Label string         `json:"label" bson:"label"`
	X     float64        `json:"x" bson:"x"`
	Y     float64        `json:"y" bson:"y"`
}

// DisplayLabel returns the label if set, otherwise the ID.
func (n PositionedNode) DisplayLabel() string {
	if n.Label != "" {
		return n.Label
	}
	return n.ID
}

// =============================================================================
// LayoutEdge - Parent to Child Relation
// =============================================================================

// LayoutEdge connects a parent to one of its children.
type LayoutEdge struct {
	ID            string `json:"id" bson:"id"`
	SourceID      string `json:"sourceId" bson:"source_id"`
	TargetID      string `json:"targetId" bson:"target_id"`
	RelationLabel string `json:"relationLabel" bson:"relation_label"`
	StyleKey      string `json:"styleKey" bson:"style_key"`
}

// EdgeID is the identifier of the edge from source to target.
func EdgeID(source, target string) string { return source + "->" + target }

// =============================================================================
// Warning - Non-Fatal Layout Diagnostics
// =============================================================================

// Warning is a non-fatal problem found while laying out a hierarchy, such as
// a node kind with no registered relation.
type Warning struct {
	Code    errors.Code `json:"code" bson:"code"`
	NodeID  string      `json:"nodeId,omitempty" bson:"node_id,omitempty"`
	Message string      `json:"message" bson:"message"`
}

// =============================================================================
// Queries
// =============================================================================

// Node returns the node with the given id.
func (g Graph) Node(id string) (PositionedNode, bool) {
	for _, n := range g.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return PositionedNode{}, false
}

// Children returns the nodes that id has outgoing edges to, in edge order.
func (g Graph) Children(id string) []PositionedNode {
	index := g.index()
	var out []PositionedNode
	for _, e := range g.Edges {
		if e.SourceID == id {
			if n, ok := index[e.TargetID]; ok {
				out = append(out, n)
			}
		}
	}
	return out
}

// Roots returns the nodes without a parent, in node order.
func (g Graph) Roots() []PositionedNode {
	hasParent := make(map[string]bool, len(g.Edges))
	for _, e := range g.Edges {
		hasParent[e.TargetID] = true
	}
	var out []PositionedNode
	for _, n := range g.Nodes {
		if !hasParent[n.ID] {
			out = append(out, n)
		}
	}
	return out
}

// Bounds is the bounding box of node centers.
type Bounds struct {
	MinX, MaxX, MinY, MaxY float64
}

// Width is the horizontal extent of the box.
func (b Bounds) Width() float64 { return b.MaxX - b.MinX }

// Height is the vertical extent of the box.
func (b Bounds) Height() float64 { return b.MaxY - b.MinY }

// Bounds returns the bounding box of all node centers. The zero value is
// returned for an empty graph.
func (g Graph) Bounds() Bounds {
	if len(g.Nodes) == 0 {
		return Bounds{}
	}
	b := Bounds{MinX: g.Nodes[0].X, MaxX: g.Nodes[0].X, MinY: g.Nodes[0].Y, MaxY: g.Nodes[0].Y}
	for _, n := range g.Nodes[1:] {
		b.MinX = min(b.MinX, n.X)
		b.MaxX = max(b.MaxX, n.X)
		b.MinY = min(b.MinY, n.Y)
		b.MaxY = max(b.MaxY, n.Y)
	}
	return b
}

// CountKinds returns the number of nodes of each kind.
func (g Graph) CountKinds() map[hierarchy.Kind]int {
	counts := make(map[hierarchy.Kind]int)
	for _, n := range g.Nodes {
		counts[n.Kind]++
	}
	return counts
}

func (g Graph) index() map[string]PositionedNode {
	m := make(map[string]PositionedNode, len(g.Nodes))
	for _, n := range g.Nodes {
		m[n.ID] = n
	}
	return m
}
