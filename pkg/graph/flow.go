package graph

// =============================================================================
// Flow - Generic Renderer Shape
// =============================================================================

// Flow is the graph shape consumed by node/edge drawing surfaces in the
// browser: nodes carry a nested position and data object, edges their
// endpoints, label and class.
type Flow struct {
	Nodes []FlowNode `json:"nodes"`
	Edges []FlowEdge `json:"edges"`
}

// FlowNode is a renderer node.
type FlowNode struct {
	ID        string       `json:"id"`
	Position  FlowPosition `json:"position"`
	Data      FlowData     `json:"data"`
	Type      string       `json:"type"`
	ClassName string       `json:"className"`
}

// FlowPosition is the top-level coordinate pair of a renderer node.
type FlowPosition struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// FlowData is the payload displayed inside a renderer node.
type FlowData struct {
	Label string `json:"label"`
	Kind  string `json:"kind"`
}

// FlowEdge is a renderer edge.
type FlowEdge struct {
	ID        string `json:"id"`
	Source    string `json:"source"`
	Target    string `json:"target"`
	Label     string `json:"label,omitempty"`
	ClassName string `json:"className"`
}

// ToFlow converts a Graph into the renderer shape. Roots are typed "input",
// leaves "output" and everything else "default"; class names carry the kind
// (nodes) and style key (edges) so the surface can style them.
func ToFlow(g Graph) Flow {
	hasParent := make(map[string]bool, len(g.Edges))
	hasChild := make(map[string]bool, len(g.Edges))
	for _, e := range g.Edges {
		hasParent[e.TargetID] = true
		hasChild[e.SourceID] = true
	}

	out := Flow{
		Nodes: make([]FlowNode, len(g.Nodes)),
		Edges: make([]FlowEdge, len(g.Edges)),
	}
	for i, n := range g.Nodes {
		typ := "default"
		switch {
		case !hasParent[n.ID]:
			typ = "input"
		case !hasChild[n.ID]:
			typ = "output"
		}
		out.Nodes[i] = FlowNode{
			ID:        n.ID,
			Position:  FlowPosition{X: n.X, Y: n.Y},
			Data:      FlowData{Label: n.DisplayLabel(), Kind: string(n.Kind)},
			Type:      typ,
			ClassName: "node-" + string(n.Kind),
		}
	}
	for i, e := range g.Edges {
		out.Edges[i] = FlowEdge{
			ID:        e.ID,
			Source:    e.SourceID,
			Target:    e.TargetID,
			Label:     e.RelationLabel,
			ClassName: "edge-" + e.StyleKey,
		}
	}
	return out
}
