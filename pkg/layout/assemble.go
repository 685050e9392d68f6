package layout

import (
	"github.com/matzehuels/cursograph/pkg/errors"
	"github.com/matzehuels/cursograph/pkg/graph"
	"github.com/matzehuels/cursograph/pkg/hierarchy"
)

// Build lays out every root left to right and assembles one graph centered
// on cfg.CanvasCenterX.
//
// Root i starts at offset_i, and offset_{i+1} = offset_i + width_i +
// 2*MinSpacingX. After placement every x is shifted by
// CanvasCenterX - graphCenter, where graphCenter is the midpoint of the
// smallest and largest placed x. An empty input yields an empty graph.
//
// Build fails with MALFORMED_HIERARCHY when a node repeats an ancestor's id
// or sits deeper than cfg.MaxDepth, with DUPLICATE_NODE when two nodes share
// an id, and with INVALID_INPUT for an empty id. Unknown kinds are reported
// as warnings on the graph and logged; they never fail the layout.
func Build(roots []hierarchy.Node, cfg Config) (graph.Graph, error) {
	g, _, err := build(roots, cfg)
	return g, err
}

func build(roots []hierarchy.Node, cfg Config) (graph.Graph, []subtree, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return graph.Graph{}, nil, err
	}

	g := graph.Empty()
	var spans []subtree
	offset := 0.0
	for _, r := range roots {
		p, err := place(cfg, r, offset, 0, nil)
		if err != nil {
			return graph.Graph{}, nil, err
		}
		g.Nodes = append(g.Nodes, p.nodes...)
		g.Edges = append(g.Edges, p.edges...)
		g.Warnings = append(g.Warnings, p.warnings...)
		spans = append(spans, p.spans...)
		offset += p.result.width + 2*cfg.MinSpacingX
	}

	if err := checkUnique(g.Nodes); err != nil {
		return graph.Graph{}, nil, err
	}

	shift := recenter(g.Nodes, cfg.CanvasCenterX)
	for i := range spans {
		spans[i].centerX += shift
		spans[i].left += shift
	}

	g.Warnings = dedupe(g.Warnings)
	for _, w := range g.Warnings {
		cfg.Logger.Warn("layout warning", "code", w.Code, "node", w.NodeID, "message", w.Message)
	}
	return g, spans, nil
}

func checkUnique(nodes []graph.PositionedNode) error {
	seen := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		if seen[n.ID] {
			return errors.New(errors.ErrCodeDuplicateNode, "node id %q appears more than once", n.ID)
		}
		seen[n.ID] = true
	}
	return nil
}

// recenter shifts nodes in place so the midpoint of their horizontal extent
// lands on center, and returns the shift applied.
func recenter(nodes []graph.PositionedNode, center float64) float64 {
	if len(nodes) == 0 {
		return 0
	}
	lo, hi := nodes[0].X, nodes[0].X
	for _, n := range nodes[1:] {
		lo = min(lo, n.X)
		hi = max(hi, n.X)
	}
	shift := center - (lo+hi)/2
	for i := range nodes {
		nodes[i].X += shift
	}
	return shift
}

// dedupe keeps the first warning for each message, so a missing relation is
// reported once rather than once per edge.
func dedupe(ws []graph.Warning) []graph.Warning {
	if len(ws) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(ws))
	out := ws[:0:0]
	for _, w := range ws {
		key := string(w.Code) + "|" + w.Message
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, w)
	}
	return out
}
