package graph

import (
	"github.com/matzehuels/cursograph/pkg/errors"
)

// Validate checks the structural invariants of a laid-out hierarchy:
//
//   - node ids are non-empty and unique
//   - every edge endpoint refers to an emitted node
//   - every node has at most one incoming edge
//   - no edge points at its own source
//
// Graphs produced by the layout engine satisfy these by construction;
// Validate guards graphs read back from files, caches or the network.
func Validate(g Graph) error {
	seen := make(map[string]bool, len(g.Nodes))
	for _, n := range g.Nodes {
		if err := errors.ValidateNodeID(n.ID); err != nil {
			return err
		}
		if seen[n.ID] {
			return errors.New(errors.ErrCodeDuplicateNode, "duplicate node id %q", n.ID)
		}
		seen[n.ID] = true
	}

	parents := make(map[string]string, len(g.Edges))
	for _, e := range g.Edges {
		if !seen[e.SourceID] {
			return errors.New(errors.ErrCodeMalformedHierarchy, "edge %q: unknown source %q", e.ID, e.SourceID)
		}
		if !seen[e.TargetID] {
			return errors.New(errors.ErrCodeMalformedHierarchy, "edge %q: unknown target %q", e.ID, e.TargetID)
		}
		if e.SourceID == e.TargetID {
			return errors.New(errors.ErrCodeMalformedHierarchy, "edge %q: node %q is its own parent", e.ID, e.SourceID)
		}
		if p, ok := parents[e.TargetID]; ok {
			return errors.New(errors.ErrCodeMalformedHierarchy, "node %q has two parents: %q and %q", e.TargetID, p, e.SourceID)
		}
		parents[e.TargetID] = e.SourceID
	}
	return nil
}
