package layout

import (
	"maps"
	"slices"
	"strings"

	"github.com/matzehuels/cursograph/pkg/graph"
	"github.com/matzehuels/cursograph/pkg/hierarchy"
)

// KindPair is a parent kind and the kind of one of its children.
type KindPair struct {
	Parent hierarchy.Kind
	Child  hierarchy.Kind
}

func (p KindPair) String() string { return string(p.Parent) + "->" + string(p.Child) }

// Relation is the label and style attached to an edge.
type Relation struct {
	Label string
	Style string
}

// fallback is used for pairs missing from the table.
var fallback = Relation{Label: "", Style: graph.StyleNeutral}

// RelationTable maps parent/child kind pairs to edge relations.
type RelationTable map[KindPair]Relation

// DefaultRelations returns a fresh copy of the built-in relations. Styles
// are keyed by the parent kind.
func DefaultRelations() RelationTable {
	t := RelationTable{}
	add := func(parent, child hierarchy.Kind, label string) {
		t[KindPair{parent, child}] = Relation{Label: label, Style: string(parent)}
	}

	add(hierarchy.KindProfessor, hierarchy.KindCourse, "imparte")
	add(hierarchy.KindCourse, hierarchy.KindModule, "contiene")
	add(hierarchy.KindModule, hierarchy.KindLesson, "incluye")
	add(hierarchy.KindLesson, hierarchy.KindEvaluation, "evalúa")
	add(hierarchy.KindCourse, hierarchy.KindStudent, "matriculado")

	add(hierarchy.KindRoot, hierarchy.KindGroup, "contiene")
	add(hierarchy.KindGroup, hierarchy.KindCollection, "contiene")
	add(hierarchy.KindCollection, hierarchy.KindItem, "incluye")
	add(hierarchy.KindItem, hierarchy.KindLeaf, "evalúa")
	return t
}

// With returns a copy of t with pair mapped to r. An empty style falls back
// to the parent kind.
func (t RelationTable) With(pair KindPair, r Relation) RelationTable {
	out := make(RelationTable, len(t)+1)
	maps.Copy(out, t)
	if r.Style == "" {
		r.Style = string(pair.Parent)
	}
	out[pair] = r
	return out
}

// Lookup returns the relation for a parent/child pair. Unknown pairs yield
// an empty label with the neutral style and ok=false.
func (t RelationTable) Lookup(parent, child hierarchy.Kind) (r Relation, ok bool) {
	r, ok = t[KindPair{parent, child}]
	if !ok {
		return fallback, false
	}
	return r, true
}

// Pairs returns the table's keys in a stable order.
func (t RelationTable) Pairs() []KindPair {
	pairs := slices.Collect(maps.Keys(t))
	slices.SortFunc(pairs, func(a, b KindPair) int {
		return strings.Compare(a.String(), b.String())
	})
	return pairs
}

// Fingerprint is a stable textual form of the table, used in cache keys.
func (t RelationTable) Fingerprint() string {
	var sb strings.Builder
	for _, p := range t.Pairs() {
		r := t[p]
		sb.WriteString(p.String())
		sb.WriteByte('=')
		sb.WriteString(r.Label)
		sb.WriteByte('|')
		sb.WriteString(r.Style)
		sb.WriteByte(';')
	}
	return sb.String()
}
