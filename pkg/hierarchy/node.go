package hierarchy

// Node is one element of an ingested hierarchy.
//
// Children are held by value, so a Node tree can never contain a cycle in
// memory. Order is significant: it is the left-to-right order of the layout.
type Node struct {
	ID       string `json:"id"`
	Kind     Kind   `json:"kind"`
	Label    string `json:"label"`
	Children []Node `json:"children"`
}

// IsLeaf reports whether the node has no children, whatever its kind.
func (n Node) IsLeaf() bool { return len(n.Children) == 0 }

// Walk visits n and its descendants depth-first in pre-order. The visitor
// receives the tree depth of each node (0 for n). Returning false from fn
// skips the node's children.
func Walk(n Node, fn func(n Node, depth int) bool) {
	walk(n, 0, fn)
}

func walk(n Node, depth int, fn func(Node, int) bool) {
	if !fn(n, depth) {
		return
	}
	for _, c := range n.Children {
		walk(c, depth+1, fn)
	}
}

// Count returns the number of nodes of each kind across all roots.
func Count(roots []Node) map[Kind]int {
	counts := make(map[Kind]int)
	for _, r := range roots {
		Walk(r, func(n Node, _ int) bool {
			counts[n.Kind]++
			return true
		})
	}
	return counts
}

// Size returns the total number of nodes across all roots.
func Size(roots []Node) int {
	total := 0
	for _, c := range Count(roots) {
		total += c
	}
	return total
}

// Depth returns the number of levels in the deepest root (0 for no roots).
func Depth(roots []Node) int {
	deepest := 0
	for _, r := range roots {
		Walk(r, func(_ Node, d int) bool {
			deepest = max(deepest, d+1)
			return true
		})
	}
	return deepest
}
