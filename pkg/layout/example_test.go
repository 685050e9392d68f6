package layout_test

import (
	"fmt"

	"github.com/matzehuels/cursograph/pkg/hierarchy"
	"github.com/matzehuels/cursograph/pkg/layout"
)

func ExampleBuild() {
	course := hierarchy.Node{
		ID: "course:1", Kind: hierarchy.KindCourse, Label: "📚 Física",
		Children: []hierarchy.Node{
			{ID: "course:1/module:1", Kind: hierarchy.KindModule, Label: "📦 Ondas"},
			{ID: "course:1/module:2", Kind: hierarchy.KindModule, Label: "📦 Óptica"},
		},
	}

	g, err := layout.Build([]hierarchy.Node{course}, layout.Config{})
	if err != nil {
		fmt.Println("Error:", err)
		return
	}
	for _, n := range g.Nodes {
		fmt.Printf("%s (%v, %v)\n", n.Label, n.X, n.Y)
	}
	for _, e := range g.Edges {
		fmt.Println(e.ID, e.RelationLabel)
	}
	// Output:
	// 📚 Física (600, 0)
	// 📦 Ondas (380, 180)
	// 📦 Óptica (820, 180)
	// course:1->course:1/module:1 contiene
	// course:1->course:1/module:2 contiene
}

func ExampleRelationTable_With() {
	rel := layout.DefaultRelations().With(
		layout.KindPair{Parent: hierarchy.KindCourse, Child: hierarchy.KindStudent},
		layout.Relation{Label: "inscrito"},
	)
	r, ok := rel.Lookup(hierarchy.KindCourse, hierarchy.KindStudent)
	fmt.Println(r.Label, r.Style, ok)

	r, ok = rel.Lookup(hierarchy.KindStudent, hierarchy.KindCourse)
	fmt.Printf("%q %s %v\n", r.Label, r.Style, ok)
	// Output:
	// inscrito course true
	// "" neutral false
}
