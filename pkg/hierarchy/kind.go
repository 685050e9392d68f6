package hierarchy

import (
	"github.com/matzehuels/cursograph/pkg/errors"
)

// Kind is the type of a node in a hierarchy. The set is closed: the generic
// kinds describe any five-level tree, the concrete kinds the two academic
// hierarchies served by the backend.
type Kind string

// Generic kinds.
const (
	KindRoot       Kind = "root"
	KindGroup      Kind = "group"
	KindCollection Kind = "collection"
	KindItem       Kind = "item"
	KindLeaf       Kind = "leaf"
)

// Concrete academic kinds.
const (
	KindProfessor  Kind = "professor"
	KindCourse     Kind = "course"
	KindModule     Kind = "module"
	KindLesson     Kind = "lesson"
	KindEvaluation Kind = "evaluation"
	KindStudent    Kind = "student"
)

// Kinds lists every known kind in declaration order.
var Kinds = []Kind{
	KindRoot, KindGroup, KindCollection, KindItem, KindLeaf,
	KindProfessor, KindCourse, KindModule, KindLesson, KindEvaluation, KindStudent,
}

var knownKinds = func() map[Kind]bool {
	m := make(map[Kind]bool, len(Kinds))
	for _, k := range Kinds {
		m[k] = true
	}
	return m
}()

// Known reports whether k belongs to the closed set of kinds.
func (k Kind) Known() bool { return knownKinds[k] }

// String returns the kind name.
func (k Kind) String() string { return string(k) }

// ParseKind converts a string into a Kind, rejecting unknown names.
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if !k.Known() {
		return "", errors.New(errors.ErrCodeInvalidKind, "unknown node kind: %q", s)
	}
	return k, nil
}

// labelPrefix is the emoji shown in front of display labels.
var labelPrefix = map[Kind]string{
	KindProfessor:  "👨‍🏫",
	KindCourse:     "📚",
	KindModule:     "📦",
	KindLesson:     "📖",
	KindEvaluation: "📝",
	KindStudent:    "🎓",
}

// displayName is the human-readable kind used in fallback labels.
var displayName = map[Kind]string{
	KindProfessor:  "Profesor",
	KindCourse:     "Curso",
	KindModule:     "Módulo",
	KindLesson:     "Lección",
	KindEvaluation: "Evaluación",
	KindStudent:    "Estudiante",
}
