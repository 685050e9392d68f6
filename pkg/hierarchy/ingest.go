package hierarchy

import (
	"bytes"
	"encoding/json"
	"strconv"

	"github.com/matzehuels/cursograph/pkg/errors"
)

// Shape names one of the backend response layouts.
type Shape string

const (
	// ShapeAuto inspects the first record to decide between the other shapes.
	ShapeAuto Shape = "auto"
	// ShapeCourse is courses -> modulos -> lecciones -> evaluaciones.
	ShapeCourse Shape = "course"
	// ShapeProfessor is professors -> cursos -> estudiantes.
	ShapeProfessor Shape = "professor"
)

// Shapes lists the accepted shape names.
var Shapes = []Shape{ShapeAuto, ShapeCourse, ShapeProfessor}

// ParseShape converts a string into a Shape. The empty string means ShapeAuto.
func ParseShape(s string) (Shape, error) {
	switch Shape(s) {
	case "", ShapeAuto:
		return ShapeAuto, nil
	case ShapeCourse, ShapeProfessor:
		return Shape(s), nil
	}
	return "", errors.New(errors.ErrCodeInvalidShape, "unknown hierarchy shape: %q (want auto, course or professor)", s)
}

// Ingest decodes raw backend records and maps them to hierarchy roots.
//
// The payload may be a JSON array of records, a single record object, or
// null. Absent nested collections are treated as empty.
func Ingest(data []byte, shape Shape) ([]Node, error) {
	raw, err := splitRecords(data)
	if err != nil {
		return nil, err
	}
	if shape == ShapeAuto || shape == "" {
		shape = detect(raw)
	}

	switch shape {
	case ShapeCourse:
		records := make([]CourseRecord, len(raw))
		for i, r := range raw {
			if err := json.Unmarshal(r, &records[i]); err != nil {
				return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode course record %d", i)
			}
		}
		return FromCourses(records), nil
	case ShapeProfessor:
		records := make([]ProfessorRecord, len(raw))
		for i, r := range raw {
			if err := json.Unmarshal(r, &records[i]); err != nil {
				return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode professor record %d", i)
			}
		}
		return FromProfessors(records), nil
	default:
		_, err := ParseShape(string(shape))
		return nil, err
	}
}

// DetectShape reports which shape a payload looks like without mapping it.
func DetectShape(data []byte) (Shape, error) {
	raw, err := splitRecords(data)
	if err != nil {
		return "", err
	}
	return detect(raw), nil
}

func splitRecords(data []byte) ([]json.RawMessage, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, nil
	}
	switch data[0] {
	case '[':
		var raw []json.RawMessage
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode records")
		}
		return raw, nil
	case '{':
		return []json.RawMessage{json.RawMessage(data)}, nil
	}
	return nil, errors.New(errors.ErrCodeInvalidInput, "records must be a JSON array or object")
}

// detect looks at the keys of the first record. A professor record is the
// only one carrying "cursos" or a professor id.
func detect(raw []json.RawMessage) Shape {
	for _, r := range raw {
		var keys map[string]json.RawMessage
		if err := json.Unmarshal(r, &keys); err != nil {
			continue
		}
		for _, k := range []string{"cursos", "ID_Profesor", "id_profesor"} {
			if _, ok := keys[k]; ok {
				return ShapeProfessor
			}
		}
		return ShapeCourse
	}
	return ShapeCourse
}

// =============================================================================
// Adapters
// =============================================================================

// FromCourses maps course-centric records to course roots.
func FromCourses(records []CourseRecord) []Node {
	ids := newSiblings()
	roots := make([]Node, 0, len(records))
	for i, c := range records {
		roots = append(roots, courseNode(c, "", i, ids))
	}
	return roots
}

// FromProfessors maps professor-centric records to professor roots.
func FromProfessors(records []ProfessorRecord) []Node {
	ids := newSiblings()
	roots := make([]Node, 0, len(records))
	for i, p := range records {
		n := newNode(KindProfessor, "", p.Key(), p.Name(), i, ids)
		courses := newSiblings()
		n.Children = make([]Node, 0, len(p.Cursos))
		for j, c := range p.Cursos {
			n.Children = append(n.Children, enrolledCourseNode(c, n.ID, j, courses))
		}
		roots = append(roots, n)
	}
	return roots
}

func courseNode(c CourseRecord, parent string, i int, ids siblings) Node {
	n := newNode(KindCourse, parent, c.Key(), c.Name(), i, ids)
	modules := newSiblings()
	n.Children = make([]Node, 0, len(c.Modulos))
	for j, m := range c.Modulos {
		mn := newNode(KindModule, n.ID, m.Key(), m.Name(), j, modules)
		lessons := newSiblings()
		mn.Children = make([]Node, 0, len(m.Lecciones))
		for k, l := range m.Lecciones {
			ln := newNode(KindLesson, mn.ID, l.Key(), l.Name(), k, lessons)
			evals := newSiblings()
			ln.Children = make([]Node, 0, len(l.Evaluaciones))
			for q, e := range l.Evaluaciones {
				ln.Children = append(ln.Children, newNode(KindEvaluation, ln.ID, e.Key(), e.Name(), q, evals))
			}
			mn.Children = append(mn.Children, ln)
		}
		n.Children = append(n.Children, mn)
	}
	return n
}

func enrolledCourseNode(c CourseRecord, parent string, i int, ids siblings) Node {
	n := newNode(KindCourse, parent, c.Key(), c.Name(), i, ids)
	students := newSiblings()
	n.Children = make([]Node, 0, len(c.Estudiantes))
	for j, s := range c.Estudiantes {
		n.Children = append(n.Children, newNode(KindStudent, n.ID, s.Key(), s.Name(), j, students))
	}
	return n
}

// siblings tracks the local keys already used under one parent so repeated
// backend rows still produce distinct node ids.
type siblings map[string]int

func newSiblings() siblings { return make(siblings) }

func (s siblings) claim(key string) string {
	s[key]++
	if n := s[key]; n > 1 {
		return key + "~" + strconv.Itoa(n)
	}
	return key
}

func newNode(kind Kind, parent, key, name string, ordinal int, ids siblings) Node {
	local := key
	if local == "" {
		local = "#" + strconv.Itoa(ordinal)
	}
	id := ids.claim(string(kind) + ":" + local)
	if parent != "" {
		id = parent + "/" + id
	}
	return Node{ID: id, Kind: kind, Label: Label(kind, key, name, ordinal)}
}

// Label formats the display text of a node: the kind's emoji followed by the
// name, or "<Kind> <id>" when the record has no name.
func Label(kind Kind, key, name string, ordinal int) string {
	if name == "" {
		if key == "" {
			key = strconv.Itoa(ordinal + 1)
		}
		display, ok := displayName[kind]
		if !ok {
			display = string(kind)
		}
		name = display + " " + key
	}
	if prefix, ok := labelPrefix[kind]; ok {
		return prefix + " " + name
	}
	return name
}
