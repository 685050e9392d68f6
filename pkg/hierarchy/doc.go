// Package hierarchy normalizes academic backend records into a uniform tree.
//
// The backend serves two response shapes whose field names are not
// consistent (ID_Curso vs id, Nombre vs nombre). This package isolates that
// mismatch: each record type has explicit alias fallbacks, and the adapters
// turn records into [Node] values of a closed set of [Kind]s. Nothing past
// this package sees a backend field name.
//
// # Shapes
//
//   - [ShapeCourse]: course -> modulos -> lecciones -> evaluaciones
//   - [ShapeProfessor]: professor -> cursos -> estudiantes
//   - [ShapeAuto]: decided from the first record's keys
//
// # Identifiers
//
// Node ids are composite paths built from the kind and backend id of every
// ancestor:
//
//	course:1/module:4/lesson:9
//
// The same backend record reachable twice (a student enrolled in two courses)
// therefore yields two distinct nodes. Records without an id use their
// ordinal position ("module:#2"), and repeated sibling ids get a "~n" suffix.
//
// # Usage
//
//	roots, err := hierarchy.Ingest(data, hierarchy.ShapeAuto)
//	if err != nil {
//	    return err
//	}
//	fmt.Println(hierarchy.Count(roots)[hierarchy.KindLesson], "lessons")
package hierarchy
