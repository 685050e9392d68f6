package hierarchy

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// =============================================================================
// Text - Tolerant Scalar
// =============================================================================

// Text is a scalar field that the backend emits either as a JSON string or as
// a JSON number (ids mostly, but names too). null decodes to the empty string.
type Text string

// UnmarshalJSON accepts strings, numbers and null.
func (t *Text) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*t = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = Text(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", data)
	}
	*t = Text(n.String())
	return nil
}

// first returns the first non-empty value.
func first(values ...Text) string {
	for _, v := range values {
		if v != "" {
			return string(v)
		}
	}
	return ""
}

// =============================================================================
// Course-Centric Records
// =============================================================================

// CourseRecord is a course as returned by either backend shape. In the
// course-centric shape it carries modules, in the professor-centric shape it
// carries enrolled students.
type CourseRecord struct {
	IDCurso      Text `json:"ID_Curso"`
	IDCursoLower Text `json:"id_curso"`
	ID           Text `json:"id"`

	Nombre      Text `json:"Nombre"`
	NombreLower Text `json:"nombre"`
	Titulo      Text `json:"Titulo"`
	TituloLower Text `json:"titulo"`

	Modulos     []ModuleRecord  `json:"modulos"`
	Estudiantes []StudentRecord `json:"estudiantes"`
}

// Key returns the course id, falling back across ID_Curso, id_curso and id.
func (r CourseRecord) Key() string { return first(r.IDCurso, r.IDCursoLower, r.ID) }

// Name returns the course name, falling back across Nombre, nombre, Titulo and titulo.
func (r CourseRecord) Name() string {
	return first(r.Nombre, r.NombreLower, r.Titulo, r.TituloLower)
}

// ModuleRecord is a module inside a course.
type ModuleRecord struct {
	IDModulo      Text `json:"ID_Modulo"`
	IDModuloLower Text `json:"id_modulo"`
	ID            Text `json:"id"`

	Nombre      Text `json:"Nombre"`
	NombreLower Text `json:"nombre"`
	Titulo      Text `json:"Titulo"`
	TituloLower Text `json:"titulo"`

	Lecciones []LessonRecord `json:"lecciones"`
}

// Key returns the module id, falling back across ID_Modulo, id_modulo and id.
func (r ModuleRecord) Key() string { return first(r.IDModulo, r.IDModuloLower, r.ID) }

// Name returns the module name, falling back across Nombre, nombre, Titulo and titulo.
func (r ModuleRecord) Name() string {
	return first(r.Nombre, r.NombreLower, r.Titulo, r.TituloLower)
}

// LessonRecord is a lesson inside a module.
type LessonRecord struct {
	IDLeccion      Text `json:"ID_Leccion"`
	IDLeccionLower Text `json:"id_leccion"`
	ID             Text `json:"id"`

	Titulo      Text `json:"Titulo"`
	TituloLower Text `json:"titulo"`
	Nombre      Text `json:"Nombre"`
	NombreLower Text `json:"nombre"`

	Evaluaciones []EvaluationRecord `json:"evaluaciones"`
}

// Key returns the lesson id, falling back across ID_Leccion, id_leccion and id.
func (r LessonRecord) Key() string { return first(r.IDLeccion, r.IDLeccionLower, r.ID) }

// Name returns the lesson title, falling back across Titulo, titulo, Nombre and nombre.
func (r LessonRecord) Name() string {
	return first(r.Titulo, r.TituloLower, r.Nombre, r.NombreLower)
}

// EvaluationRecord is an evaluation attached to a lesson.
type EvaluationRecord struct {
	IDEvaluacion      Text `json:"ID_Evaluacion"`
	IDEvaluacionLower Text `json:"id_evaluacion"`
	ID                Text `json:"id"`

	Titulo      Text `json:"Titulo"`
	TituloLower Text `json:"titulo"`
	Nombre      Text `json:"Nombre"`
	NombreLower Text `json:"nombre"`
}

// Key returns the evaluation id, falling back across ID_Evaluacion, id_evaluacion and id.
func (r EvaluationRecord) Key() string {
	return first(r.IDEvaluacion, r.IDEvaluacionLower, r.ID)
}

// Name returns the evaluation title, falling back across Titulo, titulo, Nombre and nombre.
func (r EvaluationRecord) Name() string {
	return first(r.Titulo, r.TituloLower, r.Nombre, r.NombreLower)
}

// =============================================================================
// Professor-Centric Records
// =============================================================================

// ProfessorRecord is a professor with the courses they teach.
type ProfessorRecord struct {
	IDProfesor      Text `json:"ID_Profesor"`
	IDProfesorLower Text `json:"id_profesor"`
	ID              Text `json:"id"`

	Nombre        Text `json:"Nombre"`
	NombreLower   Text `json:"nombre"`
	Apellido      Text `json:"Apellido"`
	ApellidoLower Text `json:"apellido"`

	Cursos []CourseRecord `json:"cursos"`
}

// Key returns the professor id, falling back across ID_Profesor, id_profesor and id.
func (r ProfessorRecord) Key() string { return first(r.IDProfesor, r.IDProfesorLower, r.ID) }

// Name returns "Nombre Apellido" using whichever casing is present.
func (r ProfessorRecord) Name() string {
	return fullName(first(r.Nombre, r.NombreLower), first(r.Apellido, r.ApellidoLower))
}

// StudentRecord is a student enrolled in a course.
type StudentRecord struct {
	IDEstudiante      Text `json:"ID_Estudiante"`
	IDEstudianteLower Text `json:"id_estudiante"`
	ID                Text `json:"id"`

	Nombre        Text `json:"Nombre"`
	NombreLower   Text `json:"nombre"`
	Apellido      Text `json:"Apellido"`
	ApellidoLower Text `json:"apellido"`
}

// Key returns the student id, falling back across ID_Estudiante, id_estudiante and id.
func (r StudentRecord) Key() string {
	return first(r.IDEstudiante, r.IDEstudianteLower, r.ID)
}

// Name returns "Nombre Apellido" using whichever casing is present.
func (r StudentRecord) Name() string {
	return fullName(first(r.Nombre, r.NombreLower), first(r.Apellido, r.ApellidoLower))
}

func fullName(given, family string) string {
	return strings.TrimSpace(given + " " + family)
}
