package attendance

import (
	"context"
	"time"

	"qrattend/internal/classes"
)

// CheckIn is the inbound request of one student. Coordinates are pointers so
// that an explicit 0 is distinguishable from an absent value.
type CheckIn struct {
	ClassID   string   `json:"classId"`
	Legajo    string   `json:"legajo_alumno"`
	Nombre    string   `json:"nombre_alumno"`
	Apellido  string   `json:"apellido_alumno"`
	DNI       string   `json:"dni_alumno"`
	Latitude  *float64 `json:"ubicacion_alumno_latitud"`
	Longitude *float64 `json:"ubicacion_alumno_longitud"`
}

// Record is one stored check-in. It is never updated after creation.
type Record struct {
	ID          string    `json:"id_asistencia"`
	ClassID     string    `json:"id_clase"`
	Legajo      string    `json:"legajo_alumno"`
	Nombre      string    `json:"nombre_alumno"`
	Apellido    string    `json:"apellido_alumno"`
	DNI         string    `json:"dni_alumno"`
	Latitude    float64   `json:"ubicacion_alumno_latitud"`
	Longitude   float64   `json:"ubicacion_alumno_longitud"`
	Distance    *float64  `json:"distancia_al_aula"`
	Validated   bool      `json:"validacion_ubicacion"`
	SubmittedAt time.Time `json:"fecha_hora_asistencia"`
}

// ClassRef is the parent class projection attached to listings.
type ClassRef struct {
	Titulo string `json:"titulo"`
}

// Listing is a record as returned to its teacher.
type Listing struct {
	Record
	Class ClassRef `json:"Clase"`
}

// Filter narrows a teacher's listing. Zero values mean no filter.
type Filter struct {
	ClassID string
	// Day selects records submitted on that calendar day, in the query's location.
	Day time.Time
}

// ListParams is the resolved filter handed to storage.
type ListParams struct {
	TeacherID string
	ClassID   string
	From, To  time.Time
}

// ClassLookup resolves a class regardless of its active flag. A missing class
// is reported as (nil, nil).
type ClassLookup interface {
	ClassByID(ctx context.Context, id string) (*classes.Class, error)
}

// Recorder persists check-ins.
type Recorder interface {
	CreateAttendance(ctx context.Context, rec Record) (Record, error)
}

// Notifier is told about stored records. It must not fail the check-in.
type Notifier interface {
	AttendanceRecorded(ctx context.Context, rec Record)
}

// ThresholdSource yields the proximity threshold in meters. It is consulted
// on every registration.
type ThresholdSource interface {
	ProximityThresholdMeters(ctx context.Context) float64
}

// ClassDirectory answers ownership questions for scoped queries.
type ClassDirectory interface {
	BelongsToTeacher(ctx context.Context, classID, teacherID string) (bool, error)
	CountByTeacher(ctx context.Context, teacherID string) (int, error)
}

// Lister reads a teacher's records, newest first.
type Lister interface {
	ListForTeacher(ctx context.Context, p ListParams) ([]Listing, error)
}
