package attendance

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Repository persists attendance records in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const recordColumns = `a.id_asistencia, a.id_clase, a.legajo_alumno, a.nombre_alumno, a.apellido_alumno, a.dni_alumno,
	a.ubicacion_alumno_latitud, a.ubicacion_alumno_longitud, a.distancia_al_aula, a.validacion_ubicacion, a.fecha_hora_asistencia`

// CreateAttendance inserts one record. Rows are append-only.
func (r *Repository) CreateAttendance(ctx context.Context, rec Record) (Record, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.SubmittedAt.IsZero() {
		rec.SubmittedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO asistencias (id_asistencia, id_clase, legajo_alumno, nombre_alumno, apellido_alumno, dni_alumno,
			ubicacion_alumno_latitud, ubicacion_alumno_longitud, distancia_al_aula, validacion_ubicacion, fecha_hora_asistencia)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
	`, rec.ID, rec.ClassID, rec.Legajo, rec.Nombre, rec.Apellido, rec.DNI,
		rec.Latitude, rec.Longitude, rec.Distance, rec.Validated, rec.SubmittedAt)
	if err != nil {
		return Record{}, err
	}
	return rec, nil
}

// GetAttendance returns a single record by id, or nil when absent.
func (r *Repository) GetAttendance(ctx context.Context, id string) (*Record, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM asistencias a WHERE a.id_asistencia = $1`, id)
	var rec Record
	if err := scanRecord(row, &rec); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}

// ListForTeacher returns records of the teacher's classes joined with the class title.
func (r *Repository) ListForTeacher(ctx context.Context, p ListParams) ([]Listing, error) {
	args := []any{p.TeacherID}
	clauses := []string{"c.id_docente = $1"}
	if p.ClassID != "" {
		args = append(args, p.ClassID)
		clauses = append(clauses, "a.id_clase = $"+strconv.Itoa(len(args)))
	}
	if !p.From.IsZero() {
		args = append(args, p.From)
		clauses = append(clauses, "a.fecha_hora_asistencia >= $"+strconv.Itoa(len(args)))
	}
	if !p.To.IsZero() {
		args = append(args, p.To)
		clauses = append(clauses, "a.fecha_hora_asistencia < $"+strconv.Itoa(len(args)))
	}

	query := `SELECT ` + recordColumns + `, c.titulo
		FROM asistencias a
		JOIN clases c ON c.id_clase = a.id_clase
		WHERE ` + strings.Join(clauses, " AND ") + `
		ORDER BY a.fecha_hora_asistencia DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []Listing
	for rows.Next() {
		var l Listing
		if err := scanRecord(rows, &l.Record, &l.Class.Titulo); err != nil {
			return nil, err
		}
		res = append(res, l)
	}
	return res, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner, rec *Record, extra ...any) error {
	var distance sql.NullFloat64
	dest := []any{&rec.ID, &rec.ClassID, &rec.Legajo, &rec.Nombre, &rec.Apellido, &rec.DNI,
		&rec.Latitude, &rec.Longitude, &distance, &rec.Validated, &rec.SubmittedAt}
	if err := s.Scan(append(dest, extra...)...); err != nil {
		return err
	}
	if distance.Valid {
		d := distance.Float64
		rec.Distance = &d
	}
	return nil
}
