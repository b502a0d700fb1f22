package classes

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
)

// Repository persists classes in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const classColumns = `id_clase, id_docente, titulo, descripcion, ubicacion_latitud, ubicacion_longitud, fecha_creacion, estado, qr_url`

// Insert stores a new class.
func (r *Repository) Insert(ctx context.Context, c Class) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO clases (`+classColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, c.ID, c.TeacherID, c.Title, c.Description, c.Latitude, c.Longitude, c.CreatedAt, c.Active, c.QRURL)
	return err
}

// ListByTeacher returns active classes of a teacher, newest first.
func (r *Repository) ListByTeacher(ctx context.Context, teacherID string) ([]Class, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+classColumns+` FROM clases
		WHERE id_docente = $1 AND estado = TRUE
		ORDER BY fecha_creacion DESC
	`, teacherID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []Class
	for rows.Next() {
		var c Class
		if err := scanClass(rows, &c); err != nil {
			return nil, err
		}
		res = append(res, c)
	}
	return res, rows.Err()
}

// GetOwned returns an active class owned by the teacher, or nil.
func (r *Repository) GetOwned(ctx context.Context, id, teacherID string) (*Class, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+classColumns+` FROM clases
		WHERE id_clase = $1 AND id_docente = $2 AND estado = TRUE
	`, id, teacherID)
	return scanOne(row)
}

// ClassByID returns a class regardless of its active flag, or nil.
func (r *Repository) ClassByID(ctx context.Context, id string) (*Class, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, nil
	}
	row := r.db.QueryRowContext(ctx, `SELECT `+classColumns+` FROM clases WHERE id_clase = $1`, id)
	return scanOne(row)
}

// BelongsToTeacher reports whether classID is owned by teacherID.
func (r *Repository) BelongsToTeacher(ctx context.Context, classID, teacherID string) (bool, error) {
	if _, err := uuid.Parse(classID); err != nil {
		return false, nil
	}
	var ok bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM clases WHERE id_clase = $1 AND id_docente = $2)
	`, classID, teacherID).Scan(&ok)
	return ok, err
}

// CountByTeacher counts every class of a teacher, active or not.
func (r *Repository) CountByTeacher(ctx context.Context, teacherID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM clases WHERE id_docente = $1`, teacherID).Scan(&n)
	return n, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanClass(s scanner, c *Class) error {
	var desc, qr sql.NullString
	if err := s.Scan(&c.ID, &c.TeacherID, &c.Title, &desc, &c.Latitude, &c.Longitude, &c.CreatedAt, &c.Active, &qr); err != nil {
		return err
	}
	if desc.Valid {
		c.Description = &desc.String
	}
	if qr.Valid {
		c.QRURL = &qr.String
	}
	return nil
}

func scanOne(row *sql.Row) (*Class, error) {
	var c Class
	if err := scanClass(row, &c); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}
