package teachers

import (
	"context"
	"database/sql"
	"errors"

	"qrattend/internal/store"
)

// Repository persists teachers in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const teacherColumns = `id_docente, usuario, contrasena, nombre, apellido, email, estado, created_at, updated_at`

// Insert stores a new teacher, mapping unique violations to ErrConflict.
func (r *Repository) Insert(ctx context.Context, t Teacher) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO docentes (`+teacherColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, t.ID, t.Usuario, t.PasswordHash, t.Nombre, t.Apellido, t.Email, t.Active, t.CreatedAt, t.UpdatedAt)
	return mapUnique(err)
}

// Save overwrites the mutable columns of a teacher.
func (r *Repository) Save(ctx context.Context, t Teacher) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE docentes
		SET contrasena = $2, nombre = $3, apellido = $4, email = $5, estado = $6, updated_at = $7
		WHERE id_docente = $1
	`, t.ID, t.PasswordHash, t.Nombre, t.Apellido, t.Email, t.Active, t.UpdatedAt)
	if err != nil {
		return mapUnique(err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// GetByID returns a teacher or nil.
func (r *Repository) GetByID(ctx context.Context, id string) (*Teacher, error) {
	return r.getOne(ctx, `SELECT `+teacherColumns+` FROM docentes WHERE id_docente = $1`, id)
}

// GetByUsuario returns a teacher or nil.
func (r *Repository) GetByUsuario(ctx context.Context, usuario string) (*Teacher, error) {
	return r.getOne(ctx, `SELECT `+teacherColumns+` FROM docentes WHERE usuario = $1`, usuario)
}

// List returns all teachers ordered by usuario.
func (r *Repository) List(ctx context.Context) ([]Teacher, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+teacherColumns+` FROM docentes ORDER BY usuario`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []Teacher
	for rows.Next() {
		var t Teacher
		if err := rows.Scan(&t.ID, &t.Usuario, &t.PasswordHash, &t.Nombre, &t.Apellido, &t.Email, &t.Active, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		res = append(res, t)
	}
	return res, rows.Err()
}

func (r *Repository) getOne(ctx context.Context, query string, arg any) (*Teacher, error) {
	var t Teacher
	err := r.db.QueryRowContext(ctx, query, arg).
		Scan(&t.ID, &t.Usuario, &t.PasswordHash, &t.Nombre, &t.Apellido, &t.Email, &t.Active, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func mapUnique(err error) error {
	if store.IsUniqueViolation(err) {
		return ErrConflict
	}
	return err
}
