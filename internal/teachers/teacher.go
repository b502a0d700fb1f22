package teachers

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrNotFound           = errors.New("teachers: not found")
	ErrConflict           = errors.New("teachers: usuario or email already in use")
	ErrInvalidCredentials = errors.New("teachers: invalid credentials")
)

// ValidationError reports a missing or malformed teacher field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("teachers: field %s: %s", e.Field, e.Reason)
}

// Teacher is an account that owns classes. PasswordHash never leaves the package as JSON.
type Teacher struct {
	ID           string    `json:"id"`
	Usuario      string    `json:"usuario"`
	PasswordHash string    `json:"-"`
	Nombre       string    `json:"nombre"`
	Apellido     string    `json:"apellido"`
	Email        string    `json:"email"`
	Active       bool      `json:"estado"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NewTeacher is the input of Create.
type NewTeacher struct {
	Usuario    string `json:"usuario"`
	Contrasena string `json:"contrasena"`
	Nombre     string `json:"nombre"`
	Apellido   string `json:"apellido"`
	Email      string `json:"email"`
}

// Update carries optional changes; nil fields are left untouched.
type Update struct {
	Nombre     *string `json:"nombre"`
	Apellido   *string `json:"apellido"`
	Email      *string `json:"email"`
	Contrasena *string `json:"contrasena"`
}

// Store is the persistence the service needs. Lookups return (nil, nil) when absent.
type Store interface {
	Insert(ctx context.Context, t Teacher) error
	GetByID(ctx context.Context, id string) (*Teacher, error)
	GetByUsuario(ctx context.Context, usuario string) (*Teacher, error)
	List(ctx context.Context) ([]Teacher, error)
	Save(ctx context.Context, t Teacher) error
}

// Service manages teacher accounts and credentials.
type Service struct {
	store Store
	cost  int
	now   func() time.Time
}

// NewService creates a service hashing passwords with the given bcrypt cost
// (bcrypt.DefaultCost when zero).
func NewService(store Store, cost int) *Service {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &Service{store: store, cost: cost, now: time.Now}
}

// Create registers a teacher. Duplicate usuario or email yields ErrConflict.
func (s *Service) Create(ctx context.Context, in NewTeacher) (Teacher, error) {
	fields := []struct{ name, value string }{
		{"usuario", in.Usuario},
		{"contrasena", in.Contrasena},
		{"nombre", in.Nombre},
		{"apellido", in.Apellido},
		{"email", in.Email},
	}
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			return Teacher{}, &ValidationError{Field: f.name, Reason: "required"}
		}
	}
	if _, err := mail.ParseAddress(in.Email); err != nil {
		return Teacher{}, &ValidationError{Field: "email", Reason: "invalid"}
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Contrasena), s.cost)
	if err != nil {
		return Teacher{}, &ValidationError{Field: "contrasena", Reason: err.Error()}
	}

	now := s.now().UTC()
	t := Teacher{
		ID:           uuid.NewString(),
		Usuario:      strings.TrimSpace(in.Usuario),
		PasswordHash: string(hash),
		Nombre:       strings.TrimSpace(in.Nombre),
		Apellido:     strings.TrimSpace(in.Apellido),
		Email:        strings.TrimSpace(in.Email),
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.Insert(ctx, t); err != nil {
		return Teacher{}, err
	}
	return t, nil
}

// Get returns one teacher or ErrNotFound.
func (s *Service) Get(ctx context.Context, id string) (Teacher, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Teacher{}, ErrNotFound
	}
	t, err := s.store.GetByID(ctx, id)
	if err != nil {
		return Teacher{}, err
	}
	if t == nil {
		return Teacher{}, ErrNotFound
	}
	return *t, nil
}

// List returns all teachers.
func (s *Service) List(ctx context.Context) ([]Teacher, error) {
	return s.store.List(ctx)
}

// Update applies a partial update.
func (s *Service) Update(ctx context.Context, id string, u Update) (Teacher, error) {
	t, err := s.Get(ctx, id)
	if err != nil {
		return Teacher{}, err
	}
	if u.Nombre != nil && strings.TrimSpace(*u.Nombre) != "" {
		t.Nombre = strings.TrimSpace(*u.Nombre)
	}
	if u.Apellido != nil && strings.TrimSpace(*u.Apellido) != "" {
		t.Apellido = strings.TrimSpace(*u.Apellido)
	}
	if u.Email != nil && strings.TrimSpace(*u.Email) != "" {
		if _, err := mail.ParseAddress(*u.Email); err != nil {
			return Teacher{}, &ValidationError{Field: "email", Reason: "invalid"}
		}
		t.Email = strings.TrimSpace(*u.Email)
	}
	if u.Contrasena != nil && *u.Contrasena != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(*u.Contrasena), s.cost)
		if err != nil {
			return Teacher{}, &ValidationError{Field: "contrasena", Reason: err.Error()}
		}
		t.PasswordHash = string(hash)
	}
	t.UpdatedAt = s.now().UTC()
	if err := s.store.Save(ctx, t); err != nil {
		return Teacher{}, err
	}
	return t, nil
}

// Deactivate soft-deletes a teacher.
func (s *Service) Deactivate(ctx context.Context, id string) error {
	t, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	t.Active = false
	t.UpdatedAt = s.now().UTC()
	return s.store.Save(ctx, t)
}

// Authenticate checks credentials. Unknown users, wrong passwords and inactive
// accounts are indistinguishable to the caller.
func (s *Service) Authenticate(ctx context.Context, usuario, contrasena string) (Teacher, error) {
	if usuario == "" || contrasena == "" {
		return Teacher{}, &ValidationError{Field: "usuario", Reason: "usuario y contrasena requeridos"}
	}
	t, err := s.store.GetByUsuario(ctx, usuario)
	if err != nil {
		return Teacher{}, err
	}
	if t == nil || !t.Active {
		return Teacher{}, ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(t.PasswordHash), []byte(contrasena)) != nil {
		return Teacher{}, ErrInvalidCredentials
	}
	return *t, nil
}

// EnsureAdmin creates the admin account when it does not exist yet.
// It reports whether an account was created.
func (s *Service) EnsureAdmin(ctx context.Context, usuario, contrasena string) (bool, error) {
	existing, err := s.store.GetByUsuario(ctx, usuario)
	if err != nil {
		return false, err
	}
	if existing != nil {
		return false, nil
	}
	_, err = s.Create(ctx, NewTeacher{
		Usuario:    usuario,
		Contrasena: contrasena,
		Nombre:     "Administrador",
		Apellido:   "Sistema",
		Email:      "admin@example.com",
	})
	if err != nil {
		return false, err
	}
	return true, nil
}
