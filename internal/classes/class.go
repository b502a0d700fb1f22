package classes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"qrattend/internal/geo"
)

var ErrNotFound = errors.New("classes: not found")

// ValidationError reports an invalid field of a new class.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("classes: field %s: %s", e.Field, e.Reason)
}

// Class is a teacher-owned attendance session anchored to a classroom location.
// Its fields do not change after creation.
type Class struct {
	ID          string    `json:"id_clase"`
	TeacherID   string    `json:"id_docente"`
	Title       string    `json:"titulo"`
	Description *string   `json:"descripcion"`
	Latitude    float64   `json:"ubicacion_latitud"`
	Longitude   float64   `json:"ubicacion_longitud"`
	CreatedAt   time.Time `json:"fecha_creacion"`
	Active      bool      `json:"estado"`
	QRURL       *string   `json:"qr_url,omitempty"`
}

// Location is the canonical classroom coordinate.
func (c Class) Location() geo.Point {
	return geo.Point{Lat: c.Latitude, Lon: c.Longitude}
}

// NewClass is the input of Create.
type NewClass struct {
	Title       string   `json:"titulo"`
	Description *string  `json:"descripcion"`
	Latitude    *float64 `json:"ubicacion_latitud"`
	Longitude   *float64 `json:"ubicacion_longitud"`
}

// Store is the persistence the service needs.
type Store interface {
	Insert(ctx context.Context, c Class) error
	ListByTeacher(ctx context.Context, teacherID string) ([]Class, error)
	GetOwned(ctx context.Context, id, teacherID string) (*Class, error)
	ClassByID(ctx context.Context, id string) (*Class, error)
}

// QRPublisher hosts the QR image of a class and returns its public URL.
type QRPublisher interface {
	PublishQR(ctx context.Context, classID string) (string, error)
}

// Service implements class management for authenticated teachers.
type Service struct {
	store Store
	qr    QRPublisher
	now   func() time.Time
	log   *zap.Logger
}

// NewService creates a service. qr may be nil.
func NewService(store Store, qr QRPublisher, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{store: store, qr: qr, now: time.Now, log: log}
}

// Create validates and stores a class owned by teacherID.
func (s *Service) Create(ctx context.Context, teacherID string, in NewClass) (Class, error) {
	title := strings.TrimSpace(in.Title)
	switch {
	case title == "":
		return Class{}, &ValidationError{Field: "titulo", Reason: "required"}
	case utf8.RuneCountInString(title) > 100:
		return Class{}, &ValidationError{Field: "titulo", Reason: "too long"}
	case in.Latitude == nil || in.Longitude == nil:
		return Class{}, &ValidationError{Field: "ubicacion", Reason: "required"}
	}
	loc := geo.Point{Lat: *in.Latitude, Lon: *in.Longitude}
	if !loc.Valid() {
		return Class{}, &ValidationError{Field: "ubicacion", Reason: "out of range"}
	}

	c := Class{
		ID:          uuid.NewString(),
		TeacherID:   teacherID,
		Title:       title,
		Description: normalizeDescription(in.Description),
		Latitude:    loc.Lat,
		Longitude:   loc.Lon,
		CreatedAt:   s.now().UTC(),
		Active:      true,
	}

	if s.qr != nil {
		url, err := s.qr.PublishQR(ctx, c.ID)
		if err != nil {
			s.log.Warn("qr publish failed", zap.String("class_id", c.ID), zap.Error(err))
		} else {
			c.QRURL = &url
		}
	}

	if err := s.store.Insert(ctx, c); err != nil {
		return Class{}, err
	}
	return c, nil
}

// ListByTeacher returns the teacher's active classes, newest first.
func (s *Service) ListByTeacher(ctx context.Context, teacherID string) ([]Class, error) {
	return s.store.ListByTeacher(ctx, teacherID)
}

// GetOwned returns an active class owned by teacherID or ErrNotFound.
func (s *Service) GetOwned(ctx context.Context, id, teacherID string) (Class, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Class{}, ErrNotFound
	}
	c, err := s.store.GetOwned(ctx, id, teacherID)
	if err != nil {
		return Class{}, err
	}
	if c == nil {
		return Class{}, ErrNotFound
	}
	return *c, nil
}

// PublicInfo is what the check-in form may show about a class.
type PublicInfo struct {
	ID          string  `json:"id_clase"`
	Title       string  `json:"titulo"`
	Description *string `json:"descripcion"`
}

// Public returns the form-facing view of an active class.
func (s *Service) Public(ctx context.Context, id string) (PublicInfo, error) {
	if _, err := uuid.Parse(id); err != nil {
		return PublicInfo{}, ErrNotFound
	}
	c, err := s.store.ClassByID(ctx, id)
	if err != nil {
		return PublicInfo{}, err
	}
	if c == nil || !c.Active {
		return PublicInfo{}, ErrNotFound
	}
	return PublicInfo{ID: c.ID, Title: c.Title, Description: c.Description}, nil
}

func normalizeDescription(d *string) *string {
	if d == nil {
		return nil
	}
	v := strings.TrimSpace(*d)
	if v == "" {
		return nil
	}
	return &v
}
