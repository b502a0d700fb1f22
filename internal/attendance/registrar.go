package attendance

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"qrattend/internal/geo"
	"qrattend/internal/metrics"
)

// Column widths of the asistencias table.
const (
	maxLegajo   = 20
	maxNombre   = 100
	maxApellido = 100
	maxDNI      = 15
)

// Registrar validates check-ins, applies the proximity policy and records
// accepted attempts.
type Registrar struct {
	classes         ClassLookup
	records         Recorder
	threshold       ThresholdSource
	persistRejected bool
	notifier        Notifier
	now             func() time.Time
	log             *zap.Logger
}

// Option configures a Registrar.
type Option func(*Registrar)

// WithPersistRejected stores out-of-range attempts with a false pass flag.
// The caller still receives an OutOfRangeError.
func WithPersistRejected(on bool) Option {
	return func(r *Registrar) { r.persistRejected = on }
}

// WithClock overrides the submission timestamp source.
func WithClock(now func() time.Time) Option {
	return func(r *Registrar) { r.now = now }
}

// WithNotifier is told about every stored record, accepted or not.
func WithNotifier(n Notifier) Option {
	return func(r *Registrar) { r.notifier = n }
}

func WithLogger(l *zap.Logger) Option {
	return func(r *Registrar) { r.log = l }
}

// NewRegistrar wires the registrar to its collaborators.
func NewRegistrar(classes ClassLookup, records Recorder, threshold ThresholdSource, opts ...Option) *Registrar {
	r := &Registrar{
		classes:   classes,
		records:   records,
		threshold: threshold,
		now:       time.Now,
		log:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register runs one check-in through validation, class resolution, distance
// evaluation and persistence. Every failure is reported once, nothing is retried.
// The distance is rounded to centimeters before the inclusive threshold test,
// so 50.004 m passes a 50 m threshold.
func (r *Registrar) Register(ctx context.Context, in CheckIn) (Record, error) {
	student, err := validate(in)
	if err != nil {
		metrics.CheckIns.WithLabelValues(metrics.ResultInvalid).Inc()
		return Record{}, err
	}

	class, err := r.classes.ClassByID(ctx, in.ClassID)
	if err != nil {
		metrics.CheckIns.WithLabelValues(metrics.ResultStorageErr).Inc()
		r.log.Error("class lookup failed", zap.String("class_id", in.ClassID), zap.Error(err))
		return Record{}, &StorageError{Op: "lookup class", Err: err}
	}
	if class == nil {
		metrics.CheckIns.WithLabelValues(metrics.ResultNotFound).Inc()
		return Record{}, &NotFoundError{ClassID: in.ClassID}
	}

	distance := geo.Round2(geo.DistanceMeters(student, class.Location()))
	threshold := r.threshold.ProximityThresholdMeters(ctx)
	passed := geo.WithinRadius(distance, threshold)
	metrics.CheckInDistance.Observe(distance)

	rec := Record{
		ClassID:     class.ID,
		Legajo:      in.Legajo,
		Nombre:      in.Nombre,
		Apellido:    in.Apellido,
		DNI:         in.DNI,
		Latitude:    student.Lat,
		Longitude:   student.Lon,
		Distance:    &distance,
		Validated:   passed,
		SubmittedAt: r.now().UTC(),
	}

	if !passed {
		metrics.CheckIns.WithLabelValues(metrics.ResultRejected).Inc()
		rejection := &OutOfRangeError{Distance: distance, Threshold: threshold}
		if r.persistRejected {
			stored, err := r.records.CreateAttendance(ctx, rec)
			if err != nil {
				r.log.Error("store rejected check-in failed", zap.String("class_id", class.ID), zap.Error(err))
				return Record{}, &StorageError{Op: "create attendance", Err: err}
			}
			r.notify(ctx, stored)
		}
		return Record{}, rejection
	}

	stored, err := r.records.CreateAttendance(ctx, rec)
	if err != nil {
		metrics.CheckIns.WithLabelValues(metrics.ResultStorageErr).Inc()
		r.log.Error("store check-in failed", zap.String("class_id", class.ID), zap.Error(err))
		return Record{}, &StorageError{Op: "create attendance", Err: err}
	}
	metrics.CheckIns.WithLabelValues(metrics.ResultAccepted).Inc()
	r.notify(ctx, stored)
	return stored, nil
}

func (r *Registrar) notify(ctx context.Context, rec Record) {
	if r.notifier != nil {
		r.notifier.AttendanceRecorded(ctx, rec)
	}
}

// validate checks field presence and bounds and returns the student location.
// Text fields are stored verbatim; whitespace-only counts as missing.
func validate(in CheckIn) (geo.Point, error) {
	text := []struct {
		field, value string
		max          int
	}{
		{"classId", in.ClassID, 0},
		{"legajo_alumno", in.Legajo, maxLegajo},
		{"nombre_alumno", in.Nombre, maxNombre},
		{"apellido_alumno", in.Apellido, maxApellido},
		{"dni_alumno", in.DNI, maxDNI},
	}
	for _, f := range text {
		if strings.TrimSpace(f.value) == "" {
			return geo.Point{}, &ValidationError{Field: f.field, Reason: "required"}
		}
		if f.max > 0 && utf8.RuneCountInString(f.value) > f.max {
			return geo.Point{}, &ValidationError{Field: f.field, Reason: "too long"}
		}
	}
	if in.Latitude == nil {
		return geo.Point{}, &ValidationError{Field: "ubicacion_alumno_latitud", Reason: "required"}
	}
	if in.Longitude == nil {
		return geo.Point{}, &ValidationError{Field: "ubicacion_alumno_longitud", Reason: "required"}
	}
	p := geo.Point{Lat: *in.Latitude, Lon: *in.Longitude}
	if !p.Valid() {
		return geo.Point{}, &ValidationError{Field: "ubicacion_alumno", Reason: "out of range"}
	}
	return p, nil
}
