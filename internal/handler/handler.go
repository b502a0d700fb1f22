// Package handler exposes the HTTP API consumed by the teacher dashboard and
// the student check-in form.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"qrattend/internal/attendance"
	"qrattend/internal/auth"
	"qrattend/internal/classes"
	"qrattend/internal/stats"
	"qrattend/internal/teachers"
)

type Registrar interface {
	Register(ctx context.Context, in attendance.CheckIn) (attendance.Record, error)
}

type AttendanceQuery interface {
	ListForTeacher(ctx context.Context, teacherID string, f attendance.Filter) ([]attendance.Listing, error)
	ParseDay(s string) (time.Time, error)
}

type TeacherService interface {
	Create(ctx context.Context, in teachers.NewTeacher) (teachers.Teacher, error)
	Get(ctx context.Context, id string) (teachers.Teacher, error)
	List(ctx context.Context) ([]teachers.Teacher, error)
	Update(ctx context.Context, id string, u teachers.Update) (teachers.Teacher, error)
	Deactivate(ctx context.Context, id string) error
	Authenticate(ctx context.Context, usuario, contrasena string) (teachers.Teacher, error)
}

type ClassService interface {
	Create(ctx context.Context, teacherID string, in classes.NewClass) (classes.Class, error)
	ListByTeacher(ctx context.Context, teacherID string) ([]classes.Class, error)
	GetOwned(ctx context.Context, id, teacherID string) (classes.Class, error)
	Public(ctx context.Context, id string) (classes.PublicInfo, error)
}

// ThresholdSettings reads and overrides the proximity threshold.
type ThresholdSettings interface {
	Current(ctx context.Context) (float64, bool, error)
	Default() float64
	Set(ctx context.Context, meters float64) error
	Reset(ctx context.Context) error
}

type QRRenderer interface {
	URL(classID string) string
	PNG(classID string, size int) ([]byte, error)
}

// CheckInCounters returns per-class counters maintained by the worker.
type CheckInCounters interface {
	Get(ctx context.Context, classIDs []string) (map[string]stats.Counts, error)
}

// Pinger reports dependency health for /healthz.
type Pinger interface {
	Healthy(ctx context.Context) bool
}

// Deps collects the collaborators of Handler. QR, Counters, CheckInLimit,
// LogLevel, DB and Redis may be nil.
type Deps struct {
	Registrar Registrar
	Query     AttendanceQuery
	Teachers  TeacherService
	Classes   ClassService
	Threshold ThresholdSettings
	QR        QRRenderer
	Counters  CheckInCounters

	JWTSecret string
	JWTIssuer string
	AccessTTL time.Duration
	AdminUser string
	Location  *time.Location

	CheckInLimit gin.HandlerFunc
	LogLevel     http.Handler // zap.AtomicLevel
	DB           Pinger
	Redis        Pinger
	Log          *zap.Logger
}

// Handler serves the /api routes.
type Handler struct {
	Deps
	now func() time.Time
}

func New(d Deps) *Handler {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if d.Location == nil {
		d.Location = time.UTC
	}
	return &Handler{Deps: d, now: time.Now}
}

// Routes mounts every endpoint on r.
func (h *Handler) Routes(r gin.IRouter) {
	r.GET("/healthz", h.health)

	api := r.Group("/api")

	api.POST("/auth/login", h.login)

	checkIn := []gin.HandlerFunc{}
	if h.CheckInLimit != nil {
		checkIn = append(checkIn, h.CheckInLimit)
	}
	api.POST("/asistencias", append(checkIn, h.registerAttendance)...)
	api.GET("/asistencias/clase/:id", h.publicClass)

	authed := api.Group("", auth.TeacherAuth(h.JWTSecret, h.JWTIssuer))
	authed.GET("/auth/check", h.checkSession)

	docentes := authed.Group("/docentes")
	docentes.GET("", h.listTeachers)
	docentes.GET("/:id", h.getTeacher)
	docentes.POST("", h.createTeacher)
	docentes.PUT("/:id", h.updateTeacher)
	docentes.DELETE("/:id", auth.RequireRole(auth.RoleAdmin), h.deactivateTeacher)

	clases := authed.Group("/clases")
	clases.POST("", h.createClass)
	clases.GET("/mis-clases", h.myClasses)
	clases.GET("/mis-asistencias", h.myAttendance)
	clases.GET("/mis-asistencias/export", h.exportAttendance)
	clases.GET("/:id", h.getClass)
	clases.GET("/:id/qr", h.classQR)

	admin := authed.Group("/admin", auth.RequireRole(auth.RoleAdmin))
	admin.GET("/umbral", h.getThreshold)
	admin.PUT("/umbral", h.putThreshold)
	if h.LogLevel != nil {
		admin.GET("/log-level", gin.WrapH(h.LogLevel))
		admin.PUT("/log-level", gin.WrapH(h.LogLevel))
	}
}

func (h *Handler) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	dbOK := h.DB != nil && h.DB.Healthy(ctx)
	redisOK := h.Redis != nil && h.Redis.Healthy(ctx)
	status, label := http.StatusOK, "ok"
	if !dbOK {
		status, label = http.StatusServiceUnavailable, "degraded"
	}
	c.JSON(status, gin.H{"status": label, "db": dbOK, "redis": redisOK})
}
