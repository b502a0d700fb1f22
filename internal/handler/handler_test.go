package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"qrattend/internal/attendance"
	"qrattend/internal/auth"
	"qrattend/internal/classes"
	"qrattend/internal/stats"
	"qrattend/internal/teachers"
)

const (
	secret    = "test-secret"
	issuer    = "qrattend-test"
	teacherID = "6a1d2b8e-41f4-4a55-9d8c-0f6f7f3c2a11"
	classID   = "0b0e7a52-3f34-4d39-8d7e-5a3b4b2c9f10"
)

type fakeRegistrar struct {
	rec attendance.Record
	err error
}

func (f fakeRegistrar) Register(context.Context, attendance.CheckIn) (attendance.Record, error) {
	return f.rec, f.err
}

type fakeQuery struct {
	rows []attendance.Listing
	err  error
	got  attendance.Filter
}

func (f *fakeQuery) ListForTeacher(_ context.Context, _ string, filter attendance.Filter) ([]attendance.Listing, error) {
	f.got = filter
	return f.rows, f.err
}

func (f *fakeQuery) ParseDay(s string) (time.Time, error) {
	return attendance.NewQuery(nil, nil, time.UTC).ParseDay(s)
}

type fakeTeachers struct {
	teacher teachers.Teacher
	err     error
	writes  *[]string // ids passed to Update and Deactivate
}

func (f fakeTeachers) Create(context.Context, teachers.NewTeacher) (teachers.Teacher, error) {
	return f.teacher, f.err
}
func (f fakeTeachers) Get(context.Context, string) (teachers.Teacher, error) { return f.teacher, f.err }
func (f fakeTeachers) List(context.Context) ([]teachers.Teacher, error) {
	return []teachers.Teacher{f.teacher}, f.err
}
func (f fakeTeachers) Update(_ context.Context, id string, _ teachers.Update) (teachers.Teacher, error) {
	if f.writes != nil {
		*f.writes = append(*f.writes, "update "+id)
	}
	return f.teacher, f.err
}
func (f fakeTeachers) Deactivate(_ context.Context, id string) error {
	if f.writes != nil {
		*f.writes = append(*f.writes, "deactivate "+id)
	}
	return f.err
}
func (f fakeTeachers) Authenticate(_ context.Context, usuario, pass string) (teachers.Teacher, error) {
	if f.err != nil {
		return teachers.Teacher{}, f.err
	}
	if usuario != f.teacher.Usuario || pass != "secreto" {
		return teachers.Teacher{}, teachers.ErrInvalidCredentials
	}
	return f.teacher, nil
}

type fakeClasses struct {
	list []classes.Class
	err  error
}

func (f fakeClasses) Create(_ context.Context, tid string, in classes.NewClass) (classes.Class, error) {
	if f.err != nil {
		return classes.Class{}, f.err
	}
	return classes.Class{ID: classID, TeacherID: tid, Title: in.Title, Active: true}, nil
}
func (f fakeClasses) ListByTeacher(context.Context, string) ([]classes.Class, error) { return f.list, f.err }
func (f fakeClasses) GetOwned(_ context.Context, id, _ string) (classes.Class, error) {
	for _, c := range f.list {
		if c.ID == id {
			return c, nil
		}
	}
	return classes.Class{}, classes.ErrNotFound
}
func (f fakeClasses) Public(_ context.Context, id string) (classes.PublicInfo, error) {
	c, err := f.GetOwned(context.Background(), id, "")
	if err != nil {
		return classes.PublicInfo{}, err
	}
	return classes.PublicInfo{ID: c.ID, Title: c.Title}, nil
}

type fakeThreshold struct {
	value float64
	set   bool
}

func (f *fakeThreshold) Current(context.Context) (float64, bool, error) { return f.value, f.set, nil }
func (f *fakeThreshold) Default() float64                               { return 50 }
func (f *fakeThreshold) Set(_ context.Context, v float64) error {
	f.value, f.set = v, true
	return nil
}
func (f *fakeThreshold) Reset(context.Context) error {
	f.value, f.set = 50, false
	return nil
}

type fakeQR struct{}

func (fakeQR) URL(id string) string            { return "http://front/asistencias/" + id }
func (fakeQR) PNG(string, int) ([]byte, error) { return []byte("\x89PNG"), nil }

type fakeCounters map[string]stats.Counts

func (f fakeCounters) Get(context.Context, []string) (map[string]stats.Counts, error) { return f, nil }

func newTestHandler(d Deps) *gin.Engine {
	gin.SetMode(gin.TestMode)
	d.JWTSecret, d.JWTIssuer, d.AccessTTL, d.AdminUser = secret, issuer, time.Hour, "admin"
	if d.Query == nil {
		d.Query = &fakeQuery{}
	}
	if d.Teachers == nil {
		d.Teachers = fakeTeachers{}
	}
	if d.Classes == nil {
		d.Classes = fakeClasses{}
	}
	if d.Threshold == nil {
		d.Threshold = &fakeThreshold{value: 50}
	}
	if d.QR == nil {
		d.QR = fakeQR{}
	}
	r := gin.New()
	New(d).Routes(r)
	return r
}

func token(t *testing.T, role string) string {
	t.Helper()
	tok, err := auth.Issue(teacherID, "ana", role, issuer, secret, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	return tok.AccessToken
}

func do(r http.Handler, method, path, tok string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func message(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return body.Message
}

func TestRegisterAttendanceStatusMapping(t *testing.T) {
	d := 36.61
	cases := []struct {
		name    string
		reg     fakeRegistrar
		body    any
		status  int
		message string
	}{
		{"accepted", fakeRegistrar{rec: attendance.Record{ID: "r1", Distance: &d, Validated: true}}, map[string]any{"classId": classID},
			http.StatusCreated, "Asistencia registrada correctamente."},
		{"missing field", fakeRegistrar{err: &attendance.ValidationError{Field: "dni_alumno", Reason: "required"}}, map[string]any{},
			http.StatusBadRequest, "Todos los campos son obligatorios."},
		{"bad coordinate", fakeRegistrar{err: &attendance.ValidationError{Field: "ubicacion_alumno", Reason: "out of range"}}, map[string]any{},
			http.StatusBadRequest, "El campo ubicacion_alumno es inválido."},
		{"unknown class", fakeRegistrar{err: &attendance.NotFoundError{ClassID: classID}}, map[string]any{},
			http.StatusNotFound, "Clase no encontrada."},
		{"too far", fakeRegistrar{err: &attendance.OutOfRangeError{Distance: 1000.25, Threshold: 50}}, map[string]any{},
			http.StatusBadRequest, "Estás demasiado lejos del aula para registrar asistencia. Distancia: 1000.25 metros."},
		{"storage", fakeRegistrar{err: &attendance.StorageError{Op: "create attendance", Err: errors.New("pq: password leaked")}}, map[string]any{},
			http.StatusInternalServerError, "Error interno del servidor al registrar asistencia."},
		{"malformed json", fakeRegistrar{}, "not an object",
			http.StatusBadRequest, "Todos los campos son obligatorios."},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := newTestHandler(Deps{Registrar: tc.reg})
			w := do(r, http.MethodPost, "/api/asistencias", "", tc.body)
			if w.Code != tc.status {
				t.Fatalf("status = %d, want %d (%s)", w.Code, tc.status, w.Body.String())
			}
			if got := message(t, w); got != tc.message {
				t.Fatalf("message = %q, want %q", got, tc.message)
			}
			if strings.Contains(w.Body.String(), "password leaked") {
				t.Fatal("storage detail leaked to client")
			}
		})
	}
}

func TestCheckInLimiterApplied(t *testing.T) {
	blocked := func(c *gin.Context) { c.AbortWithStatus(http.StatusTooManyRequests) }
	r := newTestHandler(Deps{Registrar: fakeRegistrar{}, CheckInLimit: blocked})
	if w := do(r, http.MethodPost, "/api/asistencias", "", map[string]any{}); w.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestMyAttendance(t *testing.T) {
	ts := time.Date(2026, 3, 10, 13, 0, 0, 0, time.UTC)

	t.Run("requires token", func(t *testing.T) {
		r := newTestHandler(Deps{})
		if w := do(r, http.MethodGet, "/api/clases/mis-asistencias", "", nil); w.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d", w.Code)
		}
	})

	t.Run("no classes is an empty list", func(t *testing.T) {
		r := newTestHandler(Deps{Query: &fakeQuery{err: attendance.ErrNoClasses}})
		w := do(r, http.MethodGet, "/api/clases/mis-asistencias", token(t, auth.RoleTeacher), nil)
		if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"asistencias":[]`) {
			t.Fatalf("got %d %s", w.Code, w.Body.String())
		}
	})

	t.Run("foreign class", func(t *testing.T) {
		r := newTestHandler(Deps{Query: &fakeQuery{err: &attendance.ForbiddenError{ClassID: classID}}})
		w := do(r, http.MethodGet, "/api/clases/mis-asistencias?claseId="+classID, token(t, auth.RoleTeacher), nil)
		if w.Code != http.StatusForbidden {
			t.Fatalf("status = %d", w.Code)
		}
	})

	t.Run("bad date", func(t *testing.T) {
		r := newTestHandler(Deps{})
		w := do(r, http.MethodGet, "/api/clases/mis-asistencias?fecha=10-03-2026", token(t, auth.RoleTeacher), nil)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("status = %d", w.Code)
		}
	})

	t.Run("filters and class title", func(t *testing.T) {
		q := &fakeQuery{rows: []attendance.Listing{{
			Record: attendance.Record{ID: "r1", ClassID: classID, SubmittedAt: ts},
			Class:  attendance.ClassRef{Titulo: "Física I"},
		}}}
		r := newTestHandler(Deps{Query: q})
		w := do(r, http.MethodGet, "/api/clases/mis-asistencias?claseId="+classID+"&fecha=2026-03-10", token(t, auth.RoleTeacher), nil)
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d", w.Code)
		}
		if q.got.ClassID != classID || q.got.Day.IsZero() {
			t.Fatalf("filter = %+v", q.got)
		}
		if !strings.Contains(w.Body.String(), `"Clase":{"titulo":"Física I"}`) {
			t.Fatalf("body = %s", w.Body.String())
		}
	})
}

func TestExportAttendance(t *testing.T) {
	t.Run("no classes", func(t *testing.T) {
		r := newTestHandler(Deps{Query: &fakeQuery{err: attendance.ErrNoClasses}})
		w := do(r, http.MethodGet, "/api/clases/mis-asistencias/export", token(t, auth.RoleTeacher), nil)
		if w.Code != http.StatusNotFound {
			t.Fatalf("status = %d", w.Code)
		}
	})

	t.Run("foreign class", func(t *testing.T) {
		r := newTestHandler(Deps{Query: &fakeQuery{err: &attendance.ForbiddenError{ClassID: classID}}})
		w := do(r, http.MethodGet, "/api/clases/mis-asistencias/export?claseId="+classID, token(t, auth.RoleTeacher), nil)
		if w.Code != http.StatusForbidden || message(t, w) != "No tienes permiso para exportar asistencias de esta clase." {
			t.Fatalf("got %d %s", w.Code, w.Body.String())
		}
	})

	t.Run("workbook", func(t *testing.T) {
		r := newTestHandler(Deps{Query: &fakeQuery{rows: []attendance.Listing{{Record: attendance.Record{Legajo: "A-1"}}}}})
		w := do(r, http.MethodGet, "/api/clases/mis-asistencias/export", token(t, auth.RoleTeacher), nil)
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d", w.Code)
		}
		if !strings.HasPrefix(w.Header().Get("Content-Disposition"), "attachment; filename=") {
			t.Fatalf("disposition = %q", w.Header().Get("Content-Disposition"))
		}
		if !bytes.HasPrefix(w.Body.Bytes(), []byte("PK")) {
			t.Fatal("body is not an xlsx archive")
		}
	})
}

func TestLogin(t *testing.T) {
	admin := teachers.Teacher{ID: teacherID, Usuario: "admin", Active: true}
	r := newTestHandler(Deps{Teachers: fakeTeachers{teacher: admin}})

	w := do(r, http.MethodPost, "/api/auth/login", "", map[string]string{"usuario": "admin", "contrasena": "secreto"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d %s", w.Code, w.Body.String())
	}
	var body struct {
		Token string `json:"token"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	claims, err := auth.Parse(body.Token, secret, issuer)
	if err != nil {
		t.Fatal(err)
	}
	if claims.Role != auth.RoleAdmin || claims.Subject != teacherID {
		t.Fatalf("claims = %+v", claims)
	}

	if w := do(r, http.MethodPost, "/api/auth/login", "", map[string]string{"usuario": "admin", "contrasena": "x"}); w.Code != http.StatusUnauthorized {
		t.Fatalf("wrong password status = %d", w.Code)
	}
	if w := do(r, http.MethodPost, "/api/auth/login", "", map[string]string{"usuario": "admin"}); w.Code != http.StatusBadRequest {
		t.Fatalf("missing password status = %d", w.Code)
	}
}

func TestTeacherConflict(t *testing.T) {
	r := newTestHandler(Deps{Teachers: fakeTeachers{err: teachers.ErrConflict}})
	w := do(r, http.MethodPost, "/api/docentes", token(t, auth.RoleTeacher), map[string]string{"usuario": "x"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestAdminLogLevel(t *testing.T) {
	lvl := zap.NewAtomicLevelAt(zap.InfoLevel)
	r := newTestHandler(Deps{LogLevel: lvl})

	if w := do(r, http.MethodPut, "/api/admin/log-level", token(t, auth.RoleTeacher), map[string]string{"level": "debug"}); w.Code != http.StatusForbidden {
		t.Fatalf("teacher status = %d", w.Code)
	}
	if lvl.Level() != zap.InfoLevel {
		t.Fatalf("level changed by teacher: %s", lvl.Level())
	}
	w := do(r, http.MethodPut, "/api/admin/log-level", token(t, auth.RoleAdmin), map[string]string{"level": "debug"})
	if w.Code != http.StatusOK || lvl.Level() != zap.DebugLevel {
		t.Fatalf("got %d %s, level %s", w.Code, w.Body.String(), lvl.Level())
	}
	w = do(r, http.MethodGet, "/api/admin/log-level", token(t, auth.RoleAdmin), nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"level":"debug"`) {
		t.Fatalf("get: %d %s", w.Code, w.Body.String())
	}
}

func TestTeacherWritesNeedOwnershipOrAdmin(t *testing.T) {
	const otherID = "9f3c1e44-7a2b-4c1d-8e5f-1a2b3c4d5e6f"
	var writes []string
	r := newTestHandler(Deps{Teachers: fakeTeachers{teacher: teachers.Teacher{ID: otherID}, writes: &writes}})
	teacher, admin := token(t, auth.RoleTeacher), token(t, auth.RoleAdmin)
	body := map[string]string{"contrasena": "x"}

	cases := []struct {
		name   string
		method string
		id     string
		tok    string
		status int
	}{
		{"teacher updates another teacher", http.MethodPut, otherID, teacher, http.StatusForbidden},
		{"teacher deactivates another teacher", http.MethodDelete, otherID, teacher, http.StatusForbidden},
		{"teacher deactivates self", http.MethodDelete, teacherID, teacher, http.StatusForbidden},
		{"teacher updates self", http.MethodPut, teacherID, teacher, http.StatusOK},
		{"admin updates another teacher", http.MethodPut, otherID, admin, http.StatusOK},
		{"admin deactivates another teacher", http.MethodDelete, otherID, admin, http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			writes = writes[:0]
			w := do(r, tc.method, "/api/docentes/"+tc.id, tc.tok, body)
			if w.Code != tc.status {
				t.Fatalf("status = %d, want %d (%s)", w.Code, tc.status, w.Body.String())
			}
			if tc.status == http.StatusForbidden && len(writes) != 0 {
				t.Fatalf("service called despite 403: %v", writes)
			}
			if tc.status == http.StatusOK && len(writes) != 1 {
				t.Fatalf("writes = %v", writes)
			}
		})
	}
}

func TestAdminThreshold(t *testing.T) {
	th := &fakeThreshold{value: 50}
	r := newTestHandler(Deps{Threshold: th})

	if w := do(r, http.MethodGet, "/api/admin/umbral", token(t, auth.RoleTeacher), nil); w.Code != http.StatusForbidden {
		t.Fatalf("teacher status = %d", w.Code)
	}
	w := do(r, http.MethodPut, "/api/admin/umbral", token(t, auth.RoleAdmin), map[string]float64{"umbral_metros": 75})
	if w.Code != http.StatusOK || th.value != 75 || !th.set {
		t.Fatalf("got %d %s, threshold %+v", w.Code, w.Body.String(), th)
	}
	if w := do(r, http.MethodPut, "/api/admin/umbral", token(t, auth.RoleAdmin), map[string]float64{"umbral_metros": -1}); w.Code != http.StatusBadRequest {
		t.Fatalf("negative status = %d", w.Code)
	}
	if w := do(r, http.MethodPut, "/api/admin/umbral", token(t, auth.RoleAdmin), map[string]any{"umbral_metros": nil}); w.Code != http.StatusOK || th.set {
		t.Fatalf("reset: %d, threshold %+v", w.Code, th)
	}
}

func TestClassesRoutes(t *testing.T) {
	cls := classes.Class{ID: classID, TeacherID: teacherID, Title: "Física I", Active: true}
	r := newTestHandler(Deps{
		Classes:  fakeClasses{list: []classes.Class{cls}},
		Counters: fakeCounters{classID: {Accepted: 3, Rejected: 1}},
	})
	tok := token(t, auth.RoleTeacher)

	w := do(r, http.MethodGet, "/api/clases/mis-clases", tok, nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"asistencias":{"aceptadas":3,"rechazadas":1}`) {
		t.Fatalf("mis-clases: %d %s", w.Code, w.Body.String())
	}

	w = do(r, http.MethodGet, "/api/clases/"+classID+"/qr", tok, nil)
	if w.Code != http.StatusOK || w.Header().Get("Content-Type") != "image/png" {
		t.Fatalf("qr: %d %q", w.Code, w.Header().Get("Content-Type"))
	}

	if w := do(r, http.MethodGet, "/api/clases/4c1f0a7e-0000-4000-8000-000000000000", tok, nil); w.Code != http.StatusNotFound {
		t.Fatalf("unknown class status = %d", w.Code)
	}

	w = do(r, http.MethodPost, "/api/clases", tok, map[string]any{"titulo": "Química"})
	if w.Code != http.StatusCreated || !strings.Contains(w.Body.String(), "http://front/asistencias/"+classID) {
		t.Fatalf("create: %d %s", w.Code, w.Body.String())
	}

	w = do(r, http.MethodGet, "/api/asistencias/clase/"+classID, "", nil)
	if w.Code != http.StatusOK || strings.Contains(w.Body.String(), "ubicacion_latitud") {
		t.Fatalf("public class: %d %s", w.Code, w.Body.String())
	}
}

func TestClassQRWithoutRenderer(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cls := classes.Class{ID: classID, TeacherID: teacherID, Active: true}
	r := gin.New()
	New(Deps{JWTSecret: secret, JWTIssuer: issuer, Classes: fakeClasses{list: []classes.Class{cls}}}).Routes(r)

	w := do(r, http.MethodGet, "/api/clases/"+classID+"/qr", token(t, auth.RoleTeacher), nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d (%s)", w.Code, w.Body.String())
	}
	w = do(r, http.MethodGet, "/api/clases/"+classID, token(t, auth.RoleTeacher), nil)
	if w.Code != http.StatusOK || strings.Contains(w.Body.String(), "enlace_asistencia") {
		t.Fatalf("class without link: %d %s", w.Code, w.Body.String())
	}
}

func TestHealth(t *testing.T) {
	r := newTestHandler(Deps{})
	if w := do(r, http.MethodGet, "/healthz", "", nil); w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status without db = %d", w.Code)
	}
}
