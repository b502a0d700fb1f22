//go:build testutil

package attendance

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"qrattend/internal/classes"
	"qrattend/internal/teachers"
	"qrattend/internal/testutil/testdb"
)

func TestCheckInFlowAgainstPostgres(t *testing.T) {
	ctx := context.Background()
	h, err := testdb.Start(ctx)
	if err != nil {
		t.Fatal(err)
	}
	defer h.Close()

	ts := teachers.NewService(teachers.NewRepository(h.DB), bcrypt.MinCost)
	owner, err := ts.Create(ctx, teachers.NewTeacher{Usuario: "ana", Contrasena: "x", Nombre: "Ana", Apellido: "Paz", Email: "ana@example.com"})
	if err != nil {
		t.Fatal(err)
	}
	stranger, err := ts.Create(ctx, teachers.NewTeacher{Usuario: "luis", Contrasena: "x", Nombre: "Luis", Apellido: "Sosa", Email: "luis@example.com"})
	if err != nil {
		t.Fatal(err)
	}

	classRepo := classes.NewRepository(h.DB)
	lat, lon := -34.6037, -58.3816
	cls, err := classes.NewService(classRepo, nil, nil).Create(ctx, owner.ID, classes.NewClass{Title: "Física I", Latitude: &lat, Longitude: &lon})
	if err != nil {
		t.Fatal(err)
	}

	repo := NewRepository(h.DB)
	clock := time.Date(2026, 3, 10, 13, 0, 0, 0, time.UTC)
	reg := NewRegistrar(classRepo, repo, staticThreshold(50), WithClock(func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}))

	in := CheckIn{ClassID: cls.ID, Legajo: "A-1", Nombre: "Eva", Apellido: "Gil", DNI: "30111222", Latitude: ptr(-34.6037), Longitude: ptr(-58.3820)}
	first, err := reg.Register(ctx, in)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := reg.Register(ctx, in); err != nil {
		t.Fatal(err)
	}

	stored, err := repo.GetAttendance(ctx, first.ID)
	if err != nil || stored == nil {
		t.Fatalf("GetAttendance = %v, %v", stored, err)
	}
	if stored.Distance == nil || *stored.Distance != *first.Distance || !stored.Validated {
		t.Fatalf("stored = %+v", stored)
	}

	far := in
	far.Latitude = ptr(-34.6037 + 0.009)
	if _, err := reg.Register(ctx, far); !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("far err = %v", err)
	}

	unknown := in
	unknown.ClassID = "4c1f0a7e-0000-4000-8000-000000000000"
	if _, err := reg.Register(ctx, unknown); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown class err = %v", err)
	}

	q := NewQuery(classRepo, repo, time.UTC)
	rows, err := q.ListForTeacher(ctx, owner.ID, Filter{ClassID: cls.ID})
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	if !rows[0].SubmittedAt.After(rows[1].SubmittedAt) || rows[0].Class.Titulo != "Física I" {
		t.Fatalf("rows = %+v", rows)
	}

	day, _ := q.ParseDay("2026-03-11")
	if rows, _ := q.ListForTeacher(ctx, owner.ID, Filter{Day: day}); len(rows) != 0 {
		t.Fatalf("other day rows = %d", len(rows))
	}

	if _, err := q.ListForTeacher(ctx, stranger.ID, Filter{}); !errors.Is(err, ErrNoClasses) {
		t.Fatalf("stranger err = %v", err)
	}
}
