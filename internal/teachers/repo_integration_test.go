//go:build testutil

package teachers

import (
	"context"
	"errors"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"qrattend/internal/testutil/testdb"
)

func TestRepositoryAgainstPostgres(t *testing.T) {
	ctx := context.Background()
	h, err := testdb.Start(ctx)
	if err != nil {
		t.Fatal(err)
	}
	defer h.Close()

	svc := NewService(NewRepository(h.DB), bcrypt.MinCost)

	ana, err := svc.Create(ctx, NewTeacher{Usuario: "ana", Contrasena: "secreto", Nombre: "Ana", Apellido: "Paz", Email: "ana@example.com"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Create(ctx, NewTeacher{Usuario: "ana", Contrasena: "x", Nombre: "A", Apellido: "B", Email: "otra@example.com"}); !errors.Is(err, ErrConflict) {
		t.Fatalf("duplicate usuario: err = %v", err)
	}
	if _, err := svc.Create(ctx, NewTeacher{Usuario: "otra", Contrasena: "x", Nombre: "A", Apellido: "B", Email: "ana@example.com"}); !errors.Is(err, ErrConflict) {
		t.Fatalf("duplicate email: err = %v", err)
	}

	if _, err := svc.Authenticate(ctx, "ana", "secreto"); err != nil {
		t.Fatalf("Authenticate: %v", err)
	}

	nombre := "Ana María"
	if _, err := svc.Update(ctx, ana.ID, Update{Nombre: &nombre}); err != nil {
		t.Fatal(err)
	}
	got, err := svc.Get(ctx, ana.ID)
	if err != nil || got.Nombre != nombre {
		t.Fatalf("Get = %+v, %v", got, err)
	}

	if err := svc.Deactivate(ctx, ana.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Authenticate(ctx, "ana", "secreto"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("inactive login: err = %v", err)
	}

	created, err := svc.EnsureAdmin(ctx, "admin", "admin123")
	if err != nil || !created {
		t.Fatalf("EnsureAdmin first = %v, %v", created, err)
	}
	if created, _ := svc.EnsureAdmin(ctx, "admin", "admin123"); created {
		t.Fatal("EnsureAdmin must be idempotent")
	}

	list, err := svc.List(ctx)
	if err != nil || len(list) != 2 {
		t.Fatalf("List = %d, %v", len(list), err)
	}
}
