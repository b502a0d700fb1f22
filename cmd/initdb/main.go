// Command initdb applies migrations and seeds the admin account.
package main

import (
	"context"
	"log"
	"time"

	"go.uber.org/zap"

	"qrattend/internal/config"
	"qrattend/internal/logging"
	"qrattend/internal/store"
	"qrattend/internal/teachers"
)

func main() {
	cfg := config.Load()
	lg, err := logging.Init(cfg.LogLevel, cfg.Env)
	if err != nil {
		log.Fatalf("logger init failed: %v", err)
	}
	defer lg.Closer()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	db, err := store.NewDB(ctx, cfg.DatabaseURL)
	if err != nil {
		lg.Base.Fatal("db connect failed", zap.Error(err))
	}
	defer db.Close()

	if err := store.Migrate(db.Client); err != nil {
		lg.Base.Fatal("migrations failed", zap.Error(err))
	}

	svc := teachers.NewService(teachers.NewRepository(db.Client), 0)
	created, err := svc.EnsureAdmin(ctx, cfg.AdminUser, cfg.AdminPassword)
	if err != nil {
		lg.Base.Fatal("admin seed failed", zap.Error(err))
	}
	if created {
		lg.Base.Info("admin account created", zap.String("usuario", cfg.AdminUser))
	} else {
		lg.Base.Info("admin account already exists", zap.String("usuario", cfg.AdminUser))
	}
	lg.Base.Info("database initialised")
}
