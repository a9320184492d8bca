// Package main runs the stand-in bookstore backend.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Skotchmaster/bookstore/internal/config"
	"github.com/Skotchmaster/bookstore/internal/devserver"
	"github.com/Skotchmaster/bookstore/pkg/db"
	"github.com/Skotchmaster/bookstore/pkg/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	srv := cfg.Server
	if err := srv.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logging.New(cfg.LogLevel)

	initCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	gdb, err := db.Open(initCtx, srv.DatabaseURL)
	if err == nil {
		err = devserver.Migrate(initCtx, gdb)
	}
	if err == nil {
		err = devserver.Seed(initCtx, gdb, &devserver.SeedAdmin{Email: srv.AdminEmail, Password: srv.AdminPassword})
	}
	cancel()
	if err != nil {
		log.Fatalf("db init error: %v", err)
	}
	defer db.Close(gdb)

	e := devserver.New(gdb, devserver.Options{
		JWTSecret:     srv.JWTSecret,
		RefreshSecret: srv.RefreshSecret,
		AccessTTL:     srv.AccessTTL,
		RefreshTTL:    srv.RefreshTTL,
	}, logger)

	go func() {
		logger.Info("devserver_listening", "port", srv.Port)
		if err := e.Start(":" + srv.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("echo start: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("echo_shutdown_failed", "error", err)
	}
}
