package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"

	"inkpress.org/internal/auth"
	"inkpress.org/internal/httpapi"
	"inkpress.org/internal/obs"
)

var version = "0.3.1"

func main() {
	_ = godotenv.Load()
	obs.Init()
	obs.InitBuildInfo(version, os.Getenv("INKPRESS_COMMIT"))

	secret := os.Getenv("INKPRESS_AUTH_SECRET")
	if secret == "" {
		log.Fatal("INKPRESS_AUTH_SECRET is required")
	}

	dsn := os.Getenv("INKPRESS_PG_DSN")
	if dsn == "" {
		log.Fatal("INKPRESS_PG_DSN is required")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	directory := auth.NewPGDirectory(db)
	svc, err := auth.NewService(directory, secret,
		auth.WithIssuer(os.Getenv("INKPRESS_AUTH_ISSUER")),
		auth.WithAccessTTL(envDays("INKPRESS_ACCESS_TTL_DAYS")),
		auth.WithRefreshTTL(envDays("INKPRESS_REFRESH_TTL_DAYS")),
	)
	if err != nil {
		log.Fatalf("auth service: %v", err)
	}

	// Revocation records for expired tokens are pure waste; prune them
	// in the background for the life of the process.
	sweepDone := make(chan struct{})
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if removed := svc.SweepExpired(time.Now()); removed > 0 {
					obs.LogEvent("auth.sweep", map[string]any{"removed": removed})
				}
			case <-sweepDone:
				return
			}
		}
	}()

	addr := os.Getenv("INKPRESS_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	api := httpapi.New(httpapi.ReadyProbe{DB: db}, version, svc, directory)

	srv := &http.Server{
		Addr:              addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting inkpress-api %s on %s", version, srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	close(sweepDone)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	_ = db.Close()
	log.Println("Stopped")
}

func envDays(key string) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return 0
	}
	days, err := strconv.Atoi(raw)
	if err != nil || days <= 0 {
		log.Fatalf("%s must be a positive integer, got %q", key, raw)
	}
	return time.Duration(days) * 24 * time.Hour
}
