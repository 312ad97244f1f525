// Package main applies or rolls back the embedded database migrations.
package main

import (
	"context"
	"database/sql"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"github.com/phorium/phorium/internal/migrate"
	"github.com/phorium/phorium/migrations"
)

func main() {
	_ = godotenv.Load()

	var (
		databaseURL = flag.String("database-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection string")
		down        = flag.Bool("down", false, "Roll back every migration instead of applying")
		timeout     = flag.Duration("timeout", 60*time.Second, "Overall timeout")
	)
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	if *databaseURL == "" {
		logger.Error("DATABASE_URL is required")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	db, err := sql.Open("postgres", *databaseURL)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		logger.Error("failed to ping database", "error", err)
		os.Exit(1)
	}

	if *down {
		err = migrate.Rollback(ctx, db, migrations.FS)
	} else {
		err = migrate.Apply(ctx, db, migrations.FS)
	}
	if err != nil {
		logger.Error("migration failed", "down", *down, "error", err)
		os.Exit(1)
	}

	logger.Info("migrations complete", "down", *down)
}
