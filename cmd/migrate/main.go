package main

import (
	"flag"
	"log/slog"
	"os"

	"github.com/pribylovaa/propertia-auth/internal/db/migrate"
)

func main() {
	var dsn, direction string
	flag.StringVar(&dsn, "dsn", os.Getenv("DATABASE_URL"), "postgres connection string (default $DATABASE_URL)")
	flag.StringVar(&direction, "direction", "up", "migration direction: up or down")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stdout, nil))

	if err := migrate.Run(dsn, direction); err != nil {
		log.Error("migrate_failed", slog.String("direction", direction), slog.String("err", err.Error()))
		os.Exit(1)
	}

	log.Info("migrate_done", slog.String("direction", direction))
}
