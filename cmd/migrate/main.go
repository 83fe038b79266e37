package main

import (
	"context"
	"flag"

	"vsbridge/internal/config"
	"vsbridge/internal/db"
	"vsbridge/internal/logging"
	"vsbridge/internal/migrate"
)

func main() {
	var (
		down    int
		version bool
	)
	flag.IntVar(&down, "down", 0, "Roll back this many migrations instead of applying")
	flag.BoolVar(&version, "version", false, "Print the applied schema version and exit")
	flag.Parse()

	cfg := config.FromEnv()
	logger := logging.New(cfg.LogLevel, cfg.LogFormat).WithField("component", "migrate")

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DBConnString, db.Options{MaxConns: cfg.DBMaxConns}, logger)
	if err != nil {
		logger.WithError(err).Fatal("connect db")
	}
	defer pool.Close()

	switch {
	case version:
		v, dirty, err := migrate.Version(ctx, pool)
		if err != nil {
			logger.WithError(err).Fatal("read schema version")
		}
		logger.WithField("version", v).WithField("dirty", dirty).Info("schema version")
	case down > 0:
		if err := migrate.Rollback(ctx, pool, down); err != nil {
			logger.WithError(err).Fatal("roll back migrations")
		}
		logger.WithField("steps", down).Info("migrations rolled back")
	default:
		if err := migrate.Apply(ctx, pool); err != nil {
			logger.WithError(err).Fatal("apply migrations")
		}
		logger.Info("migrations applied")
	}
}
