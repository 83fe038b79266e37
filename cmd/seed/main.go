package main

import (
	"context"

	"vsbridge/internal/config"
	"vsbridge/internal/db"
	"vsbridge/internal/logging"
	productrepo "vsbridge/internal/repository/product"
	storerepo "vsbridge/internal/repository/store"
	"vsbridge/internal/seed"
)

func main() {
	cfg := config.FromEnv()
	logger := logging.New(cfg.LogLevel, cfg.LogFormat).WithField("component", "seed")

	rules, err := config.LoadStoreRules(cfg.StoreConfigPath)
	if err != nil {
		logger.WithError(err).Fatal("load store rules")
	}

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DBConnString, db.Options{MaxConns: cfg.DBMaxConns}, logger)
	if err != nil {
		logger.WithError(err).Fatal("connect db")
	}
	defer pool.Close()

	store, err := seed.Apply(ctx, storerepo.NewPostgres(pool), productrepo.NewPostgres(pool, logger), rules)
	if err != nil {
		logger.WithError(err).Fatal("seed apply")
	}

	logger.WithField("store", store.Code).WithField("products", len(seed.DemoProducts)).Info("seed applied")
}
