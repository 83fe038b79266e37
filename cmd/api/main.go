package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"

	"vsbridge/internal/config"
	"vsbridge/internal/db"
	"vsbridge/internal/engine"
	"vsbridge/internal/httpserver"
	"vsbridge/internal/logging"
	"vsbridge/internal/metrics"
	"vsbridge/internal/notify"
	cartrepo "vsbridge/internal/repository/cart"
	customerrepo "vsbridge/internal/repository/customer"
	orderrepo "vsbridge/internal/repository/order"
	productrepo "vsbridge/internal/repository/product"
	storerepo "vsbridge/internal/repository/store"
	tokenrepo "vsbridge/internal/repository/token"
	"vsbridge/internal/seed"
	checkoutsvc "vsbridge/internal/service/checkout"
	customersvc "vsbridge/internal/service/customer"
	ordersvc "vsbridge/internal/service/order"
	productsvc "vsbridge/internal/service/product"
	"vsbridge/internal/service/quote"
	"vsbridge/internal/service/token"
	"vsbridge/internal/service/totals"
)

// storage is the set of repositories backing the services.
type storage struct {
	stores    storerepo.Repository
	products  productrepo.Repository
	carts     cartrepo.Repository
	orders    orderrepo.Repository
	customers customerrepo.Repository
	tokens    tokenrepo.Repository
	db        httpserver.Pinger
	close     func()
}

func main() {
	cfg := config.FromEnv()
	logger := logging.New(cfg.LogLevel, cfg.LogFormat).WithField("component", "api")

	if cfg.AuthSecret == "" {
		logger.Fatal("AUTH_SECRET must be set")
	}
	rules, err := config.LoadStoreRules(cfg.StoreConfigPath)
	if err != nil {
		logger.WithError(err).Fatal("load store rules")
	}

	ctx := context.Background()
	st, err := openStorage(ctx, cfg, rules, logger)
	if err != nil {
		logger.WithError(err).Fatal("open storage")
	}
	defer st.close()

	publisher, err := newPublisher(cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("init notifications")
	}
	defer publisher.Close()
	notifier := notify.NewNotifier(publisher, cfg.AdminEmail, logger)

	m := metrics.New()
	eng := engine.New(rules, st.products)
	agg := totals.New(eng)
	tokens := token.New(cfg.AuthSecret, cfg.TokenTTL)

	srv, err := httpserver.New(cfg.HTTPAddr, logger, httpserver.Deps{
		Stores:   st.stores,
		Tokens:   tokens,
		Carts:    quote.NewResolver(st.carts, tokens, logger),
		Checkout: checkoutsvc.New(st.carts, eng, agg, m, logger),
		Orders:   ordersvc.New(ordersvc.Deps{
			Carts:          st.carts,
			Orders:         st.orders,
			Customers:      st.customers,
			Engine:         eng,
			Totals:         agg,
			Notifier:       notifier,
			Metrics:        m,
			Logger:         logger,
			NotifyFailures: cfg.NotifyFailureEmails,
		}),
		Customers:   customersvc.New(st.customers, st.tokens, tokens, notifier, logger),
		Stock:       productsvc.New(st.products),
		DB:          st.db,
		Metrics:     m,
		CORSOrigins: cfg.CORSOrigins,
	})
	if err != nil {
		logger.WithError(err).Fatal("init server")
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.WithFields(log.Fields{"addr": cfg.HTTPAddr, "storage": cfg.Storage}).Info("starting http server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stopCh:
		logger.WithField("signal", sig.String()).Info("shutting down")
	case err := <-serverErr:
		logger.WithError(err).Error("server error")
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("graceful shutdown failed")
	} else {
		logger.Info("server stopped")
	}
}

func openStorage(ctx context.Context, cfg config.Config, rules config.StoreRules, logger *log.Entry) (*storage, error) {
	switch cfg.Storage {
	case config.StoragePostgres:
		pool, err := db.Connect(ctx, cfg.DBConnString, db.Options{MaxConns: cfg.DBMaxConns}, logger)
		if err != nil {
			return nil, fmt.Errorf("connect to db: %w", err)
		}
		st := &storage{
			stores:    storerepo.NewPostgres(pool),
			products:  productrepo.NewPostgres(pool, logger),
			carts:     cartrepo.NewPostgres(pool, logger),
			orders:    orderrepo.NewPostgres(pool, logger),
			customers: customerrepo.NewPostgres(pool, logger),
			tokens:    tokenrepo.NewPostgres(pool),
			db:        pool,
			close:     pool.Close,
		}
		if _, err := seed.EnsureStore(ctx, st.stores, rules); err != nil {
			pool.Close()
			return nil, err
		}
		return st, nil

	case config.StorageMemory:
		products := productrepo.NewMemory()
		carts := cartrepo.NewMemory()
		st := &storage{
			stores:    storerepo.NewMemory(),
			products:  products,
			carts:     carts,
			orders:    orderrepo.NewMemory(carts, products),
			customers: customerrepo.NewMemory(),
			tokens:    tokenrepo.NewMemory(),
			close:     func() {},
		}
		if _, err := seed.Apply(ctx, st.stores, products, rules); err != nil {
			return nil, err
		}
		logger.Warn("using in-memory storage with demo catalog; data is lost on restart")
		return st, nil

	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage)
	}
}

func newPublisher(cfg config.Config, logger *log.Entry) (notify.Publisher, error) {
	if len(cfg.KafkaBrokers) == 0 {
		logger.Info("KAFKA_BROKERS not set, notifications are only logged")
		return notify.NewLogPublisher(logger), nil
	}
	return notify.NewKafkaPublisher(cfg.KafkaBrokers, logger)
}
