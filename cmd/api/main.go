package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"

	"github.com/frutaseca/cart-backend/api/controllers"
	"github.com/frutaseca/cart-backend/api/routes"
	"github.com/frutaseca/cart-backend/internal/analytics"
	"github.com/frutaseca/cart-backend/internal/cartpersist"
	"github.com/frutaseca/cart-backend/internal/cartsession"
	"github.com/frutaseca/cart-backend/internal/catalog"
	"github.com/frutaseca/cart-backend/internal/checkout"
	"github.com/frutaseca/cart-backend/internal/legacybridge"
	"github.com/frutaseca/cart-backend/pkg/config"
	"github.com/frutaseca/cart-backend/pkg/db"
	"github.com/frutaseca/cart-backend/pkg/logger"
	"github.com/frutaseca/cart-backend/pkg/metrics"
	"github.com/frutaseca/cart-backend/pkg/pubsub"
	"github.com/frutaseca/cart-backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "cart-api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "cart-api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	catalogRepo := catalog.NewRepository(dbClient.DB())
	if cfg.DB.AutoMigrate {
		if err := catalogRepo.AutoMigrate(); err != nil {
			logg.Error(context.Background(), "failed to migrate catalog schema", err)
			os.Exit(1)
		}
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	cartMetrics := metrics.NewCartMetrics(registry)

	pingers := map[string]controllers.Pinger{
		"database": dbClient,
		"redis":    redisClient,
	}

	var forwarder *analytics.Forwarder
	if cfg.PubSub.Enabled() {
		pubsubClient, err := pubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap pubsub", err)
			os.Exit(1)
		}
		defer func() {
			if err := pubsubClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing pubsub", err)
			}
		}()
		pingers["pubsub"] = pubsubClient
		forwarder = analytics.NewForwarder(pubsubClient.AnalyticsPublisher(), logg)
	}

	storage, err := cartpersist.NewRedisStorage(redisClient, cfg.Cart.SnapshotTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to wire cart storage", err)
		os.Exit(1)
	}

	var sink cartsession.EventSink
	if forwarder != nil {
		sink = forwarder
	}
	manager, err := cartsession.NewManager(cartsession.ManagerParams{
		Storage: storage,
		Config:  cfg.Cart,
		Logger:  logg,
		Metrics: cartMetrics,
		Sink:    sink,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	bridge, err := legacybridge.New(redisClient, manager, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create legacy bridge", err)
		os.Exit(1)
	}
	if err := bridge.Start(context.Background()); err != nil {
		logg.Error(context.Background(), "failed to start legacy bridge", err)
		os.Exit(1)
	}

	checkoutSvc, err := checkout.NewService(catalogRepo, cfg.Cart.WhatsAppNumber)
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting cart api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Deps{
			Config:   cfg,
			Logger:   logg,
			Sessions: manager,
			Checkout: checkoutSvc,
			Products: catalogRepo,
			Pingers:  pingers,
			Registry: registry,
		}),
	}

	errs := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errs <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errs:
		logg.Error(ctx, "cart api server stopped unexpectedly", err)
		os.Exit(1)
	case sig := <-stop:
		logg.Info(logg.WithField(ctx, "signal", sig.String()), "shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var teardownErr error
	teardownErr = multierr.Append(teardownErr, server.Shutdown(shutdownCtx))
	bridge.Stop()
	teardownErr = multierr.Append(teardownErr, manager.Shutdown())
	forwarder.Flush()
	if teardownErr != nil {
		logg.Error(ctx, "teardown finished with errors", teardownErr)
		os.Exit(1)
	}
	logg.Info(ctx, "shutdown complete")
}
