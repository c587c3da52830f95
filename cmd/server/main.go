package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	nethttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storefront-orders/internal/config"
	"storefront-orders/internal/controllers/http"
	"storefront-orders/internal/infra"
	mmysql "storefront-orders/internal/infra/mysql"
	"storefront-orders/internal/infra/rabbitmq"
	redisinfra "storefront-orders/internal/infra/redis"
	"storefront-orders/internal/logger"
	mysqlrepo "storefront-orders/internal/repository/mysql"
	"storefront-orders/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger.New(logger.Options{Service: "storefront-orders", Env: cfg.AppEnv, Level: cfg.LogLevel})

	if err := run(cfg); err != nil {
		slog.Error("server exited", "err", err)
		os.Exit(1)
	}
}

func run(cfg config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := mmysql.NewMySQL(cfg.MySQL)
	if err != nil {
		return fmt.Errorf("db: connect: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("db: handle: %w", err)
	}
	defer sqlDB.Close()

	var publisher rabbitmq.PublisherInterface = rabbitmq.LogPublisher{}
	if cfg.RabbitMQ.URL != "" {
		p, err := rabbitmq.NewPublisher(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange)
		if err != nil {
			return fmt.Errorf("failed to init publisher: %w", err)
		}
		defer p.Close()
		publisher = p
	} else {
		slog.Warn("RABBITMQ_URL not set, events will only be logged")
	}
	dispatcher := services.NewDispatcher(publisher, cfg.Checkout.NotifyWorkers, cfg.Checkout.NotifyBuffer)

	gateway := infra.NewPaymentGatewayClient(cfg.Payment.GatewayURL, cfg.Payment.APIKey, cfg.Payment.Timeout)

	svc := services.NewOrderService(
		mysqlrepo.NewUnitOfWork(db),
		mysqlrepo.NewOrderRepository(db),
		services.NewSettingsProvider(mysqlrepo.NewSettingsRepository(db), cfg.StoreDefaults),
		services.NewInventory(cfg.Checkout.LowStockWatermark, dispatcher),
		services.NewPaymentVerifier(gateway, cfg.Payment.Timeout),
		dispatcher,
		services.Options{
			PaymentSuccessStatus: cfg.Payment.SuccessStatus,
			PaymentTolerance:     cfg.Payment.Tolerance,
		},
	)

	if cfg.Redis.Addr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:         cfg.Redis.Addr,
			DB:           cfg.Redis.DB,
			PoolSize:     200,
			MinIdleConns: 20,
			DialTimeout:  2 * time.Second,
			ReadTimeout:  500 * time.Millisecond,
			WriteTimeout: 500 * time.Millisecond,
		})
		defer redisClient.Close()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			slog.Warn("redis unreachable at startup", "addr", cfg.Redis.Addr, "err", err)
		}
		svc.SetIdempotencyStore(redisinfra.NewIdempotencyStore(redisClient, cfg.Checkout.IdempotencyTTL))
		svc.SetOrderCache(redisinfra.NewOrderCache(redisClient, cfg.Checkout.OrderCacheTTL))
	}

	if cfg.AppEnv != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	http.NewHandler(svc).RegisterRoutes(r)

	srv := &nethttp.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           otelhttp.NewHandler(r, "storefront-orders"),
		ReadHeaderTimeout: 5 * time.Second,
	}

	// The dispatcher outlives the HTTP server so events from in-flight
	// requests are still published.
	dispatchCtx, stopDispatch := context.WithCancel(context.Background())
	defer stopDispatch()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return dispatcher.Run(dispatchCtx)
	})
	g.Go(func() error {
		slog.Info("starting order service", "port", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
			return fmt.Errorf("server run: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		slog.Info("shutting down")
		err := srv.Shutdown(shutdownCtx)
		stopDispatch()
		return err
	})
	return g.Wait()
}
