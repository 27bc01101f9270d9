package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sooicy-orders/internal/account"
	"sooicy-orders/internal/analytics"
	analytics_api "sooicy-orders/internal/analytics/api"
	"sooicy-orders/internal/catalog"
	catalog_api "sooicy-orders/internal/catalog/api"
	"sooicy-orders/internal/config"
	"sooicy-orders/internal/database/migrations"
	"sooicy-orders/internal/kafka"
	"sooicy-orders/internal/logger"
	"sooicy-orders/internal/models"
	"sooicy-orders/internal/order"
	"sooicy-orders/internal/order/db"
	orderkafka "sooicy-orders/internal/order/kafka"
	"sooicy-orders/internal/order/order_api"
	rediswrap "sooicy-orders/internal/order/redis"
	"sooicy-orders/internal/tracking"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
)

func connectPostgres(cfg config.DatabaseConfig, log *logger.Logger) *bun.DB {
	var sqldb *sql.DB
	var err error
	maxRetries := cfg.ConnectRetry
	if maxRetries < 1 {
		maxRetries = 1
	}

	for i := 0; i < maxRetries; i++ {
		log.Info("DATABASE", fmt.Sprintf("Attempting to connect to PostgreSQL (attempt %d/%d)", i+1, maxRetries))
		sqldb, err = sql.Open("postgres", cfg.DSN)
		if err != nil {
			log.Error("DATABASE", fmt.Sprintf("Failed to open PostgreSQL: %v", err))
			time.Sleep(2 * time.Second)
			continue
		}

		err = sqldb.Ping()
		if err == nil {
			break
		}

		log.Error("DATABASE", fmt.Sprintf("Failed to connect to PostgreSQL: %v", err))
		sqldb.Close()
		if i < maxRetries-1 {
			time.Sleep(2 * time.Second)
		}
	}

	if err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Failed to connect to PostgreSQL after %d attempts: %v", maxRetries, err))
	}

	sqldb.SetMaxOpenConns(cfg.MaxOpenConns)
	sqldb.SetMaxIdleConns(cfg.MaxIdleConns)
	sqldb.SetConnMaxLifetime(cfg.MaxLifetime)

	log.Info("DATABASE", "PostgreSQL connection successful")

	bunDB := bun.NewDB(sqldb, pgdialect.New())
	models.RegisterModels(bunDB)
	return bunDB
}

func connectRedis(ctx context.Context, cfg config.RedisConfig, log *logger.Logger) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		log.Fatal("REDIS", fmt.Sprintf("Redis connection error: %v", err))
	}
	log.Info("REDIS", fmt.Sprintf("Redis connection successful to %s (DB: %d)", cfg.Addr, cfg.DB))
	return client
}

// consumerGroup gives every instance its own group so each one relays every
// tracking event to its own SSE clients.
func consumerGroup(base string) string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		return base
	}
	return base + "-" + host
}

func main() {
	if err := godotenv.Load(); err != nil {
		fmt.Println(".env file not found, using environment variables")
	}

	cfg := config.Load()

	log, err := logger.NewLogger(logger.Options{
		Dir:     cfg.Log.Dir,
		Service: "sooicy-orders",
		Level:   cfg.Log.Level,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Close()

	log.Info("APP", "Starting Sooicy order service initialization")

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	bunDB := connectPostgres(cfg.Database, log)
	defer bunDB.Close()

	if cfg.Database.AutoMigrate {
		runner := migrations.NewRunner(bunDB, migrations.MigrateOptions{MigrationsDir: cfg.Database.MigrationsDir}, log)
		if err := runner.RunMigrations(); err != nil {
			log.Fatal("MIGRATE", fmt.Sprintf("Failed to run migrations: %v", err))
		}
	}

	redisClient := connectRedis(ctx, cfg.Redis, log)
	defer redisClient.Close()
	orderLock := rediswrap.NewRedis(redisClient, cfg.Redis.LockTTL, log)

	broadcaster := tracking.NewBroadcaster()

	var (
		publisher order.EventPublisher = orderkafka.NopPublisher{}
		feed      order.TrackingFeed   = broadcaster
	)
	if cfg.Kafka.Enabled {
		topics := orderkafka.Topics{
			OrderCreated: cfg.Kafka.Topics.OrderCreated,
			OrderStatus:  cfg.Kafka.Topics.OrderStatus,
			OrderRider:   cfg.Kafka.Topics.OrderRider,
		}
		if cfg.Kafka.CreateTopics {
			if err := kafka.EnsureTopicsExist(ctx, cfg.Kafka.Brokers, topics.All(), log); err != nil {
				log.Warn("KAFKA", fmt.Sprintf("Topic creation might have failed: %v", err))
			} else {
				log.Info("KAFKA", "Required topics ensured successfully")
			}
		}

		producer := kafka.NewProducer(cfg.Kafka.Brokers)
		defer producer.Close()
		publisher = orderkafka.NewPublisher(producer, topics, log)

		consumer := kafka.NewConsumer(cfg.Kafka.Brokers, topics.All(), consumerGroup(cfg.Kafka.GroupID), log)
		defer consumer.Close()
		relay := orderkafka.NewRelay(broadcaster)
		go func() {
			if err := consumer.Start(ctx, relay.Handle); err != nil {
				log.Error("KAFKA", fmt.Sprintf("Consumer stopped: %v", err))
			}
		}()

		// Live tracking arrives through the relay.
		feed = orderkafka.NopFeed{}
		log.Info("KAFKA", fmt.Sprintf("Kafka enabled with brokers %v", cfg.Kafka.Brokers))
	} else {
		log.Info("KAFKA", "Kafka disabled, tracking is broadcast in-process")
	}

	catalogService := catalog.NewService(bunDB, log)
	accounts := account.NewService(bunDB, log)
	orderService := order.NewOrderService(db.New(bunDB), catalogService.Lookup, accounts, orderLock, publisher, feed, log)

	handler := order_api.NewHandler(
		orderService,
		accounts,
		tracking.NewLedger(bunDB),
		broadcaster,
		tracking.NewQRGenerator(cfg.Tracking.BaseURL),
		log,
	)
	analyticsHandler := analytics_api.NewHandler(analytics.NewService(bunDB), log)
	catalogHandler := catalog_api.NewHandler(catalogService, log)

	log.Info("HTTP", "Setting up router and middleware")
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(order_api.RequestLogger(log))

	r.Get("/health", order_api.Health(log, map[string]order_api.HealthCheck{
		"postgres": bunDB.PingContext,
		"redis":    orderLock.Ping,
	}))

	r.Route("/api", func(r chi.Router) {
		handler.RegisterRoutes(r)
		log.Info("ROUTER", "Order routes registered under /api")

		analyticsHandler.RegisterRoutes(r)
		log.Info("ROUTER", "Analytics routes registered under /api/dashboard")

		catalogHandler.RegisterRoutes(r)
		log.Info("ROUTER", "Rider, location and menu routes registered under /api")
	})

	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}

	go func() {
		log.Info("HTTP", fmt.Sprintf("Sooicy order service running on %s", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP", fmt.Sprintf("HTTP server error: %v", err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	log.Info("APP", "Service started successfully, waiting for shutdown signal")
	<-quit

	log.Info("APP", "Shutdown signal received, initiating graceful shutdown")
	// Cancelling ctx ends the kafka consumer and open SSE streams.
	stop()

	ctxShutdown, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Error("HTTP", fmt.Sprintf("Server Shutdown Failed: %v", err))
	} else {
		log.Info("HTTP", "Sooicy order service shutdown complete")
	}
}
