package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	grpcapi "rentai-booking-backend/internal/api/grpc"
	httpapi "rentai-booking-backend/internal/api/http"
	"rentai-booking-backend/internal/cache"
	"rentai-booking-backend/internal/config"
	"rentai-booking-backend/internal/domain"
	"rentai-booking-backend/internal/events"
	"rentai-booking-backend/internal/jobs"
	"rentai-booking-backend/internal/logger"
	"rentai-booking-backend/internal/repository"
	"rentai-booking-backend/internal/repository/memory"
	"rentai-booking-backend/internal/repository/postgres"
	"rentai-booking-backend/internal/scheduler"
	"rentai-booking-backend/internal/security"
	"rentai-booking-backend/internal/service"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	withJobs := flag.Bool("jobs", false, "Run the outbox relay and report jobs in-process (always on for memory storage)")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting rental booking backend...", "log_level", cfg.Log.Level, "log_format", cfg.Log.Format)
	logger.Info("Server configuration", "grpc_address", cfg.GetGRPCAddress(), "http_address", cfg.GetHTTPAddress(), "storage", cfg.Storage.Type)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize storage
	var (
		store repository.Store
		ready httpapi.ReadinessCheck
	)
	switch cfg.Storage.Type {
	case "memory":
		mem := memory.NewStore()
		for _, item := range seedItems(cfg) {
			mem.PutItem(item)
		}
		store = mem
		*withJobs = true
		logger.Warn("Using in-memory storage; reservations are lost on restart", "items", len(cfg.Storage.SeedItems))
	default:
		db, err := openDatabase(ctx, cfg)
		if err != nil {
			logger.Error("Failed to initialize database", "error", err)
			log.Fatalf("Failed to initialize database: %v", err)
		}
		defer db.Close()
		for _, item := range seedItems(cfg) {
			if err := postgres.UpsertItem(ctx, db, item); err != nil {
				log.Fatalf("Failed to seed item %s: %v", item.ID, err)
			}
		}
		store = postgres.NewStore(db)
		ready = db.PingContext
	}

	// Initialize cart cache
	var cartCache cache.CartCache
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			// The cart falls back to storage reads while redis is down.
			logger.Warn("Redis not reachable at startup", "addr", cfg.Redis.Addr, "error", err)
		}
		cartCache = cache.NewRedisCache(rdb,
			time.Duration(cfg.Redis.CartTTLSec)*time.Second,
			time.Duration(cfg.Redis.CartJitterSec)*time.Second)
		logger.Info("Cart cache enabled", "addr", cfg.Redis.Addr)
	}

	// Initialize Services
	cartSvc := service.NewCartService(store.Rentals(), cartCache)
	rentalSvc := service.NewRentalService(store, cartSvc)
	settlementSvc := service.NewSettlementService(store, cartSvc)

	// Initialize Security
	tokenManager := security.NewTokenManager(cfg.JWT.Secret, time.Duration(cfg.JWT.AccessTokenExpiry)*time.Minute)

	// Set up gRPC server
	grpcServer, health := grpcapi.NewServer(grpcapi.NewBookingHandler(rentalSvc, settlementSvc, cartSvc), tokenManager)
	lis, err := net.Listen("tcp", cfg.GetGRPCAddress())
	if err != nil {
		logger.Error("Failed to listen", "error", err, "address", cfg.GetGRPCAddress())
		log.Fatalf("Failed to listen: %v", err)
	}

	// Set up HTTP server
	router := httpapi.NewRouter(httpapi.NewBookingHandler(rentalSvc, settlementSvc, cartSvc), tokenManager, ready)
	httpServer := &http.Server{
		Addr:              cfg.GetHTTPAddress(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Background jobs
	var cronScheduler *scheduler.Scheduler
	var publisher events.Publisher
	if *withJobs {
		publisher = newPublisher(cfg)
		defer publisher.Close()
		cronScheduler, err = scheduler.NewScheduler(jobs.NewJobRunner(store, publisher, cfg))
		if err != nil {
			log.Fatalf("Failed to initialize scheduler: %v", err)
		}
		cronScheduler.Start()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("gRPC server listening", "address", cfg.GetGRPCAddress())
		return grpcServer.Serve(lis)
	})
	g.Go(func() error {
		logger.Info("HTTP server listening", "address", cfg.GetHTTPAddress())
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down servers...")
		health.Shutdown()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP shutdown failed", "error", err)
		}
		grpcServer.GracefulStop()
		if cronScheduler != nil {
			cronScheduler.Stop()
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("Server stopped. Goodbye!")
}

func openDatabase(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	logger.Info("Connecting to database...", "host", cfg.Database.Host, "port", cfg.Database.Port, "database", cfg.Database.Database)
	db, err := sql.Open("postgres", cfg.GetDatabaseConnectionString())
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	logger.Info("Database connection established")

	if cfg.Database.RunMigrations {
		if err := postgres.RunMigrations(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
		logger.Info("Database migrations applied")
	}
	return db, nil
}

func seedItems(cfg *config.Config) []domain.Item {
	items := make([]domain.Item, 0, len(cfg.Storage.SeedItems))
	for _, s := range cfg.Storage.SeedItems {
		items = append(items, domain.Item{
			ID:          s.ID,
			OwnerID:     s.OwnerID,
			Title:       s.Title,
			PricePerDay: decimal.RequireFromString(s.PricePerDay),
			Available:   true,
		})
	}
	return items
}

func newPublisher(cfg *config.Config) events.Publisher {
	if len(cfg.Kafka.Brokers) == 0 {
		logger.Warn("No Kafka brokers configured; lifecycle events are only logged")
		return events.LogPublisher{}
	}
	logger.Info("Publishing lifecycle events to Kafka", "brokers", cfg.Kafka.Brokers, "topic", cfg.Kafka.Topic)
	return events.NewKafkaPublisher(events.NewKafkaWriter(cfg.Kafka.Brokers, cfg.Kafka.Topic), events.BreakerSettings{
		ConsecutiveFailures: cfg.Kafka.BreakerFailures,
		OpenTimeout:         time.Duration(cfg.Kafka.BreakerOpenSec) * time.Second,
	})
}
