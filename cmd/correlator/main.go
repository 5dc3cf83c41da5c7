// Package main is the entry point for the NXForge correlator service.
// It wires storage, the correlation engine, the optional queue intake, and
// the HTTP server, and handles graceful shutdown.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/vladvaleanu/nxforge-correlator/internal/api"
	"github.com/vladvaleanu/nxforge-correlator/internal/buffer"
	membuf "github.com/vladvaleanu/nxforge-correlator/internal/buffer/memory"
	redisbuf "github.com/vladvaleanu/nxforge-correlator/internal/buffer/redis"
	"github.com/vladvaleanu/nxforge-correlator/internal/config"
	"github.com/vladvaleanu/nxforge-correlator/internal/correlator"
	"github.com/vladvaleanu/nxforge-correlator/internal/queue"
	kafkaqueue "github.com/vladvaleanu/nxforge-correlator/internal/queue/kafka"
	memoryqueue "github.com/vladvaleanu/nxforge-correlator/internal/queue/memory"
	"github.com/vladvaleanu/nxforge-correlator/internal/store"
	memorystor "github.com/vladvaleanu/nxforge-correlator/internal/store/memory"
	postgresstor "github.com/vladvaleanu/nxforge-correlator/internal/store/postgres"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load configuration", "error", err, "path", *configPath)
		os.Exit(1)
	}

	logger := initLogger(&cfg.Logger)
	logger.Info("configuration loaded",
		"path", *configPath,
		"storage_mode", cfg.Storage.Mode,
		"batch_window", cfg.Correlator.BatchWindow(),
	)

	deps, cleanup, err := initDependencies(cfg, logger)
	if err != nil {
		logger.Error("failed to initialize dependencies", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	deps.service.Start()

	if deps.intake != nil {
		go func() {
			if err := deps.intake.Run(ctx); err != nil && ctx.Err() == nil {
				logger.Error("intake error", "error", err)
				cancel()
			}
		}()
	}

	go func() {
		if err := deps.server.Start(); err != nil {
			logger.Error("server error", "error", err)
			cancel()
		}
	}()

	logger.Info("correlator running", "address", cfg.Server.Address())

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.WriteTimeout)
	defer shutdownCancel()

	if err := deps.server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	deps.service.Stop()

	logger.Info("correlator stopped")
}

// dependencies holds all initialized service dependencies.
type dependencies struct {
	server  *api.Server
	service *correlator.Service
	intake  *correlator.Intake
}

// initDependencies creates and wires all service dependencies based on config.
// Returns the dependencies and a cleanup function.
func initDependencies(cfg *config.Config, logger *slog.Logger) (*dependencies, func(), error) {
	var (
		buf          buffer.Buffer
		alertRepo    store.AlertRepository
		incidentRepo store.IncidentRepository
		publisher    queue.Publisher
		consumer     queue.Consumer
		cleanupFuncs []func()
	)

	if cfg.Storage.UseMemory() {
		logger.Info("initializing in-memory storage")

		buf = membuf.NewBuffer()
		memAlerts := memorystor.NewAlertRepository()
		alertRepo = memAlerts
		incidentRepo = memorystor.NewIncidentRepository(memAlerts)

		memQueue := memoryqueue.NewQueue(10000)
		publisher = memQueue
		consumer = memQueue
		cleanupFuncs = append(cleanupFuncs, func() { _ = memQueue.Close() })
	} else {
		logger.Info("initializing production storage (PostgreSQL, Redis, Kafka)")

		ctx := context.Background()
		db, err := postgresstor.NewDB(ctx, &cfg.Postgres)
		if err != nil {
			return nil, nil, err
		}
		cleanupFuncs = append(cleanupFuncs, db.Close)

		if err := db.RunMigrations(ctx); err != nil {
			return nil, nil, err
		}
		logger.Info("database migrations completed")

		alertRepo = postgresstor.NewAlertRepository(db)
		incidentRepo = postgresstor.NewIncidentRepository(db)

		redisBuffer, err := redisbuf.NewBuffer(&cfg.Redis)
		if err != nil {
			return nil, nil, err
		}
		buf = redisBuffer
		cleanupFuncs = append(cleanupFuncs, func() { _ = redisBuffer.Close() })

		kafkaProducer := kafkaqueue.NewProducer(&cfg.Kafka)
		publisher = kafkaProducer
		cleanupFuncs = append(cleanupFuncs, func() { _ = kafkaProducer.Close() })

		kafkaConsumer := kafkaqueue.NewConsumer(&cfg.Kafka, logger)
		consumer = kafkaConsumer
		cleanupFuncs = append(cleanupFuncs, func() { _ = kafkaConsumer.Close() })
	}

	matcher := correlator.NewSourceMatcher(incidentRepo)

	service := correlator.NewService(
		correlator.Config{
			BatchWindow:  cfg.Correlator.BatchWindow(),
			GroupTimeout: cfg.Correlator.GroupTimeout(),
		},
		buf,
		alertRepo,
		incidentRepo,
		matcher,
		publisher,
		logger,
	)

	var intake *correlator.Intake
	if cfg.Correlator.IntakeEnabled {
		intake = correlator.NewIntake(consumer, service, logger)
	}

	alertHandler := api.NewAlertHandler(service, logger)
	incidentHandler := api.NewIncidentHandler(service, logger)

	server := api.NewServer(api.ServerDeps{
		Config:          &cfg.Server,
		Logger:          logger,
		AlertHandler:    alertHandler,
		IncidentHandler: incidentHandler,
	})

	cleanup := func() {
		for i := len(cleanupFuncs) - 1; i >= 0; i-- {
			cleanupFuncs[i]()
		}
	}

	return &dependencies{
		server:  server,
		service: service,
		intake:  intake,
	}, cleanup, nil
}

// initLogger builds the process logger from config.
func initLogger(cfg *config.LoggerConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
