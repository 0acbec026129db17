package service

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/go-redis/redis/v8"
	"github.com/superrexy/APD-Restaurant-Violation-App/common/database"
	mqttcommon "github.com/superrexy/APD-Restaurant-Violation-App/common/mqtt"
	rediscommon "github.com/superrexy/APD-Restaurant-Violation-App/common/redis"
	"github.com/superrexy/APD-Restaurant-Violation-App/internal/config"
	"github.com/superrexy/APD-Restaurant-Violation-App/internal/events"
	"github.com/superrexy/APD-Restaurant-Violation-App/internal/healthcheck"
	"github.com/superrexy/APD-Restaurant-Violation-App/internal/reconciler"
	"github.com/superrexy/APD-Restaurant-Violation-App/internal/repository"
	"go.uber.org/zap"
)

// MonitorService runs the camera health reconciler.
type MonitorService struct {
	config      *config.Config
	db          *sql.DB
	redisClient *redis.Client
	mqttClient  *mqttcommon.Client
	logger      *zap.Logger

	bus        *events.Bus
	reconciler *reconciler.Reconciler
	scheduler  *reconciler.Scheduler
}

// NewMonitorService connects to PostgreSQL (required), Redis and MQTT (optional).
func NewMonitorService(cfg *config.Config, logger *zap.Logger) (*MonitorService, error) {
	db, err := database.NewPostgresDB(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	redisClient := connectRedis(context.Background(), &cfg.Redis, logger)
	mqttClient := connectMQTT(cfg, logger)

	var mqttPub events.MQTTPublisher
	if mqttClient != nil {
		mqttPub = mqttClient
	}

	s := newMonitorService(cfg, logger,
		repository.NewPostgresCamerasRepo(db, logger),
		healthcheck.NewClient(cfg.Monitor.CheckTimeout, logger),
		buildSinks(cfg, logger, redisClient, mqttPub),
	)
	s.db = db
	s.redisClient = redisClient
	s.mqttClient = mqttClient
	return s, nil
}

func newMonitorService(
	cfg *config.Config,
	logger *zap.Logger,
	repo repository.CamerasRepository,
	checker healthcheck.Checker,
	sinks []events.Emitter,
) *MonitorService {
	bus := events.NewBus(cfg.Events.Buffer, logger, sinks...)
	rec := reconciler.New(repo, checker, bus, logger, reconciler.Options{
		Workers:            cfg.Monitor.Workers,
		IncludeMaintenance: cfg.Monitor.ReconcileMaintenance,
		ConditionalWrites:  cfg.Monitor.ConditionalWrites,
	})
	return &MonitorService{
		config:     cfg,
		logger:     logger,
		bus:        bus,
		reconciler: rec,
		scheduler:  reconciler.NewScheduler(rec, cfg.Monitor.Interval, logger),
	}
}

// Start runs the scheduler until ctx is cancelled, then drains pending events.
func (s *MonitorService) Start(ctx context.Context) error {
	s.logger.Info("Starting camera health monitor",
		zap.Duration("interval", s.config.Monitor.Interval),
		zap.Int("workers", s.config.Monitor.Workers),
		zap.Bool("reconcile_maintenance", s.config.Monitor.ReconcileMaintenance),
		zap.Bool("conditional_writes", s.config.Monitor.ConditionalWrites),
	)
	stopBus := s.runBus()
	defer stopBus()

	return s.scheduler.Start(ctx)
}

// RunOnce performs a single reconciliation pass and delivers its events before returning.
func (s *MonitorService) RunOnce(ctx context.Context) (reconciler.Summary, error) {
	stopBus := s.runBus()
	defer stopBus()

	return s.scheduler.RunOnce(ctx)
}

// runBus starts event delivery; the returned func stops it after flushing the queue.
func (s *MonitorService) runBus() func() {
	busCtx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.bus.Run(busCtx)
	}()
	return func() {
		cancel()
		wg.Wait()
		if dropped := s.bus.Dropped(); dropped > 0 {
			s.logger.Warn("Camera status events dropped", zap.Int64("dropped", dropped))
		}
	}
}

func (s *MonitorService) Stop() error {
	s.logger.Info("Stopping camera health monitor")

	if s.mqttClient != nil {
		s.mqttClient.Disconnect()
	}
	if err := rediscommon.Close(s.redisClient); err != nil {
		s.logger.Error("Failed to close redis", zap.Error(err))
	}
	if s.db != nil {
		if err := database.Close(s.db); err != nil {
			s.logger.Error("Failed to close database", zap.Error(err))
		}
	}
	return nil
}
