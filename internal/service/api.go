package service

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/superrexy/APD-Restaurant-Violation-App/common/database"
	mqttcommon "github.com/superrexy/APD-Restaurant-Violation-App/common/mqtt"
	rediscommon "github.com/superrexy/APD-Restaurant-Violation-App/common/redis"
	"github.com/superrexy/APD-Restaurant-Violation-App/internal/config"
	"github.com/superrexy/APD-Restaurant-Violation-App/internal/consumer"
	"github.com/superrexy/APD-Restaurant-Violation-App/internal/events"
	httpapi "github.com/superrexy/APD-Restaurant-Violation-App/internal/http"
	"github.com/superrexy/APD-Restaurant-Violation-App/internal/repository"
	"github.com/superrexy/APD-Restaurant-Violation-App/internal/store"
	"go.uber.org/zap"
)

const shutdownTimeout = 5 * time.Second

// APIService serves the heartbeat and camera read endpoints.
type APIService struct {
	config      *config.Config
	db          *sql.DB
	redisClient *redis.Client
	mqttClient  *mqttcommon.Client
	logger      *zap.Logger

	bus      *events.Bus
	consumer *consumer.StatusConsumer
	server   *Server
	router   *httpapi.Router
}

// NewAPIService falls back to an in-memory camera store when the database is disabled or down.
func NewAPIService(cfg *config.Config, logger *zap.Logger) (*APIService, error) {
	if cfg.APIKey == "" {
		logger.Warn("API_KEY is not set, every API-key protected request will be rejected")
	}

	var db *sql.DB
	if cfg.DBEnabled {
		if d, err := database.NewPostgresDB(&cfg.Database); err == nil {
			db = d
			logger.Info("DB enabled for apd-api")
		} else {
			logger.Warn("DB enabled but connection failed, falling back to memory store", zap.Error(err))
		}
	}
	var repo repository.CamerasRepository
	if db != nil {
		repo = repository.NewPostgresCamerasRepo(db, logger)
	} else {
		repo = repository.NewMemoryCamerasRepo()
	}

	redisClient := connectRedis(context.Background(), &cfg.Redis, logger)
	mqttClient := connectMQTT(cfg, logger)
	var mqttPub events.MQTTPublisher
	if mqttClient != nil {
		mqttPub = mqttClient
	}

	checks := map[string]httpapi.Pinger{}
	if db != nil {
		checks["database"] = db.PingContext
	}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error { return rediscommon.Ping(ctx, redisClient) }
	}

	s := newAPIService(cfg, logger, repo, redisClient, buildSinks(cfg, logger, redisClient, mqttPub), checks)
	s.db = db
	s.mqttClient = mqttClient
	return s, nil
}

func newAPIService(
	cfg *config.Config,
	logger *zap.Logger,
	repo repository.CamerasRepository,
	redisClient *redis.Client,
	sinks []events.Emitter,
	checks map[string]httpapi.Pinger,
) *APIService {
	bus := events.NewBus(cfg.Events.Buffer, logger, sinks...)

	var statuses httpapi.StatusReader
	var statusConsumer *consumer.StatusConsumer
	if redisClient != nil {
		cache := store.NewStatusCache(store.NewRedisKV(redisClient), cfg.Status.CachePrefix, cfg.Status.CacheTTL)
		statuses = cache
		statusConsumer = consumer.NewStatusConsumer(consumer.StatusConsumerConfig{
			Stream:   cfg.Events.Stream,
			Group:    cfg.Status.ConsumerGroup,
			Consumer: cfg.Status.ConsumerName,
		}, redisClient, cache, logger)
	}

	router := httpapi.NewRouter(logger)
	router.RegisterHealthRoutes(httpapi.NewHealthHandler(checks))
	router.RegisterHeartbeatRoutes(httpapi.NewHeartbeatHandler(repo, bus, logger), cfg.APIKey)
	router.RegisterCameraRoutes(httpapi.NewCamerasHandler(repo, statuses, logger), cfg.APIKey)

	return &APIService{
		config:      cfg,
		redisClient: redisClient,
		logger:      logger,
		bus:         bus,
		consumer:    statusConsumer,
		router:      router,
		server:      NewServer(cfg.HTTP.Addr, httpapi.AccessLog(logger, router), logger),
	}
}

// Handler exposes the routed handler without the HTTP server.
func (s *APIService) Handler() http.Handler { return s.router }

// Start serves HTTP until ctx is cancelled or the listener fails.
func (s *APIService) Start(ctx context.Context) error {
	bgCtx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		s.bus.Run(bgCtx)
	}()
	if s.consumer != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.consumer.Start(bgCtx); err != nil {
				s.logger.Error("Status consumer exited", zap.Error(err))
			}
		}()
	}

	errCh := make(chan error, 1)
	go func() { errCh <- s.server.Start() }()

	var err error
	select {
	case <-ctx.Done():
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		if stopErr := s.server.Stop(shutdownCtx); stopErr != nil {
			s.logger.Error("Failed to stop HTTP server", zap.Error(stopErr))
		}
		shutdownCancel()
	case err = <-errCh:
	}
	if errors.Is(err, http.ErrServerClosed) {
		err = nil
	}

	// handlers are done publishing, let the bus flush
	cancel()
	wg.Wait()
	return err
}

// Stop closes backing connections. Call it after Start has returned.
func (s *APIService) Stop() error {
	if s.mqttClient != nil {
		s.mqttClient.Disconnect()
	}
	if err := rediscommon.Close(s.redisClient); err != nil {
		s.logger.Error("Failed to close redis", zap.Error(err))
	}
	if err := database.Close(s.db); err != nil {
		s.logger.Error("Failed to close database", zap.Error(err))
	}
	return nil
}
