package service

import (
	"context"

	"github.com/go-redis/redis/v8"
	"github.com/superrexy/APD-Restaurant-Violation-App/common/config"
	mqttcommon "github.com/superrexy/APD-Restaurant-Violation-App/common/mqtt"
	rediscommon "github.com/superrexy/APD-Restaurant-Violation-App/common/redis"
	appcfg "github.com/superrexy/APD-Restaurant-Violation-App/internal/config"
	"github.com/superrexy/APD-Restaurant-Violation-App/internal/events"
	"go.uber.org/zap"
)

// connectRedis returns nil when Redis is not reachable; callers degrade without it.
func connectRedis(ctx context.Context, cfg *config.RedisConfig, logger *zap.Logger) *redis.Client {
	client := rediscommon.NewRedisClient(cfg)
	if err := rediscommon.Ping(ctx, client); err != nil {
		logger.Warn("Redis unavailable, continuing without it", zap.String("addr", cfg.Addr), zap.Error(err))
		_ = client.Close()
		return nil
	}
	return client
}

// connectMQTT returns nil when MQTT is disabled or the broker is not reachable.
func connectMQTT(cfg *appcfg.Config, logger *zap.Logger) *mqttcommon.Client {
	if !cfg.Events.MQTTEnabled {
		return nil
	}
	client, err := mqttcommon.NewClient(&cfg.MQTT, logger)
	if err != nil {
		logger.Warn("MQTT unavailable, camera status events will not be published there", zap.Error(err))
		return nil
	}
	return client
}

// buildSinks assembles the event sinks in delivery order.
func buildSinks(cfg *appcfg.Config, logger *zap.Logger, redisClient *redis.Client, mqttPub events.MQTTPublisher) []events.Emitter {
	sinks := []events.Emitter{events.NewLogEmitter(logger)}
	if redisClient != nil {
		sinks = append(sinks, events.NewStreamEmitter(redisClient, cfg.Events.Stream, cfg.Events.StreamMaxLen))
	}
	if mqttPub != nil {
		sinks = append(sinks, events.NewMQTTEmitter(mqttPub, cfg.Events.MQTTTopicPrefix, cfg.MQTT.QoS))
	}
	return sinks
}
