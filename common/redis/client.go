package redis

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/superrexy/APD-Restaurant-Violation-App/common/config"
)

const (
	dialTimeout = 3 * time.Second
	pingTimeout = 2 * time.Second
)

// NewRedisClient builds a client from RedisConfig. Reads and writes keep the
// go-redis defaults; blocking stream reads set their own deadline.
func NewRedisClient(cfg *config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: dialTimeout,
	})
}

// Ping checks the connection, bounded by pingTimeout.
func Ping(ctx context.Context, client *redis.Client) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return client.Ping(ctx).Err()
}

// Close is a no-op for a nil client.
func Close(client *redis.Client) error {
	if client == nil {
		return nil
	}
	return client.Close()
}
