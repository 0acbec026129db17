package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/go-redis/redis/v8"
	rediscommon "github.com/superrexy/APD-Restaurant-Violation-App/common/redis"
	"github.com/superrexy/APD-Restaurant-Violation-App/internal/events"
	"github.com/superrexy/APD-Restaurant-Violation-App/internal/store"
	"go.uber.org/zap"
)

var errSinkUnavailable = errors.New("status sink rejected every pending message")

// StatusSink receives each decoded camera status event.
type StatusSink interface {
	Put(ctx context.Context, evt events.CameraStatusChanged) error
}

// StatusConsumerConfig names the stream and consumer group to read.
type StatusConsumerConfig struct {
	Stream    string
	Group     string
	Consumer  string
	BatchSize int64
	Block     time.Duration // negative reads without blocking
}

// StatusConsumer folds the camera status stream into the status cache.
type StatusConsumer struct {
	cfg         StatusConsumerConfig
	redisClient *redis.Client
	sink        StatusSink
	logger      *zap.Logger

	processed atomic.Int64
	failed    atomic.Int64

	// set until the pending list has been drained; re-set when the sink fails
	retryPending atomic.Bool
}

func NewStatusConsumer(cfg StatusConsumerConfig, redisClient *redis.Client, sink StatusSink, logger *zap.Logger) *StatusConsumer {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.Block == 0 {
		cfg.Block = 2 * time.Second
	}
	c := &StatusConsumer{
		cfg:         cfg,
		redisClient: redisClient,
		sink:        sink,
		logger:      logger,
	}
	c.retryPending.Store(true)
	return c
}

// Start consumes until ctx is cancelled, backing off on read errors.
func (c *StatusConsumer) Start(ctx context.Context) error {
	if err := rediscommon.CreateConsumerGroup(ctx, c.redisClient, c.cfg.Stream, c.cfg.Group); err != nil {
		return err
	}

	c.logger.Info("Status consumer started",
		zap.String("stream", c.cfg.Stream),
		zap.String("consumer_group", c.cfg.Group),
		zap.String("consumer_name", c.cfg.Consumer),
	)

	backoff := time.Second
	const maxBackoff = 30 * time.Second

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("Status consumer stopped",
				zap.Int64("processed", c.processed.Load()),
				zap.Int64("failed", c.failed.Load()),
			)
			return nil
		default:
		}

		if _, err := c.ConsumeOnce(ctx); err != nil {
			if ctx.Err() != nil {
				continue
			}
			c.logger.Error("Failed to consume status stream", zap.Error(err), zap.Duration("backoff", backoff))
			select {
			case <-ctx.Done():
			case <-time.After(backoff):
				backoff *= 2
				if backoff > maxBackoff {
					backoff = maxBackoff
				}
			}
			continue
		}
		backoff = time.Second
	}
}

// ConsumeOnce reads one batch and returns how many messages were applied.
// Messages this consumer left unacked are retried before new ones are read.
func (c *StatusConsumer) ConsumeOnce(ctx context.Context) (int, error) {
	if c.retryPending.Load() {
		pending, err := rediscommon.ReadPendingFromStream(ctx, c.redisClient,
			c.cfg.Stream, c.cfg.Group, c.cfg.Consumer, c.cfg.BatchSize)
		if err != nil {
			return 0, fmt.Errorf("failed to read pending messages: %w", err)
		}
		if len(pending) > 0 {
			c.logger.Info("Retrying pending status messages", zap.Int("count", len(pending)))
			applied, sinkFailed, err := c.apply(ctx, pending)
			if err == nil && sinkFailed == len(pending) {
				err = errSinkUnavailable
			}
			return applied, err
		}
		c.retryPending.Store(false)
	}

	messages, err := rediscommon.ReadFromStream(ctx, c.redisClient,
		c.cfg.Stream, c.cfg.Group, c.cfg.Consumer, c.cfg.BatchSize, c.cfg.Block)
	if err != nil {
		return 0, fmt.Errorf("failed to read from stream: %w", err)
	}
	applied, _, err := c.apply(ctx, messages)
	return applied, err
}

// apply feeds messages to the sink and acks the ones that need no retry.
func (c *StatusConsumer) apply(ctx context.Context, messages []rediscommon.StreamMessage) (applied, sinkFailed int, err error) {
	ack := make([]string, 0, len(messages))
	for _, msg := range messages {
		evt, err := decodeStatus(msg)
		if err != nil {
			// undecodable messages are acked so they are not redelivered forever
			c.failed.Add(1)
			c.logger.Warn("Dropping malformed status message", zap.String("stream_id", msg.ID), zap.Error(err))
			ack = append(ack, msg.ID)
			continue
		}
		if err := c.sink.Put(ctx, evt); err != nil {
			c.failed.Add(1)
			sinkFailed++
			c.retryPending.Store(true)
			c.logger.Error("Failed to cache camera status",
				zap.String("stream_id", msg.ID),
				zap.String("camera_code", evt.CameraCode),
				zap.Error(err),
			)
			continue
		}
		c.processed.Add(1)
		applied++
		ack = append(ack, msg.ID)
	}

	if err := rediscommon.Ack(ctx, c.redisClient, c.cfg.Stream, c.cfg.Group, ack...); err != nil {
		return applied, sinkFailed, fmt.Errorf("failed to ack status messages: %w", err)
	}
	return applied, sinkFailed, nil
}

func decodeStatus(msg rediscommon.StreamMessage) (events.CameraStatusChanged, error) {
	var evt events.CameraStatusChanged
	raw, ok := msg.Values["data"].(string)
	if !ok {
		return evt, fmt.Errorf("missing data field in message")
	}
	if err := json.Unmarshal([]byte(raw), &evt); err != nil {
		return evt, fmt.Errorf("failed to unmarshal message data: %w", err)
	}
	if evt.CameraCode == "" {
		return evt, fmt.Errorf("message has no camera_code")
	}
	return evt, nil
}

var _ StatusSink = (*store.StatusCache)(nil)
