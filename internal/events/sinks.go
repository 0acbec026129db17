package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-redis/redis/v8"
	rediscommon "github.com/superrexy/APD-Restaurant-Violation-App/common/redis"
	"go.uber.org/zap"
)

// StreamEmitter appends events to a Redis stream (XADD, "data" field holds the JSON).
type StreamEmitter struct {
	client *redis.Client
	stream string
	maxLen int64
}

func NewStreamEmitter(client *redis.Client, stream string, maxLen int64) *StreamEmitter {
	return &StreamEmitter{client: client, stream: stream, maxLen: maxLen}
}

func (e *StreamEmitter) Emit(ctx context.Context, evt CameraStatusChanged) error {
	if _, err := rediscommon.PublishJSONToStream(ctx, e.client, e.stream, evt, e.maxLen); err != nil {
		return fmt.Errorf("failed to publish to stream %s: %w", e.stream, err)
	}
	return nil
}

// MQTTPublisher is the subset of the MQTT client the sink needs.
type MQTTPublisher interface {
	Publish(topic string, qos byte, retained bool, payload []byte) error
}

// MQTTEmitter publishes retained messages on {prefix}/{camera_code}/status so a
// subscriber that connects late still sees the latest state.
type MQTTEmitter struct {
	client MQTTPublisher
	prefix string
	qos    byte
}

func NewMQTTEmitter(client MQTTPublisher, prefix string, qos byte) *MQTTEmitter {
	return &MQTTEmitter{client: client, prefix: strings.TrimRight(prefix, "/"), qos: qos}
}

// Topic returns the topic used for a camera.
func (e *MQTTEmitter) Topic(cameraCode string) string {
	return e.prefix + "/" + cameraCode + "/status"
}

func (e *MQTTEmitter) Emit(_ context.Context, evt CameraStatusChanged) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	return e.client.Publish(e.Topic(evt.CameraCode), e.qos, true, payload)
}

// LogEmitter writes every transition to the structured log.
type LogEmitter struct {
	logger *zap.Logger
}

func NewLogEmitter(logger *zap.Logger) *LogEmitter {
	return &LogEmitter{logger: logger}
}

func (e *LogEmitter) Emit(_ context.Context, evt CameraStatusChanged) error {
	fields := []zap.Field{
		zap.String("event_id", evt.EventID),
		zap.String("camera_code", evt.CameraCode),
		zap.String("status", evt.Status),
		zap.String("source", string(evt.Source)),
	}
	if evt.ConnectedAt != nil {
		fields = append(fields, zap.Time("connected_at", *evt.ConnectedAt))
	}
	if evt.DisconnectedAt != nil {
		fields = append(fields, zap.Time("disconnected_at", *evt.DisconnectedAt))
	}
	e.logger.Info("Camera status changed", fields...)
	return nil
}
