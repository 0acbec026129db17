package events

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

const (
	defaultBuffer      = 256
	defaultSinkTimeout = 5 * time.Second
)

// Bus decouples the reconciler from the sinks. Publish never blocks; a single
// delivery goroutine keeps events in publish order. A full queue drops the event.
type Bus struct {
	queue       chan CameraStatusChanged
	sinks       []Emitter
	logger      *zap.Logger
	sinkTimeout time.Duration
	dropped     atomic.Int64
	delivered   atomic.Int64
}

// NewBus builds a bus with the given queue size (<= 0 uses the default).
func NewBus(buffer int, logger *zap.Logger, sinks ...Emitter) *Bus {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	return &Bus{
		queue:       make(chan CameraStatusChanged, buffer),
		sinks:       sinks,
		logger:      logger,
		sinkTimeout: defaultSinkTimeout,
	}
}

// Publish enqueues evt for delivery.
func (b *Bus) Publish(evt CameraStatusChanged) {
	select {
	case b.queue <- evt:
	default:
		b.dropped.Add(1)
		b.logger.Warn("Event queue full, dropping camera status event",
			zap.String("camera_code", evt.CameraCode),
			zap.String("status", evt.Status),
		)
	}
}

// Run delivers queued events until ctx is cancelled, then flushes what is left.
func (b *Bus) Run(ctx context.Context) {
	for {
		select {
		case evt := <-b.queue:
			b.deliver(ctx, evt)
		case <-ctx.Done():
			b.flush()
			return
		}
	}
}

func (b *Bus) flush() {
	for {
		select {
		case evt := <-b.queue:
			b.deliver(context.Background(), evt)
		default:
			return
		}
	}
}

func (b *Bus) deliver(parent context.Context, evt CameraStatusChanged) {
	for _, sink := range b.sinks {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), b.sinkTimeout)
		err := sink.Emit(ctx, evt)
		cancel()
		if err != nil {
			b.logger.Error("Failed to deliver camera status event",
				zap.String("event_id", evt.EventID),
				zap.String("camera_code", evt.CameraCode),
				zap.Error(err),
			)
		}
	}
	b.delivered.Add(1)
}

// Dropped returns how many events were discarded because the queue was full.
func (b *Bus) Dropped() int64 { return b.dropped.Load() }

// Delivered returns how many events went through every sink.
func (b *Bus) Delivered() int64 { return b.delivered.Load() }
