// Package collector ships analytics events to Kafka in batches. It suits
// query rates where one produce call per search is too chatty.
package collector

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/kafka"
)

var _ analytics.Tracker = (*BatchCollector)(nil)

// maxBacklog is how many batches may pile up while Kafka is failing.
const maxBacklog = 3

// BatchCollector buffers events and publishes them when batchSize is
// reached or flushInterval elapses. All publishing happens on the loop
// started by Start, so batches leave in order.
type BatchCollector struct {
	producer      kafka.Publisher
	batchSize     int
	flushInterval time.Duration
	logger        *slog.Logger

	mu      sync.Mutex
	buffer  []kafka.Event
	kick    chan struct{}
	done    chan struct{}
	dropped atomic.Int64
}

func NewBatchCollector(producer kafka.Publisher, batchSize int, flushInterval time.Duration) *BatchCollector {
	if batchSize <= 0 {
		batchSize = 100
	}
	if flushInterval <= 0 {
		flushInterval = 5 * time.Second
	}
	return &BatchCollector{
		producer:      producer,
		batchSize:     batchSize,
		flushInterval: flushInterval,
		logger:        slog.Default().With("component", "batch-collector"),
		buffer:        make([]kafka.Event, 0, batchSize),
		kick:          make(chan struct{}, 1),
		done:          make(chan struct{}),
	}
}

// Start runs the flush loop until ctx ends, then flushes what is left
// with a 5s deadline.
func (bc *BatchCollector) Start(ctx context.Context) {
	bc.logger.Info("batch collector started",
		"batch_size", bc.batchSize,
		"flush_interval", bc.flushInterval,
	)
	go func() {
		defer close(bc.done)
		ticker := time.NewTicker(bc.flushInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				bc.flush(ctx)
			case <-bc.kick:
				bc.flush(ctx)
			case <-ctx.Done():
				final, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
				bc.flush(final)
				cancel()
				return
			}
		}
	}()
}

// Track buffers event and wakes the loop once a full batch is waiting.
func (bc *BatchCollector) Track(event any) {
	bc.mu.Lock()
	bc.buffer = append(bc.buffer, kafka.Event{Key: analytics.EventKey(event), Value: event})
	full := len(bc.buffer) >= bc.batchSize
	bc.mu.Unlock()

	if full {
		select {
		case bc.kick <- struct{}{}:
		default:
		}
	}
}

// Close waits for the loop to exit. Cancel the Start context first.
func (bc *BatchCollector) Close() {
	<-bc.done
}

func (bc *BatchCollector) BufferLen() int {
	bc.mu.Lock()
	defer bc.mu.Unlock()
	return len(bc.buffer)
}

// Dropped counts events discarded because Kafka stayed unavailable.
func (bc *BatchCollector) Dropped() int64 {
	return bc.dropped.Load()
}

func (bc *BatchCollector) flush(ctx context.Context) {
	bc.mu.Lock()
	batch := bc.buffer
	bc.buffer = make([]kafka.Event, 0, bc.batchSize)
	bc.mu.Unlock()
	if len(batch) == 0 {
		return
	}

	err := bc.producer.PublishBatch(ctx, batch)
	if err == nil {
		bc.logger.Debug("batch flushed", "events", len(batch))
		return
	}

	// Put the batch back in front of anything tracked meanwhile, keeping
	// the newest events when the backlog is over its cap.
	bc.mu.Lock()
	bc.buffer = append(batch, bc.buffer...)
	var dropped int
	if limit := bc.batchSize * maxBacklog; len(bc.buffer) > limit {
		dropped = len(bc.buffer) - limit
		bc.buffer = bc.buffer[dropped:]
	}
	bc.mu.Unlock()

	bc.dropped.Add(int64(dropped))
	bc.logger.Error("batch flush failed",
		"events", len(batch),
		"dropped", dropped,
		"error", err,
	)
}
