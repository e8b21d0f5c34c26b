package analytics

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/kafka"
)

const publishTimeout = 5 * time.Second

// Collector ships events to Kafka one at a time from a background
// goroutine. Track never blocks the request path: with the queue full the
// event is counted as dropped.
type Collector struct {
	producer kafka.Publisher
	logger   *slog.Logger

	mu      sync.RWMutex
	closed  bool
	events  chan any
	done    chan struct{}
	dropped atomic.Int64
}

func NewCollector(producer kafka.Publisher, bufferSize int) *Collector {
	if bufferSize <= 0 {
		bufferSize = 10000
	}
	return &Collector{
		producer: producer,
		logger:   slog.Default().With("component", "analytics-collector"),
		events:   make(chan any, bufferSize),
		done:     make(chan struct{}),
	}
}

// Start publishes queued events until Close. Events still queued when ctx
// is cancelled are published anyway, each with its own short deadline.
func (c *Collector) Start(ctx context.Context) {
	c.logger.Info("analytics collector started", "buffer_size", cap(c.events))
	base := context.WithoutCancel(ctx)
	go func() {
		defer close(c.done)
		for event := range c.events {
			pctx, cancel := context.WithTimeout(base, publishTimeout)
			if err := c.producer.Publish(pctx, kafka.Event{Key: EventKey(event), Value: event}); err != nil {
				c.logger.Error("failed to publish analytics event", "key", EventKey(event), "error", err)
			}
			cancel()
		}
	}()
}

func (c *Collector) Track(event any) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return
	}
	select {
	case c.events <- event:
	default:
		if n := c.dropped.Add(1); n&(n-1) == 0 {
			c.logger.Warn("analytics queue full, dropping events", "dropped_total", n)
		}
	}
}

// Dropped returns how many events were discarded on a full queue.
func (c *Collector) Dropped() int64 {
	return c.dropped.Load()
}

// Close stops accepting events, publishes the backlog and waits for the
// worker to exit.
func (c *Collector) Close() {
	c.mu.Lock()
	if !c.closed {
		c.closed = true
		close(c.events)
	}
	c.mu.Unlock()
	<-c.done
}
