package services

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	rabbit "storefront-orders/internal/infra/rabbitmq"

	"golang.org/x/sync/errgroup"
)

const publishTimeout = 5 * time.Second

type event struct {
	kind    string
	payload any
}

// Dispatcher delivers notifications off the request path. Notify never
// blocks; when the queue is full the event is dropped and logged.
type Dispatcher struct {
	publisher rabbit.PublisherInterface
	queue     chan event
	workers   int
	dropped   atomic.Int64
}

var _ Notifier = (*Dispatcher)(nil)

func NewDispatcher(pub rabbit.PublisherInterface, workers, buffer int) *Dispatcher {
	if workers <= 0 {
		workers = 1
	}
	return &Dispatcher{
		publisher: pub,
		queue:     make(chan event, buffer),
		workers:   workers,
	}
}

func (d *Dispatcher) Notify(eventType string, payload any) {
	select {
	case d.queue <- event{kind: eventType, payload: payload}:
	default:
		d.dropped.Add(1)
		slog.Warn("notification queue full, dropping event", "event", eventType)
	}
}

// Dropped reports how many events were discarded because the queue was full.
func (d *Dispatcher) Dropped() int64 {
	return d.dropped.Load()
}

// Run starts the workers and blocks until ctx is done and the queue has
// been drained.
func (d *Dispatcher) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < d.workers; i++ {
		g.Go(func() error {
			d.work(gctx)
			return nil
		})
	}
	return g.Wait()
}

func (d *Dispatcher) work(ctx context.Context) {
	for {
		select {
		case evt := <-d.queue:
			d.publish(evt)
		case <-ctx.Done():
			d.drain()
			return
		}
	}
}

func (d *Dispatcher) drain() {
	for {
		select {
		case evt := <-d.queue:
			d.publish(evt)
		default:
			return
		}
	}
}

func (d *Dispatcher) publish(evt event) {
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	if err := d.publisher.Publish(ctx, evt.kind, evt.payload); err != nil {
		slog.Error("failed to publish event", "event", evt.kind, "err", err)
		return
	}
	slog.Debug("published event", "event", evt.kind)
}
