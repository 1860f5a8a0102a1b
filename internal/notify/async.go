package notify

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/stanercelik/PolySleep-sub003/internal/domain"

	"go.uber.org/zap"
)

const (
	DefaultQueueSize       = 256
	DefaultDeliveryTimeout = 30 * time.Second
)

var (
	ErrQueueFull = errors.New("event queue full")
	ErrClosed    = errors.New("publisher closed")
)

// AsyncPublisher queues events and delivers them from one worker goroutine,
// so callers never wait on broker or webhook I/O. Delivery order is queue order.
type AsyncPublisher struct {
	next    Publisher
	queue   chan domain.AdaptationEvent
	timeout time.Duration
	logger  *zap.Logger

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

func NewAsyncPublisher(next Publisher, size int, timeout time.Duration, logger *zap.Logger) *AsyncPublisher {
	if size <= 0 {
		size = DefaultQueueSize
	}
	if timeout <= 0 {
		timeout = DefaultDeliveryTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &AsyncPublisher{
		next:    next,
		queue:   make(chan domain.AdaptationEvent, size),
		timeout: timeout,
		logger:  logger,
		done:    make(chan struct{}),
	}
	go p.run()
	return p
}

// Publish enqueues ev without blocking; ErrQueueFull when the worker is behind
func (p *AsyncPublisher) Publish(_ context.Context, ev domain.AdaptationEvent) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrClosed
	}
	select {
	case p.queue <- ev:
		return nil
	default:
		return ErrQueueFull
	}
}

// Close stops accepting events and waits until the queue is drained or ctx ends
func (p *AsyncPublisher) Close(ctx context.Context) error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.queue)
	}
	p.mu.Unlock()

	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *AsyncPublisher) run() {
	defer close(p.done)
	for ev := range p.queue {
		ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
		err := p.next.Publish(ctx, ev)
		cancel()
		if err != nil {
			p.logger.Warn("failed to deliver adaptation event",
				zap.String("type", string(ev.Type)),
				zap.String("user_id", ev.UserID),
				zap.String("schedule_id", ev.ScheduleID),
				zap.Error(err),
			)
		}
	}
}
