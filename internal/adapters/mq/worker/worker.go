// Package worker drains the mail queue into a Mailer.
package worker

import (
	"context"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/okian/stork/internal/adapters/mail"
	"github.com/okian/stork/pkg/logger"
	"github.com/okian/stork/pkg/metrics"
)

// Default worker configuration constants.
const (
	defaultWorkerCount  = 2
	defaultSendTimeout  = 10 * time.Second
	poolShutdownTimeout = 30 * time.Second
)

// Message is what workers read off the queue.
type Message = mail.Message

// Mailer delivers one message.
type Mailer interface {
	Send(ctx context.Context, m Message) error
}

// Queue defines how workers receive messages.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Message
}

// Worker sends queued messages.
type Worker interface {
	// Run starts the worker loop until the queue closes, ctx is canceled or
	// Shutdown is called.
	Run(ctx context.Context)

	// Shutdown stops the worker without draining.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker.
type InMemoryWorker struct {
	queue       Queue
	mailer      Mailer
	name        string
	sendTimeout time.Duration
	active      *atomic.Int64
	sent        *atomic.Int64

	shutdown chan struct{}
	done     chan struct{}

	base   logger.Logger
	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(queue Queue, mailer Mailer, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:       queue,
		mailer:      mailer,
		name:        "worker",
		sendTimeout: defaultSendTimeout,
		active:      new(atomic.Int64),
		sent:        new(atomic.Int64),
		shutdown:    make(chan struct{}),
		done:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.base == nil {
		w.base = logger.Get()
	}
	w.logger = w.base.Named(w.name)
	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	messages := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case m, ok := <-messages:
			if !ok {
				return
			}
			if err := w.send(ctx, m); err != nil {
				w.logger.Error(ctx, "mail delivery failed",
					logger.String("id", m.ID),
					logger.String("kind", m.Kind),
					logger.String("to", m.To),
					logger.Error(err))
			}
		}
	}
}

// Shutdown stops the worker.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	close(w.shutdown)
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// send delivers one message with the per-message timeout.
func (w *InMemoryWorker) send(ctx context.Context, m Message) error { //nolint:gocritic // Message is passed by value for channel semantics
	start := time.Now()
	metrics.UpdateWorkerActiveCount(int(w.active.Add(1)))
	defer func() {
		metrics.UpdateWorkerActiveCount(int(w.active.Add(-1)))
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	sendCtx, cancel := context.WithTimeout(ctx, w.sendTimeout)
	defer cancel()

	if err := w.mailer.Send(sendCtx, m); err != nil {
		metrics.RecordMailFailed()
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "send_failed")
		return fmt.Errorf("send %s mail %s: %w", m.Kind, m.ID, err)
	}
	w.sent.Add(1)
	metrics.RecordMailSent()
	w.logger.Debug(ctx, "mail sent", logger.String("id", m.ID), logger.String("kind", m.Kind))
	return nil
}

// Pool manages multiple workers sharing one queue.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue
	active  atomic.Int64
	sent    atomic.Int64
	logger  logger.Logger
}

// NewPool creates a pool of workerCount workers. Options apply to every worker.
func NewPool(workerCount int, queue Queue, mailer Mailer, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = defaultWorkerCount
	}

	p := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   queue,
	}
	for i := 0; i < workerCount; i++ {
		workerOpts := append([]Option{WithName("mail-worker-" + strconv.Itoa(i))}, opts...)
		w := NewInMemoryWorker(queue, mailer, workerOpts...)
		w.active = &p.active
		w.sent = &p.sent
		p.workers[i] = w
	}
	p.logger = p.workers[0].base.Named("mail-pool")

	metrics.UpdateWorkerCount(workerCount)
	metrics.UpdateWorkerActiveCount(0)

	return p
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Sent returns the number of messages delivered so far.
func (p *Pool) Sent() int64 { return p.sent.Load() }

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Shutdown closes the queue and waits for the workers to drain it. Workers
// still busy when ctx or the pool timeout expires are abandoned.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			p.logger.Warn(ctx, "worker drain timed out", logger.Int("worker_id", i))
			return fmt.Errorf("drain mail queue: %w", shutdownCtx.Err())
		}
	}
	metrics.UpdateWorkerCount(0)
	return nil
}
