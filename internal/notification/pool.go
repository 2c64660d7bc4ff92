package notification

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// DeliverFunc handles one message on a worker goroutine.
type DeliverFunc func(ctx context.Context, msg Message) error

type Worker struct {
	ID         int
	WorkerPool chan chan Message
	JobChannel chan Message
	Logger     *slog.Logger
	drained    <-chan struct{}
}

func NewWorker(id int, workerPool chan chan Message, drained <-chan struct{}, logger *slog.Logger) *Worker {
	return &Worker{
		ID:         id,
		WorkerPool: workerPool,
		JobChannel: make(chan Message),
		Logger:     logger,
		drained:    drained,
	}
}

// Start runs the worker until the dispatcher has drained the queue or ctx is cancelled.
func (w *Worker) Start(ctx context.Context, wg *sync.WaitGroup, deliver DeliverFunc) {
	wg.Add(1)
	go func() {
		defer wg.Done()

		for {
			select {
			case w.WorkerPool <- w.JobChannel:
			case <-w.drained:
				return
			case <-ctx.Done():
				return
			}

			select {
			case msg := <-w.JobChannel:
				w.Logger.Debug("worker delivering notification", "worker_id", w.ID, "message_id", msg.ID, "kind", msg.Kind)
				if err := deliver(ctx, msg); err != nil {
					w.Logger.Error("notification delivery failed",
						"worker_id", w.ID,
						"message_id", msg.ID,
						"kind", msg.Kind,
						"user_id", msg.Recipient.UserID,
						"error", err)
				}
			case <-w.drained:
				w.Logger.Debug("worker shutting down", "worker_id", w.ID)
				return
			case <-ctx.Done():
				w.Logger.Debug("worker shutting down", "worker_id", w.ID)
				return
			}
		}
	}()
}

type PoolConfig struct {
	MaxWorkers   int
	JobQueueSize int
	// ShutdownTimeout bounds how long Shutdown waits for queued messages. Defaults to 10s.
	ShutdownTimeout time.Duration
}

// Pool delivers notifications in-process on a fixed set of workers. It implements Sender.
type Pool struct {
	logger          *slog.Logger
	deliver         DeliverFunc
	jobQueue        chan Message
	workerPool      chan chan Message
	drained         chan struct{}
	maxWorkers      int
	shutdownTimeout time.Duration
	ctx             context.Context
	cancel          context.CancelFunc
	wg              sync.WaitGroup
	once            sync.Once
	stopOnce        sync.Once

	mu     sync.RWMutex
	closed bool
}

func NewPool(config PoolConfig, deliver DeliverFunc, logger *slog.Logger) *Pool {
	ctx, cancel := context.WithCancel(context.Background())

	maxWorkers := config.MaxWorkers
	if maxWorkers <= 0 {
		maxWorkers = 4
	}
	jobQueueSize := config.JobQueueSize
	if jobQueueSize <= 0 {
		jobQueueSize = 100
	}
	shutdownTimeout := config.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}

	pool := &Pool{
		logger:          logger,
		deliver:         deliver,
		jobQueue:        make(chan Message, jobQueueSize),
		workerPool:      make(chan chan Message, maxWorkers),
		drained:         make(chan struct{}),
		maxWorkers:      maxWorkers,
		shutdownTimeout: shutdownTimeout,
		ctx:             ctx,
		cancel:          cancel,
	}
	pool.start()
	return pool
}

func (p *Pool) start() {
	p.once.Do(func() {
		for i := 0; i < p.maxWorkers; i++ {
			NewWorker(i, p.workerPool, p.drained, p.logger).Start(p.ctx, &p.wg, p.deliver)
		}

		p.wg.Add(1)
		go p.dispatch()

		p.logger.Info("notification worker pool started",
			"max_workers", p.maxWorkers,
			"queue_size", cap(p.jobQueue))
	})
}

// dispatch hands queued messages to idle workers until the queue is closed and empty.
func (p *Pool) dispatch() {
	defer p.wg.Done()
	defer close(p.drained)

	for msg := range p.jobQueue {
		select {
		case jobChannel := <-p.workerPool:
			select {
			case jobChannel <- msg:
				continue
			case <-p.ctx.Done():
			}
		case <-p.ctx.Done():
		}
		p.logger.Warn("notification dispatcher cancelled", "dropped", len(p.jobQueue)+1)
		return
	}
	p.logger.Debug("notification queue drained")
}

// Submit enqueues msg without blocking. A full queue is an error.
func (p *Pool) Submit(msg Message) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return fmt.Errorf("notification pool is shut down")
	}

	select {
	case p.jobQueue <- msg:
		return nil
	default:
		return fmt.Errorf("notification queue full (%d)", cap(p.jobQueue))
	}
}

func (p *Pool) Send(_ context.Context, recipient Recipient, kind Kind, payload map[string]interface{}) error {
	return p.Submit(NewMessage(recipient, kind, payload))
}

// Shutdown stops accepting messages and waits for the queued ones to be delivered.
// Deliveries still running after ShutdownTimeout are cancelled.
func (p *Pool) Shutdown() {
	p.stopOnce.Do(func() {
		p.logger.Info("shutting down notification pool", "queued", len(p.jobQueue))

		p.mu.Lock()
		p.closed = true
		close(p.jobQueue)
		p.mu.Unlock()

		done := make(chan struct{})
		go func() {
			p.wg.Wait()
			close(done)
		}()

		timer := time.NewTimer(p.shutdownTimeout)
		defer timer.Stop()

		select {
		case <-done:
		case <-timer.C:
			p.logger.Warn("notification pool drain timed out", "timeout", p.shutdownTimeout)
			p.cancel()
			<-done
		}
		p.cancel()
		p.logger.Info("notification pool shutdown complete")
	})
}
