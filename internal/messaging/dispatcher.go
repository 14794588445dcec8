// Package messaging runs best-effort work after a transaction commits: customer
// notifications over RabbitMQ and realtime seat/booking events over Kafka.
package messaging

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

// Task is one detached unit of post-commit work. Run may be called more than once.
type Task struct {
	Name string
	Run  func(ctx context.Context) error
}

// DispatcherConfig configures the worker pool and retry policy.
type DispatcherConfig struct {
	Workers     int
	QueueSize   int
	MaxAttempts int
	Backoff     time.Duration // first retry delay, doubled per attempt
	MaxBackoff  time.Duration
	TaskTimeout time.Duration
}

// Dispatcher runs tasks on a bounded pool with retry and exponential backoff.
// Failures are logged and never reach the code that dispatched the task.
type Dispatcher struct {
	cfg    DispatcherConfig
	queue  chan Task
	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool
	sleep  func(ctx context.Context, d time.Duration) bool

	dropped   atomic.Int64
	failed    atomic.Int64
	succeeded atomic.Int64
}

func NewDispatcher(cfg DispatcherConfig) *Dispatcher {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = 500 * time.Millisecond
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 30 * time.Second
	}
	if cfg.TaskTimeout <= 0 {
		cfg.TaskTimeout = 10 * time.Second
	}
	return &Dispatcher{
		cfg:   cfg,
		queue: make(chan Task, cfg.QueueSize),
		sleep: sleepCtx,
	}
}

// Start launches the workers.
func (d *Dispatcher) Start() {
	for i := 0; i < d.cfg.Workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
}

// Dispatch enqueues without blocking. It returns false when the task was dropped
// because the queue is full or the dispatcher is closed.
func (d *Dispatcher) Dispatch(t Task) bool {
	if d == nil || t.Run == nil {
		return false
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.dropped.Add(1)
		logrus.WithField("task", t.Name).Warn("dispatcher closed, task dropped")
		return false
	}
	select {
	case d.queue <- t:
		return true
	default:
		d.dropped.Add(1)
		logrus.WithField("task", t.Name).Warn("dispatch queue full, task dropped")
		return false
	}
}

// Close stops intake and waits for queued tasks until ctx expires.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stats reports counters since start.
func (d *Dispatcher) Stats() (succeeded, failed, dropped int64) {
	return d.succeeded.Load(), d.failed.Load(), d.dropped.Load()
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for t := range d.queue {
		d.run(t)
	}
}

func (d *Dispatcher) run(t Task) {
	ctx := context.Background()
	delay := d.cfg.Backoff
	var lastErr error
	for attempt := 1; attempt <= d.cfg.MaxAttempts; attempt++ {
		lastErr = d.attempt(ctx, t)
		if lastErr == nil {
			d.succeeded.Add(1)
			return
		}
		logrus.WithFields(logrus.Fields{
			"task":    t.Name,
			"attempt": attempt,
		}).WithError(lastErr).Warn("post-commit task failed")
		if attempt == d.cfg.MaxAttempts {
			break
		}
		if !d.sleep(ctx, delay) {
			break
		}
		delay *= 2
		if delay > d.cfg.MaxBackoff {
			delay = d.cfg.MaxBackoff
		}
	}
	d.failed.Add(1)
	logrus.WithField("task", t.Name).WithError(lastErr).Error("post-commit task gave up")
}

func (d *Dispatcher) attempt(ctx context.Context, t Task) (err error) {
	ctx, cancel := context.WithTimeout(ctx, d.cfg.TaskTimeout)
	defer cancel()
	defer func() {
		if p := recover(); p != nil {
			err = panicError{value: p}
		}
	}()
	return t.Run(ctx)
}

type panicError struct{ value any }

func (e panicError) Error() string { return "task panicked" }

func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
