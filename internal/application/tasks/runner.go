// Package tasks runs fire-and-forget background work off the request path.
package tasks

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// ErrQueueFull is reported when a task is dropped because every worker is busy
// and the queue is at capacity.
var ErrQueueFull = errors.New("task queue full")

// ErrStopped is reported when a task is submitted after Shutdown.
var ErrStopped = errors.New("task runner stopped")

// Task is a unit of background work. The context carries the task timeout and
// is detached from the request that submitted it.
type Task struct {
	Name string
	Run  func(ctx context.Context) error
}

// Config sizes the runner.
type Config struct {
	Workers   int
	QueueSize int
	Timeout   time.Duration
	// OnError is called, in a worker goroutine, for every failed task.
	OnError func(name string, err error)
}

// Runner executes tasks on a fixed pool of workers fed by a bounded queue.
type Runner struct {
	cfg   Config
	queue chan Task
	wg    sync.WaitGroup

	mu      sync.RWMutex
	stopped bool
}

// NewRunner creates a runner and starts its workers.
func NewRunner(cfg Config) *Runner {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 64
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = time.Minute
	}

	r := &Runner{
		cfg:   cfg,
		queue: make(chan Task, cfg.QueueSize),
	}

	for i := 0; i < cfg.Workers; i++ {
		r.wg.Add(1)
		go r.work(i)
	}

	return r
}

// Submit enqueues a task without blocking. A full queue drops the task.
func (r *Runner) Submit(task Task) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.stopped {
		return ErrStopped
	}

	select {
	case r.queue <- task:
		return nil
	default:
		log.Warn().Str("task", task.Name).Int("queue_size", r.cfg.QueueSize).Msg("task queue full, dropping task")
		return ErrQueueFull
	}
}

// Shutdown stops accepting tasks and waits for queued ones to finish or for
// ctx to expire.
func (r *Runner) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	if !r.stopped {
		r.stopped = true
		close(r.queue)
	}
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Runner) work(id int) {
	defer r.wg.Done()
	for task := range r.queue {
		r.run(id, task)
	}
}

func (r *Runner) run(worker int, task Task) {
	ctx, cancel := context.WithTimeout(context.Background(), r.cfg.Timeout)
	defer cancel()

	start := time.Now()
	err := func() (err error) {
		defer func() {
			if p := recover(); p != nil {
				err = panicError{value: p}
			}
		}()
		return task.Run(ctx)
	}()

	logger := log.With().Str("task", task.Name).Int("worker", worker).Dur("duration", time.Since(start)).Logger()
	if err != nil {
		logger.Error().Err(err).Msg("background task failed")
		if r.cfg.OnError != nil {
			r.cfg.OnError(task.Name, err)
		}
		return
	}
	logger.Debug().Msg("background task completed")
}

type panicError struct {
	value interface{}
}

func (p panicError) Error() string {
	return "task panicked: " + toString(p.value)
}

func toString(v interface{}) string {
	switch t := v.(type) {
	case error:
		return t.Error()
	case string:
		return t
	default:
		return "unknown panic"
	}
}
