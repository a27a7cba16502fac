package queue

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"
)

var (
	// ErrQueueFull is returned by Dispatcher.Enqueue when the buffer is saturated.
	ErrQueueFull = errors.New("job queue full")
	// ErrDispatcherStopped is returned by Dispatcher.Enqueue once shutdown began.
	ErrDispatcherStopped = errors.New("job dispatcher stopped")
)

const defaultBackoff = time.Second

// Dispatcher runs tasks in-process on a pool of goroutines. It serves the same
// asynq.Handler the redis worker uses, for single-process deployments.
// Failed tasks are retried up to maxRetry times unless they wrap
// asynq.SkipRetry.
type Dispatcher struct {
	handler  asynq.Handler
	log      *logrus.Logger
	queue    chan *asynq.Task
	workers  int
	maxRetry int
	backoff  time.Duration
	stopped  <-chan struct{}
	wg       sync.WaitGroup
}

// NewDispatcher builds a Dispatcher with queue capacity tied to worker count.
func NewDispatcher(handler asynq.Handler, workers, maxRetry int, log *logrus.Logger) *Dispatcher {
	if workers <= 0 {
		workers = 1
	}
	if maxRetry < 0 {
		maxRetry = 0
	}
	return &Dispatcher{
		handler:  handler,
		log:      log,
		queue:    make(chan *asynq.Task, workers*64),
		workers:  workers,
		maxRetry: maxRetry,
		backoff:  defaultBackoff,
	}
}

// Start launches the worker goroutines. They exit once ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	d.stopped = ctx.Done()
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.worker(ctx)
	}
}

// Wait blocks until every worker goroutine has returned. Tasks still
// buffered at that point are discarded and counted in the log.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
	if n := d.drain(); n > 0 {
		d.log.WithField("dropped", n).Warn("job dispatcher stopped with queued jobs")
	}
}

func (d *Dispatcher) drain() int {
	n := 0
	for {
		select {
		case <-d.queue:
			n++
		default:
			return n
		}
	}
}

// Enqueue never blocks the caller.
func (d *Dispatcher) Enqueue(_ context.Context, task *asynq.Task) error {
	select {
	case <-d.stopped:
		return ErrDispatcherStopped
	default:
	}
	select {
	case d.queue <- task:
		return nil
	default:
		return ErrQueueFull
	}
}

func (d *Dispatcher) worker(ctx context.Context) {
	defer d.wg.Done()
	for ctx.Err() == nil {
		select {
		case <-ctx.Done():
			return
		case task := <-d.queue:
			// A started job finishes even if shutdown begins meanwhile.
			d.process(context.WithoutCancel(ctx), task)
		}
	}
}

func (d *Dispatcher) process(ctx context.Context, task *asynq.Task) {
	for attempt := 0; ; attempt++ {
		err := d.handler.ProcessTask(ctx, task)
		if err == nil {
			return
		}
		entry := d.log.WithFields(logrus.Fields{"type": task.Type(), "attempt": attempt + 1})
		if errors.Is(err, asynq.SkipRetry) || attempt >= d.maxRetry {
			entry.WithError(err).Error("job failed permanently")
			return
		}
		entry.WithError(err).Warn("job failed, retrying")
		time.Sleep(d.backoff * time.Duration(attempt+1))
	}
}
