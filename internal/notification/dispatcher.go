package notification

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

var ErrQueueFull = errors.New("notification queue full")

// Job is one notification to deliver off the request path.
type Job struct {
	Kind Kind
	To   string
	Send func(ctx context.Context) error
}

type worker struct {
	id         int
	workerPool chan chan Job
	jobChannel chan Job
	logger     *slog.Logger
}

func newWorker(id int, workerPool chan chan Job, logger *slog.Logger) *worker {
	return &worker{
		id:         id,
		workerPool: workerPool,
		jobChannel: make(chan Job),
		logger:     logger,
	}
}

func (w *worker) start(ctx context.Context, wg *sync.WaitGroup, process func(Job)) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case w.workerPool <- w.jobChannel:
			case <-ctx.Done():
				return
			}

			select {
			case job := <-w.jobChannel:
				w.logger.Debug("worker processing notification", "worker_id", w.id, "kind", job.Kind)
				process(job)
			case <-ctx.Done():
				w.logger.Debug("notification worker shutting down", "worker_id", w.id)
				return
			}
		}
	}()
}

// Dispatcher delivers notification jobs on a fixed pool of workers.
type Dispatcher struct {
	logger *slog.Logger

	jobQueue   chan Job
	workerPool chan chan Job
	maxWorkers int
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	pending    sync.WaitGroup
	once       sync.Once
	stop       sync.Once
}

func NewDispatcher(workers, queueSize int, logger *slog.Logger) *Dispatcher {
	ctx, cancel := context.WithCancel(context.Background())

	if workers <= 0 {
		workers = 4
	}
	if queueSize <= 0 {
		queueSize = 100
	}

	d := &Dispatcher{
		logger:     logger,
		jobQueue:   make(chan Job, queueSize),
		workerPool: make(chan chan Job, workers),
		maxWorkers: workers,
		ctx:        ctx,
		cancel:     cancel,
	}
	d.start()
	return d
}

func (d *Dispatcher) start() {
	d.once.Do(func() {
		for i := 0; i < d.maxWorkers; i++ {
			newWorker(i, d.workerPool, d.logger).start(d.ctx, &d.wg, d.process)
		}

		d.wg.Add(1)
		go d.dispatch()

		d.logger.Info("notification worker pool started",
			"max_workers", d.maxWorkers,
			"queue_size", cap(d.jobQueue))
	})
}

func (d *Dispatcher) dispatch() {
	defer d.wg.Done()

	for {
		select {
		case job := <-d.jobQueue:
			select {
			case jobChannel := <-d.workerPool:
				select {
				case jobChannel <- job:
				case <-d.ctx.Done():
					return
				}
			case <-d.ctx.Done():
				return
			}
		case <-d.ctx.Done():
			d.logger.Info("notification dispatcher shutting down", "pending", len(d.jobQueue))
			return
		}
	}
}

func (d *Dispatcher) process(job Job) {
	defer d.pending.Done()
	if err := job.Send(d.ctx); err != nil {
		d.logger.Error("notification job failed", "error", err, "kind", job.Kind, "to", job.To)
	}
}

// Enqueue never blocks; a full queue is reported to the caller.
func (d *Dispatcher) Enqueue(job Job) error {
	select {
	case <-d.ctx.Done():
		return context.Canceled
	default:
	}

	d.pending.Add(1)
	select {
	case d.jobQueue <- job:
		return nil
	default:
		d.pending.Done()
		d.logger.Warn("notification queue full, dropping job",
			"kind", job.Kind,
			"to", job.To,
			"queue_capacity", cap(d.jobQueue))
		return ErrQueueFull
	}
}

// Drain waits until every accepted job has run or ctx is done.
func (d *Dispatcher) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.pending.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		d.logger.Warn("notification drain interrupted", "queued", len(d.jobQueue))
		return ctx.Err()
	}
}

func (d *Dispatcher) Shutdown() {
	d.stop.Do(func() {
		d.logger.Info("shutting down notification dispatcher")
		d.cancel()
		d.wg.Wait()
		d.logger.Info("notification dispatcher shutdown complete")
	})
}
