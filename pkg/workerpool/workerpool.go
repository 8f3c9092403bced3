// Package workerpool runs jobs on a fixed set of goroutines.
package workerpool

import (
	"context"
	"sync"
)

// Job is a unit of work submitted to the Pool.
// It returns an error to indicate failure; callers may treat errors as they see fit.
type Job func(ctx context.Context) error

// Pool runs jobs using a fixed number of goroutines. The full-text projection
// uses it to tokenize the entries of a batch in parallel.
type Pool struct {
	jobs    chan Job
	quit    chan struct{}
	wg      sync.WaitGroup
	workers int
	closeMu sync.Mutex
	closed  bool
	// OnError, if set, receives every job error.
	OnError func(error)
}

// New creates a pool with the specified number of workers and job queue capacity.
func New(workers, queue int) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if queue <= 0 {
		queue = workers * 2
	}
	return &Pool{
		jobs:    make(chan Job, queue),
		quit:    make(chan struct{}),
		workers: workers,
	}
}

// Workers returns the number of worker goroutines.
func (p *Pool) Workers() int { return p.workers }

// Start begins the worker goroutines. They run until ctx is done or Close is
// called; on Close, jobs already queued are still executed.
func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case <-p.quit:
					p.drain(ctx)
					return
				case job := <-p.jobs:
					p.run(ctx, job)
				}
			}
		}()
	}
}

func (p *Pool) drain(ctx context.Context) {
	for {
		select {
		case job := <-p.jobs:
			p.run(ctx, job)
		default:
			return
		}
	}
}

func (p *Pool) run(ctx context.Context, job Job) {
	if err := job(ctx); err != nil && p.OnError != nil {
		p.OnError(err)
	}
}

// Submit enqueues a job for processing. It blocks while the queue is full and
// returns ErrPoolClosed if the pool is closed before the job is accepted.
func (p *Pool) Submit(job Job) error {
	return p.SubmitCtx(context.Background(), job)
}

// SubmitCtx is Submit that also gives up when ctx is done.
func (p *Pool) SubmitCtx(ctx context.Context, job Job) error {
	p.closeMu.Lock()
	closed := p.closed
	p.closeMu.Unlock()
	if closed {
		return ErrPoolClosed
	}
	select {
	case p.jobs <- job:
		return nil
	case <-p.quit:
		return ErrPoolClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting new jobs and waits for workers to finish. Jobs
// submitted concurrently with Close may be dropped.
func (p *Pool) Close() {
	p.closeMu.Lock()
	if p.closed {
		p.closeMu.Unlock()
		return
	}
	p.closed = true
	close(p.quit)
	p.closeMu.Unlock()
	p.wg.Wait()
}

// ErrPoolClosed is returned if a Submit is attempted after Close.
var ErrPoolClosed = &PoolError{"worker pool closed"}

// PoolError provides a simple typed error for pool operations.
type PoolError struct{ msg string }

func (e *PoolError) Error() string { return e.msg }
