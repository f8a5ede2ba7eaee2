// Package worker runs background jobs on a fixed-size pool with a
// one-slot queue. Submission never blocks: when the slot is taken the
// job is refused, which gives callers strict back-pressure instead of
// an unbounded backlog.
package worker

import (
	"context"
	"runtime"
	"sync"
)

// Job is one unit of background work. It must honor ctx cancellation.
type Job func(ctx context.Context)

type queued struct {
	ctx context.Context
	run Job
}

type Pool struct {
	jobs chan queued
	wg   sync.WaitGroup

	closeOnce sync.Once
}

// New starts size workers. size <= 0 means one per CPU.
func New(size int) *Pool {
	if size <= 0 {
		size = runtime.NumCPU()
	}
	p := &Pool{jobs: make(chan queued, 1)}
	p.wg.Add(size)
	for i := 0; i < size; i++ {
		go p.worker()
	}
	return p
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for q := range p.jobs {
		if q.ctx.Err() != nil {
			continue // cancelled while queued
		}
		q.run(q.ctx)
	}
}

// Submit queues a job. It reports false when the queue slot is occupied
// or the job's context is already done.
func (p *Pool) Submit(ctx context.Context, run Job) bool {
	if ctx.Err() != nil {
		return false
	}
	select {
	case p.jobs <- queued{ctx: ctx, run: run}:
		return true
	default:
		return false
	}
}

// Close stops accepting jobs and waits for running ones to finish.
func (p *Pool) Close() {
	p.closeOnce.Do(func() {
		close(p.jobs)
	})
	p.wg.Wait()
}
