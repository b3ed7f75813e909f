// Package worker runs slow collaborator calls (recording, persistence,
// credential checks) off the reactor goroutine.
package worker

import (
	"context"
	"errors"
	"runtime/debug"
	"sync/atomic"

	"github.com/rs/zerolog/log"
)

var ErrStopped = errors.New("worker queue stopped")

const DefaultQueueSize = 1024

// Job is one unit of work. Errors are logged, never propagated.
type Job func(ctx context.Context) error

type task struct {
	name string
	job  Job
}

// Queue is a bounded FIFO of jobs drained by a single goroutine.
// Submit never blocks: a full queue drops the job.
type Queue struct {
	tasks   chan task
	stopped atomic.Bool
	dropped atomic.Uint64
}

func NewQueue(size int) *Queue {
	if size <= 0 {
		size = DefaultQueueSize
	}
	return &Queue{tasks: make(chan task, size)}
}

// Submit enqueues job and reports whether it was accepted.
func (q *Queue) Submit(name string, job Job) bool {
	if q.stopped.Load() {
		return false
	}
	select {
	case q.tasks <- task{name: name, job: job}:
		return true
	default:
		q.dropped.Add(1)
		log.Warn().Str("module", "worker").Str("job", name).Msg("queue full, job dropped")
		return false
	}
}

// Dropped is the number of jobs rejected because the queue was full.
func (q *Queue) Dropped() uint64 { return q.dropped.Load() }

// Run drains the queue until ctx is done. Jobs still queued at that point are
// run with an already cancelled context so they can release resources.
func (q *Queue) Run(ctx context.Context) error {
	log.Info().Str("module", "worker").Int("capacity", cap(q.tasks)).Msg("worker started")
	for {
		select {
		case <-ctx.Done():
			q.stopped.Store(true)
			q.drain(ctx)
			log.Info().Str("module", "worker").Msg("worker stopped")
			return nil
		case t := <-q.tasks:
			q.exec(ctx, t)
		}
	}
}

func (q *Queue) drain(ctx context.Context) {
	for {
		select {
		case t := <-q.tasks:
			q.exec(ctx, t)
		default:
			return
		}
	}
}

func (q *Queue) exec(ctx context.Context, t task) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Str("module", "worker").
				Str("job", t.name).
				Interface("panic", r).
				Str("stack", string(debug.Stack())).
				Msg("job panicked")
		}
	}()
	if err := t.job(ctx); err != nil {
		log.Error().Err(err).Str("module", "worker").Str("job", t.name).Msg("job failed")
	}
}
