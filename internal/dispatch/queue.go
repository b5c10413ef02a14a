package dispatch

import (
	"context"
	"errors"
	"sync/atomic"
	"time"
)

// ErrQueueClosed is returned when enqueueing to a closed Queue.
var ErrQueueClosed = errors.New("dispatch queue closed")

// Job is one unit of AI work. ID is the triggering message ID.
type Job struct {
	ID             string
	ConversationID string
	Content        string
	Kind           JobKind
}

// Scheduler accepts jobs for later execution. It gives no completion signal.
type Scheduler interface {
	Enqueue(ctx context.Context, delay time.Duration, job Job) error
}

// Source hands queued jobs to workers.
type Source interface {
	Consume(ctx context.Context) (Job, bool)
}

// Queue is an in-process Scheduler and Source backed by a buffered channel.
type Queue struct {
	jobs   chan Job
	done   chan struct{}
	closed atomic.Bool
}

// NewQueue creates a Queue buffering up to size jobs.
func NewQueue(size int) *Queue {
	if size <= 0 {
		size = 100
	}
	return &Queue{
		jobs: make(chan Job, size),
		done: make(chan struct{}),
	}
}

// Enqueue schedules job. A positive delay defers the hand-off on a timer and
// returns immediately; a delayed job is dropped if the queue closes first.
func (q *Queue) Enqueue(ctx context.Context, delay time.Duration, job Job) error {
	if q.closed.Load() {
		return ErrQueueClosed
	}
	if delay > 0 {
		time.AfterFunc(delay, func() {
			_ = q.push(context.Background(), job)
		})
		return nil
	}
	return q.push(ctx, job)
}

func (q *Queue) push(ctx context.Context, job Job) error {
	select {
	case q.jobs <- job:
		return nil
	case <-q.done:
		return ErrQueueClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Consume blocks until a job is available or ctx ends. After Close it keeps
// handing out buffered jobs and reports false once the buffer is empty.
func (q *Queue) Consume(ctx context.Context) (Job, bool) {
	select {
	case job := <-q.jobs:
		return job, true
	case <-q.done:
		select {
		case job := <-q.jobs:
			return job, true
		default:
			return Job{}, false
		}
	case <-ctx.Done():
		return Job{}, false
	}
}

// Len returns the number of buffered jobs.
func (q *Queue) Len() int {
	return len(q.jobs)
}

// Close stops accepting jobs. Consumers drain what is already buffered.
func (q *Queue) Close() {
	if q.closed.CompareAndSwap(false, true) {
		close(q.done)
	}
}
