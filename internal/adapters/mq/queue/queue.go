// Package queue defines the contract for fanning rank notices out to
// the leaderboard ranker.
//
// The award path enqueues without blocking; notices dropped under
// backpressure only delay leaderboard convergence, never correctness.
package queue

import (
	"context"
	"sync"

	"github.com/okian/ladle/internal/domain/model"
	"github.com/okian/ladle/pkg/metrics"
)

// Default queue configuration constants.
const (
	defaultCapacity = 100000
)

// Notice is the payload type flowing through the queue.
type Notice = model.RankNotice

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds a notice to the queue.
	// Returns false if the queue is full and the notice was dropped.
	Enqueue(ctx context.Context, n Notice) bool

	// Dequeue returns a channel that receives notices as they become
	// available. The channel is closed when the queue is closed.
	Dequeue(ctx context.Context) <-chan Notice

	// Len returns the current number of queued notices.
	Len(ctx context.Context) int

	// Close gracefully shuts down the queue. After closing, no new
	// notices can be enqueued and the dequeue channel is closed.
	Close() error

	// IsClosed returns true if the queue has been closed.
	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	notices  chan Notice
	capacity int
	mu       sync.RWMutex
	closed   bool
}

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{
		capacity: defaultCapacity,
	}

	for _, opt := range opts {
		opt(q)
	}

	q.notices = make(chan Notice, q.capacity)

	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueSize(0)
	metrics.UpdateQueueUtilization(0.0)

	return q
}

// Enqueue adds a notice to the queue without blocking.
func (q *InMemoryQueue) Enqueue(ctx context.Context, n Notice) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordQueueDrop()
		metrics.RecordErrorByComponent("queue", "closed")
		return false
	}

	select {
	case q.notices <- n:
		metrics.RecordQueueEnqueue()
		size := len(q.notices)
		metrics.UpdateQueueSize(size)
		metrics.UpdateQueueUtilization(float64(size) / float64(q.capacity))
		return true
	case <-ctx.Done():
		metrics.RecordQueueDrop()
		metrics.RecordErrorByComponent("queue", "context_cancelled")
		return false
	default:
		metrics.RecordQueueDrop()
		metrics.RecordErrorByComponent("queue", "queue_full")
		return false
	}
}

// Dequeue returns a channel that receives notices as they become available.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan Notice {
	out := make(chan Notice)
	go func() {
		defer close(out)
		for n := range q.notices {
			select {
			case out <- n:
				metrics.RecordQueueDequeue()
				size := len(q.notices)
				metrics.UpdateQueueSize(size)
				metrics.UpdateQueueUtilization(float64(size) / float64(q.capacity))
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Len returns the current number of queued notices.
func (q *InMemoryQueue) Len(ctx context.Context) int {
	size := len(q.notices)
	metrics.UpdateQueueSize(size)
	return size
}

// Close gracefully shuts down the queue.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}

	close(q.notices)
	q.closed = true

	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
