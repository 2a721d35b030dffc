// Package queue hands fetched batches from background workers to the
// foreground loop.
//
// Producers never block: a full or closed queue refuses the batch and the
// caller drops it. The consumer polls with TryDequeue once per cycle.
package queue

import (
	"context"
	"sync"

	"github.com/okian/hockeyplots/internal/domain/model"
	"github.com/okian/hockeyplots/pkg/metrics"
)

const defaultQueueCapacity = 4

// Queue provides non-blocking enqueue and non-blocking dequeue.
type Queue interface {
	// Enqueue adds a batch. Returns false if the queue is full or closed.
	Enqueue(ctx context.Context, b *model.Batch) bool

	// TryDequeue returns the oldest batch, or false when none is waiting.
	TryDequeue() (*model.Batch, bool)

	// Len returns the number of waiting batches.
	Len() int

	// Cap returns the configured capacity.
	Cap() int

	// Close refuses further batches. Waiting batches can still be drained.
	Close() error

	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	batches  chan *model.Batch
	capacity int
	mu       sync.RWMutex
	closed   bool
}

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{capacity: defaultQueueCapacity}
	for _, opt := range opts {
		opt(q)
	}
	q.batches = make(chan *model.Batch, q.capacity)

	metrics.UpdateHandoffCapacity(q.capacity)
	metrics.UpdateHandoffDepth(0)
	return q
}

// Enqueue adds a batch to the queue.
func (q *InMemoryQueue) Enqueue(ctx context.Context, b *model.Batch) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordErrorByComponent("queue", "closed")
		return false
	}

	select {
	case <-ctx.Done():
		metrics.RecordErrorByComponent("queue", "context_cancelled")
		return false
	default:
	}

	select {
	case q.batches <- b:
		metrics.UpdateHandoffDepth(len(q.batches))
		return true
	default:
		metrics.RecordErrorByComponent("queue", "queue_full")
		return false
	}
}

// TryDequeue never blocks.
func (q *InMemoryQueue) TryDequeue() (*model.Batch, bool) {
	select {
	case b, ok := <-q.batches:
		if !ok {
			return nil, false
		}
		metrics.UpdateHandoffDepth(len(q.batches))
		return b, true
	default:
		return nil, false
	}
}

// Len returns the current number of queued batches.
func (q *InMemoryQueue) Len() int {
	return len(q.batches)
}

// Cap returns the queue capacity.
func (q *InMemoryQueue) Cap() int {
	return q.capacity
}

// Close gracefully shuts down the queue.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.batches)
	q.closed = true
	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
