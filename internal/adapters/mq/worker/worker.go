// Package worker defines worker contracts for asynchronous rank fan-out.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"time"

	"github.com/okian/ladle/internal/domain/model"
	"github.com/okian/ladle/pkg/logger"
	"github.com/okian/ladle/pkg/metrics"
)

// Default worker configuration constants.
const (
	defaultWorkerMultiplier = 4 // multiplier for runtime.NumCPU()
	workerShutdownTimeout   = 5 * time.Second
	poolShutdownTimeout     = 30 * time.Second
)

// Notice abstracts what workers read off the queue.
// Using the model.RankNotice type for consistency.
type Notice = model.RankNotice

// Ranker folds rank notices into the leaderboard windows.
type Ranker interface {
	Apply(ctx context.Context, n Notice)
}

// Queue defines how workers receive notices.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Notice
}

// Worker drains the notice queue and keeps the leaderboard current.
type Worker interface {
	// Run starts the worker loop until ctx is canceled.
	Run(ctx context.Context)

	// Shutdown gracefully stops the worker.
	// It will process any remaining notices before stopping.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker for processing rank notices.
type InMemoryWorker struct {
	queue  Queue
	ranker Ranker
	name   string

	// Shutdown control
	shutdown chan struct{}
	done     chan struct{}

	// Logging
	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(queue Queue, ranker Ranker, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:    queue,
		ranker:   ranker,
		name:     "ranker", // default name
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Get().Named("ranker"),
	}

	// Apply all options
	for _, opt := range opts {
		opt(w)
	}

	// Set up logger with worker name if not already set
	if w.name != "ranker" {
		w.logger = w.logger.Named(w.name)
	}

	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer func() {
		close(w.done)
	}()

	noticeChan := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case notice, ok := <-noticeChan:
			if !ok {
				// Channel closed, worker should stop
				return
			}

			w.processNotice(ctx, notice)
		}
	}
}

// Shutdown gracefully stops the worker.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	// Signal shutdown
	close(w.shutdown)

	// Wait for worker to finish or context to timeout
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// processNotice folds a single notice into the board.
func (w *InMemoryWorker) processNotice(ctx context.Context, notice Notice) {
	metrics.RecordQueueDequeue()

	defer func() {
		// The board never fails a fold, but a panic from a corrupted
		// notice must not take the whole pool down.
		if r := recover(); r != nil {
			metrics.RecordErrorByComponent("worker", "apply_panic")
			w.logger.Error(ctx, "rank apply panicked",
				logger.String("userID", notice.UserID),
				logger.Any("panic", r),
			)
		}
	}()

	w.ranker.Apply(ctx, notice)
}

// Pool manages multiple workers.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue
	ranker  Ranker

	// Shutdown control
	shutdown chan struct{}

	// Logging
	logger logger.Logger
}

// NewPool creates a new worker pool.
func NewPool(workerCount int, queue Queue, ranker Ranker) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU() * defaultWorkerMultiplier
	}

	pool := &Pool{
		workers:  make([]*InMemoryWorker, workerCount),
		queue:    queue,
		ranker:   ranker,
		shutdown: make(chan struct{}),
		logger:   logger.Get().Named("ranker-pool"),
	}

	for i := 0; i < workerCount; i++ {
		pool.workers[i] = NewInMemoryWorker(
			queue,
			ranker,
			WithName("ranker-"+strconv.Itoa(i)),
		)
	}

	metrics.UpdateWorkerCount(workerCount)

	return pool
}

// Size reports how many workers the pool runs.
func (p *Pool) Size() int {
	return len(p.workers)
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, worker := range p.workers {
		go worker.Run(ctx)
	}
}

// Stop gracefully stops all workers.
func (p *Pool) Stop() {
	// Signal shutdown to all workers
	close(p.shutdown)
	for _, worker := range p.workers {
		close(worker.shutdown)
	}

	for _, worker := range p.workers {
		select {
		case <-worker.done:
			// Worker finished
		case <-time.After(workerShutdownTimeout):
			// Worker timeout
		}
	}
}

// Shutdown gracefully shuts down the entire worker pool.
func (p *Pool) Shutdown(ctx context.Context) error {
	// First close the queue to stop new notices
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	for i, worker := range p.workers {
		select {
		case <-worker.done:
		case <-shutdownCtx.Done():
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
		}
	}

	return nil
}
