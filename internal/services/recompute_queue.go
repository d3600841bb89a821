// Package services – RecomputeQueue
//
// RecomputeQueue runs PostStats recomputes off the request path. Triggers are
// buffered in a bounded channel and handled by a fixed worker pool. While a
// post is waiting in the buffer further triggers for it coalesce into the
// pending job; a trigger that arrives once a worker has picked the job up is
// queued again, so every event is covered by at least one later recompute.
// A full buffer drops the trigger (logged and counted) instead of blocking.
package services

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-engagement-backend/internal/domain"
)

// Recomputer performs one full stats derivation. Implemented by *StatsService.
type Recomputer interface {
	Recompute(ctx context.Context, postID string) (*domain.PostStats, error)
}

// RecomputeQueue is a coalescing, bounded background worker pool.
type RecomputeQueue struct {
	stats   Recomputer
	jobs    chan string
	workers int
	timeout time.Duration

	mu      sync.Mutex
	pending map[string]struct{}
	closed  bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewRecomputeQueue builds a queue; call Start to launch the workers.
func NewRecomputeQueue(stats Recomputer, workers, size int, timeout time.Duration) *RecomputeQueue {
	if workers < 1 {
		workers = 1
	}
	if size < 1 {
		size = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &RecomputeQueue{
		stats:   stats,
		jobs:    make(chan string, size),
		workers: workers,
		timeout: timeout,
		pending: make(map[string]struct{}, size),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start launches the workers.
func (q *RecomputeQueue) Start() {
	log.Info().Int("workers", q.workers).Int("capacity", cap(q.jobs)).Msg("starting recompute queue")
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker()
	}
}

// Enqueue schedules a recompute for postID without blocking. It returns
// false when the trigger was dropped (queue full or stopped).
func (q *RecomputeQueue) Enqueue(postID string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		recomputeQueue.WithLabelValues("dropped").Inc()
		return false
	}
	if _, ok := q.pending[postID]; ok {
		recomputeQueue.WithLabelValues("coalesced").Inc()
		return true
	}
	select {
	case q.jobs <- postID:
		q.pending[postID] = struct{}{}
		recomputeQueue.WithLabelValues("enqueued").Inc()
		return true
	default:
		recomputeQueue.WithLabelValues("dropped").Inc()
		log.Warn().Str("post_id", postID).Msg("recompute queue full, trigger dropped")
		return false
	}
}

// Pending returns the number of posts waiting for a worker.
func (q *RecomputeQueue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Stop refuses new triggers, lets the workers drain the buffer and waits for
// them. If ctx ends first, in-flight recomputes are cancelled and ctx.Err()
// is returned.
func (q *RecomputeQueue) Stop(ctx context.Context) error {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.jobs)
	}
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		q.cancel()
		return nil
	case <-ctx.Done():
		q.cancel()
		<-done
		return ctx.Err()
	}
}

func (q *RecomputeQueue) worker() {
	defer q.wg.Done()
	for postID := range q.jobs {
		q.mu.Lock()
		delete(q.pending, postID)
		q.mu.Unlock()

		q.run(postID)
	}
}

func (q *RecomputeQueue) run(postID string) {
	ctx := q.ctx
	if q.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, q.timeout)
		defer cancel()
	}
	if _, err := q.stats.Recompute(ctx, postID); err != nil {
		recomputeQueue.WithLabelValues("failed").Inc()
		log.Warn().Err(err).Str("post_id", postID).Msg("background recompute failed")
	}
}
