// Package clickqueue records redirect clicks off the request path.
//
// The redirect handler hands a click to Submit and returns immediately; a
// fixed pool of workers writes the click (and its counter bump) to the store.
// A full queue drops the click rather than slowing the redirect.
package clickqueue

import (
	"context"
	"sync"
	"time"

	"shorturl/internal/domain"
	"shorturl/internal/metrics"
	"shorturl/pkg/logger"
)

// Store is the write side of the click repository.
type Store interface {
	Record(ctx context.Context, click *domain.Click) error
}

// Options sizes the queue.
type Options struct {
	QueueSize    int
	Workers      int
	WriteTimeout time.Duration
}

// Recorder is a bounded queue drained by a worker pool.
type Recorder struct {
	store        Store
	log          *logger.Logger
	writeTimeout time.Duration

	jobs chan *domain.Click
	wg   sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// New starts opts.Workers workers and returns the recorder.
func New(store Store, opts Options, log *logger.Logger) *Recorder {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 1024
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 2 * time.Second
	}

	r := &Recorder{
		store:        store,
		log:          log,
		writeTimeout: opts.WriteTimeout,
		jobs:         make(chan *domain.Click, opts.QueueSize),
	}

	r.wg.Add(opts.Workers)
	for i := 0; i < opts.Workers; i++ {
		go r.worker()
	}
	return r
}

// Submit enqueues click without blocking. It reports false when the click was
// dropped because the queue is full or the recorder is stopped.
func (r *Recorder) Submit(click *domain.Click) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		metrics.RecordClickDropped("stopped")
		return false
	}

	select {
	case r.jobs <- click:
		metrics.ClickQueueDepth.Set(float64(len(r.jobs)))
		return true
	default:
		metrics.RecordClickDropped("queue_full")
		r.log.Warn("click queue full, dropping click", "url_id", click.URLID)
		return false
	}
}

// Stop refuses new clicks and waits for queued ones to be written, or for
// ctx to end, whichever comes first.
func (r *Recorder) Stop(ctx context.Context) error {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.jobs)
	}
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Recorder) worker() {
	defer r.wg.Done()

	for click := range r.jobs {
		metrics.ClickQueueDepth.Set(float64(len(r.jobs)))
		r.write(click)
	}
}

// write uses its own deadline: the request that produced the click is
// usually finished by now.
func (r *Recorder) write(click *domain.Click) {
	ctx, cancel := context.WithTimeout(context.Background(), r.writeTimeout)
	defer cancel()

	if err := r.store.Record(ctx, click); err != nil {
		metrics.RecordClickDropped("store_error")
		r.log.Error("failed to record click", "url_id", click.URLID, "error", err)
		return
	}
	metrics.RecordClickRecorded()
}
