// Copyright (c) 2026 Tankobon. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package ingest

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// ErrPoolClosed is returned by Submit after Close.
var ErrPoolClosed = errors.New("ingest: pool closed")

// Processor reconciles one record. [*Engine] is the production implementation.
type Processor interface {
	Process(ctx context.Context, record Record) (Outcome, error)
}

// PoolOptions configures a [Pool].
type PoolOptions struct {
	// Workers is the number of records processed concurrently. Defaults to 1.
	Workers int

	// QueueSize is how many submitted records may wait for a worker. Defaults to Workers.
	QueueSize int

	// OnResult, when set, is called from the worker goroutine after every record.
	OnResult func(record Record, outcome Outcome, err error)
}

// Stats counts records by result.
type Stats struct {
	Processed int64 `json:"processed"`
	Dropped   int64 `json:"dropped"`
	Failed    int64 `json:"failed"`
}

// Pool runs a [Processor] on a fixed set of workers fed by a bounded queue.
//
// A crawler hands records to Submit and keeps crawling; it only waits when the
// queue is full. Close stops accepting records and waits for the queue to drain.
type Pool struct {
	processor Processor
	queue     chan Record
	group     errgroup.Group
	onResult  func(Record, Outcome, error)

	mu     sync.RWMutex
	closed bool

	processed atomic.Int64
	dropped   atomic.Int64
	failed    atomic.Int64
}

// NewPool starts the workers. They process records with ctx.
func NewPool(ctx context.Context, processor Processor, options PoolOptions) *Pool {
	workers := max(options.Workers, 1)
	queueSize := options.QueueSize
	if queueSize < 1 {
		queueSize = workers
	}

	pool := &Pool{
		processor: processor,
		queue:     make(chan Record, queueSize),
		onResult:  options.OnResult,
	}

	for i := 0; i < workers; i++ {
		pool.group.Go(func() error {
			for record := range pool.queue {
				pool.handle(ctx, record)
			}
			return nil
		})
	}
	return pool
}

// Submit queues record, blocking only while the queue is full.
func (p *Pool) Submit(ctx context.Context, record Record) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ErrPoolClosed
	}

	select {
	case p.queue <- record:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting records, waits for every queued record and returns the totals.
func (p *Pool) Close() Stats {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.queue)
	}
	p.mu.Unlock()

	_ = p.group.Wait()
	return p.Stats()
}

// Stats returns the totals so far.
func (p *Pool) Stats() Stats {
	return Stats{
		Processed: p.processed.Load(),
		Dropped:   p.dropped.Load(),
		Failed:    p.failed.Load(),
	}
}

func (p *Pool) handle(ctx context.Context, record Record) {
	outcome, err := p.processor.Process(ctx, record)

	switch {
	case err == nil:
		p.processed.Add(1)
	case errors.Is(err, ErrDropped):
		p.dropped.Add(1)
	default:
		p.failed.Add(1)
	}

	if p.onResult != nil {
		p.onResult(record, outcome, err)
	}
}
