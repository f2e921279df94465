package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

type Task func(ctx context.Context) error

type Result struct {
	Key      string
	Err      error
	Duration time.Duration
}

var (
	ErrQueueFull  = errors.New("worker pool queue is full")
	ErrPoolClosed = errors.New("worker pool is closed")
)

type queued struct {
	key string
	run Task
}

// WorkerPool runs keyed tasks on a fixed number of workers. A key stays pending from Submit
// until a worker picks it up; submitting it again meanwhile is a no-op.
type WorkerPool struct {
	workers int
	tasks   chan queued
	wg      sync.WaitGroup

	mu      sync.Mutex
	pending map[string]struct{}
	closed  bool
}

func NewWorkerPool(workers, buffer int) *WorkerPool {
	if workers <= 0 {
		workers = 1
	}
	if buffer < 1 {
		buffer = workers
	}
	return &WorkerPool{
		workers: workers,
		tasks:   make(chan queued, buffer),
		pending: make(map[string]struct{}),
	}
}

// Submit reports whether t was queued. A coalesced duplicate returns false with a nil error.
func (p *WorkerPool) Submit(key string, t Task) (bool, error) {
	if p == nil || t == nil {
		return false, ErrPoolClosed
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return false, ErrPoolClosed
	}
	if _, ok := p.pending[key]; ok {
		return false, nil
	}
	select {
	case p.tasks <- queued{key: key, run: t}:
		p.pending[key] = struct{}{}
		return true, nil
	default:
		return false, ErrQueueFull
	}
}

func (p *WorkerPool) Pending() int {
	if p == nil {
		return 0
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pending)
}

// Close stops accepting tasks. Workers drain what is already queued.
func (p *WorkerPool) Close() {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	close(p.tasks)
}

func (p *WorkerPool) Run(ctx context.Context) <-chan Result {
	if p == nil {
		out := make(chan Result)
		close(out)
		return out
	}
	out := make(chan Result, p.workers*64)

	p.wg.Add(p.workers)
	for i := 0; i < p.workers; i++ {
		go func() {
			defer p.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case t, ok := <-p.tasks:
					if !ok {
						return
					}
					p.mu.Lock()
					delete(p.pending, t.key)
					p.mu.Unlock()

					start := time.Now()
					err := execute(ctx, t.run)
					select {
					case <-ctx.Done():
						return
					case out <- Result{Key: t.key, Err: err, Duration: time.Since(start)}:
					}
				}
			}
		}()
	}

	go func() {
		p.wg.Wait()
		close(out)
	}()

	return out
}

func execute(ctx context.Context, t Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panicked: %v", r)
		}
	}()
	return t(ctx)
}
