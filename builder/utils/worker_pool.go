package utils

import (
	"context"
	"runtime"
	"sync"
)

const (
	MaxWorkers       = 32
	WorkerBufferSize = 4
)

type WorkerPool[T any] struct {
	workers   int
	ctx       context.Context
	wg        sync.WaitGroup
	taskQueue chan T
	handler   func(T)
}

func NewWorkerPool[T any](ctx context.Context, workers int, handler func(T)) *WorkerPool[T] {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > MaxWorkers {
		workers = MaxWorkers
	}
	return &WorkerPool[T]{
		workers:   workers,
		ctx:       ctx,
		taskQueue: make(chan T, workers*WorkerBufferSize),
		handler:   handler,
	}
}

func (p *WorkerPool[T]) Start() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

func (p *WorkerPool[T]) worker() {
	defer p.wg.Done()
	for {
		select {
		case <-p.ctx.Done():
			return
		case task, ok := <-p.taskQueue:
			if !ok {
				return
			}
			p.handler(task)
		}
	}
}

// Submit queues a task. It returns false once the context is cancelled.
func (p *WorkerPool[T]) Submit(task T) bool {
	if p.ctx.Err() != nil {
		return false
	}
	select {
	case <-p.ctx.Done():
		return false
	case p.taskQueue <- task:
		return true
	}
}

func (p *WorkerPool[T]) Stop() {
	close(p.taskQueue)
	p.wg.Wait()
}

// ParallelMap runs fn over items on a fixed pool and returns the results in input order.
// Items that were never submitted because ctx was cancelled keep their zero value and
// are reported through the second return value.
func ParallelMap[In, Out any](ctx context.Context, workers int, items []In, fn func(In) Out) ([]Out, int) {
	out := make([]Out, len(items))
	if len(items) == 0 {
		return out, 0
	}

	type job struct {
		idx  int
		item In
	}
	pool := NewWorkerPool(ctx, workers, func(j job) {
		out[j.idx] = fn(j.item)
	})
	pool.Start()

	submitted := 0
	for i, item := range items {
		if !pool.Submit(job{idx: i, item: item}) {
			break
		}
		submitted++
	}
	pool.Stop()

	return out, len(items) - submitted
}
